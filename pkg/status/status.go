// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

// Package status serves a small diagnostics endpoint for a running capture
// engine: health, capture counters, and self resource usage.
package status

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/webdriverio/cdpcapture/pkg/capture"
	"github.com/webdriverio/cdpcapture/pkg/cdpconn"
)

const HttpReadTimeout = 5 * time.Second
const HttpWriteTimeout = 21 * time.Second
const HttpMaxHeaderBytes = 60000

func WriteJsonError(w http.ResponseWriter, errVal error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	errMap := map[string]interface{}{"error": errVal.Error()}
	barr, _ := json.Marshal(errMap)
	w.Write(barr)
}

func WriteJsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	rtnMap := map[string]interface{}{"success": true}
	if data != nil {
		rtnMap["data"] = data
	}
	barr, err := json.Marshal(rtnMap)
	if err != nil {
		WriteJsonError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(barr)
}

func panicWrap(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[status] panic in handler: %v\n", rec)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		w.Header().Set("Cache-Control", "no-cache")
		fn(w, r)
	}
}

// Server reports on one engine's connection and manager.
type Server struct {
	Manager *capture.Manager
	Conn    *cdpconn.Conn
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJsonSuccess(w, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UnixMilli(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"connected":      s.Conn != nil && !s.Conn.IsClosed(),
		"sessions":       s.Manager.SessionCount(),
		"attachcount":    s.Manager.AttachCount(),
		"detachcount":    s.Manager.DetachCount(),
		"eventsparsed":   s.Manager.EventsParsed(),
		"linesforwarded": s.Manager.LinesForwarded(),
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if cpuPercent, err := proc.CPUPercent(); err == nil {
			data["cpupercent"] = cpuPercent
		}
		if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
			data["rssbytes"] = memInfo.RSS
		}
	}
	WriteJsonSuccess(w, data)
}

// MakeTCPListener binds addr, falling back to an ephemeral localhost port
// when addr is empty.
func MakeTCPListener(addr string) (net.Listener, error) {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	rtn, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("error creating status listener at %v: %v", addr, err)
	}
	log.Printf("[status] listening on %s\n", rtn.Addr())
	return rtn, nil
}

// RunServer serves the status endpoints until the listener closes. Blocking.
func (s *Server) RunServer(listener net.Listener) {
	gr := mux.NewRouter()
	gr.HandleFunc("/healthz", panicWrap(s.handleHealth))
	gr.HandleFunc("/status", panicWrap(s.handleStatus))
	server := &http.Server{
		ReadTimeout:    HttpReadTimeout,
		WriteTimeout:   HttpWriteTimeout,
		MaxHeaderBytes: HttpMaxHeaderBytes,
		Handler:        handlers.LoggingHandler(os.Stderr, gr),
	}
	server.SetKeepAlivesEnabled(false)
	err := server.Serve(listener)
	if err != nil && err != http.ErrServerClosed {
		log.Printf("[status] server ended: %v\n", err)
	}
}
