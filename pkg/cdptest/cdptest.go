// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

// Package cdptest runs a scriptable in-process DevTools endpoint over a real
// websocket. It speaks just enough of the protocol for connection, context
// resolution, and target attach/detach tests.
package cdptest

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/webdriverio/cdpcapture/pkg/cdptypes"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// FakeBrowser is a single-client fake DevTools endpoint.
type FakeBrowser struct {
	// Contexts are announced (in order) after Runtime.enable on the root
	// session, each delayed by ContextDelay.
	Contexts     []cdptypes.ExecutionContextDescription
	ContextDelay time.Duration
	// Targets answered by Target.getTargets.
	Targets []cdptypes.TargetInfo
	// FailAttach lists target ids whose attach requests fail.
	FailAttach map[string]bool
	// FailEvaluate makes Runtime.evaluate report a thrown exception.
	FailEvaluate bool
	// Product reported by Browser.getVersion.
	Product string

	server *httptest.Server

	lock            sync.Mutex
	conn            *websocket.Conn
	announced       bool
	sessionSeq      int
	sessions        map[string]string // sessionID -> targetID
	attachCount     int
	detachCount     int
	discoverTargets bool
}

// Start brings up the endpoint. URL() gives the websocket address to dial.
func (fb *FakeBrowser) Start() {
	if fb.Product == "" {
		fb.Product = "Chrome/119.0.6045.105"
	}
	fb.sessions = make(map[string]string)
	mux := http.NewServeMux()
	mux.HandleFunc("/devtools/browser", fb.handleWs)
	fb.server = httptest.NewServer(mux)
}

func (fb *FakeBrowser) Stop() {
	fb.lock.Lock()
	if fb.conn != nil {
		fb.conn.Close()
		fb.conn = nil
	}
	fb.lock.Unlock()
	fb.server.Close()
}

func (fb *FakeBrowser) URL() string {
	return strings.Replace(fb.server.URL, "http://", "ws://", 1) + "/devtools/browser"
}

func (fb *FakeBrowser) handleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	fb.lock.Lock()
	fb.conn = conn
	fb.lock.Unlock()

	for {
		var msg cdptypes.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		fb.handleCommand(msg)
	}
}

func (fb *FakeBrowser) handleCommand(msg cdptypes.Message) {
	switch msg.Method {
	case cdptypes.MethodRuntimeEnable:
		fb.respond(msg, map[string]any{}, nil)
		if msg.SessionID == "" {
			fb.announceContexts()
		}
	case cdptypes.MethodRuntimeDisable:
		fb.respond(msg, map[string]any{}, nil)
	case cdptypes.MethodRuntimeEvaluate:
		if fb.FailEvaluate {
			fb.respond(msg, cdptypes.EvaluateResult{
				Result:           cdptypes.RemoteObject{Type: "undefined"},
				ExceptionDetails: &cdptypes.ExceptionDetails{Text: "Uncaught ReferenceError"},
			}, nil)
			return
		}
		fb.respond(msg, cdptypes.EvaluateResult{Result: cdptypes.RemoteObject{Type: "undefined"}}, nil)
	case cdptypes.MethodSetDiscoverTargets:
		fb.lock.Lock()
		fb.discoverTargets = true
		fb.lock.Unlock()
		fb.respond(msg, map[string]any{}, nil)
	case cdptypes.MethodGetTargets:
		fb.respond(msg, cdptypes.GetTargetsResult{TargetInfos: fb.Targets}, nil)
	case cdptypes.MethodAttachToTarget:
		var params cdptypes.AttachToTargetParams
		json.Unmarshal(msg.Params, &params)
		if fb.FailAttach[params.TargetID] {
			fb.respond(msg, nil, &cdptypes.ResponseError{Code: -32000, Message: "No target with given id found"})
			return
		}
		fb.lock.Lock()
		fb.sessionSeq++
		sessionID := fmt.Sprintf("session-%d", fb.sessionSeq)
		fb.sessions[sessionID] = params.TargetID
		fb.attachCount++
		fb.lock.Unlock()
		fb.respond(msg, cdptypes.AttachToTargetResult{SessionID: sessionID}, nil)
	case cdptypes.MethodDetachFromTarget:
		var params cdptypes.DetachFromTargetParams
		json.Unmarshal(msg.Params, &params)
		fb.lock.Lock()
		delete(fb.sessions, params.SessionID)
		fb.detachCount++
		fb.lock.Unlock()
		fb.respond(msg, map[string]any{}, nil)
	case cdptypes.MethodBrowserGetVersion:
		fb.respond(msg, cdptypes.BrowserVersionResult{ProtocolVersion: "1.3", Product: fb.Product}, nil)
	default:
		fb.respond(msg, nil, &cdptypes.ResponseError{Code: -32601, Message: "method not found"})
	}
}

func (fb *FakeBrowser) announceContexts() {
	contexts := fb.Contexts
	delay := fb.ContextDelay
	fb.lock.Lock()
	already := fb.announced
	fb.announced = true
	fb.lock.Unlock()
	if already {
		return
	}
	go func() {
		for _, ctx := range contexts {
			if delay > 0 {
				time.Sleep(delay)
			}
			fb.EmitContextCreated(ctx)
		}
	}()
}

func (fb *FakeBrowser) respond(req cdptypes.Message, result any, respErr *cdptypes.ResponseError) {
	var raw json.RawMessage
	if result != nil {
		raw, _ = json.Marshal(result)
	}
	fb.write(cdptypes.Message{ID: req.ID, SessionID: req.SessionID, Result: raw, Error: respErr})
}

func (fb *FakeBrowser) write(msg cdptypes.Message) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	if fb.conn == nil {
		return
	}
	if err := fb.conn.WriteJSON(msg); err != nil {
		log.Printf("[cdptest] write failed: %v\n", err)
	}
}

func (fb *FakeBrowser) emitEvent(method string, sessionID string, params any) {
	raw, _ := json.Marshal(params)
	fb.write(cdptypes.Message{Method: method, SessionID: sessionID, Params: raw})
}

// EmitContextCreated announces one execution context on the root session.
func (fb *FakeBrowser) EmitContextCreated(ctx cdptypes.ExecutionContextDescription) {
	fb.emitEvent(cdptypes.MethodContextCreated, "", cdptypes.ContextCreatedEvent{Context: ctx})
}

// EmitConsole delivers a console event, scoped to a session if non-empty.
func (fb *FakeBrowser) EmitConsole(sessionID string, ev cdptypes.ConsoleAPICalledEvent) {
	fb.emitEvent(cdptypes.MethodConsoleAPICalled, sessionID, ev)
}

// EmitTargetCreated announces a new target. Only delivered when discovery
// was enabled, matching real endpoint behavior.
func (fb *FakeBrowser) EmitTargetCreated(info cdptypes.TargetInfo) {
	fb.lock.Lock()
	discovering := fb.discoverTargets
	fb.lock.Unlock()
	if !discovering {
		return
	}
	fb.emitEvent(cdptypes.MethodTargetCreated, "", cdptypes.TargetCreatedEvent{TargetInfo: info})
}

// SessionFor returns the live session id attached to targetID, if any.
func (fb *FakeBrowser) SessionFor(targetID string) (string, bool) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	for sid, tid := range fb.sessions {
		if tid == targetID {
			return sid, true
		}
	}
	return "", false
}

// AttachCount reports how many attach commands succeeded.
func (fb *FakeBrowser) AttachCount() int {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	return fb.attachCount
}

// DetachCount reports how many detach commands were processed.
func (fb *FakeBrowser) DetachCount() int {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	return fb.detachCount
}

// SessionCount reports currently attached sessions.
func (fb *FakeBrowser) SessionCount() int {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	return len(fb.sessions)
}
