// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

// Package cdpcapture wires the capture engine together: one protocol
// connection plus one capture manager per application instance, routing
// console output to a host logger or a timestamped log file.
package cdpcapture

import (
	"github.com/sirupsen/logrus"
	"github.com/webdriverio/cdpcapture/pkg/capture"
	"github.com/webdriverio/cdpcapture/pkg/cdpconn"
	"github.com/webdriverio/cdpcapture/pkg/config"
	"github.com/webdriverio/cdpcapture/pkg/logroute"
	"github.com/webdriverio/cdpcapture/pkg/logsink"
)

// Re-exported so callers configure capture without importing pkg/config.
type CaptureOptions = config.CaptureOptions

// EngineConfig describes one capture engine instance.
type EngineConfig struct {
	// WSURL is the DevTools websocket endpoint of the debuggee.
	WSURL string

	// ConnOptions tunes the connection; zero values use defaults.
	ConnOptions cdpconn.ConnOptions

	// Options is the per-capture configuration, immutable once started.
	Options config.CaptureOptions

	// InstanceLabel disambiguates output when several instances run in
	// parallel. May be empty.
	InstanceLabel string

	// Logger receives output when no file sink is configured. May be nil
	// if Options.OutputDir is set.
	Logger *logrus.Logger
}

// Engine is one running Connection + Capture Manager pair. Instances are
// independent: no cross-instance shared state beyond the label convention.
type Engine struct {
	conn    *cdpconn.Conn
	manager *capture.Manager
	sink    *logsink.Sink
}

// Start connects to the debuggee, resolves the primary execution context,
// and begins capturing per the options. Connection and context-resolution
// failures propagate; capture-start failures are logged and swallowed.
func Start(cfg EngineConfig) (*Engine, error) {
	conn, err := cdpconn.Connect(cfg.WSURL, cfg.ConnOptions)
	if err != nil {
		return nil, err
	}

	// the process-wide sink is only wired at this outermost layer; the
	// forwarder takes the handle explicitly
	sink := logsink.MakeSink()
	if cfg.Options.OutputDir != "" {
		if err := sink.Init(cfg.Options.OutputDir); err != nil {
			conn.Close()
			return nil, err
		}
	}

	manager := capture.MakeManager(logroute.MakeForwarder(sink, cfg.Logger))
	manager.CaptureMainLogs(conn, cfg.Options, cfg.InstanceLabel)
	manager.CaptureSecondaryLogs(conn, cfg.Options, cfg.InstanceLabel)

	return &Engine{
		conn:    conn,
		manager: manager,
		sink:    sink,
	}, nil
}

// Stop removes all listeners, detaches all sessions, closes the sink, and
// tears down the connection. Safe to call repeatedly.
func (e *Engine) Stop() {
	e.manager.StopCapture()
	e.sink.Close()
	e.conn.Close()
}

// Manager exposes capture counters for diagnostics.
func (e *Engine) Manager() *capture.Manager {
	return e.manager
}

// Conn exposes the underlying connection.
func (e *Engine) Conn() *cdpconn.Conn {
	return e.conn
}

// LogPath returns the sink's file path, empty when logging to the host
// logger.
func (e *Engine) LogPath() string {
	return e.sink.Path()
}
