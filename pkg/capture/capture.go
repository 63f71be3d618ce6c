// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

// Package capture composes the connection, parser, and forwarder: it
// registers the primary-context console listener, discovers and attaches
// renderer targets as they appear, and owns stop/cleanup.
package capture

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/webdriverio/cdpcapture/pkg/base"
	"github.com/webdriverio/cdpcapture/pkg/cdpconn"
	"github.com/webdriverio/cdpcapture/pkg/cdptypes"
	"github.com/webdriverio/cdpcapture/pkg/config"
	"github.com/webdriverio/cdpcapture/pkg/logparse"
	"github.com/webdriverio/cdpcapture/pkg/logroute"
)

// DebugSession is one attached secondary target. Owned exclusively by the
// manager: created on attach, destroyed on detach or StopCapture.
type DebugSession struct {
	TargetID  string
	SessionID string
}

// Manager owns the listener and session registries for one connection.
type Manager struct {
	lock sync.Mutex
	conn *cdpconn.Conn
	fwd  *logroute.Forwarder

	// sessions preserves attach order (targetID -> *DebugSession) so
	// cleanup and diagnostics iterate the way targets arrived.
	sessions *linkedhashmap.Map
	inflight map[string]bool // targetID attach in progress

	primaryRegistered bool
	discovering       bool
	stopped           bool

	attachCount    atomic.Int64
	detachCount    atomic.Int64
	eventsParsed   atomic.Int64
	linesForwarded atomic.Int64
}

func MakeManager(fwd *logroute.Forwarder) *Manager {
	return &Manager{
		fwd:      fwd,
		sessions: linkedhashmap.New(),
		inflight: make(map[string]bool),
	}
}

// CaptureMainLogs enables the runtime domain and registers one listener
// bound to the primary execution context. Best-effort: every failure here is
// logged and swallowed; the caller's session setup must never abort because
// main-log capture could not start.
func (m *Manager) CaptureMainLogs(conn *cdpconn.Conn, opts config.CaptureOptions, instanceLabel string) {
	if !opts.MainEnabled {
		return
	}
	m.lock.Lock()
	m.conn = conn
	m.stopped = false
	m.lock.Unlock()

	primaryCtx, err := conn.PrimaryContextID()
	if err != nil {
		log.Printf("[capture] cannot capture main logs: %v\n", err)
		return
	}
	if err := conn.RuntimeEnable(""); err != nil {
		log.Printf("[capture] cannot enable runtime domain for main logs: %v\n", err)
		return
	}

	registered := conn.RegisterListener("", cdptypes.MethodConsoleAPICalled, func(msg cdptypes.Message) {
		var ev cdptypes.ConsoleAPICalledEvent
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			log.Printf("[capture] malformed console event: %v\n", err)
			return
		}
		// console calls from other root-session contexts are not main logs
		if ev.ExecutionContextID != 0 && ev.ExecutionContextID != primaryCtx {
			return
		}
		m.forwardEvent(cdptypes.SourceMain, ev, opts.MainMinLevel, instanceLabel)
	})
	if !registered {
		log.Printf("[capture] main console listener already registered\n")
		return
	}

	m.lock.Lock()
	m.primaryRegistered = true
	m.lock.Unlock()
}

// CaptureSecondaryLogs enables target discovery, attaches to every existing
// page target, and keeps attaching to targets created later. Per-target
// failures are logged and skipped; one bad target never blocks the others.
func (m *Manager) CaptureSecondaryLogs(conn *cdpconn.Conn, opts config.CaptureOptions, instanceLabel string) {
	if !opts.RendererEnabled {
		return
	}
	m.lock.Lock()
	m.conn = conn
	m.stopped = false
	m.lock.Unlock()

	if err := conn.CheckMinBrowserVersion(base.MinBrowserVersion); err != nil {
		log.Printf("[capture] skipping renderer capture: %v\n", err)
		return
	}
	if err := conn.SetDiscoverTargets(true); err != nil {
		log.Printf("[capture] cannot enable target discovery: %v\n", err)
	} else {
		registered := conn.RegisterListener("", cdptypes.MethodTargetCreated, func(msg cdptypes.Message) {
			var ev cdptypes.TargetCreatedEvent
			if err := json.Unmarshal(msg.Params, &ev); err != nil {
				log.Printf("[capture] malformed targetCreated event: %v\n", err)
				return
			}
			if ev.TargetInfo.Type != cdptypes.TargetTypePage {
				return
			}
			// attach off the dispatch goroutine: attaching issues a
			// command whose response arrives on the same read loop
			go m.attachTarget(conn, opts, instanceLabel, ev.TargetInfo)
		})
		if registered {
			m.lock.Lock()
			m.discovering = true
			m.lock.Unlock()
		}
	}

	targets, err := conn.GetTargets()
	if err != nil {
		log.Printf("[capture] cannot enumerate targets: %v\n", err)
		return
	}
	for _, info := range targets {
		if info.Type != cdptypes.TargetTypePage {
			continue
		}
		m.attachTarget(conn, opts, instanceLabel, info)
	}
}

// attachTarget requests a session for one target and registers its console
// listener. A target already attached (or mid-attach) is skipped, so a
// session is never attached or listened-to twice.
func (m *Manager) attachTarget(conn *cdpconn.Conn, opts config.CaptureOptions, instanceLabel string, info cdptypes.TargetInfo) {
	m.lock.Lock()
	if m.stopped {
		m.lock.Unlock()
		return
	}
	if _, exists := m.sessions.Get(info.TargetID); exists || m.inflight[info.TargetID] {
		m.lock.Unlock()
		return
	}
	m.inflight[info.TargetID] = true
	m.lock.Unlock()

	defer func() {
		m.lock.Lock()
		delete(m.inflight, info.TargetID)
		m.lock.Unlock()
	}()

	sessionID, err := conn.AttachToTarget(info.TargetID)
	if err != nil {
		log.Printf("[capture] cannot attach to target %s: %v\n", info.TargetID, err)
		return
	}
	if err := conn.RuntimeEnable(sessionID); err != nil {
		log.Printf("[capture] cannot enable runtime domain for session %s: %v\n", sessionID, err)
	}

	registered := conn.RegisterListener(sessionID, cdptypes.MethodConsoleAPICalled, func(msg cdptypes.Message) {
		var ev cdptypes.ConsoleAPICalledEvent
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			log.Printf("[capture] malformed console event on session %s: %v\n", sessionID, err)
			return
		}
		m.forwardEvent(cdptypes.SourceRenderer, ev, opts.RendererMinLevel, instanceLabel)
	})
	if !registered {
		log.Printf("[capture] console listener for session %s already registered\n", sessionID)
		return
	}

	m.lock.Lock()
	if m.stopped {
		// capture stopped while the attach was in flight: roll it back
		m.lock.Unlock()
		conn.UnregisterListener(sessionID, cdptypes.MethodConsoleAPICalled)
		if err := conn.DetachFromTarget(sessionID); err != nil {
			log.Printf("[capture] cannot detach late session %s: %v\n", sessionID, err)
		}
		return
	}
	m.sessions.Put(info.TargetID, &DebugSession{TargetID: info.TargetID, SessionID: sessionID})
	m.lock.Unlock()
	m.attachCount.Add(1)
	log.Printf("[capture] attached to target %s (session %s)\n", info.TargetID, sessionID)
}

func (m *Manager) forwardEvent(source cdptypes.LogSource, ev cdptypes.ConsoleAPICalledEvent, minLevel string, instanceLabel string) {
	rec := logparse.ParseConsoleEvent(source, ev)
	m.eventsParsed.Add(1)
	if logroute.ShouldLog(rec.Level, minLevel) {
		m.linesForwarded.Add(1)
	}
	m.fwd.ForwardRecord(rec, minLevel, instanceLabel)
}

// StopCapture removes the primary listener if present, then removes each
// secondary session's listener and detaches it. Idempotent and safe on a
// never-started manager; a single failed removal never stops cleanup of the
// rest. Post-condition: the session registry is empty.
func (m *Manager) StopCapture() {
	m.lock.Lock()
	conn := m.conn
	m.stopped = true
	primaryWas := m.primaryRegistered
	m.primaryRegistered = false
	discoveringWas := m.discovering
	m.discovering = false
	sessions := make([]*DebugSession, 0, m.sessions.Size())
	for _, key := range m.sessions.Keys() {
		if val, ok := m.sessions.Get(key); ok {
			sessions = append(sessions, val.(*DebugSession))
		}
	}
	m.sessions.Clear()
	m.lock.Unlock()

	if conn == nil {
		return
	}
	if primaryWas {
		conn.UnregisterListener("", cdptypes.MethodConsoleAPICalled)
	}
	if discoveringWas {
		conn.UnregisterListener("", cdptypes.MethodTargetCreated)
	}
	for _, session := range sessions {
		conn.UnregisterListener(session.SessionID, cdptypes.MethodConsoleAPICalled)
		if err := conn.DetachFromTarget(session.SessionID); err != nil {
			log.Printf("[capture] cannot detach session %s: %v\n", session.SessionID, err)
		}
		m.detachCount.Add(1)
	}
}

// SessionCount reports currently attached secondary sessions.
func (m *Manager) SessionCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.sessions.Size()
}

// Counters for diagnostics/status reporting.
func (m *Manager) AttachCount() int64    { return m.attachCount.Load() }
func (m *Manager) DetachCount() int64    { return m.detachCount.Load() }
func (m *Manager) EventsParsed() int64   { return m.eventsParsed.Load() }
func (m *Manager) LinesForwarded() int64 { return m.linesForwarded.Load() }
