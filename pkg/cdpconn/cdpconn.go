// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

// Package cdpconn owns the DevTools-protocol websocket: command/response
// correlation, event listener dispatch, and resolution of the primary
// execution context under event-ordering uncertainty.
package cdpconn

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/webdriverio/cdpcapture/pkg/base"
	"github.com/webdriverio/cdpcapture/pkg/cdptypes"
	"github.com/webdriverio/cdpcapture/pkg/panichandler"
	"github.com/webdriverio/cdpcapture/pkg/utilds"
)

// EventHandler receives protocol events. Handlers for one session run in
// transport delivery order; there is no ordering across sessions.
type EventHandler func(msg cdptypes.Message)

// eventKey scopes a listener to one session (empty = root) and one method.
type eventKey struct {
	SessionID string
	Method    string
}

// ConnOptions tunes the connection. Zero values fall back to the defaults
// in pkg/base.
type ConnOptions struct {
	CommandTimeout time.Duration
	ContextTimeout time.Duration
	DialRetries    int
	DialRetryDelay time.Duration
	// InitExpression is evaluated once inside the resolved primary context.
	// Empty skips the evaluation step.
	InitExpression string
}

func DefaultConnOptions() ConnOptions {
	return ConnOptions{
		CommandTimeout: base.DefaultCommandTimeout,
		ContextTimeout: base.DefaultContextTimeout,
		DialRetries:    base.DefaultDialRetries,
		DialRetryDelay: base.DefaultDialRetryDelay,
		InitExpression: DefaultInitExpression,
	}
}

// DefaultInitExpression installs the esbuild __name shim the bundled app
// code expects. Idempotent by construction.
const DefaultInitExpression = `globalThis.__name = globalThis.__name ?? ((fn) => fn);`

func (opts *ConnOptions) fillDefaults() {
	def := DefaultConnOptions()
	if opts.CommandTimeout == 0 {
		opts.CommandTimeout = def.CommandTimeout
	}
	if opts.ContextTimeout == 0 {
		opts.ContextTimeout = def.ContextTimeout
	}
	if opts.DialRetries == 0 {
		opts.DialRetries = def.DialRetries
	}
	if opts.DialRetryDelay == 0 {
		opts.DialRetryDelay = def.DialRetryDelay
	}
}

// Conn is one protocol connection to a debuggee. All registered listeners
// share it; only the capture manager mutates listener state.
type Conn struct {
	ConnID string

	opts      ConnOptions
	ws        *websocket.Conn
	writeLock sync.Mutex
	nextID    atomic.Int64
	closed    atomic.Bool
	doneCh    chan struct{}

	pending  *utilds.SyncMap[int64, chan cdptypes.Message]
	handlers *utilds.SyncMap[eventKey, EventHandler]

	// settled exactly once per connection lifetime
	primaryCtx *utilds.ResultCell[int64]
}

// Connect dials the DevTools websocket endpoint, resolves the primary
// execution context, and runs the init expression inside it. Any failure
// here is fatal to setup; the engine cannot function without a resolved
// primary context.
func Connect(wsURL string, opts ConnOptions) (*Conn, error) {
	opts.fillDefaults()

	ws, err := dialWithRetry(wsURL, opts.DialRetries, opts.DialRetryDelay)
	if err != nil {
		return nil, err
	}

	conn := &Conn{
		ConnID:     uuid.New().String(),
		opts:       opts,
		ws:         ws,
		doneCh:     make(chan struct{}),
		pending:    utilds.MakeSyncMap[int64, chan cdptypes.Message](),
		handlers:   utilds.MakeSyncMap[eventKey, EventHandler](),
		primaryCtx: utilds.MakeResultCell[int64](),
	}
	go conn.readLoop()

	if err := conn.resolvePrimaryContext(); err != nil {
		conn.Close()
		return nil, err
	}
	if opts.InitExpression != "" {
		ctxID, _ := conn.primaryCtx.Get()
		if err := conn.runInitExpression(ctxID); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func dialWithRetry(wsURL string, retries int, delay time.Duration) (*websocket.Conn, error) {
	var lastErr error
	for i := 0; i < retries; i++ {
		ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err == nil {
			return ws, nil
		}
		lastErr = err
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("cannot connect to devtools endpoint %s after %d attempts: %w", wsURL, retries, lastErr)
}

// resolvePrimaryContext registers the discovery handler before enabling the
// runtime domain (order matters: enabling first can lose the burst of
// replayed context events), waits for a default-marked context under a
// bounded timer, then disables the domain again so later re-enables by
// capture callers do not duplicate discovery.
func (c *Conn) resolvePrimaryContext() error {
	var discoveryLock sync.Mutex
	var firstID int64
	var observed int

	key := eventKey{SessionID: "", Method: cdptypes.MethodContextCreated}
	c.handlers.Set(key, func(msg cdptypes.Message) {
		var ev cdptypes.ContextCreatedEvent
		if err := json.Unmarshal(msg.Params, &ev); err != nil {
			log.Printf("[cdpconn] malformed executionContextCreated event: %v\n", err)
			return
		}
		discoveryLock.Lock()
		if observed == 0 {
			firstID = ev.Context.ID
		}
		observed++
		discoveryLock.Unlock()
		if ev.Context.AuxData.IsDefault {
			c.primaryCtx.SetOnce(ev.Context.ID, nil)
		}
	})
	defer c.handlers.Delete(key)

	if _, err := c.Command(cdptypes.MethodRuntimeEnable, nil, ""); err != nil {
		return fmt.Errorf("cannot enable runtime domain: %w", err)
	}

	_, waitErr := c.primaryCtx.Wait(c.opts.ContextTimeout)
	if waitErr != nil {
		// timer expired; settle with the fallback if we saw anything at
		// all. A late default-marked event may still win the SetOnce race,
		// which is fine: the cell settles exactly once either way.
		discoveryLock.Lock()
		fallbackID, count := firstID, observed
		discoveryLock.Unlock()
		if count == 0 {
			c.primaryCtx.SetOnce(0, fmt.Errorf(
				"execution context discovery timed out after %v (observed %d context-created events)",
				c.opts.ContextTimeout, count))
		} else {
			if c.primaryCtx.SetOnce(fallbackID, nil) {
				log.Printf("[cdpconn] no default-marked execution context within %v, falling back to first of %d observed\n",
					c.opts.ContextTimeout, count)
			}
		}
	}

	ctxID, err := c.primaryCtx.Get()
	if err != nil {
		return err
	}

	if _, err := c.Command(cdptypes.MethodRuntimeDisable, nil, ""); err != nil {
		log.Printf("[cdpconn] cannot disable runtime domain after discovery: %v\n", err)
	}
	log.Printf("[cdpconn] resolved primary execution context %d\n", ctxID)
	return nil
}

func (c *Conn) runInitExpression(ctxID int64) error {
	result, err := c.Evaluate(cdptypes.EvaluateParams{
		Expression:    c.opts.InitExpression,
		ContextID:     ctxID,
		ReturnByValue: true,
	})
	if err != nil {
		return fmt.Errorf("init expression failed: %w", err)
	}
	if result.ExceptionDetails != nil {
		return fmt.Errorf("init expression threw: %s", result.ExceptionDetails.Text)
	}
	return nil
}

// PrimaryContextID returns the resolved primary execution context id. It is
// immutable for the connection's lifetime.
func (c *Conn) PrimaryContextID() (int64, error) {
	if !c.primaryCtx.IsSet() {
		return 0, fmt.Errorf("primary execution context not resolved")
	}
	return c.primaryCtx.Get()
}

// Command issues one protocol command, optionally scoped to an attached
// session, and waits for its response under the command timeout.
func (c *Conn) Command(method string, params any, sessionID string) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("connection closed")
	}
	var rawParams json.RawMessage
	if params != nil {
		var err error
		rawParams, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("cannot marshal %s params: %w", method, err)
		}
	}

	id := c.nextID.Add(1)
	resultCh := make(chan cdptypes.Message, 1)
	c.pending.Set(id, resultCh)
	defer c.pending.Delete(id)

	msg := cdptypes.Message{
		ID:        id,
		Method:    method,
		Params:    rawParams,
		SessionID: sessionID,
	}
	if err := c.writeMessage(msg); err != nil {
		return nil, fmt.Errorf("cannot send %s: %w", method, err)
	}

	timer := time.NewTimer(c.opts.CommandTimeout)
	defer timer.Stop()
	select {
	case resp := <-resultCh:
		if resp.Error != nil {
			return nil, fmt.Errorf("%s failed: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s timed out after %v", method, c.opts.CommandTimeout)
	case <-c.doneCh:
		return nil, fmt.Errorf("connection closed while waiting for %s response", method)
	}
}

func (c *Conn) writeMessage(msg cdptypes.Message) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return c.ws.WriteJSON(msg)
}

func (c *Conn) readLoop() {
	for {
		var msg cdptypes.Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if !c.closed.Load() {
				log.Printf("[cdpconn] read loop ended: %v\n", err)
			}
			c.shutdown()
			return
		}
		if msg.ID != 0 {
			if resultCh, ok := c.pending.GetEx(msg.ID); ok {
				resultCh <- msg
			}
			continue
		}
		if msg.Method != "" {
			c.dispatchEvent(msg)
		}
	}
}

// dispatchEvent runs the matching listener inline so events for one session
// keep transport delivery order. Multiplexed events with no matching
// listener are ignored.
func (c *Conn) dispatchEvent(msg cdptypes.Message) {
	handler, ok := c.handlers.GetEx(eventKey{SessionID: msg.SessionID, Method: msg.Method})
	if !ok {
		return
	}
	defer func() {
		panichandler.PanicHandler("cdpconn:dispatchEvent:"+msg.Method, recover())
	}()
	handler(msg)
}

// RegisterListener binds a handler to (sessionID, method). Returns false if
// a handler is already registered for that key; a session is never
// listened-to twice.
func (c *Conn) RegisterListener(sessionID string, method string, handler EventHandler) bool {
	key := eventKey{SessionID: sessionID, Method: method}
	if _, exists := c.handlers.GetEx(key); exists {
		return false
	}
	c.handlers.Set(key, handler)
	return true
}

// UnregisterListener removes the handler for (sessionID, method).
func (c *Conn) UnregisterListener(sessionID string, method string) {
	c.handlers.Delete(eventKey{SessionID: sessionID, Method: method})
}

// ListenerCount reports how many listeners are registered (tests assert the
// registry is empty after capture stops).
func (c *Conn) ListenerCount() int {
	return c.handlers.Len()
}

func (c *Conn) shutdown() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.doneCh)
	c.ws.Close()
}

// Close tears down the socket and releases every waiter.
func (c *Conn) Close() {
	c.shutdown()
}

// IsClosed reports whether the connection has been torn down.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}
