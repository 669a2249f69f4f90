// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// ConnectionState represents the state of a Connection.
type ConnectionState int

const (
	// Disconnected means no transport session exists and no requests can
	// be made.
	Disconnected ConnectionState = iota

	// Connecting means a Connect call is in progress.
	Connecting

	// Connected means requests can be made.
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// response is the outcome of a single request.
type response struct {
	result gjson.Result
	err    error
}

// reconnectOp tracks an in-flight Reconnect so that concurrent calls
// share a single physical reconnect.
type reconnectOp struct {
	done chan struct{}
	err  error
}

// Connection is a client session with a request server over a Transport.
// It frames requests onto the transport, matches responses to callers by
// request ID, and owns the connection lifecycle.
//
// All methods are safe for concurrent use. Requests may be issued from
// many goroutines at once; responses are delivered to their callers in
// whatever order the server produces them.
//
// A Connection never retries anything on its own. When the transport
// fails, every in-flight request fails with DisconnectedError and the
// caller decides whether to Reconnect.
type Connection struct {
	transport Transport
	logger    Logger

	mu         sync.Mutex
	state      ConnectionState
	nextID     int64
	pending    map[int64]chan response
	generation uint64
	expectDown bool
	readCancel context.CancelFunc
	readDone   chan struct{}
	rc         *reconnectOp
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithLogger sets a logger for the connection. The default discards all
// messages.
func WithLogger(logger Logger) ConnectionOption {
	return func(c *Connection) {
		c.logger = logger
	}
}

// NewConnection creates a Connection over the given transport. The
// connection starts DISCONNECTED; call Connect to bring it up.
func NewConnection(transport Transport, opts ...ConnectionOption) *Connection {
	c := &Connection{
		transport: transport,
		logger:    NoOpLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect brings the connection up. It is not idempotent: calling it on a
// connection that is not DISCONNECTED returns an error.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return fmt.Errorf("connection is %s, not DISCONNECTED", c.state)
	}
	c.state = Connecting
	prevDone := c.readDone
	c.mu.Unlock()

	// The previous session's read loop must be fully gone before the
	// transport is reused.
	if prevDone != nil {
		<-prevDone
	}

	if err := c.transport.Connect(ctx); err != nil {
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		var ce *ConnectError
		if !errors.As(err, &ce) {
			err = &ConnectError{Err: err}
		}
		c.logger.Error(ctx, "connect failed", "error", err)
		return err
	}

	c.mu.Lock()
	if c.state != Connecting {
		// Disconnect raced with the transport coming up.
		c.mu.Unlock()
		c.transport.Disconnect()
		return &DisconnectedError{Reason: "disconnected during connect"}
	}
	c.state = Connected
	c.nextID = 1
	c.pending = make(map[int64]chan response)
	c.expectDown = false
	c.generation++
	gen := c.generation
	readCtx, cancel := context.WithCancel(context.Background())
	c.readCancel = cancel
	done := make(chan struct{})
	c.readDone = done
	c.mu.Unlock()

	c.logger.Info(ctx, "connected")
	go func() {
		defer close(done)
		c.readLoop(gen, readCtx)
	}()
	return nil
}

// Disconnect tears the connection down. It may be called in any state,
// including while a Connect is in progress, and resolves every in-flight
// request with DisconnectedError.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	if c.state == Disconnected {
		c.mu.Unlock()
		return nil
	}
	c.expectDown = true
	gen := c.generation
	if c.state == Connecting {
		c.state = Disconnected
	}
	c.mu.Unlock()

	c.transport.Disconnect()
	c.fatal(gen, &DisconnectedError{Reason: "disconnect requested"})
	return nil
}

// Reconnect disconnects (if needed) and connects again. Concurrent
// Reconnect calls coalesce: callers that arrive while one is in progress
// wait for it and share its outcome rather than triggering another cycle.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.rc != nil {
		op := c.rc
		c.mu.Unlock()
		select {
		case <-op.done:
			return op.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	op := &reconnectOp{done: make(chan struct{})}
	c.rc = op
	c.mu.Unlock()

	c.logger.Info(ctx, "reconnecting")
	c.Disconnect()
	err := c.Connect(ctx)

	c.mu.Lock()
	op.err = err
	c.rc = nil
	c.mu.Unlock()
	close(op.done)
	return err
}

// call performs one request-response exchange. The request is written and
// registered as pending atomically with respect to state transitions, so
// a connection failure can never strand it unresolved.
//
// There is no per-request cancellation on the wire: ctx expiring unblocks
// the caller but the request stays pending until its response, or a
// disconnect, resolves it.
func (c *Connection) call(ctx context.Context, method string, params string) (gjson.Result, error) {
	if params == "" {
		params = "{}"
	}

	c.mu.Lock()
	if c.state != Connected {
		c.mu.Unlock()
		return gjson.Result{}, &DisconnectedError{Reason: "connection is not connected"}
	}
	id := c.nextID
	c.nextID++
	ch := make(chan response, 1)
	c.pending[id] = ch

	req := fmt.Sprintf("{\"jsonrpc\":\"2.0\",\"id\":%d,\"method\":%q,\"params\":%s}\n", id, method, params)
	err := c.transport.Write([]byte(req))
	if err != nil {
		delete(c.pending, id)
		c.mu.Unlock()
		return gjson.Result{}, err
	}
	c.mu.Unlock()

	c.logger.Debug(ctx, "request sent", "id", id, "method", method)

	select {
	case res := <-ch:
		return res.result, res.err
	case <-ctx.Done():
		return gjson.Result{}, ctx.Err()
	}
}

// readLoop drains the transport, reassembles newline-delimited responses
// and dispatches them. Any framing or protocol violation is fatal for the
// whole connection.
func (c *Connection) readLoop(gen uint64, ctx context.Context) {
	var buf []byte
	for {
		chunk, err := c.transport.Read(ctx)
		if err != nil {
			c.fatal(gen, err)
			return
		}
		buf = append(buf, chunk...)
		for {
			idx := bytes.IndexByte(buf, '\n')
			if idx < 0 {
				break
			}
			line := strings.TrimSpace(string(buf[:idx]))
			buf = buf[idx+1:]
			if line == "" {
				continue
			}
			if err := c.dispatch(line); err != nil {
				c.fatal(gen, err)
				return
			}
		}
	}
}

// dispatch routes one response line to its pending request. A returned
// error means the line could not be attributed to any request and the
// connection must come down.
func (c *Connection) dispatch(line string) error {
	if !gjson.Valid(line) {
		return &MalformedJSONError{Line: line}
	}
	parsed := gjson.Parse(line)
	if !parsed.IsObject() {
		return &MalformedJSONError{Line: line}
	}
	idField := parsed.Get("id")
	if idField.Type != gjson.Number {
		return &MalformedJSONError{Line: line}
	}
	id := idField.Int()

	c.mu.Lock()
	ch, ok := c.pending[id]
	if !ok {
		c.mu.Unlock()
		return &UnexpectedResponseIDError{ID: id}
	}
	delete(c.pending, id)
	c.mu.Unlock()

	c.logger.Debug(context.Background(), "response received", "id", id)

	if errField := parsed.Get("error"); errField.Exists() {
		ch <- response{err: decodeRPCError(errField)}
	} else {
		ch <- response{result: parsed.Get("result")}
	}
	return nil
}

// fatal takes the connection down after an unrecoverable failure,
// resolving every pending request with DisconnectedError. It is a no-op
// if the connection has already moved on (newer generation, or already
// disconnected).
func (c *Connection) fatal(gen uint64, cause error) {
	c.mu.Lock()
	if c.generation != gen || c.state != Connected {
		c.mu.Unlock()
		return
	}
	pending := c.pending
	c.pending = nil
	c.state = Disconnected
	expected := c.expectDown
	cancel := c.readCancel
	c.readCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.transport.Disconnect()

	var dce *DisconnectedError
	if !errors.As(cause, &dce) {
		dce = &DisconnectedError{Reason: cause.Error()}
	}
	for _, ch := range pending {
		ch <- response{err: dce}
	}

	ctx := context.Background()
	if expected {
		c.logger.Debug(ctx, "connection closed", "reason", dce.Reason)
	} else {
		c.logger.Error(ctx, "connection lost", "reason", dce.Reason, "aborted_requests", len(pending))
	}
}
