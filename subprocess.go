// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
)

// SubprocessTransport runs a request server as a child process and talks
// to it over its stdin and stdout. It is intended for use on the router
// itself, where the server binary is directly executable.
type SubprocessTransport struct {
	command []string
	logger  Logger

	mu    sync.Mutex
	state TransportState
	cmd   *exec.Cmd
	stdin io.WriteCloser
	pump  *recvPump
}

// SubprocessOption configures a SubprocessTransport.
type SubprocessOption func(*SubprocessTransport)

// SubprocessLogger sets a logger for the transport. The default discards
// all messages.
func SubprocessLogger(logger Logger) SubprocessOption {
	return func(t *SubprocessTransport) {
		t.logger = logger
	}
}

// NewSubprocessTransport creates a transport that will run command (the
// server binary and its arguments) when connected.
func NewSubprocessTransport(command []string, opts ...SubprocessOption) *SubprocessTransport {
	t := &SubprocessTransport{
		command: command,
		logger:  NoOpLogger{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect starts the child process. It is not idempotent.
func (t *SubprocessTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TransportDisconnected {
		return fmt.Errorf("transport is %s, not DISCONNECTED", t.state)
	}
	if len(t.command) == 0 {
		return fmt.Errorf("no command configured")
	}
	t.state = TransportConnecting

	cmd := exec.Command(t.command[0], t.command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.state = TransportDisconnected
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.state = TransportDisconnected
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.state = TransportDisconnected
		return err
	}
	if err := cmd.Start(); err != nil {
		t.state = TransportDisconnected
		return err
	}
	t.logger.Debug(ctx, "started server process", "command", t.command[0], "pid", cmd.Process.Pid)

	t.cmd = cmd
	t.stdin = stdin
	t.pump = newRecvPump()
	t.state = TransportConnected

	go t.pump.run(stdout)
	go t.logStderr(stderr)
	return nil
}

// logStderr forwards the child's stderr to the logger line by line.
func (t *SubprocessTransport) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		t.logger.Debug(context.Background(), "server stderr", "line", scanner.Text())
	}
}

// Write sends bytes to the child's stdin. A failed write is logged and
// tears the process down; the failure surfaces through Read.
func (t *SubprocessTransport) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TransportConnected {
		return &DisconnectedError{Reason: "transport is not connected"}
	}
	if _, err := t.stdin.Write(data); err != nil {
		t.logger.Error(context.Background(), "write to server process failed", "error", err)
		if cmd := t.terminateLocked("write failed"); cmd != nil {
			// Reap asynchronously; Write must not block on process exit.
			go func() { _ = cmd.Wait() }()
		}
	}
	return nil
}

// Read returns the next chunk of the child's stdout.
func (t *SubprocessTransport) Read(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	pump := t.pump
	t.mu.Unlock()
	if pump == nil {
		return nil, &DisconnectedError{Reason: "transport is not connected"}
	}
	return pump.read(ctx)
}

// Disconnect terminates the child process with SIGTERM and blocks until
// it has exited. It fails if the transport is already disconnected.
func (t *SubprocessTransport) Disconnect() error {
	t.mu.Lock()
	if t.state == TransportDisconnected {
		t.mu.Unlock()
		return fmt.Errorf("transport is already DISCONNECTED")
	}
	cmd := t.terminateLocked("disconnect requested")
	t.mu.Unlock()
	if cmd != nil {
		// Wait outside the mutex; the exit status is uninteresting here.
		_ = cmd.Wait()
	}
	return nil
}

// terminateLocked signals the child with SIGTERM and returns the command
// for the caller to reap, or nil when no process is running. Callers must
// hold mu.
func (t *SubprocessTransport) terminateLocked(reason string) *exec.Cmd {
	cmd := t.cmd
	if cmd != nil && cmd.Process != nil {
		t.stdin.Close()
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			t.logger.Debug(context.Background(), "signalling server process failed", "error", err)
		}
	} else {
		cmd = nil
	}
	if t.pump != nil {
		t.pump.closeWith(&DisconnectedError{Reason: reason})
	}
	t.cmd = nil
	t.stdin = nil
	t.state = TransportDisconnected
	return cmd
}

// State returns the current transport state.
func (t *SubprocessTransport) State() TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
