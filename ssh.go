// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

const sshServerCommand = "run json_rpc_server"

// SSHTransport runs the request server on a remote router over an SSH
// exec channel. The router shell prints a date banner before the server
// starts; Connect consumes it so that only protocol bytes reach Read.
type SSHTransport struct {
	host            string
	port            int
	username        string
	password        string
	keyFile         string
	hostKeyCallback ssh.HostKeyCallback
	timeout         time.Duration
	logger          Logger

	mu      sync.Mutex
	state   TransportState
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	pump    *recvPump
}

// SSHOption configures an SSHTransport.
type SSHOption func(*SSHTransport)

// SSHPort sets the SSH port. The default is 22.
func SSHPort(port int) SSHOption {
	return func(t *SSHTransport) {
		t.port = port
	}
}

// SSHPassword sets password authentication.
func SSHPassword(password string) SSHOption {
	return func(t *SSHTransport) {
		t.password = password
	}
}

// SSHKeyFile sets public key authentication using an unencrypted private
// key file.
func SSHKeyFile(path string) SSHOption {
	return func(t *SSHTransport) {
		t.keyFile = path
	}
}

// SSHHostKeyCallback sets host key verification. The default accepts any
// host key.
func SSHHostKeyCallback(cb ssh.HostKeyCallback) SSHOption {
	return func(t *SSHTransport) {
		t.hostKeyCallback = cb
	}
}

// SSHTimeout sets the dial timeout. The default is 30 seconds.
func SSHTimeout(timeout time.Duration) SSHOption {
	return func(t *SSHTransport) {
		t.timeout = timeout
	}
}

// SSHLogger sets a logger for the transport. The default discards all
// messages.
func SSHLogger(logger Logger) SSHOption {
	return func(t *SSHTransport) {
		t.logger = logger
	}
}

// NewSSHTransport creates a transport that will connect to the router at
// host as username when connected.
func NewSSHTransport(host, username string, opts ...SSHOption) *SSHTransport {
	t := &SSHTransport{
		host:            host,
		port:            22,
		username:        username,
		hostKeyCallback: ssh.InsecureIgnoreHostKey(),
		timeout:         30 * time.Second,
		logger:          NoOpLogger{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *SSHTransport) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if t.keyFile != "" {
		data, err := os.ReadFile(t.keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if t.password != "" {
		methods = append(methods, ssh.Password(t.password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no authentication method configured")
	}
	return methods, nil
}

// Connect dials the router, starts the server over an exec channel and
// waits for the shell banner. It is not idempotent.
func (t *SSHTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.state != TransportDisconnected {
		t.mu.Unlock()
		return fmt.Errorf("transport is %s, not DISCONNECTED", t.state)
	}
	t.state = TransportConnecting
	t.mu.Unlock()

	client, session, stdin, stdout, err := t.dial(ctx)
	if err != nil {
		t.mu.Lock()
		t.state = TransportDisconnected
		t.mu.Unlock()
		return err
	}

	t.mu.Lock()
	if t.state != TransportConnecting {
		// Disconnected while dialling.
		t.mu.Unlock()
		session.Close()
		client.Close()
		return &DisconnectedError{Reason: "disconnected during connect"}
	}
	t.client = client
	t.session = session
	t.stdin = stdin
	t.pump = newRecvPump()
	t.state = TransportConnected
	pump := t.pump
	t.mu.Unlock()

	go pump.run(&crlfReader{r: stdout})
	return nil
}

func (t *SSHTransport) dial(ctx context.Context) (*ssh.Client, *ssh.Session, io.WriteCloser, io.Reader, error) {
	auth, err := t.authMethods()
	if err != nil {
		return nil, nil, nil, nil, &ConnectError{Err: err}
	}
	config := &ssh.ClientConfig{
		User:            t.username,
		Auth:            auth,
		HostKeyCallback: t.hostKeyCallback,
		Timeout:         t.timeout,
	}

	addr := net.JoinHostPort(t.host, fmt.Sprint(t.port))
	dialer := net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, nil, nil, &ConnectError{Err: err}
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, nil, nil, nil, &ConnectError{Err: err}
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, nil, nil, nil, &ConnectError{Err: err}
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, nil, nil, nil, &ConnectError{Err: err}
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, nil, nil, nil, &ConnectError{Err: err}
	}
	if err := session.Start(sshServerCommand); err != nil {
		session.Close()
		client.Close()
		return nil, nil, nil, nil, &ConnectError{Err: err}
	}
	t.logger.Debug(ctx, "started remote server", "host", t.host, "command", sshServerCommand)

	buffered := bufio.NewReader(stdout)
	if err := t.skipBanner(ctx, buffered); err != nil {
		session.Close()
		client.Close()
		return nil, nil, nil, nil, err
	}
	return client, session, stdin, buffered, nil
}

// skipBanner consumes output up to and including the date line the router
// shell prints before the server starts, skipping any blank lines before
// it.
func (t *SSHTransport) skipBanner(ctx context.Context, r *bufio.Reader) error {
	type lineResult struct {
		line string
		err  error
	}
	for {
		ch := make(chan lineResult, 1)
		go func() {
			line, err := r.ReadString('\n')
			ch <- lineResult{line, err}
		}()
		var res lineResult
		select {
		case res = <-ch:
		case <-ctx.Done():
			return &ConnectError{Err: ctx.Err()}
		}
		if res.err != nil {
			return &ConnectError{Err: fmt.Errorf("server exited during banner: %w", res.err)}
		}
		line := strings.TrimRight(res.line, "\r\n")
		if line == "" {
			continue
		}
		t.logger.Debug(ctx, "consumed shell banner", "line", line)
		return nil
	}
}

// Write sends bytes to the remote server. A failed write is logged and
// tears the session down; the failure surfaces through Read.
func (t *SSHTransport) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TransportConnected {
		return &DisconnectedError{Reason: "transport is not connected"}
	}
	if _, err := t.stdin.Write(data); err != nil {
		t.logger.Error(context.Background(), "write to remote server failed", "error", err)
		t.teardownLocked("write failed")
	}
	return nil
}

// Read returns the next chunk of server output, with CRLF line endings
// already normalized to LF.
func (t *SSHTransport) Read(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	pump := t.pump
	t.mu.Unlock()
	if pump == nil {
		return nil, &DisconnectedError{Reason: "transport is not connected"}
	}
	return pump.read(ctx)
}

// Disconnect closes the session and the SSH connection. It is safe to
// call while a Connect is in progress, but fails if the transport is
// already disconnected.
func (t *SSHTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TransportDisconnected {
		return fmt.Errorf("transport is already DISCONNECTED")
	}
	if t.state == TransportConnecting {
		// Connect notices the state change and cleans up its own
		// half-open session.
		t.state = TransportDisconnected
		return nil
	}
	t.teardownLocked("disconnect requested")
	return nil
}

// teardownLocked closes the SSH session and client. Callers must hold mu.
func (t *SSHTransport) teardownLocked(reason string) {
	if t.session != nil {
		t.session.Close()
	}
	if t.client != nil {
		t.client.Close()
	}
	if t.pump != nil {
		t.pump.closeWith(&DisconnectedError{Reason: reason})
	}
	t.session = nil
	t.client = nil
	t.stdin = nil
	t.state = TransportDisconnected
}

// State returns the current transport state.
func (t *SSHTransport) State() TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// crlfReader rewrites CRLF sequences to LF. Router terminals emit CRLF
// line endings; the protocol expects bare LF framing. A CR at the end of
// one read is held back until the next read decides its fate.
type crlfReader struct {
	r         io.Reader
	pendingCR bool
}

func (c *crlfReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		// Reserve the first byte for a held-back CR.
		off := 0
		if c.pendingCR {
			off = 1
		}
		n, err := c.r.Read(p[off:])
		if n == 0 && err != nil {
			if c.pendingCR {
				c.pendingCR = false
				p[0] = '\r'
				return 1, err
			}
			return 0, err
		}

		buf := p[off : off+n]
		out := 0
		if c.pendingCR {
			c.pendingCR = false
			if buf[0] != '\n' {
				p[out] = '\r'
				out++
			}
		}
		for i := 0; i < len(buf); i++ {
			if buf[i] == '\r' {
				if i == len(buf)-1 {
					c.pendingCR = true
					break
				}
				if buf[i+1] == '\n' {
					continue
				}
			}
			p[out] = buf[i]
			out++
		}
		if out > 0 || err != nil {
			return out, err
		}
	}
}
