// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

// recvPump decouples a transport's underlying reader from its Read method.
// A single goroutine (run) drains the reader into an unbounded queue so
// that no bytes are lost while the caller is not reading. Received bytes
// are always delivered before a disconnect error.
type recvPump struct {
	mu     sync.Mutex
	chunks [][]byte
	closed bool
	err    error
	notify chan struct{}

	reading atomic.Bool
}

func newRecvPump() *recvPump {
	return &recvPump{notify: make(chan struct{})}
}

// run reads from r until it fails, queueing every chunk. The final read
// error (io.EOF included) closes the pump.
func (p *recvPump) run(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.push(chunk)
		}
		if err != nil {
			if err == io.EOF {
				err = &DisconnectedError{Reason: "remote closed the connection"}
			}
			p.closeWith(err)
			return
		}
	}
}

func (p *recvPump) push(chunk []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.chunks = append(p.chunks, chunk)
	p.wake()
}

// closeWith marks the pump closed. Queued chunks remain readable; err is
// returned once they are drained. The first close wins.
func (p *recvPump) closeWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.err = err
	p.wake()
}

// wake signals waiting readers. Callers must hold mu.
func (p *recvPump) wake() {
	close(p.notify)
	p.notify = make(chan struct{})
}

// read returns the next queued chunk, blocking until data arrives, the
// pump closes, or ctx is done. Only one read may be outstanding.
func (p *recvPump) read(ctx context.Context) ([]byte, error) {
	if !p.reading.CompareAndSwap(false, true) {
		panic("m2m: concurrent Read on transport")
	}
	defer p.reading.Store(false)

	for {
		p.mu.Lock()
		if len(p.chunks) > 0 {
			chunk := p.chunks[0]
			p.chunks = p.chunks[1:]
			p.mu.Unlock()
			return chunk, nil
		}
		if p.closed {
			err := p.err
			p.mu.Unlock()
			return nil, err
		}
		notify := p.notify
		p.mu.Unlock()

		select {
		case <-notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
