// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import "context"

// TransportState represents the state of a transport.
type TransportState int

const (
	// TransportDisconnected means the transport is not connected and can
	// accept a Connect call.
	TransportDisconnected TransportState = iota

	// TransportConnecting means a Connect call is in progress.
	TransportConnecting

	// TransportConnected means the transport is ready for Read and Write.
	TransportConnected
)

func (s TransportState) String() string {
	switch s {
	case TransportDisconnected:
		return "DISCONNECTED"
	case TransportConnecting:
		return "CONNECTING"
	case TransportConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Transport is a bidirectional byte stream to a request server. It carries
// raw bytes with no message framing: callers are responsible for
// interpreting the stream.
//
// Implementations must support Write and Disconnect from any goroutine,
// concurrently with a blocked Read. At most one Read may be outstanding at
// a time; a second concurrent Read is a programming error and panics.
type Transport interface {
	// Connect brings the transport up. It is not idempotent: calling it
	// on a transport that is not disconnected returns an error.
	Connect(ctx context.Context) error

	// Disconnect tears the transport down. It may be called while a
	// Connect or Read is in progress and unblocks both, but fails if the
	// transport is already disconnected.
	Disconnect() error

	// Write sends bytes to the server. Transient delivery failures are
	// not reported; a failed write tears the transport down and the loss
	// surfaces through Read instead.
	Write(data []byte) error

	// Read returns the next chunk of received bytes, blocking until data
	// arrives, the transport disconnects, or ctx is done. A disconnect is
	// reported as an error; bytes received before it are still delivered
	// first.
	Read(ctx context.Context) ([]byte, error)

	// State returns the current transport state.
	State() TransportState
}
