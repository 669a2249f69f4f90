// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package m2m is a client library for the IOS-XR management data
// interface. It speaks JSON-RPC 2.0 over a newline-delimited byte stream
// to a request server running on the router, reached either over SSH or
// by spawning the server directly when running on-box.
//
// Management data is addressed with Path values, built programmatically:
//
//	intf, _ := m2m.RootCfg().Child("InterfaceConfiguration").
//	    Keys("act", "GigabitEthernet0/0/0/0")
//
// or parsed from their string form:
//
//	intf, err := m2m.ParsePath(`RootCfg.InterfaceConfiguration(["act", "GigabitEthernet0/0/0/0"])`)
//
// A Connection multiplexes concurrent requests over one transport:
//
//	transport := m2m.NewSSHTransport("router1", "admin", m2m.SSHPassword("secret"))
//	conn := m2m.NewConnection(transport)
//	if err := conn.Connect(ctx); err != nil {
//	    // handle error
//	}
//	defer conn.Disconnect()
//
//	pairs, err := conn.Get(ctx, intf)
//
// Config changes are buffered on the server and applied atomically by
// Commit:
//
//	_ = conn.Set(ctx, descr, "uplink")
//	commitID, err := conn.Commit(ctx)
//
// The library never retries on its own. When the transport fails, every
// in-flight request returns DisconnectedError and the caller decides
// whether to call Reconnect.
package m2m
