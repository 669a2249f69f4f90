// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"context"
	"errors"
	"testing"

	"github.com/tidwall/gjson"
)

func TestGet(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult(`[
		["RootOper.Foo([1]).Name", "ge0"],
		["RootOper.Foo([2]).Name", "ge1"]
	]`)

	path, _ := ParsePath("RootOper.Foo(*)")
	pairs, err := conn.Get(context.Background(), path)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(pairs))
	}
	if got := pairs[0].Path.String(); got != "RootOper.Foo([1]).Name" {
		t.Errorf("first path = %q", got)
	}
	if pairs[1].Value != "ge1" {
		t.Errorf("second value = %v", pairs[1].Value)
	}

	req := gjson.ParseBytes(transport.lastWrite())
	if req.Get("method").String() != "get" {
		t.Errorf("method = %q", req.Get("method"))
	}
	if req.Get("params.format").String() != "pairs" {
		t.Errorf("format = %q", req.Get("params.format"))
	}
}

func TestGetNested(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult(`{"RootOper": {"Foo": [{"Name": "ge0"}]}}`)

	path, _ := ParsePath("RootOper.Foo(*)")
	res, err := conn.GetNested(context.Background(), path)
	if err != nil {
		t.Fatalf("GetNested() error: %v", err)
	}
	if got := res.Get("RootOper.Foo.0.Name").String(); got != "ge0" {
		t.Errorf("nested value = %q", got)
	}

	req := gjson.ParseBytes(transport.lastWrite())
	if req.Get("params.format").String() != "nested" {
		t.Errorf("format = %q", req.Get("params.format"))
	}
}

func TestGetValue(t *testing.T) {
	path, _ := ParsePath("RootOper.Foo([1]).Name")

	t.Run("single match", func(t *testing.T) {
		conn, transport := connectedConn(t)
		defer conn.Disconnect()
		transport.respondWithResult(`[["RootOper.Foo([1]).Name", "ge0"]]`)

		value, err := conn.GetValue(context.Background(), path)
		if err != nil {
			t.Fatalf("GetValue() error: %v", err)
		}
		if value != "ge0" {
			t.Errorf("value = %v", value)
		}
	})

	t.Run("no match", func(t *testing.T) {
		conn, transport := connectedConn(t)
		defer conn.Disconnect()
		transport.respondWithResult(`[]`)

		_, err := conn.GetValue(context.Background(), path)
		var nerr *NotFoundError
		if !errors.As(err, &nerr) {
			t.Fatalf("error = %v, want NotFoundError", err)
		}
	})

	t.Run("multiple matches", func(t *testing.T) {
		conn, transport := connectedConn(t)
		defer conn.Disconnect()
		transport.respondWithResult(`[
			["RootOper.Foo([1]).Name", "ge0"],
			["RootOper.Foo([2]).Name", "ge1"]
		]`)

		_, err := conn.GetValue(context.Background(), path)
		var aerr *AmbiguousPathError
		if !errors.As(err, &aerr) {
			t.Fatalf("error = %v, want AmbiguousPathError", err)
		}
	})
}

func TestGetChildren(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult(`["RootCfg.Abc([1])", "RootCfg.Abc([2])"]`)

	children, err := conn.GetChildren(context.Background(), RootCfg().Child("Abc"))
	if err != nil {
		t.Fatalf("GetChildren() error: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("got %d children, want 2", len(children))
	}
	want := mustKeys(t, RootCfg().Child("Abc"), 2)
	if !children[1].Equal(want) {
		t.Errorf("second child = %s, want %s", children[1], want)
	}
}

func TestSetParams(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult("null")

	path, _ := ParsePath("RootCfg.Abc.Description")
	if err := conn.Set(context.Background(), path, "uplink"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	req := gjson.ParseBytes(transport.lastWrite())
	if req.Get("method").String() != "set" {
		t.Errorf("method = %q", req.Get("method"))
	}
	if got := req.Get("params.path").Raw; got != `["RootCfg.Abc.Description"]` {
		t.Errorf("params.path = %s", got)
	}
	if got := req.Get("params.value").Raw; got != `["uplink"]` {
		t.Errorf("params.value = %s", got)
	}
}

func TestSetManyParams(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult("null")

	a, _ := ParsePath("RootCfg.Abc.Mtu")
	b, _ := ParsePath("RootCfg.Abc.Secret")
	err := conn.SetMany(context.Background(),
		PathValue{Path: a, Value: 9000},
		PathValue{Path: b, Value: Password("hunter2")},
	)
	if err != nil {
		t.Fatalf("SetMany() error: %v", err)
	}

	req := gjson.ParseBytes(transport.lastWrite())
	values := req.Get("params.value").Array()
	if len(values) != 2 {
		t.Fatalf("got %d values, want 2", len(values))
	}
	if values[0].Int() != 9000 {
		t.Errorf("first value = %s", values[0].Raw)
	}
	if values[1].Get("encrypted").Bool() || values[1].Get("password").String() != "hunter2" {
		t.Errorf("password value = %s", values[1].Raw)
	}
}

func TestDeleteAndReplaceParams(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult("null")

	path, _ := ParsePath("RootCfg.Abc")
	if err := conn.Delete(context.Background(), path); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	req := gjson.ParseBytes(transport.lastWrite())
	if req.Get("method").String() != "delete" {
		t.Errorf("method = %q", req.Get("method"))
	}
	if got := req.Get("params.path").Raw; got != `["RootCfg.Abc"]` {
		t.Errorf("params.path = %s", got)
	}

	if err := conn.Replace(context.Background(), path); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	req = gjson.ParseBytes(transport.lastWrite())
	if req.Get("method").String() != "replace" {
		t.Errorf("method = %q", req.Get("method"))
	}
}

func TestCommit(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult(`"1000000042"`)

	commitID, err := conn.Commit(context.Background())
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if commitID != "1000000042" {
		t.Errorf("commit ID = %q", commitID)
	}

	req := gjson.ParseBytes(transport.lastWrite())
	if req.Get("params").Raw != "{}" {
		t.Errorf("params = %s", req.Get("params").Raw)
	}
}

func TestCommitEmptyBuffer(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult("null")

	commitID, err := conn.Commit(context.Background())
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if commitID != "" {
		t.Errorf("commit ID = %q, want empty", commitID)
	}
}

func TestCommitFailure(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithError(`{
		"code": -32000,
		"message": "commit failed",
		"data": [{
			"type": "config_commit_error",
			"operation": "SET",
			"path": "RootCfg.Abc",
			"value": 42,
			"category": "VERIFY",
			"error": "out of range"
		}]
	}`)

	_, err := conn.Commit(context.Background())
	var cerr *ConfigCommitError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want ConfigCommitError", err)
	}
	if len(cerr.Details) != 1 || cerr.Details[0].Error != "out of range" {
		t.Errorf("details = %+v", cerr.Details)
	}
}

func TestGetChanges(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult(`[
		{"path": "RootCfg.Abc.Mtu", "operation": "SET", "value": 9000},
		{"path": "RootCfg.Abc.Description", "operation": "DELETE"}
	]`)

	changes, err := conn.GetChanges(context.Background())
	if err != nil {
		t.Fatalf("GetChanges() error: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	if changes[0].Op != ChangeSet || changes[0].Value != int64(9000) {
		t.Errorf("first change = %+v", changes[0])
	}
	if changes[1].Op != ChangeDelete || changes[1].Value != nil {
		t.Errorf("second change = %+v", changes[1])
	}
}

func TestCliOperations(t *testing.T) {
	t.Run("cli_exec", func(t *testing.T) {
		conn, transport := connectedConn(t)
		defer conn.Disconnect()
		transport.respondWithResult(`"Cisco IOS XR Software"`)

		out, err := conn.CliExec(context.Background(), "show version")
		if err != nil {
			t.Fatalf("CliExec() error: %v", err)
		}
		if out != "Cisco IOS XR Software" {
			t.Errorf("output = %q", out)
		}
		req := gjson.ParseBytes(transport.lastWrite())
		if req.Get("params.command").String() != "show version" {
			t.Errorf("command = %q", req.Get("params.command"))
		}
	})

	t.Run("cli_get", func(t *testing.T) {
		conn, transport := connectedConn(t)
		defer conn.Disconnect()
		transport.respondWithResult(`[["RootOper.Foo([1]).Name", "ge0"]]`)

		pairs, err := conn.CliGet(context.Background(), "show foo")
		if err != nil {
			t.Fatalf("CliGet() error: %v", err)
		}
		if len(pairs) != 1 || pairs[0].Value != "ge0" {
			t.Errorf("pairs = %+v", pairs)
		}
	})

	t.Run("cli_set", func(t *testing.T) {
		conn, transport := connectedConn(t)
		defer conn.Disconnect()
		transport.respondWithResult("null")

		if err := conn.CliSet(context.Background(), "hostname rtr1"); err != nil {
			t.Fatalf("CliSet() error: %v", err)
		}
		req := gjson.ParseBytes(transport.lastWrite())
		if req.Get("method").String() != "cli_set" {
			t.Errorf("method = %q", req.Get("method"))
		}
	})

	t.Run("cli_describe", func(t *testing.T) {
		conn, transport := connectedConn(t)
		defer conn.Disconnect()
		transport.respondWithResult(`[
			{"method": "set", "path": "RootCfg.Hostname", "value": "rtr1"}
		]`)

		reqs, err := conn.CliDescribe(context.Background(), "hostname rtr1", true)
		if err != nil {
			t.Fatalf("CliDescribe() error: %v", err)
		}
		if len(reqs) != 1 {
			t.Fatalf("got %d requests, want 1", len(reqs))
		}
		if reqs[0].Method != MethodSet || reqs[0].Value != "rtr1" {
			t.Errorf("request = %+v", reqs[0])
		}
		sent := gjson.ParseBytes(transport.lastWrite())
		if !sent.Get("params.configuration").Bool() {
			t.Error("configuration flag not set")
		}
	})
}

func TestGetVersion(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult(`{"major": 1, "minor": 2}`)

	version, err := conn.GetVersion(context.Background())
	if err != nil {
		t.Fatalf("GetVersion() error: %v", err)
	}
	if version.Major != 1 || version.Minor != 2 {
		t.Errorf("version = %s", version)
	}
}

func TestGetParent(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult(`"RootCfg.Abc"`)

	child := RootCfg().Child("Abc").Child("Def")
	parent, err := conn.GetParent(context.Background(), child)
	if err != nil {
		t.Fatalf("GetParent() error: %v", err)
	}
	if !parent.Equal(RootCfg().Child("Abc")) {
		t.Errorf("parent = %s", parent)
	}
}

func TestNormalizePath(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult(`"RootCfg.Abc({\"Name\": \"x\"})"`)

	in := mustKeys(t, RootCfg().Child("Abc"), "x")
	normalized, err := conn.NormalizePath(context.Background(), in)
	if err != nil {
		t.Fatalf("NormalizePath() error: %v", err)
	}
	want := mustNamedKeys(t, RootCfg().Child("Abc"), KeyValue{Name: "Name", Value: "x"})
	if !normalized.Equal(want) {
		t.Errorf("normalized = %s, want %s", normalized, want)
	}
}

func TestWriteFile(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithError(`{
		"code": -32000,
		"message": "file exists",
		"data": {"type": "file_exists_error", "filename": "/disk0:/cfg"}
	}`)

	err := conn.WriteFile(context.Background(), "/disk0:/cfg", "hostname rtr1\n")
	var ferr *FileExistsError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want FileExistsError", err)
	}
	if ferr.Filename != "/disk0:/cfg" {
		t.Errorf("Filename = %q", ferr.Filename)
	}
}

func TestGetSchema(t *testing.T) {
	conn, transport := connectedConn(t)
	defer conn.Disconnect()
	transport.respondWithResult(`{
		"name": "InterfaceConfiguration",
		"category": "CONTAINER",
		"description": "Per-interface configuration",
		"table_description": "Interface configurations",
		"key": [
			{"name": "Active", "datatype": "STRING", "status": "MANDATORY", "repeat_count": 1},
			{"name": "InterfaceName", "datatype": "INTERFACE_NAME", "status": "MANDATORY", "repeat_count": 1}
		],
		"value": [],
		"presence": null,
		"version": {"major": 2, "minor": 0},
		"hidden": false,
		"children": ["RootCfg.InterfaceConfiguration.Description"]
	}`)

	schema, err := conn.GetSchema(context.Background(), RootCfg().Child("InterfaceConfiguration"))
	if err != nil {
		t.Fatalf("GetSchema() error: %v", err)
	}
	if schema.Name != "InterfaceConfiguration" || schema.Category != CategoryContainer {
		t.Errorf("schema = %s/%s", schema.Name, schema.Category)
	}
	if len(schema.Key) != 2 || schema.Key[1].Datatype != DatatypeInterfaceName {
		t.Errorf("keys = %+v", schema.Key)
	}
	if schema.Version.Major != 2 {
		t.Errorf("version = %s", schema.Version)
	}
	if len(schema.Children) != 1 ||
		!schema.Children[0].Equal(RootCfg().Child("InterfaceConfiguration").Child("Description")) {
		t.Errorf("children = %v", schema.Children)
	}
}
