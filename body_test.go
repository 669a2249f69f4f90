// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import "testing"

func TestBodySet(t *testing.T) {
	body := Body{}.Set("command", "show version").Set("format", "pairs")
	if err := body.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	want := `{"command":"show version","format":"pairs"}`
	if body.Str != want {
		t.Errorf("Str = %s, want %s", body.Str, want)
	}
}

func TestBodySetRaw(t *testing.T) {
	body := Body{}.SetRaw("path", `["RootCfg.Abc"]`)
	if err := body.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if got := body.Res().Get("path.0").String(); got != "RootCfg.Abc" {
		t.Errorf("path.0 = %q", got)
	}
}

func TestBodyDelete(t *testing.T) {
	body := Body{}.Set("a", 1).Set("b", 2).Delete("a")
	if err := body.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if body.Res().Get("a").Exists() {
		t.Error("deleted key still present")
	}
	if body.Res().Get("b").Int() != 2 {
		t.Errorf("b = %s", body.Res().Get("b").Raw)
	}
}

func TestBodyErrSticky(t *testing.T) {
	body := Body{}.SetRaw("", "{").Set("a", 1)
	if body.Err() == nil {
		t.Error("Err() = nil after invalid operation")
	}
}
