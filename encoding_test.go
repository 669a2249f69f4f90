// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestSanitizeString(t *testing.T) {
	if _, err := sanitizeString("plain ascii !@#"); err != nil {
		t.Errorf("sanitizeString rejected ASCII: %v", err)
	}
	if _, err := sanitizeString("café"); err == nil {
		t.Error("sanitizeString accepted non-ASCII input")
	}
	if _, err := sanitizeString("\x7f\x01"); err != nil {
		t.Errorf("sanitizeString rejected 7-bit control chars: %v", err)
	}
}

func TestEncodeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc", `"abc"`},
		{"tab\there", `"tab\there"`},
		{`back\slash`, `"back\\slash"`},
		{`quo"te`, `"quo\"te"`},
		{"\x01\x1f\x7f", `"\x01\x1f\x7f"`},
		{"bell\a", `"bell\a"`},
	}
	for _, tc := range tests {
		if got := encodeString(tc.in); got != tc.want {
			t.Errorf("encodeString(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestEncodeScalar(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{true, "true"},
		{false, "false"},
		{int64(42), "42"},
		{int64(-7), "-7"},
		{1.5, "1.5"},
		{2.0, "2.0"},
		{1000.0, "1000.0"},
		{"x", `"x"`},
	}
	for _, tc := range tests {
		if got := encodeScalar(tc.in); got != tc.want {
			t.Errorf("encodeScalar(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}

	if got := encodeKeyValue(Wildcard); got != "*" {
		t.Errorf("encodeKeyValue(Wildcard) = %s, want *", got)
	}
}

func TestMarshalASCII(t *testing.T) {
	data, err := marshalASCII(map[string]string{"k": "café"})
	if err != nil {
		t.Fatalf("marshalASCII error: %v", err)
	}
	for _, b := range data {
		if b > 0x7F {
			t.Fatalf("marshalASCII produced non-ASCII output: %q", data)
		}
	}
	if got := string(data); got != `{"k":"caf\u00e9"}` {
		t.Errorf("marshalASCII = %s", got)
	}

	// Runes outside the BMP become surrogate pairs.
	data, err = marshalASCII("\U0001f600")
	if err != nil {
		t.Fatalf("marshalASCII error: %v", err)
	}
	if got := string(data); got != `"\ud83d\ude00"` {
		t.Errorf("marshalASCII = %s", got)
	}
}

func TestDecodeJSONValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"null", nil},
		{"true", true},
		{`"x"`, "x"},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"1.5", 1.5},
		{"1e3", 1000.0},
	}
	for _, tc := range tests {
		if got := decodeJSONValue(gjson.Parse(tc.raw)); got != tc.want {
			t.Errorf("decodeJSONValue(%s) = %v (%T), want %v (%T)", tc.raw, got, got, tc.want, tc.want)
		}
	}

	arr := decodeJSONValue(gjson.Parse(`[1, "a"]`)).([]any)
	if len(arr) != 2 || arr[0] != int64(1) || arr[1] != "a" {
		t.Errorf("array = %v", arr)
	}

	obj := decodeJSONValue(gjson.Parse(`{"n": 2}`)).(map[string]any)
	if obj["n"] != int64(2) {
		t.Errorf("object = %v", obj)
	}
}
