// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"errors"
	"testing"
)

func mustKeys(t *testing.T, p Path, values ...any) Path {
	t.Helper()
	out, err := p.Keys(values...)
	if err != nil {
		t.Fatalf("Keys(%v) error: %v", values, err)
	}
	return out
}

func mustNamedKeys(t *testing.T, p Path, entries ...KeyValue) Path {
	t.Helper()
	out, err := p.NamedKeys(entries...)
	if err != nil {
		t.Fatalf("NamedKeys(%v) error: %v", entries, err)
	}
	return out
}

func TestPathString(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) Path
		want string
	}{
		{
			name: "root only",
			path: func(t *testing.T) Path { return RootCfg() },
			want: "RootCfg",
		},
		{
			name: "children without keys",
			path: func(t *testing.T) Path { return RootOper().Child("Interfaces").Child("Interface") },
			want: "RootOper.Interfaces.Interface",
		},
		{
			name: "positional keys",
			path: func(t *testing.T) Path {
				return mustKeys(t, RootCfg().Child("InterfaceConfiguration"), "act", "Loopback0")
			},
			want: `RootCfg.InterfaceConfiguration(["act", "Loopback0"])`,
		},
		{
			name: "named keys",
			path: func(t *testing.T) Path {
				return mustNamedKeys(t, RootCfg().Child("Abc").Child("Def"),
					KeyValue{Name: "address", Value: "10.0.0.1"},
					KeyValue{Name: "name", Value: "xyz*"},
				)
			},
			want: `RootCfg.Abc.Def({"address": "10.0.0.1", "name": "xyz*"})`,
		},
		{
			name: "mixed value types",
			path: func(t *testing.T) Path {
				return mustKeys(t, RootOper().Child("Foo"), 42, true, nil, 1.5)
			},
			want: `RootOper.Foo([42, true, null, 1.5])`,
		},
		{
			// Whole floats keep a decimal point so a re-parse yields a
			// float again.
			name: "whole float key",
			path: func(t *testing.T) Path {
				return mustKeys(t, RootOper().Child("Foo"), 2.0)
			},
			want: `RootOper.Foo([2.0])`,
		},
		{
			name: "per-key wildcard",
			path: func(t *testing.T) Path {
				return mustKeys(t, RootCfg().Child("InterfaceConfiguration"), "act", Wildcard)
			},
			want: `RootCfg.InterfaceConfiguration(["act", *])`,
		},
		{
			name: "wildcard all",
			path: func(t *testing.T) Path {
				return mustKeys(t, RootOper().Child("Interfaces").Child("Interface"), WildcardAll)
			},
			want: `RootOper.Interfaces.Interface(*)`,
		},
		{
			name: "string with escapes",
			path: func(t *testing.T) Path {
				return mustKeys(t, RootCfg().Child("Foo"), "a\tb\x01")
			},
			want: `RootCfg.Foo(["a\tb\x01"])`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.path(t).String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPathImmutable(t *testing.T) {
	base := RootCfg().Child("Abc")
	a := base.Child("Left")
	b := base.Child("Right")

	if got := base.String(); got != "RootCfg.Abc" {
		t.Errorf("base changed to %q", got)
	}
	if a.String() != "RootCfg.Abc.Left" || b.String() != "RootCfg.Abc.Right" {
		t.Errorf("children = %q, %q", a, b)
	}

	keyed := mustKeys(t, base, 1)
	if base.Elements()[1].HasKeys() {
		t.Error("Keys() mutated the receiver")
	}
	if !keyed.Elements()[1].HasKeys() {
		t.Error("Keys() result has no keys")
	}
}

func TestPathEqual(t *testing.T) {
	a := mustKeys(t, RootCfg().Child("Abc"), "x", 1)
	b := mustKeys(t, RootCfg().Child("Abc"), "x", 1)
	if !a.Equal(b) {
		t.Error("identical paths compare unequal")
	}

	c := mustKeys(t, RootCfg().Child("Abc"), "x", 2)
	if a.Equal(c) {
		t.Error("paths with different key values compare equal")
	}

	// Named and positional keys are distinct even for the same values.
	named := mustNamedKeys(t, RootCfg().Child("Abc"), KeyValue{Name: "K", Value: "x"})
	positional := mustKeys(t, RootCfg().Child("Abc"), "x")
	if named.Equal(positional) {
		t.Error("named and positional keys compare equal")
	}

	if RootCfg().Equal(RootOper()) {
		t.Error("different roots compare equal")
	}
}

func TestPathKeysValidation(t *testing.T) {
	base := RootCfg().Child("Abc")

	if _, err := base.Keys(struct{}{}); err == nil {
		t.Error("Keys() accepted an unsupported value type")
	}
	if _, err := base.Keys("café"); err == nil {
		t.Error("Keys() accepted a non-ASCII string")
	}
	if _, err := base.Keys(WildcardAll, 1); err == nil {
		t.Error("Keys() accepted WildcardAll combined with other values")
	}
	if _, err := (Path{}).Keys(1); err == nil {
		t.Error("Keys() accepted an empty path")
	}

	keyed := mustKeys(t, base, 1)
	if _, err := keyed.Keys(2); err == nil {
		t.Error("Keys() accepted an element that already has keys")
	}

	if _, err := base.NamedKeys(KeyValue{Name: "", Value: 1}); err == nil {
		t.Error("NamedKeys() accepted an empty name")
	}
	if _, err := base.NamedKeys(
		KeyValue{Name: "A", Value: 1},
		KeyValue{Name: "A", Value: 2},
	); err == nil {
		t.Error("NamedKeys() accepted a duplicate name")
	}
}

func TestPathKeyValueNormalization(t *testing.T) {
	p := mustKeys(t, RootCfg().Child("Abc"), int(3), int32(4), uint32(5), float32(1.5))
	keys := p.Elements()[1].Keys()

	for i, want := range []any{int64(3), int64(4), int64(5), float64(1.5)} {
		if keys[i].Value != want {
			t.Errorf("key %d = %v (%T), want %v (%T)", i, keys[i].Value, keys[i].Value, want, want)
		}
	}
}

func TestPathKeyByName(t *testing.T) {
	foo := mustNamedKeys(t, RootCfg().Child("Foo"), KeyValue{Name: "A", Value: int64(1)})
	p := mustNamedKeys(t, foo.Child("Bar"),
		KeyValue{Name: "B", Value: "x"},
		KeyValue{Name: "A", Value: int64(2)},
	)

	// First match in traversal order wins for duplicated names.
	got, err := p.KeyByName("A")
	if err != nil {
		t.Fatalf("KeyByName(A) error: %v", err)
	}
	if got != int64(1) {
		t.Errorf("KeyByName(A) = %v, want 1", got)
	}

	if _, err := p.KeyByName("Z"); err != nil {
		var kerr *KeyNotFoundError
		if !errors.As(err, &kerr) {
			t.Errorf("KeyByName(Z) error = %v, want KeyNotFoundError", err)
		}
	} else {
		t.Error("KeyByName(Z) succeeded, want error")
	}

	// A path with only positional keys reports the absence of names, not
	// the absence of the requested name.
	positional := mustKeys(t, RootCfg().Child("Foo"), 1)
	if _, err := positional.KeyByName("A"); err != nil {
		var nerr *NoKeyNamesError
		if !errors.As(err, &nerr) {
			t.Errorf("KeyByName on positional path error = %v, want NoKeyNamesError", err)
		}
	} else {
		t.Error("KeyByName on positional path succeeded, want error")
	}
}

func TestPathKeyByIndex(t *testing.T) {
	foo := mustKeys(t, RootCfg().Child("Foo"), "a", "b")
	p := mustKeys(t, foo.Child("Bar"), "c")

	for i, want := range []string{"a", "b", "c"} {
		got, err := p.KeyByIndex(i)
		if err != nil {
			t.Fatalf("KeyByIndex(%d) error: %v", i, err)
		}
		if got != want {
			t.Errorf("KeyByIndex(%d) = %v, want %q", i, got, want)
		}
	}

	_, err := p.KeyByIndex(3)
	var kerr *KeyIndexError
	if !errors.As(err, &kerr) {
		t.Fatalf("KeyByIndex(3) error = %v, want KeyIndexError", err)
	}
	if kerr.Count != 3 {
		t.Errorf("KeyIndexError.Count = %d, want 3", kerr.Count)
	}
}
