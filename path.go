// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"fmt"
	"strings"
)

// Path encodes a reference to a management data item.
//
// Paths encode two types of information: a point in the schema hierarchy,
// and key values identifying specific data described by that point in the
// schema.
//
// The root paths RootCfg(), RootOper() and RootAction() provide access to
// the roots of the configuration, operational and action data hierarchies.
// Child returns a new path with an additional hierarchy level; Keys and
// NamedKeys return a new path with key values attached to the last element.
// Paths are immutable: every operation returns a new Path and never mutates
// the receiver.
//
// Example:
//
//	intf := m2m.RootCfg().Child("InterfaceConfiguration")
//	intf, err := intf.Keys("act", "HundredGigE0/0/0/0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	desc := intf.Child("Description")
//
// Two paths are equal if they encode the same schema hierarchy and key
// information. The comparison is purely syntactic: a path using named keys
// and a path using positional keys are never equal, even if they identify
// the same data (deciding that would require a schema lookup).
type Path struct {
	elements []PathElement
}

// KeyValue is a single key entry of a path element. Name is empty for
// positional (unnamed) keys.
type KeyValue struct {
	Name  string
	Value any
}

// PathElement represents a single element of a path: a schema class name
// plus optional key information identifying a specific instance.
type PathElement struct {
	name        string
	keys        []KeyValue
	named       bool
	wildcardAll bool
}

// RootCfg returns the root path of the configuration hierarchy.
func RootCfg() Path { return Path{elements: []PathElement{{name: "RootCfg"}}} }

// RootOper returns the root path of the operational data hierarchy.
func RootOper() Path { return Path{elements: []PathElement{{name: "RootOper"}}} }

// RootAction returns the root path of the action hierarchy.
func RootAction() Path { return Path{elements: []PathElement{{name: "RootAction"}}} }

// Name returns the name of the schema class that this element represents an
// instance of.
func (e PathElement) Name() string { return e.name }

// HasKeys reports whether the element carries any key information,
// including the wildcard-all marker.
func (e PathElement) HasKeys() bool { return e.wildcardAll || len(e.keys) > 0 }

// IsWildcardAll reports whether the element's key information is the
// wildcard-all marker.
func (e PathElement) IsWildcardAll() bool { return e.wildcardAll }

// Named reports whether the element's key values carry names. It returns
// false for elements without key information.
func (e PathElement) Named() bool { return e.named }

// Keys returns a copy of the element's key entries in order. It is nil for
// elements without key information and for wildcard-all elements.
func (e PathElement) Keys() []KeyValue {
	if len(e.keys) == 0 {
		return nil
	}
	out := make([]KeyValue, len(e.keys))
	copy(out, e.keys)
	return out
}

// Equal reports whether two elements have the same name and key information.
func (e PathElement) Equal(other PathElement) bool {
	if e.name != other.name ||
		e.named != other.named ||
		e.wildcardAll != other.wildcardAll ||
		len(e.keys) != len(other.keys) {
		return false
	}
	for i := range e.keys {
		if e.keys[i].Name != other.keys[i].Name ||
			e.keys[i].Value != other.keys[i].Value {
			return false
		}
	}
	return true
}

// String returns the canonical path-string form of the element.
func (e PathElement) String() string {
	if !e.HasKeys() {
		return e.name
	}
	var body string
	switch {
	case e.wildcardAll:
		body = "*"
	case e.named:
		parts := make([]string, len(e.keys))
		for i, kv := range e.keys {
			parts[i] = fmt.Sprintf("%s: %s", encodeString(kv.Name), encodeKeyValue(kv.Value))
		}
		body = "{" + strings.Join(parts, ", ") + "}"
	default:
		parts := make([]string, len(e.keys))
		for i, kv := range e.keys {
			parts[i] = encodeKeyValue(kv.Value)
		}
		body = "[" + strings.Join(parts, ", ") + "]"
	}
	return e.name + "(" + body + ")"
}

// Elements returns the path's elements in order, as a copy.
func (p Path) Elements() []PathElement {
	out := make([]PathElement, len(p.elements))
	copy(out, p.elements)
	return out
}

// Len returns the number of elements in the path.
func (p Path) Len() int { return len(p.elements) }

// Child returns a new path with an extra hierarchy element appended.
func (p Path) Child(name string) Path {
	elems := make([]PathElement, len(p.elements)+1)
	copy(elems, p.elements)
	elems[len(p.elements)] = PathElement{name: name}
	return Path{elements: elems}
}

// Keys returns a new path with positional key values attached to the last
// element. Values must be 7-bit-clean strings, integers, floats, bools, nil
// or the Wildcard marker. WildcardAll is accepted only as the sole value.
//
// It fails if the last element already has key information, if WildcardAll
// is combined with other values, or if a value is of an unsupported type.
func (p Path) Keys(values ...any) (Path, error) {
	entries := make([]KeyValue, len(values))
	for i, v := range values {
		entries[i] = KeyValue{Value: v}
	}
	return p.withKeyInfo(entries, false)
}

// NamedKeys returns a new path with named key values attached to the last
// element. Entry order is preserved, matching the order keys appear in the
// path string form.
//
// It fails under the same conditions as Keys, and additionally if an entry
// name is empty or duplicated.
func (p Path) NamedKeys(entries ...KeyValue) (Path, error) {
	for _, kv := range entries {
		if kv.Name == "" {
			return Path{}, fmt.Errorf("named key with empty name")
		}
	}
	return p.withKeyInfo(entries, true)
}

func (p Path) withKeyInfo(entries []KeyValue, named bool) (Path, error) {
	if len(p.elements) == 0 {
		return Path{}, fmt.Errorf("cannot add keys to an empty path")
	}
	last := p.elements[len(p.elements)-1]
	if last.HasKeys() {
		return Path{}, fmt.Errorf("path element %q already has key information", last.name)
	}

	elem := PathElement{name: last.name, named: named}

	// A lone WildcardAll marker turns the element into a wildcard-all key.
	if len(entries) == 1 && !named {
		if _, ok := entries[0].Value.(wildcardAllValue); ok {
			elem.wildcardAll = true
			return p.replaceLast(elem), nil
		}
	}

	seen := make(map[string]bool, len(entries))
	keys := make([]KeyValue, 0, len(entries))
	for _, kv := range entries {
		if _, ok := kv.Value.(wildcardAllValue); ok {
			return Path{}, fmt.Errorf("WildcardAll passed with other key information")
		}
		name := kv.Name
		if named {
			s, err := sanitizeString(name)
			if err != nil {
				return Path{}, fmt.Errorf("key name %q: %w", name, err)
			}
			name = s
			if seen[name] {
				return Path{}, fmt.Errorf("duplicate key name %q", name)
			}
			seen[name] = true
		}
		val, err := normalizeKeyValue(kv.Value)
		if err != nil {
			return Path{}, err
		}
		keys = append(keys, KeyValue{Name: name, Value: val})
	}
	elem.keys = keys
	return p.replaceLast(elem), nil
}

func (p Path) replaceLast(elem PathElement) Path {
	elems := make([]PathElement, len(p.elements))
	copy(elems, p.elements)
	elems[len(elems)-1] = elem
	return Path{elements: elems}
}

// normalizeKeyValue validates a key value and normalizes numeric types.
func normalizeKeyValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, float64, int64, wildcardValue:
		return val, nil
	case string:
		return sanitizeString(val)
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case float32:
		return float64(val), nil
	default:
		return nil, fmt.Errorf("unsupported key value type %T", v)
	}
}

// Equal reports whether two paths have the same elements and key
// information.
func (p Path) Equal(other Path) bool {
	if len(p.elements) != len(other.elements) {
		return false
	}
	for i := range p.elements {
		if !p.elements[i].Equal(other.elements[i]) {
			return false
		}
	}
	return true
}

// String returns the canonical string representation of the path. The
// format is the same that's accepted by ParsePath, so that
// ParsePath(p.String()) reproduces p for any parseable path.
//
// Example:
//
//	RootCfg.Abc.Def({"address": "10.0.0.1", "name": "xyz*"})
//
// Paths constructed with positional keys serialize the key values as a
// list:
//
//	RootCfg.InterfaceConfiguration(["act", "Loopback0"])
func (p Path) String() string {
	parts := make([]string, len(p.elements))
	for i, el := range p.elements {
		parts[i] = el.String()
	}
	return strings.Join(parts, ".")
}

// KeyByName returns the value of the key with the given name, searching the
// path's elements in order. If multiple keys share the name, the first in
// traversal order is returned.
//
// If the path has no named keys at all (e.g. it was constructed with
// positional keys), a NoKeyNamesError is returned. If the path has named
// keys but none with the given name, a KeyNotFoundError is returned. The
// two conditions are distinct.
//
// Paths returned by the API (including NormalizePath) always have key names
// available.
func (p Path) KeyByName(name string) (any, error) {
	hasNames := false
	for _, el := range p.elements {
		if !el.named {
			continue
		}
		hasNames = true
		for _, kv := range el.keys {
			if kv.Name == name {
				return kv.Value, nil
			}
		}
	}
	if !hasNames {
		return nil, &NoKeyNamesError{Path: p}
	}
	return nil, &KeyNotFoundError{Name: name, Path: p}
}

// KeyByIndex returns the value of the key at the given position, counting
// all key values across the path's elements in order. It returns a
// KeyIndexError if the index is out of range; that condition is independent
// of the name-lookup errors returned by KeyByName.
func (p Path) KeyByIndex(idx int) (any, error) {
	n := 0
	for _, el := range p.elements {
		for _, kv := range el.keys {
			if n == idx {
				return kv.Value, nil
			}
			n++
		}
	}
	return nil, &KeyIndexError{Index: idx, Count: n}
}
