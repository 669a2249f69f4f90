// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Body is a request params builder. Attribute assignments chain, so
// params can be composed in one expression:
//
//	params := Body{}.Set("path", "RootCfg.InterfaceConfiguration").Set("format", "pairs")
//
// Methods never fail mid-chain; the first error is remembered and
// returned by Err.
type Body struct {
	// Str is the JSON string of the body.
	Str string

	err error
}

// Set sets a JSON value at the given sjson path and returns the modified
// Body.
func (b Body) Set(path string, value any) Body {
	if b.err != nil {
		return b
	}
	res, err := sjson.Set(b.Str, path, value)
	if err != nil {
		b.err = err
		return b
	}
	b.Str = res
	return b
}

// SetRaw sets a raw JSON fragment at the given sjson path and returns the
// modified Body.
func (b Body) SetRaw(path, value string) Body {
	if b.err != nil {
		return b
	}
	res, err := sjson.SetRaw(b.Str, path, value)
	if err != nil {
		b.err = err
		return b
	}
	b.Str = res
	return b
}

// Delete deletes the JSON value at the given sjson path and returns the
// modified Body.
func (b Body) Delete(path string) Body {
	if b.err != nil {
		return b
	}
	res, err := sjson.Delete(b.Str, path)
	if err != nil {
		b.err = err
		return b
	}
	b.Str = res
	return b
}

// Res returns the body as a gjson.Result for querying.
func (b Body) Res() gjson.Result {
	return gjson.Parse(b.Str)
}

// Err returns the first error encountered while building the body.
func (b Body) Err() error {
	return b.err
}
