// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/tidwall/gjson"
)

// The wire protocol and the path grammar are 7-bit clean: every byte
// written to a transport is ASCII. Strings entering the library are
// validated rather than transliterated, and JSON leaving the library is
// escaped so that no byte above 0x7F ever reaches the wire.

// sanitizeString validates that a string contains only ASCII characters.
// Non-representable input is a hard validation failure, never a silent
// transform.
func sanitizeString(s string) (string, error) {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return "", fmt.Errorf("input string contains non-ASCII chars: %q", s)
		}
	}
	return s, nil
}

// pathEscapes maps characters to their escape sequence in path string
// literals. The parser accepts the same set.
var pathEscapes = map[byte]string{
	'"':  `\"`,
	'\\': `\\`,
	'\a': `\a`,
	'\b': `\b`,
	'\f': `\f`,
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
	'\v': `\v`,
}

// encodeString encodes a string as a double-quoted path string literal.
// Printable ASCII characters are emitted literally, the standard escapes
// use their mnemonic form, and everything else is \xHH-escaped.
func encodeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if esc, ok := pathEscapes[c]; ok {
			b.WriteString(esc)
		} else if c >= 0x20 && c < 0x7F {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// encodeScalar encodes a scalar as it appears in a path string. All types
// but strings use their JSON encoding; strings use the path literal
// encoding above.
func encodeScalar(v any) string {
	switch val := v.(type) {
	case string:
		return encodeString(val)
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		s := strconv.FormatFloat(val, 'g', -1, 64)
		// Whole floats must keep a decimal point so that re-parsing the
		// canonical form yields a float again, not an integer.
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return encodeString(fmt.Sprint(val))
	}
}

// encodeKeyValue encodes a key value as it appears in a path string. This
// is encodeScalar except that the Wildcard marker is encoded as a bare
// asterisk.
func encodeKeyValue(v any) string {
	if _, ok := v.(wildcardValue); ok {
		return "*"
	}
	return encodeScalar(v)
}

// marshalASCII marshals a value to JSON with every non-ASCII character
// \uXXXX-escaped, so the result is safe for an ASCII-only wire.
func marshalASCII(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return escapeNonASCII(data), nil
}

// escapeNonASCII \uXXXX-escapes every rune above 0x7F in marshaled JSON.
// In valid JSON such runes can only occur inside string literals, so the
// replacement is context-free.
func escapeNonASCII(data []byte) []byte {
	ascii := true
	for _, b := range data {
		if b > 0x7F {
			ascii = false
			break
		}
	}
	if ascii {
		return data
	}

	var b strings.Builder
	b.Grow(len(data) + 16)
	for _, r := range string(data) {
		switch {
		case r < 0x80:
			b.WriteRune(r)
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(&b, `\u%04x`, r)
		}
	}
	return []byte(b.String())
}

// decodeJSONValue converts a parsed JSON value into native Go types.
// Unlike gjson.Result.Value it keeps integral numbers as int64, so that
// leaf values round-trip through Set without changing type.
func decodeJSONValue(res gjson.Result) any {
	switch res.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return res.String()
	case gjson.Number:
		if strings.ContainsAny(res.Raw, ".eE") {
			return res.Float()
		}
		return res.Int()
	}
	if res.IsArray() {
		items := res.Array()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = decodeJSONValue(item)
		}
		return out
	}
	if res.IsObject() {
		out := make(map[string]any)
		res.ForEach(func(key, value gjson.Result) bool {
			out[key.String()] = decodeJSONValue(value)
			return true
		})
		return out
	}
	return res.Value()
}
