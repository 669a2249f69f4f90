// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a path string that could not be parsed. Offset is the
// character index into Input where the parse failed, usable to render a
// caret diagnostic under the original string (see Detail).
type ParseError struct {
	// Offset is the index into Input where the error occurred.
	Offset int

	// Input is the string that was being parsed.
	Input string

	// Msg describes what the parser expected.
	Msg string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing path %q at offset %d: %s", e.Input, e.Offset, e.Msg)
}

// Detail renders a multi-line caret diagnostic pointing at the offending
// character:
//
//	Parse error at offset 12:
//	    RootCfg.Abc.
//	                ^
//	    Input must not end with path separator (.)
func (e *ParseError) Detail() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Parse error at offset %d:\n", e.Offset)
	fmt.Fprintf(&b, "    %s\n", e.Input)
	fmt.Fprintf(&b, "%s^\n", strings.Repeat(" ", 4+e.Offset))
	fmt.Fprintf(&b, "    %s", e.Msg)
	return b.String()
}

// validRootNames are the only element names allowed at the start of a path.
var validRootNames = map[string]bool{
	"RootCfg":    true,
	"RootOper":   true,
	"RootAction": true,
}

// ParsePath creates a Path from its string representation.
//
// The format accepted is the same produced by Path.String:
//
//   - Hierarchy element names are separated by ".".
//   - Key values are specified inside "()" - either inside "[]" as a
//     sequence of values, or "{}" as a mapping of name-value pairs (JSON
//     array or object notation).
//   - "(*)" wildcards all key values, equivalent to WildcardAll.
//   - Whitespace between key values is ignored.
//
// Each key value is a string literal (single- or double-quoted, C-style
// escapes), an integer (decimal, or hex with a 0x/0X prefix), a float, one
// of the literals "true"/"false"/"null", or "*" for Wildcard.
//
// On any grammar violation a *ParseError is returned carrying the exact
// character offset of the failure.
func ParsePath(s string) (Path, error) {
	p := &pathParser{input: s}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return Path{}, p.errorAt(i, "Non-ASCII character in path string")
		}
	}
	return p.parse()
}

// parsedElement is one element as read off the input, before assembly into
// a Path.
type parsedElement struct {
	name        string
	keys        []KeyValue
	named       bool
	wildcardAll bool
}

// pathParser is a hand-written recursive-descent parser over a byte
// offset. Two primitives drive it: peek (lookahead for a literal byte) and
// consume (expect a literal byte, or fail with an expectation message).
// Every token consumes trailing whitespace so that peeks never see blanks.
type pathParser struct {
	input string
	pos   int
}

func (p *pathParser) errorAt(offset int, msg string) *ParseError {
	return &ParseError{Offset: offset, Input: p.input, Msg: msg}
}

func (p *pathParser) eof() bool { return p.pos >= len(p.input) }

// peek reports whether the next byte is b, without consuming it.
func (p *pathParser) peek(b byte) bool {
	return p.pos < len(p.input) && p.input[p.pos] == b
}

// consume expects the next byte to be b and skips it plus any trailing
// whitespace. what names the token for the expectation message.
func (p *pathParser) consume(b byte, what string) error {
	if !p.peek(b) {
		return p.errorAt(p.pos, "Expected "+what)
	}
	p.pos++
	p.skipSpace()
	return nil
}

func (p *pathParser) skipSpace() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			p.pos++
		default:
			return
		}
	}
}

func isNameStart(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isNameByte(b byte) bool {
	return isNameStart(b) || b == '-' || (b >= '0' && b <= '9')
}

// parseElementName consumes a path element name ([A-Za-z_][-A-Za-z0-9_]*).
func (p *pathParser) parseElementName() (string, error) {
	if p.eof() || !isNameStart(p.input[p.pos]) {
		return "", p.errorAt(p.pos, "Expected path element name")
	}
	start := p.pos
	for p.pos < len(p.input) && isNameByte(p.input[p.pos]) {
		p.pos++
	}
	name := p.input[start:p.pos]
	p.skipSpace()
	return name, nil
}

func (p *pathParser) peekElementName() bool {
	return !p.eof() && isNameStart(p.input[p.pos])
}

// parse implements the top-level grammar:
//
//	RootName KeyInfo? ( '.' ElementName KeyInfo? )*
func (p *pathParser) parse() (Path, error) {
	p.skipSpace()

	rootStart := p.pos
	name, err := p.parseElementName()
	if err != nil {
		return Path{}, err
	}
	if !validRootNames[name] {
		return Path{}, p.errorAt(rootStart,
			fmt.Sprintf("Root element must be one of RootCfg, RootOper or RootAction, not %s", name))
	}

	var elems []parsedElement
	cur := parsedElement{name: name}

	for !p.eof() {
		if p.peek('(') {
			if err := p.parseKeyInfo(&cur); err != nil {
				return Path{}, err
			}
		}

		if p.peek('.') {
			elems = append(elems, cur)
			cur = parsedElement{}
			if err := p.consume('.', "path separator (.)"); err != nil {
				return Path{}, err
			}
		} else if !p.eof() {
			return Path{}, p.errorAt(p.pos, "Expected path separator (.) or end of input")
		}

		if p.peekElementName() {
			cur.name, err = p.parseElementName()
			if err != nil {
				return Path{}, err
			}
		} else if !p.eof() {
			return Path{}, p.errorAt(p.pos, "Expected path element name or end of input")
		}
	}

	if cur.name == "" {
		return Path{}, p.errorAt(p.pos, "Input must not end with path separator (.)")
	}
	elems = append(elems, cur)

	out := make([]PathElement, len(elems))
	for i, el := range elems {
		out[i] = PathElement{
			name:        el.name,
			keys:        el.keys,
			named:       el.named,
			wildcardAll: el.wildcardAll,
		}
	}
	return Path{elements: out}, nil
}

// parseKeyInfo parses '(' ( '*' | list | dict ) ')' into cur.
func (p *pathParser) parseKeyInfo(cur *parsedElement) error {
	if err := p.consume('(', "key info start (()"); err != nil {
		return err
	}

	switch {
	case p.peek('*'):
		if err := p.consume('*', "wildcard (*)"); err != nil {
			return err
		}
		cur.wildcardAll = true
	case p.peek('{'):
		keys, err := p.parseDict()
		if err != nil {
			return err
		}
		cur.keys = keys
		cur.named = true
	case p.peek('['):
		keys, err := p.parseList()
		if err != nil {
			return err
		}
		cur.keys = keys
	default:
		return p.errorAt(p.pos, "Expected wildcard, JSON dict, or list")
	}

	return p.consume(')', "key info end ())")
}

// parseList parses a '[' val (',' val)* ']' sequence of unnamed key values.
func (p *pathParser) parseList() ([]KeyValue, error) {
	if err := p.consume('[', "list start ([)"); err != nil {
		return nil, err
	}
	var out []KeyValue
	if p.peek(']') {
		return out, p.consume(']', "list end (])")
	}
	for {
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, KeyValue{Value: val})

		if p.peek(']') {
			return out, p.consume(']', "list end (])")
		}
		if err := p.consume(',', "comma (,)"); err != nil {
			return nil, err
		}
	}
}

// parseDict parses a '{' key ':' val (',' key ':' val)* '}' mapping of
// named key values. Key names must be string literals. A repeated name
// keeps its first position and takes the last value, matching JSON object
// semantics.
func (p *pathParser) parseDict() ([]KeyValue, error) {
	if err := p.consume('{', "dict start ({)"); err != nil {
		return nil, err
	}
	var out []KeyValue
	if p.peek('}') {
		return out, p.consume('}', "dict end (})")
	}
	for {
		keyStart := p.pos
		key, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		name, ok := key.(string)
		if !ok {
			return nil, p.errorAt(keyStart, "Key name must be a string")
		}
		if err := p.consume(':', "colon (:)"); err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		replaced := false
		for i := range out {
			if out[i].Name == name {
				out[i].Value = val
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, KeyValue{Name: name, Value: val})
		}

		if p.peek('}') {
			return out, p.consume('}', "dict end (})")
		}
		if err := p.consume(',', "comma (,)"); err != nil {
			return nil, err
		}
	}
}

// parseValue parses a single key value: a wildcard, a string literal, or a
// JSON scalar.
func (p *pathParser) parseValue() (any, error) {
	start := p.pos

	if p.peek('*') {
		if err := p.consume('*', "wildcard (*)"); err != nil {
			return nil, err
		}
		return Wildcard, nil
	}

	if p.peek('\'') || p.peek('"') {
		return p.parseStringLiteral()
	}

	val, err := p.parseScalar()
	if err != nil {
		return nil, p.errorAt(start, "Expected JSON scalar, asterisk, or string")
	}
	p.skipSpace()
	return val, nil
}

// parseStringLiteral parses a quoted string. Strings in paths are not JSON
// strings: single quotes are allowed, and C-style escapes (\n \r \t \v \f
// \b \a, octal, \xHH) are evaluated. Unicode escapes (\N \u \U) are not
// supported. An unrecognized escape keeps its backslash verbatim.
func (p *pathParser) parseStringLiteral() (string, error) {
	quoteStart := p.pos
	quote := p.input[p.pos]
	p.pos++

	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorAt(quoteStart, "Unterminated string literal")
		}
		c := p.input[p.pos]
		if c == quote {
			p.pos++
			p.skipSpace()
			out, err := sanitizeString(b.String())
			if err != nil {
				return "", p.errorAt(quoteStart, "String literal evaluates to non-ASCII text")
			}
			return out, nil
		}
		if c != '\\' {
			b.WriteByte(c)
			p.pos++
			continue
		}

		escStart := p.pos
		p.pos++
		if p.eof() {
			return "", p.errorAt(quoteStart, "Unterminated string literal")
		}
		e := p.input[p.pos]
		switch {
		case e == 'n':
			b.WriteByte('\n')
			p.pos++
		case e == 'r':
			b.WriteByte('\r')
			p.pos++
		case e == 't':
			b.WriteByte('\t')
			p.pos++
		case e == 'v':
			b.WriteByte('\v')
			p.pos++
		case e == 'f':
			b.WriteByte('\f')
			p.pos++
		case e == 'b':
			b.WriteByte('\b')
			p.pos++
		case e == 'a':
			b.WriteByte('\a')
			p.pos++
		case e == '\\' || e == '\'' || e == '"':
			b.WriteByte(e)
			p.pos++
		case e >= '0' && e <= '7':
			val := 0
			for n := 0; n < 3 && p.pos < len(p.input); n++ {
				d := p.input[p.pos]
				if d < '0' || d > '7' {
					break
				}
				val = val*8 + int(d-'0')
				p.pos++
			}
			b.WriteRune(rune(val))
		case e == 'x':
			p.pos++
			if len(p.input)-p.pos < 2 || !isHexDigit(p.input[p.pos]) || !isHexDigit(p.input[p.pos+1]) {
				return "", p.errorAt(escStart, "Expected two hex digits after \\x")
			}
			val, _ := strconv.ParseUint(p.input[p.pos:p.pos+2], 16, 8)
			b.WriteRune(rune(val))
			p.pos += 2
		case e == 'N' || e == 'u' || e == 'U':
			return "", p.errorAt(escStart, "Unsupported escape sequence")
		default:
			// Unknown escapes keep the backslash.
			b.WriteByte('\\')
			b.WriteByte(e)
			p.pos++
		}
	}
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// parseScalar parses the JSON literals true/false/null and numbers.
// Integers may additionally use hex notation with a 0x/0X prefix.
func (p *pathParser) parseScalar() (any, error) {
	rest := p.input[p.pos:]
	for lit, val := range map[string]any{"true": true, "false": false, "null": nil} {
		if strings.HasPrefix(rest, lit) {
			end := p.pos + len(lit)
			// The literal must not run into an identifier (e.g. "nullx").
			if end < len(p.input) && isNameByte(p.input[end]) {
				continue
			}
			p.pos = end
			return val, nil
		}
	}
	return p.parseNumber()
}

func (p *pathParser) parseNumber() (any, error) {
	start := p.pos
	if p.peek('-') {
		p.pos++
	}

	digits := p.pos
	if strings.HasPrefix(p.input[p.pos:], "0x") || strings.HasPrefix(p.input[p.pos:], "0X") {
		p.pos += 2
		hexStart := p.pos
		for p.pos < len(p.input) && isHexDigit(p.input[p.pos]) {
			p.pos++
		}
		if p.pos == hexStart {
			p.pos = start
			return nil, fmt.Errorf("malformed hex literal")
		}
		val, err := strconv.ParseInt(p.input[start:p.pos], 0, 64)
		if err != nil {
			p.pos = start
			return nil, err
		}
		return val, nil
	}

	isFloat := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
		} else if c == '.' || c == 'e' || c == 'E' || c == '+' ||
			(c == '-' && p.pos > digits && (p.input[p.pos-1] == 'e' || p.input[p.pos-1] == 'E')) {
			isFloat = true
			p.pos++
		} else {
			break
		}
	}
	if p.pos == digits {
		p.pos = start
		return nil, fmt.Errorf("not a number")
	}
	text := p.input[start:p.pos]
	if !isFloat {
		val, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return val, nil
		}
		// Out-of-range integers fall through to float parsing.
	}
	val, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return nil, err
	}
	return val, nil
}
