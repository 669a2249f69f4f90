// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// formatPairs requests results as a flat list of path-value pairs;
// formatNested requests them as a nested object tree.
const (
	formatPairs  = "pairs"
	formatNested = "nested"
)

// pathParams builds the single-path params object shared by most read
// operations.
func pathParams(path Path) Body {
	return Body{}.Set("path", path.String())
}

// decodePairs decodes a list of [path, value] pairs into PathValues.
func decodePairs(res gjson.Result) ([]PathValue, error) {
	if !res.IsArray() {
		return nil, &UnexpectedPayloadError{Payload: res.Raw}
	}
	items := res.Array()
	out := make([]PathValue, 0, len(items))
	for _, item := range items {
		pair := item.Array()
		if !item.IsArray() || len(pair) != 2 {
			return nil, &UnexpectedPayloadError{Payload: item.Raw}
		}
		path, err := ParsePath(pair[0].String())
		if err != nil {
			return nil, &UnexpectedPayloadError{Payload: item.Raw}
		}
		out = append(out, PathValue{Path: path, Value: decodeJSONValue(pair[1])})
	}
	return out, nil
}

// decodePaths decodes a list of path strings.
func decodePaths(res gjson.Result) ([]Path, error) {
	if !res.IsArray() {
		return nil, &UnexpectedPayloadError{Payload: res.Raw}
	}
	items := res.Array()
	out := make([]Path, 0, len(items))
	for _, item := range items {
		path, err := ParsePath(item.String())
		if err != nil {
			return nil, &UnexpectedPayloadError{Payload: item.Raw}
		}
		out = append(out, path)
	}
	return out, nil
}

// encodeSetValue renders a leaf value for a set request. Password values
// are wrapped so the server obfuscates them before storing.
func encodeSetValue(v any) (string, error) {
	if pw, ok := v.(Password); ok {
		b := Body{}.Set("encrypted", false).Set("password", string(pw))
		return b.Str, b.Err()
	}
	data, err := marshalASCII(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Get returns the values of all leaves matched by path, as path-value
// pairs. Paths in the result are fully keyed, never wildcarded. A path
// that matches nothing yields an empty result, not an error.
func (c *Connection) Get(ctx context.Context, path Path) ([]PathValue, error) {
	params := pathParams(path).Set("format", formatPairs)
	if err := params.Err(); err != nil {
		return nil, err
	}
	res, err := c.call(ctx, "get", params.Str)
	if err != nil {
		return nil, err
	}
	return decodePairs(res)
}

// GetNested returns the values of all leaves matched by path as a nested
// object tree mirroring the data hierarchy, for querying with gjson.
func (c *Connection) GetNested(ctx context.Context, path Path) (gjson.Result, error) {
	params := pathParams(path).Set("format", formatNested)
	if err := params.Err(); err != nil {
		return gjson.Result{}, err
	}
	return c.call(ctx, "get", params.Str)
}

// GetValue returns the value of the single leaf matched by path. It
// returns NotFoundError if the path matches nothing and
// AmbiguousPathError if it matches more than one leaf.
func (c *Connection) GetValue(ctx context.Context, path Path) (any, error) {
	pairs, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	switch len(pairs) {
	case 0:
		return nil, &NotFoundError{
			serverError{fmt.Sprintf("no values found at %s", path)},
			path.String(),
		}
	case 1:
		return pairs[0].Value, nil
	default:
		return nil, &AmbiguousPathError{
			serverError{fmt.Sprintf("%d values found at %s, expected one", len(pairs), path)},
			path.String(),
		}
	}
}

// GetChildren returns the paths of the immediate children of path. Key
// values in the returned paths are filled in.
func (c *Connection) GetChildren(ctx context.Context, path Path) ([]Path, error) {
	params := pathParams(path)
	if err := params.Err(); err != nil {
		return nil, err
	}
	res, err := c.call(ctx, "get_children", params.Str)
	if err != nil {
		return nil, err
	}
	return decodePaths(res)
}

// GetParent returns the parent path of path, as the schema defines it.
func (c *Connection) GetParent(ctx context.Context, path Path) (Path, error) {
	params := pathParams(path)
	if err := params.Err(); err != nil {
		return Path{}, err
	}
	res, err := c.call(ctx, "get_parent", params.Str)
	if err != nil {
		return Path{}, err
	}
	parent, err := ParsePath(res.String())
	if err != nil {
		return Path{}, &UnexpectedPayloadError{Payload: res.Raw}
	}
	return parent, nil
}

// NormalizePath returns the canonical form of path: named keys, with any
// missing key values made explicit as nulls. The server validates the
// path against the schema.
func (c *Connection) NormalizePath(ctx context.Context, path Path) (Path, error) {
	params := pathParams(path)
	if err := params.Err(); err != nil {
		return Path{}, err
	}
	res, err := c.call(ctx, "normalize_path", params.Str)
	if err != nil {
		return Path{}, err
	}
	normalized, err := ParsePath(res.String())
	if err != nil {
		return Path{}, &UnexpectedPayloadError{Payload: res.Raw}
	}
	return normalized, nil
}

// Set records value as the new value of the leaf at path, in the change
// buffer. The change takes effect only when committed.
func (c *Connection) Set(ctx context.Context, path Path, value any) error {
	return c.SetMany(ctx, PathValue{Path: path, Value: value})
}

// SetMany records new values for several leaves in one request. The
// changes take effect only when committed.
func (c *Connection) SetMany(ctx context.Context, pvs ...PathValue) error {
	paths := make([]string, len(pvs))
	values := "[]"
	for i, pv := range pvs {
		paths[i] = pv.Path.String()
		encoded, err := encodeSetValue(pv.Value)
		if err != nil {
			return err
		}
		b := Body{Str: values}.SetRaw("-1", encoded)
		if err := b.Err(); err != nil {
			return err
		}
		values = b.Str
	}
	pathsJSON, err := marshalASCII(paths)
	if err != nil {
		return err
	}
	params := Body{}.SetRaw("path", string(pathsJSON)).SetRaw("value", values)
	if err := params.Err(); err != nil {
		return err
	}
	_, err = c.call(ctx, "set", params.Str)
	return err
}

// Delete records the deletion of the subtree at path in the change
// buffer. The change takes effect only when committed.
func (c *Connection) Delete(ctx context.Context, path Path) error {
	return c.DeleteMany(ctx, path)
}

// DeleteMany records the deletion of several subtrees in one request.
func (c *Connection) DeleteMany(ctx context.Context, paths ...Path) error {
	return c.multiPathWrite(ctx, "delete", paths)
}

// Replace marks the subtree at path for replacement: on commit, existing
// data under it is deleted before the buffered changes are applied.
func (c *Connection) Replace(ctx context.Context, path Path) error {
	return c.ReplaceMany(ctx, path)
}

// ReplaceMany marks several subtrees for replacement in one request.
func (c *Connection) ReplaceMany(ctx context.Context, paths ...Path) error {
	return c.multiPathWrite(ctx, "replace", paths)
}

func (c *Connection) multiPathWrite(ctx context.Context, method string, paths []Path) error {
	strs := make([]string, len(paths))
	for i, p := range paths {
		strs[i] = p.String()
	}
	pathsJSON, err := marshalASCII(strs)
	if err != nil {
		return err
	}
	params := Body{}.SetRaw("path", string(pathsJSON))
	if err := params.Err(); err != nil {
		return err
	}
	_, err = c.call(ctx, method, params.Str)
	return err
}

// Commit applies the buffered changes to the running config and returns
// the commit ID assigned by the router, or an empty string if the buffer
// held no changes. A failed commit returns ConfigCommitError carrying the
// per-path failures.
func (c *Connection) Commit(ctx context.Context) (string, error) {
	res, err := c.call(ctx, "commit", "")
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// CommitReplace applies the buffered changes as a replacement for the
// entire running config and returns the commit ID.
func (c *Connection) CommitReplace(ctx context.Context) (string, error) {
	res, err := c.call(ctx, "commit_replace", "")
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// DiscardChanges empties the change buffer.
func (c *Connection) DiscardChanges(ctx context.Context) error {
	_, err := c.call(ctx, "discard_changes", "")
	return err
}

// GetChanges returns the contents of the change buffer.
func (c *Connection) GetChanges(ctx context.Context) ([]ChangeDetails, error) {
	res, err := c.call(ctx, "get_changes", "")
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, &UnexpectedPayloadError{Payload: res.Raw}
	}
	items := res.Array()
	out := make([]ChangeDetails, 0, len(items))
	for _, item := range items {
		path, pathErr := ParsePath(item.Get("path").String())
		op, opOK := changeFromString(item.Get("operation").String())
		if pathErr != nil || !opOK {
			return nil, &UnexpectedPayloadError{Payload: item.Raw}
		}
		out = append(out, ChangeDetails{
			Path:  path,
			Op:    op,
			Value: decodeJSONValue(item.Get("value")),
		})
	}
	return out, nil
}

// CliGet returns the data covered by a CLI show command, as path-value
// pairs.
func (c *Connection) CliGet(ctx context.Context, command string) ([]PathValue, error) {
	params := Body{}.Set("command", command).Set("format", formatPairs)
	if err := params.Err(); err != nil {
		return nil, err
	}
	res, err := c.call(ctx, "cli_get", params.Str)
	if err != nil {
		return nil, err
	}
	return decodePairs(res)
}

// CliGetNested returns the data covered by a CLI show command as a nested
// object tree, for querying with gjson.
func (c *Connection) CliGetNested(ctx context.Context, command string) (gjson.Result, error) {
	params := Body{}.Set("command", command).Set("format", formatNested)
	if err := params.Err(); err != nil {
		return gjson.Result{}, err
	}
	return c.call(ctx, "cli_get", params.Str)
}

// CliSet records the changes described by a CLI config command in the
// change buffer. The changes take effect only when committed.
func (c *Connection) CliSet(ctx context.Context, command string) error {
	params := Body{}.Set("command", command)
	if err := params.Err(); err != nil {
		return err
	}
	_, err := c.call(ctx, "cli_set", params.Str)
	return err
}

// CliExec executes a CLI command and returns its raw textual output.
func (c *Connection) CliExec(ctx context.Context, command string) (string, error) {
	params := Body{}.Set("command", command)
	if err := params.Err(); err != nil {
		return "", err
	}
	res, err := c.call(ctx, "cli_exec", params.Str)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// CliDescribe returns the requests equivalent to a CLI command.
// configuration selects config mode rather than exec mode interpretation.
func (c *Connection) CliDescribe(ctx context.Context, command string, configuration bool) ([]Request, error) {
	params := Body{}.Set("command", command).Set("configuration", configuration)
	if err := params.Err(); err != nil {
		return nil, err
	}
	res, err := c.call(ctx, "cli_describe", params.Str)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, &UnexpectedPayloadError{Payload: res.Raw}
	}
	items := res.Array()
	out := make([]Request, 0, len(items))
	for _, item := range items {
		method, methodOK := methodFromString(item.Get("method").String())
		path, pathErr := ParsePath(item.Get("path").String())
		if !methodOK || pathErr != nil {
			return nil, &UnexpectedPayloadError{Payload: item.Raw}
		}
		out = append(out, Request{
			Method: method,
			Path:   path,
			Value:  decodeJSONValue(item.Get("value")),
		})
	}
	return out, nil
}

// WriteFile writes data to a file on the router. It returns
// FileExistsError if the target file already exists.
func (c *Connection) WriteFile(ctx context.Context, filename, data string) error {
	params := Body{}.Set("data", data).Set("filename", filename)
	if err := params.Err(); err != nil {
		return err
	}
	_, err := c.call(ctx, "write_file", params.Str)
	return err
}

// GetVersion returns the protocol version the server implements.
func (c *Connection) GetVersion(ctx context.Context) (Version, error) {
	res, err := c.call(ctx, "get_version", "")
	if err != nil {
		return Version{}, err
	}
	major := res.Get("major")
	minor := res.Get("minor")
	if major.Type != gjson.Number || minor.Type != gjson.Number {
		return Version{}, &UnexpectedPayloadError{Payload: res.Raw}
	}
	return Version{Major: int(major.Int()), Minor: int(minor.Int())}, nil
}

// GetSchema returns schema information for the class of the node at path.
// Key values in the path are ignored; only the class matters.
func (c *Connection) GetSchema(ctx context.Context, path Path) (*SchemaClass, error) {
	params := pathParams(path)
	if err := params.Err(); err != nil {
		return nil, err
	}
	res, err := c.call(ctx, "get_schema", params.Str)
	if err != nil {
		return nil, err
	}
	return decodeSchemaClass(res)
}
