// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ConnectError is returned when a transport cannot be brought up, wrapping
// the underlying transport failure.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect: %v", e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// DisconnectedError is returned from any request that was in flight, or
// attempted, while the connection is not in the CONNECTED state. Reason
// describes why the connection went away, if known.
type DisconnectedError struct {
	Reason string
}

func (e *DisconnectedError) Error() string {
	if e.Reason == "" {
		return "connection is disconnected"
	}
	return "connection is disconnected: " + e.Reason
}

// NoKeyNamesError is returned by Path.KeyByName when the path has no named
// keys at all.
type NoKeyNamesError struct {
	Path Path
}

func (e *NoKeyNamesError) Error() string {
	return fmt.Sprintf("path %s has no named keys", e.Path)
}

// KeyNotFoundError is returned by Path.KeyByName when the path has named
// keys but none with the requested name.
type KeyNotFoundError struct {
	Name string
	Path Path
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("path %s has no key named %q", e.Path, e.Name)
}

// KeyIndexError is returned by Path.KeyByIndex when the index is outside
// the path's flattened key sequence.
type KeyIndexError struct {
	Index int
	Count int
}

func (e *KeyIndexError) Error() string {
	return fmt.Sprintf("key index %d out of range (path has %d keys)", e.Index, e.Count)
}

// ServerError is implemented by every error type decoded from a server
// error response. Message returns the server-supplied text.
type ServerError interface {
	error
	Message() string
}

// serverError carries the message text common to all decoded server
// errors.
type serverError struct {
	Msg string
}

func (e *serverError) Error() string   { return e.Msg }
func (e *serverError) Message() string { return e.Msg }

// CiscoError is a generic operational failure reported by the router, used
// when the server does not classify the failure further.
type CiscoError struct {
	serverError
}

// NotFoundError indicates the requested path does not exist, or an
// operation matched no values.
type NotFoundError struct {
	serverError

	// Path is the offending path, when the server reported one.
	Path string
}

// AmbiguousPathError indicates a single value was requested but the path
// matched more than one.
type AmbiguousPathError struct {
	serverError

	Path string
}

// InvalidArgumentError indicates an argument was rejected by the server.
type InvalidArgumentError struct {
	serverError

	Path string
}

// OperationNotSupportedError indicates the operation is not supported at
// the given path.
type OperationNotSupportedError struct {
	serverError

	Path string
}

// DatatypeNotSupportedError indicates the path refers to data of a type
// the protocol cannot represent.
type DatatypeNotSupportedError struct {
	serverError
}

// FileExistsError indicates WriteFile was refused because the target file
// already exists.
type FileExistsError struct {
	serverError

	Filename string
}

// PermissionError indicates the authenticated user lacks the privileges
// required for the operation.
type PermissionError struct {
	serverError
}

// PathHierarchyError indicates a path element does not exist under its
// parent in the schema.
type PathHierarchyError struct {
	serverError

	Element string
	Parent  string
}

// PathKeyContentError indicates a key value is invalid for its schema
// parameter.
type PathKeyContentError struct {
	serverError

	Value string
	Param string
}

// PathKeyStructureError indicates the sequence of key values does not
// match the structure the schema class requires.
type PathKeyStructureError struct {
	serverError

	ValueSeq  string
	ClassName string
}

// PathStringFormatError indicates a path string sent to the server could
// not be parsed.
type PathStringFormatError struct {
	serverError

	PathStr string
}

// ValueContentError indicates a leaf value is invalid for its datatype.
type ValueContentError struct {
	serverError

	Value string
	Param string
}

// ValueStructureError indicates a composite value does not match the
// structure the schema requires.
type ValueStructureError struct {
	serverError

	ValueSeq  string
	ClassName string
}

// ConfigCommitError indicates a commit operation failed. Details lists the
// per-item failures reported by the commit verifiers or appliers.
type ConfigCommitError struct {
	serverError

	Details []ConfigCommitErrorDetail
}

func (e *ConfigCommitError) Error() string {
	if len(e.Details) == 0 {
		return e.Msg
	}
	var b strings.Builder
	b.WriteString(e.Msg)
	for _, d := range e.Details {
		fmt.Fprintf(&b, "\n  %s %s: %s", d.Op, d.Path, d.Error)
	}
	return b.String()
}

// UnexpectedPayloadError indicates the server sent a structurally valid
// response whose contents do not match the protocol, e.g. an error with an
// unknown code or an unrecognized error type tag. It signals a server bug
// or a protocol version mismatch, not a failure of the request itself.
type UnexpectedPayloadError struct {
	Payload string
}

func (e *UnexpectedPayloadError) Error() string {
	return fmt.Sprintf("unexpected payload received: %s", e.Payload)
}

// UnexpectedResponseIDError indicates the server sent a response for a
// request ID that is not pending. The connection is torn down when this
// occurs.
type UnexpectedResponseIDError struct {
	ID int64
}

func (e *UnexpectedResponseIDError) Error() string {
	return fmt.Sprintf("received response with unexpected ID %d", e.ID)
}

// MalformedJSONError indicates the server sent a line that is not valid
// JSON or not a valid response object. The connection is torn down when
// this occurs.
type MalformedJSONError struct {
	Line string
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("received malformed JSON: %s", e.Line)
}

// rpcErrorCode is the only error code the server is expected to use.
const rpcErrorCode = -32000

// decodeRPCError maps the "error" member of a response onto a typed error.
// Any deviation from the expected structure yields UnexpectedPayloadError
// rather than a guess at the failure.
func decodeRPCError(errField gjson.Result) error {
	if errField.Get("code").Int() != rpcErrorCode {
		return &UnexpectedPayloadError{Payload: errField.Raw}
	}
	msg := errField.Get("message").String()
	data := errField.Get("data")

	switch {
	case !data.Exists():
		return &CiscoError{serverError{msg}}
	case data.IsArray():
		return decodeCommitError(msg, data)
	case data.IsObject():
		return decodeTypedError(msg, data)
	default:
		return &UnexpectedPayloadError{Payload: errField.Raw}
	}
}

// decodeCommitError decodes the error data for a failed commit: a list of
// per-item failures, each tagged "config_commit_error".
func decodeCommitError(msg string, data gjson.Result) error {
	var details []ConfigCommitErrorDetail
	ok := true
	data.ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() != "config_commit_error" {
			ok = false
			return false
		}
		cat, catOK := errorCategoryFromString(item.Get("category").String())
		op, opOK := changeFromString(item.Get("operation").String())
		path, pathErr := ParsePath(item.Get("path").String())
		if !catOK || !opOK || pathErr != nil {
			ok = false
			return false
		}
		details = append(details, ConfigCommitErrorDetail{
			Op:       op,
			Path:     path,
			Value:    decodeJSONValue(item.Get("value")),
			Category: cat,
			Error:    item.Get("error").String(),
		})
		return true
	})
	if !ok {
		return &UnexpectedPayloadError{Payload: data.Raw}
	}
	return &ConfigCommitError{serverError{msg}, details}
}

// decodeTypedError maps a single error data object onto its error type,
// keyed on the "type" tag.
func decodeTypedError(msg string, data gjson.Result) error {
	base := serverError{msg}
	switch data.Get("type").String() {
	case "cisco_error":
		return &CiscoError{base}
	case "datatype_not_supported_error":
		return &DatatypeNotSupportedError{base}
	case "file_exists_error":
		return &FileExistsError{base, data.Get("filename").String()}
	case "invalid_argument_error":
		return &InvalidArgumentError{base, data.Get("path").String()}
	case "not_found_error":
		return &NotFoundError{base, data.Get("path").String()}
	case "operation_not_supported_error":
		return &OperationNotSupportedError{base, data.Get("path").String()}
	case "path_hierarchy_error":
		return &PathHierarchyError{base, data.Get("element").String(), data.Get("parent").String()}
	case "path_key_content_error":
		return &PathKeyContentError{base, data.Get("value").String(), data.Get("param").String()}
	case "path_key_structure_error":
		return &PathKeyStructureError{base, data.Get("value_seq").String(), data.Get("class").String()}
	case "path_string_format_error":
		return &PathStringFormatError{base, data.Get("path").String()}
	case "permissions_error":
		return &PermissionError{base}
	case "value_content_error":
		return &ValueContentError{base, data.Get("value").String(), data.Get("param").String()}
	case "value_structure_error":
		return &ValueStructureError{base, data.Get("value_seq").String(), data.Get("class").String()}
	default:
		return &UnexpectedPayloadError{Payload: data.Raw}
	}
}
