// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

// Common definitions shared by the path language and the method layer.

// wildcardValue is the type of the Wildcard marker. It deliberately has no
// exported constructor: the only value is Wildcard.
type wildcardValue struct{}

// String returns the path-string form of the marker.
func (wildcardValue) String() string { return "*" }

// wildcardAllValue is the type of the WildcardAll marker.
type wildcardAllValue struct{}

// String returns the path-string form of the marker.
func (wildcardAllValue) String() string { return "*" }

// Wildcard matches any value for a single key position.
//
// Example:
//
//	path := m2m.RootCfg().Child("InterfaceConfiguration").
//	    Keys("act", m2m.Wildcard)
var Wildcard = wildcardValue{}

// WildcardAll matches any combination of all key values for an element. It
// must be the sole key value of the element it is applied to.
//
// Example:
//
//	path := m2m.RootOper().Child("Interfaces").Child("Interface").
//	    Keys(m2m.WildcardAll)
var WildcardAll = wildcardAllValue{}

// Password wraps a cleartext string value so that Set encrypts it before it
// is stored. The obfuscation algorithm depends on the schema type of the node
// being set. Already-obfuscated values should be set as plain strings.
//
// Example:
//
//	err := conn.Set(ctx, secretPath, m2m.Password("very secret"))
type Password string

// Change enumerates data-modifying operations.
type Change int

const (
	// ChangeSet records a value set for a leaf (that may or may not have
	// already existed).
	ChangeSet Change = iota

	// ChangeDelete records an existing value for a leaf being deleted.
	ChangeDelete
)

// String returns the wire name of the change operation.
func (c Change) String() string {
	switch c {
	case ChangeSet:
		return "SET"
	case ChangeDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// changeFromString maps the wire name of a change operation to its enum
// value. The bool result reports whether the name was recognized.
func changeFromString(s string) (Change, bool) {
	switch s {
	case "SET":
		return ChangeSet, true
	case "DELETE":
		return ChangeDelete, true
	default:
		return 0, false
	}
}

// ChangeDetails describes a single uncommitted data-modifying operation, as
// returned by Connection.GetChanges.
type ChangeDetails struct {
	// Path identifies the leaf whose value is altered.
	Path Path

	// Op records the operation performed on the leaf.
	Op Change

	// Value is the new value for the leaf for non-delete operations, in the
	// standard output format. It is nil for delete operations.
	Value any
}

// ErrorCategory identifies the high-level reason for a commit failure on a
// particular path.
type ErrorCategory int

const (
	// CategoryVerify indicates a change rejected as semantically invalid,
	// e.g. because it would move the system to an inconsistent state.
	CategoryVerify ErrorCategory = iota

	// CategoryApply indicates a change that verified but failed to apply.
	CategoryApply
)

// String returns the wire name of the category.
func (e ErrorCategory) String() string {
	switch e {
	case CategoryVerify:
		return "VERIFY"
	case CategoryApply:
		return "APPLY"
	default:
		return "UNKNOWN"
	}
}

func errorCategoryFromString(s string) (ErrorCategory, bool) {
	switch s {
	case "VERIFY":
		return CategoryVerify, true
	case "APPLY":
		return CategoryApply, true
	default:
		return 0, false
	}
}

// ConfigCommitErrorDetail gives the failure details for one path within a
// failed config commit operation.
type ConfigCommitErrorDetail struct {
	// Op records the operation that failed.
	Op Change

	// Path records the path of the failed operation.
	Path Path

	// Value is the new value for non-delete operations, nil for deletes.
	Value any

	// Category describes the circumstances of the error.
	Category ErrorCategory

	// Error describes the failure.
	Error string
}

// Method enumerates Connection request methods. It currently only appears in
// CliDescribe results, hence the restricted subset.
type Method int

const (
	// MethodGet corresponds with Connection.Get.
	MethodGet Method = iota

	// MethodGetChildren corresponds with Connection.GetChildren.
	MethodGetChildren

	// MethodSet corresponds with Connection.Set.
	MethodSet

	// MethodDelete corresponds with Connection.Delete.
	MethodDelete
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodGetChildren:
		return "GET_CHILDREN"
	case MethodSet:
		return "SET"
	case MethodDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

func methodFromString(s string) (Method, bool) {
	switch s {
	case "GET", "get":
		return MethodGet, true
	case "GET_CHILDREN", "get_children":
		return MethodGetChildren, true
	case "SET", "set":
		return MethodSet, true
	case "DELETE", "delete":
		return MethodDelete, true
	default:
		return 0, false
	}
}

// Request describes one underlying Connection request of a CLI command, as
// returned by Connection.CliDescribe.
type Request struct {
	// Method identifies the Connection method.
	Method Method

	// Path is the path parameter for the method.
	Path Path

	// Value is the value parameter for the method. It is nil for methods
	// that don't accept a value.
	Value any
}

// PathValue is a path and its associated value, as returned by Get and
// CliGet and accepted by SetMany.
type PathValue struct {
	Path  Path
	Value any
}
