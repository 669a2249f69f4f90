// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Version is a protocol or schema version number.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// SchemaClassCategory describes the kind of node a schema class defines.
type SchemaClassCategory string

const (
	CategoryContainer SchemaClassCategory = "CONTAINER"
	CategoryLeaf      SchemaClassCategory = "LEAF"
)

// SchemaParamStatus describes whether a schema parameter must be given.
type SchemaParamStatus string

const (
	StatusMandatory SchemaParamStatus = "MANDATORY"
	StatusOptional  SchemaParamStatus = "OPTIONAL"
	StatusIgnored   SchemaParamStatus = "IGNORED"
)

// Datatype identifies the data type of a schema parameter. The server
// defines the set of types; common ones have constants here, and
// unrecognized types pass through as-is rather than failing the decode.
type Datatype string

const (
	DatatypeInteger       Datatype = "INTEGER"
	DatatypeHexInteger    Datatype = "HEX_INTEGER"
	DatatypeSignedInteger Datatype = "SIGNED_INTEGER"
	DatatypeBool          Datatype = "BOOL"
	DatatypeTrueOnly      Datatype = "TRUE_ONLY"
	DatatypeFalseOnly     Datatype = "FALSE_ONLY"
	DatatypeRange         Datatype = "RANGE"
	DatatypeString        Datatype = "STRING"
	DatatypeText          Datatype = "TEXT"
	DatatypeIdentifier    Datatype = "IDENTIFIER"
	DatatypeEncodedString Datatype = "ENCODED_STRING"
	DatatypeBoundedString Datatype = "BOUNDED_STRING"
	DatatypeIPV4Address   Datatype = "IPV4ADDRESS"
	DatatypeIPV6Address   Datatype = "IPV6ADDRESS"
	DatatypeMACAddress    Datatype = "MACADDRESS"
	DatatypeInterfaceName Datatype = "INTERFACE_NAME"
	DatatypeEnum          Datatype = "ENUM"
	DatatypeBag           Datatype = "BAG"
	DatatypePassword      Datatype = "PASSWORD"
	DatatypeProprietary   Datatype = "PROPRIETARY_PASSWORD"
)

// SchemaParam describes a single key or value parameter of a schema
// class.
type SchemaParam struct {
	// Name of the parameter.
	Name string

	// Datatype of values of the parameter.
	Datatype Datatype

	// DatatypeArgs gives additional type restrictions, e.g. range bounds
	// or enum members, when the datatype has any. The layout depends on
	// the datatype, so it is kept as raw JSON for the caller to query.
	DatatypeArgs gjson.Result

	// Description is human-readable parameter documentation.
	Description string

	// Status reports whether the parameter may be omitted.
	Status SchemaParamStatus

	// InternalName is the name used for the parameter in nested output
	// format, when it differs from Name.
	InternalName string

	// Repeat is how many times the parameter may be repeated.
	Repeat int
}

// SchemaClass describes the schema of a single node class, as returned by
// Connection.GetSchema.
type SchemaClass struct {
	// Name of the class.
	Name string

	// Category reports whether nodes of this class carry a value or only
	// contain other nodes.
	Category SchemaClassCategory

	// Description is human-readable class documentation.
	Description string

	// TableDescription documents the table containing this class, if it
	// is inside one.
	TableDescription string

	// Key describes the parameters of this class's keys.
	Key []SchemaParam

	// Value describes the parameters of this class's values.
	Value []SchemaParam

	// Presence gives the path to the leaf that controls whether a node of
	// this class is considered to exist, or "" if existence is implicit.
	Presence string

	// Version is the class version.
	Version Version

	// TableVersion is the version of the containing table, if any.
	TableVersion Version

	// Hidden reports whether the class is hidden from CLI users.
	Hidden bool

	// Children are the paths of the classes under this one in the schema
	// hierarchy, without key values.
	Children []Path
}

func decodeVersion(res gjson.Result) Version {
	return Version{
		Major: int(res.Get("major").Int()),
		Minor: int(res.Get("minor").Int()),
	}
}

func decodeSchemaParams(res gjson.Result) []SchemaParam {
	items := res.Array()
	out := make([]SchemaParam, 0, len(items))
	for _, item := range items {
		out = append(out, SchemaParam{
			Name:         item.Get("name").String(),
			Datatype:     Datatype(item.Get("datatype").String()),
			DatatypeArgs: item.Get("datatype_args"),
			Description:  item.Get("description").String(),
			Status:       SchemaParamStatus(item.Get("status").String()),
			InternalName: item.Get("internal_name").String(),
			Repeat:       int(item.Get("repeat_count").Int()),
		})
	}
	return out
}

// decodeSchemaClass decodes a get_schema result.
func decodeSchemaClass(res gjson.Result) (*SchemaClass, error) {
	if !res.IsObject() {
		return nil, &UnexpectedPayloadError{Payload: res.Raw}
	}
	var children []Path
	if field := res.Get("children"); field.Exists() {
		var err error
		children, err = decodePaths(field)
		if err != nil {
			return nil, err
		}
	}
	return &SchemaClass{
		Name:             res.Get("name").String(),
		Category:         SchemaClassCategory(res.Get("category").String()),
		Description:      res.Get("description").String(),
		TableDescription: res.Get("table_description").String(),
		Key:              decodeSchemaParams(res.Get("key")),
		Value:            decodeSchemaParams(res.Get("value")),
		Presence:         res.Get("presence").String(),
		Version:          decodeVersion(res.Get("version")),
		TableVersion:     decodeVersion(res.Get("table_version")),
		Hidden:           res.Get("hidden").Bool(),
		Children:         children,
	}, nil
}
