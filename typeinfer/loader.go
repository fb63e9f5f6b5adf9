package typeinfer

// TypeHandle is an opaque tag into the caller's external type table (spec
// §4.H: "Tags are opaque handles into an external type loader."). typeinfer
// never interprets a handle itself; every operation on one goes through
// TypeLoader.
type TypeHandle uint32

// NoHandle is the distinguished empty handle.
const NoHandle TypeHandle = 0

// TypeLoader is the external collaborator described by spec §6 item 3: an
// object supplying, per type handle, the parameter type of an array type,
// the return type of a function type, a named property's type on an
// object/class type, union construction, and string-index resolution
// (StringByIndex returns the string's text, not a type handle). The core
// only consumes this interface; it never constructs or owns a TypeLoader
// implementation.
type TypeLoader interface {
	// ArrayElementType returns the element type of array-kind handle h.
	ArrayElementType(h TypeHandle) Type
	// FunctionReturnType returns the return type of function-kind handle h.
	FunctionReturnType(h TypeHandle) Type
	// PropertyType returns the type of the named property on object/class
	// handle h.
	PropertyType(h TypeHandle, name string) Type
	// UnionOf builds (or reuses) a type representing the union of members.
	UnionOf(members []Type) Type
	// StringByIndex resolves a constant-pool string index to its text, used
	// to turn a LdObjByName-style string-id operand into a property name.
	StringByIndex(index uint32) string
}
