// Package typeinfer implements spec §4.H: forward dataflow propagation of
// an abstract type over a built circuit.Circuit. It is grounded on
// original_source/ecmascript/compiler/type_inference/type_infer.cpp, which
// supplies the concrete per-bytecode rules spec §4.H only gestures at
// generically.
package typeinfer

import "fmt"

// Kind classifies the shape of an abstract Type. Object-kind entries
// (Class, ClassInstance, Object, Array, Function) carry a Handle into the
// caller's TypeLoader; every other Kind is a closed, self-describing type.
type Kind uint8

const (
	KindAny Kind = iota
	KindNumber
	KindString
	KindBoolean
	KindUndefined
	KindNull
	KindSymbol
	KindClass
	KindClassInstance
	KindObject
	KindArray
	KindFunction
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindSymbol:
		return "symbol"
	case KindClass:
		return "class"
	case KindClassInstance:
		return "class_instance"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	case KindUnion:
		return "union"
	default:
		return "unknown_type_kind"
	}
}

// Type is the abstract type domain element every eligible gate carries once
// Run has annotated it. It satisfies circuit.GateType, so it can be stored
// directly via Circuit.SetGateType without typeinfer's domain leaking into
// package circuit (which only needs the String() method).
type Type struct {
	kind    Kind
	handle  TypeHandle   // valid when kind is one of the object kinds
	members []Type       // valid when kind == KindUnion, deduplicated
}

func (t Type) String() string {
	switch t.kind {
	case KindClass, KindClassInstance, KindObject, KindArray, KindFunction:
		return fmt.Sprintf("%s(%d)", t.kind, t.handle)
	case KindUnion:
		s := "union("
		for i, m := range t.members {
			if i > 0 {
				s += "|"
			}
			s += m.String()
		}
		return s + ")"
	default:
		return t.kind.String()
	}
}

// Any is the type-lattice ceiling: every other Type meets into it, per
// spec §4.H's "meet up to an AnyType ceiling".
func Any() Type { return Type{kind: KindAny} }

func Number() Type    { return Type{kind: KindNumber} }
func String() Type    { return Type{kind: KindString} }
func Boolean() Type   { return Type{kind: KindBoolean} }
func Undefined() Type { return Type{kind: KindUndefined} }
func Null() Type      { return Type{kind: KindNull} }
func Symbol() Type    { return Type{kind: KindSymbol} }

func Class(h TypeHandle) Type         { return Type{kind: KindClass, handle: h} }
func ClassInstance(h TypeHandle) Type { return Type{kind: KindClassInstance, handle: h} }
func Object(h TypeHandle) Type        { return Type{kind: KindObject, handle: h} }
func Array(h TypeHandle) Type         { return Type{kind: KindArray, handle: h} }
func Function(h TypeHandle) Type      { return Type{kind: KindFunction, handle: h} }

func (t Type) Kind() Kind         { return t.kind }
func (t Type) Handle() TypeHandle { return t.handle }

func (t Type) IsAny() bool     { return t.kind == KindAny }
func (t Type) IsNumber() bool  { return t.kind == KindNumber }
func (t Type) IsString() bool  { return t.kind == KindString }
func (t Type) IsBoolean() bool { return t.kind == KindBoolean }

func (t Type) IsUndefined() bool { return t.kind == KindUndefined }

func (t Type) IsClassKind() bool {
	return t.kind == KindClass || t.kind == KindClassInstance || t.kind == KindObject
}
func (t Type) IsArrayKind() bool    { return t.kind == KindArray }
func (t Type) IsFunctionKind() bool { return t.kind == KindFunction }

// Equal reports structural equality, used to deduplicate a VALUE_SELECTOR's
// operand types before deciding whether a union is needed.
func (t Type) Equal(o Type) bool {
	if t.kind != o.kind {
		return false
	}
	switch t.kind {
	case KindClass, KindClassInstance, KindObject, KindArray, KindFunction:
		return t.handle == o.handle
	case KindUnion:
		if len(t.members) != len(o.members) {
			return false
		}
		for i := range t.members {
			if !t.members[i].Equal(o.members[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// union builds a local (loader-independent) union type from a deduplicated
// member list. inferPhi always builds its unions with this;
// TypeLoader.UnionOf is not consulted.
func union(members []Type) Type {
	if len(members) == 1 {
		return members[0]
	}
	return Type{kind: KindUnion, members: members}
}
