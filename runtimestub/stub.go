// Package runtimestub names the runtime operations a generic JS_BYTECODE
// gate can carry (via circuit.CircuitBuilder.JSBytecodeOp's leading stub-id
// value operand) and describes their calling convention, per spec §6 item
// 4: "a table mapping stub-id -> (return machine type, parameter machine
// types, kind ∈ {normal, runtime})". typeinfer reads a gate's ID to decide
// its per-bytecode type rule (spec §4.H); lowering reads a Descriptor to
// emit a call with the right arity and types (spec §4.I/§4.K).
//
// The instruction set itself is explicitly out of scope (spec §1
// non-goal), so ID only names the representative operations spec §4.H's
// and §4.I/K's scenarios and examples exercise, not a complete catalogue.
package runtimestub

import "github.com/user-none/gosea/circuit"

// ID identifies one runtime operation. The zero value names no operation.
type ID uint64

const (
	_ ID = iota

	// Arithmetic: number-producing when both operands are already numeric.
	Add
	Sub
	Mul
	Div
	Mod
	Shl
	Shr
	AShr
	And
	Or
	Xor
	ToNumber
	Neg
	Not
	Inc
	Dec
	Exp

	// Comparisons and boolean-producing operators.
	Eq
	NotEq
	StrictEq
	StrictNotEq
	Less
	LessEq
	Greater
	GreaterEq
	IsIn
	InstanceOf
	IsTrue
	IsFalse
	SetObjectWithProto
	DelObjProp

	// Loads/stores of literals, globals, and properties.
	LdUndefined
	LdNull
	LdNumber
	LdSymbol
	LdString
	LdObjByIndex
	LdObjByName
	LdObjByValue
	LdGlobalVar
	StGlobalVar

	// Misc operations with their own type rule in type_infer.cpp.
	ThrowDyn
	TypeOf
	GetNextPropName
	DefineGetterSetterByValue
	NewObjSpread
	NewObjDynRange
	SuperCall
	CallFunction

	// Type-directed fast-path variants, selected only once typeinfer has
	// refined a gate's operand types enough to bypass dynamic dispatch
	// (spec §4.I, grounded on type_lowering.cpp's AotNewObjWithIHClass
	// substitution for a generic NEWOBJDYNRANGE).
	AddFast
	NewObjWithClass
)

func (id ID) String() string {
	if s, ok := names[id]; ok {
		return s
	}
	return "UNKNOWN_STUB"
}

var names = map[ID]string{
	Add: "ADD", Sub: "SUB", Mul: "MUL", Div: "DIV", Mod: "MOD",
	Shl: "SHL", Shr: "SHR", AShr: "ASHR", And: "AND", Or: "OR", Xor: "XOR",
	ToNumber: "TONUMBER", Neg: "NEG", Not: "NOT", Inc: "INC", Dec: "DEC", Exp: "EXP",
	Eq: "EQ", NotEq: "NOTEQ", StrictEq: "STRICTEQ", StrictNotEq: "STRICTNOTEQ",
	Less: "LESS", LessEq: "LESSEQ", Greater: "GREATER", GreaterEq: "GREATEREQ",
	IsIn: "ISIN", InstanceOf: "INSTANCEOF", IsTrue: "ISTRUE", IsFalse: "ISFALSE",
	SetObjectWithProto: "SETOBJECTWITHPROTO", DelObjProp: "DELOBJPROP",
	LdUndefined: "LDUNDEFINED", LdNull: "LDNULL", LdNumber: "LDNUMBER",
	LdSymbol: "LDSYMBOL", LdString: "LDSTRING",
	LdObjByIndex: "LDOBJBYINDEX", LdObjByName: "LDOBJBYNAME", LdObjByValue: "LDOBJBYVALUE",
	LdGlobalVar: "LDGLOBALVAR", StGlobalVar: "STGLOBALVAR",
	ThrowDyn: "THROWDYN", TypeOf: "TYPEOF", GetNextPropName: "GETNEXTPROPNAME",
	DefineGetterSetterByValue: "DEFINEGETTERSETTERBYVALUE",
	NewObjSpread:              "NEWOBJSPREAD", NewObjDynRange: "NEWOBJDYNRANGE",
	SuperCall: "SUPERCALL", CallFunction: "CALLFUNCTION",
	AddFast: "ADDFAST", NewObjWithClass: "NEWOBJWITHCLASS",
}

// Kind classifies how a stub is invoked: a fast intrinsic call with a fixed
// C-ABI-like signature, or a full runtime dispatch through the VM.
type Kind uint8

const (
	KindNormal Kind = iota
	KindRuntime
)

// Descriptor is the calling convention a Table entry describes.
type Descriptor struct {
	Return circuit.MachineType
	Params []circuit.MachineType
	Kind   Kind
}

// Table maps a stub ID to its Descriptor. Entries absent from the table are
// calls lowering has no specialized knowledge of.
type Table map[ID]Descriptor

// Describe looks up id, reporting whether the table has an entry for it.
func (t Table) Describe(id ID) (Descriptor, bool) {
	d, ok := t[id]
	return d, ok
}

// DefaultTable returns representative descriptors for every ID this
// package names. Dynamic-language values are boxed, so every operand and
// result is AnyValue except where the operation is already known to
// produce a machine boolean or a machine number.
func DefaultTable() Table {
	any1 := []circuit.MachineType{circuit.AnyValue}
	any2 := []circuit.MachineType{circuit.AnyValue, circuit.AnyValue}

	t := Table{
		Add: {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		Sub: {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		Mul: {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		Div: {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		Mod: {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		Shl: {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		Shr: {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		AShr: {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		And:  {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		Or:   {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		Xor:  {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		ToNumber: {Return: circuit.AnyValue, Params: any1, Kind: KindRuntime},
		Neg:      {Return: circuit.AnyValue, Params: any1, Kind: KindRuntime},
		Not:      {Return: circuit.AnyValue, Params: any1, Kind: KindRuntime},
		Inc:      {Return: circuit.AnyValue, Params: any1, Kind: KindRuntime},
		Dec:      {Return: circuit.AnyValue, Params: any1, Kind: KindRuntime},
		Exp:      {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},

		Eq: {Return: circuit.I1, Params: any2, Kind: KindNormal},
		NotEq: {Return: circuit.I1, Params: any2, Kind: KindNormal},
		StrictEq: {Return: circuit.I1, Params: any2, Kind: KindNormal},
		StrictNotEq: {Return: circuit.I1, Params: any2, Kind: KindNormal},
		Less: {Return: circuit.I1, Params: any2, Kind: KindNormal},
		LessEq: {Return: circuit.I1, Params: any2, Kind: KindNormal},
		Greater: {Return: circuit.I1, Params: any2, Kind: KindNormal},
		GreaterEq: {Return: circuit.I1, Params: any2, Kind: KindNormal},
		IsIn: {Return: circuit.I1, Params: any2, Kind: KindRuntime},
		InstanceOf: {Return: circuit.I1, Params: any2, Kind: KindRuntime},
		IsTrue:  {Return: circuit.I1, Params: any1, Kind: KindNormal},
		IsFalse: {Return: circuit.I1, Params: any1, Kind: KindNormal},
		SetObjectWithProto: {Return: circuit.I1, Params: any2, Kind: KindRuntime},
		DelObjProp:         {Return: circuit.I1, Params: any2, Kind: KindRuntime},

		LdUndefined: {Return: circuit.AnyValue, Kind: KindNormal},
		LdNull:      {Return: circuit.AnyValue, Kind: KindNormal},
		LdNumber:    {Return: circuit.AnyValue, Kind: KindNormal},
		LdSymbol:    {Return: circuit.AnyValue, Kind: KindRuntime},
		LdString:    {Return: circuit.AnyValue, Kind: KindNormal},
		LdObjByIndex: {Return: circuit.AnyValue, Params: []circuit.MachineType{circuit.AnyValue, circuit.I32}, Kind: KindRuntime},
		LdObjByName:  {Return: circuit.AnyValue, Params: []circuit.MachineType{circuit.I32, circuit.AnyValue}, Kind: KindRuntime},
		LdObjByValue: {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		LdGlobalVar:  {Return: circuit.AnyValue, Params: []circuit.MachineType{circuit.I32}, Kind: KindRuntime},
		StGlobalVar:  {Return: circuit.AnyValue, Params: []circuit.MachineType{circuit.I32, circuit.AnyValue}, Kind: KindRuntime},

		ThrowDyn: {Return: circuit.NoValue, Params: any1, Kind: KindRuntime},
		TypeOf:   {Return: circuit.AnyValue, Params: any1, Kind: KindRuntime},
		GetNextPropName: {Return: circuit.AnyValue, Params: any1, Kind: KindRuntime},
		DefineGetterSetterByValue: {Return: circuit.AnyValue, Params: []circuit.MachineType{circuit.AnyValue, circuit.AnyValue, circuit.AnyValue, circuit.AnyValue}, Kind: KindRuntime},
		NewObjSpread:   {Return: circuit.AnyValue, Params: any2, Kind: KindRuntime},
		NewObjDynRange: {Return: circuit.AnyValue, Params: any1, Kind: KindRuntime},
		SuperCall:      {Return: circuit.AnyValue, Params: any1, Kind: KindRuntime},
		CallFunction:   {Return: circuit.AnyValue, Params: any1, Kind: KindRuntime},

		AddFast: {Return: circuit.F64, Params: []circuit.MachineType{circuit.F64, circuit.F64}, Kind: KindNormal},
		NewObjWithClass: {Return: circuit.AnyValue, Params: []circuit.MachineType{circuit.AnyValue, circuit.I64}, Kind: KindNormal},
	}
	return t
}
