package typeinfer

import (
	"github.com/user-none/gosea/bcbuilder"
	"github.com/user-none/gosea/circuit"
	"github.com/user-none/gosea/runtimestub"
)

// inferer carries the per-run state type_infer.cpp keeps on its TypeInfer
// instance: the circuit and loader every rule consults, plus the
// string-id -> Type correlation a StGlobalVar-family write installs for a
// later LdGlobalVar read of the same global to pick up (spec §4.H gives no
// rule for this; it is carried over from SetStGlobalBcType/InferLdGlobalVar
// because dropping it would make every global read permanently untyped).
type inferer struct {
	c       *circuit.Circuit
	b       *circuit.CircuitBuilder
	loader  TypeLoader
	globals map[uint32]Type
}

// Run implements spec §4.H: forward worklist dataflow over c's eligible
// gates (VALUE_SELECTOR, JS_BYTECODE, CONSTANT, RETURN), annotating each
// with an abstract Type via circuit.Circuit.SetGateType. loader answers
// object-kind type queries (spec §6 item 3); a nil loader is valid and
// simply makes every object-kind rule a no-op (the gate stays untyped).
//
// The original traversal reruns a full BFS over uses from every popped
// worklist entry, re-clearing a visited bitmap each time; that is
// quadratic and adds nothing a single shared worklist doesn't already
// give, so this seeds the worklist with every gate once (mirroring the
// sccp package's worklist idiom) instead of replaying the nested BFS.
func Run(c *circuit.Circuit, loader TypeLoader) {
	inf := &inferer{
		c:       c,
		b:       circuit.NewBuilder(c),
		loader:  loader,
		globals: make(map[uint32]Type),
	}
	inf.run()
}

func (inf *inferer) run() {
	n := inf.c.NumGates()
	inWorklist := make([]bool, n)
	var worklist []circuit.GateRef
	push := func(ref circuit.GateRef) {
		if ref == circuit.NullGate || int(ref) >= n {
			return
		}
		if !inWorklist[ref] {
			inWorklist[ref] = true
			worklist = append(worklist, ref)
		}
	}
	for ref := circuit.GateRef(0); int(ref) < n; ref++ {
		push(ref)
	}

	for len(worklist) > 0 {
		ref := worklist[0]
		worklist = worklist[1:]
		inWorklist[ref] = false

		if !eligible(inf.c, ref) {
			continue
		}
		if inf.infer(ref) {
			for _, o := range inf.c.OutVector(ref) {
				push(o.User)
			}
		}
	}
}

func eligible(c *circuit.Circuit, ref circuit.GateRef) bool {
	switch c.Opcode(ref) {
	case circuit.OpValueSelector, circuit.OpJSBytecode, circuit.OpConstant, circuit.OpReturn:
		return true
	default:
		return false
	}
}

func (inf *inferer) infer(ref circuit.GateRef) bool {
	switch inf.c.Opcode(ref) {
	case circuit.OpValueSelector:
		return inf.inferPhi(ref)
	case circuit.OpConstant:
		return inf.inferConstant(ref)
	case circuit.OpReturn:
		return inf.inferReturn(ref)
	case circuit.OpJSBytecode:
		return inf.inferBytecode(ref)
	default:
		return false
	}
}

// currentType returns ref's existing annotation, or Any if none has been
// set yet (an untyped gate and an explicitly-Any gate are indistinguishable
// to every rule that only wants to know "do I already know something more
// specific than nothing").
func currentType(c *circuit.Circuit, ref circuit.GateRef) Type {
	if t, ok := c.GateType(ref).(Type); ok {
		return t
	}
	return Any()
}

func (inf *inferer) updateType(ref circuit.GateRef, t Type) bool {
	if currentType(inf.c, ref).Equal(t) {
		return false
	}
	inf.c.SetGateType(ref, t)
	return true
}

// inferPhi implements spec §4.H's VALUE_SELECTOR rule: the type is the
// union of operand types, capped at Any the moment any operand is Any,
// grounded on TypeInfer::InferPhiGate.
func (inf *inferer) inferPhi(ref circuit.GateRef) bool {
	a := circuit.Accessor(inf.c, ref)
	n := a.NumValueIns()
	var members []Type
	for i := 0; i < n; i++ {
		in := a.GetValueIn(i)
		if in == circuit.NullGate {
			continue // operand not wired yet (deferred loop-back phi slot)
		}
		t, ok := inf.c.GateType(in).(Type)
		if !ok {
			continue // producer not typed yet
		}
		if t.IsAny() {
			return inf.updateType(ref, Any())
		}
		members = appendUnique(members, t)
	}
	if len(members) == 0 {
		return false
	}
	return inf.updateType(ref, union(members))
}

func appendUnique(types []Type, t Type) []Type {
	for _, existing := range types {
		if existing.Equal(t) {
			return types
		}
	}
	return append(types, t)
}

// inferConstant assigns a type from the gate's own machine type and
// sentinel bit pattern, substituting for type_infer.cpp's dispatch on the
// originating ecma.* literal opcode (LDAI_DYN_IMM32, LDA_STR_ID32, ...): a
// generic bytecode model (spec §1 non-goal) has no such opcode to dispatch
// on, but CircuitBuilder.ConstantBits already records the same information
// directly on the gate.
func (inf *inferer) inferConstant(ref circuit.GateRef) bool {
	switch {
	case inf.b.IsUndefined(ref):
		return inf.updateType(ref, Undefined())
	case inf.b.IsNullConst(ref):
		return inf.updateType(ref, Null())
	}
	switch inf.c.MachineType(ref) {
	case circuit.I1:
		return inf.updateType(ref, Boolean())
	case circuit.I32, circuit.I64, circuit.F32, circuit.F64:
		return inf.updateType(ref, Number())
	default:
		return false
	}
}

// inferReturn implements InferReturnDyn: a RETURN gate's type is its
// returned value's type (this also covers "return undefined", since
// bcbuilder lowers KindReturnUndefined to Return(..., Undefined())).
func (inf *inferer) inferReturn(ref circuit.GateRef) bool {
	a := circuit.Accessor(inf.c, ref)
	v := a.GetValueIn(0)
	t, ok := inf.c.GateType(v).(Type)
	if !ok {
		return false
	}
	return inf.updateType(ref, t)
}

func (inf *inferer) inferBytecode(ref circuit.GateRef) bool {
	id := runtimestub.ID(inf.b.BytecodeStubID(ref))
	ops := inf.b.BytecodeOperands(ref)
	operandType := func(i int) (Type, bool) {
		if i >= len(ops) {
			return Type{}, false
		}
		t, ok := inf.c.GateType(ops[i]).(Type)
		return t, ok
	}

	switch id {
	case runtimestub.Add:
		return inf.inferAdd(ref, operandType)

	case runtimestub.Sub, runtimestub.Mul, runtimestub.Div, runtimestub.Mod,
		runtimestub.Shl, runtimestub.Shr, runtimestub.AShr,
		runtimestub.And, runtimestub.Or, runtimestub.Xor,
		runtimestub.ToNumber, runtimestub.Neg, runtimestub.Not,
		runtimestub.Inc, runtimestub.Dec, runtimestub.Exp:
		return inf.updateType(ref, Number())

	case runtimestub.Eq, runtimestub.NotEq, runtimestub.StrictEq, runtimestub.StrictNotEq,
		runtimestub.Less, runtimestub.LessEq, runtimestub.Greater, runtimestub.GreaterEq,
		runtimestub.IsIn, runtimestub.InstanceOf, runtimestub.IsTrue, runtimestub.IsFalse,
		runtimestub.SetObjectWithProto, runtimestub.DelObjProp:
		return inf.updateType(ref, Boolean())

	case runtimestub.LdUndefined:
		return inf.updateType(ref, Undefined())
	case runtimestub.LdNull:
		return inf.updateType(ref, Null())
	case runtimestub.LdNumber:
		return inf.updateType(ref, Number())
	case runtimestub.LdSymbol:
		return inf.updateType(ref, Symbol())
	case runtimestub.LdString:
		return inf.updateType(ref, String())

	case runtimestub.ThrowDyn, runtimestub.TypeOf, runtimestub.DefineGetterSetterByValue:
		// Propagates its single operand's type unchanged, matching
		// InferThrowDyn/InferTypeOfDyn/InferDefineGetterSetterByValue.
		if t, ok := operandType(0); ok {
			return inf.updateType(ref, t)
		}
		return false

	case runtimestub.LdObjByIndex:
		return inf.inferLdObjByIndex(ref, operandType)
	case runtimestub.LdObjByName:
		return inf.inferLdObjByName(ref, ops)
	case runtimestub.LdObjByValue:
		return inf.inferLdObjByValue(ref, ops, operandType)
	case runtimestub.LdGlobalVar:
		return inf.inferLdGlobalVar(ref, ops)
	case runtimestub.StGlobalVar:
		return inf.inferStGlobalVar(ref, ops, operandType)

	case runtimestub.GetNextPropName:
		return inf.updateType(ref, String())

	case runtimestub.NewObjSpread:
		if !currentType(inf.c, ref).IsAny() {
			return false
		}
		if t, ok := operandType(0); ok {
			return inf.updateType(ref, t)
		}
		return false

	case runtimestub.NewObjDynRange:
		if !currentType(inf.c, ref).IsAny() || len(ops) == 0 {
			return false
		}
		if t, ok := operandType(0); ok {
			return inf.updateType(ref, t)
		}
		return false

	case runtimestub.SuperCall:
		return inf.inferSuperCall(ref)
	case runtimestub.CallFunction:
		return inf.inferCallFunction(ref, operandType)

	default:
		return false
	}
}

// inferAdd implements InferAdd2Dyn: either operand a string makes the sum a
// string (JS string concatenation), both numeric makes it a number,
// otherwise the result stays untyped (Any).
func (inf *inferer) inferAdd(ref circuit.GateRef, operandType func(int) (Type, bool)) bool {
	lhs, lok := operandType(0)
	rhs, rok := operandType(1)
	if lok && lhs.IsString() || rok && rhs.IsString() {
		return inf.updateType(ref, String())
	}
	if lok && rok && lhs.IsNumber() && rhs.IsNumber() {
		return inf.updateType(ref, Number())
	}
	return inf.updateType(ref, Any())
}

func (inf *inferer) inferLdObjByIndex(ref circuit.GateRef, operandType func(int) (Type, bool)) bool {
	obj, ok := operandType(0)
	if !ok || !obj.IsArrayKind() || inf.loader == nil {
		return false
	}
	return inf.updateType(ref, inf.loader.ArrayElementType(obj.Handle()))
}

// inferLdObjByName mirrors InferLdObjByName's operand order: operand 0 is
// the property-name string-id constant, operand 1 is the object.
func (inf *inferer) inferLdObjByName(ref circuit.GateRef, ops []circuit.GateRef) bool {
	if len(ops) < 2 || inf.loader == nil {
		return false
	}
	obj, ok := inf.c.GateType(ops[1]).(Type)
	if !ok || !obj.IsClassKind() {
		return false
	}
	if inf.c.Opcode(ops[0]) != circuit.OpConstant {
		return false
	}
	name := inf.loader.StringByIndex(uint32(inf.c.Bitfield(ops[0])))
	return inf.updateType(ref, inf.loader.PropertyType(obj.Handle(), name))
}

// inferLdObjByValue handles both the array-index and the
// constant-property-key shapes of InferLdObjByValue.
func (inf *inferer) inferLdObjByValue(ref circuit.GateRef, ops []circuit.GateRef, operandType func(int) (Type, bool)) bool {
	obj, ok := operandType(0)
	if !ok || inf.loader == nil {
		return false
	}
	if obj.IsArrayKind() {
		return inf.updateType(ref, inf.loader.ArrayElementType(obj.Handle()))
	}
	if obj.IsClassKind() && len(ops) >= 2 && inf.c.Opcode(ops[1]) == circuit.OpConstant {
		name := inf.loader.StringByIndex(uint32(inf.c.Bitfield(ops[1])))
		return inf.updateType(ref, inf.loader.PropertyType(obj.Handle(), name))
	}
	return false
}

// inferStGlobalVar implements SetStGlobalBcType: operand 0 is the
// global-name string-id constant, operand 1 the stored value; the gate's
// own type, and the recorded global, both become the value's type.
func (inf *inferer) inferStGlobalVar(ref circuit.GateRef, ops []circuit.GateRef, operandType func(int) (Type, bool)) bool {
	if len(ops) < 2 {
		return false
	}
	val, ok := operandType(1)
	if !ok {
		return false
	}
	index := uint32(inf.c.Bitfield(ops[0]))
	inf.globals[index] = val
	return inf.updateType(ref, val)
}

// inferLdGlobalVar implements InferLdGlobalVar: look up the type a prior
// StGlobalVar-family write recorded for the same global-name string id.
func (inf *inferer) inferLdGlobalVar(ref circuit.GateRef, ops []circuit.GateRef) bool {
	if len(ops) < 1 {
		return false
	}
	index := uint32(inf.c.Bitfield(ops[0]))
	t, ok := inf.globals[index]
	if !ok {
		return false
	}
	return inf.updateType(ref, t)
}

// inferSuperCall implements InferSuperCall: the type of the enclosing
// method's NEW_TARGET argument, unless it is Undefined (a non-constructor
// call context).
func (inf *inferer) inferSuperCall(ref circuit.GateRef) bool {
	argGate, ok := findArgGate(inf.c, uint32(bcbuilder.ArgNewTarget))
	if !ok {
		return false
	}
	t := currentType(inf.c, argGate)
	if t.IsUndefined() {
		return false
	}
	return inf.updateType(ref, t)
}

func (inf *inferer) inferCallFunction(ref circuit.GateRef, operandType func(int) (Type, bool)) bool {
	fn, ok := operandType(0)
	if !ok || !fn.IsFunctionKind() || inf.loader == nil {
		return false
	}
	return inf.updateType(ref, inf.loader.FunctionReturnType(fn.Handle()))
}

// findArgGate locates the ARG gate installed at the given common-argument
// index (bcbuilder.NewArgAccessor installs one ARG gate per index off
// ArgListTag), so SuperCall inference can reach the NEW_TARGET argument
// without bcbuilder threading its ArgAccessor through this package.
func findArgGate(c *circuit.Circuit, index uint32) (circuit.GateRef, bool) {
	root := c.GetCircuitRoot(circuit.ArgListTag)
	it := circuit.Accessor(c, root).Uses()
	for it.Next() {
		e := it.Edge()
		if c.Opcode(e.User) == circuit.OpArg && c.Bitfield(e.User) == uint64(index) {
			return e.User, true
		}
	}
	return circuit.NullGate, false
}
