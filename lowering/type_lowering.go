package lowering

import (
	"github.com/user-none/gosea/circuit"
	"github.com/user-none/gosea/runtimestub"
	"github.com/user-none/gosea/typeinfer"
)

// RunTypeDirected performs type-directed lowering (spec §4.I) over every
// JS_BYTECODE gate in c whose operand types typeinfer (spec §4.H) refined
// beyond AnyType: each such gate is rewritten into a specialized fast-path
// call plus the standard success/exception control-flow split, spliced in
// via ReplaceHIR. A gate whose operands are not sufficiently refined, or
// whose stub id this pass has no specialized rule for, is left untouched
// for generic slow-path lowering (Run, spec §4.K) to handle afterward.
//
// Grounded on TypeLowering::RunTypeLowering/Lower, generalized the same
// way as Run: the original dispatches on a concrete EcmaOpcode
// (NEWOBJDYNRANGE) and consults a TSLoader-owned hidden-class index map to
// pick a hidden class for the AotNewObjWithIHClass fast path. Hidden
// classes are runtime object-model machinery, explicitly out of scope
// (spec §1), so the class-kind case here carries the TypeHandle itself as
// the fast call's second argument rather than an hclass index, and the
// ADD case (absent from the original's single demonstrated rule, added
// here per spec §4.I's "for each gate whose input types are sufficiently
// refined") substitutes a numeric fast-add for ADD2DYN's generic dispatch
// when both operands already typed Number.
func RunTypeDirected(c *circuit.Circuit) error {
	b := circuit.NewBuilder(c)
	n := c.NumGates()
	for ref := circuit.GateRef(0); int(ref) < n; ref++ {
		if c.Opcode(ref) != circuit.OpJSBytecode {
			continue
		}
		if err := lowerTyped(c, b, ref); err != nil {
			return err
		}
	}
	return nil
}

func lowerTyped(c *circuit.Circuit, b *circuit.CircuitBuilder, gate circuit.GateRef) error {
	id := runtimestub.ID(b.BytecodeStubID(gate))
	switch id {
	case runtimestub.Add:
		return lowerTypedAdd(c, b, gate)
	case runtimestub.NewObjDynRange:
		return lowerTypedNewObj(c, b, gate)
	default:
		return nil
	}
}

func operandType(c *circuit.Circuit, ref circuit.GateRef) (typeinfer.Type, bool) {
	t, ok := c.GateType(ref).(typeinfer.Type)
	return t, ok
}

// lowerTypedAdd rewrites ADD into a machine-float fast add when both
// operands are already known Number, skipping the dynamic dispatch a
// generic ADD2DYN call would need to perform at every call site.
func lowerTypedAdd(c *circuit.Circuit, b *circuit.CircuitBuilder, gate circuit.GateRef) error {
	ops := b.BytecodeOperands(gate)
	if len(ops) != 2 {
		return nil
	}
	lhsType, ok := operandType(c, ops[0])
	if !ok || !lhsType.IsNumber() {
		return nil
	}
	rhsType, ok := operandType(c, ops[1])
	if !ok || !rhsType.IsNumber() {
		return nil
	}

	dependPlaceholder := c.GetCircuitRoot(circuit.DependEntryTag)
	call := b.NoGCRuntimeCall(dependPlaceholder, uint64(runtimestub.AddFast), ops)
	c.SetMachineType(call, circuit.F64)
	return ReplaceHIR(c, b, gate, call)
}

// lowerTypedNewObj rewrites NEWOBJDYNRANGE into a fast object-construction
// call when the constructor operand's type is refined to a class kind,
// carrying the class's TypeHandle as the call's class-identity argument.
func lowerTypedNewObj(c *circuit.Circuit, b *circuit.CircuitBuilder, gate circuit.GateRef) error {
	ops := b.BytecodeOperands(gate)
	if len(ops) == 0 {
		return nil
	}
	ctorType, ok := operandType(c, ops[0])
	if !ok || !ctorType.IsClassKind() {
		return nil
	}

	classHandle := b.ConstantI64(int64(ctorType.Handle()))
	args := append(append([]circuit.GateRef{}, ops...), classHandle)

	dependPlaceholder := c.GetCircuitRoot(circuit.DependEntryTag)
	call := b.NoGCRuntimeCall(dependPlaceholder, uint64(runtimestub.NewObjWithClass), args)
	c.SetMachineType(call, circuit.AnyValue)
	return ReplaceHIR(c, b, gate, call)
}
