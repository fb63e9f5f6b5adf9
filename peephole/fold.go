package peephole

import "github.com/user-none/gosea/circuit"

// foldConstantBinary rewrites a binary arithmetic/bitwise gate whose two
// value operands are both CONSTANT into a single CONSTANT carrying the
// folded bit pattern, masked to the gate's own machine type.
func foldConstantBinary(c *circuit.Circuit, b *circuit.CircuitBuilder, ref circuit.GateRef) (circuit.GateRef, bool) {
	op := c.Opcode(ref)
	switch op {
	case circuit.OpAdd, circuit.OpSub, circuit.OpMul,
		circuit.OpAnd, circuit.OpOr, circuit.OpXor:
	default:
		return circuit.NullGate, false
	}

	acc := circuit.Accessor(c, ref)
	if acc.NumValueIns() != 2 {
		return circuit.NullGate, false
	}
	lhs, rhs := acc.GetValueIn(0), acc.GetValueIn(1)
	if c.Opcode(lhs) != circuit.OpConstant || c.Opcode(rhs) != circuit.OpConstant {
		return circuit.NullGate, false
	}

	a, bb := c.Bitfield(lhs), c.Bitfield(rhs)
	var v uint64
	switch op {
	case circuit.OpAdd:
		v = a + bb
	case circuit.OpSub:
		v = a - bb
	case circuit.OpMul:
		v = a * bb
	case circuit.OpAnd:
		v = a & bb
	case circuit.OpOr:
		v = a | bb
	case circuit.OpXor:
		v = a ^ bb
	}

	mt := c.MachineType(ref)
	return b.ConstantBits(maskToMachineType(mt, v), mt), true
}

func maskToMachineType(mt circuit.MachineType, v uint64) uint64 {
	switch mt {
	case circuit.I1:
		return v & 0x1
	case circuit.I8:
		return v & 0xff
	case circuit.I16:
		return v & 0xffff
	case circuit.I32:
		return v & 0xffffffff
	default:
		return v
	}
}
