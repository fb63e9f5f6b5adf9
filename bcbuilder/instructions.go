package bcbuilder

import "github.com/user-none/gosea/circuit"

// emitInstruction implements spec §4.G step 7's per-bytecode gate
// construction: state/depend thread through the gate the instruction
// produces (or pass through unchanged for pure renames and control-only
// instructions), and every write updates locals so later reads in the
// same block see it before any phi or predecessor value.
func (bb *builder) emitInstruction(
	b *block,
	in Instruction,
	state, depend circuit.GateRef,
	locals map[VReg]circuit.GateRef,
	resolve func(VReg) circuit.GateRef,
) (circuit.GateRef, circuit.GateRef) {
	if in.Kind != KindRestoreRegister && in.Kind != KindResumeGenerator {
		// Any other instruction breaks a run of register restores; only a
		// contiguous run directly preceding a resume point counts as its
		// restore chain (see restoreChainStart's doc comment in build.go).
		bb.restoreChainStart = circuit.NullGate
	}

	switch in.Kind {
	case KindConst:
		v := bb.b.ConstantBits(in.ConstBits, in.ConstType)
		bb.write(in, locals, v)
		return state, depend

	case KindMove:
		v := resolve(in.Reads[0])
		bb.write(in, locals, v)
		return state, depend

	case KindJump:
		return state, depend

	case KindJumpIfZero, KindJumpIfNotZero:
		operand := resolve(in.Reads[0])
		mt := bb.c.MachineType(operand)
		zero := bb.b.ConstantBits(0, mt)
		var cond circuit.GateRef
		if in.Kind == KindJumpIfZero {
			cond = bb.b.Eq(operand, zero)
		} else {
			cond = bb.b.Ne(operand, zero)
		}
		branch := bb.b.IfBranch(state, cond)
		taken := bb.b.IfTrue(branch)
		fall := bb.b.IfFalse(branch)
		bb.branchArms[b] = [2]circuit.GateRef{taken, fall}
		return branch, depend

	case KindReturn:
		ret := bb.b.Return(state, depend, resolve(in.Reads[0]))
		return ret, depend

	case KindReturnUndefined:
		ret := bb.b.Return(state, depend, bb.b.Undefined())
		return ret, depend

	case KindThrow:
		th := bb.b.Throw(state, depend, resolve(in.Reads[0]))
		return th, depend

	case KindRestoreRegister:
		gate := bb.b.RestoreRegister(depend, in.ConstBits)
		if bb.restoreChainStart == circuit.NullGate {
			bb.restoreChainStart = gate
		}
		bb.write(in, locals, gate)
		return state, gate

	case KindResumeGenerator:
		placeholder := bb.b.Undefined()
		gate := bb.b.ResumeGenerator(state, depend, placeholder, in.Offset)
		bb.resumePoints = append(bb.resumePoints, ResumePoint{Gate: gate, FirstRestore: bb.restoreChainStart})
		bb.restoreChainStart = circuit.NullGate
		bb.write(in, locals, gate)
		return gate, gate

	default: // KindGeneric
		operands := make([]circuit.GateRef, len(in.Reads))
		for i, r := range in.Reads {
			operands[i] = resolve(r)
		}
		gate := bb.b.JSBytecodeOp(state, depend, in.StubID, operands)
		for _, w := range in.Writes {
			locals[w] = gate
		}
		return gate, gate
	}
}

func (bb *builder) write(in Instruction, locals map[VReg]circuit.GateRef, v circuit.GateRef) {
	for _, w := range in.Writes {
		locals[w] = v
	}
}
