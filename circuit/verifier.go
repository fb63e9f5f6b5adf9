package circuit

import "fmt"

// Diagnostic names the offending gate and input index a verifier check
// failed on, plus a human-readable message.
type Diagnostic struct {
	Gate    GateRef
	GateOp  OpCode
	InIndex int // -1 if the failure is not about a specific input
	Message string
}

func (d Diagnostic) Error() string {
	if d.InIndex >= 0 {
		return fmt.Sprintf("gate %d (%s) input %d: %s", d.Gate, d.GateOp, d.InIndex, d.Message)
	}
	return fmt.Sprintf("gate %d (%s): %s", d.Gate, d.GateOp, d.Message)
}

// Verify walks every gate in c and checks it against its opcode's static
// contract (spec §4.D). It returns the first violation found, wrapped in
// ErrVerifierFailed, or nil if every checked invariant (I2-I6) holds. I1,
// the in/out edge mirroring, is maintained by the mutation API and is not
// re-checked here.
func Verify(c *Circuit) error {
	n := c.NumGates()
	useCount := make(map[GateRef]int, n)

	for ref := GateRef(0); int(ref) < n; ref++ {
		op := c.Opcode(ref)
		if op == OpNop {
			// I6: a NOP must have no users. Checked once all gates are
			// scanned, below.
			continue
		}

		bitfield := c.Bitfield(ref)
		wantState, wantDepend, wantValue, wantRoot := Arity(op, bitfield)
		ins := c.InVector(ref)
		if len(ins) != wantState+wantDepend+wantValue+wantRoot {
			return diagErr(ref, op, -1, fmt.Sprintf(
				"arity mismatch: want %d (state=%d depend=%d value=%d root=%d), have %d",
				wantState+wantDepend+wantValue+wantRoot, wantState, wantDepend, wantValue, wantRoot, len(ins)))
		}

		p := propertiesTable[op]

		// I3: state-edge producer must satisfy the schema at that slot.
		for i := 0; i < wantState; i++ {
			in := ins[i]
			if in == NullGate {
				return diagErr(ref, op, i, "state input must not be null")
			}
			entry := p.State.entryAt(i)
			producerOp := c.Opcode(in)
			if !entry.matches(producerOp) {
				return diagErr(ref, op, i, fmt.Sprintf("expected %s, got %s", entry.describe(), producerOp))
			}
			useCount[in]++
		}

		// I4: selectors' state input is a MERGE/LOOP_BEGIN whose state
		// arity equals this selector's value/depend arity.
		if op == OpValueSelector || op == OpDependSelector {
			mergeRef := ins[0]
			mergeState, _, _, _ := Arity(c.Opcode(mergeRef), c.Bitfield(mergeRef))
			var gotArity int
			if op == OpValueSelector {
				gotArity = wantValue
			} else {
				gotArity = wantDepend
			}
			if mergeState != gotArity {
				return diagErr(ref, op, 0, fmt.Sprintf(
					"selector arity %d does not match merge state arity %d", gotArity, mergeState))
			}
		}

		// depend inputs: count useCount for liveness tracking below, and
		// check invariant 7 (producer has depend input or is DEPEND_ENTRY).
		for i := wantState; i < wantState+wantDepend; i++ {
			in := ins[i]
			if in == NullGate {
				return diagErr(ref, op, i, "depend input must not be null")
			}
			prodOp := c.Opcode(in)
			prodState, prodDepend, _, _ := Arity(prodOp, c.Bitfield(in))
			_ = prodState
			if prodDepend == 0 && prodOp != OpDependEntry {
				return diagErr(ref, op, i, fmt.Sprintf(
					"depend producer %s has no depend input and is not DEPEND_ENTRY", prodOp))
			}
			useCount[in]++
		}

		// value inputs: machine-type check after FLEX resolution (I2).
		for i := 0; i < wantValue; i++ {
			slot := wantState + wantDepend + i
			in := ins[slot]
			if in == NullGate {
				continue // value holes are legal (e.g. an unfilled phi operand mid-construction)
			}
			want := p.Value.typeAt(i)
			got := c.MachineType(in)
			if want != Flex && want != AnyValue && got != want && got != AnyValue {
				return diagErr(ref, op, slot, fmt.Sprintf("expected machine type %s, got %s", want, got))
			}
			useCount[in]++
		}

		// root input.
		if wantRoot == 1 {
			slot := wantState + wantDepend + wantValue
			in := ins[slot]
			if in == NullGate {
				return diagErr(ref, op, slot, "root input must not be null")
			}
			if c.Opcode(in) != rootTagOpcode[p.Root] {
				return diagErr(ref, op, slot, fmt.Sprintf("expected root %s, got %s", p.Root, c.Opcode(in)))
			}
			useCount[in]++
		}

		// I5: IF_BRANCH and JS_BYTECODE have at most two state out-edges.
		if op == OpIfBranch || op == OpJSBytecode {
			if n := stateUserCount(c, ref); n > 2 {
				return diagErr(ref, op, -1, fmt.Sprintf("expected at most 2 state users, got %d", n))
			}
		}

		// Invariant 6: DEPEND_RELAY follows a control-case, never a
		// general merge.
		if op == OpDependRelay {
			pred := c.Opcode(ins[0])
			if pred.IsCFGMerge() {
				return diagErr(ref, op, 0, "DEPEND_RELAY must not follow a general merge")
			}
		}

		// Unique case keys among SWITCH_BRANCH's users (invariant 4).
		if op == OpSwitchBranch {
			if err := checkUniqueCaseKeys(c, ref); err != nil {
				return err
			}
		}
	}

	// I6: a NOP (deleted) gate must have no remaining users.
	for ref := GateRef(0); int(ref) < n; ref++ {
		if c.Opcode(ref) == OpNop {
			for _, uses := range c.OutVector(ref) {
				_ = uses
				return diagErr(ref, OpNop, -1, "NOP gate retains a user")
			}
		}
	}

	return nil
}

func diagErr(ref GateRef, op OpCode, idx int, msg string) error {
	d := Diagnostic{Gate: ref, GateOp: op, InIndex: idx, Message: msg}
	return fmt.Errorf("%w: %s", ErrVerifierFailed, d.Error())
}

func stateUserCount(c *Circuit, ref GateRef) int {
	count := 0
	for _, e := range c.OutVector(ref) {
		userOp := c.Opcode(e.User)
		state, _, _, _ := Arity(userOp, c.Bitfield(e.User))
		if e.Index < state {
			count++
		}
	}
	return count
}

func checkUniqueCaseKeys(c *Circuit, sw GateRef) error {
	seen := make(map[uint64]bool)
	for _, e := range c.OutVector(sw) {
		if c.Opcode(e.User) != OpSwitchCase {
			continue
		}
		key := c.Bitfield(e.User)
		if seen[key] {
			return diagErr(e.User, OpSwitchCase, -1, fmt.Sprintf("duplicate case key %d", key))
		}
		seen[key] = true
	}
	return nil
}
