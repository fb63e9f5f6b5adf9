package sccp

import "github.com/user-none/gosea/circuit"

// Result holds the fixed point computed by Run: every gate's value lattice
// and reachability, queryable after the solver drains its worklist.
type Result struct {
	c          *circuit.Circuit
	values     []Value
	reachable  []bool
	hasValue   []bool
}

// Value returns ref's computed value-lattice element. Gates whose opcode
// carries no value (control gates, stores, ...) always report Top.
func (r *Result) Value(ref circuit.GateRef) Value {
	if !r.hasValue[ref] {
		return Top
	}
	return r.values[ref]
}

// Reachable reports whether ref's state was proven reachable from
// STATE_ENTRY. Value-only gates (no state input) always report false.
func (r *Result) Reachable(ref circuit.GateRef) bool { return r.reachable[ref] }

// Run solves the joint reachability/value lattice to a fixed point over c,
// per spec §4.L. It does not mutate c; pair it with a rewrite pass (not
// part of this package) to materialize its findings.
func Run(c *circuit.Circuit) *Result {
	n := c.NumGates()
	r := &Result{
		c:         c,
		values:    make([]Value, n),
		reachable: make([]bool, n),
		hasValue:  make([]bool, n),
	}
	for i := range r.values {
		r.values[i] = Top
	}

	inWorklist := make([]bool, n)
	var worklist []circuit.GateRef
	push := func(ref circuit.GateRef) {
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

		op := c.Opcode(ref)
		if op == circuit.OpNop {
			continue
		}

		newReach := r.transferReach(ref, op)
		newVal, tracksValue := r.transferValue(ref, op, newReach)

		reachChanged := newReach && !r.reachable[ref]
		valChanged := tracksValue && !valueEqual(meet(r.values[ref], newVal), r.values[ref])

		if reachChanged {
			r.reachable[ref] = true
		}
		if tracksValue {
			r.hasValue[ref] = true
			r.values[ref] = meet(r.values[ref], newVal)
		}

		if reachChanged || valChanged || op.IsCFGMerge() {
			for _, o := range c.OutVector(ref) {
				push(o.User)
			}
		}
	}
	return r
}

func valueEqual(a, b Value) bool { return a.kind == b.kind && a.bits == b.bits }

// transferReach computes whether ref is reachable, given the reachability
// already recorded for its predecessors (monotone: once true, stays true).
func (r *Result) transferReach(ref circuit.GateRef, op circuit.OpCode) bool {
	if r.reachable[ref] {
		return true
	}
	if op == circuit.OpStateEntry {
		return true
	}
	acc := circuit.Accessor(r.c, ref)

	switch op {
	case circuit.OpMerge, circuit.OpLoopBegin:
		for i := 0; i < acc.NumIns(); i++ {
			// MERGE/LOOP_BEGIN's state inputs occupy the whole in-list.
			if pred := acc.GetIn(i); pred != circuit.NullGate && r.reachable[pred] {
				return true
			}
		}
		return false
	case circuit.OpIfTrue, circuit.OpIfFalse:
		branch := acc.GetState(0)
		if !r.reachable[branch] {
			return false
		}
		cond := r.Value(r.c.GetIn(branch, 1))
		wantTrue := op == circuit.OpIfTrue
		switch {
		case cond.IsBot():
			return true
		case cond.IsMid():
			nonZero := cond.Bits() != 0
			return nonZero == wantTrue
		default:
			return false
		}
	case circuit.OpSwitchCase:
		sw := acc.GetState(0)
		if !r.reachable[sw] {
			return false
		}
		idx := r.Value(r.c.GetIn(sw, 1))
		key := r.c.Bitfield(ref)
		switch {
		case idx.IsBot(), idx.IsTop():
			return true
		case idx.IsMid():
			return idx.Bits() == key
		default:
			return false
		}
	case circuit.OpDefaultCase:
		sw := acc.GetState(0)
		return r.reachable[sw]
	default:
		state, _, _, _ := circuit.Arity(op, r.c.Bitfield(ref))
		if state == 0 {
			return false
		}
		pred := acc.GetState(0)
		return pred != circuit.NullGate && r.reachable[pred]
	}
}

// transferValue computes ref's value-lattice contribution. The bool return
// reports whether ref is a value-bearing opcode at all.
func (r *Result) transferValue(ref circuit.GateRef, op circuit.OpCode, reachable bool) (Value, bool) {
	acc := circuit.Accessor(r.c, ref)
	switch op {
	case circuit.OpConstant:
		return Mid(r.c.Bitfield(ref)), true
	case circuit.OpArg:
		return Bot, true
	case circuit.OpValueSelector:
		merge := acc.GetState(0)
		result := Top
		for i := 0; i < acc.NumValueIns(); i++ {
			pred := r.c.GetIn(merge, i)
			predReachable := pred != circuit.NullGate && r.reachable[pred]
			result = meet(result, implies(predReachable, r.Value(acc.GetValueIn(i))))
		}
		return result, true
	case circuit.OpJSBytecode:
		if reachable {
			return Bot, true
		}
		return Top, true
	case circuit.OpAdd, circuit.OpSub, circuit.OpMul,
		circuit.OpAnd, circuit.OpOr, circuit.OpXor:
		return r.binaryArith(ref, op), true
	case circuit.OpEq, circuit.OpNe,
		circuit.OpSLt, circuit.OpSLe, circuit.OpSGt, circuit.OpSGe:
		return r.compare(ref, op), true
	case circuit.OpExp, circuit.OpSDiv, circuit.OpSMod, circuit.OpUDiv, circuit.OpUMod,
		circuit.OpFDiv, circuit.OpFMod, circuit.OpLsl, circuit.OpLsr, circuit.OpAsr,
		circuit.OpULt, circuit.OpULe, circuit.OpUGt, circuit.OpUGe,
		circuit.OpFLt, circuit.OpFLe, circuit.OpFGt, circuit.OpFGe,
		circuit.OpRev,
		circuit.OpZExt, circuit.OpSExt, circuit.OpTrunc,
		circuit.OpSignedIntToFloat, circuit.OpUnsignedIntToFloat,
		circuit.OpFloatToSignedInt, circuit.OpUnsignedFloatToInt,
		circuit.OpBitcast, circuit.OpTaggedToInt64, circuit.OpInt64ToTagged,
		circuit.OpLoad:
		// Value-bearing, like every other opcode in this switch, but not
		// worth constant-folding here: division/modulo risk a fold-time
		// divide by zero, the float families need correctly-rounded float
		// semantics, and Load reads memory this solver does not model. Each
		// stays Top while any value operand is Top and goes BOT otherwise,
		// so a dependent comparison or branch sees "unknowable" instead of
		// staying Top forever. (These gates have no state input, so
		// reachability cannot drive them the way it drives OpJSBytecode.)
		for i := 0; i < acc.NumValueIns(); i++ {
			if r.Value(acc.GetValueIn(i)).IsTop() {
				return Top, true
			}
		}
		return Bot, true
	case circuit.OpReturn:
		return r.Value(acc.GetValueIn(0)), true
	default:
		return Top, false
	}
}

func (r *Result) binaryArith(ref circuit.GateRef, op circuit.OpCode) Value {
	acc := circuit.Accessor(r.c, ref)
	a := r.Value(acc.GetValueIn(0))
	b := r.Value(acc.GetValueIn(1))
	if a.IsBot() || b.IsBot() {
		return Bot
	}
	if a.IsTop() || b.IsTop() {
		return Top
	}
	mt := r.c.MachineType(ref)
	var v uint64
	switch op {
	case circuit.OpAdd:
		v = a.Bits() + b.Bits()
	case circuit.OpSub:
		v = a.Bits() - b.Bits()
	case circuit.OpMul:
		v = a.Bits() * b.Bits()
	case circuit.OpAnd:
		v = a.Bits() & b.Bits()
	case circuit.OpOr:
		v = a.Bits() | b.Bits()
	case circuit.OpXor:
		v = a.Bits() ^ b.Bits()
	}
	return Mid(machineMask(mt, v))
}

func (r *Result) compare(ref circuit.GateRef, op circuit.OpCode) Value {
	acc := circuit.Accessor(r.c, ref)
	a := r.Value(acc.GetValueIn(0))
	b := r.Value(acc.GetValueIn(1))
	if a.IsBot() || b.IsBot() {
		return Bot
	}
	if a.IsTop() || b.IsTop() {
		return Top
	}
	as, bs := int64(a.Bits()), int64(b.Bits())
	var result bool
	switch op {
	case circuit.OpEq:
		result = a.Bits() == b.Bits()
	case circuit.OpNe:
		result = a.Bits() != b.Bits()
	case circuit.OpSLt:
		result = as < bs
	case circuit.OpSLe:
		result = as <= bs
	case circuit.OpSGt:
		result = as > bs
	case circuit.OpSGe:
		result = as >= bs
	}
	if result {
		return Mid(1)
	}
	return Mid(0)
}
