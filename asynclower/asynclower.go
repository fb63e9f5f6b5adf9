// Package asynclower rebuilds generator and async-function control flow
// around the resume points bcbuilder discovers while translating a method
// body (spec §4.J), grounded on RebuildGeneratorCfg and ProcessJumpTable
// in async_function_lowering.cpp.
package asynclower

import (
	"github.com/user-none/gosea/bcbuilder"
	"github.com/user-none/gosea/circuit"
)

// Run rewrites res.Circuit in place so that a call arriving with a defined
// NEW_TARGET is treated as a resumption rather than a fresh invocation.
//
// A method with no resume points is an ordinary function; Run leaves it
// untouched.
//
// Otherwise every current user of STATE_ENTRY is moved behind a branch on
// `new_target == undefined`. The true arm is the circuit exactly as
// bcbuilder built it: a fresh call proceeds from the top of the method
// body the way it always did, and a RESUME_GENERATOR gate it happens to
// pass through along the way is a harmless no-op producer (nothing on a
// fresh call reads a meaningful "value passed to next()" from it). The
// false arm loads the bytecode offset saved the last time this body
// suspended — read generically off NEW_TARGET itself, since no concrete
// generator object layout is modeled here — and feeds an EQ-test cascade,
// one test per resume point, in the order bcbuilder discovered them. A
// match merges control into that point's RESUME_GENERATOR gate alongside
// its original (fresh-call) predecessor — directly, for a resume point
// outside any loop, or above the outermost loop enclosing it otherwise, so
// the new edge reaches the gate by the same path a fresh call already
// walks through the loop headers in between (see spliceResume) — and
// overwrites the gate's placeholder value input with NEW_TARGET —
// harmlessly equal to undefined on the fresh-call path, and the payload
// passed to next() on the resumed one. A cascade that falls through every
// test returns undefined, per the bail-out behavior circuit_optimizer.cpp
// documents for an offset with no matching case.
//
// Register-restore chains are left on the depend edges bcbuilder already
// gave them. A RESTORE_REGISTER only ever precedes the RESUME_GENERATOR
// it was discovered in front of, so it is already unreachable on any path
// that does not pass through that gate in program order; splicing the
// matched cascade arm in above it is enough to make the restore "happen"
// exactly when this resumption needs it, without a second branch over the
// depend chain.
func Run(res *bcbuilder.BuildResult) error {
	if len(res.ResumePoints) == 0 {
		return nil
	}
	c := res.Circuit
	b := circuit.NewBuilder(c)

	entryState := c.GetCircuitRoot(circuit.StateEntryTag)
	entryDepend := c.GetCircuitRoot(circuit.DependEntryTag)
	newTarget := res.Args.Common(bcbuilder.ArgNewTarget)

	_, resumed, err := splitEntry(c, b, entryState, newTarget)
	if err != nil {
		return err
	}

	offset := b.Load(entryDepend, newTarget, circuit.I32)

	cascade := resumed
	for _, rp := range res.ResumePoints {
		cascade, err = spliceResume(c, b, cascade, offset, newTarget, rp)
		if err != nil {
			return err
		}
	}

	b.Return(cascade, offset, b.Undefined())
	return nil
}

// splitEntry moves every existing STATE_ENTRY user behind an IF_BRANCH on
// `new_target == undefined`, returning the fresh-call and resumed-call
// arms. Uses are drained into a slice before the branch is built, so the
// branch's own edge to entryState is never itself retargeted.
func splitEntry(c *circuit.Circuit, b *circuit.CircuitBuilder, entryState, newTarget circuit.GateRef) (fresh, resumed circuit.GateRef, err error) {
	type origUse struct {
		user circuit.GateRef
		idx  int
	}
	var uses []origUse
	it := circuit.Accessor(c, entryState).Uses()
	for it.Next() {
		e := it.Edge()
		uses = append(uses, origUse{e.User, e.Index})
	}

	isUndefined := b.Eq(newTarget, b.Undefined())
	branch := b.IfBranch(entryState, isUndefined)
	fresh = b.IfTrue(branch)
	resumed = b.IfFalse(branch)

	for _, u := range uses {
		if err := c.ModifyIn(u.user, u.idx, fresh); err != nil {
			return circuit.NullGate, circuit.NullGate, err
		}
	}
	return fresh, resumed, nil
}

// enclosingLoops walks rp's state predecessor chain back toward STATE_ENTRY,
// following each gate's primary (state slot 0) producer, and collects every
// LOOP_BEGIN passed through, innermost first. A LOOP_BEGIN's loop-back input
// (slot 1) is never followed, so the walk is acyclic and always terminates.
//
// Following slot 0 exclusively treats a general MERGE along the way as
// having one canonical predecessor, which is exactly the simplification
// spec.md's design notes license for resume points: at most nested loops
// reached by a single path of LOOP_BEGINs from the entry.
func enclosingLoops(c *circuit.Circuit, state circuit.GateRef) []circuit.GateRef {
	var loops []circuit.GateRef
	for cur := state; cur != circuit.NullGate && c.Opcode(cur) != circuit.OpStateEntry; cur = c.GetIn(cur, 0) {
		if c.Opcode(cur) == circuit.OpLoopBegin {
			loops = append(loops, cur)
		}
	}
	return loops
}

// spliceResume wires one resume point into the dispatch cascade. When the
// point lies inside one or more loops, the matched arm is spliced in at the
// outermost enclosing LOOP_BEGIN's forward entry rather than at the
// RESUME_GENERATOR gate itself: the rest of the path down to the resume
// point is exactly what bcbuilder already built, so threading the new
// predecessor in above it is enough to carry it the rest of the way down
// through any untouched inner loop headers. Splicing there also gives the
// outermost loop an I32 VALUE_SELECTOR recording whether this iteration was
// entered fresh or by a resumption (spec §4.J), built as a selector over the
// selector: one keyed to the merge of the loop's old forward edge with the
// new resume edge, and one keyed to the LOOP_BEGIN itself reporting that
// value on the forward path and a plain "not resumed" constant on the
// loop-back path.
//
// A resume point with no enclosing loop keeps the simpler direct splice:
// the matched arm merges straight into the RESUME_GENERATOR gate's own
// state input.
//
// Either way the gate's placeholder value input is overwritten with the
// payload passed to next(), carried generically in newTarget; a miss
// continues the cascade.
func spliceResume(c *circuit.Circuit, b *circuit.CircuitBuilder, cascade, offset, newTarget circuit.GateRef, rp bcbuilder.ResumePoint) (circuit.GateRef, error) {
	acc := circuit.Accessor(c, rp.Gate)
	origState := acc.GetState(0)

	caseValue := b.ConstantBits(c.Bitfield(rp.Gate), circuit.I32)
	eq := b.Eq(offset, caseValue)
	branch := b.IfBranch(cascade, eq)
	matched := b.IfTrue(branch)
	missed := b.IfFalse(branch)

	loops := enclosingLoops(c, origState)
	if len(loops) == 0 {
		merge := b.Merge([]circuit.GateRef{origState, matched})
		if err := c.ModifyIn(rp.Gate, 0, merge); err != nil {
			return circuit.NullGate, err
		}
	} else {
		head := loops[len(loops)-1]
		oldFwd := c.GetIn(head, 0)
		innerMerge := b.Merge([]circuit.GateRef{oldFwd, matched})
		if err := c.ModifyIn(head, 0, innerMerge); err != nil {
			return circuit.NullGate, err
		}
		resumedFlag := b.ValueSelector(innerMerge, circuit.I32, []circuit.GateRef{b.ConstantI32(0), b.ConstantI32(1)})
		b.ValueSelector(head, circuit.I32, []circuit.GateRef{resumedFlag, b.ConstantI32(0)})
	}

	if err := acc.ReplaceValueIn(0, newTarget); err != nil {
		return circuit.NullGate, err
	}
	return missed, nil
}
