package lowering

import (
	"testing"

	"github.com/user-none/gosea/circuit"
	"github.com/user-none/gosea/runtimestub"
)

// TestReplaceHIRConditionalCollapsesSuccessIntoMerge exercises the
// "conditional call" variant's core control-flow shape: the precondition-
// false arm and the no-exception arm converge on a single MERGE, the old
// IF_SUCCESS node is collapsed away entirely (its users redirected
// straight to that merge), and the old IF_EXCEPTION node becomes the new
// exception branch's IF_TRUE.
func TestReplaceHIRConditionalCollapsesSuccessIntoMerge(t *testing.T) {
	c := circuit.NewCircuit(circuit.DefaultOptions())
	b := circuit.NewBuilder(c)
	state := c.GetCircuitRoot(circuit.StateEntryTag)
	depend := c.GetCircuitRoot(circuit.DependEntryTag)

	arg := b.ConstantI32(1)
	hir := b.JSBytecodeOp(state, depend, uint64(runtimestub.LdObjByIndex), []circuit.GateRef{arg})
	succ := b.IfSuccess(hir)
	exc := b.IfException(hir)

	// A downstream goto from succ, standing in for "whatever follows the
	// success path" — this is what should end up re-parented onto the
	// new merge once IF_SUCCESS collapses.
	afterSucc := b.Goto(succ)

	cond := b.ConstantBool(true)
	dependPlaceholder := c.GetCircuitRoot(circuit.DependEntryTag)
	call := b.NoGCRuntimeCall(dependPlaceholder, uint64(runtimestub.LdObjByIndex), []circuit.GateRef{arg})

	if err := ReplaceHIRConditional(c, b, hir, cond, call); err != nil {
		t.Fatalf("ReplaceHIRConditional failed: %v", err)
	}

	if c.Opcode(hir) != circuit.OpNop {
		t.Errorf("expected the original gate to be deleted, got %s", c.Opcode(hir))
	}
	if c.Opcode(succ) != circuit.OpNop {
		t.Errorf("expected the old IF_SUCCESS to be deleted (collapsed into the merge), got %s", c.Opcode(succ))
	}
	if c.Opcode(exc) != circuit.OpIfTrue {
		t.Errorf("expected the old IF_EXCEPTION to become IF_TRUE, got %s", c.Opcode(exc))
	}

	stateMerge := c.GetIn(afterSucc, 0)
	if c.Opcode(stateMerge) != circuit.OpMerge {
		t.Fatalf("expected afterSucc to now be parented on a MERGE, got %s", c.Opcode(stateMerge))
	}
	preds := c.InVector(stateMerge)
	if len(preds) != 2 {
		t.Fatalf("expected the merge to have 2 predecessors, got %d", len(preds))
	}
	foundExceptionFalse := false
	for _, p := range preds {
		if c.Opcode(p) == circuit.OpIfFalse {
			foundExceptionFalse = true
		}
	}
	if !foundExceptionFalse {
		t.Error("expected one of the merge's predecessors to be the exception-check's IF_FALSE arm")
	}

	if err := circuit.Verify(c); err != nil {
		t.Errorf("Verify failed after conditional hir-to-call lowering: %v", err)
	}
}

// TestDependEdgeBypassesExceptionOnNonMergeControl exercises the fallback
// branch of dependEdgeBypassesException: a DEPEND_RELAY whose control
// input is a single predecessor (not a MERGE/LOOP_BEGIN list) always
// bypasses, since it cannot be attached to the exception arm of a
// multi-predecessor join.
func TestDependEdgeBypassesExceptionOnNonMergeControl(t *testing.T) {
	c := circuit.NewCircuit(circuit.DefaultOptions())
	b := circuit.NewBuilder(c)
	state := c.GetCircuitRoot(circuit.StateEntryTag)
	depend := c.GetCircuitRoot(circuit.DependEntryTag)

	cond := b.ConstantBool(true)
	br := b.IfBranch(state, cond)
	ifTrue := b.IfTrue(br)

	relay := b.DependRelay(ifTrue, depend)
	if !dependEdgeBypassesException(c, relay, 1) {
		t.Error("expected a DEPEND_RELAY with non-merge control to bypass")
	}
}
