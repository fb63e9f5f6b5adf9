package circuit

import (
	"errors"
	"strings"
	"testing"
)

// buildDiamond builds a minimal if/else-join circuit: a branch on an I1
// argument, two arms each defining a value, and a MERGE + VALUE_SELECTOR at
// the join feeding a RETURN. Mirrors spec scenario S5's shape.
func buildDiamond(t *testing.T) (c *Circuit, merge, sel GateRef) {
	t.Helper()
	c = NewCircuit(DefaultOptions())
	b := NewBuilder(c)

	entry := c.GetCircuitRoot(StateEntryTag)
	dependEntry := c.GetCircuitRoot(DependEntryTag)
	cond := b.Arg(0)
	c.SetMachineType(cond, I1)

	branch := b.IfBranch(entry, cond)
	ifTrue := b.IfTrue(branch)
	ifFalse := b.IfFalse(branch)

	leftVal := b.ConstantI32(1)
	rightVal := b.ConstantI32(2)

	merge = b.Merge([]GateRef{ifTrue, ifFalse})
	sel = b.ValueSelector(merge, I32, []GateRef{leftVal, rightVal})
	ret := b.Return(merge, dependEntry, sel)
	_ = ret
	return c, merge, sel
}

func TestVerifyDiamondPasses(t *testing.T) {
	c, _, _ := buildDiamond(t)
	if err := Verify(c); err != nil {
		t.Fatalf("expected diamond circuit to verify, got %v", err)
	}
}

func TestVerifyCatchesBrokenSelector(t *testing.T) {
	c, merge, sel := buildDiamond(t)
	_ = merge

	b := NewBuilder(c)
	entry := c.GetCircuitRoot(StateEntryTag)
	cond := b.Arg(1)
	c.SetMachineType(cond, I1)
	branch := b.IfBranch(entry, cond)
	ifTrue := b.IfTrue(branch)

	// Break invariant I4: point the selector's state input at an IF_TRUE
	// instead of a MERGE/LOOP_BEGIN.
	if err := c.ModifyIn(sel, 0, ifTrue); err != nil {
		t.Fatal(err)
	}

	err := Verify(c)
	if err == nil {
		t.Fatal("expected verifier to fail")
	}
	if !errors.Is(err, ErrVerifierFailed) {
		t.Fatalf("expected ErrVerifierFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "input 0") || !strings.Contains(err.Error(), "MERGE|LOOP_BEGIN") {
		t.Fatalf("expected diagnostic naming input 0 and MERGE|LOOP_BEGIN, got: %v", err)
	}
}

func TestVerifyCatchesDuplicateCaseKeys(t *testing.T) {
	c := NewCircuit(DefaultOptions())
	b := NewBuilder(c)
	entry := c.GetCircuitRoot(StateEntryTag)
	idx := b.ConstantI32(0)

	sw := b.SwitchBranch(entry, idx, 2)
	b.SwitchCase(sw, 1)
	b.SwitchCase(sw, 1) // duplicate key

	err := Verify(c)
	if err == nil || !strings.Contains(err.Error(), "duplicate case key") {
		t.Fatalf("expected duplicate case key diagnostic, got %v", err)
	}
}

func TestVerifyCatchesTooManyStateUsers(t *testing.T) {
	c := NewCircuit(DefaultOptions())
	b := NewBuilder(c)
	entry := c.GetCircuitRoot(StateEntryTag)
	cond := b.Arg(0)
	c.SetMachineType(cond, I1)
	branch := b.IfBranch(entry, cond)
	b.IfTrue(branch)
	b.IfFalse(branch)
	b.Goto(branch) // third state user of an IF_BRANCH: illegal per I5

	err := Verify(c)
	if err == nil || !strings.Contains(err.Error(), "at most 2 state users") {
		t.Fatalf("expected fan-out diagnostic, got %v", err)
	}
}

func TestVerifyCatchesNopWithUsers(t *testing.T) {
	c, _, sel := buildDiamond(t)
	// DeleteGate normally detaches every in-edge first; simulate a caller
	// that forgot to retarget users before deleting.
	c.SetOpcode(sel, OpNop)

	err := Verify(c)
	if err == nil || !strings.Contains(err.Error(), "NOP gate retains a user") {
		t.Fatalf("expected NOP-with-users diagnostic, got %v", err)
	}
}
