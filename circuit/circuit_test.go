package circuit

import (
	"errors"
	"testing"
)

func TestNewCircuitInstallsRoots(t *testing.T) {
	c := NewCircuit(DefaultOptions())
	if c.NumGates() != int(numRootTags) {
		t.Fatalf("expected %d root gates, got %d", numRootTags, c.NumGates())
	}
	for tag := CircuitRootTag; tag < numRootTags; tag++ {
		ref := c.GetCircuitRoot(tag)
		if c.Opcode(ref) != rootTagOpcode[tag] {
			t.Errorf("root %s: expected opcode %s, got %s", tag, rootTagOpcode[tag], c.Opcode(ref))
		}
	}
}

func TestNewGateArityMismatch(t *testing.T) {
	c := NewCircuit(DefaultOptions())
	_, err := c.NewGate(OpAdd, 0, []GateRef{NullGate}, nil) // ADD wants 2 value ins
	if !errors.Is(err, errArityMismatch) {
		t.Fatalf("expected arity mismatch error, got %v", err)
	}
}

func TestArenaExhaustion(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxGates = int(numRootTags) + 1
	c := NewCircuit(opts)
	b := NewBuilder(c)
	b.ConstantI32(1) // fills the one remaining slot
	_, err := c.NewGate(OpConstant, 0, []GateRef{c.GetCircuitRoot(ConstantListTag)}, nil)
	if !errors.Is(err, ErrArenaExhausted) {
		t.Fatalf("expected ErrArenaExhausted, got %v", err)
	}
}

func TestOutEdgesMirrorIns(t *testing.T) {
	c := NewCircuit(DefaultOptions())
	b := NewBuilder(c)
	a := b.ConstantI32(1)
	x := b.ConstantI32(2)
	sum := b.Add(a, x)

	found := false
	for _, o := range c.OutVector(a) {
		if o.User == sum && o.Index == 0 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected out-edge from a to sum at index 0")
	}
}

func TestModifyInRewiresOutEdges(t *testing.T) {
	c := NewCircuit(DefaultOptions())
	b := NewBuilder(c)
	a := b.ConstantI32(1)
	x := b.ConstantI32(2)
	y := b.ConstantI32(3)
	sum := b.Add(a, x)

	if err := c.ModifyIn(sum, 1, y); err != nil {
		t.Fatal(err)
	}
	if c.GetIn(sum, 1) != y {
		t.Fatal("expected slot 1 to now be y")
	}
	for _, o := range c.OutVector(x) {
		if o.User == sum {
			t.Fatal("x should no longer be used by sum")
		}
	}
	found := false
	for _, o := range c.OutVector(y) {
		if o.User == sum && o.Index == 1 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected y to now be used by sum at index 1")
	}
}

func TestDeleteGateRetiresToNopAndDetachesIns(t *testing.T) {
	c := NewCircuit(DefaultOptions())
	b := NewBuilder(c)
	a := b.ConstantI32(1)
	x := b.ConstantI32(2)
	sum := b.Add(a, x)

	c.DeleteGate(sum)
	if c.Opcode(sum) != OpNop {
		t.Fatalf("expected NOP, got %s", c.Opcode(sum))
	}
	for _, o := range c.OutVector(a) {
		if o.User == sum {
			t.Fatal("deleted gate should have been detached from a's out-list")
		}
	}
}

func TestUsesIteratorSurvivesReplaceIn(t *testing.T) {
	c := NewCircuit(DefaultOptions())
	b := NewBuilder(c)
	a := b.ConstantI32(1)
	x := b.ConstantI32(2)
	y := b.ConstantI32(3)
	s1 := b.Add(a, x)
	s2 := b.Add(a, y)

	acc := Accessor(c, a)
	it := acc.Uses()
	seen := 0
	for it.Next() {
		seen++
		if err := ReplaceIn(it, b.ConstantI32(99)); err != nil {
			t.Fatal(err)
		}
	}
	if seen != 2 {
		t.Fatalf("expected to visit 2 uses, saw %d", seen)
	}
	if c.GetIn(s1, 0) == a || c.GetIn(s2, 0) == a {
		t.Fatal("expected both uses of a to be replaced")
	}
}

func TestMarkAdvanceTime(t *testing.T) {
	c := NewCircuit(DefaultOptions())
	b := NewBuilder(c)
	a := b.ConstantI32(1)

	c.SetMark(a)
	if !c.GetMark(a) {
		t.Fatal("expected mark to be set")
	}
	c.AdvanceTime()
	if c.GetMark(a) {
		t.Fatal("expected mark to be stale after AdvanceTime")
	}
}

func TestNewInRequiresNullSlot(t *testing.T) {
	c := NewCircuit(DefaultOptions())
	b := NewBuilder(c)
	head := b.LoopBegin(c.GetCircuitRoot(StateEntryTag))
	if err := c.NewIn(head, 0, c.GetCircuitRoot(StateEntryTag)); !errors.Is(err, errNullInputMisuse) {
		t.Fatalf("expected errNullInputMisuse on a non-null slot, got %v", err)
	}
}
