package ssa

import (
	"testing"

	"github.com/user-none/gosea/circuit"
)

func TestDiamondMergeBuildsSelector(t *testing.T) {
	c := circuit.NewCircuit(circuit.DefaultOptions())
	b := circuit.NewBuilder(c)
	mgr := NewManager(c)

	x := mgr.NewVariable("x", circuit.I32)

	entry := mgr.EntryLabel()
	entry.Write(x, b.ConstantI32(0))
	mgr.Bind(entry)

	trueLabel := mgr.NewLabel(1)
	falseLabel := mgr.NewLabel(1)
	cond := b.Arg(0)
	c.SetMachineType(cond, circuit.I1)
	mgr.Branch(cond, trueLabel, falseLabel)

	mgr.Bind(trueLabel)
	c2 := b.ConstantI32(2)
	trueLabel.Write(x, c2)
	join := mgr.NewLabel(2)
	mgr.Jump(join)

	mgr.Bind(falseLabel)
	c3 := b.ConstantI32(3)
	falseLabel.Write(x, c3)
	mgr.Jump(join)

	if !join.Sealed() {
		t.Fatal("expected join to be sealed once both arms jumped in")
	}
	mgr.Bind(join)
	got := join.Read(x)
	if c.Opcode(got) != circuit.OpValueSelector {
		t.Fatalf("expected a VALUE_SELECTOR at the join, got %s", c.Opcode(got))
	}
	if err := circuit.Verify(c); err != nil {
		t.Fatalf("expected diamond to verify, got %v", err)
	}
}

func TestDiamondSameValueCollapsesToTrivialPhi(t *testing.T) {
	c := circuit.NewCircuit(circuit.DefaultOptions())
	b := circuit.NewBuilder(c)
	mgr := NewManager(c)

	x := mgr.NewVariable("x", circuit.I32)

	entry := mgr.EntryLabel()
	shared := b.ConstantI32(7)
	entry.Write(x, shared)
	mgr.Bind(entry)

	trueLabel := mgr.NewLabel(1)
	falseLabel := mgr.NewLabel(1)
	cond := b.Arg(0)
	c.SetMachineType(cond, circuit.I1)
	mgr.Branch(cond, trueLabel, falseLabel)

	join := mgr.NewLabel(2)
	mgr.Bind(trueLabel)
	mgr.Jump(join)
	mgr.Bind(falseLabel)
	mgr.Jump(join)

	mgr.Bind(join)
	got := join.Read(x)
	if got != shared {
		t.Fatalf("expected trivial phi to collapse to the shared constant, got ref %d (op %s)", got, c.Opcode(got))
	}
}

func TestLoopHeadIncompletePhiResolvesOnLoopEnd(t *testing.T) {
	c := circuit.NewCircuit(circuit.DefaultOptions())
	b := circuit.NewBuilder(c)
	mgr := NewManager(c)

	i := mgr.NewVariable("i", circuit.I32)

	entry := mgr.EntryLabel()
	zero := b.ConstantI32(0)
	entry.Write(i, zero)
	mgr.Bind(entry)

	head := mgr.NewLoopHead()
	mgr.Jump(head)

	mgr.Bind(head)
	if head.Sealed() {
		t.Fatal("expected loop head to be unsealed before its back edge arrives")
	}
	cur := head.Read(i) // incomplete phi: entry-side filled, back-edge a hole
	if c.Opcode(cur) != circuit.OpValueSelector {
		t.Fatalf("expected an incomplete VALUE_SELECTOR, got %s", c.Opcode(cur))
	}

	one := b.ConstantI32(1)
	next := b.Add(cur, one)
	head.Write(i, next)

	mgr.LoopEnd(head)
	if !head.Sealed() {
		t.Fatal("expected loop head to seal once its back edge is wired")
	}

	finalRef := head.Read(i)
	if finalRef != cur {
		t.Fatalf("expected the same selector identity to persist across seal, got %d vs %d", finalRef, cur)
	}
	if c.GetIn(cur, 1) != zero {
		t.Fatalf("expected operand 0 to be the entry value")
	}
	if c.GetIn(cur, 2) != next {
		t.Fatalf("expected operand 1 to be the back-edge value")
	}
	if err := circuit.Verify(c); err != nil {
		t.Fatalf("expected loop circuit to verify, got %v", err)
	}
}
