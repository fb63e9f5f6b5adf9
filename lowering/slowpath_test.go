package lowering

import (
	"testing"

	"github.com/user-none/gosea/circuit"
	"github.com/user-none/gosea/runtimestub"
)

// buildAddWithSuccessAndException builds a single ADD2DYN-style
// JS_BYTECODE gate with both an IF_SUCCESS and an IF_EXCEPTION user,
// mirroring spec §8 S3's fixture exactly.
func buildAddWithSuccessAndException() (*circuit.Circuit, *circuit.CircuitBuilder, circuit.GateRef, circuit.GateRef, circuit.GateRef) {
	c := circuit.NewCircuit(circuit.DefaultOptions())
	b := circuit.NewBuilder(c)
	state := c.GetCircuitRoot(circuit.StateEntryTag)
	depend := c.GetCircuitRoot(circuit.DependEntryTag)

	lhs := b.ConstantI32(1)
	rhs := b.ConstantI32(2)
	add := b.JSBytecodeOp(state, depend, uint64(runtimestub.Add), []circuit.GateRef{lhs, rhs})

	succ := b.IfSuccess(add)
	exc := b.IfException(add)
	return c, b, add, succ, exc
}

// TestSlowPathPreservesControl is spec §8 S3: after slow-path lowering,
// the bytecode is replaced by a runtime call; the successor that was
// IF_SUCCESS is now wired under IF_FALSE of a new branch on
// call == exception; the IF_EXCEPTION successor is under IF_TRUE. The
// verifier passes.
func TestSlowPathPreservesControl(t *testing.T) {
	c, _, add, succ, exc := buildAddWithSuccessAndException()

	if err := Run(c, runtimestub.DefaultTable()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Opcode(add) != circuit.OpNop {
		t.Errorf("expected the original ADD gate to be deleted, got %s", c.Opcode(add))
	}
	if c.Opcode(succ) != circuit.OpIfFalse {
		t.Errorf("expected the old IF_SUCCESS to become IF_FALSE, got %s", c.Opcode(succ))
	}
	if c.Opcode(exc) != circuit.OpIfTrue {
		t.Errorf("expected the old IF_EXCEPTION to become IF_TRUE, got %s", c.Opcode(exc))
	}

	branch := c.GetIn(succ, 0)
	if branch != c.GetIn(exc, 0) {
		t.Fatal("expected IF_FALSE and IF_TRUE to share the same new IF_BRANCH")
	}
	if c.Opcode(branch) != circuit.OpIfBranch {
		t.Errorf("expected a new IF_BRANCH, got %s", c.Opcode(branch))
	}

	cond := c.GetIn(branch, 1)
	if c.Opcode(cond) != circuit.OpEq {
		t.Errorf("expected the branch condition to be an EQ against the exception sentinel, got %s", c.Opcode(cond))
	}

	call := c.GetIn(cond, 0)
	if c.Opcode(call) != circuit.OpRuntimeCall && c.Opcode(call) != circuit.OpNoGCRuntimeCall {
		t.Errorf("expected EQ's first operand to be the new call gate, got %s", c.Opcode(call))
	}

	if err := circuit.Verify(c); err != nil {
		t.Errorf("Verify failed after slow-path lowering: %v", err)
	}
}

func TestSlowPathUnknownStubFails(t *testing.T) {
	c := circuit.NewCircuit(circuit.DefaultOptions())
	b := circuit.NewBuilder(c)
	state := c.GetCircuitRoot(circuit.StateEntryTag)
	depend := c.GetCircuitRoot(circuit.DependEntryTag)
	b.JSBytecodeOp(state, depend, uint64(99999), nil)

	err := Run(c, runtimestub.DefaultTable())
	if err == nil {
		t.Fatal("expected Run to fail on an unknown stub id")
	}
}
