package asynclower

import (
	"testing"

	"github.com/user-none/gosea/bcbuilder"
	"github.com/user-none/gosea/circuit"
)

const (
	vCond      bcbuilder.VReg = 0
	vScratch   bcbuilder.VReg = 1
	vRestored  bcbuilder.VReg = 2
	vResumeVal bcbuilder.VReg = 3
)

// generatorMethod builds a method with two resume points (spec §8 S4): one
// at the very top of the method, reached with no restore chain, and one
// inside a loop body, immediately preceded by a register restore.
//
//	0: RESUME_GENERATOR                (resume point #1, no restore)
//	1: const v1 = 0
//	2: JUMP_IF_ZERO vCond -> 6         (loop header)
//	3: RESTORE_REGISTER slot 7
//	4: RESUME_GENERATOR                (resume point #2, inside the loop)
//	5: JUMP -> 2                       (back edge)
//	6: RETURN undefined
func generatorMethod() *bcbuilder.Method {
	return &bcbuilder.Method{
		NumDeclaredArgs: 1,
		Instructions: []bcbuilder.Instruction{
			{Offset: 0, Kind: bcbuilder.KindResumeGenerator, Writes: []bcbuilder.VReg{vResumeVal}},
			{Offset: 1, Kind: bcbuilder.KindConst, Writes: []bcbuilder.VReg{vScratch}, ConstBits: 0, ConstType: circuit.I32},
			{Offset: 2, Kind: bcbuilder.KindJumpIfZero, Reads: []bcbuilder.VReg{vCond}, Target: 6},
			{Offset: 3, Kind: bcbuilder.KindRestoreRegister, Writes: []bcbuilder.VReg{vRestored}, ConstBits: 7},
			{Offset: 4, Kind: bcbuilder.KindResumeGenerator, Writes: []bcbuilder.VReg{vResumeVal}},
			{Offset: 5, Kind: bcbuilder.KindJump, Target: 2},
			{Offset: 6, Kind: bcbuilder.KindReturnUndefined},
		},
	}
}

func countOpcode(c *circuit.Circuit, op circuit.OpCode) int {
	n := 0
	for ref := circuit.GateRef(0); int(ref) < c.NumGates(); ref++ {
		if c.Opcode(ref) == op {
			n++
		}
	}
	return n
}

func TestRunNoResumePointsIsNoOp(t *testing.T) {
	res, err := bcbuilder.Build(diamondMethodForTest())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	before := res.Circuit.NumGates()
	if err := Run(res); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Circuit.NumGates() != before {
		t.Errorf("expected Run to add no gates to a non-generator method, had %d now %d", before, res.Circuit.NumGates())
	}
}

// diamondMethodForTest is a minimal resume-point-free method, enough to
// exercise Run's early return without depending on bcbuilder's own test
// fixtures.
func diamondMethodForTest() *bcbuilder.Method {
	return &bcbuilder.Method{
		NumDeclaredArgs: 1,
		Instructions: []bcbuilder.Instruction{
			{Offset: 0, Kind: bcbuilder.KindReturnUndefined},
		},
	}
}

func TestRunRebuildsGeneratorDispatch(t *testing.T) {
	res, err := bcbuilder.Build(generatorMethod())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(res.ResumePoints) != 2 {
		t.Fatalf("expected 2 resume points, got %d", len(res.ResumePoints))
	}
	if res.ResumePoints[0].FirstRestore != circuit.NullGate {
		t.Error("expected the first resume point to have no restore chain")
	}
	if res.ResumePoints[1].FirstRestore == circuit.NullGate {
		t.Error("expected the second resume point to have a restore chain")
	}

	ifBranchesBefore := countOpcode(res.Circuit, circuit.OpIfBranch)
	returnsBefore := countOpcode(res.Circuit, circuit.OpReturn)

	if err := Run(res); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	c := res.Circuit
	if got, want := countOpcode(c, circuit.OpIfBranch), ifBranchesBefore+3; got != want {
		t.Errorf("expected %d IF_BRANCH gates (entry split + one per resume point), got %d", want, got)
	}
	if got, want := countOpcode(c, circuit.OpReturn), returnsBefore+1; got != want {
		t.Errorf("expected %d RETURN gates (original exit + bail-out), got %d", want, got)
	}

	for i, rp := range res.ResumePoints {
		if c.Opcode(rp.Gate) != circuit.OpResumeGenerator {
			t.Fatalf("resume point %d: expected RESUME_GENERATOR, got %s", i, c.Opcode(rp.Gate))
		}
	}

	// Resume point #1 is outside any loop: the splice lands directly on its
	// RESUME_GENERATOR gate's state input.
	if pred := c.GetIn(res.ResumePoints[0].Gate, 0); c.Opcode(pred) != circuit.OpMerge {
		t.Errorf("resume point 0: expected its state predecessor to be a MERGE, got %s", c.Opcode(pred))
	}

	// Resume point #2 is inside the loop at offset 2: per spec §4.J and
	// scenario S4, the loop begin it sits under must have gained an I32
	// value-selector recording whether this iteration was entered by
	// resumption.
	loopHead := loopBeginEnclosing(t, c, res.ResumePoints[1].Gate)
	if !hasValueSelectorOn(c, loopHead, circuit.I32) {
		t.Errorf("expected loop begin %d to have gained an I32 value-selector", loopHead)
	}

	if err := circuit.Verify(c); err != nil {
		t.Fatalf("Verify failed after generator lowering: %v", err)
	}
}

// loopBeginEnclosing walks a gate's state slot-0 predecessor chain until it
// finds a LOOP_BEGIN, failing the test if none is found.
func loopBeginEnclosing(t *testing.T, c *circuit.Circuit, gate circuit.GateRef) circuit.GateRef {
	t.Helper()
	for cur := c.GetIn(gate, 0); cur != circuit.NullGate && c.Opcode(cur) != circuit.OpStateEntry; cur = c.GetIn(cur, 0) {
		if c.Opcode(cur) == circuit.OpLoopBegin {
			return cur
		}
	}
	t.Fatalf("gate %d: no enclosing LOOP_BEGIN found", gate)
	return circuit.NullGate
}

func hasValueSelectorOn(c *circuit.Circuit, head circuit.GateRef, mt circuit.MachineType) bool {
	for ref := circuit.GateRef(0); int(ref) < c.NumGates(); ref++ {
		if c.Opcode(ref) == circuit.OpValueSelector && c.GetIn(ref, 0) == head && c.MachineType(ref) == mt {
			return true
		}
	}
	return false
}
