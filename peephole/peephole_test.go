package peephole

import (
	"math/rand"
	"testing"

	"github.com/user-none/gosea/circuit"
)

// TestConstantCascadeFoldsToSingleConstant builds spec scenario S2: 100*10
// independent CONSTANT(i mod 100) gates, folded pairwise with ADD into a
// balanced tree in randomized pairing order, feeding the root to RETURN.
// After peephole the return's operand must be a single CONSTANT with
// bitfield 10 * (100*99)/2.
func TestConstantCascadeFoldsToSingleConstant(t *testing.T) {
	c := circuit.NewCircuit(circuit.DefaultOptions())
	b := circuit.NewBuilder(c)

	const groups = 10
	const perGroup = 100
	level := make([]circuit.GateRef, 0, groups*perGroup)
	for g := 0; g < groups; g++ {
		for i := 0; i < perGroup; i++ {
			level = append(level, b.ConstantI32(int32(i)))
		}
	}

	rng := rand.New(rand.NewSource(1))
	for len(level) > 1 {
		rng.Shuffle(len(level), func(i, j int) { level[i], level[j] = level[j], level[i] })
		var next []circuit.GateRef
		for i := 0; i+1 < len(level); i += 2 {
			next = append(next, b.Add(level[i], level[i+1]))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	root := level[0]

	entry := c.GetCircuitRoot(circuit.StateEntryTag)
	depEntry := c.GetCircuitRoot(circuit.DependEntryTag)
	ret := b.Return(entry, depEntry, root)

	for {
		if Run(c, DefaultRules()) == 0 {
			break
		}
	}

	folded := circuit.Accessor(c, ret).GetValueIn(0)
	if c.Opcode(folded) != circuit.OpConstant {
		t.Fatalf("expected a single CONSTANT operand at the return, got %s", c.Opcode(folded))
	}
	want := uint64(groups * (perGroup * (perGroup - 1) / 2))
	if got := c.Bitfield(folded); got != want {
		t.Fatalf("expected folded bitfield %d, got %d", want, got)
	}
}

// TestFixedPointReapplyIsNoop is law L3: running the rewrite set again on
// an already-converged circuit performs zero rewrites.
func TestFixedPointReapplyIsNoop(t *testing.T) {
	c := circuit.NewCircuit(circuit.DefaultOptions())
	b := circuit.NewBuilder(c)

	x := b.ConstantI32(3)
	y := b.ConstantI32(4)
	sum := b.Add(x, y)
	entry := c.GetCircuitRoot(circuit.StateEntryTag)
	depEntry := c.GetCircuitRoot(circuit.DependEntryTag)
	b.Return(entry, depEntry, sum)

	for {
		if Run(c, DefaultRules()) == 0 {
			break
		}
	}
	if applied := Run(c, DefaultRules()); applied != 0 {
		t.Fatalf("expected zero rewrites at a fixed point, got %d", applied)
	}
}
