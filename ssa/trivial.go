package ssa

import "github.com/user-none/gosea/circuit"

// tryRemoveTrivialPhi collapses phi if, excluding self-references, it has
// at most one distinct operand: every use of phi is rewritten to that
// operand (or to Undefined if phi had none), phi is deleted, and any user
// that is itself a VALUE_SELECTOR is retried recursively — a chain of phis
// that only ever forwarded a single value collapses all at once, per spec
// §4.E and boundary B3.
func tryRemoveTrivialPhi(c *circuit.Circuit, phi circuit.GateRef) circuit.GateRef {
	acc := circuit.Accessor(c, phi)
	n := acc.NumValueIns()

	same := circuit.NullGate
	trivial := true
	for i := 0; i < n; i++ {
		op := acc.GetValueIn(i)
		if op == circuit.NullGate || op == phi || op == same {
			continue
		}
		if same != circuit.NullGate {
			trivial = false
			break
		}
		same = op
	}
	if !trivial {
		return phi
	}

	b := circuit.NewBuilder(c)
	if same == circuit.NullGate {
		same = b.Undefined()
	}

	seen := make(map[circuit.GateRef]bool)
	var phiUsers []circuit.GateRef
	it := acc.Uses()
	for it.Next() {
		e := it.Edge()
		if e.User != phi && c.Opcode(e.User) == circuit.OpValueSelector && !seen[e.User] {
			seen[e.User] = true
			phiUsers = append(phiUsers, e.User)
		}
		if err := circuit.ReplaceIn(it, same); err != nil {
			panic(err)
		}
	}
	c.DeleteGate(phi)

	for _, user := range phiUsers {
		tryRemoveTrivialPhi(c, user)
	}
	return same
}
