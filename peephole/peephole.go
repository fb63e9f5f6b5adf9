// Package peephole implements the worklist-driven local rewrite engine
// described in spec §4.M: rules fire on individual gates, retargeting
// their uses and deleting the old gate, until no rule fires on any
// remaining gate (law L3's fixed point).
package peephole

import "github.com/user-none/gosea/circuit"

// Rule inspects ref and, if it matches, returns a replacement gate and
// true. Returning (NullGate, false) means the rule does not apply. A rule
// must not mutate ref's own in-list; it builds a brand new gate and lets
// Run retarget ref's uses to it.
type Rule func(c *circuit.Circuit, b *circuit.CircuitBuilder, ref circuit.GateRef) (circuit.GateRef, bool)

// DefaultRules is the built-in rewrite set: constant folding over the
// arithmetic/bitwise opcodes, grounded on spec §8 scenario S2.
func DefaultRules() []Rule {
	return []Rule{foldConstantBinary}
}

// Run applies rules to every gate in c until the worklist is empty,
// returning how many rewrites fired. Re-running Run against an already
// fixed-point circuit performs zero rewrites (law L3).
func Run(c *circuit.Circuit, rules []Rule) int {
	b := circuit.NewBuilder(c)
	n := c.NumGates()

	inWorklist := make([]bool, n)
	var worklist []circuit.GateRef
	push := func(ref circuit.GateRef) {
		if int(ref) >= len(inWorklist) {
			grown := make([]bool, int(ref)+1)
			copy(grown, inWorklist)
			inWorklist = grown
		}
		if !inWorklist[ref] {
			inWorklist[ref] = true
			worklist = append(worklist, ref)
		}
	}
	for ref := circuit.GateRef(0); int(ref) < n; ref++ {
		push(ref)
	}

	applied := 0
	for len(worklist) > 0 {
		ref := worklist[0]
		worklist = worklist[1:]
		inWorklist[ref] = false

		if c.Opcode(ref) == circuit.OpNop {
			continue
		}

		for _, rule := range rules {
			replacement, ok := rule(c, b, ref)
			if !ok {
				continue
			}
			users := replaceAllUses(c, ref, replacement)
			c.DeleteGate(ref)
			applied++
			push(replacement)
			for _, u := range users {
				push(u)
			}
			break
		}
	}
	return applied
}

// replaceAllUses retargets every use of old to replacement and returns the
// (deduplicated) set of gates that used old, for re-enqueuing.
func replaceAllUses(c *circuit.Circuit, old, replacement circuit.GateRef) []circuit.GateRef {
	acc := circuit.Accessor(c, old)
	seen := make(map[circuit.GateRef]bool)
	var users []circuit.GateRef
	it := acc.Uses()
	for it.Next() {
		e := it.Edge()
		if !seen[e.User] {
			seen[e.User] = true
			users = append(users, e.User)
		}
		if err := circuit.ReplaceIn(it, replacement); err != nil {
			panic(err)
		}
	}
	return users
}
