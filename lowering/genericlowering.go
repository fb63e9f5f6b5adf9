// Package lowering replaces un-lowered JS_BYTECODE gates with concrete
// runtime calls, spliced in via the "hir-to-call replacement pattern"
// (spec §4.K), grounded on generic_lowering.cpp, slowpath_lowering.cpp and
// type_lowering.cpp.
package lowering

import "github.com/user-none/gosea/circuit"

// ReplaceHIR splices newGate in place of oldGate: newGate inherits
// oldGate's depend input, a fresh EQ/IF_BRANCH pair tests newGate against
// the exception sentinel off oldGate's state predecessor, and every
// current user of oldGate is retargeted — an IF_SUCCESS user becomes
// IF_FALSE of the new branch, an IF_EXCEPTION user becomes IF_TRUE,
// anything else is rewired straight to newGate. oldGate is deleted last.
//
// Grounded on GenericLowering::LowerHIR / SlowPathLowering::LowerHirToCall
// / TypeLowering::ReplaceHirToCall, which are the same pattern duplicated
// across three lowering passes; this is the one shared implementation all
// three now call.
func ReplaceHIR(c *circuit.Circuit, b *circuit.CircuitBuilder, oldGate, newGate circuit.GateRef) error {
	acc := circuit.Accessor(c, oldGate)
	stateIn := acc.GetState(0)
	dependIn := acc.GetDep(0)

	if err := circuit.Accessor(c, newGate).SetDep(0, dependIn); err != nil {
		return err
	}

	exceptionVal := b.ExceptionConst()
	equal := b.Eq(newGate, exceptionVal)
	ifBranch := b.IfBranch(stateIn, equal)

	if err := retargetHIRUses(c, oldGate, ifBranch, newGate); err != nil {
		return err
	}
	c.DeleteGate(oldGate)
	return nil
}

func retargetHIRUses(c *circuit.Circuit, oldGate, ifBranch, newGate circuit.GateRef) error {
	it := circuit.Accessor(c, oldGate).Uses()
	for it.Next() {
		user := it.Edge().User
		switch c.Opcode(user) {
		case circuit.OpIfSuccess:
			c.SetOpcode(user, circuit.OpIfFalse)
			if err := circuit.ReplaceIn(it, ifBranch); err != nil {
				return err
			}
		case circuit.OpIfException:
			c.SetOpcode(user, circuit.OpIfTrue)
			if err := circuit.ReplaceIn(it, ifBranch); err != nil {
				return err
			}
		default:
			if err := circuit.ReplaceIn(it, newGate); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReplaceHIRConditional is the "conditional call" variant: the call only
// happens when cond holds. The predecessor state first splits on cond;
// only the true side performs the call-and-exception-check; the
// precondition-false side and the no-exception side merge into a MERGE +
// DEPEND_SELECTOR, and every user of oldGate is retargeted accordingly.
//
// Grounded on SlowPathLowering::LowerHirToConditionCall.
func ReplaceHIRConditional(c *circuit.Circuit, b *circuit.CircuitBuilder, oldGate, cond, newGate circuit.GateRef) error {
	acc := circuit.Accessor(c, oldGate)
	stateIn := acc.GetState(0)
	dependIn := acc.GetDep(0)

	condBranch := b.IfBranch(stateIn, cond)
	condTrue := b.IfTrue(condBranch)
	condFalse := b.IfFalse(condBranch)

	exceptionVal := b.ExceptionConst()
	equal := b.Eq(newGate, exceptionVal)
	exceptionBranch := b.IfBranch(condTrue, equal)
	exceptionFalse := b.IfFalse(exceptionBranch)

	stateMerge := b.Merge([]circuit.GateRef{condFalse, exceptionFalse})

	condTrueRelay := b.DependRelay(condTrue, dependIn)
	if err := circuit.Accessor(c, newGate).SetDep(0, condTrueRelay); err != nil {
		return err
	}
	condFalseRelay := b.DependRelay(condFalse, dependIn)
	dependPhi := b.DependSelector(stateMerge, []circuit.GateRef{newGate, condFalseRelay})

	it := acc.Uses()
	for it.Next() {
		e := it.Edge()
		user := e.User
		switch c.Opcode(user) {
		case circuit.OpIfSuccess:
			if err := retargetAllUses(c, user, stateMerge); err != nil {
				return err
			}
			c.DeleteGate(user)
		case circuit.OpIfException:
			c.SetOpcode(user, circuit.OpIfTrue)
			if err := circuit.ReplaceIn(it, exceptionBranch); err != nil {
				return err
			}
		case circuit.OpDependSelector, circuit.OpDependRelay:
			if dependEdgeBypassesException(c, user, e.Index) {
				if err := circuit.ReplaceIn(it, dependPhi); err != nil {
					return err
				}
			} else if err := circuit.ReplaceIn(it, newGate); err != nil {
				return err
			}
		default:
			if err := circuit.ReplaceIn(it, newGate); err != nil {
				return err
			}
		}
	}
	c.DeleteGate(oldGate)
	return nil
}

// dependEdgeBypassesException reports whether du's depend edge at slot
// index is fed by a state predecessor other than an IF_EXCEPTION arm.
// du's control input (slot 0) is the MERGE/LOOP_BEGIN whose predecessor
// list lines up 1:1 with du's own value/depend slots starting at 1, so the
// predecessor feeding slot `index` sits at the merge's slot `index-1`.
func dependEdgeBypassesException(c *circuit.Circuit, du circuit.GateRef, index int) bool {
	ctrl := c.GetIn(du, 0)
	if c.Opcode(ctrl) != circuit.OpMerge && c.Opcode(ctrl) != circuit.OpLoopBegin {
		// A DEPEND_RELAY's control input is a single predecessor, not a
		// predecessor list to index into; such a relay can only be
		// attached off a non-exception arm of this splice, so it always
		// bypasses.
		return true
	}
	pred := c.GetIn(ctrl, index-1)
	return c.Opcode(pred) != circuit.OpIfException
}

// retargetAllUses rewires every current user of old to point at newTarget,
// leaving old itself untouched (the caller deletes it once its own
// in-edges no longer matter).
func retargetAllUses(c *circuit.Circuit, old, newTarget circuit.GateRef) error {
	it := circuit.Accessor(c, old).Uses()
	for it.Next() {
		if err := circuit.ReplaceIn(it, newTarget); err != nil {
			return err
		}
	}
	return nil
}
