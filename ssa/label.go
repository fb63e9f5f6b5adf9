// Package ssa implements the label/variable SSA-construction helper
// described in spec §4.E: lowering passes write straight-line code against
// Variables and Labels, and this package inserts the phi (selector) nodes,
// including trivial-phi removal, as they splice new sub-graphs into a
// circuit.Circuit.
package ssa

import "github.com/user-none/gosea/circuit"

// Label is one insertion point during sub-graph emission. It owns a
// control gate and a depend gate valid from construction, accumulates
// predecessor labels as Jump/Branch/Switch/LoopEnd supply them, and maps
// each Variable read at this point to the gate representing its value
// here.
//
// A Label's final predecessor count is reserved at construction (NewLabel,
// NewLoopHead) rather than grown, matching every concrete join this
// module's passes build: an if/else merge, a switch join, or a loop header
// all know their arity (2, N, 2) up front even when not every predecessor
// is wired yet.
type Label struct {
	mgr *Manager

	predCount int
	preds     []*Label

	control   circuit.GateRef // MERGE/LOOP_BEGIN, a single passthrough, or (entry) a root
	depend    circuit.GateRef
	dependSel circuit.GateRef // same ref as depend when predCount > 1; kept for clarity

	values         map[*Variable]circuit.GateRef
	incompletePhis map[*Variable]circuit.GateRef

	sealed     bool
	isLoopHead bool
}

func newLabel(mgr *Manager) *Label {
	return &Label{
		mgr:            mgr,
		control:        circuit.NullGate,
		depend:         circuit.NullGate,
		values:         make(map[*Variable]circuit.GateRef),
		incompletePhis: make(map[*Variable]circuit.GateRef),
	}
}

// Control returns the gate that is this label's current control
// (state-producing) point.
func (l *Label) Control() circuit.GateRef { return l.control }

// Depend returns the gate that is this label's current depend point.
func (l *Label) Depend() circuit.GateRef { return l.depend }

// Sealed reports whether every declared predecessor has been supplied.
func (l *Label) Sealed() bool { return l.sealed }

// Write records v's value at l directly, bypassing phi construction. The
// next Read at l returns this value.
func (l *Label) Write(v *Variable, value circuit.GateRef) {
	l.values[v] = value
}

// Read returns the value of v at l: a direct write if one was made here,
// otherwise a (possibly still-incomplete) phi built from l's predecessors,
// per the algorithm in spec §4.E and §9 "incomplete phis".
func (l *Label) Read(v *Variable) circuit.GateRef {
	if val, ok := l.values[v]; ok {
		return val
	}

	if l.predCount <= 1 {
		if len(l.preds) == 0 {
			panic("ssa: Read before label's single predecessor is known")
		}
		val := l.preds[0].Read(v)
		l.values[v] = val
		return val
	}

	c := l.mgr.c
	holes := make([]circuit.GateRef, l.predCount)
	for i := range holes {
		holes[i] = circuit.NullGate
	}
	phi := l.mgr.b.ValueSelector(l.control, v.mt, holes)

	// Publish before recursing so a cycle through a loop back-edge finds
	// this phi instead of looping forever.
	l.values[v] = phi

	for i, p := range l.preds {
		if err := c.NewIn(phi, 1+i, p.Read(v)); err != nil {
			panic(err)
		}
	}

	if len(l.preds) == l.predCount {
		l.values[v] = tryRemoveTrivialPhi(c, phi)
	} else {
		l.incompletePhis[v] = phi
	}
	return l.values[v]
}

// registerPred supplies the next predecessor of l (from Jump, a branch/
// switch arm, or a loop's latch), wiring it into the reserved control/
// depend/phi slots and sealing l once every predecessor is known.
func (l *Label) registerPred(pred *Label) {
	idx := len(l.preds)
	if idx >= l.predCount {
		panic("ssa: label already has all declared predecessors")
	}
	l.preds = append(l.preds, pred)

	if l.predCount == 1 {
		l.control = l.mgr.b.Goto(pred.control)
		l.depend = pred.depend
		l.sealed = true
		return
	}

	c := l.mgr.c
	stateVal := pred.control
	if l.isLoopHead && idx == 1 {
		if err := l.mgr.b.LoopEnd(l.control, pred.control); err != nil {
			panic(err)
		}
	} else if err := c.NewIn(l.control, idx, stateVal); err != nil {
		panic(err)
	}
	if err := c.NewIn(l.dependSel, 1+idx, pred.depend); err != nil {
		panic(err)
	}

	for v, phi := range l.incompletePhis {
		if err := c.NewIn(phi, 1+idx, pred.Read(v)); err != nil {
			panic(err)
		}
	}

	if len(l.preds) == l.predCount {
		l.sealed = true
		for v, phi := range l.incompletePhis {
			l.values[v] = tryRemoveTrivialPhi(c, phi)
		}
		l.incompletePhis = make(map[*Variable]circuit.GateRef)
	}
}
