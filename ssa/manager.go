package ssa

import "github.com/user-none/gosea/circuit"

// Manager tracks the variables and labels live while a pass splices a
// straight-line sub-graph into a circuit.Circuit, and performs the
// phi-insertion and trivial-phi-removal bookkeeping described in spec §4.E.
// A pass can use a Manager instead of building MERGE/VALUE_SELECTOR gates
// by hand; the lowering and asynclower passes in this module build their
// joins directly through circuit.CircuitBuilder and do not use it.
type Manager struct {
	c *circuit.Circuit
	b *circuit.CircuitBuilder

	nextVarID int
	current   *Label
}

// NewManager wraps c for label/variable-driven sub-graph construction.
func NewManager(c *circuit.Circuit) *Manager {
	return &Manager{c: c, b: circuit.NewBuilder(c)}
}

// NewVariable allocates a fresh Variable of the given machine type. name is
// for diagnostics only; identity is by pointer.
func (m *Manager) NewVariable(name string, mt circuit.MachineType) *Variable {
	m.nextVarID++
	return &Variable{id: m.nextVarID, name: name, mt: mt}
}

// EntryLabel returns a sealed, zero-predecessor Label anchored at the
// circuit's STATE_ENTRY/DEPEND_ENTRY roots — the label a pass binds before
// emitting its first gate.
func (m *Manager) EntryLabel() *Label {
	l := newLabel(m)
	l.predCount = 0
	l.sealed = true
	l.control = m.c.GetCircuitRoot(circuit.StateEntryTag)
	l.depend = m.c.GetCircuitRoot(circuit.DependEntryTag)
	return l
}

// NewLabel reserves a join point with exactly predCount forward
// predecessors, to be supplied later via Jump/Branch/Switch. predCount must
// be at least 1; a single-predecessor label is a passthrough with no MERGE.
func (m *Manager) NewLabel(predCount int) *Label {
	if predCount < 1 {
		panic("ssa: NewLabel requires predCount >= 1")
	}
	l := newLabel(m)
	l.predCount = predCount
	if predCount > 1 {
		l.materializeJoin()
	}
	return l
}

// NewLoopHead reserves a loop header: a two-predecessor label (entry,
// loop-back) that a pass binds and emits the loop body against before its
// second predecessor is known (spec §4.E, §9 "incomplete phis").
func (m *Manager) NewLoopHead() *Label {
	l := newLabel(m)
	l.predCount = 2
	l.isLoopHead = true
	l.materializeJoin()
	return l
}

// materializeJoin builds the real MERGE/LOOP_BEGIN and DEPEND_SELECTOR
// gates up front, with NullGate holes for every predecessor not yet known.
// Incomplete phis (and the join itself) are filled slot-by-slot as
// predecessors arrive via registerPred, never grown — the gate's final
// arity is reserved at construction the way every concrete call site in the
// lowering passes already knows it.
func (l *Label) materializeJoin() {
	mgr := l.mgr
	holes := make([]circuit.GateRef, l.predCount)
	for i := range holes {
		holes[i] = circuit.NullGate
	}
	if l.isLoopHead {
		l.control = mgr.b.LoopBegin(circuit.NullGate)
	} else {
		l.control = mgr.b.Merge(holes)
	}
	l.dependSel = mgr.b.DependSelector(l.control, holes)
	l.depend = l.dependSel
}

// Bind makes l the active insertion point: subsequent gate construction by
// the caller should use l.Control()/l.Depend() as state/depend inputs.
func (m *Manager) Bind(l *Label) {
	if l.predCount == 1 && len(l.preds) == 0 {
		panic("ssa: Bind called on a single-predecessor label before its jump arrived")
	}
	m.current = l
}

// Current returns the presently bound label, or nil if none is bound.
func (m *Manager) Current() *Label { return m.current }

// Jump terminates the current label by registering it as the next
// predecessor of to.
func (m *Manager) Jump(to *Label) {
	from := m.requireCurrent()
	to.registerPred(from)
	m.current = nil
}

// Branch terminates the current label with an IF_BRANCH on cond, wiring its
// two arms directly into ifTrue and ifFalse as new predecessors.
func (m *Manager) Branch(cond circuit.GateRef, ifTrue, ifFalse *Label) {
	from := m.requireCurrent()
	br := m.b.IfBranch(from.control, cond)
	trueArm := m.armLabel(m.b.IfTrue(br), from)
	falseArm := m.armLabel(m.b.IfFalse(br), from)
	ifTrue.registerPred(trueArm)
	ifFalse.registerPred(falseArm)
	m.current = nil
}

// Switch terminates the current label with a SWITCH_BRANCH on index, wiring
// one arm per key into caseLabels (by position) and the remainder into
// defaultLabel.
func (m *Manager) Switch(index circuit.GateRef, defaultLabel *Label, keys []uint64, caseLabels []*Label) {
	if len(keys) != len(caseLabels) {
		panic("ssa: Switch requires one caseLabel per key")
	}
	from := m.requireCurrent()
	sw := m.b.SwitchBranch(from.control, index, uint64(len(keys)))
	for i, key := range keys {
		arm := m.armLabel(m.b.SwitchCase(sw, key), from)
		caseLabels[i].registerPred(arm)
	}
	defArm := m.armLabel(m.b.DefaultCase(sw), from)
	defaultLabel.registerPred(defArm)
	m.current = nil
}

// LoopEnd terminates the current label (the loop's latch) by wiring it as
// head's loop-back predecessor, sealing head.
func (m *Manager) LoopEnd(head *Label) {
	if !head.isLoopHead {
		panic("ssa: LoopEnd called on a non-loop label")
	}
	latch := m.requireCurrent()
	head.registerPred(latch)
	m.current = nil
}

func (m *Manager) requireCurrent() *Label {
	if m.current == nil {
		panic("ssa: no label is currently bound")
	}
	return m.current
}

// armLabel wraps a single branch/switch arm's control gate as a throwaway,
// already-sealed, single-predecessor Label so it can be handed to
// registerPred uniformly with any other jump source.
func (m *Manager) armLabel(controlGate circuit.GateRef, logical *Label) *Label {
	l := newLabel(m)
	l.predCount = 1
	l.preds = []*Label{logical}
	l.sealed = true
	l.control = controlGate
	l.depend = logical.depend
	return l
}
