package bcbuilder

import (
	"errors"

	"github.com/user-none/gosea/circuit"
)

var errEmptyMethod = errors.New("bcbuilder: method has no instructions")

type fillKind uint8

const (
	fillLoopBack fillKind = iota
	fillDepend
	fillValue
)

// loopBackFill is a deferred LOOP_BEGIN back-edge, DEPEND_SELECTOR
// operand, or VALUE_SELECTOR operand that can only be wired after its
// source loop-back block has itself been emitted (spec §4.G step 7:
// loop-back predecessors trail their header in reverse-postorder, so
// their exit values don't exist yet when the header is first visited).
type loopBackFill struct {
	kind  fillKind
	gate  circuit.GateRef
	slot  int
	pred   *block   // used by fillDepend, fillValue
	preds  []*block // used by fillLoopBack; merged if more than one
	header *block   // used by fillLoopBack, to resolve branch arms via stateForSucc
	vreg   VReg
}

type builder struct {
	m    *Method
	c    *circuit.Circuit
	b    *circuit.CircuitBuilder
	args *ArgAccessor

	entryState  circuit.GateRef
	entryDepend circuit.GateRef

	controlIn  map[*block]circuit.GateRef // the block's own control gate (or Goto passthrough)
	dependIn   map[*block]circuit.GateRef
	entryDefs  map[*block]map[VReg]circuit.GateRef
	exitState  map[*block]circuit.GateRef
	exitDepend map[*block]circuit.GateRef
	exitDefs   map[*block]map[VReg]circuit.GateRef
	phiGate    map[*block]map[VReg]circuit.GateRef

	// branchArms holds, for a block whose last instruction is a
	// JUMP_IF_ZERO/JUMP_IF_NOT_ZERO, the [IfTrue, IfFalse] gates — the two
	// distinct state refs its two successors (succs[0]=target,
	// succs[1]=fallthrough) must each see as their predecessor state. Every
	// other block has a single successor, so exitState alone suffices.
	branchArms map[*block][2]circuit.GateRef

	deferred []loopBackFill

	// restoreChainStart tracks the earliest RESTORE_REGISTER gate in the
	// run currently being emitted, so a KindResumeGenerator instruction
	// that directly follows one can record its chain's head as
	// ResumePoint.FirstRestore. asynclower leaves the chain on its
	// existing depend edges and does not redirect it. Reset whenever a
	// non-restore, non-resume instruction is emitted.
	restoreChainStart circuit.GateRef
	resumePoints      []ResumePoint
}

// ResumePoint names one generator/async resume site discovered during
// construction (spec §4.J: "a set of suspend/resume bytecode gates
// identified during construction"): the RESUME_GENERATOR gate itself, and
// the head of its contiguous RESTORE_REGISTER chain, if any (NullGate
// otherwise).
type ResumePoint struct {
	Gate         circuit.GateRef
	FirstRestore circuit.GateRef
}

// BuildResult is Build's output: the constructed, verified Circuit, its
// common-argument accessor, and every resume point module J needs to
// rebuild generator control flow around.
type BuildResult struct {
	Circuit      *circuit.Circuit
	Args         *ArgAccessor
	ResumePoints []ResumePoint
}

// stateForSucc returns the exact state gate succ should see coming from
// pred: one arm of pred's IfBranch if pred ends in a conditional jump,
// otherwise pred's single exit state.
func (bb *builder) stateForSucc(pred, succ *block) circuit.GateRef {
	arms, ok := bb.branchArms[pred]
	if !ok {
		return bb.exitState[pred]
	}
	if len(pred.succs) > 0 && succ == pred.succs[0] {
		return arms[0]
	}
	return arms[1]
}

// Build implements spec §4.G in full: block discovery, CFG construction,
// dominators and dominance frontiers, dead-region removal, phi placement,
// edge classification, and per-block gate emission with variable renaming.
func Build(m *Method) (*BuildResult, error) {
	blocks := discoverBlocks(m)
	if len(blocks) == 0 {
		return nil, errEmptyMethod
	}
	buildCFG(m, blocks)

	entry := blocks[0]
	rpo := computeDominators(entry)
	computeDominanceFrontiers(rpo)
	live, _ := removeDeadRegions(rpo, blocks)
	classifyEdges(live)
	placePhis(m, live)

	c := circuit.NewCircuit(circuit.DefaultOptions())
	bld := circuit.NewBuilder(c)
	args := NewArgAccessor(bld, m)

	bb := &builder{
		m:          m,
		c:          c,
		b:          bld,
		args:       args,
		controlIn:  make(map[*block]circuit.GateRef, len(rpo)),
		dependIn:   make(map[*block]circuit.GateRef, len(rpo)),
		entryDefs:  make(map[*block]map[VReg]circuit.GateRef, len(rpo)),
		exitState:  make(map[*block]circuit.GateRef, len(rpo)),
		exitDepend: make(map[*block]circuit.GateRef, len(rpo)),
		exitDefs:   make(map[*block]map[VReg]circuit.GateRef, len(rpo)),
		phiGate:    make(map[*block]map[VReg]circuit.GateRef, len(rpo)),
		branchArms: make(map[*block][2]circuit.GateRef),
	}
	bb.entryState = c.GetCircuitRoot(circuit.StateEntryTag)
	bb.entryDepend = c.GetCircuitRoot(circuit.DependEntryTag)

	for _, b := range rpo {
		bb.restoreChainStart = circuit.NullGate
		bb.emitBlock(b, b == entry)
	}
	bb.fillDeferred()

	if err := circuit.Verify(c); err != nil {
		return nil, err
	}
	return &BuildResult{Circuit: c, Args: args, ResumePoints: bb.resumePoints}, nil
}

// predOrder fixes a stable (forward-preds-then-loop-back-preds) ordering
// shared by a block's control gate and every VALUE_SELECTOR/
// DEPEND_SELECTOR installed at it (spec §4.G step 6's state-predecessor
// index).
func predOrder(b *block) []*block {
	order := make([]*block, 0, len(b.forwardPreds)+len(b.loopBackPreds))
	order = append(order, b.forwardPreds...)
	order = append(order, b.loopBackPreds...)
	return order
}

func (bb *builder) emitBlock(b *block, isEntry bool) {
	if isEntry {
		bb.controlIn[b] = bb.entryState
		bb.dependIn[b] = bb.entryDepend
	} else {
		bb.wireControl(b)
	}

	bb.entryDefs[b] = bb.installPhis(b)

	state := bb.controlIn[b]
	depend := bb.dependIn[b]
	locals := make(map[VReg]circuit.GateRef)
	resolve := func(v VReg) circuit.GateRef { return bb.resolve(b, locals, v) }

	for i := b.start; i < b.end; i++ {
		state, depend = bb.emitInstruction(b, bb.m.Instructions[i], state, depend, locals, resolve)
	}

	bb.exitState[b] = state
	bb.exitDepend[b] = depend
	bb.exitDefs[b] = locals
}

// wireControl builds the control gate a non-entry block begins with: a
// plain Goto for a single forward-only predecessor, a MERGE for several,
// or a LOOP_BEGIN when any predecessor reaches back through a loop. The
// loop-back slot of a LOOP_BEGIN is left a hole and queued for
// fillDeferred, since its source block hasn't been emitted yet.
func (bb *builder) wireControl(b *block) {
	var fwdState circuit.GateRef
	switch len(b.forwardPreds) {
	case 0:
		fwdState = circuit.NullGate
	case 1:
		fwdState = bb.stateForSucc(b.forwardPreds[0], b)
	default:
		states := make([]circuit.GateRef, len(b.forwardPreds))
		for i, p := range b.forwardPreds {
			states[i] = bb.stateForSucc(p, b)
		}
		fwdState = bb.b.Merge(states)
	}

	if len(b.loopBackPreds) == 0 {
		if len(b.forwardPreds) <= 1 {
			bb.controlIn[b] = bb.b.Goto(fwdState)
		} else {
			bb.controlIn[b] = fwdState
		}
		bb.wireDepend(b, fwdState)
		return
	}

	ctrl := bb.b.LoopBegin(fwdState)
	bb.controlIn[b] = ctrl
	// LOOP_BEGIN carries exactly one loop-back state slot; when multiple
	// loop-back edges reach the same header, fillDeferred merges their
	// exit states first. All exit states are available by the time
	// fillDeferred runs, since it only runs after every block is emitted.
	bb.deferred = append(bb.deferred, loopBackFill{kind: fillLoopBack, gate: ctrl, preds: b.loopBackPreds, header: b})
	bb.wireDepend(b, ctrl)
}

// wireDepend installs the depend-side counterpart of a block's control
// gate: a DEPEND_SELECTOR when the control gate is a real MERGE/
// LOOP_BEGIN (so the depend chain has the same arity as the state
// predecessors), or a straight passthrough for Goto.
func (bb *builder) wireDepend(b *block, ctrl circuit.GateRef) {
	order := predOrder(b)
	if len(order) <= 1 {
		if len(b.forwardPreds) == 1 {
			bb.dependIn[b] = bb.exitDepend[b.forwardPreds[0]]
		} else {
			bb.dependIn[b] = bb.entryDepend
		}
		return
	}

	operands := make([]circuit.GateRef, len(order))
	for i, p := range order {
		if dep, ok := bb.exitDepend[p]; ok {
			operands[i] = dep
		} else {
			operands[i] = circuit.NullGate
		}
	}
	sel := bb.b.DependSelector(ctrl, operands)
	bb.dependIn[b] = sel
	for i, p := range order {
		if _, ok := bb.exitDepend[p]; !ok {
			bb.deferred = append(bb.deferred, loopBackFill{kind: fillDepend, gate: sel, slot: i + 1, pred: p})
		}
	}
}

// installPhis creates a VALUE_SELECTOR for every vreg placePhis assigned
// to b. Classical dominance-frontier placement is def-site-driven, not
// liveness-driven, so a phi can legitimately have a forward predecessor
// that never itself wrote v (e.g. v defined on only one arm of a
// diamond) — that operand is resolved the same way any other read of v
// exiting p would be, falling through to p's own entry definition,
// forward predecessors, declared arguments, or Undefined. Only
// loop-back predecessors are genuinely unavailable yet, and are queued
// for fillDeferred.
func (bb *builder) installPhis(b *block) map[VReg]circuit.GateRef {
	defs := make(map[VReg]circuit.GateRef, len(b.phis))
	if len(b.phis) == 0 {
		return defs
	}
	ctrl := bb.controlIn[b]
	order := predOrder(b)
	nForward := len(b.forwardPreds)
	gates := make(map[VReg]circuit.GateRef, len(b.phis))

	for v := range b.phis {
		operands := make([]circuit.GateRef, len(order))
		for i, p := range order {
			if i < nForward {
				operands[i] = bb.resolve(p, bb.exitDefs[p], v)
				continue
			}
			if def, ok := bb.exitDefs[p][v]; ok {
				operands[i] = def
			} else {
				operands[i] = circuit.NullGate
			}
		}
		sel := bb.b.ValueSelector(ctrl, circuit.AnyValue, operands)
		gates[v] = sel
		defs[v] = sel
		for i := nForward; i < len(order); i++ {
			p := order[i]
			if _, ok := bb.exitDefs[p][v]; !ok {
				bb.deferred = append(bb.deferred, loopBackFill{kind: fillValue, gate: sel, slot: i + 1, pred: p, vreg: v})
			}
		}
	}
	bb.phiGate[b] = gates
	return defs
}

// fillDeferred wires every loop-back operand that couldn't be resolved
// when its header block was first emitted: LOOP_BEGIN's back-edge slot
// (via LoopEnd, wrapping the loop-back block's exit state in a
// LOOP_BACK), and each deferred VALUE_SELECTOR/DEPEND_SELECTOR operand.
func (bb *builder) fillDeferred() {
	for _, d := range bb.deferred {
		switch d.kind {
		case fillLoopBack:
			backState := bb.mergeExitStates(d.preds, d.header)
			if err := bb.b.LoopEnd(d.gate, backState); err != nil {
				panic(err)
			}
		case fillDepend:
			if err := bb.c.NewIn(d.gate, d.slot, bb.exitDepend[d.pred]); err != nil {
				panic(err)
			}
		case fillValue:
			if err := bb.c.NewIn(d.gate, d.slot, bb.exitDefs[d.pred][d.vreg]); err != nil {
				panic(err)
			}
		}
	}
}

// mergeExitStates returns the sole exit state feeding header when preds
// holds a single block, or a fresh MERGE over all of them otherwise.
func (bb *builder) mergeExitStates(preds []*block, header *block) circuit.GateRef {
	if len(preds) == 1 {
		return bb.stateForSucc(preds[0], header)
	}
	states := make([]circuit.GateRef, len(preds))
	for i, p := range preds {
		states[i] = bb.stateForSucc(p, header)
	}
	return bb.b.Merge(states)
}

// resolve implements spec §4.G step 7's variable renaming: a local
// definition within the current block wins; otherwise the block's
// phi-or-passthrough entry definition; otherwise the first forward
// predecessor's exit definition that has one; otherwise the
// declared-argument prelude; otherwise Undefined.
func (bb *builder) resolve(b *block, locals map[VReg]circuit.GateRef, v VReg) circuit.GateRef {
	if g, ok := locals[v]; ok {
		return g
	}
	if g, ok := bb.entryDefs[b][v]; ok {
		return g
	}
	if len(b.forwardPreds) > 0 {
		for _, p := range b.forwardPreds {
			if g, ok := bb.exitDefs[p][v]; ok {
				return g
			}
		}
	}
	if v != AccReg && uint32(v) < bb.m.NumDeclaredArgs {
		return bb.args.Resolve(uint32(v))
	}
	return bb.b.Undefined()
}
