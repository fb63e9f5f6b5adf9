package bcbuilder

import "sort"

// block is one basic block: a contiguous run of instructions (by index
// into Method.Instructions) with a single entry and single exit.
type block struct {
	id         int
	start, end int // [start, end) indices into the method's instruction slice

	preds, succs  []*block
	forwardPreds  []*block
	loopBackPreds []*block

	idom        *block
	domFrontier map[*block]bool
	isDead      bool

	// phis is the set of vregs (including AccReg) needing a VALUE_SELECTOR
	// at this block's join, per spec §4.G step 5. AccReg lives in the same
	// map as numbered vregs; callers that need to know specifically
	// whether the accumulator got a phi can check phis[AccReg] directly.
	phis map[VReg]bool
}

func (b *block) startOffset(m *Method) uint32 { return m.Instructions[b.start].Offset }

// discoverBlocks implements spec §4.G step 1: split at every jump target,
// after every terminator, and at every try-catch boundary.
func discoverBlocks(m *Method) []*block {
	splits := map[uint32]bool{0: true}
	offsetIndex := make(map[uint32]int, len(m.Instructions))
	for i, in := range m.Instructions {
		offsetIndex[in.Offset] = i
	}

	for i, in := range m.Instructions {
		if in.IsTerminator() || in.IsBranch() {
			if i+1 < len(m.Instructions) {
				splits[m.Instructions[i+1].Offset] = true
			}
		}
		if in.IsBranch() || in.Kind == KindJump {
			splits[in.Target] = true
		}
	}
	for _, tc := range m.TryCatches {
		splits[tc.Start] = true
		splits[tc.End] = true
		splits[tc.Handler] = true
	}

	bounds := make([]uint32, 0, len(splits))
	for off := range splits {
		if _, ok := offsetIndex[off]; ok {
			bounds = append(bounds, off)
		}
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })

	blocks := make([]*block, 0, len(bounds))
	for i, off := range bounds {
		start := offsetIndex[off]
		end := len(m.Instructions)
		if i+1 < len(bounds) {
			end = offsetIndex[bounds[i+1]]
		}
		blocks = append(blocks, &block{id: i, start: start, end: end})
	}
	return blocks
}

// buildCFG wires succs/preds (spec §4.G step 2). Fallthrough and jump
// targets are resolved against each block's starting offset.
func buildCFG(m *Method, blocks []*block) {
	byOffset := make(map[uint32]*block, len(blocks))
	for _, b := range blocks {
		byOffset[b.startOffset(m)] = b
	}

	for _, b := range blocks {
		last := m.Instructions[b.end-1]
		switch {
		case last.Kind == KindJump:
			addEdge(b, byOffset[last.Target])
		case last.IsBranch():
			addEdge(b, byOffset[last.Target])
			if b.end < len(m.Instructions) {
				addEdge(b, byOffset[m.Instructions[b.end].Offset])
			}
		case last.IsTerminator():
			// RETURN/RETURN_VOID/THROW: no fallthrough, no explicit target.
		default:
			if b.end < len(m.Instructions) {
				addEdge(b, byOffset[m.Instructions[b.end].Offset])
			}
		}
	}
}

func addEdge(from, to *block) {
	if to == nil {
		return
	}
	from.succs = append(from.succs, to)
	to.preds = append(to.preds, from)
}
