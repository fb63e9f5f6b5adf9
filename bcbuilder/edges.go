package bcbuilder

// dominates reports whether a dominates b (a includes b itself).
func dominates(a, b *block) bool {
	for n := b; n != nil; n = n.idom {
		if n == a {
			return true
		}
		if n.idom == n {
			break // reached entry, whose idom is itself
		}
	}
	return false
}

// classifyEdges implements spec §4.G step 6's predecessor split: an edge
// pred->b is a loop-back edge iff b dominates pred (the classical back-edge
// test), otherwise it is a forward edge. Order within each group is by
// source block id, giving a stable, deterministic state-predecessor index
// assignment.
func classifyEdges(live []*block) {
	for _, b := range live {
		b.forwardPreds = nil
		b.loopBackPreds = nil
		for _, p := range b.preds {
			if dominates(b, p) {
				b.loopBackPreds = append(b.loopBackPreds, p)
			} else {
				b.forwardPreds = append(b.forwardPreds, p)
			}
		}
	}
}
