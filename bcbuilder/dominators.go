package bcbuilder

// reversePostorder returns blocks reachable from entry in reverse
// postorder, the order the iterative dominator algorithm needs to
// converge in a single pass over most graphs.
func reversePostorder(entry *block) []*block {
	visited := make(map[*block]bool)
	var post []*block
	var visit func(b *block)
	visit = func(b *block) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.succs {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)

	rpo := make([]*block, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}

// computeDominators implements spec §4.G step 3's iterative dominator
// algorithm (Cooper, Harvey & Kennedy, "A Simple, Fast Dominance
// Algorithm"): fixed point over reverse postorder, each block's idom the
// intersection of its processed predecessors' idoms.
func computeDominators(entry *block) []*block {
	rpo := reversePostorder(entry)
	rpoIndex := make(map[*block]int, len(rpo))
	for i, b := range rpo {
		rpoIndex[b] = i
	}

	entry.idom = entry
	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == entry {
				continue
			}
			var newIdom *block
			for _, p := range b.preds {
				if _, reachable := rpoIndex[p]; !reachable {
					continue // predecessor unreachable from entry
				}
				if p.idom == nil && p != entry {
					continue // not processed yet this round (e.g. a loop back edge)
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, rpoIndex)
			}
			if newIdom != b.idom {
				b.idom = newIdom
				changed = true
			}
		}
	}
	return rpo
}

func intersect(a, b *block, rpoIndex map[*block]int) *block {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = a.idom
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = b.idom
		}
	}
	return a
}

// computeDominanceFrontiers implements the second half of spec §4.G step 3.
func computeDominanceFrontiers(rpo []*block) {
	for _, b := range rpo {
		b.domFrontier = make(map[*block]bool)
	}
	for _, b := range rpo {
		if len(b.preds) < 2 {
			continue
		}
		for _, p := range b.preds {
			if p.idom == nil {
				continue // unreachable predecessor
			}
			runner := p
			for runner != b.idom {
				runner.domFrontier[b] = true
				runner = runner.idom
			}
		}
	}
}
