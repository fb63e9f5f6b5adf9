package bcbuilder

// removeDeadRegions implements spec §4.G step 4: a block not reachable
// from entry (i.e. never visited by reversePostorder, so it never
// received an idom) is dead. Dead blocks are dropped from every other
// block's preds/succs so later passes never see them, and returned
// separately so callers can still report them if useful.
func removeDeadRegions(rpo []*block, all []*block) (live []*block, dead []*block) {
	reachable := make(map[*block]bool, len(rpo))
	for _, b := range rpo {
		reachable[b] = true
	}
	for _, b := range all {
		if reachable[b] {
			live = append(live, b)
			continue
		}
		b.isDead = true
		dead = append(dead, b)
	}

	for _, b := range live {
		b.preds = filterLive(b.preds, reachable)
		b.succs = filterLive(b.succs, reachable)
	}
	return live, dead
}

func filterLive(bs []*block, reachable map[*block]bool) []*block {
	var out []*block
	for _, b := range bs {
		if reachable[b] {
			out = append(out, b)
		}
	}
	return out
}
