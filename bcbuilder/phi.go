package bcbuilder

// placePhis implements spec §4.G step 5 (Cytron et al.'s classical
// dominance-frontier phi placement): for each vreg (the accumulator
// included — it is just another entry in VReg's space via AccReg),
// iterate its definition sites out to their dominance frontiers until no
// new block needs a phi.
func placePhis(m *Method, live []*block) {
	defSites := make(map[VReg]map[*block]bool)
	noteDef := func(v VReg, b *block) {
		set, ok := defSites[v]
		if !ok {
			set = make(map[*block]bool)
			defSites[v] = set
		}
		set[b] = true
	}

	for _, b := range live {
		for i := b.start; i < b.end; i++ {
			in := m.Instructions[i]
			for _, w := range in.Writes {
				noteDef(w, b)
			}
		}
		b.phis = make(map[VReg]bool)
	}

	for v, sites := range defSites {
		hasPhi := make(map[*block]bool)
		hasDef := make(map[*block]bool, len(sites))
		var worklist []*block
		for b := range sites {
			hasDef[b] = true
			worklist = append(worklist, b)
		}
		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for f := range b.domFrontier {
				if hasPhi[f] {
					continue
				}
				hasPhi[f] = true
				f.phis[v] = true
				if !hasDef[f] {
					hasDef[f] = true
					worklist = append(worklist, f)
				}
			}
		}
	}
}
