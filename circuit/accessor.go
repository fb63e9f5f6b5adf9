package circuit

// GateAccessor is a read/mutate view over a single gate in a Circuit. It is
// the ergonomic surface passes are written against (spec §4.C); the
// Circuit itself stays a low-level arena.
type GateAccessor struct {
	c   *Circuit
	ref GateRef
}

// Accessor wraps ref for convenient field access and mutation.
func Accessor(c *Circuit, ref GateRef) GateAccessor {
	return GateAccessor{c: c, ref: ref}
}

func (a GateAccessor) Ref() GateRef           { return a.ref }
func (a GateAccessor) Opcode() OpCode         { return a.c.Opcode(a.ref) }
func (a GateAccessor) Id() GateId             { return a.c.Id(a.ref) }
func (a GateAccessor) Bitfield() uint64       { return a.c.Bitfield(a.ref) }
func (a GateAccessor) GateType() GateType     { return a.c.GateType(a.ref) }
func (a GateAccessor) MachineType() MachineType { return a.c.MachineType(a.ref) }
func (a GateAccessor) NumIns() int            { return a.c.NumIns(a.ref) }

func (a GateAccessor) SetGateType(t GateType) { a.c.SetGateType(a.ref, t) }
func (a GateAccessor) SetBitfield(v uint64)   { a.c.SetBitfield(a.ref, v) }

// NumValueIns returns how many of this gate's inputs are value edges.
func (a GateAccessor) NumValueIns() int {
	_, _, value, _ := Arity(a.Opcode(), a.Bitfield())
	return value
}

// edgeOffsets returns the (state, depend, value, root) slot boundaries for
// this gate's in-list, in the fixed order the spec mandates.
func (a GateAccessor) edgeOffsets() (stateEnd, dependEnd, valueEnd, rootEnd int) {
	state, depend, value, root := Arity(a.Opcode(), a.Bitfield())
	stateEnd = state
	dependEnd = stateEnd + depend
	valueEnd = dependEnd + value
	rootEnd = valueEnd + root
	return
}

func (a GateAccessor) GetIn(i int) GateRef { return a.c.GetIn(a.ref, i) }

// GetState returns the i-th state input.
func (a GateAccessor) GetState(i int) GateRef {
	return a.c.GetIn(a.ref, i)
}

// GetValueIn returns the i-th value input.
func (a GateAccessor) GetValueIn(i int) GateRef {
	_, dependEnd, _, _ := a.edgeOffsets()
	return a.c.GetIn(a.ref, dependEnd+i)
}

// GetDep returns the i-th depend input.
func (a GateAccessor) GetDep(i int) GateRef {
	stateEnd, _, _, _ := a.edgeOffsets()
	return a.c.GetIn(a.ref, stateEnd+i)
}

// SetDep overwrites the i-th depend input.
func (a GateAccessor) SetDep(i int, in GateRef) error {
	stateEnd, _, _, _ := a.edgeOffsets()
	return a.c.ModifyIn(a.ref, stateEnd+i, in)
}

// ReplaceStateIn overwrites the i-th state input.
func (a GateAccessor) ReplaceStateIn(i int, in GateRef) error {
	return a.c.ModifyIn(a.ref, i, in)
}

// ReplaceValueIn overwrites the i-th value input.
func (a GateAccessor) ReplaceValueIn(i int, in GateRef) error {
	_, dependEnd, _, _ := a.edgeOffsets()
	return a.c.ModifyIn(a.ref, dependEnd+i, in)
}

// ReplaceDependIn overwrites the i-th depend input.
func (a GateAccessor) ReplaceDependIn(i int, in GateRef) error {
	stateEnd, _, _, _ := a.edgeOffsets()
	return a.c.ModifyIn(a.ref, stateEnd+i, in)
}

// Ins returns every input slot, including holes.
func (a GateAccessor) Ins() []GateRef { return a.c.InVector(a.ref) }

// ConstIns returns only the non-null input slots.
func (a GateAccessor) ConstIns() []GateRef {
	ins := a.c.InVector(a.ref)
	out := ins[:0]
	for _, in := range ins {
		if in != NullGate {
			out = append(out, in)
		}
	}
	return out
}

// UseEdge identifies one reverse edge: "user uses this gate at in-slot
// Index".
type UseEdge struct {
	User  GateRef
	Index int
}

// UsesIterator walks every reverse edge of a gate. It snapshots the next
// out-record before yielding the current one, so ReplaceIn may retarget
// the edge it is currently positioned on without invalidating iteration
// (spec §4.C, §9 "Iterator invalidation").
type UsesIterator struct {
	c       *Circuit
	cur     int32
	next    int32
	started bool
}

// Uses returns an iterator over every current user of ref.
func (a GateAccessor) Uses() *UsesIterator {
	return &UsesIterator{c: a.c, cur: noOut, next: a.c.data(a.ref).firstOut}
}

// ConstUses is an alias for Uses kept for symmetry with ConstIns; neither
// mutates the circuit on its own.
func (a GateAccessor) ConstUses() *UsesIterator { return a.Uses() }

// Next advances the iterator and reports whether another edge was found.
func (it *UsesIterator) Next() bool {
	if it.next == noOut {
		it.cur = noOut
		return false
	}
	it.cur = it.next
	it.next = it.c.outs[it.cur].next
	it.started = true
	return true
}

// Edge returns the edge the iterator currently sits on. Valid only after a
// Next call that returned true.
func (it *UsesIterator) Edge() UseEdge {
	rec := it.c.outs[it.cur]
	return UseEdge{User: rec.user, Index: int(rec.index)}
}

// ReplaceIn retargets the edge the iterator currently sits on to newGate.
// Safe to call mid-iteration: Next already cached the following out-record
// before this call can unlink the current one.
func ReplaceIn(it *UsesIterator, newGate GateRef) error {
	e := it.Edge()
	return it.c.ModifyIn(e.User, e.Index, newGate)
}
