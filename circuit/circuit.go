package circuit

import (
	"fmt"
	"io"
	"log"
)

// DefaultMaxGates bounds how many gates a Circuit's arena may hold before
// allocation fails with ErrArenaExhausted. 1<<20 gates is generous for any
// single method body; callers compiling unusually large methods can raise
// it via Options.
const DefaultMaxGates = 1 << 20

// Options configures a Circuit at construction time. There is no on-disk
// form of Options (spec §6: the core persists nothing) — callers build one
// with DefaultOptions and override fields, the way the teacher's
// DefaultConfig()-plus-struct-literal pattern works, just without the JSON
// round trip.
type Options struct {
	// MaxGates bounds the arena (see DefaultMaxGates).
	MaxGates int
	// Logger receives "[Circuit] ..." trace lines when non-nil. Left nil,
	// tracing is silent (spec §6.5: debug/tracing hooks are opt-in).
	Logger *log.Logger
}

// DefaultOptions returns the zero-value-safe defaults: a MaxGates bound and
// a Logger that discards everything.
func DefaultOptions() Options {
	return Options{
		MaxGates: DefaultMaxGates,
		Logger:   log.New(io.Discard, "", 0),
	}
}

// Circuit is a process-local arena owning every gate in one compilation
// unit. It is created empty (aside from the fixed root prelude), mutated
// only through its own methods, and discarded as a whole; distinct
// Circuits never share gates.
type Circuit struct {
	gates  []gateData
	outs   []outRecord
	nextID GateId

	timeStamp uint64
	maxGates  int

	roots [numRootTags]GateRef

	log *log.Logger
}

// NewCircuit allocates an empty Circuit and immediately installs the nine
// root gates at fixed offsets (spec §3 "Root gates").
func NewCircuit(opts Options) *Circuit {
	if opts.MaxGates <= 0 {
		opts.MaxGates = DefaultMaxGates
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	c := &Circuit{
		maxGates: opts.MaxGates,
		log:      opts.Logger,
	}
	c.installRoots()
	return c
}

func (c *Circuit) installRoots() {
	// CIRCUIT_ROOT first, at offset 0, with no root edge of its own.
	circuitRoot := c.mustNewGate(OpCircuitRoot, 0, nil, nil)
	c.roots[CircuitRootTag] = circuitRoot
	for tag := CircuitRootTag + 1; tag < numRootTags; tag++ {
		op := rootTagOpcode[tag]
		ref := c.mustNewGate(op, 0, []GateRef{circuitRoot}, nil)
		c.roots[tag] = ref
	}
}

func (c *Circuit) mustNewGate(op OpCode, bitfield uint64, ins []GateRef, gt GateType) GateRef {
	ref, err := c.NewGate(op, bitfield, ins, gt)
	if err != nil {
		panic(fmt.Sprintf("circuit: failed to install root gate %s: %v", op, err))
	}
	return ref
}

// NullGateRef reports the sentinel usable anywhere a GateRef is expected to
// be empty. It is a method for symmetry with the rest of the API; its
// value is always the package-level NullGate constant.
func (c *Circuit) NullGateRef() GateRef { return NullGate }

// GetCircuitRoot returns one of the nine fixed root gates by tag.
func (c *Circuit) GetCircuitRoot(tag RootTag) GateRef {
	return c.roots[tag]
}

// NumGates returns how many slots the arena currently holds, including
// gates retired by DeleteGate (their slot is never reclaimed).
func (c *Circuit) NumGates() int { return len(c.gates) }

func (c *Circuit) data(ref GateRef) *gateData {
	if ref == NullGate {
		panic("circuit: null gate dereferenced")
	}
	return &c.gates[ref]
}

// Opcode returns the opcode stored at ref.
func (c *Circuit) Opcode(ref GateRef) OpCode { return c.data(ref).opcode }

// Id returns the GateId assigned to ref at allocation time.
func (c *Circuit) Id(ref GateRef) GateId { return c.data(ref).id }

// Bitfield returns the opcode-specific payload stored at ref.
func (c *Circuit) Bitfield(ref GateRef) uint64 { return c.data(ref).bitfield }

// SetBitfield overwrites the payload at ref. The peephole folding rules do
// not use it: they build a fresh CONSTANT and retarget the folded gate's
// uses to it rather than rewriting the gate in place.
func (c *Circuit) SetBitfield(ref GateRef, v uint64) { c.data(ref).bitfield = v }

// MachineType returns the machine type produced at ref.
func (c *Circuit) MachineType(ref GateRef) MachineType { return c.data(ref).machineType }

// SetMachineType overwrites the machine type at ref.
func (c *Circuit) SetMachineType(ref GateRef, mt MachineType) { c.data(ref).machineType = mt }

// GateType returns the abstract type annotation at ref, or nil if type
// inference has not yet run.
func (c *Circuit) GateType(ref GateRef) GateType { return c.data(ref).gateType }

// SetGateType overwrites the abstract type annotation at ref.
func (c *Circuit) SetGateType(ref GateRef, t GateType) { c.data(ref).gateType = t }

// SetOpcode overwrites the opcode at ref without touching its edges. Used
// by lowering's call splice to turn IF_SUCCESS/IF_EXCEPTION into
// IF_FALSE/IF_TRUE.
func (c *Circuit) SetOpcode(ref GateRef, op OpCode) { c.data(ref).opcode = op }

// NumIns returns the total input arity (state+depend+value+root) of ref.
func (c *Circuit) NumIns(ref GateRef) int { return len(c.data(ref).ins) }

// GetIn returns the i-th input slot of ref, or NullGate if it is a hole.
func (c *Circuit) GetIn(ref GateRef, i int) GateRef {
	ins := c.data(ref).ins
	if i < 0 || i >= len(ins) {
		panic(errOutOfBounds)
	}
	return ins[i]
}

// InVector returns a copy of ref's full in-list.
func (c *Circuit) InVector(ref GateRef) []GateRef {
	ins := c.data(ref).ins
	out := make([]GateRef, len(ins))
	copy(out, ins)
	return out
}

// OutVector returns every (user, index) pair currently using ref.
func (c *Circuit) OutVector(ref GateRef) []struct {
	User  GateRef
	Index int
} {
	var result []struct {
		User  GateRef
		Index int
	}
	for o := c.data(ref).firstOut; o != noOut; o = c.outs[o].next {
		rec := c.outs[o]
		result = append(result, struct {
			User  GateRef
			Index int
		}{rec.user, int(rec.index)})
	}
	return result
}

// NewGate allocates a gate, validates that len(inputs) equals the arity
// derived from (opcode, bitfield), writes NullGate for every hole and
// links the reverse out-record for every live input, and returns the new
// GateRef.
func (c *Circuit) NewGate(op OpCode, bitfield uint64, inputs []GateRef, gt GateType) (GateRef, error) {
	state, depend, value, root := Arity(op, bitfield)
	wantLen := state + depend + value + root
	if len(inputs) != wantLen {
		return NullGate, fmt.Errorf("%w: %s wants %d inputs, got %d", errArityMismatch, op, wantLen, len(inputs))
	}
	if len(c.gates) >= c.maxGates {
		return NullGate, ErrArenaExhausted
	}

	ref := GateRef(len(c.gates))
	id := c.nextID
	c.nextID++

	ins := make([]GateRef, len(inputs))
	copy(ins, inputs)

	c.gates = append(c.gates, gateData{
		id:          id,
		opcode:      op,
		machineType: propertiesTable[op].MachineType,
		bitfield:    bitfield,
		gateType:    gt,
		ins:         ins,
		firstOut:    noOut,
	})

	for i, in := range ins {
		if in != NullGate {
			c.linkOut(in, ref, i)
		}
	}

	c.log.Printf("[Circuit] new gate id=%d ref=%d op=%s bitfield=%d ins=%v", id, ref, op, bitfield, ins)
	return ref, nil
}

func (c *Circuit) linkOut(producer, user GateRef, index int) {
	o := outRecord{user: user, index: int32(index), prev: noOut, next: noOut}
	oref := int32(len(c.outs))
	head := c.data(producer).firstOut
	if head != noOut {
		c.outs[head].prev = oref
	}
	o.next = head
	c.outs = append(c.outs, o)
	c.data(producer).firstOut = oref
}

func (c *Circuit) unlinkOut(producer GateRef, oref int32) {
	o := c.outs[oref]
	if o.prev != noOut {
		c.outs[o.prev].next = o.next
	} else {
		c.data(producer).firstOut = o.next
	}
	if o.next != noOut {
		c.outs[o.next].prev = o.prev
	}
}

// findOut locates the out-record for (producer, user, index); it is the
// one and only place that walks a producer's out-list by identity rather
// than by iterator, used by DeleteIn/ModifyIn.
func (c *Circuit) findOut(producer, user GateRef, index int) int32 {
	for o := c.data(producer).firstOut; o != noOut; o = c.outs[o].next {
		rec := c.outs[o]
		if rec.user == user && int(rec.index) == index {
			return o
		}
	}
	return noOut
}

// NewIn wires inputs[i] into a currently-null slot of gate. It requires the
// slot to be null; use ModifyIn to replace a live edge.
func (c *Circuit) NewIn(gate GateRef, i int, in GateRef) error {
	d := c.data(gate)
	if i < 0 || i >= len(d.ins) {
		return errOutOfBounds
	}
	if d.ins[i] != NullGate {
		return errNullInputMisuse
	}
	d.ins[i] = in
	if in != NullGate {
		c.linkOut(in, gate, i)
	}
	return nil
}

// ModifyIn retargets gate's i-th slot from its current (non-null) producer
// to newIn.
func (c *Circuit) ModifyIn(gate GateRef, i int, newIn GateRef) error {
	d := c.data(gate)
	if i < 0 || i >= len(d.ins) {
		return errOutOfBounds
	}
	old := d.ins[i]
	if old == NullGate {
		return errNonNullRequired
	}
	if oref := c.findOut(old, gate, i); oref != noOut {
		c.unlinkOut(old, oref)
	}
	d.ins[i] = newIn
	if newIn != NullGate {
		c.linkOut(newIn, gate, i)
	}
	return nil
}

// DeleteIn detaches gate's i-th slot, leaving it null.
func (c *Circuit) DeleteIn(gate GateRef, i int) error {
	d := c.data(gate)
	if i < 0 || i >= len(d.ins) {
		return errOutOfBounds
	}
	old := d.ins[i]
	if old != NullGate {
		if oref := c.findOut(old, gate, i); oref != noOut {
			c.unlinkOut(old, oref)
		}
	}
	d.ins[i] = NullGate
	return nil
}

// DeleteGate detaches all of gate's in-edges and retires it to NOP. The
// slot stays physically present (arena reclamation is whole-circuit only)
// but, per invariant I6, a NOP gate must never again acquire users: callers
// are responsible for retargeting every user before calling DeleteGate
// (the generic lowering splice and peephole rules do this).
func (c *Circuit) DeleteGate(gate GateRef) {
	d := c.data(gate)
	for i, in := range d.ins {
		if in != NullGate {
			if oref := c.findOut(in, gate, i); oref != noOut {
				c.unlinkOut(in, oref)
			}
			d.ins[i] = NullGate
		}
	}
	d.opcode = OpNop
	c.log.Printf("[Circuit] delete gate id=%d ref=%d", d.id, gate)
}

// AdvanceTime increments the circuit's timestamp, implementing O(1) batch
// unmarking: every gate's previously-set Mark becomes stale without
// touching a single gate.
func (c *Circuit) AdvanceTime() { c.timeStamp++ }

// SetMark stamps ref as visited at the current timestamp.
func (c *Circuit) SetMark(ref GateRef) { c.data(ref).mark = c.timeStamp }

// GetMark reports whether ref was stamped at the current timestamp.
func (c *Circuit) GetMark(ref GateRef) bool { return c.data(ref).mark == c.timeStamp }
