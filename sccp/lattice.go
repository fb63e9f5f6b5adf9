// Package sccp implements the sparse conditional constant propagation
// solver described in spec §4.L: a joint reachability + value lattice
// fixed point over a circuit.Circuit.
package sccp

import "github.com/user-none/gosea/circuit"

// valueKind is the three-point value lattice: TOP (unobserved), MID (one
// concrete bit pattern), BOT (overdefined).
type valueKind uint8

const (
	top valueKind = iota
	mid
	bot
)

// Value is one gate's value-lattice element.
type Value struct {
	kind valueKind
	bits uint64
}

// Top is the unobserved element: has not been proven constant or variable.
var Top = Value{kind: top}

// Bot is the overdefined element: proven not to be a single constant.
var Bot = Value{kind: bot}

// Mid constructs the "known to be exactly this bit pattern" element.
func Mid(bits uint64) Value { return Value{kind: mid, bits: bits} }

// IsTop, IsMid, IsBot classify a Value.
func (v Value) IsTop() bool { return v.kind == top }
func (v Value) IsMid() bool { return v.kind == mid }
func (v Value) IsBot() bool { return v.kind == bot }

// Bits returns the concrete bit pattern of a MID value; only meaningful
// when IsMid() is true.
func (v Value) Bits() uint64 { return v.bits }

// meet computes a ⊓ b: top ⊓ x = x; bot ⊓ x = bot; mid(a) ⊓ mid(b) = mid(a)
// if a == b, else bot.
func meet(a, b Value) Value {
	switch {
	case a.kind == top:
		return b
	case b.kind == top:
		return a
	case a.kind == bot || b.kind == bot:
		return Bot
	case a.bits == b.bits:
		return a
	default:
		return Bot
	}
}

// implies is the reachability-gated projection used by VALUE_SELECTOR: if
// reachable is false, the predecessor contributes nothing to the meet
// (TOP), otherwise it contributes v unchanged.
func implies(reachable bool, v Value) Value {
	if !reachable {
		return Top
	}
	return v
}

// machineMask bounds an arithmetic result to mt's bit width so wraparound
// matches what the real machine type would produce.
func machineMask(mt circuit.MachineType, v uint64) uint64 {
	switch mt {
	case circuit.I1:
		return v & 0x1
	case circuit.I8:
		return v & 0xff
	case circuit.I16:
		return v & 0xffff
	case circuit.I32:
		return v & 0xffffffff
	default:
		return v
	}
}
