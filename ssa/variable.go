package ssa

import "github.com/user-none/gosea/circuit"

// Variable is a named SSA value tracked by a Manager across Labels. It
// carries no state of its own beyond identity and machine type — the
// actual "current value" lives in each Label's local map, per spec §3.
type Variable struct {
	id   int
	name string
	mt   circuit.MachineType
}

func (v *Variable) String() string        { return v.name }
func (v *Variable) MachineType() circuit.MachineType { return v.mt }
