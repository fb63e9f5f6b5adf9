package lowering

import (
	"fmt"

	"github.com/user-none/gosea/circuit"
	"github.com/user-none/gosea/runtimestub"
)

// ErrUnknownStub is returned by Run when a JS_BYTECODE gate carries a stub
// id the supplied Table has no Descriptor for — generic slow-path lowering
// has nothing to build a call from.
var ErrUnknownStub = fmt.Errorf("lowering: stub id has no Descriptor in the supplied Table")

// Run performs generic slow-path lowering (spec §4.K) over every
// remaining JS_BYTECODE gate in c: each is replaced by a call dispatched
// by its stub id's Descriptor.Kind (KindNormal -> an intrinsic call with
// no GC safepoint, KindRuntime -> a full runtime call), spliced in via
// ReplaceHIR. Gates a prior lowering pass already rewrote (type-directed
// or otherwise) are no longer JS_BYTECODE and are skipped.
//
// Grounded on SlowPathLowering::CallRuntimeLowering / Lower, generalized:
// the original dispatches per concrete EcmaOpcode to a hand-written
// Lower<Bytecode> method; since the bytecode catalogue itself is out of
// scope (spec §1), this builds the call generically from the stub's
// Descriptor instead of one function per opcode.
func Run(c *circuit.Circuit, stubs runtimestub.Table) error {
	b := circuit.NewBuilder(c)
	n := c.NumGates()
	for ref := circuit.GateRef(0); int(ref) < n; ref++ {
		if c.Opcode(ref) != circuit.OpJSBytecode {
			continue
		}
		if err := lowerOne(c, b, stubs, ref); err != nil {
			return err
		}
	}
	return nil
}

func lowerOne(c *circuit.Circuit, b *circuit.CircuitBuilder, stubs runtimestub.Table, gate circuit.GateRef) error {
	id := runtimestub.ID(b.BytecodeStubID(gate))
	desc, ok := stubs.Describe(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStub, id)
	}

	dependPlaceholder := c.GetCircuitRoot(circuit.DependEntryTag)
	args := b.BytecodeOperands(gate)

	var call circuit.GateRef
	if desc.Kind == runtimestub.KindRuntime {
		call = b.RuntimeCall(dependPlaceholder, uint64(id), args)
	} else {
		call = b.NoGCRuntimeCall(dependPlaceholder, uint64(id), args)
	}
	c.SetMachineType(call, desc.Return)

	return ReplaceHIR(c, b, gate, call)
}
