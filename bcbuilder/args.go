package bcbuilder

import "github.com/user-none/gosea/circuit"

// CommonArgIdx names the fixed prelude of argument gates every method
// gets, grounded on original_source/ecmascript/compiler/argument_accessor.cpp.
type CommonArgIdx uint8

const (
	ArgGlue CommonArgIdx = iota
	ArgLexEnv
	ArgActualArgc
	ArgFunc
	ArgNewTarget
	ArgThis
	numCommonArgs
)

// ArgAccessor installs and resolves the common-argument prelude plus
// declared parameters (spec §4.G step 8).
type ArgAccessor struct {
	common [numCommonArgs]circuit.GateRef
	params []circuit.GateRef

	haveFunc, haveNewTarget, haveThis bool
}

// NewArgAccessor installs every ARG gate at construction, in prelude order
// followed by m.NumDeclaredArgs declared parameters.
func NewArgAccessor(b *circuit.CircuitBuilder, m *Method) *ArgAccessor {
	a := &ArgAccessor{
		haveFunc:      m.HaveFunc,
		haveNewTarget: m.HaveNewTarget,
		haveThis:      m.HaveThis,
	}
	index := uint32(0)
	for i := range a.common {
		a.common[i] = b.Arg(index)
		index++
	}
	a.params = make([]circuit.GateRef, m.NumDeclaredArgs)
	for i := range a.params {
		a.params[i] = b.Arg(index)
		index++
	}
	return a
}

// Common returns the gate for one of the fixed prelude slots.
func (a *ArgAccessor) Common(idx CommonArgIdx) circuit.GateRef { return a.common[idx] }

// Resolve maps a declared-parameter index to its gate, applying the
// haveFunc/haveNewTarget/haveThis shifting rule: when any of the three
// optional common args is absent, the parameter indices below
// numCommonArgs present shift down to fill the gap, exactly mirroring
// ArgumentAccessor::GetFunctionArgIndex.
func (a *ArgAccessor) Resolve(paramIndex uint32) circuit.GateRef {
	present := presentOptionalArgs(a.haveFunc, a.haveNewTarget, a.haveThis)
	if slot, ok := optionalArgSlot(paramIndex, a.haveFunc, a.haveNewTarget, a.haveThis); ok {
		return a.common[slot]
	}
	return a.params[int(paramIndex)-present]
}

func presentOptionalArgs(haveFunc, haveNewTarget, haveThis bool) int {
	n := 0
	if haveFunc {
		n++
	}
	if haveNewTarget {
		n++
	}
	if haveThis {
		n++
	}
	return n
}

// optionalArgSlot reimplements GetFunctionArgIndex's case analysis: when
// some of FUNC/NEW_TARGET/THIS are missing, the low declared-parameter
// indices address whichever of those three remain, in FUNC, NEW_TARGET,
// THIS order, before falling through to real declared parameters.
func optionalArgSlot(paramIndex uint32, haveFunc, haveNewTarget, haveThis bool) (CommonArgIdx, bool) {
	present := presentOptionalArgs(haveFunc, haveNewTarget, haveThis)
	switch present {
	case 3:
		switch paramIndex {
		case 0:
			return ArgFunc, true
		case 1:
			return ArgNewTarget, true
		case 2:
			return ArgThis, true
		}
	case 2:
		switch {
		case !haveFunc && paramIndex == 0:
			return ArgNewTarget, true
		case !haveFunc && paramIndex == 1:
			return ArgThis, true
		case !haveNewTarget && paramIndex == 0:
			return ArgFunc, true
		case !haveNewTarget && paramIndex == 1:
			return ArgThis, true
		case !haveThis && paramIndex == 0:
			return ArgFunc, true
		case !haveThis && paramIndex == 1:
			return ArgNewTarget, true
		}
	case 1:
		if paramIndex == 0 {
			switch {
			case haveFunc:
				return ArgFunc, true
			case haveNewTarget:
				return ArgNewTarget, true
			case haveThis:
				return ArgThis, true
			}
		}
	}
	return 0, false
}
