package circuit

import "math"

// Sentinel bit patterns used for the "opaque tagged value" constants the
// builder exposes (Undefined, Hole, NullConst, ExceptionConst). The real
// encoding of these values belongs to the external runtime object model
// (spec §1 non-goal); the core only needs four bit patterns distinct from
// any value a real CONSTANT would carry, so a lowering pass can recognize
// them by bitfield.
const (
	undefinedBits uint64 = 1<<64 - 1
	holeBits      uint64 = 1<<64 - 2
	nullConstBits uint64 = 1<<64 - 3
	exceptionBits uint64 = 1<<64 - 4
)

// CircuitBuilder provides typed constructors for the gate shapes every
// pass needs, so callers never hand-assemble an in-list and get the arity
// or root wiring wrong (spec §4.F).
type CircuitBuilder struct {
	c *Circuit
}

// NewBuilder wraps c for typed gate construction.
func NewBuilder(c *Circuit) *CircuitBuilder { return &CircuitBuilder{c: c} }

func (b *CircuitBuilder) Circuit() *Circuit { return b.c }

func (b *CircuitBuilder) must(ref GateRef, err error) GateRef {
	if err != nil {
		panic(err)
	}
	return ref
}

// Arg constructs the index-th argument gate.
func (b *CircuitBuilder) Arg(index uint32) GateRef {
	root := b.c.GetCircuitRoot(ArgListTag)
	return b.must(b.c.NewGate(OpArg, uint64(index), []GateRef{root}, nil))
}

// ConstantBits constructs a CONSTANT gate carrying an arbitrary bit
// pattern at the given machine type.
func (b *CircuitBuilder) ConstantBits(bits uint64, mt MachineType) GateRef {
	root := b.c.GetCircuitRoot(ConstantListTag)
	ref := b.must(b.c.NewGate(OpConstant, bits, []GateRef{root}, nil))
	b.c.SetMachineType(ref, mt)
	return ref
}

func (b *CircuitBuilder) ConstantI32(v int32) GateRef { return b.ConstantBits(uint64(uint32(v)), I32) }
func (b *CircuitBuilder) ConstantI64(v int64) GateRef { return b.ConstantBits(uint64(v), I64) }
func (b *CircuitBuilder) ConstantF64(v float64) GateRef {
	return b.ConstantBits(f64bits(v), F64)
}
func (b *CircuitBuilder) ConstantBool(v bool) GateRef {
	if v {
		return b.ConstantBits(1, I1)
	}
	return b.ConstantBits(0, I1)
}

func (b *CircuitBuilder) Undefined() GateRef    { return b.ConstantBits(undefinedBits, AnyValue) }
func (b *CircuitBuilder) Hole() GateRef         { return b.ConstantBits(holeBits, AnyValue) }
func (b *CircuitBuilder) NullConst() GateRef    { return b.ConstantBits(nullConstBits, AnyValue) }
func (b *CircuitBuilder) ExceptionConst() GateRef { return b.ConstantBits(exceptionBits, AnyValue) }

// IsUndefined reports whether ref is the builder's Undefined sentinel.
func (b *CircuitBuilder) IsUndefined(ref GateRef) bool {
	return b.c.Opcode(ref) == OpConstant && b.c.Bitfield(ref) == undefinedBits
}

// IsNullConst reports whether ref is the builder's NullConst sentinel.
func (b *CircuitBuilder) IsNullConst(ref GateRef) bool {
	return b.c.Opcode(ref) == OpConstant && b.c.Bitfield(ref) == nullConstBits
}

// IsHole reports whether ref is the builder's Hole sentinel.
func (b *CircuitBuilder) IsHole(ref GateRef) bool {
	return b.c.Opcode(ref) == OpConstant && b.c.Bitfield(ref) == holeBits
}

// IsExceptionConst reports whether ref is the builder's ExceptionConst
// sentinel.
func (b *CircuitBuilder) IsExceptionConst(ref GateRef) bool {
	return b.c.Opcode(ref) == OpConstant && b.c.Bitfield(ref) == exceptionBits
}

// Merge constructs a MERGE with the given forward-state predecessors.
func (b *CircuitBuilder) Merge(preds []GateRef) GateRef {
	return b.must(b.c.NewGate(OpMerge, uint64(len(preds)), preds, nil))
}

// LoopBegin constructs a LOOP_BEGIN whose loop-back edge is initially a
// hole; call LoopEnd to wire it once the loop's tail is known.
func (b *CircuitBuilder) LoopBegin(entry GateRef) GateRef {
	return b.must(b.c.NewGate(OpLoopBegin, 0, []GateRef{entry, NullGate}, nil))
}

// LoopEnd wires head's loop-back slot to a new LOOP_BACK wrapping
// backState.
func (b *CircuitBuilder) LoopEnd(head, backState GateRef) error {
	loopBack := b.must(b.c.NewGate(OpLoopBack, 0, []GateRef{backState}, nil))
	return b.c.NewIn(head, 1, loopBack)
}

// Goto constructs a single-predecessor passthrough block.
func (b *CircuitBuilder) Goto(state GateRef) GateRef {
	return b.must(b.c.NewGate(OpOrdinaryBlock, 0, []GateRef{state}, nil))
}

// ValueSelector constructs a VALUE_SELECTOR (phi) over merge's arity, with
// the given operand-per-predecessor list and result machine type.
func (b *CircuitBuilder) ValueSelector(merge GateRef, mt MachineType, operands []GateRef) GateRef {
	ins := append([]GateRef{merge}, operands...)
	ref := b.must(b.c.NewGate(OpValueSelector, uint64(len(operands)), ins, nil))
	b.c.SetMachineType(ref, mt)
	return ref
}

// DependSelector constructs a DEPEND_SELECTOR over merge's arity.
func (b *CircuitBuilder) DependSelector(merge GateRef, operands []GateRef) GateRef {
	ins := append([]GateRef{merge}, operands...)
	return b.must(b.c.NewGate(OpDependSelector, uint64(len(operands)), ins, nil))
}

// DependRelay constructs a DEPEND_RELAY after a control-case state.
func (b *CircuitBuilder) DependRelay(state, depend GateRef) GateRef {
	return b.must(b.c.NewGate(OpDependRelay, 0, []GateRef{state, depend}, nil))
}

// DependAnd constructs a DEPEND_AND joining the given depend edges.
func (b *CircuitBuilder) DependAnd(depends []GateRef) GateRef {
	return b.must(b.c.NewGate(OpDependAnd, uint64(len(depends)), depends, nil))
}

// IfBranch constructs an IF_BRANCH testing cond.
func (b *CircuitBuilder) IfBranch(state, cond GateRef) GateRef {
	return b.must(b.c.NewGate(OpIfBranch, 0, []GateRef{state, cond}, nil))
}

func (b *CircuitBuilder) IfTrue(branch GateRef) GateRef {
	return b.must(b.c.NewGate(OpIfTrue, 0, []GateRef{branch}, nil))
}

func (b *CircuitBuilder) IfFalse(branch GateRef) GateRef {
	return b.must(b.c.NewGate(OpIfFalse, 0, []GateRef{branch}, nil))
}

// SwitchBranch constructs a SWITCH_BRANCH with caseCount expected cases.
func (b *CircuitBuilder) SwitchBranch(state, index GateRef, caseCount uint64) GateRef {
	return b.must(b.c.NewGate(OpSwitchBranch, caseCount, []GateRef{state, index}, nil))
}

func (b *CircuitBuilder) SwitchCase(sw GateRef, key uint64) GateRef {
	return b.must(b.c.NewGate(OpSwitchCase, key, []GateRef{sw}, nil))
}

func (b *CircuitBuilder) DefaultCase(sw GateRef) GateRef {
	return b.must(b.c.NewGate(OpDefaultCase, 0, []GateRef{sw}, nil))
}

// Return constructs a RETURN of value.
func (b *CircuitBuilder) Return(state, depend, value GateRef) GateRef {
	root := b.c.GetCircuitRoot(ReturnListTag)
	return b.must(b.c.NewGate(OpReturn, 0, []GateRef{state, depend, value, root}, nil))
}

func (b *CircuitBuilder) ReturnVoid(state, depend GateRef) GateRef {
	root := b.c.GetCircuitRoot(ReturnListTag)
	return b.must(b.c.NewGate(OpReturnVoid, 0, []GateRef{state, depend, root}, nil))
}

func (b *CircuitBuilder) Throw(state, depend, value GateRef) GateRef {
	root := b.c.GetCircuitRoot(ThrowListTag)
	return b.must(b.c.NewGate(OpThrow, 0, []GateRef{state, depend, value, root}, nil))
}

// Load constructs a LOAD of machine type mt from ptr, ordered by depend.
func (b *CircuitBuilder) Load(depend, ptr GateRef, mt MachineType) GateRef {
	ref := b.must(b.c.NewGate(OpLoad, 0, []GateRef{depend, ptr}, nil))
	b.c.SetMachineType(ref, mt)
	return ref
}

// Store constructs a STORE of val to ptr, ordered by depend.
func (b *CircuitBuilder) Store(depend, ptr, val GateRef) GateRef {
	return b.must(b.c.NewGate(OpStore, 0, []GateRef{depend, ptr, val}, nil))
}

// Alloca reserves size units of stack-like storage.
func (b *CircuitBuilder) Alloca(size uint64) GateRef {
	root := b.c.GetCircuitRoot(AllocaListTag)
	return b.must(b.c.NewGate(OpAlloca, size, []GateRef{root}, nil))
}

func (b *CircuitBuilder) binary(op OpCode, lhs, rhs GateRef) GateRef {
	ref := b.must(b.c.NewGate(op, 0, []GateRef{lhs, rhs}, nil))
	b.c.SetMachineType(ref, b.c.MachineType(lhs))
	return ref
}

func (b *CircuitBuilder) unary(op OpCode, v GateRef) GateRef {
	ref := b.must(b.c.NewGate(op, 0, []GateRef{v}, nil))
	b.c.SetMachineType(ref, b.c.MachineType(v))
	return ref
}

func (b *CircuitBuilder) Add(lhs, rhs GateRef) GateRef { return b.binary(OpAdd, lhs, rhs) }
func (b *CircuitBuilder) Sub(lhs, rhs GateRef) GateRef { return b.binary(OpSub, lhs, rhs) }
func (b *CircuitBuilder) Mul(lhs, rhs GateRef) GateRef { return b.binary(OpMul, lhs, rhs) }
func (b *CircuitBuilder) SDiv(lhs, rhs GateRef) GateRef { return b.binary(OpSDiv, lhs, rhs) }
func (b *CircuitBuilder) And(lhs, rhs GateRef) GateRef { return b.binary(OpAnd, lhs, rhs) }
func (b *CircuitBuilder) Or(lhs, rhs GateRef) GateRef  { return b.binary(OpOr, lhs, rhs) }
func (b *CircuitBuilder) Xor(lhs, rhs GateRef) GateRef { return b.binary(OpXor, lhs, rhs) }
func (b *CircuitBuilder) Rev(v GateRef) GateRef        { return b.unary(OpRev, v) }

func (b *CircuitBuilder) Eq(lhs, rhs GateRef) GateRef {
	ref := b.must(b.c.NewGate(OpEq, 0, []GateRef{lhs, rhs}, nil))
	b.c.SetMachineType(ref, I1)
	return ref
}

func (b *CircuitBuilder) Ne(lhs, rhs GateRef) GateRef {
	ref := b.must(b.c.NewGate(OpNe, 0, []GateRef{lhs, rhs}, nil))
	b.c.SetMachineType(ref, I1)
	return ref
}

// compare constructs a signed/unsigned/float comparison, all producing I1.
func (b *CircuitBuilder) compare(op OpCode, lhs, rhs GateRef) GateRef {
	ref := b.must(b.c.NewGate(op, 0, []GateRef{lhs, rhs}, nil))
	b.c.SetMachineType(ref, I1)
	return ref
}

func (b *CircuitBuilder) SLt(lhs, rhs GateRef) GateRef { return b.compare(OpSLt, lhs, rhs) }
func (b *CircuitBuilder) SLe(lhs, rhs GateRef) GateRef { return b.compare(OpSLe, lhs, rhs) }
func (b *CircuitBuilder) SGt(lhs, rhs GateRef) GateRef { return b.compare(OpSGt, lhs, rhs) }
func (b *CircuitBuilder) SGe(lhs, rhs GateRef) GateRef { return b.compare(OpSGe, lhs, rhs) }

// RuntimeCall constructs a RUNTIME_CALL invoking stubID, ordered by
// depend, whose first value input is a CONSTANT carrying the stub id and
// whose remaining value inputs are args.
func (b *CircuitBuilder) RuntimeCall(depend GateRef, stubID uint64, args []GateRef) GateRef {
	return b.call(OpRuntimeCall, depend, stubID, args)
}

func (b *CircuitBuilder) NoGCRuntimeCall(depend GateRef, stubID uint64, args []GateRef) GateRef {
	return b.call(OpNoGCRuntimeCall, depend, stubID, args)
}

func (b *CircuitBuilder) call(op OpCode, depend GateRef, stubID uint64, args []GateRef) GateRef {
	idConst := b.ConstantI64(int64(stubID))
	vals := append([]GateRef{idConst}, args...)
	ins := append([]GateRef{depend}, vals...)
	ref := b.must(b.c.NewGate(op, uint64(len(vals)), ins, nil))
	b.c.SetMachineType(ref, AnyValue)
	return ref
}

// CallStubID extracts the stub id a call gate constructed by RuntimeCall
// or NoGCRuntimeCall invokes.
func (b *CircuitBuilder) CallStubID(call GateRef) uint64 {
	idConst := b.c.GetIn(call, 1)
	return b.c.Bitfield(idConst)
}

// CallArgs extracts the argument list (excluding the stub-id constant) a
// call gate was constructed with.
func (b *CircuitBuilder) CallArgs(call GateRef) []GateRef {
	n := b.c.NumIns(call)
	if n <= 2 {
		return nil
	}
	return b.c.InVector(call)[2:n]
}

// JSBytecode constructs an un-lowered bytecode gate: general state input,
// one depend input, and the given value operands.
func (b *CircuitBuilder) JSBytecode(state, depend GateRef, values []GateRef) GateRef {
	ins := append([]GateRef{state, depend}, values...)
	ref := b.must(b.c.NewGate(OpJSBytecode, uint64(len(values)), ins, nil))
	return ref
}

// JSBytecodeOp constructs a JS_BYTECODE gate whose first value input is a
// CONSTANT carrying stubID, the same convention RuntimeCall/call use to
// attach an operation identity to an otherwise-untyped value list.
// operands become the remaining value inputs.
func (b *CircuitBuilder) JSBytecodeOp(state, depend GateRef, stubID uint64, operands []GateRef) GateRef {
	idConst := b.ConstantI64(int64(stubID))
	values := append([]GateRef{idConst}, operands...)
	return b.JSBytecode(state, depend, values)
}

// BytecodeStubID extracts the stub id a gate constructed by JSBytecodeOp
// carries.
func (b *CircuitBuilder) BytecodeStubID(bytecode GateRef) uint64 {
	idConst := b.c.GetIn(bytecode, 2)
	return b.c.Bitfield(idConst)
}

// BytecodeOperands extracts the operand list (excluding the stub-id
// constant) a gate constructed by JSBytecodeOp carries.
func (b *CircuitBuilder) BytecodeOperands(bytecode GateRef) []GateRef {
	n := b.c.NumIns(bytecode)
	if n <= 3 {
		return nil
	}
	return b.c.InVector(bytecode)[3:n]
}

func (b *CircuitBuilder) IfSuccess(bytecode GateRef) GateRef {
	return b.must(b.c.NewGate(OpIfSuccess, 0, []GateRef{bytecode}, nil))
}

func (b *CircuitBuilder) IfException(bytecode GateRef) GateRef {
	return b.must(b.c.NewGate(OpIfException, 0, []GateRef{bytecode}, nil))
}

func (b *CircuitBuilder) GetException(state GateRef) GateRef {
	return b.must(b.c.NewGate(OpGetException, 0, []GateRef{state}, nil))
}

// ResumeGenerator constructs a RESUME_GENERATOR gate carrying offset (the
// bytecode position async/generator lowering dispatches to, spec §4.J) as
// its bitfield. received is a placeholder for the value passed into the
// generator's next() call; async lowering overwrites it with NEW_TARGET
// once it determines this resume point is actually reachable.
func (b *CircuitBuilder) ResumeGenerator(state, depend, received GateRef, offset uint32) GateRef {
	return b.must(b.c.NewGate(OpResumeGenerator, uint64(offset), []GateRef{state, depend, received}, nil))
}

// RestoreRegister constructs a RESTORE_REGISTER gate threaded after depend,
// carrying the restored vreg's generator-context slot index as its
// bitfield.
func (b *CircuitBuilder) RestoreRegister(depend GateRef, slot uint64) GateRef {
	return b.must(b.c.NewGate(OpRestoreRegister, slot, []GateRef{depend}, nil))
}

func f64bits(v float64) uint64 {
	return math.Float64bits(v)
}
