package circuit

// OpCode is the dispatch key for a gate's behavior. Values are stable within
// a build (spec §6.2: "the dispatch key is an integer identifier stable
// across the codebase"); do not reorder existing entries.
type OpCode uint16

const (
	OpInvalid OpCode = iota

	// Roots.
	OpCircuitRoot
	OpStateEntry
	OpDependEntry
	OpFrameStateEntry
	OpReturnList
	OpThrowList
	OpConstantList
	OpAllocaList
	OpArgList

	// Terminal state.
	OpReturn
	OpReturnVoid
	OpThrow

	// Control structure.
	OpOrdinaryBlock
	OpIfBranch
	OpSwitchBranch
	OpIfTrue
	OpIfFalse
	OpSwitchCase
	OpDefaultCase
	OpMerge
	OpLoopBegin
	OpLoopBack

	// Selectors & depend plumbing.
	OpValueSelector
	OpDependSelector
	OpDependRelay
	OpDependAnd

	// High-level un-lowered bytecode.
	OpJSBytecode

	// Generator control, consumed by the async/generator lowering pass
	// (spec §4.J): a resume point reachable either from a fresh call or
	// from the dispatch cascade module J builds, and the depend-chained
	// register restores that precede it.
	OpResumeGenerator
	OpRestoreRegister

	// Bytecode-split continuations.
	OpIfSuccess
	OpIfException
	OpGetException

	// Mid-level calls.
	OpRuntimeCall
	OpNoGCRuntimeCall
	OpBytecodeCall
	OpDebuggerBytecodeCall
	OpCall
	OpRuntimeCallWithArgv

	// Leaves.
	OpArg
	OpConstant
	OpAlloca
	OpMutableData
	OpConstData
	OpRelocatableData

	// Pure arithmetic / comparison / cast.
	OpRev
	OpAdd
	OpSub
	OpMul
	OpExp
	OpSDiv
	OpSMod
	OpUDiv
	OpUMod
	OpFDiv
	OpFMod
	OpAnd
	OpXor
	OpOr
	OpLsl
	OpLsr
	OpAsr
	OpSLt
	OpSLe
	OpSGt
	OpSGe
	OpULt
	OpULe
	OpUGt
	OpUGe
	OpFLt
	OpFLe
	OpFGt
	OpFGe
	OpEq
	OpNe
	OpZExt
	OpSExt
	OpTrunc
	OpSignedIntToFloat
	OpUnsignedIntToFloat
	OpFloatToSignedInt
	OpUnsignedFloatToInt
	OpBitcast
	OpTaggedToInt64
	OpInt64ToTagged

	// Memory.
	OpLoad
	OpStore

	// Retired gate marker; never constructed directly.
	OpNop

	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	OpInvalid:              "INVALID",
	OpCircuitRoot:          "CIRCUIT_ROOT",
	OpStateEntry:           "STATE_ENTRY",
	OpDependEntry:          "DEPEND_ENTRY",
	OpFrameStateEntry:      "FRAMESTATE_ENTRY",
	OpReturnList:           "RETURN_LIST",
	OpThrowList:            "THROW_LIST",
	OpConstantList:         "CONSTANT_LIST",
	OpAllocaList:           "ALLOCA_LIST",
	OpArgList:              "ARG_LIST",
	OpReturn:               "RETURN",
	OpReturnVoid:           "RETURN_VOID",
	OpThrow:                "THROW",
	OpOrdinaryBlock:        "ORDINARY_BLOCK",
	OpIfBranch:             "IF_BRANCH",
	OpSwitchBranch:         "SWITCH_BRANCH",
	OpIfTrue:               "IF_TRUE",
	OpIfFalse:              "IF_FALSE",
	OpSwitchCase:           "SWITCH_CASE",
	OpDefaultCase:          "DEFAULT_CASE",
	OpMerge:                "MERGE",
	OpLoopBegin:            "LOOP_BEGIN",
	OpLoopBack:             "LOOP_BACK",
	OpValueSelector:        "VALUE_SELECTOR",
	OpDependSelector:       "DEPEND_SELECTOR",
	OpDependRelay:          "DEPEND_RELAY",
	OpDependAnd:            "DEPEND_AND",
	OpJSBytecode:           "JS_BYTECODE",
	OpResumeGenerator:      "RESUME_GENERATOR",
	OpRestoreRegister:      "RESTORE_REGISTER",
	OpIfSuccess:            "IF_SUCCESS",
	OpIfException:          "IF_EXCEPTION",
	OpGetException:         "GET_EXCEPTION",
	OpRuntimeCall:          "RUNTIME_CALL",
	OpNoGCRuntimeCall:      "NOGC_RUNTIME_CALL",
	OpBytecodeCall:         "BYTECODE_CALL",
	OpDebuggerBytecodeCall: "DEBUGGER_BYTECODE_CALL",
	OpCall:                 "CALL",
	OpRuntimeCallWithArgv:  "RUNTIME_CALL_WITH_ARGV",
	OpArg:                  "ARG",
	OpConstant:             "CONSTANT",
	OpAlloca:               "ALLOCA",
	OpMutableData:          "MUTABLE_DATA",
	OpConstData:            "CONST_DATA",
	OpRelocatableData:      "RELOCATABLE_DATA",
	OpRev:                  "REV",
	OpAdd:                  "ADD",
	OpSub:                  "SUB",
	OpMul:                  "MUL",
	OpExp:                  "EXP",
	OpSDiv:                 "SDIV",
	OpSMod:                 "SMOD",
	OpUDiv:                 "UDIV",
	OpUMod:                 "UMOD",
	OpFDiv:                 "FDIV",
	OpFMod:                 "FMOD",
	OpAnd:                  "AND",
	OpXor:                  "XOR",
	OpOr:                   "OR",
	OpLsl:                  "LSL",
	OpLsr:                  "LSR",
	OpAsr:                  "ASR",
	OpSLt:                  "SLT",
	OpSLe:                  "SLE",
	OpSGt:                  "SGT",
	OpSGe:                  "SGE",
	OpULt:                  "ULT",
	OpULe:                  "ULE",
	OpUGt:                  "UGT",
	OpUGe:                  "UGE",
	OpFLt:                  "FLT",
	OpFLe:                  "FLE",
	OpFGt:                  "FGT",
	OpFGe:                  "FGE",
	OpEq:                   "EQ",
	OpNe:                   "NE",
	OpZExt:                 "ZEXT",
	OpSExt:                 "SEXT",
	OpTrunc:                "TRUNC",
	OpSignedIntToFloat:     "SIGNED_INT_TO_FLOAT",
	OpUnsignedIntToFloat:   "UNSIGNED_INT_TO_FLOAT",
	OpFloatToSignedInt:     "FLOAT_TO_SIGNED_INT",
	OpUnsignedFloatToInt:   "UNSIGNED_FLOAT_TO_INT",
	OpBitcast:              "BITCAST",
	OpTaggedToInt64:        "TAGGED_TO_INT64",
	OpInt64ToTagged:        "INT64_TO_TAGGED",
	OpLoad:                 "LOAD",
	OpStore:                "STORE",
	OpNop:                  "NOP",
}

func (op OpCode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "UNKNOWN_OPCODE"
}

// rootOpcodeTag maps each of the nine root opcodes to the RootTag it is
// installed under in the circuit's roots array.
var rootOpcodeTag = map[OpCode]RootTag{
	OpCircuitRoot:     CircuitRootTag,
	OpStateEntry:      StateEntryTag,
	OpDependEntry:     DependEntryTag,
	OpFrameStateEntry: FrameStateEntryTag,
	OpReturnList:      ReturnListTag,
	OpThrowList:       ThrowListTag,
	OpConstantList:    ConstantListTag,
	OpAllocaList:      AllocaListTag,
	OpArgList:         ArgListTag,
}

// rootTagOpcode is the inverse of rootOpcodeTag, in tag order, used by
// NewCircuit to install the prelude.
var rootTagOpcode = [numRootTags]OpCode{
	CircuitRootTag:     OpCircuitRoot,
	StateEntryTag:      OpStateEntry,
	DependEntryTag:     OpDependEntry,
	FrameStateEntryTag: OpFrameStateEntry,
	ReturnListTag:      OpReturnList,
	ThrowListTag:       OpThrowList,
	ConstantListTag:    OpConstantList,
	AllocaListTag:      OpAllocaList,
	ArgListTag:         OpArgList,
}

func (op OpCode) IsRoot() bool {
	_, ok := rootOpcodeTag[op]
	return ok
}

// IsProlog reports whether op belongs to the fixed argument prelude a
// method's entry block installs (spec §4.G.8).
func (op OpCode) IsProlog() bool {
	return op == OpArg
}

// IsFixed reports whether op is a selector or depend-relay: a gate whose
// state predecessor arity is pinned to exactly one merge-like node,
// independent of how many value/depend operands it carries.
func (op OpCode) IsFixed() bool {
	switch op {
	case OpValueSelector, OpDependSelector, OpDependRelay:
		return true
	default:
		return false
	}
}

// IsState reports whether op produces a state-carrying gate.
func (op OpCode) IsState() bool {
	return propertiesTable[op].State.isPresent()
}

// IsGeneralState reports whether op is accepted in a wildcard state-input
// slot: branches, merges, loop heads, bytecode gates, success/exception
// continuations, and the state-entry sentinel.
func (op OpCode) IsGeneralState() bool {
	switch op {
	case OpStateEntry, OpOrdinaryBlock, OpIfBranch, OpSwitchBranch,
		OpIfTrue, OpIfFalse, OpSwitchCase, OpDefaultCase,
		OpMerge, OpLoopBegin, OpLoopBack,
		OpJSBytecode, OpResumeGenerator, OpIfSuccess, OpIfException,
		OpReturn, OpReturnVoid, OpThrow:
		return true
	default:
		return false
	}
}

// IsTerminalState reports whether op ends a control path.
func (op OpCode) IsTerminalState() bool {
	switch op {
	case OpReturn, OpReturnVoid, OpThrow:
		return true
	default:
		return false
	}
}

// IsCFGMerge reports whether op merges multiple state predecessors.
func (op OpCode) IsCFGMerge() bool {
	return op == OpMerge || op == OpLoopBegin
}

// IsControlCase reports whether op is a single branch arm (the kind of
// state gate a DEPEND_RELAY may legally follow, per invariant 6).
func (op OpCode) IsControlCase() bool {
	switch op {
	case OpIfTrue, OpIfFalse, OpSwitchCase, OpDefaultCase,
		OpIfSuccess, OpIfException:
		return true
	default:
		return false
	}
}

// IsLoopHead reports whether op begins a loop.
func (op OpCode) IsLoopHead() bool {
	return op == OpLoopBegin
}

// IsSchedulable reports whether op is a real instruction a scheduler would
// place into a basic block, as opposed to a root/bookkeeping gate.
func (op OpCode) IsSchedulable() bool {
	if op.IsRoot() || op == OpNop {
		return false
	}
	return true
}

// stateEntry describes one expected predecessor shape for a state input
// slot. An empty Allowed set means "any general-state opcode" (wildcard).
type stateEntry struct {
	Allowed []OpCode
}

func (e stateEntry) matches(producer OpCode) bool {
	if len(e.Allowed) == 0 {
		return producer.IsGeneralState()
	}
	for _, a := range e.Allowed {
		if a == producer {
			return true
		}
	}
	return false
}

func (e stateEntry) describe() string {
	if len(e.Allowed) == 0 {
		return "any general-state opcode"
	}
	s := ""
	for i, a := range e.Allowed {
		if i > 0 {
			s += "|"
		}
		s += a.String()
	}
	return s
}

// stateSchema is the state-input contract for an opcode: either a fixed
// list of entries, or (MERGE only) a single entry pattern repeated
// `bitfield` times.
type stateSchema struct {
	Entries []stateEntry
	Repeat  bool
}

func (s stateSchema) isPresent() bool { return len(s.Entries) > 0 }

func (s stateSchema) arity(bitfield uint64) int {
	if !s.isPresent() {
		return 0
	}
	if s.Repeat {
		return int(bitfield)
	}
	return len(s.Entries)
}

func (s stateSchema) entryAt(i int) stateEntry {
	if s.Repeat {
		return s.Entries[0]
	}
	return s.Entries[i]
}

// dependArity describes the fixed/variable shape of an opcode's depend
// inputs.
type dependArity int

const (
	dependZero dependArity = iota
	dependOne
	dependMany // count == bitfield
)

func (d dependArity) arity(bitfield uint64) int {
	switch d {
	case dependZero:
		return 0
	case dependOne:
		return 1
	case dependMany:
		return int(bitfield)
	default:
		return 0
	}
}

// valueSchema is the value-input contract for an opcode: either a fixed
// list of machine types, or a single type pattern repeated `bitfield`
// times.
type valueSchema struct {
	Types  []MachineType
	Repeat bool
}

func (s valueSchema) isPresent() bool { return len(s.Types) > 0 }

func (s valueSchema) arity(bitfield uint64) int {
	if !s.isPresent() {
		return 0
	}
	if s.Repeat {
		return int(bitfield)
	}
	return len(s.Types)
}

func (s valueSchema) typeAt(i int) MachineType {
	if s.Repeat {
		return s.Types[0]
	}
	return s.Types[i]
}

// Properties is the static per-opcode contract described in spec §4.B: the
// produced machine type, state/depend/value input schemas, and which root
// bucket instances of this opcode attach to (if any).
type Properties struct {
	Name        string
	MachineType MachineType
	State       stateSchema
	Depend      dependArity
	Value       valueSchema
	Root        RootTag
	HasRoot     bool
}

// PropertiesOf returns the static contract for op.
func PropertiesOf(op OpCode) Properties {
	return propertiesTable[op]
}

// Arity returns the (state, depend, value, root) input counts an instance
// of op with the given bitfield must have — invariant I2.
func Arity(op OpCode, bitfield uint64) (state, depend, value, root int) {
	p := propertiesTable[op]
	state = p.State.arity(bitfield)
	depend = p.Depend.arity(bitfield)
	value = p.Value.arity(bitfield)
	if p.HasRoot {
		root = 1
	}
	return
}

func wildcard() stateEntry { return stateEntry{} }
func fixed(ops ...OpCode) stateEntry { return stateEntry{Allowed: ops} }

var propertiesTable [numOpcodes]Properties

func reg(op OpCode, p Properties) {
	p.Name = opcodeNames[op]
	propertiesTable[op] = p
}

func init() {
	// Roots: no value, one root input pointing at CIRCUIT_ROOT, except
	// CIRCUIT_ROOT itself which has none.
	reg(OpCircuitRoot, Properties{})
	for _, op := range []OpCode{
		OpStateEntry, OpDependEntry, OpFrameStateEntry, OpReturnList,
		OpThrowList, OpConstantList, OpAllocaList, OpArgList,
	} {
		reg(op, Properties{Root: CircuitRootTag, HasRoot: true})
	}

	// Terminal state.
	reg(OpReturn, Properties{
		State: stateSchema{Entries: []stateEntry{wildcard()}},
		Depend: dependOne,
		Value:  valueSchema{Types: []MachineType{Flex}},
		Root:   ReturnListTag, HasRoot: true,
	})
	reg(OpReturnVoid, Properties{
		State:  stateSchema{Entries: []stateEntry{wildcard()}},
		Depend: dependOne,
		Root:   ReturnListTag, HasRoot: true,
	})
	reg(OpThrow, Properties{
		State:  stateSchema{Entries: []stateEntry{wildcard()}},
		Depend: dependOne,
		Value:  valueSchema{Types: []MachineType{Flex}},
		Root:   ThrowListTag, HasRoot: true,
	})

	// Control structure.
	reg(OpOrdinaryBlock, Properties{State: stateSchema{Entries: []stateEntry{wildcard()}}})
	reg(OpIfBranch, Properties{
		State: stateSchema{Entries: []stateEntry{wildcard()}},
		Value: valueSchema{Types: []MachineType{I1}},
	})
	reg(OpSwitchBranch, Properties{
		State: stateSchema{Entries: []stateEntry{wildcard()}},
		Value: valueSchema{Types: []MachineType{Flex}},
	})
	reg(OpIfTrue, Properties{State: stateSchema{Entries: []stateEntry{fixed(OpIfBranch)}}})
	reg(OpIfFalse, Properties{State: stateSchema{Entries: []stateEntry{fixed(OpIfBranch)}}})
	reg(OpSwitchCase, Properties{State: stateSchema{Entries: []stateEntry{fixed(OpSwitchBranch)}}})
	reg(OpDefaultCase, Properties{State: stateSchema{Entries: []stateEntry{fixed(OpSwitchBranch)}}})
	reg(OpMerge, Properties{State: stateSchema{Entries: []stateEntry{wildcard()}, Repeat: true}})
	reg(OpLoopBegin, Properties{State: stateSchema{Entries: []stateEntry{wildcard(), fixed(OpLoopBack)}}})
	reg(OpLoopBack, Properties{State: stateSchema{Entries: []stateEntry{wildcard()}}})

	// Selectors & depend plumbing.
	reg(OpValueSelector, Properties{
		State: stateSchema{Entries: []stateEntry{fixed(OpMerge, OpLoopBegin)}},
		Value: valueSchema{Types: []MachineType{Flex}, Repeat: true},
	})
	reg(OpDependSelector, Properties{
		State:  stateSchema{Entries: []stateEntry{fixed(OpMerge, OpLoopBegin)}},
		Depend: dependMany,
	})
	reg(OpDependRelay, Properties{
		State:  stateSchema{Entries: []stateEntry{wildcard()}},
		Depend: dependOne,
	})
	reg(OpDependAnd, Properties{Depend: dependMany})

	// High-level un-lowered bytecode.
	reg(OpJSBytecode, Properties{
		State:  stateSchema{Entries: []stateEntry{wildcard()}},
		Depend: dependOne,
		Value:  valueSchema{Types: []MachineType{AnyValue}, Repeat: true},
	})

	// Generator control (spec §4.J). RESUME_GENERATOR is a general-state
	// producer like JS_BYTECODE: its own GateRef is both the new state
	// and the value a reader of the resumed vreg sees. Its one value
	// input starts as a placeholder and is overwritten with NEW_TARGET
	// once the dispatch cascade rewires it. RESTORE_REGISTER carries no
	// state at all, only a depend edge threading it after the gate it
	// restores a register from.
	reg(OpResumeGenerator, Properties{
		State:  stateSchema{Entries: []stateEntry{wildcard()}},
		Depend: dependOne,
		Value:  valueSchema{Types: []MachineType{AnyValue}},
	})
	reg(OpRestoreRegister, Properties{Depend: dependOne})

	// Bytecode-split continuations.
	reg(OpIfSuccess, Properties{State: stateSchema{Entries: []stateEntry{fixed(OpJSBytecode, OpRuntimeCall, OpCall)}}})
	reg(OpIfException, Properties{State: stateSchema{Entries: []stateEntry{fixed(OpJSBytecode, OpRuntimeCall, OpCall)}}})
	reg(OpGetException, Properties{
		State:       stateSchema{Entries: []stateEntry{wildcard()}},
		MachineType: AnyValue,
	})

	// Mid-level calls: no state, one depend, many values.
	for _, op := range []OpCode{
		OpRuntimeCall, OpNoGCRuntimeCall, OpBytecodeCall,
		OpDebuggerBytecodeCall, OpCall, OpRuntimeCallWithArgv,
	} {
		reg(op, Properties{
			MachineType: AnyValue,
			Depend:      dependOne,
			Value:       valueSchema{Types: []MachineType{AnyValue}, Repeat: true},
		})
	}

	// Leaves.
	reg(OpArg, Properties{MachineType: AnyValue, Root: ArgListTag, HasRoot: true})
	reg(OpConstant, Properties{MachineType: AnyValue, Root: ConstantListTag, HasRoot: true})
	reg(OpAlloca, Properties{MachineType: AnyValue, Root: AllocaListTag, HasRoot: true})
	reg(OpMutableData, Properties{MachineType: AnyValue})
	reg(OpConstData, Properties{MachineType: AnyValue})
	reg(OpRelocatableData, Properties{MachineType: AnyValue})

	// Pure arithmetic / comparison / cast: two Flex-typed value inputs,
	// Flex-typed result, no state, no depend — except REV (unary) and
	// the cast family (unary).
	binaryArith := func(op OpCode) {
		reg(op, Properties{MachineType: Flex, Value: valueSchema{Types: []MachineType{Flex, Flex}}})
	}
	for _, op := range []OpCode{
		OpAdd, OpSub, OpMul, OpExp, OpSDiv, OpSMod, OpUDiv, OpUMod,
		OpFDiv, OpFMod, OpAnd, OpXor, OpOr, OpLsl, OpLsr, OpAsr,
		OpSLt, OpSLe, OpSGt, OpSGe, OpULt, OpULe, OpUGt, OpUGe,
		OpFLt, OpFLe, OpFGt, OpFGe, OpEq, OpNe,
	} {
		binaryArith(op)
	}
	reg(OpRev, Properties{MachineType: Flex, Value: valueSchema{Types: []MachineType{Flex}}})
	for _, op := range []OpCode{
		OpZExt, OpSExt, OpTrunc, OpSignedIntToFloat, OpUnsignedIntToFloat,
		OpFloatToSignedInt, OpUnsignedFloatToInt, OpBitcast,
		OpTaggedToInt64, OpInt64ToTagged,
	} {
		reg(op, Properties{MachineType: Flex, Value: valueSchema{Types: []MachineType{Flex}}})
	}

	// Memory.
	reg(OpLoad, Properties{
		MachineType: AnyValue,
		Depend:      dependOne,
		Value:       valueSchema{Types: []MachineType{AnyValue}},
	})
	reg(OpStore, Properties{
		Depend: dependOne,
		Value:  valueSchema{Types: []MachineType{AnyValue, AnyValue}},
	})

	reg(OpNop, Properties{})
}
