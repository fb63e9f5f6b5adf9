package circuit

// gateData is the header plus in-list for one gate. The out-list is
// threaded through the Circuit's separate out-record arena via firstOut,
// mirroring the intrusive doubly-linked out-list spec §3 describes.
type gateData struct {
	id          GateId
	opcode      OpCode
	machineType MachineType
	gateType    GateType
	bitfield    uint64
	mark        uint64
	ins         []GateRef
	firstOut    int32 // index into Circuit.outs, or noOut
}

const noOut int32 = -1

// outRecord is one entry in a user's reverse edge: "gate G uses me at
// in-slot Index". Records for a single producer form a doubly-linked list
// so DeleteIn/ModifyIn can unlink in O(1) and the uses-iterator can walk
// forward while retargeting the current edge (spec §4.C, §9).
type outRecord struct {
	user  GateRef
	index int32
	prev  int32
	next  int32
}
