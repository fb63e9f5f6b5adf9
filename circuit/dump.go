package circuit

import (
	"fmt"
	"io"
)

// WriteDump renders every live gate in c to w: one line per gate with its
// id, opcode, machine type, bitfield, in-list and out-list, in the shape
// the original implementation's circuit visualizer produces. Intended for
// the opt-in debug/tracing hook (spec §6.5), not for machine parsing.
func WriteDump(w io.Writer, c *Circuit) error {
	for ref := GateRef(0); int(ref) < c.NumGates(); ref++ {
		if c.Opcode(ref) == OpNop {
			continue
		}
		ins := c.InVector(ref)
		outs := c.OutVector(ref)
		_, err := fmt.Fprintf(w, "id=%d ref=%d op=%s mt=%s bitfield=%d ins=%v outs=%v\n",
			c.Id(ref), ref, c.Opcode(ref), c.MachineType(ref), c.Bitfield(ref), ins, formatOuts(outs))
		if err != nil {
			return err
		}
	}
	return nil
}

func formatOuts(outs []struct {
	User  GateRef
	Index int
}) []string {
	s := make([]string, len(outs))
	for i, o := range outs {
		s[i] = fmt.Sprintf("%d@%d", o.User, o.Index)
	}
	return s
}
