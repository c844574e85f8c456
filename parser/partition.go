package parser

import (
	"sort"

	"github.com/eth2030/evmtac/evm"
)

// Partition computes the initial straight-line basic-block partition
// over a parsed op sequence, per spec §4.1: a new block starts right
// after any halting/flow-altering op, and right before any JUMPDEST.
// The returned breakpoints (block entry program counters) are sorted
// ascending and always include the first op's pc, if ops is non-empty.
func Partition(ops []evm.EVMOp) []uint64 {
	if len(ops) == 0 {
		return nil
	}
	set := map[uint64]bool{ops[0].PC: true}
	codeEnd := ops[len(ops)-1].NextPC()
	for _, op := range ops {
		if op.Opcode.AltersFlow && op.NextPC() < codeEnd {
			set[op.NextPC()] = true
		}
		if op.Opcode.IsJumpdest {
			set[op.PC] = true
		}
	}
	out := make([]uint64, 0, len(set))
	for pc := range set {
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Jumpdests returns the set of program counters at which a JUMPDEST
// opcode appears, the only legal JUMP/JUMPI targets (spec §3).
func Jumpdests(ops []evm.EVMOp) map[uint64]bool {
	out := make(map[uint64]bool)
	for _, op := range ops {
		if op.Opcode.IsJumpdest {
			out[op.PC] = true
		}
	}
	return out
}
