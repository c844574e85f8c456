package evm

import "github.com/holiman/uint256"

// EVMOp is one decoded instruction: its program counter, opcode, and
// immediate operand for PUSH instructions. It is immutable once produced
// by the parser.
type EVMOp struct {
	PC     uint64
	Opcode Opcode
	// Immediate holds the big-endian immediate for PUSH1..PUSH32, nil
	// otherwise.
	Immediate *uint256.Int
	// ImmediateBytes holds the raw, unpadded immediate bytes as they
	// appeared in the input, so re-assembly (§8 round-trip) can restore
	// exact byte width even when the value itself has leading zeros.
	ImmediateBytes []byte
}

// NextPC returns the program counter of the instruction immediately
// following this one in the byte stream.
func (op EVMOp) NextPC() uint64 {
	return op.PC + 1 + uint64(op.Opcode.ImmediateWidth)
}
