// Package disasm renders a parsed EVMOp sequence as a flat textual
// listing: pc, mnemonic, and immediate (spec §4.8). It performs no
// control-flow analysis of its own; block boundaries, when requested,
// come from the caller's partition.
package disasm

import (
	"fmt"
	"strings"

	"github.com/eth2030/evmtac/evm"
)

// ANSI escape codes, reused from the same small palette the wider pack
// uses for its log formatter, repurposed here from severity levels to
// opcode categories.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

// Options controls rendering.
type Options struct {
	// Prettify inserts a blank line at each block boundary named in
	// BlockBreaks.
	Prettify bool
	// Color ANSI-colourises mnemonics by category. It applies whether or
	// not Prettify is set.
	Color bool
	// BlockBreaks names the program counters that start a new block
	// (e.g. from parser.Partition), used only when Prettify is set.
	BlockBreaks map[uint64]bool
}

// Render produces the pc\tmnemonic\timmediate? listing for ops.
func Render(ops []evm.EVMOp, opts Options) string {
	var b strings.Builder
	for i, op := range ops {
		if opts.Prettify && i > 0 && opts.BlockBreaks[op.PC] {
			b.WriteString("\n")
		}
		b.WriteString(renderOp(op, opts))
		b.WriteString("\n")
	}
	return b.String()
}

func renderOp(op evm.EVMOp, opts Options) string {
	name := op.Opcode.Name
	rendered := name
	if opts.Color {
		rendered = colorize(op.Opcode) + name + ansiReset
	}
	if op.Immediate == nil {
		return fmt.Sprintf("%d\t%s", op.PC, rendered)
	}
	return fmt.Sprintf("%d\t%s\t0x%x", op.PC, rendered, op.ImmediateBytes)
}

func colorize(oc evm.Opcode) string {
	switch {
	case oc.Halts:
		return ansiBold + ansiRed
	case oc.IsJumpdest:
		return ansiGreen
	case oc.AltersFlow:
		return ansiYellow
	case oc.IsPush:
		return ansiCyan
	default:
		return ""
	}
}
