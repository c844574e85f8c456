// Package tac defines the three-address-code representation that the
// lifter lowers EVM bytecode into: Variables carry SSA-like names and an
// attached lattice value, and TACOp names its defs and uses explicitly.
package tac

import (
	"fmt"

	"github.com/eth2030/evmtac/evm"
	"github.com/eth2030/evmtac/lattice"
)

// Variable is an SSA-like name derived from the defining op's pc and an
// intra-block index (V<pc>_<k>), carrying its current lattice value.
// Variables are small value types, copied freely.
type Variable struct {
	Name  string
	Value lattice.Value
}

// NewVariable builds the canonical V<pc>_<k> name for a definition at pc,
// the k-th value defined within its block.
func NewVariable(pc uint64, k int, val lattice.Value) Variable {
	return Variable{Name: fmt.Sprintf("V%d_%d", pc, k), Value: val}
}

// InputVariable names a formal input: a value that was on the stack on
// entry to a block rather than produced within it (§4.3, §4.4).
func InputVariable(blockEntryPC uint64, slot int, val lattice.Value) Variable {
	return Variable{Name: fmt.Sprintf("I%d_%d", blockEntryPC, slot), Value: val}
}

// TACOp is one three-address operation: it pops evm.Opcode.Pops operands
// (Uses) and, if the opcode pushes exactly one value, defines a fresh
// Variable (Defs). EVM ops never push more than one value, so Defs holds
// at most one element.
type TACOp struct {
	PC   uint64
	Op   evm.Opcode
	Defs []Variable
	Uses []Variable
}

// Def returns the op's single definition and true, or the zero Variable
// and false if this op defines nothing.
func (t TACOp) Def() (Variable, bool) {
	if len(t.Defs) == 0 {
		return Variable{}, false
	}
	return t.Defs[0], true
}

func (t TACOp) String() string {
	d, ok := t.Def()
	if !ok {
		return fmt.Sprintf("%d: %s %v", t.PC, t.Op.Name, names(t.Uses))
	}
	return fmt.Sprintf("%d: %s = %s %v", t.PC, d.Name, t.Op.Name, names(t.Uses))
}

func names(vars []Variable) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.Name
	}
	return out
}
