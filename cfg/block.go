// Package cfg builds the control-flow graph over TAC basic blocks: the
// iterative worklist that simulates blocks against a symbolic stack,
// resolves JUMP/JUMPI targets, splits and clones blocks as new contexts
// are discovered, and computes dominance over the finished graph.
package cfg

import (
	"fmt"

	"github.com/eth2030/evmtac/symstack"
	"github.com/eth2030/evmtac/tac"
)

// BlockID identifies a basic block. Ordinary blocks are named
// B0x<hex entry pc>; a block created by context-sensitive cloning
// (spec §4.6) keeps its entry pc but appends a numeric clone suffix so
// every clone at the same pc has a distinct, deterministic id.
type BlockID string

// NewBlockID names the (unique) first block created at entryPC.
func NewBlockID(entryPC uint64) BlockID {
	return BlockID(fmt.Sprintf("B0x%x", entryPC))
}

// CloneID names the n-th clone (n >= 1) of the block originally at
// entryPC.
func CloneID(entryPC uint64, n int) BlockID {
	return BlockID(fmt.Sprintf("B0x%x#%d", entryPC, n))
}

// TACBlock is a maximal straight-line run of TAC operations: one entry
// (its first op, or EntryPC itself if Ops is empty), one terminator.
// Two TACBlocks may share EntryPC when one is a context-sensitive clone
// of the other.
type TACBlock struct {
	ID       BlockID
	EntryPC  uint64
	EndPC    uint64 // exclusive byte-offset upper bound of this block's range
	CloneIdx int    // 0 for the original block at EntryPC, >=1 for clones

	Ops []tac.TACOp

	EntryStack *symstack.Stack
	ExitStack  *symstack.Stack

	Predecessors map[BlockID]struct{}
	Successors   []BlockID // deterministic order: fallthrough (if any) first, then jump targets ascending by pc
	Fallthrough  *BlockID
	Jumpdest     bool

	Malformed  bool // stack under/overflow under die_on_empty_pop, no successors
	Unresolved bool // terminator's jump value could not be fully concretised

	visits              int          // worklist revisit count, for widen_threshold (§4.2)
	pendingDiagnostics  []Diagnostic // collected by resimulate, drained into CFG.Diagnostics by the builder
}

func newBlock(id BlockID, entryPC, endPC uint64, cloneIdx int) *TACBlock {
	return &TACBlock{
		ID:           id,
		EntryPC:      entryPC,
		EndPC:        endPC,
		CloneIdx:     cloneIdx,
		EntryStack:   symstack.New(),
		ExitStack:    symstack.New(),
		Predecessors: make(map[BlockID]struct{}),
	}
}

func (b *TACBlock) addPredecessor(id BlockID) {
	b.Predecessors[id] = struct{}{}
}

func (b *TACBlock) removePredecessor(id BlockID) {
	delete(b.Predecessors, id)
}

// contextKey derives a deterministic numeric key identifying this
// block's (entryPC, clone) context, used to name formal-input variables
// so that distinct clone contexts never collide on the same variable
// name for values that differ per context (DESIGN.md).
func (b *TACBlock) contextKey() uint64 {
	return b.EntryPC*1_000_000 + uint64(b.CloneIdx)
}
