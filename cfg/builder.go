package cfg

import (
	"context"
	"fmt"

	"github.com/eth2030/evmtac/config"
	"github.com/eth2030/evmtac/evm"
	"github.com/eth2030/evmtac/log"
	"github.com/eth2030/evmtac/parser"
	"github.com/eth2030/evmtac/symstack"
)

type workItem struct {
	id    BlockID
	stack *symstack.Stack
}

// builder holds the mutable state of one CFGBuilder run (spec §4.6):
// the block arena (via cfg), the parsed op sequence indexed by pc, the
// jumpdest set, and per-pc clone bookkeeping.
type builder struct {
	ops         []evm.EVMOp
	opIndexByPC map[uint64]int
	jumpdests   map[uint64]bool
	codeEnd     uint64

	cfgv   config.Config
	logger *log.Logger

	cfg        *CFG
	cloneCount map[uint64]int
	routed     map[string]BlockID // "<predID>-><pc>" -> resolved target block, memoized per edge
	queue      []workItem
}

// Build runs the CFGBuilder worklist to a fixed point (or until ctx is
// cancelled, or a resource bound is hit), per spec §4.6/§5.
func Build(ctx context.Context, ops []evm.EVMOp, cfgv config.Config, logger *log.Logger) (*CFG, error) {
	logger = log.OrDefault(logger).Module("cfg")
	b := &builder{
		ops:         ops,
		opIndexByPC: make(map[uint64]int, len(ops)),
		jumpdests:   parser.Jumpdests(ops),
		cfgv:        cfgv,
		logger:      logger,
		cfg:         newCFG(),
		cloneCount:  make(map[uint64]int),
		routed:      make(map[string]BlockID),
	}
	for i, op := range ops {
		b.opIndexByPC[op.PC] = i
	}
	if len(ops) > 0 {
		b.codeEnd = ops[len(ops)-1].NextPC()
	}
	if len(ops) == 0 {
		return b.cfg, nil
	}

	breakpoints := parser.Partition(ops)
	for i, pc := range breakpoints {
		if pc >= b.codeEnd {
			continue
		}
		end := b.codeEnd
		if i+1 < len(breakpoints) {
			end = breakpoints[i+1]
		}
		blk := newBlock(NewBlockID(pc), pc, end, 0)
		blk.Jumpdest = b.jumpdests[pc]
		b.cfg.addBlock(blk)
	}
	b.cfg.Entry = NewBlockID(ops[0].PC)
	if _, ok := b.cfg.Blocks[b.cfg.Entry]; !ok {
		return b.cfg, fmt.Errorf("cfg: no initial block at entry pc %d", ops[0].PC)
	}

	b.queue = append(b.queue, workItem{id: b.cfg.Entry, stack: symstack.New()})

	for len(b.queue) > 0 {
		if err := ctx.Err(); err != nil {
			b.cfg.Aborted = true
			b.cfg.diagnose(CancelRequested, "", 0, err.Error())
			logger.Warn("cancelled", "reason", err.Error())
			break
		}
		item := b.queue[0]
		b.queue = b.queue[1:]

		blk, ok := b.cfg.Blocks[item.id]
		if !ok {
			continue
		}

		merged := symstack.Meet(blk.EntryStack, item.stack, cfgv.SetMax, blk.EntryPC)
		if symstack.Equal(merged, blk.EntryStack) && blk.visits > 0 {
			continue
		}
		blk.visits++
		if cfgv.WidenThreshold > 0 && blk.visits > cfgv.WidenThreshold {
			merged = widenDiffering(blk.EntryStack, merged)
			logger.Debug("widened entry stack", "block", string(blk.ID), "visits", blk.visits)
		}
		blk.EntryStack = merged

		b.resimulate(blk)

		for _, diag := range blk.pendingDiagnostics {
			b.cfg.Diagnostics = append(b.cfg.Diagnostics, diag)
		}
		blk.pendingDiagnostics = nil

		if len(b.cfg.Blocks) > cfgv.MaxBlocks && cfgv.MaxBlocks > 0 {
			b.cfg.Aborted = true
			b.cfg.diagnose(ResourceExceeded, blk.ID, blk.EntryPC, "max_blocks exceeded")
			logger.Warn("max_blocks exceeded", "blocks", len(b.cfg.Blocks))
			break
		}

		for _, succ := range blk.Successors {
			b.queue = append(b.queue, workItem{id: succ, stack: blk.ExitStack})
		}
	}

	if cfgv.RemoveUnreachable {
		RemoveUnreachable(b.cfg)
	}
	if cfgv.FoldConstantBranches {
		FoldConstantBranch(b.cfg)
		// An edge fold can leave a block with no path from Entry that the
		// pruning pass above, run before the fold, had no way to see yet.
		if cfgv.RemoveUnreachable && cfgv.MergeUnreachable {
			RemoveUnreachable(b.cfg)
		}
	}
	return b.cfg, nil
}

// blockOps returns the EVMOp slice covering [start, end) by index lookup
// into the sorted op sequence.
func (b *builder) blockOps(start, end uint64) []evm.EVMOp {
	i, ok := b.opIndexByPC[start]
	if !ok {
		return nil
	}
	j := i
	for j < len(b.ops) && b.ops[j].PC < end {
		j++
	}
	return b.ops[i:j]
}

// resimulate lowers blk against its current EntryStack, updates its Ops/
// ExitStack/flags, resolves its terminator's targets to concrete
// BlockIDs (materialising new edges and, via resolveTarget, new clones),
// and fixes up predecessor bookkeeping for any successor set change.
func (b *builder) resimulate(blk *TACBlock) {
	ops := b.blockOps(blk.EntryPC, blk.EndPC)
	r := simulateBlock(ops, blk, blk.EntryStack, b.jumpdests, b.cfgv)

	blk.Ops = r.ops
	blk.ExitStack = r.exitStack
	blk.Malformed = r.malformed
	blk.Unresolved = blk.Unresolved || r.unresolved

	for _, pc := range r.dropped {
		blk.pendingDiagnostics = append(blk.pendingDiagnostics, Diagnostic{
			Kind: UnresolvedJump, BlockID: blk.ID, PC: blk.EntryPC,
			Detail: fmt.Sprintf("target 0x%x is not a JUMPDEST", pc),
		})
	}
	if r.unresolved {
		blk.pendingDiagnostics = append(blk.pendingDiagnostics, Diagnostic{
			Kind: UnresolvedJump, BlockID: blk.ID, PC: blk.EntryPC,
			Detail: "jump target value is unresolved (Top)",
		})
	}
	if r.malformed {
		kind := StackUnderflow
		detail := "block simulation aborted: stack underflow"
		if r.overflow {
			kind = StackOverflow
			detail = "block simulation aborted: stack overflow"
		}
		blk.pendingDiagnostics = append(blk.pendingDiagnostics, Diagnostic{
			Kind: kind, BlockID: blk.ID, PC: blk.EntryPC, Detail: detail,
		})
	}

	var newSucc []BlockID
	var newFallthrough *BlockID
	if !r.malformed {
		switch r.term {
		case termFallthrough:
			id := b.resolveTarget(blk.ID, r.fallthrough_, r.exitStack)
			newSucc = append(newSucc, id)
			newFallthrough = &id
		case termJumpI:
			if !r.hasNoFallthrough {
				id := b.resolveTarget(blk.ID, r.fallthrough_, r.exitStack)
				newSucc = append(newSucc, id)
				newFallthrough = &id
			}
			for _, pc := range r.jumpTargets {
				newSucc = append(newSucc, b.resolveTarget(blk.ID, pc, r.exitStack))
			}
		case termJump:
			for _, pc := range r.jumpTargets {
				newSucc = append(newSucc, b.resolveTarget(blk.ID, pc, r.exitStack))
			}
		case termHalt:
			// no successors
		}
	}

	old := blk.Successors
	oldSet := make(map[BlockID]bool, len(old))
	for _, s := range old {
		oldSet[s] = true
	}
	newSet := make(map[BlockID]bool, len(newSucc))
	for _, s := range newSucc {
		newSet[s] = true
	}
	for _, s := range old {
		if !newSet[s] {
			if other, ok := b.cfg.Blocks[s]; ok {
				other.removePredecessor(blk.ID)
			}
		}
	}
	for _, s := range newSucc {
		if !oldSet[s] {
			if other, ok := b.cfg.Blocks[s]; ok {
				other.addPredecessor(blk.ID)
			}
		}
	}
	blk.Successors = newSucc
	blk.Fallthrough = newFallthrough
}
