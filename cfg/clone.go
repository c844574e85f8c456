package cfg

import (
	"fmt"

	"github.com/eth2030/evmtac/symstack"
)

// resolveTarget maps a concrete target pc, reached from predecessor pred
// with outgoing stack incoming, to the BlockID the edge should actually
// point at: ordinarily the existing block at that pc, but a fresh
// context-sensitive clone (spec §4.6) when merging incoming into that
// block would destroy an already-resolved jump target. The decision is
// memoized per (pred, pc) edge so a stabilising predecessor does not
// spawn an unbounded number of clones across worklist passes.
func (b *builder) resolveTarget(pred BlockID, pc uint64, incoming *symstack.Stack) BlockID {
	key := fmt.Sprintf("%s->%d", pred, pc)
	if id, ok := b.routed[key]; ok {
		if _, exists := b.cfg.Blocks[id]; exists {
			return id
		}
		delete(b.routed, key)
	}

	target := b.blockAt(pc)
	if target == nil {
		target = b.splitAt(pc)
	}
	if target == nil {
		// pc falls outside the parsed program entirely (a fallthrough off
		// the end of the code); nothing to route to.
		id := NewBlockID(pc)
		b.routed[key] = id
		return id
	}

	if b.shouldClone(target, incoming) {
		n := b.cloneCount[target.EntryPC] + 1
		b.cloneCount[target.EntryPC] = n
		clone := newBlock(CloneID(target.EntryPC, n), target.EntryPC, target.EndPC, n)
		clone.Jumpdest = target.Jumpdest
		b.cfg.addBlock(clone)
		b.logger.Debug("cloned block for context-sensitive refinement",
			"original", string(target.ID), "clone", string(clone.ID))
		b.queue = append(b.queue, workItem{id: clone.ID, stack: incoming})
		b.routed[key] = clone.ID
		return clone.ID
	}

	b.routed[key] = target.ID
	return target.ID
}

// blockAt returns the canonical (first-created, non-clone) block whose
// EntryPC is pc, or nil.
func (b *builder) blockAt(pc uint64) *TACBlock {
	ids := b.cfg.ByPC[pc]
	if len(ids) == 0 {
		return nil
	}
	return b.cfg.Blocks[ids[0]]
}

// jumpTargetsOf returns a block's currently resolved, non-fallthrough
// successor set (empty if its terminator is not a jump/jumpi, or is
// unresolved).
func jumpTargetsOf(blk *TACBlock) []BlockID {
	if blk.Unresolved {
		return nil
	}
	var out []BlockID
	for _, s := range blk.Successors {
		if blk.Fallthrough != nil && s == *blk.Fallthrough {
			continue
		}
		out = append(out, s)
	}
	return out
}

// shouldClone implements spec §4.6's cloning policy: clone only when
// incoming, simulated against target in isolation, resolves to a
// non-empty jump-target set disjoint from target's own currently
// resolved jump-target set, and the per-pc clone budget is not
// exhausted.
func (b *builder) shouldClone(target *TACBlock, incoming *symstack.Stack) bool {
	if b.cloneCount[target.EntryPC] >= b.cfgv.MaxClonesPerPC {
		return false
	}
	origTargets := jumpTargetsOf(target)
	if len(origTargets) == 0 {
		return false
	}
	ops := b.blockOps(target.EntryPC, target.EndPC)
	trial := simulateBlock(ops, target, incoming, b.jumpdests, b.cfgv)
	if trial.unresolved || trial.malformed || len(trial.jumpTargets) == 0 {
		return false
	}
	trialIDs := make(map[BlockID]bool, len(trial.jumpTargets))
	for _, pc := range trial.jumpTargets {
		trialIDs[NewBlockID(pc)] = true
	}
	for _, id := range origTargets {
		if trialIDs[id] {
			return false // overlapping target: a plain meet still preserves precision
		}
	}
	return true
}

// splitAt splits whichever existing block's byte range covers pc at pc,
// for the (in this opcode set, rarely reached — every JUMPDEST already
// starts a block per the initial partition) case where a resolved jump
// target has no block of its own yet. The pre-split block keeps a
// fallthrough edge into the post-split block it is shortened to reach.
func (b *builder) splitAt(pc uint64) *TACBlock {
	if _, ok := b.opIndexByPC[pc]; !ok {
		return nil
	}
	for _, id := range b.cfg.SortedBlockIDs() {
		old := b.cfg.Blocks[id]
		if old.EntryPC < pc && pc < old.EndPC {
			n := newBlock(NewBlockID(pc), pc, old.EndPC, 0)
			n.Jumpdest = b.jumpdests[pc]
			old.EndPC = pc
			b.cfg.addBlock(n)
			b.resimulate(old)
			return n
		}
	}
	return nil
}
