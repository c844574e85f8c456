package cfg

// RemoveUnreachable drops every block not reachable from the CFG's
// entry by BFS over Successors (spec §4.6, optional pass), and strips
// any remaining predecessor references to a removed block.
func RemoveUnreachable(c *CFG) {
	reach := c.Reachable()
	for id, blk := range c.Blocks {
		if _, ok := reach[id]; ok {
			continue
		}
		for _, s := range blk.Successors {
			if other, ok := c.Blocks[s]; ok {
				other.removePredecessor(id)
			}
		}
		delete(c.Blocks, id)
	}
	for pc, ids := range c.ByPC {
		kept := ids[:0]
		for _, id := range ids {
			if _, ok := reach[id]; ok {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(c.ByPC, pc)
		} else {
			c.ByPC[pc] = kept
		}
	}
}

// FoldConstantBranch runs the post-fixpoint constant/equality-folding
// pass (spec §10, "trivial constant/equality folding"). The per-edge
// narrowing driven by an actually-constant condition already happens
// inline in simulateBlock's terminator resolution (§4.4), which never
// adds a jump edge the lattice proves unreachable in the first place;
// what that leaves for a post-hoc pass is the equality case prose also
// names: a JUMPI whose fallthrough and jump targets were independently
// concretised to the very same block, which simulateBlock has no reason
// to notice since it resolves each edge in isolation. FoldConstantBranch
// collapses that duplicate edge, then splices a block into its sole
// successor wherever that successor is reached by no other edge.
func FoldConstantBranch(c *CFG) {
	for _, blk := range c.Blocks {
		foldEqualEdges(blk)
	}
	for _, blk := range c.Blocks {
		mergeTrivialFallthrough(c, blk)
	}
}

// foldEqualEdges collapses a block's Successors to distinct targets,
// preserving order: a JUMPI whose fallthrough pc and a concretised jump
// target both resolved to the same block (spec §10's equality case)
// otherwise carries that block twice.
func foldEqualEdges(blk *TACBlock) {
	if len(blk.Successors) < 2 {
		return
	}
	seen := make(map[BlockID]bool, len(blk.Successors))
	kept := blk.Successors[:0]
	for _, s := range blk.Successors {
		if seen[s] {
			continue
		}
		seen[s] = true
		kept = append(kept, s)
	}
	blk.Successors = kept
}

// mergeTrivialFallthrough splices blk into its sole successor when blk's
// only successor is a fallthrough edge and that successor's only
// predecessor is blk, eliminating a structurally redundant split. It
// does not touch blocks reached by more than one edge.
func mergeTrivialFallthrough(c *CFG, blk *TACBlock) {
	if blk.Malformed || len(blk.Successors) != 1 || blk.Fallthrough == nil {
		return
	}
	succID := blk.Successors[0]
	succ, ok := c.Blocks[succID]
	if !ok || succ.Jumpdest || len(succ.Predecessors) != 1 {
		return
	}
	if _, ok := succ.Predecessors[blk.ID]; !ok {
		return
	}
	blk.Ops = append(blk.Ops, succ.Ops...)
	blk.ExitStack = succ.ExitStack
	blk.Successors = succ.Successors
	blk.Fallthrough = succ.Fallthrough
	blk.Unresolved = blk.Unresolved || succ.Unresolved
	for _, s := range succ.Successors {
		if other, ok := c.Blocks[s]; ok {
			other.removePredecessor(succID)
			other.addPredecessor(blk.ID)
		}
	}
	delete(c.Blocks, succID)
	ids := c.ByPC[succ.EntryPC]
	kept := ids[:0]
	for _, id := range ids {
		if id != succID {
			kept = append(kept, id)
		}
	}
	c.ByPC[succ.EntryPC] = kept
}
