package cfg

import "sort"

// virtualSink is the synthetic post-dominance root all halting/exit
// blocks flow into, so post-dominance has a single well-defined root
// even when the CFG has multiple exits (spec §4.5).
const virtualSink BlockID = "B$sink"

// Dominance holds the dominator and post-dominator relations computed
// over a finished CFG (spec §4.5): Dom/PDom are the full (reflexive)
// relations, IDom/IPDom the immediate-dominator trees.
type Dominance struct {
	Dom   map[BlockID]map[BlockID]bool
	IDom  map[BlockID]BlockID
	PDom  map[BlockID]map[BlockID]bool
	IPDom map[BlockID]BlockID
}

// Compute runs the standard iterative dataflow of spec §4.5 over every
// block reachable from c.Entry.
func Compute(c *CFG) *Dominance {
	reach := c.Reachable()
	nodes := make([]BlockID, 0, len(reach))
	for id := range reach {
		nodes = append(nodes, id)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	preds := make(map[BlockID][]BlockID, len(nodes))
	succs := make(map[BlockID][]BlockID, len(nodes))
	for _, id := range nodes {
		blk := c.Blocks[id]
		for _, s := range blk.Successors {
			if _, ok := reach[s]; !ok {
				continue
			}
			succs[id] = append(succs[id], s)
			preds[s] = append(preds[s], id)
		}
	}

	dom := computeDom(nodes, c.Entry, preds)
	idom := immediateDominators(nodes, c.Entry, dom)

	// Post-dominance: reverse the graph and root it at a virtual sink
	// fed by every reachable exit block (no successors within reach).
	pnodes := append([]BlockID{}, nodes...)
	pnodes = append(pnodes, virtualSink)
	// In the reversed graph, node n's predecessors are n's forward
	// successors (a forward edge n->s reverses to s->n); every block
	// with no forward successors also gains virtualSink as a reversed
	// predecessor, since the construction adds a forward edge
	// exit->virtualSink before reversing.
	ppreds := make(map[BlockID][]BlockID, len(pnodes))
	for _, id := range nodes {
		if len(succs[id]) == 0 {
			ppreds[id] = append(ppreds[id], virtualSink)
			continue
		}
		for _, s := range succs[id] {
			ppreds[id] = append(ppreds[id], s)
		}
	}
	pdom := computeDom(pnodes, virtualSink, ppreds)
	ipdom := immediateDominators(pnodes, virtualSink, pdom)

	return &Dominance{Dom: dom, IDom: idom, PDom: pdom, IPDom: ipdom}
}

// computeDom is the shared fixed-point loop: dom(entry) = {entry},
// dom(n) = {n} union (intersection of dom(p) for p in preds(n)).
func computeDom(nodes []BlockID, root BlockID, preds map[BlockID][]BlockID) map[BlockID]map[BlockID]bool {
	all := make(map[BlockID]bool, len(nodes))
	for _, id := range nodes {
		all[id] = true
	}

	dom := make(map[BlockID]map[BlockID]bool, len(nodes))
	for _, id := range nodes {
		if id == root {
			dom[id] = map[BlockID]bool{root: true}
			continue
		}
		full := make(map[BlockID]bool, len(all))
		for k := range all {
			full[k] = true
		}
		dom[id] = full
	}

	changed := true
	for changed {
		changed = false
		for _, n := range nodes {
			if n == root {
				continue
			}
			ps := preds[n]
			var merged map[BlockID]bool
			for _, p := range ps {
				if merged == nil {
					merged = make(map[BlockID]bool, len(dom[p]))
					for k := range dom[p] {
						merged[k] = true
					}
					continue
				}
				for k := range merged {
					if !dom[p][k] {
						delete(merged, k)
					}
				}
			}
			if merged == nil {
				merged = make(map[BlockID]bool)
			}
			merged[n] = true
			if !sameSet(merged, dom[n]) {
				dom[n] = merged
				changed = true
			}
		}
	}
	return dom
}

// immediateDominators picks, for each non-root node, the proper
// dominator with the largest dominator set: along the (total-order)
// chain from root to n, that is the nearest one.
func immediateDominators(nodes []BlockID, root BlockID, dom map[BlockID]map[BlockID]bool) map[BlockID]BlockID {
	idom := make(map[BlockID]BlockID, len(nodes))
	for _, n := range nodes {
		if n == root {
			continue
		}
		var best BlockID
		bestSize := -1
		for d := range dom[n] {
			if d == n {
				continue
			}
			if len(dom[d]) > bestSize {
				bestSize = len(dom[d])
				best = d
			}
		}
		if bestSize >= 0 {
			idom[n] = best
		}
	}
	return idom
}

func sameSet(a, b map[BlockID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
