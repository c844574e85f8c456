package symstack

import (
	"github.com/eth2030/evmtac/lattice"
	"github.com/eth2030/evmtac/tac"
)

// Meet computes the slot-wise meet of two stacks observed at a merge
// point (a CFG node with multiple predecessors). Per spec.md §4.3, the
// stacks must be aligned from the top: the shallower stack is
// bottom-padded with fresh input variables (lattice Bottom, so the meet
// degenerates to the other side's value) up to the deeper stack's depth.
// entryPC names the synthesized input variables so they are deterministic
// across runs (Invariant 5).
func Meet(a, b *Stack, setMax int, entryPC uint64) *Stack {
	maxLen := len(a.slots)
	if len(b.slots) > maxLen {
		maxLen = len(b.slots)
	}
	ap := padBottom(a.slots, maxLen, entryPC)
	bp := padBottom(b.slots, maxLen, entryPC)

	out := make([]Slot, maxLen)
	for i := 0; i < maxLen; i++ {
		out[i] = meetSlot(ap[i], bp[i], setMax)
	}
	return &Stack{slots: out}
}

// padBottom returns slots logically prefixed (at the bottom, index 0)
// with deficit fresh input slots so the result has length target, and
// its top aligns with the original stack's top.
func padBottom(slots []Slot, target int, entryPC uint64) []Slot {
	deficit := target - len(slots)
	if deficit <= 0 {
		return slots
	}
	out := make([]Slot, 0, target)
	for i := 0; i < deficit; i++ {
		v := tac.InputVariable(entryPC, i, lattice.Bottom())
		out = append(out, slotOf(v))
	}
	return append(out, slots...)
}

func meetSlot(a, b Slot, setMax int) Slot {
	return Slot{
		Vars:  fuseVars(a.Vars, b.Vars),
		Value: lattice.Meet(a.Value, b.Value, setMax),
	}
}

// fuseVars unions two slots' contributing variables, deduplicated by
// name and in a stable order (a's vars first, then b's new ones) so
// repeated meets are deterministic.
func fuseVars(a, b []tac.Variable) []tac.Variable {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]tac.Variable, 0, len(a)+len(b))
	for _, v := range a {
		if !seen[v.Name] {
			seen[v.Name] = true
			out = append(out, v)
		}
	}
	for _, v := range b {
		if !seen[v.Name] {
			seen[v.Name] = true
			out = append(out, v)
		}
	}
	return out
}

// Equal reports whether two stacks have identical depth, values, and
// contributing-variable sets at every slot (used by the CFG builder's
// fixed-point check, §4.6 step 1).
func Equal(a, b *Stack) bool {
	if len(a.slots) != len(b.slots) {
		return false
	}
	for i := range a.slots {
		if !lattice.Equal(a.slots[i].Value, b.slots[i].Value) {
			return false
		}
		if !sameVarNames(a.slots[i].Vars, b.slots[i].Vars) {
			return false
		}
	}
	return true
}

func sameVarNames(a, b []tac.Variable) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}
