package cfg

import (
	"github.com/eth2030/evmtac/lattice"
	"github.com/eth2030/evmtac/symstack"
)

// widenDiffering forces every slot of merged whose value differs from
// its counterpart in old to Top, per spec §4.2: "after widen_threshold
// visits all differing slots widen to Top." New slots introduced by a
// deeper merge (no counterpart in old) are left as computed — they are
// freshly observed, not oscillating.
func widenDiffering(old, merged *symstack.Stack) *symstack.Stack {
	oldSlots := old.Slots()
	newSlots := merged.Slots()
	offset := len(newSlots) - len(oldSlots)

	out := symstack.New()
	for i, sl := range newSlots {
		oi := i - offset
		if oi >= 0 && oi < len(oldSlots) && !lattice.Equal(oldSlots[oi].Value, sl.Value) {
			sl = symstack.Slot{Vars: sl.Vars, Value: lattice.Widen(sl.Value)}
		}
		out.PushSlot(sl)
	}
	return out
}
