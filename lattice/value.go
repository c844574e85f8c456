// Package lattice implements the bounded value lattice used to
// abstractly interpret EVM arithmetic: L = Bottom | Finite(set) | Top.
package lattice

import (
	"sort"

	"github.com/holiman/uint256"
)

// Kind distinguishes the three lattice shapes.
type Kind int

const (
	KindBottom Kind = iota // no information yet
	KindFinite             // a capped, non-empty set of concrete values
	KindTop                // any value; all precision lost
)

// DefaultSetMax is the cap on the cardinality of a Finite set before it
// widens to Top, matching spec.md's "small, e.g. 10" default.
const DefaultSetMax = 10

// Value is one element of the lattice. The zero Value is Bottom.
type Value struct {
	kind Kind
	set  []uint256.Int // sorted ascending, deduplicated, len() <= setMax
}

// Bottom returns ⊥.
func Bottom() Value { return Value{kind: KindBottom} }

// Top returns ⊤.
func Top() Value { return Value{kind: KindTop} }

// Const returns the singleton {c}.
func Const(c uint256.Int) Value { return Value{kind: KindFinite, set: []uint256.Int{c}} }

// ConstUint64 returns the singleton {c}.
func ConstUint64(c uint64) Value {
	var v uint256.Int
	v.SetUint64(c)
	return Const(v)
}

// finite builds a Value from a set of elements, capping at setMax. The
// input need not be sorted or deduplicated.
func finite(elems []uint256.Int, setMax int) Value {
	if len(elems) == 0 {
		return Bottom()
	}
	dedup := make(map[uint256.Int]struct{}, len(elems))
	for _, e := range elems {
		dedup[e] = struct{}{}
	}
	if setMax <= 0 {
		setMax = DefaultSetMax
	}
	if len(dedup) > setMax {
		return Top()
	}
	out := make([]uint256.Int, 0, len(dedup))
	for e := range dedup {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Lt(&out[j]) })
	return Value{kind: KindFinite, set: out}
}

// Kind reports the lattice shape.
func (v Value) Kind() Kind { return v.kind }

// IsBottom reports whether v is ⊥.
func (v Value) IsBottom() bool { return v.kind == KindBottom }

// IsTop reports whether v is ⊤.
func (v Value) IsTop() bool { return v.kind == KindTop }

// IsFinite reports whether v is a (non-empty) finite set.
func (v Value) IsFinite() bool { return v.kind == KindFinite }

// Elements returns the concrete values of a Finite Value, or nil
// otherwise. The slice is shared; callers must not mutate it.
func (v Value) Elements() []uint256.Int {
	if v.kind != KindFinite {
		return nil
	}
	return v.set
}

// Singleton returns the sole element and true if v is a Finite set of
// exactly one value.
func (v Value) Singleton() (uint256.Int, bool) {
	if v.kind == KindFinite && len(v.set) == 1 {
		return v.set[0], true
	}
	return uint256.Int{}, false
}

// ContainsZero reports whether v's finite set contains zero, or v is Top
// (which conservatively may contain any value).
func (v Value) ContainsZero() bool {
	if v.kind == KindTop {
		return true
	}
	for _, e := range v.set {
		if e.IsZero() {
			return true
		}
	}
	return false
}

// ContainsNonZero reports whether v's finite set contains a non-zero
// value, or v is Top.
func (v Value) ContainsNonZero() bool {
	if v.kind == KindTop {
		return true
	}
	for _, e := range v.set {
		if !e.IsZero() {
			return true
		}
	}
	return false
}

// Meet computes a ⊓ b: ⊥ acts as identity, ⊤ absorbs, and two Finite
// sets union (capped at setMax, widening to Top on overflow).
func Meet(a, b Value, setMax int) Value {
	if a.kind == KindBottom {
		return b
	}
	if b.kind == KindBottom {
		return a
	}
	if a.kind == KindTop || b.kind == KindTop {
		return Top()
	}
	merged := make([]uint256.Int, 0, len(a.set)+len(b.set))
	merged = append(merged, a.set...)
	merged = append(merged, b.set...)
	return finite(merged, setMax)
}

// Equal reports whether a and b are the same lattice element (used by
// the CFG builder's fixed-point check).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind != KindFinite {
		return true
	}
	if len(a.set) != len(b.set) {
		return false
	}
	for i := range a.set {
		if a.set[i] != b.set[i] {
			return false
		}
	}
	return true
}

// Widen forces a to Top once it has been observed growing across
// `threshold` visits without stabilising; the CFG builder (§4.2, §4.6)
// is responsible for counting visits and invoking this.
func Widen(a Value) Value {
	if a.kind == KindBottom {
		return a
	}
	return Top()
}
