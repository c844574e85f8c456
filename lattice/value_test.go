package lattice

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestMeetIdentityAndAbsorption(t *testing.T) {
	c := ConstUint64(5)
	if !Equal(Meet(Bottom(), c, 10), c) {
		t.Error("bottom meet x != x")
	}
	if !Equal(Meet(c, Bottom(), 10), c) {
		t.Error("x meet bottom != x")
	}
	if !Meet(Top(), c, 10).IsTop() {
		t.Error("top meet x != top")
	}
	if !Meet(c, Top(), 10).IsTop() {
		t.Error("x meet top != top")
	}
}

func TestMeetUnionAndWiden(t *testing.T) {
	a := ConstUint64(1)
	b := ConstUint64(2)
	m := Meet(a, b, 10)
	if !m.IsFinite() || len(m.Elements()) != 2 {
		t.Fatalf("meet({1},{2}) = %+v, want 2-element finite set", m)
	}

	// Exceeding setMax widens to Top.
	m2 := Meet(a, b, 1)
	if !m2.IsTop() {
		t.Fatalf("meet exceeding setMax should widen to Top, got %+v", m2)
	}
}

func TestMeetDedup(t *testing.T) {
	a := ConstUint64(7)
	m := Meet(a, a, 10)
	if len(m.Elements()) != 1 {
		t.Fatalf("meet(x,x) should stay a singleton, got %d elements", len(m.Elements()))
	}
}

func TestAddWrapsMod2to256(t *testing.T) {
	var maxVal uint256.Int
	maxVal.SetAllOne()
	sum := Add(Const(maxVal), ConstUint64(1), 10)
	got, ok := sum.Singleton()
	if !ok || !got.IsZero() {
		t.Fatalf("(2^256-1)+1 = %+v, want 0", sum)
	}
}

func TestDivByZeroIsZero(t *testing.T) {
	d := Div(ConstUint64(10), ConstUint64(0), 10)
	got, ok := d.Singleton()
	if !ok || !got.IsZero() {
		t.Fatalf("10/0 = %+v, want 0", d)
	}
}

func TestSDivMinIntByMinusOne(t *testing.T) {
	var minInt, minusOne uint256.Int
	minInt.SetOne()
	minInt.Lsh(&minInt, 255) // 2^255 == INT_MIN in two's complement
	minusOne.SetAllOne()     // -1

	got := SDiv(Const(minInt), Const(minusOne), 10)
	single, ok := got.Singleton()
	if !ok || single != minInt {
		t.Fatalf("SDIV(INT_MIN, -1) = %+v, want INT_MIN", got)
	}
}

func TestComparisonProducesBit(t *testing.T) {
	lt := Lt(ConstUint64(1), ConstUint64(2), 10)
	got, ok := lt.Singleton()
	if !ok || got.Uint64() != 1 {
		t.Fatalf("1 < 2 = %+v, want {1}", lt)
	}
}

func TestTopPropagatesThroughArithmetic(t *testing.T) {
	if !Add(Top(), ConstUint64(1), 10).IsTop() {
		t.Error("Add with a Top operand should be Top")
	}
	if !Mul(ConstUint64(1), Top(), 10).IsTop() {
		t.Error("Mul with a Top operand should be Top")
	}
}
