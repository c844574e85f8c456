package symstack

import (
	"testing"

	"github.com/eth2030/evmtac/lattice"
	"github.com/eth2030/evmtac/tac"
)

func TestPushPopOrder(t *testing.T) {
	s := New()
	a := tac.NewVariable(0, 0, lattice.ConstUint64(1))
	b := tac.NewVariable(2, 0, lattice.ConstUint64(2))
	if err := s.Push(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(b); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	top, err := s.Pop()
	if err != nil || top.Vars[0].Name != "V2_0" {
		t.Fatalf("Pop() = %+v, %v; want V2_0", top, err)
	}
	bottom, err := s.Pop()
	if err != nil || bottom.Vars[0].Name != "V0_0" {
		t.Fatalf("Pop() = %+v, %v; want V0_0", bottom, err)
	}
}

func TestPopUnderflow(t *testing.T) {
	s := New()
	if _, err := s.Pop(); err != ErrStackUnderflow {
		t.Fatalf("Pop() on empty = %v, want ErrStackUnderflow", err)
	}
}

func TestPushOverflow(t *testing.T) {
	s := New()
	v := tac.NewVariable(0, 0, lattice.ConstUint64(1))
	for i := 0; i < Limit; i++ {
		if err := s.Push(v); err != nil {
			t.Fatalf("unexpected overflow at depth %d: %v", i, err)
		}
	}
	if err := s.Push(v); err != ErrStackOverflow {
		t.Fatalf("1025th push = %v, want ErrStackOverflow", err)
	}
}

func TestDupAndSwap(t *testing.T) {
	s := New()
	s.Push(tac.NewVariable(0, 0, lattice.ConstUint64(1)))
	s.Push(tac.NewVariable(2, 0, lattice.ConstUint64(2)))

	if err := s.Dup(2); err != nil {
		t.Fatal(err)
	}
	top, _ := s.Peek(0)
	if top.Vars[0].Name != "V0_0" {
		t.Fatalf("DUP2 top = %s, want V0_0", top.Vars[0].Name)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() after DUP2 = %d, want 3", s.Len())
	}

	if err := s.Swap(1); err != nil {
		t.Fatal(err)
	}
	newTop, _ := s.Peek(0)
	if newTop.Vars[0].Name != "V2_0" {
		t.Fatalf("SWAP1 top = %s, want V2_0", newTop.Vars[0].Name)
	}
}

func TestDupOutOfRange(t *testing.T) {
	s := New()
	if err := s.Dup(0); err == nil {
		t.Fatal("DUP0 should be rejected")
	}
	if err := s.Dup(17); err == nil {
		t.Fatal("DUP17 should be rejected")
	}
}

func TestMeetPadsShallowerStackAtBottom(t *testing.T) {
	deep := New()
	deep.Push(tac.NewVariable(0, 0, lattice.ConstUint64(10)))
	deep.Push(tac.NewVariable(2, 0, lattice.ConstUint64(20)))

	shallow := New()
	shallow.Push(tac.NewVariable(4, 0, lattice.ConstUint64(20)))

	merged := Meet(deep, shallow, 10, 0)
	if merged.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (padded to deepest)", merged.Len())
	}
	top, _ := merged.Peek(0)
	if !top.Value.IsFinite() || len(top.Value.Elements()) != 1 {
		t.Fatalf("top slot after meet = %+v, want singleton {20}", top.Value)
	}
}

func TestMeetFusesVariableIdentities(t *testing.T) {
	s1 := New()
	s1.Push(tac.NewVariable(0, 0, lattice.ConstUint64(1)))
	s2 := New()
	s2.Push(tac.NewVariable(4, 0, lattice.ConstUint64(2)))

	merged := Meet(s1, s2, 10, 100)
	top, _ := merged.Peek(0)
	if len(top.Vars) != 2 {
		t.Fatalf("merged slot should fuse both contributing variables, got %d", len(top.Vars))
	}
}

func TestStackEqual(t *testing.T) {
	s1 := New()
	s1.Push(tac.NewVariable(0, 0, lattice.ConstUint64(1)))
	s2 := New()
	s2.Push(tac.NewVariable(0, 0, lattice.ConstUint64(1)))
	if !Equal(s1, s2) {
		t.Fatal("identical stacks should be Equal")
	}
	s2.Push(tac.NewVariable(2, 0, lattice.ConstUint64(2)))
	if Equal(s1, s2) {
		t.Fatal("stacks of different depth should not be Equal")
	}
}
