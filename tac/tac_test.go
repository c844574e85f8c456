package tac

import (
	"testing"

	"github.com/eth2030/evmtac/evm"
	"github.com/eth2030/evmtac/lattice"
)

func TestVariableNaming(t *testing.T) {
	v := NewVariable(12, 0, lattice.ConstUint64(3))
	if v.Name != "V12_0" {
		t.Fatalf("Name = %s, want V12_0", v.Name)
	}
	in := InputVariable(0, 2, lattice.Top())
	if in.Name != "I0_2" {
		t.Fatalf("Name = %s, want I0_2", in.Name)
	}
}

func TestTACOpDef(t *testing.T) {
	add := TACOp{
		PC:   4,
		Op:   evm.Lookup(byte(evm.ADD)),
		Defs: []Variable{NewVariable(4, 0, lattice.Top())},
		Uses: []Variable{NewVariable(0, 0, lattice.ConstUint64(1)), NewVariable(2, 0, lattice.ConstUint64(2))},
	}
	d, ok := add.Def()
	if !ok || d.Name != "V4_0" {
		t.Fatalf("Def() = %+v, %v", d, ok)
	}

	pop := TACOp{PC: 6, Op: evm.Lookup(byte(evm.POP)), Uses: []Variable{d}}
	if _, ok := pop.Def(); ok {
		t.Fatal("POP must not define a variable")
	}
}
