package evmtac

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eth2030/evmtac/config"
	"github.com/eth2030/evmtac/disasm"
)

// PUSH1 1; PUSH1 2; ADD; STOP
const addProgram = "0x600160020100"

func TestDecompileBuildsCFGAndDominance(t *testing.T) {
	res, err := Decompile(addProgram, config.Default())
	if err != nil {
		t.Fatalf("Decompile: %v", err)
	}
	if len(res.Ops) != 4 {
		t.Fatalf("want 4 ops, got %d", len(res.Ops))
	}
	if len(res.CFG.Blocks) != 1 {
		t.Fatalf("want 1 block, got %d", len(res.CFG.Blocks))
	}
	if res.Dom == nil {
		t.Fatalf("want dominance computed")
	}
	if len(res.Dom.Dom[res.CFG.Entry]) != 1 {
		t.Fatalf("want entry to dominate only itself, got %v", res.Dom.Dom[res.CFG.Entry])
	}
}

func TestDecompileContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := DecompileContext(ctx, addProgram, config.Default())
	if err != nil {
		t.Fatalf("DecompileContext: %v", err)
	}
	if !res.CFG.Aborted {
		t.Fatalf("want CFG.Aborted after cancellation, got %+v", res.CFG)
	}
}

func TestDecompileBytesAndListingAgree(t *testing.T) {
	byBytes, err := DecompileBytes(context.Background(), []byte{0x60, 0x01, 0x60, 0x02, 0x01, 0x00}, config.Default())
	if err != nil {
		t.Fatalf("DecompileBytes: %v", err)
	}
	listing := "0 PUSH1 01\n2 PUSH1 02\n4 ADD\n5 STOP\n"
	byListing, err := DecompileListing(context.Background(), listing, config.Default())
	if err != nil {
		t.Fatalf("DecompileListing: %v", err)
	}
	if len(byBytes.Ops) != len(byListing.Ops) {
		t.Fatalf("want matching op counts, got %d vs %d", len(byBytes.Ops), len(byListing.Ops))
	}
	for i := range byBytes.Ops {
		if byBytes.Ops[i].Opcode.Name != byListing.Ops[i].Opcode.Name {
			t.Fatalf("op %d: %s vs %s", i, byBytes.Ops[i].Opcode.Name, byListing.Ops[i].Opcode.Name)
		}
	}
}

func TestDecompileMalformedStrictErrors(t *testing.T) {
	cfgv := config.Default()
	cfgv.Strict = true
	if _, err := Decompile("0xfe", cfgv); err == nil {
		t.Fatalf("want an error for an invalid opcode under strict mode")
	}
}

func TestDisassemblePrettifyUsesOwnPartition(t *testing.T) {
	// PUSH1 3; JUMP; JUMPDEST; STOP
	out, err := Disassemble("0x6003565b00", true, disasm.Options{Prettify: true})
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if !strings.Contains(out, "\n\n") {
		t.Fatalf("want a blank line at the block boundary, got %q", out)
	}
}

func TestDisassembleFlat(t *testing.T) {
	out, err := Disassemble(addProgram, true, disasm.Options{})
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	want := "0\tPUSH1\t0x01\n2\tPUSH1\t0x02\n4\tADD\n5\tSTOP\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestExportFactsWritesRelations(t *testing.T) {
	dir := t.TempDir()
	res, err := ExportFacts(context.Background(), addProgram, config.Default(), dir)
	if err != nil {
		t.Fatalf("ExportFacts: %v", err)
	}
	if res == nil || len(res.Ops) != 4 {
		t.Fatalf("want the decompile result returned alongside, got %+v", res)
	}
	for _, name := range []string{"block.facts", "op.facts", "edge.facts", "entry.facts", "exit.facts", "def.facts", "use.facts", "value.facts", "dom.facts", "imdom.facts", "pdom.facts", "impdom.facts"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("want %s written: %v", name, err)
		}
	}
}
