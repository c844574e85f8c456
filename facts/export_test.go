package facts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/eth2030/evmtac/cfg"
	"github.com/eth2030/evmtac/config"
	"github.com/eth2030/evmtac/parser"
)

func readLines(t *testing.T, dir, name string) []string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	s := string(b)
	if s == "" {
		return nil
	}
	s = s[:len(s)-1] // trailing newline from writeTSV
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func contains(lines []string, s string) bool {
	for _, l := range lines {
		if l == s {
			return true
		}
	}
	return false
}

// PUSH1 1; PUSH1 2; ADD; STOP
func TestExportBasicRelations(t *testing.T) {
	ops, err := parser.Parse("0x600160020100", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	g, err := cfg.Build(context.Background(), ops, config.Default(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	dom := cfg.Compute(g)

	dir := t.TempDir()
	if err := Export(g, dom, dir); err != nil {
		t.Fatalf("export: %v", err)
	}

	blocks := readLines(t, dir, "block.facts")
	if len(blocks) != 1 || blocks[0] != "B0x0" {
		t.Fatalf("got block.facts %v", blocks)
	}

	opRows := readLines(t, dir, "op.facts")
	if !contains(opRows, "4\tADD") || !contains(opRows, "5\tSTOP") {
		t.Fatalf("got op.facts %v", opRows)
	}
	if contains(opRows, "0\tPUSH1") {
		t.Fatalf("want PUSH1 absent from op.facts (it disappears into control), got %v", opRows)
	}

	defRows := readLines(t, dir, "def.facts")
	// Variable names carry the intra-block definition index: the two
	// PUSH1s define V0_0 and V2_1, ADD defines V4_2.
	if !contains(defRows, "4\tV4_2") {
		t.Fatalf("want ADD's definition in def.facts, got %v", defRows)
	}

	// ADD pops top-of-stack first: V2_1 (pushed last, value 2) is use 0,
	// V0_0 (value 1) is use 1.
	useRows := readLines(t, dir, "use.facts")
	if !contains(useRows, "4\t0\tV2_1") || !contains(useRows, "4\t1\tV0_0") {
		t.Fatalf("want ADD's two uses in use.facts, got %v", useRows)
	}

	valueRows := readLines(t, dir, "value.facts")
	if !contains(valueRows, "V4_2\t0x3") {
		t.Fatalf("want V4_2 folded to 0x3 in value.facts, got %v", valueRows)
	}

	entryRows := readLines(t, dir, "entry.facts")
	if len(entryRows) != 1 || entryRows[0] != "B0x0" {
		t.Fatalf("got entry.facts %v", entryRows)
	}
	exitRows := readLines(t, dir, "exit.facts")
	if len(exitRows) != 1 || exitRows[0] != "B0x0" {
		t.Fatalf("got exit.facts %v", exitRows)
	}
}

// Exporting the same CFG twice must produce byte-identical relations
// (Invariant 5): every relation is sorted before writing, independent of
// map iteration order.
func TestExportDeterministicOrdering(t *testing.T) {
	ops, err := parser.Parse("0x6003565b00", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	g, err := cfg.Build(context.Background(), ops, config.Default(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	dom := cfg.Compute(g)

	dir1 := t.TempDir()
	dir2 := t.TempDir()
	if err := Export(g, dom, dir1); err != nil {
		t.Fatalf("export 1: %v", err)
	}
	if err := Export(g, dom, dir2); err != nil {
		t.Fatalf("export 2: %v", err)
	}
	for _, name := range []string{"block.facts", "op.facts", "edge.facts", "dom.facts", "imdom.facts"} {
		a := readLines(t, dir1, name)
		b := readLines(t, dir2, name)
		if len(a) != len(b) {
			t.Fatalf("%s: non-deterministic line count, %v vs %v", name, a, b)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%s: non-deterministic ordering at line %d: %q vs %q", name, i, a[i], b[i])
			}
		}
	}
}

func TestToHex(t *testing.T) {
	zero := zeroable{}
	if toHex(zero) != "0x0" {
		t.Fatalf("want 0x0 for zero, got %s", toHex(zero))
	}
}

type zeroable struct{}

func (zeroable) Bytes32() [32]byte { return [32]byte{} }
