// Package facts implements the FactExporter: rendering a finished CFG
// and its dominance relations as the tab-separated relations the
// external Datalog analyser consumes (spec §4.7).
package facts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eth2030/evmtac/cfg"
	"github.com/eth2030/evmtac/tac"
)

// Export writes every relation named in spec §4.7 as a TSV file under
// dir (created if absent). Every relation is sorted by its leading
// column(s) before writing, so repeated runs on identical input produce
// byte-identical output (Invariant 5).
func Export(c *cfg.CFG, dom *cfg.Dominance, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("facts: mkdir %s: %w", dir, err)
	}

	rows := buildRelations(c, dom)
	for name, lines := range rows {
		if err := writeTSV(filepath.Join(dir, name), lines); err != nil {
			return err
		}
	}
	return nil
}

func writeTSV(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("facts: create %s: %w", path, err)
	}
	defer f.Close()
	for _, l := range lines {
		if _, err := f.WriteString(l + "\n"); err != nil {
			return fmt.Errorf("facts: write %s: %w", path, err)
		}
	}
	return nil
}

type varValue struct {
	val      string
	seen     bool
	conflict bool
}

func buildRelations(c *cfg.CFG, dom *cfg.Dominance) map[string][]string {
	ids := c.SortedBlockIDs()

	var blockRows, opRows, edgeRows, entryRows, exitRows []string
	var defRows, useRows []string
	opSeen := map[string]bool{}
	defSeen := map[string]bool{}
	useSeen := map[string]bool{}
	values := map[string]*varValue{}

	recordValue := func(v tac.Variable) {
		if !v.Value.IsFinite() {
			return
		}
		cst, ok := v.Value.Singleton()
		if !ok {
			return
		}
		hex := toHex(cst)
		vv, exists := values[v.Name]
		if !exists {
			values[v.Name] = &varValue{val: hex, seen: true}
			return
		}
		if vv.val != hex {
			vv.conflict = true
		}
	}

	for _, id := range ids {
		blockRows = append(blockRows, string(id))
		blk := c.Blocks[id]
		for _, op := range blk.Ops {
			row := fmt.Sprintf("%d\t%s", op.PC, op.Op.Name)
			if !opSeen[row] {
				opSeen[row] = true
				opRows = append(opRows, row)
			}
			if d, ok := op.Def(); ok {
				defRow := fmt.Sprintf("%d\t%s", op.PC, d.Name)
				if !defSeen[defRow] {
					defSeen[defRow] = true
					defRows = append(defRows, defRow)
				}
				recordValue(d)
			}
			for i, u := range op.Uses {
				useRow := fmt.Sprintf("%d\t%d\t%s", op.PC, i, u.Name)
				if !useSeen[useRow] {
					useSeen[useRow] = true
					useRows = append(useRows, useRow)
				}
				recordValue(u)
			}
		}
		for _, s := range blk.Successors {
			edgeRows = append(edgeRows, fmt.Sprintf("%s\t%s", id, s))
		}
	}
	entryRows = append(entryRows, string(c.Entry))
	for _, id := range c.Exits() {
		exitRows = append(exitRows, string(id))
	}

	sort.Strings(opRows)
	sort.Strings(edgeRows)
	sort.Strings(defRows)
	sort.Strings(useRows)

	var valueRows []string
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		vv := values[name]
		if vv.conflict {
			continue // ambiguous across clone contexts; omit rather than guess
		}
		valueRows = append(valueRows, fmt.Sprintf("%s\t%s", name, vv.val))
	}

	domRows := dominanceRows(dom.Dom)
	idomRows := immRows(dom.IDom)
	pdomRows := dominanceRows(dom.PDom)
	ipdomRows := immRows(dom.IPDom)

	return map[string][]string{
		"block.facts":  blockRows,
		"op.facts":     opRows,
		"edge.facts":   edgeRows,
		"entry.facts":  entryRows,
		"exit.facts":   exitRows,
		"def.facts":    defRows,
		"use.facts":    useRows,
		"value.facts":  valueRows,
		"dom.facts":    domRows,
		"imdom.facts":  idomRows,
		"pdom.facts":   pdomRows,
		"impdom.facts": ipdomRows,
	}
}

func dominanceRows(rel map[cfg.BlockID]map[cfg.BlockID]bool) []string {
	var out []string
	nodes := make([]string, 0, len(rel))
	for n := range rel {
		nodes = append(nodes, string(n))
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		doms := make([]string, 0, len(rel[cfg.BlockID(n)]))
		for d := range rel[cfg.BlockID(n)] {
			doms = append(doms, string(d))
		}
		sort.Strings(doms)
		for _, d := range doms {
			out = append(out, fmt.Sprintf("%s\t%s", n, d))
		}
	}
	return out
}

func immRows(rel map[cfg.BlockID]cfg.BlockID) []string {
	nodes := make([]string, 0, len(rel))
	for n := range rel {
		nodes = append(nodes, string(n))
	}
	sort.Strings(nodes)
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, fmt.Sprintf("%s\t%s", n, rel[cfg.BlockID(n)]))
	}
	return out
}

// toHex renders a 256-bit unsigned integer as lowercase 0x-prefixed hex
// with no leading zeros, except 0x0 for zero (spec §6).
func toHex(v interface {
	Bytes32() [32]byte
}) string {
	b := v.Bytes32()
	i := 0
	for i < 32 && b[i] == 0 {
		i++
	}
	if i == 32 {
		return "0x0"
	}
	s := fmt.Sprintf("%x", b[i:])
	return "0x" + strings.TrimLeft(s, "0")
}
