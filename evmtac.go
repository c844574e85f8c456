// Package evmtac ties the lifter's stages together: parse bytecode into
// EVMOps, build a TAC control-flow graph over them, and render that
// graph either as a textual disassembly or as exported Datalog facts
// (spec §4.12). Callers needing finer control use the parser/cfg/
// disasm/facts packages directly; this package is the one-call path.
package evmtac

import (
	"context"
	"fmt"

	"github.com/eth2030/evmtac/cfg"
	"github.com/eth2030/evmtac/config"
	"github.com/eth2030/evmtac/disasm"
	"github.com/eth2030/evmtac/evm"
	"github.com/eth2030/evmtac/facts"
	"github.com/eth2030/evmtac/log"
	"github.com/eth2030/evmtac/parser"
)

// Result bundles the parsed program and its finished CFG, plus the
// dominance/post-dominance relations computed over it.
type Result struct {
	Ops []evm.EVMOp
	CFG *cfg.CFG
	Dom *cfg.Dominance
}

// Decompile parses hexInput and builds its CFG using cfgv, with no
// cancellation path. Equivalent to DecompileContext(context.Background(), ...).
func Decompile(hexInput string, cfgv config.Config) (*Result, error) {
	return DecompileContext(context.Background(), hexInput, cfgv)
}

// DecompileContext runs the full pipeline: parse (per cfgv.Strict),
// build the CFG (honouring ctx cancellation), and compute dominance
// over the result (spec §4.12). The CFG is returned even when Build
// aborts early (ctx cancelled or a resource bound hit); callers should
// check CFG.Aborted and CFG.Diagnostics.
func DecompileContext(ctx context.Context, hexInput string, cfgv config.Config) (*Result, error) {
	return decompileWith(ctx, cfgv, func() ([]evm.EVMOp, error) {
		return parser.Parse(hexInput, cfgv.Strict)
	})
}

// DecompileBytes is DecompileContext for already hex-decoded bytecode.
func DecompileBytes(ctx context.Context, code []byte, cfgv config.Config) (*Result, error) {
	return decompileWith(ctx, cfgv, func() ([]evm.EVMOp, error) {
		return parser.ParseBytes(code, cfgv.Strict)
	})
}

// DecompileListing is DecompileContext for a pre-disassembled textual
// listing (spec §6 input form (b)).
func DecompileListing(ctx context.Context, listing string, cfgv config.Config) (*Result, error) {
	return decompileWith(ctx, cfgv, func() ([]evm.EVMOp, error) {
		return parser.ParseListing(listing)
	})
}

func decompileWith(ctx context.Context, cfgv config.Config, parse func() ([]evm.EVMOp, error)) (*Result, error) {
	logger := log.Default().Module("evmtac")
	ops, err := parse()
	if err != nil {
		return nil, fmt.Errorf("evmtac: parse: %w", err)
	}

	g, err := cfg.Build(ctx, ops, cfgv, logger)
	if err != nil {
		return nil, fmt.Errorf("evmtac: build cfg: %w", err)
	}
	dom := cfg.Compute(g)
	return &Result{Ops: ops, CFG: g, Dom: dom}, nil
}

// Disassemble renders hexInput as a flat textual listing, independent of
// CFG construction (spec §4.8/§4.11). When opts.Prettify is set and
// opts.BlockBreaks is nil, it is filled from the program's own initial
// partition (parser.Partition).
func Disassemble(hexInput string, strict bool, opts disasm.Options) (string, error) {
	ops, err := parser.Parse(hexInput, strict)
	if err != nil {
		return "", fmt.Errorf("evmtac: parse: %w", err)
	}
	if opts.Prettify && opts.BlockBreaks == nil {
		breaks := make(map[uint64]bool)
		for _, pc := range parser.Partition(ops) {
			breaks[pc] = true
		}
		opts.BlockBreaks = breaks
	}
	return disasm.Render(ops, opts), nil
}

// ExportFacts runs the full pipeline over hexInput and writes every
// relation of spec §4.7 as TSV files under dir.
func ExportFacts(ctx context.Context, hexInput string, cfgv config.Config, dir string) (*Result, error) {
	res, err := DecompileContext(ctx, hexInput, cfgv)
	if err != nil {
		return nil, err
	}
	if err := facts.Export(res.CFG, res.Dom, dir); err != nil {
		return res, fmt.Errorf("evmtac: export facts: %w", err)
	}
	return res, nil
}
