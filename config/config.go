// Package config holds the lifter's resource-bound and policy knobs as a
// plain record, per spec.md's design note: "no process-global state; the
// CLI builds one and passes it by reference." This package only builds
// and parses the record — no flag parsing, which belongs to the excluded
// CLI driver.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Configuration errors.
var (
	ErrUnknownKey   = errors.New("config: unknown key")
	ErrInvalidValue = errors.New("config: invalid value")
)

// Config is the flat set of knobs bounding and steering the lifter.
type Config struct {
	// SetMax caps the cardinality of a Finite lattice set before it
	// widens to Top (spec.md §3, §4.2).
	SetMax int
	// WidenThreshold is the number of revisits to the same block before
	// its growing entry stack is forced to Top (spec.md §4.2).
	WidenThreshold int
	// MaxClonesPerPC bounds context-sensitive block cloning (spec.md §4.6).
	MaxClonesPerPC int
	// MaxBlocks bounds total block count; exceeding it aborts the build
	// (ResourceExceeded, spec.md §7).
	MaxBlocks int
	// StackDepthLimit is the EVM stack depth ceiling (spec.md §3); fixed
	// at 1024 by the EVM itself, but exposed here so callers can lower it
	// for testing.
	StackDepthLimit int
	// RemoveUnreachable runs the optional unreachable-block-removal pass
	// (spec.md §4.6, §10).
	RemoveUnreachable bool
	// DieOnEmptyPop selects the StackUnderflow policy (spec.md §7): true
	// marks the block malformed with no successors; false synthesizes an
	// input variable and continues.
	DieOnEmptyPop bool
	// FoldConstantBranches runs the optional constant/equality-folding
	// pass (spec.md §10) after the worklist reaches a fixed point: it
	// collapses a JUMPI's fallthrough and jump edges when they resolved
	// to the same target, and splices a block into its sole successor
	// when that successor is reached by no other edge.
	FoldConstantBranches bool
	// MergeUnreachable, when both it and RemoveUnreachable are set, reruns
	// the pruning pass once more after FoldConstantBranches so any block an
	// edge fold left with no remaining path from Entry is swept up too,
	// rather than only the pass ordered ahead of the fold catching it.
	MergeUnreachable bool
	// Strict fails on malformed input or invalid opcodes instead of the
	// lenient best-effort behaviour (spec.md §4.1, §7).
	Strict bool
}

// Default small values, per spec.md §3/§4.6 ("a configurable set_max
// (default small, e.g. 10)", "max_clones_per_pc, default small, e.g. 8").
const (
	DefaultSetMax          = 10
	DefaultWidenThreshold  = 4
	DefaultMaxClonesPerPC  = 8
	DefaultMaxBlocks       = 100000
	DefaultStackDepthLimit = 1024
)

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		SetMax:               DefaultSetMax,
		WidenThreshold:       DefaultWidenThreshold,
		MaxClonesPerPC:       DefaultMaxClonesPerPC,
		MaxBlocks:            DefaultMaxBlocks,
		StackDepthLimit:      DefaultStackDepthLimit,
		RemoveUnreachable:    false,
		DieOnEmptyPop:        false,
		FoldConstantBranches: false,
		MergeUnreachable:     false,
		Strict:               false,
	}
}

// LoadFile parses a flat key=value text file (one assignment per line,
// '#' starts a comment, blank lines ignored), applying overrides on top
// of Default().
func LoadFile(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := cfg.Override(line); err != nil {
			return Config{}, fmt.Errorf("config: %s:%d: %w", path, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// Override applies a single "KEY=VALUE" assignment, the library
// equivalent of the excluded CLI's "-c KEY=VALUE" flag.
func (c *Config) Override(assignment string) error {
	key, value, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("%w: %q (want KEY=VALUE)", ErrInvalidValue, assignment)
	}
	key = strings.TrimSpace(strings.ToLower(key))
	value = strings.TrimSpace(value)

	switch key {
	case "set_max":
		return c.setInt(&c.SetMax, key, value)
	case "widen_threshold":
		return c.setInt(&c.WidenThreshold, key, value)
	case "max_clones_per_pc":
		return c.setInt(&c.MaxClonesPerPC, key, value)
	case "max_blocks":
		return c.setInt(&c.MaxBlocks, key, value)
	case "stack_depth_limit":
		return c.setInt(&c.StackDepthLimit, key, value)
	case "remove_unreachable":
		return c.setBool(&c.RemoveUnreachable, key, value)
	case "die_on_empty_pop":
		return c.setBool(&c.DieOnEmptyPop, key, value)
	case "fold_constant_branches":
		return c.setBool(&c.FoldConstantBranches, key, value)
	case "merge_unreachable":
		return c.setBool(&c.MergeUnreachable, key, value)
	case "strict":
		return c.setBool(&c.Strict, key, value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

func (c *Config) setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %s=%q must be an integer", ErrInvalidValue, key, value)
	}
	*dst = n
	return nil
}

func (c *Config) setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%w: %s=%q must be a bool", ErrInvalidValue, key, value)
	}
	*dst = b
	return nil
}
