package cfg

import (
	"github.com/eth2030/evmtac/config"
	"github.com/eth2030/evmtac/evm"
	"github.com/eth2030/evmtac/lattice"
	"github.com/eth2030/evmtac/symstack"
	"github.com/eth2030/evmtac/tac"
)

// termKind classifies how a block's control flow ends (spec §4.4).
type termKind int

const (
	termFallthrough termKind = iota
	termJump
	termJumpI
	termHalt
	termMalformed
)

// simResult is the outcome of simulating one block's EVM ops against an
// entry stack: the lowered TAC ops, the resulting exit stack, and enough
// information about the terminator for the builder to compute successors.
type simResult struct {
	ops       []tac.TACOp
	exitStack *symstack.Stack

	term         termKind
	fallthrough_ uint64 // valid PC, meaningful when term is termFallthrough or termJumpI
	jumpTargets  []uint64
	dropped      []uint64 // concrete candidates that were not JUMPDESTs

	hasNoFallthrough bool // JUMPI whose condition contains no zero and has at least one surviving jump target
	unresolved       bool
	malformed        bool
	overflow         bool // malformed was caused by exceeding cfgv.StackDepthLimit, not an underflow
}

// normalizeEntry collapses every slot of an incoming stack to exactly one
// contributing Variable: a slot whose Vars already holds exactly one
// variable keeps it (preserving true provenance); a slot fused from
// multiple predecessors (a phi-like merge, §4.3) is given a canonical
// formal-input name scoped to this block's (entryPC, clone) context, so
// that distinct clone contexts never collide on the same variable name.
func normalizeEntry(s *symstack.Stack, ctxKey uint64) *symstack.Stack {
	out := symstack.New()
	for i, sl := range s.Slots() {
		v := sl.Vars[0]
		if len(sl.Vars) != 1 {
			v = tac.InputVariable(ctxKey, i, sl.Value)
		}
		out.PushSlot(symstack.Slot{Vars: []tac.Variable{v}, Value: v.Value})
	}
	return out
}

// simulateBlock lowers the straight-line EVM ops ops (already cut to one
// basic block's byte range, per the initial partition or a later split)
// against entryStack, per spec §4.4.
func simulateBlock(ops []evm.EVMOp, b *TACBlock, entryStack *symstack.Stack, jumpdests map[uint64]bool, cfgv config.Config) simResult {
	ctxKey := b.contextKey()
	stack := normalizeEntry(entryStack, ctxKey)

	var out []tac.TACOp
	localIdx := 0
	underflowCount := 0

	synthUnderflow := func() tac.Variable {
		underflowCount++
		return tac.InputVariable(ctxKey, -underflowCount, lattice.Bottom())
	}

	// popOrMalform pops one operand, synthesizing an input variable on underflow
	// unless cfg.DieOnEmptyPop requests the block be marked malformed.
	popOrMalform := func() (tac.Variable, bool) {
		sl, err := stack.Pop()
		if err == nil {
			return sl.Vars[0], true
		}
		if cfgv.DieOnEmptyPop {
			return tac.Variable{}, false
		}
		v := synthUnderflow()
		return v, true
	}

	// ensureDepth pads the stack, bottom-first, with synthesized input
	// variables until it holds at least k slots, so that Dup/Swap (which
	// index from the top) see the positions they need. Returns false if
	// cfg.DieOnEmptyPop forbids the synthesis.
	ensureDepth := func(k int) bool {
		for stack.Len() < k {
			if cfgv.DieOnEmptyPop {
				return false
			}
			v := synthUnderflow()
			rest := stack.Slots()
			ns := symstack.New()
			ns.PushSlot(symstack.Slot{Vars: []tac.Variable{v}, Value: v.Value})
			for _, s := range rest {
				ns.PushSlot(s)
			}
			stack = ns
		}
		return true
	}

	res := simResult{malformed: false}

	// atLimit reports whether a further push would exceed cfgv.StackDepthLimit
	// (spec §5); checked ahead of every push so the configured bound, not
	// symstack's own hardcoded ceiling, is what actually governs StackOverflow.
	atLimit := func() bool { return stack.Len() >= cfgv.StackDepthLimit }

	n := len(ops)
	for i := 0; i < n; i++ {
		op := ops[i]
		oc := op.Opcode

		switch {
		case oc.Code == byte(evm.PUSH0) || oc.IsPush:
			var val lattice.Value
			if oc.Code == byte(evm.PUSH0) {
				val = lattice.ConstUint64(0)
			} else if op.Immediate != nil {
				val = lattice.Const(*op.Immediate)
			} else {
				val = lattice.ConstUint64(0)
			}
			v := tac.NewVariable(op.PC, localIdx, val)
			localIdx++
			if atLimit() {
				res.malformed = true
				res.overflow = true
				res.term = termMalformed
				goto done
			}
			if err := stack.Push(v); err != nil {
				res.malformed = true
				res.overflow = true
				res.term = termMalformed
				goto done
			}

		case oc.IsDup:
			k := int(oc.Pops)
			if !ensureDepth(k) {
				res.malformed = true
				res.term = termMalformed
				goto done
			}
			if atLimit() {
				res.malformed = true
				res.overflow = true
				res.term = termMalformed
				goto done
			}
			if err := stack.Dup(k); err != nil {
				res.malformed = true
				res.overflow = true
				res.term = termMalformed
				goto done
			}

		case oc.IsSwap:
			k := int(oc.Pops) - 1
			if !ensureDepth(k + 1) {
				res.malformed = true
				res.term = termMalformed
				goto done
			}
			if err := stack.Swap(k); err != nil {
				res.malformed = true
				res.term = termMalformed
				goto done
			}

		case oc.Code == byte(evm.POP):
			if _, err := stack.Pop(); err != nil {
				if cfgv.DieOnEmptyPop {
					res.malformed = true
					res.term = termMalformed
					goto done
				}
				synthUnderflow() // discarded immediately; advances underflowCount deterministically
			}

		case oc.Code == byte(evm.JUMP):
			v, ok := popOrMalform()
			if !ok {
				res.malformed = true
				res.term = termMalformed
				goto done
			}
			res.term = termJump
			res.jumpTargets, res.dropped, res.unresolved = concretiseTargets(v.Value, jumpdests)

		case oc.Code == byte(evm.JUMPI):
			dest, ok := popOrMalform()
			if !ok {
				res.malformed = true
				res.term = termMalformed
				goto done
			}
			cond, ok := popOrMalform()
			if !ok {
				res.malformed = true
				res.term = termMalformed
				goto done
			}
			res.term = termJumpI
			res.fallthrough_ = op.NextPC()
			takeFall := cond.Value.ContainsZero() || cond.Value.IsTop()
			takeJump := cond.Value.ContainsNonZero() || cond.Value.IsTop()
			if takeJump {
				res.jumpTargets, res.dropped, res.unresolved = concretiseTargets(dest.Value, jumpdests)
			}
			// A determinate non-zero condition only excludes the
			// fallthrough when a valid jump edge actually survives
			// concretisation; if every candidate target was dropped, the
			// fallthrough is kept rather than leaving the block a dead end
			// (spec §8 scenario S4).
			if !takeFall && len(res.jumpTargets) > 0 {
				res.fallthrough_ = 0
				res.hasNoFallthrough = true
			}

		default:
			p := int(oc.Pops)
			q := int(oc.Pushes)
			uses := make([]tac.Variable, 0, p)
			vals := make([]lattice.Value, 0, p)
			for k := 0; k < p; k++ {
				v, ok := popOrMalform()
				if !ok {
					res.malformed = true
					res.term = termMalformed
					goto done
				}
				uses = append(uses, v)
				vals = append(vals, v.Value)
			}
			var defs []tac.Variable
			if q == 1 {
				rv := evalOp(oc, vals, cfgv.SetMax)
				d := tac.NewVariable(op.PC, localIdx, rv)
				localIdx++
				defs = []tac.Variable{d}
				if atLimit() {
					res.malformed = true
					res.overflow = true
					res.term = termMalformed
					goto done
				}
				if err := stack.Push(d); err != nil {
					res.malformed = true
					res.overflow = true
					res.term = termMalformed
					goto done
				}
			}
			out = append(out, tac.TACOp{PC: op.PC, Op: oc, Defs: defs, Uses: uses})
			if oc.Halts {
				res.term = termHalt
			}
		}
	}

	// The initial partition (and every later split) always cuts a block
	// so that JUMP/JUMPI/halting ops, if present, are its last op; term
	// was set inline while simulating that op. Anything else (including
	// an empty block) simply runs off the end into the next block.
	if n == 0 || !ops[n-1].Opcode.AltersFlow {
		res.term = termFallthrough
		res.fallthrough_ = b.EndPC
	}

done:
	res.ops = out
	res.exitStack = stack
	return res
}

// concretiseTargets resolves a lattice value read from a jump-target
// slot into a set of valid JUMPDEST program counters, per spec §4.4: a
// Top value resolves to nothing (logged as unresolved); a finite set's
// elements that are not JUMPDEST pcs are dropped (and logged) without
// aborting the ones that do resolve.
func concretiseTargets(v lattice.Value, jumpdests map[uint64]bool) (valid []uint64, dropped []uint64, unresolved bool) {
	if v.IsTop() || v.IsBottom() {
		return nil, nil, true
	}
	for _, e := range v.Elements() {
		if !e.IsUint64() {
			dropped = append(dropped, ^uint64(0))
			continue
		}
		pc := e.Uint64()
		if jumpdests[pc] {
			valid = append(valid, pc)
		} else {
			dropped = append(dropped, pc)
		}
	}
	return valid, dropped, false
}

// evalOp constant-folds a general opcode over its (already popped)
// operand lattice values, per spec §4.2; opcodes with no defined pure
// semantics here (memory/storage/environment/calls) yield Top.
func evalOp(oc evm.Opcode, v []lattice.Value, setMax int) lattice.Value {
	get := func(i int) lattice.Value {
		if i < len(v) {
			return v[i]
		}
		return lattice.Top()
	}
	switch oc.Name {
	case "ADD":
		return lattice.Add(get(0), get(1), setMax)
	case "MUL":
		return lattice.Mul(get(0), get(1), setMax)
	case "SUB":
		return lattice.Sub(get(0), get(1), setMax)
	case "DIV":
		return lattice.Div(get(0), get(1), setMax)
	case "SDIV":
		return lattice.SDiv(get(0), get(1), setMax)
	case "MOD":
		return lattice.Mod(get(0), get(1), setMax)
	case "SMOD":
		return lattice.SMod(get(0), get(1), setMax)
	case "ADDMOD":
		return lattice.AddMod(get(0), get(1), get(2), setMax)
	case "MULMOD":
		return lattice.MulMod(get(0), get(1), get(2), setMax)
	case "EXP":
		return lattice.Exp(get(0), get(1), setMax)
	case "LT":
		return lattice.Lt(get(0), get(1), setMax)
	case "GT":
		return lattice.Gt(get(0), get(1), setMax)
	case "SLT":
		return lattice.Slt(get(0), get(1), setMax)
	case "SGT":
		return lattice.Sgt(get(0), get(1), setMax)
	case "EQ":
		return lattice.Eq(get(0), get(1), setMax)
	case "ISZERO":
		return lattice.IsZero(get(0), setMax)
	case "AND":
		return lattice.And(get(0), get(1), setMax)
	case "OR":
		return lattice.Or(get(0), get(1), setMax)
	case "XOR":
		return lattice.Xor(get(0), get(1), setMax)
	case "NOT":
		return lattice.Not(get(0), setMax)
	case "BYTE":
		return lattice.Byte(get(0), get(1), setMax)
	case "SHL":
		return lattice.Shl(get(0), get(1), setMax)
	case "SHR":
		return lattice.Shr(get(0), get(1), setMax)
	case "SAR":
		return lattice.Sar(get(0), get(1), setMax)
	case "SIGNEXTEND":
		return lattice.SignExtend(get(0), get(1), setMax)
	default:
		return lattice.Top()
	}
}
