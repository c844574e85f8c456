package lattice

import "github.com/holiman/uint256"

// liftUnary applies f pointwise over a Finite set; Top propagates.
func liftUnary(a Value, setMax int, f func(x *uint256.Int) uint256.Int) Value {
	if a.kind == KindBottom {
		return a
	}
	if a.kind == KindTop {
		return Top()
	}
	out := make([]uint256.Int, 0, len(a.set))
	for i := range a.set {
		out = append(out, f(&a.set[i]))
	}
	return finite(out, setMax)
}

// liftBinary applies f over the Cartesian product of two Finite sets;
// Top in either operand propagates to Top, per spec.md §4.2.
func liftBinary(a, b Value, setMax int, f func(x, y *uint256.Int) uint256.Int) Value {
	if a.kind == KindBottom || b.kind == KindBottom {
		return Bottom()
	}
	if a.kind == KindTop || b.kind == KindTop {
		return Top()
	}
	out := make([]uint256.Int, 0, len(a.set)*len(b.set))
	for i := range a.set {
		for j := range b.set {
			out = append(out, f(&a.set[i], &b.set[j]))
		}
	}
	return finite(out, setMax)
}

// liftTernary applies f over the Cartesian product of three Finite sets.
func liftTernary(a, b, c Value, setMax int, f func(x, y, z *uint256.Int) uint256.Int) Value {
	if a.kind == KindBottom || b.kind == KindBottom || c.kind == KindBottom {
		return Bottom()
	}
	if a.kind == KindTop || b.kind == KindTop || c.kind == KindTop {
		return Top()
	}
	out := make([]uint256.Int, 0, len(a.set)*len(b.set)*len(c.set))
	for i := range a.set {
		for j := range b.set {
			for k := range c.set {
				out = append(out, f(&a.set[i], &b.set[j], &c.set[k]))
			}
		}
	}
	return finite(out, setMax)
}

// isNegative reports whether v's top bit is set, i.e. it is negative
// under EVM's two's-complement signed interpretation.
func isNegative(v *uint256.Int) bool {
	b32 := v.Bytes32()
	return b32[0]&0x80 != 0
}

func bit(b bool) uint256.Int {
	var v uint256.Int
	if b {
		v.SetOne()
	}
	return v
}

// Add lifts EVM ADD (mod 2^256 wraparound).
func Add(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int {
		var z uint256.Int
		z.Add(x, y)
		return z
	})
}

// Sub lifts EVM SUB.
func Sub(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int {
		var z uint256.Int
		z.Sub(x, y)
		return z
	})
}

// Mul lifts EVM MUL.
func Mul(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int {
		var z uint256.Int
		z.Mul(x, y)
		return z
	})
}

// Div lifts EVM DIV (unsigned; division by zero yields 0).
func Div(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int {
		var z uint256.Int
		z.Div(x, y)
		return z
	})
}

// SDiv lifts EVM SDIV (signed; division by zero yields 0;
// SDIV(MinInt256, -1) = MinInt256 per EVM semantics, which uint256.SDiv
// already implements).
func SDiv(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int {
		var z uint256.Int
		z.SDiv(x, y)
		return z
	})
}

// Mod lifts EVM MOD (modulo by zero yields 0).
func Mod(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int {
		var z uint256.Int
		z.Mod(x, y)
		return z
	})
}

// SMod lifts EVM SMOD.
func SMod(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int {
		var z uint256.Int
		z.SMod(x, y)
		return z
	})
}

// AddMod lifts EVM ADDMOD: (a + b) mod n.
func AddMod(a, b, n Value, setMax int) Value {
	return liftTernary(a, b, n, setMax, func(x, y, m *uint256.Int) uint256.Int {
		var z uint256.Int
		z.AddMod(x, y, m)
		return z
	})
}

// MulMod lifts EVM MULMOD: (a * b) mod n.
func MulMod(a, b, n Value, setMax int) Value {
	return liftTernary(a, b, n, setMax, func(x, y, m *uint256.Int) uint256.Int {
		var z uint256.Int
		z.MulMod(x, y, m)
		return z
	})
}

// Exp lifts EVM EXP: base^exp mod 2^256.
func Exp(base, exp Value, setMax int) Value {
	return liftBinary(base, exp, setMax, func(x, y *uint256.Int) uint256.Int {
		var z uint256.Int
		z.Exp(x, y)
		return z
	})
}

// Lt lifts EVM LT (unsigned).
func Lt(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int { return bit(x.Lt(y)) })
}

// Gt lifts EVM GT (unsigned).
func Gt(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int { return bit(x.Gt(y)) })
}

// Slt lifts EVM SLT (signed).
func Slt(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int { return bit(x.Slt(y)) })
}

// Sgt lifts EVM SGT (signed).
func Sgt(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int { return bit(x.Sgt(y)) })
}

// Eq lifts EVM EQ.
func Eq(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int { return bit(x.Eq(y)) })
}

// IsZero lifts EVM ISZERO.
func IsZero(a Value, setMax int) Value {
	return liftUnary(a, setMax, func(x *uint256.Int) uint256.Int { return bit(x.IsZero()) })
}

// And lifts EVM AND.
func And(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int {
		var z uint256.Int
		z.And(x, y)
		return z
	})
}

// Or lifts EVM OR.
func Or(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int {
		var z uint256.Int
		z.Or(x, y)
		return z
	})
}

// Xor lifts EVM XOR.
func Xor(a, b Value, setMax int) Value {
	return liftBinary(a, b, setMax, func(x, y *uint256.Int) uint256.Int {
		var z uint256.Int
		z.Xor(x, y)
		return z
	})
}

// Not lifts EVM NOT (bitwise complement).
func Not(a Value, setMax int) Value {
	return liftUnary(a, setMax, func(x *uint256.Int) uint256.Int {
		var z uint256.Int
		z.Not(x)
		return z
	})
}

// Byte lifts EVM BYTE: byte index i (0 = most significant) of x, or 0 if
// i >= 32.
func Byte(i, x Value, setMax int) Value {
	return liftBinary(i, x, setMax, func(idx, val *uint256.Int) uint256.Int {
		var z uint256.Int
		if idx.LtUint64(32) {
			b32 := val.Bytes32()
			z.SetUint64(uint64(b32[idx.Uint64()]))
		}
		return z
	})
}

// Shl lifts EVM SHL: x << shift.
func Shl(shift, x Value, setMax int) Value {
	return liftBinary(shift, x, setMax, func(s, v *uint256.Int) uint256.Int {
		var z uint256.Int
		if s.LtUint64(256) {
			z.Lsh(v, uint(s.Uint64()))
		}
		return z
	})
}

// Shr lifts EVM SHR: x >> shift (logical).
func Shr(shift, x Value, setMax int) Value {
	return liftBinary(shift, x, setMax, func(s, v *uint256.Int) uint256.Int {
		var z uint256.Int
		if s.LtUint64(256) {
			z.Rsh(v, uint(s.Uint64()))
		}
		return z
	})
}

// Sar lifts EVM SAR: x >> shift (arithmetic, sign-extending).
func Sar(shift, x Value, setMax int) Value {
	return liftBinary(shift, x, setMax, func(s, v *uint256.Int) uint256.Int {
		var z uint256.Int
		if s.GtUint64(255) {
			if isNegative(v) {
				z.SetAllOne()
			}
			return z
		}
		z.SRsh(v, uint(s.Uint64()))
		return z
	})
}

// SignExtend lifts EVM SIGNEXTEND: sign-extend x from (byteNum+1) bytes.
func SignExtend(byteNum, x Value, setMax int) Value {
	return liftBinary(byteNum, x, setMax, func(b, v *uint256.Int) uint256.Int {
		var z uint256.Int
		z.ExtendSign(v, b)
		return z
	})
}
