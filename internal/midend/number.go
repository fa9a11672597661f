package midend

import "math/rand"

// GVNEvalNumber is the width of the random fingerprint vector assigned to
// each distinct SSA value for NumberCongruence's congruence checks
// (grounded on
// original_source/optimizer/src/number.rs's `Number`/`GVN_EVAL_NUMBER`):
// two symbolic recurrences that evaluate to the same vector under
// wrapping arithmetic are congruent with overwhelming probability without
// needing a full symbolic-equality prover.
const GVNEvalNumber = 50

// Number is a random-vector fingerprint: arithmetic on two Numbers
// (elementwise wrapping add/sub) mirrors arithmetic on the values they
// represent, so comparing two Numbers for equality stands in for proving
// two expressions always evaluate equally, across every iteration of a
// loop, without solving the recurrences symbolically.
type Number struct {
	value []uint32
}

// NewRandomNumber assigns a fresh fingerprint to an unknown / opaque
// value (e.g. a loop-invariant base or an induction variable's initial
// value) using the supplied deterministic-per-compile-run source --
// NumberCongruence seeds one *rand.Rand per function, from the function's
// name, so fingerprinting is repeatable within a single compilation.
func NewRandomNumber(rng *rand.Rand) Number {
	v := make([]uint32, GVNEvalNumber)
	for i := range v {
		v[i] = rng.Uint32()
	}
	return Number{value: v}
}

// ConstantNumber represents a known literal: every lane holds the same
// value, which is why combining a ConstantNumber with any other Number
// under Add/Sub behaves exactly like scalar add/sub broadcast
// elementwise.
func ConstantNumber(v uint32) Number {
	n := Number{value: make([]uint32, GVNEvalNumber)}
	for i := range n.value {
		n.value[i] = v
	}
	return n
}

func (n Number) Add(o Number) Number { return n.combine(o, func(a, b uint32) uint32 { return a + b }) }
func (n Number) Sub(o Number) Number { return n.combine(o, func(a, b uint32) uint32 { return a - b }) }
func (n Number) Mul(o Number) Number { return n.combine(o, func(a, b uint32) uint32 { return a * b }) }

func (n Number) combine(o Number, op func(a, b uint32) uint32) Number {
	out := make([]uint32, len(n.value))
	for i := range out {
		out[i] = op(n.value[i], o.value[i])
	}
	return Number{value: out}
}

// Equal reports whether two Numbers match in every lane -- the
// congruence test. A single shared lane mismatching is proof of
// non-congruence; GVNEvalNumber lanes agreeing by chance alone has
// probability on the order of 2^-(32*GVNEvalNumber), low enough to treat
// agreement as proof for a compiler's optimization (never its
// correctness-critical path).
func (n Number) Equal(o Number) bool {
	if len(n.value) != len(o.value) {
		return false
	}
	for i := range n.value {
		if n.value[i] != o.value[i] {
			return false
		}
	}
	return true
}

// Base subtracts the first lane from every lane, the normalization
// indvar.rs's recurrence classifier uses to compare two Numbers up to a
// shared additive offset (i.e. "do these two values differ only by a
// loop-invariant constant").
func (n Number) Base() Number {
	v0 := n.value[0]
	out := make([]uint32, len(n.value))
	for i, v := range n.value {
		out[i] = v - v0
	}
	return Number{value: out}
}
