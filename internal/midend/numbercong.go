package midend

import (
	"math/rand"

	"github.com/rrvm-project/sysycc/internal/ir"
)

// numberKey is Number's fixed-size comparable form, letting a fingerprint
// key a congruence map the same way exprKey keys constKeyOf's table.
type numberKey [GVNEvalNumber]uint32

func (n Number) key() numberKey {
	var k numberKey
	copy(k[:], n.value)
	return k
}

// NumberCongruence finds algebraic equivalences constKeyOf's syntactic
// hashing cannot see -- (a+b)-b and a compute the same value despite having
// unrelated instruction shapes -- by fingerprinting every SSA value with a
// Number and replacing a later value with an earlier, dominating one
// whenever their fingerprints match. Scoped to the dominator tree exactly
// like GlobalValueNumbering, so a fingerprint computed in a dominating
// block is reusable in every block it dominates and invisible to unrelated
// siblings.
type NumberCongruence struct{}

func (NumberCongruence) Name() string { return "number-congruence" }

func (NumberCongruence) Run(prog *ir.Program, f *ir.Function) bool {
	entry := f.Entry()
	if entry == nil {
		return false
	}
	nc := &numberState{
		f:       f,
		rng:     rand.New(rand.NewSource(fnvSeed(f.Name))),
		numbers: map[*ir.Value]Number{},
	}
	nc.walk(entry, []map[numberKey]*ir.Value{{}})
	return nc.changed
}

// fnvSeed derives a deterministic rand seed from a function's name, so
// fingerprinting is repeatable across runs of the same compilation without
// reaching for a wall-clock seed.
func fnvSeed(name string) int64 {
	var h int64 = 1469598103934665603
	for _, c := range name {
		h ^= int64(c)
		h *= 1099511628211
	}
	if h == 0 {
		h = 1
	}
	return h
}

type numberState struct {
	f       *ir.Function
	rng     *rand.Rand
	numbers map[*ir.Value]Number
	changed bool
}

// numberOf returns v's fingerprint, assigning a fresh one the first time an
// opaque value (a parameter, a load, a phi result, anything not computed by
// a tracked arithmetic op) is seen. Integer constants get ConstantNumber, so
// arithmetic on them composes exactly rather than colliding by chance;
// float constants are treated as opaque.
func (nc *numberState) numberOf(v *ir.Value) Number {
	if n, ok := nc.numbers[v]; ok {
		return n
	}
	var n Number
	if v.IsConst() && !ir.IsFloat(v.GetType()) {
		n = ConstantNumber(uint32(v.ConstInt))
	} else {
		n = NewRandomNumber(nc.rng)
	}
	nc.numbers[v] = n
	return n
}

func (nc *numberState) walk(b *ir.BasicBlock, scopes []map[numberKey]*ir.Value) {
	scope := map[numberKey]*ir.Value{}
	scopes = append(scopes, scope)

	out := b.Instrs[:0]
	for _, inst := range b.Instrs {
		bin, ok := inst.(*ir.BinaryInstr)
		if !ok || bin.Op.IsFloat() || !(bin.Op == ir.OpAdd || bin.Op == ir.OpSub || bin.Op == ir.OpMul) {
			out = append(out, inst)
			continue
		}
		for _, op := range []*ir.Value{bin.LHS, bin.RHS} {
			if _, seen := nc.numbers[op]; !seen && !op.IsConst() {
				scope[nc.numberOf(op).key()] = op
			}
		}
		n := nc.combine(bin)
		nc.numbers[bin.Dst] = n
		key := n.key()
		if existing, found := lookupNumberScopes(scopes, key); found {
			replaceAllUses(nc.f, bin.Dst, existing)
			nc.changed = true
			continue
		}
		scope[key] = bin.Dst
		out = append(out, inst)
	}
	b.Instrs = out

	for _, child := range b.DomChildren {
		nc.walk(child, scopes)
	}
}

func (nc *numberState) combine(bin *ir.BinaryInstr) Number {
	l := nc.numberOf(bin.LHS)
	r := nc.numberOf(bin.RHS)
	switch bin.Op {
	case ir.OpAdd:
		return l.Add(r)
	case ir.OpSub:
		return l.Sub(r)
	default:
		return l.Mul(r)
	}
}

func lookupNumberScopes(scopes []map[numberKey]*ir.Value, key numberKey) (*ir.Value, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if v, ok := scopes[i][key]; ok {
			return v, true
		}
	}
	return nil, false
}
