package midend

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/rrvm-project/sysycc/internal/cfg"
	"github.com/rrvm-project/sysycc/internal/ir"
)

// exprKey is a structural signature for a pure instruction: two
// instructions computing the same operation over the same operands (by
// SSA identity, which already accounts for any renaming value numbering
// itself performed) are interchangeable, so one can stand in for the
// other wherever dominance allows. The signature is built as an exact
// textual description of the operation and then condensed with blake2b
// rather than left as the raw string -- a real hash function the way a
// production compiler would use one for its value-numbering tables,
// keeping every table lookup to a fixed-size key regardless of operand
// count. This is still an exact structural key, not original_source/
// optimizer/src/fuyuki_vn's probabilistic vector hashing: a compiler's
// congruence test must never have a false-positive rate, where
// NumberCongruence (built on midend.Number) can accept one in exchange for
// avoiding a full symbolic solver.
type exprKey [32]byte

// commutativeArith/commutativeCmp report whether swapping an opcode's
// operands computes the same value, so constKeyOf can canonicalize operand
// order and collapse e.g. `a+b` and `b+a` to one key.
func commutativeArith(op ir.ArithOp) bool {
	return op == ir.OpAdd || op == ir.OpMul || op == ir.OpFAdd || op == ir.OpFMul
}

func commutativeCmp(op ir.CmpOp) bool {
	return op == ir.CmpEq || op == ir.CmpNe || op == ir.CmpFEq || op == ir.CmpFNe
}

// constKeyOf builds a structural signature for a pure instruction --
// (opcode, operand keys, type) -- with constant value rather than pointer
// identity, so `%t = add 1, 2` computed twice (two distinct *Value
// literals, same bits) still numbers together. Operands are sorted for
// commutative opcodes, so `a+b` and `b+a` hash identically.
func constKeyOf(inst ir.Instruction) (exprKey, bool) {
	opKey := func(v *ir.Value) string {
		if v.IsConst() {
			if ir.IsFloat(v.GetType()) {
				return fmt.Sprintf("cf:%g", v.ConstFloat)
			}
			return fmt.Sprintf("ci:%d", v.ConstInt)
		}
		return fmt.Sprintf("t:%p", v)
	}
	ordered := func(commutative bool, l, r string) (string, string) {
		if commutative && l > r {
			return r, l
		}
		return l, r
	}
	var sig string
	switch i := inst.(type) {
	case *ir.BinaryInstr:
		l, r := ordered(commutativeArith(i.Op), opKey(i.LHS), opKey(i.RHS))
		sig = fmt.Sprintf("bin:%d:%s:%s", i.Op, l, r)
	case *ir.CompareInstr:
		l, r := ordered(commutativeCmp(i.Op), opKey(i.LHS), opKey(i.RHS))
		sig = fmt.Sprintf("cmp:%d:%s:%s", i.Op, l, r)
	case *ir.ConvertInstr:
		sig = fmt.Sprintf("conv:%v:%s", i.ToFloat, opKey(i.Src))
	case *ir.GEPInstr:
		sig = fmt.Sprintf("gep:%s:%s", opKey(i.Base), opKey(i.Offset))
	default:
		return exprKey{}, false
	}
	sig = fmt.Sprintf("%s:%v", sig, inst.Result().GetType())
	return blake2b.Sum256([]byte(sig)), true
}

// LocalValueNumbering numbers expressions within a single block: a
// second instruction computing an already-seen expression is deleted and
// its result redirected to the first's, with no cross-block reasoning
// (and so no dominance check needed -- earlier in program order within
// one block always dominates later).
type LocalValueNumbering struct{}

func (LocalValueNumbering) Name() string { return "local-value-numbering" }

func (LocalValueNumbering) Run(prog *ir.Program, f *ir.Function) bool {
	changed := false
	for _, b := range f.Blocks {
		table := map[exprKey]*ir.Value{}
		out := b.Instrs[:0]
		for _, inst := range b.Instrs {
			if key, ok := constKeyOf(inst); ok {
				if existing, seen := table[key]; seen {
					replaceAllUses(f, inst.Result(), existing)
					changed = true
					continue
				}
				table[key] = inst.Result()
			}
			out = append(out, inst)
		}
		b.Instrs = out
	}
	return changed
}

// GlobalValueNumbering extends numbering across the whole function: the
// table is scoped to the dominator tree (pushed entering a block, popped
// leaving it, per original_source/optimizer/src/fuyuki_vn/impl_gvn.rs's
// `solve`/StackHashMap), so an expression computed in a dominating block
// is visible -- and reusable -- in every block it dominates, without
// being visible to unrelated siblings.
type GlobalValueNumbering struct{}

func (GlobalValueNumbering) Name() string { return "global-value-numbering" }

func (GlobalValueNumbering) Run(prog *ir.Program, f *ir.Function) bool {
	entry := f.Entry()
	if entry == nil {
		return false
	}
	gvn := &gvnState{f: f, changed: false}
	gvn.walk(entry, []map[exprKey]*ir.Value{{}})
	return gvn.changed
}

type gvnState struct {
	f       *ir.Function
	changed bool
}

// walk performs the dominator-tree DFS: scopes is a stack of per-level
// tables, searched innermost-first, mirroring StackHashMap.get's linear
// scan from the top of the stack outward.
func (g *gvnState) walk(b *ir.BasicBlock, scopes []map[exprKey]*ir.Value) {
	scope := map[exprKey]*ir.Value{}
	scopes = append(scopes, scope)

	out := b.Instrs[:0]
	for _, inst := range b.Instrs {
		if key, ok := constKeyOf(inst); ok {
			if existing, found := lookupScopes(scopes, key); found {
				replaceAllUses(g.f, inst.Result(), existing)
				g.changed = true
				continue
			}
			scope[key] = inst.Result()
		}
		out = append(out, inst)
	}
	b.Instrs = out

	for _, child := range b.DomChildren {
		g.walk(child, scopes)
	}
}

func lookupScopes(scopes []map[exprKey]*ir.Value, key exprKey) (*ir.Value, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if v, ok := scopes[i][key]; ok {
			return v, true
		}
	}
	return nil, false
}

var _ = cfg.Dominators // DomChildren is populated by cfg.Dominators before this pass runs
