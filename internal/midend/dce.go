package midend

import "github.com/rrvm-project/sysycc/internal/ir"

// DeadCode removes instructions (and phis) whose result is never used and
// which have no side effect, iterating to a fixed point within one call
// since removing one dead instruction can make its operand's own
// definition dead in turn.
type DeadCode struct{}

func (DeadCode) Name() string { return "dead-code-elimination" }

func (DeadCode) Run(prog *ir.Program, f *ir.Function) bool {
	purity := ir.AnalyzePurity(prog)
	changed := false
	for {
		used := markUsed(f)
		roundChanged := false
		for _, b := range f.Blocks {
			phis, phisChanged := filterPhis(b.Phis, used)
			b.Phis = phis
			if phisChanged {
				roundChanged = true
			}
			if sweepInstrs(b, used, purity) {
				roundChanged = true
			}
		}
		if !roundChanged {
			break
		}
		changed = true
	}
	return changed
}

func markUsed(f *ir.Function) map[*ir.Value]bool {
	used := map[*ir.Value]bool{}
	for _, b := range f.Blocks {
		for _, phi := range b.Phis {
			for _, op := range phi.Operands() {
				used[op] = true
			}
		}
		for _, inst := range b.Instrs {
			for _, op := range inst.Operands() {
				used[op] = true
			}
		}
		if b.Term != nil {
			for _, op := range b.Term.Operands() {
				used[op] = true
			}
		}
	}
	return used
}

func filterPhis(phis []*ir.PhiInstr, used map[*ir.Value]bool) ([]*ir.PhiInstr, bool) {
	changed := false
	out := phis[:0]
	for _, p := range phis {
		if !used[p.Dst] {
			changed = true
			continue
		}
		out = append(out, p)
	}
	return out, changed
}

func sweepInstrs(b *ir.BasicBlock, used map[*ir.Value]bool, purity *ir.PurityInfo) bool {
	changed := false
	out := b.Instrs[:0]
	for _, inst := range b.Instrs {
		r := inst.Result()
		if r != nil && !used[r] && isRemovable(inst, purity) {
			changed = true
			continue
		}
		out = append(out, inst)
	}
	b.Instrs = out
	return changed
}

// isRemovable reports whether an unused-result instruction may be
// dropped: pure instructions always may; a call may only be dropped if
// the callee is known pure (no store, no impure transitive call).
func isRemovable(inst ir.Instruction, purity *ir.PurityInfo) bool {
	if call, ok := inst.(*ir.CallInstr); ok {
		return purity.IsPure(call.Callee)
	}
	return inst.Pure()
}
