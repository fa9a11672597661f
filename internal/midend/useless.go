package midend

import "github.com/rrvm-project/sysycc/internal/ir"

// UselessCode merges a block into its sole predecessor when that
// predecessor's sole successor is this block -- the "jump to a block
// nobody else reaches" case left behind by branch simplification and
// loop unrolling. Phis in the merged-away block collapse to their single
// source's value since there is now exactly one incoming edge.
type UselessCode struct{}

func (UselessCode) Name() string { return "useless-code-elimination" }

func (UselessCode) Run(prog *ir.Program, f *ir.Function) bool {
	changed := false
	for {
		roundChanged := false
		for _, b := range f.Blocks {
			if tryMergeIntoPred(f, b) {
				roundChanged = true
				break // block list mutated, restart the scan
			}
		}
		if !roundChanged {
			break
		}
		changed = true
	}
	return changed
}

func tryMergeIntoPred(f *ir.Function, b *ir.BasicBlock) bool {
	if len(b.Preds) != 1 || b == f.Entry() {
		return false
	}
	pred := b.Preds[0]
	if len(pred.Succs) != 1 || pred.Succs[0] != b {
		return false
	}
	if _, ok := pred.Term.(*ir.JumpInstr); !ok {
		return false
	}

	replacement := map[*ir.Value]*ir.Value{}
	for _, phi := range b.Phis {
		replacement[phi.Dst] = phi.ValueFor(pred)
	}
	for _, blk := range f.Blocks {
		rewriteOperands(blk, replacement)
	}

	pred.Instrs = append(pred.Instrs, b.Instrs...)
	pred.Term = b.Term
	pred.Succs = nil
	for _, s := range b.Succs {
		pred.AddSucc(s)
		s.RemovePred(b)
	}
	for _, s := range b.Succs {
		for _, phi := range s.Phis {
			for n := range phi.Sources {
				if phi.Sources[n].Pred == b {
					phi.Sources[n].Pred = pred
				}
			}
		}
	}

	f.RemoveBlock(b)
	return true
}

func rewriteOperands(b *ir.BasicBlock, replacement map[*ir.Value]*ir.Value) {
	for _, phi := range b.Phis {
		for old, new := range replacement {
			if new != nil {
				phi.ReplaceOperand(old, new)
			}
		}
	}
	for _, inst := range b.Instrs {
		for old, new := range replacement {
			if new != nil {
				inst.ReplaceOperand(old, new)
			}
		}
	}
	if b.Term != nil {
		for old, new := range replacement {
			if new != nil {
				b.Term.ReplaceOperand(old, new)
			}
		}
	}
}
