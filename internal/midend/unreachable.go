package midend

import "github.com/rrvm-project/sysycc/internal/ir"

// UnreachableCode simplifies constant-condition branches to
// unconditional jumps, then drops every block no longer reachable from
// the entry by a forward BFS. Running both halves in the same pass
// matters: simplifying a branch can orphan a whole subtree the
// reachability walk must then remove.
type UnreachableCode struct{}

func (UnreachableCode) Name() string { return "unreachable-code-elimination" }

func (UnreachableCode) Run(prog *ir.Program, f *ir.Function) bool {
	changed := simplifyConstBranches(f)
	if removeUnreachableBlocks(f) {
		changed = true
	}
	return changed
}

func simplifyConstBranches(f *ir.Function) bool {
	changed := false
	for _, b := range f.Blocks {
		cj, ok := b.Term.(*ir.CondJumpInstr)
		if !ok || !cj.Cond.IsConst() {
			continue
		}
		taken, dead := cj.True, cj.False
		if cj.Cond.ConstInt == 0 {
			taken, dead = cj.False, cj.True
		}
		b.Term = &ir.JumpInstr{Target: taken}
		b.RemoveSucc(dead)
		removePhiSource(dead, b)
		changed = true
	}
	return changed
}

// removePhiSource drops b's contribution from every phi in dead, called
// after a branch folds away the edge b->dead (dead may still be reachable
// through another path, so it is not necessarily removed outright).
func removePhiSource(dead, b *ir.BasicBlock) {
	for _, phi := range dead.Phis {
		out := phi.Sources[:0]
		for _, src := range phi.Sources {
			if src.Pred != b {
				out = append(out, src)
			}
		}
		phi.Sources = out
	}
}

func removeUnreachableBlocks(f *ir.Function) bool {
	entry := f.Entry()
	if entry == nil {
		return false
	}
	reachable := map[*ir.BasicBlock]bool{entry: true}
	stack := []*ir.BasicBlock{entry}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range b.Succs {
			if !reachable[s] {
				reachable[s] = true
				stack = append(stack, s)
			}
		}
	}

	changed := false
	for _, b := range f.Blocks {
		if !reachable[b] {
			changed = true
		}
	}
	if !changed {
		return false
	}
	for _, b := range f.Blocks {
		if !reachable[b] {
			for _, s := range b.Succs {
				if reachable[s] {
					removePhiSource(s, b)
				}
			}
		}
	}
	out := f.Blocks[:0]
	for _, b := range f.Blocks {
		if reachable[b] {
			out = append(out, b)
		} else {
			b.Preds = nil
			b.Succs = nil
		}
	}
	f.Blocks = out
	return true
}
