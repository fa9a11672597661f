package cfg

import "github.com/rrvm-project/sysycc/internal/ir"

// Analyze runs the three CFG analyses in the dependency order the rest of
// the compiler expects: dominators first (NaturalLoops needs Dominates),
// then natural loops, then liveness (so block weights reflect loop
// nesting). Passes that only change instructions, not block structure,
// can skip straight to Liveness; anything that adds, removes, or
// reroutes edges should call Analyze again.
func Analyze(f *ir.Function) {
	Dominators(f)
	NaturalLoops(f)
	Liveness(f)
}

// SynthesizePreheader inserts a fresh block between every out-of-loop
// predecessor of l.Header and the header itself, so loop-invariant code
// motion and induction-variable rewrites have a single place to hoist
// into. Idempotent: a no-op once l.Preheader is set, whether by
// NaturalLoops' findPreheader or by an earlier call.
func SynthesizePreheader(f *ir.Function, l *ir.Loop) *ir.BasicBlock {
	if l.Preheader != nil {
		return l.Preheader
	}

	var outside []*ir.BasicBlock
	for _, p := range l.Header.Preds {
		if !containsBlock(l, p) {
			outside = append(outside, p)
		}
	}
	if len(outside) == 0 {
		return nil // unreachable loop header, nothing to do
	}

	pre := f.NewBlock(l.Header.Label + ".preheader")
	pre.Term = &ir.JumpInstr{Target: l.Header}
	for _, p := range outside {
		p.ReplaceSucc(l.Header, pre)
	}
	pre.Succs = []*ir.BasicBlock{l.Header}
	l.Header.Preds = append(filterOut(l.Header.Preds, outside), pre)

	for _, phi := range l.Header.Phis {
		var outsideSources []ir.PhiSource
		newSources := phi.Sources[:0]
		for _, src := range phi.Sources {
			if containsAny(outside, src.Pred) {
				outsideSources = append(outsideSources, src)
				continue
			}
			newSources = append(newSources, src)
		}
		merged := mergeOutsideValue(pre, phi.Dst.Type, outsideSources)
		phi.Sources = append(newSources, ir.PhiSource{Pred: pre, Value: merged})
	}

	l.Preheader = pre
	return pre
}

// mergeOutsideValue folds every outside predecessor's contribution to a
// header phi into a single value reaching the new preheader: if they all
// happen to be the identical value, that value is reused directly;
// otherwise a phi is synthesized in the preheader itself to merge them,
// one level removed from the loop header.
func mergeOutsideValue(pre *ir.BasicBlock, t ir.Type, sources []ir.PhiSource) *ir.Value {
	if len(sources) == 0 {
		return nil
	}
	same := sources[0].Value
	for _, s := range sources[1:] {
		if s.Value != same {
			same = nil
			break
		}
	}
	if same != nil {
		return same
	}
	dst := &ir.Value{Kind: ir.ValueTemp, ID: -1, Name: "%preheader.merge", Type: t}
	pre.Phis = append(pre.Phis, &ir.PhiInstr{Dst: dst, Block: pre, Sources: sources})
	return dst
}

func filterOut(list []*ir.BasicBlock, remove []*ir.BasicBlock) []*ir.BasicBlock {
	out := list[:0]
	for _, b := range list {
		if !containsAny(remove, b) {
			out = append(out, b)
		}
	}
	return out
}

func containsAny(list []*ir.BasicBlock, b *ir.BasicBlock) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

// PostDominators computes post-dominance over a synthetic unified exit
// connecting every ir.RetInstr block, by running the same iterative
// algorithm as Dominators on the reverse graph. The returned map never
// contains the synthetic exit itself as a key.
func PostDominators(f *ir.Function) map[*ir.BasicBlock]*ir.BasicBlock {
	exits := f.ExitBlocks()
	if len(exits) == 0 {
		return map[*ir.BasicBlock]*ir.BasicBlock{}
	}

	unified := ir.NewBlock(-1, ".unified-exit")

	rev := map[*ir.BasicBlock][]*ir.BasicBlock{unified: exits}
	for _, b := range f.Blocks {
		for _, s := range b.Succs {
			rev[s] = append(rev[s], b)
		}
	}

	order := reversePostorderRev(unified, rev)
	index := map[*ir.BasicBlock]int{}
	for n, b := range order {
		index[b] = n
	}

	// In the reverse graph a block's predecessors are its CFG successors,
	// plus the unified exit for every return block.
	revPreds := map[*ir.BasicBlock][]*ir.BasicBlock{}
	for _, b := range f.Blocks {
		revPreds[b] = b.Succs
	}
	for _, e := range exits {
		revPreds[e] = append(revPreds[e], unified)
	}

	idom := map[*ir.BasicBlock]*ir.BasicBlock{unified: unified}
	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == unified {
				continue
			}
			var newIdom *ir.BasicBlock
			for _, p := range revPreds[b] {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(p, newIdom, idom, index)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	delete(idom, unified)
	return idom
}

func reversePostorderRev(root *ir.BasicBlock, rev map[*ir.BasicBlock][]*ir.BasicBlock) []*ir.BasicBlock {
	visited := map[*ir.BasicBlock]bool{}
	var post []*ir.BasicBlock
	var visit func(b *ir.BasicBlock)
	visit = func(b *ir.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, p := range rev[b] {
			visit(p)
		}
		post = append(post, b)
	}
	visit(root)
	out := make([]*ir.BasicBlock, len(post))
	for n, b := range post {
		out[len(post)-1-n] = b
	}
	return out
}
