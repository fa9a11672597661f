// Package cfg computes the control-flow analyses the mid-end, loop
// optimizer, and backend all share: dominator trees and frontiers,
// liveness, and the natural-loop tree. None of these analyses mutate the
// IR; each is re-run after a pass changes the CFG shape, the way the
// teacher's optimization pipeline recomputes its own caches between
// fixed-point iterations.
package cfg

import "github.com/rrvm-project/sysycc/internal/ir"

// Dominators computes the immediate-dominator tree of f using the
// standard iterative data-flow algorithm (Cooper, Harvey & Kennedy):
// O(V*(V+E)) to a fixed point, which is fast enough at the block counts
// SysY programs produce and avoids the bookkeeping of the Lengauer-Tarjan
// variant. Results are written into each BasicBlock's IDom/DomChildren
// fields.
func Dominators(f *ir.Function) {
	for _, b := range f.Blocks {
		b.IDom = nil
		b.DomChildren = nil
	}
	entry := f.Entry()
	if entry == nil {
		return
	}

	order := reversePostorder(f)
	index := map[*ir.BasicBlock]int{}
	for n, b := range order {
		index[b] = n
	}

	idom := map[*ir.BasicBlock]*ir.BasicBlock{entry: entry}
	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == entry {
				continue
			}
			var newIdom *ir.BasicBlock
			for _, p := range b.Preds {
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

	for _, b := range order {
		if b == entry {
			continue
		}
		d := idom[b]
		if d == nil {
			continue
		}
		b.IDom = d
		d.DomChildren = append(d.DomChildren, b)
	}
}

func intersect(a, b *ir.BasicBlock, idom map[*ir.BasicBlock]*ir.BasicBlock, index map[*ir.BasicBlock]int) *ir.BasicBlock {
	for a != b {
		for index[a] > index[b] {
			a = idom[a]
		}
		for index[b] > index[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder returns f's blocks in reverse postorder of a DFS from
// the entry, the traversal order the dominator fixed-point converges
// fastest under.
func reversePostorder(f *ir.Function) []*ir.BasicBlock {
	visited := map[*ir.BasicBlock]bool{}
	var post []*ir.BasicBlock
	var visit func(b *ir.BasicBlock)
	visit = func(b *ir.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		post = append(post, b)
	}
	visit(f.Entry())
	out := make([]*ir.BasicBlock, len(post))
	for n, b := range post {
		out[len(post)-1-n] = b
	}
	return out
}

// Dominates reports whether a dominates b (reflexive: a dominates
// itself).
func Dominates(a, b *ir.BasicBlock) bool {
	for n := b; n != nil; n = n.IDom {
		if n == a {
			return true
		}
		if n.IDom == n {
			break // reached a self-dominating entry without finding a
		}
	}
	return false
}

// DominanceFrontier computes DF(b) for every block in f: the set of
// blocks where b's dominance stops, i.e. where phi placement would be
// required for a value defined in b.
func DominanceFrontier(f *ir.Function) map[*ir.BasicBlock][]*ir.BasicBlock {
	df := map[*ir.BasicBlock][]*ir.BasicBlock{}
	for _, b := range f.Blocks {
		if len(b.Preds) < 2 {
			continue
		}
		for _, p := range b.Preds {
			runner := p
			for runner != b.IDom {
				df[runner] = append(df[runner], b)
				if runner.IDom == nil {
					break
				}
				runner = runner.IDom
			}
		}
	}
	return df
}
