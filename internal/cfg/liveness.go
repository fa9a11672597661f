package cfg

import "github.com/rrvm-project/sysycc/internal/ir"

// Liveness computes def/use/live-in/live-out sets for every block in f by
// iterating the standard backward data-flow equations to a fixed point,
// and stamps each block's Weight as 10^depth where depth is its loop
// nesting (0 outside any loop). The register allocator's spill heuristic
// reads Weight (carried over as riscv.Block.Weight); NaturalLoops must run
// before Liveness for the weight to reflect real nesting.
func Liveness(f *ir.Function) {
	for _, b := range f.Blocks {
		b.Defs = map[*ir.Value]bool{}
		b.Uses = map[*ir.Value]bool{}
		b.LiveIn = map[*ir.Value]bool{}
		b.LiveOut = map[*ir.Value]bool{}
		computeDefUse(b)
		if b.Loop != nil {
			depth := b.Loop.Depth
			if depth < 1 {
				depth = 1
			}
			w := 1.0
			for i := 0; i < depth; i++ {
				w *= 10
			}
			b.Weight = w
		} else {
			b.Weight = 1
		}
	}

	changed := true
	for changed {
		changed = false
		for n := len(f.Blocks) - 1; n >= 0; n-- {
			b := f.Blocks[n]
			newOut := map[*ir.Value]bool{}
			for _, s := range b.Succs {
				for v := range s.LiveIn {
					newOut[v] = true
				}
			}
			newIn := map[*ir.Value]bool{}
			for v := range b.Uses {
				newIn[v] = true
			}
			for v := range newOut {
				if !b.Defs[v] {
					newIn[v] = true
				}
			}
			if !setsEqual(newIn, b.LiveIn) || !setsEqual(newOut, b.LiveOut) {
				changed = true
			}
			b.LiveIn = newIn
			b.LiveOut = newOut
		}
	}
}

// computeDefUse walks a block in forward order to classify each operand:
// used-before-defined-in-block (a genuine upward exposed use) versus
// defined-then-used locally (no effect on LiveIn). Phi sources are
// attributed to the matching predecessor, not to this block, since a phi
// "uses" its operand at the end of the predecessor, not at the phi site.
func computeDefUse(b *ir.BasicBlock) {
	local := map[*ir.Value]bool{}
	for _, phi := range b.Phis {
		b.Defs[phi.Dst] = true
		local[phi.Dst] = true
	}
	for _, inst := range b.Instrs {
		for _, op := range inst.Operands() {
			if op.IsConst() || local[op] {
				continue
			}
			b.Uses[op] = true
		}
		if r := inst.Result(); r != nil {
			b.Defs[r] = true
			local[r] = true
		}
	}
	if b.Term != nil {
		for _, op := range b.Term.Operands() {
			if op.IsConst() || local[op] {
				continue
			}
			b.Uses[op] = true
		}
	}
	// Phi sources are live-out of the predecessor that supplies them, not
	// a use within this block; PhiUsesIn below exposes that per-edge view
	// for passes (coalescing, interference) that need it.
}

// PhiUsesIn returns the values a successor's phis read along the edge
// from pred, i.e. the extra live-out contribution pred must account for
// beyond its own LiveOut due to critical-edge phi sources.
func PhiUsesIn(pred *ir.BasicBlock) []*ir.Value {
	var out []*ir.Value
	for _, s := range pred.Succs {
		for _, phi := range s.Phis {
			if v := phi.ValueFor(pred); v != nil && !v.IsConst() {
				out = append(out, v)
			}
		}
	}
	return out
}

func setsEqual(a, b map[*ir.Value]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if !b[v] {
			return false
		}
	}
	return true
}
