package midend

import "github.com/rrvm-project/sysycc/internal/ir"

// UselessPhi collapses any phi whose sources (ignoring self-references)
// all agree on one value, rewriting every use of the phi's result to
// that value and dropping the phi. internal/ir.Builder already performs
// this inline during SSA construction, but later passes (block merging,
// loop unrolling, strength reduction) reintroduce phis that need the same
// cleanup, so it also runs as its own mid-end pass. Caps the number of
// iterations implicitly via the pass driver's fixed-point loop.
type UselessPhi struct{}

func (UselessPhi) Name() string { return "useless-phi-removal" }

func (UselessPhi) Run(prog *ir.Program, f *ir.Function) bool {
	changed := false
	for _, b := range f.Blocks {
		out := b.Phis[:0]
		for _, phi := range b.Phis {
			if same, ok := trivialValue(phi); ok {
				replaceAllUses(f, phi.Dst, same)
				changed = true
				continue
			}
			out = append(out, phi)
		}
		b.Phis = out
	}
	return changed
}

func trivialValue(phi *ir.PhiInstr) (*ir.Value, bool) {
	var same *ir.Value
	for _, src := range phi.Sources {
		if src.Value == phi.Dst || src.Value == same {
			continue
		}
		if same != nil {
			return nil, false
		}
		same = src.Value
	}
	return same, same != nil
}
