package loopopt

import (
	"github.com/rrvm-project/sysycc/internal/cfg"
	"github.com/rrvm-project/sysycc/internal/ir"
)

// StrengthReduce rewrites an expensive loop-body recomputation of a
// derived induction variable (e.g. `j = i*4`) into a cheap
// incrementally-updated variable carried by a new header phi -- the same
// mechanism the loop's own ordinary induction variable already uses.
// Grounded on
// original_source/optimizer/src/strength_reduce/{impls.rs,osr/helper_functions.rs}'s
// "candidate operation whose other operand is a regional constant" shape,
// adapted to reuse ClassifyInductionVariables' already-folded Base/Scale/
// Step instead of rescanning dominance per candidate, and restricted to a
// single loop latch whose defining block dominates it, per spec.md 4.5's
// guard against reducing a value that might not update on every
// iteration.
type StrengthReduce struct{}

func (StrengthReduce) Name() string { return "strength-reduction" }

func (StrengthReduce) Run(prog *ir.Program, f *ir.Function) bool {
	changed := false
	for _, b := range f.Blocks {
		loop := b.Loop
		if loop == nil || loop.Header != b {
			continue
		}
		if reduceLoop(prog, f, loop) {
			changed = true
		}
	}
	return changed
}

func reduceLoop(prog *ir.Program, f *ir.Function, loop *ir.Loop) bool {
	changed := false
	for _, inner := range loop.Inner {
		if reduceLoop(prog, f, inner) {
			changed = true
		}
	}

	if len(loop.Latches) != 1 {
		return changed
	}
	latch := loop.Latches[0]

	ordinary := map[int]bool{}
	for _, phi := range loop.Header.Phis {
		ordinary[phi.Dst.ID] = true
	}

	for _, b := range loop.Blocks {
		if !cfg.Dominates(b, latch) {
			continue
		}
		kept := b.Instrs[:0]
		for _, inst := range b.Instrs {
			bin, ok := inst.(*ir.BinaryInstr)
			// Only a multiply is worth reducing: an Add/Sub derived IV already
			// costs exactly what the copy we'd introduce costs.
			if !ok || bin.Op != ir.OpMul || ordinary[bin.Dst.ID] {
				kept = append(kept, inst)
				continue
			}
			iv, known := loop.IndVars[bin.Dst.ID]
			if !known {
				kept = append(kept, inst)
				continue
			}

			newIV := introduceReducedIV(prog, f, loop, latch, bin.Dst.Type, iv)
			replaceAllUses(f, bin.Dst, newIV)
			changed = true
		}
		b.Instrs = kept
	}
	return changed
}

// introduceReducedIV synthesizes a header phi that carries exactly the
// recurrence iv describes: Base on entry, +Step every trip through latch.
// The multiply this replaces is now redundant -- every later use of its
// result reads the phi instead -- so the caller drops the instruction.
func introduceReducedIV(prog *ir.Program, f *ir.Function, loop *ir.Loop, latch *ir.BasicBlock, t ir.Type, iv *ir.IndVar) *ir.Value {
	preheader := loop.Preheader
	if preheader == nil {
		preheader = cfg.SynthesizePreheader(f, loop)
	}

	newIV := prog.Temps.NewNamedTemp(t, "%osr")
	next := prog.Temps.NewNamedTemp(t, "%osr.next")

	// Sources must line up with Header.Preds position-for-position, same as
	// every other phi in this block.
	sources := make([]ir.PhiSource, len(loop.Header.Preds))
	for n, p := range loop.Header.Preds {
		if p == latch {
			sources[n] = ir.PhiSource{Pred: p, Value: next}
		} else {
			sources[n] = ir.PhiSource{Pred: p, Value: iv.Base}
		}
	}
	phi := &ir.PhiInstr{Dst: newIV, Block: loop.Header, Sources: sources}
	loop.Header.Phis = append(loop.Header.Phis, phi)

	step := &ir.BinaryInstr{Dst: next, Op: ir.OpAdd, LHS: newIV, RHS: iv.Step}
	latch.Instrs = append(latch.Instrs, step)

	return newIV
}

// replaceAllUses rewrites every operand reference to old into new across
// the whole function -- a value's uses can span blocks since SSA values
// are function-global.
func replaceAllUses(f *ir.Function, old, new *ir.Value) {
	for _, b := range f.Blocks {
		for _, phi := range b.Phis {
			phi.ReplaceOperand(old, new)
		}
		for _, inst := range b.Instrs {
			inst.ReplaceOperand(old, new)
		}
		if b.Term != nil {
			b.Term.ReplaceOperand(old, new)
		}
	}
}
