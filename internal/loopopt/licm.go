package loopopt

import (
	"github.com/rrvm-project/sysycc/internal/cfg"
	"github.com/rrvm-project/sysycc/internal/ir"
)

// LICM hoists loop-invariant instructions out to the loop's preheader, one
// loop at a time, innermost first so an outer loop sees its inner loops'
// already-hoisted invariants as further hoisting candidates. Grounded on
// original_source/optimizer/src/loops/indvar_solver/move_invariant.rs's
// shape (collect instructions whose result is loop-invariant, splice them
// into the preheader, delete them from their original block) but computes
// invariance with a simple fixed-point worklist rather than that file's
// Tarjan SCC pass, and -- unlike it -- never hoists a Load, since nothing
// here tracks whether a Store elsewhere in the loop aliases its address.
type LICM struct{}

func (LICM) Name() string { return "loop-invariant-code-motion" }

func (LICM) Run(prog *ir.Program, f *ir.Function) bool {
	purity := ir.AnalyzePurity(prog)
	changed := false
	for _, b := range f.Blocks {
		loop := b.Loop
		if loop == nil || loop.Header != b {
			continue
		}
		if hoistLoop(prog, f, loop, purity) {
			changed = true
		}
	}
	return changed
}

func hoistLoop(prog *ir.Program, f *ir.Function, loop *ir.Loop, purity *ir.PurityInfo) bool {
	for _, inner := range loop.Inner {
		hoistLoop(prog, f, inner, purity)
	}

	var preheader *ir.BasicBlock
	invariant := map[*ir.Value]bool{}
	changed := false

	// Mark and move in the same fixed-point round: an instruction is only
	// appended to the preheader once its operands are already invariant
	// (constants/outside-loop values, or earlier appends this same loop),
	// so the append order is always a valid topological order for the
	// preheader's new instruction list.
	for {
		roundChanged := false
		for _, b := range loop.Blocks {
			kept := b.Instrs[:0]
			for _, inst := range b.Instrs {
				r := inst.Result()
				if r == nil || invariant[r] || !isInvariantInstr(loop, inst, invariant, purity) {
					kept = append(kept, inst)
					continue
				}
				if preheader == nil {
					preheader = loop.Preheader
					if preheader == nil {
						preheader = cfg.SynthesizePreheader(f, loop)
					}
				}
				invariant[r] = true
				preheader.Instrs = append(preheader.Instrs, inst)
				roundChanged = true
			}
			b.Instrs = kept
		}
		if !roundChanged {
			break
		}
		changed = true
	}
	return changed
}

// isInvariantInstr reports whether inst may be hoisted: it must be pure
// (a call only if its callee is known pure), not a Load, and every operand
// must already be loop-invariant -- a constant, global, defined outside
// the loop, or already marked invariant this pass.
func isInvariantInstr(loop *ir.Loop, inst ir.Instruction, invariant map[*ir.Value]bool, purity *ir.PurityInfo) bool {
	switch v := inst.(type) {
	case *ir.LoadInstr:
		return false
	case *ir.AllocaInstr:
		return false
	case *ir.CallInstr:
		if !purity.IsPure(v.Callee) {
			return false
		}
	default:
		if !inst.Pure() {
			return false
		}
	}
	for _, op := range inst.Operands() {
		if !(op.IsConst() || op.Global || invariant[op] || findDefInLoop(loop, op) == nil) {
			return false
		}
	}
	return true
}

