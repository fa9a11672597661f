// Package loopopt implements spec section 4.5's loop subsystem: induction
// variable classification, loop-invariant code motion, strength reduction,
// loop unrolling, and the parallelization precheck. It operates on the
// internal/cfg.NaturalLoops results cached on each internal/ir.BasicBlock's
// Loop field, so internal/cfg.Analyze must have run first.
package loopopt

import "github.com/rrvm-project/sysycc/internal/ir"

// ClassifyInductionVariables finds the induction variables of every loop in
// f and records them in each loop's IndVars map, keyed by the defined
// temporary's id. An IV advances by step each iteration (value_{n+1} =
// value_n + step, with Scale the factor on the loop's counter); this pass first recognizes ordinary IVs (header phis whose loop-carried
// update is `phi +/- step`, step loop-invariant) and then propagates
// through arithmetic combinations of already-known IVs to a fixed point,
// per original_source/optimizer/src/indvar.rs's recurrence shape and
// spec.md 4.5's combination rules.
func ClassifyInductionVariables(f *ir.Function) {
	for _, b := range f.Blocks {
		loop := b.Loop
		if loop == nil || loop.Header != b {
			continue
		}
		classifyLoop(loop)
	}
}

func classifyLoop(loop *ir.Loop) {
	if loop.IndVars == nil {
		loop.IndVars = map[int]*ir.IndVar{}
	}
	classifyOrdinaryIVs(loop)

	for {
		if !classifyCombinations(loop) {
			break
		}
	}
}

// classifyOrdinaryIVs looks at every header phi for the pattern: one source
// arrives from outside the loop (the base, must be loop-invariant) and one
// source arrives from a latch, computed as `phi +/- step` with step
// loop-invariant.
func classifyOrdinaryIVs(loop *ir.Loop) {
	header := loop.Header
	for _, phi := range header.Phis {
		var base, step *ir.Value
		negateStep := false
		ok := true
		for _, src := range phi.Sources {
			if !inLoop(loop, src.Pred) {
				if base != nil {
					ok = false
					break
				}
				base = src.Value
				continue
			}
			if !isLatch(loop, src.Pred) {
				ok = false
				break
			}
			s, neg, sok := recurrenceStep(loop, phi.Dst, src.Value)
			if !sok {
				ok = false
				break
			}
			step, negateStep = s, neg
		}
		if !ok || base == nil || step == nil || !isLoopInvariant(loop, base) || !isLoopInvariant(loop, step) {
			continue
		}
		if negateStep {
			step = negatedConst(step)
			if step == nil {
				continue // a non-constant step can't be negated symbolically
			}
		}
		loop.IndVars[phi.Dst.ID] = &ir.IndVar{Base: base, Scale: ir.ConstI32(1), Step: step}
	}
}

// recurrenceStep reports whether rec (the latch-arriving phi source) is
// defined as `phi.Dst + step` or `phi.Dst - step` within the loop, and
// returns step and whether the operation was a subtraction.
func recurrenceStep(loop *ir.Loop, phiDst, rec *ir.Value) (*ir.Value, bool, bool) {
	def := findDefInLoop(loop, rec)
	bin, ok := def.(*ir.BinaryInstr)
	if !ok || (bin.Op != ir.OpAdd && bin.Op != ir.OpSub) {
		return nil, false, false
	}
	if bin.LHS == phiDst {
		return bin.RHS, bin.Op == ir.OpSub, true
	}
	if bin.RHS == phiDst && bin.Op == ir.OpAdd {
		return bin.LHS, false, true
	}
	return nil, false, false
}

// classifyCombinations scans every instruction in the loop for an
// arithmetic combination of a known IV with an invariant or another known
// IV, registering the result as a derived IV. Returns whether it found any
// new IV this round, so the caller can iterate to a fixed point (an IV
// combined from two other IVs may itself feed a third combination).
func classifyCombinations(loop *ir.Loop) bool {
	changed := false
	for _, b := range loop.Blocks {
		for _, inst := range b.Instrs {
			bin, ok := inst.(*ir.BinaryInstr)
			if !ok || bin.Op.IsFloat() {
				continue
			}
			if _, known := loop.IndVars[bin.Dst.ID]; known {
				continue
			}
			if iv, ok := combine(loop, bin); ok {
				loop.IndVars[bin.Dst.ID] = iv
				changed = true
			}
		}
	}
	return changed
}

// combine derives a new IndVar from a loop-body BinaryInstr combining an
// already-known IV with either another known IV or a loop-invariant
// operand. The resulting base/scale/step must themselves be concrete
// Values; since classification never emits new IR, a combination whose
// result isn't constant-foldable is left unclassified rather than guessed
// at -- a conservative miss, never a wrong record, which is what
// downstream strength reduction relies on.
func combine(loop *ir.Loop, bin *ir.BinaryInstr) (*ir.IndVar, bool) {
	lIV, lIsIV := ivOf(loop, bin.LHS)
	rIV, rIsIV := ivOf(loop, bin.RHS)

	switch bin.Op {
	case ir.OpAdd:
		if lIsIV && rIsIV {
			if !sameConst(lIV.Scale, rIV.Scale) {
				return nil, false
			}
			return foldedIV(lIV.Base, rIV.Base, ir.OpAdd, lIV.Scale, lIV.Step, rIV.Step, ir.OpAdd)
		}
		if lIsIV && isLoopInvariant(loop, bin.RHS) {
			return foldedIV(lIV.Base, bin.RHS, ir.OpAdd, lIV.Scale, lIV.Step, nil, 0)
		}
		if rIsIV && isLoopInvariant(loop, bin.LHS) {
			return foldedIV(rIV.Base, bin.LHS, ir.OpAdd, rIV.Scale, rIV.Step, nil, 0)
		}
	case ir.OpSub:
		if lIsIV && rIsIV {
			if !sameConst(lIV.Scale, rIV.Scale) {
				return nil, false
			}
			return foldedIV(lIV.Base, rIV.Base, ir.OpSub, lIV.Scale, lIV.Step, rIV.Step, ir.OpSub)
		}
		if lIsIV && isLoopInvariant(loop, bin.RHS) {
			return foldedIV(lIV.Base, bin.RHS, ir.OpSub, lIV.Scale, lIV.Step, nil, 0)
		}
	case ir.OpMul:
		// A value defined in the loop is never loop-invariant, so
		// isLoopInvariant already guarantees the other operand isn't itself
		// a second IV -- spec.md 4.5's "requires one operand invariant".
		if lIsIV && isLoopInvariant(loop, bin.RHS) {
			base, ok := foldConst(lIV.Base, bin.RHS, ir.OpMul)
			if !ok {
				return nil, false
			}
			scale, ok := foldConst(lIV.Scale, bin.RHS, ir.OpMul)
			if !ok {
				return nil, false
			}
			step, ok := foldConst(lIV.Step, bin.RHS, ir.OpMul)
			if !ok {
				return nil, false
			}
			return &ir.IndVar{Base: base, Scale: scale, Step: step}, true
		}
		if rIsIV && isLoopInvariant(loop, bin.LHS) {
			base, ok := foldConst(rIV.Base, bin.LHS, ir.OpMul)
			if !ok {
				return nil, false
			}
			scale, ok := foldConst(rIV.Scale, bin.LHS, ir.OpMul)
			if !ok {
				return nil, false
			}
			step, ok := foldConst(rIV.Step, bin.LHS, ir.OpMul)
			if !ok {
				return nil, false
			}
			return &ir.IndVar{Base: base, Scale: scale, Step: step}, true
		}
	}
	return nil, false
}

// foldedIV builds a combined IV's base (baseOp(b1,b2)) and, when stepB is
// non-nil, its step (stepOp(step1,stepB)) -- otherwise the step carries
// over unchanged (the IV-plus-invariant case). scale carries over from the
// single known IV in every call site above.
func foldedIV(b1, b2 *ir.Value, baseOp ir.ArithOp, scale, step1, stepB *ir.Value, stepOp ir.ArithOp) (*ir.IndVar, bool) {
	base, ok := foldConst(b1, b2, baseOp)
	if !ok {
		return nil, false
	}
	step := step1
	if stepB != nil {
		step, ok = foldConst(step1, stepB, stepOp)
		if !ok {
			return nil, false
		}
	}
	return &ir.IndVar{Base: base, Scale: scale, Step: step}, true
}

// foldConst evaluates op(a, b) when both are constants; a non-constant
// operand means the combined IV can't be represented as a single Value
// without synthesizing new IR, which classification never does.
func foldConst(a, b *ir.Value, op ir.ArithOp) (*ir.Value, bool) {
	if !a.IsConst() || !b.IsConst() {
		return nil, false
	}
	switch op {
	case ir.OpAdd:
		return ir.ConstI32(a.ConstInt + b.ConstInt), true
	case ir.OpSub:
		return ir.ConstI32(a.ConstInt - b.ConstInt), true
	case ir.OpMul:
		return ir.ConstI32(a.ConstInt * b.ConstInt), true
	}
	return nil, false
}

func ivOf(loop *ir.Loop, v *ir.Value) (*ir.IndVar, bool) {
	if v.IsConst() {
		return nil, false
	}
	iv, ok := loop.IndVars[v.ID]
	return iv, ok
}

func sameConst(a, b *ir.Value) bool {
	return a.IsConst() && b.IsConst() && a.ConstInt == b.ConstInt
}

func negatedConst(v *ir.Value) *ir.Value {
	if !v.IsConst() {
		return nil
	}
	return ir.ConstI32(-v.ConstInt)
}

func inLoop(loop *ir.Loop, b *ir.BasicBlock) bool {
	for _, lb := range loop.Blocks {
		if lb == b {
			return true
		}
	}
	return false
}

func isLatch(loop *ir.Loop, b *ir.BasicBlock) bool {
	for _, l := range loop.Latches {
		if l == b {
			return true
		}
	}
	return false
}

// isLoopInvariant reports whether v is a constant or defined outside the
// loop's blocks (including function parameters, which have no def block).
func isLoopInvariant(loop *ir.Loop, v *ir.Value) bool {
	if v.IsConst() || v.Global {
		return true
	}
	return findDefInLoop(loop, v) == nil
}

// findDefInLoop returns the instruction (or phi) in the loop that defines
// v, or nil if v is not defined inside the loop at all.
func findDefInLoop(loop *ir.Loop, v *ir.Value) ir.Instruction {
	for _, b := range loop.Blocks {
		for _, phi := range b.Phis {
			if phi.Dst == v {
				return phi
			}
		}
		for _, inst := range b.Instrs {
			if inst.Result() == v {
				return inst
			}
		}
	}
	return nil
}
