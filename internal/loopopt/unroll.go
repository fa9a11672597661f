package loopopt

import "github.com/rrvm-project/sysycc/internal/ir"

// MaxUnrollLength bounds the call-weighted instruction count of a fully
// unrolled loop body (one trip's weight times the trip count), mirroring
// internal/midend's MaxInlineLength budget shape -- named distinctly since
// original_source/optimizer/src/loops/loop_unroll/impls.rs's own
// MAX_UNROLL_CNT guards the same kind of size explosion for the same
// reason: an unroll that doesn't fit the budget is worse than the loop it
// replaces.
const MaxUnrollLength = 4096

const unrollCallWeight = 50

// LoopUnroll fully unrolls an innermost, single-latch, straight-line loop
// whose single header phi is a plain (scale-1) induction variable compared
// against a literal constant bound, replacing the loop with one
// straight-line clone of the body per trip and no residual branch.
// Per original_source/optimizer/src/loops/loop_unroll/impls.rs's dfs: a
// loop with nested loops is recursed into, never itself unrolled (its
// inner loops must unroll first, shrinking it, before it becomes a
// candidate on a later optimizer iteration).
//
// This only implements full unrolling. Partial (fixed-factor) unrolling,
// which spec.md 4.5 also names, needs a remainder loop to handle a trip
// count that isn't a multiple of the factor -- a second control-flow
// shape this pass does not build; see DESIGN.md.
type LoopUnroll struct{}

func (LoopUnroll) Name() string { return "loop-unrolling" }

func (LoopUnroll) Run(prog *ir.Program, f *ir.Function) bool {
	changed := false
	for _, b := range f.Blocks {
		loop := b.Loop
		if loop == nil || loop.Header != b || loop.Outer != nil {
			continue
		}
		if unrollDFS(prog, f, loop) {
			changed = true
		}
	}
	return changed
}

func unrollDFS(prog *ir.Program, f *ir.Function, loop *ir.Loop) bool {
	if loop.HasInner() {
		changed := false
		for _, inner := range loop.Inner {
			if unrollDFS(prog, f, inner) {
				changed = true
			}
		}
		return changed
	}
	return tryUnroll(prog, f, loop)
}

// tryUnroll reports whether loop was fully unrolled.
func tryUnroll(prog *ir.Program, f *ir.Function, loop *ir.Loop) bool {
	shape, ok := analyzeUnrollShape(loop)
	if !ok {
		return false
	}

	trip, ok := computeTripCount(shape)
	if !ok || trip <= 0 || trip > 1<<20 {
		return false
	}

	weight := chainWeight(shape.chain) * trip
	if weight > MaxUnrollLength {
		return false
	}

	unrollChain(prog, f, loop, shape, trip)
	return true
}

// unrollShape is the restricted loop form this pass knows how to unroll:
// a single header phi (the counter), a single latch, and a body that is a
// straight-line chain of blocks (no internal branching) from the header's
// in-loop successor down to the latch.
type unrollShape struct {
	phi        *ir.PhiInstr
	cmp        *ir.CompareInstr
	cond       *ir.CondJumpInstr
	exitBlock  *ir.BasicBlock
	chain      []*ir.BasicBlock // body blocks in execution order, ending with the latch
	latch      *ir.BasicBlock
	base, step int32
}

func analyzeUnrollShape(loop *ir.Loop) (*unrollShape, bool) {
	if len(loop.Latches) != 1 || len(loop.Header.Phis) != 1 {
		return nil, false
	}
	latch := loop.Latches[0]
	phi := loop.Header.Phis[0]

	iv, known := loop.IndVars[phi.Dst.ID]
	if !known || !iv.Scale.IsConst() || iv.Scale.ConstInt != 1 || !iv.Base.IsConst() || !iv.Step.IsConst() {
		return nil, false
	}

	// The header must compute nothing but the loop test: anything else
	// there would need its own per-iteration clone, which this pass (unlike
	// a general loop-unswitching transform) doesn't attempt.
	if len(loop.Header.Instrs) != 1 {
		return nil, false
	}
	cond, ok := loop.Header.Term.(*ir.CondJumpInstr)
	if !ok {
		return nil, false
	}
	cmp, ok := loop.Header.Instrs[0].(*ir.CompareInstr)
	if !ok || cond.Cond != cmp.Dst || cmp.LHS != phi.Dst || !cmp.RHS.IsConst() {
		return nil, false
	}
	if cmp.Op != ir.CmpSlt && cmp.Op != ir.CmpSle {
		return nil, false
	}

	var insideTarget, exitBlock *ir.BasicBlock
	if inLoop(loop, cond.True) == inLoop(loop, cond.False) {
		return nil, false // both or neither branch in-loop: not a countable exit
	}
	if inLoop(loop, cond.True) {
		insideTarget, exitBlock = cond.True, cond.False
	} else {
		insideTarget, exitBlock = cond.False, cond.True
	}

	chain, ok := straightChain(loop, insideTarget, latch)
	if !ok {
		return nil, false
	}

	return &unrollShape{
		phi: phi, cmp: cmp, cond: cond, exitBlock: exitBlock,
		chain: chain, latch: latch,
		base: iv.Base.ConstInt, step: iv.Step.ConstInt,
	}, true
}

// straightChain walks from start to latch requiring every block (latch
// included) to have exactly one successor within the loop body -- i.e. no
// internal branching -- and returns the blocks in order. Fails if it
// can't reach latch this way, or if any loop block besides the header is
// left out of the chain (a sign of branching this pass can't handle).
func straightChain(loop *ir.Loop, start, latch *ir.BasicBlock) ([]*ir.BasicBlock, bool) {
	var chain []*ir.BasicBlock
	b := start
	for {
		chain = append(chain, b)
		if b == latch {
			break
		}
		j, ok := b.Term.(*ir.JumpInstr)
		if !ok {
			return nil, false
		}
		b = j.Target
		if !inLoop(loop, b) {
			return nil, false
		}
	}
	if len(chain)+1 != len(loop.Blocks) { // +1 for the header
		return nil, false
	}
	return chain, true
}

func computeTripCount(s *unrollShape) (int, bool) {
	if s.step == 0 {
		return 0, false
	}
	bound := s.cmp.RHS.ConstInt
	if s.cmp.Op == ir.CmpSle {
		bound++
	}
	if s.step > 0 {
		if bound <= s.base {
			return 0, true
		}
		return int((int64(bound) - int64(s.base) + int64(s.step) - 1) / int64(s.step)), true
	}
	if bound >= s.base {
		return 0, true
	}
	return int((int64(s.base) - int64(bound) + int64(-s.step) - 1) / int64(-s.step)), true
}

func chainWeight(chain []*ir.BasicBlock) int {
	w := 0
	for _, b := range chain {
		for _, inst := range b.Instrs {
			if _, ok := inst.(*ir.CallInstr); ok {
				w += unrollCallWeight
			} else {
				w++
			}
		}
	}
	return w
}

// unrollChain replaces the loop with `trip` straight-line clones of
// shape.chain, each with the counter substituted by its literal value for
// that trip, chained directly into the next (or into the exit block after
// the last). The header and latch become dead and are deleted once no
// longer reachable.
func unrollChain(prog *ir.Program, f *ir.Function, loop *ir.Loop, s *unrollShape, trip int) {
	preheaderPreds := append([]*ir.BasicBlock(nil), loop.Header.Preds...)

	var firstBlock *ir.BasicBlock
	var prevTail *ir.BasicBlock
	for k := 0; k < trip; k++ {
		counter := ir.ConstI32(s.base + int32(k)*s.step)
		cloneArgs := map[*ir.Value]*ir.Value{s.phi.Dst: counter}
		blocks := cloneChain(prog, f, s.chain, cloneArgs)
		if firstBlock == nil {
			firstBlock = blocks[0]
		}
		if prevTail != nil {
			prevTail.Term = &ir.JumpInstr{Target: blocks[0]}
			prevTail.Succs = []*ir.BasicBlock{blocks[0]}
			blocks[0].Preds = append(blocks[0].Preds, prevTail)
		}
		tail := blocks[len(blocks)-1]
		tail.Term = nil // set below once we know the real successor
		prevTail = tail
	}

	if prevTail != nil {
		prevTail.Term = &ir.JumpInstr{Target: s.exitBlock}
		prevTail.Succs = []*ir.BasicBlock{s.exitBlock}
		s.exitBlock.Preds = append(removePred(s.exitBlock.Preds, loop.Header), prevTail)
	}

	for _, p := range preheaderPreds {
		if firstBlock != nil {
			p.ReplaceSucc(loop.Header, firstBlock)
		} else {
			p.ReplaceSucc(loop.Header, s.exitBlock)
			s.exitBlock.Preds = append(removePred(s.exitBlock.Preds, loop.Header), p)
		}
	}

	f.RemoveBlock(loop.Header)
	for _, b := range s.chain {
		f.RemoveBlock(b)
	}
}

func removePred(list []*ir.BasicBlock, target *ir.BasicBlock) []*ir.BasicBlock {
	out := list[:0]
	for _, b := range list {
		if b != target {
			out = append(out, b)
		}
	}
	return out
}

// cloneChain clones a straight-line run of blocks, remapping every defined
// temp to a fresh one (seeded from argFor for the loop counter) and every
// operand reference accordingly, preserving instruction order within each
// block. The clones' terminators all become plain jumps chaining block i
// to clone i+1 in the same relative order as the originals; the caller
// rewires the final clone's terminator itself.
func cloneChain(prog *ir.Program, f *ir.Function, chain []*ir.BasicBlock, argFor map[*ir.Value]*ir.Value) []*ir.BasicBlock {
	valueFor := map[*ir.Value]*ir.Value{}
	blockFor := map[*ir.BasicBlock]*ir.BasicBlock{}
	for _, b := range chain {
		blockFor[b] = f.NewBlock(b.Label + ".unroll")
	}

	remap := func(v *ir.Value) *ir.Value {
		if v == nil || v.IsConst() || v.Global {
			return v
		}
		if nv, ok := argFor[v]; ok {
			return nv
		}
		if nv, ok := valueFor[v]; ok {
			return nv
		}
		nv := prog.Temps.NewTemp(v.Type)
		valueFor[v] = nv
		return nv
	}

	var out []*ir.BasicBlock
	for _, b := range chain {
		nb := blockFor[b]
		for _, inst := range b.Instrs {
			nb.Instrs = append(nb.Instrs, cloneUnrollInstr(inst, remap))
		}
		out = append(out, nb)
	}
	for n, b := range chain {
		if j, ok := b.Term.(*ir.JumpInstr); ok {
			if target, ok := blockFor[j.Target]; ok {
				out[n].Term = &ir.JumpInstr{Target: target}
				out[n].Succs = []*ir.BasicBlock{target}
				target.Preds = append(target.Preds, out[n])
			}
		}
	}
	return out
}

func cloneUnrollInstr(inst ir.Instruction, remap func(*ir.Value) *ir.Value) ir.Instruction {
	switch v := inst.(type) {
	case *ir.BinaryInstr:
		return &ir.BinaryInstr{Dst: remap(v.Dst), Op: v.Op, LHS: remap(v.LHS), RHS: remap(v.RHS)}
	case *ir.CompareInstr:
		return &ir.CompareInstr{Dst: remap(v.Dst), Op: v.Op, LHS: remap(v.LHS), RHS: remap(v.RHS)}
	case *ir.ConvertInstr:
		return &ir.ConvertInstr{Dst: remap(v.Dst), Src: remap(v.Src), ToFloat: v.ToFloat}
	case *ir.AllocaInstr:
		return &ir.AllocaInstr{Dst: remap(v.Dst), ElemType: v.ElemType, NumElems: v.NumElems}
	case *ir.StoreInstr:
		return &ir.StoreInstr{Addr: remap(v.Addr), Value: remap(v.Value)}
	case *ir.LoadInstr:
		return &ir.LoadInstr{Dst: remap(v.Dst), Addr: remap(v.Addr)}
	case *ir.GEPInstr:
		return &ir.GEPInstr{Dst: remap(v.Dst), Base: remap(v.Base), Offset: remap(v.Offset)}
	case *ir.CallInstr:
		args := make([]*ir.Value, len(v.Args))
		for n, a := range v.Args {
			args[n] = remap(a)
		}
		var dst *ir.Value
		if v.Dst != nil {
			dst = remap(v.Dst)
		}
		return &ir.CallInstr{Dst: dst, Callee: v.Callee, Args: args, ArgTypes: v.ArgTypes}
	default:
		panic("loopopt: cloneUnrollInstr: unhandled instruction kind")
	}
}
