package midend

import "github.com/rrvm-project/sysycc/internal/ir"

// Inlining thresholds, grounded on
// original_source/utils/src/constants.rs: a callee is only a candidate if
// its estimated instruction count is below MaxInlineLength, and a callee
// with more than InlineParamsThreshold parameters is never inlined (the
// parameter-substitution rewrite cost stops paying for itself).
const (
	MaxInlineLength       = 4096
	InlineParamsThreshold = 50
)

// Inline replaces call sites to small, non-recursive, non-external
// functions with a copy of the callee's body, substituting parameters
// for arguments and rewriting the callee's blocks into fresh ones spliced
// into the caller's CFG at the call site.
type Inline struct{}

func (Inline) Name() string { return "function-inlining" }

func (Inline) Run(prog *ir.Program, f *ir.Function) bool {
	changed := false
	for {
		site, call, caller := findInlineSite(prog, f)
		if site == nil {
			break
		}
		inlineCall(prog, f, site, call, caller)
		changed = true
	}
	return changed
}

type callSite struct {
	block *ir.BasicBlock
	index int
}

func findInlineSite(prog *ir.Program, f *ir.Function) (*callSite, *ir.CallInstr, *ir.Function) {
	for _, b := range f.Blocks {
		for n, inst := range b.Instrs {
			call, ok := inst.(*ir.CallInstr)
			if !ok {
				continue
			}
			callee := prog.FuncByName(call.Callee)
			if callee == nil || callee.External || callee == f {
				continue // unresolved, runtime-linkage, or (simple) recursive
			}
			if !eligibleToInline(callee) {
				continue
			}
			return &callSite{block: b, index: n}, call, callee
		}
	}
	return nil, nil, nil
}

func eligibleToInline(callee *ir.Function) bool {
	if len(callee.Params) > InlineParamsThreshold {
		return false
	}
	count := 0
	for _, b := range callee.Blocks {
		count += len(b.Phis) + len(b.Instrs) + 1
		if count > MaxInlineLength {
			return false
		}
	}
	return true
}

// inlineCall splices a fresh copy of callee's blocks into f at the call
// site: the call's block is split after the call instruction, the
// callee's entry becomes the jump target of the first half, every
// `ret` in the copy becomes a jump to the continuation (with a phi
// merging returned values if the callee has multiple exits), and the
// call's result uses are redirected to that merged value.
func inlineCall(prog *ir.Program, f *ir.Function, site *callSite, call *ir.CallInstr, callee *ir.Function) {
	before := site.block
	after := f.NewBlock(before.Label + ".cont")
	after.Instrs = append(after.Instrs, before.Instrs[site.index+1:]...)
	after.Term = before.Term
	after.Succs = append([]*ir.BasicBlock(nil), before.Succs...)
	for _, s := range after.Succs {
		s.RemovePred(before)
		s.Preds = append(s.Preds, after)
	}

	before.Instrs = before.Instrs[:site.index]
	before.Succs = nil

	argFor := map[*ir.Value]*ir.Value{}
	for n, param := range callee.Params {
		argFor[param.Value] = call.Args[n]
	}
	clone := cloneFunctionBody(prog, callee, f, argFor)

	entryClone := clone.blockFor[callee.Entry()]
	before.Term = &ir.JumpInstr{Target: entryClone}
	before.AddSucc(entryClone)

	var retVals []ir.PhiSource
	for _, cb := range clone.body.Blocks {
		ret, ok := cb.Term.(*ir.RetInstr)
		if !ok {
			continue
		}
		if ret.Value != nil {
			retVals = append(retVals, ir.PhiSource{Pred: cb, Value: ret.Value})
		}
		cb.Term = &ir.JumpInstr{Target: after}
		cb.AddSucc(after)
	}

	f.Blocks = append(f.Blocks, clone.body.Blocks...)
	f.Blocks = append(f.Blocks, after)

	if call.Dst != nil && len(retVals) > 0 {
		if len(retVals) == 1 && !hasMultiplePreds(after) {
			replaceAllUses(f, call.Dst, retVals[0].Value)
		} else {
			phi := &ir.PhiInstr{Dst: call.Dst, Block: after, Sources: retVals}
			after.Phis = append(after.Phis, phi)
		}
	}
}

func hasMultiplePreds(b *ir.BasicBlock) bool { return len(b.Preds) > 1 }

type clonedFunc struct {
	body     *ir.Function
	blockFor map[*ir.BasicBlock]*ir.BasicBlock
}

// cloneFunctionBody deep-copies callee's blocks/instructions into fresh
// ones (fresh Value results too, so the clone never aliases the
// original's SSA names, letting the callee be inlined at multiple call
// sites independently) while preserving its internal CFG shape.
func cloneFunctionBody(prog *ir.Program, callee *ir.Function, into *ir.Function, argFor map[*ir.Value]*ir.Value) *clonedFunc {
	blockFor := map[*ir.BasicBlock]*ir.BasicBlock{}
	valueFor := map[*ir.Value]*ir.Value{}
	shadow := ir.NewFunction(into.Name+".$inline."+callee.Name, callee.ReturnType, nil)

	for _, b := range callee.Blocks {
		nb := shadow.NewBlock(into.Name + "." + b.Label)
		blockFor[b] = nb
	}
	remapValue := func(v *ir.Value) *ir.Value {
		if v == nil || v.IsConst() || v.Global {
			return v
		}
		if arg, ok := argFor[v]; ok {
			return arg
		}
		if nv, ok := valueFor[v]; ok {
			return nv
		}
		nv := prog.Temps.NewTemp(v.Type)
		valueFor[v] = nv
		return nv
	}

	for _, b := range callee.Blocks {
		nb := blockFor[b]
		for _, phi := range b.Phis {
			np := &ir.PhiInstr{Dst: remapValue(phi.Dst), Block: nb}
			for _, src := range phi.Sources {
				np.Sources = append(np.Sources, ir.PhiSource{Pred: blockFor[src.Pred], Value: remapValue(src.Value)})
			}
			nb.Phis = append(nb.Phis, np)
		}
		for _, inst := range b.Instrs {
			nb.Instrs = append(nb.Instrs, cloneInstr(inst, remapValue))
		}
		nb.Term = cloneTerm(b.Term, blockFor, remapValue)
		for _, s := range b.Succs {
			nb.AddSucc(blockFor[s])
		}
	}

	return &clonedFunc{body: shadow, blockFor: blockFor}
}

func cloneInstr(inst ir.Instruction, remap func(*ir.Value) *ir.Value) ir.Instruction {
	switch i := inst.(type) {
	case *ir.BinaryInstr:
		return &ir.BinaryInstr{Dst: remap(i.Dst), Op: i.Op, LHS: remap(i.LHS), RHS: remap(i.RHS)}
	case *ir.CompareInstr:
		return &ir.CompareInstr{Dst: remap(i.Dst), Op: i.Op, LHS: remap(i.LHS), RHS: remap(i.RHS)}
	case *ir.ConvertInstr:
		return &ir.ConvertInstr{Dst: remap(i.Dst), Src: remap(i.Src), ToFloat: i.ToFloat}
	case *ir.AllocaInstr:
		return &ir.AllocaInstr{Dst: remap(i.Dst), ElemType: i.ElemType, NumElems: i.NumElems}
	case *ir.StoreInstr:
		return &ir.StoreInstr{Addr: remap(i.Addr), Value: remap(i.Value)}
	case *ir.LoadInstr:
		return &ir.LoadInstr{Dst: remap(i.Dst), Addr: remap(i.Addr)}
	case *ir.GEPInstr:
		return &ir.GEPInstr{Dst: remap(i.Dst), Base: remap(i.Base), Offset: remap(i.Offset)}
	case *ir.CallInstr:
		args := make([]*ir.Value, len(i.Args))
		for n, a := range i.Args {
			args[n] = remap(a)
		}
		var dst *ir.Value
		if i.Dst != nil {
			dst = remap(i.Dst)
		}
		return &ir.CallInstr{Dst: dst, Callee: i.Callee, Args: args, ArgTypes: i.ArgTypes}
	}
	panic("inline: unhandled instruction kind in clone")
}

func cloneTerm(term ir.Terminator, blockFor map[*ir.BasicBlock]*ir.BasicBlock, remap func(*ir.Value) *ir.Value) ir.Terminator {
	switch t := term.(type) {
	case *ir.JumpInstr:
		return &ir.JumpInstr{Target: blockFor[t.Target]}
	case *ir.CondJumpInstr:
		return &ir.CondJumpInstr{Cond: remap(t.Cond), True: blockFor[t.True], False: blockFor[t.False]}
	case *ir.RetInstr:
		return &ir.RetInstr{Value: remap(t.Value)}
	}
	panic("inline: unhandled terminator kind in clone")
}
