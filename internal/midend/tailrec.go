package midend

import "github.com/rrvm-project/sysycc/internal/ir"

// TailRecursion rewrites direct self-tail-calls -- `return f(...)` in f
// itself -- into a loop back to the function's own entry, fed by one phi
// per parameter. This turns the common recursive SysY idiom
// (`int f(int n, int acc){ if(n==0) return acc; return f(n-1, acc*n); }`)
// into iteration, removing both the call overhead and the unbounded stack
// growth a naive recursive lowering would otherwise produce.
type TailRecursion struct{}

func (TailRecursion) Name() string { return "tail-recursion-elimination" }

func (TailRecursion) Run(prog *ir.Program, f *ir.Function) bool {
	oldEntry := f.Entry()
	if oldEntry == nil || len(f.Params) == 0 {
		return false
	}

	var sites []*ir.BasicBlock
	var calls []*ir.CallInstr
	for _, b := range f.Blocks {
		if call, ok := tailCallIn(b, f.Name); ok {
			sites = append(sites, b)
			calls = append(calls, call)
		}
	}
	if len(sites) == 0 {
		return false
	}

	newParams := make([]*ir.Value, len(f.Params))
	for n, p := range f.Params {
		newParams[n] = prog.Temps.NewNamedTemp(p.Value.Type, p.Name)
	}
	for n, p := range f.Params {
		replaceAllUses(f, p.Value, newParams[n])
	}

	newEntry := f.NewBlock(oldEntry.Label + ".tailrec.entry")
	f.Blocks = append([]*ir.BasicBlock{newEntry}, f.Blocks[:len(f.Blocks)-1]...)
	newEntry.Term = &ir.JumpInstr{Target: oldEntry}
	newEntry.AddSucc(oldEntry)

	sources := make([][]ir.PhiSource, len(f.Params))
	for n, p := range f.Params {
		sources[n] = append(sources[n], ir.PhiSource{Pred: newEntry, Value: p.Value})
	}

	for i, site := range sites {
		call := calls[i]
		site.Instrs = site.Instrs[:len(site.Instrs)-1]
		for n, arg := range call.Args {
			sources[n] = append(sources[n], ir.PhiSource{Pred: site, Value: arg})
		}
		site.Term = &ir.JumpInstr{Target: oldEntry}
		site.AddSucc(oldEntry)
	}

	for n := range f.Params {
		oldEntry.Phis = append(oldEntry.Phis, &ir.PhiInstr{
			Dst:     newParams[n],
			Block:   oldEntry,
			Sources: sources[n],
		})
	}

	return true
}

// tailCallIn reports whether b's final instruction is a self-call whose
// result is immediately returned unmodified (a void call followed by
// `ret void`, or `%r = call self(...)` followed by `ret %r`).
func tailCallIn(b *ir.BasicBlock, selfName string) (*ir.CallInstr, bool) {
	if len(b.Instrs) == 0 {
		return nil, false
	}
	call, ok := b.Instrs[len(b.Instrs)-1].(*ir.CallInstr)
	if !ok || call.Callee != selfName {
		return nil, false
	}
	ret, ok := b.Term.(*ir.RetInstr)
	if !ok {
		return nil, false
	}
	if call.Dst == nil {
		return call, ret.Value == nil
	}
	return call, ret.Value == call.Dst
}
