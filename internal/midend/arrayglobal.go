package midend

import (
	"fmt"

	"github.com/rrvm-project/sysycc/internal/ir"
)

// localArrayGlobalThreshold is a size > 4 bytes check: a single-element
// alloca is cheap enough to keep on the stack, but a real local array
// promoted to a static global skips a dynamic stack-frame allocation on
// every call to main.
const localArrayGlobalThreshold = 1 // NumElems, i.e. size > 4 bytes

// GlobalizeLocalArrays rewrites main's local array allocations into
// zero-initialized module-level globals, replacing every use of the
// alloca's pointer result with the global's address. Only main is
// eligible since it runs exactly once: turning a recursive function's
// local array into a global would alias separate call frames that must
// stay distinct.
func GlobalizeLocalArrays(prog *ir.Program) bool {
	main := prog.FuncByName("main")
	if main == nil {
		return false
	}
	changed := false
	for _, b := range main.Blocks {
		out := b.Instrs[:0]
		for _, inst := range b.Instrs {
			alloc, ok := inst.(*ir.AllocaInstr)
			if !ok || alloc.NumElems <= localArrayGlobalThreshold {
				out = append(out, inst)
				continue
			}
			name := fmt.Sprintf("__optimized_local_array_main_%s", alloc.Dst.Name)
			g := &ir.GlobalVar{
				Name: name,
				Elem: alloc.ElemType,
				Len:  alloc.NumElems,
				Init: []ir.InitItem{{IsZero: true, Zero: alloc.NumElems * 4}},
			}
			prog.AddGlobal(g)
			addr := prog.Temps.NewGlobalTemp(ir.PointerType{Elem: alloc.ElemType}, name)
			replaceAllUses(main, alloc.Dst, addr)
			changed = true
		}
		b.Instrs = out
	}
	return changed
}
