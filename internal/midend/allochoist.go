package midend

import "github.com/rrvm-project/sysycc/internal/ir"

// AllocHoist moves every AllocaInstr found outside the entry block up into
// it, in encounter order, ahead of the entry's own instructions. A stack
// slot allocated inside a conditional or loop body is otherwise allocated
// more than once per call or skipped entirely depending on control flow;
// hoisting makes every local variable's frame slot exist for the whole
// call, which both internal/regalloc's static frame layout and dominance
// (an alloca must dominate every load/store of its slot) require.
type AllocHoist struct{}

func (AllocHoist) Name() string { return "alloc-hoisting" }

func (AllocHoist) Run(prog *ir.Program, f *ir.Function) bool {
	entry := f.Entry()
	if entry == nil || len(f.Blocks) < 2 {
		return false
	}

	var hoisted []ir.Instruction
	for _, b := range f.Blocks[1:] {
		out := b.Instrs[:0]
		for _, inst := range b.Instrs {
			if _, ok := inst.(*ir.AllocaInstr); ok {
				hoisted = append(hoisted, inst)
				continue
			}
			out = append(out, inst)
		}
		b.Instrs = out
	}
	if len(hoisted) == 0 {
		return false
	}
	entry.Instrs = append(hoisted, entry.Instrs...)
	return true
}
