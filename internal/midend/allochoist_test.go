package midend

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/ir"
)

func TestAllocHoistMovesAllocaToEntry(t *testing.T) {
	f := ir.NewFunction("f", ir.I32Type{}, nil)
	entry := f.NewBlock("entry")
	body := f.NewBlock("body")
	entry.Term = &ir.JumpInstr{Target: body}
	entry.AddSucc(body)

	prog := ir.NewProgram()
	prog.Funcs = append(prog.Funcs, f)

	addr := prog.Temps.NewTemp(ir.PointerType{Elem: ir.I32Type{}})
	alloc := &ir.AllocaInstr{Dst: addr, ElemType: ir.I32Type{}, NumElems: 1}
	store := &ir.StoreInstr{Addr: addr, Value: ir.ConstI32(9)}
	body.Instrs = append(body.Instrs, alloc, store)
	body.Term = &ir.RetInstr{Value: ir.ConstI32(0)}

	if !(AllocHoist{}).Run(prog, f) {
		t.Fatal("expected the non-entry alloca to be hoisted")
	}
	if len(entry.Instrs) != 1 {
		t.Fatalf("expected the alloca to land in the entry block, got %v", entry.Instrs)
	}
	if _, ok := entry.Instrs[0].(*ir.AllocaInstr); !ok {
		t.Fatalf("expected entry's sole instruction to be the alloca, got %T", entry.Instrs[0])
	}
	if len(body.Instrs) != 1 {
		t.Fatalf("expected the store alone to remain in body, got %v", body.Instrs)
	}
}

func TestAllocHoistNoOpWhenAlreadyAtEntry(t *testing.T) {
	f, b := straightLineFunc()
	prog := ir.NewProgram()
	prog.Funcs = append(prog.Funcs, f)

	addr := prog.Temps.NewTemp(ir.PointerType{Elem: ir.I32Type{}})
	b.Instrs = append(b.Instrs, &ir.AllocaInstr{Dst: addr, ElemType: ir.I32Type{}, NumElems: 1})

	if (AllocHoist{}).Run(prog, f) {
		t.Fatal("a function with only one block has nothing to hoist")
	}
}
