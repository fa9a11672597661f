package midend

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/ir"
)

func TestGlobalizeLocalArraysRewritesMain(t *testing.T) {
	prog := ir.NewProgram()
	main := ir.NewFunction("main", ir.I32Type{}, nil)
	b := main.NewBlock("entry")

	arr := prog.Temps.NewNamedTemp(ir.PointerType{Elem: ir.I32Type{}}, "arr")
	alloc := &ir.AllocaInstr{Dst: arr, ElemType: ir.I32Type{}, NumElems: 8}
	b.Instrs = append(b.Instrs, alloc, &ir.StoreInstr{Addr: arr, Value: ir.ConstI32(1)})
	b.Term = &ir.RetInstr{Value: ir.ConstI32(0)}
	prog.Funcs = append(prog.Funcs, main)

	if !GlobalizeLocalArrays(prog) {
		t.Fatal("expected the 8-element local array to be globalized")
	}
	if len(prog.Globals) != 1 {
		t.Fatalf("expected one new global, got %d", len(prog.Globals))
	}
	g := prog.Globals[0]
	if g.Len != 8 || !g.IsBSS() {
		t.Fatalf("expected an 8-element zero-initialized global, got %+v", g)
	}

	for _, inst := range b.Instrs {
		if _, ok := inst.(*ir.AllocaInstr); ok {
			t.Fatal("expected the alloca to be removed after globalization")
		}
	}
	store := b.Instrs[0].(*ir.StoreInstr)
	if !store.Addr.Global {
		t.Fatalf("expected the store's address to now be the global's address, got %v", store.Addr)
	}
}

func TestGlobalizeLocalArraysSkipsScalarsAndNonMain(t *testing.T) {
	prog := ir.NewProgram()
	main := ir.NewFunction("main", ir.I32Type{}, nil)
	b := main.NewBlock("entry")
	scalar := prog.Temps.NewTemp(ir.PointerType{Elem: ir.I32Type{}})
	b.Instrs = append(b.Instrs, &ir.AllocaInstr{Dst: scalar, ElemType: ir.I32Type{}, NumElems: 1})
	b.Term = &ir.RetInstr{Value: ir.ConstI32(0)}
	prog.Funcs = append(prog.Funcs, main)

	helper := ir.NewFunction("helper", ir.I32Type{}, nil)
	hb := helper.NewBlock("entry")
	arr := prog.Temps.NewTemp(ir.PointerType{Elem: ir.I32Type{}})
	hb.Instrs = append(hb.Instrs, &ir.AllocaInstr{Dst: arr, ElemType: ir.I32Type{}, NumElems: 16})
	hb.Term = &ir.RetInstr{Value: ir.ConstI32(0)}
	prog.Funcs = append(prog.Funcs, helper)

	if GlobalizeLocalArrays(prog) {
		t.Fatal("a single-element alloca in main and an array in a non-main function should both be left alone")
	}
	if len(prog.Globals) != 0 {
		t.Fatalf("expected no new globals, got %d", len(prog.Globals))
	}
}
