package peephole

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/riscv"
)

func TestStatelessCacheReplacesRecomputation(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	a := riscv.NewPhysical(riscv.A0)
	bb := riscv.NewPhysical(riscv.A1)
	first := riscv.NewPhysical(riscv.T0)
	second := riscv.NewPhysical(riscv.T1)
	b.Instrs = append(b.Instrs,
		&riscv.RTriInstr{Op: riscv.Add, Rd: first, Rs1: a, Rs2: bb},
		&riscv.RTriInstr{Op: riscv.Add, Rd: second, Rs1: a, Rs2: bb},
		&riscv.RetInstr{},
	)

	StatelessCache(rf)

	if len(b.Instrs) != 3 {
		t.Fatalf("recomputation should be replaced in place, not removed: %v", b.Instrs)
	}
	mv, ok := b.Instrs[1].(*riscv.MvInstr)
	if !ok || mv.Rs.PReg != riscv.T0 || mv.Rd.PReg != riscv.T1 {
		t.Fatalf("expected the second add rewritten to a copy of the first's result, got %v", b.Instrs[1])
	}
}

func TestStatelessCacheInvalidatesOnOperandRedefinition(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	a := riscv.NewPhysical(riscv.A0)
	bb := riscv.NewPhysical(riscv.A1)
	first := riscv.NewPhysical(riscv.T0)
	second := riscv.NewPhysical(riscv.T1)
	b.Instrs = append(b.Instrs,
		&riscv.RTriInstr{Op: riscv.Add, Rd: first, Rs1: a, Rs2: bb},
		&riscv.LiInstr{Rd: a, Imm: 9}, // redefines a, invalidating the cached add
		&riscv.RTriInstr{Op: riscv.Add, Rd: second, Rs1: a, Rs2: bb},
		&riscv.RetInstr{},
	)

	StatelessCache(rf)

	if _, ok := b.Instrs[2].(*riscv.MvInstr); ok {
		t.Fatalf("a's redefinition should have invalidated the cached expression: %v", b.Instrs)
	}
}
