package isel

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/riscv"
)

func TestScheduleKeepsTerminatorLast(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	r1 := rf.NewVReg(false)
	r2 := rf.NewVReg(false)
	b.Instrs = []riscv.Instr{
		&riscv.LiInstr{Rd: r1, Imm: 1},
		&riscv.LiInstr{Rd: r2, Imm: 2},
		&riscv.RTriInstr{Op: riscv.Add, Rd: r1, Rs1: r1, Rs2: r2},
		&riscv.RetInstr{},
	}

	Schedule(rf)

	if _, ok := b.Instrs[len(b.Instrs)-1].(*riscv.RetInstr); !ok {
		t.Fatal("expected the terminator to remain the last instruction after scheduling")
	}
	if len(b.Instrs) != 4 {
		t.Fatalf("expected scheduling to preserve instruction count, got %d", len(b.Instrs))
	}
}

func TestScheduleRespectsDependencies(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	r1 := rf.NewVReg(false)
	r2 := rf.NewVReg(false)
	r3 := rf.NewVReg(false)
	// r2 = r1 + r1; r3 = r2 + r2 -- a true dependency chain that must not be
	// reordered regardless of the scheduler's tie-break heuristic.
	b.Instrs = []riscv.Instr{
		&riscv.LiInstr{Rd: r1, Imm: 5},
		&riscv.RTriInstr{Op: riscv.Add, Rd: r2, Rs1: r1, Rs2: r1},
		&riscv.RTriInstr{Op: riscv.Add, Rd: r3, Rs1: r2, Rs2: r2},
		&riscv.RetInstr{},
	}

	Schedule(rf)

	pos := map[riscv.Value]int{}
	for n, inst := range b.Instrs {
		if w := inst.Writes(); len(w) == 1 {
			pos[w[0]] = n
		}
	}
	if pos[r1] >= pos[r2] || pos[r2] >= pos[r3] {
		t.Fatal("scheduling must preserve the def-use dependency order")
	}
}
