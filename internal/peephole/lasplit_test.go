package peephole

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/riscv"
)

func TestLaSplitFoldsIntoSingleLoad(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	addr := rf.NewVReg(false)
	dst := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.LaInstr{Rd: addr, Symbol: "g"},
		&riscv.MemInstr{Store: false, Value: dst, Base: addr, Offset: 0},
		&riscv.RetInstr{},
	)

	LaSplit(rf)

	if len(b.Instrs) != 3 {
		t.Fatalf("expected auipc + load + ret, no separate addi: %v", b.Instrs)
	}
	auipc, ok := b.Instrs[0].(*riscv.AuipcInstr)
	if !ok {
		t.Fatalf("expected a leading AuipcInstr, got %v", b.Instrs[0])
	}
	mem, ok := b.Instrs[1].(*riscv.MemInstr)
	if !ok || mem.Reloc != auipc.Label {
		t.Fatalf("load should carry the auipc's label as its reloc, got %v", b.Instrs[1])
	}
}

func TestLaSplitMaterializesWhenUsedBeyondMemory(t *testing.T) {
	rf := riscv.NewFunction("f")
	b := rf.NewBlock("entry")
	addr := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.LaInstr{Rd: addr, Symbol: "g"},
		&riscv.CallInstr{Symbol: "sink", Args: []riscv.Value{addr}},
		&riscv.RetInstr{},
	)

	LaSplit(rf)

	if len(b.Instrs) != 4 {
		t.Fatalf("expected auipc + addi + call + ret: %v", b.Instrs)
	}
	if _, ok := b.Instrs[1].(*riscv.AddiLoInstr); !ok {
		t.Fatalf("a non-memory use requires a materializing addi, got %v", b.Instrs[1])
	}
}

func TestLaSplitSkipsWhenLiveOutOfBlock(t *testing.T) {
	rf := riscv.NewFunction("f")
	entry := rf.NewBlock("entry")
	next := rf.NewBlock("next")
	addr := rf.NewVReg(false)
	entry.Instrs = append(entry.Instrs,
		&riscv.LaInstr{Rd: addr, Symbol: "g"},
		&riscv.JInstr{Target: next},
	)
	dst := rf.NewVReg(false)
	next.Instrs = append(next.Instrs,
		&riscv.MemInstr{Store: false, Value: dst, Base: addr, Offset: 0},
		&riscv.RetInstr{},
	)

	LaSplit(rf)

	if _, ok := entry.Instrs[0].(*riscv.LaInstr); !ok {
		t.Fatalf("a register live past the block boundary must not be split, got %v", entry.Instrs[0])
	}
}
