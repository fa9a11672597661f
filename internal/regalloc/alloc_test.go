package regalloc

import (
	"testing"

	"github.com/rrvm-project/sysycc/internal/riscv"
)

// buildManyLiveInts builds one block that computes n independent integer
// vregs from a shared base (so none is a plain `li` a spill could
// rematerialize for free) and only then sums them in a chain of adds,
// forcing all n into one interference clique while no single instruction
// reads more than two of them.
func buildManyLiveInts(n int) *riscv.Function {
	rf := riscv.NewFunction("stress")
	b := rf.NewBlock("entry")
	base := rf.NewVReg(false)
	b.Instrs = append(b.Instrs, &riscv.LiInstr{Rd: base, Imm: 1})
	var vregs []riscv.Value
	for i := 0; i < n; i++ {
		v := rf.NewVReg(false)
		b.Instrs = append(b.Instrs, &riscv.RTriInstr{Op: riscv.Add, Rd: v, Rs1: base, Rs2: base})
		vregs = append(vregs, v)
	}
	acc := vregs[0]
	for _, v := range vregs[1:] {
		next := rf.NewVReg(false)
		b.Instrs = append(b.Instrs, &riscv.RTriInstr{Op: riscv.Add, Rd: next, Rs1: acc, Rs2: v})
		acc = next
	}
	b.Instrs = append(b.Instrs, &riscv.CallInstr{Symbol: "sink", Args: []riscv.Value{acc}})
	b.Instrs = append(b.Instrs, &riscv.RetInstr{})
	return rf
}

func TestAllocateColorsWithinBudget(t *testing.T) {
	rf := buildManyLiveInts(len(riscv.Allocable) - 3)
	Allocate(rf)

	for _, inst := range rf.Blocks[0].Instrs {
		for _, v := range inst.Reads() {
			if v.Kind == riscv.VTemp {
				t.Fatalf("left an unallocated vreg behind: %v", v)
			}
		}
		for _, v := range inst.Writes() {
			if v.Kind == riscv.VTemp {
				t.Fatalf("left an unallocated vreg behind: %v", v)
			}
		}
	}
}

func TestAllocateSpillsUnderPressure(t *testing.T) {
	rf := buildManyLiveInts(len(riscv.Allocable) + 10)
	Allocate(rf)

	var sawSpillLoad bool
	for _, inst := range rf.Blocks[0].Instrs {
		for _, v := range inst.Reads() {
			if v.Kind == riscv.VTemp {
				t.Fatalf("left an unallocated vreg behind: %v", v)
			}
		}
		for _, v := range inst.Writes() {
			if v.Kind == riscv.VTemp {
				t.Fatalf("left an unallocated vreg behind: %v", v)
			}
		}
		if mem, ok := inst.(*riscv.MemInstr); ok && !mem.Store {
			sawSpillLoad = true
		}
	}
	if !sawSpillLoad {
		t.Fatalf("expected register pressure to force at least one spill load")
	}
	if rf.FrameSize%16 != 0 {
		t.Fatalf("FrameSize not 16-aligned after allocation: %d", rf.FrameSize)
	}
}

func TestAllocateCoalescesPlainMove(t *testing.T) {
	rf := riscv.NewFunction("movechain")
	b := rf.NewBlock("entry")
	a := rf.NewVReg(false)
	c := rf.NewVReg(false)
	b.Instrs = append(b.Instrs,
		&riscv.LiInstr{Rd: a, Imm: 7},
		&riscv.MvInstr{Rd: c, Rs: a},
		&riscv.CallInstr{Symbol: "sink", Args: []riscv.Value{c}},
		&riscv.RetInstr{},
	)
	Allocate(rf)

	mv := b.Instrs[1].(*riscv.MvInstr)
	if mv.Rd.Kind != riscv.VPhysical || mv.Rs.Kind != riscv.VPhysical {
		t.Fatalf("move operands not colored: %+v", mv)
	}
	if mv.Rd.PReg != mv.Rs.PReg {
		t.Fatalf("a coalescable move was left with distinct colors: %s vs %s", mv.Rd, mv.Rs)
	}
}
