package peephole

import (
	"fmt"

	"github.com/rrvm-project/sysycc/internal/riscv"
)

// LaSplit rewrites every LaInstr into its RISC-V relocation pair: an
// AuipcInstr carrying the local %pcrel_hi label, plus either an
// AddiLoInstr (when the address must be fully materialized because it
// feeds something other than a plain load/store) or, when every
// remaining use is a zero-offset MemInstr through this register, the
// %pcrel_lo is folded directly into each such access's own Reloc field
// and no AddiLoInstr is emitted at all. Only performed when the split
// register does not live out of its own block, so the relocation pair
// always stays local -- splitting one that crosses a branch would need
// the label (and thus the whole pair) duplicated on every path.
// Grounded on original_source/backend/pre_optimizer/src/la_reduce.rs;
// that file's further fold of %pcrel_lo into an already-offset access
// (`base+imm` loads, not just `base+0`) is not carried over here, since
// doing so would require preserving the symbol's displacement alongside
// riscv.MemInstr.Offset, which the instruction selector never produces
// for a globally-addressed access in the first place (see DESIGN.md).
func LaSplit(rf *riscv.Function) {
	label := 0
	liveOut := computeLiveOut(rf)
	for _, b := range rf.Blocks {
		live := liveOut[b]
		b.Instrs = laSplitBlock(b.Instrs, live, &label)
	}
}

func laSplitBlock(instrs []riscv.Instr, liveOut map[key]bool, label *int) []riscv.Instr {
	var out []riscv.Instr
	for n := 0; n < len(instrs); n++ {
		la, ok := instrs[n].(*riscv.LaInstr)
		if !ok {
			out = append(out, instrs[n])
			continue
		}
		k, ok := valueKey(la.Rd)
		if !ok || liveOut[k] {
			out = append(out, instrs[n])
			continue
		}

		lbl := fmt.Sprintf(".Lpcrel_hi%d", *label)
		*label++
		out = append(out, &riscv.AuipcInstr{Rd: la.Rd, Symbol: la.Symbol, Label: lbl})

		rest := instrs[n+1:]
		if foldableMemUses(rest, k) {
			for _, inst := range rest {
				if m, ok := inst.(*riscv.MemInstr); ok {
					if bk, ok := valueKey(m.Base); ok && bk == k && m.Offset == 0 {
						m.Reloc = lbl
					}
				}
			}
		} else {
			out = append(out, &riscv.AddiLoInstr{Rd: la.Rd, Rs1: la.Rd, Label: lbl})
		}
	}
	return out
}

// foldableMemUses reports whether every remaining read of k in rest is a
// zero-offset MemInstr base -- the shape that can absorb %pcrel_lo
// directly instead of needing a materializing addi.
func foldableMemUses(rest []riscv.Instr, k key) bool {
	found := false
	for _, inst := range rest {
		for _, r := range inst.Reads() {
			rk, ok := valueKey(r)
			if !ok || rk != k {
				continue
			}
			m, isMem := inst.(*riscv.MemInstr)
			if !isMem {
				return false
			}
			bk, _ := valueKey(m.Base)
			if bk != k || m.Offset != 0 {
				return false
			}
			if m.Store {
				if vk, ok := valueKey(m.Value); ok && vk == k {
					return false
				}
			}
			found = true
		}
	}
	return found
}
