package peephole

import "github.com/rrvm-project/sysycc/internal/riscv"

// Early runs every pre-allocation pass the driver must apply right after
// instruction selection, before internal/isel's scheduler is free to
// reorder instructions and disturb the adjacency branch-combine and
// shift-add rely on: dead-code cleanup, then the two fusions, then the
// `la` split (kept last among these so a fused branch or shift-add never
// has to account for a freshly inserted auipc/addi pair in its own
// adjacency check).
func Early(rf *riscv.Function) {
	UselessInstr(rf)
	BranchCombine(rf)
	ShiftAdd(rf)
	LaSplit(rf)
	UselessInstr(rf)
}

// Late runs the stateless recent-value cache once internal/regalloc has
// assigned physical registers, the only point at which two equal
// expressions can be recognized as literally the same computation
// rather than merely equal virtual registers.
func Late(rf *riscv.Function) {
	StatelessCache(rf)
}
