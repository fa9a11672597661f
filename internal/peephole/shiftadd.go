package peephole

import "github.com/rrvm-project/sysycc/internal/riscv"

// ShiftAdd fuses `slli rd, x, k` (k in 1..3) followed somewhere later by
// an add that reads rd, into Zba's sh{1,2,3}add, provided rd has exactly
// one read left in the function -- the shift's only consumer is the add
// being fused into. Grounded on original_source/backend/pre_optimizer/
// src/shift_add.rs, with one deliberate simplification: that file walks
// the dominator tree to find a shift's reaching add; here fusion only
// happens within one block, and a single whole-function use-count pass
// (countReads) requires the shift's rd to have exactly one read, so the
// add found later in the same block is that unique consumer without
// needing dominance at all.
func ShiftAdd(rf *riscv.Function) {
	uses := countReads(rf)
	for _, b := range rf.Blocks {
		b.Instrs = shiftAddBlock(b.Instrs, uses)
	}
}

func shiftAddBlock(instrs []riscv.Instr, uses map[key]int) []riscv.Instr {
	shifts := map[key]*riscv.ITriInstr{} // rd vreg -> its slli, pending fusion
	var out []riscv.Instr
	for _, inst := range instrs {
		if iti, ok := inst.(*riscv.ITriInstr); ok && iti.Op == riscv.Slli &&
			iti.Imm.Kind == riscv.VImm && iti.Imm.Imm >= 1 && iti.Imm.Imm <= 3 {
			if k, ok := valueKey(iti.Rd); ok && uses[k] == 1 {
				shifts[k] = iti
				out = append(out, inst)
				continue
			}
		}

		if add, ok := inst.(*riscv.RTriInstr); ok && add.Op == riscv.Add {
			if fused, consumed, ok := tryFuseShiftAdd(add, shifts); ok {
				out = dropLast(out, consumed)
				out = append(out, fused)
				continue
			}
		}
		out = append(out, inst)
	}
	return out
}

// tryFuseShiftAdd checks whether either of add's operands is the result
// of a pending single-use shift, preferring the left operand when both
// happen to qualify (this backend never emits that case, but the choice
// must be deterministic).
func tryFuseShiftAdd(add *riscv.RTriInstr, shifts map[key]*riscv.ITriInstr) (*riscv.RTriInstr, *riscv.ITriInstr, bool) {
	if k, ok := valueKey(add.Rs1); ok {
		if shift, pending := shifts[k]; pending {
			delete(shifts, k)
			return &riscv.RTriInstr{Op: shiftAddOp(shift.Imm.Imm), Rd: add.Rd, Rs1: shift.Rs1, Rs2: add.Rs2}, shift, true
		}
	}
	if k, ok := valueKey(add.Rs2); ok {
		if shift, pending := shifts[k]; pending {
			delete(shifts, k)
			return &riscv.RTriInstr{Op: shiftAddOp(shift.Imm.Imm), Rd: add.Rd, Rs1: shift.Rs1, Rs2: add.Rs1}, shift, true
		}
	}
	return nil, nil, false
}

func shiftAddOp(amount int32) riscv.RTriOp {
	switch amount {
	case 1:
		return riscv.Sh1add
	case 2:
		return riscv.Sh2add
	default:
		return riscv.Sh3add
	}
}

// dropLast removes the one instruction equal to consumed from the tail
// of out (the slli that is now dead, fused into the add that follows
// it); it is always within the last few entries since shiftAddBlock
// only tracks a shift pending fusion across the instructions between it
// and its single consuming add.
func dropLast(out []riscv.Instr, consumed *riscv.ITriInstr) []riscv.Instr {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] == riscv.Instr(consumed) {
			return append(out[:i], out[i+1:]...)
		}
	}
	return out
}
