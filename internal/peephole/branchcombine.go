package peephole

import "github.com/rrvm-project/sysycc/internal/riscv"

// BranchCombine fuses a compare immediately followed by a zero-test
// branch on that compare's own result into a single native compound
// branch, dropping the now-dead compare. Only fires when every value the
// matched pattern produces has no reads beyond the pattern's own internal
// consumers and the branch -- the same "not live out" condition the
// original expresses as a liveness check, simplified here to a global use
// count since this pass runs directly after instruction selection, before
// scheduling can separate the pair. Grounded on original_source/backend/
// transform/src/branch_combine.rs's four recognized shapes, matched
// against the exact sequences internal/isel/select.go's lowerCompare
// emits -- including the reused-dst shape lowerCompare actually produces
// for its two-instruction forms (see internalPairReads).
func BranchCombine(rf *riscv.Function) {
	uses := countReads(rf)
	for _, b := range rf.Blocks {
		b.Instrs = branchCombineBlock(b.Instrs, uses)
	}
}

func branchCombineBlock(instrs []riscv.Instr, uses map[key]int) []riscv.Instr {
	var out []riscv.Instr
	for n := 0; n < len(instrs); n++ {
		bran, ok := instrs[n].(*riscv.BranInstr)
		if !ok || (bran.Op != riscv.Bne && bran.Op != riscv.Beq) || !isZero(bran.Rs2) {
			out = append(out, instrs[n])
			continue
		}
		if _, ok := valueKey(bran.Rs1); !ok {
			out = append(out, instrs[n])
			continue
		}

		if len(out) >= 1 {
			if fused, ok := matchOneInstr(out[len(out)-1], bran, uses); ok {
				out = out[:len(out)-1]
				out = append(out, fused)
				continue
			}
		}
		if len(out) >= 2 {
			if fused, ok := matchTwoInstr(out[len(out)-2], out[len(out)-1], bran, uses); ok {
				out = out[:len(out)-2]
				out = append(out, fused)
				continue
			}
		}
		out = append(out, instrs[n])
	}
	return out
}

// onlyInternalReads reports whether every key in want is read exactly as
// many times as the pattern itself accounts for, with no other read
// reaching in from outside the matched instructions. want's values are
// additive: when two pattern positions turn out to share the same vreg
// (as internal/isel/select.go's lowerCompare does for its two-instruction
// equality/inequality/negated-less-than shapes, reusing one dst across
// both instructions), their contributions must be summed before calling
// this rather than checked independently, since the global count can't
// tell the two apart.
func onlyInternalReads(uses map[key]int, want map[key]int) bool {
	for k, n := range want {
		if uses[k] != n {
			return false
		}
	}
	return true
}

func isZero(v riscv.Value) bool {
	return v.Kind == riscv.VPhysical && v.PReg == riscv.X0
}

func sameTemp(a, b riscv.Value) bool {
	return a.Kind == riscv.VTemp && b.Kind == riscv.VTemp && a.VReg == b.VReg
}

// matchOneInstr covers the single-compare shape: `slt cond, a, b` then
// `bne cond, zero, target` (cond true -> a<b) becomes `blt a, b, target`;
// the Beq-on-zero mirror (cond false -> a>=b) becomes `bge a, b, target`.
func matchOneInstr(prev riscv.Instr, bran *riscv.BranInstr, uses map[key]int) (riscv.Instr, bool) {
	slt, ok := prev.(*riscv.RTriInstr)
	if !ok || slt.Op != riscv.Slt || !sameTemp(slt.Rd, bran.Rs1) {
		return nil, false
	}
	condKey, ok := valueKey(slt.Rd)
	if !ok || !onlyInternalReads(uses, map[key]int{condKey: 1}) {
		return nil, false
	}
	op := riscv.Blt
	if bran.Op == riscv.Beq {
		op = riscv.Bge
	}
	return &riscv.BranInstr{Op: op, Rs1: slt.Rs1, Rs2: slt.Rs2, Target: bran.Target}, true
}

// matchTwoInstr covers the two-instruction equality/inequality and
// negated-less-than shapes lowerCompare emits for `==`, `!=`, and `>=`
// operators built from an intermediate xor/slt.
func matchTwoInstr(first, second riscv.Instr, bran *riscv.BranInstr, uses map[key]int) (riscv.Instr, bool) {
	xor, firstIsXor := first.(*riscv.RTriInstr)
	if firstIsXor && xor.Op == riscv.Xor {
		if iti, ok := second.(*riscv.ITriInstr); ok && iti.Op == riscv.Sltiu &&
			iti.Imm.Kind == riscv.VImm && iti.Imm.Imm == 1 &&
			sameTemp(iti.Rs1, xor.Rd) && sameTemp(iti.Rd, bran.Rs1) {
			if !internalPairReads(uses, xor.Rd, iti.Rd) {
				return nil, false
			}
			// xor+sltiu 1 tests for equality (cond = a==b); bnez -> beq, beqz -> bne
			op := riscv.Beq
			if bran.Op == riscv.Beq {
				op = riscv.Bne
			}
			return &riscv.BranInstr{Op: op, Rs1: xor.Rs1, Rs2: xor.Rs2, Target: bran.Target}, true
		}
		if rti, ok := second.(*riscv.RTriInstr); ok && rti.Op == riscv.Sltu &&
			isZero(rti.Rs1) && sameTemp(rti.Rs2, xor.Rd) && sameTemp(rti.Rd, bran.Rs1) {
			if !internalPairReads(uses, xor.Rd, rti.Rd) {
				return nil, false
			}
			// xor+sltu(zero,.) tests for inequality (cond = a!=b); bnez -> bne, beqz -> beq
			op := riscv.Bne
			if bran.Op == riscv.Beq {
				op = riscv.Beq
			}
			return &riscv.BranInstr{Op: op, Rs1: xor.Rs1, Rs2: xor.Rs2, Target: bran.Target}, true
		}
		return nil, false
	}

	slt, firstIsSlt := first.(*riscv.RTriInstr)
	if !firstIsSlt || slt.Op != riscv.Slt {
		return nil, false
	}
	iti, ok := second.(*riscv.ITriInstr)
	if !ok || iti.Op != riscv.Xori || iti.Imm.Kind != riscv.VImm || iti.Imm.Imm != 1 ||
		!sameTemp(iti.Rs1, slt.Rd) || !sameTemp(iti.Rd, bran.Rs1) {
		return nil, false
	}
	if !internalPairReads(uses, slt.Rd, iti.Rd) {
		return nil, false
	}
	// slt+xori 1 negates a<b into a>=b; bnez -> bge, beqz -> blt
	op := riscv.Bge
	if bran.Op == riscv.Beq {
		op = riscv.Blt
	}
	return &riscv.BranInstr{Op: op, Rs1: slt.Rs1, Rs2: slt.Rs2, Target: bran.Target}, true
}

// internalPairReads checks that the intermediate value (produced by the
// pattern's first instruction and consumed by its second) and the second
// instruction's own result (consumed by the branch) have no reads besides
// those two consumers. lowerCompare reuses one vreg for both positions, so
// the two contributions land on the same key and must be summed rather
// than checked independently.
func internalPairReads(uses map[key]int, intermediate, result riscv.Value) bool {
	interKey, ok := valueKey(intermediate)
	if !ok {
		return false
	}
	resultKey, ok := valueKey(result)
	if !ok {
		return false
	}
	want := map[key]int{}
	want[interKey]++ // read by the second instruction
	want[resultKey]++ // read by the branch
	return onlyInternalReads(uses, want)
}
