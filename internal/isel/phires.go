package isel

import "github.com/rrvm-project/sysycc/internal/ir"
import "github.com/rrvm-project/sysycc/internal/riscv"

// ResolvePhis destroys SSA form after instruction selection: every phi in
// s.f becomes, in each of its block's predecessors, a register move of
// that predecessor's incoming value into the phi's destination. Grounded
// on original_source/backend/transform/src/remove_phi.rs's per-
// predecessor use-counted worklist (emit moves with no outstanding reader
// first, freeing their source for the next move), generalized here to
// also break a genuine parallel-copy cycle (e.g. two phis that swap: a
// gets b's old value, b gets a's old value) with a scratch register, a
// case remove_phi.rs's worklist silently drops since its use-count never
// reaches zero for a cycle's members.
func ResolvePhis(s *selector) {
	for _, b := range s.f.Blocks {
		if len(b.Phis) == 0 {
			continue
		}
		for _, pred := range b.Preds {
			resolveOnePredecessor(s, b, pred)
		}
	}
}

type pendingCopy struct {
	dst riscv.Value
	src riscv.Value
}

func resolveOnePredecessor(s *selector, b, pred *ir.BasicBlock) {
	rb := s.blocks[pred]

	var copies []pendingCopy
	for _, phi := range b.Phis {
		src := phi.ValueFor(pred)
		dst := s.vregs[phi.Dst]
		copies = append(copies, pendingCopy{dst: dst, src: phiOperand(s, rb, src)})
	}

	readers := map[int]int{}
	for _, c := range copies {
		if c.src.Kind == riscv.VTemp {
			readers[c.src.VReg]++
		}
	}

	moves := predecessorMoves(s.rf, copies, readers)
	rb.Instrs = insertBeforeTerminator(rb.Instrs, moves)
}

// predecessorMoves runs the use-counted worklist, then breaks any
// remaining cycle (every copy still mutually blocked on another) by
// routing the first blocked copy's source through a scratch register.
func predecessorMoves(rf *riscv.Function, copies []pendingCopy, readers map[int]int) []riscv.Instr {
	pending := append([]pendingCopy(nil), copies...)
	var out []riscv.Instr

	emit := func(c pendingCopy) {
		out = append(out, &riscv.MvInstr{Rd: c.dst, Rs: c.src})
		if c.src.Kind == riscv.VTemp && readers[c.src.VReg] > 0 {
			readers[c.src.VReg]--
		}
	}

	ready := func() int {
		for n, c := range pending {
			if c.dst.Kind != riscv.VTemp || readers[c.dst.VReg] == 0 {
				return n
			}
		}
		return -1
	}

	for len(pending) > 0 {
		n := ready()
		if n == -1 {
			// A cycle: every remaining copy's destination is still some other
			// pending copy's source. Break it by stashing one source in a
			// scratch register first.
			scratch := rf.NewVReg(pending[0].src.Float)
			out = append(out, &riscv.MvInstr{Rd: scratch, Rs: pending[0].src})
			if pending[0].src.Kind == riscv.VTemp && readers[pending[0].src.VReg] > 0 {
				readers[pending[0].src.VReg]--
			}
			pending[0].src = scratch
			continue
		}
		emit(pending[n])
		pending = append(pending[:n], pending[n+1:]...)
	}
	return out
}

func insertBeforeTerminator(instrs []riscv.Instr, moves []riscv.Instr) []riscv.Instr {
	if len(instrs) == 0 {
		return moves
	}
	last := instrs[len(instrs)-1]
	switch last.(type) {
	case *riscv.JInstr, *riscv.BranInstr, *riscv.RetInstr:
		out := append([]riscv.Instr(nil), instrs[:len(instrs)-1]...)
		out = append(out, moves...)
		out = append(out, last)
		return out
	default:
		return append(instrs, moves...)
	}
}

// phiOperand resolves a phi source value to the riscv.Value carrying it,
// reusing the function's own selector so a literal or global flowing
// directly into a phi is materialized (li/la, or the float constant pool)
// exactly as it would be for any other operand.
func phiOperand(s *selector, rb *riscv.Block, v *ir.Value) riscv.Value {
	if !v.IsConst() && !v.Global {
		return s.vregs[v]
	}
	return s.operandReg(rb, v)
}
