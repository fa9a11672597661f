package regalloc

import "github.com/rrvm-project/sysycc/internal/riscv"

// spiller tracks the stack slots already handed out to spilled virtual
// registers, so a vreg spilled again after a later round of coloring
// reuses the same slot rather than wasting frame space.
type spiller struct {
	rf     *riscv.Function
	slots  map[int]int32 // vreg id -> FP-relative offset
	origin map[int]constOrigin
}

func newSpiller(rf *riscv.Function) *spiller {
	return &spiller{rf: rf, slots: map[int]int32{}, origin: findRematerializable(rf)}
}

// slotFor allocates (or reuses) a stack slot below the function's locals,
// growing FrameSize -- spill slots only ever extend the frame select.go's
// alloca offsets already fixed, per select.go's own comment that later
// stages may only grow FrameSize.
func (s *spiller) slotFor(vreg int) int32 {
	if off, ok := s.slots[vreg]; ok {
		return off
	}
	s.rf.FrameSize += 4
	off := int32(-s.rf.FrameSize)
	s.slots[vreg] = off
	return off
}

// spill rewrites every read/write of a vreg in toSpill: a rematerializable
// constant gets a fresh `li` at each use and its original definition is
// dropped; anything else gets a load before each use and a store after
// its definition, through a dedicated stack slot. Grounded on
// original_source/backend/register/src/spill.rs's flat_map-over-
// instructions shape and its ConstInfo fast path.
func (s *spiller) spill(toSpill map[int]bool, float bool) {
	for _, b := range s.rf.Blocks {
		var out []riscv.Instr
		for _, inst := range b.Instrs {
			if _, isLi := inst.(*riscv.LiInstr); isLi {
				if w := inst.Writes(); len(w) == 1 && w[0].Kind == riscv.VTemp && toSpill[w[0].VReg] {
					if _, remat := s.origin[w[0].VReg]; remat {
						continue // dead: every use below rematerializes its own li
					}
				}
			}

			rewritten := map[int]riscv.Value{} // original vreg -> fresh value, reused for a repeated operand within this one instruction
			for _, r := range inst.Reads() {
				if r.Kind != riscv.VTemp || r.Float != float || !toSpill[r.VReg] {
					continue
				}
				if fresh, done := rewritten[r.VReg]; done {
					rewriteOperand(inst, r.VReg, fresh)
					continue
				}
				if c, ok := s.origin[r.VReg]; ok {
					fresh := s.rf.NewVReg(float)
					out = append(out, &riscv.LiInstr{Rd: fresh, Imm: c.imm})
					rewriteOperand(inst, r.VReg, fresh)
					rewritten[r.VReg] = fresh
					continue
				}
				fresh := s.rf.NewVReg(float)
				out = append(out, &riscv.MemInstr{Store: false, Float: float, Value: fresh, Base: riscv.NewPhysical(riscv.FP), Offset: s.slotFor(r.VReg)})
				rewriteOperand(inst, r.VReg, fresh)
				rewritten[r.VReg] = fresh
			}

			out = append(out, inst)

			for _, w := range inst.Writes() {
				if w.Kind != riscv.VTemp || w.Float != float || !toSpill[w.VReg] {
					continue
				}
				out = append(out, &riscv.MemInstr{Store: true, Float: float, Value: w, Base: riscv.NewPhysical(riscv.FP), Offset: s.slotFor(w.VReg)})
			}
		}
		b.Instrs = out
	}
}

// rewriteOperand replaces every read occurrence of the virtual register
// vreg with replacement within inst. riscv.Instr has no generic operand
// rewrite (SetReg is a vreg->physical rename, not vreg->vreg), so each
// instruction kind is handled directly.
func rewriteOperand(inst riscv.Instr, vreg int, replacement riscv.Value) {
	match := func(v riscv.Value) bool { return v.Kind == riscv.VTemp && v.VReg == vreg }
	switch i := inst.(type) {
	case *riscv.RTriInstr:
		if match(i.Rs1) {
			i.Rs1 = replacement
		}
		if match(i.Rs2) {
			i.Rs2 = replacement
		}
	case *riscv.ITriInstr:
		if match(i.Rs1) {
			i.Rs1 = replacement
		}
	case *riscv.BranInstr:
		if match(i.Rs1) {
			i.Rs1 = replacement
		}
		if match(i.Rs2) {
			i.Rs2 = replacement
		}
	case *riscv.MvInstr:
		if match(i.Rs) {
			i.Rs = replacement
		}
	case *riscv.ConvertInstr:
		if match(i.Rs) {
			i.Rs = replacement
		}
	case *riscv.MemInstr:
		if i.Store && match(i.Value) {
			i.Value = replacement
		}
		if match(i.Base) {
			i.Base = replacement
		}
	case *riscv.CallInstr:
		for n := range i.Args {
			if match(i.Args[n]) {
				i.Args[n] = replacement
			}
		}
	}
}
