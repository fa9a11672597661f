package regalloc

import "github.com/rrvm-project/sysycc/internal/riscv"

// ConstSpillWeightRatio scales down a known-constant vreg's effective
// spill cost relative to an ordinary one: rematerializing a `li` at each
// use is far cheaper than a stack round-trip (no load, no frame slot), so
// the allocator should much prefer spilling these first. Grounded on
// original_source/backend/register/src/spill.rs's own special case for a
// temp with a recorded ConstInfo (it skips the stack slot and re-expands
// `load_imm` at each use instead of emitting a load). Exported as a var,
// not a const, so internal/config's CONSTANT_SPILL_WEIGHT_RATIO knob can
// override the default before Allocate runs.
var ConstSpillWeightRatio = 20.0

// constOrigin records how to rematerialize a virtual register that was
// defined by a single `li` (never reassigned), keyed by vreg id.
type constOrigin struct {
	imm int32
}

// findRematerializable scans every block once for vregs whose only
// definition is an LiInstr, so spilling one of them can skip the stack
// entirely.
func findRematerializable(rf *riscv.Function) map[int]constOrigin {
	origin := map[int]constOrigin{}
	multiplyDefined := map[int]bool{}
	for _, b := range rf.Blocks {
		for _, inst := range b.Instrs {
			for _, w := range inst.Writes() {
				if w.Kind != riscv.VTemp {
					continue
				}
				if li, ok := inst.(*riscv.LiInstr); ok {
					if _, seen := origin[w.VReg]; seen {
						multiplyDefined[w.VReg] = true
						continue
					}
					origin[w.VReg] = constOrigin{imm: li.Imm}
				} else {
					multiplyDefined[w.VReg] = true
				}
			}
		}
	}
	for v := range multiplyDefined {
		delete(origin, v)
	}
	return origin
}
