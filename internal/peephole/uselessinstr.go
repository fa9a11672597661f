package peephole

import "github.com/rrvm-project/sysycc/internal/riscv"

// UselessInstr drops every instruction whose single defined value is dead
// on exit from its block (and anywhere else downstream, since LiveOut
// already accounts for successors) and which has no side effect worth
// keeping for its own sake. Iterated to a fixed point: removing one dead
// definition can retire the reads that kept an earlier one alive.
// Grounded on internal/regalloc's own buildGraph backward scan for the
// liveness shape; the "drop if write never read again" rule itself has
// no direct original_source counterpart (that compiler leaves dead-code
// elimination to an earlier mid-end pass), so this is a late safety net
// over whatever instruction selection or the other peepholes leave
// behind.
func UselessInstr(rf *riscv.Function) {
	for {
		if !uselessInstrPass(rf) {
			return
		}
	}
}

func uselessInstrPass(rf *riscv.Function) bool {
	liveOut := computeLiveOut(rf)
	changed := false
	for _, b := range rf.Blocks {
		live := map[key]bool{}
		for k := range liveOut[b] {
			live[k] = true
		}
		var out []riscv.Instr
		for n := len(b.Instrs) - 1; n >= 0; n-- {
			inst := b.Instrs[n]
			writes := inst.Writes()
			if !hasSideEffect(inst) && len(writes) == 1 {
				if k, ok := valueKey(writes[0]); ok && !live[k] {
					changed = true
					continue
				}
			}
			for _, w := range classKeys(writes) {
				delete(live, w)
			}
			for _, r := range classKeys(inst.Reads()) {
				live[r] = true
			}
			out = append(out, inst)
		}
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		b.Instrs = out
	}
	return changed
}
