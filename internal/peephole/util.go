// Package peephole runs the late, post-instruction-selection cleanups
// described in the backend's final pipeline stage: useless-instruction
// removal, compare+branch fusion, shift-add fusion, `la` splitting, and a
// stateless recent-value cache. Every pass but the cache (Early) operates
// directly on internal/riscv.Function before internal/regalloc ever sees
// it; StatelessCache runs in Late, after allocation. Early passes see
// operands that are a mix of still-virtual temporaries and the handful of
// physical registers instruction selection already fixed (call argument
// registers, the frame-pointer base of a MemInstr).
package peephole

import "github.com/rrvm-project/sysycc/internal/riscv"

// key identifies one operand's storage identity across Kind: a virtual
// register keeps its own id, a physical register is folded into a
// disjoint negative range so the two namespaces never collide in a
// single liveness/use-count map.
type key int

func valueKey(v riscv.Value) (key, bool) {
	switch v.Kind {
	case riscv.VTemp:
		return key(v.VReg), true
	case riscv.VPhysical:
		return key(-int(v.PReg) - 1), true
	default:
		return 0, false
	}
}

func classKeys(vs []riscv.Value) []key {
	var out []key
	for _, v := range vs {
		if k, ok := valueKey(v); ok {
			out = append(out, k)
		}
	}
	return out
}

func blockSuccessors(b *riscv.Block) []*riscv.Block {
	var out []*riscv.Block
	for _, inst := range b.Instrs {
		switch v := inst.(type) {
		case *riscv.BranInstr:
			out = append(out, v.Target)
		case *riscv.JInstr:
			out = append(out, v.Target)
		}
	}
	return out
}

// computeLiveOut runs the same backward fixed point internal/regalloc
// uses, but over every operand identity at once (no register-class
// split, since these passes run before allocation assigns classes to
// colors).
func computeLiveOut(rf *riscv.Function) map[*riscv.Block]map[key]bool {
	liveIn := map[*riscv.Block]map[key]bool{}
	liveOut := map[*riscv.Block]map[key]bool{}
	succs := map[*riscv.Block][]*riscv.Block{}
	for _, b := range rf.Blocks {
		liveIn[b] = map[key]bool{}
		liveOut[b] = map[key]bool{}
		succs[b] = blockSuccessors(b)
	}

	changed := true
	for changed {
		changed = false
		for n := len(rf.Blocks) - 1; n >= 0; n-- {
			b := rf.Blocks[n]
			out := map[key]bool{}
			for _, s := range succs[b] {
				for v := range liveIn[s] {
					out[v] = true
				}
			}
			in := map[key]bool{}
			for v := range out {
				in[v] = true
			}
			for i := len(b.Instrs) - 1; i >= 0; i-- {
				for _, w := range classKeys(b.Instrs[i].Writes()) {
					delete(in, w)
				}
				for _, r := range classKeys(b.Instrs[i].Reads()) {
					in[r] = true
				}
			}
			if !keySetEqual(in, liveIn[b]) || !keySetEqual(out, liveOut[b]) {
				liveIn[b] = in
				liveOut[b] = out
				changed = true
			}
		}
	}
	return liveOut
}

func keySetEqual(a, b map[key]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// countReads tallies every read of every operand across the whole
// function, used by passes that only fire when a producer has exactly
// one consumer left (shift-add and branch-combine's "single use" tests).
func countReads(rf *riscv.Function) map[key]int {
	counts := map[key]int{}
	for _, inst := range rf.AllInstrs() {
		for _, k := range classKeys(inst.Reads()) {
			counts[k]++
		}
	}
	return counts
}

func hasSideEffect(inst riscv.Instr) bool {
	switch inst.(type) {
	case *riscv.CallInstr, *riscv.RetInstr, *riscv.BranInstr, *riscv.JInstr:
		return true
	}
	if m, ok := inst.(*riscv.MemInstr); ok {
		return m.Store
	}
	return false
}
