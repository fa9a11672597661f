package peephole

import "github.com/rrvm-project/sysycc/internal/riscv"

// recentCacheSize bounds how many recently-computed expressions
// StatelessCache remembers at once: "stateless" in the sense that
// nothing survives past this fixed window, so the pass never needs to
// reason about a value's full liveness the way the allocator does --
// it only ever forgets, never needs an explicit invalidation horizon
// beyond falling off the end of the window.
const recentCacheSize = 8

// exprKey identifies a pure, side-effect-free computation by its
// operator and operand registers after allocation -- equal keys on two
// instructions mean they compute the same value provided neither
// operand was redefined in between.
type exprKey struct {
	op       int
	rs1, rs2 riscv.Value
}

// StatelessCache runs after internal/regalloc has assigned physical
// registers: within each block it keeps a small rolling window of
// recently-computed pure expressions, and rewrites a later instruction
// that recomputes one already in the window into a plain register move
// instead. Grounded on this backend's own spec for the late peephole
// stage (there is no original_source counterpart -- the Rust compiler's
// equivalent GVN runs before register allocation on SSA values, where
// two equal expressions are already the same vreg by construction; once
// physical registers are reused across many vregs that invariant is
// gone, so this pass re-establishes a cheap, bounded version of it at
// the assembly level instead).
func StatelessCache(rf *riscv.Function) {
	for _, b := range rf.Blocks {
		b.Instrs = statelessCacheBlock(b.Instrs)
	}
}

func statelessCacheBlock(instrs []riscv.Instr) []riscv.Instr {
	var window []exprKey
	latest := map[exprKey]riscv.Value{}

	invalidate := func(reg riscv.Value) {
		for i := 0; i < len(window); {
			k := window[i]
			if sameReg(k.rs1, reg) || sameReg(k.rs2, reg) || sameReg(latest[k], reg) {
				window = append(window[:i], window[i+1:]...)
				delete(latest, k)
				continue
			}
			i++
		}
	}
	remember := func(k exprKey, rd riscv.Value) {
		window = append(window, k)
		latest[k] = rd
		if len(window) > recentCacheSize {
			delete(latest, window[0])
			window = window[1:]
		}
	}

	var out []riscv.Instr
	for _, inst := range instrs {
		if k, rd, ok := pureExprKey(inst); ok {
			if prior, hit := latest[k]; hit {
				out = append(out, &riscv.MvInstr{Rd: rd, Rs: prior})
				invalidate(rd)
				continue
			}
			out = append(out, inst)
			for _, w := range inst.Writes() {
				invalidate(w)
			}
			if !sameReg(k.rs1, rd) && !sameReg(k.rs2, rd) {
				remember(k, rd) // rd overwrote an operand: the key no longer holds
			}
			continue
		}

		out = append(out, inst)
		for _, w := range inst.Writes() {
			invalidate(w)
		}
	}
	return out
}

func sameReg(a, b riscv.Value) bool {
	return a.Kind == riscv.VPhysical && b.Kind == riscv.VPhysical && a.PReg == b.PReg
}

// pureExprKey reports the canonical key for inst if it is a
// side-effect-free, purely register-to-register computation worth
// caching; RTriInstr and ITriInstr both qualify, everything else (loads,
// calls, branches, li/la) does not since either they may observe
// mutable state or their "operands" are constants already cheap to
// reissue.
func pureExprKey(inst riscv.Instr) (exprKey, riscv.Value, bool) {
	switch i := inst.(type) {
	case *riscv.RTriInstr:
		return exprKey{op: 1000 + int(i.Op), rs1: i.Rs1, rs2: i.Rs2}, i.Rd, true
	case *riscv.ITriInstr:
		return exprKey{op: 2000 + int(i.Op), rs1: i.Rs1, rs2: i.Imm}, i.Rd, true
	default:
		return exprKey{}, riscv.Value{}, false
	}
}
