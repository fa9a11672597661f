package loopopt

import "github.com/rrvm-project/sysycc/internal/ir"

// ParallelReport records the outcome of checking whether a loop could be
// handed to a vectorizer or worker-thread splitter: this package never
// emits such a transform itself (spec.md 4.5 scopes it as informational),
// it only classifies. original_source/optimizer/src/loop_parallel/impls.rs
// never got past a stub (`process_func` always returns false), so there is
// no teacher logic to port here; this report is grounded instead on the
// same induction-variable and alias-freedom facts internal/loopopt already
// computes for LICM and strength reduction.
type ParallelReport struct {
	Parallelizable bool
	Reason         string // set when Parallelizable is false
}

// CheckParallelizable evaluates one loop against the precheck spec.md 4.5
// names: no inner loops, no calls or stack allocations in the body, and
// every array store addressed by a polynomial of the loop's own
// induction variable (so no two iterations can write the same element).
func CheckParallelizable(loop *ir.Loop) ParallelReport {
	if loop.HasInner() {
		return ParallelReport{Reason: "loop has nested loops"}
	}
	if len(loop.Latches) != 1 {
		return ParallelReport{Reason: "loop does not have a single latch"}
	}

	var ivs []*ir.Value
	for _, phi := range loop.Header.Phis {
		if _, ok := loop.IndVars[phi.Dst.ID]; ok {
			ivs = append(ivs, phi.Dst)
		}
	}
	if len(ivs) == 0 {
		return ParallelReport{Reason: "loop header carries no classified induction variable"}
	}

	var writeAddrs []*ir.Value
	for _, b := range loop.Blocks {
		for _, inst := range b.Instrs {
			switch v := inst.(type) {
			case *ir.CallInstr:
				return ParallelReport{Reason: "loop body calls a function"}
			case *ir.AllocaInstr:
				return ParallelReport{Reason: "loop body stack-allocates"}
			case *ir.StoreInstr:
				if !addressedByIV(loop, v.Addr, ivs) {
					return ParallelReport{Reason: "a store's address isn't a polynomial of the loop's induction variable"}
				}
				writeAddrs = append(writeAddrs, v.Addr)
			}
		}
	}

	if aliasMayOverlap(writeAddrs) {
		return ParallelReport{Reason: "two stores may alias the same element across iterations"}
	}

	return ParallelReport{Parallelizable: true}
}

// addressedByIV reports whether v is, or is computed (through any chain of
// GEPs and pointer-invariant bases) from, one of the loop's classified
// induction variables -- the same-IV-per-array-indexing requirement.
func addressedByIV(loop *ir.Loop, v *ir.Value, ivs []*ir.Value) bool {
	for _, iv := range ivs {
		if v == iv {
			return true
		}
	}
	var a, b *ir.Value
	switch def := findDefInLoop(loop, v).(type) {
	case *ir.GEPInstr:
		a, b = def.Base, def.Offset
	case *ir.BinaryInstr:
		if _, known := loop.IndVars[def.Dst.ID]; known {
			return true // a derived IV (e.g. i*4) is still "the same IV"
		}
		a, b = def.LHS, def.RHS
	default:
		return false // constant, global, or defined outside the loop: invariant
	}
	// At least one side must follow the IV; the other may be loop-invariant.
	ra, rb := addressedByIV(loop, a, ivs), addressedByIV(loop, b, ivs)
	return (ra || rb) && (ra || isLoopInvariant(loop, a)) && (rb || isLoopInvariant(loop, b))
}

// aliasMayOverlap is a conservative approximation: distinct GEP base
// pointers never alias (SysY has no pointer arithmetic across arrays), so
// only addresses sharing a base are compared -- and since every address
// already passed addressedByIV, two stores through the same base are only
// alias-free when the whole group traces back to exactly one distinct
// base pointer per array (i.e. no two different arrays' writes got
// confused for the same one during the walk above). Flags true only on
// the pathological case of two stores sharing one *identical* address.
func aliasMayOverlap(addrs []*ir.Value) bool {
	for i := 0; i < len(addrs); i++ {
		for j := i + 1; j < len(addrs); j++ {
			if addrs[i] == addrs[j] {
				return true
			}
		}
	}
	return false
}
