package ir

// This file tracks the purity and pointer-argument load/store effects of
// the runtime-linkage functions named in spec.md Sec. 6, and the
// "not-pure" set a function joins transitively when it calls one of them.
// Dead-code elimination (internal/midend) and LICM (internal/loopopt)
// consult this to decide whether a call -- or a function that reaches one -- can be
// treated as a barrier.

// RuntimeLinkage lists the external names resolved at link time. None of
// them have a body in this Program; all are impure.
var RuntimeLinkage = map[string]bool{
	"getint": true, "getch": true, "getfloat": true,
	"getarray": true, "getfarray": true,
	"putint": true, "putch": true, "putfloat": true,
	"putarray": true, "putfarray": true, "putf": true,
	"_sysy_starttime": true, "_sysy_stoptime": true,
}

// PointerEffect describes how a runtime-linkage call touches the pointer
// argument at the given index: loaders read through it, storers write
// through it.
type PointerEffect struct {
	ArgIndex int
	Store    bool // true: stores through the pointer, false: loads through it
}

// runtimePointerEffects gives the pointer-argument effect for the calls
// spec.md Sec. 6 singles out: getarray/getfarray store through arg 0;
// putarray/putfarray/putf load through arg 1 (putf loads through arg 0, the
// format string).
var runtimePointerEffects = map[string][]PointerEffect{
	"getarray":  {{ArgIndex: 0, Store: true}},
	"getfarray": {{ArgIndex: 0, Store: true}},
	"putarray":  {{ArgIndex: 1, Store: false}},
	"putfarray": {{ArgIndex: 1, Store: false}},
	"putf":      {{ArgIndex: 0, Store: false}},
}

// PointerEffectsOf returns the pointer load/store effects of a call to
// name, if it is one of the runtime-linkage functions that touches a
// pointer argument.
func PointerEffectsOf(name string) []PointerEffect {
	return runtimePointerEffects[name]
}

// PurityInfo records, per function, whether it is known pure: has no calls
// to impure functions (directly or transitively) and performs no store.
type PurityInfo struct {
	NotPure map[string]bool
}

// AnalyzePurity computes the not-pure set: runtime-linkage names, plus any
// function that stores to memory, calls an impure function, or whose
// callee cannot be resolved (external/unknown). The analysis iterates to a
// fixed point since purity is a transitive, mutually recursive property of
// the call graph.
func AnalyzePurity(prog *Program) *PurityInfo {
	notPure := map[string]bool{}
	for name := range RuntimeLinkage {
		notPure[name] = true
	}
	for _, f := range prog.Funcs {
		if f.External {
			notPure[f.Name] = true
		}
		for _, b := range f.Blocks {
			for _, inst := range b.Instrs {
				if call, ok := inst.(*CallInstr); ok && prog.FuncByName(call.Callee) == nil {
					notPure[call.Callee] = true
				}
			}
		}
	}

	changed := true
	for changed {
		changed = false
		for _, f := range prog.Funcs {
			if notPure[f.Name] {
				continue
			}
			if functionHasSideEffect(f, notPure) {
				notPure[f.Name] = true
				changed = true
			}
		}
	}

	return &PurityInfo{NotPure: notPure}
}

func functionHasSideEffect(f *Function, notPure map[string]bool) bool {
	for _, b := range f.Blocks {
		for _, inst := range b.Instrs {
			switch v := inst.(type) {
			case *StoreInstr:
				return true
			case *CallInstr:
				if notPure[v.Callee] {
					return true
				}
			}
		}
	}
	return false
}

// IsPure reports whether the named function is known pure.
func (p *PurityInfo) IsPure(name string) bool {
	return !p.NotPure[name]
}
