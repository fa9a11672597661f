// Package midend implements the function-local and whole-program
// optimization passes that run between SSA construction and instruction
// selection: dead/unreachable/useless code elimination, constant folding,
// local and global value numbering, useless-phi removal, inlining,
// tail-recursion rewriting, alloca hoisting, and local-array
// globalization. Passes are organized around a Pass interface plus a
// driver that runs a fixed level's passes to a fixed point.
package midend

import (
	"github.com/rrvm-project/sysycc/internal/cfg"
	"github.com/rrvm-project/sysycc/internal/ir"
)

// Pass is one optimization transform over a single function. Changed
// reports whether it modified the function, so the driver knows whether
// to keep iterating.
type Pass interface {
	Name() string
	Run(prog *ir.Program, f *ir.Function) bool
}

// Level selects which passes the driver runs, mirroring the CLI's -O
// flag.
type Level int

const (
	O0 Level = iota
	O1
	O2
)

// passesFor returns the pass list for a level. O0 runs only unreachable-code
// removal to a fixed point; O1 layers on the rest of cleanup plus value
// numbering; O2 adds inlining and tail-recursion rewriting, which change
// call-graph shape and are worth re-running the cheaper cleanup passes
// after.
func passesFor(level Level) []Pass {
	if level == O0 {
		return []Pass{&UnreachableCode{}}
	}

	cleanup := []Pass{
		&UnreachableCode{},
		&ConstantFold{},
		&UselessPhi{},
		&DeadCode{},
		&UselessCode{},
	}
	o1 := append([]Pass{}, cleanup...)
	o1 = append(o1, &LocalValueNumbering{}, &GlobalValueNumbering{}, &NumberCongruence{})
	if level == O1 {
		return o1
	}

	o2 := append([]Pass{}, o1...)
	o2 = append(o2, &Inline{}, &TailRecursion{}, &AllocHoist{})
	o2 = append(o2, cleanup...)
	return o2
}

// Run drives the mid-end: for every function, re-run the level's pass
// list to a fixed point (no pass reports a change), re-analyzing the CFG
// between rounds since passes may have added/removed/rerouted blocks.
// ArrayGlobalization runs once at the whole-program level afterward,
// since it rewrites `main`'s allocas into module globals and has no
// meaningful per-function fixed point of its own.
func Run(prog *ir.Program, level Level) {
	passes := passesFor(level)
	for _, f := range prog.Funcs {
		if f.External {
			continue
		}
		runToFixedPoint(prog, f, passes)
	}
	if level >= O2 {
		GlobalizeLocalArrays(prog)
		for _, f := range prog.Funcs {
			if !f.External {
				runToFixedPoint(prog, f, passes)
			}
		}
	}
}

func runToFixedPoint(prog *ir.Program, f *ir.Function, passes []Pass) {
	for {
		cfg.Analyze(f)
		changed := false
		for _, p := range passes {
			if p.Run(prog, f) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}
