// Command sysycc compiles a SysY source file to RISC-V assembly.
//
// Usage: sysycc [flags] input-file
//
//	--parse       dump the parsed AST and stop
//	--llvm        dump the optimized SSA IR and stop
//	--riscv, -S   emit RISC-V assembly (the default terminal stage)
//	-o <path>     write output to path instead of stdout
//	-O {0,1,2}    optimization level (default 0)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/rrvm-project/sysycc/internal/cfg"
	"github.com/rrvm-project/sysycc/internal/config"
	"github.com/rrvm-project/sysycc/internal/emitter"
	"github.com/rrvm-project/sysycc/internal/errors"
	"github.com/rrvm-project/sysycc/internal/ir"
	"github.com/rrvm-project/sysycc/internal/isel"
	"github.com/rrvm-project/sysycc/internal/loopopt"
	"github.com/rrvm-project/sysycc/internal/midend"
	"github.com/rrvm-project/sysycc/internal/peephole"
	"github.com/rrvm-project/sysycc/internal/regalloc"

	"github.com/rrvm-project/sysycc/frontend/grammar"
	"github.com/rrvm-project/sysycc/frontend/irgen"
	"github.com/rrvm-project/sysycc/frontend/sema"
)

type cliFlags struct {
	input      string
	output     string
	optLevel   *int
	dumpParse  bool
	dumpLLVM   bool
	dumpRISCV  bool
}

func main() {
	// Diagnostics and status banners go through fatih/color; ANSI escapes
	// only make sense when stderr is an actual terminal, matching the
	// term.IsTerminal-gated coloring common in CLI tools like fzf/wazero.
	color.NoColor = !term.IsTerminal(int(os.Stderr.Fd()))

	flags, err := parseArgs(os.Args[1:])
	if err != nil {
		color.Red("%s", err)
		usage()
		os.Exit(2)
	}
	os.Exit(run(flags))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sysycc [--parse | --llvm | --riscv | -S] [-o path] [-O {0,1,2}] input-file")
}

// parseArgs hand-rolls flag parsing over os.Args rather than reaching
// for a flag-parsing library -- this CLI's flag set is small and fixed.
func parseArgs(args []string) (*cliFlags, error) {
	f := &cliFlags{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "--parse":
			f.dumpParse = true
		case "--llvm":
			f.dumpLLVM = true
		case "--riscv", "-S":
			f.dumpRISCV = true
		case "-o":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("-o requires a path argument")
			}
			f.output = args[i]
		case "-O":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("-O requires a level argument")
			}
			lvl, err := parseOptLevel(args[i])
			if err != nil {
				return nil, err
			}
			f.optLevel = &lvl
		default:
			if len(a) > 2 && a[:2] == "-O" {
				lvl, err := parseOptLevel(a[2:])
				if err != nil {
					return nil, err
				}
				f.optLevel = &lvl
				continue
			}
			if f.input != "" {
				return nil, fmt.Errorf("unexpected extra argument %q", a)
			}
			f.input = a
		}
	}
	if f.input == "" {
		return nil, fmt.Errorf("no input file given")
	}
	return f, nil
}

func parseOptLevel(s string) (int, error) {
	switch s {
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	case "2":
		return 2, nil
	default:
		return 0, fmt.Errorf("invalid optimization level %q", s)
	}
}

// run drives the pipeline end to end and returns the process exit code,
// so main itself stays a thin os.Exit wrapper.
func run(flags *cliFlags) int {
	file, err := config.Load(filepath.Dir(flags.input))
	if err != nil {
		color.Red("%s", err)
		return 1
	}
	cfgFlags := config.Flags{OptLevel: flags.optLevel, OutputPath: flags.output}
	resolved := config.Resolve(file, cfgFlags)
	resolved.Apply()

	source, err := os.ReadFile(flags.input)
	if err != nil {
		color.Red("failed to read %s: %s", flags.input, err)
		return 1
	}

	cu, err := grammar.ParseString(flags.input, string(source))
	if err != nil {
		// grammar.ParseString has already printed a caret-style diagnostic.
		return 1
	}
	tree := grammar.ToAST(cu)

	if flags.dumpParse {
		return writeOutput(resolved.OutputPath, dumpAST(tree))
	}

	info, diags := sema.Check(tree)
	if reportDiagnostics(flags.input, string(source), diags) {
		return 1
	}

	prog := irgen.Generate(tree, info)
	level := midend.Level(resolved.OptLevel)
	midend.Run(prog, level)
	if level >= midend.O2 {
		runLoopOpt(prog)
		midend.Run(prog, level)
	}

	if flags.dumpLLVM {
		return writeOutput(resolved.OutputPath, ir.Print(prog))
	}

	rprog := isel.SelectProgram(prog)
	for _, rf := range rprog.Funcs {
		if rf.External {
			continue
		}
		peephole.Early(rf)
		isel.Schedule(rf)
		regalloc.Allocate(rf)
		peephole.Late(rf)
	}

	return writeOutput(resolved.OutputPath, emitter.Emit(rprog))
}

// runLoopOpt drives internal/loopopt at O2, which internal/midend.Run
// never touches on its own: per function, to a fixed point, classify
// induction variables (LICM and strength reduction both read
// loop.IndVars), hoist invariants, reduce strength, and unroll small
// constant-trip loops. Loop transforms can change block structure, so
// the CFG is re-analyzed every round.
func runLoopOpt(prog *ir.Program) {
	licm := loopopt.LICM{}
	strength := loopopt.StrengthReduce{}
	unroll := loopopt.LoopUnroll{}
	for _, f := range prog.Funcs {
		if f.External {
			continue
		}
		for {
			cfg.Analyze(f)
			loopopt.ClassifyInductionVariables(f)
			changed := licm.Run(prog, f)
			changed = strength.Run(prog, f) || changed
			changed = unroll.Run(prog, f) || changed
			if !changed {
				break
			}
		}
	}
}

// reportDiagnostics formats every diagnostic sema.Check returned and
// reports whether any of them was Error-level, fatal to proceeding past
// semantic analysis.
func reportDiagnostics(filename, source string, diags []errors.CompilerError) bool {
	if len(diags) == 0 {
		return false
	}
	reporter := errors.NewErrorReporter(filename, source)
	fatal := false
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, reporter.FormatError(d))
		if d.Level == errors.Error {
			fatal = true
		}
	}
	return fatal
}

func writeOutput(path, content string) int {
	if path == "" {
		fmt.Println(content)
		return 0
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
		color.Red("failed to write %s: %s", path, err)
		return 1
	}
	return 0
}
