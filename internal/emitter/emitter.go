// Package emitter serializes a fully allocated internal/riscv.Program
// into RISC-V assembly text: the conventional toolchain header, per-
// function prologue/epilogue framing around each instruction stream,
// and the global-data `.sbss`/`.sdata` split. It is the last stage of
// the pipeline, run once internal/peephole's post-allocation pass has
// finished. Grounded on internal/ir/printer.go's Printer shape (a
// strings.Builder plus writeLine/write helpers) adapted from a debug
// pretty-printer into a real text-assembly serializer.
package emitter

import (
	"fmt"
	"strings"

	"github.com/rrvm-project/sysycc/internal/riscv"
)

// frameReserve is the fixed space every function's frame carries beyond
// internal/regalloc's locals-and-spills FrameSize, for the saved return
// address and caller's frame pointer -- placed at the lowest addresses
// of the frame (below every local/spill offset isel and regalloc baked
// in as negative, FP-relative offsets), so it can never collide with
// them regardless of how large FrameSize grows.
const frameReserve = 16

// Printer serializes one riscv.Program to assembly text.
type Printer struct {
	output strings.Builder
	label  int // monotonic counter for the L_n local-label renumbering
}

// Emit returns prog's assembly text. It mutates every riscv.Block.Label
// in prog to the compact L_n scheme as a side effect (Emit is meant to
// run exactly once, at the end of the pipeline).
func Emit(prog *riscv.Program) string {
	p := &Printer{}
	p.renumberLabels(prog)
	p.header()
	p.globals(prog)
	p.text(prog)
	return p.output.String()
}

func (p *Printer) write(format string, args ...interface{}) {
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

// renumberLabels walks every function's blocks in emission order and
// replaces its Label with a compact "L_n" name, monotonic across the
// whole program so two functions' blocks never collide in one assembly
// file.
func (p *Printer) renumberLabels(prog *riscv.Program) {
	for _, f := range prog.Funcs {
		for _, b := range f.Blocks {
			b.Label = fmt.Sprintf("L_%d", p.label)
			p.label++
		}
	}
}

func (p *Printer) header() {
	p.write(".option nopic")
	p.write(".attribute unaligned_access, 0")
	p.write(".attribute stack_align, 16")
	p.write(`.ident "SYSYC: sysycc compiler 1.0.0"`)
}

// globals partitions every GlobalVar into .sbss (zero-initialized, or
// simply uninitialized) and .sdata (everything else), per SPEC_FULL.md's
// emitter section.
func (p *Printer) globals(prog *riscv.Program) {
	var bss, data []*riscv.GlobalVar
	for _, g := range prog.Globals {
		if g.BSS {
			bss = append(bss, g)
		} else {
			data = append(data, g)
		}
	}

	if len(bss) > 0 {
		p.write(".sbss")
		for _, g := range bss {
			p.write(".globl %s", g.Name)
			p.write(".align 2")
			p.write("%s:", g.Name)
			p.write(".zero %d", g.Size)
		}
		p.write("")
	}

	if len(data) > 0 {
		p.write(".sdata")
		for _, g := range data {
			p.write(".globl %s", g.Name)
			p.write(".align 2")
			p.write("%s:", g.Name)
			for _, word := range g.Init {
				p.write(".word %d", int32(word))
			}
		}
		p.write("")
	}
}

func (p *Printer) text(prog *riscv.Program) {
	p.write(".text")
	p.write(".globl main")
	for _, f := range prog.Funcs {
		if f.External {
			continue
		}
		p.function(f)
	}
}

func (p *Printer) function(f *riscv.Function) {
	totalFrame := int32(align16(int32(f.FrameSize) + frameReserve))

	p.write(".align 1")
	p.write(".type %s, @function", f.Name)
	p.write("%s:", f.Name)

	p.write("\taddi sp, sp, %d", -totalFrame)
	p.write("\tsd ra, 8(sp)")
	p.write("\tsd fp, 0(sp)")
	p.write("\taddi fp, sp, %d", totalFrame)

	for _, b := range f.Blocks {
		p.write("%s:", b.Label)
		for _, inst := range b.Instrs {
			p.instr(inst, totalFrame)
		}
	}

	p.write(".size %s, .-%s", f.Name, f.Name)
	p.write("")
}

// instr prints one lowered instruction. Every riscv.Instr already
// stringifies to valid assembly syntax via its own String method except
// CallInstr (whose String carries a debug argument list, not real call
// syntax) and RetInstr (a bare epilogue marker that expands here into
// the frame teardown this function's prologue set up).
func (p *Printer) instr(inst riscv.Instr, totalFrame int32) {
	switch v := inst.(type) {
	case *riscv.CallInstr:
		p.write("\tcall %s", v.Symbol)
	case *riscv.RetInstr:
		p.write("\tld ra, 8(sp)")
		p.write("\tld fp, 0(sp)")
		p.write("\taddi sp, sp, %d", totalFrame)
		p.write("\tret")
	case *riscv.AuipcInstr:
		// AuipcInstr.String already renders its own label line followed by
		// an indented auipc line -- adding another leading tab here would
		// indent the label too.
		p.write("%s", v.String())
	default:
		p.write("\t%s", inst.String())
	}
}

func align16(n int32) int32 { return (n + 15) &^ 15 }
