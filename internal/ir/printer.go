package ir

import (
	"fmt"
	"strings"
)

// Printer renders a Program as a readable SSA IR dump -- the output of the
// `--llvm` CLI flag. The format is internal to this toolchain; it is not
// required to round-trip through any external IR reader.
type Printer struct {
	indent int
	output strings.Builder
}

func NewPrinter() *Printer {
	return &Printer{}
}

// Print returns the textual dump of an entire program.
func Print(program *Program) string {
	p := NewPrinter()
	p.printProgram(program)
	return p.output.String()
}

// PrintFunc returns the textual dump of a single function, used by pass
// tests that want to assert on one function's shape without the whole
// program.
func PrintFunc(f *Function) string {
	p := NewPrinter()
	p.printFunction(f)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printProgram(program *Program) {
	for _, g := range program.Globals {
		p.printGlobal(g)
	}
	if len(program.Globals) > 0 {
		p.writeLine("")
	}
	for n, f := range program.Funcs {
		p.printFunction(f)
		if n != len(program.Funcs)-1 {
			p.writeLine("")
		}
	}
}

func (p *Printer) printGlobal(g *GlobalVar) {
	kind := "data"
	if g.IsBSS() {
		kind = "bss"
	}
	p.writeLine("global @%s %s[%d] (%s, %d bytes)", g.Name, g.Elem, g.Len, kind, g.SizeBytes())
}

func (p *Printer) printFunction(f *Function) {
	var params []string
	for _, param := range f.Params {
		params = append(params, fmt.Sprintf("%s %s", param.Value.Type, param.Name))
	}
	if f.External {
		p.writeLine("declare %s @%s(%s)", f.ReturnType, f.Name, strings.Join(params, ", "))
		return
	}
	p.writeLine("func %s @%s(%s) {", f.ReturnType, f.Name, strings.Join(params, ", "))
	p.indent++
	for _, b := range f.Blocks {
		p.printBlock(b)
	}
	p.indent--
	p.writeLine("}")
}

func (p *Printer) printBlock(b *BasicBlock) {
	p.writeIndent()
	p.output.WriteString(b.Label)
	p.output.WriteString(":\n")
	p.indent++
	for _, phi := range b.Phis {
		p.writeLine("%s", phi.String())
	}
	for _, inst := range b.Instrs {
		p.writeLine("%s", inst.String())
	}
	if b.Term != nil {
		p.writeLine("%s", b.Term.String())
	} else {
		p.writeLine("<missing terminator>")
	}
	p.indent--
}
