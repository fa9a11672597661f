// Package irgen lowers a checked frontend/ast tree into internal/ir's
// SSA-form IR, driving internal/ir.Builder's sealed-block variable-stack
// construction (Braun et al.) rather than re-implementing phi placement:
// this package only decides, at each AST node, which block to write into
// and which source variable name to read or write.
package irgen

import (
	"fmt"

	"github.com/rrvm-project/sysycc/frontend/ast"
	"github.com/rrvm-project/sysycc/frontend/sema"
	"github.com/rrvm-project/sysycc/internal/ir"
)

// varSlot is what the generator tracks per declared name: either a scalar
// (read/written through internal/ir.Builder's variable-stack SSA
// construction, under a uniquified SSA name so nested-scope shadowing
// never collides in the builder's flat name-keyed tables) or an array
// (addressed through memory -- a local alloca, a parameter's already-a-
// pointer value, or a global rematerialized at every access).
type varSlot struct {
	Type    ast.Type
	IsArray bool
	Dims    []int // resolved dimensions, in source order; -1 for a param's unknown first dim

	// Scalar representation.
	SSAName  string
	IsConst  bool
	ConstVal sema.ConstValue

	// Array representation.
	Addr       *ir.Value // non-nil: a local alloca result or a parameter's pointer value
	GlobalName string    // non-empty: a global array, address rematerialized per access
}

type genScope struct {
	parent *genScope
	vars   map[string]*varSlot
}

func newGenScope(parent *genScope) *genScope {
	return &genScope{parent: parent, vars: map[string]*varSlot{}}
}

func (s *genScope) declare(name string, slot *varSlot) {
	s.vars[name] = slot
}

func (s *genScope) lookup(name string) *varSlot {
	for cur := s; cur != nil; cur = cur.parent {
		if slot, ok := cur.vars[name]; ok {
			return slot
		}
	}
	return nil
}

// Generator holds the state of one whole-program lowering pass.
type Generator struct {
	prog *ir.Program
	b    *ir.Builder
	info *sema.Info

	global *genScope
	cur    *genScope

	nextSSA int

	// curRet is the return type of the function currently being lowered,
	// consulted by ReturnStmt lowering to convert the returned value.
	curRet ir.Type

	// Loop exit/continuation targets, innermost last, for break/continue.
	breakTargets    []*ir.BasicBlock
	continueTargets []*ir.BasicBlock
}

// Generate lowers an entire checked compilation unit into a fresh
// ir.Program: globals first (so every function body can reference them),
// then every function definition, plus a stub ir.Function entry per
// runtime-linkage name so internal/midend and internal/isel see them as
// External and skip trying to select a body for them.
func Generate(cu *ast.CompUnit, info *sema.Info) *ir.Program {
	prog := ir.NewProgram()
	g := &Generator{
		prog:   prog,
		b:      ir.NewBuilder(prog),
		info:   info,
		global: newGenScope(nil),
	}
	g.cur = g.global

	for i := range cu.Decls {
		g.lowerGlobalDecl(&cu.Decls[i])
	}
	for name := range ir.RuntimeLinkage {
		prog.Funcs = append(prog.Funcs, &ir.Function{Name: name, ReturnType: externalReturnType(info, name), External: true})
	}
	for _, fn := range cu.Funcs {
		g.lowerFuncDef(fn)
	}
	return prog
}

func externalReturnType(info *sema.Info, name string) ir.Type {
	if sig, ok := info.Funcs[name]; ok {
		return irType(sig.ReturnType)
	}
	return ir.VoidType{}
}

func irType(t ast.Type) ir.Type {
	switch t {
	case ast.Float:
		return ir.F32Type{}
	case ast.Void:
		return ir.VoidType{}
	default:
		return ir.I32Type{}
	}
}

func (g *Generator) uniqueSSAName(name string) string {
	g.nextSSA++
	return fmt.Sprintf("%s.%d", name, g.nextSSA)
}

func dimsProduct(dims []int) int {
	total := 1
	for _, d := range dims {
		total *= d
	}
	return total
}

// lowerGlobalDecl declares a module-level variable: a scalar gets folded
// directly into the generator's scope as a compile-time constant (const)
// or a real ir.GlobalVar (non-const, still initialized with the constant
// image frontend/sema folded, since SysY requires global initializers to
// be constant expressions); an array always gets a real ir.GlobalVar,
// const or not, since its elements are still addressed at runtime.
func (g *Generator) lowerGlobalDecl(d *ast.Decl) {
	info := g.info.Decls[d]
	slot := &varSlot{Type: d.Type, IsArray: len(d.Dims) > 0, Dims: info.Dims}

	if !slot.IsArray {
		if d.Const && info.ConstVal != nil {
			slot.IsConst = true
			slot.ConstVal = *info.ConstVal
			g.cur.declare(d.Name, slot)
			return
		}
		var item ir.InitItem
		if info.ConstVal != nil {
			item = scalarInitItem(*info.ConstVal, d.Type)
		} else {
			item = ir.InitItem{IsZero: true, Zero: 4}
		}
		g.prog.AddGlobal(&ir.GlobalVar{
			Name: d.Name,
			Elem: irType(d.Type),
			Len:  1,
			Init: []ir.InitItem{item},
		})
		slot.GlobalName = d.Name
		g.cur.declare(d.Name, slot)
		return
	}

	total := dimsProduct(info.Dims)
	items := make([]ir.InitItem, 0, total)
	for _, v := range info.FoldedArray {
		items = append(items, scalarInitItem(v, d.Type))
	}
	for len(items) < total {
		items = append(items, ir.InitItem{IsZero: true, Zero: 4})
	}
	g.prog.AddGlobal(&ir.GlobalVar{Name: d.Name, Elem: irType(d.Type), Len: total, Init: items})
	slot.GlobalName = d.Name
	g.cur.declare(d.Name, slot)
}

// scalarInitItem builds one word-sized initializer item, using a Zero
// item (rather than a literal Word of 0) for an all-bits-zero value so
// internal/ir.Program.AddGlobal's zero-run coalescing can still place a
// global that merely happens to initialize to zero into .sbss.
func scalarInitItem(v sema.ConstValue, t ast.Type) ir.InitItem {
	bits := constBits(v, t)
	if bits == 0 {
		return ir.InitItem{IsZero: true, Zero: 4}
	}
	return ir.InitItem{Word: bits}
}

func constBits(v sema.ConstValue, t ast.Type) uint32 {
	if t == ast.Float {
		return float32Bits(v.AsFloat())
	}
	return uint32(v.AsInt())
}
