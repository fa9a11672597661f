package irgen

import (
	"github.com/rrvm-project/sysycc/frontend/ast"
	"github.com/rrvm-project/sysycc/internal/ir"
)

// lowerFuncDef lowers one function definition: builds its parameter
// values up front (StartFunction's entry block is sealed immediately, so
// every Parameter.Value must already exist), binds each parameter into a
// fresh scope, lowers the body, and pads any path that falls off the end
// without a terminator.
func (g *Generator) lowerFuncDef(fn *ast.FuncDef) {
	retType := irType(fn.ReturnType)
	sig := g.info.Funcs[fn.Name]

	irParams := make([]*ir.Parameter, len(fn.Params))
	for i, p := range fn.Params {
		var t ir.Type = irType(p.Type)
		if p.IsArray {
			t = ir.PointerType{Elem: irType(p.Type)}
		}
		irParams[i] = &ir.Parameter{Name: p.Name, Value: g.prog.Temps.NewTemp(t)}
	}

	f := g.b.StartFunction(fn.Name, retType, irParams)
	entry := f.Entry()

	outer := g.cur
	outerRet := g.curRet
	g.cur = newGenScope(g.global)
	g.curRet = retType

	for i, p := range fn.Params {
		slot := &varSlot{Type: p.Type, IsArray: p.IsArray}
		if p.IsArray {
			slot.Addr = irParams[i].Value
			if sig != nil && i < len(sig.Params) {
				slot.Dims = append([]int{-1}, sig.Params[i].ExtraDims...)
			} else {
				slot.Dims = []int{-1}
			}
		} else {
			slot.SSAName = g.uniqueSSAName(p.Name)
			g.b.WriteVariable(slot.SSAName, entry, irParams[i].Value)
		}
		g.cur.declare(p.Name, slot)
	}

	g.lowerBlock(fn.Body)
	g.finishFunction(fn.ReturnType)

	g.cur = outer
	g.curRet = outerRet
}

// finishFunction terminates the current block with a default return if
// control can still fall through it -- a non-void function that actually
// falls off the end is undefined by the surface language, but the IR
// invariant that every block end in a terminator still has to hold.
func (g *Generator) finishFunction(ret ast.Type) {
	if g.b.Block.Term != nil {
		return
	}
	if ret == ast.Void {
		g.b.Terminate(&ir.RetInstr{})
		return
	}
	if ret == ast.Float {
		g.b.Terminate(&ir.RetInstr{Value: ir.ConstF32(0)})
		return
	}
	g.b.Terminate(&ir.RetInstr{Value: ir.ConstI32(0)})
}
