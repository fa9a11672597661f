package irgen

import (
	"github.com/rrvm-project/sysycc/frontend/ast"
	"github.com/rrvm-project/sysycc/frontend/sema"
	"github.com/rrvm-project/sysycc/internal/ir"
)

// lowerExpr lowers e to the value it produces. An Ident or IndexExpr
// naming a whole array (or a row of one, via fewer indices than the
// array has dimensions) yields its address rather than a loaded scalar,
// which is exactly the representation a call site passing that array on
// needs -- no special-casing required at the call argument.
func (g *Generator) lowerExpr(e ast.Expr) *ir.Value {
	switch n := e.(type) {
	case *ast.IntLit:
		return ir.ConstI32(n.Value)
	case *ast.FloatLit:
		return ir.ConstF32(n.Value)
	case *ast.Ident:
		return g.lowerIdent(n)
	case *ast.IndexExpr:
		return g.lowerIndexValue(n)
	case *ast.UnaryExpr:
		return g.lowerUnary(n)
	case *ast.BinaryExpr:
		return g.lowerBinary(n)
	case *ast.CallExpr:
		return g.lowerCall(n)
	default:
		panic("irgen: unhandled expression node")
	}
}

func (g *Generator) lowerIdent(n *ast.Ident) *ir.Value {
	slot := g.cur.lookup(n.Name)
	if slot.IsConst {
		return constValue(slot.ConstVal, slot.Type)
	}
	if slot.IsArray {
		base, _ := g.arrayBase(slot)
		return base
	}
	return g.b.ReadVariable(slot.SSAName, g.b.Block, irType(slot.Type))
}

func (g *Generator) lowerIndexValue(n *ast.IndexExpr) *ir.Value {
	ident, indices := collectIndices(n)
	slot := g.cur.lookup(ident.Name)
	addr, elemType := g.indexAddr(slot, indices)
	if len(indices) < len(slot.Dims) {
		return addr
	}
	dst := g.b.NewTemp(elemType)
	g.b.Emit(&ir.LoadInstr{Dst: dst, Addr: addr})
	return dst
}

func (g *Generator) lowerUnary(n *ast.UnaryExpr) *ir.Value {
	switch n.Op {
	case "!":
		return g.lowerBoolValue(n)
	case "-":
		v := g.lowerExpr(n.X)
		if ir.IsFloat(v.Type) {
			dst := g.b.NewTemp(ir.F32Type{})
			g.b.Emit(&ir.BinaryInstr{Dst: dst, Op: ir.OpFSub, LHS: ir.ConstF32(0), RHS: v})
			return dst
		}
		dst := g.b.NewTemp(ir.I32Type{})
		g.b.Emit(&ir.BinaryInstr{Dst: dst, Op: ir.OpSub, LHS: ir.ConstI32(0), RHS: v})
		return dst
	default: // "+"
		return g.lowerExpr(n.X)
	}
}

func (g *Generator) lowerBinary(n *ast.BinaryExpr) *ir.Value {
	switch n.Op {
	case "&&", "||":
		return g.lowerBoolValue(n)
	}

	l := g.lowerExpr(n.Left)
	r := g.lowerExpr(n.Right)
	isFloat := ir.IsFloat(l.Type) || ir.IsFloat(r.Type)
	if isFloat {
		l = g.convertValueTo(l, ir.F32Type{})
		r = g.convertValueTo(r, ir.F32Type{})
	}

	switch n.Op {
	case "+", "-", "*", "/":
		resultType := ir.Type(ir.I32Type{})
		if isFloat {
			resultType = ir.F32Type{}
		}
		dst := g.b.NewTemp(resultType)
		g.b.Emit(&ir.BinaryInstr{Dst: dst, Op: arithOp(n.Op, isFloat), LHS: l, RHS: r})
		return dst
	case "%":
		dst := g.b.NewTemp(ir.I32Type{})
		g.b.Emit(&ir.BinaryInstr{Dst: dst, Op: ir.OpRem, LHS: l, RHS: r})
		return dst
	default: // comparisons
		dst := g.b.NewTemp(ir.I32Type{})
		g.b.Emit(&ir.CompareInstr{Dst: dst, Op: cmpOp(n.Op, isFloat), LHS: l, RHS: r})
		return dst
	}
}

// lowerCall lowers a call's arguments (an array-shaped argument already
// comes back as an address from lowerExpr's Ident/IndexExpr cases, so no
// special handling is needed here beyond an implicit scalar conversion)
// and emits the call itself.
func (g *Generator) lowerCall(n *ast.CallExpr) *ir.Value {
	sig := g.info.Funcs[n.Name]

	args := make([]*ir.Value, len(n.Args))
	argTypes := make([]ir.Type, len(n.Args))
	for i, a := range n.Args {
		v := g.lowerExpr(a)
		if sig != nil && i < len(sig.Params) && !sig.Params[i].IsArray {
			v = g.convertValueTo(v, irType(sig.Params[i].Type))
		}
		args[i] = v
		argTypes[i] = v.Type
	}

	var retType ir.Type = ir.VoidType{}
	if sig != nil {
		retType = irType(sig.ReturnType)
	}

	var dst *ir.Value
	if _, void := retType.(ir.VoidType); !void {
		dst = g.b.NewTemp(retType)
	}
	g.b.Emit(&ir.CallInstr{Dst: dst, Callee: n.Name, Args: args, ArgTypes: argTypes})
	return dst
}

// lowerCond lowers e directly into control flow, branching to trueBlk or
// falseBlk without ever materializing an intermediate 0/1 value -- && and
// || get genuine short-circuit evaluation this way, matching what a
// hand-written recursive-descent codegen does for conditions.
func (g *Generator) lowerCond(e ast.Expr, trueBlk, falseBlk *ir.BasicBlock) {
	switch n := e.(type) {
	case *ast.BinaryExpr:
		switch n.Op {
		case "&&":
			mid := g.b.NewBlock("and.rhs")
			g.lowerCond(n.Left, mid, falseBlk)
			g.b.SetBlock(mid)
			g.b.SealBlock(mid)
			g.lowerCond(n.Right, trueBlk, falseBlk)
			return
		case "||":
			mid := g.b.NewBlock("or.rhs")
			g.lowerCond(n.Left, trueBlk, mid)
			g.b.SetBlock(mid)
			g.b.SealBlock(mid)
			g.lowerCond(n.Right, trueBlk, falseBlk)
			return
		case "==", "!=", "<", "<=", ">", ">=":
			l := g.lowerExpr(n.Left)
			r := g.lowerExpr(n.Right)
			isFloat := ir.IsFloat(l.Type) || ir.IsFloat(r.Type)
			if isFloat {
				l = g.convertValueTo(l, ir.F32Type{})
				r = g.convertValueTo(r, ir.F32Type{})
			}
			dst := g.b.NewTemp(ir.I32Type{})
			g.b.Emit(&ir.CompareInstr{Dst: dst, Op: cmpOp(n.Op, isFloat), LHS: l, RHS: r})
			g.b.Terminate(&ir.CondJumpInstr{Cond: dst, True: trueBlk, False: falseBlk})
			return
		}
	case *ast.UnaryExpr:
		if n.Op == "!" {
			g.lowerCond(n.X, falseBlk, trueBlk)
			return
		}
	}
	cond := g.toBool01(g.lowerExpr(e))
	g.b.Terminate(&ir.CondJumpInstr{Cond: cond, True: trueBlk, False: falseBlk})
}

// lowerBoolValue materializes the result of a boolean expression as a
// plain 0/1 i32 value, for use outside a direct branch position (e.g.
// "int ok = a < b && c != 0;").
func (g *Generator) lowerBoolValue(e ast.Expr) *ir.Value {
	trueBlk := g.b.NewBlock("bool.true")
	falseBlk := g.b.NewBlock("bool.false")
	mergeBlk := g.b.NewBlock("bool.end")

	g.lowerCond(e, trueBlk, falseBlk)
	name := g.uniqueSSAName("bool")

	g.b.SetBlock(trueBlk)
	g.b.SealBlock(trueBlk)
	g.b.WriteVariable(name, trueBlk, ir.ConstI32(1))
	g.b.Terminate(&ir.JumpInstr{Target: mergeBlk})

	g.b.SetBlock(falseBlk)
	g.b.SealBlock(falseBlk)
	g.b.WriteVariable(name, falseBlk, ir.ConstI32(0))
	g.b.Terminate(&ir.JumpInstr{Target: mergeBlk})

	g.b.SetBlock(mergeBlk)
	g.b.SealBlock(mergeBlk)
	return g.b.ReadVariable(name, mergeBlk, ir.I32Type{})
}

func (g *Generator) toBool01(v *ir.Value) *ir.Value {
	dst := g.b.NewTemp(ir.I32Type{})
	if ir.IsFloat(v.Type) {
		g.b.Emit(&ir.CompareInstr{Dst: dst, Op: ir.CmpFNe, LHS: v, RHS: ir.ConstF32(0)})
	} else {
		g.b.Emit(&ir.CompareInstr{Dst: dst, Op: ir.CmpNe, LHS: v, RHS: ir.ConstI32(0)})
	}
	return dst
}

// convertValueTo inserts an i32<->f32 conversion if v isn't already of
// target's kind, implementing SysY's implicit int/float conversion at
// assignment, call-argument, and return sites.
func (g *Generator) convertValueTo(v *ir.Value, target ir.Type) *ir.Value {
	if ir.TypesEqual(v.Type, target) {
		return v
	}
	if ir.IsFloat(target) && ir.IsInt(v.Type) {
		dst := g.b.NewTemp(ir.F32Type{})
		g.b.Emit(&ir.ConvertInstr{Dst: dst, Src: v, ToFloat: true})
		return dst
	}
	if ir.IsInt(target) && ir.IsFloat(v.Type) {
		dst := g.b.NewTemp(ir.I32Type{})
		g.b.Emit(&ir.ConvertInstr{Dst: dst, Src: v, ToFloat: false})
		return dst
	}
	return v
}

func constValue(v sema.ConstValue, t ast.Type) *ir.Value {
	if t == ast.Float {
		return ir.ConstF32(v.AsFloat())
	}
	return ir.ConstI32(v.AsInt())
}

func arithOp(op string, isFloat bool) ir.ArithOp {
	switch op {
	case "+":
		if isFloat {
			return ir.OpFAdd
		}
		return ir.OpAdd
	case "-":
		if isFloat {
			return ir.OpFSub
		}
		return ir.OpSub
	case "*":
		if isFloat {
			return ir.OpFMul
		}
		return ir.OpMul
	default: // "/"
		if isFloat {
			return ir.OpFDiv
		}
		return ir.OpDiv
	}
}

func cmpOp(op string, isFloat bool) ir.CmpOp {
	switch op {
	case "==":
		if isFloat {
			return ir.CmpFEq
		}
		return ir.CmpEq
	case "!=":
		if isFloat {
			return ir.CmpFNe
		}
		return ir.CmpNe
	case "<":
		if isFloat {
			return ir.CmpFLt
		}
		return ir.CmpSlt
	case "<=":
		if isFloat {
			return ir.CmpFLe
		}
		return ir.CmpSle
	case ">":
		if isFloat {
			return ir.CmpFGt
		}
		return ir.CmpSgt
	default: // ">="
		if isFloat {
			return ir.CmpFGe
		}
		return ir.CmpSge
	}
}
