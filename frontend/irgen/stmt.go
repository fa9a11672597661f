package irgen

import (
	"github.com/rrvm-project/sysycc/frontend/ast"
	"github.com/rrvm-project/sysycc/internal/ir"
)

// lowerBlock opens a nested scope for b's declarations and lowers its
// statements in order, stopping early if one of them terminates the
// current block (a return, break, or continue) -- anything after that is
// unreachable and left ungenerated rather than appended past a terminator.
func (g *Generator) lowerBlock(b *ast.Block) {
	outer := g.cur
	g.cur = newGenScope(outer)
	for _, s := range b.Stmts {
		if g.b.Block.Term != nil {
			break
		}
		g.lowerStmt(s)
	}
	g.cur = outer
}

func (g *Generator) lowerStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.DeclStmt:
		g.lowerLocalDecl(n.Decl)
	case *ast.ExprStmt:
		if n.Expr != nil {
			g.lowerExpr(n.Expr)
		}
	case *ast.AssignStmt:
		g.lowerAssign(n)
	case *ast.IfStmt:
		g.lowerIf(n)
	case *ast.WhileStmt:
		g.lowerWhile(n)
	case *ast.BreakStmt:
		g.lowerBreak()
	case *ast.ContinueStmt:
		g.lowerContinue()
	case *ast.ReturnStmt:
		g.lowerReturn(n)
	case *ast.BlockStmt:
		g.lowerBlock(n.Block)
	case *ast.EmptyStmt:
		// no-op
	}
}

// lowerLocalDecl declares one local variable: a const scalar folds away
// entirely (like a global const), an ordinary scalar becomes a Builder-
// tracked SSA variable seeded with its initializer or an implicit zero,
// and any array (const or not) gets a real stack alloca, optionally
// initialized element-by-element from its brace initializer -- unlike a
// global's, a local array's initializer elements need not be compile-time
// constants, so they're lowered as ordinary expressions rather than
// folded up front by frontend/sema.
func (g *Generator) lowerLocalDecl(d *ast.Decl) {
	info := g.info.Decls[d]

	if len(d.Dims) == 0 {
		slot := &varSlot{Type: d.Type}
		if d.Const {
			slot.IsConst = true
			if info.ConstVal != nil {
				slot.ConstVal = *info.ConstVal
			}
			g.cur.declare(d.Name, slot)
			return
		}
		slot.SSAName = g.uniqueSSAName(d.Name)
		var val *ir.Value
		if d.Init != nil {
			val = g.convertValueTo(g.lowerExpr(d.Init), irType(d.Type))
		} else {
			val = zeroFor(d.Type)
		}
		g.b.WriteVariable(slot.SSAName, g.b.Block, val)
		g.cur.declare(d.Name, slot)
		return
	}

	elemType := irType(d.Type)
	total := dimsProduct(info.Dims)
	addr := g.b.NewTemp(ir.PointerType{Elem: elemType})
	g.b.Emit(&ir.AllocaInstr{Dst: addr, ElemType: elemType, NumElems: total})

	slot := &varSlot{Type: d.Type, IsArray: true, Dims: info.Dims, Addr: addr}
	g.cur.declare(d.Name, slot)

	if d.InitList != nil {
		g.storeArrayInit(addr, d.InitList, info.Dims, total, d.Type, 0)
	}
}

func (g *Generator) lowerAssign(n *ast.AssignStmt) {
	val := g.lowerExpr(n.Value)

	if ident, ok := n.LHS.(*ast.Ident); ok {
		slot := g.cur.lookup(ident.Name)
		val = g.convertValueTo(val, irType(slot.Type))
		g.b.WriteVariable(slot.SSAName, g.b.Block, val)
		return
	}

	idx := n.LHS.(*ast.IndexExpr)
	ident, indices := collectIndices(idx)
	slot := g.cur.lookup(ident.Name)
	addr, elemType := g.indexAddr(slot, indices)
	val = g.convertValueTo(val, elemType)
	g.b.Emit(&ir.StoreInstr{Addr: addr, Value: val})
}

// lowerIf branches on n.Cond directly (via lowerCond's short-circuit
// control flow), seals each arm's block immediately since a CondJump
// always gives it exactly one predecessor, and only seals the merge
// block once both arms have been lowered, since either arm (or neither,
// if both return) may contribute a predecessor to it.
func (g *Generator) lowerIf(n *ast.IfStmt) {
	thenBlk := g.b.NewBlock("if.then")
	mergeBlk := g.b.NewBlock("if.end")
	falseTarget := mergeBlk
	var elseBlk *ir.BasicBlock
	if n.Else != nil {
		elseBlk = g.b.NewBlock("if.else")
		falseTarget = elseBlk
	}
	g.lowerCond(n.Cond, thenBlk, falseTarget)

	g.b.SetBlock(thenBlk)
	g.b.SealBlock(thenBlk)
	g.lowerStmt(n.Then)
	if g.b.Block.Term == nil {
		g.b.Terminate(&ir.JumpInstr{Target: mergeBlk})
	}

	if n.Else != nil {
		g.b.SetBlock(elseBlk)
		g.b.SealBlock(elseBlk)
		g.lowerStmt(n.Else)
		if g.b.Block.Term == nil {
			g.b.Terminate(&ir.JumpInstr{Target: mergeBlk})
		}
	}

	g.b.SetBlock(mergeBlk)
	g.b.SealBlock(mergeBlk)
}

// lowerWhile leaves condBlk (and the loop's exit block) unsealed until
// the body has been fully lowered, since a continue or break statement
// anywhere inside the body adds another predecessor edge to one of them
// that isn't known in advance.
func (g *Generator) lowerWhile(n *ast.WhileStmt) {
	condBlk := g.b.NewBlock("while.cond")
	bodyBlk := g.b.NewBlock("while.body")
	exitBlk := g.b.NewBlock("while.end")

	g.b.Terminate(&ir.JumpInstr{Target: condBlk})

	g.b.SetBlock(condBlk)
	g.lowerCond(n.Cond, bodyBlk, exitBlk)

	g.b.SetBlock(bodyBlk)
	g.b.SealBlock(bodyBlk)
	g.breakTargets = append(g.breakTargets, exitBlk)
	g.continueTargets = append(g.continueTargets, condBlk)
	g.lowerStmt(n.Body)
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
	g.continueTargets = g.continueTargets[:len(g.continueTargets)-1]
	if g.b.Block.Term == nil {
		g.b.Terminate(&ir.JumpInstr{Target: condBlk})
	}
	g.b.SealBlock(condBlk)

	g.b.SetBlock(exitBlk)
	g.b.SealBlock(exitBlk)
}

func (g *Generator) lowerBreak() {
	if len(g.breakTargets) == 0 {
		return
	}
	g.b.Terminate(&ir.JumpInstr{Target: g.breakTargets[len(g.breakTargets)-1]})
}

func (g *Generator) lowerContinue() {
	if len(g.continueTargets) == 0 {
		return
	}
	g.b.Terminate(&ir.JumpInstr{Target: g.continueTargets[len(g.continueTargets)-1]})
}

func (g *Generator) lowerReturn(n *ast.ReturnStmt) {
	if n.Value == nil {
		g.b.Terminate(&ir.RetInstr{})
		return
	}
	v := g.convertValueTo(g.lowerExpr(n.Value), g.curRet)
	g.b.Terminate(&ir.RetInstr{Value: v})
}
