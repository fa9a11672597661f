package grammar

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rrvm-project/sysycc/frontend/ast"
)

// ToAST lowers a parsed CompUnit into the typed frontend/ast tree that
// frontend/sema and frontend/irgen walk. Each precedence tier's flat
// Left/Ops chain is folded here into left-associative ast.BinaryExpr nodes,
// since the layered grammar exists only to get precedence right during
// parsing and ast.BinaryExpr doesn't care which tier produced it.
func ToAST(cu *CompUnit) *ast.CompUnit {
	out := &ast.CompUnit{}
	for _, item := range cu.Items {
		switch {
		case item.Func != nil:
			out.Funcs = append(out.Funcs, convertFuncDef(item.Func))
		case item.Decl != nil:
			out.Decls = append(out.Decls, *convertDecl(item.Decl))
		}
	}
	return out
}

func pos(p lexer.Position) ast.Position {
	return ast.Position{Filename: p.Filename, Offset: p.Offset, Line: p.Line, Column: p.Column}
}

func convertType(s string) ast.Type {
	switch s {
	case "int":
		return ast.Int
	case "float":
		return ast.Float
	default:
		return ast.Void
	}
}

func convertDecl(d *Decl) *ast.Decl {
	// A multi-declarator line ("int a, b;") has no single faithful
	// representation as one *ast.Decl per grammar.Decl; callers that need
	// every declarator use convertDeclItems instead. convertDecl exists for
	// single-declarator call sites and returns only the first declarator.
	items := convertDeclItems(d)
	if len(items) == 0 {
		return &ast.Decl{Pos: pos(d.Pos), Const: d.Const, Type: convertType(d.Type)}
	}
	return items[0]
}

// convertDeclItems expands every comma-separated declarator of a
// grammar.Decl into its own *ast.Decl, since ast.Decl models exactly one
// name.
func convertDeclItems(d *Decl) []*ast.Decl {
	typ := convertType(d.Type)
	out := make([]*ast.Decl, 0, len(d.Items))
	for _, item := range d.Items {
		decl := &ast.Decl{
			Pos:   pos(item.Pos),
			Const: d.Const,
			Type:  typ,
			Name:  item.Name,
		}
		for _, dim := range item.Dims {
			decl.Dims = append(decl.Dims, convertExpr(dim))
		}
		if item.Init != nil {
			if item.Init.Expr != nil {
				decl.Init = convertExpr(item.Init.Expr)
			} else {
				decl.InitList = convertInitVal(item.Init)
			}
		}
		out = append(out, decl)
	}
	return out
}

func convertInitVal(v *InitVal) *ast.InitList {
	if v == nil {
		return nil
	}
	list := &ast.InitList{}
	for _, elem := range v.List {
		if elem.Expr != nil {
			list.Items = append(list.Items, convertExpr(elem.Expr))
			list.Nested = append(list.Nested, nil)
			list.IsList = append(list.IsList, false)
		} else {
			list.Items = append(list.Items, nil)
			list.Nested = append(list.Nested, convertInitVal(elem))
			list.IsList = append(list.IsList, true)
		}
	}
	return list
}

func convertFuncDef(f *FuncDef) *ast.FuncDef {
	out := &ast.FuncDef{
		Pos:        pos(f.Pos),
		Name:       f.Name,
		ReturnType: convertType(f.RetType),
		Body:       convertBlock(f.Body),
	}
	for _, p := range f.Params {
		out.Params = append(out.Params, convertParam(p))
	}
	return out
}

func convertParam(p *Param) *ast.Param {
	out := &ast.Param{
		Pos:  pos(p.Pos),
		Type: convertType(p.Type),
		Name: p.Name,
	}
	if p.ArrayMark != nil {
		out.IsArray = true
		for _, dim := range p.ArrayMark.ExtraDims {
			out.ExtraDim = append(out.ExtraDim, convertExpr(dim))
		}
	}
	return out
}

func convertBlock(b *Block) *ast.Block {
	out := &ast.Block{}
	if b == nil {
		return out
	}
	for _, s := range b.Stmts {
		out.Stmts = append(out.Stmts, convertStmt(s))
	}
	return out
}

func convertStmt(s *Stmt) ast.Stmt {
	p := pos(s.Pos)
	switch {
	case s.Block != nil:
		return &ast.BlockStmt{Pos: p, Block: convertBlock(s.Block)}
	case s.If != nil:
		out := &ast.IfStmt{Pos: p, Cond: convertExpr(s.If.Cond), Then: convertStmt(s.If.Then)}
		if s.If.Else != nil {
			out.Else = convertStmt(s.If.Else)
		}
		return out
	case s.While != nil:
		return &ast.WhileStmt{Pos: p, Cond: convertExpr(s.While.Cond), Body: convertStmt(s.While.Body)}
	case s.Break:
		return &ast.BreakStmt{Pos: p}
	case s.Continue:
		return &ast.ContinueStmt{Pos: p}
	case s.Return != nil:
		out := &ast.ReturnStmt{Pos: p}
		if s.Return.Value != nil {
			out.Value = convertExpr(s.Return.Value)
		}
		return out
	case s.Decl != nil:
		items := convertDeclItems(s.Decl)
		if len(items) == 1 {
			return &ast.DeclStmt{Pos: p, Decl: items[0]}
		}
		// Multiple comma-separated declarators lower into a synthetic block
		// of one DeclStmt per declarator, preserving source order and scope.
		blk := &ast.Block{Pos: p}
		for _, it := range items {
			blk.Stmts = append(blk.Stmts, &ast.DeclStmt{Pos: it.Pos, Decl: it})
		}
		return &ast.BlockStmt{Pos: p, Block: blk}
	case s.Assign != nil:
		return &ast.AssignStmt{Pos: p, LHS: convertLVal(s.Assign.LHS), Value: convertExpr(s.Assign.Value)}
	case s.ExprStmt != nil:
		return &ast.ExprStmt{Pos: p, Expr: convertExpr(s.ExprStmt.Expr)}
	default:
		return &ast.EmptyStmt{Pos: p}
	}
}

func convertLVal(l *LVal) ast.Expr {
	p := pos(l.Pos)
	var e ast.Expr = &ast.Ident{Pos: p, Name: l.Name}
	for _, idx := range l.Index {
		e = &ast.IndexExpr{Pos: p, Base: e, Index: convertExpr(idx)}
	}
	return e
}

func convertExpr(e *Expr) ast.Expr {
	left := convertLAndExpr(e.Left)
	for _, op := range e.Ops {
		left = &ast.BinaryExpr{Pos: ast.ExprPosition(left), Op: "||", Left: left, Right: convertLAndExpr(op.Right)}
	}
	return left
}

func convertLAndExpr(e *LAndExpr) ast.Expr {
	left := convertEqExpr(e.Left)
	for _, op := range e.Ops {
		left = &ast.BinaryExpr{Pos: ast.ExprPosition(left), Op: "&&", Left: left, Right: convertEqExpr(op.Right)}
	}
	return left
}

func convertEqExpr(e *EqExpr) ast.Expr {
	left := convertRelExpr(e.Left)
	for _, op := range e.Ops {
		left = &ast.BinaryExpr{Pos: ast.ExprPosition(left), Op: op.Op, Left: left, Right: convertRelExpr(op.Right)}
	}
	return left
}

func convertRelExpr(e *RelExpr) ast.Expr {
	left := convertAddExpr(e.Left)
	for _, op := range e.Ops {
		left = &ast.BinaryExpr{Pos: ast.ExprPosition(left), Op: op.Op, Left: left, Right: convertAddExpr(op.Right)}
	}
	return left
}

func convertAddExpr(e *AddExpr) ast.Expr {
	left := convertMulExpr(e.Left)
	for _, op := range e.Ops {
		left = &ast.BinaryExpr{Pos: ast.ExprPosition(left), Op: op.Op, Left: left, Right: convertMulExpr(op.Right)}
	}
	return left
}

func convertMulExpr(e *MulExpr) ast.Expr {
	left := convertUnaryExpr(e.Left)
	for _, op := range e.Ops {
		left = &ast.BinaryExpr{Pos: ast.ExprPosition(left), Op: op.Op, Left: left, Right: convertUnaryExpr(op.Right)}
	}
	return left
}

func convertUnaryExpr(e *UnaryExpr) ast.Expr {
	base := convertPostfixExpr(e.Base)
	if e.Op == "" {
		return base
	}
	return &ast.UnaryExpr{Pos: ast.ExprPosition(base), Op: e.Op, X: base}
}

func convertPostfixExpr(e *PostfixExpr) ast.Expr {
	base := convertPrimaryExpr(e.Primary)
	for _, idx := range e.Index {
		base = &ast.IndexExpr{Pos: ast.ExprPosition(base), Base: base, Index: convertExpr(idx)}
	}
	return base
}

func convertPrimaryExpr(e *PrimaryExpr) ast.Expr {
	p := pos(e.Pos)
	switch {
	case e.Call != nil:
		out := &ast.CallExpr{Pos: p, Name: e.Call.Name}
		for _, arg := range e.Call.Args {
			out.Args = append(out.Args, convertExpr(arg))
		}
		return out
	case e.Paren != nil:
		return convertExpr(e.Paren)
	case e.Float != "":
		return &ast.FloatLit{Pos: p, Value: parseFloatLit(e.Float)}
	case e.Int != "":
		return &ast.IntLit{Pos: p, Value: parseIntLit(e.Int)}
	default:
		return &ast.Ident{Pos: p, Name: e.Ident}
	}
}

// parseIntLit parses a SysY integer literal (decimal, 0-prefixed octal, or
// 0x-prefixed hexadecimal), matching the constant forms C89 recognizes.
func parseIntLit(lit string) int32 {
	base := 10
	switch {
	case strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X"):
		base = 16
		lit = lit[2:]
	case strings.HasPrefix(lit, "0") && len(lit) > 1:
		base = 8
		lit = lit[1:]
	}
	if lit == "" {
		return 0
	}
	v, _ := strconv.ParseUint(lit, base, 32)
	return int32(uint32(v))
}

// parseFloatLit parses a SysY floating-point literal; a trailing f/F suffix
// is stripped since Go's ParseFloat doesn't accept it.
func parseFloatLit(lit string) float32 {
	lit = strings.TrimSuffix(strings.TrimSuffix(lit, "f"), "F")
	v, _ := strconv.ParseFloat(lit, 32)
	return float32(v)
}
