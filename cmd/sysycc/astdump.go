package main

import (
	"fmt"
	"strings"

	"github.com/rrvm-project/sysycc/frontend/ast"
)

// dumpAST renders cu as an indented tree, the output of the --parse flag.
// There is no round-trip format to match here -- unlike internal/ir's
// Printer, which doubles as pass-test fixture output, this dump exists
// only for a human to eyeball the parse of their own source.
func dumpAST(cu *ast.CompUnit) string {
	var b strings.Builder
	for _, d := range cu.Decls {
		dumpDecl(&b, 0, &d)
	}
	for _, f := range cu.Funcs {
		dumpFunc(&b, 0, f)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func dumpDecl(b *strings.Builder, depth int, d *ast.Decl) {
	indent(b, depth)
	kw := "var"
	if d.Const {
		kw = "const"
	}
	fmt.Fprintf(b, "%s %s %s", kw, d.Type, d.Name)
	for _, dim := range d.Dims {
		fmt.Fprintf(b, "[%s]", dumpExprInline(dim))
	}
	if d.Init != nil {
		fmt.Fprintf(b, " = %s", dumpExprInline(d.Init))
	}
	b.WriteString("\n")
}

func dumpFunc(b *strings.Builder, depth int, f *ast.FuncDef) {
	indent(b, depth)
	var params []string
	for _, p := range f.Params {
		s := fmt.Sprintf("%s %s", p.Type, p.Name)
		if p.IsArray {
			s += "[]"
			for range p.ExtraDim {
				s += "[]"
			}
		}
		params = append(params, s)
	}
	fmt.Fprintf(b, "func %s %s(%s)\n", f.ReturnType, f.Name, strings.Join(params, ", "))
	dumpBlock(b, depth+1, f.Body)
}

func dumpBlock(b *strings.Builder, depth int, blk *ast.Block) {
	indent(b, depth)
	b.WriteString("{\n")
	for _, s := range blk.Stmts {
		dumpStmt(b, depth+1, s)
	}
	indent(b, depth)
	b.WriteString("}\n")
}

func dumpStmt(b *strings.Builder, depth int, s ast.Stmt) {
	switch n := s.(type) {
	case *ast.DeclStmt:
		dumpDecl(b, depth, n.Decl)
	case *ast.ExprStmt:
		indent(b, depth)
		if n.Expr == nil {
			b.WriteString(";\n")
		} else {
			fmt.Fprintf(b, "%s;\n", dumpExprInline(n.Expr))
		}
	case *ast.AssignStmt:
		indent(b, depth)
		fmt.Fprintf(b, "%s = %s;\n", dumpExprInline(n.LHS), dumpExprInline(n.Value))
	case *ast.IfStmt:
		indent(b, depth)
		fmt.Fprintf(b, "if (%s)\n", dumpExprInline(n.Cond))
		dumpStmt(b, depth+1, n.Then)
		if n.Else != nil {
			indent(b, depth)
			b.WriteString("else\n")
			dumpStmt(b, depth+1, n.Else)
		}
	case *ast.WhileStmt:
		indent(b, depth)
		fmt.Fprintf(b, "while (%s)\n", dumpExprInline(n.Cond))
		dumpStmt(b, depth+1, n.Body)
	case *ast.BreakStmt:
		indent(b, depth)
		b.WriteString("break;\n")
	case *ast.ContinueStmt:
		indent(b, depth)
		b.WriteString("continue;\n")
	case *ast.ReturnStmt:
		indent(b, depth)
		if n.Value == nil {
			b.WriteString("return;\n")
		} else {
			fmt.Fprintf(b, "return %s;\n", dumpExprInline(n.Value))
		}
	case *ast.BlockStmt:
		dumpBlock(b, depth, n.Block)
	case *ast.EmptyStmt:
		indent(b, depth)
		b.WriteString(";\n")
	}
}

func dumpExprInline(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.IntLit:
		return fmt.Sprintf("%d", n.Value)
	case *ast.FloatLit:
		return fmt.Sprintf("%g", n.Value)
	case *ast.Ident:
		return n.Name
	case *ast.IndexExpr:
		return fmt.Sprintf("%s[%s]", dumpExprInline(n.Base), dumpExprInline(n.Index))
	case *ast.UnaryExpr:
		return fmt.Sprintf("(%s%s)", n.Op, dumpExprInline(n.X))
	case *ast.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", dumpExprInline(n.Left), n.Op, dumpExprInline(n.Right))
	case *ast.CallExpr:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = dumpExprInline(a)
		}
		return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", "))
	default:
		return "<?>"
	}
}
