package sema

import (
	"github.com/rrvm-project/sysycc/frontend/ast"
	"github.com/rrvm-project/sysycc/internal/errors"
)

func nonConstArrayElement(name string, pos ast.Position) errors.CompilerError {
	return errors.NonConstInitializer(name, pos)
}

// foldArrayInit flattens a (possibly nested, possibly absent) brace
// initializer into exactly total constant elements in row-major order,
// zero-padding any trailing elements the source initializer omitted --
// SysY's usual "{1, 2}" shorthand for an array with more than two
// elements. A non-const element is reported against name/pos and folds
// to zero so storage generation can still proceed.
func (c *Checker) foldArrayInit(list *ast.InitList, dims []int, total int, isFloat bool, name string, pos ast.Position) []ConstValue {
	out := make([]ConstValue, 0, total)
	if list != nil {
		out = c.flattenInitList(list, dims, out, isFloat, name, pos)
	}
	for len(out) < total {
		out = append(out, ConstValue{IsFloat: isFloat})
	}
	if len(out) > total {
		out = out[:total]
	}
	return out
}

func (c *Checker) flattenInitList(list *ast.InitList, dims []int, out []ConstValue, isFloat bool, name string, pos ast.Position) []ConstValue {
	innerSize := 1
	if len(dims) > 1 {
		for _, n := range dims[1:] {
			innerSize *= n
		}
	}
	for i, isNested := range list.IsList {
		if isNested {
			sub := c.foldArrayInit(list.Nested[i], dims[1:], innerSize, isFloat, name, pos)
			out = append(out, sub...)
			continue
		}
		v, ok := c.evalConst(list.Items[i])
		if !ok {
			c.report(nonConstArrayElement(name, pos))
			v = ConstValue{IsFloat: isFloat}
		}
		out = append(out, v)
	}
	return out
}

// evalConst folds e into a compile-time constant using the checker's
// current scope, matching the subset of SysY's grammar that global/array
// dimension initializers are restricted to: literals, named consts,
// unary +/-/!, and the usual binary arithmetic/comparison/logical
// operators over other constants. Returns ok=false for anything that
// depends on a non-const name or a runtime value.
func (c *Checker) evalConst(e ast.Expr) (ConstValue, bool) {
	switch n := e.(type) {
	case *ast.IntLit:
		return ConstValue{I: n.Value}, true
	case *ast.FloatLit:
		return ConstValue{IsFloat: true, F: n.Value}, true
	case *ast.Ident:
		sym := c.current.lookup(n.Name)
		if sym == nil || !sym.Const || sym.ConstVal == nil {
			return ConstValue{}, false
		}
		return *sym.ConstVal, true
	case *ast.UnaryExpr:
		v, ok := c.evalConst(n.X)
		if !ok {
			return ConstValue{}, false
		}
		return applyConstUnary(n.Op, v), true
	case *ast.BinaryExpr:
		l, ok := c.evalConst(n.Left)
		if !ok {
			return ConstValue{}, false
		}
		r, ok := c.evalConst(n.Right)
		if !ok {
			return ConstValue{}, false
		}
		return applyConstBinary(n.Op, l, r)
	default:
		return ConstValue{}, false
	}
}

func applyConstUnary(op string, v ConstValue) ConstValue {
	switch op {
	case "-":
		if v.IsFloat {
			return ConstValue{IsFloat: true, F: -v.F}
		}
		return ConstValue{I: -v.I}
	case "!":
		if boolOf(v) {
			return ConstValue{I: 0}
		}
		return ConstValue{I: 1}
	default: // "+"
		return v
	}
}

func boolOf(v ConstValue) bool {
	if v.IsFloat {
		return v.F != 0
	}
	return v.I != 0
}

func applyConstBinary(op string, l, r ConstValue) (ConstValue, bool) {
	switch op {
	case "&&":
		return boolToConst(boolOf(l) && boolOf(r)), true
	case "||":
		return boolToConst(boolOf(l) || boolOf(r)), true
	}

	// Comparisons and arithmetic all promote to float if either side is
	// float, mirroring the implicit int/float conversion at ordinary use
	// sites.
	if l.IsFloat || r.IsFloat {
		lf, rf := l.AsFloat(), r.AsFloat()
		switch op {
		case "+":
			return ConstValue{IsFloat: true, F: lf + rf}, true
		case "-":
			return ConstValue{IsFloat: true, F: lf - rf}, true
		case "*":
			return ConstValue{IsFloat: true, F: lf * rf}, true
		case "/":
			if rf == 0 {
				return ConstValue{}, false
			}
			return ConstValue{IsFloat: true, F: lf / rf}, true
		case "<":
			return boolToConst(lf < rf), true
		case "<=":
			return boolToConst(lf <= rf), true
		case ">":
			return boolToConst(lf > rf), true
		case ">=":
			return boolToConst(lf >= rf), true
		case "==":
			return boolToConst(lf == rf), true
		case "!=":
			return boolToConst(lf != rf), true
		default:
			return ConstValue{}, false
		}
	}

	li, ri := l.I, r.I
	switch op {
	case "+":
		return ConstValue{I: li + ri}, true
	case "-":
		return ConstValue{I: li - ri}, true
	case "*":
		return ConstValue{I: li * ri}, true
	case "/":
		if ri == 0 {
			return ConstValue{}, false
		}
		return ConstValue{I: li / ri}, true
	case "%":
		if ri == 0 {
			return ConstValue{}, false
		}
		return ConstValue{I: li % ri}, true
	case "<":
		return boolToConst(li < ri), true
	case "<=":
		return boolToConst(li <= ri), true
	case ">":
		return boolToConst(li > ri), true
	case ">=":
		return boolToConst(li >= ri), true
	case "==":
		return boolToConst(li == ri), true
	case "!=":
		return boolToConst(li != ri), true
	default:
		return ConstValue{}, false
	}
}

func boolToConst(b bool) ConstValue {
	if b {
		return ConstValue{I: 1}
	}
	return ConstValue{I: 0}
}
