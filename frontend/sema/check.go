package sema

import (
	"github.com/rrvm-project/sysycc/frontend/ast"
	"github.com/rrvm-project/sysycc/internal/errors"
)

// ParamInfo is a resolved formal parameter: its surface type, whether it
// degrades to a pointer (SysY array parameters drop their first
// dimension), and any trailing array dimensions.
type ParamInfo struct {
	Type      ast.Type
	IsArray   bool
	ExtraDims []int
}

// FuncInfo is a resolved function signature, for both user-defined
// functions and the runtime-linkage external names.
type FuncInfo struct {
	Name       string
	ReturnType ast.Type
	Params     []ParamInfo
	External   bool
}

// DeclInfo is what Check resolves about one variable declaration: its
// constant array dimensions (empty for a scalar), its folded value for a
// const scalar, and -- for any module-level declaration, since SysY
// requires a global's initializer to be a constant expression whether or
// not the declaration itself is const-qualified -- the flattened,
// zero-padded constant image an array global's storage is initialized
// with.
type DeclInfo struct {
	Dims        []int
	ConstVal    *ConstValue
	FoldedArray []ConstValue
}

// Info is the full result of Check: resolved signatures and declaration
// shapes that frontend/irgen looks up by AST node identity while walking
// the same tree, instead of re-resolving names and re-folding constants
// itself.
type Info struct {
	Funcs    map[string]*FuncInfo
	ExprType map[ast.Expr]ast.Type
	ConstVal map[ast.Expr]ConstValue
	Decls    map[*ast.Decl]*DeclInfo
}

// Checker carries the state of one Check pass: the scope stack, the
// function table being built, and the diagnostics collected so far.
type Checker struct {
	current   *scope
	global    *scope
	funcs     map[string]*FuncInfo
	curFunc   *FuncInfo
	loopDepth int
	diags     []errors.CompilerError
	info      *Info
}

// Check resolves names, checks types, folds constants and validates
// control flow across an entire compilation unit. It always returns an
// Info (possibly partial); callers should treat any Error-level diagnostic
// as fatal to proceeding to IR generation, the way a single-pass compiler
// normally would.
func Check(cu *ast.CompUnit) (*Info, []errors.CompilerError) {
	c := &Checker{
		funcs: make(map[string]*FuncInfo),
		info: &Info{
			Funcs:    make(map[string]*FuncInfo),
			ExprType: make(map[ast.Expr]ast.Type),
			ConstVal: make(map[ast.Expr]ConstValue),
			Decls:    make(map[*ast.Decl]*DeclInfo),
		},
	}
	c.global = newScope(nil)
	c.current = c.global

	c.registerRuntimeLinkage()
	c.registerFuncSignatures(cu.Funcs)

	for i := range cu.Decls {
		c.checkGlobalDecl(&cu.Decls[i])
	}
	for _, fn := range cu.Funcs {
		c.checkFuncDef(fn)
	}

	c.info.Funcs = c.funcs
	return c.info, c.diags
}

func (c *Checker) report(err errors.CompilerError) {
	c.diags = append(c.diags, err)
}

// registerRuntimeLinkage seeds the function table with the SysY standard
// library so getint()/putint()/etc. resolve as calls without a local
// definition, the same external set internal/ir/effects.go's
// RuntimeLinkage tracks for the mid-end's purity analysis.
func (c *Checker) registerRuntimeLinkage() {
	intParam := ParamInfo{Type: ast.Int}
	intArrParam := ParamInfo{Type: ast.Int, IsArray: true}
	floatArrParam := ParamInfo{Type: ast.Float, IsArray: true}

	sigs := map[string]*FuncInfo{
		"getint":          {ReturnType: ast.Int},
		"getch":           {ReturnType: ast.Int},
		"getfloat":        {ReturnType: ast.Float},
		"getarray":        {ReturnType: ast.Int, Params: []ParamInfo{intArrParam}},
		"getfarray":       {ReturnType: ast.Int, Params: []ParamInfo{floatArrParam}},
		"putint":          {ReturnType: ast.Void, Params: []ParamInfo{intParam}},
		"putch":           {ReturnType: ast.Void, Params: []ParamInfo{intParam}},
		"putfloat":        {ReturnType: ast.Void, Params: []ParamInfo{{Type: ast.Float}}},
		"putarray":        {ReturnType: ast.Void, Params: []ParamInfo{intParam, intArrParam}},
		"putfarray":       {ReturnType: ast.Void, Params: []ParamInfo{intParam, floatArrParam}},
		// putf is variadic on a format string this grammar has no literal
		// for; argument checking is left permissive (arity/types unchecked).
		"putf":            {ReturnType: ast.Void},
		"_sysy_starttime": {ReturnType: ast.Void},
		"_sysy_stoptime":  {ReturnType: ast.Void},
	}
	for name, sig := range sigs {
		sig.Name = name
		sig.External = true
		c.funcs[name] = sig
	}
}

func (c *Checker) registerFuncSignatures(funcs []*ast.FuncDef) {
	for _, fn := range funcs {
		if _, exists := c.funcs[fn.Name]; exists {
			c.report(errors.DuplicateDeclaration(fn.Name, fn.Pos))
			continue
		}
		sig := &FuncInfo{Name: fn.Name, ReturnType: fn.ReturnType}
		for _, p := range fn.Params {
			pi := ParamInfo{Type: p.Type, IsArray: p.IsArray}
			for _, d := range p.ExtraDim {
				pi.ExtraDims = append(pi.ExtraDims, c.constIntOrReport(d, 0))
			}
			sig.Params = append(sig.Params, pi)
		}
		c.funcs[fn.Name] = sig
	}
}

// constIntOrReport folds e to a constant int, reporting a non-const-
// initializer error and returning fallback if it doesn't reduce.
func (c *Checker) constIntOrReport(e ast.Expr, fallback int32) int32 {
	v, ok := c.evalConst(e)
	if !ok {
		c.report(errors.NonConstInitializer("<array dimension>", ast.ExprPosition(e)))
		return fallback
	}
	return v.AsInt()
}

func (c *Checker) checkGlobalDecl(d *ast.Decl) {
	c.declareAndCheck(d, true)
}

// declareAndCheck resolves one Decl's array dimensions and (for const)
// initializer, declares its symbol in the current scope, and records the
// resolution in Info.Decls.
func (c *Checker) declareAndCheck(d *ast.Decl, global bool) {
	info := &DeclInfo{}
	for _, dim := range d.Dims {
		info.Dims = append(info.Dims, c.constIntOrReport(dim, 1))
	}

	sym := &symbol{
		Name:    d.Name,
		Type:    d.Type,
		IsArray: len(d.Dims) > 0,
		Dims:    info.Dims,
		Const:   d.Const,
		Pos:     d.Pos,
		Global:  global,
	}

	if d.Const && !sym.IsArray {
		if d.Init == nil {
			c.report(errors.NonConstInitializer(d.Name, d.Pos))
		} else {
			v, ok := c.evalConst(d.Init)
			if !ok {
				c.report(errors.NonConstInitializer(d.Name, d.Pos))
			} else {
				sym.ConstVal = &v
				info.ConstVal = &v
			}
		}
	}

	if d.Init != nil && !sym.IsArray {
		c.checkExpr(d.Init)
	}
	if d.InitList != nil {
		c.checkInitList(d.InitList, d.Type)
	}

	// A module-level initializer must reduce to a compile-time constant
	// regardless of the declaration's own const-qualification, since global
	// storage is built directly into the program image.
	if global {
		if !sym.IsArray {
			if d.Init != nil {
				if v, ok := c.evalConst(d.Init); ok {
					info.ConstVal = &v
				} else if !d.Const { // already reported above for const
					c.report(errors.NonConstInitializer(d.Name, d.Pos))
				}
			} else {
				zero := ConstValue{IsFloat: d.Type == ast.Float}
				info.ConstVal = &zero
			}
		} else {
			total := 1
			for _, n := range info.Dims {
				total *= n
			}
			info.FoldedArray = c.foldArrayInit(d.InitList, info.Dims, total, d.Type == ast.Float, d.Name, d.Pos)
		}
	}

	if !c.current.declare(sym) {
		c.report(errors.DuplicateDeclaration(d.Name, d.Pos))
	}
	c.info.Decls[d] = info
}

func (c *Checker) checkInitList(list *ast.InitList, elemType ast.Type) {
	for i, item := range list.Items {
		if list.IsList[i] {
			c.checkInitList(list.Nested[i], elemType)
		} else if item != nil {
			c.checkExpr(item)
		}
	}
}

func (c *Checker) checkFuncDef(fn *ast.FuncDef) {
	sig := c.funcs[fn.Name]
	c.curFunc = sig
	c.current = newScope(c.global)

	for i, p := range fn.Params {
		psym := &symbol{
			Name:    p.Name,
			Type:    p.Type,
			IsArray: p.IsArray,
			IsParam: true,
			Pos:     p.Pos,
			Used:    true, // unused-parameter warnings are a non-goal
		}
		if p.IsArray {
			psym.Dims = append([]int{-1}, sig.Params[i].ExtraDims...)
		}
		if !c.current.declare(psym) {
			c.report(errors.DuplicateDeclaration(p.Name, p.Pos))
		}
	}

	c.checkBlock(fn.Body)

	if fn.ReturnType != ast.Void && !blockAlwaysReturns(fn.Body) {
		c.report(errors.MissingReturn(fn.Name, fn.ReturnType.String(), fn.Pos))
	}

	c.curFunc = nil
	c.current = c.global
}

func (c *Checker) checkBlock(b *ast.Block) {
	outer := c.current
	c.current = newScope(outer)
	for _, s := range b.Stmts {
		c.checkStmt(s)
	}
	c.reportUnused(c.current)
	c.current = outer
}

func (c *Checker) reportUnused(s *scope) {
	for _, sym := range s.vars {
		if !sym.Used && !sym.Global && !sym.Const {
			c.report(errors.UnusedVariable(sym.Name, sym.Pos))
		}
	}
}

func (c *Checker) checkStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.DeclStmt:
		c.declareAndCheck(n.Decl, false)
	case *ast.ExprStmt:
		if n.Expr != nil {
			c.checkExpr(n.Expr)
		}
	case *ast.AssignStmt:
		c.checkAssign(n)
	case *ast.IfStmt:
		c.checkExpr(n.Cond)
		c.checkStmt(n.Then)
		if n.Else != nil {
			c.checkStmt(n.Else)
		}
	case *ast.WhileStmt:
		c.checkExpr(n.Cond)
		c.loopDepth++
		c.checkStmt(n.Body)
		c.loopDepth--
	case *ast.BreakStmt:
		if c.loopDepth == 0 {
			c.report(errors.BreakOutsideLoop(n.Pos))
		}
	case *ast.ContinueStmt:
		if c.loopDepth == 0 {
			c.report(errors.ContinueOutsideLoop(n.Pos))
		}
	case *ast.ReturnStmt:
		c.checkReturn(n)
	case *ast.BlockStmt:
		c.checkBlock(n.Block)
	case *ast.EmptyStmt:
		// nothing to check
	}
}

func (c *Checker) checkReturn(n *ast.ReturnStmt) {
	if n.Value != nil {
		c.checkExpr(n.Value)
	}
	if c.curFunc == nil {
		return
	}
	if c.curFunc.ReturnType == ast.Void && n.Value != nil {
		c.report(errors.TypeMismatch("void", "a value", n.Pos))
	}
	if c.curFunc.ReturnType != ast.Void && n.Value == nil {
		c.report(errors.TypeMismatch(c.curFunc.ReturnType.String(), "no value", n.Pos))
	}
}

func (c *Checker) checkAssign(n *ast.AssignStmt) {
	c.checkLValue(n.LHS)
	c.checkExpr(n.Value)
}

// checkLValue validates an assignment target: it must resolve to a scalar
// or array-element reference to a non-const symbol.
func (c *Checker) checkLValue(e ast.Expr) {
	base := e
	for {
		idx, ok := base.(*ast.IndexExpr)
		if !ok {
			break
		}
		c.checkExpr(idx.Index)
		base = idx.Base
	}
	ident, ok := base.(*ast.Ident)
	if !ok {
		c.report(errors.InvalidAssignment("assignment target must be a variable or array element", ast.ExprPosition(e)))
		return
	}
	sym := c.current.lookup(ident.Name)
	if sym == nil {
		c.report(errors.UndefinedVariable(ident.Name, ident.Pos, nil))
		return
	}
	sym.Used = true
	if sym.Const {
		c.report(errors.NewSemanticError(errors.ErrorConstAssignment,
			"cannot assign to const-qualified '"+ident.Name+"'", ast.ExprPosition(e)).Build())
	}
	c.info.ExprType[e] = sym.Type
}

// checkExpr resolves and type-checks e, recording its surface type (and,
// when it folds, its constant value) in Info.
func (c *Checker) checkExpr(e ast.Expr) ast.Type {
	var t ast.Type
	switch n := e.(type) {
	case *ast.IntLit:
		t = ast.Int
	case *ast.FloatLit:
		t = ast.Float
	case *ast.Ident:
		t = c.checkIdent(n)
	case *ast.IndexExpr:
		t = c.checkIndex(n)
	case *ast.UnaryExpr:
		t = c.checkExpr(n.X)
	case *ast.BinaryExpr:
		t = c.checkBinary(n)
	case *ast.CallExpr:
		t = c.checkCall(n)
	default:
		t = ast.Int
	}
	c.info.ExprType[e] = t
	if v, ok := c.evalConst(e); ok {
		c.info.ConstVal[e] = v
	}
	return t
}

func (c *Checker) checkIdent(n *ast.Ident) ast.Type {
	sym := c.current.lookup(n.Name)
	if sym == nil {
		c.report(errors.UndefinedVariable(n.Name, n.Pos, nil))
		return ast.Int
	}
	sym.Used = true
	return sym.Type
}

func (c *Checker) checkIndex(n *ast.IndexExpr) ast.Type {
	base := baseIdent(n.Base)
	c.checkExpr(n.Index)
	if base == nil {
		return c.checkExpr(n.Base)
	}
	sym := c.current.lookup(base.Name)
	if sym == nil {
		c.report(errors.UndefinedVariable(base.Name, base.Pos, nil))
		return ast.Int
	}
	sym.Used = true
	if !sym.IsArray {
		c.report(errors.NewSemanticError(errors.ErrorInvalidArrayAccess,
			"'"+base.Name+"' is not an array", n.Pos).Build())
	}
	return sym.Type
}

func baseIdent(e ast.Expr) *ast.Ident {
	for {
		switch n := e.(type) {
		case *ast.Ident:
			return n
		case *ast.IndexExpr:
			e = n.Base
		default:
			return nil
		}
	}
}

func (c *Checker) checkBinary(n *ast.BinaryExpr) ast.Type {
	lt := c.checkExpr(n.Left)
	rt := c.checkExpr(n.Right)
	switch n.Op {
	case "&&", "||", "==", "!=", "<", "<=", ">", ">=":
		return ast.Int
	default:
		if lt == ast.Float || rt == ast.Float {
			return ast.Float
		}
		return ast.Int
	}
}

func (c *Checker) checkCall(n *ast.CallExpr) ast.Type {
	sig, ok := c.funcs[n.Name]
	if !ok {
		c.report(errors.UndefinedFunction(n.Name, n.Pos, nil))
		for _, a := range n.Args {
			c.checkExpr(a)
		}
		return ast.Int
	}
	if !sig.External && len(n.Args) != len(sig.Params) {
		c.report(errors.ArityMismatch(n.Name, len(sig.Params), len(n.Args), n.Pos))
	}
	for i, a := range n.Args {
		at := c.checkExpr(a)
		if i < len(sig.Params) {
			pt := sig.Params[i]
			if pt.IsArray {
				if _, isIdent := a.(*ast.Ident); !isIdent {
					if _, isIdx := a.(*ast.IndexExpr); !isIdx {
						c.report(errors.NewSemanticError(errors.ErrorInvalidArguments,
							"expected an array reference for this argument", ast.ExprPosition(a)).Build())
					}
				}
			} else if at == ast.Void {
				// int/float are implicitly convertible at call sites; only a
				// void-typed argument (from a misused void call) is an error.
				c.report(errors.TypeMismatch(pt.Type.String(), "void", ast.ExprPosition(a)))
			}
		}
	}
	return sig.ReturnType
}

// blockAlwaysReturns is a conservative, purely syntactic check: every
// control-flow path through b must end in a return statement, or an
// if/else whose both arms always return, for the block to be considered
// complete. A while loop is never assumed to always execute its body, so
// a return only inside one doesn't count.
func blockAlwaysReturns(b *ast.Block) bool {
	for _, s := range b.Stmts {
		if stmtAlwaysReturns(s) {
			return true
		}
	}
	return false
}

func stmtAlwaysReturns(s ast.Stmt) bool {
	switch n := s.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.BlockStmt:
		return blockAlwaysReturns(n.Block)
	case *ast.IfStmt:
		if n.Else == nil {
			return false
		}
		return stmtAlwaysReturns(n.Then) && stmtAlwaysReturns(n.Else)
	default:
		return false
	}
}
