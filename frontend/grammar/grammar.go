// Package grammar implements a participle-based parser for the SysY
// subset: a layered precedence-climbing expression grammar and a
// recursive-descent statement/declaration grammar (flat same-precedence
// operator lists resolved left-to-right, lexer.Position embedded on every
// node that needs to report a diagnostic).
package grammar

import "github.com/alecthomas/participle/v2/lexer"

// CompUnit is the parse root: a sequence of global declarations and
// function definitions, in source order.
type CompUnit struct {
	Items []*TopLevel `@@*`
}

type TopLevel struct {
	Func *FuncDef `  @@`
	Decl *Decl    `| @@`
}

// Decl is a (possibly const) global or local variable declaration,
// scalar or array, with one or more comma-separated declarators.
type Decl struct {
	Pos   lexer.Position
	Const bool        `[ @"const" ]`
	Type  string      `@("int" | "float")`
	Items []*DeclItem `@@ { "," @@ } ";"`
}

type DeclItem struct {
	Pos  lexer.Position
	Name string  `@Ident`
	Dims []*Expr `{ "[" @@ "]" }`
	Init *InitVal `[ "=" @@ ]`
}

// InitVal is either a scalar expression or a (possibly nested) brace
// initializer list.
type InitVal struct {
	Expr *Expr      `  @@`
	List []*InitVal `| "{" [ @@ { "," @@ } ] "}"`
}

// FuncDef is a function definition: a return type, a name, a parameter
// list, and a body block.
type FuncDef struct {
	Pos     lexer.Position
	RetType string   `@("int" | "float" | "void")`
	Name    string   `@Ident "("`
	Params  []*Param `[ @@ { "," @@ } ] ")"`
	Body    *Block   `@@`
}

// Param is a formal parameter; SysY array parameters drop their first
// dimension ("int a[]" or "int a[][10]").
type Param struct {
	Pos       lexer.Position
	Type      string         `@("int" | "float")`
	Name      string         `@Ident`
	ArrayMark *ParamArrayDims `@@?`
}

type ParamArrayDims struct {
	ExtraDims []*Expr `"[" "]" { "[" @@ "]" }`
}

type Block struct {
	Stmts []*Stmt `"{" @@* "}"`
}

// Stmt covers every SysY statement form. Assign is tried before ExprStmt
// (both can start with an identifier); the parser backtracks to ExprStmt
// when no "=" follows the candidate lvalue.
type Stmt struct {
	Pos      lexer.Position
	Block    *Block      `  @@`
	If       *IfStmt     `| @@`
	While    *WhileStmt  `| @@`
	Break    bool        `| @"break" ";"`
	Continue bool        `| @"continue" ";"`
	Return   *ReturnStmt `| @@`
	Decl     *Decl       `| @@`
	Assign   *AssignStmt `| @@`
	ExprStmt *ExprStmt   `| @@`
	Empty    bool        `| @";"`
}

type IfStmt struct {
	Cond *Expr `"if" "(" @@ ")"`
	Then *Stmt `@@`
	Else *Stmt `[ "else" @@ ]`
}

type WhileStmt struct {
	Cond *Expr `"while" "(" @@ ")"`
	Body *Stmt `@@`
}

type ReturnStmt struct {
	Value *Expr `"return" [ @@ ] ";"`
}

type AssignStmt struct {
	LHS   *LVal `@@ "="`
	Value *Expr `@@ ";"`
}

type LVal struct {
	Pos   lexer.Position
	Name  string  `@Ident`
	Index []*Expr `{ "[" @@ "]" }`
}

type ExprStmt struct {
	Expr *Expr `@@ ";"`
}

// Expr is the lowest-precedence level, logical-or.
type Expr struct {
	Left *LAndExpr `@@`
	Ops  []*OrOp   `{ @@ }`
}

type OrOp struct {
	Right *LAndExpr `"||" @@`
}

type LAndExpr struct {
	Left *EqExpr  `@@`
	Ops  []*AndOp `{ @@ }`
}

type AndOp struct {
	Right *EqExpr `"&&" @@`
}

type EqExpr struct {
	Left *RelExpr `@@`
	Ops  []*EqOp  `{ @@ }`
}

type EqOp struct {
	Op    string   `@("==" | "!=")`
	Right *RelExpr `@@`
}

type RelExpr struct {
	Left *AddExpr `@@`
	Ops  []*RelOp `{ @@ }`
}

type RelOp struct {
	Op    string   `@("<=" | ">=" | "<" | ">")`
	Right *AddExpr `@@`
}

type AddExpr struct {
	Left *MulExpr `@@`
	Ops  []*AddOp `{ @@ }`
}

type AddOp struct {
	Op    string   `@("+" | "-")`
	Right *MulExpr `@@`
}

type MulExpr struct {
	Left *UnaryExpr `@@`
	Ops  []*MulOp   `{ @@ }`
}

type MulOp struct {
	Op    string     `@("*" | "/" | "%")`
	Right *UnaryExpr `@@`
}

// UnaryExpr carries at most one leading sign/not operator; a chain like
// "!!x" is rare enough in SysY source that it is left as a non-goal
// rather than complicating this into a recursive production.
type UnaryExpr struct {
	Op   string       `[ @("+" | "-" | "!") ]`
	Base *PostfixExpr `@@`
}

type PostfixExpr struct {
	Primary *PrimaryExpr `@@`
	Index   []*Expr      `{ "[" @@ "]" }`
}

type PrimaryExpr struct {
	Pos   lexer.Position
	Call  *CallExpr `  @@`
	Paren *Expr     `| "(" @@ ")"`
	Float string    `| @Float`
	Int   string    `| @Int`
	Ident string    `| @Ident`
}

type CallExpr struct {
	Name string  `@Ident "("`
	Args []*Expr `[ @@ { "," @@ } ] ")"`
}
