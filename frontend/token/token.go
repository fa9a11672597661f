// Package token names the lexical categories frontend/grammar's lexer
// produces and the keyword set that disambiguates them from plain
// identifiers. Kept separate from frontend/grammar so frontend/sema can
// refer to a keyword or operator spelling without importing the parser.
package token

// Kind identifies a lexical category.
type Kind int

const (
	Ident Kind = iota
	IntLit
	FloatLit
	Keyword
	Operator
	Punctuation
)

// Keywords is the SysY reserved-word set: an identifier-shaped lexeme that
// appears here is a keyword, not a variable/function name.
var Keywords = map[string]bool{
	"int": true, "float": true, "void": true, "const": true,
	"if": true, "else": true, "while": true,
	"break": true, "continue": true, "return": true,
}

// IsKeyword reports whether word is a reserved SysY keyword.
func IsKeyword(word string) bool {
	return Keywords[word]
}
