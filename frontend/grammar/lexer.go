package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// SysYLexer tokenizes SysY source using a stateful lexer (comments and
// whitespace elided by the parser, not dropped here, so position tracking
// stays accurate).
var SysYLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"BlockComment", `/\*([^*]|\*[^/])*\*/`, nil},
		{"Float", `(\d+\.\d*|\.\d+)([eE][-+]?\d+)?[fF]?|\d+[eE][-+]?\d+[fF]?`, nil},
		{"Int", `0[xX][0-9a-fA-F]+|0[0-7]*|[1-9][0-9]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Operator", `(\|\||&&|==|!=|<=|>=|[-+*/%<>=!])`, nil},
		{"Punctuation", `[{}\[\](),;]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
