package grammar

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
)

var sysyParser = participle.MustBuild[CompUnit](
	participle.Lexer(SysYLexer),
	participle.Elide("Whitespace", "Comment", "BlockComment"),
	participle.UseLookahead(4),
)

// ParseFile reads and parses a SysY source file.
func ParseFile(path string) (*CompUnit, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseString(path, string(source))
}

// ParseString parses SysY source already held in memory; filename is used
// only for diagnostics.
func ParseString(filename, source string) (*CompUnit, error) {
	unit, err := sysyParser.ParseString(filename, source)
	if err != nil {
		reportParseError(source, err)
		return nil, err
	}
	return unit, nil
}

// reportParseError prints a caret-style parse error, mirroring the
// teacher's own grammar/parser.go reportParseError.
func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(pos.Column-1, 0)) + "^"

	color.Red("syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Fprintln(os.Stderr, line)
	color.HiRed(caret)
	fmt.Fprintf(os.Stderr, "-> %s\n", pe.Message())
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
