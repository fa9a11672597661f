package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rrvm-project/sysycc/frontend/ast"
)

func TestErrorReporter(t *testing.T) {
	source := `int main() {
    int x = unknownVar;
    return x;
}`

	reporter := NewErrorReporter("test.sy", source)

	err := UndefinedVariable("unknownVar", ast.Position{Line: 2, Column: 13}, []string{"knownVar"})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrorUndefinedVariable+"]")
	assert.Contains(t, formatted, "undefined variable")
	assert.Contains(t, formatted, "unknownVar")
	assert.Contains(t, formatted, "test.sy:2:13")
	assert.Contains(t, formatted, "did you mean")
	assert.Contains(t, formatted, "knownVar")
}

func TestUndefinedVariableError(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 5}

	err := UndefinedVariable("balace", pos, []string{"balance"})
	assert.Equal(t, ErrorUndefinedVariable, err.Code)
	assert.Contains(t, err.Message, "balace")
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0].Message, "did you mean 'balance'")

	err = UndefinedVariable("xyz", pos, nil)
	assert.Contains(t, err.Suggestions[0].Message, "make sure the variable is declared")
}

func TestUndefinedFunctionError(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 5}

	err := UndefinedFunction("gettint", pos, []string{"getint"})
	assert.Equal(t, ErrorUndefinedFunction, err.Code)
	assert.Contains(t, err.Message, "gettint")
	assert.Contains(t, err.Suggestions[0].Message, "did you mean 'getint'")
}

func TestTypeMismatchError(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 5}

	err := TypeMismatch("int", "float", pos)
	assert.Equal(t, ErrorTypeMismatch, err.Code)
	assert.Contains(t, err.Message, "expected int, found float")
}

func TestWarningFormatting(t *testing.T) {
	source := `int unused = 42;`
	reporter := NewErrorReporter("test.sy", source)

	err := UnusedVariable("unused", ast.Position{Line: 1, Column: 5})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "warning[W0001]")
	assert.Contains(t, formatted, "never used")
}

func TestErrorMarkerCreation(t *testing.T) {
	source := `let variable = value;`
	reporter := NewErrorReporter("test.sy", source)

	marker := reporter.createMarker(5, 8, Error)

	spaces := strings.Count(marker, " ")
	assert.Equal(t, 4, spaces)
	carets := strings.Count(marker, "^")
	assert.Equal(t, 8, carets)
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("hello", "hello"))
	assert.Equal(t, 1, levenshteinDistance("hello", "hallo"))
	assert.Equal(t, 1, levenshteinDistance("hello", "helo"))
	assert.Equal(t, 5, levenshteinDistance("hello", ""))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}

func TestSimilarNameFinding(t *testing.T) {
	candidates := []string{"balance", "amount", "total", "balanceOf", "xyz"}

	similar := findSimilarNames("balace", candidates)
	assert.Contains(t, similar, "balance")
	assert.NotContains(t, similar, "xyz")

	similar = findSimilarNames("verydifferent", candidates)
	assert.Empty(t, similar)
}

func TestErrorLevels(t *testing.T) {
	source := `test`
	reporter := NewErrorReporter("test.sy", source)
	pos := ast.Position{Line: 1, Column: 1}

	errorErr := CompilerError{Level: Error, Message: "test error", Position: pos}
	warningErr := CompilerError{Level: Warning, Message: "test warning", Position: pos}

	errorFormatted := reporter.FormatError(errorErr)
	warningFormatted := reporter.FormatError(warningErr)

	assert.Contains(t, errorFormatted, "error:")
	assert.Contains(t, warningFormatted, "warning:")
}
