package errors

import (
	"fmt"
	"strings"

	"github.com/rrvm-project/sysycc/frontend/ast"
)

// SemanticErrorBuilder provides a fluent interface for creating semantic
// errors with suggestions.
type SemanticErrorBuilder struct {
	err CompilerError
}

// NewSemanticError creates a new semantic error builder.
func NewSemanticError(code, message string, pos ast.Position) *SemanticErrorBuilder {
	return &SemanticErrorBuilder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// NewSemanticWarning creates a new semantic warning builder.
func NewSemanticWarning(code, message string, pos ast.Position) *SemanticErrorBuilder {
	return &SemanticErrorBuilder{
		err: CompilerError{
			Level:    Warning,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

func (b *SemanticErrorBuilder) WithLength(length int) *SemanticErrorBuilder {
	b.err.Length = length
	return b
}

func (b *SemanticErrorBuilder) WithSuggestion(message string) *SemanticErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

func (b *SemanticErrorBuilder) WithNote(note string) *SemanticErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

func (b *SemanticErrorBuilder) WithHelp(help string) *SemanticErrorBuilder {
	b.err.HelpText = help
	return b
}

func (b *SemanticErrorBuilder) Build() CompilerError {
	return b.err
}

// UndefinedVariable creates an error for a name that resolves to no local,
// parameter, or global declaration.
func UndefinedVariable(name string, pos ast.Position, similarNames []string) CompilerError {
	builder := NewSemanticError(ErrorUndefinedVariable, fmt.Sprintf("undefined variable '%s'", name), pos).
		WithLength(len(name))

	if len(similarNames) > 0 {
		builder = builder.WithSuggestion(suggestNames(similarNames))
	} else {
		builder = builder.WithSuggestion("make sure the variable is declared before use").
			WithNote("locals and globals must be declared with a type before use")
	}

	return builder.Build()
}

// UndefinedFunction creates an error for a call to a name with no matching
// function definition or runtime-linkage declaration.
func UndefinedFunction(name string, pos ast.Position, similarNames []string) CompilerError {
	builder := NewSemanticError(ErrorUndefinedFunction, fmt.Sprintf("function '%s' is not declared", name), pos).
		WithLength(len(name))

	if len(similarNames) > 0 {
		builder = builder.WithSuggestion(suggestNames(similarNames))
	}

	return builder.WithHelp("functions must be defined in this file or be one of the runtime-linkage names").Build()
}

// TypeMismatch creates an error for an expression whose type does not match
// what the surrounding context requires.
func TypeMismatch(expected, actual string, pos ast.Position) CompilerError {
	builder := NewSemanticError(ErrorTypeMismatch, fmt.Sprintf("type mismatch: expected %s, found %s", expected, actual), pos)

	if isNumericType(expected) && isNumericType(actual) {
		builder = builder.WithSuggestion("int and float operands are implicitly converted at use sites; an explicit cast may still be clearer")
	}

	return builder.Build()
}

// ArityMismatch creates an error for a call whose argument count does not
// match the callee's parameter list.
func ArityMismatch(functionName string, expected, actual int, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorArityMismatch,
		fmt.Sprintf("function '%s' expects %d argument(s), got %d", functionName, expected, actual), pos).
		WithSuggestion(fmt.Sprintf("provide exactly %d argument(s)", expected)).
		Build()
}

// UnusedVariable creates a warning for a local that is declared but never
// read.
func UnusedVariable(name string, pos ast.Position) CompilerError {
	return NewSemanticWarning(WarningUnusedVariable, fmt.Sprintf("variable '%s' is declared but never used", name), pos).
		WithLength(len(name)).
		WithSuggestion("remove the variable declaration if it's not needed").
		Build()
}

// DuplicateDeclaration creates an error for a name declared twice in the
// same scope.
func DuplicateDeclaration(name string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorDuplicateDeclaration, fmt.Sprintf("'%s' is already declared in this scope", name), pos).
		WithSuggestion(fmt.Sprintf("rename the duplicate '%s' to a unique name", name)).
		Build()
}

// InvalidAssignment creates an error for an assignment whose left-hand side
// is not an assignable expression, or whose target is const-qualified.
func InvalidAssignment(message string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorInvalidAssignment, message, pos).
		WithHelp("assignment targets must be a local/global scalar or array element").
		Build()
}

// BreakOutsideLoop / ContinueOutsideLoop report control-flow statements used
// outside an enclosing while loop.
func BreakOutsideLoop(pos ast.Position) CompilerError {
	return NewSemanticError(ErrorBreakOutsideLoop, "break used outside of a loop", pos).Build()
}

func ContinueOutsideLoop(pos ast.Position) CompilerError {
	return NewSemanticError(ErrorContinueOutsideLoop, "continue used outside of a loop", pos).Build()
}

// MissingReturn creates an error for a non-void function whose control flow
// may fall off the end without returning a value.
func MissingReturn(functionName, returnType string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorMissingReturn,
		fmt.Sprintf("function '%s' declares return type '%s' but may not return a value on all paths", functionName, returnType), pos).
		WithSuggestion("add a return statement on every exiting path").
		Build()
}

// NonConstInitializer creates an error for a const global whose initializer
// is not reducible to a compile-time constant.
func NonConstInitializer(name string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorNonConstInitializer,
		fmt.Sprintf("initializer for const '%s' is not a compile-time constant", name), pos).
		Build()
}

func suggestNames(similarNames []string) string {
	if len(similarNames) == 1 {
		return fmt.Sprintf("did you mean '%s'?", similarNames[0])
	}
	return fmt.Sprintf("did you mean one of: '%s'?", strings.Join(similarNames, "', '"))
}

func isNumericType(typeName string) bool {
	return typeName == "int" || typeName == "float"
}

func findSimilarNames(target string, candidates []string) []string {
	var similar []string
	for _, candidate := range candidates {
		if levenshteinDistance(target, candidate) <= 2 && len(candidate) > 2 {
			similar = append(similar, candidate)
		}
	}
	return similar
}

// levenshteinDistance computes the edit distance between two strings, used
// to suggest a likely intended name for a typo'd identifier.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min3(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(a)][len(b)]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
