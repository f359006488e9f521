// Package errors provides structured error types for the filtr language.
//
// FiltrError represents lexer, parser and runtime errors alike. Each error
// carries a class, a catalog code, a rendered message, optional hints, and
// the source position it is attributed to.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and display.
type ErrorClass string

const (
	ClassLex       ErrorClass = "lex"       // Scanner errors
	ClassParse     ErrorClass = "parse"     // Syntax errors
	ClassType      ErrorClass = "type"      // Wrong operand kind
	ClassArity     ErrorClass = "arity"     // Wrong argument count
	ClassUndefined ErrorClass = "undefined" // Unbound names and columns
	ClassColumn    ErrorClass = "column"    // Column create/rename/drop failures
	ClassOperator  ErrorClass = "operator"  // Unsupported operators
	ClassIO        ErrorClass = "io"        // Import and export failures
	ClassFormat    ErrorClass = "format"    // Unsupported formats
	ClassState     ErrorClass = "state"     // Invalid control flow
)

// FiltrError represents any error from scanning, parsing or evaluation.
type FiltrError struct {
	Class   ErrorClass     `json:"class"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Line    int            `json:"line"`   // 1-based, 0 if unknown
	Column  int            `json:"column"` // 1-based, 0 if unknown
	File    string         `json:"file,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *FiltrError) Error() string {
	return e.String()
}

// String returns a single-line form of the error followed by any hints.
func (e *FiltrError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// Header returns the first line of PrettyString.
func (e *FiltrError) Header() string {
	kind := "Runtime error"
	if e.IsParseError() {
		kind = "Parser error"
	}
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s: %s, line %d, column %d", kind, e.File, e.Line, e.Column)
	case e.Line > 0:
		return fmt.Sprintf("%s: line %d, column %d", kind, e.Line, e.Column)
	case e.File != "":
		return fmt.Sprintf("%s: %s", kind, e.File)
	}
	return kind + ":"
}

// PrettyString returns a multi-line form for terminal display.
func (e *FiltrError) PrettyString() string {
	var sb strings.Builder
	sb.WriteString(e.Header())
	sb.WriteString("\n  ")
	sb.WriteString(e.Message)
	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}
	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *FiltrError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *FiltrError) WithFile(file string) *FiltrError {
	c := *e
	c.File = file
	return &c
}

// WithPosition returns a copy of the error with line and column set.
func (e *FiltrError) WithPosition(line, column int) *FiltrError {
	c := *e
	c.Line = line
	c.Column = column
	return &c
}

// WithHint returns a copy of the error with an extra hint appended.
func (e *FiltrError) WithHint(hint string) *FiltrError {
	if hint == "" {
		return e
	}
	c := *e
	c.Hints = append(append([]string(nil), e.Hints...), hint)
	return &c
}

// IsParseError reports whether the error was raised before evaluation.
func (e *FiltrError) IsParseError() bool {
	return e.Class == ClassParse || e.Class == ClassLex
}

// IsRuntimeError reports whether the error was raised during evaluation.
func (e *FiltrError) IsRuntimeError() bool {
	return !e.IsParseError()
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass
	Template string   // Message template with {{.placeholders}}
	Hints    []string // Hint templates
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// Lexer
	"LEX-0001": {Class: ClassLex, Template: "Unexpected character."},
	"LEX-0002": {Class: ClassLex, Template: "Unterminated string."},

	// Parser
	"PARSE-0001": {Class: ClassParse, Template: "Expect {{.Expected}}."},
	"PARSE-0002": {Class: ClassParse, Template: "Expect expression."},
	"PARSE-0003": {Class: ClassParse, Template: "Invalid assignment target."},
	"PARSE-0004": {Class: ClassParse, Template: "Can't have more than 255 {{.What}}."},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "Expect comparison operator after column name.",
		Hints:    []string{"one of ==, =, !=, <, <=, >, >="},
	},

	// Types
	"TYPE-0001": {Class: ClassType, Template: "Operand must be a number."},
	"TYPE-0002": {Class: ClassType, Template: "Operands must be numbers."},
	"TYPE-0003": {Class: ClassType, Template: "Operands must be two numbers or two strings."},
	"TYPE-0004": {Class: ClassType, Template: "Can only call functions."},
	"TYPE-0005": {Class: ClassType, Template: "'{{.Name}}' is not a dataset."},
	"TYPE-0006": {Class: ClassType, Template: "Only datasets have properties."},
	"TYPE-0007": {
		Class:    ClassType,
		Template: "Only rows have settable properties.",
		Hints:    []string{"for each row in t { row.col = value; }"},
	},
	"TYPE-0008": {Class: ClassType, Template: "Range bounds must be numbers."},

	// Arity
	"ARITY-0001": {Class: ClassArity, Template: "Expected {{.Want}} arguments but got {{.Got}}."},

	// Undefined
	"UNDEF-0001": {Class: ClassUndefined, Template: "Undefined variable '{{.Name}}'."},
	"UNDEF-0002": {Class: ClassUndefined, Template: "Dataset does not have column: {{.Name}}"},
	"UNDEF-0003": {Class: ClassUndefined, Template: "Row does not have column: {{.Name}}"},

	// Columns
	"COL-0001": {Class: ClassColumn, Template: "Column {{.Name}} does not exist."},
	"COL-0002": {Class: ClassColumn, Template: "Column {{.Name}} already exists."},
	"COL-0003": {Class: ClassColumn, Template: "Column name must not be empty."},

	// Operators
	"OP-0001": {Class: ClassOperator, Template: "Unsupported operator in comparison: {{.Op}}"},

	// Control flow
	"STATE-0001": {Class: ClassState, Template: "Can't return from top-level code."},

	// I/O
	"IO-0001": {Class: ClassIO, Template: "Failed to import dataset. {{.Cause}}"},
	"IO-0002": {
		Class:    ClassIO,
		Template: "Failed to export dataset to path: {{.Path}}",
		Hints:    []string{"{{.Cause}}"},
	},

	// Formats
	"FORMAT-0001": {
		Class:    ClassFormat,
		Template: "Unsupported export format: {{.Format}}",
		Hints:    []string{"Supported formats are csv, json, md and sqlite."},
	},
	"FORMAT-0002": {Class: ClassFormat, Template: "Unsupported import format: {{.Ext}}"},
}

// New creates a FiltrError from the catalog.
// Unknown codes produce a runtime error whose message is data["message"] or the code.
func New(code string, data map[string]any) *FiltrError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if m, ok := data["message"].(string); ok {
			msg = m
		}
		return &FiltrError{Class: ClassState, Code: code, Message: msg, Data: data}
	}

	var hints []string
	for _, tmpl := range def.Hints {
		if rendered := renderTemplate(tmpl, data); rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &FiltrError{
		Class:   def.Class,
		Code:    code,
		Message: renderTemplate(def.Template, data),
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a FiltrError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *FiltrError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates an error without using the catalog.
func NewSimple(class ErrorClass, message string) *FiltrError {
	return &FiltrError{Class: class, Message: message}
}

func renderTemplate(tmplStr string, data map[string]any) string {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr
	}
	tmpl, err := template.New("").Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}
	return strings.TrimSpace(strings.ReplaceAll(buf.String(), "<no value>", ""))
}

// ============================================================================
// "Did you mean?" suggestions
// ============================================================================

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// threshold is the largest edit distance still worth suggesting for input.
func threshold(input string) int {
	switch {
	case len(input) >= 7:
		return 3
	case len(input) >= 4:
		return 2
	}
	return 1
}

// FindClosestMatch returns the candidate nearest to input, or "" when
// nothing is close enough. Exact matches are never suggested.
func FindClosestMatch(input string, candidates []string) string {
	matches := FindTopMatches(input, candidates, 1)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// FindTopMatches returns up to n candidates within the edit threshold,
// nearest first.
func FindTopMatches(input string, candidates []string, n int) []string {
	if input == "" || n <= 0 {
		return nil
	}
	type match struct {
		value    string
		distance int
	}
	lower := strings.ToLower(input)
	limit := threshold(input)

	var matches []match
	for _, c := range candidates {
		d := levenshteinDistance(lower, strings.ToLower(c))
		if d > 0 && d <= limit {
			matches = append(matches, match{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	out := make([]string, 0, min(n, len(matches)))
	for i := 0; i < len(matches) && i < n; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// DidYouMean formats a suggestion hint, or returns "" when match is empty.
func DidYouMean(match string) string {
	if match == "" {
		return ""
	}
	return fmt.Sprintf("Did you mean `%s`?", match)
}

// NewUndefinedVariable creates an undefined variable error, suggesting the
// closest visible name.
func NewUndefinedVariable(name string, visible []string) *FiltrError {
	return New("UNDEF-0001", map[string]any{"Name": name}).
		WithHint(DidYouMean(FindClosestMatch(name, visible)))
}

// NewMissingColumn creates an error for an absent column of a dataset,
// suggesting the closest existing column.
func NewMissingColumn(code, name string, columns []string) *FiltrError {
	return New(code, map[string]any{"Name": name}).
		WithHint(DidYouMean(FindClosestMatch(name, columns)))
}
