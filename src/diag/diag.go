// Package diag collects compiler diagnostics across the lexer, parser and
// type checker and reports them in stable, span-sorted order. It is the
// implementation of the diagnostic sink described by the specification's
// component H: the first diagnostic does not abort compilation, but any
// diagnostic recorded at or before the type checker suppresses IR emission.
package diag

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/slices"
)

// Kind is the taxonomy of diagnostic kinds, grouped by the phase that
// raises them.
type Kind int

const (
	// Lexical.
	LexError Kind = iota

	// Syntactic.
	UnexpectedToken
	ExpectedLValue
	UnbalancedDelimiter
	NestedFunction
	MissingParamType
	MissingReturnType

	// Scope.
	Duplicate
	Undefined
	NotCallable
	NotAnArray
	ParamNameCollision

	// Type.
	VoidVariable
	VoidReturnsValue
	MissingReturnValue
	ArgCountMismatch
	NonIntegerModulo
	NonIntegerIndex
	ArrayDimMismatch
	NarrowingError
	TypeMismatch
	InvalidUnaryOperand

	// Invariant.
	InternalError
)

var kindNames = [...]string{
	LexError:            "lex error",
	UnexpectedToken:     "unexpected token",
	ExpectedLValue:      "expected lvalue",
	UnbalancedDelimiter: "unbalanced delimiter",
	NestedFunction:      "nested function definition",
	MissingParamType:    "missing parameter type",
	MissingReturnType:   "missing return type",
	Duplicate:           "duplicate declaration",
	Undefined:           "undefined identifier",
	NotCallable:         "not callable",
	NotAnArray:          "not an array",
	ParamNameCollision:  "parameter name collision",
	VoidVariable:        "void variable",
	VoidReturnsValue:    "void function returns a value",
	MissingReturnValue:  "missing return value",
	ArgCountMismatch:    "argument count mismatch",
	NonIntegerModulo:    "non-integer modulo operand",
	NonIntegerIndex:     "non-integer array index",
	ArrayDimMismatch:    "array dimension mismatch",
	NarrowingError:      "narrowing conversion",
	TypeMismatch:        "type mismatch",
	InvalidUnaryOperand: "invalid unary operand",
	InternalError:       "internal compiler error",
}

// String renders the kind's stable taxonomy name.
func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "unknown diagnostic"
	}
	return kindNames[k]
}

// Span identifies a byte range in the source, expressed as a line and
// column, matching the position tracking maintained by the lexer.
type Span struct {
	Line int
	Col  int
}

// String renders a span as "line:col".
func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Col)
}

// Diagnostic is a single reported error with its kind, primary location,
// message and an optional secondary span pointing at a prior declaration
// (used for Duplicate).
type Diagnostic struct {
	Kind      Kind
	Primary   Span
	Secondary *Span
	Message   string
}

// Error implements the error interface, rendering a diagnostic as the CLI
// prints it to stderr.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("error: %s at %s: %s", d.Kind, d.Primary, d.Message)
}

// Sink accumulates diagnostics during compilation. It is not safe for
// concurrent use: the compiler pipeline is single-threaded end to end.
type Sink struct {
	diags []Diagnostic
	agg   *multierror.Error
}

// NewSink returns an empty diagnostic sink.
func NewSink() *Sink {
	return &Sink{}
}

// Report records a new diagnostic. Compilation continues; the caller
// decides whether to keep walking the current subtree or bail out of it.
func (s *Sink) Report(d Diagnostic) {
	s.diags = append(s.diags, d)
	s.agg = multierror.Append(s.agg, d)
}

// Reportf is a convenience wrapper for Report that formats the message.
func (s *Sink) Reportf(kind Kind, at Span, format string, args ...interface{}) {
	s.Report(Diagnostic{Kind: kind, Primary: at, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any diagnostic has been recorded.
func (s *Sink) HasErrors() bool {
	return len(s.diags) > 0
}

// Diagnostics returns the recorded diagnostics sorted by span start, the
// stable order in which they are printed and checked by tests.
func (s *Sink) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)
	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		if a.Primary.Line != b.Primary.Line {
			return a.Primary.Line - b.Primary.Line
		}
		return a.Primary.Col - b.Primary.Col
	})
	return out
}

// Err returns the aggregate multierror.Error for the recorded diagnostics,
// or nil if none were recorded. This is the value threaded back up through
// the pipeline's error returns.
func (s *Sink) Err() error {
	if s.agg == nil {
		return nil
	}
	s.agg.ErrorFormat = formatDiagnostics
	return s.agg
}

// formatDiagnostics renders a multierror.Error's wrapped diagnostics one
// per line, prefixed the way spec.md §7 prescribes: "error: <message>".
func formatDiagnostics(errs []error) string {
	var sb strings.Builder
	for i, e := range errs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}
