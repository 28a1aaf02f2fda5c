// Package cqlerr defines the error classes surfaced by translation,
// execution and authorization.
//
// Errors are ordinary cockroachdb/errors values carrying a class marker, so
// callers test them with errors.Is against the exported sentinels and can
// still unwrap the underlying cause.
package cqlerr

import (
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// Class markers.
var (
	ErrParse                 = errors.New("parse error")
	ErrUnsupportedFeature    = errors.New("unsupported feature")
	ErrMissingRequiredClause = errors.New("missing required clause")
	ErrAmbiguousName         = errors.New("ambiguous name resolution")
	ErrInvalidStatement      = errors.New("invalid statement")
	ErrExecution             = errors.New("execution error")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrNoTranslator          = errors.New("no translator")
)

var classes = []struct {
	marker error
	name   string
}{
	{ErrParse, "ParseError"},
	{ErrUnsupportedFeature, "UnsupportedFeatureError"},
	{ErrMissingRequiredClause, "MissingRequiredClauseError"},
	{ErrAmbiguousName, "AmbiguousNameResolutionError"},
	{ErrInvalidStatement, "InvalidStatementError"},
	{ErrExecution, "ExecutionError"},
	{ErrPermissionDenied, "PermissionDeniedError"},
	{ErrNoTranslator, "NoTranslatorError"},
}

// Category returns the class name of err, or "InternalError" when err
// carries no known marker.
func Category(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range classes {
		if errors.Is(err, c.marker) {
			return c.name
		}
	}
	return "InternalError"
}

// Parse wraps an error returned by the statement parser.
func Parse(err error, input string) error {
	const maxInput = 80
	if len(input) > maxInput {
		cut := maxInput
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = input[:cut] + "..."
	}
	return errors.Mark(errors.Wrapf(err, "failed to parse %q", input), ErrParse)
}

// Unsupportedf reports a source construct the target store cannot express.
func Unsupportedf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrUnsupportedFeature)
}

// MissingClausef reports a clause the target store requires but the
// statement lacks.
func MissingClausef(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrMissingRequiredClause)
}

// AmbiguousNamef reports a name that could not be recovered from the AST.
func AmbiguousNamef(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrAmbiguousName)
}

// Invalidf reports a structurally malformed statement.
func Invalidf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidStatement)
}

// Execution wraps a storage failure.
func Execution(err error) error {
	return errors.Mark(errors.Wrap(err, "failed to execute statement"), ErrExecution)
}

// PermissionDeniedf reports a guard rejection.
func PermissionDeniedf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrPermissionDenied)
}

// NoTranslator reports a statement no translator accepts.
func NoTranslator(kind string) error {
	return errors.Mark(errors.Newf("no translator for statement kind %q", kind), ErrNoTranslator)
}

// WithHint attaches a user-facing suggestion to err.
func WithHint(err error, hint string) error {
	return errors.WithHint(err, hint)
}

// Diagnostic renders err and its hints as a single user-facing message.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if hint := errors.FlattenHints(err); hint != "" {
		msg += " (hint: " + hint + ")"
	}
	return msg
}
