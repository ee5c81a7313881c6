// Package diag implements the diagnostic value type shared by the parser,
// type checker, resolver, and evaluator: a pure, emitter-agnostic container
// with no side effects and no global registry (spec.md §4.1).
package diag

import (
	"fmt"
	"sort"

	"github.com/wdlrun/wdlrun/pkg/span"
)

// Severity classifies a Diagnostic.
type Severity int

// Severity levels, ordered most to least severe for sort purposes — note
// spec.md orders by "(uri, primary_span.start, severity)" without saying
// which direction; we put Error before Warning before Note so the most
// actionable diagnostics sort first within a tied span.
const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Label attaches a secondary span and message to a Diagnostic, e.g. "other
// branch here" alongside a unify failure's primary span.
type Label struct {
	Span    span.Span
	Message string
}

// Diagnostic is a value type: it never owns the source it refers to, and
// carries enough information for any emitter (terminal, LSP, JSON) to render
// it without reaching back into analyzer state.
type Diagnostic struct {
	Severity    Severity
	Message     string
	URI         string
	PrimarySpan span.Span
	Labels      []Label
	Fix         string
	RuleID      string
}

// newDiagnostic is the shared constructor behind the three severity helpers.
func newDiagnostic(sev Severity, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Message: msg}
}

// Error builds an error-severity Diagnostic.
func Error(msg string) Diagnostic { return newDiagnostic(SeverityError, msg) }

// Errorf builds an error-severity Diagnostic with fmt-style formatting.
func Errorf(format string, args ...any) Diagnostic {
	return newDiagnostic(SeverityError, fmt.Sprintf(format, args...))
}

// Warning builds a warning-severity Diagnostic.
func Warning(msg string) Diagnostic { return newDiagnostic(SeverityWarning, msg) }

// Note builds a note-severity Diagnostic.
func Note(msg string) Diagnostic { return newDiagnostic(SeverityNote, msg) }

// At sets the diagnostic's URI and primary span; most constructors are
// followed immediately by a call to At.
func (d Diagnostic) At(uri string, primary span.Span) Diagnostic {
	d.URI = uri
	d.PrimarySpan = primary

	return d
}

// WithLabel appends a secondary (span, message) label.
func (d Diagnostic) WithLabel(s span.Span, msg string) Diagnostic {
	d.Labels = append(d.Labels, Label{Span: s, Message: msg})

	return d
}

// WithFix attaches a suggested textual fix.
func (d Diagnostic) WithFix(text string) Diagnostic {
	d.Fix = text

	return d
}

// WithRule attaches a rule ID (used by the out-of-core lint ruleset when it
// reports through this same value type).
func (d Diagnostic) WithRule(id string) Diagnostic {
	d.RuleID = id

	return d
}

func (d Diagnostic) String() string {
	if d.URI == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}

	return fmt.Sprintf("%s:%s: %s: %s", d.URI, d.PrimarySpan, d.Severity, d.Message)
}

// Sort orders diagnostics by (uri, primary_span.start, severity) as
// required by spec.md §4.1, in place.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.URI != b.URI {
			return a.URI < b.URI
		}

		if a.PrimarySpan.Start != b.PrimarySpan.Start {
			return a.PrimarySpan.Start < b.PrimarySpan.Start
		}

		return a.Severity < b.Severity
	})
}

// HasErrors reports whether any diagnostic in diags is error-severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}

	return false
}
