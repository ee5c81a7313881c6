package syntax

import "github.com/wdlrun/wdlrun/pkg/diag"

// Parser is the external parse service the core consumes (spec.md §4.2):
// "The core consumes an already-produced syntax tree plus lex diagnostics."
// Concrete WDL grammar lives outside this module; DefaultMockParser (in
// mockparser.go) is a reduced stand-in used only so docgraph/wdlexec tests have something
// concrete to drive.
type Parser interface {
	Parse(uri string, source []byte) (*Node, []diag.Diagnostic)
}

// ParseFunc adapts a plain function to Parser.
type ParseFunc func(uri string, source []byte) (*Node, []diag.Diagnostic)

// Parse calls f.
func (f ParseFunc) Parse(uri string, source []byte) (*Node, []diag.Diagnostic) {
	return f(uri, source)
}
