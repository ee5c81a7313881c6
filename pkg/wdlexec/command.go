package wdlexec

import (
	"fmt"
	"strings"

	"github.com/wdlrun/wdlrun/pkg/scope"
	"github.com/wdlrun/wdlrun/pkg/syntax"
)

// commandText joins a task's command-section lines back into one script.
// The reduced-grammar parser captures each command line as a raw
// PrivateDecl token rather than a single multi-line literal — a
// conformant grammar would hand the evaluator one KindStringInterpart
// chain for the whole <<<...>>> block instead.
func commandText(task *syntax.Node) string {
	for _, section := range task.Children {
		if section.Kind != syntax.KindCommandSection {
			continue
		}

		lines := make([]string, 0, len(section.Children))
		for _, line := range section.Children {
			lines = append(lines, line.Token)
		}

		return strings.Join(lines, "\n")
	}

	return ""
}

// renderCommand substitutes every ~{name}/${name} placeholder in raw with
// the string form of name's current binding, per spec.md §4.5's "None
// coerces to empty string within a placeholder." Placeholders here are
// bare identifiers only, matching what the reduced grammar's command
// lines can express.
func renderCommand(raw string, sc *scope.Scope, imports map[string]*scope.Scope) (string, error) {
	var sb strings.Builder

	i := 0
	for i < len(raw) {
		start, openLen := -1, 0

		if strings.HasPrefix(raw[i:], "~{") || strings.HasPrefix(raw[i:], "${") {
			start = i
			openLen = 2
		}

		if start < 0 {
			sb.WriteByte(raw[i])
			i++

			continue
		}

		shut := strings.Index(raw[start+openLen:], "}")
		if shut < 0 {
			sb.WriteString(raw[start:])

			break
		}

		name := strings.TrimSpace(raw[start+openLen : start+openLen+shut])

		b, ok := scope.QualifiedLookup(sc, imports, name)
		if !ok {
			return "", fmt.Errorf("wdlexec: command references undefined name %q", name)
		}

		if b.Bound {
			sb.WriteString(b.Value.String())
		}

		i = start + openLen + shut + 1
	}

	return sb.String(), nil
}
