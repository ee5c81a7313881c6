package wdlexec

import (
	"fmt"

	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/syntax"
	"github.com/wdlrun/wdlrun/pkg/toposort"
)

// Graph is a workflow body expanded into Phase A's static node list plus
// its dependency order, grounded on the teacher's pkg/toposort.Graph for
// cycle-free ordering (spec.md §4.7/§4.8 both lean on the same topo-sort
// primitive — document imports there, call/declaration dependencies here).
type Graph struct {
	Nodes  []*Node // top-level statements, in source order
	byName map[string]*Node
	order  []string
}

// Build expands wf's body into a Graph. knownNames seeds names already in
// scope when the workflow runs (its own declared inputs), so calls/
// scatters that reference them don't spuriously fail dependency lookup.
func Build(wf *docgraph.WorkflowDef, knownNames []string) (*Graph, error) {
	g := &Graph{byName: make(map[string]*Node)}

	seen := make(map[string]bool, len(knownNames))
	for _, n := range knownNames {
		seen[n] = true
	}

	var bodyChildren []*syntax.Node

	for _, section := range wf.Node.Children {
		switch section.Kind {
		case syntax.KindInputSection, syntax.KindOutputSection:
			continue
		default:
			bodyChildren = append(bodyChildren, section)
		}
	}

	nodes, err := buildBody(bodyChildren, seen, 0)
	if err != nil {
		return nil, err
	}

	g.Nodes = nodes

	for _, n := range nodes {
		registerNames(g.byName, n)
	}

	topo := toposort.NewGraph()

	for _, n := range nodes {
		topo.AddNode(n.ID)
	}

	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if depNode, ok := g.byName[dep]; ok && depNode.ID != n.ID {
				topo.AddEdge(depNode.ID, n.ID)
			}
		}
	}

	order, ok := topo.Toposort()
	if !ok {
		return nil, fmt.Errorf("wdlexec: workflow %q has a dependency cycle", wf.Name)
	}

	g.order = order

	return g, nil
}

func registerNames(byName map[string]*Node, n *Node) {
	for _, name := range n.outputNames() {
		byName[name] = n
	}
}

// buildBody walks one level of workflow-body statements, recursing into
// Scatter/Conditional nodes. idSeq counts statements within this one body
// and restarts at each recursion, so IDs (depth, position, name) are unique
// among a body's statements; two bodies at the same depth can repeat one.
func buildBody(children []*syntax.Node, seen map[string]bool, depth int) ([]*Node, error) {
	var (
		nodes []*Node
		idSeq int
	)

	for _, child := range children {
		idSeq++

		switch child.Kind {
		case syntax.KindDeclaration:
			var initText string
			if len(child.Children) > 0 {
				initText = child.Children[0].Token
			}

			n := &Node{
				ID:        fmt.Sprintf("decl:%d:%d:%s", depth, idSeq, child.Token),
				Kind:      NodeDeclaration,
				Name:      child.Token,
				Syntax:    child,
				DependsOn: filterKnown(referencedNames(initText), seen),
			}
			nodes = append(nodes, n)
			seen[n.Name] = true

		case syntax.KindCallStatement:
			target, alias := callParts(child.Token)
			n := &Node{
				ID:         fmt.Sprintf("call:%d:%d:%s", depth, idSeq, alias),
				Kind:       NodeCall,
				Name:       alias,
				Syntax:     child,
				CallTarget: target,
				DependsOn:  filterKnown(referencedNames(child.Token), seen),
			}
			nodes = append(nodes, n)
			seen[n.Name] = true

		case syntax.KindScatter:
			iterVar, collection := scatterParts(child.Token)

			innerSeen := make(map[string]bool, len(seen)+1)
			for k := range seen {
				innerSeen[k] = true
			}

			innerSeen[iterVar] = true

			body, err := buildBody(child.Children, innerSeen, depth+1)
			if err != nil {
				return nil, err
			}

			n := &Node{
				ID:             fmt.Sprintf("scatter:%d:%d:%s", depth, idSeq, iterVar),
				Kind:           NodeScatter,
				Name:           iterVar,
				Syntax:         child,
				IterVar:        iterVar,
				CollectionExpr: collection,
				Body:           body,
				DependsOn:      filterKnown(referencedNames(collection), seen),
			}
			nodes = append(nodes, n)

			for _, name := range n.outputNames() {
				seen[name] = true
			}

		case syntax.KindConditional:
			condition := conditionalParts(child.Token)

			innerSeen := make(map[string]bool, len(seen))
			for k := range seen {
				innerSeen[k] = true
			}

			body, err := buildBody(child.Children, innerSeen, depth+1)
			if err != nil {
				return nil, err
			}

			n := &Node{
				ID:            fmt.Sprintf("if:%d:%d", depth, idSeq),
				Kind:          NodeConditional,
				Syntax:        child,
				ConditionExpr: condition,
				Body:          body,
				DependsOn:     filterKnown(referencedNames(condition), seen),
			}
			nodes = append(nodes, n)

			for _, name := range n.outputNames() {
				seen[name] = true
			}
		}
	}

	return nodes, nil
}

func filterKnown(names []string, known map[string]bool) []string {
	var out []string

	seenThis := make(map[string]bool, len(names))

	for _, n := range names {
		if known[n] && !seenThis[n] {
			out = append(out, n)
			seenThis[n] = true
		}
	}

	return out
}

// Order returns the graph's nodes sorted into dependency order.
func (g *Graph) Order() []*Node {
	out := make([]*Node, 0, len(g.order))

	for _, id := range g.order {
		for _, n := range g.Nodes {
			if n.ID == id {
				out = append(out, n)

				break
			}
		}
	}

	return out
}
