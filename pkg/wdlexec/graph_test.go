package wdlexec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdlrun/wdlrun/pkg/docgraph"
	"github.com/wdlrun/wdlrun/pkg/syntax"
	"github.com/wdlrun/wdlrun/pkg/wdlexec"
)

func parseWorkflow(t *testing.T, source string) *docgraph.WorkflowDef {
	t.Helper()

	tree, diags := syntax.DefaultMockParser.Parse("wf.wdl", []byte(source))
	require.Empty(t, diags)

	var wfNode *syntax.Node

	for _, c := range tree.Children {
		if c.Kind == syntax.KindWorkflowDef {
			wfNode = c
		}
	}

	require.NotNil(t, wfNode)

	return &docgraph.WorkflowDef{Name: wfNode.Token, Node: wfNode}
}

func TestBuildKeepsIndependentDeclarations(t *testing.T) {
	source := "version 1.0\n" +
		"workflow main {\n" +
		"b = 2\n" +
		"a = 1\n" +
		"}\n"

	wf := parseWorkflow(t, source)

	g, err := wdlexec.Build(wf, nil)
	require.NoError(t, err)

	order := g.Order()
	require.Len(t, order, 2)
}

func TestBuildDetectsCallAlias(t *testing.T) {
	source := "version 1.0\n" +
		"workflow main {\n" +
		"call greet as hi\n" +
		"}\n"

	wf := parseWorkflow(t, source)

	g, err := wdlexec.Build(wf, nil)
	require.NoError(t, err)

	order := g.Order()
	require.Len(t, order, 1)
	assert.Equal(t, wdlexec.NodeCall, order[0].Kind)
	assert.Equal(t, "hi", order[0].Name)
	assert.Equal(t, "greet", order[0].CallTarget)
}

func TestBuildExpandsScatterBody(t *testing.T) {
	source := "version 1.0\n" +
		"workflow main {\n" +
		"items = 1\n" +
		"scatter (x in items) {\n" +
		"call greet\n" +
		"}\n" +
		"}\n"

	wf := parseWorkflow(t, source)

	g, err := wdlexec.Build(wf, nil)
	require.NoError(t, err)

	order := g.Order()
	require.Len(t, order, 2)

	var scatterNode *wdlexec.Node

	for _, n := range order {
		if n.Kind == wdlexec.NodeScatter {
			scatterNode = n
		}
	}

	require.NotNil(t, scatterNode)
	assert.Equal(t, "x", scatterNode.IterVar)
	assert.Equal(t, "items", scatterNode.CollectionExpr)
	require.Len(t, scatterNode.Body, 1)
	assert.Equal(t, wdlexec.NodeCall, scatterNode.Body[0].Kind)
}

func TestBuildDetectsConditionalCondition(t *testing.T) {
	source := "version 1.0\n" +
		"workflow main {\n" +
		"flag = true\n" +
		"if (flag) {\n" +
		"call greet\n" +
		"}\n" +
		"}\n"

	wf := parseWorkflow(t, source)

	g, err := wdlexec.Build(wf, nil)
	require.NoError(t, err)

	order := g.Order()
	require.Len(t, order, 2)

	var condNode *wdlexec.Node

	for _, n := range order {
		if n.Kind == wdlexec.NodeConditional {
			condNode = n
		}
	}

	require.NotNil(t, condNode)
	assert.Equal(t, "flag", condNode.ConditionExpr)
}
