package toposort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func index(s []string, v string) int {
	for i, e := range s {
		if e == v {
			return i
		}
	}

	return -1
}

func addNodes(g *Graph, names ...string) {
	for _, name := range names {
		g.AddNode(name)
	}
}

type edge struct {
	From string
	To   string
}

func TestToposortDuplicatedNode(t *testing.T) {
	graph := NewGraph()
	graph.AddNode("a")

	assert.False(t, graph.AddNode("a"))
}

func TestToposortRemoveNotExistEdge(t *testing.T) {
	graph := NewGraph()

	assert.False(t, graph.RemoveEdge("a", "b"))
}

func TestToposortWikipedia(t *testing.T) {
	graph := NewGraph()
	addNodes(graph, "2", "3", "5", "7", "8", "9", "10", "11")

	edges := []edge{
		{"7", "8"},
		{"7", "11"},
		{"5", "11"},
		{"3", "8"},
		{"3", "10"},
		{"11", "2"},
		{"11", "9"},
		{"11", "10"},
		{"8", "9"},
	}

	for _, e := range edges {
		graph.AddEdge(e.From, e.To)
	}

	result, ok := graph.Toposort()
	assert.True(t, ok)

	for _, e := range edges {
		i, j := index(result, e.From), index(result, e.To)
		assert.Less(t, i, j, "%v(%v) should precede %v(%v)", e.From, i, e.To, j)
	}
}

func TestToposortCycle(t *testing.T) {
	graph := NewGraph()
	addNodes(graph, "1", "2", "3")

	graph.AddEdge("1", "2")
	graph.AddEdge("2", "3")
	graph.AddEdge("3", "1")

	_, ok := graph.Toposort()
	assert.False(t, ok)
}

func TestToposortCopy(t *testing.T) {
	graph := NewGraph()
	addNodes(graph, "1", "2", "3")

	graph.AddEdge("1", "2")
	graph.AddEdge("2", "3")
	graph.AddEdge("3", "1")

	gc := graph.Copy()
	graph.RemoveEdge("1", "2")

	assert.Equal(t, []string{"2"}, gc.FindChildren("1"))
	assert.Equal(t, []string{}, graph.FindChildren("1"))
}

func TestToposortBreadthSort(t *testing.T) {
	graph := NewGraph()
	addNodes(graph, "0", "1", "2", "3", "4")

	graph.AddEdge("0", "1")
	graph.AddEdge("1", "2")
	graph.AddEdge("2", "3")
	graph.AddEdge("1", "3")
	graph.AddEdge("3", "4")
	graph.AddEdge("4", "1")

	order := graph.BreadthSort()

	var expected [5]string
	if order[2] == "2" {
		expected = [...]string{"0", "1", "2", "3", "4"}
	} else {
		expected = [...]string{"0", "1", "3", "2", "4"}
	}

	assert.Equal(t, expected[:], order)
}

func TestToposortFindCycle(t *testing.T) {
	graph := NewGraph()
	addNodes(graph, "1", "2", "3", "4", "5")

	graph.AddEdge("1", "2")
	graph.AddEdge("2", "3")
	graph.AddEdge("2", "4")
	graph.AddEdge("3", "1")
	graph.AddEdge("5", "1")

	cycle := graph.FindCycle("2")
	assert.Equal(t, []string{"2", "3", "1"}, cycle)

	cycle = graph.FindCycle("5")
	assert.Len(t, cycle, 0)
}

func TestToposortFindParents(t *testing.T) {
	graph := NewGraph()
	addNodes(graph, "1", "2", "3", "4", "5")

	graph.AddEdge("1", "2")
	graph.AddEdge("2", "3")
	graph.AddEdge("2", "4")
	graph.AddEdge("3", "1")
	graph.AddEdge("5", "1")

	assert.Equal(t, []string{"1"}, graph.FindParents("2"))
	assert.Equal(t, []string{"3", "5"}, graph.FindParents("1"))
}

func TestToposortFindChildren(t *testing.T) {
	graph := NewGraph()
	addNodes(graph, "1", "2", "3", "4", "5")

	graph.AddEdge("1", "2")
	graph.AddEdge("2", "3")
	graph.AddEdge("2", "4")
	graph.AddEdge("3", "1")
	graph.AddEdge("5", "1")

	assert.Equal(t, []string{"2"}, graph.FindChildren("1"))
	assert.Equal(t, []string{"3", "4"}, graph.FindChildren("2"))
}

func TestToposortSerialize(t *testing.T) {
	graph := NewGraph()
	addNodes(graph, "1", "2", "3", "4", "5")

	graph.AddEdge("1", "2")
	graph.AddEdge("2", "3")
	graph.AddEdge("2", "4")
	graph.AddEdge("3", "1")
	graph.AddEdge("5", "1")

	order := [...]string{"5", "4", "3", "2", "1"}
	gv := graph.Serialize(order[:])
	assert.Equal(t, `digraph wdlrun {
  "4 1" -> "3 2"
  "3 2" -> "2 3"
  "3 2" -> "1 4"
  "2 3" -> "4 1"
  "0 5" -> "4 1"
}`, gv)
}
