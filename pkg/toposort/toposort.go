package toposort

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"sort"
)

// Graph represents a directed acyclic graph keyed by string node names.
type Graph struct {
	symbols  *SymbolTable
	intGraph *IntGraph
}

// NewGraph initializes a new Graph.
func NewGraph() *Graph {
	return &Graph{
		symbols:  NewSymbolTable(),
		intGraph: NewIntGraph(),
	}
}

// Copy clones the graph and returns the independent copy.
func (graph *Graph) Copy() *Graph {
	clone := NewGraph()

	clone.symbols.lock.Lock()
	graph.symbols.lock.RLock()

	maps.Copy(clone.symbols.strToID, graph.symbols.strToID)

	clone.symbols.idToStr = make([]string, len(graph.symbols.idToStr))
	copy(clone.symbols.idToStr, graph.symbols.idToStr)
	graph.symbols.lock.RUnlock()
	clone.symbols.lock.Unlock()

	clone.intGraph.EnsureCapacity(len(graph.intGraph.nodes))

	for nodeIdx, neighbors := range graph.intGraph.nodes {
		if neighbors != nil {
			clone.intGraph.nodes[nodeIdx] = make([]int, len(neighbors))
			copy(clone.intGraph.nodes[nodeIdx], neighbors)
		}
	}

	clone.intGraph.inDegree = make([]int, len(graph.intGraph.inDegree))
	copy(clone.intGraph.inDegree, graph.intGraph.inDegree)
	clone.intGraph.nodeCount = graph.intGraph.nodeCount

	return clone
}

// AddNode inserts a new node into the graph.
func (graph *Graph) AddNode(name string) bool {
	graph.symbols.lock.RLock()
	_, exists := graph.symbols.strToID[name]
	graph.symbols.lock.RUnlock()

	if exists {
		return false
	}

	id := graph.symbols.Intern(name)

	return graph.intGraph.AddNode(id)
}

// AddEdge inserts the link from "from" node to "to" node.
func (graph *Graph) AddEdge(from, to string) int {
	src := graph.symbols.Intern(from)
	dst := graph.symbols.Intern(to)

	graph.intGraph.AddNode(src)
	graph.intGraph.AddNode(dst)

	if graph.intGraph.AddEdge(src, dst) {
		return graph.intGraph.inDegree[dst]
	}

	return graph.intGraph.inDegree[dst]
}

// RemoveEdge deletes the link from "from" node to "to" node.
func (graph *Graph) RemoveEdge(from, to string) bool {
	graph.symbols.lock.RLock()
	src, ok1 := graph.symbols.strToID[from]
	dst, ok2 := graph.symbols.strToID[to]
	graph.symbols.lock.RUnlock()

	if !ok1 || !ok2 {
		return false
	}

	return graph.intGraph.RemoveEdge(src, dst)
}

// Toposort sorts the nodes in the graph in topological order. The bool
// result is false if the graph contains a cycle.
func (graph *Graph) Toposort() ([]string, bool) {
	ids, ok := graph.intGraph.TopoSort()

	result := make([]string, len(ids))
	for idx, id := range ids {
		result[idx] = graph.symbols.Resolve(id)
	}

	return result, ok
}

// BreadthSort sorts the nodes in the graph in BFS order, starting from
// every zero in-degree node in lexicographic order.
func (graph *Graph) BreadthSort() []string {
	nodeCount := len(graph.intGraph.nodes)
	inDegree := make([]int, nodeCount)
	copy(inDegree, graph.intGraph.inDegree)

	queue := make([]int, 0)

	for idx := range nodeCount {
		if graph.symbols.Resolve(idx) != "" && inDegree[idx] == 0 {
			queue = append(queue, idx)
		}
	}

	sort.Slice(queue, func(i, j int) bool {
		return graph.symbols.Resolve(queue[i]) < graph.symbols.Resolve(queue[j])
	})

	visited := make(map[int]bool)
	result := make([]string, 0, nodeCount)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if !visited[cur] {
			visited[cur] = true
			result = append(result, graph.symbols.Resolve(cur))

			children := graph.intGraph.nodes[cur]

			childIDs := make([]int, len(children))
			copy(childIDs, children)
			sort.Slice(childIDs, func(i, j int) bool {
				return graph.symbols.Resolve(childIDs[i]) < graph.symbols.Resolve(childIDs[j])
			})

			queue = append(queue, childIDs...)
		}
	}

	return result
}

// FindCycle returns the cycle in the graph which contains "seed" node, or
// an empty slice if seed isn't part of one.
func (graph *Graph) FindCycle(seed string) []string {
	graph.symbols.lock.RLock()
	id, exists := graph.symbols.strToID[seed]
	graph.symbols.lock.RUnlock()

	if !exists {
		return []string{}
	}

	cycleIDs := graph.intGraph.FindCycle(id)

	if len(cycleIDs) > 1 && cycleIDs[0] == cycleIDs[len(cycleIDs)-1] {
		cycleIDs = cycleIDs[:len(cycleIDs)-1]
	}

	result := make([]string, len(cycleIDs))
	for idx, cid := range cycleIDs {
		result[idx] = graph.symbols.Resolve(cid)
	}

	return result
}

// FindParents returns the other ends of incoming edges.
func (graph *Graph) FindParents(to string) []string {
	graph.symbols.lock.RLock()
	targetID, exists := graph.symbols.strToID[to]
	graph.symbols.lock.RUnlock()

	if !exists {
		return []string{}
	}

	var parents []string

	for nodeIdx, children := range graph.intGraph.nodes {
		if slices.Contains(children, targetID) {
			parents = append(parents, graph.symbols.Resolve(nodeIdx))
		}
	}

	sort.Strings(parents)

	return parents
}

// FindChildren returns the other ends of outgoing edges.
func (graph *Graph) FindChildren(from string) []string {
	graph.symbols.lock.RLock()
	src, exists := graph.symbols.strToID[from]
	graph.symbols.lock.RUnlock()

	if !exists {
		return []string{}
	}

	if src >= len(graph.intGraph.nodes) {
		return []string{}
	}

	childrenIDs := graph.intGraph.nodes[src]

	children := make([]string, len(childrenIDs))
	for idx, neighbor := range childrenIDs {
		children[idx] = graph.symbols.Resolve(neighbor)
	}

	sort.Strings(children)

	return children
}

// Serialize outputs the graph in Graphviz format, sorted nodes providing
// the index prefix used to disambiguate same-named nodes in the output.
func (graph *Graph) Serialize(sorted []string) string {
	node2index := map[string]int{}
	for index, node := range sorted {
		node2index[node] = index
	}

	var buffer bytes.Buffer

	buffer.WriteString("digraph wdlrun {\n")

	nodesFrom := graph.symbols.idToStr
	sortedNodesFrom := make([]string, len(nodesFrom))
	copy(sortedNodesFrom, nodesFrom)
	sort.Strings(sortedNodesFrom)

	for _, nodeFrom := range sortedNodesFrom {
		children := graph.FindChildren(nodeFrom)
		for _, nodeTo := range children {
			buffer.WriteString(fmt.Sprintf("  \"%d %s\" -> \"%d %s\"\n",
				node2index[nodeFrom], nodeFrom, node2index[nodeTo], nodeTo))
		}
	}

	buffer.WriteString("}")

	return buffer.String()
}
