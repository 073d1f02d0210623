package engine

import (
	"github.com/logdog-io/logdog/internal/config"
)

// Edge is one expected node-to-node transition with its timeout and the
// rule it came from.
type Edge struct {
	Source      string
	Target      string
	TimeoutMS   int64
	Rule        string
	Description string
}

// Graph maps each node to its outgoing edges. It is built once from the
// rule set and read-only afterwards; the tracker and the engine's
// diagnostics share it freely.
//
// INVARIANT: a node's edge list is in rule declaration order. Branch ties
// (two rules leaving the same node) resolve to the earlier-declared rule,
// so the order must never be re-sorted.
type Graph struct {
	edges map[string][]Edge
}

// BuildGraph flattens rules into an adjacency structure. Each rule is
// walked from its start node through its transition sequence, producing one
// edge per hop; a single rule may therefore contribute a multi-hop chain.
// Edges from different rules that share a source node are simply appended
// in declaration order, without deduplication or conflict detection.
func BuildGraph(rules []config.Rule) *Graph {
	g := &Graph{edges: make(map[string][]Edge)}
	for _, rule := range rules {
		source := rule.Start
		for _, tr := range rule.Transitions {
			g.edges[source] = append(g.edges[source], Edge{
				Source:      source,
				Target:      tr.To,
				TimeoutMS:   tr.TimeoutMS,
				Rule:        rule.Name,
				Description: rule.Description,
			})
			source = tr.To
		}
	}
	return g
}

// Edges returns the outgoing edges of node in declaration order. The
// returned slice is shared; callers must not mutate it.
func (g *Graph) Edges(node string) []Edge {
	return g.edges[node]
}

// HasEdges reports whether node has at least one outgoing edge.
func (g *Graph) HasEdges(node string) bool {
	return len(g.edges[node]) > 0
}

// MinTimeout returns the minimum timeout among node's outgoing edges. The
// second result is false for nodes with no outgoing edges, which never time
// out: there is nothing to wait for.
func (g *Graph) MinTimeout(node string) (int64, bool) {
	edges := g.edges[node]
	if len(edges) == 0 {
		return 0, false
	}
	min := edges[0].TimeoutMS
	for _, e := range edges[1:] {
		if e.TimeoutMS < min {
			min = e.TimeoutMS
		}
	}
	return min, true
}

// Targets returns the target node of every outgoing edge of node, in edge
// order. Used for timeout diagnostics ("expected one of: ...").
func (g *Graph) Targets(node string) []string {
	edges := g.edges[node]
	targets := make([]string, len(edges))
	for i, e := range edges {
		targets[i] = e.Target
	}
	return targets
}

// NodeCount returns the number of nodes with outgoing edges.
func (g *Graph) NodeCount() int {
	return len(g.edges)
}
