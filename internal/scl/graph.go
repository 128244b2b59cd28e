package scl

import (
	"fmt"
	"sort"
	"strings"
)

// EffectGraph is the DAG of effects owned by one session. Queries are
// read-only; the graph as a whole is replaced by the session container.
type EffectGraph struct {
	Nodes []EffectNode `json:"nodes"`
	Edges []Edge       `json:"edges"`
}

// Clone returns a deep copy of the graph.
func (g EffectGraph) Clone() EffectGraph {
	return EffectGraph{
		Nodes: cloneEffectNodes(g.Nodes),
		Edges: cloneEdges(g.Edges),
	}
}

// Node looks up a node by id. Absence is not an error.
func (g EffectGraph) Node(id string) (EffectNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return EffectNode{}, false
}

// Endpoints resolves an edge's from/to nodes. Either may be absent.
func (g EffectGraph) Endpoints(e Edge) (from EffectNode, to EffectNode, ok bool) {
	from, okFrom := g.Node(e.From)
	to, okTo := g.Node(e.To)
	return from, to, okFrom && okTo
}

// ByOrder groups nodes by causal order. Orders with no nodes are absent.
func (g EffectGraph) ByOrder() map[int][]EffectNode {
	out := make(map[int][]EffectNode)
	for _, n := range g.Nodes {
		out[n.Order] = append(out[n.Order], n)
	}
	return out
}

// Orders returns the distinct node orders present, ascending.
func (g EffectGraph) Orders() []int {
	seen := map[int]struct{}{}
	for _, n := range g.Nodes {
		seen[n.Order] = struct{}{}
	}
	orders := make([]int, 0, len(seen))
	for o := range seen {
		orders = append(orders, o)
	}
	sort.Ints(orders)
	return orders
}

// FilterDomain returns the nodes in the given domain.
func (g EffectGraph) FilterDomain(d Domain) []EffectNode {
	var out []EffectNode
	for _, n := range g.Nodes {
		if n.Domain == d {
			out = append(out, n)
		}
	}
	return out
}

// Match returns nodes whose title or justification contains the query,
// case-insensitively. An empty query matches nothing.
func (g EffectGraph) Match(query string) []EffectNode {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	var out []EffectNode
	for _, n := range g.Nodes {
		if strings.Contains(strings.ToLower(n.Title), query) ||
			strings.Contains(strings.ToLower(n.Justification), query) {
			out = append(out, n)
		}
	}
	return out
}

// DomainCounts returns how many nodes fall in each domain.
func (g EffectGraph) DomainCounts() map[Domain]int {
	out := make(map[Domain]int)
	for _, n := range g.Nodes {
		out[n.Domain]++
	}
	return out
}

// CountByOrder returns the number of nodes with the given order.
func (g EffectGraph) CountByOrder(order int) int {
	count := 0
	for _, n := range g.Nodes {
		if n.Order == order {
			count++
		}
	}
	return count
}

// Validate checks the graph's structural invariants. Self-loops and dangling
// edge endpoints are hard errors. Order decreasing along an edge is a display
// invariant only, reported as a warning string, never an error.
func (g EffectGraph) Validate() (warnings []string, err error) {
	ids := make(map[string]EffectNode, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("graph: node with empty id (%q)", n.Title)
		}
		if _, dup := ids[n.ID]; dup {
			return nil, fmt.Errorf("graph: duplicate node id %q", n.ID)
		}
		if n.Order < 1 || n.Order > 3 {
			return nil, fmt.Errorf("graph: node %q has order %d, want 1..3", n.ID, n.Order)
		}
		ids[n.ID] = n
	}
	for _, e := range g.Edges {
		if e.From == e.To {
			return nil, fmt.Errorf("graph: self-loop on %q", e.From)
		}
		from, okFrom := ids[e.From]
		to, okTo := ids[e.To]
		if !okFrom || !okTo {
			return nil, fmt.Errorf("graph: edge %s->%s references missing node", e.From, e.To)
		}
		if to.Order < from.Order {
			warnings = append(warnings, fmt.Sprintf("edge %s->%s decreases order (%d -> %d)", e.From, e.To, from.Order, to.Order))
		}
	}
	return warnings, nil
}
