// Package graph is a simple directed graph over wallet addresses. Repeated
// transfers between the same ordered pair collapse into one edge.
package graph

import "sort"

// Edge is an ordered (from, to) pair.
type Edge struct {
	From string
	To   string
}

// Reverse returns the edge pointing the other way.
func (e Edge) Reverse() Edge {
	return Edge{From: e.To, To: e.From}
}

// SelfLoop reports whether the edge starts and ends at the same wallet.
func (e Edge) SelfLoop() bool {
	return e.From == e.To
}

// Directed keeps out- and in-adjacency sets.
type Directed struct {
	out map[string]map[string]struct{}
	in  map[string]map[string]struct{}
}

func New() *Directed {
	return &Directed{
		out: make(map[string]map[string]struct{}),
		in:  make(map[string]map[string]struct{}),
	}
}

func (g *Directed) ensure(n string) {
	if _, ok := g.out[n]; !ok {
		g.out[n] = make(map[string]struct{})
		g.in[n] = make(map[string]struct{})
	}
}

// AddEdge adds from->to, creating both nodes as needed. It reports whether the
// edge is new.
func (g *Directed) AddEdge(from, to string) bool {
	g.ensure(from)
	g.ensure(to)
	if _, ok := g.out[from][to]; ok {
		return false
	}
	g.out[from][to] = struct{}{}
	g.in[to][from] = struct{}{}
	return true
}

func (g *Directed) HasEdge(from, to string) bool {
	_, ok := g.out[from][to]
	return ok
}

// Len is the number of distinct nodes.
func (g *Directed) Len() int {
	return len(g.out)
}

// OutDegree and InDegree count distinct neighbours. A self-loop counts once in
// each direction.
func (g *Directed) OutDegree(n string) int { return len(g.out[n]) }
func (g *Directed) InDegree(n string) int  { return len(g.in[n]) }

// Nodes returns node ids in ascending order.
func (g *Directed) Nodes() []string {
	nodes := make([]string, 0, len(g.out))
	for n := range g.out {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// Edges returns all edges ordered by (From, To).
func (g *Directed) Edges() []Edge {
	var edges []Edge
	for _, from := range g.Nodes() {
		tos := make([]string, 0, len(g.out[from]))
		for to := range g.out[from] {
			tos = append(tos, to)
		}
		sort.Strings(tos)
		for _, to := range tos {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// DegreeCentrality returns (in+out)/(N-1) for every node. Graphs with at most
// one node score zero.
func (g *Directed) DegreeCentrality() map[string]float64 {
	out := make(map[string]float64, len(g.out))
	n := g.Len()
	if n <= 1 {
		for node := range g.out {
			out[node] = 0
		}
		return out
	}

	scale := 1.0 / float64(n-1)
	for node := range g.out {
		out[node] = float64(g.InDegree(node)+g.OutDegree(node)) * scale
	}
	return out
}
