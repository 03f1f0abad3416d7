// Package topology derives triangle neighbourhoods from shared edges and
// flood-fills patches over them.
package topology

import (
	"sort"

	"github.com/Faultbox/sculptor/internal/sculpt"
)

// Graph is the read-only neighbourhood view the visitor walks.
type Graph interface {
	Tris() int
	Adjacency(t sculpt.TriID) sculpt.Adjacency
}

// Table is a per-triangle adjacency list.
type Table []sculpt.Adjacency

// Tris returns the number of triangles.
func (tb Table) Tris() int { return len(tb) }

// Adjacency returns t's neighbours, or an empty entry when t is out of range.
func (tb Table) Adjacency(t sculpt.TriID) sculpt.Adjacency {
	if int(t) >= len(tb) {
		return sculpt.NoAdjacency()
	}
	return tb[t]
}

// edge is one triangle side with its endpoints ordered low first.
type edge struct {
	lo, hi sculpt.VertID
	tri    sculpt.TriID
}

func makeEdge(a, b sculpt.VertID, t sculpt.TriID) edge {
	if a > b {
		a, b = b, a
	}
	return edge{lo: a, hi: b, tri: t}
}

// BuildAdjacency links every pair of triangles that share an edge. Edges
// owned by more than two triangles, or links that would overflow a
// triangle's three slots, are skipped and counted as anomalies. The result is
// symmetric: u is listed for t exactly when t is listed for u.
func BuildAdjacency(tris []sculpt.Tri) (Table, int) {
	edges := make([]edge, 0, len(tris)*3)
	for i, tri := range tris {
		t := sculpt.TriID(i)
		edges = append(edges,
			makeEdge(tri[0], tri[1], t),
			makeEdge(tri[1], tri[2], t),
			makeEdge(tri[2], tri[0], t),
		)
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.lo != b.lo {
			return a.lo < b.lo
		}
		if a.hi != b.hi {
			return a.hi < b.hi
		}
		return a.tri < b.tri
	})

	table := make(Table, len(tris))
	for i := range table {
		table[i] = sculpt.NoAdjacency()
	}
	fill := make([]uint8, len(tris))

	anomalies := 0
	for i := 0; i < len(edges); {
		j := i + 1
		for j < len(edges) && edges[j].lo == edges[i].lo && edges[j].hi == edges[i].hi {
			j++
		}
		if n := j - i; n >= 2 {
			anomalies += n - 2
			a, b := edges[i].tri, edges[i+1].tri
			if a != b && fill[a] < 3 && fill[b] < 3 {
				table[a][fill[a]] = b
				fill[a]++
				table[b][fill[b]] = a
				fill[b]++
			} else {
				anomalies++
			}
		}
		i = j
	}
	return table, anomalies
}
