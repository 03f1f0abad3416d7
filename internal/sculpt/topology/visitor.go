package topology

import "github.com/Faultbox/sculptor/internal/sculpt"

// Visitor flood-fills patches breadth first. Visited triangles are stamped
// with a per-call serial, so consecutive calls need no reset. A Visitor is
// not safe for concurrent use.
type Visitor struct {
	graph  Graph
	marks  []sculpt.Serial
	serial sculpt.Serial
	queue  []sculpt.TriID
}

// NewVisitor returns a visitor over g.
func NewVisitor(g Graph) *Visitor {
	return &Visitor{graph: g, marks: make([]sculpt.Serial, g.Tris())}
}

// Visit walks from start and appends every triangle the effector includes to
// out, in breadth-first order, each at most once. Only included triangles
// spread to their neighbours.
func (v *Visitor) Visit(start sculpt.TriID, effector sculpt.EffectorFn, out []sculpt.TriEffect) []sculpt.TriEffect {
	if int(start) >= len(v.marks) {
		return out
	}
	v.next()

	v.queue = append(v.queue[:0], start)
	v.marks[start] = v.serial
	for head := 0; head < len(v.queue); head++ {
		t := v.queue[head]
		include, effect := effector(t)
		if !include {
			continue
		}
		out = append(out, sculpt.TriEffect{Tri: t, Effect: effect})

		for _, n := range v.graph.Adjacency(t) {
			if n == sculpt.NoTri || int(n) >= len(v.marks) || v.marks[n] == v.serial {
				continue
			}
			v.marks[n] = v.serial
			v.queue = append(v.queue, n)
		}
	}
	return out
}

// next advances the serial, clearing stamps when it wraps.
func (v *Visitor) next() {
	v.serial++
	if v.serial == 0 {
		clear(v.marks)
		v.serial = 1
	}
}
