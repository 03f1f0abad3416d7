package brush

import (
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/sculptor/internal/logger"
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/pkg/math"
)

// DefaultThreshold is the face normal change, in radians, below which a
// triangle counts as settled: half a degree.
const DefaultThreshold = gomath.Pi / 360

// Normals relaxes face and vertex normals after geometry edits. Triangles
// whose face normal turned by more than the threshold are rewritten and
// their neighbours queued, so the work spreads outward only while normals
// keep changing.
type Normals struct {
	mesh      sculpt.Renormalizable
	threshold float32
	pending   queue[sculpt.TriID]

	updates uint64
	log     *zap.Logger
}

// NewNormals returns a propagator over mesh. A threshold ≤ 0 selects
// DefaultThreshold.
func NewNormals(mesh sculpt.Renormalizable, threshold float32) *Normals {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Normals{mesh: mesh, threshold: threshold, log: logger.Named("normals")}
}

// SetThreshold changes the settle angle. A threshold ≤ 0 selects
// DefaultThreshold.
func (n *Normals) SetThreshold(threshold float32) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	n.threshold = threshold
}

// Threshold returns the settle angle in radians.
func (n *Normals) Threshold() float32 { return n.threshold }

// Enqueue marks t as displaced.
func (n *Normals) Enqueue(t sculpt.TriID) {
	if int(t) >= n.mesh.Tris() {
		return
	}
	n.pending.Push(t)
}

// Pending returns the number of queued triangles.
func (n *Normals) Pending() int { return n.pending.Len() }

// Updates returns the number of face normals rewritten since creation.
func (n *Normals) Updates() uint64 { return n.updates }

// Clear drops queued work.
func (n *Normals) Clear() { n.pending.Clear() }

// Stroke processes at most budget queued triangles and returns how many it
// processed. Degenerate triangles are skipped.
func (n *Normals) Stroke(budget int) int {
	done := 0
	for ; done < budget; done++ {
		t, ok := n.pending.Pop()
		if !ok {
			break
		}

		face := math.TriangleNormal(n.mesh.TriVerts(t))
		if face.IsZero() {
			continue
		}
		// NaN never exceeds the threshold.
		if !(n.mesh.FaceNormal(t).AngleTo(face) > n.threshold) {
			continue
		}

		n.mesh.SetFaceNormal(t, face)
		n.updates++
		for _, v := range n.mesh.TriIndices(t) {
			n.mesh.SetVertexNormal(v, n.mesh.VertexNormal(v).Add(face).Scale(0.5))
		}
		for _, u := range n.mesh.Adjacency(t) {
			if u != sculpt.NoTri {
				n.pending.Push(u)
			}
		}
	}
	return done
}

// Recompute rebuilds every face normal and sets each vertex normal to the
// mean of its faces' normals. A degenerate triangle, one with two
// coincident vertices, has no face normal and counts half. The queue is
// cleared.
func (n *Normals) Recompute() {
	n.pending.Clear()

	verts := n.mesh.Verts()
	sums := make([]math.Vec3, verts)
	weights := make([]float32, verts)
	degenerate := 0

	for i := 0; i < n.mesh.Tris(); i++ {
		t := sculpt.TriID(i)
		a, b, c := n.mesh.TriVerts(t)
		face := math.TriangleNormal(a, b, c)
		n.mesh.SetFaceNormal(t, face)

		w := float32(1)
		if a == b || b == c || a == c {
			w = 0.5
			degenerate++
		}
		for _, v := range n.mesh.TriIndices(t) {
			sums[v] = sums[v].Add(face)
			weights[v] += w
		}
	}

	for v := range sums {
		var nv math.Vec3
		if weights[v] > 0 {
			nv = sums[v].Scale(1 / weights[v])
		}
		n.mesh.SetVertexNormal(sculpt.VertID(v), nv)
	}
	n.log.Debug("normals recomputed",
		zap.Int("tris", n.mesh.Tris()),
		zap.Int("degenerate", degenerate),
	)
}
