package tool

import (
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/pkg/math"
)

// rootEffect is the weight given to the patch root itself.
const rootEffect = 0.5

// Falloff weights triangles by their distance from a segment dropped
// radius deep below the root triangle, along its normal. Triangles within
// radius of the segment are included with an effect falling linearly from 1
// to 0.
type Falloff struct {
	surf   sculpt.Surface
	radius float32

	root     sculpt.TriID
	top, low math.Vec3
}

// NewFalloff returns an effector over surf with no root set.
func NewFalloff(surf sculpt.Surface, radius float32) *Falloff {
	return &Falloff{surf: surf, radius: radius, root: sculpt.NoTri}
}

// SetRadius changes the patch radius. It applies from the next root.
func (f *Falloff) SetRadius(r float32) { f.radius = r }

// Radius returns the patch radius.
func (f *Falloff) Radius() float32 { return f.radius }

// Root anchors the falloff at t.
func (f *Falloff) Root(t sculpt.TriID) {
	f.root = t
	if int(t) >= f.surf.Tris() {
		f.root = sculpt.NoTri
		return
	}
	f.top = math.Centroid(f.surf.TriVerts(t))
	f.low = f.top.Sub(f.surf.FaceNormal(t).Scale(f.radius))
}

// Effect is a sculpt.EffectorFn.
func (f *Falloff) Effect(t sculpt.TriID) (bool, float32) {
	if f.root == sculpt.NoTri || f.radius <= 0 {
		return false, 0
	}
	if t == f.root {
		return true, rootEffect
	}
	d := math.SegmentDistance(f.low, f.top, math.Centroid(f.surf.TriVerts(t)))
	if d > f.radius {
		return false, 0
	}
	return true, 1 - d/f.radius
}
