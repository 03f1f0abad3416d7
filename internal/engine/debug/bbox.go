// Package debug generates line geometry for the renderer's diagnostic
// overlay: the mesh bounds and the spatial index's bin spheres.
package debug

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/pkg/math"
)

// BoxLineCount is the number of line endpoints BoxLines returns
// (12 edges × 2).
const BoxLineCount = 24

// BoxLines returns endpoint pairs for the edges of an axis-aligned box.
func BoxLines(lo, hi math.Vec3) []math.Vec3 {
	c := func(x, y, z bool) math.Vec3 {
		p := lo
		if x {
			p.X = hi.X
		}
		if y {
			p.Y = hi.Y
		}
		if z {
			p.Z = hi.Z
		}
		return p
	}
	out := make([]math.Vec3, 0, BoxLineCount)
	for _, b := range []bool{false, true} {
		// bottom and top rings, then the verticals
		out = append(out,
			c(false, b, false), c(true, b, false),
			c(true, b, false), c(true, b, true),
			c(true, b, true), c(false, b, true),
			c(false, b, true), c(false, b, false),
		)
	}
	for _, x := range []bool{false, true} {
		for _, z := range []bool{false, true} {
			out = append(out, c(x, false, z), c(x, true, z))
		}
	}
	return out
}

// SphereSource enumerates bounding spheres.
type SphereSource interface {
	Spheres(fn func(b sculpt.BinID, center math.Vec3, radius float32))
}

// SphereLines returns endpoint pairs drawing each sphere of src as three
// axis-aligned circles of the given number of segments.
func SphereLines(src SphereSource, segments int) []math.Vec3 {
	if segments < 3 {
		segments = 3
	}
	var out []math.Vec3
	src.Spheres(func(_ sculpt.BinID, center math.Vec3, radius float32) {
		if radius <= 0 {
			return
		}
		for axis := 0; axis < 3; axis++ {
			prev := circlePoint(center, radius, axis, 0)
			for i := 1; i <= segments; i++ {
				next := circlePoint(center, radius, axis, 2*math32.Pi*float32(i)/float32(segments))
				out = append(out, prev, next)
				prev = next
			}
		}
	})
	return out
}

func circlePoint(center math.Vec3, r float32, axis int, a float32) math.Vec3 {
	s, c := math32.Sincos(a)
	switch axis {
	case 0:
		return center.Add(math.Vec3{Y: r * c, Z: r * s})
	case 1:
		return center.Add(math.Vec3{X: r * c, Z: r * s})
	default:
		return center.Add(math.Vec3{X: r * c, Y: r * s})
	}
}
