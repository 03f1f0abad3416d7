// Package picking provides ray casting against triangles and bounding spheres.
package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/sculptor/pkg/math"
)

const (
	// epsilon below which a determinant is treated as a parallel ray.
	epsilon = 1e-7
	// minRadius is the smallest normal float32.
	minRadius = 1.17549435e-38
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates with y pointing down, viewportW/H are
// viewport dimensions and invViewProj is the inverse of the view-projection
// matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) Ray {
	vp := math.Viewport{Width: viewportW, Height: viewportH}
	win := math.Vec3{X: screenX, Y: viewportH - screenY}

	win.Z = 0
	near := math.Unproject(win, invViewProj, vp)
	win.Z = 1
	far := math.Unproject(win, invViewProj, vp)

	return Ray{Origin: near, Direction: far.Sub(near).Normalize()}
}

// IntersectTriangle tests the ray against triangle (a, b, c) using the
// Möller-Trumbore algorithm. It returns the distance along the ray and whether
// the ray hits in front of its origin. With cullBack set, triangles whose
// counter-clockwise face points away from the ray are rejected.
func (r Ray) IntersectTriangle(a, b, c math.Vec3, cullBack bool) (t float32, hit bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)

	if cullBack {
		if det < epsilon {
			return 0, false
		}
	} else if math32.Abs(det) < epsilon {
		return 0, false
	}

	inv := 1 / det
	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t = e2.Dot(q) * inv
	if t <= epsilon {
		return 0, false
	}
	return t, true
}

// IntersectSphere reports whether the ray's line meets the sphere in front of
// the origin. A ray starting inside the sphere always hits. Spheres with a
// non-positive radius never hit.
func (r Ray) IntersectSphere(center math.Vec3, radius float32) bool {
	if radius <= minRadius {
		return false
	}
	diff := center.Sub(r.Origin)
	r2 := radius * radius
	dist2 := diff.LengthSq()
	if dist2 <= r2 {
		return true
	}
	along := diff.Dot(r.Direction)
	if along < 0 {
		return false
	}
	perp2 := dist2 - along*along
	return perp2 <= r2
}
