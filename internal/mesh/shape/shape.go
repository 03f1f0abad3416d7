// Package shape generates closed triangle meshes: the spiral sphere the
// sculptor starts from, subdivided icosahedra and small polyhedra. All
// generators return counter-clockwise triangles facing away from the
// mesh's vertex mean.
package shape

import (
	"math/rand"

	"github.com/chewxy/math32"

	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/pkg/math"
)

// Spiral variants.
const (
	VariantSphere = iota
	VariantRipple
	VariantBulb
	VariantHorn
	NumVariants
)

// poleGap is how close to the far pole the spiral stops.
const poleGap = 0.01

// Spiral builds a sphere from a point swept along a spiral: each step turns
// the point 2π/divisions around the X axis while its inclination from +X
// grows by 2π/divisions². The first and last points are the poles, joined to
// the spiral by triangle fans; consecutive turns are joined by a strip.
//
// variant selects a radius profile along the inclination; rng picks its
// parameters and may be nil for VariantSphere. divisions must be at least 4.
func Spiral(divisions, variant int, rng *rand.Rand) ([]math.Vec3, []sculpt.Tri) {
	if divisions < 4 {
		divisions = 4
	}
	var c [2]float32
	if variant != VariantSphere {
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		for i := range c {
			c[i] = float32(1+rng.Intn(5)) * 0.2
		}
	}

	div := float32(divisions)
	axisX := math.Vec3{X: 1}
	step := math.QuatFromAxisAngle(axisX, 2*math32.Pi/div)
	inclinationAxis := math.Vec3{Y: 1}

	var pos []math.Vec3
	for {
		half := math32.Pi * float32(len(pos)) / (div * div)
		if half >= math32.Pi/2-poleGap {
			break
		}
		r := spiralRadius(variant, half, c)
		turn := math.QuatFromAxisAngle(axisX.Cross(inclinationAxis).Normalize(), 2*half)
		pos = append(pos, turn.Rotate(math.Vec3{X: r}))
		inclinationAxis = step.Rotate(inclinationAxis).Normalize()
	}

	tris := spiralTris(divisions, len(pos))
	OrientOutward(pos, tris)
	return pos, tris
}

func spiralRadius(variant int, half float32, c [2]float32) float32 {
	var r float32
	switch variant {
	case VariantRipple:
		r = math32.Abs(math32.Pow(half, 2*c[0]) - c[1])
	case VariantBulb:
		r = 2 * math32.Pow(half, 2*c[0])
	case VariantHorn:
		r = math32.Pow(math32.Abs(half-c[0]/2)+0.05, -c[1]/2)
	default:
		return 1
	}
	// keep the poles off the origin so bins and normals stay defined
	if math32.IsNaN(r) || math32.IsInf(r, 0) || r < 0.05 {
		r = 0.05
	}
	if r > 4 {
		r = 4
	}
	return r
}

// spiralTris triangulates n spiral points with the given turn length.
func spiralTris(div, n int) []sculpt.Tri {
	first := sculpt.VertID(0)
	last := n - 1
	d := sculpt.VertID(div)

	tris := make([]sculpt.Tri, 0, 2*n)
	for i := 1; i < last; i++ {
		v := sculpt.VertID(i)
		switch {
		case i < last-div:
			if i == 1 {
				// closes the seam between the first fan and the strip
				tris = append(tris, sculpt.Tri{first, v + d, v})
			}
			if i <= div {
				tris = append(tris, sculpt.Tri{v, v + 1, first})
			}
			tris = append(tris,
				sculpt.Tri{v, v + d, v + 1},
				sculpt.Tri{v + d, v + d + 1, v + 1},
			)
		case i+1 < last:
			tris = append(tris, sculpt.Tri{v, sculpt.VertID(last), v + 1})
		}
	}
	return tris
}

// Icosphere returns an icosahedron subdivided subdiv times with its vertices
// pushed onto the unit sphere.
func Icosphere(subdiv int) ([]math.Vec3, []sculpt.Tri) {
	t := (1 + math32.Sqrt(5)) / 2
	pos := []math.Vec3{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	for i := range pos {
		pos[i] = pos[i].Normalize()
	}
	tris := []sculpt.Tri{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for s := 0; s < subdiv; s++ {
		mids := make(map[[2]sculpt.VertID]sculpt.VertID)
		mid := func(a, b sculpt.VertID) sculpt.VertID {
			key := [2]sculpt.VertID{a, b}
			if a > b {
				key = [2]sculpt.VertID{b, a}
			}
			if m, ok := mids[key]; ok {
				return m
			}
			m := sculpt.VertID(len(pos))
			pos = append(pos, pos[a].Mid(pos[b]).Normalize())
			mids[key] = m
			return m
		}

		next := make([]sculpt.Tri, 0, len(tris)*4)
		for _, tri := range tris {
			ab := mid(tri[0], tri[1])
			bc := mid(tri[1], tri[2])
			ca := mid(tri[2], tri[0])
			next = append(next,
				sculpt.Tri{tri[0], ab, ca},
				sculpt.Tri{tri[1], bc, ab},
				sculpt.Tri{tri[2], ca, bc},
				sculpt.Tri{ab, bc, ca},
			)
		}
		tris = next
	}

	OrientOutward(pos, tris)
	return pos, tris
}

// Tetrahedron returns a regular tetrahedron inscribed in the unit sphere.
func Tetrahedron() ([]math.Vec3, []sculpt.Tri) {
	pos := []math.Vec3{
		{X: 1, Y: 1, Z: 1}, {X: 1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: -1, Y: -1, Z: 1},
	}
	for i := range pos {
		pos[i] = pos[i].Normalize()
	}
	tris := []sculpt.Tri{{0, 1, 2}, {0, 3, 1}, {0, 2, 3}, {1, 3, 2}}
	OrientOutward(pos, tris)
	return pos, tris
}

// Octahedron returns the unit octahedron.
func Octahedron() ([]math.Vec3, []sculpt.Tri) {
	pos := []math.Vec3{
		{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
	}
	tris := []sculpt.Tri{
		{0, 2, 4}, {2, 1, 4}, {1, 3, 4}, {3, 0, 4},
		{2, 0, 5}, {1, 2, 5}, {3, 1, 5}, {0, 3, 5},
	}
	OrientOutward(pos, tris)
	return pos, tris
}

// Grid returns an open nx by ny sheet of unit squares in the z = 0 plane,
// facing +Z, two triangles per square.
func Grid(nx, ny int) ([]math.Vec3, []sculpt.Tri) {
	pos := make([]math.Vec3, 0, (nx+1)*(ny+1))
	for y := 0; y <= ny; y++ {
		for x := 0; x <= nx; x++ {
			pos = append(pos, math.Vec3{X: float32(x), Y: float32(y)})
		}
	}
	at := func(x, y int) sculpt.VertID { return sculpt.VertID(y*(nx+1) + x) }

	tris := make([]sculpt.Tri, 0, nx*ny*2)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			tris = append(tris,
				sculpt.Tri{at(x, y), at(x+1, y), at(x+1, y+1)},
				sculpt.Tri{at(x, y), at(x+1, y+1), at(x, y+1)},
			)
		}
	}
	return pos, tris
}

// Center returns the mean of pos.
func Center(pos []math.Vec3) math.Vec3 {
	var sum math.Vec3
	if len(pos) == 0 {
		return sum
	}
	for _, p := range pos {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float32(len(pos)))
}

// OrientOutward flips every triangle whose face normal points toward the
// vertex mean.
func OrientOutward(pos []math.Vec3, tris []sculpt.Tri) {
	center := Center(pos)
	for i, tri := range tris {
		a, b, c := pos[tri[0]], pos[tri[1]], pos[tri[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Dot(math.Centroid(a, b, c).Sub(center)) < 0 {
			tris[i] = sculpt.Tri{tri[0], tri[2], tri[1]}
		}
	}
}
