package shape

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/internal/sculpt/topology"
	"github.com/Faultbox/sculptor/pkg/math"
)

func closedShapes() map[string]func() ([]math.Vec3, []sculpt.Tri) {
	return map[string]func() ([]math.Vec3, []sculpt.Tri){
		"tetrahedron": Tetrahedron,
		"octahedron":  Octahedron,
		"icosphere0":  func() ([]math.Vec3, []sculpt.Tri) { return Icosphere(0) },
		"icosphere2":  func() ([]math.Vec3, []sculpt.Tri) { return Icosphere(2) },
		"spiral8":     func() ([]math.Vec3, []sculpt.Tri) { return Spiral(8, VariantSphere, nil) },
		"spiral60":    func() ([]math.Vec3, []sculpt.Tri) { return Spiral(60, VariantSphere, nil) },
		"spiralHorn": func() ([]math.Vec3, []sculpt.Tri) {
			return Spiral(20, VariantHorn, rand.New(rand.NewSource(7)))
		},
	}
}

func TestClosedShapesAreManifold(t *testing.T) {
	for name, build := range closedShapes() {
		t.Run(name, func(t *testing.T) {
			pos, tris := build()
			require.NotEmpty(t, tris)

			table, anomalies := topology.BuildAdjacency(tris)
			assert.Zero(t, anomalies)
			for i, adj := range table {
				assert.Equal(t, 3, adj.Count(), "tri %d", i)
			}

			edges := map[[2]sculpt.VertID]bool{}
			for _, tri := range tris {
				for k := 0; k < 3; k++ {
					a, b := tri[k], tri[(k+1)%3]
					if a > b {
						a, b = b, a
					}
					edges[[2]sculpt.VertID{a, b}] = true
				}
			}
			// Euler characteristic of a sphere.
			assert.Equal(t, 2, len(pos)-len(edges)+len(tris))
		})
	}
}

func TestShapesFaceOutward(t *testing.T) {
	for name, build := range closedShapes() {
		t.Run(name, func(t *testing.T) {
			pos, tris := build()
			center := Center(pos)
			for i, tri := range tris {
				a, b, c := pos[tri[0]], pos[tri[1]], pos[tri[2]]
				n := b.Sub(a).Cross(c.Sub(a))
				assert.GreaterOrEqual(t, n.Dot(math.Centroid(a, b, c).Sub(center)), float32(0), "tri %d", i)
			}
		})
	}
}

func TestSpiralSphereOnUnitSphere(t *testing.T) {
	pos, tris := Spiral(60, VariantSphere, nil)

	// Half the spiral's steps fit before the far pole.
	assert.InDelta(t, 60*60/2, len(pos), 20)
	assert.Equal(t, 2*len(pos)-4, len(tris))

	for i, p := range pos {
		assert.InDelta(t, 1, p.Length(), 1e-4, "vertex %d", i)
	}
	assert.InDelta(t, 1, pos[0].X, 1e-6)
	assert.Less(t, pos[len(pos)-1].X, float32(-0.99))
}

func TestSpiralVariantsStayBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for v := VariantSphere; v < NumVariants; v++ {
		pos, _ := Spiral(16, v, rng)
		for _, p := range pos {
			l := p.Length()
			assert.False(t, l != l, "NaN vertex in variant %d", v)
			assert.LessOrEqual(t, l, float32(4.0001))
		}
	}
}

func TestIcosphereCounts(t *testing.T) {
	tests := []struct {
		subdiv, verts, tris int
	}{
		{0, 12, 20},
		{1, 42, 80},
		{2, 162, 320},
	}
	for _, tt := range tests {
		pos, tris := Icosphere(tt.subdiv)
		assert.Len(t, pos, tt.verts)
		assert.Len(t, tris, tt.tris)
	}
}

func TestGridBoundary(t *testing.T) {
	pos, tris := Grid(3, 2)
	require.Len(t, pos, 12)
	require.Len(t, tris, 12)

	table, anomalies := topology.BuildAdjacency(tris)
	assert.Zero(t, anomalies)

	// The corner square's lower triangle has one boundary edge.
	assert.Equal(t, 2, table[0].Count())
	interior := 0
	for _, adj := range table {
		if adj.Count() == 3 {
			interior++
		}
	}
	// Lower halves away from the bottom and right edges, upper halves away
	// from the top and left edges.
	assert.Equal(t, 4, interior)
	for _, tri := range tris {
		n := math.TriangleNormal(pos[tri[0]], pos[tri[1]], pos[tri[2]])
		assert.InDelta(t, 1, n.Z, 1e-6)
	}
}
