package spatial

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/internal/sculpt/sculpttest"
	"github.com/Faultbox/sculptor/pkg/math"
)

func TestMakeBin(t *testing.T) {
	const dim = 32
	tests := []struct {
		name string
		p    math.Vec3
		x, y uint8
	}{
		{"near plus x", math.Vec3{X: 1, Y: 0.1, Z: 0.1}, 16, 23},
		{"minus x clamps to last column", math.Vec3{X: -1, Z: 0.1}, 31, 23},
		{"just past minus x wraps to first column", math.Vec3{X: -1, Y: -0.1, Z: 0.1}, 0, 23},
		{"near plus y", math.Vec3{X: 0.1, Y: 1, Z: 0.1}, 23, 23},
		{"near north pole", math.Vec3{X: 0.1, Y: 0.05, Z: 1}, 18, 16},
		{"near south pole", math.Vec3{X: 0.1, Y: 0.05, Z: -1}, 18, 31},
		{"north pole", math.Vec3{Z: 1}, 16, 16},
		{"south pole clamps", math.Vec3{Z: -1}, 16, 31},
		{"center", math.Vec3{}, 16, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := MakeBin(tt.p, math.Vec3{}, dim)
			assert.Equal(t, tt.x, b.X(), "x")
			assert.Equal(t, tt.y, b.Y(), "y")
		})
	}

	// Quantization is relative to the center.
	off := math.Vec3{X: 5, Y: 5, Z: 5}
	p := math.Vec3{X: 0.1, Y: 1, Z: 0.1}
	assert.Equal(t, MakeBin(p, math.Vec3{}, dim), MakeBin(off.Add(p), off, dim))
}

func TestAdjustBinWraps(t *testing.T) {
	b := sculpt.MakeBinID(0, 31)
	tests := []struct {
		dx, dy int
		x, y   uint8
	}{
		{0, 0, 0, 31},
		{-1, 0, 31, 31},
		{0, 1, 0, 0},
		{-2, 2, 30, 1},
		{33, -32, 1, 31},
	}
	for _, tt := range tests {
		got := AdjustBin(b, tt.dx, tt.dy, 32)
		assert.Equal(t, sculpt.MakeBinID(tt.x, tt.y), got, "adjust %d,%d", tt.dx, tt.dy)
	}
}

func TestBindBuildsSpheresAroundSamples(t *testing.T) {
	m := sculpttest.Icosphere(2)
	ix := New(DefaultDimension)
	ix.Bind(m)

	require.NotZero(t, ix.Len())
	assert.InDelta(t, 0, ix.Center().Length(), 1e-4)

	for tri := 0; tri < m.Tris(); tri++ {
		id := sculpt.TriID(tri)
		bins := ix.BinsOf(id)
		require.NotEmpty(t, bins, "tri %d has no bin", tri)
		assert.LessOrEqual(t, len(bins), 4)
		for _, b := range bins {
			assert.Contains(t, ix.BinTris(b), id)
		}
		assertBinned(t, ix, id)
	}
}

func TestRebuildWithoutSource(t *testing.T) {
	ix := New(0)
	ix.Rebuild()
	assert.Equal(t, 4, ix.Dimension())

	ctx := sculpt.NewSearchContext()
	assert.False(t, ix.IdentifyTri(&ctx, math.Vec3{Z: 5}, math.Vec3{Z: -1}))
	assert.Equal(t, sculpt.NoTri, ctx.Tri)
	assert.Equal(t, sculpt.NoBin, ctx.Bin)
}

// assertCovered checks every bin holding t encloses t's current samples.
func assertCovered(t *testing.T, ix *Index, tri sculpt.TriID) {
	t.Helper()
	samples := ix.samples(tri)
	for _, b := range ix.BinsOf(tri) {
		center, radius, ok := ix.Sphere(b)
		require.True(t, ok)
		for i, p := range samples {
			assert.GreaterOrEqual(t, radius+1e-5, p.Distance(center), "bin %04x sample %d", b, i)
		}
	}
}

// assertBinned checks each of t's samples lies inside the sphere of the bin
// it quantizes to.
func assertBinned(t *testing.T, ix *Index, tri sculpt.TriID) {
	t.Helper()
	for i, p := range ix.samples(tri) {
		b := MakeBin(p, ix.Center(), ix.Dimension())
		require.Contains(t, ix.BinsOf(tri), b)
		center, radius, ok := ix.Sphere(b)
		require.True(t, ok)
		assert.GreaterOrEqual(t, radius+1e-5, p.Distance(center), "bin %04x sample %d", b, i)
	}
}

func inflate(ix *Index, m *sculpttest.Mesh, tri sculpt.TriID) {
	a, b, c := m.TriVerts(tri)
	ix.Inflate(tri, a, b, c)
}

func radii(ix *Index) map[sculpt.BinID]float32 {
	out := make(map[sculpt.BinID]float32, ix.Len())
	ix.Spheres(func(b sculpt.BinID, _ math.Vec3, r float32) { out[b] = r })
	return out
}

func TestInflateMonotonicGrowth(t *testing.T) {
	m := sculpttest.Icosphere(2)
	ix := New(DefaultDimension)
	ix.Bind(m)

	rng := rand.New(rand.NewSource(3))
	tri := sculpt.TriID(17)
	before := radii(ix)

	for step := 0; step < 40; step++ {
		d := math.Vec3{
			X: rng.Float32()*0.2 - 0.1,
			Y: rng.Float32()*0.2 - 0.1,
			Z: rng.Float32()*0.2 - 0.1,
		}
		m.Move(tri, d)
		inflate(ix, m, tri)

		assertCovered(t, ix, tri)
		after := radii(ix)
		for b, r := range before {
			assert.GreaterOrEqual(t, after[b], r, "bin %04x shrank at step %d", b, step)
		}
		before = after
	}
	assert.Equal(t, uint64(40), ix.Stats().Inflates)
}

func TestInflateCreatesMissingBin(t *testing.T) {
	m := sculpttest.Icosphere(1)
	ix := New(DefaultDimension)
	ix.Bind(m)
	bins := ix.Len()

	// Only the pole vertex sits in the top row of the grid. Lift a triangle
	// onto the +Z axis so its vertices spread across that row.
	tri := sculpt.TriID(0)
	c := m.Centroid(tri)
	m.Move(tri, math.Vec3{X: -c.X, Y: -c.Y, Z: 3 - c.Z})
	inflate(ix, m, tri)

	assert.Greater(t, ix.Len(), bins)
	assert.NotZero(t, ix.Stats().BinsCreated)
	assert.True(t, slices.IsSorted(ix.Bins()))
	for _, b := range ix.BinsOf(tri) {
		assert.Contains(t, ix.BinTris(b), tri)
	}
	assertCovered(t, ix, tri)
}

func TestInflateIdempotentMembership(t *testing.T) {
	m := sculpttest.Icosphere(1)
	ix := New(DefaultDimension)
	ix.Bind(m)

	tri := sculpt.TriID(5)
	for i := 0; i < 3; i++ {
		inflate(ix, m, tri)
	}
	for _, b := range ix.BinsOf(tri) {
		n := 0
		for _, u := range ix.BinTris(b) {
			if u == tri {
				n++
			}
		}
		assert.Equal(t, 1, n, "bin %04x", b)
	}
}

func TestInflateOutOfRange(t *testing.T) {
	ix := New(DefaultDimension)
	ix.Bind(sculpttest.Icosphere(0))
	ix.Inflate(sculpt.NoTri, math.Vec3{}, math.Vec3{}, math.Vec3{})
	assert.Zero(t, ix.Stats().Inflates)
}

func TestRebuildTracksMovedGeometry(t *testing.T) {
	m := sculpttest.Icosphere(1)
	ix := New(DefaultDimension)
	ix.Bind(m)

	for i := range m.Pos {
		m.Pos[i] = m.Pos[i].Scale(3)
	}
	m.RecomputeNormals()
	ix.Rebuild()

	for tri := 0; tri < m.Tris(); tri++ {
		assertBinned(t, ix, sculpt.TriID(tri))
	}
	ctx := sculpt.NewSearchContext()
	origin, dir := m.RayAt(7, 2)
	require.True(t, ix.IdentifyTri(&ctx, origin, dir))
	assert.Equal(t, sculpt.TriID(7), ctx.Tri)
}
