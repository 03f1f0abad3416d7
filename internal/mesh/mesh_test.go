package mesh

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/sculptor/internal/config"
	"github.com/Faultbox/sculptor/internal/mesh/shape"
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/internal/sculpt/brush"
	"github.com/Faultbox/sculptor/pkg/formats"
	"github.com/Faultbox/sculptor/pkg/math"
)

func icosphere(t *testing.T, level int) *Mesh {
	t.Helper()
	pos, tris := shape.Icosphere(level)
	m := New(pos, tris, nil, 16)
	m.TakeDirty(func(int, int) {})
	return m
}

// rayAt aims a ray at t's centroid from dist along its face normal.
func rayAt(m *Mesh, t sculpt.TriID, dist float32) (origin, dir math.Vec3) {
	n := m.FaceNormal(t)
	return m.Centroid(t).Add(n.Scale(dist)), n.Neg()
}

func TestNewComputesNormals(t *testing.T) {
	m := icosphere(t, 2)

	assert.Zero(t, m.Anomalies())
	assert.False(t, m.HasDegenerates())
	for v, p := range m.Positions() {
		assert.Greater(t, m.VertexNormal(sculpt.VertID(v)).Dot(p), float32(0.8), "vertex %d", v)
	}
	for i := 0; i < m.Tris(); i++ {
		assert.Equal(t, 3, m.Adjacency(sculpt.TriID(i)).Count())
	}
}

func TestBrushPosKeepsTriangleFindable(t *testing.T) {
	m := icosphere(t, 2)
	normals := brush.NewNormals(m, 0)
	tri := sculpt.TriID(0)

	n := m.FaceNormal(tri)
	before := m.Centroid(tri)
	m.BrushPos(tri, n, 0.1)
	normals.Enqueue(tri)
	normals.Stroke(m.Tris())

	assert.InDelta(t, 0.1, m.Centroid(tri).Distance(before), 1e-5)
	assert.GreaterOrEqual(t, m.Index().Stats().Inflates, uint64(1))

	origin, dir := rayAt(m, tri, 2)
	ctx := sculpt.NewSearchContext()
	require.True(t, m.Index().IdentifyTri(&ctx, origin, dir))
	assert.Equal(t, tri, ctx.Tri)
	assert.Contains(t, m.Index().BinsOf(tri), ctx.Bin)
}

func TestBrushZKeepsLargestEffect(t *testing.T) {
	m := icosphere(t, 1)
	tri := sculpt.TriID(4)
	n := m.FaceNormal(tri)
	base := m.TriIndices(tri)
	orig := [3]math.Vec3{}
	for i, v := range base {
		orig[i] = m.Positions()[v]
	}

	m.BrushZ(tri, 0.2)
	m.BrushZ(tri, 0.1)
	for i, v := range base {
		want := orig[i].Add(n.Scale(0.2))
		assert.InDelta(t, 0, m.Positions()[v].Distance(want), 1e-6)
	}

	m.ResetEffect()
	m.BrushZ(tri, 0.05)
	for i, v := range base {
		want := orig[i].Add(n.Scale(0.05))
		assert.InDelta(t, 0, m.Positions()[v].Distance(want), 1e-6)
	}
}

func TestBrushColor(t *testing.T) {
	m := icosphere(t, 1)
	red := math.Vec3{X: 1}

	m.BrushColor(2, red, 1)
	for _, v := range m.TriIndices(2) {
		assert.Equal(t, red, m.Colors()[v])
	}

	m.BrushColor(3, red, 0.5)
	for _, v := range m.TriIndices(3) {
		c := m.Colors()[v]
		if c == red {
			continue // shared with triangle 2
		}
		assert.InDelta(t, 0.9, c.X, 1e-6)
		assert.InDelta(t, 0.4, c.Y, 1e-6)
	}
}

func TestBackupRestore(t *testing.T) {
	m := icosphere(t, 1)
	pos := append([]math.Vec3(nil), m.Positions()...)
	colors := append([]math.Vec3(nil), m.Colors()...)

	m.Backup()
	m.BrushPos(1, math.Vec3{Z: 1}, 0.3)
	m.BrushColor(1, math.Vec3{Y: 1}, 1)
	m.BrushZ(5, 0.2)
	require.NotEqual(t, pos, m.Positions())

	m.Restore()
	assert.Equal(t, pos, m.Positions())
	assert.Equal(t, colors, m.Colors())
	assert.True(t, m.Dirty())
	for i := 0; i < m.Tris(); i++ {
		want := math.TriangleNormal(m.TriVerts(sculpt.TriID(i)))
		assert.InDelta(t, 0, m.FaceNormal(sculpt.TriID(i)).Distance(want), 1e-6)
	}
}

func TestTakeDirtyRuns(t *testing.T) {
	m := icosphere(t, 2) // 162 vertices, three chunks
	require.Equal(t, 162, m.Verts())
	assert.False(t, m.Dirty())

	m.MarkAllDirty()
	var runs [][2]int
	m.TakeDirty(func(first, count int) { runs = append(runs, [2]int{first, count}) })
	assert.Equal(t, [][2]int{{0, 162}}, runs)
	assert.False(t, m.Dirty())

	tests := []struct {
		name  string
		verts []sculpt.VertID
		want  [][2]int
	}{
		{"first chunk", []sculpt.VertID{3}, [][2]int{{0, 64}}},
		{"last chunk is short", []sculpt.VertID{161}, [][2]int{{128, 34}}},
		{"adjacent chunks merge", []sculpt.VertID{63, 64}, [][2]int{{0, 128}}},
		{"gap splits", []sculpt.VertID{0, 130}, [][2]int{{0, 64}, {128, 34}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range tt.verts {
				m.SetVertexNormal(v, m.VertexNormal(v))
			}
			var got [][2]int
			m.TakeDirty(func(first, count int) { got = append(got, [2]int{first, count}) })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolesFollowRing(t *testing.T) {
	m, err := Generate(config.MeshConfig{Shape: config.ShapeSphere, Divisions: 8}, 16, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, m.poles, 2)

	for _, p := range m.poles {
		tri := p.fan[0]
		m.BrushPos(tri, m.FaceNormal(tri), 0.2)

		var sum math.Vec3
		for _, v := range p.ring {
			sum = sum.Add(m.Positions()[v])
		}
		mean := sum.Scale(1 / float32(len(p.ring)))
		assert.InDelta(t, 0, m.Positions()[p.vert].Distance(mean), 1e-6)
	}
}

func TestHasDegenerates(t *testing.T) {
	pos := []math.Vec3{{X: 0}, {X: 1}, {Y: 1}, {X: 1}}
	m := New(pos, []sculpt.Tri{{0, 1, 2}, {1, 3, 2}}, nil, 8)
	assert.True(t, m.HasDegenerates())
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.MeshConfig
		tris  int
		poles int
	}{
		{"icosahedron", config.MeshConfig{Shape: config.ShapeIcosahedron, Divisions: 15}, 80, 0},
		{"icosahedron clamps", config.MeshConfig{Shape: config.ShapeIcosahedron, Divisions: 0}, 20, 0},
		{"tetrahedron", config.MeshConfig{Shape: config.ShapeTetrahedron}, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Generate(tt.cfg, 16, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.tris, m.Tris())
			assert.Len(t, m.poles, tt.poles)
			assert.Zero(t, m.Anomalies())
		})
	}

	t.Run("sphere", func(t *testing.T) {
		m, err := Generate(config.MeshConfig{Shape: config.ShapeSphere, Divisions: 12}, 16, nil)
		require.NoError(t, err)
		assert.Zero(t, m.Anomalies())
		assert.Len(t, m.poles, 2)
		for i := 0; i < m.Tris(); i++ {
			assert.Equal(t, 3, m.Adjacency(sculpt.TriID(i)).Count(), "tri %d", i)
		}
	})

	t.Run("unknown shape", func(t *testing.T) {
		_, err := Generate(config.MeshConfig{Shape: "torus"}, 16, nil)
		assert.ErrorIs(t, err, config.ErrInvalidShape)
	})
}

func TestSTLRoundTrip(t *testing.T) {
	src := icosphere(t, 1)
	path := filepath.Join(t.TempDir(), "ball.stl")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, src.WriteSTL(f, "ball"))
	require.NoError(t, f.Close())

	m, err := Generate(config.MeshConfig{Shape: config.ShapeFile, Path: path}, 16, nil)
	require.NoError(t, err)
	assert.Equal(t, src.Tris(), m.Tris())
	assert.Equal(t, src.Verts(), m.Verts())
	assert.Zero(t, m.Anomalies())

	_, err = LoadSTL(filepath.Join(t.TempDir(), "missing.stl"), 16)
	assert.Error(t, err)

	_, err = FromSTL(&formats.STL{}, 16)
	assert.ErrorIs(t, err, ErrEmptyMesh)
}

func TestPLYExport(t *testing.T) {
	m := icosphere(t, 0)
	ply := m.PLY("sculpt")
	assert.Len(t, ply.Vertices, 12)
	assert.Len(t, ply.Faces, 20)
	assert.Equal(t, m.Normals()[5], ply.Vertices[5].Normal)

	var buf bytes.Buffer
	require.NoError(t, m.WritePLY(&buf, "sculpt"))
	assert.Contains(t, buf.String(), "element face 20")
}
