// Package sculpttest provides an in-memory mesh implementing the sculpt
// capability interfaces, for tests of the engine packages.
package sculpttest

import (
	"github.com/Faultbox/sculptor/internal/mesh/shape"
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/internal/sculpt/topology"
	"github.com/Faultbox/sculptor/pkg/math"
)

// Mesh is a plain triangle mesh with face and vertex normals.
type Mesh struct {
	Pos     []math.Vec3
	Normals []math.Vec3
	Idx     []sculpt.Tri
	Adj     topology.Table
	Faces   []math.Vec3

	// Writes counts normal mutations.
	Writes int
}

// New builds a mesh, its adjacency and its normals.
func New(pos []math.Vec3, tris []sculpt.Tri) *Mesh {
	adj, _ := topology.BuildAdjacency(tris)
	m := &Mesh{
		Pos:     pos,
		Normals: make([]math.Vec3, len(pos)),
		Idx:     tris,
		Adj:     adj,
		Faces:   make([]math.Vec3, len(tris)),
	}
	m.RecomputeNormals()
	return m
}

// Icosphere returns a subdivided unit icosahedron.
func Icosphere(subdiv int) *Mesh {
	return New(shape.Icosphere(subdiv))
}

// Grid returns an open sheet facing +Z.
func Grid(nx, ny int) *Mesh {
	return New(shape.Grid(nx, ny))
}

// RecomputeNormals resets face normals from positions and vertex normals to
// the normalized sum of their faces.
func (m *Mesh) RecomputeNormals() {
	for i := range m.Normals {
		m.Normals[i] = math.Vec3{}
	}
	for i, tri := range m.Idx {
		n := math.TriangleNormal(m.Pos[tri[0]], m.Pos[tri[1]], m.Pos[tri[2]])
		m.Faces[i] = n
		for _, v := range tri {
			m.Normals[v] = m.Normals[v].Add(n)
		}
	}
	for i := range m.Normals {
		m.Normals[i] = m.Normals[i].Normalize()
	}
}

// Move offsets every vertex of t by d.
func (m *Mesh) Move(t sculpt.TriID, d math.Vec3) {
	for _, v := range m.Idx[t] {
		m.Pos[v] = m.Pos[v].Add(d)
	}
}

func (m *Mesh) Tris() int  { return len(m.Idx) }
func (m *Mesh) Verts() int { return len(m.Pos) }

func (m *Mesh) TriIndices(t sculpt.TriID) sculpt.Tri { return m.Idx[t] }

func (m *Mesh) TriVerts(t sculpt.TriID) (a, b, c math.Vec3) {
	tri := m.Idx[t]
	return m.Pos[tri[0]], m.Pos[tri[1]], m.Pos[tri[2]]
}

func (m *Mesh) Adjacency(t sculpt.TriID) sculpt.Adjacency { return m.Adj.Adjacency(t) }

func (m *Mesh) FaceNormal(t sculpt.TriID) math.Vec3 { return m.Faces[t] }

func (m *Mesh) SetFaceNormal(t sculpt.TriID, n math.Vec3) {
	m.Faces[t] = n
	m.Writes++
}

func (m *Mesh) VertexNormal(v sculpt.VertID) math.Vec3 { return m.Normals[v] }

func (m *Mesh) SetVertexNormal(v sculpt.VertID, n math.Vec3) {
	m.Normals[v] = n
	m.Writes++
}

// Centroid returns the centroid of t.
func (m *Mesh) Centroid(t sculpt.TriID) math.Vec3 {
	return math.Centroid(m.TriVerts(t))
}

// RayAt returns a ray starting dist along t's outward normal from its
// centroid and pointing back at it.
func (m *Mesh) RayAt(t sculpt.TriID, dist float32) (origin, dir math.Vec3) {
	n := m.Faces[t]
	c := m.Centroid(t)
	return c.Add(n.Scale(dist)), n.Neg()
}

var (
	_ sculpt.Surface        = (*Mesh)(nil)
	_ sculpt.Renormalizable = (*Mesh)(nil)
)
