// Package mesh owns the geometry being sculpted: vertex positions, normals
// and colors, the triangle list with its adjacency, and the spatial index
// built over them. Brush operations edit the mesh in place, keep the index
// conservative and record which vertex ranges the renderer must re-upload.
package mesh

import (
	"go.uber.org/zap"

	"github.com/Faultbox/sculptor/internal/logger"
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/internal/sculpt/brush"
	"github.com/Faultbox/sculptor/internal/sculpt/spatial"
	"github.com/Faultbox/sculptor/internal/sculpt/topology"
	"github.com/Faultbox/sculptor/pkg/math"
)

// ChunkBits sets the dirty tracking granularity: vertices are uploaded in
// runs of 1<<ChunkBits.
const ChunkBits = 6

// pole is a vertex kept at the mean of its fan ring, so brushing next to a
// spiral sphere's end cap cannot pull a spike out of it.
type pole struct {
	vert sculpt.VertID
	ring []sculpt.VertID
	fan  []sculpt.TriID
}

// Mesh is a sculptable triangle mesh. It is not safe for concurrent use.
type Mesh struct {
	pos     []math.Vec3
	normals []math.Vec3
	colors  []math.Vec3
	effect  []float32

	backupPos    []math.Vec3
	backupColors []math.Vec3

	tris      []sculpt.Tri
	adj       topology.Table
	faces     []math.Vec3
	anomalies int
	poles     []pole

	index *spatial.Index
	dirty []bool
	ndirt int

	log *zap.Logger
}

// New builds a mesh over pos and tris, which it takes ownership of. colors
// may be nil for a uniform light grey. The spatial index uses dimension
// bins per axis.
func New(pos []math.Vec3, tris []sculpt.Tri, colors []math.Vec3, dimension int) *Mesh {
	if colors == nil {
		colors = make([]math.Vec3, len(pos))
		for i := range colors {
			colors[i] = math.Vec3{X: 0.8, Y: 0.8, Z: 0.8}
		}
	}
	m := &Mesh{
		pos:     pos,
		normals: make([]math.Vec3, len(pos)),
		colors:  colors,
		effect:  make([]float32, len(pos)),
		tris:    tris,
		faces:   make([]math.Vec3, len(tris)),
		dirty:   make([]bool, (len(pos)>>ChunkBits)+1),
		log:     logger.Named("mesh"),
	}
	m.adj, m.anomalies = topology.BuildAdjacency(tris)
	if m.anomalies > 0 {
		m.log.Warn("non-manifold edges", zap.Int("anomalies", m.anomalies))
	}
	brush.NewNormals(m, 0).Recompute()
	m.Backup()

	m.index = spatial.New(dimension)
	m.index.Bind(m)
	m.log.Info("mesh ready",
		zap.Int("verts", len(pos)),
		zap.Int("tris", len(tris)),
		zap.Bool("degenerate", m.HasDegenerates()),
	)
	return m
}

// SetPoles marks vertices whose position follows the mean of their
// neighbours whenever a triangle touching them is brushed.
func (m *Mesh) SetPoles(verts ...sculpt.VertID) {
	m.poles = m.poles[:0]
	for _, v := range verts {
		if int(v) >= len(m.pos) {
			continue
		}
		p := pole{vert: v}
		seen := map[sculpt.VertID]bool{v: true}
		for t, tri := range m.tris {
			if tri[0] != v && tri[1] != v && tri[2] != v {
				continue
			}
			p.fan = append(p.fan, sculpt.TriID(t))
			for _, u := range tri {
				if !seen[u] {
					seen[u] = true
					p.ring = append(p.ring, u)
				}
			}
		}
		if len(p.ring) > 0 {
			m.poles = append(m.poles, p)
		}
	}
}

func (m *Mesh) Tris() int  { return len(m.tris) }
func (m *Mesh) Verts() int { return len(m.pos) }

func (m *Mesh) TriIndices(t sculpt.TriID) sculpt.Tri { return m.tris[t] }

func (m *Mesh) TriVerts(t sculpt.TriID) (a, b, c math.Vec3) {
	tri := m.tris[t]
	return m.pos[tri[0]], m.pos[tri[1]], m.pos[tri[2]]
}

func (m *Mesh) Adjacency(t sculpt.TriID) sculpt.Adjacency { return m.adj.Adjacency(t) }

func (m *Mesh) FaceNormal(t sculpt.TriID) math.Vec3 { return m.faces[t] }

func (m *Mesh) SetFaceNormal(t sculpt.TriID, n math.Vec3) { m.faces[t] = n }

func (m *Mesh) VertexNormal(v sculpt.VertID) math.Vec3 { return m.normals[v] }

func (m *Mesh) SetVertexNormal(v sculpt.VertID, n math.Vec3) {
	m.normals[v] = n
	m.markVert(v)
}

// Centroid returns the centroid of t.
func (m *Mesh) Centroid(t sculpt.TriID) math.Vec3 {
	return math.Centroid(m.TriVerts(t))
}

// Positions returns the vertex positions. The slice is shared.
func (m *Mesh) Positions() []math.Vec3 { return m.pos }

// Normals returns the vertex normals. The slice is shared.
func (m *Mesh) Normals() []math.Vec3 { return m.normals }

// Colors returns the vertex colors. The slice is shared.
func (m *Mesh) Colors() []math.Vec3 { return m.colors }

// Indices returns the triangle list. The slice is shared.
func (m *Mesh) Indices() []sculpt.Tri { return m.tris }

// Index returns the ray cast index over the mesh.
func (m *Mesh) Index() *spatial.Index { return m.index }

// Anomalies returns the number of edges shared by more than two triangles.
func (m *Mesh) Anomalies() int { return m.anomalies }

// HasDegenerates reports whether any triangle has two coincident vertices.
func (m *Mesh) HasDegenerates() bool {
	for t := range m.tris {
		a, b, c := m.TriVerts(sculpt.TriID(t))
		if a == b || b == c || a == c {
			return true
		}
	}
	return false
}

// Bounds returns the axis-aligned box around every vertex.
func (m *Mesh) Bounds() (lo, hi math.Vec3) {
	if len(m.pos) == 0 {
		return
	}
	lo, hi = m.pos[0], m.pos[0]
	for _, p := range m.pos[1:] {
		lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	return lo, hi
}

// BrushPos moves t's vertices by dir·k and refits the index.
func (m *Mesh) BrushPos(t sculpt.TriID, dir math.Vec3, k float32) {
	if int(t) >= len(m.tris) {
		return
	}
	d := dir.Scale(k)
	tri := m.tris[t]
	for _, v := range tri {
		m.pos[v] = m.pos[v].Add(d)
		m.markVert(v)
	}
	m.recenterPoles(tri)
	m.inflate(t)
}

// BrushZ raises t's vertices off their backed-up positions along t's face
// normal. Each vertex keeps the largest effect it has seen since the last
// ResetEffect, so repeated passes do not stack.
func (m *Mesh) BrushZ(t sculpt.TriID, k float32) {
	if int(t) >= len(m.tris) {
		return
	}
	n := m.faces[t]
	tri := m.tris[t]
	for _, v := range tri {
		m.effect[v] = max(m.effect[v], k)
		m.pos[v] = m.backupPos[v].Add(n.Scale(m.effect[v]))
		m.markVert(v)
	}
	m.recenterPoles(tri)
	m.inflate(t)
}

// BrushColor blends t's vertex colors toward color. A blend of 1 replaces
// them.
func (m *Mesh) BrushColor(t sculpt.TriID, color math.Vec3, blend float32) {
	if int(t) >= len(m.tris) {
		return
	}
	for _, v := range m.tris[t] {
		m.colors[v] = m.colors[v].Lerp(color, blend)
		m.markVert(v)
	}
}

// Backup snapshots positions and colors for Restore and BrushZ.
func (m *Mesh) Backup() {
	m.backupPos = append(m.backupPos[:0], m.pos...)
	m.backupColors = append(m.backupColors[:0], m.colors...)
}

// Restore returns positions and colors to the last Backup and rebuilds
// normals and the index.
func (m *Mesh) Restore() {
	copy(m.pos, m.backupPos)
	copy(m.colors, m.backupColors)
	m.ResetEffect()
	brush.NewNormals(m, 0).Recompute()
	m.RebuildIndex()
	m.MarkAllDirty()
}

// ResetEffect forgets BrushZ's per-vertex effects.
func (m *Mesh) ResetEffect() {
	clear(m.effect)
}

// RebuildIndex refits the spatial index to the current geometry, dropping
// the slack accumulated by incremental inflation.
func (m *Mesh) RebuildIndex() {
	m.index.Rebuild()
}

// MarkAllDirty schedules every vertex for upload.
func (m *Mesh) MarkAllDirty() {
	for i := range m.dirty {
		m.dirty[i] = true
	}
	m.ndirt = len(m.dirty)
}

// Dirty reports whether any vertex awaits upload.
func (m *Mesh) Dirty() bool { return m.ndirt > 0 }

// TakeDirty calls fn with each run of modified vertices, first index and
// count, in ascending order, and clears the record.
func (m *Mesh) TakeDirty(fn func(first, count int)) {
	if m.ndirt == 0 {
		return
	}
	size := 1 << ChunkBits
	for i := 0; i < len(m.dirty); {
		if !m.dirty[i] {
			i++
			continue
		}
		j := i
		for j < len(m.dirty) && m.dirty[j] {
			m.dirty[j] = false
			j++
		}
		first := i * size
		count := min(j*size, len(m.pos)) - first
		if count > 0 {
			fn(first, count)
		}
		i = j
	}
	m.ndirt = 0
}

func (m *Mesh) markVert(v sculpt.VertID) {
	c := int(v) >> ChunkBits
	if !m.dirty[c] {
		m.dirty[c] = true
		m.ndirt++
	}
}

func (m *Mesh) inflate(t sculpt.TriID) {
	a, b, c := m.TriVerts(t)
	m.index.Inflate(t, a, b, c)
}

// recenterPoles moves any pole of tri back to its ring's mean.
func (m *Mesh) recenterPoles(tri sculpt.Tri) {
	for i := range m.poles {
		p := &m.poles[i]
		if tri[0] != p.vert && tri[1] != p.vert && tri[2] != p.vert {
			continue
		}
		var sum math.Vec3
		for _, v := range p.ring {
			sum = sum.Add(m.pos[v])
		}
		m.pos[p.vert] = sum.Scale(1 / float32(len(p.ring)))
		m.markVert(p.vert)
		for _, t := range p.fan {
			m.inflate(t)
		}
	}
}

var (
	_ sculpt.Surface        = (*Mesh)(nil)
	_ sculpt.Renormalizable = (*Mesh)(nil)
)
