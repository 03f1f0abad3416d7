// Package sculpt holds the identifiers and capability interfaces shared by the
// sculpting engine: the adjacency graph and patch visitor (topology), the ray
// cast index (spatial) and the stroke and normal brushes (brush).
//
// Engine packages never own geometry. A host mesh hands them its triangles
// through TriangleSource and receives edits through the callbacks it passes
// in, so the same engine drives generated spheres, loaded STL files and the
// synthetic meshes used in tests.
package sculpt

import (
	"math"

	gm "github.com/Faultbox/sculptor/pkg/math"
)

// TriID indexes a triangle.
type TriID uint32

// VertID indexes a vertex.
type VertID uint32

// BinID packs a spatial bin's grid cell as x<<8 | y.
type BinID uint16

// Serial is a generation counter used to mark work as done without clearing
// per-triangle state.
type Serial uint32

// Sentinels meaning "no triangle" and "no bin".
const (
	NoTri TriID = math.MaxUint32
	NoBin BinID = math.MaxUint16
)

// MakeBinID packs grid coordinates into a BinID.
func MakeBinID(x, y uint8) BinID {
	return BinID(x)<<8 | BinID(y)
}

// X returns the longitude cell.
func (b BinID) X() uint8 { return uint8(b >> 8) }

// Y returns the latitude cell.
func (b BinID) Y() uint8 { return uint8(b) }

// Tri lists a triangle's vertices in counter-clockwise order seen from
// outside.
type Tri [3]VertID

// Adjacency lists up to three edge neighbours of a triangle. Unused slots
// hold NoTri.
type Adjacency [3]TriID

// NoAdjacency returns an entry with every slot empty.
func NoAdjacency() Adjacency {
	return Adjacency{NoTri, NoTri, NoTri}
}

// Has reports whether t is one of the neighbours.
func (a Adjacency) Has(t TriID) bool {
	return a[0] == t || a[1] == t || a[2] == t
}

// Count returns the number of filled slots.
func (a Adjacency) Count() int {
	n := 0
	for _, t := range a {
		if t != NoTri {
			n++
		}
	}
	return n
}

// TriEffect pairs a triangle with the strength a brush applies to it.
type TriEffect struct {
	Tri    TriID
	Effect float32
}

// SearchContext carries the caller's last ray cast result so the next query
// can start from it. The zero value is not ready; use NewSearchContext.
type SearchContext struct {
	Tri          TriID
	Bin          BinID
	LastValidBin BinID
}

// NewSearchContext returns a context with no previous hit and no sticky
// bin.
func NewSearchContext() SearchContext {
	return SearchContext{Tri: NoTri, Bin: NoBin, LastValidBin: NoBin}
}

// Valid reports whether the context holds a hit.
func (c SearchContext) Valid() bool {
	return c.Tri != NoTri && c.Bin != NoBin
}

// Reset forgets the last hit but keeps the sticky bin.
func (c *SearchContext) Reset() {
	c.Tri = NoTri
	c.Bin = NoBin
}

// EffectorFn decides whether a triangle belongs to the current patch and how
// strongly it is affected.
type EffectorFn func(t TriID) (include bool, effect float32)

// PaintFn applies a brush to one triangle. patch is the triangle's effect;
// handle is the signed handle weight, zero outside handle strokes.
type PaintFn func(t TriID, patch, handle float32)

// ProjectFn maps between world and window space.
type ProjectFn func(p gm.Vec3) gm.Vec3

// TriangleSource exposes read-only mesh topology and geometry.
type TriangleSource interface {
	// Tris returns the triangle count.
	Tris() int
	// TriIndices returns the vertex indices of t.
	TriIndices(t TriID) Tri
	// TriVerts returns the current positions of t's vertices.
	TriVerts(t TriID) (a, b, c gm.Vec3)
	// Adjacency returns t's edge neighbours.
	Adjacency(t TriID) Adjacency
}

// Surface is a TriangleSource that also knows its face normals.
type Surface interface {
	TriangleSource
	FaceNormal(t TriID) gm.Vec3
}

// Identifier finds the triangle under a ray. Hits and misses are written back
// into ctx.
type Identifier interface {
	IdentifyTri(ctx *SearchContext, origin, dir gm.Vec3) bool
}

// Renormalizable is a mesh whose normals the normal brush may rewrite.
type Renormalizable interface {
	Tris() int
	Verts() int
	TriIndices(t TriID) Tri
	TriVerts(t TriID) (a, b, c gm.Vec3)
	Adjacency(t TriID) Adjacency
	FaceNormal(t TriID) gm.Vec3
	SetFaceNormal(t TriID, n gm.Vec3)
	VertexNormal(v VertID) gm.Vec3
	SetVertexNormal(v VertID, n gm.Vec3)
}
