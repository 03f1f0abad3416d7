// Package spatial answers "which triangle does this ray hit first" for a mesh
// whose vertices keep moving.
//
// Triangles are hashed into bins by the direction of their vertices and
// centroid from the mesh center. Each bin keeps a bounding sphere that only
// ever grows as its triangles are displaced, so the index stays conservative
// without being rebuilt during a stroke. Queries run a cascade that starts
// from the caller's previous hit and widens until the whole mesh has been
// swept.
package spatial

import (
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/sculptor/internal/logger"
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/pkg/math"
)

// DefaultDimension is the default number of grid cells per axis.
const DefaultDimension = 32

// bin is one grid cell's bounding sphere and triangle list.
type bin struct {
	center math.Vec3
	radius float32
	serial sculpt.Serial
	tris   []sculpt.TriID
}

// Index is a ray cast index over a TriangleSource. It is not safe for
// concurrent use; the host drives it from its frame loop.
type Index struct {
	src    sculpt.TriangleSource
	dim    int
	center math.Vec3

	bins  map[sculpt.BinID]*bin
	order []sculpt.BinID // sorted keys of bins

	triSerial []sculpt.Serial
	triBins   [][]sculpt.BinID
	serial    sculpt.Serial

	last  Query
	stats Stats
	log   *zap.Logger

	// OnIdentify, when set, receives every query's outcome.
	OnIdentify func(Query)
}

// New returns an empty index with the given grid dimension, clamped to
// [4, 255].
func New(dimension int) *Index {
	if dimension < 4 {
		dimension = 4
	}
	if dimension > 255 {
		dimension = 255
	}
	return &Index{
		dim:  dimension,
		bins: make(map[sculpt.BinID]*bin),
		log:  logger.Named("index"),
	}
}

// Bind builds the index over src. The center of the grid is the mean of the
// triangle centroids at bind time.
func (ix *Index) Bind(src sculpt.TriangleSource) {
	ix.src = src
	ix.Rebuild()
}

// Rebuild discards every bin and rebuilds from the source's current
// geometry. The stats survive.
func (ix *Index) Rebuild() {
	if ix.src == nil {
		return
	}
	n := ix.src.Tris()

	ix.center = math.Vec3{}
	for t := 0; t < n; t++ {
		ix.center = ix.center.Add(math.Centroid(ix.src.TriVerts(sculpt.TriID(t))))
	}
	if n > 0 {
		ix.center = ix.center.Scale(1 / float32(n))
	}

	ix.bins = make(map[sculpt.BinID]*bin)
	ix.triSerial = make([]sculpt.Serial, n)
	ix.triBins = make([][]sculpt.BinID, n)
	ix.serial = 0

	points := make(map[sculpt.BinID][]math.Vec3)
	relations := 0
	for t := 0; t < n; t++ {
		id := sculpt.TriID(t)
		samples := ix.samples(id)
		for _, p := range samples {
			b := MakeBin(p, ix.center, ix.dim)
			points[b] = append(points[b], p)
			if !slices.Contains(ix.triBins[t], b) {
				ix.triBins[t] = append(ix.triBins[t], b)
				relations++
			}
		}
	}

	for b, pts := range points {
		ix.bins[b] = ix.newBin(pts)
	}
	for t, bs := range ix.triBins {
		for _, b := range bs {
			ix.bins[b].tris = append(ix.bins[b].tris, sculpt.TriID(t))
		}
	}

	ix.order = ix.order[:0]
	for b := range ix.bins {
		ix.order = append(ix.order, b)
	}
	slices.Sort(ix.order)

	ix.log.Info("index built",
		zap.Int("tris", n),
		zap.Int("spheres", len(ix.bins)),
		zap.Int("bin_tris", relations),
		zap.Int("dimension", ix.dim),
	)
}

// newBin fits a sphere around pts. The center is a running pairwise average
// in sample order; the radius is at least the first sample's seed radius.
func (ix *Index) newBin(pts []math.Vec3) *bin {
	bn := &bin{center: pts[0]}
	for _, p := range pts[1:] {
		bn.center = p.Add(bn.center).Scale(0.5)
	}
	bn.radius = seedRadius(pts[0], ix.center, ix.dim)
	for _, p := range pts {
		bn.radius = max(bn.radius, p.Distance(bn.center))
	}
	return bn
}

// samples returns t's three vertices and its centroid.
func (ix *Index) samples(t sculpt.TriID) [4]math.Vec3 {
	a, b, c := ix.src.TriVerts(t)
	return [4]math.Vec3{a, b, c, math.Centroid(a, b, c)}
}

// Inflate refits the index after t's vertices moved to (v0, v1, v2). Every
// bin holding t grows to cover the new samples, bins the samples newly land
// in gain t, and missing bins are created. Spheres never shrink.
func (ix *Index) Inflate(t sculpt.TriID, v0, v1, v2 math.Vec3) {
	if int(t) >= len(ix.triBins) {
		return
	}
	ix.stats.Inflates++
	samples := [4]math.Vec3{v0, v1, v2, math.Centroid(v0, v1, v2)}

	var fresh map[sculpt.BinID][]math.Vec3
	for _, p := range samples {
		b := MakeBin(p, ix.center, ix.dim)
		if _, ok := ix.bins[b]; ok {
			if !slices.Contains(ix.triBins[t], b) {
				ix.triBins[t] = append(ix.triBins[t], b)
				ix.bins[b].tris = append(ix.bins[b].tris, t)
			}
			continue
		}
		if fresh == nil {
			fresh = make(map[sculpt.BinID][]math.Vec3, 4)
		}
		fresh[b] = append(fresh[b], p)
	}

	for b, pts := range fresh {
		bn := ix.newBin(pts)
		bn.tris = append(bn.tris, t)
		ix.bins[b] = bn
		ix.triBins[t] = append(ix.triBins[t], b)
		pos, _ := slices.BinarySearch(ix.order, b)
		ix.order = slices.Insert(ix.order, pos, b)
		ix.stats.BinsCreated++
	}

	for _, b := range ix.triBins[t] {
		bn := ix.bins[b]
		for _, p := range samples {
			bn.radius = max(bn.radius, p.Distance(bn.center))
		}
	}
}

// Dimension returns the grid size per axis.
func (ix *Index) Dimension() int { return ix.dim }

// Center returns the grid origin.
func (ix *Index) Center() math.Vec3 { return ix.center }

// Len returns the number of bins.
func (ix *Index) Len() int { return len(ix.order) }

// Bins returns the bin ids in ascending order. The slice is shared.
func (ix *Index) Bins() []sculpt.BinID { return ix.order }

// BinsOf returns the bins holding t. The slice is shared.
func (ix *Index) BinsOf(t sculpt.TriID) []sculpt.BinID {
	if int(t) >= len(ix.triBins) {
		return nil
	}
	return ix.triBins[t]
}

// Sphere returns b's bounding sphere.
func (ix *Index) Sphere(b sculpt.BinID) (center math.Vec3, radius float32, ok bool) {
	bn, ok := ix.bins[b]
	if !ok {
		return math.Vec3{}, 0, false
	}
	return bn.center, bn.radius, true
}

// BinTris returns the triangles in b. The slice is shared.
func (ix *Index) BinTris(b sculpt.BinID) []sculpt.TriID {
	if bn, ok := ix.bins[b]; ok {
		return bn.tris
	}
	return nil
}

// Spheres calls fn for every bin in id order.
func (ix *Index) Spheres(fn func(b sculpt.BinID, center math.Vec3, radius float32)) {
	for _, b := range ix.order {
		bn := ix.bins[b]
		fn(b, bn.center, bn.radius)
	}
}
