package spatial

import (
	"go.uber.org/zap"

	"github.com/Faultbox/sculptor/internal/engine/picking"
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/pkg/math"
)

// Stage names the cascade step that produced a query's answer.
type Stage uint8

// Cascade stages, cheapest first.
const (
	StageMiss      Stage = iota
	StagePrevTri         // the previous hit triangle
	StagePrevBin         // the previous hit's bin
	StageStickyBin       // the last bin that produced a hit
	StageRing            // bins around the sticky bin
	StageSpheres         // every remaining bin sphere
	StageSweep           // every remaining triangle
	NumStages
)

var stageNames = [NumStages]string{"miss", "prev_tri", "prev_bin", "sticky_bin", "ring", "spheres", "sweep"}

func (s Stage) String() string {
	if s < NumStages {
		return stageNames[s]
	}
	return "unknown"
}

// Query describes one IdentifyTri call.
type Query struct {
	Stage      Stage
	Bins       int // bins examined
	SphereHits int // bin spheres the ray passed through
	Tris       int // ray-triangle tests
}

// Stats accumulates index activity since creation.
type Stats struct {
	Queries     uint64
	Stages      [NumStages]uint64
	Inflates    uint64
	BinsCreated uint64
}

// Stats returns a copy of the counters.
func (ix *Index) Stats() Stats { return ix.stats }

// Last returns the most recent query.
func (ix *Index) Last() Query { return ix.last }

// IdentifyTri casts a ray from origin along dir and reports whether it hit
// the mesh. See Identify.
func (ix *Index) IdentifyTri(ctx *sculpt.SearchContext, origin, dir math.Vec3) bool {
	return ix.Identify(ctx, origin, dir) != StageMiss
}

// Identify casts a ray and records the first front-facing triangle it hits
// in ctx, trying in order: ctx's triangle, ctx's bin, the sticky bin, a ring
// of bins around the sticky bin, every bin sphere, and finally every
// triangle. Each bin and triangle is tested at most once per call. A hit
// updates ctx.LastValidBin; a miss sets ctx.Tri and ctx.Bin to the
// sentinels and leaves the sticky bin alone.
func (ix *Index) Identify(ctx *sculpt.SearchContext, origin, dir math.Vec3) Stage {
	q := query{ix: ix, ctx: ctx, ray: picking.Ray{Origin: origin, Direction: dir.Normalize()}}
	ix.nextSerial()

	stage := q.run()
	if stage == StageMiss {
		ctx.Tri = sculpt.NoTri
		ctx.Bin = sculpt.NoBin
	} else {
		if ctx.Bin == sculpt.NoBin {
			// a hit on the previous triangle alone carries no bin
			ctx.Bin = ix.triBins[ctx.Tri][0]
		}
		ctx.LastValidBin = ctx.Bin
	}

	q.stats.Stage = stage
	ix.last = q.stats
	ix.stats.Queries++
	ix.stats.Stages[stage]++

	if ce := ix.log.Check(zap.DebugLevel, "identify"); ce != nil {
		ce.Write(
			zap.Stringer("stage", stage),
			zap.Int("bins", q.stats.Bins),
			zap.Int("sphere_hits", q.stats.SphereHits),
			zap.Int("tris", q.stats.Tris),
			zap.Uint32("tri", uint32(ctx.Tri)),
		)
	}
	if ix.OnIdentify != nil {
		ix.OnIdentify(q.stats)
	}
	return stage
}

// nextSerial starts a new query generation, clearing stamps on wrap.
func (ix *Index) nextSerial() {
	ix.serial++
	if ix.serial != 0 {
		return
	}
	clear(ix.triSerial)
	for _, bn := range ix.bins {
		bn.serial = 0
	}
	ix.serial = 1
}

// query is the state of one cascade run.
type query struct {
	ix    *Index
	ctx   *sculpt.SearchContext
	ray   picking.Ray
	stats Query
}

func (q *query) run() Stage {
	ctx := q.ctx
	if q.ix.src == nil || len(q.ix.triBins) == 0 {
		return StageMiss
	}

	if ctx.Tri != sculpt.NoTri && q.tri(ctx.Tri) {
		return StagePrevTri
	}
	ctx.Tri = sculpt.NoTri

	if ctx.Bin != sculpt.NoBin && q.bin(ctx.Bin, false) {
		return StagePrevBin
	}
	ctx.Bin = sculpt.NoBin

	if sticky := ctx.LastValidBin; sticky != sculpt.NoBin {
		if q.bin(sticky, false) {
			return StageStickyBin
		}
		if q.ring(sticky) {
			return StageRing
		}
	}

	for _, b := range q.ix.order {
		if q.bin(b, true) {
			return StageSpheres
		}
	}

	for _, b := range q.ix.order {
		for _, t := range q.ix.bins[b].tris {
			if q.tri(t) {
				ctx.Bin = b
				return StageSweep
			}
		}
	}
	return StageMiss
}

// ring walks square rings of growing radius around center: the four axis
// neighbours, the four corners, then the remaining cells of each side.
func (q *query) ring(center sculpt.BinID) bool {
	dim := q.ix.dim
	check := func(dx, dy int) bool {
		return q.bin(AdjustBin(center, dx, dy, dim), true)
	}

	for d := 1; d < dim/4; d++ {
		if check(-d, 0) || check(d, 0) || check(0, -d) || check(0, d) {
			return true
		}
		if check(-d, -d) || check(d, -d) || check(-d, d) || check(d, d) {
			return true
		}
		for e := 1; e < d; e++ {
			if check(e, -d) || check(-e, -d) || check(e, d) || check(-e, d) {
				return true
			}
			if check(-d, e) || check(-d, -e) || check(d, e) || check(d, -e) {
				return true
			}
		}
	}
	return false
}

// bin tests b's triangles unless b was already examined this call. With
// sphere set, the ray must pass through b's sphere first.
func (q *query) bin(b sculpt.BinID, sphere bool) bool {
	bn, ok := q.ix.bins[b]
	if !ok || bn.serial == q.ix.serial {
		return false
	}
	bn.serial = q.ix.serial
	q.stats.Bins++

	if sphere {
		if !q.ray.IntersectSphere(bn.center, bn.radius) {
			return false
		}
		q.stats.SphereHits++
	}

	for _, t := range bn.tris {
		if q.tri(t) {
			q.ctx.Bin = b
			return true
		}
	}
	return false
}

// tri runs the exact ray-triangle test unless t was already tested this call.
func (q *query) tri(t sculpt.TriID) bool {
	ix := q.ix
	if int(t) >= len(ix.triSerial) || ix.triSerial[t] == ix.serial {
		return false
	}
	ix.triSerial[t] = ix.serial
	q.stats.Tris++

	a, b, c := ix.src.TriVerts(t)
	if _, hit := q.ray.IntersectTriangle(a, b, c, true); !hit {
		return false
	}
	q.ctx.Tri = t
	return true
}
