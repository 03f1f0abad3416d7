// Package brush turns pointer strokes into per-triangle paint calls and
// keeps normals in step with brushed geometry.
//
// Both brushes are budgeted queues: the host calls Stroke once per frame
// with a unit budget, and whatever work is left waits in the queue for the
// next frame. Nothing here blocks or spawns goroutines.
package brush

import (
	"go.uber.org/zap"

	"github.com/Faultbox/sculptor/internal/logger"
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/internal/sculpt/topology"
	"github.com/Faultbox/sculptor/pkg/math"
)

// smallestNormal is the smallest positive normal float32. Patch radii below
// it select a single triangle.
const smallestNormal = 1.17549435e-38

// segment is a queued piece of pointer path walked one pixel per step.
type segment struct {
	pos   math.Vec3
	dir   math.Vec3
	steps int
}

// StrokeStats counts stroker activity since creation.
type StrokeStats struct {
	Strokes uint64 // successful starts
	Misses  uint64 // starts that hit nothing
	Probes  uint64 // ray casts after the start
	Painted uint64 // paint calls
}

// Stroker follows the pointer across a surface and feeds patches of
// triangles to a paint callback. It is not safe for concurrent use.
type Stroker struct {
	ident   sculpt.Identifier
	surf    sculpt.Surface
	visitor *topology.Visitor

	ctx      sculpt.SearchContext
	patch    queue[sculpt.TriEffect]
	segments queue[segment]
	scratch  []sculpt.TriEffect

	painted []sculpt.Serial
	serial  sculpt.Serial

	eye       math.Vec3
	project   sculpt.ProjectFn
	unproject sculpt.ProjectFn
	effector  sculpt.EffectorFn
	radius    float32
	active    bool

	start     math.Vec3 // pointer at Start
	last      math.Vec3 // last walked path position
	lastEnd   math.Vec3 // end of the newest queued segment
	lastProbe math.Vec3 // path position of the last ray cast

	normal    math.Vec2 // root triangle's normal in window space
	normalLen float32

	stats StrokeStats
	log   *zap.Logger

	// ProbeSpacing is the path distance, in pixels, walked before the
	// stroker casts another ray.
	ProbeSpacing float32

	// OnRoot, when set, is called with each patch root before its patch is
	// collected, so an effector can measure distances from it.
	OnRoot func(t sculpt.TriID)
}

// NewStroker returns a stroker casting rays with ident over surf.
func NewStroker(ident sculpt.Identifier, surf sculpt.Surface) *Stroker {
	return &Stroker{
		ident:        ident,
		surf:         surf,
		visitor:      topology.NewVisitor(surf),
		ctx:          sculpt.NewSearchContext(),
		painted:      make([]sculpt.Serial, surf.Tris()),
		log:          logger.Named("stroke"),
		ProbeSpacing: 1,
	}
}

// Start begins a stroke at window position p seen from eye. project and
// unproject map between world and window space for the rest of the stroke.
// A radius below the smallest normal float32 paints single triangles;
// otherwise effector shapes each patch. Start reports whether the pointer
// is over the surface. Pending path from an earlier stroke is dropped.
func (s *Stroker) Start(p, eye math.Vec3, project, unproject sculpt.ProjectFn, effector sculpt.EffectorFn, radius float32) bool {
	s.segments.Clear()
	s.patch.Clear()
	s.start, s.last, s.lastEnd, s.lastProbe = p, p, p, p
	s.eye = eye
	s.project = project
	s.unproject = unproject
	s.effector = effector
	s.radius = radius

	s.ctx.Reset()
	if !s.ident.IdentifyTri(&s.ctx, eye, s.rayTo(p)) {
		s.active = false
		s.stats.Misses++
		s.log.Debug("stroke start missed", zap.Float32("x", p.X), zap.Float32("y", p.Y))
		return false
	}
	s.active = true
	s.stats.Strokes++

	root := s.ctx.Tri
	c := math.Centroid(s.surf.TriVerts(root))
	n := project(c.Add(s.surf.FaceNormal(root))).Sub(project(c)).XY()
	s.normal = n
	s.normalLen = n.Length()

	s.nextSerial()
	s.fill(root)
	s.log.Debug("stroke started",
		zap.Uint32("tri", uint32(root)),
		zap.Float32("radius", radius),
		zap.Int("patch", s.patch.Len()),
	)
	return true
}

// Continue extends the stroke to window position p. Moves shorter than a
// pixel advance the anchor without queuing a segment.
func (s *Stroker) Continue(p math.Vec3) {
	delta := p.Sub(s.lastEnd)
	length := delta.Length()
	if length < 1 {
		s.lastEnd = p
		return
	}
	s.segments.Push(segment{pos: s.lastEnd, dir: delta.Scale(1 / length), steps: int(length)})
	s.lastEnd = p
}

// Stop drops the pending path. A patch already queued still drains.
func (s *Stroker) Stop() {
	s.segments.Clear()
}

// Cancel ends the stroke and drops all pending work.
func (s *Stroker) Cancel() {
	s.segments.Clear()
	s.patch.Clear()
	s.active = false
}

// Stroke does at most budget units of work and returns how many it did. A
// unit paints one queued triangle or, with the patch empty, walks the path
// one pixel. Once the walk leaves the current triangle's screen footprint a
// ray is cast, and a newly hit triangle not yet painted in this stroke
// becomes the root of the next patch.
func (s *Stroker) Stroke(paint sculpt.PaintFn, budget int) int {
	if !s.active {
		return 0
	}
	n := 0
	for ; n < budget; n++ {
		if e, ok := s.patch.Pop(); ok {
			s.painted[e.Tri] = s.serial
			s.stats.Painted++
			paint(e.Tri, e.Effect, 0)
			continue
		}
		if !s.advance() {
			break
		}
		if !s.shouldProbe() {
			continue
		}
		s.lastProbe = s.last
		s.stats.Probes++

		trial := s.ctx
		if !s.ident.IdentifyTri(&trial, s.eye, s.rayTo(s.last)) {
			continue
		}
		if trial.Tri == s.ctx.Tri || s.painted[trial.Tri] == s.serial {
			continue
		}
		s.ctx = trial
		s.fill(trial.Tri)
	}
	return n
}

// StrokeHandled drags the start patch like a handle. Each unit walks the
// path one pixel and repaints the whole patch with a handle weight that
// grows with the distance dragged, signed by whether the drag points along
// or against the root triangle's screen-space normal. The patch is kept for
// the next call.
func (s *Stroker) StrokeHandled(paint sculpt.PaintFn, budget int) int {
	if !s.active || s.ctx.Tri == sculpt.NoTri {
		return 0
	}
	scale := 1 / ((1 + s.radius) * (1 + s.radius) * (1 + s.radius))
	normalLen := max(s.normalLen, 1)

	n := 0
	for ; n < budget; n++ {
		prev := s.last
		if !s.advance() {
			break
		}
		if s.last.Distance(prev) < 0.5 {
			continue
		}

		move := s.last.Sub(s.start).XY()
		dir := float32(1)
		if move.Dot(s.normal) < 0 {
			dir = -1
		}
		handle := scale * dir * move.Length() / normalLen
		s.patch.Each(func(e sculpt.TriEffect) {
			s.stats.Painted++
			paint(e.Tri, e.Effect, handle)
		})
	}
	return n
}

// Root returns the triangle under the pointer, or NoTri.
func (s *Stroker) Root() sculpt.TriID { return s.ctx.Tri }

// Active reports whether the last Start hit the surface.
func (s *Stroker) Active() bool { return s.active }

// PatchRadius returns the radius given to Start.
func (s *Stroker) PatchRadius() float32 { return s.radius }

// PatchSerial identifies the current stroke. Triangles painted in it carry
// this serial.
func (s *Stroker) PatchSerial() sculpt.Serial { return s.serial }

// Busy reports whether patch or path work is pending.
func (s *Stroker) Busy() bool {
	return s.active && (s.patch.Len() > 0 || s.segments.Len() > 0)
}

// Pending returns the queued patch and path lengths.
func (s *Stroker) Pending() (patch, segments int) {
	return s.patch.Len(), s.segments.Len()
}

// Stats returns a copy of the counters.
func (s *Stroker) Stats() StrokeStats { return s.stats }

// advance walks the front segment one pixel.
func (s *Stroker) advance() bool {
	seg := s.segments.Front()
	if seg == nil {
		return false
	}
	seg.pos = seg.pos.Add(seg.dir)
	seg.steps--
	s.last = seg.pos
	if seg.steps <= 0 {
		s.segments.Pop()
	}
	return true
}

// shouldProbe reports whether the walk has gone far enough, and left the
// current triangle's screen footprint, to justify a ray cast.
func (s *Stroker) shouldProbe() bool {
	if s.last.Distance(s.lastProbe) < s.ProbeSpacing {
		return false
	}
	if s.ctx.Tri == sculpt.NoTri {
		return true
	}
	a, b, c := s.surf.TriVerts(s.ctx.Tri)
	return !s.last.XY().InTriangle(s.project(a).XY(), s.project(b).XY(), s.project(c).XY())
}

// fill queues the patch rooted at t.
func (s *Stroker) fill(t sculpt.TriID) {
	if s.OnRoot != nil {
		s.OnRoot(t)
	}
	if s.radius < smallestNormal || s.effector == nil {
		s.patch.Push(sculpt.TriEffect{Tri: t, Effect: 1})
		return
	}
	s.scratch = s.visitor.Visit(t, s.effector, s.scratch[:0])
	for _, e := range s.scratch {
		s.patch.Push(e)
	}
}

func (s *Stroker) rayTo(p math.Vec3) math.Vec3 {
	return s.unproject(p).Sub(s.eye).Normalize()
}

func (s *Stroker) nextSerial() {
	s.serial++
	if s.serial == 0 {
		clear(s.painted)
		s.serial = 1
	}
}
