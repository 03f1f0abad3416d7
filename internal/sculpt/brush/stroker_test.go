package brush

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/internal/sculpt/sculpttest"
	"github.com/Faultbox/sculptor/internal/sculpt/spatial"
	"github.com/Faultbox/sculptor/pkg/math"
)

// pinhole is a camera looking down -Z from eye with focal length f pixels
// and the image center at (cx, cy). Unprojected points lie one unit in
// front of the eye.
type pinhole struct {
	eye    math.Vec3
	f      float32
	cx, cy float32
}

func (p pinhole) project(w math.Vec3) math.Vec3 {
	d := p.eye.Z - w.Z
	return math.Vec3{
		X: p.cx + p.f*(w.X-p.eye.X)/d,
		Y: p.cy + p.f*(w.Y-p.eye.Y)/d,
	}
}

func (p pinhole) unproject(s math.Vec3) math.Vec3 {
	return math.Vec3{
		X: p.eye.X + (s.X-p.cx)/p.f,
		Y: p.eye.Y + (s.Y-p.cy)/p.f,
		Z: p.eye.Z - 1,
	}
}

type countingIdentifier struct {
	sculpt.Identifier
	calls int
}

func (c *countingIdentifier) IdentifyTri(ctx *sculpt.SearchContext, origin, dir math.Vec3) bool {
	c.calls++
	return c.Identifier.IdentifyTri(ctx, origin, dir)
}

type paintLog struct {
	tris    []sculpt.TriID
	patch   []float32
	handles []float32
}

func (l *paintLog) paint(t sculpt.TriID, patch, handle float32) {
	l.tris = append(l.tris, t)
	l.patch = append(l.patch, patch)
	l.handles = append(l.handles, handle)
}

// gridRig is a 6x6 sheet seen from above: one grid unit spans 20 pixels and
// cell (3, 3) starts at pixel (200, 200).
type gridRig struct {
	mesh   *sculpttest.Mesh
	ident  *countingIdentifier
	cam    pinhole
	stroke *Stroker
}

func newGridRig(t *testing.T) *gridRig {
	t.Helper()
	m := sculpttest.Grid(6, 6)
	ix := spatial.New(spatial.DefaultDimension)
	ix.Bind(m)
	ident := &countingIdentifier{Identifier: ix}
	return &gridRig{
		mesh:   m,
		ident:  ident,
		cam:    pinhole{eye: math.Vec3{X: 3, Y: 3, Z: 5}, f: 100, cx: 200, cy: 200},
		stroke: NewStroker(ident, m),
	}
}

// gridTri returns the lower or upper triangle of cell (x, y).
func gridTri(x, y int, upper bool) sculpt.TriID {
	t := sculpt.TriID((y*6 + x) * 2)
	if upper {
		t++
	}
	return t
}

func (r *gridRig) start(p math.Vec3, effector sculpt.EffectorFn, radius float32) bool {
	return r.stroke.Start(p, r.cam.eye, r.cam.project, r.cam.unproject, effector, radius)
}

func TestStrokeSingleTriangleWithoutReprobing(t *testing.T) {
	r := newGridRig(t)
	a := gridTri(3, 3, false)

	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, nil, 0))
	require.Equal(t, a, r.stroke.Root())
	require.Equal(t, 1, r.ident.calls)

	// Wander inside A's footprint.
	for _, p := range []math.Vec3{{X: 216, Y: 205}, {X: 212, Y: 204}, {X: 215, Y: 208}, {X: 213, Y: 206}} {
		r.stroke.Continue(p)
	}

	var log paintLog
	for i := 0; i < 40; i++ {
		r.stroke.Stroke(log.paint, 1)
	}
	assert.Equal(t, []sculpt.TriID{a}, log.tris)
	assert.Equal(t, []float32{1}, log.patch)
	assert.Equal(t, 1, r.ident.calls)
	assert.False(t, r.stroke.Busy())
}

func TestStrokeFollowsPath(t *testing.T) {
	r := newGridRig(t)

	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, nil, 0))
	r.stroke.Continue(math.Vec3{X: 253.5, Y: 206.7})

	var log paintLog
	for r.stroke.Busy() {
		r.stroke.Stroke(log.paint, 8)
	}

	want := []sculpt.TriID{
		gridTri(3, 3, false),
		gridTri(4, 3, true), gridTri(4, 3, false),
		gridTri(5, 3, true), gridTri(5, 3, false),
	}
	assert.Equal(t, want, log.tris)
	assert.Equal(t, gridTri(5, 3, false), r.stroke.Root())
	assert.Greater(t, r.ident.calls, 1)
	assert.Less(t, r.ident.calls, 41, "one ray per pixel at most")
	assert.Equal(t, uint64(len(want)), r.stroke.Stats().Painted)
}

func TestStrokeDoesNotRepaint(t *testing.T) {
	r := newGridRig(t)

	// Out and back over the same triangles.
	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, nil, 0))
	r.stroke.Continue(math.Vec3{X: 253.5, Y: 206.7})
	r.stroke.Continue(math.Vec3{X: 213.5, Y: 206.7})

	var log paintLog
	for r.stroke.Busy() {
		r.stroke.Stroke(log.paint, 8)
	}
	assert.Len(t, log.tris, 5)

	// A new stroke paints again.
	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, nil, 0))
	r.stroke.Stroke(log.paint, 8)
	assert.Len(t, log.tris, 6)
}

func TestStrokePatch(t *testing.T) {
	r := newGridRig(t)
	a := gridTri(3, 3, false)

	adj := r.mesh.Adjacency(a)
	require.GreaterOrEqual(t, adj.Count(), 2)
	want := map[sculpt.TriID]bool{a: true, adj[0]: true, adj[1]: true}
	effector := func(tri sculpt.TriID) (bool, float32) {
		return want[tri], 0.5
	}

	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, effector, 1))
	patch, segments := r.stroke.Pending()
	assert.Equal(t, 3, patch)
	assert.Zero(t, segments)

	var log paintLog
	assert.Equal(t, 2, r.stroke.Stroke(log.paint, 2))
	assert.True(t, r.stroke.Busy())
	assert.Equal(t, 1, r.stroke.Stroke(log.paint, 2))
	assert.False(t, r.stroke.Busy())

	assert.ElementsMatch(t, []sculpt.TriID{a, adj[0], adj[1]}, log.tris)
	assert.Equal(t, a, log.tris[0])
	assert.Equal(t, []float32{0.5, 0.5, 0.5}, log.patch)
}

func TestStrokeStopKeepsPatch(t *testing.T) {
	r := newGridRig(t)
	effector := func(sculpt.TriID) (bool, float32) { return true, 1 }

	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, effector, 1))
	patch, _ := r.stroke.Pending()
	require.Equal(t, r.mesh.Tris(), patch)

	r.stroke.Continue(math.Vec3{X: 253.5, Y: 206.7})
	r.stroke.Stop()
	_, segments := r.stroke.Pending()
	assert.Zero(t, segments)

	var log paintLog
	for r.stroke.Busy() {
		r.stroke.Stroke(log.paint, 10)
	}
	assert.Len(t, log.tris, r.mesh.Tris())
	assert.Equal(t, 1, r.ident.calls)
}

func TestStrokeStartMiss(t *testing.T) {
	r := newGridRig(t)

	assert.False(t, r.start(math.Vec3{X: 0, Y: 0}, nil, 0))
	assert.Equal(t, sculpt.NoTri, r.stroke.Root())
	assert.False(t, r.stroke.Active())

	r.stroke.Continue(math.Vec3{X: 200, Y: 200})
	var log paintLog
	assert.Zero(t, r.stroke.Stroke(log.paint, 10))
	assert.Zero(t, r.stroke.StrokeHandled(log.paint, 10))
	assert.Empty(t, log.tris)
	assert.Equal(t, uint64(1), r.stroke.Stats().Misses)
}

func TestContinueIgnoresSubPixelMoves(t *testing.T) {
	r := newGridRig(t)
	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, nil, 0))

	r.stroke.Continue(math.Vec3{X: 214, Y: 206.7})
	_, segments := r.stroke.Pending()
	assert.Zero(t, segments)

	// The anchor moved with the ignored sample.
	r.stroke.Continue(math.Vec3{X: 217, Y: 206.7})
	_, segments = r.stroke.Pending()
	assert.Equal(t, 1, segments)
	assert.Equal(t, 3, r.stroke.segments.Front().steps)
}

func TestStrokeSerialAdvances(t *testing.T) {
	r := newGridRig(t)
	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, nil, 0))
	first := r.stroke.PatchSerial()
	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, nil, 0))
	assert.Equal(t, first+1, r.stroke.PatchSerial())

	r.stroke.serial = ^sculpt.Serial(0)
	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, nil, 0))
	assert.Equal(t, sculpt.Serial(1), r.stroke.PatchSerial())
}

// sphereRig looks at a unit icosphere from +Z. Pixel (230, 200) lands right
// of the center, where the surface normal leans toward +X on screen.
func sphereRig(t *testing.T) (*Stroker, pinhole) {
	t.Helper()
	m := sculpttest.Icosphere(2)
	ix := spatial.New(spatial.DefaultDimension)
	ix.Bind(m)
	cam := pinhole{eye: math.Vec3{Z: 5}, f: 400, cx: 200, cy: 200}
	return NewStroker(ix, m), cam
}

func TestStrokeHandled(t *testing.T) {
	tests := []struct {
		name string
		to   math.Vec3
		sign float32
	}{
		{"along the normal", math.Vec3{X: 250, Y: 200}, 1},
		{"against the normal", math.Vec3{X: 210, Y: 200}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, cam := sphereRig(t)
			require.True(t, s.Start(math.Vec3{X: 230, Y: 200}, cam.eye, cam.project, cam.unproject, nil, 0))
			root := s.Root()
			s.Continue(tt.to)

			var log paintLog
			assert.Equal(t, 5, s.StrokeHandled(log.paint, 5))
			require.Len(t, log.handles, 5)
			for i, h := range log.handles {
				assert.Equal(t, root, log.tris[i])
				assert.Equal(t, tt.sign, sign(h), "step %d", i)
				if i > 0 {
					assert.Greater(t, h*tt.sign, log.handles[i-1]*tt.sign, "step %d", i)
				}
			}

			// The patch stays for the next frame.
			patch, _ := s.Pending()
			assert.Equal(t, 1, patch)
		})
	}
}

func TestStrokeHandledScalesWithRadius(t *testing.T) {
	effector := func(sculpt.TriID) (bool, float32) { return false, 0 }
	handleAt := func(radius float32) float32 {
		s, cam := sphereRig(t)
		require.True(t, s.Start(math.Vec3{X: 230, Y: 200}, cam.eye, cam.project, cam.unproject, effector, radius))
		// Rejecting every triangle leaves nothing to drag.
		patch, _ := s.Pending()
		require.Zero(t, patch)
		s.patch.Push(sculpt.TriEffect{Tri: s.Root(), Effect: 1})

		s.Continue(math.Vec3{X: 240, Y: 200})
		var log paintLog
		s.StrokeHandled(log.paint, 10)
		require.NotEmpty(t, log.handles)
		return log.handles[len(log.handles)-1]
	}

	h0 := handleAt(smallestNormal * 2)
	h1 := handleAt(1)
	assert.InDelta(t, h0/8, h1, 1e-4)
}

func sign(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func TestStrokeOnRootPrecedesPatch(t *testing.T) {
	r := newGridRig(t)
	var roots []sculpt.TriID
	r.stroke.OnRoot = func(tri sculpt.TriID) { roots = append(roots, tri) }

	var effectorSaw sculpt.TriID = sculpt.NoTri
	effector := func(tri sculpt.TriID) (bool, float32) {
		if effectorSaw == sculpt.NoTri {
			effectorSaw = tri
		}
		return tri == roots[len(roots)-1], 1
	}

	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, effector, 1))
	a := gridTri(3, 3, false)
	assert.Equal(t, []sculpt.TriID{a}, roots)
	assert.Equal(t, a, effectorSaw)

	r.stroke.Continue(math.Vec3{X: 233.5, Y: 206.7})
	var log paintLog
	for r.stroke.Busy() {
		r.stroke.Stroke(log.paint, 1)
	}
	assert.Equal(t, roots, log.tris)
	assert.Greater(t, len(roots), 1)
}

func TestStrokeCancel(t *testing.T) {
	r := newGridRig(t)
	effector := func(sculpt.TriID) (bool, float32) { return true, 1 }
	require.True(t, r.start(math.Vec3{X: 213.5, Y: 206.7}, effector, 1))
	r.stroke.Continue(math.Vec3{X: 253.5, Y: 206.7})

	r.stroke.Cancel()
	assert.False(t, r.stroke.Active())
	assert.False(t, r.stroke.Busy())
	var log paintLog
	assert.Zero(t, r.stroke.Stroke(log.paint, 10))
	assert.Empty(t, log.tris)
}
