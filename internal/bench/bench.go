// Package bench drives scripted strokes against a mesh and reports how the
// ray cast cascade and the brushes performed.
package bench

import (
	"fmt"
	"io"
	"math/rand"
	"text/tabwriter"
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/sculptor/internal/engine/camera"
	"github.com/Faultbox/sculptor/internal/logger"
	"github.com/Faultbox/sculptor/internal/mesh"
	"github.com/Faultbox/sculptor/internal/sculpt/brush"
	"github.com/Faultbox/sculptor/internal/sculpt/spatial"
	"github.com/Faultbox/sculptor/internal/sculpt/tool"
	"github.com/Faultbox/sculptor/pkg/math"
)

// viewport is the square window strokes are drawn in.
const viewport = 512

// Options configures a run.
type Options struct {
	Strokes int     // number of strokes
	Length  float32 // stroke length in pixels
	Mode    tool.Mode
	Radius  float32 // patch radius
	Budget  int     // work units per simulated frame
	Seed    int64
}

// DefaultOptions returns a run of 32 inflating strokes.
func DefaultOptions() Options {
	return Options{Strokes: 32, Length: 120, Mode: tool.Inflate, Radius: 0.39269908, Budget: 200, Seed: 1}
}

// Report summarises a run.
type Report struct {
	Strokes       int
	Hits          int
	Frames        int
	Stroke        brush.StrokeStats
	Index         spatial.Stats
	NormalUpdates uint64
	Elapsed       time.Duration
}

// Run strokes m from cameras spread around it. The mesh is edited in
// place unless the mode is Color.
func Run(m *mesh.Mesh, opt Options) Report {
	log := logger.Named("bench")
	rng := rand.New(rand.NewSource(opt.Seed))
	budget := max(opt.Budget, 1)

	ix := m.Index()
	before := ix.Stats()
	normals := brush.NewNormals(m, 0)
	stroker := brush.NewStroker(ix, m)
	falloff := tool.NewFalloff(m, opt.Radius)
	stroker.OnRoot = falloff.Root
	paint := tool.NewPainter(m, normals, tool.DefaultSteps()).Paint(opt.Mode, math.Vec3{X: 1})

	cam := camera.NewOrbitCamera()
	cam.SetViewport(viewport, viewport)
	cam.FitToBounds(m.Bounds())

	var rep Report
	start := time.Now()
	for i := 0; i < opt.Strokes; i++ {
		cam.Yaw = 2 * math32.Pi * float32(i) / float32(opt.Strokes)
		cam.Pitch = (rng.Float32()*2 - 1) * 0.8
		project, unproject := cam.Projector()

		p := math.Vec3{
			X: viewport/2 + (rng.Float32()*2-1)*viewport/8,
			Y: viewport/2 + (rng.Float32()*2-1)*viewport/8,
		}
		a := rng.Float32() * 2 * math32.Pi
		dir := math.Vec3{X: math32.Cos(a), Y: math32.Sin(a)}

		rep.Strokes++
		if !stroker.Start(p, cam.Position(), project, unproject, falloff.Effect, opt.Radius) {
			continue
		}
		rep.Hits++
		m.Backup()
		m.ResetEffect()

		// Feed the path in ten pixel pointer events, one per frame.
		for moved := float32(0); moved < opt.Length; moved += 10 {
			stroker.Continue(p.Add(dir.Scale(moved + 10)))
			rep.Frames++
			if opt.Mode.Handled() {
				stroker.StrokeHandled(paint, budget)
			} else {
				stroker.Stroke(paint, budget)
			}
			normals.Stroke(budget)
		}
		stroker.Stop()
		for stroker.Busy() && !opt.Mode.Handled() {
			rep.Frames++
			stroker.Stroke(paint, budget)
			normals.Stroke(budget)
		}
		stroker.Cancel()
		if opt.Mode.Geometric() {
			normals.Recompute()
			m.RebuildIndex()
		}
	}
	rep.Elapsed = time.Since(start)
	rep.Stroke = stroker.Stats()
	rep.NormalUpdates = normals.Updates()

	after := ix.Stats()
	rep.Index = spatial.Stats{
		Queries:     after.Queries - before.Queries,
		Inflates:    after.Inflates - before.Inflates,
		BinsCreated: after.BinsCreated - before.BinsCreated,
	}
	for s := range after.Stages {
		rep.Index.Stages[s] = after.Stages[s] - before.Stages[s]
	}

	log.Info("bench finished",
		zap.Int("strokes", rep.Strokes),
		zap.Int("hits", rep.Hits),
		zap.Uint64("queries", rep.Index.Queries),
		zap.Duration("elapsed", rep.Elapsed),
	)
	return rep
}

// Print writes the report as an aligned table.
func (r Report) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "strokes\t%d\t(%d hit)\n", r.Strokes, r.Hits)
	fmt.Fprintf(tw, "frames\t%d\n", r.Frames)
	fmt.Fprintf(tw, "painted\t%d\n", r.Stroke.Painted)
	fmt.Fprintf(tw, "probes\t%d\n", r.Stroke.Probes)
	fmt.Fprintf(tw, "normal updates\t%d\n", r.NormalUpdates)
	fmt.Fprintf(tw, "inflates\t%d\t(%d bins created)\n", r.Index.Inflates, r.Index.BinsCreated)
	fmt.Fprintf(tw, "queries\t%d\n", r.Index.Queries)
	for s := spatial.Stage(0); s < spatial.NumStages; s++ {
		n := r.Index.Stages[s]
		pct := 0.0
		if r.Index.Queries > 0 {
			pct = 100 * float64(n) / float64(r.Index.Queries)
		}
		fmt.Fprintf(tw, "  %s\t%d\t%.1f%%\n", s, n, pct)
	}
	fmt.Fprintf(tw, "elapsed\t%s\n", r.Elapsed.Round(time.Microsecond))
	if r.Index.Queries > 0 {
		fmt.Fprintf(tw, "per query\t%s\n", (r.Elapsed / time.Duration(r.Index.Queries)).Round(time.Nanosecond))
	}
	return tw.Flush()
}
