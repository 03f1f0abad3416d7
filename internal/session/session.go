// Package session ties a mesh to the stroke and normal brushes and the
// current tool selection. It holds no window or GL state, so the host loop
// and headless tools drive it the same way.
package session

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/sculptor/internal/config"
	"github.com/Faultbox/sculptor/internal/logger"
	"github.com/Faultbox/sculptor/internal/mesh"
	"github.com/Faultbox/sculptor/internal/mesh/shape"
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/internal/sculpt/brush"
	"github.com/Faultbox/sculptor/internal/sculpt/spatial"
	"github.com/Faultbox/sculptor/internal/sculpt/tool"
	"github.com/Faultbox/sculptor/pkg/math"
)

// Export formats.
const (
	FormatSTL = "stl"
	FormatPLY = "ply"
)

// Palette is the set of paint colors the color key cycles through.
var Palette = []math.Vec3{
	{X: 0.85, Y: 0.2, Z: 0.2},
	{X: 0.95, Y: 0.75, Z: 0.2},
	{X: 0.25, Y: 0.7, Z: 0.3},
	{X: 0.2, Y: 0.45, Z: 0.85},
	{X: 0.55, Y: 0.3, Z: 0.75},
	{X: 0.95, Y: 0.95, Z: 0.95},
	{X: 0.1, Y: 0.1, Z: 0.1},
}

// FrameStats reports one Frame's work.
type FrameStats struct {
	Painted        int // stroke work units
	Renormalized   int // normal work units
	PatchPending   int
	PathPending    int
	NormalsPending int
	Settled        bool // normals and index were rebuilt this frame
}

// Session is a sculpting session over one mesh. It is not safe for
// concurrent use.
type Session struct {
	brushCfg  config.BrushConfig
	normalCfg config.NormalsConfig
	meshCfg   config.MeshConfig
	dimension int
	exportCfg config.ExportConfig

	mesh    *mesh.Mesh
	stroker *brush.Stroker
	normals *brush.Normals
	falloff *tool.Falloff
	painter *tool.Painter

	mode  tool.Mode
	size  tool.Size
	color int
	paint sculpt.PaintFn

	stroking bool
	settle   bool

	rng     *rand.Rand
	observe func(spatial.Query)
	log     *zap.Logger
}

// New generates the configured mesh and returns a session over it.
func New(cfg *config.Config) (*Session, error) {
	mode, err := tool.ParseMode(cfg.Brush.DefaultTool)
	if err != nil {
		return nil, fmt.Errorf("brush.default_tool: %w", err)
	}
	size, err := tool.ParseSize(cfg.Brush.DefaultSize)
	if err != nil {
		return nil, fmt.Errorf("brush.default_size: %w", err)
	}

	seed := cfg.Mesh.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Session{
		brushCfg:  cfg.Brush,
		normalCfg: cfg.Normals,
		meshCfg:   cfg.Mesh,
		dimension: cfg.Index.Dimension,
		exportCfg: cfg.Export,
		mode:      mode,
		size:      size,
		rng:       rand.New(rand.NewSource(seed)),
		log:       logger.Named("session"),
	}

	m, err := mesh.Generate(s.meshCfg, s.dimension, s.rng)
	if err != nil {
		return nil, err
	}
	s.load(m)
	s.log.Info("session ready",
		zap.String("shape", s.meshCfg.Shape),
		zap.Int64("seed", seed),
		zap.Stringer("mode", s.mode),
		zap.Stringer("size", s.size),
	)
	return s, nil
}

// load wires the brushes to m.
func (s *Session) load(m *mesh.Mesh) {
	s.mesh = m
	s.normals = brush.NewNormals(m, s.threshold())
	s.stroker = brush.NewStroker(m.Index(), m)
	s.falloff = tool.NewFalloff(m, 0)
	s.stroker.OnRoot = s.falloff.Root
	s.painter = tool.NewPainter(m, s.normals, s.steps())
	m.Index().OnIdentify = s.observe
	s.stroking = false
	s.settle = false
}

func (s *Session) threshold() float32 {
	return s.normalCfg.ThresholdDeg * math32.Pi / 180
}

func (s *Session) steps() tool.Steps {
	return tool.Steps{
		Inflate: s.brushCfg.InflateStep,
		Handle:  s.brushCfg.HandleStep,
		Lift:    s.brushCfg.LiftHeight,
	}
}

// SetObserver installs a callback receiving every ray cast against the
// current and future meshes' indices.
func (s *Session) SetObserver(fn func(spatial.Query)) {
	s.observe = fn
	s.mesh.Index().OnIdentify = fn
}

// Mesh returns the mesh being sculpted.
func (s *Session) Mesh() *mesh.Mesh { return s.mesh }

// Mode returns the current brush mode.
func (s *Session) Mode() tool.Mode { return s.mode }

// Size returns the current patch size.
func (s *Session) Size() tool.Size { return s.size }

// Color returns the current paint color.
func (s *Session) Color() math.Vec3 { return Palette[s.color] }

// Stroking reports whether a stroke is in progress.
func (s *Session) Stroking() bool { return s.stroking }

// SetMode selects the brush mode for the next stroke.
func (s *Session) SetMode(m tool.Mode) {
	s.mode = m
	s.log.Debug("mode", zap.Stringer("mode", m))
}

// SetSize selects the patch size for the next stroke.
func (s *Session) SetSize(sz tool.Size) {
	s.size = sz
	s.log.Debug("size", zap.Stringer("size", sz))
}

// NextColor advances the paint color through Palette.
func (s *Session) NextColor() {
	s.color = (s.color + 1) % len(Palette)
}

// Begin starts a stroke at window position p. It reports whether the
// pointer is over the mesh; a miss leaves the caller free to orbit the
// camera instead.
func (s *Session) Begin(p, eye math.Vec3, project, unproject sculpt.ProjectFn) bool {
	if s.settle {
		s.finish()
	}
	r := s.size.Radius(s.brushCfg.SmallPatch, s.brushCfg.BigPatch)
	s.falloff.SetRadius(r)
	s.paint = s.painter.Paint(s.mode, s.Color())

	if !s.stroker.Start(p, eye, project, unproject, s.falloff.Effect, r) {
		return false
	}
	s.mesh.Backup()
	s.mesh.ResetEffect()
	s.stroking = true
	return true
}

// Move extends the stroke to p.
func (s *Session) Move(p math.Vec3) {
	if s.stroking {
		s.stroker.Continue(p)
	}
}

// End releases the stroke. Queued patch work still drains; once it has,
// geometric strokes get a full normal and index rebuild.
func (s *Session) End() {
	if !s.stroking {
		return
	}
	s.stroker.Stop()
	s.stroking = false
	if s.mode.Geometric() {
		s.settle = true
	}
}

// Frame does one frame's budgeted brush work.
func (s *Session) Frame() FrameStats {
	var st FrameStats
	if s.paint != nil {
		if s.mode.Handled() {
			st.Painted = s.stroker.StrokeHandled(s.paint, s.brushCfg.StrokeBudget)
		} else {
			st.Painted = s.stroker.Stroke(s.paint, s.brushCfg.StrokeBudget)
		}
	}
	st.Renormalized = s.normals.Stroke(s.brushCfg.NormalBudget)

	patch, path := s.stroker.Pending()
	if s.settle && path == 0 && (patch == 0 || s.mode.Handled()) {
		s.finish()
		st.Settled = true
		patch, path = s.stroker.Pending()
	}
	st.PatchPending, st.PathPending = patch, path
	st.NormalsPending = s.normals.Pending()
	return st
}

// Drain runs frames until no brush work is left.
func (s *Session) Drain() FrameStats {
	var total FrameStats
	for {
		st := s.Frame()
		total.Painted += st.Painted
		total.Renormalized += st.Renormalized
		total.Settled = total.Settled || st.Settled
		if st.Painted == 0 && st.Renormalized == 0 && !s.settle {
			total.PatchPending, total.PathPending = st.PatchPending, st.PathPending
			return total
		}
	}
}

// finish rebuilds normals and the index after a geometric stroke.
func (s *Session) finish() {
	s.settle = false
	if s.mode.Handled() {
		s.stroker.Cancel()
	}
	s.normals.Recompute()
	s.mesh.RebuildIndex()
	s.log.Debug("stroke settled", zap.Uint64("normal_updates", s.normals.Updates()))
}

// Undo returns the mesh to its state before the last stroke.
func (s *Session) Undo() {
	s.stroker.Cancel()
	s.normals.Clear()
	s.stroking = false
	s.settle = false
	s.mesh.Restore()
	s.log.Info("stroke undone")
}

// Regenerate replaces the mesh with a freshly generated one. Spheres move
// on to the next shape variant.
func (s *Session) Regenerate() error {
	cfg := s.meshCfg
	if cfg.Shape == config.ShapeSphere {
		cfg.Variant = (cfg.Variant + 1) % shape.NumVariants
	}
	m, err := mesh.Generate(cfg, s.dimension, s.rng)
	if err != nil {
		return err
	}
	s.meshCfg = cfg
	s.load(m)
	s.log.Info("mesh regenerated", zap.String("shape", cfg.Shape), zap.Int("variant", cfg.Variant))
	return nil
}

// ApplyTuning takes the live-tunable brush and normal settings from cfg.
func (s *Session) ApplyTuning(cfg *config.Config) {
	s.brushCfg = cfg.Brush
	s.normalCfg = cfg.Normals
	s.normals.SetThreshold(s.threshold())
	s.painter.Steps = s.steps()
	s.log.Info("tuning applied",
		zap.Int("stroke_budget", cfg.Brush.StrokeBudget),
		zap.Int("normal_budget", cfg.Brush.NormalBudget),
	)
}

// Export writes the mesh into the export directory and returns the path.
func (s *Session) Export(format string, now time.Time) (path string, err error) {
	if format != FormatSTL && format != FormatPLY {
		return "", fmt.Errorf("unknown export format %q", format)
	}
	if err := os.MkdirAll(s.exportCfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.%s", s.exportCfg.Basename, now.Format("2006-01-02_15-04-05"), format)
	path = filepath.Join(s.exportCfg.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	header := "sculptor " + s.meshCfg.Shape
	if format == FormatSTL {
		err = s.mesh.WriteSTL(f, header)
	} else {
		err = s.mesh.WritePLY(f, header)
	}
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", format, err)
	}
	s.log.Info("mesh exported", zap.String("path", path))
	return path, nil
}
