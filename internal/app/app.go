// Package app runs the interactive sculptor: window, input, camera and
// renderer around a sculpting session.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/sculptor/internal/config"
	"github.com/Faultbox/sculptor/internal/engine/camera"
	"github.com/Faultbox/sculptor/internal/engine/debug"
	"github.com/Faultbox/sculptor/internal/engine/input"
	"github.com/Faultbox/sculptor/internal/engine/lighting"
	"github.com/Faultbox/sculptor/internal/engine/renderer"
	"github.com/Faultbox/sculptor/internal/engine/window"
	"github.com/Faultbox/sculptor/internal/logger"
	"github.com/Faultbox/sculptor/internal/metrics"
	"github.com/Faultbox/sculptor/internal/session"
	"github.com/Faultbox/sculptor/pkg/math"
)

// overlaySegments is the circle resolution of the bin sphere overlay.
const overlaySegments = 24

// App is the interactive sculptor.
type App struct {
	cfg     *config.Config
	running bool

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	session  *session.Session

	// pointer state
	pressed  bool
	orbiting bool
	last     math.Vec3

	showBins     bool
	overlayStale bool

	watcher  *config.Watcher
	reloads  chan *config.Config
	cancel   context.CancelFunc
	metricCh chan error

	log *zap.Logger
}

// New creates the window, renderer and session.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		cfg:      cfg,
		camera:   camera.NewOrbitCamera(),
		showBins: cfg.Debug.ShowBins,
		reloads:  make(chan *config.Config, 1),
		log:      logger.Named("app"),
	}
	a.log.Info("initializing",
		zap.String("title", cfg.Window.Title),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
	)

	var err error
	if a.session, err = session.New(cfg); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// The window creates the GL context the renderer needs.
	if a.window, err = window.New(cfg.Window); err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	fbW, fbH := a.window.DrawableSize()
	if a.renderer, err = renderer.New(fbW, fbH); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to create renderer: %w", err), a.window.Close())
	}
	a.renderer.SetLighting(lighting.Rig(cfg.Light))

	w, h := a.window.Size()
	a.input = input.New(w, h)
	a.camera.SetViewport(w, h)

	if cfg.Debug.MetricsAddr != "" {
		a.session.SetObserver(metrics.ObserveQuery)
		ctx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel
		a.metricCh = make(chan error, 1)
		go func() { a.metricCh <- metrics.Serve(ctx, cfg.Debug.MetricsAddr) }()
	}

	if path := config.FilePath(); path != "" {
		a.watcher, err = config.Watch(path, func(c *config.Config) {
			select {
			case a.reloads <- c:
			default:
			}
		})
		if err != nil {
			a.log.Warn("config hot reload disabled", zap.Error(err))
		}
	}

	a.loadMesh()
	a.log.Info("initialized")
	return a, nil
}

// Run runs the frame loop until the window closes.
func (a *App) Run() error {
	a.running = true
	frames := 0
	fpsTimer := time.Now()

	a.log.Info("starting frame loop")
	for a.running {
		if a.input.Update() {
			a.running = false
			break
		}
		for _, ev := range a.input.Events() {
			if err := a.handle(ev); err != nil {
				return err
			}
		}
		a.applyReloads()

		start := time.Now()
		st := a.session.Frame()
		if st.Settled {
			a.overlayStale = true
		}
		metrics.ObserveFrame(st.Painted, time.Since(start))
		metrics.SetQueues(st.PatchPending, st.PathPending, st.NormalsPending)

		a.render()
		a.window.SwapBuffers()

		frames++
		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps", zap.Int("count", frames))
			frames = 0
			fpsTimer = time.Now()
		}
		a.pollMetrics()
	}
	return nil
}

// Close releases every resource, returning the combined errors.
func (a *App) Close() error {
	a.log.Info("closing")
	var err error
	if a.watcher != nil {
		err = multierr.Append(err, a.watcher.Close())
	}
	if a.cancel != nil {
		a.cancel()
		err = multierr.Append(err, <-a.metricCh)
	}
	if a.renderer != nil {
		err = multierr.Append(err, a.renderer.Close())
	}
	if a.window != nil {
		err = multierr.Append(err, a.window.Close())
	}
	return err
}

func (a *App) handle(ev input.Event) error {
	switch ev.Type {
	case input.EventWindowResize:
		a.camera.SetViewport(ev.Width, ev.Height)
		a.renderer.Resize(a.window.DrawableSize())

	case input.EventPointerDown:
		p := math.Vec3{X: ev.X, Y: ev.Y}
		a.pressed, a.last = true, p
		if ev.Button != input.ButtonPrimary {
			a.orbiting = true
			return nil
		}
		project, unproject := a.camera.Projector()
		// Off the mesh the drag orbits instead.
		a.orbiting = !a.session.Begin(p, a.camera.Position(), project, unproject)

	case input.EventPointerMove:
		p := math.Vec3{X: ev.X, Y: ev.Y}
		if a.pressed && a.orbiting {
			a.camera.HandleDrag(p.X-a.last.X, p.Y-a.last.Y)
		} else if a.pressed {
			a.session.Move(p)
		}
		a.last = p

	case input.EventPointerUp:
		a.session.End()
		a.pressed, a.orbiting = false, false

	case input.EventWheel:
		if !a.session.Stroking() {
			a.camera.HandleZoom(ev.DY)
		}

	case input.EventKeyDown:
		return a.key(session.KeyBinding(rune(ev.Key), ev.Shift))
	}
	return nil
}

func (a *App) key(b session.Binding) error {
	if a.session.Stroking() && b.Command != session.CmdQuit {
		return nil
	}
	switch b.Command {
	case session.CmdQuit:
		a.running = false
	case session.CmdToggleBins:
		a.showBins = !a.showBins
		a.overlayStale = true
	case session.CmdExportSTL, session.CmdExportPLY:
		format := session.FormatSTL
		if b.Command == session.CmdExportPLY {
			format = session.FormatPLY
		}
		if _, err := a.session.Export(format, time.Now()); err != nil {
			a.log.Error("export failed", zap.Error(err))
		}
	default:
		done, err := a.session.Apply(b)
		if err != nil {
			return err
		}
		if b.Command == session.CmdRegenerate {
			a.loadMesh()
		}
		if done {
			a.overlayStale = true
			a.updateTitle()
		}
	}
	return nil
}

// loadMesh uploads the session's mesh and frames it.
func (a *App) loadMesh() {
	m := a.session.Mesh()
	a.renderer.Load(m)
	a.camera.FitToBounds(m.Bounds())
	a.overlayStale = true
	metrics.SetMesh(m.Verts(), m.Tris(), m.Index().Len())
	a.updateTitle()
}

func (a *App) render() {
	m := a.session.Mesh()
	a.renderer.Sync(m)
	if a.showBins && a.overlayStale {
		a.renderer.SetOverlay(append(debug.SphereLines(m.Index(), overlaySegments), debug.BoxLines(m.Bounds())...))
		a.overlayStale = false
	}
	a.renderer.Begin()
	a.renderer.Draw(a.camera.ViewProjection(), a.camera.Position(), a.showBins)
	a.renderer.End()
}

func (a *App) applyReloads() {
	select {
	case c := <-a.reloads:
		a.session.ApplyTuning(c)
		a.renderer.SetLighting(lighting.Rig(c.Light))
	default:
	}
}

func (a *App) pollMetrics() {
	if a.metricCh == nil {
		return
	}
	select {
	case err := <-a.metricCh:
		if err != nil {
			a.log.Error("metrics server stopped", zap.Error(err))
		}
		a.cancel()
		a.cancel = nil
		a.metricCh = nil
	default:
	}
}

func (a *App) updateTitle() {
	a.window.SetTitle(fmt.Sprintf("%s [%s, %s]", a.cfg.Window.Title, a.session.Mode(), a.session.Size()))
}
