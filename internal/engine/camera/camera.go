// Package camera provides the orbit camera meshes are viewed and sculpted
// through.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/sculptor/pkg/math"
)

// pitchLimit keeps the camera off the poles, where LookAt's up vector
// degenerates.
const pitchLimit = math32.Pi/2 - 0.01

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	Center math.Vec3

	// Spherical coordinates
	Distance float32
	Pitch    float32 // radians above the XZ plane
	Yaw      float32 // radians around +Y

	// Constraints
	MinDistance float32
	MaxDistance float32

	// Projection
	FovY      float32
	Near, Far float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	viewport math.Viewport
}

// NewOrbitCamera creates an orbit camera framing a unit sphere at the
// origin.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        3,
		Pitch:           0.3,
		MinDistance:     1.2,
		MaxDistance:     50,
		FovY:            math32.Pi / 4,
		Near:            0.05,
		Far:             200,
		DragSensitivity: 0.008,
		ZoomSensitivity: 0.1,
		viewport:        math.Viewport{Width: 1, Height: 1},
	}
}

// SetViewport sets the window size in pixels.
func (c *OrbitCamera) SetViewport(width, height int) {
	c.viewport = math.Viewport{Width: float32(max(width, 1)), Height: float32(max(height, 1))}
}

// Viewport returns the window rectangle.
func (c *OrbitCamera) Viewport() math.Viewport { return c.viewport }

// Position returns the eye in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	cp, sp := math32.Cos(c.Pitch), math32.Sin(c.Pitch)
	return c.Center.Add(math.Vec3{
		X: c.Distance * cp * math32.Sin(c.Yaw),
		Y: c.Distance * sp,
		Z: c.Distance * cp * math32.Cos(c.Yaw),
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ProjectionMatrix returns the perspective matrix for the viewport.
func (c *OrbitCamera) ProjectionMatrix() math.Mat4 {
	return math.Perspective(c.FovY, c.viewport.Width/c.viewport.Height, c.Near, c.Far)
}

// ViewProjection returns projection × view.
func (c *OrbitCamera) ViewProjection() math.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// HandleDrag orbits by a pointer drag in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch = max(-pitchLimit, min(pitchLimit, c.Pitch+deltaY*c.DragSensitivity))
}

// HandleZoom moves toward or away from the center by scroll steps.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = max(c.MinDistance, min(c.MaxDistance, c.Distance))
}

// FitToBounds centers the camera on a box and backs off until the box's
// bounding sphere fills the view.
func (c *OrbitCamera) FitToBounds(lo, hi math.Vec3) {
	c.Center = lo.Mid(hi)
	r := hi.Sub(lo).Length() / 2
	if r == 0 {
		r = 1
	}
	c.MinDistance = r * 1.05
	c.MaxDistance = r * 50
	c.Distance = max(c.MinDistance, r/math32.Sin(c.FovY/2))
}

// Projector captures the current view as a pair of window-space mappings.
// Window coordinates have their origin at the top left, as pointer events
// do; unproject places points on the near plane when given Z = 0. The
// mappings stay fixed when the camera moves afterwards.
func (c *OrbitCamera) Projector() (project, unproject func(math.Vec3) math.Vec3) {
	vp := c.viewport
	viewProj := c.ViewProjection()
	inv := viewProj.Inverse()
	project = func(p math.Vec3) math.Vec3 {
		w := math.Project(p, viewProj, vp)
		w.Y = vp.Height - w.Y
		return w
	}
	unproject = func(w math.Vec3) math.Vec3 {
		w.Y = vp.Height - w.Y
		return math.Unproject(w, inv, vp)
	}
	return project, unproject
}
