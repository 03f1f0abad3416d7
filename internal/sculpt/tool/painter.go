package tool

import (
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/pkg/math"
)

// Target is a mesh the brushes can edit.
type Target interface {
	FaceNormal(t sculpt.TriID) math.Vec3
	BrushPos(t sculpt.TriID, dir math.Vec3, k float32)
	BrushZ(t sculpt.TriID, k float32)
	BrushColor(t sculpt.TriID, color math.Vec3, blend float32)
}

// Enqueuer receives triangles whose normals need refreshing.
type Enqueuer interface {
	Enqueue(t sculpt.TriID)
}

// Steps scales each geometric mode's displacement.
type Steps struct {
	Inflate float32 // inflate and deflate, per unit effect
	Handle  float32 // per unit handle weight
	Lift    float32 // height above the stroke start surface
}

// DefaultSteps returns the stock displacement scales.
func DefaultSteps() Steps {
	return Steps{Inflate: 0.05, Handle: 0.01, Lift: 0.1}
}

// Painter builds paint callbacks for a target mesh.
type Painter struct {
	target  Target
	normals Enqueuer
	Steps   Steps
}

// NewPainter returns a painter editing target. normals may be nil when no
// normal refresh is wanted.
func NewPainter(target Target, normals Enqueuer, steps Steps) *Painter {
	return &Painter{target: target, normals: normals, Steps: steps}
}

// Paint returns the callback for mode. color is used by Color only.
func (p *Painter) Paint(mode Mode, color math.Vec3) sculpt.PaintFn {
	switch mode {
	case Color:
		return func(t sculpt.TriID, patch, _ float32) {
			p.target.BrushColor(t, color, patch)
		}
	case Inflate:
		return func(t sculpt.TriID, patch, _ float32) {
			p.target.BrushPos(t, p.target.FaceNormal(t), p.Steps.Inflate*patch)
			p.enqueue(t)
		}
	case Deflate:
		return func(t sculpt.TriID, patch, _ float32) {
			p.target.BrushPos(t, p.target.FaceNormal(t).Neg(), p.Steps.Inflate*patch)
			p.enqueue(t)
		}
	case Handle:
		return func(t sculpt.TriID, patch, handle float32) {
			p.target.BrushPos(t, p.target.FaceNormal(t), p.Steps.Handle*handle*patch)
			p.enqueue(t)
		}
	case Lift:
		return func(t sculpt.TriID, patch, _ float32) {
			p.target.BrushZ(t, p.Steps.Lift*patch)
			p.enqueue(t)
		}
	default:
		return func(sculpt.TriID, float32, float32) {}
	}
}

func (p *Painter) enqueue(t sculpt.TriID) {
	if p.normals != nil {
		p.normals.Enqueue(t)
	}
}
