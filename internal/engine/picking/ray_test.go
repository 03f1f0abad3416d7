package picking

import (
	"testing"

	"github.com/Faultbox/sculptor/pkg/math"
)

func approx(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-4
}

func TestIntersectTriangle(t *testing.T) {
	// Counter-clockwise seen from +Z.
	a := math.Vec3{X: -1, Y: -1}
	b := math.Vec3{X: 1, Y: -1}
	c := math.Vec3{Y: 1}

	tests := []struct {
		name     string
		ray      Ray
		cullBack bool
		wantHit  bool
		wantT    float32
	}{
		{"front face", Ray{math.Vec3{Z: 5}, math.Vec3{Z: -1}}, true, true, 5},
		{"back face culled", Ray{math.Vec3{Z: -5}, math.Vec3{Z: 1}}, true, false, 0},
		{"back face kept", Ray{math.Vec3{Z: -5}, math.Vec3{Z: 1}}, false, true, 5},
		{"miss outside edge", Ray{math.Vec3{X: 2, Z: 5}, math.Vec3{Z: -1}}, true, false, 0},
		{"behind origin", Ray{math.Vec3{Z: -5}, math.Vec3{Z: -1}}, false, false, 0},
		{"parallel", Ray{math.Vec3{Z: 1}, math.Vec3{X: 1}}, false, false, 0},
		{"vertex hit", Ray{math.Vec3{X: -1, Y: -1, Z: 2}, math.Vec3{Z: -1}}, true, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, hit := tt.ray.IntersectTriangle(a, b, c, tt.cullBack)
			if hit != tt.wantHit {
				t.Fatalf("hit = %v, want %v", hit, tt.wantHit)
			}
			if hit && !approx(dist, tt.wantT) {
				t.Errorf("t = %f, want %f", dist, tt.wantT)
			}
		})
	}
}

func TestIntersectSphere(t *testing.T) {
	center := math.Vec3{Z: -10}

	tests := []struct {
		name   string
		ray    Ray
		radius float32
		want   bool
	}{
		{"through center", Ray{math.Vec3{}, math.Vec3{Z: -1}}, 1, true},
		{"grazing", Ray{math.Vec3{X: 1}, math.Vec3{Z: -1}}, 1, true},
		{"off to the side", Ray{math.Vec3{X: 1.5}, math.Vec3{Z: -1}}, 1, false},
		{"pointing away", Ray{math.Vec3{}, math.Vec3{Z: 1}}, 1, false},
		{"origin inside", Ray{math.Vec3{Z: -10.5}, math.Vec3{Z: 1}}, 1, true},
		{"zero radius", Ray{math.Vec3{}, math.Vec3{Z: -1}}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ray.IntersectSphere(center, tt.radius); got != tt.want {
				t.Errorf("IntersectSphere = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScreenToRay(t *testing.T) {
	view := math.LookAt(math.Vec3{Z: 10}, math.Vec3{}, math.Vec3{Y: 1})
	proj := math.Perspective(0.8, 1, 0.1, 100)
	inv := proj.Mul(view).Inverse()

	ray := ScreenToRay(400, 400, 800, 800, inv)
	if !approx(ray.Direction.X, 0) || !approx(ray.Direction.Y, 0) || !approx(ray.Direction.Z, -1) {
		t.Errorf("center ray direction = %+v", ray.Direction)
	}
	if !approx(ray.Origin.X, 0) || !approx(ray.Origin.Y, 0) {
		t.Errorf("center ray origin = %+v", ray.Origin)
	}

	// Screen y grows downward, so the top half of the screen looks up.
	up := ScreenToRay(400, 100, 800, 800, inv)
	if up.Direction.Y <= 0 {
		t.Errorf("expected upward ray, got %+v", up.Direction)
	}

	hit := ray.At(10)
	if !approx(hit.Z, ray.Origin.Z-10) {
		t.Errorf("At(10) = %+v", hit)
	}
}
