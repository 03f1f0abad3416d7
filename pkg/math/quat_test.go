package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	length := float32(math.Sqrt(float64(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)))
	if math.Abs(float64(length-1.0)) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatRotate(t *testing.T) {
	tests := []struct {
		name  string
		axis  Vec3
		angle float32
		in    Vec3
		want  Vec3
	}{
		{"x about z 90", Vec3{0, 0, 1}, math.Pi / 2, Vec3{1, 0, 0}, Vec3{0, 1, 0}},
		{"y about x 90", Vec3{1, 0, 0}, math.Pi / 2, Vec3{0, 1, 0}, Vec3{0, 0, 1}},
		{"x about x", Vec3{1, 0, 0}, 1.3, Vec3{2, 0, 0}, Vec3{2, 0, 0}},
		{"x about y 180", Vec3{0, 1, 0}, math.Pi, Vec3{1, 0, 0}, Vec3{-1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuatFromAxisAngle(tt.axis, tt.angle).Rotate(tt.in)
			if got.Distance(tt.want) > 1e-5 {
				t.Errorf("Rotate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuatMulComposes(t *testing.T) {
	z := Vec3{0, 0, 1}
	a := QuatFromAxisAngle(z, math.Pi/4)
	b := QuatFromAxisAngle(z, math.Pi/4)
	got := a.Mul(b).Rotate(Vec3{1, 0, 0})
	want := Vec3{0, 1, 0}
	if got.Distance(want) > 1e-5 {
		t.Errorf("two 45 degree turns = %v, want %v", got, want)
	}
}
