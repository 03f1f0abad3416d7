package mesh

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/Faultbox/sculptor/internal/config"
	"github.com/Faultbox/sculptor/internal/mesh/shape"
	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/pkg/formats"
	"github.com/Faultbox/sculptor/pkg/math"
)

// ErrEmptyMesh is returned for a source without triangles.
var ErrEmptyMesh = errors.New("mesh has no triangles")

// weldDistance merges STL vertices closer than this.
const weldDistance = 1e-5

// Generate builds the mesh cfg describes. rng picks spiral variant
// parameters and vertex colors; nil gives a fixed seed.
func Generate(cfg config.MeshConfig, dimension int, rng *rand.Rand) (*Mesh, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	var (
		pos  []math.Vec3
		tris []sculpt.Tri
	)
	switch cfg.Shape {
	case config.ShapeSphere:
		pos, tris = shape.Spiral(cfg.Divisions, cfg.Variant, rng)
		m := New(pos, tris, randomColors(len(pos), rng), dimension)
		m.SetPoles(0, sculpt.VertID(len(pos)-1))
		return m, nil
	case config.ShapeIcosahedron:
		pos, tris = shape.Icosphere(icosphereLevel(cfg.Divisions))
	case config.ShapeTetrahedron:
		pos, tris = shape.Tetrahedron()
	case config.ShapeFile:
		return LoadSTL(cfg.Path, dimension)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidShape, cfg.Shape)
	}
	return New(pos, tris, randomColors(len(pos), rng), dimension), nil
}

// icosphereLevel maps a spiral-style division count to a subdivision level:
// 60 divisions, the spiral default, gives level 4.
func icosphereLevel(divisions int) int {
	return max(0, min(divisions/15, 5))
}

func randomColors(n int, rng *rand.Rand) []math.Vec3 {
	out := make([]math.Vec3, n)
	for i := range out {
		out[i] = math.Vec3{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32()}
	}
	return out
}

// LoadSTL reads an STL file, welds coincident vertices and builds a mesh.
func LoadSTL(path string, dimension int) (*Mesh, error) {
	stl, err := formats.ParseSTLFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading mesh: %w", err)
	}
	return FromSTL(stl, dimension)
}

// FromSTL welds stl's facets into a mesh.
func FromSTL(stl *formats.STL, dimension int) (*Mesh, error) {
	if len(stl.Facets) == 0 {
		return nil, ErrEmptyMesh
	}
	pos, idx := stl.Weld(weldDistance)
	tris := make([]sculpt.Tri, len(idx))
	for i, t := range idx {
		tris[i] = sculpt.Tri{sculpt.VertID(t[0]), sculpt.VertID(t[1]), sculpt.VertID(t[2])}
	}
	return New(pos, tris, nil, dimension), nil
}
