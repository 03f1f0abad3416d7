package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/sculptor/internal/mesh/shape"
	"github.com/Faultbox/sculptor/internal/sculpt"
)

func TestBuildAdjacencySymmetric(t *testing.T) {
	meshes := map[string][]sculpt.Tri{}
	_, meshes["icosphere"] = shape.Icosphere(2)
	_, meshes["spiral"] = shape.Spiral(24, shape.VariantSphere, nil)
	_, meshes["grid"] = shape.Grid(5, 4)

	for name, tris := range meshes {
		t.Run(name, func(t *testing.T) {
			table, anomalies := BuildAdjacency(tris)
			require.Len(t, table, len(tris))
			assert.Zero(t, anomalies)

			for ti, adj := range table {
				for _, u := range adj {
					if u == sculpt.NoTri {
						continue
					}
					assert.True(t, table[u].Has(sculpt.TriID(ti)), "%d lists %d but not the reverse", ti, u)
				}
			}
		})
	}
}

func TestBuildAdjacencySharedEdges(t *testing.T) {
	// Two triangles sharing edge 1-2, plus one isolated triangle.
	tris := []sculpt.Tri{{0, 1, 2}, {2, 1, 3}, {4, 5, 6}}
	table, anomalies := BuildAdjacency(tris)

	assert.Zero(t, anomalies)
	assert.Equal(t, sculpt.Adjacency{1, sculpt.NoTri, sculpt.NoTri}, table[0])
	assert.Equal(t, sculpt.Adjacency{0, sculpt.NoTri, sculpt.NoTri}, table[1])
	assert.Equal(t, sculpt.NoAdjacency(), table[2])
}

func TestBuildAdjacencyNonManifoldEdge(t *testing.T) {
	// Edge 0-1 is owned by three triangles.
	tris := []sculpt.Tri{{0, 1, 2}, {1, 0, 3}, {0, 1, 4}}
	table, anomalies := BuildAdjacency(tris)

	assert.Equal(t, 1, anomalies)
	// The first two owners are linked; the third is left alone.
	assert.True(t, table[0].Has(1))
	assert.True(t, table[1].Has(0))
	assert.Zero(t, table[2].Count())
}

func TestBuildAdjacencyEmpty(t *testing.T) {
	table, anomalies := BuildAdjacency(nil)
	assert.Empty(t, table)
	assert.Zero(t, anomalies)
	assert.Equal(t, sculpt.NoAdjacency(), table.Adjacency(3))
}

// strip is a row of triangles each linked to its predecessor and successor.
func strip(n int) Table {
	tb := make(Table, n)
	for i := range tb {
		tb[i] = sculpt.NoAdjacency()
		if i > 0 {
			tb[i][0] = sculpt.TriID(i - 1)
		}
		if i+1 < n {
			tb[i][1] = sculpt.TriID(i + 1)
		}
	}
	return tb
}

func TestVisitIncludesOnlyEffectorChoices(t *testing.T) {
	_, tris := shape.Icosphere(2)
	table, _ := BuildAdjacency(tris)
	v := NewVisitor(table)

	excluded := map[sculpt.TriID]bool{}
	effector := func(tri sculpt.TriID) (bool, float32) {
		if tri%3 == 1 {
			excluded[tri] = true
			return false, 0
		}
		return true, 1
	}

	out := v.Visit(0, effector, nil)
	require.NotEmpty(t, out)

	seen := map[sculpt.TriID]bool{}
	for _, e := range out {
		assert.False(t, excluded[e.Tri], "excluded tri %d in patch", e.Tri)
		assert.False(t, seen[e.Tri], "tri %d listed twice", e.Tri)
		seen[e.Tri] = true
	}
}

func TestVisitExactPatch(t *testing.T) {
	// A at the middle of a strip; the effector includes exactly A and its two
	// neighbours.
	tb := strip(9)
	const a = sculpt.TriID(4)
	want := map[sculpt.TriID]float32{3: 0.5, 4: 1, 5: 0.5}

	calls := 0
	effector := func(tri sculpt.TriID) (bool, float32) {
		calls++
		w, ok := want[tri]
		return ok, w
	}

	out := NewVisitor(tb).Visit(a, effector, nil)
	require.Len(t, out, 3)
	assert.Equal(t, sculpt.TriEffect{Tri: a, Effect: 1}, out[0])

	got := map[sculpt.TriID]float32{}
	for _, e := range out {
		got[e.Tri] = e.Effect
	}
	assert.Equal(t, want, got)
	// A, its two neighbours and the two rejected tris beyond them.
	assert.Equal(t, 5, calls)
}

func TestVisitDoesNotLeakAcrossRejectedTris(t *testing.T) {
	tb := strip(6)
	// 2 is rejected, so 3.. is unreachable even though the effector would
	// accept it.
	effector := func(tri sculpt.TriID) (bool, float32) { return tri != 2, 1 }

	out := NewVisitor(tb).Visit(0, effector, nil)
	var ids []sculpt.TriID
	for _, e := range out {
		ids = append(ids, e.Tri)
	}
	assert.Equal(t, []sculpt.TriID{0, 1}, ids)
}

func TestVisitRejectedStart(t *testing.T) {
	out := NewVisitor(strip(4)).Visit(1, func(sculpt.TriID) (bool, float32) { return false, 0 }, nil)
	assert.Empty(t, out)
}

func TestVisitOutOfRangeStart(t *testing.T) {
	out := NewVisitor(strip(4)).Visit(sculpt.NoTri, func(sculpt.TriID) (bool, float32) { return true, 1 }, nil)
	assert.Empty(t, out)
}

func TestVisitRepeatedCallsIndependent(t *testing.T) {
	tb := strip(5)
	v := NewVisitor(tb)
	all := func(sculpt.TriID) (bool, float32) { return true, 1 }

	first := v.Visit(2, all, nil)
	second := v.Visit(2, all, nil)
	assert.Len(t, first, 5)
	assert.Equal(t, first, second)
}

func TestVisitSerialWrap(t *testing.T) {
	tb := strip(3)
	v := NewVisitor(tb)
	v.serial = ^sculpt.Serial(0) - 1
	all := func(sculpt.TriID) (bool, float32) { return true, 1 }

	for i := 0; i < 3; i++ {
		assert.Len(t, v.Visit(0, all, nil), 3, "call %d", i)
	}
	assert.NotZero(t, v.serial)
}

func TestVisitAppendsToOut(t *testing.T) {
	prefix := []sculpt.TriEffect{{Tri: 99, Effect: 0.1}}
	out := NewVisitor(strip(2)).Visit(0, func(sculpt.TriID) (bool, float32) { return true, 1 }, prefix)
	require.Len(t, out, 3)
	assert.Equal(t, sculpt.TriID(99), out[0].Tri)
}
