package spatial

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/sculptor/internal/sculpt"
	"github.com/Faultbox/sculptor/pkg/math"
)

// MakeBin quantizes the direction of p from center into a dim by dim grid
// of (longitude, latitude) cells. Latitude is offset by half a turn, so only
// the upper half of the rows is ever used; the grid keeps that layout.
func MakeBin(p, center math.Vec3, dim int) sculpt.BinID {
	d := p.Sub(center)
	r := d.Length()

	cosLat := float32(1)
	if r > 0 {
		cosLat = clamp(d.Z/r, -1, 1)
	}
	lon := (math32.Atan2(d.Y, d.X) + math32.Pi) / (2 * math32.Pi)
	lat := (math32.Acos(cosLat) + math32.Pi) / (2 * math32.Pi)

	return sculpt.MakeBinID(cell(lon, dim), cell(lat, dim))
}

// AdjustBin moves b by (dx, dy) cells, wrapping around the grid.
func AdjustBin(b sculpt.BinID, dx, dy, dim int) sculpt.BinID {
	x := wrap(int(b.X())+dx, dim)
	y := wrap(int(b.Y())+dy, dim)
	return sculpt.MakeBinID(uint8(x), uint8(y))
}

// seedRadius is half the arc one cell spans on a circle through p, doubled
// so neighbouring spheres overlap.
func seedRadius(p, center math.Vec3, dim int) float32 {
	return 2 * math32.Pi * p.Distance(center) / float32(dim)
}

func cell(f float32, dim int) uint8 {
	c := int(f * float32(dim))
	if c < 0 {
		c = 0
	}
	if c >= dim {
		c = dim - 1
	}
	return uint8(c)
}

func wrap(v, dim int) int {
	v %= dim
	if v < 0 {
		v += dim
	}
	return v
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
