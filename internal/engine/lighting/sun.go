// Package lighting describes the lights the mesh is shaded with.
package lighting

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/sculptor/pkg/math"
)

// Rig is a fixed sun plus a headlight that follows the camera.
type Rig struct {
	Longitude float32 // sun rotation around Y, degrees
	Latitude  float32 // sun elevation above the horizon, degrees
	Sun       float32 // sun intensity
	Headlight float32 // headlight intensity
	Ambient   float32
}

// DefaultRig returns a soft key light from the upper left with the
// headlight doing most of the work.
func DefaultRig() Rig {
	return Rig{Longitude: 225, Latitude: 45, Sun: 0.35, Headlight: 0.6, Ambient: 0.2}
}

// SunDirection returns the unit vector pointing towards the sun.
func (r Rig) SunDirection() math.Vec3 {
	return SunDirection(r.Longitude, r.Latitude)
}

// SunDirection converts longitude and latitude angles in degrees to a unit
// direction. Longitude turns around Y from +Z, latitude raises towards +Y.
func SunDirection(longitude, latitude float32) math.Vec3 {
	lon := longitude * math32.Pi / 180
	lat := latitude * math32.Pi / 180
	sinLon, cosLon := math32.Sincos(lon)
	sinLat, cosLat := math32.Sincos(lat)
	return math.Vec3{X: cosLat * sinLon, Y: sinLat, Z: cosLat * cosLon}
}
