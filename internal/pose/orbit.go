package pose

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Orbit places a camera on a sphere around Focus. Azimuth follows the same
// convention as yaw; Elevation is positive above the focus.
type Orbit struct {
	Focus     mgl64.Vec3 `json:"focus" yaml:"focus"`
	Azimuth   float64    `json:"azimuth" yaml:"azimuth"`
	Elevation float64    `json:"elevation" yaml:"elevation"`
	Distance  float64    `json:"distance" yaml:"distance"`
}

// Offset is the vector from Focus to the camera.
func (o Orbit) Offset() mgl64.Vec3 {
	ce := math.Cos(o.Elevation)
	return mgl64.Vec3{
		ce * math.Sin(o.Azimuth),
		math.Sin(o.Elevation),
		ce * math.Cos(o.Azimuth),
	}.Mul(o.Distance)
}

// Pose returns the camera pose on the orbit, looking at Focus. Yaw is
// Azimuth+π taken as is, so an unwrapped azimuth gives an unwrapped yaw.
func (o Orbit) Pose() Pose {
	return Pose{
		Position: o.Focus.Add(o.Offset()),
		Yaw:      o.Azimuth + math.Pi,
		Pitch:    -o.Elevation,
	}
}

// OrbitFrom builds the orbit whose Pose() reproduces p exactly, yaw included
// at any winding, with the focus placed distance units ahead of the camera.
func OrbitFrom(p Pose, distance float64) Orbit {
	return Orbit{
		Focus:     p.Position.Add(p.Forward().Mul(distance)),
		Azimuth:   p.Yaw - math.Pi,
		Elevation: -p.Pitch,
		Distance:  distance,
	}
}
