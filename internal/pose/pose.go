// Package pose describes where a camera (or any animated actor) sits and
// which way it looks, using FPS-style yaw/pitch angles.
package pose

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// WorldUp is the fixed up vector used for every basis and view matrix.
var WorldUp = mgl64.Vec3{0, 1, 0}

// Pose is a position plus yaw/pitch orientation. Yaw rotates about the world
// Y axis (0 looks down +Z), pitch tilts up (positive) or down.
type Pose struct {
	Position mgl64.Vec3 `json:"position" yaml:"position"`
	Yaw      float64    `json:"yaw" yaml:"yaw"`
	Pitch    float64    `json:"pitch" yaml:"pitch"`
}

// At is shorthand for building a pose.
func At(x, y, z, yaw, pitch float64) Pose {
	return Pose{Position: mgl64.Vec3{x, y, z}, Yaw: yaw, Pitch: pitch}
}

// Direction returns the unit look vector for the given yaw and pitch:
// (cos p * sin y, sin p, cos p * cos y).
func Direction(yaw, pitch float64) mgl64.Vec3 {
	cp := math.Cos(pitch)
	return mgl64.Vec3{cp * math.Sin(yaw), math.Sin(pitch), cp * math.Cos(yaw)}
}

// Forward is the pose's unit look vector.
func (p Pose) Forward() mgl64.Vec3 { return Direction(p.Yaw, p.Pitch) }

// LookAt is the point one unit ahead of the pose.
func (p Pose) LookAt() mgl64.Vec3 { return p.Position.Add(p.Forward()) }

// View is the right-handed view matrix for the pose.
func (p Pose) View() mgl64.Mat4 {
	return mgl64.LookAtV(p.Position, p.LookAt(), WorldUp)
}

// Orientation returns the rotation that takes the default camera frame
// onto this pose.
func (p Pose) Orientation() mgl64.Quat {
	return mgl64.QuatLookAtV(p.Position, p.LookAt(), WorldUp)
}

// Lerp interpolates position componentwise and yaw/pitch naively by e.
// Angles are not wrapped; callers author yaw values that avoid the seam.
func Lerp(a, b Pose, e float64) Pose {
	return Pose{
		Position: a.Position.Add(b.Position.Sub(a.Position).Mul(e)),
		Yaw:      lerp(a.Yaw, b.Yaw, e),
		Pitch:    lerp(a.Pitch, b.Pitch, e),
	}
}

// Facing returns the yaw and pitch that look from one point toward another.
// ok is false when the points coincide.
func Facing(from, to mgl64.Vec3) (yaw, pitch float64, ok bool) {
	d := to.Sub(from)
	if d.Len() < 1e-9 {
		return 0, 0, false
	}
	yaw = math.Atan2(d.X(), d.Z())
	pitch = math.Atan2(d.Y(), math.Hypot(d.X(), d.Z()))
	return yaw, pitch, true
}

// Toward returns a pose at from looking at to. When the points coincide the
// fallback orientation is kept.
func Toward(from, to mgl64.Vec3, fallback Pose) Pose {
	out := Pose{Position: from, Yaw: fallback.Yaw, Pitch: fallback.Pitch}
	if y, p, ok := Facing(from, to); ok {
		out.Yaw, out.Pitch = y, p
	}
	return out
}

// ApproxEqual compares positions and angles within tol.
func ApproxEqual(a, b Pose, tol float64) bool {
	return a.Position.ApproxEqualThreshold(b.Position, tol) &&
		math.Abs(a.Yaw-b.Yaw) <= tol &&
		math.Abs(a.Pitch-b.Pitch) <= tol
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
