// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hmd

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Size is a pixel resolution.
type Size struct {
	Width  int
	Height int
}

// Sz is a convenience function to create a Size.
func Sz(width, height int) Size {
	return Size{Width: width, Height: height}
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Scale returns the size multiplied by f, rounded up so that a positive
// size never scales down to zero.
func (s Size) Scale(f float64) Size {
	return Size{
		Width:  int(math.Ceil(float64(s.Width) * f)),
		Height: int(math.Ceil(float64(s.Height) * f)),
	}
}

// Aspect returns width divided by height, or 0 for an empty size.
func (s Size) Aspect() float64 {
	if s.Height == 0 {
		return 0
	}
	return float64(s.Width) / float64(s.Height)
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// FieldOfView describes an asymmetric view frustum as the tangents of the
// half angles from the eye's forward axis to each frustum edge.
type FieldOfView struct {
	UpTan    float64
	DownTan  float64
	LeftTan  float64
	RightTan float64
}

// Symmetric returns a symmetric field of view with the given vertical
// angle in radians and aspect ratio.
func Symmetric(fovy, aspect float64) FieldOfView {
	v := math.Tan(fovy / 2)
	h := v * aspect
	return FieldOfView{UpTan: v, DownTan: v, LeftTan: h, RightTan: h}
}

// Projection returns the off-axis projection matrix for the field of view.
func (f FieldOfView) Projection(near, far float64) mgl64.Mat4 {
	return mgl64.Frustum(
		-f.LeftTan*near, f.RightTan*near,
		-f.DownTan*near, f.UpTan*near,
		near, far,
	)
}

// EyeRenderDescriptor is the per-eye geometry a device reports for the
// current render scale.
type EyeRenderDescriptor struct {
	Eye Eye

	// FOV is the field of view to project with.
	FOV FieldOfView

	// Offset translates from the center of the head to this eye, in
	// head space, in meters.
	Offset mgl64.Vec3

	// RecommendedSize is the suggested offscreen target resolution.
	RecommendedSize Size
}

// HeadPose is one tracked sample of the headset.
type HeadPose struct {
	// Orientation is a unit quaternion in tracking space.
	Orientation mgl64.Quat

	// Position is the tracked position in meters. Valid only when
	// HasPosition is set; orientation-only devices leave it zero.
	Position    mgl64.Vec3
	HasPosition bool
}

// IdentityPose returns a pose looking straight ahead at the origin.
func IdentityPose() HeadPose {
	return HeadPose{Orientation: mgl64.QuatIdent()}
}

// EulerAngles returns the pitch (about X), yaw (about Y) and roll
// (about Z) of q in radians, decomposed in yaw-pitch-roll order.
func EulerAngles(q mgl64.Quat) (pitch, yaw, roll float64) {
	q = q.Normalize()
	w, x, y, z := q.W, q.V[0], q.V[1], q.V[2]

	sinp := 2 * (w*x - y*z)
	switch {
	case sinp >= 1:
		pitch = math.Pi / 2
	case sinp <= -1:
		pitch = -math.Pi / 2
	default:
		pitch = math.Asin(sinp)
	}
	yaw = math.Atan2(2*(w*y+x*z), 1-2*(x*x+y*y))
	roll = math.Atan2(2*(w*z+x*y), 1-2*(x*x+z*z))
	return pitch, yaw, roll
}
