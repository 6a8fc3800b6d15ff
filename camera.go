// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hmd

import "github.com/go-gl/mathgl/mgl64"

// Default clip planes in meters.
const (
	DefaultNear = 0.05
	DefaultFar  = 500.0
)

// Camera is the fully resolved per-eye view handed to the scene renderer.
// World space is right-handed with +Y up; a camera with identity
// orientation looks down -Z.
type Camera struct {
	Eye Eye

	// Position and Orientation place the eye in world space.
	Position    mgl64.Vec3
	Orientation mgl64.Quat

	// View transforms world space into eye space.
	View mgl64.Mat4

	// Projection transforms eye space into clip space.
	Projection mgl64.Mat4

	// Viewport is the pixel size of the target being rendered.
	Viewport Size

	Near, Far float64
}

// NewCamera derives the camera for one eye from the head transform and the
// eye's render descriptor. The eye offset is expressed in head space, so it
// rotates with the head.
func NewCamera(headPos mgl64.Vec3, headOrient mgl64.Quat, desc EyeRenderDescriptor, viewport Size, near, far float64) Camera {
	orient := headOrient.Normalize()
	pos := headPos.Add(orient.Rotate(desc.Offset))
	view := orient.Conjugate().Mat4().Mul4(mgl64.Translate3D(-pos[0], -pos[1], -pos[2]))
	return Camera{
		Eye:         desc.Eye,
		Position:    pos,
		Orientation: orient,
		View:        view,
		Projection:  desc.FOV.Projection(near, far),
		Viewport:    viewport,
		Near:        near,
		Far:         far,
	}
}

// ViewProjection returns Projection × View.
func (c Camera) ViewProjection() mgl64.Mat4 {
	return c.Projection.Mul4(c.View)
}

// Forward returns the world-space viewing direction.
func (c Camera) Forward() mgl64.Vec3 {
	return c.Orientation.Rotate(mgl64.Vec3{0, 0, -1})
}

// Project maps a world-space point to viewport pixel coordinates with the
// origin at the top-left. ok is false for points behind the eye.
func (c Camera) Project(p mgl64.Vec3) (x, y, depth float64, ok bool) {
	clip := c.ViewProjection().Mul4x1(p.Vec4(1))
	if clip[3] <= 0 {
		return 0, 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip[3])
	x = (ndc[0] + 1) / 2 * float64(c.Viewport.Width)
	y = (1 - ndc[1]) / 2 * float64(c.Viewport.Height)
	return x, y, ndc[2], true
}

// Ray returns the world-space ray through viewport pixel (x, y). The
// origin lies on the near plane.
func (c Camera) Ray(x, y float64) (origin, dir mgl64.Vec3) {
	nx := 2*x/float64(c.Viewport.Width) - 1
	ny := 1 - 2*y/float64(c.Viewport.Height)
	inv := c.ViewProjection().Inv()

	near := inv.Mul4x1(mgl64.Vec4{nx, ny, -1, 1})
	far := inv.Mul4x1(mgl64.Vec4{nx, ny, 1, 1})
	origin = near.Vec3().Mul(1 / near[3])
	end := far.Vec3().Mul(1 / far[3])
	return origin, end.Sub(origin).Normalize()
}
