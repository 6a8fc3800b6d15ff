// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/hmd"
)

// clipNear clips a convex eye-space polygon against the near plane
// z = -near, keeping the part in front of the eye.
func clipNear(poly []mgl64.Vec3, near float64) []mgl64.Vec3 {
	if len(poly) == 0 {
		return nil
	}
	inside := func(p mgl64.Vec3) bool { return p[2] <= -near }
	out := make([]mgl64.Vec3, 0, len(poly)+1)
	prev := poly[len(poly)-1]
	for _, cur := range poly {
		switch {
		case inside(cur) && inside(prev):
			out = append(out, cur)
		case inside(cur):
			out = append(out, intersectNear(prev, cur, near), cur)
		case inside(prev):
			out = append(out, intersectNear(prev, cur, near))
		}
		prev = cur
	}
	return out
}

func intersectNear(a, b mgl64.Vec3, near float64) mgl64.Vec3 {
	t := (-near - a[2]) / (b[2] - a[2])
	return a.Add(b.Sub(a).Mul(t))
}

// toScreen projects an eye-space point in front of the near plane to
// viewport pixels.
func toScreen(cam hmd.Camera, p mgl64.Vec3) (x, y float64) {
	clip := cam.Projection.Mul4x1(p.Vec4(1))
	ndc := clip.Vec3().Mul(1 / clip[3])
	x = (ndc[0] + 1) / 2 * float64(cam.Viewport.Width)
	y = (1 - ndc[1]) / 2 * float64(cam.Viewport.Height)
	return x, y
}
