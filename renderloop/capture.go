// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl64"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/hmd"
)

// Capture reads both eye targets back and returns them side by side,
// left eye first. It synchronizes with the graphics device and is only
// allowed while the loop is stopped and drained.
func (l *Loop) Capture() (*image.RGBA, error) {
	l.mu.Lock()
	state, closed := l.state, l.closed
	l.mu.Unlock()
	if state != Stopped || closed {
		return nil, fmt.Errorf("renderloop: capture: %w: loop is %s", hmd.ErrInvalidState, state)
	}
	l.Wait()

	var shots [hmd.EyeCount]*image.RGBA
	for _, eye := range hmd.Eyes {
		img, err := l.targets[eye].Snapshot()
		if err != nil {
			return nil, fmt.Errorf("renderloop: capture %s eye: %w", eye, err)
		}
		shots[eye] = img
	}

	left, right := shots[hmd.EyeLeft].Bounds(), shots[hmd.EyeRight].Bounds()
	out := image.NewRGBA(image.Rect(0, 0, left.Dx()+right.Dx(), max(left.Dy(), right.Dy())))
	xdraw.Draw(out, image.Rect(0, 0, left.Dx(), left.Dy()), shots[hmd.EyeLeft], left.Min, xdraw.Src)
	xdraw.Draw(out, image.Rect(left.Dx(), 0, left.Dx()+right.Dx(), right.Dy()), shots[hmd.EyeRight], right.Min, xdraw.Src)
	return out, nil
}

// Camera returns the camera eye was last rendered with.
func (l *Loop) Camera(eye hmd.Eye) (hmd.Camera, bool) {
	if !eye.Valid() {
		return hmd.Camera{}, false
	}
	l.camMu.RLock()
	defer l.camMu.RUnlock()
	return l.cams[eye], l.haveCam[eye]
}

// PickRay returns the world-space ray through pixel (x, y) of eye's
// target as last rendered, for hit testing against the scene.
func (l *Loop) PickRay(eye hmd.Eye, x, y float64) (origin, dir mgl64.Vec3, err error) {
	cam, ok := l.Camera(eye)
	if !ok {
		return origin, dir, fmt.Errorf("renderloop: pick ray: %w: %s eye not rendered yet", hmd.ErrInvalidState, eye)
	}
	origin, dir = cam.Ray(x, y)
	return origin, dir, nil
}
