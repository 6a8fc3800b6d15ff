// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package scene defines the contract between the render loop and the
// scene renderer, and provides a chessboard floor for debugging.
package scene

import (
	"context"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/target"
)

// Renderer draws the scene for one eye. It is called between the eye
// target's Bind and Unbind and must draw synchronously into s.
// Renderers that cannot draw into the concrete surface type return an
// error wrapping hmd.ErrUnsupportedSurface.
type Renderer interface {
	Render(ctx context.Context, cam hmd.Camera, s target.Surface) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, cam hmd.Camera, s target.Surface) error

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, cam hmd.Camera, s target.Surface) error {
	return f(ctx, cam, s)
}
