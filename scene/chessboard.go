// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/target"
)

// Chessboard draws a checkered floor on the y = 0 plane under a plain
// sky. Tile (i, j) covers [i, i+1) × [j, j+1) tile units in X and Z and
// is light when i + j is even.
//
// It renders with gg into CPU pixmap surfaces only; texture surfaces
// return hmd.ErrUnsupportedSurface. GPU eye targets need a renderer that
// records into TextureSurface.Pass.
type Chessboard struct {
	// TileSize is the tile edge in meters.
	TileSize float64

	// Extent is the number of tiles from the origin to each edge of
	// the board.
	Extent int

	Light, Dark, Sky gg.RGBA

	mu   sync.Mutex
	ctxs [hmd.EyeCount]*gg.Context
}

// NewChessboard returns a 40 m board of 1 m tiles.
func NewChessboard() *Chessboard {
	return &Chessboard{
		TileSize: 1,
		Extent:   20,
		Light:    gg.RGB(0.85, 0.85, 0.85),
		Dark:     gg.RGB(0.25, 0.25, 0.3),
		Sky:      gg.RGB(0.45, 0.65, 0.9),
	}
}

// Render draws the board as seen by cam into s.
func (c *Chessboard) Render(ctx context.Context, cam hmd.Camera, s target.Surface) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ps, ok := s.(*target.PixmapSurface)
	if !ok {
		return fmt.Errorf("scene: chessboard: %w: %T", hmd.ErrUnsupportedSurface, s)
	}
	if !cam.Eye.Valid() {
		return fmt.Errorf("scene: chessboard: %w: eye %v", hmd.ErrInvalidState, cam.Eye)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	size := ps.Size()
	dc := c.ctxs[cam.Eye]
	if dc == nil || dc.Width() != size.Width || dc.Height() != size.Height {
		if dc != nil {
			closeContext(dc, cam.Eye)
		}
		dc = gg.NewContext(size.Width, size.Height)
		c.ctxs[cam.Eye] = dc
	}

	dc.ClearWithColor(c.Sky)
	for _, parity := range []int{0, 1} {
		if n := c.tilePath(dc, cam, parity); n == 0 {
			continue
		}
		col := c.Light
		if parity == 1 {
			col = c.Dark
		}
		dc.SetRGBA(col.R, col.G, col.B, col.A)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("scene: chessboard: fill: %w", err)
		}
	}

	img := dc.Image()
	dst := ps.Image()
	xdraw.Draw(dst, dst.Bounds(), img, image.Point{}, xdraw.Src)
	return nil
}

// tilePath adds every visible tile of the given parity to the current
// path and returns how many were added.
func (c *Chessboard) tilePath(dc *gg.Context, cam hmd.Camera, parity int) int {
	ts := c.TileSize
	near := cam.Near
	if near <= 0 {
		near = hmd.DefaultNear
	}
	n := 0
	quad := make([]mgl64.Vec3, 4)
	for j := -c.Extent; j < c.Extent; j++ {
		for i := -c.Extent; i < c.Extent; i++ {
			if (i+j)&1 != parity {
				continue
			}
			x0, z0 := float64(i)*ts, float64(j)*ts
			x1, z1 := x0+ts, z0+ts
			for k, p := range [4]mgl64.Vec3{{x0, 0, z0}, {x1, 0, z0}, {x1, 0, z1}, {x0, 0, z1}} {
				quad[k] = cam.View.Mul4x1(p.Vec4(1)).Vec3()
			}
			poly := clipNear(quad, near)
			if len(poly) < 3 {
				continue
			}
			for k, p := range poly {
				x, y := toScreen(cam, p)
				if k == 0 {
					dc.MoveTo(x, y)
				} else {
					dc.LineTo(x, y)
				}
			}
			dc.ClosePath()
			n++
		}
	}
	return n
}

// closeContext releases a drawing context replaced on resize. Failures
// only cost the old context's memory, so they are logged.
func closeContext(dc io.Closer, eye hmd.Eye) {
	if err := dc.Close(); err != nil {
		hmd.Logger().Debug("scene: chessboard: close context", "eye", eye.String(), "err", err)
	}
}

// Close releases the cached drawing contexts.
func (c *Chessboard) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for i, dc := range c.ctxs {
		if dc != nil {
			if err := dc.Close(); err != nil {
				errs = append(errs, fmt.Errorf("scene: chessboard: close %s context: %w", hmd.Eye(i), err))
			}
			c.ctxs[i] = nil
		}
	}
	return errors.Join(errs...)
}
