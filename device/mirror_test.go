// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"context"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/target"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// mask renders the mirror as text: L for left-eye pixels, R for
// right-eye pixels and . outside the lenses.
func mask(img *image.RGBA) []byte {
	var b strings.Builder
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			switch {
			case c.R > 128:
				b.WriteByte('L')
			case c.B > 128:
				b.WriteByte('R')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func TestDistortionWarp(t *testing.T) {
	d := DefaultDistortion()
	assert.InDelta(t, 1.46, d.Scale, 1e-12)

	x, y, ok := d.Warp(0, 0)
	assert.True(t, ok)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)

	x, y, ok = d.Warp(1, 0)
	assert.True(t, ok)
	assert.InDelta(t, 1, x, 1e-12)
	assert.Equal(t, 0.0, y)

	_, _, ok = d.Warp(0.9, 0.9)
	assert.False(t, ok, "corners fall outside the image")

	// Interior points sample closer to the center than they sit.
	x, _, _ = d.Warp(0.5, 0)
	assert.Less(t, x, 0.5)

	u := d.Uniforms()
	assert.Equal(t, float32(0.22), u[1])
	assert.Equal(t, float32(d.Scale), u[4])
}

func TestMirrorComposeMask(t *testing.T) {
	m := NewMirror(hmd.Sz(32, 12), DefaultDistortion())
	assert.Nil(t, m.Latest())

	out := m.Compose(solid(40, 30, red), solid(40, 30, blue))
	require.Equal(t, image.Rect(0, 0, 32, 12), out.Bounds())

	g := goldie.New(t)
	g.Assert(t, "mirror_mask", mask(out))
	assert.Equal(t, out.Pix, m.Latest().Pix)
}

func TestMirrorNilEye(t *testing.T) {
	m := NewMirror(hmd.Sz(20, 10), DefaultDistortion())
	out := m.Compose(solid(8, 8, red), nil)
	assert.Equal(t, red, out.RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(15, 5))
}

func TestDebugDeviceMirror(t *testing.T) {
	d := Acquire(context.Background(), Options{
		ForceDebug: true,
		Mirror:     true,
		MirrorSize: hmd.Sz(64, 32),
	})
	defer d.Shutdown()
	assert.Nil(t, d.MirrorImage())

	alloc := target.NewPixmapAllocator(red)
	l, err := target.New(alloc, "left", hmd.Sz(32, 32))
	require.NoError(t, err)
	r, err := target.New(target.NewPixmapAllocator(blue), "right", hmd.Sz(32, 32))
	require.NoError(t, err)
	for _, ft := range []*target.FrameTarget{l, r} {
		require.NoError(t, ft.Bind())
		require.NoError(t, ft.Unbind())
	}

	require.NoError(t, d.Submit(context.Background(), l, r))
	img := d.MirrorImage()
	require.NotNil(t, img)
	assert.Equal(t, red, img.RGBAAt(16, 16))
	assert.Equal(t, blue, img.RGBAAt(48, 16))
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(0, 0))
}

func TestDebugDeviceDefaultMirrorSize(t *testing.T) {
	s, err := newDebugSession(Options{Mirror: true})
	require.NoError(t, err)
	assert.Equal(t, hmd.Sz(960, 540), s.mirror.Size())
}
