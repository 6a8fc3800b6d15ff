// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"image"
	"image/color"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/hmd"
)

// Mirror composes both eye images side by side through the lens
// distortion, the way the headset panel would show them. It is the debug
// device's stand-in for the compositor's preview window.
type Mirror struct {
	size hmd.Size
	lens Distortion

	mu sync.Mutex

	// eyes hold each eye image resampled to half the mirror width.
	eyes [hmd.EyeCount]*image.RGBA

	// lut maps each pixel of an eye half to its source offset in eyes,
	// or -1 outside the lens.
	lut []int

	out      *image.RGBA
	composed bool
}

// NewMirror returns a mirror producing images of size. Sizes narrower
// than two pixels are widened so each eye gets at least one column.
func NewMirror(size hmd.Size, lens Distortion) *Mirror {
	size.Width = max(2, size.Width)
	size.Height = max(1, size.Height)
	half := image.Rect(0, 0, size.Width/2, size.Height)
	m := &Mirror{
		size: size,
		lens: lens,
		out:  image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)),
	}
	for i := range m.eyes {
		m.eyes[i] = image.NewRGBA(half)
	}
	m.lut = buildLUT(half.Dx(), half.Dy(), m.eyes[0].Stride, lens)
	return m
}

func buildLUT(w, h, stride int, lens Distortion) []int {
	lut := make([]int, w*h)
	for y := 0; y < h; y++ {
		ny := 1 - (float64(y)+0.5)/float64(h)*2
		for x := 0; x < w; x++ {
			nx := (float64(x)+0.5)/float64(w)*2 - 1
			sx, sy, ok := lens.Warp(nx, ny)
			if !ok {
				lut[y*w+x] = -1
				continue
			}
			px := min(w-1, int((sx+1)/2*float64(w)))
			py := min(h-1, int((1-sy)/2*float64(h)))
			lut[y*w+x] = py*stride + px*4
		}
	}
	return lut
}

// Size returns the mirror image size.
func (m *Mirror) Size() hmd.Size {
	return m.size
}

// Compose resamples left and right, applies the distortion and returns a
// copy of the composed image. A nil eye image leaves that half black.
func (m *Mirror) Compose(left, right image.Image) *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()

	halfW := m.size.Width / 2
	for i, src := range [hmd.EyeCount]image.Image{left, right} {
		eye := m.eyes[i]
		if src == nil {
			xdraw.Draw(eye, eye.Bounds(), image.NewUniform(color.Black), image.Point{}, xdraw.Src)
		} else {
			xdraw.ApproxBiLinear.Scale(eye, eye.Bounds(), src, src.Bounds(), xdraw.Src, nil)
		}
		m.distort(eye, i*halfW)
	}
	m.composed = true

	out := image.NewRGBA(m.out.Bounds())
	copy(out.Pix, m.out.Pix)
	return out
}

func (m *Mirror) distort(eye *image.RGBA, xOff int) {
	w, h := eye.Bounds().Dx(), eye.Bounds().Dy()
	for y := 0; y < h; y++ {
		row := m.out.Pix[y*m.out.Stride+xOff*4:]
		for x := 0; x < w; x++ {
			d := row[x*4 : x*4+4 : x*4+4]
			src := m.lut[y*w+x]
			if src < 0 {
				d[0], d[1], d[2], d[3] = 0, 0, 0, 0xff
				continue
			}
			copy(d, eye.Pix[src:src+4])
		}
	}
}

// Latest returns a copy of the last composed image, or nil before the
// first Compose.
func (m *Mirror) Latest() *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.composed {
		return nil
	}
	out := image.NewRGBA(m.out.Bounds())
	copy(out.Pix, m.out.Pix)
	return out
}
