// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/hmd"
)

// Info describes a headset's fixed hardware properties.
type Info struct {
	ProductName  string
	Manufacturer string
	Serial       string

	// DisplayID identifies the screen the compositor drives.
	DisplayID string

	// Resolution is the full panel resolution covering both eyes.
	Resolution hmd.Size

	// RefreshRate is the panel refresh rate in Hz.
	RefreshRate float64

	// EyeFOV is the default field of view for each eye.
	EyeFOV [hmd.EyeCount]hmd.FieldOfView

	// PixelsPerTan is the render-target pixel density at the lens center
	// per unit of view-plane tangent, at render scale 1.
	PixelsPerTan float64

	// IPD is the interpupillary distance in meters.
	IPD float64

	// Lens is the barrel distortion applied when compositing.
	Lens Distortion

	// Debug is set for the software stand-in device.
	Debug bool
}

// NativeEyeSize is one eye's share of the panel: half the width and the
// full height.
func (i Info) NativeEyeSize() hmd.Size {
	return hmd.Size{Width: i.Resolution.Width / 2, Height: i.Resolution.Height}
}

// EyeOffset returns the head-space translation from the center of the
// head to eye.
func (i Info) EyeOffset(eye hmd.Eye) mgl64.Vec3 {
	half := i.IPD / 2
	if eye == hmd.EyeLeft {
		return mgl64.Vec3{-half, 0, 0}
	}
	return mgl64.Vec3{half, 0, 0}
}

// RecommendedSize returns the eye target size that keeps one target pixel
// per panel pixel at the lens center, multiplied by scale.
func (i Info) RecommendedSize(eye hmd.Eye, scale float64) hmd.Size {
	fov := i.EyeFOV[eye]
	w := (fov.LeftTan + fov.RightTan) * i.PixelsPerTan * scale
	h := (fov.UpTan + fov.DownTan) * i.PixelsPerTan * scale
	return hmd.Size{
		Width:  max(1, int(math.Ceil(w))),
		Height: max(1, int(math.Ceil(h))),
	}
}

// Descriptor builds the render descriptor for eye at the given scale.
func (i Info) Descriptor(eye hmd.Eye, scale float64) hmd.EyeRenderDescriptor {
	return hmd.EyeRenderDescriptor{
		Eye:             eye,
		FOV:             i.EyeFOV[eye],
		Offset:          i.EyeOffset(eye),
		RecommendedSize: i.RecommendedSize(eye, scale),
	}
}

// Fixed identity and geometry of the debug device, modeled on a
// 1920x1080 development kit.
const (
	debugProductName  = "Debug HMD"
	debugManufacturer = "gogpu"
	debugSerial       = "DEBUG-0000"
	debugDisplayID    = "debug-display-0"
	debugRefreshRate  = 75.0
	debugPixelsPerTan = 549.618
	debugIPD          = 0.064
)

// DebugInfo returns the fixed description of the debug device.
func DebugInfo() Info {
	// Outward half-angles are slightly narrower than inward ones.
	left := hmd.FieldOfView{UpTan: 1.33, DownTan: 1.33, LeftTan: 1.06, RightTan: 1.09}
	right := hmd.FieldOfView{UpTan: 1.33, DownTan: 1.33, LeftTan: 1.09, RightTan: 1.06}
	return Info{
		ProductName:  debugProductName,
		Manufacturer: debugManufacturer,
		Serial:       debugSerial,
		DisplayID:    debugDisplayID,
		Resolution:   hmd.Sz(1920, 1080),
		RefreshRate:  debugRefreshRate,
		EyeFOV:       [hmd.EyeCount]hmd.FieldOfView{left, right},
		PixelsPerTan: debugPixelsPerTan,
		IPD:          debugIPD,
		Lens:         DefaultDistortion(),
		Debug:        true,
	}
}
