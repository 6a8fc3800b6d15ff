// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hmd

import "errors"

// Errors shared by every stage of the stereo pipeline. Callers match them
// with errors.Is; producers wrap them with context.
var (
	// ErrAllocation is returned when a frame target cannot allocate its
	// backing store or color attachment. The frame using that target
	// must be abandoned.
	ErrAllocation = errors.New("hmd: frame target allocation failed")

	// ErrInvalidSize is returned for sizes with a non-positive dimension.
	ErrInvalidSize = errors.New("hmd: invalid size")

	// ErrInvalidState is returned on bind/unbind misuse and other
	// out-of-order lifecycle calls. The offending call is a no-op.
	ErrInvalidState = errors.New("hmd: invalid state")

	// ErrDeviceClosed is returned by every device method after Shutdown.
	ErrDeviceClosed = errors.New("hmd: device closed")

	// ErrDeviceUnavailable reports that no hardware driver detected a
	// headset. Acquire recovers from it by falling back to the debug
	// device, so callers never observe it from Acquire.
	ErrDeviceUnavailable = errors.New("hmd: no headset detected")

	// ErrSessionFailed is surfaced when the render loop stops itself
	// after too many consecutive tick failures.
	ErrSessionFailed = errors.New("hmd: render session failed")

	// ErrUnsupportedSurface is returned by scene renderers that cannot
	// draw into the kind of surface currently bound.
	ErrUnsupportedSurface = errors.New("hmd: unsupported surface")
)
