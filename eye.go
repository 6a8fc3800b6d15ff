// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hmd

import "fmt"

// Eye identifies one of the two stereo views.
type Eye uint8

const (
	// EyeLeft is the left eye view.
	EyeLeft Eye = iota

	// EyeRight is the right eye view.
	EyeRight
)

// EyeCount is the fixed number of views rendered per frame.
const EyeCount = 2

// Eyes lists both eyes in render order.
var Eyes = [EyeCount]Eye{EyeLeft, EyeRight}

// String returns a human-readable name for the eye.
func (e Eye) String() string {
	switch e {
	case EyeLeft:
		return "left"
	case EyeRight:
		return "right"
	default:
		return fmt.Sprintf("Eye(%d)", e)
	}
}

// Valid reports whether e is one of EyeLeft or EyeRight.
func (e Eye) Valid() bool {
	return e < EyeCount
}
