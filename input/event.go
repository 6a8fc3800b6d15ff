// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package input routes raw toolkit input events to declarative handlers.
//
// An EventRule pairs an event category and an exact modifier mask with a
// callback; key rules additionally carry a key code. A Router holds rules
// in registration order and dispatches each incoming Event to every rule
// that matches. The windowing toolkit adapter translates its native events
// into Event values and calls Router.Dispatch from its event goroutine.
package input

import (
	"fmt"
	"strings"
	"time"
)

// Category is the kind of an input event.
type Category uint8

const (
	CategoryUnknown Category = iota
	KeyDown
	KeyUp
	FlagsChanged
	MouseDown
	MouseUp
	RightMouseDown
	RightMouseUp
	MouseMoved
	MouseDragged
	RightMouseDragged
	ScrollWheel
)

var categoryNames = [...]string{
	CategoryUnknown:   "unknown",
	KeyDown:           "key-down",
	KeyUp:             "key-up",
	FlagsChanged:      "flags-changed",
	MouseDown:         "mouse-down",
	MouseUp:           "mouse-up",
	RightMouseDown:    "right-mouse-down",
	RightMouseUp:      "right-mouse-up",
	MouseMoved:        "mouse-moved",
	MouseDragged:      "mouse-dragged",
	RightMouseDragged: "right-mouse-dragged",
	ScrollWheel:       "scroll-wheel",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", c)
}

// IsKey reports whether events of this category carry a key code.
func (c Category) IsKey() bool {
	return c == KeyDown || c == KeyUp
}

// Modifiers is a bitmask of held modifier keys. Bits outside
// SignificantModifiers (caps lock, numeric pad, function, device-dependent
// flags) are ignored by matching.
type Modifiers uint32

const (
	ModCapsLock Modifiers = 1 << (16 + iota)
	ModShift
	ModControl
	ModAlt
	ModCommand
	ModNumericPad
	ModHelp
	ModFunction

	// ModNone is the empty mask.
	ModNone Modifiers = 0
)

// SignificantModifiers are the bits that take part in rule matching.
const SignificantModifiers = ModShift | ModControl | ModAlt | ModCommand

// Significant returns m with non-significant bits cleared.
func (m Modifiers) Significant() Modifiers {
	return m & SignificantModifiers
}

// Has reports whether every bit of o is set in m.
func (m Modifiers) Has(o Modifiers) bool {
	return m&o == o
}

func (m Modifiers) String() string {
	if m == 0 {
		return "none"
	}
	names := []struct {
		bit  Modifiers
		name string
	}{
		{ModCapsLock, "caps"}, {ModShift, "shift"}, {ModControl, "ctrl"},
		{ModAlt, "alt"}, {ModCommand, "cmd"}, {ModNumericPad, "numpad"},
		{ModHelp, "help"}, {ModFunction, "fn"},
	}
	var parts []string
	for _, n := range names {
		if m&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if rest := m &^ (SignificantModifiers | ModCapsLock | ModNumericPad | ModHelp | ModFunction); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "+")
}

// Event is one raw input event delivered by the toolkit.
type Event struct {
	Category  Category
	Modifiers Modifiers

	// Key is the key code for KeyDown and KeyUp events.
	Key Key

	// Repeat is set for auto-repeated key events.
	Repeat bool

	// X and Y are the pointer location in view coordinates.
	X, Y float64

	// DeltaX and DeltaY are the pointer or scroll deltas.
	DeltaX, DeltaY float64

	Time time.Time
}
