// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package input

// Key is a toolkit-independent key code.
type Key uint16

// Key codes used by the built-in control bindings. Toolkit adapters map
// their native codes onto these values.
const (
	KeyUnknown Key = iota
	KeyA
	KeyD
	KeyE
	KeyQ
	KeyR
	KeyS
	KeyW
	KeySpace
	KeyEscape
	KeyArrowLeft
	KeyArrowRight
	KeyArrowUp
	KeyArrowDown
)

// macVirtualKeys maps macOS virtual key codes to Key.
var macVirtualKeys = map[uint16]Key{
	0x00: KeyA,
	0x02: KeyD,
	0x0E: KeyE,
	0x0C: KeyQ,
	0x0F: KeyR,
	0x01: KeyS,
	0x0D: KeyW,
	0x31: KeySpace,
	0x35: KeyEscape,
	0x7B: KeyArrowLeft,
	0x7C: KeyArrowRight,
	0x7E: KeyArrowUp,
	0x7D: KeyArrowDown,
}

// KeyFromMacVirtual converts a macOS virtual key code. Unmapped codes
// return KeyUnknown.
func KeyFromMacVirtual(code uint16) Key {
	return macVirtualKeys[code]
}
