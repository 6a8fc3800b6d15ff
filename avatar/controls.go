// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package avatar

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/hmd/input"
)

type axis uint8

const (
	axisX axis = iota
	axisZ
	axisTurn
)

type binding struct {
	key  input.Key
	axis axis
	sign float64
}

// Default key layout. Movement keys contribute to a held axis; opposite
// keys cancel while both are down.
var defaultBindings = []binding{
	{input.KeyW, axisZ, 1},
	{input.KeyArrowUp, axisZ, 1},
	{input.KeyS, axisZ, -1},
	{input.KeyArrowDown, axisZ, -1},
	{input.KeyD, axisX, 1},
	{input.KeyA, axisX, -1},
	{input.KeyQ, axisTurn, 1},
	{input.KeyArrowLeft, axisTurn, 1},
	{input.KeyE, axisTurn, -1},
	{input.KeyArrowRight, axisTurn, -1},
}

// controls tracks held keys and republishes the derived pending input
// to the avatar after every change.
type controls struct {
	avatar *Avatar

	mu   sync.Mutex
	held map[input.Key]bool
}

func (c *controls) set(key input.Key, down bool) {
	c.mu.Lock()
	if down {
		c.held[key] = true
	} else {
		delete(c.held, key)
	}
	var move mgl64.Vec3
	var turn float64
	for _, b := range defaultBindings {
		if !c.held[b.key] {
			continue
		}
		switch b.axis {
		case axisX:
			move[0] += b.sign
		case axisZ:
			move[2] += b.sign
		case axisTurn:
			turn += b.sign
		}
	}
	c.mu.Unlock()

	c.avatar.SetMove(move)
	c.avatar.SetTurn(clamp(turn, -1, 1))
}

// BindControls registers the default keyboard controls for a on r:
// W/S and the up/down arrows walk forward and back, A/D strafe, Q/E and
// the left/right arrows turn, and holding Shift runs. Presses are bound
// with no modifiers and with Shift only. Releases and modifier changes
// are bound under every significant mask, so a key never stays held and
// the run flag always follows Shift. If recenter is non-nil, R calls it.
func BindControls(r *input.Router, a *Avatar, recenter func()) {
	c := &controls{avatar: a, held: make(map[input.Key]bool)}
	masks := significantMasks()

	var rules []input.Rule
	for _, b := range defaultBindings {
		key := b.key
		for _, mask := range []input.Modifiers{input.ModNone, input.ModShift} {
			run := mask == input.ModShift
			rules = append(rules, input.OnKeyDown(key, mask, func(input.Event) {
				a.SetRunning(run)
				c.set(key, true)
			}))
		}
		for _, mask := range masks {
			rules = append(rules, input.OnKeyUp(key, mask, func(input.Event) {
				c.set(key, false)
			}))
		}
	}
	for _, mask := range masks {
		rules = append(rules, input.OnFlagsChanged(mask, func(e input.Event) {
			a.SetRunning(e.Modifiers.Has(input.ModShift))
		}))
	}
	if recenter != nil {
		rules = append(rules, input.OnKeyDown(input.KeyR, input.ModNone, func(e input.Event) {
			if !e.Repeat {
				recenter()
			}
		}))
	}
	r.Register(rules...)
}

// significantMasks lists every combination of the significant modifier
// bits.
func significantMasks() []input.Modifiers {
	bits := []input.Modifiers{input.ModShift, input.ModControl, input.ModAlt, input.ModCommand}
	masks := make([]input.Modifiers, 0, 1<<len(bits))
	for i := 0; i < 1<<len(bits); i++ {
		var m input.Modifiers
		for j, bit := range bits {
			if i&(1<<j) != 0 {
				m |= bit
			}
		}
		masks = append(masks, m)
	}
	return masks
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
