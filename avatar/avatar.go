// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package avatar integrates first-person locomotion and fuses the tracked
// head pose into a body-relative head transform.
//
// An Avatar has two kinds of state with different writers. Pending input
// (the held movement vector, turn rate and run flag) is written by input
// handlers on the event goroutine. The body and head transforms are
// written only by Tick on the render goroutine. Readers on any goroutine
// get consistent copies.
package avatar

import (
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/hmd"
)

// Settings are the tunable kinematic parameters of an avatar.
type Settings struct {
	// WalkSpeed and RunSpeed are in meters per second.
	WalkSpeed float64
	RunSpeed  float64

	// TurnSpeed is in radians per second.
	TurnSpeed float64

	// EyeHeight is the height of the neck pivot above the body origin.
	EyeHeight float64

	// PivotToEyes is the forward distance from the neck pivot to the
	// point between the eyes, in head space.
	PivotToEyes float64
}

// DefaultSettings returns walking-pace settings for a standing adult.
func DefaultSettings() Settings {
	return Settings{
		WalkSpeed:   1.4,
		RunSpeed:    4.0,
		TurnSpeed:   math.Pi / 2,
		EyeHeight:   1.65,
		PivotToEyes: 0.09,
	}
}

// Avatar is a first-person body with a tracked head.
type Avatar struct {
	// mu guards the fields written from the input side.
	mu       sync.Mutex
	move     mgl64.Vec3
	turn     float64
	running  bool
	settings Settings

	// stateMu guards the transforms written by Tick.
	stateMu    sync.RWMutex
	position   mgl64.Vec3
	yaw        float64
	headPos    mgl64.Vec3
	headOrient mgl64.Quat
}

// New returns an avatar standing at the origin facing -Z.
func New(s Settings) *Avatar {
	a := &Avatar{settings: s, headOrient: mgl64.QuatIdent()}
	a.headPos = a.headPosition(mgl64.Vec3{}, mgl64.QuatIdent(), hmd.IdentityPose(), s)
	return a
}

// SetMove sets the held locomotion vector in avatar-local space: +X is
// right, +Y is up and +Z is forward. Vectors longer than one are
// normalized at tick time.
func (a *Avatar) SetMove(v mgl64.Vec3) {
	a.mu.Lock()
	a.move = v
	a.mu.Unlock()
}

// SetTurn sets the held turn rate in [-1, 1]; positive turns left.
func (a *Avatar) SetTurn(rate float64) {
	a.mu.Lock()
	a.turn = rate
	a.mu.Unlock()
}

// SetRunning selects run speed instead of walk speed.
func (a *Avatar) SetRunning(run bool) {
	a.mu.Lock()
	a.running = run
	a.mu.Unlock()
}

// SetSettings replaces the kinematic settings from the next tick on.
func (a *Avatar) SetSettings(s Settings) {
	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()
}

// Settings returns the current kinematic settings.
func (a *Avatar) Settings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// Pending returns the held input state.
func (a *Avatar) Pending() (move mgl64.Vec3, turn float64, running bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.move, a.turn, a.running
}

// Place moves the body to position with the given yaw. It must not be
// called while a render loop is ticking the avatar.
func (a *Avatar) Place(position mgl64.Vec3, yaw float64) {
	a.stateMu.Lock()
	a.position = position
	a.yaw = yaw
	a.stateMu.Unlock()
	hmd.Logger().Debug("avatar: placed", "position", position, "yaw", yaw)
}

// Tick integrates held input over dt and fuses pose into the head
// transform. Held input is not consumed: it stays in effect until the
// input side changes it.
func (a *Avatar) Tick(pose hmd.HeadPose, dt time.Duration) {
	a.mu.Lock()
	move, turn, running, s := a.move, a.turn, a.running, a.settings
	a.mu.Unlock()

	secs := dt.Seconds()
	speed := s.WalkSpeed
	if running {
		speed = s.RunSpeed
	}
	if l := move.Len(); l > 1 {
		move = move.Mul(1 / l)
	}

	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	if move != (mgl64.Vec3{}) {
		body := yawQuat(a.yaw)
		world := body.Rotate(mgl64.Vec3{move[0], move[1], -move[2]})
		a.position = a.position.Add(world.Mul(speed * secs))
	}
	if turn != 0 {
		a.yaw = wrapAngle(a.yaw + turn*s.TurnSpeed*secs)
	}

	body := yawQuat(a.yaw)
	a.headOrient = body.Mul(pose.Orientation.Normalize()).Normalize()
	a.headPos = a.headPosition(a.position, body, pose, s)
}

// headPosition places the eyes: the body origin raised to the neck
// pivot, plus any tracked translation in body space, plus the pivot
// offset rotated by the fused head orientation.
func (a *Avatar) headPosition(pos mgl64.Vec3, body mgl64.Quat, pose hmd.HeadPose, s Settings) mgl64.Vec3 {
	p := pos.Add(mgl64.Vec3{0, s.EyeHeight, 0})
	if pose.HasPosition {
		p = p.Add(body.Rotate(pose.Position))
	}
	head := body.Mul(pose.Orientation.Normalize())
	return p.Add(head.Rotate(mgl64.Vec3{0, 0, -s.PivotToEyes}))
}

// Position returns the body position.
func (a *Avatar) Position() mgl64.Vec3 {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.position
}

// Yaw returns the body yaw in radians, counterclockwise about +Y.
func (a *Avatar) Yaw() float64 {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.yaw
}

// Facing returns the body's horizontal forward unit vector.
func (a *Avatar) Facing() mgl64.Vec3 {
	return facing(a.Yaw())
}

// Head returns the fused head position and orientation in world space.
func (a *Avatar) Head() (mgl64.Vec3, mgl64.Quat) {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.headPos, a.headOrient
}

// HeadRotation returns the fused head orientation as pitch, yaw and roll
// in radians.
func (a *Avatar) HeadRotation() (pitch, yaw, roll float64) {
	_, q := a.Head()
	return hmd.EulerAngles(q)
}

func yawQuat(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0})
}

func facing(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{-math.Sin(yaw), 0, -math.Cos(yaw)}
}

func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
