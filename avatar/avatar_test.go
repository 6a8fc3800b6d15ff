// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package avatar

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/hmd"
)

const eps = 1e-9

func assertVec(t *testing.T, want, got mgl64.Vec3, msgAndArgs ...any) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, msgAndArgs...)
	}
}

func unitSettings() Settings {
	return Settings{WalkSpeed: 1, RunSpeed: 3, TurnSpeed: 1, EyeHeight: 1.5, PivotToEyes: 0.1}
}

func pitchedPose(angle float64) hmd.HeadPose {
	return hmd.HeadPose{Orientation: mgl64.QuatRotate(angle, mgl64.Vec3{1, 0, 0})}
}

func TestTickIdleKeepsBody(t *testing.T) {
	a := New(unitSettings())
	a.Place(mgl64.Vec3{2, 0, -3}, 0.7)

	poses := []hmd.HeadPose{hmd.IdentityPose(), pitchedPose(0.3), pitchedPose(-0.5)}
	for i := 0; i < 30; i++ {
		pose := poses[i%len(poses)]
		a.Tick(pose, 16*time.Millisecond)

		assert.Equal(t, mgl64.Vec3{2, 0, -3}, a.Position())
		assert.Equal(t, 0.7, a.Yaw())

		_, head := a.Head()
		want := yawQuat(0.7).Mul(pose.Orientation)
		assert.InDelta(t, want.W, head.W, 1e-9, "head follows pose at tick %d", i)
		assertVec(t, want.V, head.V, "head follows pose at tick %d", i)
	}
}

func TestTickForwardMovesAlongFacing(t *testing.T) {
	for _, yaw := range []float64{0, math.Pi / 2, -math.Pi / 3, 2.5} {
		a := New(unitSettings())
		a.Place(mgl64.Vec3{}, yaw)
		facing := a.Facing()

		a.SetMove(mgl64.Vec3{0, 0, 1})
		a.Tick(hmd.IdentityPose(), time.Second)

		got := a.Position()
		assert.InDelta(t, 1.0, got.Len(), eps, "yaw %v", yaw)
		assertVec(t, facing, got, "yaw %v", yaw)
	}
}

func TestTickHeldInputPersists(t *testing.T) {
	a := New(unitSettings())
	a.SetMove(mgl64.Vec3{0, 0, 1})
	for i := 0; i < 4; i++ {
		a.Tick(hmd.IdentityPose(), 500*time.Millisecond)
	}
	assertVec(t, mgl64.Vec3{0, 0, -2}, a.Position())

	move, _, _ := a.Pending()
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, move)
}

func TestTickRunSpeed(t *testing.T) {
	a := New(unitSettings())
	a.SetMove(mgl64.Vec3{0, 0, 1})
	a.SetRunning(true)
	a.Tick(hmd.IdentityPose(), time.Second)
	assertVec(t, mgl64.Vec3{0, 0, -3}, a.Position())
}

func TestTickStrafeAndDiagonal(t *testing.T) {
	a := New(unitSettings())
	a.SetMove(mgl64.Vec3{1, 0, 0})
	a.Tick(hmd.IdentityPose(), time.Second)
	assertVec(t, mgl64.Vec3{1, 0, 0}, a.Position())

	b := New(unitSettings())
	b.SetMove(mgl64.Vec3{1, 0, 1})
	b.Tick(hmd.IdentityPose(), time.Second)
	assert.InDelta(t, 1.0, b.Position().Len(), eps, "diagonal is normalized")
}

func TestTickTurn(t *testing.T) {
	a := New(unitSettings())
	seconds := func(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

	a.SetTurn(1)
	a.Tick(hmd.IdentityPose(), seconds(math.Pi/2))
	assert.InDelta(t, math.Pi/2, a.Yaw(), 1e-6)
	assertVec(t, mgl64.Vec3{-1, 0, 0}, a.Facing())

	a.SetTurn(-1)
	a.Tick(hmd.IdentityPose(), seconds(math.Pi))
	assert.InDelta(t, -math.Pi/2, a.Yaw(), 1e-6)
	assertVec(t, mgl64.Vec3{1, 0, 0}, a.Facing())
}

func TestWrapAngle(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{2*math.Pi + 0.5, 0.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, wrapAngle(tt.in), 1e-9, "wrap(%v)", tt.in)
	}
}

// The device orientation is applied in body space and then rotated by
// the body yaw. With the body turned left and the head pitched up, the
// view must point left and up. The reverse order would point left and
// level.
func TestHeadFusionOrder(t *testing.T) {
	a := New(unitSettings())
	a.Place(mgl64.Vec3{}, math.Pi/2)
	pitch := math.Pi / 6
	a.Tick(pitchedPose(pitch), 0)

	_, head := a.Head()
	forward := head.Rotate(mgl64.Vec3{0, 0, -1})
	assertVec(t, mgl64.Vec3{-math.Cos(pitch), math.Sin(pitch), 0}, forward)

	p, y, r := a.HeadRotation()
	assert.InDelta(t, pitch, p, 1e-6)
	assert.InDelta(t, math.Pi/2, y, 1e-6)
	assert.InDelta(t, 0, r, 1e-6)
}

func TestHeadPosition(t *testing.T) {
	s := unitSettings()
	a := New(s)
	pos, _ := a.Head()
	assertVec(t, mgl64.Vec3{0, 1.5, -0.1}, pos, "initial head")

	a.Place(mgl64.Vec3{1, 0, 1}, math.Pi/2)
	a.Tick(hmd.HeadPose{
		Orientation: mgl64.QuatIdent(),
		Position:    mgl64.Vec3{0, 0.2, -0.5},
		HasPosition: true,
	}, 0)
	pos, _ = a.Head()
	// Tracked offset and pivot offset both rotate with the body: -Z maps to -X.
	assertVec(t, mgl64.Vec3{1 - 0.5 - 0.1, 1.7, 1}, pos)
}

func TestSettingsApplyNextTick(t *testing.T) {
	a := New(unitSettings())
	a.SetMove(mgl64.Vec3{0, 0, 1})
	s := unitSettings()
	s.WalkSpeed = 2
	a.SetSettings(s)
	require.Equal(t, 2.0, a.Settings().WalkSpeed)

	a.Tick(hmd.IdentityPose(), time.Second)
	assertVec(t, mgl64.Vec3{0, 0, -2}, a.Position())
}

func TestConcurrentInputAndTick(t *testing.T) {
	a := New(DefaultSettings())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			a.SetMove(mgl64.Vec3{0, 0, float64(i % 2)})
			a.SetTurn(float64(i%3) - 1)
			a.SetRunning(i%5 == 0)
			_ = a.Facing()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			a.Tick(hmd.IdentityPose(), time.Millisecond)
			_, _ = a.Head()
		}
	}()
	wg.Wait()
}
