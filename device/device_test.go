// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"context"
	"errors"
	"image/color"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/target"
)

// fakeSession is a hardware session whose Submit waits on a pacing
// channel when one is set.
type fakeSession struct {
	info    Info
	pose    atomic.Pointer[hmd.HeadPose]
	pace    chan struct{}
	submits atomic.Int32
	closed  atomic.Int32
}

func newFakeSession() *fakeSession {
	info := DebugInfo()
	info.Debug = false
	info.ProductName = "Fake HMD"
	info.Serial = "FAKE-1"
	s := &fakeSession{info: info}
	p := hmd.IdentityPose()
	s.pose.Store(&p)
	return s
}

func (s *fakeSession) Info() Info { return s.info }
func (s *fakeSession) Pose() hmd.HeadPose { return *s.pose.Load() }
func (s *fakeSession) setPose(p hmd.HeadPose) { s.pose.Store(&p) }
func (s *fakeSession) Close() error { s.closed.Add(1); return nil }
func (s *fakeSession) Submit(ctx context.Context, _, _ target.Surface) error {
	if s.pace != nil {
		select {
		case <-s.pace:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.submits.Add(1)
	return nil
}

func unavailable(context.Context) (Session, error) {
	return nil, hmd.ErrDeviceUnavailable
}

func yawPose(angle float64) hmd.HeadPose {
	return hmd.HeadPose{Orientation: mgl64.QuatRotate(angle, mgl64.Vec3{0, 1, 0})}
}

func newTargets(t *testing.T, size hmd.Size) (*target.FrameTarget, *target.FrameTarget) {
	t.Helper()
	alloc := target.NewPixmapAllocator(color.RGBA{A: 255})
	l, err := target.New(alloc, "left", size)
	require.NoError(t, err)
	r, err := target.New(alloc, "right", size)
	require.NoError(t, err)
	t.Cleanup(func() {
		l.Destroy()
		r.Destroy()
	})
	return l, r
}

func TestAcquireFallsBackToDebug(t *testing.T) {
	reg := NewRegistry()
	reg.Register("absent", 100, DriverFunc(unavailable))

	d := Acquire(context.Background(), Options{Registry: reg})
	require.NotNil(t, d)
	defer d.Shutdown()

	assert.True(t, d.IsDebug())
	assert.Equal(t, "debug", d.Driver())
	assert.Equal(t, DebugInfo(), d.Info())
	assert.NotEqual(t, [16]byte{}, [16]byte(d.SessionID()))
}

func TestAcquireEmptyRegistry(t *testing.T) {
	d := Acquire(context.Background(), Options{Registry: NewRegistry()})
	defer d.Shutdown()
	assert.True(t, d.IsDebug())
}

func TestAcquireDriverErrorFallsBack(t *testing.T) {
	reg := NewRegistry()
	reg.Register("broken", 100, DriverFunc(func(context.Context) (Session, error) {
		return nil, errors.New("usb timeout")
	}))

	_, _, err := reg.Open(context.Background())
	assert.ErrorIs(t, err, hmd.ErrDeviceUnavailable)

	d := Acquire(context.Background(), Options{Registry: reg})
	defer d.Shutdown()
	assert.True(t, d.IsDebug())
}

func TestAcquirePriorityOrder(t *testing.T) {
	fake := newFakeSession()
	var probed []string
	reg := NewRegistry()
	reg.Register("high-absent", 100, DriverFunc(func(ctx context.Context) (Session, error) {
		probed = append(probed, "high-absent")
		return unavailable(ctx)
	}))
	reg.Register("fake", 50, DriverFunc(func(context.Context) (Session, error) {
		probed = append(probed, "fake")
		return fake, nil
	}))
	reg.Register("low", 10, DriverFunc(func(context.Context) (Session, error) {
		probed = append(probed, "low")
		return nil, errors.New("should not be probed")
	}))

	assert.Equal(t, []string{"high-absent", "fake", "low"}, reg.List())

	d := Acquire(context.Background(), Options{Registry: reg})
	defer d.Shutdown()

	assert.False(t, d.IsDebug())
	assert.Equal(t, "fake", d.Driver())
	assert.Equal(t, []string{"high-absent", "fake"}, probed)
}

func TestForceDebugSkipsDrivers(t *testing.T) {
	reg := NewRegistry()
	reg.Register("fake", 50, DriverFunc(func(context.Context) (Session, error) {
		t.Fatal("driver probed")
		return nil, nil
	}))
	d := Acquire(context.Background(), Options{Registry: reg, ForceDebug: true})
	defer d.Shutdown()
	assert.True(t, d.IsDebug())
}

func TestDebugDescriptorsDeterministic(t *testing.T) {
	d := Acquire(context.Background(), Options{ForceDebug: true})
	defer d.Shutdown()

	left, err := d.EyeRenderDescriptor(hmd.EyeLeft)
	require.NoError(t, err)
	right, err := d.EyeRenderDescriptor(hmd.EyeRight)
	require.NoError(t, err)

	assert.Equal(t, hmd.Sz(1182, 1462), left.RecommendedSize)
	assert.Equal(t, hmd.Sz(1182, 1462), right.RecommendedSize)
	assert.Equal(t, mgl64.Vec3{-0.032, 0, 0}, left.Offset)
	assert.Equal(t, mgl64.Vec3{0.032, 0, 0}, right.Offset)
	assert.Equal(t, left.FOV.LeftTan, right.FOV.RightTan, "fields of view mirror each other")
	assert.Equal(t, hmd.EyeRight, right.Eye)

	again := Acquire(context.Background(), Options{ForceDebug: true})
	defer again.Shutdown()
	size, err := again.RecommendedTargetSize(hmd.EyeLeft)
	require.NoError(t, err)
	assert.Equal(t, left.RecommendedSize, size)

	native, err := d.NativeEyeSize()
	require.NoError(t, err)
	assert.Equal(t, hmd.Sz(960, 1080), native)
}

func TestRenderScale(t *testing.T) {
	d := Acquire(context.Background(), Options{ForceDebug: true, RenderScale: 0.5})
	defer d.Shutdown()

	size, err := d.RecommendedTargetSize(hmd.EyeLeft)
	require.NoError(t, err)
	assert.Equal(t, hmd.Sz(591, 731), size)

	require.NoError(t, d.SetRenderScale(2))
	assert.Equal(t, 2.0, d.RenderScale())
	size, err = d.RecommendedTargetSize(hmd.EyeRight)
	require.NoError(t, err)
	assert.Equal(t, hmd.Sz(2364, 2924), size)

	assert.ErrorIs(t, d.SetRenderScale(0), ErrInvalidScale)
	assert.ErrorIs(t, d.SetRenderScale(10), ErrInvalidScale)
	assert.Equal(t, 2.0, d.RenderScale())

	_, err = d.EyeRenderDescriptor(hmd.Eye(7))
	assert.ErrorIs(t, err, hmd.ErrInvalidState)
}

func TestRecenterOrientation(t *testing.T) {
	d := Acquire(context.Background(), Options{ForceDebug: true})
	defer d.Shutdown()

	require.NoError(t, d.SetDebugPose(yawPose(math.Pi/6)))
	_, yaw, _, err := d.HeadRotation()
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/6, yaw, 1e-9)

	require.NoError(t, d.Recenter())
	pose, err := d.CurrentHeadPose()
	require.NoError(t, err)
	assert.InDelta(t, 1, pose.Orientation.W, 1e-9)
	assert.InDelta(t, 0, pose.Orientation.V.Len(), 1e-9)

	require.NoError(t, d.SetDebugPose(yawPose(math.Pi/6+0.2)))
	_, yaw, _, err = d.HeadRotation()
	require.NoError(t, err)
	assert.InDelta(t, 0.2, yaw, 1e-9)
}

func TestRecenterPosition(t *testing.T) {
	fake := newFakeSession()
	d := newDevice(fake, "fake", 1)
	defer d.Shutdown()

	fake.setPose(hmd.HeadPose{
		Orientation: yawPose(math.Pi / 2).Orientation,
		Position:    mgl64.Vec3{1, 1.7, 0},
		HasPosition: true,
	})
	require.NoError(t, d.Recenter())

	// Step 0.5 m along tracking -X, which is forward for the recentered
	// orientation.
	fake.setPose(hmd.HeadPose{
		Orientation: yawPose(math.Pi / 2).Orientation,
		Position:    mgl64.Vec3{0.5, 1.7, 0},
		HasPosition: true,
	})
	pose, err := d.CurrentHeadPose()
	require.NoError(t, err)
	assert.True(t, pose.HasPosition)
	assert.InDelta(t, 0, pose.Position[0], 1e-9)
	assert.InDelta(t, 0, pose.Position[1], 1e-9)
	assert.InDelta(t, -0.5, pose.Position[2], 1e-9)
}

func TestSetDebugPoseRejectedOnHardware(t *testing.T) {
	d := newDevice(newFakeSession(), "fake", 1)
	defer d.Shutdown()
	assert.ErrorIs(t, d.SetDebugPose(hmd.IdentityPose()), hmd.ErrInvalidState)
	assert.Nil(t, d.MirrorImage())
}

func TestSubmit(t *testing.T) {
	d := Acquire(context.Background(), Options{ForceDebug: true})
	defer d.Shutdown()
	l, r := newTargets(t, hmd.Sz(64, 48))

	require.NoError(t, d.Submit(context.Background(), l, r))
	require.NoError(t, d.Submit(context.Background(), l, r))
	assert.Equal(t, uint64(2), d.Submits())

	require.NoError(t, l.Bind())
	assert.ErrorIs(t, d.Submit(context.Background(), l, r), hmd.ErrInvalidState)
	require.NoError(t, l.Unbind())

	assert.ErrorIs(t, d.Submit(context.Background(), l, nil), hmd.ErrInvalidState)
	assert.Equal(t, uint64(2), d.Submits())
}

func TestSubmitPacesOnHardware(t *testing.T) {
	fake := newFakeSession()
	fake.pace = make(chan struct{})
	d := newDevice(fake, "fake", 1)
	defer d.Shutdown()
	l, r := newTargets(t, hmd.Sz(8, 8))

	done := make(chan error, 1)
	go func() { done <- d.Submit(context.Background(), l, r) }()

	select {
	case <-done:
		t.Fatal("Submit returned before the compositor accepted the frame")
	case <-time.After(20 * time.Millisecond):
	}
	fake.pace <- struct{}{}
	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), d.Submits())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Submit(ctx, l, r), context.Canceled)
}

func TestShutdown(t *testing.T) {
	fake := newFakeSession()
	d := newDevice(fake, "fake", 1)
	l, r := newTargets(t, hmd.Sz(8, 8))

	require.NoError(t, d.Shutdown())
	require.NoError(t, d.Shutdown())
	assert.Equal(t, int32(1), fake.closed.Load())

	_, err := d.CurrentHeadPose()
	assert.ErrorIs(t, err, hmd.ErrDeviceClosed)
	_, err = d.EyeRenderDescriptor(hmd.EyeLeft)
	assert.ErrorIs(t, err, hmd.ErrDeviceClosed)
	_, err = d.RecommendedTargetSize(hmd.EyeRight)
	assert.ErrorIs(t, err, hmd.ErrDeviceClosed)
	_, err = d.NativeEyeSize()
	assert.ErrorIs(t, err, hmd.ErrDeviceClosed)
	_, _, _, err = d.HeadRotation()
	assert.ErrorIs(t, err, hmd.ErrDeviceClosed)
	assert.ErrorIs(t, d.Recenter(), hmd.ErrDeviceClosed)
	assert.ErrorIs(t, d.SetRenderScale(1), hmd.ErrDeviceClosed)
	assert.ErrorIs(t, d.Submit(context.Background(), l, r), hmd.ErrDeviceClosed)
	assert.ErrorIs(t, d.SetDebugPose(hmd.IdentityPose()), hmd.ErrDeviceClosed)

	assert.Equal(t, "Fake HMD", d.Info().ProductName)
}

func TestAcquireRegistrySelection(t *testing.T) {
	fake := newFakeSession()
	Register("process-fake", 1000, DriverFunc(func(context.Context) (Session, error) {
		return fake, nil
	}))
	t.Cleanup(func() { Unregister("process-fake") })
	assert.Contains(t, List(), "process-fake")
	assert.Same(t, globalRegistry, DefaultRegistry())

	isolated := Acquire(context.Background(), Options{Registry: NewRegistry()})
	defer isolated.Shutdown()
	assert.True(t, isolated.IsDebug(), "explicit registry ignores process drivers")

	d := Acquire(context.Background(), Options{})
	defer d.Shutdown()
	assert.Equal(t, "process-fake", d.Driver())
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", 1, DriverFunc(unavailable))
	e, ok := reg.Get("a")
	require.True(t, ok)
	e.Priority = 99
	e2, _ := reg.Get("a")
	assert.Equal(t, 1, e2.Priority)

	reg.Unregister("a")
	_, ok = reg.Get("a")
	assert.False(t, ok)
}
