// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"context"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/target"
)

// eventLog records pipeline events in order.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// recordingAllocator logs backing writes as bind/unbind events.
type recordingAllocator struct {
	inner target.Allocator
	log   *eventLog
}

func (a *recordingAllocator) Allocate(label string, size hmd.Size) (target.Backing, error) {
	b, err := a.inner.Allocate(label, size)
	if err != nil {
		return nil, err
	}
	return &recordingBacking{Backing: b, label: label, log: a.log}, nil
}

type recordingBacking struct {
	target.Backing
	label string
	log   *eventLog
}

func (b *recordingBacking) BeginWrite() error {
	b.log.add("bind " + b.label)
	return b.Backing.BeginWrite()
}

func (b *recordingBacking) EndWrite() error {
	b.log.add("unbind " + b.label)
	return b.Backing.EndWrite()
}

// fakeDevice is a small in-memory headset.
type fakeDevice struct {
	mu        sync.Mutex
	size      hmd.Size
	native    hmd.Size
	pose      hmd.HeadPose
	poseErr   error
	submitErr error
	submits   int
	log       *eventLog
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{size: hmd.Sz(16, 12), native: hmd.Sz(20, 10), pose: hmd.IdentityPose()}
}

func (d *fakeDevice) CurrentHeadPose() (hmd.HeadPose, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pose, d.poseErr
}

func (d *fakeDevice) EyeRenderDescriptor(eye hmd.Eye) (hmd.EyeRenderDescriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	offset := 0.032
	if eye == hmd.EyeLeft {
		offset = -offset
	}
	return hmd.EyeRenderDescriptor{
		Eye:             eye,
		FOV:             hmd.Symmetric(1.5, 4.0/3.0),
		Offset:          mgl64.Vec3{offset, 0, 0},
		RecommendedSize: d.size,
	}, nil
}

func (d *fakeDevice) NativeEyeSize() (hmd.Size, error) {
	return d.native, nil
}

func (d *fakeDevice) Submit(_ context.Context, left, right *target.FrameTarget) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.log != nil {
		d.log.add("submit")
	}
	if d.submitErr != nil {
		return d.submitErr
	}
	if left.Bound() || right.Bound() {
		return hmd.ErrInvalidState
	}
	d.submits++
	return nil
}

func (d *fakeDevice) setSize(s hmd.Size) {
	d.mu.Lock()
	d.size = s
	d.mu.Unlock()
}

// fakeAvatar records the steps it was ticked with.
type fakeAvatar struct {
	mu    sync.Mutex
	steps []time.Duration
	pos   mgl64.Vec3
}

func (a *fakeAvatar) Tick(_ hmd.HeadPose, dt time.Duration) {
	a.mu.Lock()
	a.steps = append(a.steps, dt)
	a.mu.Unlock()
}

func (a *fakeAvatar) Head() (mgl64.Vec3, mgl64.Quat) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos, mgl64.QuatIdent()
}

func (a *fakeAvatar) recorded() []time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]time.Duration(nil), a.steps...)
}

func pixmapAlloc() target.Allocator {
	return target.NewPixmapAllocator(color.RGBA{A: 255})
}

// fireAndSettle fires one refresh and waits until the tick it started
// has finished.
func fireAndSettle(t *testing.T, l *Loop, src *ManualSource, at time.Time) {
	t.Helper()
	before := l.Stats().Ticks
	require.True(t, src.Fire(at), "refresh not delivered")
	require.Eventually(t, func() bool {
		return l.Stats().Ticks > before && !l.busy.Load()
	}, 2*time.Second, time.Millisecond)
}
