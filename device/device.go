// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/target"
)

// Render scale limits accepted by SetRenderScale.
const (
	MinRenderScale = 0.25
	MaxRenderScale = 4.0
)

// ErrInvalidScale is returned for render scales outside
// [MinRenderScale, MaxRenderScale].
var ErrInvalidScale = errors.New("device: render scale out of range")

// Options configure Acquire.
type Options struct {
	// Registry to probe. Nil uses DefaultRegistry, which holds every
	// driver registered in the process.
	Registry *Registry

	// ForceDebug skips driver probing.
	ForceDebug bool

	// RenderScale multiplies recommended target sizes. Zero means 1.
	RenderScale float64

	// Mirror enables the debug device's distorted preview image.
	Mirror bool

	// MirrorSize is the preview size. Zero means half the panel.
	MirrorSize hmd.Size

	// HALDevice and HALQueue, if set, let the debug device composite
	// texture surfaces through the lens distortion pass.
	HALDevice hal.Device
	HALQueue  hal.Queue
}

// Device is an acquired headset or the debug stand-in.
type Device struct {
	session Session
	info    Info
	driver  string
	id      uuid.UUID
	log     *slog.Logger

	closed  atomic.Bool
	submits atomic.Uint64

	mu sync.Mutex

	// ref is the tracking-space pose that Recenter made the origin.
	refOrient mgl64.Quat
	refPos    mgl64.Vec3

	scale     float64
	descs     [hmd.EyeCount]hmd.EyeRenderDescriptor
	descScale float64
}

// Acquire opens the best available headset, falling back to the debug
// device when no driver finds one. It always returns a usable device.
func Acquire(ctx context.Context, opts Options) *Device {
	scale := opts.RenderScale
	if scale == 0 {
		scale = 1
	}
	if scale < MinRenderScale || scale > MaxRenderScale {
		hmd.Logger().Warn("device: render scale out of range, using 1", "scale", scale)
		scale = 1
	}

	var (
		session Session
		name    string
		err     error
	)
	if !opts.ForceDebug {
		reg := opts.Registry
		if reg == nil {
			reg = DefaultRegistry()
		}
		session, name, err = reg.Open(ctx)
		if err != nil {
			hmd.Logger().Warn("device: falling back to debug device", "err", err)
		}
	}
	if session == nil {
		ds, derr := newDebugSession(opts)
		if derr != nil {
			hmd.Logger().Warn("device: debug GPU resources unavailable", "err", derr)
			opts.HALDevice = nil
			ds, _ = newDebugSession(opts)
		}
		session, name = ds, "debug"
	}
	return newDevice(session, name, scale)
}

func newDevice(session Session, driver string, scale float64) *Device {
	id := uuid.New()
	info := session.Info()
	d := &Device{
		session:   session,
		info:      info,
		driver:    driver,
		id:        id,
		log:       hmd.Logger().With("hmd_session", id.String()),
		refOrient: mgl64.QuatIdent(),
		scale:     scale,
	}
	d.log.Info("device: acquired",
		"driver", driver,
		"product", info.ProductName,
		"serial", info.Serial,
		"resolution", info.Resolution.String(),
		"debug", info.Debug)
	return d
}

// Info returns the hardware description. It stays valid after Shutdown.
func (d *Device) Info() Info {
	return d.info
}

// IsDebug reports whether d is the debug stand-in.
func (d *Device) IsDebug() bool {
	return d.info.Debug
}

// Driver returns the name of the driver that opened the session.
func (d *Device) Driver() string {
	return d.driver
}

// SessionID identifies this acquisition in logs and traces.
func (d *Device) SessionID() uuid.UUID {
	return d.id
}

func (d *Device) checkOpen(op string) error {
	if d.closed.Load() {
		return fmt.Errorf("device: %s: %w", op, hmd.ErrDeviceClosed)
	}
	return nil
}

// CurrentHeadPose returns the latest tracked pose relative to the
// recentered reference. Stale readings are returned as is.
func (d *Device) CurrentHeadPose() (hmd.HeadPose, error) {
	if err := d.checkOpen("head pose"); err != nil {
		return hmd.HeadPose{}, err
	}
	raw := d.session.Pose()

	d.mu.Lock()
	inv := d.refOrient.Conjugate()
	refPos := d.refPos
	d.mu.Unlock()

	pose := hmd.HeadPose{
		Orientation: inv.Mul(raw.Orientation.Normalize()).Normalize(),
		HasPosition: raw.HasPosition,
	}
	if raw.HasPosition {
		pose.Position = inv.Rotate(raw.Position.Sub(refPos))
	}
	return pose, nil
}

// HeadRotation returns the current pose as pitch, yaw and roll in radians.
func (d *Device) HeadRotation() (pitch, yaw, roll float64, err error) {
	pose, err := d.CurrentHeadPose()
	if err != nil {
		return 0, 0, 0, err
	}
	pitch, yaw, roll = hmd.EulerAngles(pose.Orientation)
	return pitch, yaw, roll, nil
}

// Recenter makes the current tracked orientation and position the
// reference, so the next pose reads as identity at the origin.
func (d *Device) Recenter() error {
	if err := d.checkOpen("recenter"); err != nil {
		return err
	}
	raw := d.session.Pose()
	d.mu.Lock()
	d.refOrient = raw.Orientation.Normalize()
	d.refPos = raw.Position
	d.mu.Unlock()
	d.log.Debug("device: recentered")
	return nil
}

// SetRenderScale changes the render-quality multiplier. Descriptors and
// recommended sizes reflect it from the next query on.
func (d *Device) SetRenderScale(scale float64) error {
	if err := d.checkOpen("set render scale"); err != nil {
		return err
	}
	if scale < MinRenderScale || scale > MaxRenderScale {
		return fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}
	d.mu.Lock()
	d.scale = scale
	d.mu.Unlock()
	return nil
}

// RenderScale returns the current render-quality multiplier.
func (d *Device) RenderScale() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scale
}

// EyeRenderDescriptor returns the render geometry for eye, recomputed
// when the render scale changed since the previous query.
func (d *Device) EyeRenderDescriptor(eye hmd.Eye) (hmd.EyeRenderDescriptor, error) {
	if err := d.checkOpen("eye descriptor"); err != nil {
		return hmd.EyeRenderDescriptor{}, err
	}
	if !eye.Valid() {
		return hmd.EyeRenderDescriptor{}, fmt.Errorf("device: eye descriptor: %w: %v", hmd.ErrInvalidState, eye)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.descScale != d.scale {
		for _, e := range hmd.Eyes {
			d.descs[e] = d.info.Descriptor(e, d.scale)
		}
		d.descScale = d.scale
		d.log.Debug("device: eye descriptors recomputed",
			"scale", d.scale, "size", d.descs[hmd.EyeLeft].RecommendedSize.String())
	}
	return d.descs[eye], nil
}

// RecommendedTargetSize returns the suggested eye target size at the
// current render scale.
func (d *Device) RecommendedTargetSize(eye hmd.Eye) (hmd.Size, error) {
	desc, err := d.EyeRenderDescriptor(eye)
	if err != nil {
		return hmd.Size{}, err
	}
	return desc.RecommendedSize, nil
}

// NativeEyeSize returns one eye's share of the physical panel.
func (d *Device) NativeEyeSize() (hmd.Size, error) {
	if err := d.checkOpen("native eye size"); err != nil {
		return hmd.Size{}, err
	}
	return d.info.NativeEyeSize(), nil
}

// Submit hands both eye targets to the compositor. On hardware it blocks
// until the compositor accepts the frame; the debug device returns at
// once. Both targets must be unbound.
func (d *Device) Submit(ctx context.Context, left, right *target.FrameTarget) error {
	if err := d.checkOpen("submit"); err != nil {
		return err
	}
	for _, t := range [...]*target.FrameTarget{left, right} {
		if t == nil || t.Surface() == nil {
			return fmt.Errorf("device: submit: %w: missing eye target", hmd.ErrInvalidState)
		}
		if t.Bound() {
			return fmt.Errorf("device: submit: %w: %s is still bound", hmd.ErrInvalidState, t.Label())
		}
	}
	if err := d.session.Submit(ctx, left.Surface(), right.Surface()); err != nil {
		return fmt.Errorf("device: submit: %w", err)
	}
	d.submits.Add(1)
	return nil
}

// Submits returns the number of frames accepted by the compositor.
func (d *Device) Submits() uint64 {
	return d.submits.Load()
}

// SetDebugPose sets the pose reported by the debug device. It returns
// hmd.ErrInvalidState for hardware sessions.
func (d *Device) SetDebugPose(pose hmd.HeadPose) error {
	if err := d.checkOpen("set debug pose"); err != nil {
		return err
	}
	ds, ok := d.session.(*debugSession)
	if !ok {
		return fmt.Errorf("device: set debug pose: %w: not a debug device", hmd.ErrInvalidState)
	}
	ds.setPose(pose)
	return nil
}

// MirrorImage returns the latest distorted preview composed by the debug
// device, or nil when mirroring is off or nothing was submitted yet.
func (d *Device) MirrorImage() *image.RGBA {
	ds, ok := d.session.(*debugSession)
	if !ok || ds.mirror == nil {
		return nil
	}
	return ds.mirror.Latest()
}

// Shutdown releases the session. It must be called after the render loop
// has stopped. Later calls are no-ops.
func (d *Device) Shutdown() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := d.session.Close()
	d.log.Info("device: shut down", "submits", d.submits.Load())
	if err != nil {
		return fmt.Errorf("device: shutdown: %w", err)
	}
	return nil
}
