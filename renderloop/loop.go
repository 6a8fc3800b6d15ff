// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/scene"
	"github.com/gogpu/hmd/target"
)

// Defaults for Options.
const (
	DefaultRefreshRate      = 75.0
	DefaultFailureThreshold = 3
	DefaultMaxStep          = 250 * time.Millisecond
)

// State is the lifecycle state of a Loop.
type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Device is the part of the headset the loop drives.
type Device interface {
	CurrentHeadPose() (hmd.HeadPose, error)
	EyeRenderDescriptor(eye hmd.Eye) (hmd.EyeRenderDescriptor, error)
	NativeEyeSize() (hmd.Size, error)
	Submit(ctx context.Context, left, right *target.FrameTarget) error
}

// Avatar is the body whose head the cameras follow.
type Avatar interface {
	Tick(pose hmd.HeadPose, dt time.Duration)
	Head() (mgl64.Vec3, mgl64.Quat)
}

// Options configure a Loop.
type Options struct {
	// FixedStep is the simulation step passed to the avatar. Zero
	// measures the time between refresh signals instead.
	FixedStep time.Duration

	// NominalStep is used for the first measured tick. Zero means one
	// period at DefaultRefreshRate.
	NominalStep time.Duration

	// MaxStep caps measured steps after stalls. Zero means
	// DefaultMaxStep.
	MaxStep time.Duration

	// FailureThreshold is the number of consecutive failed ticks that
	// stops the loop. Zero means DefaultFailureThreshold.
	FailureThreshold int

	// Near and Far are the clip planes. Zero means hmd.DefaultNear and
	// hmd.DefaultFar.
	Near, Far float64

	// UseNativeResolution sizes eye targets to the panel instead of the
	// device's recommendation.
	UseNativeResolution bool

	// LockOSThread pins the tick goroutine to one OS thread, as some
	// graphics drivers require.
	LockOSThread bool

	// TracerProvider receives tick spans. Nil uses the global provider.
	TracerProvider trace.TracerProvider
}

func (o *Options) applyDefaults() {
	if o.NominalStep <= 0 {
		o.NominalStep = time.Second / DefaultRefreshRate
	}
	if o.MaxStep <= 0 {
		o.MaxStep = DefaultMaxStep
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = DefaultFailureThreshold
	}
	if o.Near <= 0 {
		o.Near = hmd.DefaultNear
	}
	if o.Far <= o.Near {
		o.Far = hmd.DefaultFar
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
}

// run is one Start..Stop cycle.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Loop is the display-synchronized stereo render loop.
type Loop struct {
	dev    Device
	avatar Avatar
	scene  scene.Renderer
	source Source
	opts   Options
	tracer trace.Tracer

	targets [hmd.EyeCount]*target.FrameTarget

	mu     sync.Mutex
	state  State
	cur    *run
	closed bool

	// busy is set while a tick is in flight.
	busy   atomic.Bool
	native atomic.Bool
	stats  counters

	modMu     sync.RWMutex
	modifiers []func(time.Time)

	camMu   sync.RWMutex
	cams    [hmd.EyeCount]hmd.Camera
	haveCam [hmd.EyeCount]bool

	// Owned by the tick goroutine.
	lastRefresh time.Time
	failures    int
}

// New creates a stopped loop and allocates both eye targets at their
// initial size.
func New(dev Device, av Avatar, sc scene.Renderer, alloc target.Allocator, src Source, opts Options) (*Loop, error) {
	if dev == nil || av == nil || sc == nil || src == nil {
		return nil, fmt.Errorf("renderloop: %w: missing collaborator", hmd.ErrInvalidState)
	}
	opts.applyDefaults()
	l := &Loop{
		dev:    dev,
		avatar: av,
		scene:  sc,
		source: src,
		opts:   opts,
		tracer: opts.TracerProvider.Tracer("github.com/gogpu/hmd/renderloop"),
	}
	l.native.Store(opts.UseNativeResolution)

	for _, eye := range hmd.Eyes {
		size, err := l.targetSize(eye)
		if err != nil {
			l.destroyTargets()
			return nil, err
		}
		t, err := target.New(alloc, eye.String()+"_eye", size)
		if err != nil {
			l.destroyTargets()
			return nil, fmt.Errorf("renderloop: %w", err)
		}
		l.targets[eye] = t
	}
	hmd.Logger().Debug("renderloop: targets created",
		"left", l.targets[hmd.EyeLeft].Size().String(),
		"right", l.targets[hmd.EyeRight].Size().String())
	return l, nil
}

// targetSize is the size eye's target should have for the next tick.
func (l *Loop) targetSize(eye hmd.Eye) (hmd.Size, error) {
	if l.native.Load() {
		return l.dev.NativeEyeSize()
	}
	desc, err := l.dev.EyeRenderDescriptor(eye)
	if err != nil {
		return hmd.Size{}, err
	}
	return desc.RecommendedSize, nil
}

// Target returns eye's frame target.
func (l *Loop) Target(eye hmd.Eye) *target.FrameTarget {
	if !eye.Valid() {
		return nil
	}
	return l.targets[eye]
}

// State returns the lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// SetUseNativeResolution switches between panel-native and recommended
// eye target sizes. Targets are resized at the next tick boundary.
func (l *Loop) SetUseNativeResolution(native bool) {
	l.native.Store(native)
}

// UseNativeResolution reports the current sizing mode.
func (l *Loop) UseNativeResolution() bool {
	return l.native.Load()
}

// RegisterSceneModifier adds fn to the callbacks run at the start of
// every tick with the refresh timestamp, before the avatar moves.
func (l *Loop) RegisterSceneModifier(fn func(time.Time)) {
	if fn == nil {
		return
	}
	l.modMu.Lock()
	l.modifiers = append(l.modifiers, fn)
	l.modMu.Unlock()
}

// Start begins ticking on refresh signals. It waits for a previous run
// to drain first. Starting a running loop is a no-op. Cancelling ctx
// stops the loop as Stop does.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return fmt.Errorf("renderloop: start: %w: loop closed", hmd.ErrInvalidState)
	}
	if l.state == Running {
		l.mu.Unlock()
		return nil
	}
	prev := l.cur
	l.mu.Unlock()

	if prev != nil {
		<-prev.done
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Running || l.closed {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}
	ticks, unsubscribe := l.source.Subscribe()
	work := make(chan time.Time, 1)

	l.cur = r
	l.state = Running
	l.failures = 0
	l.lastRefresh = time.Time{}
	l.busy.Store(false)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.receive(runCtx, ticks, work)
	}()
	go func() {
		defer wg.Done()
		l.work(runCtx, r, work)
	}()
	go func() {
		wg.Wait()
		unsubscribe()
		// A cancelled parent context ends the run without Stop.
		l.mu.Lock()
		if l.cur == r && l.state == Running {
			l.state = Stopped
			hmd.Logger().Info("renderloop: stopped", "ticks", l.stats.ticks.Load(), "cause", context.Cause(runCtx))
		}
		l.mu.Unlock()
		close(r.done)
	}()

	hmd.Logger().Info("renderloop: started")
	return nil
}

// Stop ends ticking. It is idempotent and safe from any goroutine; an
// in-flight tick completes, and no further tick begins.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Loop) stopLocked() {
	if l.state != Running {
		return
	}
	l.state = Stopped
	l.cur.cancel()
	hmd.Logger().Info("renderloop: stopped", "ticks", l.stats.ticks.Load())
}

// Wait blocks until the current or last run has fully drained.
func (l *Loop) Wait() {
	<-l.Done()
}

// Done returns a channel closed when the current run has drained. For a
// loop never started it is already closed.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return l.cur.done
}

// Err returns the fatal error that stopped the last run, or nil if it
// was stopped with Stop.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur == nil {
		return nil
	}
	return l.cur.err
}

// Close stops the loop, waits for it to drain and releases both eye
// targets. The loop cannot be restarted.
func (l *Loop) Close() {
	l.mu.Lock()
	l.stopLocked()
	l.closed = true
	l.mu.Unlock()
	l.Wait()
	l.destroyTargets()
}

func (l *Loop) destroyTargets() {
	for i, t := range l.targets {
		if t != nil {
			t.Destroy()
			l.targets[i] = nil
		}
	}
}

// receive forwards refresh signals to the tick goroutine, dropping those
// that arrive while a tick is in flight.
func (l *Loop) receive(ctx context.Context, ticks <-chan time.Time, work chan<- time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ticks:
			if !ok {
				return
			}
			if !l.busy.CompareAndSwap(false, true) {
				n := l.stats.dropped.Add(1)
				hmd.Logger().Debug("renderloop: refresh dropped", "dropped", n)
				continue
			}
			work <- t
		}
	}
}

func (l *Loop) work(ctx context.Context, r *run, work <-chan time.Time) {
	if l.opts.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	// Ticks run to completion even when the run is cancelled mid-tick.
	tickCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-work:
			if ctx.Err() != nil {
				l.busy.Store(false)
				return
			}
			err := l.tick(tickCtx, t)
			l.busy.Store(false)
			if err != nil && l.recordFailure(r, err) {
				return
			}
			if err == nil {
				l.failures = 0
			}
		}
	}
}

// recordFailure logs a failed tick and reports whether the failure
// escalated to stopping the run.
func (l *Loop) recordFailure(r *run, err error) bool {
	l.failures++
	l.stats.failures.Add(1)
	if l.failures < l.opts.FailureThreshold {
		hmd.Logger().Warn("renderloop: tick failed", "consecutive", l.failures, "err", err)
		return false
	}

	fatal := fmt.Errorf("%w: %d consecutive tick failures: %w", hmd.ErrSessionFailed, l.failures, err)
	hmd.Logger().Error("renderloop: session failed", "err", fatal)

	l.mu.Lock()
	r.err = fatal
	if l.cur == r {
		l.stopLocked()
	}
	l.mu.Unlock()
	return true
}
