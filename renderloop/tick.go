// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/target"
)

// Span names emitted per tick.
const (
	spanTick   = "renderloop.tick"
	spanEye    = "renderloop.eye"
	spanSubmit = "renderloop.submit"
)

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// tick runs one frame. now is the refresh timestamp.
func (l *Loop) tick(ctx context.Context, now time.Time) (err error) {
	start := time.Now()
	n := l.stats.ticks.Add(1)
	ctx, span := l.tracer.Start(ctx, spanTick, trace.WithAttributes(attribute.Int64("hmd.tick", int64(n))))
	defer func() {
		endSpan(span, err)
		l.stats.lastTick.Store(int64(time.Since(start)))
	}()

	if err := l.runModifiers(now); err != nil {
		return err
	}

	pose, err := l.dev.CurrentHeadPose()
	if err != nil {
		return fmt.Errorf("renderloop: head pose: %w", err)
	}
	l.avatar.Tick(pose, l.step(now))
	headPos, headOrient := l.avatar.Head()

	// Descriptors are fetched fresh every frame; resizing happens here,
	// before either eye is bound.
	var descs [hmd.EyeCount]hmd.EyeRenderDescriptor
	for _, eye := range hmd.Eyes {
		desc, err := l.dev.EyeRenderDescriptor(eye)
		if err != nil {
			return fmt.Errorf("renderloop: %s eye descriptor: %w", eye, err)
		}
		descs[eye] = desc
		if err := l.resize(eye, desc); err != nil {
			return err
		}
	}

	for _, eye := range hmd.Eyes {
		if err := l.renderEye(ctx, eye, descs[eye], headPos, headOrient); err != nil {
			return err
		}
	}

	_, sspan := l.tracer.Start(ctx, spanSubmit)
	err = l.dev.Submit(ctx, l.targets[hmd.EyeLeft], l.targets[hmd.EyeRight])
	endSpan(sspan, err)
	if err != nil {
		return fmt.Errorf("renderloop: submit: %w", err)
	}
	l.stats.submits.Add(1)
	return nil
}

func (l *Loop) runModifiers(now time.Time) error {
	l.modMu.RLock()
	mods := l.modifiers
	l.modMu.RUnlock()
	for i, fn := range mods {
		if err := runModifier(fn, now); err != nil {
			return fmt.Errorf("renderloop: scene modifier %d: %w", i, err)
		}
	}
	return nil
}

func runModifier(fn func(time.Time), now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panicked: %v", r)
		}
	}()
	fn(now)
	return nil
}

// step returns the avatar integration step for a refresh at now.
func (l *Loop) step(now time.Time) time.Duration {
	prev := l.lastRefresh
	l.lastRefresh = now
	if l.opts.FixedStep > 0 {
		return l.opts.FixedStep
	}
	if prev.IsZero() {
		return l.opts.NominalStep
	}
	dt := now.Sub(prev)
	if dt < 0 {
		return 0
	}
	return min(dt, l.opts.MaxStep)
}

func (l *Loop) resize(eye hmd.Eye, desc hmd.EyeRenderDescriptor) error {
	size := desc.RecommendedSize
	if l.native.Load() {
		var err error
		if size, err = l.dev.NativeEyeSize(); err != nil {
			return fmt.Errorf("renderloop: native size: %w", err)
		}
	}
	t := l.targets[eye]
	if t.Size() == size {
		return nil
	}
	old := t.Size()
	if err := t.Resize(size); err != nil {
		return fmt.Errorf("renderloop: resize %s eye: %w", eye, err)
	}
	l.stats.resizes.Add(1)
	hmd.Logger().Debug("renderloop: eye target resized", "eye", eye.String(), "from", old.String(), "to", size.String())
	return nil
}

// renderEye binds eye's target, renders the scene into it and always
// unbinds, even when the renderer fails or panics.
func (l *Loop) renderEye(ctx context.Context, eye hmd.Eye, desc hmd.EyeRenderDescriptor, headPos mgl64.Vec3, headOrient mgl64.Quat) (err error) {
	ctx, span := l.tracer.Start(ctx, spanEye, trace.WithAttributes(attribute.String("hmd.eye", eye.String())))
	defer func() { endSpan(span, err) }()

	t := l.targets[eye]
	if err := t.Bind(); err != nil {
		return fmt.Errorf("renderloop: bind %s eye: %w", eye, err)
	}
	cam := hmd.NewCamera(headPos, headOrient, desc, t.Size(), l.opts.Near, l.opts.Far)
	rerr := l.render(ctx, cam, t)
	uerr := t.Unbind()
	if err := errors.Join(rerr, uerr); err != nil {
		return fmt.Errorf("renderloop: %s eye: %w", eye, err)
	}

	l.camMu.Lock()
	l.cams[eye] = cam
	l.haveCam[eye] = true
	l.camMu.Unlock()
	return nil
}

func (l *Loop) render(ctx context.Context, cam hmd.Camera, t *target.FrameTarget) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scene renderer panicked: %v", r)
		}
	}()
	return l.scene.Render(ctx, cam, t.Surface())
}
