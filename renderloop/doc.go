// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package renderloop drives the stereo frame pipeline from the display
// refresh signal.
//
// Each refresh runs one tick: scene modifiers, avatar integration with
// the current head pose, per-eye render into that eye's frame target,
// and submission of both targets to the device. A refresh that arrives
// while a tick is still running is dropped rather than queued, so the
// frame on screen is always built from the freshest pose available.
//
// # Lifecycle
//
// A Loop is either Stopped or Running. Start subscribes to the refresh
// source and begins ticking. Stop is safe from any goroutine, including
// input handlers: it returns at once, lets an in-flight tick finish, and
// no further tick begins. Wait blocks until the loop has fully drained.
//
// # Failures
//
// A failed tick is logged and the loop carries on with the next refresh.
// After Options.FailureThreshold consecutive failures the loop stops
// itself; Done is closed and Err returns an error wrapping
// hmd.ErrSessionFailed.
package renderloop
