// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device is the head-mounted display abstraction: head pose,
// per-eye render geometry and frame submission.
//
// # Acquisition
//
// Hardware support comes from drivers registered by name and priority:
//
//	func init() {
//	    device.Register("vendor", 100, vendorDriver{})
//	}
//
// Register adds to the process-wide DefaultRegistry. Options.Registry
// replaces it for callers that need an isolated driver set, such as tests.
//
// Acquire opens the highest-priority driver that detects a headset. When
// none does, it returns the debug device: a software stand-in with fixed
// panel geometry and identity, so the pipeline always has a usable
// device. Acquire never fails.
//
// # Lifecycle
//
// A Device is explicitly owned. Create it once with Acquire, pass it to
// the render loop, and release it with Shutdown after the loop has
// stopped. Every method other than the identity accessors returns
// hmd.ErrDeviceClosed after Shutdown.
//
// # Pacing
//
// Submit hands both eye surfaces to the compositor. Hardware sessions
// block until the compositor accepts the frame, which paces the render
// loop to the display. The debug device returns immediately. Given a HAL
// device and queue it runs GPU eye textures through a DistortionPass;
// with mirroring on it composes a lens-distorted preview of CPU eyes.
package device
