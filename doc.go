// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package hmd renders a scene in stereo for a head-mounted display.
//
// # Overview
//
// Each display refresh the render loop reads the tracked head pose, moves
// the avatar, renders the scene once per eye into an offscreen frame
// target and hands both targets to the headset compositor. Without a
// headset a debug device with fixed optics stands in, so the whole
// pipeline always runs.
//
// # Quick Start
//
//	dev := device.Acquire(ctx, device.Options{})
//	defer dev.Shutdown()
//
//	av := avatar.New(avatar.DefaultSettings())
//	router := input.NewRouter()
//	avatar.BindControls(router, av, func() { _ = dev.Recenter() })
//
//	loop, err := renderloop.New(dev, av, scene.NewChessboard(),
//	    target.NewPixmapAllocator(color.RGBA{A: 255}),
//	    renderloop.NewTickerSource(dev.Info().RefreshRate), renderloop.Options{})
//	if err != nil {
//	    return err
//	}
//	defer loop.Close()
//	err = loop.Start(ctx)
//
// # Architecture
//
// The module is organized into:
//   - hmd: shared types (Eye, Size, HeadPose, Camera), errors and logging
//   - target: per-eye frame targets on CPU pixmaps or wgpu HAL textures
//   - device: headset drivers, the debug device and lens distortion
//   - avatar: locomotion and head pose fusion
//   - input: event rules and the dispatching router
//   - scene: the renderer contract and a chessboard floor
//   - renderloop: the display-synchronized tick
//   - config: YAML and environment configuration
//
// # Coordinate System
//
// World space is right-handed, in meters:
//   - +Y up, the floor is y = 0
//   - an unrotated head looks down -Z
//   - positive yaw turns left (counter-clockwise seen from above)
//
// Target pixel coordinates have their origin at the top-left.
//
// # Threading
//
// Ticks run on the render loop's goroutine. Input dispatch runs on the
// host's event goroutine and only writes the avatar's pending input;
// body and head transforms are written only by the tick.
package hmd
