// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gogpu/gg"
	"github.com/spf13/cobra"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/avatar"
	"github.com/gogpu/hmd/device"
	"github.com/gogpu/hmd/input"
	"github.com/gogpu/hmd/internal/telemetry"
	"github.com/gogpu/hmd/renderloop"
	"github.com/gogpu/hmd/scene"
	"github.com/gogpu/hmd/target"
)

type runOptions struct {
	*rootOptions
	ticks   uint64
	capture string
	mirror  string
	walk    bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the render loop",
		Long: `Run the render loop until interrupted or until --ticks frames have
been rendered.

Example:
  hmdview run --ticks 300 --capture frame.png
  HMD_DEVICE_RENDER_SCALE=0.5 hmdview run -v --walk`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runViewer(cmd, opts)
		},
	}
	cmd.Flags().Uint64Var(&opts.ticks, "ticks", 0, "stop after this many frames (0 runs until interrupted)")
	cmd.Flags().StringVar(&opts.capture, "capture", "", "write a side-by-side PNG of both eyes on exit")
	cmd.Flags().StringVar(&opts.mirror, "mirror", "", "write the debug compositor mirror PNG on exit")
	cmd.Flags().BoolVar(&opts.walk, "walk", false, "hold the forward key for the whole run")
	return cmd
}

func runViewer(cmd *cobra.Command, opts *runOptions) (err error) {
	cfg, err := opts.setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	log := hmd.Logger()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		if serr := shutdownTracing(context.Background()); serr != nil {
			log.Warn("hmdview: trace flush failed", "err", serr)
		}
	}()

	devOpts := cfg.DeviceOptions()
	if opts.mirror != "" {
		devOpts.Mirror = true
	}
	dev := device.Acquire(ctx, devOpts)
	// The loop is closed before the device is shut down.
	defer func() { err = errors.Join(err, dev.Shutdown()) }()

	av := avatar.New(cfg.AvatarSettings())
	router := input.NewRouter()
	avatar.BindControls(router, av, func() {
		if rerr := dev.Recenter(); rerr != nil {
			log.Warn("hmdview: recenter failed", "err", rerr)
		}
	})

	board := scene.NewChessboard()
	board.TileSize = cfg.Scene.TileSize
	board.Extent = cfg.Scene.Extent
	board.Sky = cfg.SkyColor()
	defer board.Close()

	loop, err := renderloop.New(dev, av, board, target.NewPixmapAllocator(toRGBA8(board.Sky)),
		renderloop.NewTickerSource(cfg.Loop.RefreshRate), cfg.LoopOptions())
	if err != nil {
		return err
	}
	defer loop.Close()

	if opts.ticks > 0 {
		var seen atomic.Uint64
		loop.RegisterSceneModifier(func(time.Time) {
			if seen.Add(1) == opts.ticks {
				loop.Stop()
			}
		})
	}

	if opts.walk {
		router.Dispatch(input.Event{Category: input.KeyDown, Key: input.KeyW, Time: time.Now()})
	}

	start := time.Now()
	if err := loop.Start(ctx); err != nil {
		return err
	}
	select {
	case <-loop.Done():
	case <-ctx.Done():
		log.Info("hmdview: interrupted")
		loop.Stop()
	}
	loop.Wait()
	if opts.walk {
		router.Dispatch(input.Event{Category: input.KeyUp, Key: input.KeyW, Time: time.Now()})
	}
	if err := loop.Err(); err != nil {
		return err
	}

	printSummary(cmd, loop.Stats(), time.Since(start), av)

	if opts.capture != "" {
		img, err := loop.Capture()
		if err != nil {
			return err
		}
		if err := savePNG(img, opts.capture); err != nil {
			return err
		}
		log.Info("hmdview: capture written", "path", opts.capture, "size", img.Bounds().Size().String())
	}
	if opts.mirror != "" {
		img := dev.MirrorImage()
		if img == nil {
			return fmt.Errorf("hmdview: mirror: no frame composed (driver %s)", dev.Driver())
		}
		if err := savePNG(img, opts.mirror); err != nil {
			return err
		}
		log.Info("hmdview: mirror written", "path", opts.mirror)
	}
	return nil
}

func printSummary(cmd *cobra.Command, s renderloop.Stats, elapsed time.Duration, av *avatar.Avatar) {
	w := cmd.OutOrStdout()
	pos := av.Position()
	fmt.Fprintf(w, "frames:   %d submitted, %d ticks, %d dropped, %d failed\n", s.Submits, s.Ticks, s.Dropped, s.Failures)
	fmt.Fprintf(w, "elapsed:  %s (last tick %s)\n", elapsed.Round(time.Millisecond), s.LastTick.Round(time.Microsecond))
	fmt.Fprintf(w, "position: %.3f %.3f %.3f yaw %.3f\n", pos[0], pos[1], pos[2], av.Yaw())
}

func savePNG(img *image.RGBA, path string) error {
	if err := gg.FromImage(img).SavePNG(path); err != nil {
		return fmt.Errorf("hmdview: write %s: %w", path, err)
	}
	return nil
}

func toRGBA8(c gg.RGBA) color.RGBA {
	r, g, b, a := c.Color().RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
