// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads viewer settings from an optional YAML file and
// HMD_* environment variables. Environment values win over the file, and
// the file wins over Default.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gogpu/gg"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/avatar"
	"github.com/gogpu/hmd/device"
	"github.com/gogpu/hmd/renderloop"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HMD_"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete viewer configuration.
type Config struct {
	Device    DeviceConfig    `yaml:"device"    envPrefix:"DEVICE_"`
	Avatar    AvatarConfig    `yaml:"avatar"    envPrefix:"AVATAR_"`
	Loop      LoopConfig      `yaml:"loop"      envPrefix:"LOOP_"`
	Scene     SceneConfig     `yaml:"scene"     envPrefix:"SCENE_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"OTEL_"`
}

// DeviceConfig selects and tunes the headset.
type DeviceConfig struct {
	ForceDebug  bool    `yaml:"force_debug"  env:"FORCE_DEBUG"`
	RenderScale float64 `yaml:"render_scale" env:"RENDER_SCALE"`
	Mirror      bool    `yaml:"mirror"       env:"MIRROR"`
}

// AvatarConfig holds locomotion speeds and body proportions.
type AvatarConfig struct {
	WalkSpeed   float64 `yaml:"walk_speed"    env:"WALK_SPEED"`
	RunSpeed    float64 `yaml:"run_speed"     env:"RUN_SPEED"`
	TurnSpeed   float64 `yaml:"turn_speed"    env:"TURN_SPEED"` // radians per second
	EyeHeight   float64 `yaml:"eye_height"    env:"EYE_HEIGHT"`
	PivotToEyes float64 `yaml:"pivot_to_eyes" env:"PIVOT_TO_EYES"`
}

// LoopConfig tunes frame pacing and projection.
type LoopConfig struct {
	RefreshRate         float64       `yaml:"refresh_rate"          env:"REFRESH_RATE"`
	FixedStep           time.Duration `yaml:"fixed_step"            env:"FIXED_STEP"`
	FailureThreshold    int           `yaml:"failure_threshold"     env:"FAILURE_THRESHOLD"`
	UseNativeResolution bool          `yaml:"use_native_resolution" env:"USE_NATIVE_RESOLUTION"`
	LockOSThread        bool          `yaml:"lock_os_thread"        env:"LOCK_OS_THREAD"`
	Near                float64       `yaml:"near"                  env:"NEAR"`
	Far                 float64       `yaml:"far"                   env:"FAR"`
}

// SceneConfig styles the chessboard scene.
type SceneConfig struct {
	TileSize float64 `yaml:"tile_size" env:"TILE_SIZE"`
	Extent   int     `yaml:"extent"    env:"EXTENT"`
	// ClearColor is a hex sky color such as "#73a6e6".
	ClearColor string `yaml:"clear_color" env:"CLEAR_COLOR"`
}

// TelemetryConfig enables trace export. An empty Endpoint disables it.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"     env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Default returns the built-in configuration.
func Default() Config {
	s := avatar.DefaultSettings()
	return Config{
		Device: DeviceConfig{RenderScale: 1},
		Avatar: AvatarConfig{
			WalkSpeed:   s.WalkSpeed,
			RunSpeed:    s.RunSpeed,
			TurnSpeed:   s.TurnSpeed,
			EyeHeight:   s.EyeHeight,
			PivotToEyes: s.PivotToEyes,
		},
		Loop: LoopConfig{
			RefreshRate:      renderloop.DefaultRefreshRate,
			FailureThreshold: renderloop.DefaultFailureThreshold,
			Near:             hmd.DefaultNear,
			Far:              hmd.DefaultFar,
		},
		Scene: SceneConfig{
			TileSize:   1,
			Extent:     20,
			ClearColor: "#73a6e6",
		},
		Telemetry: TelemetryConfig{ServiceName: "hmdview"},
	}
}

// Load builds a Config from Default, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}

	rs := c.Device.RenderScale
	if !(rs >= device.MinRenderScale && rs <= device.MaxRenderScale) {
		errs = append(errs, fmt.Errorf("device.render_scale must be in [%v, %v], got %v",
			device.MinRenderScale, device.MaxRenderScale, rs))
	}
	positive("avatar.walk_speed", c.Avatar.WalkSpeed)
	positive("avatar.run_speed", c.Avatar.RunSpeed)
	positive("avatar.turn_speed", c.Avatar.TurnSpeed)
	if c.Avatar.EyeHeight < 0 {
		errs = append(errs, fmt.Errorf("avatar.eye_height must not be negative, got %v", c.Avatar.EyeHeight))
	}
	positive("loop.refresh_rate", c.Loop.RefreshRate)
	if c.Loop.FixedStep < 0 {
		errs = append(errs, fmt.Errorf("loop.fixed_step must not be negative, got %v", c.Loop.FixedStep))
	}
	if c.Loop.FailureThreshold < 1 {
		errs = append(errs, fmt.Errorf("loop.failure_threshold must be at least 1, got %d", c.Loop.FailureThreshold))
	}
	positive("loop.near", c.Loop.Near)
	if !(c.Loop.Far > c.Loop.Near) {
		errs = append(errs, fmt.Errorf("loop.far (%v) must exceed loop.near (%v)", c.Loop.Far, c.Loop.Near))
	}
	positive("scene.tile_size", c.Scene.TileSize)
	if c.Scene.Extent < 1 {
		errs = append(errs, fmt.Errorf("scene.extent must be at least 1, got %d", c.Scene.Extent))
	}
	if _, err := parseHex(c.Scene.ClearColor); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// AvatarSettings converts the avatar section.
func (c Config) AvatarSettings() avatar.Settings {
	return avatar.Settings{
		WalkSpeed:   c.Avatar.WalkSpeed,
		RunSpeed:    c.Avatar.RunSpeed,
		TurnSpeed:   c.Avatar.TurnSpeed,
		EyeHeight:   c.Avatar.EyeHeight,
		PivotToEyes: c.Avatar.PivotToEyes,
	}
}

// DeviceOptions converts the device section.
func (c Config) DeviceOptions() device.Options {
	return device.Options{
		ForceDebug:  c.Device.ForceDebug,
		RenderScale: c.Device.RenderScale,
		Mirror:      c.Device.Mirror,
	}
}

// LoopOptions converts the loop section.
func (c Config) LoopOptions() renderloop.Options {
	return renderloop.Options{
		FixedStep:           c.Loop.FixedStep,
		FailureThreshold:    c.Loop.FailureThreshold,
		UseNativeResolution: c.Loop.UseNativeResolution,
		LockOSThread:        c.Loop.LockOSThread,
		Near:                c.Loop.Near,
		Far:                 c.Loop.Far,
	}
}

// SkyColor returns the parsed clear color. It falls back to black for a
// color Validate would reject.
func (c Config) SkyColor() gg.RGBA {
	col, err := parseHex(c.Scene.ClearColor)
	if err != nil {
		return gg.Black
	}
	return col
}

func parseHex(s string) (gg.RGBA, error) {
	h := s
	if h != "" && h[0] == '#' {
		h = h[1:]
	}
	switch len(h) {
	case 3, 4, 6, 8:
	default:
		return gg.RGBA{}, fmt.Errorf("scene.clear_color %q is not a hex color", s)
	}
	for _, r := range h {
		if !('0' <= r && r <= '9' || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F') {
			return gg.RGBA{}, fmt.Errorf("scene.clear_color %q is not a hex color", s)
		}
	}
	return gg.Hex(s), nil
}
