// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/config"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "hmdview",
		Short: "Stereo HMD viewer",
		Long: `hmdview drives a head-mounted display with a chessboard scene.

Settings come from an optional YAML file and HMD_* environment variables.
Without a headset the debug device is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log per-frame diagnostics")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newInfoCommand(opts))
	return cmd
}

// setup installs the logger and loads the configuration.
func (o *rootOptions) setup(stderr io.Writer) (config.Config, error) {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	hmd.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	return config.Load(o.configPath)
}
