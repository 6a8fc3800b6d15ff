// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/device"
)

func newInfoCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the acquired headset and its eye targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			dev := device.Acquire(cmd.Context(), cfg.DeviceOptions())
			defer func() { _ = dev.Shutdown() }()

			info := dev.Info()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "product:      %s (%s)\n", info.ProductName, info.Manufacturer)
			fmt.Fprintf(w, "serial:       %s\n", info.Serial)
			fmt.Fprintf(w, "driver:       %s\n", dev.Driver())
			fmt.Fprintf(w, "debug:        %t\n", dev.IsDebug())
			fmt.Fprintf(w, "panel:        %s @ %g Hz\n", info.Resolution, info.RefreshRate)
			fmt.Fprintf(w, "render scale: %g\n", dev.RenderScale())
			for _, eye := range hmd.Eyes {
				desc, err := dev.EyeRenderDescriptor(eye)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%-5s eye:    %s offset %.4f\n", eye, desc.RecommendedSize, desc.Offset[0])
			}
			return nil
		},
	}
}
