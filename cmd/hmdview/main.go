// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command hmdview runs the stereo render loop against the best available
// headset and renders a chessboard floor.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hmdview:", err)
		os.Exit(1)
	}
}
