// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of loop counters since creation.
type Stats struct {
	// Ticks is the number of ticks run, successful or not.
	Ticks uint64

	// Dropped counts refresh signals skipped because a tick was in
	// flight.
	Dropped uint64

	// Failures counts ticks that returned an error.
	Failures uint64

	// Submits counts frames handed to the device.
	Submits uint64

	// Resizes counts eye target reallocations.
	Resizes uint64

	// LastTick is the duration of the most recent tick.
	LastTick time.Duration
}

type counters struct {
	ticks    atomic.Uint64
	dropped  atomic.Uint64
	failures atomic.Uint64
	submits  atomic.Uint64
	resizes  atomic.Uint64
	lastTick atomic.Int64
}

// Stats returns the current counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:    l.stats.ticks.Load(),
		Dropped:  l.stats.dropped.Load(),
		Failures: l.stats.failures.Load(),
		Submits:  l.stats.submits.Load(),
		Resizes:  l.stats.resizes.Load(),
		LastTick: time.Duration(l.stats.lastTick.Load()),
	}
}
