// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderloop

import (
	"sync"
	"time"
)

// Source delivers display refresh signals.
type Source interface {
	// Subscribe returns a channel of refresh timestamps and a function
	// that ends the subscription. A source has at most one subscriber.
	Subscribe() (<-chan time.Time, func())
}

// TickerSource emits refreshes at a fixed rate.
type TickerSource struct {
	period time.Duration
}

// NewTickerSource returns a source firing hz times per second.
func NewTickerSource(hz float64) *TickerSource {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	return &TickerSource{period: time.Duration(float64(time.Second) / hz)}
}

// Period returns the interval between refreshes.
func (s *TickerSource) Period() time.Duration {
	return s.period
}

// Subscribe starts a ticker.
func (s *TickerSource) Subscribe() (<-chan time.Time, func()) {
	t := time.NewTicker(s.period)
	return t.C, t.Stop
}

// ManualSource emits a refresh each time Fire is called. It is meant for
// tests and for hosts that receive vsync callbacks from a toolkit.
type ManualSource struct {
	mu   sync.Mutex
	ch   chan time.Time
	done chan struct{}
}

// NewManualSource returns an idle manual source.
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// Subscribe replaces any previous subscription.
func (s *ManualSource) Subscribe() (<-chan time.Time, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		close(s.done)
	}
	ch := make(chan time.Time)
	done := make(chan struct{})
	s.ch, s.done = ch, done

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.done == done {
				close(done)
				s.ch, s.done = nil, nil
			}
		})
	}
}

// Fire delivers t to the subscriber, blocking until it is received.
// It returns false when there is no subscriber or the subscription ends
// first.
func (s *ManualSource) Fire(t time.Time) bool {
	s.mu.Lock()
	ch, done := s.ch, s.done
	s.mu.Unlock()
	if ch == nil {
		return false
	}
	select {
	case ch <- t:
		return true
	case <-done:
		return false
	}
}
