// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package input

import (
	"sync"

	"github.com/gogpu/hmd"
)

// Router holds rules in registration order and dispatches events to every
// rule that matches. A Router is safe for concurrent use; handlers are
// invoked without the router lock held, so a handler may register rules.
type Router struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{}
}

// Register appends rules. Rules with a nil handler are skipped.
func (r *Router) Register(rules ...Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range rules {
		if rule.handler == nil {
			hmd.Logger().Warn("input: rule without handler ignored", "rule", rule.String())
			continue
		}
		r.rules = append(r.rules, rule)
	}
}

// Clear removes every rule.
func (r *Router) Clear() {
	r.mu.Lock()
	r.rules = nil
	r.mu.Unlock()
}

// Len returns the number of registered rules.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Dispatch invokes the handler of every matching rule in registration
// order and returns how many matched.
func (r *Router) Dispatch(e Event) int {
	r.mu.RLock()
	var matched []Handler
	for _, rule := range r.rules {
		if rule.Matches(e) {
			matched = append(matched, rule.handler)
		}
	}
	r.mu.RUnlock()

	for _, h := range matched {
		h(e)
	}
	return len(matched)
}
