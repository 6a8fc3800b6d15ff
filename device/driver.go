// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/target"
)

// Driver detects and opens headsets of one vendor SDK.
type Driver interface {
	// Open connects to the first available headset. It returns an error
	// wrapping hmd.ErrDeviceUnavailable when no headset is attached.
	Open(ctx context.Context) (Session, error)
}

// Session is an open connection to a headset.
type Session interface {
	// Info describes the connected hardware. It must not change for the
	// life of the session.
	Info() Info

	// Pose returns the latest tracked pose in the driver's tracking
	// space. A driver that misses a reading returns its best
	// extrapolation.
	Pose() hmd.HeadPose

	// Submit hands the rendered eye surfaces to the compositor, blocking
	// until the compositor accepts them.
	Submit(ctx context.Context, left, right target.Surface) error

	// Close releases the connection.
	Close() error
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(ctx context.Context) (Session, error)

// Open calls f(ctx).
func (f DriverFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// RegistryEntry is a registered driver.
type RegistryEntry struct {
	// Name is the unique identifier for this driver.
	Name string

	// Priority determines probe order (higher = probed first).
	Priority int

	Driver Driver
}

// ErrNoDriver is returned by Registry.Open when no driver is registered.
var ErrNoDriver = errors.New("device: no driver registered")

// globalRegistry is the process-wide driver registry. Vendor driver
// packages add themselves to it from init, as database/sql drivers do.
var globalRegistry = &Registry{}

// DefaultRegistry returns the process-wide registry used by Register,
// Unregister, List and by Acquire when Options.Registry is nil. Code that
// must not see drivers registered elsewhere in the process passes its own
// Registry instead.
func DefaultRegistry() *Registry {
	return globalRegistry
}

// Registry holds headset drivers. Most code uses the process-wide
// registry through Register and Acquire.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*RegistryEntry)}
}

// Register adds a driver to the global registry. Registering a name that
// already exists replaces the previous entry.
func Register(name string, priority int, d Driver) {
	globalRegistry.Register(name, priority, d)
}

// Unregister removes a driver from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns the global registry's driver names by priority.
func List() []string {
	return globalRegistry.List()
}

// Register adds a driver to this registry.
func (r *Registry) Register(name string, priority int, d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*RegistryEntry)
	}
	r.entries[name] = &RegistryEntry{Name: name, Priority: priority, Driver: d}
}

// Unregister removes a driver from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Get returns a copy of the named entry.
func (r *Registry) Get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	entryCopy := *entry
	return &entryCopy, true
}

// List returns driver names sorted by priority, highest first. Equal
// priorities sort by name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Open probes drivers in priority order and returns the first session
// opened along with the driver name. If every driver fails the returned
// error wraps hmd.ErrDeviceUnavailable together with the last failure.
func (r *Registry) Open(ctx context.Context) (Session, string, error) {
	names := r.List()
	if len(names) == 0 {
		return nil, "", fmt.Errorf("%w: %w", hmd.ErrDeviceUnavailable, ErrNoDriver)
	}

	var lastErr error
	for _, name := range names {
		entry, ok := r.Get(name)
		if !ok || entry.Driver == nil {
			continue
		}
		s, err := entry.Driver.Open(ctx)
		if err == nil {
			return s, name, nil
		}
		if errors.Is(err, hmd.ErrDeviceUnavailable) {
			hmd.Logger().Debug("device: no headset", "driver", name)
		} else {
			hmd.Logger().Warn("device: driver failed", "driver", name, "err", err)
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = ErrNoDriver
	}
	if !errors.Is(lastErr, hmd.ErrDeviceUnavailable) {
		lastErr = fmt.Errorf("%w: %w", hmd.ErrDeviceUnavailable, lastErr)
	}
	return nil, "", lastErr
}
