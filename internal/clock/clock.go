// File: internal/clock/clock.go
// Package clock provides a cached wall-clock reader for hot paths that
// stamp timestamps frequently (IPC heartbeats) without paying a time.Now()
// syscall on every call.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on agilira-lethe/lethe.go, which wires the same dependency
// (github.com/agilira/go-timecache) for exactly this reason: a high-frequency
// logging hot path that cannot afford a syscall per timestamp.

package clock

import (
	"time"

	"github.com/agilira/go-timecache"
)

// Clock wraps a millisecond-resolution cached timestamp source.
type Clock struct {
	tc *timecache.TimeCache
}

// New starts a clock with millisecond cache resolution.
func New() *Clock {
	return &Clock{tc: timecache.NewWithResolution(time.Millisecond)}
}

// Now returns the cached current time.
func (c *Clock) Now() time.Time {
	return c.tc.CachedTime()
}

// Stop releases the underlying cache's background refresh.
func (c *Clock) Stop() {
	c.tc.Stop()
}
