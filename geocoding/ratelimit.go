// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"sync"
	"time"
)

// rateLimiter enforces a minimum delay between successive calls to one
// provider. It is a cooperative floor, not a token bucket: the caller
// blocks for whatever remains of the interval. The lock is held across the
// sleep so concurrent resolutions sharing an adapter are serialized.
type rateLimiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	lastCall time.Time
}

func (l *rateLimiter) wait() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lastCall.IsZero() {
		if elapsed := time.Since(l.lastCall); elapsed < l.minDelay {
			time.Sleep(l.minDelay - elapsed)
		}
	}

	l.lastCall = time.Now()
}
