// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import "sync"

// userGuard is the process-wide set of user ids with a sync currently
// in flight. It enforces at most one sync per user within this process;
// across a horizontally scaled fleet the guard is advisory only.
type userGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newUserGuard() *userGuard {
	return &userGuard{inFlight: make(map[string]struct{})}
}

// tryAcquire marks userID as syncing. It returns false if a sync for
// that user is already running.
func (g *userGuard) tryAcquire(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.inFlight[userID]; ok {
		return false
	}
	g.inFlight[userID] = struct{}{}
	return true
}

// release removes userID from the in-flight set. Safe to call for a
// user that was never acquired.
func (g *userGuard) release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, userID)
}
