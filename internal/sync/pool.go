// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package sync

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunBounded invokes worker once per item with at most limit workers in
// flight; the next item starts as soon as a slot frees. It returns only
// after every item has been dispatched and finished.
//
// Workers have no error return on purpose: a failing job must record its
// own failure into the shared result rather than abort its siblings.
func RunBounded[T any](ctx context.Context, limit int, items []T, worker func(ctx context.Context, item T)) {
	if limit < 1 {
		limit = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(limit)

	for _, item := range items {
		g.Go(func() error {
			worker(ctx, item)
			return nil
		})
	}

	// Workers never return errors, Wait only synchronizes completion.
	_ = g.Wait()
}
