// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

/*
Package sync implements the rate-limited, retrying fetch pipeline that
reconciles external engagement metrics into storage.

Pipeline layers, innermost first:

  - Retry: exponential backoff with jitter around one fetch attempt
    (base * 2^attempt + uniform jitter, cancellable waits)
  - Pacer: per-source single-slot rate limiter enforcing a minimum
    interval between calls to one source; one source's backpressure
    never throttles another
  - Breaker: per-source circuit breaker (sony/gobreaker) that fails fast
    while a source is unhealthy
  - RunBounded: bounded-concurrency runner dispatching fetch jobs with at
    most N in flight; a job's failure never stops its siblings

The Coordinator decomposes a user's content into fetch jobs, drives them
through these layers, normalizes results and writes them back in
size-bounded chunks. At most one sync runs per user at a time; a second
request short-circuits with the "sync_in_progress" failure reason.

The Manager adds the periodic background loop that syncs every known
user on their configured update frequency, and adapts the pipeline to
the supervision tree's Serve lifecycle.

Failure handling follows one rule: failures below the top level are
captured into structured failure records on the SyncResult, never
raised. SyncUser itself only returns an error when storage is
unreachable.
*/
package sync
