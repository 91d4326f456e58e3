// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

// Package store implements the Postgres persistence layer for content
// items and their per-source engagement metrics.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// Store is the pgx-backed implementation of the sync layer's
// ContentStore and UserLister interfaces. Safe for concurrent use; the
// pool handles connection lifecycle.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres, verifies the connection and ensures the
// schema exists.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logging.Info().Int32("max_conns", poolCfg.MaxConns).Msg("Connected to Postgres")
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS contents (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ,
			external     JSONB NOT NULL DEFAULT '{}'::jsonb
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contents_user_id ON contents (user_id)`,
		`CREATE TABLE IF NOT EXISTS content_metrics (
			content_id      TEXT NOT NULL REFERENCES contents (id) ON DELETE CASCADE,
			source          TEXT NOT NULL,
			likes           BIGINT NOT NULL DEFAULT 0,
			comments        BIGINT NOT NULL DEFAULT 0,
			shares          BIGINT NOT NULL DEFAULT 0,
			views           BIGINT NOT NULL DEFAULT 0,
			reach           BIGINT NOT NULL DEFAULT 0,
			impressions     BIGINT NOT NULL DEFAULT 0,
			engagement      BIGINT NOT NULL DEFAULT 0,
			engagement_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			fetched_at      TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (content_id, source)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// FindByUser returns every content item owned by userID with its
// currently stored per-source metrics attached.
func (s *Store) FindByUser(ctx context.Context, userID string) ([]models.Content, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, title, published_at, external
		 FROM contents WHERE user_id = $1
		 ORDER BY published_at DESC NULLS LAST, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contents: %w", err)
	}
	defer rows.Close()

	var (
		contents []models.Content
		ids      []string
		byID     = make(map[string]int)
	)
	for rows.Next() {
		var (
			c           models.Content
			publishedAt *time.Time
			external    []byte
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &publishedAt, &external); err != nil {
			return nil, fmt.Errorf("failed to scan content row: %w", err)
		}
		if publishedAt != nil {
			c.PublishedAt = *publishedAt
		}
		if len(external) > 0 {
			if err := json.Unmarshal(external, &c.External); err != nil {
				return nil, fmt.Errorf("failed to decode external ids for content %s: %w", c.ID, err)
			}
		}
		byID[c.ID] = len(contents)
		ids = append(ids, c.ID)
		contents = append(contents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contents: %w", err)
	}
	if len(contents) == 0 {
		return nil, nil
	}

	metricRows, err := s.pool.Query(ctx,
		`SELECT content_id, source, likes, comments, shares, views, reach,
		        impressions, engagement, engagement_rate, fetched_at
		 FROM content_metrics WHERE content_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query content metrics: %w", err)
	}
	defer metricRows.Close()

	for metricRows.Next() {
		var (
			contentID, source string
			p                 models.MetricsPayload
		)
		if err := metricRows.Scan(&contentID, &source,
			&p.Likes, &p.Comments, &p.Shares, &p.Views, &p.Reach,
			&p.Impressions, &p.Engagement, &p.EngagementRate, &p.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metrics row: %w", err)
		}
		idx, ok := byID[contentID]
		if !ok {
			continue
		}
		if contents[idx].Metrics == nil {
			contents[idx].Metrics = make(map[string]models.MetricsPayload)
		}
		contents[idx].Metrics[source] = p
	}
	if err := metricRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metrics: %w", err)
	}

	return contents, nil
}

// BulkUpdate applies a chunk of keyed metric upserts in one round trip
// using a pgx batch. Each op is an independent upsert; the whole chunk
// shares one network exchange but not one transaction, matching the
// sync layer's per-op idempotency contract.
//
// The returned result distinguishes inserted rows from updated rows via
// the xmax system column (0 for freshly inserted tuples).
func (s *Store) BulkUpdate(ctx context.Context, ops []models.MetricsUpdate) (models.BulkWriteResult, error) {
	if len(ops) == 0 {
		return models.BulkWriteResult{}, nil
	}

	batch := &pgx.Batch{}
	for _, op := range ops {
		batch.Queue(
			`INSERT INTO content_metrics
			   (content_id, source, likes, comments, shares, views, reach,
			    impressions, engagement, engagement_rate, fetched_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			 ON CONFLICT (content_id, source) DO UPDATE SET
			   likes = EXCLUDED.likes,
			   comments = EXCLUDED.comments,
			   shares = EXCLUDED.shares,
			   views = EXCLUDED.views,
			   reach = EXCLUDED.reach,
			   impressions = EXCLUDED.impressions,
			   engagement = EXCLUDED.engagement,
			   engagement_rate = EXCLUDED.engagement_rate,
			   fetched_at = EXCLUDED.fetched_at
			 RETURNING (xmax = 0) AS inserted`,
			op.ContentID, op.Source,
			op.Metrics.Likes, op.Metrics.Comments, op.Metrics.Shares,
			op.Metrics.Views, op.Metrics.Reach, op.Metrics.Impressions,
			op.Metrics.Engagement, op.Metrics.EngagementRate, op.Metrics.FetchedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	var out models.BulkWriteResult
	for range ops {
		var inserted bool
		if err := results.QueryRow().Scan(&inserted); err != nil {
			return models.BulkWriteResult{}, fmt.Errorf("bulk metrics upsert failed: %w", err)
		}
		if inserted {
			out.Upserted++
		} else {
			out.Modified++
		}
	}
	return out, nil
}

// ListUserIDs returns every distinct user id with stored content, in
// stable order, for the periodic sync sweep.
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT user_id FROM contents ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user ids: %w", err)
	}
	return ids, nil
}

// UpsertContent creates or replaces a content item. Used by the content
// management API.
func (s *Store) UpsertContent(ctx context.Context, c models.Content) error {
	external, err := json.Marshal(c.External)
	if err != nil {
		return fmt.Errorf("failed to encode external ids: %w", err)
	}

	var publishedAt *time.Time
	if !c.PublishedAt.IsZero() {
		publishedAt = &c.PublishedAt
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO contents (id, user_id, title, published_at, external)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET
		   user_id = EXCLUDED.user_id,
		   title = EXCLUDED.title,
		   published_at = EXCLUDED.published_at,
		   external = EXCLUDED.external`,
		c.ID, c.UserID, c.Title, publishedAt, external)
	if err != nil {
		return fmt.Errorf("failed to upsert content: %w", err)
	}
	return nil
}
