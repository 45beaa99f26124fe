package store

import (
	"context"
	"fmt"
	"time"

	"pubgstats/internal/pubg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS matches (
		match_id        TEXT PRIMARY KEY,
		region          TEXT NOT NULL,
		game_mode       TEXT NOT NULL,
		is_custom_match BOOLEAN NOT NULL DEFAULT FALSE,
		attributes      JSONB,
		inserted_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// PostgresStore keeps matches in a PostgreSQL table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects and makes sure the matches table exists
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) FindByIDs(ctx context.Context, ids []string) ([]MatchRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT match_id, region, game_mode, is_custom_match, attributes, inserted_at
		FROM matches
		WHERE match_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []MatchRecord
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, rec)
	}
	return found, rows.Err()
}

// InsertMany sends all inserts as one batch
func (s *PostgresStore) InsertMany(ctx context.Context, records []MatchRecord) error {
	if len(records) == 0 {
		return nil
	}
	stamp(records, time.Now())

	batch := &pgx.Batch{}
	for _, rec := range records {
		var attrs []byte
		if len(rec.RawAttributes) > 0 {
			attrs = rec.RawAttributes
		}
		batch.Queue(`
			INSERT INTO matches (match_id, region, game_mode, is_custom_match, attributes, inserted_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (match_id) DO NOTHING
		`, rec.MatchID, string(rec.Region), rec.GameMode, rec.IsCustomMatch, attrs, rec.InsertedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert match: %w", err)
		}
	}
	return results.Close()
}

func (s *PostgresStore) All(ctx context.Context, fn func(MatchRecord) error) error {
	rows, err := s.pool.Query(ctx, `
		SELECT match_id, region, game_mode, is_custom_match, attributes, inserted_at
		FROM matches
		ORDER BY inserted_at
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

func scanPostgres(rows pgx.Rows) (MatchRecord, error) {
	var rec MatchRecord
	var region string
	var attrs []byte
	if err := rows.Scan(&rec.MatchID, &region, &rec.GameMode, &rec.IsCustomMatch, &attrs, &rec.InsertedAt); err != nil {
		return rec, err
	}
	rec.Region = pubg.Region(region)
	rec.RawAttributes = attrs
	return rec, nil
}
