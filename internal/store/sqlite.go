package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pubgstats/internal/pubg"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS matches (
		match_id        TEXT PRIMARY KEY,
		region          TEXT NOT NULL,
		game_mode       TEXT NOT NULL,
		is_custom_match INTEGER NOT NULL DEFAULT 0,
		attributes      TEXT,
		inserted_at     TEXT NOT NULL
	)`

// SQLiteStore keeps matches in a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY between the pool's connections
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) FindByIDs(ctx context.Context, ids []string) ([]MatchRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT match_id, region, game_mode, is_custom_match, attributes, inserted_at
		FROM matches
		WHERE match_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []MatchRecord
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, rec)
	}
	return found, rows.Err()
}

// InsertMany writes all records in one transaction
func (s *SQLiteStore) InsertMany(ctx context.Context, records []MatchRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	stamp(records, time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO matches (match_id, region, game_mode, is_custom_match, attributes, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		var attrs sql.NullString
		if len(rec.RawAttributes) > 0 {
			attrs = sql.NullString{String: string(rec.RawAttributes), Valid: true}
		}
		if _, err = stmt.ExecContext(ctx, rec.MatchID, string(rec.Region), rec.GameMode,
			rec.IsCustomMatch, attrs, rec.InsertedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to insert match %s: %w", rec.MatchID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) All(ctx context.Context, fn func(MatchRecord) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT match_id, region, game_mode, is_custom_match, attributes, inserted_at
		FROM matches
		ORDER BY rowid`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func scanSQLite(rows *sql.Rows) (MatchRecord, error) {
	var rec MatchRecord
	var region, insertedAt string
	var attrs sql.NullString
	if err := rows.Scan(&rec.MatchID, &region, &rec.GameMode, &rec.IsCustomMatch, &attrs, &insertedAt); err != nil {
		return rec, err
	}
	rec.Region = pubg.Region(region)
	if attrs.Valid {
		rec.RawAttributes = []byte(attrs.String)
	}
	if t, err := time.Parse(time.RFC3339Nano, insertedAt); err == nil {
		rec.InsertedAt = t
	}
	return rec, nil
}
