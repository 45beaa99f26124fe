// Package store persists accepted matches. The ingestion loop only ever
// reads by id, inserts new records in batches and replays the whole
// collection at startup.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"pubgstats/internal/pubg"
)

const (
	DefaultDatabase = "pubg-stats"
	// DefaultCollection keys documents by matchId. The older "match"
	// collection stores the raw API document keyed by data.id and is left
	// alone, since a unique matchId index cannot be built over it.
	DefaultCollection = "matches"
)

var ErrUnsupportedScheme = errors.New("unsupported store url scheme")

// MatchRecord is one persisted match. MatchID is unique within a store.
type MatchRecord struct {
	MatchID       string          `json:"matchId"`
	Region        pubg.Region     `json:"region"`
	GameMode      string          `json:"gameMode"`
	IsCustomMatch bool            `json:"isCustomMatch"`
	RawAttributes json.RawMessage `json:"attributes,omitempty"`
	InsertedAt    time.Time       `json:"insertedAt"`
}

// MatchStore is the append-only match collection
type MatchStore interface {
	// FindByIDs returns the stored records whose id is in ids
	FindByIDs(ctx context.Context, ids []string) ([]MatchRecord, error)
	// InsertMany writes records; ids that already exist are skipped
	InsertMany(ctx context.Context, records []MatchRecord) error
	// All streams every stored record to fn, stopping at the first error
	All(ctx context.Context, fn func(MatchRecord) error) error
	Close(ctx context.Context) error
}

// Open picks a backend from the URL scheme:
//
//	mongodb://, mongodb+srv://   MongoDB (collection "matches")
//	postgres://, postgresql://   PostgreSQL via pgx (table "matches")
//	sqlite://path, file:path     embedded SQLite
//	memory://                    in-process, lost on exit
func Open(ctx context.Context, rawURL, database string) (MatchStore, error) {
	if database == "" {
		database = DefaultDatabase
	}

	scheme, _, found := strings.Cut(rawURL, ":")
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}

	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return NewMongoStore(ctx, rawURL, database, DefaultCollection)
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, rawURL)
	case "sqlite":
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid sqlite url: %w", err)
		}
		return NewSQLiteStore(ctx, u.Host+u.Path)
	case "file":
		return NewSQLiteStore(ctx, rawURL)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

// Redact hides credentials in a store URL for logging
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func stamp(records []MatchRecord, now time.Time) {
	for i := range records {
		if records[i].InsertedAt.IsZero() {
			records[i].InsertedAt = now
		}
	}
}
