package collector

import (
	"context"
	"errors"
	"testing"

	"pubgstats/internal/pubg"
	"pubgstats/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterUnseen_StoreMembership(t *testing.T) {
	s := store.NewMemoryStore(
		store.MatchRecord{MatchID: "A", Region: pubg.RegionEurope, GameMode: "solo"},
		store.MatchRecord{MatchID: "B", Region: pubg.RegionEurope, GameMode: "duo"},
	)
	seen := NewSeenSet()
	seen.MarkSeen("A")
	seen.MarkSeen("B")

	res, err := NewDeduplicator(s, seen).FilterUnseen(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, res.Unseen)
	assert.Empty(t, res.Foreign)
}

func TestFilterUnseen_SeenSetExcludes(t *testing.T) {
	seen := NewSeenSet()
	seen.MarkSeen("B")

	res, err := NewDeduplicator(store.NewMemoryStore(), seen).FilterUnseen(context.Background(), []string{"A", "B", "C", "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, res.Unseen)
}

func TestFilterUnseen_ForeignRecords(t *testing.T) {
	s := store.NewMemoryStore(
		store.MatchRecord{MatchID: "A", Region: pubg.RegionAsia, GameMode: "squad"},
		store.MatchRecord{MatchID: "B", Region: pubg.RegionAsia, GameMode: "squad"},
	)
	seen := NewSeenSet()
	seen.MarkSeen("A")

	res, err := NewDeduplicator(s, seen).FilterUnseen(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, res.Unseen)
	require.Len(t, res.Foreign, 1)
	assert.Equal(t, "B", res.Foreign[0].MatchID)
}

type failingFindStore struct {
	store.MatchStore
}

func (failingFindStore) FindByIDs(ctx context.Context, ids []string) ([]store.MatchRecord, error) {
	return nil, errors.New("connection refused")
}

func TestFilterUnseen_StoreError(t *testing.T) {
	_, err := NewDeduplicator(failingFindStore{}, NewSeenSet()).FilterUnseen(context.Background(), []string{"A"})
	require.Error(t, err)
}
