package collector

import (
	"context"
	"fmt"

	"pubgstats/internal/store"
)

// FilterResult splits a sampled batch into work still to do and records
// another writer stored since this run's replay
type FilterResult struct {
	Unseen  []string
	Foreign []store.MatchRecord
}

// Deduplicator drops ids that are already stored or already handled
type Deduplicator struct {
	store store.MatchStore
	seen  *SeenSet
}

func NewDeduplicator(s store.MatchStore, seen *SeenSet) *Deduplicator {
	return &Deduplicator{store: s, seen: seen}
}

// FilterUnseen checks the store first, then the in-process seen set.
// Input order is kept and repeated ids collapse to one.
func (d *Deduplicator) FilterUnseen(ctx context.Context, ids []string) (FilterResult, error) {
	var res FilterResult

	existing, err := d.store.FindByIDs(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("failed to look up existing matches: %w", err)
	}

	stored := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		stored[rec.MatchID] = struct{}{}
		if !d.seen.IsSeen(rec.MatchID) {
			res.Foreign = append(res.Foreign, rec)
		}
	}

	queued := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := stored[id]; ok {
			continue
		}
		if _, ok := queued[id]; ok {
			continue
		}
		if d.seen.IsSeen(id) {
			continue
		}
		queued[id] = struct{}{}
		res.Unseen = append(res.Unseen, id)
	}
	return res, nil
}
