package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spacesedan/sentiserve/internal/apperrors"
	"github.com/spacesedan/sentiserve/internal/db"
	"github.com/spacesedan/sentiserve/internal/models"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
	// FallbackLimit replaces a supplied limit below one.
	FallbackLimit = 10
)

// ClampLimit normalizes a requested page size. A nil raw means the caller
// did not supply one.
func ClampLimit(raw *int) int {
	switch {
	case raw == nil:
		return DefaultLimit
	case *raw > MaxLimit:
		return MaxLimit
	case *raw < 1:
		return FallbackLimit
	default:
		return *raw
	}
}

type Store interface {
	GetItem(ctx context.Context, pk, sk string) (db.Item, bool, error)
	Query(ctx context.Context, pk, skPrefix string, opts db.QueryOptions) ([]db.Item, error)
}

type Reader struct {
	store Store
}

func NewReader(store Store) *Reader {
	return &Reader{store: store}
}

// UserTimeline returns a user's analyses and batch links, most recent
// first, capped at limit. Analyses are read newest first and stop at limit;
// batch links are few per user and read in full.
func (r *Reader) UserTimeline(ctx context.Context, userID string, limit int) ([]models.TimelineEntry, error) {
	pk := db.UserPK(userID)

	analyses, err := r.store.Query(ctx, pk, db.AnalysisPrefix, db.QueryOptions{Limit: limit, NewestFirst: true})
	if err != nil {
		return nil, fmt.Errorf("[HistoryReader] failed to query analyses for user %s: %w", userID, err)
	}
	links, err := r.store.Query(ctx, pk, db.BatchPrefix, db.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("[HistoryReader] failed to query batches for user %s: %w", userID, err)
	}

	entries := make([]models.TimelineEntry, 0, len(analyses)+len(links))
	for _, item := range analyses {
		_, sk := item.Keys()
		var rec models.AnalysisRecord
		if err := item.Decode(&rec); err != nil {
			slog.Warn("[HistoryReader] Skipping undecodable analysis",
				slog.String("sk", sk),
				slog.String("error", err.Error()))
			continue
		}
		rec.SortKey = sk
		entries = append(entries, models.EntryFromAnalysis(rec))
	}
	for _, item := range links {
		_, sk := item.Keys()
		var link models.UserBatchLink
		if err := item.Decode(&link); err != nil {
			slog.Warn("[HistoryReader] Skipping undecodable batch link",
				slog.String("sk", sk),
				slog.String("error", err.Error()))
			continue
		}
		entries = append(entries, models.EntryFromBatchLink(link))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].NewerThan(entries[j])
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	slog.Info("[HistoryReader] Retrieved user history",
		slog.String("user_id", userID),
		slog.Int("count", len(entries)))
	return entries, nil
}

// Batch returns the SUMMARY of a batch with all its rows in row order.
func (r *Reader) Batch(ctx context.Context, batchID string) (models.BatchJob, []models.BatchRowResult, error) {
	var job models.BatchJob

	item, found, err := r.store.GetItem(ctx, db.BatchPK(batchID), db.SummarySK)
	if err != nil {
		return job, nil, fmt.Errorf("[HistoryReader] failed to read batch %s: %w", batchID, err)
	}
	if !found {
		return job, nil, fmt.Errorf("batch %s: %w", batchID, apperrors.ErrNotFound)
	}
	if err := item.Decode(&job); err != nil {
		return job, nil, fmt.Errorf("[HistoryReader] failed to decode batch %s: %w", batchID, err)
	}

	items, err := r.store.Query(ctx, db.BatchPK(batchID), db.RowPrefix, db.QueryOptions{})
	if err != nil {
		return job, nil, fmt.Errorf("[HistoryReader] failed to query rows of %s: %w", batchID, err)
	}

	type indexedRow struct {
		index int
		row   models.BatchRowResult
	}
	indexed := make([]indexedRow, 0, len(items))
	for _, it := range items {
		_, sk := it.Keys()
		idx, err := db.ParseRowSK(sk)
		if err != nil {
			slog.Warn("[HistoryReader] Skipping malformed row key", slog.String("sk", sk))
			continue
		}
		var row models.BatchRowResult
		if err := it.Decode(&row); err != nil {
			return job, nil, fmt.Errorf("[HistoryReader] failed to decode %s: %w", sk, err)
		}
		indexed = append(indexed, indexedRow{index: idx, row: row})
	}
	sort.Slice(indexed, func(i, j int) bool { return indexed[i].index < indexed[j].index })

	rows := make([]models.BatchRowResult, 0, len(indexed))
	for _, ir := range indexed {
		rows = append(rows, ir.row)
	}

	if job.BatchID == "" {
		job.BatchID = batchID
	}
	return job, rows, nil
}
