package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spacesedan/sentiserve/internal/apperrors"
	"github.com/spacesedan/sentiserve/internal/models"
)

type WriteStatus string

const (
	WriteStatusSaved   WriteStatus = "saved"
	WriteStatusFailed  WriteStatus = "failed"
	WriteStatusSkipped WriteStatus = "skipped"
)

// Item is one stored record, addressed by its partition and sort key.
type Item interface {
	Keys() (pk, sk string)
	Decode(out any) error
}

type Entry struct {
	PK    string
	SK    string
	Value any
}

type QueryOptions struct {
	// Limit caps the number of items returned; zero means no cap.
	Limit       int
	NewestFirst bool
}

// Table is a single key-value table addressed by (PK, SK).
type Table interface {
	Put(ctx context.Context, e Entry) error
	PutBatch(ctx context.Context, entries []Entry) error
	Get(ctx context.Context, pk, sk string) (Item, bool, error)
	Query(ctx context.Context, pk, skPrefix string, opts QueryOptions) ([]Item, error)
}

// ResultStore lays analyses, batch summaries, batch rows and user batch
// links out over one Table. A nil table turns every write into a skip.
type ResultStore struct {
	table Table
}

func NewResultStore(table Table) *ResultStore {
	return &ResultStore{table: table}
}

func (s *ResultStore) Enabled() bool {
	return s != nil && s.table != nil
}

func (s *ResultStore) SaveAnalysis(ctx context.Context, rec models.AnalysisRecord) (WriteStatus, error) {
	if !s.Enabled() {
		slog.Info("[ResultStore] No store configured - skipping analysis save")
		return WriteStatusSkipped, nil
	}
	if rec.SortKey == "" {
		return WriteStatusFailed, fmt.Errorf("%w: analysis record has no sort key", apperrors.ErrStorageWrite)
	}

	err := s.table.Put(ctx, Entry{PK: UserPK(rec.UserID), SK: rec.SortKey, Value: rec})
	if err != nil {
		return WriteStatusFailed, fmt.Errorf("%w: %v", apperrors.ErrStorageWrite, err)
	}

	slog.Info("[ResultStore] Saved analysis", slog.String("user_id", rec.UserID))
	return WriteStatusSaved, nil
}

// SaveBatch writes the rows first, then the SUMMARY item and the user link,
// so a readable SUMMARY implies its rows are in place.
func (s *ResultStore) SaveBatch(ctx context.Context, job models.BatchJob, rows []models.BatchRowResult) (WriteStatus, error) {
	if !s.Enabled() {
		slog.Info("[ResultStore] No store configured - skipping batch save")
		return WriteStatusSkipped, nil
	}
	if len(rows) > MaxBatchRows {
		return WriteStatusFailed, fmt.Errorf("%w: %d rows exceeds the %d row key width",
			apperrors.ErrStorageWrite, len(rows), MaxBatchRows)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		if row.BatchID != job.BatchID {
			return WriteStatusFailed, fmt.Errorf("%w: row %d belongs to batch %q, not %q",
				apperrors.ErrStorageWrite, row.Row, row.BatchID, job.BatchID)
		}
		entries = append(entries, Entry{PK: BatchPK(job.BatchID), SK: RowSK(row.Row), Value: row})
	}

	if err := s.table.PutBatch(ctx, entries); err != nil {
		return WriteStatusFailed, fmt.Errorf("%w: rows: %v", apperrors.ErrStorageWrite, err)
	}
	if err := s.table.Put(ctx, Entry{PK: BatchPK(job.BatchID), SK: SummarySK, Value: job}); err != nil {
		return WriteStatusFailed, fmt.Errorf("%w: summary: %v", apperrors.ErrStorageWrite, err)
	}
	link := models.LinkFromJob(job)
	if err := s.table.Put(ctx, Entry{PK: UserPK(job.UserID), SK: BatchLinkSK(job.BatchID), Value: link}); err != nil {
		return WriteStatusFailed, fmt.Errorf("%w: user link: %v", apperrors.ErrStorageWrite, err)
	}

	slog.Info("[ResultStore] Saved batch results",
		slog.String("batch_id", job.BatchID),
		slog.Int("success", job.SuccessCount),
		slog.Int("failed", job.FailedCount))
	return WriteStatusSaved, nil
}

var errNoTable = errors.New("no result store configured")

func (s *ResultStore) GetItem(ctx context.Context, pk, sk string) (Item, bool, error) {
	if !s.Enabled() {
		return nil, false, errNoTable
	}
	return s.table.Get(ctx, pk, sk)
}

func (s *ResultStore) Query(ctx context.Context, pk, skPrefix string, opts QueryOptions) ([]Item, error) {
	if !s.Enabled() {
		return nil, errNoTable
	}
	return s.table.Query(ctx, pk, skPrefix, opts)
}
