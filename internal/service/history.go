package service

import (
	"context"

	"github.com/spacesedan/sentiserve/internal/apperrors"
	"github.com/spacesedan/sentiserve/internal/history"
	"github.com/spacesedan/sentiserve/internal/models"
)

type HistoryService struct {
	reader *history.Reader
}

func NewHistoryService(reader *history.Reader) *HistoryService {
	return &HistoryService{reader: reader}
}

// UserHistory expects an already clamped limit.
func (s *HistoryService) UserHistory(ctx context.Context, userID string, limit int) (models.UserHistoryResponse, error) {
	entries, err := s.reader.UserTimeline(ctx, userID, limit)
	if err != nil {
		return models.UserHistoryResponse{}, err
	}
	return models.UserHistoryResponse{
		UserID:  userID,
		Count:   len(entries),
		History: entries,
	}, nil
}

// BatchResults returns apperrors.ErrNotFound for an unknown batch.
func (s *HistoryService) BatchResults(ctx context.Context, batchID string) (models.BatchResultsResponse, error) {
	job, rows, err := s.reader.Batch(ctx, batchID)
	if err != nil {
		return models.BatchResultsResponse{}, err
	}
	return models.BatchResultsResponse{
		BatchID:      batchID,
		Status:       job.Status,
		TotalRows:    job.TotalRows,
		SuccessCount: job.SuccessCount,
		FailedCount:  job.FailedCount,
		CompletedAt:  job.CompletedAt,
		Results:      rows,
	}, nil
}

// Get dispatches a history request: batch_id wins over user_id.
func (s *HistoryService) Get(ctx context.Context, req models.HistoryRequest) (any, error) {
	switch {
	case req.BatchID != "":
		return s.BatchResults(ctx, req.BatchID)
	case req.UserID != "":
		return s.UserHistory(ctx, req.UserID, req.Limit)
	default:
		return nil, apperrors.Validation("Either user_id or batch_id parameter is required")
	}
}
