package batch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/sentiserve/internal/apperrors"
	"github.com/spacesedan/sentiserve/internal/models"
	"github.com/spacesedan/sentiserve/internal/sentiment"
)

type Inferer interface {
	Infer(text string) models.Prediction
}

type Result struct {
	Job  models.BatchJob
	Rows []models.BatchRowResult
}

type Runner struct {
	inferer Inferer
	now     func() time.Time
}

func NewRunner(inferer Inferer) *Runner {
	return &Runner{inferer: inferer, now: time.Now}
}

// Run scores rows one at a time in input order. A row that fails
// validation or inference is recorded as failed and the batch carries on.
func (r *Runner) Run(batchID string, rows []models.RowInput) (Result, error) {
	if len(rows) == 0 {
		return Result{}, apperrors.Validation("No valid rows found in batch")
	}
	if len(rows) > MaxRows {
		return Result{}, apperrors.Validation("Batch has %d rows, maximum is %d", len(rows), MaxRows)
	}

	start := r.now()
	slog.Info("[BatchRunner] Processing batch",
		slog.String("batch_id", batchID),
		slog.Int("rows", len(rows)))

	results := make([]models.BatchRowResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, r.runRow(batchID, row, start.Unix()))
	}

	job := models.BatchJob{
		BatchID:   batchID,
		UserID:    batchOwner(rows),
		TotalRows: len(results),
		Status:    models.BatchStatusCompleted,
		Timestamp: start.Unix(),
	}
	for _, res := range results {
		if res.Status == models.RowStatusSuccess {
			job.SuccessCount++
		} else {
			job.FailedCount++
		}
	}
	job.CompletedAt = r.now().UTC().Format(time.RFC3339)

	slog.Info("[BatchRunner] Batch complete",
		slog.String("batch_id", batchID),
		slog.Int("success", job.SuccessCount),
		slog.Int("failed", job.FailedCount),
		slog.Duration("elapsed", r.now().Sub(start)))

	return Result{Job: job, Rows: results}, nil
}

func (r *Runner) runRow(batchID string, row models.RowInput, ts int64) (res models.BatchRowResult) {
	res = models.BatchRowResult{
		BatchID:   batchID,
		Row:       row.Index,
		Text:      row.Text,
		UserID:    userOrAnonymous(row.UserID),
		Timestamp: ts,
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[BatchRunner] Row panicked",
				slog.Int("row", row.Index),
				slog.Any("panic", rec))
			res.Sentiment = models.LabelError
			res.Confidence = 0
			res.Status = models.RowStatusFailed
			res.Error = fmt.Sprintf("%v", rec)
		}
	}()

	if err := sentiment.ValidateText(row.Text); err != nil {
		res.Sentiment = models.LabelError
		res.Status = models.RowStatusFailed
		res.Error = err.Error()
		return res
	}

	pred := r.inferer.Infer(row.Text)
	res.Sentiment = pred.Label
	res.Confidence = pred.Confidence
	if pred.Failed() {
		slog.Warn("[BatchRunner] Row failed",
			slog.Int("row", row.Index),
			slog.String("error", pred.Error))
		res.Status = models.RowStatusFailed
		res.Error = pred.Error
		return res
	}

	res.Status = models.RowStatusSuccess
	return res
}

// batchOwner attributes the batch to the first row's user.
func batchOwner(rows []models.RowInput) string {
	return userOrAnonymous(rows[0].UserID)
}

func userOrAnonymous(userID string) string {
	if userID == "" {
		return models.AnonymousUser
	}
	return userID
}
