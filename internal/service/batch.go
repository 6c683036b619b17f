package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spacesedan/sentiserve/internal/apperrors"
	"github.com/spacesedan/sentiserve/internal/batch"
	"github.com/spacesedan/sentiserve/internal/models"
	"github.com/spacesedan/sentiserve/internal/notify"
)

// PreviewRows is how many row results a batch response carries.
const PreviewRows = 10

const notifyTimeout = 10 * time.Second

type ObjectOpener interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

type BatchService struct {
	engines       ModelProvider
	store         ResultWriter
	objects       ObjectOpener
	notifier      notify.Notifier
	defaultBucket string
	newID         func() string
}

func NewBatchService(engines ModelProvider, store ResultWriter, objects ObjectOpener, notifier notify.Notifier, defaultBucket string) *BatchService {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &BatchService{
		engines:       engines,
		store:         store,
		objects:       objects,
		notifier:      notifier,
		defaultBucket: defaultBucket,
		newID:         uuid.NewString,
	}
}

// Process runs a batch from inline texts or from a CSV object.
func (s *BatchService) Process(ctx context.Context, req models.BatchRequest) (models.BatchResponse, error) {
	var resp models.BatchResponse

	rows, err := s.rows(ctx, req)
	if err != nil {
		return resp, err
	}

	engine, err := s.engines.EnsureLoaded(ctx)
	if err != nil {
		return resp, err
	}

	batchID := req.BatchID
	if batchID == "" {
		batchID = s.newID()
	}

	result, err := batch.NewRunner(engine).Run(batchID, rows)
	if err != nil {
		return resp, err
	}

	status, err := s.store.SaveBatch(ctx, result.Job, result.Rows)
	if err != nil {
		slog.Error("[BatchService] Failed to save batch results",
			slog.String("batch_id", batchID),
			slog.String("error", err.Error()))
	}

	s.notify(ctx, result.Completion())

	resp = models.BatchResponse{
		BatchID:      batchID,
		TotalRows:    result.Job.TotalRows,
		SuccessCount: result.Job.SuccessCount,
		FailedCount:  result.Job.FailedCount,
		Status:       result.Job.Status,
		Message:      result.Message(),
		DBSaveStatus: string(status),
		Results:      batch.Preview(result.Rows, PreviewRows),
	}
	return resp, nil
}

func (s *BatchService) rows(ctx context.Context, req models.BatchRequest) ([]models.RowInput, error) {
	if !req.FromObject() {
		if len(req.Texts) == 0 {
			return nil, apperrors.Validation("Either texts or a CSV key is required")
		}
		if len(req.Texts) > batch.MaxRows {
			return nil, apperrors.Validation("Batch has %d rows, maximum is %d", len(req.Texts), batch.MaxRows)
		}
		return batch.RowsFromTexts(req.Texts, req.UserID), nil
	}

	if s.objects == nil {
		return nil, apperrors.Validation("CSV uploads are not available")
	}
	bucket := req.Bucket
	if bucket == "" {
		bucket = s.defaultBucket
	}
	if bucket == "" {
		return nil, apperrors.Validation("CSV bucket is required")
	}

	body, err := s.objects.Open(ctx, bucket, req.Key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	rows, err := batch.ParseCSV(body)
	if err != nil {
		return nil, err
	}
	slog.Info("[BatchService] Loaded rows from CSV",
		slog.String("key", req.Key),
		slog.Int("rows", len(rows)))
	return rows, nil
}

// notify publishes the completion before the response is returned. A
// failed or panicking publish is logged and never fails the batch.
func (s *BatchService) notify(ctx context.Context, c models.BatchCompletion) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[BatchService] Notifier panicked",
				slog.String("batch_id", c.BatchID),
				slog.Any("panic", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.BatchCompleted(ctx, c); err != nil {
		slog.Error("[BatchService] Error sending notification",
			slog.String("batch_id", c.BatchID),
			slog.String("error", err.Error()))
	}
}
