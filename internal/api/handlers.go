package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/spacesedan/sentiserve/internal/apperrors"
	"github.com/spacesedan/sentiserve/internal/history"
	"github.com/spacesedan/sentiserve/internal/models"
	"github.com/spacesedan/sentiserve/internal/service"
)

const (
	msgInternal      = "Internal server error"
	msgBatchFailed   = "Batch processing failed"
	msgHistoryFailed = "Failed to retrieve history"
	msgBatchNotFound = "Batch not found"
	msgInvalidJSON   = "Request body must be valid JSON"
	msgInvalidLimit  = "limit must be an integer"
)

// Handlers turns decoded requests into a status code and a JSON payload.
// The Lambda and HTTP front ends share them.
type Handlers struct {
	analyzer *service.Analyzer
	batches  *service.BatchService
	history  *service.HistoryService
}

func NewHandlers(analyzer *service.Analyzer, batches *service.BatchService, history *service.HistoryService) *Handlers {
	return &Handlers{analyzer: analyzer, batches: batches, history: history}
}

type result struct {
	status  int
	payload any
}

func (h *Handlers) Analyze(ctx context.Context, body []byte) result {
	return recovered(msgInternal, func() result {
		var req models.AnalyzeRequest
		if err := decodeBody(body, &req); err != nil {
			return failure(err, msgInternal)
		}

		resp, err := h.analyzer.Analyze(ctx, req)
		if err != nil {
			return failure(err, msgInternal)
		}
		return result{status: http.StatusOK, payload: resp}
	})
}

func (h *Handlers) Batch(ctx context.Context, body []byte) result {
	return recovered(msgBatchFailed, func() result {
		var req models.BatchRequest
		if err := decodeBody(body, &req); err != nil {
			return failure(err, msgBatchFailed)
		}

		resp, err := h.batches.Process(ctx, req)
		if err != nil {
			return failure(err, msgBatchFailed)
		}
		return result{status: http.StatusOK, payload: resp}
	})
}

// History serves GET requests keyed by query parameters.
func (h *Handlers) History(ctx context.Context, params map[string]string) result {
	return recovered(msgHistoryFailed, func() result {
		req, err := ParseHistoryQuery(params)
		if err != nil {
			return failure(err, msgHistoryFailed)
		}

		resp, err := h.history.Get(ctx, req)
		if errors.Is(err, apperrors.ErrNotFound) {
			return result{
				status:  http.StatusOK,
				payload: models.ErrorResponse{Error: msgBatchNotFound, BatchID: req.BatchID},
			}
		}
		if err != nil {
			return failure(err, msgHistoryFailed)
		}
		return result{status: http.StatusOK, payload: resp}
	})
}

// ParseHistoryQuery validates the history query once; the limit comes back
// clamped.
func ParseHistoryQuery(params map[string]string) (models.HistoryRequest, error) {
	req := models.HistoryRequest{
		UserID:  params["user_id"],
		BatchID: params["batch_id"],
	}

	var raw *int
	if s, ok := params["limit"]; ok && s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return req, apperrors.Validation(msgInvalidLimit)
		}
		raw = &n
	}
	req.Limit = history.ClampLimit(raw)
	return req, nil
}

func decodeBody(body []byte, out any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Validation(msgInvalidJSON)
	}
	return nil
}

// failure maps an error to its response. Validation messages are passed
// through; anything else gets the generic message.
func failure(err error, generic string) result {
	if msg, ok := apperrors.PublicMessage(err); ok {
		return result{status: http.StatusBadRequest, payload: models.ErrorResponse{Error: msg}}
	}

	slog.Error("[API] Request failed", slog.String("error", err.Error()))
	return result{status: http.StatusInternalServerError, payload: models.ErrorResponse{Error: generic}}
}

func recovered(generic string, fn func() result) (res result) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[API] Recovered from panic",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			res = result{status: http.StatusInternalServerError, payload: models.ErrorResponse{Error: generic}}
		}
	}()
	return fn()
}
