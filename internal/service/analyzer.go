package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/sentiserve/internal/apperrors"
	"github.com/spacesedan/sentiserve/internal/db"
	"github.com/spacesedan/sentiserve/internal/models"
	"github.com/spacesedan/sentiserve/internal/sentiment"
)

type Analyzer struct {
	engines ModelProvider
	store   ResultWriter
	cache   PredictionCache
	now     func() time.Time
}

// NewAnalyzer wires the single-text path. cache may be nil.
func NewAnalyzer(engines ModelProvider, store ResultWriter, cache PredictionCache) *Analyzer {
	return &Analyzer{engines: engines, store: store, cache: cache, now: time.Now}
}

// Analyze scores one text and records the outcome. The record is written
// even when inference yields the ERROR sentinel; that case is then
// reported as an inference failure.
func (a *Analyzer) Analyze(ctx context.Context, req models.AnalyzeRequest) (models.AnalyzeResponse, error) {
	var resp models.AnalyzeResponse

	if err := sentiment.ValidateText(req.Text); err != nil {
		return resp, err
	}
	userID := userOrAnonymous(req.UserID)

	pred, err := a.predict(ctx, req.Text)
	if err != nil {
		return resp, err
	}

	now := a.now()
	rec := models.AnalysisRecord{
		UserID:     userID,
		Text:       req.Text,
		Sentiment:  pred.Label,
		Confidence: pred.Confidence,
		Error:      pred.Error,
		Timestamp:  now.Unix(),
		CreatedAt:  now.UTC().Format(time.RFC3339),
		SortKey:    db.NextAnalysisKey(now),
	}

	status, err := a.store.SaveAnalysis(ctx, rec)
	if err != nil {
		slog.Warn("[Analyzer] Failed to save analysis",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	if pred.Failed() {
		return resp, fmt.Errorf("%w: %s", apperrors.ErrInference, pred.Error)
	}

	resp = models.AnalyzeResponse{
		Sentiment:    pred.Label,
		Confidence:   pred.Confidence,
		Timestamp:    now.Unix(),
		TextPreview:  sentiment.Preview(req.Text),
		DBSaveStatus: string(status),
	}
	return resp, nil
}

func (a *Analyzer) predict(ctx context.Context, text string) (models.Prediction, error) {
	if a.cache != nil {
		if pred, ok := a.cache.GetPrediction(ctx, text); ok {
			slog.Debug("[Analyzer] Prediction cache hit")
			return pred, nil
		}
	}

	engine, err := a.engines.EnsureLoaded(ctx)
	if err != nil {
		return models.Prediction{}, err
	}

	pred := engine.Infer(text)
	if a.cache != nil && !pred.Failed() {
		if err := a.cache.SetPrediction(ctx, text, pred); err != nil {
			slog.Warn("[Analyzer] Failed to cache prediction", slog.String("error", err.Error()))
		}
	}
	return pred, nil
}
