package service

import (
	"context"

	"github.com/spacesedan/sentiserve/internal/db"
	"github.com/spacesedan/sentiserve/internal/models"
	"github.com/spacesedan/sentiserve/internal/sentiment"
)

// ModelProvider hands out the resident inference engine, loading it on
// first use.
type ModelProvider interface {
	EnsureLoaded(ctx context.Context) (*sentiment.Engine, error)
}

// PredictionCache remembers predictions by input text.
type PredictionCache interface {
	GetPrediction(ctx context.Context, text string) (models.Prediction, bool)
	SetPrediction(ctx context.Context, text string, pred models.Prediction) error
}

type ResultWriter interface {
	SaveAnalysis(ctx context.Context, rec models.AnalysisRecord) (db.WriteStatus, error)
	SaveBatch(ctx context.Context, job models.BatchJob, rows []models.BatchRowResult) (db.WriteStatus, error)
}

func userOrAnonymous(userID string) string {
	if userID == "" {
		return models.AnonymousUser
	}
	return userID
}
