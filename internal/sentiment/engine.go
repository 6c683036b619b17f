package sentiment

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/spacesedan/sentiserve/internal/models"
	"gonum.org/v1/gonum/floats"
)

// Backend runs the numeric part of inference and returns one raw logit per
// class, ordered as models.ClassLabels.
type Backend interface {
	Logits(text string) ([]float64, error)
	Close() error
}

// Engine turns backend logits into a labelled prediction. It never
// returns an error: failures come back as an ERROR sentinel prediction.
type Engine struct {
	backend Backend
}

func NewEngine(backend Backend) *Engine {
	return &Engine{backend: backend}
}

func (e *Engine) Infer(text string) (pred models.Prediction) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[InferenceEngine] Recovered from panic during inference",
				slog.Any("panic", r))
			pred = models.ErrorPrediction(fmt.Sprintf("inference panic: %v", r))
		}
	}()

	logits, err := e.backend.Logits(text)
	if err != nil {
		slog.Error("[InferenceEngine] Error during inference", slog.String("error", err.Error()))
		return models.ErrorPrediction(err.Error())
	}
	if len(logits) != len(models.ClassLabels) {
		return models.ErrorPrediction(fmt.Sprintf("expected %d logits, got %d", len(models.ClassLabels), len(logits)))
	}

	probs := Softmax(logits)
	for _, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return models.ErrorPrediction("model produced non-finite probabilities")
		}
	}

	idx := floats.MaxIdx(probs)
	pred = models.Prediction{
		Label:         models.ClassLabels[idx],
		Confidence:    probs[idx],
		Probabilities: [2]float64{probs[0], probs[1]},
	}

	slog.Debug("[InferenceEngine] Prediction",
		slog.String("sentiment", string(pred.Label)),
		slog.Float64("confidence", pred.Confidence))
	return pred
}

func (e *Engine) Close() error {
	return e.backend.Close()
}

// Softmax normalizes logits into probabilities. The largest logit is
// subtracted before exponentiating so large inputs cannot overflow.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	out := make([]float64, len(logits))
	copy(out, logits)

	floats.AddConst(-floats.Max(out), out)
	for i, v := range out {
		out[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}
