package sentiment

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/spacesedan/sentiserve/internal/models"
)

// HugotBackend runs the model through a hugot text-classification
// pipeline. hugot returns the winning class probability rather than raw
// logits, so Logits reports log-probabilities, which the engine's softmax
// maps back to the same distribution.
type HugotBackend struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
}

func NewHugotBackend(modelDir, libraryPath string) (*HugotBackend, error) {
	var opts []options.WithOption
	if libraryPath != "" {
		opts = append(opts, options.WithOnnxLibraryPath(libraryPath))
	}

	session, err := hugot.NewORTSession(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelDir,
		Name:      "sentimentPipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("failed to initialize sentiment pipeline: %w", err)
	}

	slog.Info("[HugotBackend] Pipeline ready", slog.String("model", modelDir))
	return &HugotBackend{session: session, pipeline: pipeline}, nil
}

func (b *HugotBackend) Logits(text string) ([]float64, error) {
	out, err := b.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("pipeline run failed: %w", err)
	}
	if len(out.ClassificationOutputs) == 0 || len(out.ClassificationOutputs[0]) == 0 {
		return nil, errors.New("pipeline returned no classification")
	}

	top := out.ClassificationOutputs[0][0]
	return LogitsFromTopClass(top.Label, float64(top.Score))
}

func (b *HugotBackend) Close() error {
	return b.session.Destroy()
}

// LogitsFromTopClass rebuilds a two-class log-probability vector from the
// winning label and its probability.
func LogitsFromTopClass(label string, p float64) ([]float64, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, fmt.Errorf("probability %v out of range", p)
	}

	idx, err := classIndex(label)
	if err != nil {
		return nil, err
	}

	var probs [2]float64
	probs[idx] = p
	probs[1-idx] = 1 - p
	return []float64{math.Log(probs[0]), math.Log(probs[1])}, nil
}

func classIndex(label string) (int, error) {
	switch strings.ToUpper(label) {
	case string(models.LabelNegative), "LABEL_0":
		return 0, nil
	case string(models.LabelPositive), "LABEL_1":
		return 1, nil
	default:
		return 0, fmt.Errorf("unknown class label %q", label)
	}
}
