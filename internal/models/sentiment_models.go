package models

type Label string

const (
	LabelNegative Label = "NEGATIVE"
	LabelPositive Label = "POSITIVE"
	LabelError    Label = "ERROR"
)

// ClassLabels maps the classifier's output index to its label.
var ClassLabels = [2]Label{LabelNegative, LabelPositive}

// Prediction is the result of a single inference. A Prediction with
// Label == LabelError is a sentinel: Error holds the reason and
// Confidence is zero.
type Prediction struct {
	Label         Label      `json:"sentiment"`
	Confidence    float64    `json:"confidence"`
	Probabilities [2]float64 `json:"probabilities"`
	Error         string     `json:"error,omitempty"`
}

func (p Prediction) Failed() bool {
	return p.Label == LabelError
}

func ErrorPrediction(msg string) Prediction {
	return Prediction{Label: LabelError, Confidence: 0, Error: msg}
}
