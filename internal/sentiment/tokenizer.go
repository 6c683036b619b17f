package sentiment

import (
	"errors"
	"fmt"

	"github.com/daulet/tokenizers"
)

const (
	// MaxSequenceLength is the fixed input width of the classifier.
	MaxSequenceLength = 512
	bertPadID         = 0
)

// Encoding is a fixed-width model input.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
}

type Tokenizer interface {
	Encode(text string) (Encoding, error)
	Close() error
}

// HFTokenizer wraps a HuggingFace tokenizer.json definition.
type HFTokenizer struct {
	tk     *tokenizers.Tokenizer
	maxLen int
}

func NewHFTokenizer(path string) (*HFTokenizer, error) {
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}
	return &HFTokenizer{tk: tk, maxLen: MaxSequenceLength}, nil
}

func (t *HFTokenizer) Encode(text string) (Encoding, error) {
	ids, _ := t.tk.Encode(text, true)
	if len(ids) == 0 {
		return Encoding{}, errors.New("tokenizer produced no tokens")
	}
	return FitToLength(ids, t.maxLen, bertPadID), nil
}

func (t *HFTokenizer) Close() error {
	return t.tk.Close()
}

// FitToLength truncates or pads ids to exactly maxLen. Truncation keeps the
// trailing separator token. Padding positions get a zero attention mask.
func FitToLength(ids []uint32, maxLen int, padID int64) Encoding {
	if len(ids) > maxLen {
		last := ids[len(ids)-1]
		ids = append(ids[:maxLen-1:maxLen-1], last)
	}

	enc := Encoding{
		InputIDs:      make([]int64, maxLen),
		AttentionMask: make([]int64, maxLen),
	}
	for i := range enc.InputIDs {
		if i < len(ids) {
			enc.InputIDs[i] = int64(ids[i])
			enc.AttentionMask[i] = 1
			continue
		}
		enc.InputIDs[i] = padID
	}
	return enc
}
