package sentiment

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortMu sync.Mutex

func initONNXEnvironment(libraryPath string) error {
	ortMu.Lock()
	defer ortMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}
	slog.Info("[ONNXBackend] onnxruntime environment initialized")
	return nil
}

// ONNXBackend runs a sequence-classification model exported to ONNX. Input
// and output tensors are allocated once at the fixed [1, MaxSequenceLength]
// shape and reused, so calls are serialized.
type ONNXBackend struct {
	mu            sync.Mutex
	tokenizer     Tokenizer
	session       *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	logits        *ort.Tensor[float32]
}

func NewONNXBackend(modelPath string, tokenizer Tokenizer, libraryPath string) (*ONNXBackend, error) {
	if err := initONNXEnvironment(libraryPath); err != nil {
		return nil, err
	}

	inputShape := ort.NewShape(1, MaxSequenceLength)
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate input_ids tensor: %w", err)
	}
	attentionMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		inputIDs.Destroy()
		return nil, fmt.Errorf("failed to allocate attention_mask tensor: %w", err)
	}
	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		inputIDs.Destroy()
		attentionMask.Destroy()
		return nil, fmt.Errorf("failed to allocate logits tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attentionMask},
		[]ort.Value{logits},
		nil)
	if err != nil {
		inputIDs.Destroy()
		attentionMask.Destroy()
		logits.Destroy()
		return nil, fmt.Errorf("failed to create onnx session for %s: %w", modelPath, err)
	}

	slog.Info("[ONNXBackend] Session created", slog.String("model", modelPath))
	return &ONNXBackend{
		tokenizer:     tokenizer,
		session:       session,
		inputIDs:      inputIDs,
		attentionMask: attentionMask,
		logits:        logits,
	}, nil
}

func (b *ONNXBackend) Logits(text string) ([]float64, error) {
	enc, err := b.tokenizer.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	copy(b.inputIDs.GetData(), enc.InputIDs)
	copy(b.attentionMask.GetData(), enc.AttentionMask)

	if err := b.session.Run(); err != nil {
		return nil, fmt.Errorf("forward pass failed: %w", err)
	}

	raw := b.logits.GetData()
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

func (b *ONNXBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return errors.Join(
		b.session.Destroy(),
		b.inputIDs.Destroy(),
		b.attentionMask.Destroy(),
		b.logits.Destroy(),
		b.tokenizer.Close(),
	)
}
