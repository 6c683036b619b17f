package modelcache

import (
	"fmt"
	"path/filepath"

	"github.com/spacesedan/sentiserve/config"
	"github.com/spacesedan/sentiserve/internal/sentiment"
)

const (
	TokenizerFile   = "tokenizer.json"
	ModelFile       = "model.onnx"
	ModelConfigFile = "config.json"
)

func RequiredFiles(backend string) []string {
	switch backend {
	case config.ModelBackendONNX:
		return []string{TokenizerFile, ModelFile}
	case config.ModelBackendHugot:
		// hugot reads class labels from config.json
		return []string{TokenizerFile, ModelFile, ModelConfigFile}
	default:
		return nil
	}
}

func LoaderFor(cfg config.ModelConfig) (Loader, error) {
	switch cfg.Backend {
	case config.ModelBackendONNX:
		return func(dir string) (sentiment.Backend, error) {
			tk, err := sentiment.NewHFTokenizer(filepath.Join(dir, TokenizerFile))
			if err != nil {
				return nil, err
			}
			backend, err := sentiment.NewONNXBackend(filepath.Join(dir, ModelFile), tk, cfg.OnnxLibrary)
			if err != nil {
				tk.Close()
				return nil, err
			}
			return backend, nil
		}, nil
	case config.ModelBackendHugot:
		return func(dir string) (sentiment.Backend, error) {
			return sentiment.NewHugotBackend(dir, cfg.OnnxLibrary)
		}, nil
	case config.ModelBackendVader:
		return func(string) (sentiment.Backend, error) {
			return sentiment.NewVaderBackend(), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}

// SourceFor prefers the model bucket and falls back to the hub repository.
func SourceFor(cfg config.ModelConfig, client S3API) ArtifactSource {
	switch {
	case cfg.Bucket != "" && client != nil:
		return &S3Source{Client: client, Bucket: cfg.Bucket, Prefix: cfg.Key}
	case cfg.HubRepo != "":
		return &HubSource{Repo: cfg.HubRepo}
	default:
		return nil
	}
}

func NewFromConfig(cfg config.ModelConfig, client S3API) (*Cache, error) {
	loader, err := LoaderFor(cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg.Dir, RequiredFiles(cfg.Backend), SourceFor(cfg, client), loader), nil
}
