package modelcache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spacesedan/sentiserve/internal/apperrors"
	"github.com/spacesedan/sentiserve/internal/sentiment"
)

// ArtifactSource copies model artifacts into a local directory.
type ArtifactSource interface {
	Fetch(ctx context.Context, dir string) error
}

// Loader builds an inference backend from a directory of artifacts.
type Loader func(dir string) (sentiment.Backend, error)

// Cache holds the process-wide inference engine. The first EnsureLoaded
// call fetches missing artifacts and loads them; later calls return the
// resident engine. Concurrent first calls wait on the same load.
type Cache struct {
	dir      string
	required []string
	source   ArtifactSource
	loader   Loader

	mu     sync.Mutex
	engine *sentiment.Engine
}

func New(dir string, required []string, source ArtifactSource, loader Loader) *Cache {
	return &Cache{
		dir:      dir,
		required: required,
		source:   source,
		loader:   loader,
	}
}

func (c *Cache) EnsureLoaded(ctx context.Context) (*sentiment.Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine != nil {
		return c.engine, nil
	}

	start := time.Now()
	slog.Info("[ModelCache] Loading sentiment analysis model...", slog.String("dir", c.dir))

	if missing := c.missingFiles(); len(missing) > 0 {
		if c.source == nil {
			return nil, fmt.Errorf("%w: missing %v and no artifact source configured",
				apperrors.ErrModelUnavailable, missing)
		}

		slog.Info("[ModelCache] Model not found locally, downloading...",
			slog.Any("missing", missing))
		if err := os.MkdirAll(c.dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("%w: failed to create model directory: %v", apperrors.ErrModelUnavailable, err)
		}
		if err := c.source.Fetch(ctx, c.dir); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrModelUnavailable, err)
		}
		if missing := c.missingFiles(); len(missing) > 0 {
			return nil, fmt.Errorf("%w: files still missing after fetch: %v",
				apperrors.ErrModelUnavailable, missing)
		}
	}

	backend, err := c.loader(c.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrModelUnavailable, err)
	}

	c.engine = sentiment.NewEngine(backend)
	slog.Info("[ModelCache] Model loaded successfully", slog.Duration("elapsed", time.Since(start)))
	return c.engine, nil
}

func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine != nil
}

// Close releases the resident engine, if any.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return nil
	}
	err := c.engine.Close()
	c.engine = nil
	return err
}

func (c *Cache) missingFiles() []string {
	var missing []string
	for _, name := range c.required {
		info, err := os.Stat(filepath.Join(c.dir, name))
		if err != nil || info.IsDir() || info.Size() == 0 {
			missing = append(missing, name)
		}
	}
	return missing
}
