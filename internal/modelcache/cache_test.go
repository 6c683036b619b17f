package modelcache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spacesedan/sentiserve/config"
	"github.com/spacesedan/sentiserve/internal/apperrors"
	"github.com/spacesedan/sentiserve/internal/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct{}

func (stubBackend) Logits(string) ([]float64, error) { return []float64{0, 1}, nil }
func (stubBackend) Close() error                     { return nil }

type writingSource struct {
	files   []string
	fetches atomic.Int32
	err     error
}

func (w *writingSource) Fetch(_ context.Context, dir string) error {
	w.fetches.Add(1)
	if w.err != nil {
		return w.err
	}
	for _, name := range w.files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("artifact"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func stubLoader(loads *atomic.Int32) Loader {
	return func(string) (sentiment.Backend, error) {
		loads.Add(1)
		return stubBackend{}, nil
	}
}

func TestEnsureLoaded_FetchesOnce(t *testing.T) {
	dir := t.TempDir()
	source := &writingSource{files: []string{TokenizerFile, ModelFile}}
	var loads atomic.Int32
	cache := New(dir, []string{TokenizerFile, ModelFile}, source, stubLoader(&loads))

	first, err := cache.EnsureLoaded(context.Background())
	require.NoError(t, err)
	second, err := cache.EnsureLoaded(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), source.fetches.Load())
	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, cache.Loaded())
}

func TestEnsureLoaded_SkipsFetchWhenPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TokenizerFile), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFile), []byte("onnx"), 0o644))

	source := &writingSource{}
	var loads atomic.Int32
	cache := New(dir, []string{TokenizerFile, ModelFile}, source, stubLoader(&loads))

	_, err := cache.EnsureLoaded(context.Background())
	require.NoError(t, err)
	assert.Zero(t, source.fetches.Load())
}

func TestEnsureLoaded_ConcurrentFirstCalls(t *testing.T) {
	dir := t.TempDir()
	source := &writingSource{files: []string{ModelFile}}
	var loads atomic.Int32
	cache := New(dir, []string{ModelFile}, source, stubLoader(&loads))

	var wg sync.WaitGroup
	engines := make([]*sentiment.Engine, 16)
	for i := range engines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			engine, err := cache.EnsureLoaded(context.Background())
			assert.NoError(t, err)
			engines[i] = engine
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), source.fetches.Load())
	assert.Equal(t, int32(1), loads.Load())
	for _, e := range engines {
		assert.Same(t, engines[0], e)
	}
}

func TestEnsureLoaded_Unavailable(t *testing.T) {
	t.Run("fetch error", func(t *testing.T) {
		source := &writingSource{err: errors.New("bucket unreachable")}
		var loads atomic.Int32
		cache := New(t.TempDir(), []string{ModelFile}, source, stubLoader(&loads))

		_, err := cache.EnsureLoaded(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrModelUnavailable)
		assert.False(t, cache.Loaded())
	})

	t.Run("still missing after fetch", func(t *testing.T) {
		source := &writingSource{files: []string{TokenizerFile}}
		var loads atomic.Int32
		cache := New(t.TempDir(), []string{TokenizerFile, ModelFile}, source, stubLoader(&loads))

		_, err := cache.EnsureLoaded(context.Background())
		assert.ErrorIs(t, err, apperrors.ErrModelUnavailable)
		assert.Zero(t, loads.Load())
	})

	t.Run("no source", func(t *testing.T) {
		var loads atomic.Int32
		cache := New(t.TempDir(), []string{ModelFile}, nil, stubLoader(&loads))

		_, err := cache.EnsureLoaded(context.Background())
		assert.ErrorIs(t, err, apperrors.ErrModelUnavailable)
	})

	t.Run("load error is retried", func(t *testing.T) {
		attempts := 0
		loader := func(string) (sentiment.Backend, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("corrupt weights")
			}
			return stubBackend{}, nil
		}
		cache := New(t.TempDir(), nil, nil, loader)

		_, err := cache.EnsureLoaded(context.Background())
		assert.ErrorIs(t, err, apperrors.ErrModelUnavailable)

		_, err = cache.EnsureLoaded(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})
}

func TestClose(t *testing.T) {
	var loads atomic.Int32
	cache := New(t.TempDir(), nil, nil, stubLoader(&loads))

	require.NoError(t, cache.Close())
	_, err := cache.EnsureLoaded(context.Background())
	require.NoError(t, err)
	require.NoError(t, cache.Close())
	assert.False(t, cache.Loaded())
}

type fakeS3 struct {
	objects map[string]string
	gets    []string
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var contents []s3types.Object
	for key := range f.objects {
		contents = append(contents, s3types.Object{Key: aws.String(key)})
	}
	return &s3.ListObjectsV2Output{Contents: contents, IsTruncated: aws.Bool(false)}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.gets = append(f.gets, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(body))}, nil
}

func TestS3Source_Fetch(t *testing.T) {
	dir := t.TempDir()
	client := &fakeS3{objects: map[string]string{
		"models/distilbert-sentiment/":               "",
		"models/distilbert-sentiment/tokenizer.json": `{"model":{}}`,
		"models/distilbert-sentiment/model.onnx":     "weights",
		"models/distilbert-sentiment/onnx/extra.bin": "x",
	}}
	source := &S3Source{Client: client, Bucket: "model-bucket", Prefix: "models/distilbert-sentiment/"}

	require.NoError(t, source.Fetch(context.Background(), dir))

	data, err := os.ReadFile(filepath.Join(dir, "model.onnx"))
	require.NoError(t, err)
	assert.Equal(t, "weights", string(data))

	_, err = os.Stat(filepath.Join(dir, "onnx", "extra.bin"))
	assert.NoError(t, err)
	assert.Len(t, client.gets, 3)
}

func TestSafeJoin(t *testing.T) {
	_, err := safeJoin("/tmp/model", "../../etc/passwd")
	assert.Error(t, err)

	p, err := safeJoin("/tmp/model", "onnx/model.onnx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/model", "onnx", "model.onnx"), p)
}

func TestNewFromConfig(t *testing.T) {
	cache, err := NewFromConfig(config.ModelConfig{Backend: config.ModelBackendVader, Dir: t.TempDir()}, nil)
	require.NoError(t, err)

	engine, err := cache.EnsureLoaded(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, engine)

	_, err = NewFromConfig(config.ModelConfig{Backend: "torch"}, nil)
	assert.Error(t, err)

	assert.Nil(t, SourceFor(config.ModelConfig{}, nil))
	assert.IsType(t, &HubSource{}, SourceFor(config.ModelConfig{HubRepo: "org/model"}, nil))
	assert.IsType(t, &S3Source{}, SourceFor(config.ModelConfig{Bucket: "b"}, &fakeS3{}))
}
