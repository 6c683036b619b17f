package clients

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/spacesedan/sentiserve/config"
	"github.com/spacesedan/sentiserve/internal/models"
)

// ValkeyClient caches predictions by text so repeated requests for the
// same text skip inference.
type ValkeyClient struct {
	client valkey.Client
	opts   valkey.ClientOption
	ttl    time.Duration
	mu     sync.RWMutex
}

func valkeyOptions(cfg config.CacheConfig, password string) valkey.ClientOption {
	opts := valkey.ClientOption{
		InitAddress: []string{
			cfg.Address,
		},
		Password:         password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}

	if cfg.TLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}
	return opts
}

func connectValkey(opts valkey.ClientOption) (valkey.Client, error) {
	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func NewValkeyClient(cfg config.CacheConfig, password string) (*ValkeyClient, error) {
	opts := valkeyOptions(cfg, password)
	client, err := connectValkey(opts)
	if err != nil {
		return nil, err
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", cfg.Address))
	return &ValkeyClient{client: client, opts: opts, ttl: cfg.TTL()}, nil
}

func (vc *ValkeyClient) recreateClient() {
	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := connectValkey(vc.opts)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}
	vc.swap(client).Close()
	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
}

// Client returns the connection currently in use. It changes after a
// reconnect, so callers fetch it per command.
func (vc *ValkeyClient) Client() valkey.Client {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.client
}

// swap installs client and returns the one it replaced.
func (vc *ValkeyClient) swap(client valkey.Client) valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	old := vc.client
	vc.client = client
	return old
}

func (vc *ValkeyClient) Close() {
	if vc == nil {
		return
	}
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if vc.client != nil {
		vc.client.Close()
	}
}

func PredictionKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return VALKEY_PREDICTION_PREFIX + hex.EncodeToString(sum[:])
}

// GetPrediction returns a cached prediction for text. Any cache error is
// treated as a miss.
func (vc *ValkeyClient) GetPrediction(ctx context.Context, text string) (models.Prediction, bool) {
	var pred models.Prediction

	res := vc.DoWithRetry(ctx, vc.Client().B().Get().Key(PredictionKey(text)).Build(), MAX_RETRIES)
	if err := res.Error(); err != nil {
		if !valkey.IsValkeyNil(err) {
			slog.Warn("[ValkeyClient] Cache lookup failed", slog.String("error", err.Error()))
			if isConnectionError(err) {
				vc.recreateClient()
			}
		}
		return pred, false
	}

	raw, err := res.AsBytes()
	if err != nil {
		return pred, false
	}
	if err := json.Unmarshal(raw, &pred); err != nil {
		slog.Warn("[ValkeyClient] Dropping undecodable cache entry", slog.String("error", err.Error()))
		return pred, false
	}
	return pred, true
}

// SetPrediction stores a successful prediction. Error sentinels are never
// cached.
func (vc *ValkeyClient) SetPrediction(ctx context.Context, text string, pred models.Prediction) error {
	if pred.Failed() {
		return nil
	}
	data, err := json.Marshal(pred)
	if err != nil {
		return err
	}

	cmd := vc.Client().B().Set().Key(PredictionKey(text)).Value(string(data)).
		ExSeconds(int64(vc.ttl.Seconds())).Build()
	if err := vc.DoWithRetry(ctx, cmd, MAX_RETRIES).Error(); err != nil {
		if isConnectionError(err) {
			vc.recreateClient()
		}
		return fmt.Errorf("[ValkeyClient] failed to cache prediction: %w", err)
	}
	return nil
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	// pinned so the command survives being sent more than once
	completed = completed.Pin()
	for i := 0; i < retries; i++ {
		result = vc.Client().Do(ctx, completed)
		if err := result.Error(); err == nil || valkey.IsValkeyNil(err) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		time.Sleep(INITIAL_BACKOFF)
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
