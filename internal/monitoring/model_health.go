package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spacesedan/sentiserve/internal/service"
)

const (
	HEALTHCHECK_INTERVAL = 15 * time.Second
	probeText            = "health check"
)

// MonitorModelHealth runs a probe inference on every tick and records
// whether it produced a usable prediction.
func MonitorModelHealth(ctx context.Context, models service.ModelProvider, healthy *atomic.Bool) {
	ticker := time.NewTicker(HEALTHCHECK_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			isHealthy := ProbeModel(ctx, models)
			if healthy.Swap(isHealthy) != isHealthy && !isHealthy {
				slog.Warn("[HealthCheck] Model is unhealthy")
			}
		}
	}
}

func ProbeModel(ctx context.Context, models service.ModelProvider) bool {
	engine, err := models.EnsureLoaded(ctx)
	if err != nil {
		slog.Debug("[HealthCheck] Model not available", slog.String("error", err.Error()))
		return false
	}
	return !engine.Infer(probeText).Failed()
}
