package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacesedan/sentiserve/internal/models"
)

// Notifier announces that a batch has finished. Delivery is best effort.
type Notifier interface {
	BatchCompleted(ctx context.Context, c models.BatchCompletion) error
	Close()
}

type NopNotifier struct{}

func (NopNotifier) BatchCompleted(_ context.Context, c models.BatchCompletion) error {
	slog.Info("[Notifier] No notifier configured - skipping notification",
		slog.String("batch_id", c.BatchID))
	return nil
}

func (NopNotifier) Close() {}

func Subject(c models.BatchCompletion) string {
	return fmt.Sprintf("Batch %s Processing Complete", c.BatchID)
}

func Body(c models.BatchCompletion) string {
	return fmt.Sprintf(`
Batch Processing Complete

Batch ID: %s
Total Rows: %d
Successful: %d
Failed: %d
Completed At: %s
`, c.BatchID, c.TotalRows, c.SuccessCount, c.FailedCount, c.CompletedAt)
}
