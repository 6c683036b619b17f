package clients

import "time"

const (
	MAX_RETRIES     = 3
	INITIAL_BACKOFF = 250 * time.Millisecond

	VALKEY_PREDICTION_PREFIX = "sentiserve:prediction:"
)
