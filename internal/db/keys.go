package db

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	userPrefix     = "USER#"
	batchPrefix    = "BATCH#"
	AnalysisPrefix = "ANALYSIS#"
	RowPrefix      = "ROW#"
	BatchPrefix    = batchPrefix
	SummarySK      = "SUMMARY"

	rowIndexWidth = 6
	// MaxBatchRows is the largest batch whose row keys still sort
	// lexicographically in numeric order.
	MaxBatchRows = 999999
)

func UserPK(userID string) string { return userPrefix + userID }

func BatchPK(batchID string) string { return batchPrefix + batchID }

func BatchLinkSK(batchID string) string { return batchPrefix + batchID }

func RowSK(index int) string {
	return fmt.Sprintf("%s%0*d", RowPrefix, rowIndexWidth, index)
}

func ParseRowSK(sk string) (int, error) {
	if !strings.HasPrefix(sk, RowPrefix) {
		return 0, fmt.Errorf("not a row key: %q", sk)
	}
	return strconv.Atoi(strings.TrimPrefix(sk, RowPrefix))
}

func AnalysisSK(unixNano int64) string {
	return fmt.Sprintf("%s%019d", AnalysisPrefix, unixNano)
}

// analysisClock hands out strictly increasing nanosecond stamps so two
// analyses saved for one user within the same clock tick keep distinct keys.
var analysisClock = &monotonicClock{}

type monotonicClock struct {
	mu   sync.Mutex
	last int64
}

func (c *monotonicClock) next(t time.Time) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := t.UnixNano()
	if n <= c.last {
		n = c.last + 1
	}
	c.last = n
	return n
}

// NextAnalysisKey returns the sort key for an analysis created at t.
func NextAnalysisKey(t time.Time) string {
	return AnalysisSK(analysisClock.next(t))
}
