package models

const (
	BatchStatusCompleted = "COMPLETED"

	RowStatusSuccess = "success"
	RowStatusFailed  = "failed"

	AnonymousUser = "anonymous"
)

// AnalysisRecord is persisted for every single-text request that completes.
type AnalysisRecord struct {
	UserID     string  `json:"user_id" dynamodbav:"user_id"`
	Text       string  `json:"text" dynamodbav:"text"`
	Sentiment  Label   `json:"sentiment" dynamodbav:"sentiment"`
	Confidence float64 `json:"confidence" dynamodbav:"confidence"`
	Error      string  `json:"error,omitempty" dynamodbav:"error,omitempty"`
	Timestamp  int64   `json:"timestamp" dynamodbav:"timestamp"`
	CreatedAt  string  `json:"created_at" dynamodbav:"created_at"`
	SortKey    string  `json:"-" dynamodbav:"-"`
}

type BatchJob struct {
	BatchID      string `json:"batch_id" dynamodbav:"batch_id"`
	UserID       string `json:"user_id" dynamodbav:"user_id"`
	TotalRows    int    `json:"total_rows" dynamodbav:"total_rows"`
	SuccessCount int    `json:"success_count" dynamodbav:"success_count"`
	FailedCount  int    `json:"failed_count" dynamodbav:"failed_count"`
	Status       string `json:"status" dynamodbav:"status"`
	Timestamp    int64  `json:"timestamp" dynamodbav:"timestamp"`
	CompletedAt  string `json:"completed_at" dynamodbav:"completed_at"`
}

type BatchRowResult struct {
	BatchID    string  `json:"batch_id" dynamodbav:"batch_id"`
	Row        int     `json:"row" dynamodbav:"row"`
	Text       string  `json:"text" dynamodbav:"text"`
	UserID     string  `json:"user_id" dynamodbav:"user_id"`
	Sentiment  Label   `json:"sentiment" dynamodbav:"sentiment"`
	Confidence float64 `json:"confidence" dynamodbav:"confidence"`
	Status     string  `json:"status" dynamodbav:"status"`
	Error      string  `json:"error,omitempty" dynamodbav:"error,omitempty"`
	Timestamp  int64   `json:"timestamp" dynamodbav:"timestamp"`
}

// UserBatchLink mirrors a BatchJob's summary under the owning user's
// partition so a timeline read needs no secondary index.
type UserBatchLink struct {
	UserID       string `json:"user_id" dynamodbav:"user_id"`
	BatchID      string `json:"batch_id" dynamodbav:"batch_id"`
	TotalRows    int    `json:"total_rows" dynamodbav:"total_rows"`
	SuccessCount int    `json:"success_count" dynamodbav:"success_count"`
	FailedCount  int    `json:"failed_count" dynamodbav:"failed_count"`
	Status       string `json:"status" dynamodbav:"status"`
	Timestamp    int64  `json:"timestamp" dynamodbav:"timestamp"`
	CompletedAt  string `json:"completed_at" dynamodbav:"completed_at"`
}

func LinkFromJob(job BatchJob) UserBatchLink {
	return UserBatchLink{
		UserID:       job.UserID,
		BatchID:      job.BatchID,
		TotalRows:    job.TotalRows,
		SuccessCount: job.SuccessCount,
		FailedCount:  job.FailedCount,
		Status:       job.Status,
		Timestamp:    job.Timestamp,
		CompletedAt:  job.CompletedAt,
	}
}

type RowInput struct {
	Index  int    `json:"row"`
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

type (
	EntryKind     string
	TimelineEntry struct {
		Kind       EntryKind `json:"type"`
		Timestamp  int64     `json:"timestamp"`
		CreatedAt  string    `json:"created_at"`
		Text       string    `json:"text,omitempty"`
		Sentiment  Label     `json:"sentiment,omitempty"`
		Confidence float64   `json:"confidence,omitempty"`

		BatchID      string `json:"batch_id,omitempty"`
		TotalRows    int    `json:"total_rows,omitempty"`
		SuccessCount int    `json:"success_count,omitempty"`
		FailedCount  int    `json:"failed_count,omitempty"`
		Status       string `json:"status,omitempty"`

		sortKey string
	}
)

const (
	EntryAnalysis EntryKind = "analysis"
	EntryBatch    EntryKind = "batch"
)

func EntryFromAnalysis(r AnalysisRecord) TimelineEntry {
	return TimelineEntry{
		Kind:       EntryAnalysis,
		Timestamp:  r.Timestamp,
		CreatedAt:  r.CreatedAt,
		Text:       r.Text,
		Sentiment:  r.Sentiment,
		Confidence: r.Confidence,
		sortKey:    r.SortKey,
	}
}

func EntryFromBatchLink(l UserBatchLink) TimelineEntry {
	return TimelineEntry{
		Kind:         EntryBatch,
		Timestamp:    l.Timestamp,
		CreatedAt:    l.CompletedAt,
		BatchID:      l.BatchID,
		TotalRows:    l.TotalRows,
		SuccessCount: l.SuccessCount,
		FailedCount:  l.FailedCount,
		Status:       l.Status,
	}
}

// NewerThan orders entries most-recent-first. Analysis entries written in
// the same second fall back to their sort keys, which carry nanoseconds.
func (e TimelineEntry) NewerThan(o TimelineEntry) bool {
	if e.Timestamp != o.Timestamp {
		return e.Timestamp > o.Timestamp
	}
	return e.sortKey > o.sortKey
}

type BatchCompletion struct {
	BatchID      string `json:"batch_id"`
	TotalRows    int    `json:"total_rows"`
	SuccessCount int    `json:"success_count"`
	FailedCount  int    `json:"failed_count"`
	CompletedAt  string `json:"completed_at"`
}
