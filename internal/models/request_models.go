package models

type AnalyzeRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
}

type AnalyzeResponse struct {
	Sentiment    Label   `json:"sentiment"`
	Confidence   float64 `json:"confidence"`
	Timestamp    int64   `json:"timestamp"`
	TextPreview  string  `json:"text_preview"`
	DBSaveStatus string  `json:"db_save_status"`
}

// BatchRequest carries either inline texts or a reference to a CSV object.
type BatchRequest struct {
	Texts   []string `json:"texts,omitempty"`
	UserID  string   `json:"user_id,omitempty"`
	Bucket  string   `json:"bucket,omitempty"`
	Key     string   `json:"key,omitempty"`
	BatchID string   `json:"batch_id,omitempty"`
}

func (r BatchRequest) FromObject() bool {
	return r.Key != ""
}

type BatchResponse struct {
	BatchID      string           `json:"batch_id"`
	TotalRows    int              `json:"total_rows"`
	SuccessCount int              `json:"success_count"`
	FailedCount  int              `json:"failed_count"`
	Status       string           `json:"status"`
	Message      string           `json:"message"`
	DBSaveStatus string           `json:"db_save_status"`
	Results      []BatchRowResult `json:"results,omitempty"`
}

type HistoryRequest struct {
	UserID  string
	BatchID string
	Limit   int
}

type UserHistoryResponse struct {
	UserID  string          `json:"user_id"`
	Count   int             `json:"count"`
	History []TimelineEntry `json:"history"`
}

type BatchResultsResponse struct {
	BatchID      string           `json:"batch_id"`
	Status       string           `json:"status"`
	TotalRows    int              `json:"total_rows"`
	SuccessCount int              `json:"success_count"`
	FailedCount  int              `json:"failed_count"`
	CompletedAt  string           `json:"completed_at"`
	Results      []BatchRowResult `json:"results"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	BatchID string `json:"batch_id,omitempty"`
}
