package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spacesedan/sentiserve/internal/apperrors"
	"github.com/spacesedan/sentiserve/internal/db"
	"github.com/spacesedan/sentiserve/internal/models"
)

// MaxRows is bounded by the width of the row index in stored keys.
const MaxRows = db.MaxBatchRows

const (
	textColumn   = "text"
	userIDColumn = "user_id"
)

// ParseCSV reads rows from a CSV with a header naming a text column and,
// optionally, a user_id column. Row indices follow the data rows in order.
func ParseCSV(r io.Reader) ([]models.RowInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.Validation("No valid rows found in CSV")
	}
	if err != nil {
		return nil, apperrors.Validation("Invalid CSV: %v", err)
	}

	textIdx, userIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case textColumn:
			textIdx = i
		case userIDColumn:
			userIdx = i
		}
	}
	if textIdx < 0 {
		return nil, apperrors.Validation("CSV must have a %q column", textColumn)
	}

	var rows []models.RowInput
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Validation("Invalid CSV: %v", err)
		}
		if len(rows) >= MaxRows {
			return nil, apperrors.Validation("CSV has more than %d rows", MaxRows)
		}

		row := models.RowInput{Index: len(rows), UserID: models.AnonymousUser}
		if textIdx < len(record) {
			row.Text = record[textIdx]
		}
		if userIdx >= 0 && userIdx < len(record) && record[userIdx] != "" {
			row.UserID = record[userIdx]
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, apperrors.Validation("No valid rows found in CSV")
	}
	return rows, nil
}

func RowsFromTexts(texts []string, userID string) []models.RowInput {
	userID = userOrAnonymous(userID)
	rows := make([]models.RowInput, 0, len(texts))
	for i, text := range texts {
		rows = append(rows, models.RowInput{Index: i, Text: text, UserID: userID})
	}
	return rows
}

func Preview(rows []models.BatchRowResult, n int) []models.BatchRowResult {
	if len(rows) <= n {
		return rows
	}
	return rows[:n]
}

func (r Result) Completion() models.BatchCompletion {
	return models.BatchCompletion{
		BatchID:      r.Job.BatchID,
		TotalRows:    r.Job.TotalRows,
		SuccessCount: r.Job.SuccessCount,
		FailedCount:  r.Job.FailedCount,
		CompletedAt:  r.Job.CompletedAt,
	}
}

func (r Result) Message() string {
	return fmt.Sprintf("Processed %d rows successfully", r.Job.TotalRows)
}
