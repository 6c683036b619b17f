package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/sentiserve/internal/apperrors"
	"github.com/spacesedan/sentiserve/internal/models"
)

func TestParseCSV(t *testing.T) {
	input := "text,user_id\n\"I love this!\",user123\n\"This is bad, really\",\n\"It's okay\",user456\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []models.RowInput{
		{Index: 0, Text: "I love this!", UserID: "user123"},
		{Index: 1, Text: "This is bad, really", UserID: models.AnonymousUser},
		{Index: 2, Text: "It's okay", UserID: "user456"},
	}, rows)
}

func TestParseCSV_TextOnly(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("id,text\n1,hello\n2,world\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "world", rows[1].Text)
	assert.Equal(t, models.AnonymousUser, rows[1].UserID)
}

func TestParseCSV_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "header only", input: "text,user_id\n"},
		{name: "no text column", input: "body,user_id\nhello,u1\n"},
		{name: "bad quoting", input: "text\n\"unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestRowsFromTexts(t *testing.T) {
	rows := RowsFromTexts([]string{"a", "b"}, "")
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[1].Index)
	assert.Equal(t, models.AnonymousUser, rows[0].UserID)
}
