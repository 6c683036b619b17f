package sentiment

import (
	"strings"
	"unicode/utf8"

	"github.com/spacesedan/sentiserve/internal/apperrors"
)

const (
	// MaxTextLength bounds request text in characters, independent of the
	// tokenizer's own truncation.
	MaxTextLength = 5000
	PreviewLength = 100
)

func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.Validation("Text field is required and cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return apperrors.Validation("Text exceeds maximum length of %d characters", MaxTextLength)
	}
	return nil
}

func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	return string([]rune(text)[:PreviewLength])
}
