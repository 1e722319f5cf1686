package middleware

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input validation and sanitization utilities

const (
	maxURLLength      = 2048
	maxQuestionLength = 2000
)

// ValidateVideoURL only bounds the input; parsing the video id is left to
// the service so the UI can show its message.
func ValidateVideoURL(raw string) error {
	if len(raw) > maxURLLength {
		return fmt.Errorf("URL too long (max %d characters)", maxURLLength)
	}
	return nil
}

// ValidateQuestion bounds question length; emptiness is the service's call.
func ValidateQuestion(q string) error {
	if n := utf8.RuneCountInString(q); n > maxQuestionLength {
		return fmt.Errorf("question too long: %d characters (max %d)", n, maxQuestionLength)
	}
	return nil
}

// ParseK parses the optional k form/query value. Empty means "use the default".
func ParseK(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("k must be a whole number, got %q", raw)
	}
	return &k, nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage validates the page number
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
