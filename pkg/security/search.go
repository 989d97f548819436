package security

import (
	"errors"
	"strings"
	"unicode"
)

const (
	// MaxSearchValueLength defines the maximum allowed length for search values
	MaxSearchValueLength = 100
)

// searchableFields maps the declared field names accepted by equality
// search onto their column names. Anything else is rejected before it
// reaches the store.
var searchableFields = map[string]string{
	"name":   "name",
	"email":  "email",
	"gender": "gender",
	"age":    "age",
}

// ValidateSearchKey checks a declared field name and returns the column it
// maps to.
func ValidateSearchKey(key string) (string, error) {
	column, ok := searchableFields[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return "", errors.New("search key is not a searchable field")
	}
	return column, nil
}

// ValidateSearchValue validates an equality-search value.
func ValidateSearchValue(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("search value cannot be empty")
	}
	if len(value) > MaxSearchValueLength {
		return "", errors.New("search value too long")
	}

	for _, char := range value {
		if !isValidSearchChar(char) {
			return "", errors.New("search value contains invalid characters")
		}
	}

	return value, nil
}

// isValidSearchChar checks if a character is safe for search values
func isValidSearchChar(char rune) bool {
	// Allow letters, numbers, spaces, and common punctuation
	return unicode.IsLetter(char) || unicode.IsNumber(char) ||
		char == ' ' || char == '-' || char == '_' || char == '.' ||
		char == '@' || char == '+'
}
