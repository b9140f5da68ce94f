package util

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

var reSpaces = regexp.MustCompile(`\s+`)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// ContainsFold is a Unicode case-insensitive substring test.
func ContainsFold(s, substr string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(substr))
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// StringFromJSON renders a decoded JSON scalar as text. Objects, arrays and null render empty.
func StringFromJSON(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// IsScalarJSON reports whether v is a string, number or bool.
func IsScalarJSON(v any) bool {
	switch v.(type) {
	case string, json.Number, float64, int, bool:
		return true
	}
	return false
}

// AppendDistinct comma-joins value onto list unless it is empty or already contained.
func AppendDistinct(list, value string) string {
	if value == "" || strings.Contains(list, value) {
		return list
	}
	if list == "" {
		return value
	}
	return list + ", " + value
}
