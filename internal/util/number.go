package util

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reThousandsDot   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	reThousandsComma = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// ParseNumber accepts "6", "7.5", "7,5" and thousands-grouped tokens.
func ParseNumber(input string) (float64, bool) {
	norm := normalizeNumericToken(strings.TrimSpace(strings.ReplaceAll(input, "\u00A0", " ")))
	if norm == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(norm, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

// NumberFromJSON converts a decoded JSON value to a float. Strings go through ParseNumber.
func NumberFromJSON(v any) (*float64, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case float64:
		return FloatPtr(t), true
	case int:
		return FloatPtr(float64(t)), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f, true
		}
		return nil, false
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, true
		}
		if f, ok := ParseNumber(t); ok {
			return &f, true
		}
	}
	return nil, false
}

func IntFromJSON(v any) (*int, bool) {
	switch t := v.(type) {
	case float64:
		n := int(t)
		return &n, true
	case int:
		return &t, true
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return nil, false
		}
		n := int(i)
		return &n, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, false
		}
		return &n, true
	}
	return nil, false
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if reThousandsDot.MatchString(compact) && strings.Count(compact, ".") > 1 {
		return strings.ReplaceAll(compact, ".", "")
	}
	if reThousandsComma.MatchString(compact) && strings.Count(compact, ",") > 1 {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}

func FloatPtr(v float64) *float64 { return &v }

func StringPtr(v string) *string { return &v }
