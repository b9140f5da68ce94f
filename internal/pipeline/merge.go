package pipeline

import (
	"strings"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
)

const DefaultCodeField = "codi"

// MergeCSVInto fills unset fields of the subjects from the CSV row sharing
// their code. Populated fields are never overwritten and the input is not modified.
func MergeCSVInto(subjects []internal.Subject, rows []map[string]string, codeField string) []internal.Subject {
	merged, _ := MergeCSVIntoWithStats(subjects, rows, codeField)
	return merged
}

func MergeCSVIntoWithStats(subjects []internal.Subject, rows []map[string]string, codeField string) ([]internal.Subject, internal.MergeStats) {
	if codeField == "" {
		codeField = DefaultCodeField
	}

	byCode := make(map[string]map[string]string, len(rows))
	for _, row := range rows {
		code := strings.TrimSpace(row[codeField])
		if code == "" {
			continue
		}
		byCode[code] = row
	}

	var stats internal.MergeStats
	out := make([]internal.Subject, 0, len(subjects))
	for _, s := range subjects {
		row, ok := byCode[s.Code]
		if !ok {
			out = append(out, s)
			continue
		}
		stats.Matched++

		copied := s.Clone()
		for key, value := range row {
			if key == codeField || value == "" || copied.IsFieldSet(key) {
				continue
			}
			if copied.SetField(key, value) {
				stats.FieldsFilled++
			}
		}
		out = append(out, copied)
	}

	return out, stats
}
