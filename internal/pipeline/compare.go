package pipeline

import (
	"errors"
	"regexp"
	"strings"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/util"
)

var (
	ErrEmptyOffer   = errors.New("el CSV sembla buit o no s'ha pogut llegir")
	ErrNoCodeColumn = errors.New("no s'ha trobat cap columna amb codis UPC (començant per 230...) al CSV")
)

// CodePattern matches institutional subject codes: 230 followed by 3 or 4 digits.
var CodePattern = regexp.MustCompile(`^230\d{3,4}$`)

const (
	codeColumnHint   = "codi"
	codeColumnSample = 20
)

// Compare diffs an offer CSV against the canonical subjects. The text is read
// with ';' first and re-read with ',' when that yields a single column.
func Compare(subjects []internal.Subject, csvText string) (internal.ComparisonResult, error) {
	return CompareTable(subjects, parseOfferText(csvText))
}

// CompareTable is Compare over an already tabulated offer.
func CompareTable(subjects []internal.Subject, table internal.Table) (internal.ComparisonResult, error) {
	if len(table.Rows) == 0 {
		return internal.ComparisonResult{}, ErrEmptyOffer
	}

	column := DetectCodeColumn(table)
	if column == "" {
		return internal.ComparisonResult{}, ErrNoCodeColumn
	}

	order := make([]string, 0, len(table.Rows))
	byCode := make(map[string]map[string]string, len(table.Rows))
	for _, row := range table.Rows {
		code := strings.TrimSpace(row[column])
		if !CodePattern.MatchString(code) {
			continue
		}
		if _, seen := byCode[code]; !seen {
			order = append(order, code)
		}
		byCode[code] = row
	}

	known := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		known[s.Code] = struct{}{}
	}

	result := internal.ComparisonResult{
		NotInCanonical: []map[string]string{},
		NotInCSV:       []internal.Subject{},
		MatchedColumn:  column,
	}
	for _, code := range order {
		if _, ok := known[code]; !ok {
			result.NotInCanonical = append(result.NotInCanonical, byCode[code])
		}
	}
	for _, s := range subjects {
		if _, ok := byCode[s.Code]; !ok {
			result.NotInCSV = append(result.NotInCSV, s)
		}
	}

	return result, nil
}

// DetectCodeColumn returns the first candidate header whose sampled values are
// mostly subject codes. Headers mentioning "codi" are tried first, all
// headers when none do. Empty when nothing qualifies.
func DetectCodeColumn(table internal.Table) string {
	candidates := make([]string, 0, len(table.Headers))
	for _, h := range table.Headers {
		if util.ContainsFold(h, codeColumnHint) {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 {
		candidates = table.Headers
	}

	limit := min(len(table.Rows), codeColumnSample)
	if limit == 0 {
		return ""
	}
	for _, h := range candidates {
		matches := 0
		for _, row := range table.Rows[:limit] {
			if v := strings.TrimSpace(row[h]); v != "" && CodePattern.MatchString(v) {
				matches++
			}
		}
		if matches*2 > limit {
			return h
		}
	}
	return ""
}

// MissingCodes lists the codes of subjects absent from the offer.
func MissingCodes(result internal.ComparisonResult) []string {
	out := make([]string, 0, len(result.NotInCSV))
	for _, s := range result.NotInCSV {
		out = append(out, s.Code)
	}
	return out
}
