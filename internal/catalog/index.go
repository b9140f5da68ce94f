package catalog

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
)

// Index answers lookups by code or acronym over one snapshot.
type Index struct {
	Subjects  []internal.Subject
	ByCode    map[string]int
	ByAcronym map[string][]int
}

func BuildIndex(subjects []internal.Subject) *Index {
	idx := &Index{
		Subjects:  subjects,
		ByCode:    make(map[string]int, len(subjects)),
		ByAcronym: map[string][]int{},
	}
	for i, s := range subjects {
		if _, ok := idx.ByCode[s.Code]; !ok {
			idx.ByCode[s.Code] = i
		}
		key := acronymKey(s.Acronym)
		idx.ByAcronym[key] = append(idx.ByAcronym[key], i)
	}
	return idx
}

// Lookup matches a code exactly, or an acronym ignoring case.
func (idx *Index) Lookup(query string) []internal.Subject {
	query = strings.TrimSpace(query)
	if i, ok := idx.ByCode[query]; ok {
		return []internal.Subject{idx.Subjects[i]}
	}
	var out []internal.Subject
	for _, i := range idx.ByAcronym[acronymKey(query)] {
		out = append(out, idx.Subjects[i])
	}
	return out
}

func acronymKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
