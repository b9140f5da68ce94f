package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
)

var reDigits = regexp.MustCompile(`^\d+$`)

type documentBlock struct {
	ID         *int             `json:"id"`
	Name       string           `json:"nom"`
	Program    any              `json:"programa"`
	Visibility string           `json:"visibilitat"`
	Units      []map[string]any `json:"unitats_docents"`
}

// EncodeDocument serializes subjects in one of the two shapes Normalize reads.
// The grouped shape emits one block per distinct (program, block name) in
// first-seen order; subjects without groups land in a trailing unnamed block.
// A grouped request where no subject carries a group is written flat.
func EncodeDocument(subjects []internal.Subject, shape internal.Shape) ([]byte, error) {
	switch shape {
	case internal.ShapeFlat:
		return encodeFlat(subjects)
	case internal.ShapeGrouped, "":
		if !anyGrouped(subjects) {
			return encodeFlat(subjects)
		}
		return json.MarshalIndent(groupBlocks(subjects), "", "  ")
	default:
		return nil, fmt.Errorf("unsupported document shape: %s", shape)
	}
}

func encodeFlat(subjects []internal.Subject) ([]byte, error) {
	if subjects == nil {
		subjects = []internal.Subject{}
	}
	return json.MarshalIndent(subjects, "", "  ")
}

func anyGrouped(subjects []internal.Subject) bool {
	for _, s := range subjects {
		if len(s.Groups) > 0 {
			return true
		}
	}
	return false
}

// groupBlocks takes block id and visibility only from subjects whose first
// group is that block: a subject carries the metadata of its first block alone.
func groupBlocks(subjects []internal.Subject) []documentBlock {
	blocks := []documentBlock{}
	index := map[internal.Group]int{}
	hasMeta := map[int]bool{}
	var loose []map[string]any

	for _, s := range subjects {
		if len(s.Groups) == 0 {
			loose = append(loose, unitMap(s))
			continue
		}
		for i, g := range s.Groups {
			idx, ok := index[g]
			if !ok {
				idx = len(blocks)
				index[g] = idx
				blocks = append(blocks, documentBlock{
					Name:    g.BlockName,
					Program: programValue(g.Program),
					Units:   []map[string]any{},
				})
			}
			if i == 0 && !hasMeta[idx] {
				blocks[idx].ID = s.BlockID
				blocks[idx].Visibility = s.Visibility
				hasMeta[idx] = true
			}
			blocks[idx].Units = append(blocks[idx].Units, unitMap(s))
		}
	}

	if len(loose) > 0 {
		blocks = append(blocks, documentBlock{Units: loose})
	}
	return blocks
}

func unitMap(s internal.Subject) map[string]any {
	out := make(map[string]any, 9+len(s.Extra))
	for k, v := range s.Extra {
		if !internal.IsFixedField(k) {
			out[k] = v
		}
	}
	out[internal.FieldCode] = s.Code
	out[internal.FieldAcronym] = s.Acronym
	out[internal.FieldName] = s.Name
	out[internal.FieldNameSpanish] = s.NameSpanish
	out[internal.FieldNameEnglish] = s.NameEnglish
	out[internal.FieldDepartment] = s.Department
	out[internal.FieldCentre] = s.Centre
	out[internal.FieldCredits] = s.Credits
	out[internal.FieldValidity] = s.Validity
	return out
}

func programValue(program string) any {
	if program == "" {
		return nil
	}
	if reDigits.MatchString(program) {
		return json.Number(program)
	}
	return program
}
