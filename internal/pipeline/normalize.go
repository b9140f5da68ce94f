package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/logging"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/util"
)

// Alias chains, resolved first non-empty wins. New historical names go at the end.
var (
	CodeAliases    = []string{"codi_upc_ud", "codi_ud", "codi"}
	AcronymAliases = []string{"sigles_ud", "sigles", "acronim"}
	NameAliases    = []string{"nom", "nom_cat"}
	CreditsAliases = []string{"credits_ects", "credits"}
)

const (
	blockUnitsKey      = "unitats_docents"
	blockIDKey         = "id"
	blockNameKey       = "nom"
	blockProgramKey    = "programa"
	blockVisibilityKey = "visibilitat"
)

// unitKnownKeys are never copied into the Extra sidecar.
var unitKnownKeys = func() map[string]struct{} {
	known := map[string]struct{}{}
	for _, list := range [][]string{CodeAliases, AcronymAliases, NameAliases, CreditsAliases} {
		for _, k := range list {
			known[k] = struct{}{}
		}
	}
	for _, k := range []string{
		internal.FieldNameSpanish, internal.FieldNameEnglish, internal.FieldDepartment,
		internal.FieldCentre, internal.FieldValidity, internal.FieldBlockName, internal.FieldProgram,
		internal.FieldBlockID, internal.FieldVisibility, internal.FieldGroups,
	} {
		known[k] = struct{}{}
	}
	return known
}()

// NormalizeJSON decodes data and normalizes it. Only a JSON syntax error is reported.
func NormalizeJSON(data []byte) (internal.NormalizeResult, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return internal.NormalizeResult{Shape: internal.ShapeUnrecognized, Subjects: []internal.Subject{}}, fmt.Errorf("decode catalog json: %w", err)
	}
	return Normalize(raw), nil
}

// Normalize converts a grouped (blocks with unitats_docents) or flat (list of
// units) document into deduplicated subjects. Unrecognized input yields an
// empty result and a warning.
func Normalize(raw any) internal.NormalizeResult {
	log := logging.Default()
	empty := internal.NormalizeResult{Shape: internal.ShapeUnrecognized, Subjects: []internal.Subject{}}

	arr, ok := raw.([]any)
	if !ok {
		log.Warn().Msg("normalize: catalog root is not a list")
		return empty
	}
	if len(arr) == 0 {
		return empty
	}

	switch DetectShape(arr[0]) {
	case internal.ShapeGrouped:
		subjects := normalizeGrouped(arr)
		log.Debug().Int("blocks", len(arr)).Int("subjects", len(subjects)).Msg("normalize: grouped catalog")
		return internal.NormalizeResult{GroupCount: len(arr), Shape: internal.ShapeGrouped, Subjects: subjects}
	case internal.ShapeFlat:
		subjects := normalizeFlat(arr)
		log.Debug().Int("subjects", len(subjects)).Msg("normalize: flat catalog")
		return internal.NormalizeResult{GroupCount: 0, Shape: internal.ShapeFlat, Subjects: subjects}
	default:
		log.Warn().Int("entries", len(arr)).Msg("normalize: unrecognized catalog format")
		return empty
	}
}

func DetectShape(first any) internal.Shape {
	obj, ok := first.(map[string]any)
	if !ok {
		return internal.ShapeUnrecognized
	}
	if _, isList := obj[blockUnitsKey].([]any); isList {
		return internal.ShapeGrouped
	}
	if resolveAlias(obj, CodeAliases) != "" || resolveAlias(obj, AcronymAliases) != "" {
		return internal.ShapeFlat
	}
	return internal.ShapeUnrecognized
}

func normalizeGrouped(blocks []any) []internal.Subject {
	log := logging.Default()
	provisional := make([]internal.Subject, 0)

	for i, item := range blocks {
		block, ok := item.(map[string]any)
		if !ok {
			log.Warn().Int("index", i).Msg("normalize: block is not an object")
			continue
		}
		blockName := util.StringFromJSON(block[blockNameKey])
		program := programString(block[blockProgramKey])
		blockID, _ := util.IntFromJSON(block[blockIDKey])
		visibility := util.StringFromJSON(block[blockVisibilityKey])

		units, ok := block[blockUnitsKey].([]any)
		if !ok {
			log.Warn().Str("block", blockName).Msg("normalize: block without unitats_docents")
			continue
		}

		for _, u := range units {
			subject, ok := subjectFromUnit(u)
			if !ok {
				continue
			}
			subject.BlockID = blockID
			subject.BlockNameSummary = blockName
			subject.ProgramSummary = program
			subject.Visibility = visibility
			subject.Groups = []internal.Group{{Program: program, BlockName: blockName}}
			provisional = append(provisional, subject)
		}
	}

	return dedupeSubjects(provisional)
}

func normalizeFlat(entries []any) []internal.Subject {
	subjects := make([]internal.Subject, 0, len(entries))
	for _, u := range entries {
		subject, ok := subjectFromUnit(u)
		if !ok {
			continue
		}
		subject.Groups = []internal.Group{}
		subjects = append(subjects, subject)
	}
	return subjects
}

// dedupeSubjects keeps the first record per code and folds the group
// membership of later duplicates into it. Scalars of the first record win.
func dedupeSubjects(subjects []internal.Subject) []internal.Subject {
	byCode := make(map[string]int, len(subjects))
	out := make([]internal.Subject, 0, len(subjects))

	for _, s := range subjects {
		idx, seen := byCode[s.Code]
		if !seen {
			byCode[s.Code] = len(out)
			out = append(out, s)
			continue
		}

		existing := &out[idx]
		for _, g := range s.Groups {
			if !existing.HasGroup(g) {
				existing.Groups = append(existing.Groups, g)
			}
			existing.BlockNameSummary = util.AppendDistinct(existing.BlockNameSummary, g.BlockName)
			existing.ProgramSummary = util.AppendDistinct(existing.ProgramSummary, g.Program)
		}
	}

	return out
}

func subjectFromUnit(u any) (internal.Subject, bool) {
	unit, ok := u.(map[string]any)
	if !ok {
		logging.Default().Warn().Msg("normalize: unit is not an object")
		return internal.Subject{}, false
	}

	code := resolveAlias(unit, CodeAliases)
	acronym := resolveAlias(unit, AcronymAliases)
	if code == "" || acronym == "" {
		logging.Default().Warn().Str("code", code).Str("acronym", acronym).Msg("normalize: unit without valid code/acronym")
		return internal.Subject{}, false
	}

	s := internal.Subject{
		Code:        code,
		Acronym:     acronym,
		Name:        resolveAlias(unit, NameAliases),
		NameSpanish: util.StringFromJSON(unit[internal.FieldNameSpanish]),
		NameEnglish: util.StringFromJSON(unit[internal.FieldNameEnglish]),
		Department:  util.StringFromJSON(unit[internal.FieldDepartment]),
		Centre:      util.StringFromJSON(unit[internal.FieldCentre]),
		Validity:    util.StringFromJSON(unit[internal.FieldValidity]),
	}
	for _, key := range CreditsAliases {
		if credits, ok := util.NumberFromJSON(unit[key]); ok && credits != nil {
			s.Credits = credits
			break
		}
	}

	for k, v := range unit {
		if _, known := unitKnownKeys[k]; known || !util.IsScalarJSON(v) {
			continue
		}
		if value := util.StringFromJSON(v); value != "" {
			s.SetField(k, value)
		}
	}

	return s, true
}

func resolveAlias(obj map[string]any, aliases []string) string {
	for _, key := range aliases {
		if v := util.StringFromJSON(obj[key]); v != "" {
			return v
		}
	}
	return ""
}

// programString renders a block program; 0, null and "" all mean "no program".
func programString(v any) string {
	s := util.StringFromJSON(v)
	if s == "0" || strings.EqualFold(s, "false") {
		return ""
	}
	return s
}
