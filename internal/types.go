package internal

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/util"
)

type Shape string

const (
	ShapeGrouped      Shape = "grouped"
	ShapeFlat         Shape = "flat"
	ShapeUnrecognized Shape = "unrecognized"
)

// Fixed field keys, shared by the JSON document, the CSV merge and the accessors.
const (
	FieldCode        = "codi_upc_ud"
	FieldAcronym     = "sigles_ud"
	FieldName        = "nom"
	FieldNameSpanish = "nom_cast"
	FieldNameEnglish = "nom_eng"
	FieldDepartment  = "dept"
	FieldCentre      = "centre"
	FieldCredits     = "credits_ects"
	FieldValidity    = "vigent"
	FieldBlockName   = "bloc_nom"
	FieldProgram     = "programa"
	FieldBlockID     = "bloc_id"
	FieldVisibility  = "visibilitat"
	FieldGroups      = "groups"
)

type Group struct {
	Program   string `json:"programa"`
	BlockName string `json:"bloc_nom"`
}

type Subject struct {
	Code             string
	Acronym          string
	Name             string
	NameSpanish      string
	NameEnglish      string
	Department       string
	Centre           string
	Credits          *float64
	Validity         string
	Groups           []Group
	BlockNameSummary string
	ProgramSummary   string
	BlockID          *int
	Visibility       string
	Extra            map[string]string
}

func (s *Subject) stringField(name string) *string {
	switch name {
	case FieldCode:
		return &s.Code
	case FieldAcronym:
		return &s.Acronym
	case FieldName:
		return &s.Name
	case FieldNameSpanish:
		return &s.NameSpanish
	case FieldNameEnglish:
		return &s.NameEnglish
	case FieldDepartment:
		return &s.Department
	case FieldCentre:
		return &s.Centre
	case FieldValidity:
		return &s.Validity
	case FieldBlockName:
		return &s.BlockNameSummary
	case FieldProgram:
		return &s.ProgramSummary
	case FieldVisibility:
		return &s.Visibility
	}
	return nil
}

// IsFixedField reports whether name addresses a struct field rather than the Extra sidecar.
func IsFixedField(name string) bool {
	switch name {
	case FieldCredits, FieldBlockID, FieldGroups:
		return true
	}
	var s Subject
	return s.stringField(name) != nil
}

// Field returns the textual value of a fixed field or an extra field.
func (s *Subject) Field(name string) (string, bool) {
	if p := s.stringField(name); p != nil {
		return *p, true
	}
	switch name {
	case FieldCredits:
		if s.Credits == nil {
			return "", true
		}
		return strconv.FormatFloat(*s.Credits, 'f', -1, 64), true
	case FieldBlockID:
		if s.BlockID == nil {
			return "", true
		}
		return strconv.Itoa(*s.BlockID), true
	case FieldGroups:
		return "", false
	}
	v, ok := s.Extra[name]
	return v, ok
}

// IsFieldSet treats "", nil and a missing extra key as unset.
func (s *Subject) IsFieldSet(name string) bool {
	switch name {
	case FieldCredits:
		return s.Credits != nil
	case FieldBlockID:
		return s.BlockID != nil
	case FieldGroups:
		return len(s.Groups) > 0
	}
	v, _ := s.Field(name)
	return v != ""
}

// SetField assigns a textual value. Credits and block id must parse as numbers;
// groups are structured and cannot be set this way.
func (s *Subject) SetField(name, value string) bool {
	if p := s.stringField(name); p != nil {
		*p = value
		return true
	}
	switch name {
	case FieldCredits:
		f, ok := util.ParseNumber(value)
		if !ok {
			return false
		}
		s.Credits = &f
		return true
	case FieldBlockID:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return false
		}
		s.BlockID = &n
		return true
	case FieldGroups:
		return false
	}
	if s.Extra == nil {
		s.Extra = map[string]string{}
	}
	s.Extra[name] = value
	return true
}

func (s Subject) HasGroup(g Group) bool {
	return slices.Contains(s.Groups, g)
}

// Clone returns a copy that shares no slices or maps with s.
func (s Subject) Clone() Subject {
	out := s
	out.Groups = slices.Clone(s.Groups)
	out.Extra = maps.Clone(s.Extra)
	if s.Credits != nil {
		c := *s.Credits
		out.Credits = &c
	}
	if s.BlockID != nil {
		id := *s.BlockID
		out.BlockID = &id
	}
	return out
}

func (s Subject) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 14+len(s.Extra))
	for k, v := range s.Extra {
		if !IsFixedField(k) {
			out[k] = v
		}
	}
	out[FieldCode] = s.Code
	out[FieldAcronym] = s.Acronym
	out[FieldName] = s.Name
	out[FieldNameSpanish] = s.NameSpanish
	out[FieldNameEnglish] = s.NameEnglish
	out[FieldDepartment] = s.Department
	out[FieldCentre] = s.Centre
	out[FieldCredits] = s.Credits
	out[FieldValidity] = s.Validity
	out[FieldBlockName] = s.BlockNameSummary
	out[FieldProgram] = s.ProgramSummary
	out[FieldBlockID] = s.BlockID
	out[FieldVisibility] = s.Visibility
	groups := s.Groups
	if groups == nil {
		groups = []Group{}
	}
	out[FieldGroups] = groups
	return json.Marshal(out)
}

type NormalizeResult struct {
	GroupCount int       `json:"blocsCount"`
	Shape      Shape     `json:"shape"`
	Subjects   []Subject `json:"assignatures"`
}

type Table struct {
	Headers []string
	Rows    []map[string]string
}

type ComparisonResult struct {
	NotInCanonical []map[string]string `json:"notInJson"`
	NotInCSV       []Subject           `json:"notInCsv"`
	MatchedColumn  string              `json:"matchedColumn"`
}

type MergeStats struct {
	Matched      int `json:"matched"`
	FieldsFilled int `json:"fieldsFilled"`
}

type RemoteFile struct {
	Content  string
	Revision string
}

type Snapshot struct {
	ID           int    `json:"id"`
	Source       string `json:"source"`
	Revision     string `json:"revision"`
	Path         string `json:"path"`
	Shape        Shape  `json:"shape"`
	GroupCount   int    `json:"blocsCount"`
	SubjectCount int    `json:"subjectCount"`
	CreatedAt    string `json:"createdAt"`
}

type ReconcileRun struct {
	ID                  int      `json:"id"`
	RunID               string   `json:"runId"`
	SnapshotID          int      `json:"snapshotId"`
	Kind                string   `json:"kind"`
	OfferPath           string   `json:"offerPath"`
	MatchedColumn       string   `json:"matchedColumn"`
	NotInCanonicalCount int      `json:"notInJson"`
	NotInCSVCount       int      `json:"notInCsv"`
	MissingCodes        []string `json:"missingCodes"`
	CreatedAt           string   `json:"createdAt"`
}
