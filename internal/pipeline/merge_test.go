package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
)

func TestMergeFillsOnlyUnsetFields(t *testing.T) {
	subjects := []internal.Subject{
		{Code: "2301234", Acronym: "ABC", Name: "Antenes", Groups: []internal.Group{{Program: "948", BlockName: "Optatives"}}},
		{Code: "2305678", Acronym: "DEF"},
	}
	rows := []map[string]string{
		{"codi": "2301234", "nom": "Sobreescrit", "dept": "TSC", "credits_ects": "4,5", "quadrimestre": "Q2", "centre": ""},
		{"codi": "9999999", "nom": "Ningú"},
	}

	merged, stats := MergeCSVIntoWithStats(subjects, rows, "codi")
	require.Len(t, merged, 2)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 3, stats.FieldsFilled)

	got := merged[0]
	assert.Equal(t, "Antenes", got.Name)
	assert.Equal(t, "TSC", got.Department)
	require.NotNil(t, got.Credits)
	assert.Equal(t, 4.5, *got.Credits)
	assert.Equal(t, "Q2", got.Extra["quadrimestre"])
	assert.Equal(t, "", got.Centre)
	assert.Equal(t, subjects[0].Groups, got.Groups)

	assert.Equal(t, subjects[1], merged[1])
	assert.Equal(t, "", subjects[0].Department)
	assert.Nil(t, subjects[0].Extra)
}

func TestMergeLaterRowWinsAndDefaultCodeField(t *testing.T) {
	subjects := []internal.Subject{{Code: "2301234", Acronym: "ABC"}}
	rows := []map[string]string{
		{"codi": "2301234", "dept": "EETAC"},
		{"codi": " 2301234 ", "dept": "TSC"},
	}

	merged := MergeCSVInto(subjects, rows, "")
	assert.Equal(t, "TSC", merged[0].Department)
}

func TestMergeCustomCodeFieldIsNotCopied(t *testing.T) {
	subjects := []internal.Subject{{Code: "2301234", Acronym: "ABC"}}
	rows := []map[string]string{{"Codi UPC": "2301234", "nom_eng": "Antennas"}}

	merged := MergeCSVInto(subjects, rows, "Codi UPC")
	assert.Equal(t, "Antennas", merged[0].NameEnglish)
	_, ok := merged[0].Extra["Codi UPC"]
	assert.False(t, ok)
}
