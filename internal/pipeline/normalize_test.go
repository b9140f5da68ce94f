package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/logging"
)

const groupedCatalog = `[
  {"id": 1, "nom": "Optatives", "programa": 948, "visibilitat": "public", "unitats_docents": [
    {"codi_upc_ud": "2301111", "sigles_ud": "ABC", "nom": "Antenes", "credits_ects": "4,5", "quadrimestre": "Q1"}
  ]},
  {"id": 2, "nom": "Obligatòries", "programa": "1476", "unitats_docents": [
    {"codi_upc_ud": "2301111", "sigles_ud": "ABC2", "nom": "Altre"},
    {"codi_ud": "2302222", "sigles": "DEF", "nom_cat": "Radar", "credits": 6}
  ]}
]`

func TestNormalizeGroupedDeduplicates(t *testing.T) {
	res, err := NormalizeJSON([]byte(groupedCatalog))
	require.NoError(t, err)

	assert.Equal(t, internal.ShapeGrouped, res.Shape)
	assert.Equal(t, 2, res.GroupCount)
	require.Len(t, res.Subjects, 2)

	first := res.Subjects[0]
	assert.Equal(t, "2301111", first.Code)
	assert.Equal(t, "ABC", first.Acronym)
	assert.Equal(t, "Antenes", first.Name)
	require.NotNil(t, first.Credits)
	assert.Equal(t, 4.5, *first.Credits)
	require.NotNil(t, first.BlockID)
	assert.Equal(t, 1, *first.BlockID)
	assert.Equal(t, []internal.Group{
		{Program: "948", BlockName: "Optatives"},
		{Program: "1476", BlockName: "Obligatòries"},
	}, first.Groups)
	assert.Equal(t, "Optatives, Obligatòries", first.BlockNameSummary)
	assert.Equal(t, "948, 1476", first.ProgramSummary)
	assert.Equal(t, "public", first.Visibility)
	assert.Equal(t, "Q1", first.Extra["quadrimestre"])

	second := res.Subjects[1]
	assert.Equal(t, "2302222", second.Code)
	assert.Equal(t, "DEF", second.Acronym)
	assert.Equal(t, "Radar", second.Name)
	require.NotNil(t, second.Credits)
	assert.Equal(t, 6.0, *second.Credits)
	assert.Equal(t, []internal.Group{{Program: "1476", BlockName: "Obligatòries"}}, second.Groups)
}

func TestNormalizeFlat(t *testing.T) {
	res, err := NormalizeJSON([]byte(`[{"codi":"2301111","sigles":"ABC"}]`))
	require.NoError(t, err)

	assert.Equal(t, internal.ShapeFlat, res.Shape)
	assert.Equal(t, 0, res.GroupCount)
	require.Len(t, res.Subjects, 1)
	assert.NotNil(t, res.Subjects[0].Groups)
	assert.Empty(t, res.Subjects[0].Groups)
}

func TestNormalizeSkipsUnitsWithoutIdentity(t *testing.T) {
	logger := logging.NewTestLogger(t)

	res, err := NormalizeJSON([]byte(`[
		{"codi":"", "sigles":"XYZ"},
		{"codi":"2301111", "sigles":"ABC"},
		{"codi":"2302222"}
	]`))
	require.NoError(t, err)
	require.Len(t, res.Subjects, 1)
	assert.Equal(t, "2301111", res.Subjects[0].Code)
	assert.True(t, logger.Contains("unit without valid code/acronym"))
}

func TestNormalizeBlockWithoutProgram(t *testing.T) {
	res, err := NormalizeJSON([]byte(`[{"nom":"Lliure","programa":0,"unitats_docents":[{"codi":"2301111","sigles":"ABC"}]}]`))
	require.NoError(t, err)
	require.Len(t, res.Subjects, 1)
	assert.Equal(t, []internal.Group{{Program: "", BlockName: "Lliure"}}, res.Subjects[0].Groups)
	assert.Nil(t, res.Subjects[0].BlockID)
}

func TestNormalizeUnrecognized(t *testing.T) {
	logging.NewTestLogger(t)

	for _, input := range []string{`{"a":1}`, `[1,2]`, `[{"foo":"bar"}]`, `[]`} {
		res, err := NormalizeJSON([]byte(input))
		require.NoError(t, err, input)
		assert.Equal(t, internal.ShapeUnrecognized, res.Shape, input)
		assert.NotNil(t, res.Subjects, input)
		assert.Empty(t, res.Subjects, input)
	}
}

func TestNormalizeJSONSyntaxError(t *testing.T) {
	_, err := NormalizeJSON([]byte(`[{"codi":`))
	require.Error(t, err)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	first, err := NormalizeJSON([]byte(groupedCatalog))
	require.NoError(t, err)

	encoded, err := EncodeDocument(first.Subjects, first.Shape)
	require.NoError(t, err)
	second, err := NormalizeJSON(encoded)
	require.NoError(t, err)

	require.Len(t, second.Subjects, len(first.Subjects))
	for i := range first.Subjects {
		assert.Equal(t, first.Subjects[i].Code, second.Subjects[i].Code)
		assert.Equal(t, first.Subjects[i].Acronym, second.Subjects[i].Acronym)
		assert.Equal(t, first.Subjects[i].Groups, second.Subjects[i].Groups)
		assert.Equal(t, first.Subjects[i].Credits, second.Subjects[i].Credits)
	}
}
