package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Code    string `json:"code" yaml:"code"`
	Acronym string `json:"acronym" yaml:"acronym"`
}

func TestRender(t *testing.T) {
	value := []row{{Code: "2301234", Acronym: "ANT"}}
	table := Data{Headers: []string{"Codi", "Sigles"}, Rows: [][]string{{"2301234", "ANT"}}}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, value, table))
	var decoded []row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, value, decoded)

	buf.Reset()
	require.NoError(t, Render(&buf, FormatYAML, value, table))
	assert.Contains(t, buf.String(), "acronym: ANT")

	buf.Reset()
	require.NoError(t, Render(&buf, FormatTable, value, table))
	assert.Contains(t, buf.String(), "2301234")
	assert.Contains(t, buf.String(), "ANT")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
