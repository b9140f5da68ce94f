package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("CODI_UPC", "codi"))
	assert.True(t, ContainsFold("Codi assignatura", "codi"))
	assert.False(t, ContainsFold("Sigles", "codi"))
}

func TestStringFromJSON(t *testing.T) {
	assert.Equal(t, "2301234", StringFromJSON(json.Number("2301234")))
	assert.Equal(t, "2301234", StringFromJSON(float64(2301234)))
	assert.Equal(t, "ABC", StringFromJSON("  ABC "))
	assert.Equal(t, "", StringFromJSON(nil))
	assert.Equal(t, "", StringFromJSON(map[string]any{"a": 1}))
}

func TestAppendDistinct(t *testing.T) {
	assert.Equal(t, "Bloc A", AppendDistinct("", "Bloc A"))
	assert.Equal(t, "Bloc A, Bloc B", AppendDistinct("Bloc A", "Bloc B"))
	assert.Equal(t, "Bloc A, Bloc B", AppendDistinct("Bloc A, Bloc B", "Bloc B"))
	assert.Equal(t, "Bloc A", AppendDistinct("Bloc A", ""))
}
