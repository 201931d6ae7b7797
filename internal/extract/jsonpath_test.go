package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONPathLookup(t *testing.T) {
	payload := map[string]any{
		"props": map[string]any{
			"pageProps": map[string]any{
				"programs": []any{map[string]any{"slug": "acme"}},
				"empty":    []any{},
				"scalar":   "x",
			},
		},
	}

	assert.Len(t, jsonPath{"props", "pageProps", "programs"}.array(payload), 1)
	assert.Nil(t, jsonPath{"props", "pageProps", "empty"}.array(payload))
	assert.Nil(t, jsonPath{"props", "pageProps", "scalar"}.array(payload))
	assert.Nil(t, jsonPath{"props", "missing", "programs"}.array(payload))
	assert.Nil(t, jsonPath{"props", "pageProps", "scalar", "deeper"}.array(payload))
	assert.Equal(t, "props.pageProps.programs", jsonPath{"props", "pageProps", "programs"}.String())
}

func TestFirstArrayOrder(t *testing.T) {
	payload := map[string]any{
		"programs": []any{"top"},
		"props":    map[string]any{"pageProps": map[string]any{"programs": []any{"nested"}}},
	}
	assert.Equal(t, []any{"nested"}, firstArray(payload, programListPaths))
}

func TestStringField(t *testing.T) {
	v, ok := stringField(map[string]any{"slug": " acme "}, "slug")
	assert.True(t, ok)
	assert.Equal(t, "acme", v)

	_, ok = stringField(map[string]any{"slug": 12.0}, "slug")
	assert.False(t, ok)
	_, ok = stringField("not an object", "slug")
	assert.False(t, ok)
	_, ok = stringField(map[string]any{"slug": "  "}, "slug")
	assert.False(t, ok)
}
