package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadata_CopyOnWrite(t *testing.T) {
	base := Metadata{"a": 1}
	next := base.With("b", 2)

	assert.Len(t, base, 1)
	assert.Equal(t, Metadata{"a": 1, "b": 2}, next)

	trimmed := next.Without("a")
	assert.Equal(t, Metadata{"b": 2}, trimmed)
	assert.Len(t, next, 2)

	assert.Empty(t, next.Without())
}

func TestMetadata_Merge(t *testing.T) {
	base := Metadata{"a": 1, "b": 1}
	merged := base.Merge(map[string]any{"b": 2, "c": 3})
	assert.Equal(t, Metadata{"a": 1, "b": 2, "c": 3}, merged)
	assert.Equal(t, 1, base["b"])
}

func TestMetadata_CloneIsDeep(t *testing.T) {
	orig := Metadata{
		"map":  map[string]any{"x": 1},
		"list": []any{map[string]any{"y": 2}},
		"strs": []string{"a"},
	}
	c := orig.Clone()

	c["map"].(map[string]any)["x"] = 100
	c["list"].([]any)[0].(map[string]any)["y"] = 200
	c["strs"].([]string)[0] = "b"

	assert.Equal(t, 1, orig["map"].(map[string]any)["x"])
	assert.Equal(t, 2, orig["list"].([]any)[0].(map[string]any)["y"])
	assert.Equal(t, "a", orig["strs"].([]string)[0])

	assert.Nil(t, Metadata(nil).Clone())
}

func TestMetadata_Accessors(t *testing.T) {
	m := Metadata{"s": "text", "i": 3, "f": 4.0}
	assert.Equal(t, "text", m.String("s"))
	assert.Equal(t, "", m.String("i"))

	i, ok := m.Int("i")
	assert.True(t, ok)
	assert.Equal(t, 3, i)
	f, ok := m.Int("f")
	assert.True(t, ok)
	assert.Equal(t, 4, f)
	_, ok = m.Int("s")
	assert.False(t, ok)
}
