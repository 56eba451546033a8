package cache

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "product:42", ProductKey("42"))
	assert.Equal(t, "user_products:u1:3", UserProductsKey("u1", 3))
	assert.Equal(t, "categories", CategoriesKey())
}

func TestSearchKey_StableForEqualFilters(t *testing.T) {
	a := SearchKey("lamp", map[string]any{"max": 50, "color": "red"})
	b := SearchKey("lamp", map[string]any{"color": "red", "max": 50})
	c := SearchKey("lamp", map[string]any{"color": "blue", "max": 50})

	assert.Equal(t, a, b, "map key order does not matter")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, len("search:lamp:")+16)
}

func TestSearchKey_UnencodableFilters(t *testing.T) {
	a := SearchKey("q", make(chan int))
	b := SearchKey("q", func() {})
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestPatterns(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{ProductPattern(), ProductKey("1"), true},
		{ProductPattern(), UserProductsKey("1", 1), false},
		{UserProductsPattern("u1"), UserProductsKey("u1", 7), true},
		{UserProductsPattern("u1"), UserProductsKey("u2", 7), false},
		{SearchPattern(), SearchKey("lamp", nil), true},
		{SearchPattern(), CategoriesKey(), false},
	}

	for _, tt := range tests {
		got, err := path.Match(tt.pattern, tt.key)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s ~ %s", tt.pattern, tt.key)
	}
}
