package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"promo-studio-bot/internal/product"
)

func TestSummarySkipsEmptyFields(t *testing.T) {
	got := Summary(product.Product{
		Name:      "Ceramic Mug",
		Colors:    []string{"Sand", " ", "Sand", "Ink"},
		Price:     39.9,
		Platforms: nil,
	})

	assert.Equal(t, "Product name: Ceramic Mug\nColors: Sand, Ink\nPrice: 39.9", got)
	assert.Empty(t, Summary(product.Product{}))
}

func TestImagePromptPerStyle(t *testing.T) {
	p := product.Product{Name: "Ceramic Mug", Category: "Kitchenware", Material: "stoneware", Colors: []string{"sand"}}

	tests := []struct {
		style  int
		prefix string
		trait  string
	}{
		{style: 0, prefix: "Professional e-commerce product photo of Ceramic Mug, Kitchenware, stoneware sand", trait: "clean white background"},
		{style: 1, prefix: "Lifestyle product photo of Ceramic Mug", trait: "warm ambient lighting"},
		{style: 2, prefix: "Bold promotional poster for Ceramic Mug", trait: "sale banner aesthetic"},
		{style: 5, prefix: "Bold promotional poster for", trait: "vibrant colors"},
	}

	for _, tt := range tests {
		got := ImagePrompt(p, product.CopyVariant{}, tt.style)
		assert.True(t, strings.HasPrefix(got, tt.prefix), got)
		assert.Contains(t, got, tt.trait)
		assert.NotContains(t, got, "themes:")
	}
}

func TestImagePromptDegradesAndAddsThemes(t *testing.T) {
	got := ImagePrompt(product.Product{}, product.CopyVariant{Keywords: []string{"gift", "cozy", "gift", "winter", "sale"}}, 0)

	assert.True(t, strings.HasPrefix(got, "Professional e-commerce product photo of product, clean white background"), got)
	assert.NotContains(t, got, ", ,")
	assert.True(t, strings.HasSuffix(got, "themes: gift / cozy / winter"), got)
}

func TestStylesCatalog(t *testing.T) {
	all := Styles()
	assert.Len(t, all, 3)
	for i, s := range all {
		assert.Equal(t, i, s.Index)
		assert.NotEmpty(t, s.Key)
	}

	all[0].Traits[0] = "changed"
	assert.Equal(t, "clean white background", StyleAt(0).Traits[0])
}
