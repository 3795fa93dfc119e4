package handlers

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"promo-studio-bot/internal/product"
)

var errNoProductName = errors.New("caption has no product name")

var (
	fieldRegex  = regexp.MustCompile(`^\s*(?:[-*•]\s*)?([\p{L}_ ]{1,24}?)\s*[:：=]\s*(.+?)\s*$`)
	bulletRegex = regexp.MustCompile(`^\s*[-*•]\s*(.+?)\s*$`)
	listSplit   = regexp.MustCompile(`\s*[,;，；、|]\s*`)
	priceRegex  = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

type field int

const (
	fieldName field = iota
	fieldCategory
	fieldBrand
	fieldMaterial
	fieldSize
	fieldColors
	fieldAudience
	fieldPrice
	fieldPlatforms
	fieldSellingPoints
	fieldNotes
)

var fieldAliases = map[string]field{
	"name": fieldName, "product": fieldName, "title": fieldName, "名称": fieldName, "商品": fieldName,
	"category": fieldCategory, "type": fieldCategory, "品类": fieldCategory, "类目": fieldCategory,
	"brand": fieldBrand, "品牌": fieldBrand,
	"material": fieldMaterial, "materials": fieldMaterial, "材质": fieldMaterial,
	"size": fieldSize, "dimensions": fieldSize, "尺寸": fieldSize, "规格": fieldSize,
	"color": fieldColors, "colors": fieldColors, "colour": fieldColors, "colours": fieldColors, "颜色": fieldColors,
	"audience": fieldAudience, "for": fieldAudience, "target": fieldAudience, "人群": fieldAudience,
	"price": fieldPrice, "价格": fieldPrice,
	"platform": fieldPlatforms, "platforms": fieldPlatforms, "平台": fieldPlatforms,
	"selling_points": fieldSellingPoints, "points": fieldSellingPoints, "features": fieldSellingPoints,
	"sp": fieldSellingPoints, "bullets": fieldSellingPoints, "卖点": fieldSellingPoints,
	"notes": fieldNotes, "note": fieldNotes, "备注": fieldNotes,
}

// ParseCaption reads a product from free-form text. Recognized "key: value"
// lines fill fields, the first other line is the name, "- item" lines are
// selling points and anything else ends up in Notes.
func ParseCaption(text string) (product.Product, error) {
	var p product.Product
	var notes []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := fieldRegex.FindStringSubmatch(line); m != nil {
			if f, ok := fieldAliases[normalizeKey(m[1])]; ok {
				applyField(&p, f, m[2], &notes)
				continue
			}
		}

		if m := bulletRegex.FindStringSubmatch(line); m != nil {
			p.SellingPoints = append(p.SellingPoints, m[1])
			continue
		}

		if p.Name == "" {
			p.Name = line
			continue
		}
		notes = append(notes, line)
	}

	p.Notes = strings.Join(notes, "\n")
	if len(p.SellingPoints) > product.BulletCount {
		p.SellingPoints = p.SellingPoints[:product.BulletCount]
	}
	if p.Name == "" {
		return p, errNoProductName
	}
	return p, nil
}

func applyField(p *product.Product, f field, value string, notes *[]string) {
	switch f {
	case fieldName:
		p.Name = value
	case fieldCategory:
		p.Category = value
	case fieldBrand:
		p.Brand = value
	case fieldMaterial:
		p.Material = value
	case fieldSize:
		p.Size = value
	case fieldColors:
		p.Colors = append(p.Colors, splitList(value)...)
	case fieldAudience:
		p.Audience = value
	case fieldPrice:
		if price, ok := parsePrice(value); ok {
			p.Price = price
		} else {
			*notes = append(*notes, "Price: "+value)
		}
	case fieldPlatforms:
		p.Platforms = append(p.Platforms, splitList(value)...)
	case fieldSellingPoints:
		p.SellingPoints = append(p.SellingPoints, splitList(value)...)
	case fieldNotes:
		*notes = append(*notes, value)
	}
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.Join(strings.Fields(key), "_")
}

func splitList(value string) []string {
	var out []string
	for _, part := range listSplit.Split(value, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePrice(value string) (float64, bool) {
	// Commas are thousands separators: "¥1,299" is 1299.
	m := priceRegex.FindString(strings.ReplaceAll(value, ",", ""))
	if m == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(m, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}
