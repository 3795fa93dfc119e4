package copytpl

import (
	"strconv"
	"strings"

	"promo-studio-bot/internal/product"
)

type rule func(p product.Product) string

var titleRules = [product.VariantCount]rule{
	func(p product.Product) string {
		return join(p.Brand, p.Name, "must-have")
	},
	func(p product.Product) string {
		return join(or(p.SellingPoint(0), "Upgraded quality"), p.Name)
	},
	func(p product.Product) string {
		title := or(p.FirstPlatform(), "Every-platform") + " bestseller"
		if p.Price > 0 {
			title += ", now " + FormatPrice(p.Price)
		}
		return title
	},
}

var subtitleRules = [product.VariantCount]rule{
	func(p product.Product) string {
		return or(p.Brand, p.Category, "Quality") + " pick, don't miss it"
	},
	func(p product.Product) string {
		return or(p.Material, "Premium") + " craftsmanship, a must for " + or(p.Audience, "everyone")
	},
	func(p product.Product) string {
		return or(p.Category, "Editor's") + " recommendation, buy with confidence"
	},
}

var hookRules = [product.VariantCount]rule{
	func(p product.Product) string {
		price := "unbeatable value"
		if p.Price > 0 {
			price = "only " + FormatPrice(p.Price)
		}
		return greeting(p.Audience) + ", look here! This " + or(p.Name, "product") + " is amazing: " +
			strings.ToLower(or(p.SellingPoint(0), "outstanding quality")) + ", " + price + ". You'll regret missing it!"
	},
	func(p product.Product) string {
		hook := "The " + or(p.Category, "item") + " everyone is grabbing is here! "
		if p.Brand != "" {
			hook += "By " + p.Brand + ", "
		}
		hook += strings.ToLower(or(p.SellingPoint(1), "quality guaranteed")) + ". "
		hook += join(p.FirstPlatform(), "bestseller price drop, grab it before it's gone!")
		return hook
	},
	func(p product.Product) string {
		lead := "At a great price"
		if p.Price > 0 {
			lead = "For just " + FormatPrice(p.Price)
		}
		return lead + ", own a " + join(or(p.Material, "high-quality"), or(p.Category, "item")) +
			" with " + strings.ToLower(or(p.SellingPoint(0), "an upgraded experience")) + ". Everyone is getting one!"
	},
}

// Generate builds three variants from product fields alone. It never fails.
func Generate(p product.Product) product.CopyResult {
	p = trimmed(p)

	variants := make([]product.CopyVariant, product.VariantCount)
	for i := range variants {
		variants[i] = product.CopyVariant{
			Title:    orFallback(titleRules[i](p), fallbackTitle(p, i)),
			Subtitle: orFallback(subtitleRules[i](p), "Quality goods worth having"),
			Bullets:  product.NormalizeBullets(p.SellingPoints),
			Hook:     orFallback(hookRules[i](p), "Great value, limited-time offer!"),
		}
	}

	return product.CopyResult{
		Variants: variants,
		Source:   product.SourceTemplate,
	}
}

func FormatPrice(price float64) string {
	return "¥" + strconv.FormatFloat(price, 'f', -1, 64)
}

func greeting(audience string) string {
	switch strings.ToLower(audience) {
	case "women", "woman", "female", "ladies", "女性":
		return "Ladies"
	case "men", "man", "male", "guys", "男性":
		return "Guys"
	}
	return "Friends"
}

func fallbackTitle(p product.Product, i int) string {
	return or(p.Name, "Product") + " plan " + strconv.Itoa(i+1)
}

func trimmed(p product.Product) product.Product {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Brand = strings.TrimSpace(p.Brand)
	p.Material = strings.TrimSpace(p.Material)
	p.Audience = strings.TrimSpace(p.Audience)
	return p
}

func or(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func orFallback(value, fallback string) string {
	if value = collapse(value); value != "" {
		return value
	}
	return fallback
}

func join(parts ...string) string {
	return collapse(strings.Join(parts, " "))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
