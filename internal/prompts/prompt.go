package prompts

import (
	"fmt"
	"strconv"
	"strings"

	"promo-studio-bot/internal/product"
)

const SystemPrompt = `You are a senior e-commerce copywriter who writes high-conversion titles, selling points and marketing hooks.
Using the product information (and the photo, when one is attached), write 3 copy variants in different styles.

Return JSON only, exactly in this shape, with nothing else:
[
  {
    "title": "main title (10-20 words, core keyword first, built for clicks)",
    "subtitle": "subtitle (8-15 words, a supporting selling point or scenario)",
    "bullets": ["point 1", "point 2", "point 3", "point 4", "point 5"],
    "hook": "marketing hook (one or two sentences, urgency or resonance, fit for the first screen of a detail page or a short video opener)",
    "keywords": ["keyword 1", "keyword 2", "keyword 3", "keyword 4", "keyword 5"]
  },
  { ... },
  { ... }
]

Rules:
1. Variant 1: rational, feature-led. Stress function and material.
2. Variant 2: emotional, scenario-led. Stress usage scenes and resonance.
3. Variant 3: promotional, urgency-led. Stress value for money and limited-time offers.
4. Every variant has exactly 5 bullets, each short and punchy (3-8 words).
5. keywords are search keywords for SEO.
6. Match the tone of the target platform.
7. Output JSON only, no explanations.`

// Summary lists the non-empty product fields, one per line.
func Summary(p product.Product) string {
	var lines []string
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, label+": "+value)
		}
	}

	add("Product name", p.Name)
	add("Category", p.Category)
	add("Brand", p.Brand)
	add("Material", p.Material)
	add("Size", p.Size)
	add("Colors", strings.Join(uniq(p.Colors), ", "))
	add("Audience", p.Audience)
	if p.Price > 0 {
		add("Price", strconv.FormatFloat(p.Price, 'f', -1, 64))
	}
	add("Target platforms", strings.Join(uniq(p.Platforms), ", "))
	add("Existing selling points", strings.Join(uniq(p.SellingPoints), ", "))
	add("Notes", p.Notes)

	return strings.Join(lines, "\n")
}

func VisionUserPrompt(p product.Product) string {
	return "Write 3 e-commerce copy variants from this product photo and the product information below:\n\n" + Summary(p)
}

func TextUserPrompt(p product.Product) string {
	return "Write 3 e-commerce copy variants from the product information below:\n\n" + Summary(p)
}

// ImagePrompt builds the English text-to-image prompt for one style.
func ImagePrompt(p product.Product, v product.CopyVariant, style int) string {
	s := StyleAt(style)

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "product"
	}

	subject := []string{name}
	if c := strings.TrimSpace(p.Category); c != "" {
		subject = append(subject, c)
	}
	if look := strings.Join(strings.Fields(p.Material+" "+p.FirstColor()), " "); look != "" {
		subject = append(subject, look)
	}

	parts := append(subject, s.Traits...)
	if themes := uniq(v.Keywords); len(themes) > 0 {
		if len(themes) > 3 {
			themes = themes[:3]
		}
		parts = append(parts, fmt.Sprintf("themes: %s", strings.Join(themes, " / ")))
	}

	return s.Lead + " " + strings.Join(parts, ", ")
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
