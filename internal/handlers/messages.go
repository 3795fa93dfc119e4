package handlers

import (
	"fmt"
	"strings"

	"promo-studio-bot/internal/copytpl"
	"promo-studio-bot/internal/product"
	"promo-studio-bot/internal/prompts"
)

const captionExample = `Acme Thermos Pro
category: drinkware
brand: Acme
colors: black, silver
price: 129
platforms: Taobao, JD
- Keeps drinks hot for 12 hours
- Leak-proof lid`

const startText = "🛍 Promo Studio\n\n" +
	"Send a product photo with a caption and I will write 3 listing copy variants " +
	"and make 3 promo images.\n\n" +
	"Caption example:\n" + captionExample + "\n\n" +
	"/help shows all commands."

const helpText = "🛍 Help\n\n" +
	"Photo or album + caption: generate copy and images (the first photo is used).\n" +
	"Text only: same, without a photo.\n\n" +
	"/styles: the three image styles\n" +
	"/retry N: regenerate image style N (1-3)\n" +
	"/render N: draw style N locally from the copy\n" +
	"/regen: run the last product again\n\n" +
	"Caption format:\n" + captionExample

func stylesText() string {
	var b strings.Builder
	b.WriteString("🎨 Styles\n")
	for _, s := range prompts.Styles() {
		fmt.Fprintf(&b, "\n%d. %s\n%s, %s", s.Index+1, s.Name, s.Lead, strings.Join(s.Traits, ", "))
	}
	return b.String()
}

func formatCopy(p product.Product, cr product.CopyResult) string {
	var b strings.Builder
	if cr.Source == product.SourceAI {
		b.WriteString("✍️ Listing copy (AI)\n")
	} else {
		b.WriteString("✍️ Listing copy (template)\n")
	}
	if line := priceLine(p); line != "" {
		b.WriteString(line + "\n")
	}

	for i, v := range cr.Variants {
		fmt.Fprintf(&b, "\n— Variant %d —\n%s\n%s\n", i+1, v.Title, v.Subtitle)
		for _, bullet := range v.Bullets {
			fmt.Fprintf(&b, "• %s\n", bullet)
		}
		if v.Hook != "" {
			fmt.Fprintf(&b, "💬 %s\n", v.Hook)
		}
		if len(v.Keywords) > 0 {
			tags := make([]string, 0, len(v.Keywords))
			for _, k := range v.Keywords {
				tags = append(tags, "#"+strings.Join(strings.Fields(k), ""))
			}
			b.WriteString(strings.Join(tags, " ") + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func styleCaption(style int, v product.CopyVariant) string {
	name := prompts.StyleAt(style).Name
	return fmt.Sprintf("%d. %s · %s", style+1, name, v.Title)
}

func failedText(styles []int) string {
	labels := make([]string, 0, len(styles))
	for _, s := range styles {
		labels = append(labels, fmt.Sprintf("%d", s+1))
	}
	return fmt.Sprintf("⚠️ AI image failed for style %s; a local render was sent instead. Retry?",
		strings.Join(labels, ", "))
}

func priceLine(p product.Product) string {
	if p.Price <= 0 {
		return ""
	}
	return "💰 " + copytpl.FormatPrice(p.Price)
}
