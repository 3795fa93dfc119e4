package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"promo-studio-bot/internal/product"
)

var ErrParse = errors.New("ai response could not be parsed")

const (
	DefaultTitle    = "Product title"
	DefaultSubtitle = "Quality pick"
	DefaultHook     = "Great value, limited-time offer!"
)

var fenceRegex = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// Parse extracts exactly three copy variants from raw model output.
// ErrParse is the only error it returns.
func Parse(raw, productName string) ([]product.CopyVariant, error) {
	text := stripFence(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrParse)
	}

	items, ok := decodeArray(text)
	if !ok {
		items, ok = findArray(text)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no json array found", ErrParse)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrParse)
	}

	for len(items) < product.VariantCount {
		items = append(items, items[0])
	}
	items = items[:product.VariantCount]

	variants := make([]product.CopyVariant, len(items))
	for i, item := range items {
		variants[i] = variantFrom(item, productName)
	}
	return variants, nil
}

func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if m := fenceRegex.FindStringSubmatch(text); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return text
}

func decodeArray(text string) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	return items, true
}

// findArray returns the first bracket-balanced substring that decodes as a JSON array.
func findArray(text string) ([]json.RawMessage, bool) {
	for start := strings.IndexByte(text, '['); start >= 0; {
		if end := matchingBracket(text, start); end > start {
			if items, ok := decodeArray(text[start : end+1]); ok {
				return items, true
			}
		}
		next := strings.IndexByte(text[start+1:], '[')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

func matchingBracket(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func variantFrom(raw json.RawMessage, productName string) product.CopyVariant {
	fields := objectFields(raw)

	title := stringField(fields["title"])
	if title == "" {
		title = strings.TrimSpace(productName)
	}
	if title == "" {
		title = DefaultTitle
	}

	bullets := stringList(fields["bullets"])
	if len(bullets) == 0 {
		bullets = append([]string(nil), product.GenericBullets...)
	} else {
		bullets = product.NormalizeBullets(bullets)
	}

	keywords := stringList(fields["keywords"])
	if keywords == nil {
		keywords = []string{}
	}

	return product.CopyVariant{
		Title:    title,
		Subtitle: orDefault(stringField(fields["subtitle"]), DefaultSubtitle),
		Bullets:  bullets,
		Hook:     orDefault(stringField(fields["hook"]), DefaultHook),
		Keywords: keywords,
	}
}

// objectFields decodes a JSON object with lower-cased keys. Anything else yields no fields.
func objectFields(raw json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, exists := out[key]; !exists || k == key {
			out[key] = v
		}
	}
	return out
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var single string
	if json.Unmarshal(raw, &single) == nil {
		return splitLines(single)
	}

	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := stringField(item); s != "" {
			out = append(out, s)
			continue
		}
		var n json.Number
		if json.Unmarshal(item, &n) == nil && n != "" {
			out = append(out, n.String())
		}
	}
	return out
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
