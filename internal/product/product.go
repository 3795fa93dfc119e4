package product

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	VariantCount = 3
	BulletCount  = 5
)

type Source string

const (
	SourceAI       Source = "ai"
	SourceTemplate Source = "template"
)

type Photo struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type,omitempty"`
}

type Product struct {
	Name          string   `json:"name"`
	Category      string   `json:"category,omitempty"`
	Brand         string   `json:"brand,omitempty"`
	Material      string   `json:"material,omitempty"`
	Size          string   `json:"size,omitempty"`
	Colors        []string `json:"colors,omitempty"`
	Audience      string   `json:"audience,omitempty"`
	Price         float64  `json:"price,omitempty"`
	Platforms     []string `json:"platforms,omitempty"`
	SellingPoints []string `json:"selling_points,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Photo         *Photo   `json:"photo,omitempty"`
}

func (p Product) HasPhoto() bool {
	return p.Photo != nil && len(p.Photo.Data) > 0
}

func (p Product) PhotoBytes() []byte {
	if !p.HasPhoto() {
		return nil
	}
	return p.Photo.Data
}

// PhotoDataURL returns the photo as a data URL, or "" without a photo.
func (p Product) PhotoDataURL() string {
	if !p.HasPhoto() {
		return ""
	}
	mimeType := strings.TrimSpace(p.Photo.MimeType)
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = sniffMime(p.Photo.Data)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(p.Photo.Data)
}

// PhotoFromDataURL accepts a data URL or bare base64 image data.
func PhotoFromDataURL(value string) (*Photo, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("empty data url")
	}

	mimeType, payload := "", value
	if strings.HasPrefix(value, "data:") {
		parts := strings.SplitN(value, ",", 2)
		if len(parts) != 2 {
			return nil, errors.New("invalid data url")
		}
		meta := strings.Split(strings.TrimPrefix(parts[0], "data:"), ";")
		mimeType = strings.TrimSpace(meta[0])
		payload = parts[1]
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = sniffMime(data)
	}
	return &Photo{Data: data, MimeType: mimeType}, nil
}

func sniffMime(data []byte) string {
	mimeType := http.DetectContentType(data)
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/jpeg"
	}
	return mimeType
}

func (p Product) FirstColor() string {
	return first(p.Colors)
}

func (p Product) FirstPlatform() string {
	return first(p.Platforms)
}

func (p Product) SellingPoint(i int) string {
	if i < 0 || i >= len(p.SellingPoints) {
		return ""
	}
	return strings.TrimSpace(p.SellingPoints[i])
}

type CopyVariant struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Bullets  []string `json:"bullets"`
	Hook     string   `json:"hook"`
	Keywords []string `json:"keywords,omitempty"`
}

// Highlight is the single line the renderer shows under the title.
func (v CopyVariant) Highlight() string {
	for _, b := range v.Bullets {
		if b = strings.TrimSpace(b); b != "" {
			return b
		}
	}
	return strings.TrimSpace(v.Subtitle)
}

type CopyResult struct {
	Variants   []CopyVariant `json:"variants"`
	Source     Source        `json:"source"`
	Diagnostic string        `json:"diagnostic,omitempty"`
}

// Variant returns variant i, falling back to the first one.
func (r CopyResult) Variant(i int) CopyVariant {
	if i >= 0 && i < len(r.Variants) {
		return r.Variants[i]
	}
	if len(r.Variants) > 0 {
		return r.Variants[0]
	}
	return CopyVariant{}
}

var GenericBullets = []string{
	"Quality guaranteed",
	"Great value",
	"Fast shipping",
	"Worry-free after-sales",
	"Highly rated",
}

// NormalizeBullets returns exactly BulletCount non-blank bullets.
func NormalizeBullets(in []string) []string {
	out := make([]string, 0, BulletCount)
	seen := make(map[string]struct{}, BulletCount)
	for _, b := range in {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		out = append(out, b)
		seen[b] = struct{}{}
		if len(out) == BulletCount {
			return out
		}
	}
	if len(out) == 0 {
		return append(out, GenericBullets...)
	}
	for _, b := range GenericBullets {
		if len(out) == BulletCount {
			break
		}
		if _, ok := seen[b]; ok {
			continue
		}
		out = append(out, b)
	}
	return out
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
