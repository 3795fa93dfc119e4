package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"promo-studio-bot/internal/imagegen"
	"promo-studio-bot/internal/jobstore"
	"promo-studio-bot/internal/product"
)

var errMissingName = errors.New("product name is required")

// ProductPayload is the wire form of a product. Photo is a data URL or bare base64.
type ProductPayload struct {
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
	Photo         string   `json:"photo,omitempty"`
}

func (pp ProductPayload) Product() (product.Product, error) {
	name := strings.TrimSpace(pp.Name)
	if name == "" {
		return product.Product{}, errMissingName
	}
	if pp.Price < 0 {
		return product.Product{}, errors.New("price must not be negative")
	}

	p := product.Product{
		Name:          name,
		Category:      strings.TrimSpace(pp.Category),
		Brand:         strings.TrimSpace(pp.Brand),
		Material:      strings.TrimSpace(pp.Material),
		Size:          strings.TrimSpace(pp.Size),
		Colors:        cleanList(pp.Colors),
		Audience:      strings.TrimSpace(pp.Audience),
		Price:         pp.Price,
		Platforms:     cleanList(pp.Platforms),
		SellingPoints: cleanList(pp.SellingPoints),
		Notes:         strings.TrimSpace(pp.Notes),
	}
	if len(p.SellingPoints) > product.BulletCount {
		p.SellingPoints = p.SellingPoints[:product.BulletCount]
	}

	if strings.TrimSpace(pp.Photo) != "" {
		photo, err := product.PhotoFromDataURL(pp.Photo)
		if err != nil {
			return product.Product{}, fmt.Errorf("invalid photo: %w", err)
		}
		p.Photo = photo
	}
	return p, nil
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// jobResponse omits the photo bytes; clients already hold them.
type jobResponse struct {
	ID        string             `json:"id"`
	Product   product.Product    `json:"product"`
	HasPhoto  bool               `json:"has_photo"`
	Copy      product.CopyResult `json:"copy"`
	Tasks     imagegen.Tasks     `json:"tasks"`
	Failed    []int              `json:"failed_styles"`
	CreatedAt time.Time          `json:"created_at"`
}

func newJobResponse(job jobstore.Job) jobResponse {
	p := job.Product
	hasPhoto := p.HasPhoto()
	p.Photo = nil

	failed := job.Tasks.Failed()
	if failed == nil {
		failed = []int{}
	}
	return jobResponse{
		ID:        job.ID,
		Product:   p,
		HasPhoto:  hasPhoto,
		Copy:      job.Copy,
		Tasks:     job.Tasks,
		Failed:    failed,
		CreatedAt: job.CreatedAt,
	}
}
