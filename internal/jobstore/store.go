package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"promo-studio-bot/internal/imagegen"
	"promo-studio-bot/internal/product"
)

var ErrNotFound = errors.New("job not found")

type Job struct {
	ID        string             `json:"id"`
	Product   product.Product    `json:"product"`
	Copy      product.CopyResult `json:"copy"`
	Tasks     imagegen.Tasks     `json:"tasks"`
	CreatedAt time.Time          `json:"created_at"`
}

func NewJob(p product.Product, cr product.CopyResult, tasks imagegen.Tasks) Job {
	return Job{
		ID:        uuid.NewString(),
		Product:   p,
		Copy:      cr,
		Tasks:     tasks,
		CreatedAt: time.Now().UTC(),
	}
}

// Store keeps finished generation passes so a single style can be retried later.
// SetTask replaces one slot without touching the others.
type Store interface {
	Save(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	SetTask(ctx context.Context, id string, task imagegen.Task) error
}

func validStyle(style int) bool {
	return style >= 0 && style < imagegen.StyleCount
}
