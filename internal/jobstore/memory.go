package jobstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"promo-studio-bot/internal/imagegen"
)

type Memory struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Memory{cache: cache.New(ttl, ttl*2)}
}

func (m *Memory) Save(_ context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.SetDefault(job.ID, job)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.cache.Get(id)
	if !ok {
		return Job{}, ErrNotFound
	}
	return v.(Job), nil
}

func (m *Memory) SetTask(_ context.Context, id string, task imagegen.Task) error {
	if !validStyle(task.Style) {
		return fmt.Errorf("%w: %d", imagegen.ErrStyleOutOfRange, task.Style)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.cache.Get(id)
	if !ok {
		return ErrNotFound
	}
	job := v.(Job)
	job.Tasks[task.Style] = task
	m.cache.SetDefault(id, job)
	return nil
}
