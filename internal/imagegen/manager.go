package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"promo-studio-bot/internal/product"
)

const StyleCount = 3

var ErrStyleOutOfRange = errors.New("style out of range")

type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

type Task struct {
	Style     int       `json:"style"`
	State     State     `json:"state"`
	URL       string    `json:"url,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t Task) Done() bool {
	return t.State == StateSucceeded || t.State == StateFailed
}

type Tasks [StyleCount]Task

func NewTasks() Tasks {
	var tasks Tasks
	now := time.Now()
	for i := range tasks {
		tasks[i] = Task{Style: i, State: StateQueued, UpdatedAt: now}
	}
	return tasks
}

func (ts Tasks) Failed() []int {
	var out []int
	for i, t := range ts {
		if t.State == StateFailed {
			out = append(out, i)
		}
	}
	return out
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, p product.Product, v product.CopyVariant, style int) (string, error)
}

type Options struct {
	Generator ImageGenerator
	// Limiter paces calls across all styles; nil disables pacing.
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

type Manager struct {
	gen     ImageGenerator
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		gen:     opts.Generator,
		limiter: opts.Limiter,
		logger:  logger,
	}
}

// Run generates all styles concurrently and returns once every task is
// terminal. notify, if set, sees each state change as it happens and must be
// safe for concurrent use.
func (m *Manager) Run(ctx context.Context, p product.Product, cr product.CopyResult, notify func(Task)) Tasks {
	tasks := NewTasks()

	var eg errgroup.Group
	for i := range tasks {
		i := i
		eg.Go(func() error {
			tasks[i] = m.runOne(ctx, p, cr.Variant(i), i, notify)
			return nil
		})
	}
	_ = eg.Wait()

	return tasks
}

// Retry re-runs one style and returns a copy of tasks with only that slot replaced.
func (m *Manager) Retry(ctx context.Context, p product.Product, cr product.CopyResult, tasks Tasks, style int) (Tasks, error) {
	if style < 0 || style >= StyleCount {
		return tasks, fmt.Errorf("%w: %d", ErrStyleOutOfRange, style)
	}
	tasks[style] = m.runOne(ctx, p, cr.Variant(style), style, nil)
	return tasks, nil
}

func (m *Manager) runOne(ctx context.Context, p product.Product, v product.CopyVariant, style int, notify func(Task)) Task {
	task := Task{Style: style, State: StateRunning, UpdatedAt: time.Now()}
	emit(notify, task)

	url, err := m.generate(ctx, p, v, style)
	task.UpdatedAt = time.Now()
	if err != nil {
		m.logger.Warn("image style failed", "style", style, "err", err)
		task.State = StateFailed
		task.Error = err.Error()
	} else {
		task.State = StateSucceeded
		task.URL = url
	}

	emit(notify, task)
	return task
}

func (m *Manager) generate(ctx context.Context, p product.Product, v product.CopyVariant, style int) (string, error) {
	if m.gen == nil {
		return "", errors.New("image generator is not configured")
	}
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}
	return m.gen.GenerateImage(ctx, p, v, style)
}

func emit(notify func(Task), task Task) {
	if notify != nil {
		notify(task)
	}
}

// Notifier serializes notify callbacks coming from concurrent tasks.
func Notifier(fn func(Task)) func(Task) {
	if fn == nil {
		return nil
	}
	var mu sync.Mutex
	return func(t Task) {
		mu.Lock()
		defer mu.Unlock()
		fn(t)
	}
}
