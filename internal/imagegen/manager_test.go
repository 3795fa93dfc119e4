package imagegen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"promo-studio-bot/internal/product"
)

type fakeImages struct {
	mu     sync.Mutex
	delays [StyleCount]time.Duration
	fail   map[int]error
	calls  [StyleCount]int
	titles [StyleCount]string
}

func (f *fakeImages) GenerateImage(ctx context.Context, _ product.Product, v product.CopyVariant, style int) (string, error) {
	f.mu.Lock()
	f.calls[style]++
	f.titles[style] = v.Title
	delay := f.delays[style]
	err := f.fail[style]
	f.mu.Unlock()

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://cdn.example/%d.png", style), nil
}

func threeVariants() product.CopyResult {
	return product.CopyResult{
		Variants: []product.CopyVariant{{Title: "v0"}, {Title: "v1"}, {Title: "v2"}},
		Source:   product.SourceTemplate,
	}
}

func TestRunIsolatesFailureRegardlessOfOrder(t *testing.T) {
	orders := [][StyleCount]time.Duration{
		{30 * time.Millisecond, 0, 15 * time.Millisecond},
		{0, 30 * time.Millisecond, 15 * time.Millisecond},
		{15 * time.Millisecond, 15 * time.Millisecond, 0},
	}

	for i, delays := range orders {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			gen := &fakeImages{delays: delays, fail: map[int]error{1: errors.New("siliconflow API 500: boom")}}
			m := New(Options{Generator: gen})

			tasks := m.Run(context.Background(), product.Product{Name: "Mug"}, threeVariants(), nil)

			assert.Equal(t, []int{1}, tasks.Failed())
			for style, task := range tasks {
				assert.Equal(t, style, task.Style)
				assert.True(t, task.Done())
			}
			assert.Equal(t, StateSucceeded, tasks[0].State)
			assert.Equal(t, "https://cdn.example/0.png", tasks[0].URL)
			assert.Empty(t, tasks[0].Error)
			assert.Equal(t, StateFailed, tasks[1].State)
			assert.Equal(t, "siliconflow API 500: boom", tasks[1].Error)
			assert.Empty(t, tasks[1].URL)
			assert.Equal(t, StateSucceeded, tasks[2].State)
			assert.Equal(t, [StyleCount]string{"v0", "v1", "v2"}, gen.titles)
		})
	}
}

func TestRunNotifiesEveryTransition(t *testing.T) {
	gen := &fakeImages{fail: map[int]error{2: errors.New("nope")}}
	m := New(Options{Generator: gen})

	var seen []Task
	notify := Notifier(func(task Task) { seen = append(seen, task) })

	tasks := m.Run(context.Background(), product.Product{}, threeVariants(), notify)

	require.Len(t, seen, 2*StyleCount)
	terminal := map[int]State{}
	for _, task := range seen {
		if task.Done() {
			terminal[task.Style] = task.State
		}
	}
	assert.Equal(t, map[int]State{0: StateSucceeded, 1: StateSucceeded, 2: StateFailed}, terminal)
	assert.Equal(t, []int{2}, tasks.Failed())
}

func TestRetryReplacesOnlyOneSlot(t *testing.T) {
	gen := &fakeImages{fail: map[int]error{2: errors.New("timeout")}}
	m := New(Options{Generator: gen})
	p := product.Product{Name: "Mug"}

	before := m.Run(context.Background(), p, threeVariants(), nil)
	require.Equal(t, StateFailed, before[2].State)

	gen.mu.Lock()
	delete(gen.fail, 2)
	gen.fail[0] = errors.New("would fail if re-run")
	gen.mu.Unlock()

	after, err := m.Retry(context.Background(), p, threeVariants(), before, 2)
	require.NoError(t, err)

	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[1], after[1])
	assert.Equal(t, StateSucceeded, after[2].State)
	assert.Equal(t, "https://cdn.example/2.png", after[2].URL)
	assert.Empty(t, after[2].Error)
	assert.Equal(t, StateFailed, before[2].State)
	assert.Equal(t, [StyleCount]int{1, 1, 2}, gen.calls)
}

func TestRetryRejectsUnknownStyle(t *testing.T) {
	m := New(Options{Generator: &fakeImages{}})
	tasks := NewTasks()

	got, err := m.Retry(context.Background(), product.Product{}, threeVariants(), tasks, 3)
	assert.ErrorIs(t, err, ErrStyleOutOfRange)
	assert.Equal(t, tasks, got)
}

func TestRunWithShortCopyUsesFirstVariant(t *testing.T) {
	gen := &fakeImages{}
	m := New(Options{Generator: gen})

	m.Run(context.Background(), product.Product{}, product.CopyResult{Variants: []product.CopyVariant{{Title: "only"}}}, nil)

	assert.Equal(t, [StyleCount]string{"only", "only", "only"}, gen.titles)
}

func TestRunCanceledContextFailsAllTasks(t *testing.T) {
	gen := &fakeImages{delays: [StyleCount]time.Duration{time.Second, time.Second, time.Second}}
	m := New(Options{Generator: gen, Limiter: rate.NewLimiter(rate.Every(time.Millisecond), 3)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := m.Run(ctx, product.Product{}, threeVariants(), nil)
	assert.Equal(t, []int{0, 1, 2}, tasks.Failed())
}

func TestRunWithoutGenerator(t *testing.T) {
	tasks := New(Options{}).Run(context.Background(), product.Product{}, threeVariants(), nil)
	assert.Equal(t, []int{0, 1, 2}, tasks.Failed())
}
