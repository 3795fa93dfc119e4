package jobstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-studio-bot/internal/imagegen"
	"promo-studio-bot/internal/product"
)

func sampleJob() Job {
	tasks := imagegen.NewTasks()
	tasks[0] = imagegen.Task{Style: 0, State: imagegen.StateSucceeded, URL: "https://cdn.example/0.png"}
	tasks[1] = imagegen.Task{Style: 1, State: imagegen.StateFailed, Error: "timeout"}
	tasks[2] = imagegen.Task{Style: 2, State: imagegen.StateSucceeded, URL: "https://cdn.example/2.png"}

	return NewJob(
		product.Product{Name: "Mug", Photo: &product.Photo{Data: []byte{1, 2, 3}, MimeType: "image/png"}},
		product.CopyResult{Variants: []product.CopyVariant{{Title: "a"}, {Title: "b"}, {Title: "c"}}, Source: product.SourceTemplate},
		tasks,
	)
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	job := sampleJob()

	_, err := store.Get(ctx, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, job))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.Product.Photo.Data, got.Product.Photo.Data)
	assert.Equal(t, "b", got.Copy.Variants[1].Title)
	assert.Equal(t, imagegen.StateFailed, got.Tasks[1].State)

	retried := imagegen.Task{Style: 1, State: imagegen.StateSucceeded, URL: "https://cdn.example/1.png"}
	require.NoError(t, store.SetTask(ctx, job.ID, retried))

	got, err = store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Tasks[0].URL, got.Tasks[0].URL)
	assert.Equal(t, retried.URL, got.Tasks[1].URL)
	assert.Equal(t, imagegen.StateSucceeded, got.Tasks[1].State)
	assert.Equal(t, job.Tasks[2].URL, got.Tasks[2].URL)

	assert.ErrorIs(t, store.SetTask(ctx, "missing", retried), ErrNotFound)
	assert.ErrorIs(t, store.SetTask(ctx, job.ID, imagegen.Task{Style: 3}), imagegen.ErrStyleOutOfRange)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory(time.Minute))
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemory(20 * time.Millisecond)
	job := sampleJob()
	require.NoError(t, store.Save(context.Background(), job))

	time.Sleep(40 * time.Millisecond)

	_, err := store.Get(context.Background(), job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	exerciseStore(t, redisStore(t, time.Minute))
}

func redisStore(t *testing.T, ttl time.Duration) *Redis {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	store, err := NewRedis(context.Background(), RedisOptions{Addr: addr, TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisSetTaskKeepsTTL(t *testing.T) {
	store := redisStore(t, time.Minute)
	ctx := context.Background()
	job := sampleJob()
	require.NoError(t, store.Save(ctx, job))

	require.NoError(t, store.SetTask(ctx, job.ID, imagegen.Task{Style: 2, State: imagegen.StateFailed, Error: "boom"}))

	ttl, err := store.client.TTL(ctx, keyPrefix+job.ID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisSetTaskOnExpiredJobLeavesNoKey(t *testing.T) {
	store := redisStore(t, time.Second)
	ctx := context.Background()
	job := sampleJob()
	require.NoError(t, store.Save(ctx, job))

	time.Sleep(1500 * time.Millisecond)

	err := store.SetTask(ctx, job.ID, imagegen.Task{Style: 1, State: imagegen.StateSucceeded, URL: "https://cdn.example/1.png"})
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := store.client.Exists(ctx, keyPrefix+job.ID).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
