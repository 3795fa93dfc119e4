package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"promo-studio-bot/internal/imagegen"
)

const (
	keyPrefix = "promo:job:"
	fieldJob  = "job"
)

// setTaskScript writes a task field only while the job body is present. The
// check and the write run as one step, so an expired job is never recreated
// as a task-only hash without a TTL.
var setTaskScript = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[2], ARGV[3])
return 1
`)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis stores each job as a hash: the job body under "job" and one field per
// style, so a retry rewrites only its own field.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Save(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	values := []any{fieldJob, body}
	for _, task := range job.Tasks {
		raw, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("marshal task: %w", err)
		}
		values = append(values, taskField(task.Style), raw)
	}

	key := keyPrefix + job.ID
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save job: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (Job, error) {
	fields, err := r.client.HGetAll(ctx, keyPrefix+id).Result()
	if err != nil {
		return Job{}, fmt.Errorf("redis get job: %w", err)
	}

	body, ok := fields[fieldJob]
	if !ok {
		return Job{}, ErrNotFound
	}

	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}

	for style := range job.Tasks {
		raw, ok := fields[taskField(style)]
		if !ok {
			continue
		}
		var task imagegen.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return Job{}, fmt.Errorf("decode task %d: %w", style, err)
		}
		job.Tasks[style] = task
	}
	return job, nil
}

func (r *Redis) SetTask(ctx context.Context, id string, task imagegen.Task) error {
	if !validStyle(task.Style) {
		return fmt.Errorf("%w: %d", imagegen.ErrStyleOutOfRange, task.Style)
	}

	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	written, err := setTaskScript.Run(ctx, r.client, []string{keyPrefix + id}, fieldJob, taskField(task.Style), raw).Int()
	if err != nil {
		return fmt.Errorf("redis set task: %w", err)
	}
	if written == 0 {
		return ErrNotFound
	}
	return nil
}

func taskField(style int) string {
	return "task:" + strconv.Itoa(style)
}
