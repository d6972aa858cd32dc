// Package queue is the Redis-backed keyword queue the pipeline pulls work
// from. Keywords wait in a priority set; per-keyword detail and lifecycle
// status live in a hash alongside it.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"medscribe/types"
)

const (
	queuedSet = "keywords:queued"
	keyPrefix = "keyword:"
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Queue wraps the Redis client behind the keyword lifecycle operations.
type Queue struct {
	rdb *redis.Client
}

// New connects to Redis and verifies connectivity.
func New(cfg Config) (*Queue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Queue{rdb: rdb}, nil
}

// FromEnv builds a queue from REDIS_ADDR / REDIS_PASSWORD / REDIS_DB.
func FromEnv() (*Queue, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	return New(Config{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), DB: db})
}

// Enqueue adds a keyword to the queue, scored by priority. Keywords without
// an ID get one assigned.
func (q *Queue) Enqueue(ctx context.Context, kw types.Keyword) (string, error) {
	if kw.ID == "" {
		kw.ID = uuid.New().String()
	}

	data, err := json.Marshal(kw)
	if err != nil {
		return "", fmt.Errorf("marshal keyword: %w", err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, keyPrefix+kw.ID, "data", data, "status", types.KeywordQueued)
	pipe.ZAdd(ctx, queuedSet, redis.Z{Score: kw.Priority, Member: kw.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("enqueue keyword %s: %w", kw.ID, err)
	}
	return kw.ID, nil
}

// Next pops the highest-priority queued keyword and marks it generating.
// The second return is false when the queue is empty.
func (q *Queue) Next(ctx context.Context) (types.Keyword, bool, error) {
	popped, err := q.rdb.ZPopMax(ctx, queuedSet, 1).Result()
	if err != nil {
		return types.Keyword{}, false, fmt.Errorf("pop keyword: %w", err)
	}
	if len(popped) == 0 {
		return types.Keyword{}, false, nil
	}

	id, _ := popped[0].Member.(string)
	data, err := q.rdb.HGet(ctx, keyPrefix+id, "data").Result()
	if err != nil {
		return types.Keyword{}, false, fmt.Errorf("load keyword %s: %w", id, err)
	}

	var kw types.Keyword
	if err := json.Unmarshal([]byte(data), &kw); err != nil {
		return types.Keyword{}, false, fmt.Errorf("decode keyword %s: %w", id, err)
	}

	if err := q.SetStatus(ctx, id, types.KeywordGenerating); err != nil {
		return types.Keyword{}, false, err
	}
	return kw, true, nil
}

// SetStatus updates a keyword's lifecycle status.
func (q *Queue) SetStatus(ctx context.Context, id, status string) error {
	if err := q.rdb.HSet(ctx, keyPrefix+id, "status", status).Err(); err != nil {
		return fmt.Errorf("set status %s on keyword %s: %w", status, id, err)
	}
	return nil
}

// Status reads a keyword's lifecycle status.
func (q *Queue) Status(ctx context.Context, id string) (string, error) {
	status, err := q.rdb.HGet(ctx, keyPrefix+id, "status").Result()
	if err == redis.Nil {
		return "", fmt.Errorf("keyword %s not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("get status of keyword %s: %w", id, err)
	}
	return status, nil
}

// Pending returns how many keywords are still queued.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, queuedSet).Result()
}

// Close releases the Redis connection.
func (q *Queue) Close() error {
	return q.rdb.Close()
}
