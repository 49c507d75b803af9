package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Outbox queues notifications for the external mailer and keeps a bounded log of what was
// queued for the email panel.
type Outbox interface {
	Enqueue(ctx context.Context, n domain.Notification) error
	Recent(ctx context.Context, limit int) ([]domain.Notification, error)
}

// RedisOutbox pushes JSON messages onto a Redis list consumed by the mailer.
type RedisOutbox struct {
	client      redis.Cmdable
	queueKey    string
	logKey      string
	logCapacity int64
}

// NewRedisOutbox builds an outbox on client.
func NewRedisOutbox(client redis.Cmdable, queueKey, logKey string, logCapacity int) *RedisOutbox {
	if logCapacity <= 0 {
		logCapacity = 500
	}
	return &RedisOutbox{client: client, queueKey: queueKey, logKey: logKey, logCapacity: int64(logCapacity)}
}

// Enqueue appends n to the queue and the log in one pipeline.
func (o *RedisOutbox) Enqueue(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	_, err = o.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, o.queueKey, body)
		pipe.LPush(ctx, o.logKey, body)
		pipe.LTrim(ctx, o.logKey, 0, o.logCapacity-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Recent returns up to limit logged notifications, newest first.
func (o *RedisOutbox) Recent(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := o.client.LRange(ctx, o.logKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read notification log: %w", err)
	}
	out := make([]domain.Notification, 0, len(raw))
	for _, item := range raw {
		var n domain.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// MemoryOutbox keeps notifications in process; used when Redis is disabled and in tests.
type MemoryOutbox struct {
	mu       sync.Mutex
	items    []domain.Notification
	capacity int
}

// NewMemoryOutbox returns an outbox retaining at most capacity entries.
func NewMemoryOutbox(capacity int) *MemoryOutbox {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryOutbox{capacity: capacity}
}

func (o *MemoryOutbox) Enqueue(_ context.Context, n domain.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, n)
	if len(o.items) > o.capacity {
		o.items = o.items[len(o.items)-o.capacity:]
	}
	return nil
}

func (o *MemoryOutbox) Recent(_ context.Context, limit int) ([]domain.Notification, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if limit <= 0 || limit > len(o.items) {
		limit = len(o.items)
	}
	out := make([]domain.Notification, 0, limit)
	for i := len(o.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, o.items[i])
	}
	return out, nil
}
