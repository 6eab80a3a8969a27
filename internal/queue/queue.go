package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one unit of work. Body is the JSON payload of the event named by Type.
type Message struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	// Consume streams messages until ctx is done, then closes the channel.
	Consume(ctx context.Context) (<-chan Message, error)
}

// InMemory is a channel-backed queue for single-process deployments and tests.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message, blocking while the buffer is full.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume forwards buffered messages to a single reader.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-q.ch:
				if !deliver(ctx, out, msg) {
					return
				}
			}
		}
	}()
	return out, nil
}

// deliver hands msg to the reader, reporting false once ctx is done.
func deliver(ctx context.Context, out chan<- Message, msg Message) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// RedisQueue implements a Redis list-backed queue.
type RedisQueue struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "internship:events"
	}
	return &RedisQueue{client: client, key: key, timeout: time.Second}
}

// Publish pushes msg onto the head of the list.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// Consume pops from the tail of the list. Undecodable entries are dropped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for ctx.Err() == nil {
			msg, ok, err := q.pop(ctx)
			switch {
			case err != nil:
				// connection trouble; wait before polling again
				select {
				case <-ctx.Done():
					return
				case <-time.After(q.timeout):
				}
			case ok:
				if !deliver(ctx, out, msg) {
					// best effort; a failed push back loses the message
					_ = q.requeue(ctx, msg)
					return
				}
			}
		}
	}()
	return out, nil
}

// requeue puts a popped but undelivered message back on the tail, where BRPOP reads next.
func (q *RedisQueue) requeue(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
	defer cancel()
	return q.client.RPush(ctx, q.key, raw).Err()
}

// pop waits up to q.timeout for one entry. ok is false on an empty poll or a bad payload.
func (q *RedisQueue) pop(ctx context.Context) (msg Message, ok bool, err error) {
	res, err := q.client.BRPop(ctx, q.timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, err
	}
	if len(res) != 2 || json.Unmarshal([]byte(res[1]), &msg) != nil {
		return Message{}, false, nil
	}
	return msg, true, nil
}
