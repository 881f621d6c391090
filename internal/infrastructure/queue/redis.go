package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

// processingSuffix names the per-queue list holding in-flight deliveries.
const processingSuffix = ":processing"

// Redis implements the queue relay on Redis lists. A delivery is moved
// atomically from its queue onto a processing list, which bounds every
// consumer to one unacknowledged message: work survives a consumer crash
// and is requeued by Recover on the next start.
type Redis struct {
	client *redis.Client
}

var (
	_ ports.QueueConsumer  = (*Redis)(nil)
	_ ports.QueuePublisher = (*Redis)(nil)
)

// NewRedis connects a queue relay to the given Redis instance.
func NewRedis(addr, password string, db int) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: client}
}

// Ping verifies the connection during startup.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Publish appends the message to the tail of the queue.
func (r *Redis) Publish(ctx context.Context, queue string, msg domain.Message) error {
	body, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := r.client.RPush(ctx, queue, body).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", queue, err)
	}
	return nil
}

// Receive blocks until a message arrives or the timeout elapses. The
// returned delivery is already on the processing list and must be settled
// with Ack or Reject.
func (r *Redis) Receive(ctx context.Context, queue string, timeout time.Duration) (*ports.Delivery, error) {
	payload, err := r.client.BLMove(ctx, queue, queue+processingSuffix, "LEFT", "RIGHT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("receive from %s: %w", queue, err)
	}

	return &ports.Delivery{
		Queue: queue,
		Body:  []byte(payload),
		Token: payload,
	}, nil
}

// Ack removes the settled delivery from the processing list.
func (r *Redis) Ack(ctx context.Context, d *ports.Delivery) error {
	if err := r.settle(ctx, d); err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	return nil
}

// Reject drops the delivery without requeueing it. The job's status is
// the only remaining trace; recovery is an explicit operator retry.
func (r *Redis) Reject(ctx context.Context, d *ports.Delivery) error {
	if err := r.settle(ctx, d); err != nil {
		return fmt.Errorf("reject: %w", err)
	}
	return nil
}

func (r *Redis) settle(ctx context.Context, d *ports.Delivery) error {
	removed, err := r.client.LRem(ctx, d.Queue+processingSuffix, 1, d.Token).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("delivery not in flight on %s", d.Queue)
	}
	return nil
}

// Recover moves deliveries a previous consumer left in flight back onto
// the queue head so they are redelivered first. Called before consumers
// start; handlers tolerate the resulting reprocessing.
func (r *Redis) Recover(ctx context.Context, queue string) (int, error) {
	moved := 0
	for {
		_, err := r.client.LMove(ctx, queue+processingSuffix, queue, "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("recover %s: %w", queue, err)
		}
		moved++
	}
}

// Depth reports the number of waiting messages, for the operator API.
func (r *Redis) Depth(ctx context.Context, queue string) (int64, error) {
	n, err := r.client.LLen(ctx, queue).Result()
	if err != nil {
		return 0, fmt.Errorf("depth of %s: %w", queue, err)
	}
	return n, nil
}
