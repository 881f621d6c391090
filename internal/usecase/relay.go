package usecase

import (
	"context"
	"log/slog"
	"time"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

const receiveTimeout = 5 * time.Second

// queueOrDefault resolves a configured queue name, falling back to the
// stage's conventional name. Producers and consumers must agree on the
// same source, or overriding a name strands messages.
func queueOrDefault(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

// MessageHandler processes one decoded stage message. A nil return
// acknowledges the delivery; an error rejects it without requeue.
type MessageHandler func(ctx context.Context, msg domain.Message) error

// Relay is the consume loop of one pipeline stage: receive, handle,
// settle. The delivery stays unacknowledged while the handler runs, so a
// crash mid-handler leaves the message in flight for startup recovery.
type Relay struct {
	queue    string
	consumer ports.QueueConsumer
	handler  MessageHandler
	logger   *slog.Logger
}

// NewRelay binds a handler to one queue.
func NewRelay(queue string, consumer ports.QueueConsumer, handler MessageHandler, logger *slog.Logger) *Relay {
	return &Relay{queue: queue, consumer: consumer, handler: handler, logger: logger}
}

// Run consumes until the context is cancelled. In-flight deliveries left
// behind by a previous crash are requeued before consumption starts.
func (r *Relay) Run(ctx context.Context) error {
	requeued, err := r.consumer.Recover(ctx, r.queue)
	if err != nil {
		return err
	}
	if requeued > 0 {
		r.logger.Info("requeued in-flight deliveries", "queue", r.queue, "count", requeued)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delivery, err := r.consumer.Receive(ctx, r.queue, receiveTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("receive failed", "queue", r.queue, "error", err)
			continue
		}
		if delivery == nil {
			continue
		}

		r.dispatch(ctx, delivery)
	}
}

func (r *Relay) dispatch(ctx context.Context, delivery *ports.Delivery) {
	msg, err := domain.DecodeMessage(delivery.Body)
	if err != nil {
		r.logger.Error("undecodable message dropped", "queue", r.queue, "error", err)
		if err := r.consumer.Reject(ctx, delivery); err != nil {
			r.logger.Error("reject failed", "queue", r.queue, "error", err)
		}
		return
	}

	if err := r.handler(ctx, msg); err != nil {
		r.logger.Error("message rejected", "queue", r.queue, "job_id", msg.JobID, "error", err)
		if err := r.consumer.Reject(ctx, delivery); err != nil {
			r.logger.Error("reject failed", "queue", r.queue, "error", err)
		}
		return
	}

	if err := r.consumer.Ack(ctx, delivery); err != nil {
		r.logger.Error("ack failed", "queue", r.queue, "job_id", msg.JobID, "error", err)
	}
}
