package publisher

import (
	"context"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

func PersistentMode() Middleware {
	return func(next RoundTripper) RoundTripper {
		return RoundTripperFunc(func(ctx context.Context, exchange string, routingKey string, msg *amqp.Publishing) error {
			msg.DeliveryMode = amqp.Persistent
			return next.Publish(ctx, exchange, routingKey, msg)
		})
	}
}

// WithMessageId sets a random MessageId and a Timestamp if they are empty
func WithMessageId() Middleware {
	return func(next RoundTripper) RoundTripper {
		return RoundTripperFunc(func(ctx context.Context, exchange string, routingKey string, msg *amqp.Publishing) error {
			if msg.MessageId == "" {
				msg.MessageId = uuid.NewString()
			}
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			return next.Publish(ctx, exchange, routingKey, msg)
		})
	}
}

// WithHeaders adds headers to every message, headers already set on a message win
func WithHeaders(headers amqp.Table) Middleware {
	return func(next RoundTripper) RoundTripper {
		return RoundTripperFunc(func(ctx context.Context, exchange string, routingKey string, msg *amqp.Publishing) error {
			if msg.Headers == nil {
				msg.Headers = amqp.Table{}
			}
			for k, v := range headers {
				if _, exists := msg.Headers[k]; !exists {
					msg.Headers[k] = v
				}
			}
			return next.Publish(ctx, exchange, routingKey, msg)
		})
	}
}
