package topology

import (
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/txix-open/emb/retry"
)

const (
	MaxLengthArg = "x-max-length"
)

type QueueOption func(q *Queue)

type Queue struct {
	Name string `yaml:"name"`
	DLQ  bool   `yaml:"dlq"`

	// Durable and AutoDelete are accepted so RabbitMQ topology configs decode as is,
	// queues live in memory and are never deleted, so both are ignored in process
	Durable     bool          `yaml:"durable"`
	AutoDelete  bool          `yaml:"autoDelete"`
	RetryPolicy *retry.Policy `yaml:"retryPolicy,omitempty"`
	Args        amqp.Table    `yaml:"args,omitempty"`
}

func NewQueue(name string, opts ...QueueOption) *Queue {
	q := &Queue{
		Name:    name,
		Durable: true, // default value
		Args:    map[string]any{},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func WithDLQ(value bool) QueueOption {
	return func(q *Queue) {
		q.DLQ = value
	}
}

func WithDurable(value bool) QueueOption {
	return func(q *Queue) {
		q.Durable = value
	}
}

func WithAutoDelete(value bool) QueueOption {
	return func(q *Queue) {
		q.AutoDelete = value
	}
}

func WithQueueArg(key string, value any) QueueOption {
	return func(q *Queue) {
		q.Args[key] = value
	}
}

// WithMaxLength bounds the in-memory buffer of the queue.
func WithMaxLength(value int) QueueOption {
	return WithQueueArg(MaxLengthArg, int64(value))
}

func WithRetryPolicy(policy retry.Policy) QueueOption {
	return func(q *Queue) {
		q.RetryPolicy = &policy
	}
}
