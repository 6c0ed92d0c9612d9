package consumer

import (
	"github.com/txix-open/emb/retry"
)

type Option func(c *Consumer)

func WithName(name string) Option {
	return func(c *Consumer) {
		c.Name = name
	}
}

// WithPrefetchCount limits unsettled deliveries per consumer
func WithPrefetchCount(prefetchCount int) Option {
	return func(c *Consumer) {
		c.PrefetchCount = prefetchCount
	}
}

func WithConcurrency(concurrency int) Option {
	return func(c *Consumer) {
		c.Concurrency = concurrency
	}
}

func WithMiddlewares(middlewares ...Middleware) Option {
	return func(c *Consumer) {
		c.Middlewares = middlewares
	}
}

func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Consumer) {
		c.RetryPolicy = &policy
	}
}

// WithCloser is called once the consumer stops receiving deliveries
func WithCloser(closer Closer) Option {
	return func(c *Consumer) {
		c.Closer = closer
	}
}

func WithVirtualHost(name string) Option {
	return func(c *Consumer) {
		c.VirtualHost = name
	}
}
