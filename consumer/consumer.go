package consumer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/txix-open/emb/retry"
)

type Handler interface {
	Handle(ctx context.Context, delivery *Delivery)
}

type HandlerFunc func(ctx context.Context, delivery *Delivery)

func (f HandlerFunc) Handle(ctx context.Context, delivery *Delivery) {
	f(ctx, delivery)
}

type Middleware func(next Handler) Handler

type Closer interface {
	Close()
}

const (
	DefaultVirtualHost = "/"
)

type Consumer struct {
	VirtualHost   string
	Queue         string
	Name          string
	Concurrency   int
	PrefetchCount int
	Middlewares   []Middleware
	RetryPolicy   *retry.Policy
	Closer        Closer

	handler Handler
}

func New(handler Handler, queue string, opts ...Option) Consumer {
	name := fmt.Sprintf("%s_%s", filepath.Base(os.Args[0]), uuid.NewString())
	c := &Consumer{
		VirtualHost:   DefaultVirtualHost,
		Queue:         queue,
		Name:          name,
		Concurrency:   1,
		PrefetchCount: 1,
	}
	for _, opt := range opts {
		opt(c)
	}

	for i := len(c.Middlewares) - 1; i >= 0; i-- {
		handler = c.Middlewares[i](handler)
	}
	c.handler = handler

	return *c
}

func (c *Consumer) Handler() Handler {
	return c.handler
}
