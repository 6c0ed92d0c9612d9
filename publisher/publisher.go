package publisher

import (
	"context"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/atomic"
)

const (
	DefaultVirtualHost = "/"
)

var (
	ErrPublisherIsNotInitialized = errors.New("publisher is not initialized")
)

type Middleware func(next RoundTripper) RoundTripper

type RoundTripper interface {
	Publish(ctx context.Context, exchange string, routingKey string, msg *amqp.Publishing) error
}

type RoundTripperFunc func(ctx context.Context, exchange string, routingKey string, msg *amqp.Publishing) error

func (f RoundTripperFunc) Publish(ctx context.Context, exchange string, routingKey string, msg *amqp.Publishing) error {
	return f(ctx, exchange, routingKey, msg)
}

// Publisher sends messages to the exchange of its virtual host.
// It becomes usable once the broker binds it with SetRoundTripper.
type Publisher struct {
	VirtualHost string
	Exchange    string
	RoutingKey  string
	Middlewares []Middleware

	chain *atomic.Pointer[RoundTripper]
}

func New(exchange string, routingKey string, opts ...Option) *Publisher {
	p := &Publisher{
		VirtualHost: DefaultVirtualHost,
		Exchange:    exchange,
		RoutingKey:  routingKey,
		chain:       &atomic.Pointer[RoundTripper]{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends msg to the exchange and routing key the publisher was created with
func (p *Publisher) Publish(ctx context.Context, msg *amqp.Publishing) error {
	return p.PublishTo(ctx, p.Exchange, p.RoutingKey, msg)
}

func (p *Publisher) PublishTo(ctx context.Context, exchange string, routingKey string, msg *amqp.Publishing) error {
	chain := p.chain.Load()
	if chain == nil {
		return errors.WithMessagef(ErrPublisherIsNotInitialized, "virtual host '%s'", p.VirtualHost)
	}
	return (*chain).Publish(ctx, exchange, routingKey, msg)
}

func (p *Publisher) Initialized() bool {
	return p.chain.Load() != nil
}

// SetRoundTripper wraps root with the middlewares, the first middleware is the outermost
func (p *Publisher) SetRoundTripper(root RoundTripper) {
	chain := root
	for i := len(p.Middlewares) - 1; i >= 0; i-- {
		chain = p.Middlewares[i](chain)
	}
	p.chain.Store(&chain)
}
