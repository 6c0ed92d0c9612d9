package emb

import (
	"context"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/txix-open/emb/publisher"
)

// Publisher is the root round tripper of a publisher.Publisher bound to one virtual host.
type Publisher struct {
	broker    *Broker
	publisher *publisher.Publisher
	observer  Observer
}

func NewPublisher(broker *Broker, publisher *publisher.Publisher, observer Observer) *Publisher {
	return &Publisher{
		broker:    broker,
		publisher: publisher,
		observer:  observer,
	}
}

func (p *Publisher) Publish(ctx context.Context, exchange string, routingKey string, msg *amqp.Publishing) error {
	err := p.broker.Publish(ctx, p.publisher.VirtualHost, exchange, routingKey, msg)
	if err != nil {
		p.observer.PublisherError(p.publisher, err)
		return errors.WithMessage(err, "publish")
	}
	return nil
}

// PublishWithConfirmation
// Messages are enqueued synchronously, so a nil error is the confirmation
func (p *Publisher) PublishWithConfirmation(ctx context.Context, exchange string, routingKey string, msg *amqp.Publishing) error {
	return p.Publish(ctx, exchange, routingKey, msg)
}

func (p *Publisher) Run() error {
	_, err := p.broker.VirtualHost(p.publisher.VirtualHost)
	if err != nil {
		return errors.WithMessage(err, "lookup virtual host")
	}

	p.publisher.SetRoundTripper(p)
	return nil
}
