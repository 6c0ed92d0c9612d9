package emb

import (
	"context"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/txix-open/emb/exchange"
	"github.com/txix-open/emb/queue"
	"github.com/txix-open/emb/topology"
)

type kinded interface {
	Kind() string
}

// Publish
// Routes the message through the exchange of the virtual host into every matched queue
// The default exchange "" routes to the queue named by routingKey
// Returns ErrUnroutable if no queue matches
// A message is pushed to every matched queue even if some of them fail,
// so on error the queues that accepted it keep it, the first push error is returned
func (b *Broker) Publish(ctx context.Context, vhostName string, exchangeName string, routingKey string, msg *amqp.Publishing) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if msg == nil {
		return ErrNilMessage
	}

	h, err := b.host(vhostName)
	if err != nil {
		return err
	}
	queues, err := h.route(exchangeName, routingKey, msg.Headers)
	if err != nil {
		return err
	}
	if len(queues) == 0 {
		b.observer.MessageReturned(vhostName, exchangeName, routingKey)
		return errors.WithMessagef(ErrUnroutable, "exchange '%s', routing key '%s'", exchangeName, routingKey)
	}

	var firstErr error
	for _, q := range queues {
		err := q.Push(exchangeName, routingKey, msg)
		if err != nil && firstErr == nil {
			firstErr = errors.WithMessagef(err, "push to queue '%s'", q.Name())
		}
	}
	return firstErr
}

func (h *host) route(exchangeName string, routingKey string, headers amqp.Table) ([]*queue.Queue, error) {
	if exchangeName == topology.DefaultExchangeName {
		q, ok := h.queue(routingKey)
		if !ok {
			return nil, nil
		}
		return []*queue.Queue{q}, nil
	}

	exchanges := h.vh.Exchanges()
	position := -1
	for i, declared := range exchanges {
		if declared.Name() == exchangeName {
			position = i
			break
		}
	}
	if position < 0 {
		return nil, errors.WithMessagef(ErrExchangeNotFound, "exchange '%s' in virtual host '%s'", exchangeName, h.vh.Name())
	}
	ex, ok := exchanges[position].(kinded)
	if !ok {
		return nil, errors.WithMessagef(ErrExchangeNotRoutable, "exchange '%s'", exchangeName)
	}

	// exchanges are append only, so the group at position belongs to the same exchange
	bindings := h.vh.Bindings()[position]
	matched := exchange.Route(ex.Kind(), bindings, routingKey, headers)

	result := make([]*queue.Queue, 0, len(matched))
	for _, binding := range matched {
		q, ok := h.queue(binding.QueueName)
		if ok {
			result = append(result, q)
		}
	}
	return result, nil
}
