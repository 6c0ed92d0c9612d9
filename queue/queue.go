// Package queue implements a bounded in-memory queue whose deliveries
// are acknowledged through amqp.Acknowledger.
package queue

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/txix-open/emb/topology"
	"go.uber.org/atomic"
)

const (
	DefaultCapacity = 1024

	DeathHeader    = "x-death"
	ReasonRejected = "rejected"
)

var (
	ErrQueueFull          = errors.New("queue is full")
	ErrQueueClosed        = errors.New("queue is closed")
	ErrUnknownDeliveryTag = errors.New("unknown delivery tag")
)

// DeadLetterFunc publishes a rejected message to the dead letter exchange.
type DeadLetterFunc func(queue string, exchange string, routingKey string, msg *amqp.Publishing) error

type Stats struct {
	Published    uint64
	Acked        uint64
	Requeued     uint64
	DeadLettered uint64
	Dropped      uint64
}

type Queue struct {
	name       string
	args       amqp.Table
	deadLetter DeadLetterFunc

	lock       sync.Mutex
	closed     bool
	deliveries chan amqp.Delivery
	pending    map[uint64]amqp.Delivery

	nextTag      *atomic.Uint64
	published    *atomic.Uint64
	acked        *atomic.Uint64
	requeued     *atomic.Uint64
	deadLettered *atomic.Uint64
	dropped      *atomic.Uint64
}

func New(name string, args amqp.Table, deadLetter DeadLetterFunc) *Queue {
	if args == nil {
		args = amqp.Table{}
	}
	return &Queue{
		name:         name,
		args:         args,
		deadLetter:   deadLetter,
		deliveries:   make(chan amqp.Delivery, capacity(args)),
		pending:      make(map[uint64]amqp.Delivery),
		nextTag:      atomic.NewUint64(0),
		published:    atomic.NewUint64(0),
		acked:        atomic.NewUint64(0),
		requeued:     atomic.NewUint64(0),
		deadLettered: atomic.NewUint64(0),
		dropped:      atomic.NewUint64(0),
	}
}

func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) Args() amqp.Table {
	return q.args
}

// Deliveries is closed by Close.
func (q *Queue) Deliveries() <-chan amqp.Delivery {
	return q.deliveries
}

// Push enqueues the message without blocking.
func (q *Queue) Push(exchange string, routingKey string, msg *amqp.Publishing) error {
	delivery := amqp.Delivery{
		Headers:         copyTable(msg.Headers),
		ContentType:     msg.ContentType,
		ContentEncoding: msg.ContentEncoding,
		DeliveryMode:    msg.DeliveryMode,
		Priority:        msg.Priority,
		CorrelationId:   msg.CorrelationId,
		ReplyTo:         msg.ReplyTo,
		Expiration:      msg.Expiration,
		MessageId:       msg.MessageId,
		Timestamp:       msg.Timestamp,
		Type:            msg.Type,
		UserId:          msg.UserId,
		AppId:           msg.AppId,
		Exchange:        exchange,
		RoutingKey:      routingKey,
		Body:            msg.Body,
	}
	err := q.enqueue(delivery)
	if err != nil {
		return err
	}
	q.published.Inc()
	return nil
}

func (q *Queue) enqueue(delivery amqp.Delivery) error {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.closed {
		return errors.WithMessagef(ErrQueueClosed, "queue '%s'", q.name)
	}

	delivery.Acknowledger = q
	delivery.DeliveryTag = q.nextTag.Inc()
	select {
	case q.deliveries <- delivery:
		q.pending[delivery.DeliveryTag] = delivery
		return nil
	default:
		return errors.WithMessagef(ErrQueueFull, "queue '%s'", q.name)
	}
}

// Len returns the number of messages ready for delivery.
func (q *Queue) Len() int {
	return len(q.deliveries)
}

// Unacked returns the number of delivered but not yet settled messages.
func (q *Queue) Unacked() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return len(q.pending) - len(q.deliveries)
}

func (q *Queue) Stats() Stats {
	return Stats{
		Published:    q.published.Load(),
		Acked:        q.acked.Load(),
		Requeued:     q.requeued.Load(),
		DeadLettered: q.deadLettered.Load(),
		Dropped:      q.dropped.Load(),
	}
}

func (q *Queue) Ack(tag uint64, multiple bool) error {
	settled, err := q.settle(tag, multiple)
	if err != nil {
		return err
	}
	q.acked.Add(uint64(len(settled)))
	return nil
}

func (q *Queue) Nack(tag uint64, multiple bool, requeue bool) error {
	settled, err := q.settle(tag, multiple)
	if err != nil {
		return err
	}

	var firstErr error
	for _, delivery := range settled {
		err := q.reject(delivery, requeue)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (q *Queue) Reject(tag uint64, requeue bool) error {
	return q.Nack(tag, false, requeue)
}

func (q *Queue) Close() error {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.deliveries)
	return nil
}

func (q *Queue) settle(tag uint64, multiple bool) ([]amqp.Delivery, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if !multiple {
		delivery, ok := q.pending[tag]
		if !ok {
			return nil, errors.WithMessagef(ErrUnknownDeliveryTag, "queue '%s', tag %d", q.name, tag)
		}
		delete(q.pending, tag)
		return []amqp.Delivery{delivery}, nil
	}

	settled := make([]amqp.Delivery, 0)
	for pendingTag, delivery := range q.pending {
		if pendingTag <= tag {
			settled = append(settled, delivery)
			delete(q.pending, pendingTag)
		}
	}
	if len(settled) == 0 {
		return nil, errors.WithMessagef(ErrUnknownDeliveryTag, "queue '%s', tag %d", q.name, tag)
	}
	return settled, nil
}

func (q *Queue) reject(delivery amqp.Delivery, requeue bool) error {
	if requeue {
		delivery.Redelivered = true
		err := q.enqueue(delivery)
		if err != nil {
			q.dropped.Inc()
			return errors.WithMessage(err, "requeue")
		}
		q.requeued.Inc()
		return nil
	}

	exchange, ok := q.args[topology.DeadLetterExchangeArg].(string)
	if !ok || q.deadLetter == nil {
		q.dropped.Inc()
		return nil
	}
	routingKey, ok := q.args[topology.DeadLetterRoutingKeyArg].(string)
	if !ok {
		routingKey = delivery.RoutingKey
	}

	err := q.deadLetter(q.name, exchange, routingKey, q.deadLetterPublishing(delivery))
	if err != nil {
		q.dropped.Inc()
		return errors.WithMessagef(err, "dead letter to exchange '%s'", exchange)
	}
	q.deadLettered.Inc()
	return nil
}

func (q *Queue) deadLetterPublishing(delivery amqp.Delivery) *amqp.Publishing {
	headers := copyTable(delivery.Headers)
	headers[DeathHeader] = q.appendDeath(headers[DeathHeader], delivery)
	return &amqp.Publishing{
		Headers:         headers,
		ContentType:     delivery.ContentType,
		ContentEncoding: delivery.ContentEncoding,
		DeliveryMode:    delivery.DeliveryMode,
		Priority:        delivery.Priority,
		CorrelationId:   delivery.CorrelationId,
		ReplyTo:         delivery.ReplyTo,
		Expiration:      delivery.Expiration,
		MessageId:       delivery.MessageId,
		Timestamp:       delivery.Timestamp,
		Type:            delivery.Type,
		UserId:          delivery.UserId,
		AppId:           delivery.AppId,
		Body:            delivery.Body,
	}
}

// appendDeath moves the entry of this queue to the front with an incremented count.
func (q *Queue) appendDeath(value any, delivery amqp.Delivery) []any {
	deaths, _ := value.([]any)
	result := make([]any, 0, len(deaths)+1)
	var current amqp.Table
	for _, elem := range deaths {
		table, ok := elem.(amqp.Table)
		if ok && current == nil && table["queue"] == q.name && table["reason"] == ReasonRejected {
			current = copyTable(table)
			continue
		}
		result = append(result, elem)
	}
	if current == nil {
		current = amqp.Table{
			"queue":        q.name,
			"reason":       ReasonRejected,
			"exchange":     delivery.Exchange,
			"routing-keys": []any{delivery.RoutingKey},
		}
	}
	count, _ := current["count"].(int64)
	current["count"] = count + 1
	current["time"] = time.Now()
	return append([]any{current}, result...)
}

func capacity(args amqp.Table) int {
	switch value := args[topology.MaxLengthArg].(type) {
	case int:
		if value > 0 {
			return value
		}
	case int32:
		if value > 0 {
			return int(value)
		}
	case int64:
		if value > 0 {
			return int(value)
		}
	case float64:
		if value > 0 {
			return int(value)
		}
	}
	return DefaultCapacity
}

func copyTable(table amqp.Table) amqp.Table {
	result := amqp.Table{}
	for k, v := range table {
		result[k] = v
	}
	return result
}
