package retry

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RetryCountHeader = "x-retry-count"
)

type Publisher interface {
	PublishWithConfirmation(ctx context.Context, exchange string, routingKey string, msg *amqp.Publishing) error
}

type Retrier struct {
	originalQueue string
	policy        Policy
	pub           Publisher
	onError       func(err error)

	lock    sync.Mutex
	closed  bool
	pending map[*time.Timer]*amqp.Delivery
}

func NewRetrier(originalQueue string, policy Policy, pub Publisher, onError func(err error)) *Retrier {
	if onError == nil {
		onError = func(err error) {}
	}
	return &Retrier{
		originalQueue: originalQueue,
		policy:        policy,
		pub:           pub,
		onError:       onError,
		pending:       make(map[*time.Timer]*amqp.Delivery),
	}
}

// Do
// Schedules redelivery of the message to the original queue according to the policy
// The delivery stays unacked until the message is published again
// When attempts are exhausted the delivery is moved to DLQ or acked
func (r *Retrier) Do(delivery *amqp.Delivery) error {
	tries := totalTries(delivery.Headers)
	retry, ok := r.policy.Next(tries)
	switch {
	case ok:
		msg := republishing(delivery)
		msg.Headers[RetryCountHeader] = tries + 1
		if retry.Delay <= 0 {
			return r.republish(delivery, msg)
		}
		return r.schedule(retry.Delay, delivery, msg)
	case r.policy.FinallyMoveToDlq:
		err := delivery.Nack(false, false)
		if err != nil {
			return errors.WithMessage(err, "nack with no requeue")
		}
	default:
		err := delivery.Ack(false)
		if err != nil {
			return errors.WithMessage(err, "ack")
		}
	}

	return nil
}

func (r *Retrier) schedule(delay time.Duration, delivery *amqp.Delivery, msg *amqp.Publishing) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return requeue(delivery)
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		r.lock.Lock()
		_, scheduled := r.pending[timer]
		delete(r.pending, timer)
		r.lock.Unlock()
		if !scheduled {
			return
		}

		err := r.republish(delivery, msg)
		if err != nil {
			r.onError(err)
		}
	})
	r.pending[timer] = delivery
	return nil
}

// Close stops pending retries and requeues their deliveries to the original queue
// Retries scheduled after Close are requeued at once
func (r *Retrier) Close() error {
	r.lock.Lock()
	r.closed = true
	pending := r.pending
	r.pending = make(map[*time.Timer]*amqp.Delivery)
	r.lock.Unlock()

	var firstErr error
	for timer, delivery := range pending {
		timer.Stop()
		err := requeue(delivery)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Pending returns the number of scheduled retries
func (r *Retrier) Pending() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.pending)
}

func requeue(delivery *amqp.Delivery) error {
	err := delivery.Nack(false, true)
	if err != nil {
		return errors.WithMessage(err, "nack with requeue")
	}
	return nil
}

func (r *Retrier) republish(delivery *amqp.Delivery, msg *amqp.Publishing) error {
	err := r.pub.PublishWithConfirmation(context.Background(), "", r.originalQueue, msg)
	if err != nil {
		_ = delivery.Nack(false, false)
		return errors.WithMessagef(err, "publish to %s", r.originalQueue)
	}

	err = delivery.Ack(false)
	if err != nil {
		return errors.WithMessage(err, "ack")
	}
	return nil
}

func republishing(delivery *amqp.Delivery) *amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range delivery.Headers {
		headers[k] = v
	}
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

func totalTries(headers amqp.Table) int64 {
	switch value := headers[RetryCountHeader].(type) {
	case int64:
		return value
	case int:
		return int64(value)
	case int32:
		return int64(value)
	default:
		return 0
	}
}
