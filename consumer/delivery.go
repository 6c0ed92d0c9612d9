package consumer

import (
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrDeliveryAlreadyHandled = errors.New("delivery already handled")
	ErrRetryPolicyIsNotSet    = errors.New("retry policy is not set")
)

type Donner interface {
	Done()
}

type Retryer interface {
	Do(delivery *amqp.Delivery) error
}

type Delivery struct {
	donner  Donner
	source  *amqp.Delivery
	retryer Retryer
	handled bool
}

func NewDelivery(donner Donner, source *amqp.Delivery, retryer Retryer) *Delivery {
	return &Delivery{
		donner:  donner,
		source:  source,
		retryer: retryer,
	}
}

func (d *Delivery) Source() *amqp.Delivery {
	return d.source
}

func (d *Delivery) Ack() error {
	if d.handled {
		return ErrDeliveryAlreadyHandled
	}

	defer d.donner.Done()
	d.handled = true

	err := d.source.Ack(false)
	if err != nil {
		return errors.WithMessage(err, "ack delivery")
	}
	return nil
}

func (d *Delivery) Nack(requeue bool) error {
	if d.handled {
		return ErrDeliveryAlreadyHandled
	}

	defer d.donner.Done()
	d.handled = true

	err := d.source.Nack(false, requeue)
	if err != nil {
		return errors.WithMessage(err, "nack delivery")
	}
	return nil
}

// Retry
// Hands the delivery to the consumer retry policy
// Returns ErrRetryPolicyIsNotSet if the consumer has no policy
func (d *Delivery) Retry() error {
	if d.handled {
		return ErrDeliveryAlreadyHandled
	}
	if d.retryer == nil {
		return ErrRetryPolicyIsNotSet
	}

	defer d.donner.Done()
	d.handled = true

	err := d.retryer.Do(d.source)
	if err != nil {
		return errors.WithMessage(err, "retry delivery")
	}
	return nil
}
