package emb_test

import (
	"context"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/txix-open/emb"
	"github.com/txix-open/emb/consumer"
	"github.com/txix-open/emb/publisher"
	"go.uber.org/atomic"
)

type ObserverCounter struct {
	emb.NoopObserver
	t *testing.T

	brokerReady     *atomic.Int32
	brokerError     *atomic.Int32
	consumerError   *atomic.Int32
	publisherError  *atomic.Int32
	returned        *atomic.Int32
	deadLettered    *atomic.Int32
	shutdownStarted *atomic.Int32
	shutdownDone    *atomic.Int32
}

func NewObserverCounter(t *testing.T) *ObserverCounter {
	return &ObserverCounter{
		t:               t,
		brokerReady:     atomic.NewInt32(0),
		brokerError:     atomic.NewInt32(0),
		consumerError:   atomic.NewInt32(0),
		publisherError:  atomic.NewInt32(0),
		returned:        atomic.NewInt32(0),
		deadLettered:    atomic.NewInt32(0),
		shutdownStarted: atomic.NewInt32(0),
		shutdownDone:    atomic.NewInt32(0),
	}
}

func (o *ObserverCounter) BrokerReady() {
	o.brokerReady.Inc()
}

func (o *ObserverCounter) BrokerError(err error) {
	o.t.Log(err)
	o.brokerError.Inc()
}

func (o *ObserverCounter) ConsumerError(consumer consumer.Consumer, err error) {
	o.t.Log(err)
	o.consumerError.Inc()
}

func (o *ObserverCounter) PublisherError(publisher *publisher.Publisher, err error) {
	o.t.Log(err)
	o.publisherError.Inc()
}

func (o *ObserverCounter) MessageReturned(vhost string, exchange string, routingKey string) {
	o.returned.Inc()
}

func (o *ObserverCounter) MessageDeadLettered(vhost string, queue string, exchange string, routingKey string) {
	o.deadLettered.Inc()
}

func (o *ObserverCounter) ShutdownStarted() {
	o.shutdownStarted.Inc()
}

func (o *ObserverCounter) ShutdownDone() {
	o.shutdownDone.Inc()
}

func publishMessages(t *testing.T, broker *emb.Broker, queue string, count int) {
	require := require.New(t)

	for i := 0; i < count; i++ {
		err := broker.Publish(context.Background(), emb.DefaultVirtualHost, "", queue, &amqp091.Publishing{})
		require.NoError(err)
	}
}

func queueSize(t *testing.T, broker *emb.Broker, vhost string, queue string) int {
	require := require.New(t)

	q, err := broker.Queue(vhost, queue)
	require.NoError(err)
	return q.Len()
}

func await(t *testing.T, ch <-chan struct{}) {
	select {
	case <-ch:
	case <-time.After(1 * time.Second):
		require.Fail(t, "handler wasn't called")
	}
}
