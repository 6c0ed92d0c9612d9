package emb_test

import (
	"context"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/txix-open/emb"
	"github.com/txix-open/emb/publisher"
	"github.com/txix-open/emb/topology"
)

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	broker := emb.New()
	t.Cleanup(broker.Shutdown)
	counter := NewObserverCounter(t)

	pub := publisher.New("", "test")
	unit := emb.NewPublisher(broker, pub, counter)
	err := unit.Run()
	require.NoError(err)

	err = pub.Publish(context.Background(), &amqp091.Publishing{})
	require.ErrorIs(err, emb.ErrUnroutable)
	require.EqualValues(1, counter.publisherError.Load())

	_, err = broker.DeclareQueue(emb.DefaultVirtualHost, "test", nil)
	require.NoError(err)
	err = pub.Publish(context.Background(), &amqp091.Publishing{})
	require.NoError(err)

	require.EqualValues(1, queueSize(t, broker, emb.DefaultVirtualHost, "test"))
	require.EqualValues(1, counter.publisherError.Load())
}

func TestPublisher_PublishTo(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	broker := emb.New()
	t.Cleanup(broker.Shutdown)

	pub := publisher.New("", "test")
	unit := emb.NewPublisher(broker, pub, emb.NoopObserver{})
	err := unit.Run()
	require.NoError(err)

	_, err = broker.DeclareQueue(emb.DefaultVirtualHost, "test2", nil)
	require.NoError(err)
	err = pub.PublishTo(context.Background(), "", "test2", &amqp091.Publishing{})
	require.NoError(err)

	require.EqualValues(1, queueSize(t, broker, emb.DefaultVirtualHost, "test2"))
}

func TestPublisher_UnknownVirtualHost(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	broker := emb.New()
	t.Cleanup(broker.Shutdown)

	pub := publisher.New("", "test", publisher.WithVirtualHost("unknown"))
	unit := emb.NewPublisher(broker, pub, emb.NoopObserver{})
	err := unit.Run()
	require.ErrorIs(err, emb.ErrVirtualHostNotFound)

	err = pub.Publish(context.Background(), &amqp091.Publishing{})
	require.ErrorIs(err, publisher.ErrPublisherIsNotInitialized)
}

func TestPublisher_AfterShutdown(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	broker := emb.New()
	_, err := broker.DeclareQueue(emb.DefaultVirtualHost, "test", nil)
	require.NoError(err)

	pub := publisher.New("", "test")
	unit := emb.NewPublisher(broker, pub, emb.NoopObserver{})
	require.NoError(unit.Run())

	broker.Shutdown()

	err = pub.Publish(context.Background(), &amqp091.Publishing{})
	require.ErrorIs(err, emb.ErrBrokerClosed)
}

func TestPersistentMode(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	pub := publisher.New("", "queue", publisher.WithMiddlewares(publisher.PersistentMode(), publisher.WithMessageId()))
	broker := emb.New(
		emb.WithPublishers(pub),
		emb.WithTopologyBuilding(topology.WithQueue("queue")),
	)
	require.NoError(broker.Run(context.Background()))
	t.Cleanup(broker.Shutdown)

	err := pub.Publish(context.Background(), &amqp091.Publishing{})
	require.NoError(err)

	q, err := broker.Queue(emb.DefaultVirtualHost, "queue")
	require.NoError(err)
	delivery := <-q.Deliveries()
	require.Equal(amqp091.Persistent, delivery.DeliveryMode)
	require.NotEmpty(delivery.MessageId)
	require.NoError(delivery.Ack(false))
}
