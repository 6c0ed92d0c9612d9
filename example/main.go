package main

import (
	"context"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/txix-open/emb"
	"github.com/txix-open/emb/consumer"
	"github.com/txix-open/emb/publisher"
	"github.com/txix-open/emb/retry"
	"github.com/txix-open/emb/topology"
)

type LogObserver struct {
	emb.NoopObserver
}

func (o LogObserver) BrokerError(err error) {
	log.Printf("broker error: %v", err)
}

func (o LogObserver) ConsumerError(consumer consumer.Consumer, err error) {
	log.Printf("unexpected consumer error (queue=%s): %v", consumer.Queue, err)
}

func (o LogObserver) MessageDeadLettered(vhost string, queue string, exchange string, routingKey string) {
	log.Printf("message from queue %s (vhost %s) dead lettered to exchange %s", queue, vhost, exchange)
}

func main() {
	pub := publisher.New(
		"exchange",
		"test",
		publisher.WithMiddlewares(publisher.PersistentMode(), publisher.WithMessageId()),
	)

	simpleHandler := consumer.HandlerFunc(func(ctx context.Context, delivery *consumer.Delivery) {
		log.Printf("message body: %s, routing key: %s", delivery.Source().Body, delivery.Source().RoutingKey)
		err := delivery.Ack()
		if err != nil {
			panic(err)
		}
	})
	simpleConsumer := consumer.New(
		simpleHandler,
		"queue",
		consumer.WithConcurrency(32),   //default 1
		consumer.WithPrefetchCount(32), //default 1
	)

	retryPolicy := retry.NewPolicy(
		true, //move to dlq after last failed try
		retry.WithDelay(500*time.Millisecond, 1),
		retry.WithDelay(1*time.Second, 1),
		retry.WithDelay(2*time.Second, 1),
	)
	retryHandler := consumer.HandlerFunc(func(ctx context.Context, delivery *consumer.Delivery) {
		log.Printf("message body: %s, retry count: %v", delivery.Source().Body, delivery.Source().Headers[retry.RetryCountHeader])
		err := delivery.Retry()
		if err != nil {
			panic(err)
		}
	})
	retryConsumer := consumer.New(
		retryHandler,
		"retryQueue",
		consumer.WithRetryPolicy(retryPolicy),
	)

	broker := emb.New(
		emb.WithPublishers(pub),
		emb.WithConsumers(simpleConsumer, retryConsumer),
		emb.WithTopologyBuilding(
			topology.WithQueue("queue", topology.WithDLQ(true)),
			topology.WithQueue("retryQueue", topology.WithRetryPolicy(retryPolicy)),
			topology.WithDirectExchange("exchange"),
			topology.WithBinding("exchange", "queue", "test"),
		),
		emb.WithObserver(LogObserver{}),
	)
	//declare topology
	//init publishers and consumers
	//returns first occurred error or nil
	err := broker.Run(context.Background())
	if err != nil {
		panic(err)
	}

	err = pub.Publish(context.Background(), &amqp091.Publishing{Body: []byte("hello world")})
	if err != nil {
		panic(err)
	}

	//you may use any publisher to send message to any exchange of its virtual host
	err = pub.PublishTo(context.Background(), "", "retryQueue", &amqp091.Publishing{Body: []byte("retry me")})
	if err != nil {
		panic(err)
	}

	time.Sleep(5 * time.Second)

	broker.Shutdown()
}
