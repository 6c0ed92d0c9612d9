package emb

import (
	"github.com/txix-open/emb/consumer"
	"github.com/txix-open/emb/publisher"
)

type Observer interface {
	BrokerReady()
	BrokerError(err error)
	ConsumerError(consumer consumer.Consumer, err error)
	PublisherError(publisher *publisher.Publisher, err error)
	MessageReturned(vhost string, exchange string, routingKey string)
	MessageDeadLettered(vhost string, queue string, exchange string, routingKey string)
	ShutdownStarted()
	ShutdownDone()
}

type NoopObserver struct {
}

func (n NoopObserver) BrokerReady() {

}

func (n NoopObserver) BrokerError(err error) {

}

func (n NoopObserver) ConsumerError(consumer consumer.Consumer, err error) {

}

func (n NoopObserver) PublisherError(publisher *publisher.Publisher, err error) {

}

func (n NoopObserver) MessageReturned(vhost string, exchange string, routingKey string) {

}

func (n NoopObserver) MessageDeadLettered(vhost string, queue string, exchange string, routingKey string) {

}

func (n NoopObserver) ShutdownStarted() {
}

func (n NoopObserver) ShutdownDone() {

}
