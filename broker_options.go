package emb

import (
	"github.com/txix-open/emb/consumer"
	"github.com/txix-open/emb/publisher"
	"github.com/txix-open/emb/topology"
)

type BrokerOption func(b *Broker)

func WithPublishers(publishers ...*publisher.Publisher) BrokerOption {
	return func(b *Broker) {
		b.publishers = publishers
	}
}

func WithConsumers(consumers ...consumer.Consumer) BrokerOption {
	return func(b *Broker) {
		b.consumers = consumers
	}
}

// WithDeclarations applies declarations to the virtual host on Run, the host is created if missing
func WithDeclarations(vhost string, declarations topology.Declarations) BrokerOption {
	return func(b *Broker) {
		b.declarations = append(b.declarations, vhostDeclarations{
			vhost:        vhost,
			declarations: declarations,
		})
	}
}

// WithTopologyBuilding builds declarations for the default virtual host
func WithTopologyBuilding(options ...topology.DeclarationsOption) BrokerOption {
	return WithVirtualHost(DefaultVirtualHost, options...)
}

func WithVirtualHost(name string, options ...topology.DeclarationsOption) BrokerOption {
	declarations := topology.New(options...)
	return WithDeclarations(name, declarations)
}

func WithObserver(observer Observer) BrokerOption {
	return func(b *Broker) {
		b.observer = observer
	}
}
