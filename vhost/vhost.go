// Package vhost implements the namespace that owns declared exchanges
// and keeps the routing topology of a broker consistent.
package vhost

import (
	"sync"

	"github.com/txix-open/emb/topology"
)

// Exchange is a named routing point declared into exactly one VirtualHost.
type Exchange interface {
	Name() string
	VirtualHost() *VirtualHost
	Bindings() []*topology.Binding
}

// Broker owns virtual hosts by name.
type Broker interface {
	VirtualHost(name string) (*VirtualHost, error)
}

type VirtualHost struct {
	name   string
	broker Broker

	lock      sync.RWMutex
	exchanges []Exchange
}

func New(name string, broker Broker) *VirtualHost {
	return &VirtualHost{
		name:      name,
		broker:    broker,
		exchanges: make([]Exchange, 0),
	}
}

func (v *VirtualHost) Name() string {
	return v.name
}

func (v *VirtualHost) Broker() Broker {
	return v.broker
}

// Exchanges returns declared exchanges in declaration order.
func (v *VirtualHost) Exchanges() []Exchange {
	v.lock.RLock()
	defer v.lock.RUnlock()

	result := make([]Exchange, len(v.exchanges))
	copy(result, v.exchanges)
	return result
}

// Exchange looks up a declared exchange by its exact name.
func (v *VirtualHost) Exchange(name string) (Exchange, bool) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	for _, exchange := range v.exchanges {
		if exchange.Name() == name {
			return exchange, true
		}
	}
	return nil, false
}

// DeclareExchange
// Appends the exchange to the declared ones
// Fails with ErrDuplicateExchangeName if the name is already taken,
// then with ErrExchangeVirtualHostNotReflexive if the exchange belongs to another host
// Nothing changes on failure
func (v *VirtualHost) DeclareExchange(exchange Exchange) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	err := v.ensureNameNotDeclared(exchange)
	if err != nil {
		return err
	}
	err = v.ensureVirtualHostMatchesSelf(exchange)
	if err != nil {
		return err
	}

	v.exchanges = append(v.exchanges, exchange)
	return nil
}

func (v *VirtualHost) ensureNameNotDeclared(exchange Exchange) error {
	name := exchange.Name()
	for _, declared := range v.exchanges {
		if declared.Name() == name {
			return v.error(ErrDuplicateExchangeName, name)
		}
	}
	return nil
}

func (v *VirtualHost) ensureVirtualHostMatchesSelf(exchange Exchange) error {
	if exchange.VirtualHost() != v {
		return v.error(ErrExchangeVirtualHostNotReflexive, exchange.Name())
	}
	return nil
}

func (v *VirtualHost) error(reason error, exchange string) error {
	return &Error{
		Reason:      reason,
		VirtualHost: v.name,
		Exchange:    exchange,
	}
}

// Bindings returns the bindings of every declared exchange, one group per exchange,
// in declaration order. Groups are never merged.
func (v *VirtualHost) Bindings() [][]*topology.Binding {
	v.lock.RLock()
	defer v.lock.RUnlock()

	result := make([][]*topology.Binding, 0, len(v.exchanges))
	for _, exchange := range v.exchanges {
		result = append(result, exchange.Bindings())
	}
	return result
}
