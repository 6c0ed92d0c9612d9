// Package exchange provides the in-process routing point declared into a VirtualHost.
package exchange

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/txix-open/emb/topology"
	"github.com/txix-open/emb/vhost"
)

var (
	ErrUnsupportedKind = errors.New("unsupported exchange kind")
)

type Exchange struct {
	name string
	kind string
	args amqp.Table
	vh   *vhost.VirtualHost

	lock     sync.RWMutex
	bindings []*topology.Binding
}

func New(name string, kind string, vh *vhost.VirtualHost, args amqp.Table) (*Exchange, error) {
	if !topology.IsSupportedKind(kind) {
		return nil, errors.WithMessagef(ErrUnsupportedKind, "exchange '%s' of kind '%s'", name, kind)
	}
	if args == nil {
		args = amqp.Table{}
	}
	return &Exchange{
		name:     name,
		kind:     kind,
		args:     args,
		vh:       vh,
		bindings: make([]*topology.Binding, 0),
	}, nil
}

func (e *Exchange) Name() string {
	return e.name
}

func (e *Exchange) Kind() string {
	return e.kind
}

func (e *Exchange) Args() amqp.Table {
	return e.args
}

func (e *Exchange) VirtualHost() *vhost.VirtualHost {
	return e.vh
}

// Bindings returns a snapshot in bind order.
func (e *Exchange) Bindings() []*topology.Binding {
	e.lock.RLock()
	defer e.lock.RUnlock()

	result := make([]*topology.Binding, len(e.bindings))
	copy(result, e.bindings)
	return result
}

// Bind
// Routes messages matching routingKey (or args for headers exchanges) to the queue
// Binding the same queue with the same key and args twice returns the existing binding
func (e *Exchange) Bind(queue string, routingKey string, args amqp.Table) *topology.Binding {
	e.lock.Lock()
	defer e.lock.Unlock()

	for _, binding := range e.bindings {
		if binding.QueueName == queue && binding.RoutingKey == routingKey && sameArgs(binding.Args, args) {
			return binding
		}
	}

	binding := topology.NewBindingWithArgs(e.name, queue, routingKey, args)
	e.bindings = append(e.bindings, binding)
	return binding
}

func (e *Exchange) Unbind(queue string, routingKey string) bool {
	e.lock.Lock()
	defer e.lock.Unlock()

	for i, binding := range e.bindings {
		if binding.QueueName == queue && binding.RoutingKey == routingKey {
			bindings := make([]*topology.Binding, 0, len(e.bindings)-1)
			bindings = append(bindings, e.bindings[:i]...)
			bindings = append(bindings, e.bindings[i+1:]...)
			e.bindings = bindings
			return true
		}
	}
	return false
}

func sameArgs(a amqp.Table, b amqp.Table) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Route returns bindings matching the message, at most one per queue.
func (e *Exchange) Route(routingKey string, headers amqp.Table) []*topology.Binding {
	return Route(e.kind, e.Bindings(), routingKey, headers)
}

// Route filters bindings of an exchange of the given kind, at most one per queue.
func Route(kind string, bindings []*topology.Binding, routingKey string, headers amqp.Table) []*topology.Binding {
	result := make([]*topology.Binding, 0)
	seen := make(map[string]bool)
	for _, binding := range bindings {
		if seen[binding.QueueName] {
			continue
		}
		if topology.Match(kind, binding, routingKey, headers) {
			seen[binding.QueueName] = true
			result = append(result, binding)
		}
	}
	return result
}
