package emb

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/txix-open/emb/consumer"
	"github.com/txix-open/emb/exchange"
	"github.com/txix-open/emb/publisher"
	"github.com/txix-open/emb/queue"
	"github.com/txix-open/emb/topology"
	"github.com/txix-open/emb/vhost"
)

const (
	DefaultVirtualHost = "/"
)

var (
	ErrVirtualHostNotFound  = errors.New("virtual host not found")
	ErrVirtualHostExists    = errors.New("virtual host already exists")
	ErrExchangeNotFound     = errors.New("exchange not found")
	ErrQueueNotFound        = errors.New("queue not found")
	ErrReservedExchangeName = errors.New("exchange name is reserved")
	ErrExchangeTypeMismatch = errors.New("exchange declared with another type")
	ErrExchangeNotBindable  = errors.New("exchange does not support binding")
	ErrExchangeNotRoutable  = errors.New("exchange does not expose its kind")
	ErrUnroutable           = errors.New("message is unroutable")
	ErrNilMessage           = errors.New("message is nil")
	ErrBrokerClosed         = errors.New("broker is closed")
	ErrBrokerAlreadyStarted = errors.New("broker is already started")
)

type closer interface {
	Close() error
}

type vhostDeclarations struct {
	vhost        string
	declarations topology.Declarations
}

// host keeps the queues of one virtual host.
// Queues are not a concern of vhost.VirtualHost.
type host struct {
	vh *vhost.VirtualHost

	lock   sync.RWMutex
	queues map[string]*queue.Queue
}

type Broker struct {
	declarations []vhostDeclarations
	consumers    []consumer.Consumer
	publishers   []*publisher.Publisher
	observer     Observer

	lock    sync.RWMutex
	hosts   map[string]*host
	order   []string
	started bool
	closed  bool
	closers []closer
}

func New(options ...BrokerOption) *Broker {
	b := &Broker{
		hosts:    make(map[string]*host),
		observer: NoopObserver{},
	}
	b.hosts[DefaultVirtualHost] = b.newHost(DefaultVirtualHost)
	b.order = append(b.order, DefaultVirtualHost)

	for _, opt := range options {
		opt(b)
	}

	return b
}

func (b *Broker) newHost(name string) *host {
	return &host{
		vh:     vhost.New(name, b),
		queues: make(map[string]*queue.Queue),
	}
}

// DeclareVirtualHost creates an empty virtual host owned by the broker.
func (b *Broker) DeclareVirtualHost(name string) (*vhost.VirtualHost, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}
	if _, exists := b.hosts[name]; exists {
		return nil, errors.WithMessagef(ErrVirtualHostExists, "virtual host '%s'", name)
	}
	h := b.newHost(name)
	b.hosts[name] = h
	b.order = append(b.order, name)
	return h.vh, nil
}

func (b *Broker) VirtualHost(name string) (*vhost.VirtualHost, error) {
	h, err := b.host(name)
	if err != nil {
		return nil, err
	}
	return h.vh, nil
}

// VirtualHosts returns virtual hosts in declaration order.
func (b *Broker) VirtualHosts() []*vhost.VirtualHost {
	b.lock.RLock()
	defer b.lock.RUnlock()

	result := make([]*vhost.VirtualHost, 0, len(b.order))
	for _, name := range b.order {
		result = append(result, b.hosts[name].vh)
	}
	return result
}

func (b *Broker) host(name string) (*host, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}
	h, ok := b.hosts[name]
	if !ok {
		return nil, errors.WithMessagef(ErrVirtualHostNotFound, "virtual host '%s'", name)
	}
	return h, nil
}

// DeclareExchange
// Creates an exchange and declares it into the virtual host
// Errors of the virtual host are returned as is, so vhost.ErrDuplicateExchangeName can be checked
func (b *Broker) DeclareExchange(vhostName string, name string, kind string, args amqp.Table) (*exchange.Exchange, error) {
	if name == topology.DefaultExchangeName {
		return nil, ErrReservedExchangeName
	}
	h, err := b.host(vhostName)
	if err != nil {
		return nil, err
	}

	ex, err := exchange.New(name, kind, h.vh, args)
	if err != nil {
		return nil, err
	}
	err = h.vh.DeclareExchange(ex)
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// DeclareQueue returns the existing queue if it is already declared.
func (b *Broker) DeclareQueue(vhostName string, name string, args amqp.Table) (*queue.Queue, error) {
	h, err := b.host(vhostName)
	if err != nil {
		return nil, err
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	if q, exists := h.queues[name]; exists {
		return q, nil
	}
	q := queue.New(name, args, b.deadLetterFunc(vhostName))
	h.queues[name] = q
	return q, nil
}

func (b *Broker) Queue(vhostName string, name string) (*queue.Queue, error) {
	h, err := b.host(vhostName)
	if err != nil {
		return nil, err
	}
	q, ok := h.queue(name)
	if !ok {
		return nil, errors.WithMessagef(ErrQueueNotFound, "queue '%s' in virtual host '%s'", name, vhostName)
	}
	return q, nil
}

func (h *host) queue(name string) (*queue.Queue, bool) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	q, ok := h.queues[name]
	return q, ok
}

func (h *host) allQueues() []*queue.Queue {
	h.lock.RLock()
	defer h.lock.RUnlock()

	result := make([]*queue.Queue, 0, len(h.queues))
	for _, q := range h.queues {
		result = append(result, q)
	}
	return result
}

type binder interface {
	Bind(queue string, routingKey string, args amqp.Table) *topology.Binding
}

// Bind routes messages from the exchange to the queue, both must be declared.
func (b *Broker) Bind(vhostName string, exchangeName string, queueName string, routingKey string, args amqp.Table) (*topology.Binding, error) {
	h, err := b.host(vhostName)
	if err != nil {
		return nil, err
	}

	declared, ok := h.vh.Exchange(exchangeName)
	if !ok {
		return nil, errors.WithMessagef(ErrExchangeNotFound, "exchange '%s' in virtual host '%s'", exchangeName, vhostName)
	}
	ex, ok := declared.(binder)
	if !ok {
		return nil, errors.WithMessagef(ErrExchangeNotBindable, "exchange '%s'", exchangeName)
	}
	if _, ok := h.queue(queueName); !ok {
		return nil, errors.WithMessagef(ErrQueueNotFound, "queue '%s' in virtual host '%s'", queueName, vhostName)
	}

	return ex.Bind(queueName, routingKey, args), nil
}

func (b *Broker) deadLetterFunc(vhostName string) queue.DeadLetterFunc {
	return func(queue string, exchange string, routingKey string, msg *amqp.Publishing) error {
		err := b.Publish(context.Background(), vhostName, exchange, routingKey, msg)
		if err != nil {
			return err
		}
		b.observer.MessageDeadLettered(vhostName, queue, exchange, routingKey)
		return nil
	}
}

// Run
// Applies all declarations
// Initializes all publishers
// Runs all consumers
// Returns the first occurred error, the observer is notified as well
func (b *Broker) Run(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			b.observer.BrokerError(err)
		}
	}()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return ErrBrokerClosed
	}
	if b.started {
		b.lock.Unlock()
		return ErrBrokerAlreadyStarted
	}
	b.started = true
	b.lock.Unlock()

	for _, decl := range b.declarations {
		if _, err := b.host(decl.vhost); err != nil {
			_, err = b.DeclareVirtualHost(decl.vhost)
			if err != nil && !errors.Is(err, ErrVirtualHostExists) {
				return errors.WithMessagef(err, "declare virtual host '%s'", decl.vhost)
			}
		}
		declarator := NewDeclarator(b, decl.vhost, decl.declarations)
		err := declarator.Run()
		if err != nil {
			return errors.WithMessagef(err, "run declarator for virtual host '%s'", decl.vhost)
		}
	}

	for _, publisher := range b.publishers {
		publisherUnit := NewPublisher(b, publisher, b.observer)
		err := publisherUnit.Run()
		if err != nil {
			return errors.WithMessagef(err, "run publisher exchange: '%s', routingKey: '%s'", publisher.Exchange, publisher.RoutingKey)
		}
	}

	closers := make([]closer, 0, len(b.consumers))
	for _, cfg := range b.consumers {
		q, err := b.Queue(cfg.VirtualHost, cfg.Queue)
		if err != nil {
			b.closeAll(closers)
			return errors.WithMessagef(err, "run consumer '%s'", cfg.Queue)
		}
		var retryPub *Publisher
		if cfg.RetryPolicy != nil {
			retryPub = NewPublisher(b, publisher.New("", "", publisher.WithVirtualHost(cfg.VirtualHost)), b.observer)
			err = retryPub.Run()
			if err != nil {
				b.closeAll(closers)
				return errors.WithMessagef(err, "run retry publisher for consumer '%s'", cfg.Queue)
			}
		}
		consumerUnit := NewConsumer(cfg, q, retryPub, b.observer)
		err = consumerUnit.Run()
		if err != nil {
			b.closeAll(closers)
			return errors.WithMessagef(err, "run consumer '%s'", cfg.Queue)
		}
		closers = append(closers, consumerUnit)
	}

	b.lock.Lock()
	b.closers = closers
	b.lock.Unlock()

	b.observer.BrokerReady()
	return nil
}

// Shutdown
// Perform graceful shutdown
// Consumers are stopped in reverse order, then all queues are closed
func (b *Broker) Shutdown() {
	b.observer.ShutdownStarted()

	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		b.observer.ShutdownDone()
		return
	}
	closers := b.closers
	b.closers = nil
	b.lock.Unlock()

	b.closeAll(closers)

	b.lock.Lock()
	b.closed = true
	hosts := make([]*host, 0, len(b.hosts))
	for _, h := range b.hosts {
		hosts = append(hosts, h)
	}
	b.lock.Unlock()

	for _, h := range hosts {
		for _, q := range h.allQueues() {
			_ = q.Close()
		}
	}

	b.observer.ShutdownDone()
}

func (b *Broker) closeAll(closers []closer) {
	for i := len(closers); i > 0; i-- {
		err := closers[i-1].Close()
		if err != nil {
			b.observer.BrokerError(errors.WithMessage(err, "close"))
		}
	}
}
