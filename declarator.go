package emb

import (
	"github.com/pkg/errors"
	"github.com/txix-open/emb/topology"
	"github.com/txix-open/emb/vhost"
)

type Declarator struct {
	broker *Broker
	vhost  string
	cfg    topology.Declarations
}

func NewDeclarator(broker *Broker, vhost string, cfg topology.Declarations) *Declarator {
	return &Declarator{
		broker: broker,
		vhost:  vhost,
		cfg:    topology.Compile(cfg),
	}
}

func (c *Declarator) Run() error {
	for _, exchange := range c.cfg.Exchanges {
		err := c.declareExchange(exchange)
		if err != nil {
			return errors.WithMessagef(err, "declare exchange '%s'", exchange.Name)
		}
	}

	for _, queue := range c.cfg.Queues {
		_, err := c.broker.DeclareQueue(c.vhost, queue.Name, queue.Args)
		if err != nil {
			return errors.WithMessagef(err, "declare queue '%s'", queue.Name)
		}
	}

	for _, binding := range c.cfg.Bindings {
		_, err := c.broker.Bind(c.vhost, binding.ExchangeName, binding.QueueName, binding.RoutingKey, binding.Args)
		if err != nil {
			return errors.WithMessagef(err, "declare binding for queue '%s' to exchange '%s'", binding.QueueName, binding.ExchangeName)
		}
	}

	return nil
}

// declareExchange treats a redeclaration with the same type as a no-op.
func (c *Declarator) declareExchange(exchange *topology.Exchange) error {
	_, err := c.broker.DeclareExchange(c.vhost, exchange.Name, exchange.Type, exchange.Args)
	if !errors.Is(err, vhost.ErrDuplicateExchangeName) {
		return err
	}

	vh, err := c.broker.VirtualHost(c.vhost)
	if err != nil {
		return err
	}
	declared, _ := vh.Exchange(exchange.Name)
	ex, ok := declared.(kinded)
	if !ok || ex.Kind() != exchange.Type {
		return errors.WithMessagef(ErrExchangeTypeMismatch, "requested '%s'", exchange.Type)
	}
	return nil
}
