package topology

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchangeName = ""
)

type Exchange struct {
	Name string     `yaml:"name"`
	Type string     `yaml:"type"`
	Args amqp.Table `yaml:"args,omitempty"`
}

func NewDirectExchange(name string) *Exchange {
	return &Exchange{
		Name: name,
		Type: amqp.ExchangeDirect,
		Args: map[string]interface{}{},
	}
}

func NewFanoutExchange(name string) *Exchange {
	return &Exchange{
		Name: name,
		Type: amqp.ExchangeFanout,
		Args: map[string]interface{}{},
	}
}

func NewTopicExchange(name string) *Exchange {
	return &Exchange{
		Name: name,
		Type: amqp.ExchangeTopic,
		Args: map[string]interface{}{},
	}
}

func NewHeadersExchange(name string) *Exchange {
	return &Exchange{
		Name: name,
		Type: amqp.ExchangeHeaders,
		Args: map[string]interface{}{},
	}
}

// IsSupportedKind reports whether the kind can be routed in process.
func IsSupportedKind(kind string) bool {
	switch kind {
	case amqp.ExchangeDirect, amqp.ExchangeFanout, amqp.ExchangeTopic, amqp.ExchangeHeaders:
		return true
	default:
		return false
	}
}
