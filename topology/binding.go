package topology

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

type Binding struct {
	ExchangeName string     `yaml:"exchange"`
	QueueName    string     `yaml:"queue"`
	RoutingKey   string     `yaml:"routingKey"`
	Args         amqp.Table `yaml:"args,omitempty"`
}

func NewBinding(exchangeName string, queueName string, routingKey string) *Binding {
	return &Binding{
		ExchangeName: exchangeName,
		QueueName:    queueName,
		RoutingKey:   routingKey,
		Args:         map[string]any{},
	}
}

func NewBindingWithArgs(exchangeName string, queueName string, routingKey string, args amqp.Table) *Binding {
	b := NewBinding(exchangeName, queueName, routingKey)
	for k, v := range args {
		b.Args[k] = v
	}
	return b
}
