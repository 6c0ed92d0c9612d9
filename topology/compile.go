package topology

import (
	"fmt"
)

const (
	DLXName   = "default-dead-letter"
	DLQSuffix = "DLQ"

	DeadLetterExchangeArg   = "x-dead-letter-exchange"
	DeadLetterRoutingKeyArg = "x-dead-letter-routing-key"
)

// Compile expands queue level options into plain declarations.
// Every queue with DLQ or a retry policy gets a dead letter queue
// bound to the shared DLX by the original queue name.
func Compile(cfg Declarations) Declarations {
	extraQueues := make([]*Queue, 0)
	extraExchanges := make([]*Exchange, 0)
	extraBindings := make([]*Binding, 0)
	dlxDeclared := false
	for _, exchange := range cfg.Exchanges {
		if exchange.Name == DLXName {
			dlxDeclared = true
		}
	}
	for _, queue := range cfg.Queues {
		if !queue.DLQ && queue.RetryPolicy == nil {
			continue
		}

		if !dlxDeclared {
			extraExchanges = append(extraExchanges, NewDirectExchange(DLXName))
			dlxDeclared = true
		}

		if queue.Args == nil {
			queue.Args = map[string]any{}
		}
		queue.Args[DeadLetterExchangeArg] = DLXName
		queue.Args[DeadLetterRoutingKeyArg] = queue.Name

		dlqName := DLQName(queue.Name)
		extraQueues = append(extraQueues, NewQueue(dlqName))
		extraBindings = append(extraBindings, NewBinding(DLXName, dlqName, queue.Name))
	}
	cfg.Queues = append(cfg.Queues, extraQueues...)
	cfg.Exchanges = append(cfg.Exchanges, extraExchanges...)
	cfg.Bindings = append(cfg.Bindings, extraBindings...)

	return cfg
}

func DLQName(queue string) string {
	return fmt.Sprintf("%s.%s", queue, DLQSuffix)
}
