package topology_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/txix-open/emb/retry"
	"github.com/txix-open/emb/topology"
)

func TestCompile(t *testing.T) {
	require := require.New(t)

	policy := retry.NewPolicy(true, retry.WithDelay(time.Second, 1))
	cfg := topology.New(
		topology.WithQueue("plain"),
		topology.WithQueue("dlq", topology.WithDLQ(true)),
		topology.WithQueue("retry", topology.WithRetryPolicy(policy), topology.WithMaxLength(5)),
		topology.WithDirectExchange("exchange"),
		topology.WithBinding("exchange", "plain", "key"),
	)

	compiled := topology.Compile(cfg)

	exchanges := make([]string, 0)
	for _, e := range compiled.Exchanges {
		exchanges = append(exchanges, e.Name)
	}
	require.Equal([]string{"exchange", topology.DLXName}, exchanges)

	queues := make([]string, 0)
	for _, q := range compiled.Queues {
		queues = append(queues, q.Name)
	}
	require.Equal([]string{"plain", "dlq", "retry", "dlq.DLQ", "retry.DLQ"}, queues)

	require.NotContains(compiled.Queues[0].Args, topology.DeadLetterExchangeArg)
	require.Equal(topology.DLXName, compiled.Queues[1].Args[topology.DeadLetterExchangeArg])
	require.Equal("retry", compiled.Queues[2].Args[topology.DeadLetterRoutingKeyArg])
	require.EqualValues(5, compiled.Queues[2].Args[topology.MaxLengthArg])

	require.Len(compiled.Bindings, 3)
	require.Equal(topology.NewBinding(topology.DLXName, "dlq.DLQ", "dlq"), compiled.Bindings[1])
	require.Equal(topology.NewBinding(topology.DLXName, "retry.DLQ", "retry"), compiled.Bindings[2])
}

func TestCompile_UserDefinedDLX(t *testing.T) {
	require := require.New(t)

	cfg := topology.New(
		topology.WithDirectExchange(topology.DLXName),
		topology.WithQueue("queue", topology.WithDLQ(true)),
	)
	compiled := topology.Compile(cfg)
	require.Len(compiled.Exchanges, 1)
}

func TestQueue_IgnoredOptions(t *testing.T) {
	require := require.New(t)

	queue := topology.NewQueue("jobs", topology.WithDurable(false), topology.WithAutoDelete(true))
	require.False(queue.Durable)
	require.True(queue.AutoDelete)

	compiled := topology.Compile(topology.Declarations{Queues: []*topology.Queue{queue}})
	require.Len(compiled.Queues, 1)
	require.Empty(compiled.Exchanges)
	require.Empty(queue.Args)
}
