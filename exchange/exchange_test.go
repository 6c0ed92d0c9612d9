package exchange_test

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/txix-open/emb/exchange"
	"github.com/txix-open/emb/topology"
	"github.com/txix-open/emb/vhost"
)

func queues(bindings []*topology.Binding) []string {
	result := make([]string, 0, len(bindings))
	for _, b := range bindings {
		result = append(result, b.QueueName)
	}
	return result
}

func TestNew_UnsupportedKind(t *testing.T) {
	require := require.New(t)

	_, err := exchange.New("test", "x-consistent-hash", vhost.New("/", nil), nil)
	require.ErrorIs(err, exchange.ErrUnsupportedKind)
}

func TestExchange_DeclaredIntoVirtualHost(t *testing.T) {
	require := require.New(t)

	vh := vhost.New("/", nil)
	ex, err := exchange.New("orders", amqp.ExchangeDirect, vh, nil)
	require.NoError(err)

	err = vh.DeclareExchange(ex)
	require.NoError(err)

	b := ex.Bind("q", "created", nil)
	require.Equal([][]*topology.Binding{{b}}, vh.Bindings())
}

func TestExchange_Bind(t *testing.T) {
	require := require.New(t)

	ex, err := exchange.New("orders", amqp.ExchangeDirect, vhost.New("/", nil), nil)
	require.NoError(err)

	first := ex.Bind("q", "created", nil)
	second := ex.Bind("q", "created", nil)
	require.Same(first, second)
	require.Equal("orders", first.ExchangeName)

	ex.Bind("q", "deleted", nil)
	require.Len(ex.Bindings(), 2)

	require.True(ex.Unbind("q", "created"))
	require.False(ex.Unbind("q", "created"))
	require.Equal([]string{"q"}, queues(ex.Bindings()))
	require.Equal("deleted", ex.Bindings()[0].RoutingKey)
}

func TestExchange_RouteDirect(t *testing.T) {
	require := require.New(t)

	ex, err := exchange.New("orders", amqp.ExchangeDirect, vhost.New("/", nil), nil)
	require.NoError(err)
	ex.Bind("q1", "created", nil)
	ex.Bind("q2", "deleted", nil)
	ex.Bind("q3", "created", nil)

	require.Equal([]string{"q1", "q3"}, queues(ex.Route("created", nil)))
	require.Empty(ex.Route("updated", nil))
}

func TestExchange_RouteFanoutDeduplicatesQueues(t *testing.T) {
	require := require.New(t)

	ex, err := exchange.New("events", amqp.ExchangeFanout, vhost.New("/", nil), nil)
	require.NoError(err)
	ex.Bind("q1", "a", nil)
	ex.Bind("q1", "b", nil)
	ex.Bind("q2", "", nil)

	require.Equal([]string{"q1", "q2"}, queues(ex.Route("anything", nil)))
}

func TestExchange_RouteTopic(t *testing.T) {
	require := require.New(t)

	ex, err := exchange.New("logs", amqp.ExchangeTopic, vhost.New("/", nil), nil)
	require.NoError(err)
	ex.Bind("all", "#", nil)
	ex.Bind("errors", "*.error", nil)
	ex.Bind("kernel", "kernel.#", nil)

	require.Equal([]string{"all", "errors", "kernel"}, queues(ex.Route("kernel.error", nil)))
	require.Equal([]string{"all", "kernel"}, queues(ex.Route("kernel.disk.full", nil)))
	require.Equal([]string{"all"}, queues(ex.Route("", nil)))
}

func TestExchange_RouteHeaders(t *testing.T) {
	require := require.New(t)

	ex, err := exchange.New("reports", amqp.ExchangeHeaders, vhost.New("/", nil), nil)
	require.NoError(err)
	ex.Bind("all", "", amqp.Table{"format": "pdf", "type": "report"})
	ex.Bind("any", "", amqp.Table{"x-match": "any", "format": "pdf", "type": "log"})

	require.Equal([]string{"all", "any"}, queues(ex.Route("", amqp.Table{"format": "pdf", "type": "report"})))
	require.Equal([]string{"any"}, queues(ex.Route("", amqp.Table{"format": "pdf"})))
	require.Empty(ex.Route("", amqp.Table{"format": "zip"}))
}
