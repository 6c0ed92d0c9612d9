package topology_test

import (
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/txix-open/emb/topology"
)

func TestMatch_Topic(t *testing.T) {
	tests := []struct {
		pattern    string
		routingKey string
		expected   bool
	}{
		{"stock.usd.nyse", "stock.usd.nyse", true},
		{"stock.*.nyse", "stock.usd.nyse", true},
		{"stock.*.nyse", "stock.nyse", false},
		{"stock.#", "stock", true},
		{"stock.#", "stock.usd.nyse", true},
		{"#.nyse", "stock.usd.nyse", true},
		{"#", "", true},
		{"#", "a.b.c", true},
		{"*", "", false},
		{"*", "a", true},
		{"a.#.c", "a.c", true},
		{"a.#.c", "a.b.b.c", true},
		{"a.#.c", "a.b.b.d", false},
		{"", "", true},
		{"", "a", false},
		{"Stock.*", "stock.usd", false},
	}
	for _, test := range tests {
		binding := topology.NewBinding("logs", "queue", test.pattern)
		actual := topology.Match(amqp.ExchangeTopic, binding, test.routingKey, nil)
		require.Equal(t, test.expected, actual, "pattern '%s', key '%s'", test.pattern, test.routingKey)
	}
}

func TestMatch_TopicManyAnyWords(t *testing.T) {
	require := require.New(t)

	key := strings.TrimSuffix(strings.Repeat("a.", 200), ".")
	start := time.Now()

	noMatch := topology.NewBinding("logs", "queue", strings.Repeat("#.a.", 30)+"x")
	require.False(topology.Match(amqp.ExchangeTopic, noMatch, key, nil))

	repeated := topology.NewBinding("logs", "queue", strings.Repeat("#.", 40)+"x")
	require.False(topology.Match(amqp.ExchangeTopic, repeated, key, nil))

	match := topology.NewBinding("logs", "queue", strings.Repeat("#.*.", 30)+"#")
	require.True(topology.Match(amqp.ExchangeTopic, match, key, nil))

	require.Less(time.Since(start), time.Second)
}

func TestMatch_DirectAndFanout(t *testing.T) {
	require := require.New(t)

	binding := topology.NewBinding("exchange", "queue", "key")
	require.True(topology.Match(amqp.ExchangeDirect, binding, "key", nil))
	require.False(topology.Match(amqp.ExchangeDirect, binding, "Key", nil))
	require.True(topology.Match(amqp.ExchangeFanout, binding, "other", nil))
	require.False(topology.Match("x-unknown", binding, "key", nil))
}

func TestMatch_Headers(t *testing.T) {
	require := require.New(t)

	all := topology.NewBindingWithArgs("exchange", "queue", "", amqp.Table{"a": "1", "b": int64(2)})
	require.True(topology.Match(amqp.ExchangeHeaders, all, "", amqp.Table{"a": "1", "b": int64(2), "c": "3"}))
	require.False(topology.Match(amqp.ExchangeHeaders, all, "", amqp.Table{"a": "1"}))

	anyOf := topology.NewBindingWithArgs("exchange", "queue", "", amqp.Table{"x-match": "any", "a": "1", "b": "2"})
	require.True(topology.Match(amqp.ExchangeHeaders, anyOf, "", amqp.Table{"b": "2"}))
	require.False(topology.Match(amqp.ExchangeHeaders, anyOf, "", amqp.Table{"c": "3"}))
}
