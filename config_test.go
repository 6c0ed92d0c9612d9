package emb_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/txix-open/emb"
	"github.com/txix-open/emb/topology"
)

const testConfig = `
log:
  level: debug
  format: json
listen: 127.0.0.1:0
virtualHosts:
  - name: orders
    exchanges:
      - name: orders
        type: topic
    queues:
      - name: created
        dlq: true
        args:
          x-max-length: 10
      - name: retried
        retryPolicy:
          finallyMoveToDlq: true
          retries:
            - delay: 500ms
              maxAttempts: 3
    bindings:
      - exchange: orders
        queue: created
        routingKey: order.created.#
`

func TestParseConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := emb.ParseConfig([]byte(testConfig))
	require.NoError(err)
	require.Equal("debug", cfg.Log.Level)
	require.Equal(emb.LogFormatJson, cfg.Log.Format)
	require.Equal("127.0.0.1:0", cfg.Listen)
	require.Len(cfg.VirtualHosts, 1)

	vh := cfg.VirtualHosts[0]
	require.Equal("orders", vh.Name)
	require.Equal(amqp091.ExchangeTopic, vh.Exchanges[0].Type)
	require.True(vh.Queues[0].DLQ)
	require.EqualValues(10, vh.Queues[0].Args[topology.MaxLengthArg])
	require.NotNil(vh.Queues[1].RetryPolicy)
	require.Equal(500*time.Millisecond, vh.Queues[1].RetryPolicy.Retries[0].Delay)
	require.Equal(3, vh.Queues[1].RetryPolicy.Retries[0].MaxAttempts)
	require.Equal("order.created.#", vh.Bindings[0].RoutingKey)
}

func TestParseConfig_Defaults(t *testing.T) {
	require := require.New(t)

	cfg, err := emb.ParseConfig([]byte("virtualHosts: []"))
	require.NoError(err)
	require.Equal(emb.DefaultConfig(), emb.Config{Log: cfg.Log, Listen: cfg.Listen})
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty vhost name", data: "virtualHosts: [{name: ''}]"},
		{name: "duplicate vhost", data: "virtualHosts: [{name: a}, {name: a}]"},
		{name: "unsupported type", data: "virtualHosts: [{name: a, exchanges: [{name: e, type: x-delayed}]}]"},
		{name: "default exchange", data: "virtualHosts: [{name: a, exchanges: [{name: '', type: direct}]}]"},
		{name: "empty queue name", data: "virtualHosts: [{name: a, queues: [{name: ''}]}]"},
		{name: "empty retry policy", data: "virtualHosts: [{name: a, queues: [{name: q, retryPolicy: {retries: []}}]}]"},
		{name: "broken yaml", data: "virtualHosts: ["},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := emb.ParseConfig([]byte(test.data))
			require.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(os.WriteFile(path, []byte(testConfig), 0o600))

	cfg, err := emb.LoadConfig(path)
	require.NoError(err)

	broker := emb.New(cfg.Options()...)
	require.NoError(broker.Run(context.Background()))
	t.Cleanup(broker.Shutdown)

	err = broker.Publish(context.Background(), "orders", "orders", "order.created.eu", &amqp091.Publishing{})
	require.NoError(err)
	require.Equal(1, queueSize(t, broker, "orders", "created"))
	require.Equal(0, queueSize(t, broker, "orders", "created.DLQ"))
	require.Equal(0, queueSize(t, broker, "orders", "retried.DLQ"))

	_, err = emb.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(err)
}

func TestLogObserver(t *testing.T) {
	require := require.New(t)

	logger, err := emb.NewLogger(emb.LogConfig{Level: "debug", Format: emb.LogFormatJson})
	require.NoError(err)
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	observer := emb.NewLogObserver(logger)
	observer.MessageReturned("/", "orders", "order.created")
	require.Contains(buf.String(), `"exchange":"orders"`)
	require.Contains(buf.String(), `"routing_key":"order.created"`)

	_, err = emb.NewLogger(emb.LogConfig{Level: "loud"})
	require.Error(err)
	_, err = emb.NewLogger(emb.LogConfig{Level: "info", Format: "xml"})
	require.Error(err)
}
