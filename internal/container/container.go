// Package container wires the broker, its logger and the line server using go.uber.org/dig.
package container

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/txix-open/emb"
	"github.com/txix-open/emb/server"
	"go.uber.org/dig"
)

type Container struct {
	cfg    emb.Config
	logger *logrus.Logger
	broker *emb.Broker
	server *server.Server
}

func (c *Container) Config() emb.Config     { return c.cfg }
func (c *Container) Logger() *logrus.Logger { return c.logger }
func (c *Container) Broker() *emb.Broker    { return c.broker }
func (c *Container) Server() *server.Server { return c.server }

// New builds every component from cfg. The broker is not started.
func New(cfg emb.Config) (*Container, error) {
	d := dig.New()

	providers := []any{
		func() emb.Config { return cfg },
		newLogger,
		newObserver,
		newBroker,
		newServer,
	}
	for _, provider := range providers {
		err := d.Provide(provider)
		if err != nil {
			return nil, errors.WithMessage(err, "provide")
		}
	}

	var result *Container
	err := d.Invoke(func(
		logger *logrus.Logger,
		broker *emb.Broker,
		srv *server.Server,
	) {
		result = &Container{
			cfg:    cfg,
			logger: logger,
			broker: broker,
			server: srv,
		}
	})
	if err != nil {
		return nil, errors.WithMessage(err, "invoke")
	}
	return result, nil
}

func newLogger(cfg emb.Config) (*logrus.Logger, error) {
	return emb.NewLogger(cfg.Log)
}

func newObserver(logger *logrus.Logger) emb.Observer {
	return emb.NewLogObserver(logger)
}

func newBroker(cfg emb.Config, observer emb.Observer) *emb.Broker {
	options := append(cfg.Options(), emb.WithObserver(observer))
	return emb.New(options...)
}

func newServer(broker *emb.Broker, logger *logrus.Logger) *server.Server {
	return server.New(broker, logger.WithField("component", "server"))
}
