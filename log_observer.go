package emb

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/txix-open/emb/consumer"
	"github.com/txix-open/emb/publisher"
)

const (
	LogFormatText = "text"
	LogFormatJson = "json"
)

type LogObserver struct {
	logger logrus.FieldLogger
}

func NewLogObserver(logger logrus.FieldLogger) LogObserver {
	return LogObserver{
		logger: logger,
	}
}

func (o LogObserver) BrokerReady() {
	o.logger.Info("broker is ready")
}

func (o LogObserver) BrokerError(err error) {
	o.logger.WithError(err).Error("broker error")
}

func (o LogObserver) ConsumerError(consumer consumer.Consumer, err error) {
	o.logger.WithError(err).
		WithField("vhost", consumer.VirtualHost).
		WithField("queue", consumer.Queue).
		WithField("consumer", consumer.Name).
		Error("unexpected consumer error")
}

func (o LogObserver) PublisherError(publisher *publisher.Publisher, err error) {
	o.logger.WithError(err).
		WithField("vhost", publisher.VirtualHost).
		WithField("exchange", publisher.Exchange).
		WithField("routing_key", publisher.RoutingKey).
		Error("publisher error")
}

func (o LogObserver) MessageReturned(vhost string, exchange string, routingKey string) {
	o.logger.WithFields(logrus.Fields{
		"vhost":       vhost,
		"exchange":    exchange,
		"routing_key": routingKey,
	}).Warn("message is unroutable")
}

func (o LogObserver) MessageDeadLettered(vhost string, queue string, exchange string, routingKey string) {
	o.logger.WithFields(logrus.Fields{
		"vhost":       vhost,
		"queue":       queue,
		"exchange":    exchange,
		"routing_key": routingKey,
	}).Debug("message dead lettered")
}

func (o LogObserver) ShutdownStarted() {
	o.logger.Info("broker shutdown started")
}

func (o LogObserver) ShutdownDone() {
	o.logger.Info("broker shutdown done")
}

func NewLogger(cfg LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.WithMessage(err, "parse log level")
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case LogFormatJson:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case LogFormatText, "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("unknown log format '%s'", cfg.Format)
	}
	return logger, nil
}
