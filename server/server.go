package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/txix-open/emb/exchange"
	"github.com/txix-open/emb/queue"
	"github.com/txix-open/emb/topology"
	"github.com/txix-open/emb/vhost"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultVirtualHost   = "/"
	DefaultMaxLineLength = 64 * 1024
)

const (
	cmdVirtualHost     = "VHOST"
	cmdDeclareExchange = "DECLARE_EXCHANGE"
	cmdDeclareQueue    = "DECLARE_QUEUE"
	cmdBindQueue       = "BIND_QUEUE"
	cmdPublish         = "PUBLISH"
	cmdConsume         = "CONSUME"
)

type Broker interface {
	VirtualHost(name string) (*vhost.VirtualHost, error)
	DeclareExchange(vhost string, name string, kind string, args amqp.Table) (*exchange.Exchange, error)
	DeclareQueue(vhost string, name string, args amqp.Table) (*queue.Queue, error)
	Bind(vhost string, exchange string, queue string, routingKey string, args amqp.Table) (*topology.Binding, error)
	Queue(vhost string, name string) (*queue.Queue, error)
	Publish(ctx context.Context, vhost string, exchange string, routingKey string, msg *amqp.Publishing) error
}

// Server exposes a Broker over a newline delimited text protocol.
// Every connection works with a single virtual host selected by VHOST.
type Server struct {
	broker        Broker
	logger        logrus.FieldLogger
	maxLineLength int
}

type Option func(s *Server)

// WithMaxLineLength limits a command line, the connection is closed after a longer one
func WithMaxLineLength(value int) Option {
	return func(s *Server) {
		s.maxLineLength = value
	}
}

func New(broker Broker, logger logrus.FieldLogger, opts ...Option) *Server {
	s := &Server{
		broker:        broker,
		logger:        logger,
		maxLineLength: DefaultMaxLineLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve accepts connections until ctx is done or the listener fails
// Open connections are closed on return
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})

	group.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return errors.WithMessage(err, "accept")
			}
			group.Go(func() error {
				s.HandleConn(ctx, conn)
				return nil
			})
		}
	})

	err := group.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// HandleConn serves one connection until the peer disconnects or ctx is done
func (s *Server) HandleConn(ctx context.Context, conn net.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	consumers, ctx := errgroup.WithContext(ctx)

	sess := &session{
		server: s,
		conn:   conn,
		vhost:  DefaultVirtualHost,
		logger: s.logger.WithField("remote_addr", conn.RemoteAddr().String()),
	}
	sess.logger.Debug("client connected")

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	sess.readLoop(ctx, consumers)

	cancel()
	_ = consumers.Wait()
	sess.logger.Debug("client disconnected")
}

type session struct {
	server *Server
	conn   net.Conn
	vhost  string
	logger logrus.FieldLogger

	writeLock sync.Mutex
}

func (s *session) readLoop(ctx context.Context, consumers *errgroup.Group) {
	scanner := bufio.NewScanner(s.conn)
	maxLineLength := s.server.maxLineLength
	scanner.Buffer(make([]byte, 0, min(maxLineLength, 4096)), maxLineLength)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		err := s.handle(ctx, consumers, strings.Split(line, " "))
		if err != nil {
			s.logger.WithError(err).Warn("write reply")
			return
		}
	}

	err := scanner.Err()
	switch {
	case errors.Is(err, bufio.ErrTooLong):
		s.logger.WithField("max_line_length", maxLineLength).Warn("command line is too long, closing connection")
		_ = s.replyError(errors.WithMessagef(err, "limit %d bytes", maxLineLength))
	case err != nil && ctx.Err() == nil:
		s.logger.WithError(err).Warn("read command")
	}
}

func (s *session) handle(ctx context.Context, consumers *errgroup.Group, parts []string) error {
	broker := s.server.broker

	switch parts[0] {
	case cmdVirtualHost:
		if len(parts) < 2 {
			return s.reply("Usage: VHOST <name>")
		}
		_, err := broker.VirtualHost(parts[1])
		if err != nil {
			return s.replyError(err)
		}
		s.vhost = parts[1]
		return s.reply("Virtual host selected")

	case cmdDeclareExchange:
		if len(parts) < 3 {
			return s.reply("Usage: DECLARE_EXCHANGE <exchange_name> <type>")
		}
		_, err := broker.DeclareExchange(s.vhost, parts[1], parts[2], nil)
		if err != nil {
			return s.replyError(err)
		}
		s.logger.WithField("vhost", s.vhost).WithField("exchange", parts[1]).Info("exchange declared")
		return s.reply("Exchange declared successfully")

	case cmdDeclareQueue:
		if len(parts) < 2 {
			return s.reply("Usage: DECLARE_QUEUE <queue_name>")
		}
		_, err := broker.DeclareQueue(s.vhost, parts[1], nil)
		if err != nil {
			return s.replyError(err)
		}
		return s.reply("Queue declared successfully")

	case cmdBindQueue:
		if len(parts) < 4 {
			return s.reply("Usage: BIND_QUEUE <queue_name> <exchange_name> <routing_key>")
		}
		_, err := broker.Bind(s.vhost, parts[2], parts[1], parts[3], nil)
		if err != nil {
			return s.replyError(err)
		}
		return s.reply("Queue bound to exchange successfully")

	case cmdPublish:
		if len(parts) < 4 {
			return s.reply("Usage: PUBLISH <exchange_name> <routing_key> <message>")
		}
		msg := &amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(strings.Join(parts[3:], " ")),
		}
		err := broker.Publish(ctx, s.vhost, parts[1], parts[2], msg)
		if err != nil {
			return s.replyError(err)
		}
		return s.reply("Message published successfully")

	case cmdConsume:
		if len(parts) < 2 {
			return s.reply("Usage: CONSUME <queue_name>")
		}
		q, err := broker.Queue(s.vhost, parts[1])
		if err != nil {
			return s.replyError(err)
		}
		err = s.reply("Consumer started")
		if err != nil {
			return err
		}
		consumers.Go(func() error {
			return s.consume(ctx, q)
		})
		return nil

	default:
		return s.reply("Unknown command")
	}
}

// consume writes every delivery of q to the connection and acks it once written
func (s *session) consume(ctx context.Context, q *queue.Queue) error {
	logger := s.logger.WithField("queue", q.Name())
	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, isOpen := <-q.Deliveries():
			if !isOpen {
				return nil
			}
			err := s.reply(fmt.Sprintf("MESSAGE %s %s", q.Name(), delivery.Body))
			if err != nil {
				logger.WithError(err).Warn("write delivery, requeue")
				_ = delivery.Nack(false, true)
				return err
			}
			err = delivery.Ack(false)
			if err != nil {
				logger.WithError(err).Warn("ack delivery")
			}
		}
	}
}

func (s *session) replyError(err error) error {
	return s.reply(fmt.Sprintf("Error: %v", err))
}

func (s *session) reply(line string) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	_, err := fmt.Fprintln(s.conn, line)
	return err
}
