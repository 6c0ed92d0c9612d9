package emb

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/txix-open/emb/consumer"
	"github.com/txix-open/emb/queue"
	"github.com/txix-open/emb/retry"
)

type Consumer struct {
	cfg        consumer.Consumer
	queue      *queue.Queue
	retryer    consumer.Retryer
	retrier    *retry.Retrier
	deliveryWg *sync.WaitGroup
	workersWg  *sync.WaitGroup
	prefetch   chan struct{}
	stop       chan struct{}
	closeOnce  *sync.Once
	observer   Observer
}

func NewConsumer(cfg consumer.Consumer, q *queue.Queue, retryPub *Publisher, observer Observer) *Consumer {
	c := &Consumer{
		cfg:        cfg,
		queue:      q,
		workersWg:  &sync.WaitGroup{},
		deliveryWg: &sync.WaitGroup{},
		stop:       make(chan struct{}),
		closeOnce:  &sync.Once{},
		observer:   observer,
	}
	if cfg.RetryPolicy != nil && retryPub != nil {
		c.retrier = retry.NewRetrier(cfg.Queue, *cfg.RetryPolicy, retryPub, func(err error) {
			observer.ConsumerError(cfg, err)
		})
		c.retryer = c.retrier
	}
	if cfg.PrefetchCount > 0 {
		c.prefetch = make(chan struct{}, cfg.PrefetchCount)
	}
	return c
}

func (c *Consumer) Run() error {
	if c.cfg.Handler() == nil {
		return errors.New("handler is not set")
	}

	concurrency := c.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		c.workersWg.Add(1)
		go c.runWorker()
	}

	return nil
}

func (c *Consumer) runWorker() {
	defer c.workersWg.Done()

	for {
		if !c.acquire() {
			return
		}

		select {
		case delivery, isOpen := <-c.queue.Deliveries():
			if !isOpen {
				c.release()
				c.queueClosed()
				return
			}
			c.deliveryWg.Add(1)
			d := consumer.NewDelivery(donner{c}, &delivery, c.retryer)
			c.cfg.Handler().Handle(context.Background(), d)
		case <-c.stop:
			c.release()
			return
		}
	}
}

// acquire takes a slot of the prefetch window.
func (c *Consumer) acquire() bool {
	if c.prefetch == nil {
		return true
	}
	select {
	case c.prefetch <- struct{}{}:
		return true
	case <-c.stop:
		return false
	}
}

func (c *Consumer) release() {
	if c.prefetch == nil {
		return
	}
	select {
	case <-c.prefetch:
	default:
	}
}

func (c *Consumer) queueClosed() {
	select {
	case <-c.stop:
	default:
		c.observer.ConsumerError(c.cfg, errors.WithMessagef(queue.ErrQueueClosed, "queue '%s'", c.cfg.Queue))
	}
}

// Close
// Stops the workers and waits until every received delivery is handled
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		if c.cfg.Closer != nil {
			c.cfg.Closer.Close()
		}
	})
	c.workersWg.Wait()
	c.deliveryWg.Wait()
	if c.retrier != nil {
		err := c.retrier.Close()
		if err != nil {
			return errors.WithMessage(err, "close retrier")
		}
	}
	return nil
}

type donner struct {
	c *Consumer
}

func (d donner) Done() {
	d.c.release()
	d.c.deliveryWg.Done()
}
