package messaging

import (
	"context"
	"fmt"
	"io"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel used by the publisher and ingester.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// defaultDialTimeout bounds a dial whose context carries no deadline.
const defaultDialTimeout = 30 * time.Second

// dialFunc opens a channel; closing the returned io.Closer tears down the
// underlying connection.
type dialFunc func(ctx context.Context, url string) (channel, io.Closer, error)

func dialAMQP(ctx context.Context, url string) (channel, io.Closer, error) {
	timeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, nil, fmt.Errorf("dial broker: %w", context.DeadlineExceeded)
		}
	}
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, conn, nil
}

type dialResult struct {
	ch     channel
	closer io.Closer
	err    error
}

// dialContext runs dial but returns as soon as ctx is done. A connection
// that completes after that is closed.
func dialContext(ctx context.Context, dial dialFunc, url string) (channel, io.Closer, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	done := make(chan dialResult, 1)
	go func() {
		ch, closer, err := dial(ctx, url)
		done <- dialResult{ch: ch, closer: closer, err: err}
	}()

	select {
	case r := <-done:
		return r.ch, r.closer, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil && r.closer != nil {
				_ = r.closer.Close()
			}
		}()
		return nil, nil, fmt.Errorf("dial broker: %w", ctx.Err())
	}
}

// declareQueue declares the non-durable sales queue shared by both sides.
func declareQueue(ch channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, false, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}
