package messaging

import (
	"context"
	"fmt"
	"io"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventflow/platform/internal/domain"
)

// Publisher sends sales to the queue. The broker connection is opened on
// first use and reopened after a failed publish.
type Publisher struct {
	url    string
	queue  string
	dial   dialFunc
	logger *log.Logger

	// sem guards ch and closer; it is a channel so waiting publishers can
	// give up when their context ends.
	sem    chan struct{}
	ch     channel
	closer io.Closer
}

type PublisherOption func(*Publisher)

func WithPublisherLogger(logger *log.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPublisherQueue overrides DefaultQueue.
func WithPublisherQueue(queue string) PublisherOption {
	return func(p *Publisher) {
		if queue != "" {
			p.queue = queue
		}
	}
}

func NewPublisher(url string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		url:    url,
		queue:  DefaultQueue,
		dial:   dialAMQP,
		logger: log.Default(),
		sem:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishSale sends one transient message and returns once the broker
// accepted the frame; no confirmation is awaited. Waiting for another
// publish, dialing and sending all stop at ctx's deadline.
func (p *Publisher) PublishSale(ctx context.Context, sale domain.Sale) error {
	body, err := EncodeSale(sale)
	if err != nil {
		return fmt.Errorf("encode sale: %w", err)
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("publish sale: %w", ctx.Err())
	}
	defer func() { <-p.sem }()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish sale: %w", err)
	}
	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    sale.CreatedAt,
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish sale: %w", err)
	}
	return nil
}

func (p *Publisher) channel(ctx context.Context) (channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	ch, closer, err := dialContext(ctx, p.dial, p.url)
	if err != nil {
		return nil, err
	}
	if err := declareQueue(ch, p.queue); err != nil {
		_ = closer.Close()
		return nil, err
	}
	p.logger.Printf("INFO: publisher connected queue=%s", p.queue)
	p.ch, p.closer = ch, closer
	return ch, nil
}

func (p *Publisher) reset() {
	if p.closer != nil {
		_ = p.closer.Close()
	}
	p.ch, p.closer = nil, nil
}

func (p *Publisher) Close() error {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()
	p.reset()
	return nil
}
