package messaging

import (
	"context"
	"errors"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventflow/platform/internal/domain"
	"github.com/eventflow/platform/internal/metrics"
)

const defaultRetryDelay = 5 * time.Second

var errDeliveriesClosed = errors.New("delivery channel closed")

// SaleRecorder persists one observed sale.
type SaleRecorder interface {
	Record(ctx context.Context, sale domain.Sale) (domain.Notification, error)
}

// Ingester consumes sales and records them. Connection loss is retried after
// a fixed delay until the context passed to Run is cancelled.
type Ingester struct {
	url        string
	queue      string
	recorder   SaleRecorder
	dial       dialFunc
	logger     *log.Logger
	metrics    *metrics.Metrics
	retryDelay time.Duration
}

type IngesterOption func(*Ingester)

func WithIngesterLogger(logger *log.Logger) IngesterOption {
	return func(in *Ingester) {
		if logger != nil {
			in.logger = logger
		}
	}
}

func WithIngesterMetrics(m *metrics.Metrics) IngesterOption {
	return func(in *Ingester) {
		in.metrics = m
	}
}

func WithIngesterQueue(queue string) IngesterOption {
	return func(in *Ingester) {
		if queue != "" {
			in.queue = queue
		}
	}
}

func WithRetryDelay(d time.Duration) IngesterOption {
	return func(in *Ingester) {
		if d > 0 {
			in.retryDelay = d
		}
	}
}

func NewIngester(url string, recorder SaleRecorder, opts ...IngesterOption) *Ingester {
	in := &Ingester{
		url:        url,
		queue:      DefaultQueue,
		recorder:   recorder,
		dial:       dialAMQP,
		logger:     log.Default(),
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Run blocks until ctx is cancelled.
func (in *Ingester) Run(ctx context.Context) error {
	for {
		err := in.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		in.logger.Printf("WARN: notification consumer error=%v retry_in=%s", err, in.retryDelay)

		timer := time.NewTimer(in.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (in *Ingester) consume(ctx context.Context) error {
	ch, closer, err := dialContext(ctx, in.dial, in.url)
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := declareQueue(ch, in.queue); err != nil {
		return err
	}
	deliveries, err := ch.Consume(in.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	in.logger.Printf("INFO: listening for sales queue=%s", in.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			// Left unacked so the broker redelivers it after shutdown.
			if err := ctx.Err(); err != nil {
				return err
			}
			in.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery acknowledges d whether or not it could be stored; bad
// messages are logged and dropped. A record already under way finishes even
// if ctx is cancelled meanwhile.
func (in *Ingester) handleDelivery(ctx context.Context, d amqp.Delivery) {
	ctx = context.WithoutCancel(ctx)

	defer func() {
		if err := d.Ack(false); err != nil {
			in.logger.Printf("WARN: ack failed delivery_tag=%d error=%v", d.DeliveryTag, err)
		}
	}()

	sale, err := DecodeSale(d.Body)
	if err != nil {
		in.metrics.NotificationIngested(metrics.ResultDropped)
		in.logger.Printf("WARN: dropping sale message error=%v", err)
		return
	}
	if _, err := in.recorder.Record(ctx, sale); err != nil {
		in.metrics.NotificationIngested(metrics.ResultDropped)
		in.logger.Printf("WARN: dropping sale event_id=%s code=%s error=%v", sale.EventID, sale.Code, err)
		return
	}
	in.metrics.NotificationIngested(metrics.ResultStored)
}
