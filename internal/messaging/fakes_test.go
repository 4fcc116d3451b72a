package messaging

import (
	"context"
	"errors"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eventflow/platform/internal/domain"
)

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	published  []amqp.Publishing
	publishErr error
	deliveries chan amqp.Delivery
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 8)}
}

func (c *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Consume(_, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// fakeDialer hands out the queued channels in order, then fails.
type fakeDialer struct {
	mu       sync.Mutex
	channels []*fakeChannel
	dials    int
	closes   int
}

func (d *fakeDialer) dial(context.Context, string) (channel, io.Closer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.channels) == 0 {
		return nil, nil, errors.New("connection refused")
	}
	ch := d.channels[0]
	d.channels = d.channels[1:]
	return ch, closerFunc(func() error {
		d.mu.Lock()
		d.closes++
		d.mu.Unlock()
		return ch.Close()
	}), nil
}

// blockingDialer hangs in dial until release is closed, ignoring the
// context like a connect to an unresponsive host.
type blockingDialer struct {
	entered chan struct{}
	release chan struct{}
	ch      *fakeChannel
}

func newBlockingDialer() *blockingDialer {
	return &blockingDialer{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
		ch:      newFakeChannel(),
	}
}

func (d *blockingDialer) dial(context.Context, string) (channel, io.Closer, error) {
	d.entered <- struct{}{}
	<-d.release
	return d.ch, d.ch, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type fakeAcknowledger struct {
	mu   sync.Mutex
	acks []uint64
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(uint64, bool, bool) error { return nil }
func (a *fakeAcknowledger) Reject(uint64, bool) error     { return nil }

func (a *fakeAcknowledger) acked() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uint64(nil), a.acks...)
}

// cancellingRecorder cancels the consumer's context from inside Record and
// stores the sale only if the context it was handed is still live.
type cancellingRecorder struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	stored []string
}

func (r *cancellingRecorder) Record(ctx context.Context, sale domain.Sale) (domain.Notification, error) {
	r.cancel()
	if err := ctx.Err(); err != nil {
		return domain.Notification{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, sale.Code)
	return domain.Notification{Code: sale.Code}, nil
}

func (r *cancellingRecorder) codes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.stored...)
}

type recordingRecorder struct {
	sales chan domain.Sale
	err   error
}

func (r *recordingRecorder) Record(_ context.Context, sale domain.Sale) (domain.Notification, error) {
	if r.err != nil {
		return domain.Notification{}, r.err
	}
	r.sales <- sale
	return domain.Notification{EventID: sale.EventID, Code: sale.Code}, nil
}
