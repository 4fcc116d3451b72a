package messaging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventflow/platform/internal/domain"
	"github.com/eventflow/platform/internal/metrics"
	"github.com/eventflow/platform/internal/testutil"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func ingestedCount(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "notifications_ingested_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func delivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: []byte(body)}
}

func TestIngester_HandleDelivery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		recordErr error
		stored    bool
		result    string
	}{
		{
			name:   "valid sale stored",
			body:   `{"event_id":"e-1","organizer_sub":"org","buyer_sub":"b","code":"C0DE0001"}`,
			stored: true,
			result: metrics.ResultStored,
		},
		{
			name:   "malformed body dropped",
			body:   `not json`,
			result: metrics.ResultDropped,
		},
		{
			name:      "record failure dropped",
			body:      `{"event_id":"e-1","buyer_sub":"b","code":"C0DE0001"}`,
			recordErr: errors.New("db down"),
			result:    metrics.ResultDropped,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			rec := &recordingRecorder{sales: make(chan domain.Sale, 1), err: tc.recordErr}
			logs := &lockedBuffer{}
			in := NewIngester("amqp://test", rec,
				WithIngesterLogger(log.New(logs, "", 0)),
				WithIngesterMetrics(m),
			)
			ack := &fakeAcknowledger{}

			in.handleDelivery(context.Background(), delivery(ack, 7, tc.body))

			if got := ack.acked(); len(got) != 1 || got[0] != 7 {
				t.Fatalf("expected delivery 7 acked once, got %v", got)
			}
			if tc.stored {
				sale := testutil.RequireReceive(t, rec.sales, time.Second, "sale recorded")
				if sale.Code != "C0DE0001" {
					t.Fatalf("unexpected sale %+v", sale)
				}
			} else {
				testutil.RequireNoReceive(t, rec.sales, 10*time.Millisecond, "dropped delivery recorded")
				if !strings.Contains(logs.String(), "WARN: dropping") {
					t.Fatalf("expected drop to be logged, got %q", logs.String())
				}
			}
			if v := ingestedCount(t, reg, tc.result); v != 1 {
				t.Fatalf("expected %s=1, got %v", tc.result, v)
			}
		})
	}
}

func TestIngester_ReconnectsAfterLoss(t *testing.T) {
	t.Parallel()

	first := newFakeChannel()
	second := newFakeChannel()
	d := &fakeDialer{channels: []*fakeChannel{first, second}}
	rec := &recordingRecorder{sales: make(chan domain.Sale, 4)}
	in := NewIngester("amqp://test", rec,
		WithIngesterLogger(log.New(io.Discard, "", 0)),
		WithRetryDelay(10*time.Millisecond),
	)
	in.dial = d.dial

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	ack := &fakeAcknowledger{}
	first.deliveries <- delivery(ack, 1, `{"event_id":"e-1","buyer_sub":"b","code":"AAAA0001"}`)
	testutil.RequireReceive(t, rec.sales, time.Second, "first sale")

	close(first.deliveries)

	second.deliveries <- delivery(ack, 2, `{"event_id":"e-1","buyer_sub":"b","code":"AAAA0002"}`)
	sale := testutil.RequireReceive(t, rec.sales, time.Second, "sale after reconnect")
	if sale.Code != "AAAA0002" {
		t.Fatalf("unexpected sale %+v", sale)
	}
	if d.dialCount() != 2 {
		t.Fatalf("expected 2 dials, got %d", d.dialCount())
	}

	cancel()
	if err := testutil.RequireReceive(t, done, time.Second, "ingester stopped"); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
	if len(second.declared) != 1 || second.declared[0] != DefaultQueue {
		t.Fatalf("expected queue declared on reconnect, got %v", second.declared)
	}
}

func TestIngester_RetriesWhileBrokerDown(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	in := NewIngester("amqp://test", &recordingRecorder{},
		WithIngesterLogger(log.New(io.Discard, "", 0)),
		WithRetryDelay(5*time.Millisecond),
	)
	in.dial = d.dial

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := in.Run(ctx); err != nil {
		t.Fatalf("expected nil on cancellation, got %v", err)
	}
	if d.dialCount() < 2 {
		t.Fatalf("expected repeated dial attempts, got %d", d.dialCount())
	}
}

func TestIngester_ShutdownLeavesPendingDeliveriesUnacked(t *testing.T) {
	t.Parallel()

	ch := newFakeChannel()
	d := &fakeDialer{channels: []*fakeChannel{ch}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &cancellingRecorder{cancel: cancel}
	in := NewIngester("amqp://test", rec, WithIngesterLogger(log.New(io.Discard, "", 0)))
	in.dial = d.dial

	ack := &fakeAcknowledger{}
	ch.deliveries <- delivery(ack, 1, `{"event_id":"e-1","buyer_sub":"b","code":"AAAA0001"}`)
	ch.deliveries <- delivery(ack, 2, `{"event_id":"e-1","buyer_sub":"b","code":"AAAA0002"}`)

	if err := in.consume(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if got := rec.codes(); len(got) != 1 || got[0] != "AAAA0001" {
		t.Fatalf("expected the in-flight sale to be stored, got %v", got)
	}
	if got := ack.acked(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only delivery 1 acked, got %v", got)
	}
}
