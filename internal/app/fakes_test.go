package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eventflow/platform/internal/domain"
)

// fakeTicketRepo serialises transactions the way row locks on the event
// and ticket would.
type fakeTicketRepo struct {
	txMu sync.Mutex

	mu      sync.Mutex
	events  map[string]domain.Event
	tickets map[string]domain.Ticket // by code
}

func newFakeTicketRepo(events ...domain.Event) *fakeTicketRepo {
	r := &fakeTicketRepo{
		events:  make(map[string]domain.Event),
		tickets: make(map[string]domain.Ticket),
	}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *fakeTicketRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	eventsSnapshot := make(map[string]domain.Event, len(r.events))
	for k, v := range r.events {
		eventsSnapshot[k] = v
	}
	ticketsSnapshot := make(map[string]domain.Ticket, len(r.tickets))
	for k, v := range r.tickets {
		ticketsSnapshot[k] = v
	}
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.events = eventsSnapshot
		r.tickets = ticketsSnapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *fakeTicketRepo) GetEventForUpdate(_ context.Context, eventID string) (domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return e, nil
}

func (r *fakeTicketRepo) InsertTicket(_ context.Context, t domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[t.Code]; exists {
		return domain.ErrTicketCodeConflict
	}
	r.tickets[t.Code] = t
	return nil
}

func (r *fakeTicketRepo) IncrementSold(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	e.TicketsSold++
	r.events[eventID] = e
	return nil
}

func (r *fakeTicketRepo) ListTicketsByBuyer(_ context.Context, buyerSub string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if t.BuyerSub == buyerSub {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.Before(out[j].PurchasedAt) })
	return out, nil
}

func (r *fakeTicketRepo) GetTicketByCodeForUpdate(_ context.Context, code string) (domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[code]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return t, nil
}

func (r *fakeTicketRepo) MarkTicketUsed(_ context.Context, ticketID string, usedAt time.Time, usedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, t := range r.tickets {
		if t.ID != ticketID {
			continue
		}
		if t.UsedAt != nil {
			return domain.ErrAlreadyUsed
		}
		t.UsedAt = &usedAt
		t.UsedBy = usedBy
		r.tickets[code] = t
		return nil
	}
	return domain.ErrTicketNotFound
}

func (r *fakeTicketRepo) event(id string) domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[id]
}

func (r *fakeTicketRepo) ticketCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}

type fakeBans struct {
	mu     sync.Mutex
	banned map[string]domain.Ban
	err    error
}

func newFakeBans(subs ...string) *fakeBans {
	b := &fakeBans{banned: make(map[string]domain.Ban)}
	for _, s := range subs {
		b.banned[s] = domain.Ban{BuyerSub: s}
	}
	return b
}

func (b *fakeBans) IsBanned(_ context.Context, sub string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return false, b.err
	}
	_, ok := b.banned[sub]
	return ok, nil
}

func (b *fakeBans) UpsertBan(_ context.Context, ban domain.Ban) (domain.Ban, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.banned[ban.BuyerSub]; ok {
		ban.CreatedAt = existing.CreatedAt
	}
	b.banned[ban.BuyerSub] = ban
	return ban, nil
}

func (b *fakeBans) DeleteBan(_ context.Context, sub string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.banned[sub]; !ok {
		return domain.ErrBanNotFound
	}
	delete(b.banned, sub)
	return nil
}

func (b *fakeBans) ListBans(_ context.Context) ([]domain.Ban, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Ban, 0, len(b.banned))
	for _, ban := range b.banned {
		out = append(out, ban)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BuyerSub < out[j].BuyerSub })
	return out, nil
}

type recordingPublisher struct {
	sales chan domain.Sale
	err   error
}

func newRecordingPublisher(err error) *recordingPublisher {
	return &recordingPublisher{sales: make(chan domain.Sale, 64), err: err}
}

func (p *recordingPublisher) PublishSale(_ context.Context, sale domain.Sale) error {
	p.sales <- sale
	return p.err
}
