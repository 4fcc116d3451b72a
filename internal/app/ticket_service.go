package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/eventflow/platform/internal/clock"
	"github.com/eventflow/platform/internal/domain"
	"github.com/eventflow/platform/internal/metrics"
)

type TicketRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error)
	InsertTicket(ctx context.Context, ticket domain.Ticket) error
	IncrementSold(ctx context.Context, eventID string) error
	ListTicketsByBuyer(ctx context.Context, buyerSub string) ([]domain.Ticket, error)
	GetTicketByCodeForUpdate(ctx context.Context, code string) (domain.Ticket, error)
	MarkTicketUsed(ctx context.Context, ticketID string, usedAt time.Time, usedBy string) error
}

// SalePublisher hands a completed sale to the message channel.
type SalePublisher interface {
	PublishSale(ctx context.Context, sale domain.Sale) error
}

const (
	maxCodeAttempts       = 5
	defaultPublishTimeout = 5 * time.Second
)

type TicketService struct {
	repo           TicketRepository
	publisher      SalePublisher
	clock          clock.Clock
	guards         []AdmissionGuard
	codes          CodeGenerator
	logger         *log.Logger
	metrics        *metrics.Metrics
	publishTimeout time.Duration

	publishing sync.WaitGroup
}

type TicketServiceOption func(*TicketService)

// WithAdmissionGuards sets the checks run before each purchase.
func WithAdmissionGuards(guards ...AdmissionGuard) TicketServiceOption {
	return func(s *TicketService) {
		s.guards = append(s.guards, guards...)
	}
}

// WithCodeGenerator overrides the ticket code source.
func WithCodeGenerator(gen CodeGenerator) TicketServiceOption {
	return func(s *TicketService) {
		if gen != nil {
			s.codes = gen
		}
	}
}

func WithTicketLogger(logger *log.Logger) TicketServiceOption {
	return func(s *TicketService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTicketMetrics(m *metrics.Metrics) TicketServiceOption {
	return func(s *TicketService) {
		s.metrics = m
	}
}

// WithPublishTimeout bounds each best-effort sale publish.
func WithPublishTimeout(d time.Duration) TicketServiceOption {
	return func(s *TicketService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func NewTicketService(repo TicketRepository, publisher SalePublisher, clk clock.Clock, opts ...TicketServiceOption) *TicketService {
	svc := &TicketService{
		repo:           repo,
		publisher:      publisher,
		clock:          clk,
		codes:          newTicketCode,
		logger:         log.Default(),
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BuyTicketInput struct {
	EventID  string
	BuyerSub string
}

// Buy admits buyer to the event. Guards run first, then the capacity check,
// ticket insert and sold counter increment commit as one transaction. The
// sale is published after commit; publish failures are logged and do not
// affect the result.
func (s *TicketService) Buy(ctx context.Context, in BuyTicketInput) (domain.Ticket, error) {
	if in.BuyerSub == "" {
		return domain.Ticket{}, domain.ErrBuyerRequired
	}

	for _, guard := range s.guards {
		if err := guard(ctx, in.BuyerSub); err != nil {
			s.metrics.Admission(admissionResult(err))
			return domain.Ticket{}, err
		}
	}

	eventID, err := parseID(in.EventID)
	if err != nil {
		s.metrics.Admission(metrics.ResultNotFound)
		return domain.Ticket{}, domain.ErrEventNotFound
	}

	now := s.clock.Now()
	var ticket domain.Ticket

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetEventForUpdate(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.SoldOut() {
			return domain.ErrSoldOut
		}

		issued, err := s.insertWithFreshCode(txCtx, domain.Ticket{
			ID:          newID(),
			EventID:     event.ID,
			BuyerSub:    in.BuyerSub,
			PurchasedAt: now,
		})
		if err != nil {
			return err
		}
		if err := s.repo.IncrementSold(txCtx, event.ID); err != nil {
			return err
		}

		event.TicketsSold++
		issued.Event = &event
		ticket = issued
		return nil
	})
	if err != nil {
		s.metrics.Admission(admissionResult(err))
		return domain.Ticket{}, err
	}
	s.metrics.Admission(metrics.ResultAdmitted)

	s.publishSale(ctx, domain.Sale{
		EventID:      ticket.EventID,
		OrganizerSub: ticket.Event.CreatedBy,
		BuyerSub:     ticket.BuyerSub,
		Code:         ticket.Code,
		CreatedAt:    ticket.PurchasedAt,
	})
	return ticket, nil
}

func (s *TicketService) insertWithFreshCode(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes()
		if err != nil {
			return domain.Ticket{}, fmt.Errorf("generate ticket code: %w", err)
		}
		ticket.Code = code

		err = s.repo.InsertTicket(ctx, ticket)
		if errors.Is(err, domain.ErrTicketCodeConflict) {
			s.logger.Printf("WARN: ticket code collision event_id=%s attempt=%d", ticket.EventID, attempt+1)
			continue
		}
		if err != nil {
			return domain.Ticket{}, err
		}
		return ticket, nil
	}
	return domain.Ticket{}, fmt.Errorf("issue ticket code after %d attempts: %w", maxCodeAttempts, domain.ErrTicketCodeConflict)
}

// publishSale is fire-and-forget: a sale whose publish fails is lost to
// the notification service.
func (s *TicketService) publishSale(ctx context.Context, sale domain.Sale) {
	if s.publisher == nil {
		return
	}
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
		defer cancel()

		if err := s.publisher.PublishSale(pubCtx, sale); err != nil {
			s.metrics.PublishFailed()
			s.logger.Printf("WARN: publish sale failed event_id=%s code=%s error=%v", sale.EventID, sale.Code, err)
		}
	}()
}

// Wait blocks until in-flight sale publishes have finished.
func (s *TicketService) Wait() {
	s.publishing.Wait()
}

func (s *TicketService) ListMine(ctx context.Context, buyerSub string) ([]domain.Ticket, error) {
	if buyerSub == "" {
		return nil, domain.ErrBuyerRequired
	}
	return s.repo.ListTicketsByBuyer(ctx, buyerSub)
}

type ScanTicketInput struct {
	Code         string
	ValidatorSub string
}

// Scan marks the ticket with the given code as used. Only the first scan of
// a ticket succeeds; later scans get *domain.AlreadyUsedError describing
// the first one.
func (s *TicketService) Scan(ctx context.Context, in ScanTicketInput) (domain.Ticket, error) {
	code := normalizeCode(in.Code)
	if code == "" {
		return domain.Ticket{}, domain.ErrCodeRequired
	}

	now := s.clock.Now()
	var result domain.Ticket

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.repo.GetTicketByCodeForUpdate(txCtx, code)
		if err != nil {
			return err
		}
		if ticket.Used() {
			return &domain.AlreadyUsedError{Ticket: ticket}
		}
		if err := s.repo.MarkTicketUsed(txCtx, ticket.ID, now, in.ValidatorSub); err != nil {
			return err
		}
		usedAt := now
		ticket.UsedAt = &usedAt
		ticket.UsedBy = in.ValidatorSub
		result = ticket
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyUsed):
			s.metrics.Scan(metrics.ResultAlreadyUsed)
		case errors.Is(err, domain.ErrTicketNotFound):
			s.metrics.Scan(metrics.ResultNotFound)
		default:
			s.metrics.Scan(metrics.ResultError)
		}
		return domain.Ticket{}, err
	}
	s.metrics.Scan(metrics.ResultValid)
	return result, nil
}

func admissionResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrBannedBuyer):
		return metrics.ResultBanned
	case errors.Is(err, domain.ErrRateLimited):
		return metrics.ResultRateLimited
	case errors.Is(err, domain.ErrEventNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, domain.ErrSoldOut):
		return metrics.ResultSoldOut
	default:
		return metrics.ResultError
	}
}
