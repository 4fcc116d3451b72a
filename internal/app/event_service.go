package app

import (
	"context"
	"strings"
	"time"

	"github.com/eventflow/platform/internal/clock"
	"github.com/eventflow/platform/internal/domain"
)

type EventRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
}

type EventService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewEventService(repo EventRepository, clk clock.Clock) *EventService {
	return &EventService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	Name         string
	Description  string
	Location     string
	StartsAt     *time.Time
	TotalTickets int
	CreatedBy    string
}

func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	if in.StartsAt == nil {
		return domain.Event{}, domain.ErrStartsAtRequired
	}
	if in.TotalTickets <= 0 {
		return domain.Event{}, domain.ErrInvalidCapacity
	}

	event := domain.Event{
		ID:           newID(),
		Name:         name,
		Description:  in.Description,
		Location:     in.Location,
		StartsAt:     in.StartsAt.UTC(),
		TotalTickets: in.TotalTickets,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

func (s *EventService) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	id, err := parseID(eventID)
	if err != nil {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return s.repo.GetEvent(ctx, id)
}
