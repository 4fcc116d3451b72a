package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/platform/internal/domain"
)

const eventColumns = `id, name, description, location, starts_at, total_tickets, tickets_sold, created_by, created_at`

type EventRepository struct {
	db
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db{pool: pool}}
}

func (r *EventRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, name, description, location, starts_at, total_tickets, tickets_sold, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		event.ID,
		event.Name,
		event.Description,
		event.Location,
		event.StartsAt,
		event.TotalTickets,
		event.TicketsSold,
		event.CreatedBy,
		event.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// ListEvents returns every event, soonest first.
func (r *EventRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY starts_at ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	e, err := scanEvent(r.queryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID))
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.Description,
		&e.Location,
		&e.StartsAt,
		&e.TotalTickets,
		&e.TicketsSold,
		&e.CreatedBy,
		&e.CreatedAt,
	)
	return e, err
}
