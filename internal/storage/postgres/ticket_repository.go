package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/platform/internal/domain"
)

type TicketRepository struct {
	db
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{db: db{pool: pool}}
}

func (r *TicketRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetEventForUpdate locks the event row until the surrounding transaction
// ends, serialising admissions to the same event.
func (r *TicketRepository) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	e, err := scanEvent(r.queryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID))
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event for update: %w", err)
	}
	return e, nil
}

// InsertTicket reports a taken code as domain.ErrTicketCodeConflict without
// aborting the transaction, so the caller can retry with another code.
func (r *TicketRepository) InsertTicket(ctx context.Context, ticket domain.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, event_id, buyer_sub, code, purchased_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT ON CONSTRAINT tickets_code_key DO NOTHING`

	tag, err := r.exec(ctx, stmt, ticket.ID, ticket.EventID, ticket.BuyerSub, ticket.Code, ticket.PurchasedAt)
	if err != nil {
		if isInvalidUUID(err) || isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		if isUniqueViolation(err) {
			return domain.ErrTicketCodeConflict
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketCodeConflict
	}
	return nil
}

func (r *TicketRepository) IncrementSold(ctx context.Context, eventID string) error {
	const stmt = `
UPDATE events SET tickets_sold = tickets_sold + 1
WHERE id = $1 AND tickets_sold < total_tickets`

	tag, err := r.exec(ctx, stmt, eventID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("increment sold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSoldOut
	}
	return nil
}

// ListTicketsByBuyer returns the buyer's tickets with their events, newest
// purchase first.
func (r *TicketRepository) ListTicketsByBuyer(ctx context.Context, buyerSub string) ([]domain.Ticket, error) {
	const query = `
SELECT t.id, t.event_id, t.buyer_sub, t.code, t.purchased_at, t.used_at, t.used_by,
	e.id, e.name, e.description, e.location, e.starts_at, e.total_tickets, e.tickets_sold, e.created_by, e.created_at
FROM tickets t
JOIN events e ON e.id = t.event_id
WHERE t.buyer_sub = $1
ORDER BY t.purchased_at DESC, t.code ASC`

	rows, err := r.query(ctx, query, buyerSub)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		var (
			t      domain.Ticket
			e      domain.Event
			usedBy *string
		)
		if err := rows.Scan(
			&t.ID, &t.EventID, &t.BuyerSub, &t.Code, &t.PurchasedAt, &t.UsedAt, &usedBy,
			&e.ID, &e.Name, &e.Description, &e.Location, &e.StartsAt, &e.TotalTickets, &e.TicketsSold, &e.CreatedBy, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		if usedBy != nil {
			t.UsedBy = *usedBy
		}
		t.Event = &e
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

func (r *TicketRepository) GetTicketByCodeForUpdate(ctx context.Context, code string) (domain.Ticket, error) {
	const query = `
SELECT id, event_id, buyer_sub, code, purchased_at, used_at, used_by
FROM tickets
WHERE code = $1
FOR UPDATE`

	var (
		t      domain.Ticket
		usedBy *string
	)
	err := r.queryRow(ctx, query, code).
		Scan(&t.ID, &t.EventID, &t.BuyerSub, &t.Code, &t.PurchasedAt, &t.UsedAt, &usedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket by code: %w", err)
	}
	if usedBy != nil {
		t.UsedBy = *usedBy
	}
	return t, nil
}

// MarkTicketUsed fails with domain.ErrAlreadyUsed when another scan got
// there first.
func (r *TicketRepository) MarkTicketUsed(ctx context.Context, ticketID string, usedAt time.Time, usedBy string) error {
	const stmt = `UPDATE tickets SET used_at = $2, used_by = $3 WHERE id = $1 AND used_at IS NULL`

	tag, err := r.exec(ctx, stmt, ticketID, usedAt, usedBy)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrTicketNotFound
		}
		return fmt.Errorf("mark ticket used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyUsed
	}
	return nil
}
