package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/platform/internal/domain"
)

type NotificationRepository struct {
	db
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db{pool: pool}}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n domain.Notification) error {
	const stmt = `
INSERT INTO notifications (id, event_id, organizer_sub, buyer_sub, code, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, n.ID, n.EventID, n.OrganizerSub, n.BuyerSub, n.Code, n.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListNotifications returns the newest notifications first. An empty
// organizerSub lists across all organizers.
func (r *NotificationRepository) ListNotifications(ctx context.Context, organizerSub string, limit int) ([]domain.Notification, error) {
	const query = `
SELECT id, event_id, organizer_sub, buyer_sub, code, created_at
FROM notifications
WHERE $1 = '' OR organizer_sub = $1
ORDER BY created_at DESC, id ASC
LIMIT $2`

	rows, err := r.query(ctx, query, organizerSub, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.EventID, &n.OrganizerSub, &n.BuyerSub, &n.Code, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}
