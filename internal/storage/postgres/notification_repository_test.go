package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eventflow/platform/internal/domain"
	"github.com/eventflow/platform/internal/testutil"
)

func TestNotificationRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewNotificationRepository(pool)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	base := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	eventID := uuid.NewString()
	for i := 0; i < 4; i++ {
		organizer := "org-1"
		if i%2 == 1 {
			organizer = "org-2"
		}
		n := domain.Notification{
			ID:           uuid.NewString(),
			EventID:      eventID,
			OrganizerSub: organizer,
			BuyerSub:     fmt.Sprintf("buyer-%d", i),
			Code:         fmt.Sprintf("C0DE000%d", i),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateNotification(ctx, n); err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	t.Run("organizer sees own newest first", func(t *testing.T) {
		items, err := repo.ListNotifications(ctx, "org-1", 50)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) != 2 || items[0].BuyerSub != "buyer-2" || items[1].BuyerSub != "buyer-0" {
			t.Fatalf("unexpected notifications: %+v", items)
		}
	})

	t.Run("empty organizer lists all within limit", func(t *testing.T) {
		items, err := repo.ListNotifications(ctx, "", 3)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) != 3 || items[0].BuyerSub != "buyer-3" {
			t.Fatalf("unexpected notifications: %+v", items)
		}
	})

	t.Run("malformed event id rejected", func(t *testing.T) {
		err := repo.CreateNotification(ctx, domain.Notification{
			ID:        uuid.NewString(),
			EventID:   "nope",
			BuyerSub:  "buyer",
			Code:      "ABCDEF01",
			CreatedAt: base,
		})
		if err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})
}
