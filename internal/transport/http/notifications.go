package http

import (
	"context"
	"net/http"
	"time"

	"github.com/eventflow/platform/internal/app"
	"github.com/eventflow/platform/internal/domain"
)

type NotificationLister interface {
	List(ctx context.Context, in app.ListNotificationsInput) ([]domain.Notification, error)
}

type notificationResponse struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	OrganizerSub string    `json:"organizer_sub"`
	BuyerSub     string    `json:"buyer_sub"`
	Code         string    `json:"code"`
	CreatedAt    time.Time `json:"created_at"`
}

// HandleListNotifications lists sales for the caller's events, or for all
// events when the caller is an admin.
func HandleListNotifications(svc NotificationLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		items, err := svc.List(r.Context(), app.ListNotificationsInput{
			OrganizerSub: id.Subject,
			All:          id.HasRole(domain.RoleAdmin),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]notificationResponse, 0, len(items))
		for _, n := range items {
			resp = append(resp, notificationResponse(n))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
