package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/eventflow/platform/internal/app"
	"github.com/eventflow/platform/internal/domain"
)

const maxBodyBytes = 1 << 20

// EventService is the minimal interface needed for event endpoints.
type EventService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
}

type eventResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Location         string    `json:"location"`
	StartsAt         time.Time `json:"starts_at"`
	TotalTickets     int       `json:"total_tickets"`
	TicketsSold      int       `json:"tickets_sold"`
	RemainingTickets int       `json:"remaining_tickets"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
}

func newEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:               e.ID,
		Name:             e.Name,
		Description:      e.Description,
		Location:         e.Location,
		StartsAt:         e.StartsAt,
		TotalTickets:     e.TotalTickets,
		TicketsSold:      e.TicketsSold,
		RemainingTickets: e.RemainingTickets(),
		CreatedBy:        e.CreatedBy,
		CreatedAt:        e.CreatedAt,
	}
}

// HandleListEvents returns every event, soonest first.
func HandleListEvents(svc EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.ListEvents(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]eventResponse, 0, len(events))
		for _, event := range events {
			resp = append(resp, newEventResponse(event))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type createEventRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	StartsAt     string `json:"starts_at"`
	TotalTickets int    `json:"total_tickets"`
}

// HandleCreateEvent creates an event owned by the caller.
func HandleCreateEvent(svc EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createEventRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		var startsAt *time.Time
		if req.StartsAt != "" {
			parsed, err := parseStartsAt(req.StartsAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "starts_at must be ISO 8601 (e.g. 2025-12-31T18:00:00)")
				return
			}
			startsAt = &parsed
		}

		event, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
			Name:         req.Name,
			Description:  req.Description,
			Location:     req.Location,
			StartsAt:     startsAt,
			TotalTickets: req.TotalTickets,
			CreatedBy:    identity(r).Subject,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newEventResponse(event))
	}
}

func HandleGetEvent(svc EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := svc.GetEvent(r.Context(), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newEventResponse(event))
	}
}

var startsAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// parseStartsAt accepts RFC 3339 timestamps and zone-less local
// timestamps, which are read as UTC.
func parseStartsAt(value string) (time.Time, error) {
	var err error
	for _, layout := range startsAtLayouts {
		var t time.Time
		if t, err = time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
