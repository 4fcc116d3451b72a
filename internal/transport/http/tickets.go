package http

import (
	"context"
	"net/http"
	"time"

	"github.com/eventflow/platform/internal/app"
	"github.com/eventflow/platform/internal/domain"
)

// TicketService is the minimal interface needed for ticket endpoints.
type TicketService interface {
	Buy(ctx context.Context, in app.BuyTicketInput) (domain.Ticket, error)
	ListMine(ctx context.Context, buyerSub string) ([]domain.Ticket, error)
	Scan(ctx context.Context, in app.ScanTicketInput) (domain.Ticket, error)
}

type ticketResponse struct {
	ID          string         `json:"id"`
	EventID     string         `json:"event_id"`
	BuyerSub    string         `json:"buyer_sub"`
	Code        string         `json:"code"`
	PurchasedAt time.Time      `json:"purchased_at"`
	UsedAt      *time.Time     `json:"used_at"`
	UsedBy      string         `json:"used_by,omitempty"`
	Event       *eventResponse `json:"event,omitempty"`
}

func newTicketResponse(t domain.Ticket) ticketResponse {
	resp := ticketResponse{
		ID:          t.ID,
		EventID:     t.EventID,
		BuyerSub:    t.BuyerSub,
		Code:        t.Code,
		PurchasedAt: t.PurchasedAt,
		UsedAt:      t.UsedAt,
		UsedBy:      t.UsedBy,
	}
	if t.Event != nil {
		event := newEventResponse(*t.Event)
		resp.Event = &event
	}
	return resp
}

// HandleBuyTicket admits the caller to the event in the path.
func HandleBuyTicket(svc TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticket, err := svc.Buy(r.Context(), app.BuyTicketInput{
			EventID:  r.PathValue("id"),
			BuyerSub: identity(r).Subject,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newTicketResponse(ticket))
	}
}

func HandleMyTickets(svc TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tickets, err := svc.ListMine(r.Context(), identity(r).Subject)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]ticketResponse, 0, len(tickets))
		for _, t := range tickets {
			resp = append(resp, newTicketResponse(t))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type scanRequest struct {
	Code string `json:"code"`
}

type scanResponse struct {
	Valid  bool           `json:"valid"`
	Ticket ticketResponse `json:"ticket"`
}

// HandleScanTicket redeems a ticket code at the door.
func HandleScanTicket(svc TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scanRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		ticket, err := svc.Scan(r.Context(), app.ScanTicketInput{
			Code:         req.Code,
			ValidatorSub: identity(r).Subject,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, scanResponse{Valid: true, Ticket: newTicketResponse(ticket)})
	}
}
