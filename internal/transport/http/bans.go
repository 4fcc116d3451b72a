package http

import (
	"context"
	"net/http"
	"time"

	"github.com/eventflow/platform/internal/app"
	"github.com/eventflow/platform/internal/domain"
)

// BanService is the minimal interface needed for ban registry endpoints.
type BanService interface {
	Ban(ctx context.Context, in app.BanInput) (domain.Ban, error)
	Unban(ctx context.Context, buyerSub string) error
	ListBans(ctx context.Context) ([]domain.Ban, error)
}

type banResponse struct {
	BuyerSub  string    `json:"buyer_sub"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func HandleListBans(svc BanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bans, err := svc.ListBans(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]banResponse, 0, len(bans))
		for _, b := range bans {
			resp = append(resp, banResponse(b))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type banRequest struct {
	BuyerSub string `json:"buyer_sub"`
	Reason   string `json:"reason"`
}

func HandleCreateBan(svc BanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req banRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		ban, err := svc.Ban(r.Context(), app.BanInput{BuyerSub: req.BuyerSub, Reason: req.Reason})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, banResponse(ban))
	}
}

func HandleDeleteBan(svc BanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Unban(r.Context(), r.PathValue("sub")); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "ban removed"})
	}
}
