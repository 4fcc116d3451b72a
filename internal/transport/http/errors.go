package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/eventflow/platform/internal/auth"
	"github.com/eventflow/platform/internal/domain"
)

const (
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidStartsAt     = "invalid_starts_at"
	codeInvalidID           = "invalid_id"
	codeEventNameRequired   = "event_name_required"
	codeStartsAtRequired    = "starts_at_required"
	codeInvalidCapacity     = "invalid_capacity"
	codeBuyerRequired       = "buyer_required"
	codeRoleRequired        = "role_required"
	codeCodeRequired        = "code_required"
	codeSubjectRequired     = "subject_required"
	codeNameRequired        = "name_required"
	codeEmailRequired       = "email_required"
	codeMissingToken        = "missing_token"
	codeInvalidToken        = "invalid_token"
	codeTokenExpired        = "token_expired"
	codeInvalidTokenKey     = "invalid_token_key"
	codeIdPUnavailable      = "identity_provider_unavailable"
	codeForbidden           = "forbidden"
	codeInsufficientPerms   = "insufficient_permissions"
	codeBanned              = "buyer_banned"
	codeEventNotFound       = "event_not_found"
	codeTicketNotFound      = "ticket_not_found"
	codeUserNotFound        = "user_not_found"
	codeBanNotFound         = "ban_not_found"
	codeRoleNotFound        = "role_not_found"
	codeSoldOut             = "sold_out"
	codeAlreadyUsed         = "already_used"
	codeRoleAlreadyAssigned = "role_already_assigned"
	codeRateLimited         = "rate_limited"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error: msg,
		Code:  code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

type errorMapping struct {
	target error
	status int
	code   string
}

// errorTable is checked in order with errors.Is; the message sent to the
// client is the target's text so wrapped details never leak.
var errorTable = []errorMapping{
	{domain.ErrMissingCredential, http.StatusUnauthorized, codeMissingToken},
	{domain.ErrExpiredCredential, http.StatusUnauthorized, codeTokenExpired},
	{domain.ErrInvalidKey, http.StatusUnauthorized, codeInvalidTokenKey},
	{domain.ErrInvalidCredential, http.StatusUnauthorized, codeInvalidToken},
	{auth.ErrKeySetUnavailable, http.StatusServiceUnavailable, codeIdPUnavailable},

	{domain.ErrInsufficientPermissions, http.StatusForbidden, codeInsufficientPerms},
	{domain.ErrBannedBuyer, http.StatusForbidden, codeBanned},

	{domain.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{domain.ErrTicketNotFound, http.StatusNotFound, codeTicketNotFound},
	{domain.ErrUserNotFound, http.StatusNotFound, codeUserNotFound},
	{domain.ErrBanNotFound, http.StatusNotFound, codeBanNotFound},
	{domain.ErrRoleNotFound, http.StatusNotFound, codeRoleNotFound},

	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrEventNameRequired, http.StatusBadRequest, codeEventNameRequired},
	{domain.ErrStartsAtRequired, http.StatusBadRequest, codeStartsAtRequired},
	{domain.ErrInvalidCapacity, http.StatusBadRequest, codeInvalidCapacity},
	{domain.ErrBuyerRequired, http.StatusBadRequest, codeBuyerRequired},
	{domain.ErrRoleRequired, http.StatusBadRequest, codeRoleRequired},
	{domain.ErrCodeRequired, http.StatusBadRequest, codeCodeRequired},
	{domain.ErrSubjectRequired, http.StatusBadRequest, codeSubjectRequired},
	{domain.ErrNameRequired, http.StatusBadRequest, codeNameRequired},
	{domain.ErrEmailRequired, http.StatusBadRequest, codeEmailRequired},

	{domain.ErrSoldOut, http.StatusBadRequest, codeSoldOut},
	{domain.ErrAlreadyUsed, http.StatusBadRequest, codeAlreadyUsed},
	{domain.ErrRoleAlreadyAssigned, http.StatusBadRequest, codeRoleAlreadyAssigned},
}

type rateLimitedResponse struct {
	errorResponse
	Limit         int `json:"limit"`
	WindowSeconds int `json:"window_seconds"`
}

type alreadyUsedResponse struct {
	errorResponse
	Valid      bool       `json:"valid"`
	TicketCode string     `json:"ticket_code"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	UsedBy     string     `json:"used_by,omitempty"`
}

// writeDomainError translates err into the JSON error envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	var limited *domain.RateLimitedError
	if errors.As(err, &limited) {
		seconds := int(limited.Window / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeJSON(w, http.StatusTooManyRequests, rateLimitedResponse{
			errorResponse: errorResponse{Error: domain.ErrRateLimited.Error(), Code: codeRateLimited},
			Limit:         limited.Limit,
			WindowSeconds: seconds,
		})
		return
	}

	var used *domain.AlreadyUsedError
	if errors.As(err, &used) {
		writeJSON(w, http.StatusBadRequest, alreadyUsedResponse{
			errorResponse: errorResponse{Error: domain.ErrAlreadyUsed.Error(), Code: codeAlreadyUsed},
			TicketCode:    used.Ticket.Code,
			UsedAt:        used.Ticket.UsedAt,
			UsedBy:        used.Ticket.UsedBy,
		})
		return
	}

	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			writeError(w, m.status, m.code, m.target.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
