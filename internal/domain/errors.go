package domain

import (
	"errors"
	"fmt"
	"time"
)

// Authentication failures.
var (
	ErrMissingCredential = errors.New("no token provided")
	ErrInvalidCredential = errors.New("invalid token")
	ErrExpiredCredential = errors.New("token expired")
	ErrInvalidKey        = errors.New("invalid token key")
)

// Authorization failures.
var (
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrBannedBuyer             = errors.New("buyer is banned")
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrBanNotFound    = errors.New("buyer is not banned")
	ErrRoleNotFound   = errors.New("role not found")
)

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrEventNameRequired  = errors.New("event name required")
	ErrStartsAtRequired   = errors.New("starts_at required")
	ErrInvalidCapacity    = errors.New("invalid capacity")
	ErrBuyerRequired      = errors.New("buyer_sub required")
	ErrRoleRequired       = errors.New("role required")
	ErrCodeRequired       = errors.New("code required")
	ErrSubjectRequired    = errors.New("subject required")
	ErrNameRequired       = errors.New("name must not be empty")
	ErrEmailRequired      = errors.New("email must not be empty")
	ErrTicketCodeConflict = errors.New("ticket code conflict")
)

var (
	ErrSoldOut             = errors.New("no tickets available")
	ErrAlreadyUsed         = errors.New("ticket already used")
	ErrRoleAlreadyAssigned = errors.New("role already assigned")
	ErrRateLimited         = errors.New("rate limit exceeded")
)

// RateLimitedError reports the limit that was hit so clients can back off.
type RateLimitedError struct {
	Limit  int
	Window time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per %s", e.Limit, e.Window)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// AlreadyUsedError carries the usage metadata of the first successful scan.
type AlreadyUsedError struct {
	Ticket Ticket
}

func (e *AlreadyUsedError) Error() string {
	if e.Ticket.UsedAt == nil {
		return ErrAlreadyUsed.Error()
	}
	return fmt.Sprintf("ticket already used at %s", e.Ticket.UsedAt.Format(time.RFC3339))
}

func (e *AlreadyUsedError) Is(target error) bool {
	return target == ErrAlreadyUsed
}
