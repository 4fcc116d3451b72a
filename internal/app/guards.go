package app

import (
	"context"
	"fmt"

	"github.com/eventflow/platform/internal/domain"
)

// AdmissionGuard rejects a buyer before any inventory is touched. Guards
// run in the order they are configured and the first failure wins.
type AdmissionGuard func(ctx context.Context, buyerSub string) error

// BanChecker reports whether a buyer is on the ban registry.
type BanChecker interface {
	IsBanned(ctx context.Context, buyerSub string) (bool, error)
}

// RateLimiter records an attempt for key or fails with
// *domain.RateLimitedError.
type RateLimiter interface {
	Allow(ctx context.Context, key string) error
}

// BanGuard fails with domain.ErrBannedBuyer for banned identities.
func BanGuard(bans BanChecker) AdmissionGuard {
	return func(ctx context.Context, buyerSub string) error {
		banned, err := bans.IsBanned(ctx, buyerSub)
		if err != nil {
			return fmt.Errorf("check ban: %w", err)
		}
		if banned {
			return domain.ErrBannedBuyer
		}
		return nil
	}
}

// RateLimitGuard charges one attempt per buyer identity.
func RateLimitGuard(limiter RateLimiter) AdmissionGuard {
	return func(ctx context.Context, buyerSub string) error {
		return limiter.Allow(ctx, buyerSub)
	}
}
