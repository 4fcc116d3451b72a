package app

import (
	"context"
	"strings"

	"github.com/eventflow/platform/internal/clock"
	"github.com/eventflow/platform/internal/domain"
)

type BanRepository interface {
	BanChecker
	UpsertBan(ctx context.Context, ban domain.Ban) (domain.Ban, error)
	DeleteBan(ctx context.Context, buyerSub string) error
	ListBans(ctx context.Context) ([]domain.Ban, error)
}

type BanService struct {
	repo  BanRepository
	clock clock.Clock
}

func NewBanService(repo BanRepository, clk clock.Clock) *BanService {
	return &BanService{
		repo:  repo,
		clock: clk,
	}
}

type BanInput struct {
	BuyerSub string
	Reason   string
}

// Ban adds buyer to the registry, replacing the reason if already banned.
func (s *BanService) Ban(ctx context.Context, in BanInput) (domain.Ban, error) {
	sub := strings.TrimSpace(in.BuyerSub)
	if sub == "" {
		return domain.Ban{}, domain.ErrBuyerRequired
	}
	return s.repo.UpsertBan(ctx, domain.Ban{
		BuyerSub:  sub,
		Reason:    strings.TrimSpace(in.Reason),
		CreatedAt: s.clock.Now(),
	})
}

func (s *BanService) Unban(ctx context.Context, buyerSub string) error {
	if buyerSub == "" {
		return domain.ErrBuyerRequired
	}
	return s.repo.DeleteBan(ctx, buyerSub)
}

func (s *BanService) ListBans(ctx context.Context) ([]domain.Ban, error) {
	return s.repo.ListBans(ctx)
}

func (s *BanService) IsBanned(ctx context.Context, buyerSub string) (bool, error) {
	return s.repo.IsBanned(ctx, buyerSub)
}
