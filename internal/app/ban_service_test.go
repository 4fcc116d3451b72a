package app

import (
	"context"
	"testing"
	"time"

	"github.com/eventflow/platform/internal/clock"
	"github.com/eventflow/platform/internal/domain"
)

func TestBanService(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

	t.Run("ban and unban", func(t *testing.T) {
		t.Parallel()
		repo := newFakeBans()
		svc := NewBanService(repo, clock.NewFixed(now))
		ctx := context.Background()

		ban, err := svc.Ban(ctx, BanInput{BuyerSub: " scalper ", Reason: "bulk buying"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ban.BuyerSub != "scalper" || ban.Reason != "bulk buying" {
			t.Fatalf("unexpected ban: %+v", ban)
		}

		banned, err := svc.IsBanned(ctx, "scalper")
		if err != nil || !banned {
			t.Fatalf("expected scalper banned, got %v %v", banned, err)
		}

		if err := svc.Unban(ctx, "scalper"); err != nil {
			t.Fatalf("unban: %v", err)
		}
		if err := svc.Unban(ctx, "scalper"); err != domain.ErrBanNotFound {
			t.Fatalf("expected ErrBanNotFound, got %v", err)
		}
	})

	t.Run("re-ban updates reason", func(t *testing.T) {
		t.Parallel()
		repo := newFakeBans()
		svc := NewBanService(repo, clock.NewFixed(now))
		ctx := context.Background()

		if _, err := svc.Ban(ctx, BanInput{BuyerSub: "u1", Reason: "first"}); err != nil {
			t.Fatalf("ban: %v", err)
		}
		if _, err := svc.Ban(ctx, BanInput{BuyerSub: "u1", Reason: "second"}); err != nil {
			t.Fatalf("ban: %v", err)
		}
		bans, err := svc.ListBans(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(bans) != 1 || bans[0].Reason != "second" {
			t.Fatalf("expected single updated ban, got %+v", bans)
		}
	})

	t.Run("missing buyer", func(t *testing.T) {
		t.Parallel()
		svc := NewBanService(newFakeBans(), clock.NewFixed(now))
		if _, err := svc.Ban(context.Background(), BanInput{Reason: "x"}); err != domain.ErrBuyerRequired {
			t.Fatalf("expected ErrBuyerRequired, got %v", err)
		}
	})
}
