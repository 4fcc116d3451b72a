package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/platform/internal/domain"
)

type BanRepository struct {
	db
}

func NewBanRepository(pool *pgxpool.Pool) *BanRepository {
	return &BanRepository{db: db{pool: pool}}
}

// UpsertBan keeps the original ban time and replaces the reason.
func (r *BanRepository) UpsertBan(ctx context.Context, ban domain.Ban) (domain.Ban, error) {
	const stmt = `
INSERT INTO bans (buyer_sub, reason, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (buyer_sub) DO UPDATE SET reason = EXCLUDED.reason
RETURNING buyer_sub, reason, created_at`

	var out domain.Ban
	if err := r.queryRow(ctx, stmt, ban.BuyerSub, ban.Reason, ban.CreatedAt).
		Scan(&out.BuyerSub, &out.Reason, &out.CreatedAt); err != nil {
		return domain.Ban{}, fmt.Errorf("upsert ban: %w", err)
	}
	return out, nil
}

func (r *BanRepository) DeleteBan(ctx context.Context, buyerSub string) error {
	tag, err := r.exec(ctx, `DELETE FROM bans WHERE buyer_sub = $1`, buyerSub)
	if err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBanNotFound
	}
	return nil
}

func (r *BanRepository) ListBans(ctx context.Context) ([]domain.Ban, error) {
	rows, err := r.query(ctx, `SELECT buyer_sub, reason, created_at FROM bans ORDER BY created_at DESC, buyer_sub ASC`)
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	defer rows.Close()

	bans := make([]domain.Ban, 0)
	for rows.Next() {
		var b domain.Ban
		if err := rows.Scan(&b.BuyerSub, &b.Reason, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		bans = append(bans, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	return bans, nil
}

func (r *BanRepository) IsBanned(ctx context.Context, buyerSub string) (bool, error) {
	var banned bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bans WHERE buyer_sub = $1)`, buyerSub).Scan(&banned); err != nil {
		return false, fmt.Errorf("check ban: %w", err)
	}
	return banned, nil
}
