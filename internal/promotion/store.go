package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-storefront/internal/store"
)

// Store exposes the promotion lookups the resolver needs. Applicability always
// comes from recorded promotion/item links; nothing is inferred.
type Store interface {
	// FindCouponByCode returns the active coupon with exactly this code.
	FindCouponByCode(ctx context.Context, code string) (Promotion, bool, error)
	// ListDealsForItem returns deal promotions linked to the item, any state.
	ListDealsForItem(ctx context.Context, itemID int64) ([]Promotion, error)
	// IsLinked reports whether a link exists between the promotion and the item.
	IsLinked(ctx context.Context, promotionID, itemID int64) (bool, error)
}

// PGStore implements Store on Postgres.
type PGStore struct {
	DB store.DB
}

// NewPGStore constructs a Postgres-backed promotion store.
func NewPGStore(db store.DB) *PGStore {
	return &PGStore{DB: db}
}

const selectPromotion = `SELECT p.id, COALESCE(p.code, ''), p.title, p.summary, p.kind, p.discount_percentage::text,
       p.starts_at, p.ends_at, p.usage_cap, p.used_count, p.is_active, p.is_unlimited_use
FROM promotions p`

// FindCouponByCode implements Store.
func (s *PGStore) FindCouponByCode(ctx context.Context, code string) (Promotion, bool, error) {
	if s == nil || s.DB == nil {
		return Promotion{}, false, store.ErrUnavailable
	}
	row := s.DB.QueryRow(ctx, selectPromotion+` WHERE p.code = $1 AND p.kind = 'coupon' AND p.is_active`, code)
	p, err := scanPromotion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Promotion{}, false, nil
	}
	if err != nil {
		return Promotion{}, false, fmt.Errorf("find coupon: %w", err)
	}
	return p, true, nil
}

// FindByID fetches a promotion regardless of kind or state.
func (s *PGStore) FindByID(ctx context.Context, id int64) (Promotion, bool, error) {
	if s == nil || s.DB == nil {
		return Promotion{}, false, store.ErrUnavailable
	}
	p, err := scanPromotion(s.DB.QueryRow(ctx, selectPromotion+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Promotion{}, false, nil
	}
	if err != nil {
		return Promotion{}, false, fmt.Errorf("find promotion %d: %w", id, err)
	}
	return p, true, nil
}

// ListDealsForItem implements Store. Rows come back in ascending ID order.
func (s *PGStore) ListDealsForItem(ctx context.Context, itemID int64) ([]Promotion, error) {
	if s == nil || s.DB == nil {
		return nil, store.ErrUnavailable
	}
	rows, err := s.DB.Query(ctx, selectPromotion+`
JOIN promotion_items pi ON pi.promotion_id = p.id
WHERE pi.product_item_id = $1 AND p.kind = 'deal'
ORDER BY p.id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()
	var out []Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// IsLinked implements Store.
func (s *PGStore) IsLinked(ctx context.Context, promotionID, itemID int64) (bool, error) {
	if s == nil || s.DB == nil {
		return false, store.ErrUnavailable
	}
	var linked bool
	err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM promotion_items WHERE promotion_id = $1 AND product_item_id = $2)`,
		promotionID, itemID).Scan(&linked)
	if err != nil {
		return false, fmt.Errorf("promotion link: %w", err)
	}
	return linked, nil
}

// ListLinksForPromotion returns the IDs of all items linked to the promotion.
func (s *PGStore) ListLinksForPromotion(ctx context.Context, promotionID int64) ([]int64, error) {
	if s == nil || s.DB == nil {
		return nil, store.ErrUnavailable
	}
	rows, err := s.DB.Query(ctx, `SELECT product_item_id FROM promotion_items WHERE promotion_id = $1 ORDER BY product_item_id`, promotionID)
	if err != nil {
		return nil, fmt.Errorf("list promotion links: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// Insert creates a promotion and returns its ID.
func (s *PGStore) Insert(ctx context.Context, p Promotion) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, store.ErrUnavailable
	}
	var code any
	if p.Code != "" {
		code = p.Code
	}
	var id int64
	err := s.DB.QueryRow(ctx, `INSERT INTO promotions (code, title, summary, kind, discount_percentage, starts_at, ends_at,
    usage_cap, used_count, is_active, is_unlimited_use)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11)
RETURNING id`, code, p.Title, p.Summary, string(p.Kind), p.DiscountPercentage.String(), p.StartsAt, p.EndsAt,
		p.UsageCap, p.UsedCount, p.IsActive, p.IsUnlimitedUse).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert promotion: %w", err)
	}
	return id, nil
}

// Link records that the promotion applies to the given items.
func (s *PGStore) Link(ctx context.Context, promotionID int64, itemIDs ...int64) error {
	if s == nil || s.DB == nil {
		return store.ErrUnavailable
	}
	for _, itemID := range itemIDs {
		if _, err := s.DB.Exec(ctx, `INSERT INTO promotion_items (promotion_id, product_item_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`, promotionID, itemID); err != nil {
			return fmt.Errorf("link promotion %d to item %d: %w", promotionID, itemID, err)
		}
	}
	return nil
}

func scanPromotion(row pgx.Row) (Promotion, error) {
	var (
		p        Promotion
		kind     string
		pct      string
		usageCap *int32
		startsAt time.Time
		endsAt   time.Time
	)
	if err := row.Scan(&p.ID, &p.Code, &p.Title, &p.Summary, &kind, &pct, &startsAt, &endsAt,
		&usageCap, &p.UsedCount, &p.IsActive, &p.IsUnlimitedUse); err != nil {
		return Promotion{}, err
	}
	d, err := store.Decimal(pct)
	if err != nil {
		return Promotion{}, err
	}
	p.Kind = Kind(kind)
	p.DiscountPercentage = d
	p.StartsAt = startsAt
	p.EndsAt = endsAt
	p.UsageCap = usageCap
	return p, nil
}
