package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/shipping"
	"github.com/noah-isme/toko-storefront/internal/store"
)

// TaxRecord is a stored tax policy.
type TaxRecord struct {
	ID int64
	pricing.Tax
}

// Pool is the database handle the store needs: queries plus transactions.
type Pool interface {
	store.DB
	store.Beginner
}

// PGStore persists purchase orders in Postgres.
type PGStore struct {
	DB Pool
}

// NewPGStore constructs a Postgres-backed order store.
func NewPGStore(db Pool) *PGStore {
	return &PGStore{DB: db}
}

// Persist creates the order, reserves stock and inserts the lines in a single
// transaction. A line whose stock was taken by a concurrent order aborts the
// whole order with ErrInvalidProductItemQty; nothing is written.
func (s *PGStore) Persist(ctx context.Context, in NewOrder) (PurchaseOrder, error) {
	if s == nil || s.DB == nil {
		return PurchaseOrder{}, store.ErrUnavailable
	}
	var out PurchaseOrder
	err := store.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		profile, err := findOrCreateProfile(ctx, tx, in.Profile)
		if err != nil {
			return err
		}
		po, err := createOrder(ctx, tx, in.Code, profile, in.Currency)
		if err != nil {
			return err
		}
		for _, l := range in.Lines {
			if err := reserveStock(ctx, tx, l); err != nil {
				return err
			}
		}
		if err := bulkInsertLines(ctx, tx, po.ID, in.Lines); err != nil {
			return err
		}
		po.Lines = append([]Line(nil), in.Lines...)
		out = po
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return out, nil
}

func findOrCreateProfile(ctx context.Context, db store.DB, p Profile) (Profile, error) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	const find = `SELECT id FROM customer_profiles
WHERE first_name = $1 AND last_name = $2 AND LOWER(email) = LOWER($3) AND phone = $4`
	err := db.QueryRow(ctx, find, p.FirstName, p.LastName, p.Email, p.Phone).Scan(&p.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, fmt.Errorf("find profile: %w", err)
	}
	err = db.QueryRow(ctx, `INSERT INTO customer_profiles (first_name, last_name, email, phone)
VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING RETURNING id`, p.FirstName, p.LastName, p.Email, p.Phone).Scan(&p.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// created concurrently
		err = db.QueryRow(ctx, find, p.FirstName, p.LastName, p.Email, p.Phone).Scan(&p.ID)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func createOrder(ctx context.Context, db store.DB, code string, profile Profile, currency string) (PurchaseOrder, error) {
	po := PurchaseOrder{Code: code, Profile: profile, Status: StatusPending, Currency: currency}
	err := db.QueryRow(ctx, `INSERT INTO purchase_orders (code, profile_id, status, currency)
VALUES ($1, $2, $3, $4) RETURNING id, created_at`, code, profile.ID, string(StatusPending), currency).Scan(&po.ID, &po.CreatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return PurchaseOrder{}, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
		return PurchaseOrder{}, fmt.Errorf("create order: %w", err)
	}
	return po, nil
}

func reserveStock(ctx context.Context, db store.DB, l Line) error {
	tag, err := db.Exec(ctx, `UPDATE product_items SET stock = stock - $2 WHERE id = $1 AND stock >= $2`, l.ItemID, l.Quantity)
	if err != nil {
		return fmt.Errorf("reserve stock %s: %w", l.SKU, err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrInvalidProductItemQty.With("sku", l.SKU).With("quantity", l.Quantity)
	}
	return nil
}

func bulkInsertLines(ctx context.Context, tx pgx.Tx, orderID int64, lines []Line) error {
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{orderID, l.ItemID, l.SKU, l.Name, l.Quantity, l.PricePerUnit.Amount().String(), l.PricePerUnit.Currency()})
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"purchase_order_items"},
		[]string{"order_id", "product_item_id", "sku", "name", "quantity", "price_per_unit", "currency"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}
	return nil
}

// GetByCode loads an order and its lines.
func (s *PGStore) GetByCode(ctx context.Context, code string) (PurchaseOrder, bool, error) {
	if s == nil || s.DB == nil {
		return PurchaseOrder{}, false, store.ErrUnavailable
	}
	var (
		po             PurchaseOrder
		status         string
		shipMethod     *string
		shipAmount     *string
		shipAddress    *shipping.Address
		payMethod      *string
		billing        *shipping.Address
		detailsURL     *string
		statusReason   *string
		promotionID    *int64
		taxID          *int64
		promotionSetAt *time.Time
	)
	err := s.DB.QueryRow(ctx, `SELECT o.id, o.code, o.status, o.currency, o.promotion_id, o.tax_id,
       o.shipping_method, o.shipping_amount::text, o.shipping_address, o.payment_method, o.billing_address,
       o.details_url, o.promotion_settled_at, o.status_reason, o.created_at,
       p.id, p.first_name, p.last_name, p.email, p.phone
FROM purchase_orders o
JOIN customer_profiles p ON p.id = o.profile_id
WHERE o.code = $1`, code).Scan(&po.ID, &po.Code, &status, &po.Currency, &promotionID, &taxID,
		&shipMethod, &shipAmount, &shipAddress, &payMethod, &billing,
		&detailsURL, &promotionSetAt, &statusReason, &po.CreatedAt,
		&po.Profile.ID, &po.Profile.FirstName, &po.Profile.LastName, &po.Profile.Email, &po.Profile.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, false, nil
	}
	if err != nil {
		return PurchaseOrder{}, false, fmt.Errorf("get order %s: %w", code, err)
	}
	po.Status = Status(status)
	po.PromotionID = promotionID
	po.TaxID = taxID
	po.PromotionSettledAt = promotionSetAt
	if detailsURL != nil {
		po.DetailsURL = *detailsURL
	}
	if statusReason != nil {
		po.StatusReason = *statusReason
	}
	if shipMethod != nil && shipAmount != nil {
		amount, err := store.Decimal(*shipAmount)
		if err != nil {
			return PurchaseOrder{}, false, err
		}
		rec := &ShippingRecord{Method: *shipMethod, Amount: money.New(amount, po.Currency)}
		if shipAddress != nil {
			rec.Address = *shipAddress
		}
		po.Shipping = rec
	}
	if payMethod != nil {
		rec := &PaymentRecord{Method: *payMethod}
		if billing != nil {
			rec.Billing = *billing
		}
		po.Payment = rec
	}
	lines, err := s.lines(ctx, po.ID)
	if err != nil {
		return PurchaseOrder{}, false, err
	}
	po.Lines = lines
	return po, true, nil
}

func (s *PGStore) lines(ctx context.Context, orderID int64) ([]Line, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, product_item_id, sku, name, quantity, price_per_unit::text, currency
FROM purchase_order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()
	var out []Line
	for rows.Next() {
		var (
			l        Line
			price    string
			currency string
		)
		if err := rows.Scan(&l.ID, &l.ItemID, &l.SKU, &l.Name, &l.Quantity, &price, &currency); err != nil {
			return nil, err
		}
		amount, err := store.Decimal(price)
		if err != nil {
			return nil, err
		}
		l.PricePerUnit = money.New(amount, currency)
		out = append(out, l)
	}
	return out, rows.Err()
}

// AttachDetails records the shipping, payment, tax and promotion sub-records and
// moves the order to processing.
func (s *PGStore) AttachDetails(ctx context.Context, code string, d Details) error {
	if s == nil || s.DB == nil {
		return store.ErrUnavailable
	}
	tag, err := s.DB.Exec(ctx, `UPDATE purchase_orders SET
    shipping_method = $2, shipping_amount = $3::numeric, shipping_address = $4,
    payment_method = $5, billing_address = $6, promotion_id = $7, tax_id = $8,
    details_url = $9, status = $10, status_reason = NULL, updated_at = NOW()
WHERE code = $1`, code, d.Shipping.Method, d.Shipping.Amount.Amount().String(), d.Shipping.Address,
		d.Payment.Method, d.Payment.Billing, d.PromotionID, d.TaxID, d.DetailsURL, string(StatusProcessing))
	if err != nil {
		return fmt.Errorf("attach order details %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attach order details %s: %w", code, pgx.ErrNoRows)
	}
	return nil
}

// SettlePromotion increments the usage counter of the order's promotion once.
// It reports whether this call performed the settlement.
func (s *PGStore) SettlePromotion(ctx context.Context, code string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, store.ErrUnavailable
	}
	tag, err := s.DB.Exec(ctx, `WITH settled AS (
    UPDATE purchase_orders SET promotion_settled_at = NOW()
    WHERE code = $1 AND promotion_id IS NOT NULL AND promotion_settled_at IS NULL
    RETURNING promotion_id
)
UPDATE promotions p SET used_count = p.used_count + 1
FROM settled WHERE p.id = settled.promotion_id`, code)
	if err != nil {
		return false, fmt.Errorf("settle promotion %s: %w", code, err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetStatus updates the order status with an optional reason.
func (s *PGStore) SetStatus(ctx context.Context, code string, status Status, reason string) error {
	if s == nil || s.DB == nil {
		return store.ErrUnavailable
	}
	var r any
	if reason != "" {
		r = reason
	}
	if _, err := s.DB.Exec(ctx, `UPDATE purchase_orders SET status = $2, status_reason = $3, updated_at = NOW() WHERE code = $1`,
		code, string(status), r); err != nil {
		return fmt.Errorf("set order status %s: %w", code, err)
	}
	return nil
}

// FindTaxByTitle looks up a tax policy by title.
func (s *PGStore) FindTaxByTitle(ctx context.Context, title string) (TaxRecord, bool, error) {
	return s.findTax(ctx, `WHERE title = $1`, title)
}

// FindTaxByID looks up a tax policy by ID.
func (s *PGStore) FindTaxByID(ctx context.Context, id int64) (TaxRecord, bool, error) {
	return s.findTax(ctx, `WHERE id = $1`, id)
}

func (s *PGStore) findTax(ctx context.Context, where string, arg any) (TaxRecord, bool, error) {
	if s == nil || s.DB == nil {
		return TaxRecord{}, false, store.ErrUnavailable
	}
	var (
		rec TaxRecord
		pct string
	)
	err := s.DB.QueryRow(ctx, `SELECT id, title, percentage::text, applied_before_discount FROM taxes `+where, arg).
		Scan(&rec.ID, &rec.Title, &pct, &rec.AppliedBefore)
	if errors.Is(err, pgx.ErrNoRows) {
		return TaxRecord{}, false, nil
	}
	if err != nil {
		return TaxRecord{}, false, fmt.Errorf("find tax: %w", err)
	}
	if rec.Percentage, err = decimal.NewFromString(pct); err != nil {
		return TaxRecord{}, false, fmt.Errorf("parse tax percentage: %w", err)
	}
	return rec, true, nil
}
