package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/store"
)

// Store looks up sellable catalog items.
type Store interface {
	// FindAvailableItem returns the item for sku when it has stock and both its
	// supplier and product are available. Missing items report false, not an error.
	FindAvailableItem(ctx context.Context, sku string) (Item, bool, error)
}

// PGStore reads catalog items from Postgres.
type PGStore struct {
	DB store.DB
}

// NewPGStore constructs a Postgres-backed catalog store.
func NewPGStore(db store.DB) *PGStore {
	return &PGStore{DB: db}
}

const selectItem = `SELECT pi.id, pi.sku, pi.product_id, pi.supplier_id, pi.name, pi.list_price::text, pi.currency,
       pi.stock, pi.limit_per_order, s.is_available, p.is_available
FROM product_items pi
JOIN products p ON p.id = pi.product_id
JOIN suppliers s ON s.id = pi.supplier_id`

// FindAvailableItem implements Store.
func (s *PGStore) FindAvailableItem(ctx context.Context, sku string) (Item, bool, error) {
	if s == nil || s.DB == nil {
		return Item{}, false, store.ErrUnavailable
	}
	row := s.DB.QueryRow(ctx, selectItem+`
WHERE pi.sku = $1 AND pi.stock > 0 AND s.is_available AND p.is_available`, sku)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, fmt.Errorf("find item %s: %w", sku, err)
	}
	return item, true, nil
}

// Insert persists a new item built by NewItem and returns it with its ID.
func (s *PGStore) Insert(ctx context.Context, item Item) (Item, error) {
	if s == nil || s.DB == nil {
		return Item{}, store.ErrUnavailable
	}
	err := s.DB.QueryRow(ctx, `INSERT INTO product_items (product_id, supplier_id, sku, name, list_price, currency, stock, limit_per_order)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)
ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name
RETURNING id`, item.ProductID, item.SupplierID, item.SKU, item.Name, item.ListPrice.Amount().String(),
		item.ListPrice.Currency(), item.Stock, item.LimitPerOrder).Scan(&item.ID)
	if err != nil {
		return Item{}, fmt.Errorf("insert item %s: %w", item.SKU, err)
	}
	return item, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item     Item
		price    string
		currency string
	)
	if err := row.Scan(&item.ID, &item.SKU, &item.ProductID, &item.SupplierID, &item.Name, &price, &currency,
		&item.Stock, &item.LimitPerOrder, &item.SupplierAvailable, &item.ProductAvailable); err != nil {
		return Item{}, err
	}
	amount, err := store.Decimal(price)
	if err != nil {
		return Item{}, err
	}
	item.ListPrice = money.New(amount, currency)
	return item, nil
}
