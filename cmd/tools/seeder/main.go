package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/promotion"
	"github.com/noah-isme/toko-storefront/internal/store"
)

type seedItem struct {
	product string
	title   string
	attrs   []string
	price   string
	stock   int
	limit   *int
}

func main() {
	logger := obs.NewLogger("console", "info")
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, relying on environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}
	pool, err := store.OpenPool(ctx, store.PoolOptions{URL: cfg.DatabaseURL, ApplicationName: "seeder"})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	if err := seed(ctx, pool, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	logger.Info().Msg("seeding completed")
}

func seed(ctx context.Context, db store.DB, cfg *config.Config, logger zerolog.Logger) error {
	var supplierID int64
	if err := db.QueryRow(ctx, `INSERT INTO suppliers (name) VALUES ('Default Supplier') RETURNING id`).Scan(&supplierID); err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}

	two := 2
	items := []seedItem{
		{product: "tee", title: "Classic Tee", attrs: []string{"red", "m"}, price: "10.00", stock: 50, limit: &two},
		{product: "tee", title: "Classic Tee", attrs: []string{"blue", "l"}, price: "10.00", stock: 20},
		{product: "mug", title: "Stoneware Mug", price: "5.00", stock: 100},
		{product: "cap", title: "Canvas Cap", attrs: []string{"black"}, price: "14.50", stock: 0},
	}

	catalogStore := catalog.NewPGStore(db)
	products := map[string]int64{}
	var saved []catalog.Item
	for _, s := range items {
		productID, ok := products[s.product]
		if !ok {
			err := db.QueryRow(ctx, `INSERT INTO products (code, title) VALUES ($1, $2)
ON CONFLICT (code) DO UPDATE SET title = EXCLUDED.title RETURNING id`, s.product, s.title).Scan(&productID)
			if err != nil {
				return fmt.Errorf("insert product %s: %w", s.product, err)
			}
			products[s.product] = productID
		}
		price, err := money.Parse(s.price, cfg.CurrencyCode)
		if err != nil {
			return err
		}
		item, err := catalog.NewItem(catalog.NewItemParams{
			ProductID:         productID,
			ProductCode:       s.product,
			SupplierID:        supplierID,
			Name:              s.title,
			Attributes:        s.attrs,
			ListPrice:         price,
			Stock:             s.stock,
			LimitPerOrder:     s.limit,
			SupplierAvailable: true,
			ProductAvailable:  true,
		}, cfg.LimitPerOrderCap)
		if err != nil {
			return err
		}
		item, err = catalogStore.Insert(ctx, item)
		if err != nil {
			return err
		}
		logger.Info().Str("sku", item.SKU).Int64("id", item.ID).Msg("seeded item")
		saved = append(saved, item)
	}

	now := time.Now().UTC()
	promotions := promotion.NewPGStore(db)
	dealID, err := promotions.Insert(ctx, promotion.Promotion{
		Title:              "Mug week",
		Kind:               promotion.KindDeal,
		DiscountPercentage: decimal.NewFromInt(20),
		StartsAt:           now.Add(-time.Hour),
		EndsAt:             now.Add(7 * 24 * time.Hour),
		IsActive:           true,
		IsUnlimitedUse:     true,
	})
	if err != nil {
		return err
	}
	if err := promotions.Link(ctx, dealID, saved[2].ID); err != nil {
		return err
	}

	usageCap := int32(100)
	couponID, err := promotions.Insert(ctx, promotion.Promotion{
		Code:               "SAVE10",
		Title:              "Ten percent off tees",
		Kind:               promotion.KindCoupon,
		DiscountPercentage: decimal.NewFromInt(10),
		StartsAt:           now.Add(-time.Hour),
		EndsAt:             now.Add(30 * 24 * time.Hour),
		UsageCap:           &usageCap,
		IsActive:           true,
	})
	if err != nil {
		return err
	}
	if err := promotions.Link(ctx, couponID, saved[0].ID, saved[1].ID); err != nil {
		return err
	}

	if cfg.TaxTitle != "" {
		if _, err := db.Exec(ctx, `INSERT INTO taxes (title, percentage) VALUES ($1, 0)
ON CONFLICT (title) DO NOTHING`, cfg.TaxTitle); err != nil {
			return fmt.Errorf("insert tax: %w", err)
		}
	}
	fmt.Fprintln(os.Stdout, "coupon SAVE10 applies to", saved[0].SKU, "and", saved[1].SKU)
	return nil
}
