package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/maisonverre/storefront-api/internal/repository"
)

type productJSON struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Brand       string          `json:"brand"`
	Gender      string          `json:"gender"`
	Family      string          `json:"family"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	MRP         decimal.Decimal `json:"mrp"`
	Stock       int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedUsers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

const upsertProductSQL = `INSERT INTO products
	(id, title, slug, brand, gender, family, description, price, mrp, stock)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title, slug = EXCLUDED.slug, brand = EXCLUDED.brand,
		gender = EXCLUDED.gender, family = EXCLUDED.family,
		description = EXCLUDED.description, price = EXCLUDED.price,
		mrp = EXCLUDED.mrp, stock = EXCLUDED.stock`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		_, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Title, p.Slug, p.Brand, p.Gender, p.Family,
			p.Description, p.Price, p.MRP, p.Stock)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("title", p.Title))
	}
	return nil
}

const (
	upsertUserSQL = `INSERT INTO users (id, email, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email, name = EXCLUDED.name, role = EXCLUDED.role`

	upsertAddressSQL = `INSERT INTO addresses
		(id, user_id, label, line1, line2, city, state, pincode, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`
)

func seedUsers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo users")

	users := []struct {
		id, email, name, role string
	}{
		{"user-demo", "asha@example.com", "Asha Nair", "customer"},
		{"user-admin", "ops@maisonverre.example.com", "Store Ops", "admin"},
	}
	for _, u := range users {
		if _, err := pool.Exec(ctx, upsertUserSQL, u.id, u.email, u.name, u.role); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.id)
		}
	}

	addresses := [][]any{
		{"addr-demo-home", "user-demo", "Home", "14 Lake View Road", "Apt 3B", "Bengaluru", "Karnataka", "560034", "+919820011223"},
		{"addr-demo-office", "user-demo", "Office", "7 Residency Towers", "", "Bengaluru", "Karnataka", "560025", "+919820011223"},
	}
	for _, a := range addresses {
		if _, err := pool.Exec(ctx, upsertAddressSQL, a...); err != nil {
			return errors.Wrapf(err, "upsert address %v", a[0])
		}
	}
	return nil
}

const insertCouponSQL = `INSERT INTO coupons
	(id, code, description, type, value, minimum_order_amount, maximum_discount_amount,
	 usage_limit, user_usage_limit, valid_from, valid_until, is_active, first_time_user)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, $12)
	ON CONFLICT (code) DO NOTHING`

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding starter coupons")

	now := time.Now()
	yearOut := now.AddDate(1, 0, 0)

	coupons := []struct {
		id, code, description, typ string
		value, minAmount           decimal.Decimal
		maxDiscount                *decimal.Decimal
		usageLimit, userLimit      int
		firstTime                  bool
	}{
		{
			id: "coupon-welcome10", code: "WELCOME10",
			description: "10% off your first order", typ: "percentage",
			value: decimal.NewFromInt(10), minAmount: decimal.Zero,
			maxDiscount: ptr(decimal.NewFromInt(500)),
			usageLimit:  10000, userLimit: 1, firstTime: true,
		},
		{
			id: "coupon-save500", code: "SAVE500",
			description: "Flat ₹500 off orders above ₹2000", typ: "fixed",
			value: decimal.NewFromInt(500), minAmount: decimal.NewFromInt(2000),
			usageLimit: 5000, userLimit: 3,
		},
		{
			id: "coupon-freeship", code: "FREESHIP",
			description: "Free shipping on any order", typ: "free_shipping",
			value: decimal.Zero, minAmount: decimal.Zero,
			usageLimit: 100000, userLimit: 10,
		},
	}

	for _, c := range coupons {
		_, err := pool.Exec(ctx, insertCouponSQL,
			c.id, c.code, c.description, c.typ, c.value, c.minAmount, c.maxDiscount,
			c.usageLimit, c.userLimit, now, yearOut, c.firstTime)
		if err != nil {
			return errors.Wrapf(err, "insert coupon %s", c.code)
		}
		slog.Info("seeded coupon", slog.String("code", c.code))
	}
	return nil
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }
