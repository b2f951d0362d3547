package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maisonverre/storefront-api/internal/domain/product"
)

const (
	productColumns = `id, title, slug, brand, gender, family, description,
		price, mrp, stock, rating_avg, rating_count`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY stock ASC, title ASC`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	addStockSQL = `UPDATE products SET stock = stock + $2 WHERE id = $1
		RETURNING title, stock`

	subtractStockSQL = `UPDATE products SET stock = GREATEST(stock - $2, 0) WHERE id = $1
		RETURNING title, stock`

	setStockSQL = `UPDATE products SET stock = GREATEST($2, 0) WHERE id = $1
		RETURNING title, stock`

	getStockSQL = `SELECT stock FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products, lowest stock first (the inventory report
// consumes it in that order).
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// GetByID returns a single product, or product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns the products matching the given ids in a single query.
// Missing ids are simply absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products: %w", err)
	}
	return products, nil
}

// UpdateStock applies an administrative stock adjustment as a single
// conditional update, flooring the result at zero.
func (r *ProductRepository) UpdateStock(ctx context.Context, id string, op product.StockOp, qty int) (*product.StockChange, error) {
	var query string
	switch op {
	case product.StockAdd:
		query = addStockSQL
	case product.StockSubtract:
		query = subtractStockSQL
	case product.StockSet:
		query = setStockSQL
	default:
		return nil, errors.Errorf("unknown stock operation: %q", op)
	}

	var oldStock int
	if err := r.pool.QueryRow(ctx, getStockSQL, id).Scan(&oldStock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("reading stock for %q: %w", id, err)
	}

	change := &product.StockChange{ProductID: id, OldStock: oldStock}
	if err := r.pool.QueryRow(ctx, query, id, qty).Scan(&change.Title, &change.NewStock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("updating stock for %q: %w", id, err)
	}
	return change, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p      product.Product
		gender string
		family string
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Brand, &gender, &family, &p.Description,
		&p.Price, &p.MRP, &p.Stock, &p.RatingAvg, &p.RatingCount,
	)
	p.Gender = product.Gender(gender)
	p.Family = product.Family(family)
	return p, err
}
