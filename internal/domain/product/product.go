package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Gender enumerates the audience a fragrance is marketed for.
type Gender string

const (
	GenderMen    Gender = "men"
	GenderWomen  Gender = "women"
	GenderUnisex Gender = "unisex"
)

// Family enumerates the fragrance families in the catalog.
type Family string

const (
	FamilyCitrus   Family = "citrus"
	FamilyFloral   Family = "floral"
	FamilyWoody    Family = "woody"
	FamilyOriental Family = "oriental"
	FamilyFresh    Family = "fresh"
	FamilyGourmand Family = "gourmand"
)

// Product represents a catalog item available for purchase. Price is the
// selling price, MRP the list price. Stock never goes below zero: every
// mutation is a conditional update at the storage layer.
type Product struct {
	ID          string
	Title       string
	Slug        string
	Brand       string
	Gender      Gender
	Family      Family
	Description string
	Price       decimal.Decimal
	MRP         decimal.Decimal
	Stock       int
	RatingAvg   decimal.Decimal
	RatingCount int
}

// StockOp enumerates the administrative stock adjustment operations.
type StockOp string

const (
	StockAdd      StockOp = "add"
	StockSubtract StockOp = "subtract"
	StockSet      StockOp = "set"
)

// StockChange records the outcome of an administrative stock adjustment.
type StockChange struct {
	ProductID string
	Title     string
	OldStock  int
	NewStock  int
}

// Repository defines persistence operations for the product catalog.
// Order-driven stock mutation does not live here: decrements and restocks
// happen inside order transactions.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// UpdateStock applies an administrative stock adjustment. The resulting
	// stock is floored at zero for subtract and set operations.
	UpdateStock(ctx context.Context, id string, op StockOp, qty int) (*StockChange, error)
}
