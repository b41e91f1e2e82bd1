package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Name          string
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	Quantity      int
	MinStockLevel *int
}

type UpdateRequest struct {
	ID            string
	Name          *string
	PurchasePrice *decimal.Decimal
	SellingPrice  *decimal.Decimal
	Quantity      *int
	MinStockLevel *int
	Reason        string
}

type ListRequest struct {
	Search          string
	IncludeInactive bool
}

// StockKeeper is the slice of the inventory store the order processor
// composes into its transaction.
type StockKeeper interface {
	// Reserve decrements stock for a line inside tx and returns the
	// pre-decrement snapshot the caller prices the line from. Missing or
	// inactive products fail with *UnavailableError, shortage with
	// *InsufficientStockError; in both cases the row is left untouched.
	Reserve(ctx context.Context, tx *gorm.DB, id snowflake.ID, qty int) (*Product, error)
	// Restore is the compensating increment for returns.
	Restore(ctx context.Context, tx *gorm.DB, id snowflake.ID, qty int) error
}

type Service interface {
	StockKeeper
	Create(ctx context.Context, req CreateRequest) (Response, error)
	Get(ctx context.Context, id string) (Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	LowStock(ctx context.Context) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (Response, error)
	Deactivate(ctx context.Context, id string) error
	Reactivate(ctx context.Context, id string) error
}
