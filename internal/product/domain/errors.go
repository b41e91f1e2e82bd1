package domain

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound        = errors.New("not_found")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidQuantity = errors.New("invalid_quantity")
)

// InsufficientStockError rejects a reservation without touching the row. It
// carries enough detail for the caller to correct the request.
type InsufficientStockError struct {
	ProductID snowflake.ID `json:"product_id"`
	Name      string       `json:"product_name"`
	Requested int          `json:"requested"`
	Available int          `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}

// UnavailableError marks a line referencing a missing or deactivated product.
type UnavailableError struct {
	ProductID snowflake.ID `json:"product_id"`
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("product %s is unavailable", e.ProductID)
}
