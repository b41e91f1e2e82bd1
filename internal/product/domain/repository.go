package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	// FindByIDForUpdate takes the row lock that serializes concurrent
	// stock mutations on the same product.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	// DecrementStock applies the guarded decrement; affected reports
	// whether the row qualified (enough stock).
	DecrementStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int) (affected bool, err error)
	IncrementStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int) error
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) (affected bool, err error)
}
