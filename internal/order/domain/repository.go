package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertOrder(ctx context.Context, db *gorm.DB, order *Order) error
	InsertItem(ctx context.Context, db *gorm.DB, item *OrderItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Summary, error)
	ListItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*ItemDetail, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Summary, error)
	UpdatePaymentStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) (affected bool, err error)
	// Delete removes the order row; items cascade at the schema level.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (affected bool, err error)
}
