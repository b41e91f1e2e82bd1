package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository takes an explicit handle so Insert composes inside whatever
// transaction owns the mutation being audited.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Entry, error)
}
