package repository

import (
	"context"

	"github.com/smallbiznis/toko/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (id, product_id, action, actor_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ProductID,
		entry.Action,
		entry.ActorID,
		entry.Metadata,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Entry, error) {
	stmt := db.WithContext(ctx).
		Table("audit_logs").
		Select("audit_logs.*, products.name AS product_name").
		Joins("JOIN products ON products.id = audit_logs.product_id")

	if filter.ProductID != 0 {
		stmt = stmt.Where("audit_logs.product_id = ?", filter.ProductID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		stmt = stmt.Where("audit_logs.action LIKE ? OR products.name LIKE ?", like, like)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where(
			"(audit_logs.created_at < ?) OR (audit_logs.created_at = ? AND audit_logs.id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var entries []*domain.Entry
	err := stmt.
		Order("audit_logs.created_at DESC, audit_logs.id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
