package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/toko/internal/product/domain"
	"github.com/smallbiznis/toko/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, product *domain.Product) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO products (id, name, purchase_price, selling_price, quantity, min_stock_level, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Name,
		product.PurchasePrice,
		product.SellingPrice,
		product.Quantity,
		product.MinStockLevel,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	return r.findByID(ctx, conn, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	return r.findByID(ctx, conn, id, true)
}

func (r *repo) findByID(ctx context.Context, conn *gorm.DB, id snowflake.ID, lock bool) (*domain.Product, error) {
	stmt := conn.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id)
	if lock && db.SupportsRowLocking(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var product domain.Product
	err := stmt.Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]*domain.Product, error) {
	stmt := conn.WithContext(ctx).Model(&domain.Product{})
	if filter.ActiveOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.LowStock {
		stmt = stmt.Where("quantity < min_stock_level")
	}

	var products []*domain.Product
	err := stmt.
		Order("created_at desc, id desc").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, product *domain.Product) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE products
		 SET name = ?, purchase_price = ?, selling_price = ?, quantity = ?, min_stock_level = ?, updated_at = ?
		 WHERE id = ?`,
		product.Name,
		product.PurchasePrice,
		product.SellingPrice,
		product.Quantity,
		product.MinStockLevel,
		product.UpdatedAt,
		product.ID,
	).Error
}

func (r *repo) DecrementStock(ctx context.Context, conn *gorm.DB, id snowflake.ID, qty int) (bool, error) {
	// The quantity guard keeps the >= 0 invariant even if a caller skipped
	// the row lock; the guarded update itself is atomic.
	result := conn.WithContext(ctx).Exec(
		`UPDATE products
		 SET quantity = quantity - ?, updated_at = ?
		 WHERE id = ? AND quantity >= ?`,
		qty,
		time.Now().UTC(),
		id,
		qty,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) IncrementStock(ctx context.Context, conn *gorm.DB, id snowflake.ID, qty int) error {
	result := conn.WithContext(ctx).Exec(
		`UPDATE products
		 SET quantity = quantity + ?, updated_at = ?
		 WHERE id = ?`,
		qty,
		time.Now().UTC(),
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repo) SetActive(ctx context.Context, conn *gorm.DB, id snowflake.ID, active bool) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE products
		 SET is_active = ?, updated_at = ?
		 WHERE id = ?`,
		active,
		time.Now().UTC(),
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
