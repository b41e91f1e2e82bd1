package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/toko/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertOrder(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, invoice_id, customer_id, created_by, payment_status, total_amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.InvoiceID,
		order.CustomerID,
		order.CreatedBy,
		order.PaymentStatus,
		order.TotalAmount,
		order.CreatedAt,
	).Error
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.OrderItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
		 VALUES (?, ?, ?, ?, ?)`,
		item.ID,
		item.OrderID,
		item.ProductID,
		item.Quantity,
		item.UnitPrice,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Summary, error) {
	var summary domain.Summary
	err := db.WithContext(ctx).Raw(
		`SELECT o.id, o.invoice_id, o.customer_id, o.created_by, o.payment_status,
			o.total_amount, o.created_at,
			c.name AS customer_name, c.phone AS customer_phone
		 FROM orders o
		 JOIN customers c ON c.id = o.customer_id
		 WHERE o.id = ?`,
		id,
	).Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	if summary.ID == 0 {
		return nil, nil
	}
	return &summary, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*domain.ItemDetail, error) {
	var items []*domain.ItemDetail
	err := db.WithContext(ctx).Raw(
		`SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price,
			p.name AS product_name, p.purchase_price
		 FROM order_items i
		 JOIN products p ON p.id = i.product_id
		 WHERE i.order_id = ?
		 ORDER BY i.id`,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Summary, error) {
	var summaries []*domain.Summary
	stmt := db.WithContext(ctx).
		Table("orders o").
		Select(`o.id, o.invoice_id, o.customer_id, o.created_by, o.payment_status,
			o.total_amount, o.created_at,
			c.name AS customer_name, c.phone AS customer_phone`).
		Joins("JOIN customers c ON c.id = o.customer_id")
	if filter.StartDate != nil {
		stmt = stmt.Where("o.created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		stmt = stmt.Where("o.created_at < ?", *filter.EndDate)
	}
	if filter.PaymentStatus != "" {
		stmt = stmt.Where("o.payment_status = ?", filter.PaymentStatus)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		stmt = stmt.Where("o.invoice_id LIKE ? OR c.name LIKE ? OR c.phone LIKE ?", pattern, pattern, pattern)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where(
			"(o.created_at < ?) OR (o.created_at = ? AND o.id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}
	if filter.Limit > 0 {
		// One extra row so the caller can tell whether another page exists.
		stmt = stmt.Limit(filter.Limit + 1)
	}
	err := stmt.
		Order("o.created_at desc, o.id desc").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *repo) UpdatePaymentStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE orders SET payment_status = ? WHERE id = ?`,
		status,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	// The schema cascades order_items, but not every dialect enforces
	// foreign keys; delete items explicitly so both agree.
	if err := db.WithContext(ctx).Exec(`DELETE FROM order_items WHERE order_id = ?`, id).Error; err != nil {
		return false, err
	}
	result := db.WithContext(ctx).Exec(`DELETE FROM orders WHERE id = ?`, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
