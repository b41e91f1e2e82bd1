package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

func ValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPaid, PaymentStatusUnpaid:
		return true
	default:
		return false
	}
}

// Order is a completed sale. InvoiceID is assigned at placement and never
// changes; deleting the order does not release it.
type Order struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID     string          `gorm:"not null;uniqueIndex" json:"invoice_id"`
	CustomerID    snowflake.ID    `gorm:"not null" json:"customer_id"`
	CreatedBy     *string         `json:"created_by,omitempty"`
	PaymentStatus string          `gorm:"not null" json:"payment_status"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_amount"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem freezes the unit price the product sold at; later price edits
// never rewrite past orders.
type OrderItem struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID   snowflake.ID    `gorm:"not null;index" json:"order_id"`
	ProductID snowflake.ID    `gorm:"not null;index" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// InvoiceCounter backs the per-year invoice sequence.
type InvoiceCounter struct {
	Year    int   `gorm:"primaryKey"`
	LastSeq int64 `gorm:"not null;default:0"`
}

func (InvoiceCounter) TableName() string {
	return "invoice_counters"
}

// Summary is an order row joined with its buyer for listings.
type Summary struct {
	Order
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

// ItemDetail is an order item joined with its product. PurchasePrice rides
// along for profit computation and never leaves the service layer.
type ItemDetail struct {
	OrderItem
	ProductName   string          `json:"product_name"`
	PurchasePrice decimal.Decimal `json:"-"`
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	StartDate     *time.Time
	EndDate       *time.Time
	PaymentStatus string
	Search        string
	Cursor        *Cursor
	Limit         int
}
