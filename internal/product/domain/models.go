package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Product carries current stock and both price points. Products are never
// hard-deleted; IsActive gates visibility and sellability.
type Product struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"not null" json:"name"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"purchase_price"`
	SellingPrice  decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"selling_price"`
	Quantity      int             `gorm:"not null;default:0" json:"quantity"`
	MinStockLevel int             `gorm:"not null;default:10" json:"min_stock_level"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

func (p Product) IsLowStock() bool {
	return p.Quantity < p.MinStockLevel
}

// Response is the API projection. ProfitMargin is populated for
// cost-visibility roles only and omitted otherwise.
type Response struct {
	ID            snowflake.ID     `json:"id"`
	Name          string           `json:"name"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	SellingPrice  decimal.Decimal  `json:"selling_price"`
	Quantity      int              `json:"quantity"`
	MinStockLevel int              `json:"min_stock_level"`
	IsActive      bool             `json:"is_active"`
	IsLowStock    bool             `json:"is_low_stock"`
	ProfitMargin  *decimal.Decimal `json:"profit_margin,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

type ListFilter struct {
	Name       string
	ActiveOnly bool
	LowStock   bool
}
