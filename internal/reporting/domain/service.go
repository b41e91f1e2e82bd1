package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Dashboard is the storefront snapshot for the current day.
// TotalProfitToday is populated for cost-visibility roles only.
type Dashboard struct {
	Date             string               `json:"date"`
	TodaySales       decimal.Decimal      `json:"today_sales"`
	PaidOrdersToday  int                  `json:"paid_orders_today"`
	PendingOrders    int                  `json:"pending_orders"`
	TotalProfitToday *decimal.Decimal     `json:"total_profit_today,omitempty"`
	LowStock         []StockAlert         `json:"low_stock"`
	Deactivated      []DeactivatedProduct `json:"deactivated"`
}

type StockAlert struct {
	ProductID     snowflake.ID `json:"product_id"`
	Name          string       `json:"name"`
	Quantity      int          `json:"quantity"`
	MinStockLevel int          `json:"min_stock_level"`
}

type DeactivatedProduct struct {
	ProductID snowflake.ID `json:"product_id"`
	Name      string       `json:"name"`
}

const (
	ReportTotalSummary = "total_summary"
	ReportCustomerWise = "customer_wise"

	FormatCSV   = "csv"
	FormatExcel = "excel"
)

type ExportRequest struct {
	Report string
	Format string
}

// Export is a rendered report ready to stream to the client.
type Export struct {
	FileName    string
	ContentType string
	Data        []byte
}

// DailySummary aggregates one calendar day of sales.
type DailySummary struct {
	Day    string
	Orders int
	Sales  decimal.Decimal
	Profit decimal.Decimal
}

// CustomerSummary aggregates one buyer's order history.
type CustomerSummary struct {
	CustomerID snowflake.ID
	Name       string
	Phone      string
	Orders     int
	TotalSpent decimal.Decimal
}

type Service interface {
	Dashboard(ctx context.Context) (Dashboard, error)
	Export(ctx context.Context, req ExportRequest) (*Export, error)
}

// OrderRow is the flat projection reporting aggregates from.
type OrderRow struct {
	ID          snowflake.ID
	CreatedAt   time.Time
	TotalAmount decimal.Decimal
	Profit      decimal.Decimal
}

var (
	ErrInvalidReport = errors.New("invalid_report")
	ErrInvalidFormat = errors.New("invalid_format")
)
