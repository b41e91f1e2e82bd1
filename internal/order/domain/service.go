package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/toko/pkg/db/pagination"
)

// Line is one requested order line. Lines naming the same product are
// merged before any stock is touched.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type PlaceRequest struct {
	CustomerID    string `json:"customer_id"`
	PaymentStatus string `json:"payment_status"`
	Lines         []Line `json:"lines"`
}

type ItemResponse struct {
	ProductID   snowflake.ID    `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Response is the API projection of an order. Profit is populated for
// cost-visibility roles only and omitted otherwise.
type Response struct {
	ID            snowflake.ID     `json:"id"`
	InvoiceID     string           `json:"invoice_id"`
	CustomerID    snowflake.ID     `json:"customer_id"`
	CustomerName  string           `json:"customer_name,omitempty"`
	CustomerPhone string           `json:"customer_phone,omitempty"`
	CreatedBy     *string          `json:"created_by,omitempty"`
	PaymentStatus string           `json:"payment_status"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	Profit        *decimal.Decimal `json:"profit,omitempty"`
	Items         []ItemResponse   `json:"items,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

type ListRequest struct {
	pagination.Pagination
	StartDate     string
	EndDate       string
	PaymentStatus string
	Search        string
}

type ListResponse struct {
	pagination.PageInfo
	Orders []Response `json:"orders"`
}

type Service interface {
	// Place runs the whole placement as one transaction: stock
	// reservation, invoice numbering, order and item rows, and the audit
	// trail commit or roll back together.
	Place(ctx context.Context, req PlaceRequest) (Response, error)
	Get(ctx context.Context, id string) (Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	UpdatePaymentStatus(ctx context.Context, id string, status string) (Response, error)
	Delete(ctx context.Context, id string) error
}
