package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/toko/internal/actorcontext"
	"github.com/smallbiznis/toko/pkg/db/pagination"
	"gorm.io/gorm"
)

// Recorder appends ledger entries inside the caller's transaction. A failed
// append is returned to the caller so the whole unit of work aborts rather
// than committing a stock change without its trail.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, productID snowflake.ID, action string, actor actorcontext.Actor) error
}

type ListRequest struct {
	pagination.Pagination
	ProductID string
	Search    string
}

type ListResponse struct {
	pagination.PageInfo
	AuditLogs []Entry `json:"audit_logs"`
}

type Service interface {
	Recorder
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidProductID = errors.New("invalid_product_id")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
