package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/toko/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

type UpdateRequest struct {
	ID       string
	Name     *string
	Phone    *string
	Email    *string
	Address  *string
	IsActive *bool
}

type ListRequest struct {
	pagination.Pagination
	Search string
}

type ListResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

// Lookup is the slice the order processor composes in; it resolves a
// buyer inside the placement transaction.
type Lookup interface {
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Customer, error)
}

type Service interface {
	Lookup
	Create(ctx context.Context, req CreateRequest) (Customer, error)
	Get(ctx context.Context, id string) (Customer, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, req UpdateRequest) (Customer, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidPhone     = errors.New("invalid_phone")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrNotFound         = errors.New("not_found")
)
