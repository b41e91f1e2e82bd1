package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/toko/internal/actorcontext"
	auditdomain "github.com/smallbiznis/toko/internal/audit/domain"
	"github.com/smallbiznis/toko/internal/clock"
	"github.com/smallbiznis/toko/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Audit auditdomain.Recorder
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	audit auditdomain.Recorder
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Response{}, domain.ErrInvalidName
	}
	if req.PurchasePrice.IsNegative() || req.SellingPrice.IsNegative() {
		return domain.Response{}, domain.ErrInvalidPrice
	}
	if req.Quantity < 0 {
		return domain.Response{}, domain.ErrInvalidQuantity
	}

	minStock := 10
	if req.MinStockLevel != nil {
		if *req.MinStockLevel < 0 {
			return domain.Response{}, domain.ErrInvalidQuantity
		}
		minStock = *req.MinStockLevel
	}

	actor, _ := actorcontext.FromContext(ctx)
	now := s.clock.Now()
	product := domain.Product{
		ID:            s.genID.Generate(),
		Name:          name,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		Quantity:      req.Quantity,
		MinStockLevel: minStock,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &product); err != nil {
			return err
		}
		for _, action := range ChangeEntries(nil, &product) {
			if err := s.audit.Record(ctx, tx, product.ID, action, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Response{}, err
	}

	return s.toResponse(ctx, &product), nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Response, error) {
	productID, err := parseID(id)
	if err != nil {
		return domain.Response{}, err
	}

	product, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return domain.Response{}, err
	}
	if product == nil {
		return domain.Response{}, domain.ErrNotFound
	}

	return s.toResponse(ctx, product), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	products, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Name:       strings.TrimSpace(req.Search),
		ActiveOnly: !req.IncludeInactive,
	})
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, products), nil
}

func (s *Service) LowStock(ctx context.Context) ([]domain.Response, error) {
	products, err := s.repo.List(ctx, s.db, domain.ListFilter{
		ActiveOnly: true,
		LowStock:   true,
	})
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, products), nil
}

// Update applies a manual edit. The pre-mutation snapshot is loaded under
// the row lock and diffed against the updated state inside the same
// transaction, so every price or quantity transition lands in the ledger
// exactly once.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.Response, error) {
	productID, err := parseID(req.ID)
	if err != nil {
		return domain.Response{}, err
	}

	actor, _ := actorcontext.FromContext(ctx)

	var updated *domain.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.repo.FindByIDForUpdate(ctx, tx, productID)
		if err != nil {
			return err
		}
		if before == nil {
			return domain.ErrNotFound
		}

		after := *before
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			after.Name = name
		}
		if req.PurchasePrice != nil {
			if req.PurchasePrice.IsNegative() {
				return domain.ErrInvalidPrice
			}
			after.PurchasePrice = *req.PurchasePrice
		}
		if req.SellingPrice != nil {
			if req.SellingPrice.IsNegative() {
				return domain.ErrInvalidPrice
			}
			after.SellingPrice = *req.SellingPrice
		}
		if req.Quantity != nil {
			if *req.Quantity < 0 {
				return domain.ErrInvalidQuantity
			}
			after.Quantity = *req.Quantity
		}
		if req.MinStockLevel != nil {
			if *req.MinStockLevel < 0 {
				return domain.ErrInvalidQuantity
			}
			after.MinStockLevel = *req.MinStockLevel
		}
		after.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, &after); err != nil {
			return err
		}

		reason := strings.TrimSpace(req.Reason)
		for _, action := range ChangeEntries(before, &after) {
			if reason != "" {
				action = action + " (" + reason + ")"
			}
			if err := s.audit.Record(ctx, tx, after.ID, action, actor); err != nil {
				return err
			}
		}

		updated = &after
		return nil
	})
	if err != nil {
		return domain.Response{}, err
	}

	return s.toResponse(ctx, updated), nil
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.setActive(ctx, id, false)
}

func (s *Service) Reactivate(ctx context.Context, id string) error {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id string, active bool) error {
	productID, err := parseID(id)
	if err != nil {
		return err
	}

	affected, err := s.repo.SetActive(ctx, s.db, productID, active)
	if err != nil {
		return err
	}
	if !affected {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, id snowflake.ID, qty int) (*domain.Product, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, &domain.UnavailableError{ProductID: id}
	}
	if product.Quantity < qty {
		return nil, &domain.InsufficientStockError{
			ProductID: id,
			Name:      product.Name,
			Requested: qty,
			Available: product.Quantity,
		}
	}

	affected, err := s.repo.DecrementStock(ctx, tx, id, qty)
	if err != nil {
		return nil, err
	}
	if !affected {
		// The guarded update raced past the lock somehow; treat as shortage.
		return nil, &domain.InsufficientStockError{
			ProductID: id,
			Name:      product.Name,
			Requested: qty,
			Available: product.Quantity,
		}
	}

	return product, nil
}

func (s *Service) Restore(ctx context.Context, tx *gorm.DB, id snowflake.ID, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return s.repo.IncrementStock(ctx, tx, id, qty)
}

func (s *Service) toResponses(ctx context.Context, products []*domain.Product) []domain.Response {
	responses := make([]domain.Response, 0, len(products))
	for _, product := range products {
		if product == nil {
			continue
		}
		responses = append(responses, s.toResponse(ctx, product))
	}
	return responses
}

func (s *Service) toResponse(ctx context.Context, product *domain.Product) domain.Response {
	resp := domain.Response{
		ID:            product.ID,
		Name:          product.Name,
		SellingPrice:  product.SellingPrice,
		Quantity:      product.Quantity,
		MinStockLevel: product.MinStockLevel,
		IsActive:      product.IsActive,
		IsLowStock:    product.IsLowStock(),
		CreatedAt:     product.CreatedAt,
	}

	// Purchase price and margin are cost figures; staff responses omit
	// them entirely rather than zeroing them.
	if actor, ok := actorcontext.FromContext(ctx); ok && actor.IsManager() {
		purchase := product.PurchasePrice
		margin := product.SellingPrice.Sub(product.PurchasePrice)
		resp.PurchasePrice = &purchase
		resp.ProfitMargin = &margin
	}

	return resp
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
