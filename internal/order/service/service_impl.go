package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/toko/internal/actorcontext"
	auditdomain "github.com/smallbiznis/toko/internal/audit/domain"
	"github.com/smallbiznis/toko/internal/clock"
	"github.com/smallbiznis/toko/internal/config"
	customerdomain "github.com/smallbiznis/toko/internal/customer/domain"
	"github.com/smallbiznis/toko/internal/observability/metrics"
	"github.com/smallbiznis/toko/internal/order/domain"
	productdomain "github.com/smallbiznis/toko/internal/product/domain"
	"github.com/smallbiznis/toko/pkg/db"
	"github.com/smallbiznis/toko/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Cfg       config.Config
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Stock     productdomain.StockKeeper
	Customers customerdomain.Lookup
	Audit     auditdomain.Recorder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       config.Config
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	stock     productdomain.StockKeeper
	customers customerdomain.Lookup
	audit     auditdomain.Recorder
	metrics   *metrics.Metrics
	sequencer Sequencer
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		cfg:       p.Cfg,
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		stock:     p.Stock,
		customers: p.Customers,
		audit:     p.Audit,
		metrics:   p.Metrics,
	}
}

type placedLine struct {
	productID snowflake.ID
	quantity  int
}

func (s *Service) Place(ctx context.Context, req domain.PlaceRequest) (domain.Response, error) {
	status := strings.TrimSpace(req.PaymentStatus)
	if status == "" {
		status = domain.PaymentStatusUnpaid
	}
	if !domain.ValidPaymentStatus(status) {
		return domain.Response{}, domain.ErrInvalidPaymentStatus
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.Response{}, domain.ErrCustomerNotFound
	}

	lines, err := mergeLines(req.Lines)
	if err != nil {
		return domain.Response{}, err
	}

	actor, _ := actorcontext.FromContext(ctx)
	now := s.clock.Now()

	var (
		order domain.Order
		items []domain.ItemResponse
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.boundLockWait(ctx, tx); err != nil {
			return err
		}

		customer, err := s.customers.FindByID(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil || !customer.IsActive {
			return domain.ErrCustomerNotFound
		}

		orderID := s.genID.Generate()
		total := decimal.Zero
		items = items[:0]
		actions := make([]string, 0, len(lines))
		for _, line := range lines {
			product, err := s.stock.Reserve(ctx, tx, line.productID, line.quantity)
			if err != nil {
				return err
			}

			unitPrice := product.SellingPrice
			subtotal := unitPrice.Mul(decimal.NewFromInt(int64(line.quantity)))
			total = total.Add(subtotal)
			items = append(items, domain.ItemResponse{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.quantity,
				UnitPrice:   unitPrice,
				Subtotal:    subtotal,
			})
			actions = append(actions, fmt.Sprintf("sold %d units", line.quantity))
		}

		invoiceID, err := s.sequencer.Next(ctx, tx, now.Year())
		if err != nil {
			return err
		}

		order = domain.Order{
			ID:            orderID,
			InvoiceID:     invoiceID,
			CustomerID:    customer.ID,
			CreatedBy:     actor.IDRef(),
			PaymentStatus: status,
			TotalAmount:   total,
			CreatedAt:     now,
		}
		if err := s.repo.InsertOrder(ctx, tx, &order); err != nil {
			return err
		}

		for i, line := range lines {
			if err := s.repo.InsertItem(ctx, tx, &domain.OrderItem{
				ID:        s.genID.Generate(),
				OrderID:   orderID,
				ProductID: line.productID,
				Quantity:  line.quantity,
				UnitPrice: items[i].UnitPrice,
			}); err != nil {
				return err
			}
			action := actions[i] + " on " + invoiceID
			if err := s.audit.Record(ctx, tx, line.productID, action, actor); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return domain.Response{}, s.classifyPlaceErr(ctx, err)
	}

	s.metrics.RecordOrderPlaced(ctx, status)
	s.log.Info("order placed",
		zap.String("invoice_id", order.InvoiceID),
		zap.String("order_id", order.ID.String()),
		zap.Int("lines", len(items)),
	)

	resp := s.toResponse(ctx, &domain.Summary{Order: order}, nil)
	resp.Items = items
	return resp, nil
}

// classifyPlaceErr folds storage-level lock failures into the retryable
// contention error and counts the outcomes worth watching.
func (s *Service) classifyPlaceErr(ctx context.Context, err error) error {
	if db.IsLockContentionErr(err) {
		s.metrics.RecordContention(ctx)
		return domain.ErrContention
	}
	switch err.(type) {
	case *productdomain.InsufficientStockError:
		s.metrics.RecordStockRejection(ctx)
	}
	return err
}

// boundLockWait keeps a placement from queueing behind a stuck transaction
// forever. Postgres-only; other dialects fail fast on their own.
func (s *Service) boundLockWait(ctx context.Context, tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.WithContext(ctx).
		Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.cfg.LockTimeoutMillis)).
		Error
}

// mergeLines validates the requested lines and folds duplicates of the same
// product into one, sorted by product id so every placement locks rows in
// the same order.
func mergeLines(lines []domain.Line) ([]placedLine, error) {
	if len(lines) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	quantities := make(map[snowflake.ID]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		productID, err := snowflake.ParseString(strings.TrimSpace(line.ProductID))
		if err != nil || productID == 0 {
			return nil, domain.ErrInvalidID
		}
		quantities[productID] += line.Quantity
	}

	merged := make([]placedLine, 0, len(quantities))
	for productID, quantity := range quantities {
		merged = append(merged, placedLine{productID: productID, quantity: quantity})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].productID < merged[j].productID
	})
	return merged, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Response, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || orderID == 0 {
		return domain.Response{}, domain.ErrInvalidID
	}

	summary, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.Response{}, err
	}
	if summary == nil {
		return domain.Response{}, domain.ErrNotFound
	}

	items, err := s.repo.ListItems(ctx, s.db, orderID)
	if err != nil {
		return domain.Response{}, err
	}

	return s.toResponse(ctx, summary, items), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		PaymentStatus: strings.TrimSpace(req.PaymentStatus),
		Search:        strings.TrimSpace(req.Search),
	}
	if filter.PaymentStatus != "" && !domain.ValidPaymentStatus(filter.PaymentStatus) {
		return domain.ListResponse{}, domain.ErrInvalidPaymentStatus
	}

	if raw := strings.TrimSpace(req.StartDate); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidDate
		}
		filter.StartDate = &start
	}
	if raw := strings.TrimSpace(req.EndDate); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidDate
		}
		// End date is inclusive; the filter compares against the next
		// midnight.
		end = end.AddDate(0, 0, 1)
		filter.EndDate = &end
	}

	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursorID, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || cursorID == 0 {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		filter.Cursor = &domain.Cursor{ID: cursorID, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}
	filter.Limit = pageSize

	summaries, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(summaries, pageSize, func(summary *domain.Summary) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        summary.ID.String(),
			CreatedAt: summary.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(summaries) > pageSize {
		summaries = summaries[:pageSize]
	}

	orders := make([]domain.Response, 0, len(summaries))
	for _, summary := range summaries {
		if summary == nil {
			continue
		}
		orders = append(orders, s.toResponse(ctx, summary, nil))
	}

	resp := domain.ListResponse{Orders: orders}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, status string) (domain.Response, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || orderID == 0 {
		return domain.Response{}, domain.ErrInvalidID
	}

	status = strings.TrimSpace(status)
	if !domain.ValidPaymentStatus(status) {
		return domain.Response{}, domain.ErrInvalidPaymentStatus
	}

	affected, err := s.repo.UpdatePaymentStatus(ctx, s.db, orderID, status)
	if err != nil {
		return domain.Response{}, err
	}
	if !affected {
		return domain.Response{}, domain.ErrNotFound
	}

	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || orderID == 0 {
		return domain.ErrInvalidID
	}

	// The invoice number stays consumed and product stock and audit
	// history stay untouched; deletion only removes the order itself.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.Delete(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !affected {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (s *Service) toResponse(ctx context.Context, summary *domain.Summary, items []*domain.ItemDetail) domain.Response {
	resp := domain.Response{
		ID:            summary.ID,
		InvoiceID:     summary.InvoiceID,
		CustomerID:    summary.CustomerID,
		CustomerName:  summary.CustomerName,
		CustomerPhone: summary.CustomerPhone,
		CreatedBy:     summary.CreatedBy,
		PaymentStatus: summary.PaymentStatus,
		TotalAmount:   summary.TotalAmount,
		CreatedAt:     summary.CreatedAt,
	}

	if len(items) > 0 {
		resp.Items = make([]domain.ItemResponse, 0, len(items))
		profit := decimal.Zero
		for _, item := range items {
			if item == nil {
				continue
			}
			qty := decimal.NewFromInt(int64(item.Quantity))
			resp.Items = append(resp.Items, domain.ItemResponse{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				Subtotal:    item.UnitPrice.Mul(qty),
			})
			profit = profit.Add(item.UnitPrice.Sub(item.PurchasePrice).Mul(qty))
		}

		// Margins are visible to managers only; staff responses omit the
		// field rather than zeroing it.
		if actor, ok := actorcontext.FromContext(ctx); ok && actor.IsManager() {
			resp.Profit = &profit
		}
	}

	return resp
}
