package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/toko/internal/actorcontext"
	"github.com/smallbiznis/toko/internal/clock"
	orderdomain "github.com/smallbiznis/toko/internal/order/domain"
	"github.com/smallbiznis/toko/internal/reporting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("reporting.service"),
		clock: p.Clock,
	}
}

func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	dayStart, dayEnd := s.today()

	dashboard := domain.Dashboard{
		Date:        dayStart.Format("2006-01-02"),
		LowStock:    []domain.StockAlert{},
		Deactivated: []domain.DeactivatedProduct{},
	}

	var sales struct {
		Total decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_amount), 0) AS total
		 FROM orders WHERE created_at >= ? AND created_at < ?`,
		dayStart, dayEnd,
	).Scan(&sales).Error
	if err != nil {
		return domain.Dashboard{}, err
	}
	dashboard.TodaySales = sales.Total

	var paid int
	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM orders
		 WHERE created_at >= ? AND created_at < ? AND payment_status = ?`,
		dayStart, dayEnd, orderdomain.PaymentStatusPaid,
	).Scan(&paid).Error
	if err != nil {
		return domain.Dashboard{}, err
	}
	dashboard.PaidOrdersToday = paid

	var pending int
	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM orders WHERE payment_status = ?`,
		orderdomain.PaymentStatusUnpaid,
	).Scan(&pending).Error
	if err != nil {
		return domain.Dashboard{}, err
	}
	dashboard.PendingOrders = pending

	var alerts []domain.StockAlert
	err = s.db.WithContext(ctx).Raw(
		`SELECT id AS product_id, name, quantity, min_stock_level
		 FROM products
		 WHERE is_active AND quantity < min_stock_level
		 ORDER BY quantity, name`,
	).Scan(&alerts).Error
	if err != nil {
		return domain.Dashboard{}, err
	}
	if len(alerts) > 0 {
		dashboard.LowStock = alerts
	}

	var deactivated []domain.DeactivatedProduct
	err = s.db.WithContext(ctx).Raw(
		`SELECT id AS product_id, name FROM products
		 WHERE NOT is_active ORDER BY name`,
	).Scan(&deactivated).Error
	if err != nil {
		return domain.Dashboard{}, err
	}
	if len(deactivated) > 0 {
		dashboard.Deactivated = deactivated
	}

	if actor, ok := actorcontext.FromContext(ctx); ok && actor.IsManager() {
		var profit struct {
			Total decimal.Decimal
		}
		err = s.db.WithContext(ctx).Raw(
			`SELECT COALESCE(SUM((i.unit_price - p.purchase_price) * i.quantity), 0) AS total
			 FROM order_items i
			 JOIN orders o ON o.id = i.order_id
			 JOIN products p ON p.id = i.product_id
			 WHERE o.created_at >= ? AND o.created_at < ?`,
			dayStart, dayEnd,
		).Scan(&profit).Error
		if err != nil {
			return domain.Dashboard{}, err
		}
		total := profit.Total
		dashboard.TotalProfitToday = &total
	}

	return dashboard, nil
}

func (s *Service) Export(ctx context.Context, req domain.ExportRequest) (*domain.Export, error) {
	switch req.Format {
	case domain.FormatCSV, domain.FormatExcel:
	default:
		return nil, domain.ErrInvalidFormat
	}

	actor, _ := actorcontext.FromContext(ctx)

	switch req.Report {
	case domain.ReportTotalSummary:
		summaries, err := s.dailySummaries(ctx)
		if err != nil {
			return nil, err
		}
		return renderTotalSummary(summaries, req.Format, actor.IsManager())
	case domain.ReportCustomerWise:
		summaries, err := s.customerSummaries(ctx)
		if err != nil {
			return nil, err
		}
		return renderCustomerWise(summaries, req.Format)
	default:
		return nil, domain.ErrInvalidReport
	}
}

// dailySummaries loads one row per order with its profit and folds them
// into calendar days in Go; grouping by day in SQL is not portable across
// the supported dialects.
func (s *Service) dailySummaries(ctx context.Context) ([]domain.DailySummary, error) {
	var rows []domain.OrderRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT o.id, o.created_at, o.total_amount,
			COALESCE(SUM((i.unit_price - p.purchase_price) * i.quantity), 0) AS profit
		 FROM orders o
		 LEFT JOIN order_items i ON i.order_id = o.id
		 LEFT JOIN products p ON p.id = i.product_id
		 GROUP BY o.id, o.created_at, o.total_amount
		 ORDER BY o.created_at`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*domain.DailySummary)
	days := make([]string, 0)
	for _, row := range rows {
		day := row.CreatedAt.UTC().Format("2006-01-02")
		summary, ok := byDay[day]
		if !ok {
			summary = &domain.DailySummary{Day: day}
			byDay[day] = summary
			days = append(days, day)
		}
		summary.Orders++
		summary.Sales = summary.Sales.Add(row.TotalAmount)
		summary.Profit = summary.Profit.Add(row.Profit)
	}

	summaries := make([]domain.DailySummary, 0, len(days))
	for _, day := range days {
		summaries = append(summaries, *byDay[day])
	}
	return summaries, nil
}

func (s *Service) customerSummaries(ctx context.Context) ([]domain.CustomerSummary, error) {
	var summaries []domain.CustomerSummary
	err := s.db.WithContext(ctx).Raw(
		`SELECT c.id AS customer_id, c.name, c.phone,
			COUNT(o.id) AS orders,
			COALESCE(SUM(o.total_amount), 0) AS total_spent
		 FROM customers c
		 JOIN orders o ON o.customer_id = c.id
		 GROUP BY c.id, c.name, c.phone
		 ORDER BY total_spent DESC, c.name`,
	).Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Service) today() (time.Time, time.Time) {
	now := s.clock.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
