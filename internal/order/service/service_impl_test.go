package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/toko/internal/actorcontext"
	auditdomain "github.com/smallbiznis/toko/internal/audit/domain"
	auditrepository "github.com/smallbiznis/toko/internal/audit/repository"
	auditservice "github.com/smallbiznis/toko/internal/audit/service"
	"github.com/smallbiznis/toko/internal/clock"
	"github.com/smallbiznis/toko/internal/config"
	customerdomain "github.com/smallbiznis/toko/internal/customer/domain"
	customerrepository "github.com/smallbiznis/toko/internal/customer/repository"
	customerservice "github.com/smallbiznis/toko/internal/customer/service"
	"github.com/smallbiznis/toko/internal/order/domain"
	"github.com/smallbiznis/toko/internal/order/repository"
	productdomain "github.com/smallbiznis/toko/internal/product/domain"
	productrepository "github.com/smallbiznis/toko/internal/product/repository"
	productservice "github.com/smallbiznis/toko/internal/product/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	orders    domain.Service
	products  productdomain.Service
	customers customerdomain.Service
	db        *gorm.DB
	clock     *clock.FakeClock
	node      *snowflake.Node
}

func setupOrderService(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error
	_ = db.Exec("PRAGMA journal_mode = WAL").Error

	if err := db.AutoMigrate(
		&productdomain.Product{},
		&customerdomain.Customer{},
		&domain.Order{},
		&domain.OrderItem{},
		&domain.InvoiceCounter{},
		&auditdomain.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	fake := clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))

	auditSvc := auditservice.New(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  auditrepository.Provide(),
	})
	products := productservice.New(productservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  productrepository.Provide(),
		Audit: auditSvc,
	})
	customers := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  customerrepository.Provide(),
	})
	orders := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Cfg:       config.Config{LockTimeoutMillis: 5000},
		GenID:     node,
		Clock:     fake,
		Repo:      repository.Provide(),
		Stock:     products,
		Customers: customers,
		Audit:     auditSvc,
	})

	return &fixture{
		orders:    orders,
		products:  products,
		customers: customers,
		db:        db,
		clock:     fake,
		node:      node,
	}
}

func managerCtx() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		ID:   "manager-1",
		Role: actorcontext.RoleManager,
	})
}

func staffCtx() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		ID:   "staff-1",
		Role: actorcontext.RoleStaff,
	})
}

func (f *fixture) seedProduct(t *testing.T, name, purchase, selling string, qty int) productdomain.Response {
	t.Helper()
	resp, err := f.products.Create(managerCtx(), productdomain.CreateRequest{
		Name:          name,
		PurchasePrice: decimal.RequireFromString(purchase),
		SellingPrice:  decimal.RequireFromString(selling),
		Quantity:      qty,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
	return resp
}

func (f *fixture) seedCustomer(t *testing.T, name string) customerdomain.Customer {
	t.Helper()
	customer, err := f.customers.Create(managerCtx(), customerdomain.CreateRequest{
		Name:  name,
		Phone: "0812000111",
	})
	if err != nil {
		t.Fatalf("seed customer %s: %v", name, err)
	}
	return customer
}

func (f *fixture) productQuantity(t *testing.T, id snowflake.ID) int {
	t.Helper()
	var qty int
	if err := f.db.Raw(`SELECT quantity FROM products WHERE id = ?`, id).Scan(&qty).Error; err != nil {
		t.Fatalf("load quantity: %v", err)
	}
	return qty
}

func TestPlaceOrder(t *testing.T) {
	f := setupOrderService(t)
	coffee := f.seedProduct(t, "Kopi", "40.00", "55.00", 10)
	sugar := f.seedProduct(t, "Gula", "5.00", "8.00", 30)
	buyer := f.seedCustomer(t, "Ibu Sari")

	resp, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID:    buyer.ID.String(),
		PaymentStatus: domain.PaymentStatusPaid,
		Lines: []domain.Line{
			{ProductID: coffee.ID.String(), Quantity: 2},
			{ProductID: sugar.ID.String(), Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if resp.InvoiceID != "INV-2026-0001" {
		t.Fatalf("unexpected invoice id: %s", resp.InvoiceID)
	}
	// 2*55 + 3*8 = 134
	if !resp.TotalAmount.Equal(decimal.RequireFromString("134.00")) {
		t.Fatalf("unexpected total: %s", resp.TotalAmount)
	}
	if resp.CreatedBy == nil || *resp.CreatedBy != "staff-1" {
		t.Fatalf("expected created_by staff-1, got %v", resp.CreatedBy)
	}

	var sum decimal.Decimal
	err = f.db.Raw(
		`SELECT COALESCE(SUM(unit_price * quantity), 0) FROM order_items WHERE order_id = ?`,
		resp.ID,
	).Scan(&sum).Error
	if err != nil {
		t.Fatalf("sum items: %v", err)
	}
	if !sum.Equal(resp.TotalAmount) {
		t.Fatalf("total %s != item sum %s", resp.TotalAmount, sum)
	}

	if got := f.productQuantity(t, coffee.ID); got != 8 {
		t.Fatalf("coffee stock: expected 8, got %d", got)
	}
	if got := f.productQuantity(t, sugar.ID); got != 27 {
		t.Fatalf("sugar stock: expected 27, got %d", got)
	}

	var actions []string
	err = f.db.Raw(
		`SELECT action FROM audit_logs WHERE action LIKE 'sold%' ORDER BY id`,
	).Scan(&actions).Error
	if err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected one audit entry per line, got %v", actions)
	}
	for _, action := range actions {
		if !strings.Contains(action, "INV-2026-0001") {
			t.Fatalf("audit entry missing invoice id: %q", action)
		}
	}
}

func TestPlaceInsufficientStockIsAtomic(t *testing.T) {
	f := setupOrderService(t)
	coffee := f.seedProduct(t, "Kopi", "40.00", "55.00", 10)
	sugar := f.seedProduct(t, "Gula", "5.00", "8.00", 2)
	buyer := f.seedCustomer(t, "Pak Budi")

	_, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines: []domain.Line{
			{ProductID: coffee.ID.String(), Quantity: 4},
			{ProductID: sugar.ID.String(), Quantity: 5},
		},
	})
	stockErr, ok := err.(*productdomain.InsufficientStockError)
	if !ok {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Requested != 5 || stockErr.Available != 2 {
		t.Fatalf("unexpected shortage: %+v", stockErr)
	}

	// The first line's decrement must have rolled back with the rest.
	if got := f.productQuantity(t, coffee.ID); got != 10 {
		t.Fatalf("coffee stock mutated by failed placement: %d", got)
	}
	if got := f.productQuantity(t, sugar.ID); got != 2 {
		t.Fatalf("sugar stock mutated by failed placement: %d", got)
	}

	var orders int
	if err := f.db.Raw(`SELECT COUNT(*) FROM orders`).Scan(&orders).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != 0 {
		t.Fatalf("expected no orders, got %d", orders)
	}

	var soldEntries int
	if err := f.db.Raw(`SELECT COUNT(*) FROM audit_logs WHERE action LIKE 'sold%'`).Scan(&soldEntries).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	if soldEntries != 0 {
		t.Fatalf("expected no sale audit entries, got %d", soldEntries)
	}
}

func TestFailedPlacementConsumesNoInvoiceNumber(t *testing.T) {
	f := setupOrderService(t)
	coffee := f.seedProduct(t, "Kopi", "40.00", "55.00", 3)
	buyer := f.seedCustomer(t, "Ibu Sari")

	if _, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines:      []domain.Line{{ProductID: coffee.ID.String(), Quantity: 99}},
	}); err == nil {
		t.Fatal("expected shortage")
	}

	resp, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines:      []domain.Line{{ProductID: coffee.ID.String(), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if resp.InvoiceID != "INV-2026-0001" {
		t.Fatalf("failed placement burned a number: %s", resp.InvoiceID)
	}
}

func TestPlaceValidation(t *testing.T) {
	f := setupOrderService(t)
	coffee := f.seedProduct(t, "Kopi", "40.00", "55.00", 3)
	buyer := f.seedCustomer(t, "Ibu Sari")

	if _, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
	}); err != domain.ErrEmptyOrder {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}

	if _, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines:      []domain.Line{{ProductID: coffee.ID.String(), Quantity: 0}},
	}); err != domain.ErrInvalidQuantity {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	if _, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: f.node.Generate().String(),
		Lines:      []domain.Line{{ProductID: coffee.ID.String(), Quantity: 1}},
	}); err != domain.ErrCustomerNotFound {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}

	if _, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID:    buyer.ID.String(),
		PaymentStatus: "partial",
		Lines:         []domain.Line{{ProductID: coffee.ID.String(), Quantity: 1}},
	}); err != domain.ErrInvalidPaymentStatus {
		t.Fatalf("expected ErrInvalidPaymentStatus, got %v", err)
	}
}

func TestPlaceInactiveProduct(t *testing.T) {
	f := setupOrderService(t)
	old := f.seedProduct(t, "Produk Lama", "1.00", "2.00", 9)
	buyer := f.seedCustomer(t, "Ibu Sari")

	if err := f.products.Deactivate(managerCtx(), old.ID.String()); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines:      []domain.Line{{ProductID: old.ID.String(), Quantity: 1}},
	})
	if _, ok := err.(*productdomain.UnavailableError); !ok {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
}

func TestPlaceMergesDuplicateLines(t *testing.T) {
	f := setupOrderService(t)
	coffee := f.seedProduct(t, "Kopi", "40.00", "55.00", 10)
	buyer := f.seedCustomer(t, "Ibu Sari")

	resp, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines: []domain.Line{
			{ProductID: coffee.ID.String(), Quantity: 2},
			{ProductID: coffee.ID.String(), Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Quantity != 5 {
		t.Fatalf("expected one merged line of 5, got %+v", resp.Items)
	}
	if got := f.productQuantity(t, coffee.ID); got != 5 {
		t.Fatalf("expected stock 5, got %d", got)
	}
}

func TestConcurrentPlacementsGetDistinctGapFreeNumbers(t *testing.T) {
	f := setupOrderService(t)
	coffee := f.seedProduct(t, "Kopi", "40.00", "55.00", 100)
	buyer := f.seedCustomer(t, "Ibu Sari")

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orders.Place(staffCtx(), domain.PlaceRequest{
				CustomerID: buyer.ID.String(),
				Lines:      []domain.Line{{ProductID: coffee.ID.String(), Quantity: 2}},
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("placement %d: %v", i, err)
		}
	}

	var invoiceIDs []string
	if err := f.db.Raw(`SELECT invoice_id FROM orders ORDER BY invoice_id`).Scan(&invoiceIDs).Error; err != nil {
		t.Fatalf("load invoices: %v", err)
	}
	if len(invoiceIDs) != n {
		t.Fatalf("expected %d orders, got %d", n, len(invoiceIDs))
	}
	for i, invoiceID := range invoiceIDs {
		expected := fmt.Sprintf("INV-2026-%04d", i+1)
		if invoiceID != expected {
			t.Fatalf("gap in sequence: expected %s, got %s", expected, invoiceID)
		}
	}

	if got := f.productQuantity(t, coffee.ID); got != 100-n*2 {
		t.Fatalf("expected stock %d, got %d", 100-n*2, got)
	}
}

func TestGetProfitVisibility(t *testing.T) {
	f := setupOrderService(t)
	coffee := f.seedProduct(t, "Kopi", "40.00", "55.00", 10)
	sugar := f.seedProduct(t, "Gula", "5.00", "8.00", 30)
	buyer := f.seedCustomer(t, "Ibu Sari")

	placed, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines: []domain.Line{
			{ProductID: coffee.ID.String(), Quantity: 2},
			{ProductID: sugar.ID.String(), Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	asManager, err := f.orders.Get(managerCtx(), placed.ID.String())
	if err != nil {
		t.Fatalf("get as manager: %v", err)
	}
	if asManager.Profit == nil {
		t.Fatal("expected profit for manager")
	}
	// (55-40)*2 + (8-5)*3 = 39
	if !asManager.Profit.Equal(decimal.RequireFromString("39.00")) {
		t.Fatalf("unexpected profit: %s", asManager.Profit)
	}

	asStaff, err := f.orders.Get(staffCtx(), placed.ID.String())
	if err != nil {
		t.Fatalf("get as staff: %v", err)
	}
	if asStaff.Profit != nil {
		t.Fatal("staff must not see profit")
	}
}

func TestListFilters(t *testing.T) {
	f := setupOrderService(t)
	coffee := f.seedProduct(t, "Kopi", "40.00", "55.00", 50)
	buyer := f.seedCustomer(t, "Ibu Sari")

	for i := 0; i < 3; i++ {
		status := domain.PaymentStatusPaid
		if i == 2 {
			status = domain.PaymentStatusUnpaid
		}
		if _, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
			CustomerID:    buyer.ID.String(),
			PaymentStatus: status,
			Lines:         []domain.Line{{ProductID: coffee.ID.String(), Quantity: 1}},
		}); err != nil {
			t.Fatalf("place %d: %v", i, err)
		}
		f.clock.Advance(time.Minute)
	}

	unpaid, err := f.orders.List(staffCtx(), domain.ListRequest{PaymentStatus: domain.PaymentStatusUnpaid})
	if err != nil {
		t.Fatalf("list unpaid: %v", err)
	}
	if len(unpaid.Orders) != 1 {
		t.Fatalf("expected 1 unpaid order, got %d", len(unpaid.Orders))
	}

	byInvoice, err := f.orders.List(staffCtx(), domain.ListRequest{Search: "INV-2026-0002"})
	if err != nil {
		t.Fatalf("list by invoice: %v", err)
	}
	if len(byInvoice.Orders) != 1 || byInvoice.Orders[0].InvoiceID != "INV-2026-0002" {
		t.Fatalf("unexpected search result: %+v", byInvoice.Orders)
	}

	byName, err := f.orders.List(staffCtx(), domain.ListRequest{Search: "Sari"})
	if err != nil {
		t.Fatalf("list by name: %v", err)
	}
	if len(byName.Orders) != 3 {
		t.Fatalf("expected 3 orders for customer search, got %d", len(byName.Orders))
	}

	all, err := f.orders.List(staffCtx(), domain.ListRequest{StartDate: "2026-03-14", EndDate: "2026-03-14"})
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(all.Orders) != 3 {
		t.Fatalf("expected 3 orders on the day, got %d", len(all.Orders))
	}

	none, err := f.orders.List(staffCtx(), domain.ListRequest{StartDate: "2026-03-15"})
	if err != nil {
		t.Fatalf("list after: %v", err)
	}
	if len(none.Orders) != 0 {
		t.Fatalf("expected no orders after the day, got %d", len(none.Orders))
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := setupOrderService(t)
	coffee := f.seedProduct(t, "Kopi", "40.00", "55.00", 10)
	buyer := f.seedCustomer(t, "Ibu Sari")

	placed, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines:      []domain.Line{{ProductID: coffee.ID.String(), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if placed.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Fatalf("expected default unpaid, got %s", placed.PaymentStatus)
	}

	updated, err := f.orders.UpdatePaymentStatus(staffCtx(), placed.ID.String(), domain.PaymentStatusPaid)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", updated.PaymentStatus)
	}

	if _, err := f.orders.UpdatePaymentStatus(staffCtx(), placed.ID.String(), "refunded"); err != domain.ErrInvalidPaymentStatus {
		t.Fatalf("expected ErrInvalidPaymentStatus, got %v", err)
	}
}

func TestDeleteKeepsStockAuditAndSequence(t *testing.T) {
	f := setupOrderService(t)
	coffee := f.seedProduct(t, "Kopi", "40.00", "55.00", 10)
	buyer := f.seedCustomer(t, "Ibu Sari")

	placed, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines:      []domain.Line{{ProductID: coffee.ID.String(), Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if err := f.orders.Delete(managerCtx(), placed.ID.String()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.orders.Get(managerCtx(), placed.ID.String()); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var items int
	if err := f.db.Raw(`SELECT COUNT(*) FROM order_items WHERE order_id = ?`, placed.ID).Scan(&items).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if items != 0 {
		t.Fatalf("expected cascaded items, got %d", items)
	}

	// Deletion is bookkeeping only: stock and audit history are untouched
	// and the invoice number stays consumed.
	if got := f.productQuantity(t, coffee.ID); got != 8 {
		t.Fatalf("stock changed by delete: %d", got)
	}
	var soldEntries int
	if err := f.db.Raw(`SELECT COUNT(*) FROM audit_logs WHERE action LIKE 'sold%'`).Scan(&soldEntries).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	if soldEntries != 1 {
		t.Fatalf("audit history changed by delete: %d", soldEntries)
	}

	next, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines:      []domain.Line{{ProductID: coffee.ID.String(), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place after delete: %v", err)
	}
	if next.InvoiceID != "INV-2026-0002" {
		t.Fatalf("deleted order released its number: %s", next.InvoiceID)
	}
}

func TestInvoiceSequenceRollsOverByYear(t *testing.T) {
	f := setupOrderService(t)
	coffee := f.seedProduct(t, "Kopi", "40.00", "55.00", 10)
	buyer := f.seedCustomer(t, "Ibu Sari")

	first, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines:      []domain.Line{{ProductID: coffee.ID.String(), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if first.InvoiceID != "INV-2026-0001" {
		t.Fatalf("unexpected invoice id: %s", first.InvoiceID)
	}

	// Cross into the next year; the sequence restarts at 1.
	f.clock.Advance(365 * 24 * time.Hour)
	second, err := f.orders.Place(staffCtx(), domain.PlaceRequest{
		CustomerID: buyer.ID.String(),
		Lines:      []domain.Line{{ProductID: coffee.ID.String(), Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place in new year: %v", err)
	}
	if second.InvoiceID != "INV-2027-0001" {
		t.Fatalf("expected INV-2027-0001, got %s", second.InvoiceID)
	}
}
