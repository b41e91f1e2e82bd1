package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/toko/internal/actorcontext"
	auditdomain "github.com/smallbiznis/toko/internal/audit/domain"
	auditrepository "github.com/smallbiznis/toko/internal/audit/repository"
	auditservice "github.com/smallbiznis/toko/internal/audit/service"
	"github.com/smallbiznis/toko/internal/clock"
	"github.com/smallbiznis/toko/internal/product/domain"
	"github.com/smallbiznis/toko/internal/product/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProductService(t *testing.T) (domain.Service, *gorm.DB) {
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

	if err := db.AutoMigrate(&domain.Product{}, &auditdomain.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node := mustNode(t)
	fake := clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))

	auditSvc := auditservice.New(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  auditrepository.Provide(),
	})

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
		Audit: auditSvc,
	})

	return svc, db
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
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

func auditActions(t *testing.T, db *gorm.DB, productID snowflake.ID) []string {
	t.Helper()
	var actions []string
	err := db.Raw(
		`SELECT action FROM audit_logs WHERE product_id = ? ORDER BY id`,
		productID,
	).Scan(&actions).Error
	if err != nil {
		t.Fatalf("load audit actions: %v", err)
	}
	return actions
}

func TestCreateWritesAuditEntry(t *testing.T) {
	svc, db := setupProductService(t)

	resp, err := svc.Create(managerCtx(), domain.CreateRequest{
		Name:          "Kopi Gayo 250g",
		PurchasePrice: decimal.RequireFromString("42.00"),
		SellingPrice:  decimal.RequireFromString("55.00"),
		Quantity:      12,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	actions := auditActions(t, db, resp.ID)
	if len(actions) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(actions))
	}
	if actions[0] != "created with quantity 12" {
		t.Fatalf("unexpected action: %q", actions[0])
	}

	var actorID string
	if err := db.Raw(`SELECT actor_id FROM audit_logs WHERE product_id = ?`, resp.ID).Scan(&actorID).Error; err != nil {
		t.Fatalf("load actor: %v", err)
	}
	if actorID != "manager-1" {
		t.Fatalf("expected actor manager-1, got %q", actorID)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := setupProductService(t)

	if _, err := svc.Create(managerCtx(), domain.CreateRequest{Name: "  "}); err != domain.ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := svc.Create(managerCtx(), domain.CreateRequest{
		Name:          "x",
		PurchasePrice: decimal.RequireFromString("-1"),
	}); err != domain.ErrInvalidPrice {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if _, err := svc.Create(managerCtx(), domain.CreateRequest{
		Name:     "x",
		Quantity: -3,
	}); err != domain.ErrInvalidQuantity {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestUpdatePriceOnlyProducesOneEntry(t *testing.T) {
	svc, db := setupProductService(t)

	created, err := svc.Create(managerCtx(), domain.CreateRequest{
		Name:          "Teh Melati",
		PurchasePrice: decimal.RequireFromString("8.00"),
		SellingPrice:  decimal.RequireFromString("12.00"),
		Quantity:      5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newPrice := decimal.RequireFromString("14.00")
	if _, err := svc.Update(managerCtx(), domain.UpdateRequest{
		ID:           created.ID.String(),
		SellingPrice: &newPrice,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	actions := auditActions(t, db, created.ID)
	if len(actions) != 2 {
		t.Fatalf("expected exactly 2 audit entries, got %d: %v", len(actions), actions)
	}
	if actions[1] != "selling_price changed from 12.00 to 14.00" {
		t.Fatalf("unexpected action: %q", actions[1])
	}
}

func TestUpdateAppendsReason(t *testing.T) {
	svc, db := setupProductService(t)

	created, err := svc.Create(managerCtx(), domain.CreateRequest{
		Name:          "Gula Aren",
		PurchasePrice: decimal.RequireFromString("5.00"),
		SellingPrice:  decimal.RequireFromString("7.50"),
		Quantity:      20,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	qty := 35
	if _, err := svc.Update(managerCtx(), domain.UpdateRequest{
		ID:       created.ID.String(),
		Quantity: &qty,
		Reason:   "restock",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	actions := auditActions(t, db, created.ID)
	if len(actions) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(actions))
	}
	if actions[1] != "quantity changed from 20 to 35 (restock)" {
		t.Fatalf("unexpected action: %q", actions[1])
	}
}

func TestProfitMarginVisibility(t *testing.T) {
	svc, _ := setupProductService(t)

	created, err := svc.Create(managerCtx(), domain.CreateRequest{
		Name:          "Beras 5kg",
		PurchasePrice: decimal.RequireFromString("60.00"),
		SellingPrice:  decimal.RequireFromString("72.00"),
		Quantity:      8,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	asManager, err := svc.Get(managerCtx(), created.ID.String())
	if err != nil {
		t.Fatalf("get as manager: %v", err)
	}
	if asManager.ProfitMargin == nil {
		t.Fatal("expected profit margin for manager")
	}
	if !asManager.ProfitMargin.Equal(decimal.RequireFromString("12.00")) {
		t.Fatalf("unexpected margin: %s", asManager.ProfitMargin)
	}

	asStaff, err := svc.Get(staffCtx(), created.ID.String())
	if err != nil {
		t.Fatalf("get as staff: %v", err)
	}
	if asStaff.ProfitMargin != nil || asStaff.PurchasePrice != nil {
		t.Fatal("staff must not see cost figures")
	}
}

func TestDeactivateHidesFromListingButKeepsHistory(t *testing.T) {
	svc, db := setupProductService(t)

	created, err := svc.Create(managerCtx(), domain.CreateRequest{
		Name:          "Sabun Cuci",
		PurchasePrice: decimal.RequireFromString("3.00"),
		SellingPrice:  decimal.RequireFromString("4.50"),
		Quantity:      15,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Deactivate(managerCtx(), created.ID.String()); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	listed, err := svc.List(managerCtx(), domain.ListRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, product := range listed {
		if product.ID == created.ID {
			t.Fatal("deactivated product still listed")
		}
	}

	withInactive, err := svc.List(managerCtx(), domain.ListRequest{IncludeInactive: true})
	if err != nil {
		t.Fatalf("list inactive: %v", err)
	}
	found := false
	for _, product := range withInactive {
		if product.ID == created.ID {
			found = true
			if product.IsActive {
				t.Fatal("product should be inactive")
			}
		}
	}
	if !found {
		t.Fatal("inactive product missing from unfiltered listing")
	}

	if actions := auditActions(t, db, created.ID); len(actions) != 1 {
		t.Fatalf("audit history changed by deactivation: %v", actions)
	}

	if err := svc.Reactivate(managerCtx(), created.ID.String()); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	got, err := svc.Get(managerCtx(), created.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsActive {
		t.Fatal("product should be active again")
	}
}

func TestReserveInsufficientStockLeavesRowUntouched(t *testing.T) {
	svc, db := setupProductService(t)

	created, err := svc.Create(managerCtx(), domain.CreateRequest{
		Name:          "Minyak Goreng",
		PurchasePrice: decimal.RequireFromString("14.00"),
		SellingPrice:  decimal.RequireFromString("16.00"),
		Quantity:      4,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Reserve(managerCtx(), tx, created.ID, 9)
		return err
	})
	stockErr, ok := err.(*domain.InsufficientStockError)
	if !ok {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Requested != 9 || stockErr.Available != 4 {
		t.Fatalf("unexpected shortage details: %+v", stockErr)
	}

	got, err := svc.Get(managerCtx(), created.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Quantity != 4 {
		t.Fatalf("stock mutated by failed reserve: %d", got.Quantity)
	}
}

func TestReserveAndRestore(t *testing.T) {
	svc, db := setupProductService(t)

	created, err := svc.Create(managerCtx(), domain.CreateRequest{
		Name:          "Telur 1kg",
		PurchasePrice: decimal.RequireFromString("22.00"),
		SellingPrice:  decimal.RequireFromString("26.00"),
		Quantity:      10,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		snapshot, err := svc.Reserve(managerCtx(), tx, created.ID, 6)
		if err != nil {
			return err
		}
		if snapshot.Quantity != 10 {
			t.Fatalf("expected pre-decrement snapshot, got quantity %d", snapshot.Quantity)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	got, _ := svc.Get(managerCtx(), created.ID.String())
	if got.Quantity != 4 {
		t.Fatalf("expected 4 after reserve, got %d", got.Quantity)
	}

	if err := svc.Restore(managerCtx(), db, created.ID, 2); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, _ = svc.Get(managerCtx(), created.ID.String())
	if got.Quantity != 6 {
		t.Fatalf("expected 6 after restore, got %d", got.Quantity)
	}
}

func TestReserveInactiveProduct(t *testing.T) {
	svc, db := setupProductService(t)

	created, err := svc.Create(managerCtx(), domain.CreateRequest{
		Name:          "Produk Lama",
		PurchasePrice: decimal.RequireFromString("1.00"),
		SellingPrice:  decimal.RequireFromString("2.00"),
		Quantity:      5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Deactivate(managerCtx(), created.ID.String()); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Reserve(managerCtx(), tx, created.ID, 1)
		return err
	})
	if _, ok := err.(*domain.UnavailableError); !ok {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
}
