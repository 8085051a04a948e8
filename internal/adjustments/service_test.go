package adjustments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lunamercado/storefront-backend/internal/ledger"
	"github.com/lunamercado/storefront-backend/pkg/db/models"
	"github.com/lunamercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/lunamercado/storefront-backend/pkg/errors"
	"github.com/lunamercado/storefront-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:adjustments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.InventoryAdjustment{}, &models.InventoryAuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, sink *stubOutbox) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(db),
		Tx:     gormTxRunner{db: db},
		Ledger: ledger.New(),
		Outbox: sink,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, physical int) models.Product {
	t.Helper()
	product := models.Product{
		ID:            uuid.New(),
		SKU:           "SKU-" + uuid.NewString()[:8],
		Name:          "widget",
		PhysicalStock: physical,
		Version:       1,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func requestAdjustment(t *testing.T, svc Service, productID uuid.UUID, qty int) *models.InventoryAdjustment {
	t.Helper()
	adjustment, err := svc.Request(context.Background(), RequestInput{
		ProductID:   productID,
		Type:        enums.AdjustmentTypePhysicalCount,
		ReasonCode:  "cycle_count",
		Quantity:    qty,
		RequestedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("request adjustment: %v", err)
	}
	return adjustment
}

func TestRequestCreatesPendingWithoutLedgerEffect(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, 20)
	svc := newTestService(t, db, &stubOutbox{})

	adjustment := requestAdjustment(t, svc, product.ID, 5)
	if adjustment.ApprovalStatus != enums.ApprovalStatusPending {
		t.Fatalf("expected pending, got %s", adjustment.ApprovalStatus)
	}
	if adjustment.PreviousPhysicalStock != 20 {
		t.Fatalf("expected stock snapshot 20, got %d", adjustment.PreviousPhysicalStock)
	}
	if adjustment.NewPhysicalStock != nil {
		t.Fatalf("pending adjustment must not carry a result stock")
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.PhysicalStock != 20 || got.Version != 1 {
		t.Fatalf("request must not touch the ledger: %+v", got)
	}
}

func TestApproveAppliesDelta(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, 20)
	sink := &stubOutbox{}
	svc := newTestService(t, db, sink)
	approver := uuid.New()

	adjustment := requestAdjustment(t, svc, product.ID, 5)
	decided, err := svc.Decide(context.Background(), adjustment.ID, enums.ApprovalStatusApproved, approver, nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if decided.ApprovalStatus != enums.ApprovalStatusApproved {
		t.Fatalf("expected approved, got %s", decided.ApprovalStatus)
	}
	if decided.NewPhysicalStock == nil || *decided.NewPhysicalStock != 25 {
		t.Fatalf("expected new stock 25, got %v", decided.NewPhysicalStock)
	}
	if decided.ApprovedBy == nil || *decided.ApprovedBy != approver || decided.ApprovedAt == nil {
		t.Fatalf("approval stamp missing: %+v", decided)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.PhysicalStock != 25 || got.Version != 2 {
		t.Fatalf("unexpected product state: %+v", got)
	}

	var entries []models.InventoryAuditLog
	if err := db.Find(&entries, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load audit log: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].PhysicalStockBefore != 20 || entries[0].PhysicalStockAfter != 25 {
		t.Fatalf("unexpected audit entry: %+v", entries[0])
	}
	if entries[0].OperationType != enums.AuditOperationAdjustmentApproval {
		t.Fatalf("unexpected operation: %s", entries[0].OperationType)
	}

	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventAdjustmentDecided {
		t.Fatalf("expected one adjustment_decided event, got %+v", sink.events)
	}
}

func TestApproveStaleAdjustment(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, 20)
	svc := newTestService(t, db, &stubOutbox{})

	adjustment := requestAdjustment(t, svc, product.ID, 5)

	// Something else corrects the stock before the reviewer gets to it.
	if err := db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{"physical_stock": 18, "version": 2}).Error; err != nil {
		t.Fatalf("concurrent stock change: %v", err)
	}

	_, err := svc.Decide(context.Background(), adjustment.ID, enums.ApprovalStatusApproved, uuid.New(), nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStaleAdjustment) {
		t.Fatalf("expected stale adjustment, got %v", err)
	}

	var got models.InventoryAdjustment
	if err := db.First(&got, "id = ?", adjustment.ID).Error; err != nil {
		t.Fatalf("reload adjustment: %v", err)
	}
	if got.ApprovalStatus != enums.ApprovalStatusPending {
		t.Fatalf("failed approval must leave the adjustment pending: %+v", got)
	}

	var prod models.Product
	if err := db.First(&prod, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if prod.PhysicalStock != 18 || prod.Version != 2 {
		t.Fatalf("failed approval must not touch the ledger: %+v", prod)
	}
}

func TestDecideTwiceFails(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, 20)
	svc := newTestService(t, db, &stubOutbox{})
	ctx := context.Background()

	adjustment := requestAdjustment(t, svc, product.ID, 5)
	if _, err := svc.Decide(ctx, adjustment.ID, enums.ApprovalStatusApproved, uuid.New(), nil); err != nil {
		t.Fatalf("first decision: %v", err)
	}

	_, err := svc.Decide(ctx, adjustment.ID, enums.ApprovalStatusApproved, uuid.New(), nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict on second decision, got %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.PhysicalStock != 25 || got.Version != 2 {
		t.Fatalf("second decision must not re-apply: %+v", got)
	}
}

func TestRejectIsAPureFlip(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, 20)
	sink := &stubOutbox{}
	svc := newTestService(t, db, sink)
	notes := "numbers do not match the count sheet"

	adjustment := requestAdjustment(t, svc, product.ID, -3)
	decided, err := svc.Decide(context.Background(), adjustment.ID, enums.ApprovalStatusRejected, uuid.New(), &notes)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if decided.ApprovalStatus != enums.ApprovalStatusRejected {
		t.Fatalf("expected rejected, got %s", decided.ApprovalStatus)
	}
	if decided.NewPhysicalStock != nil {
		t.Fatalf("rejection must not compute a result stock")
	}
	if decided.ReviewNotes == nil || *decided.ReviewNotes != notes {
		t.Fatalf("review notes not saved: %+v", decided)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.PhysicalStock != 20 || got.Version != 1 {
		t.Fatalf("rejection must not touch the ledger: %+v", got)
	}

	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventAdjustmentDecided {
		t.Fatalf("expected one adjustment_decided event, got %+v", sink.events)
	}
}
