package reservations

import (
	"context"
	"testing"
	"time"

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
	dsn := "file:reservations_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.StockReservation{}, &models.InventoryAuditLog{}); err != nil {
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

func TestReserveHoldsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, 10)
	svc := newTestService(t, db, &stubOutbox{})

	reservation, err := svc.Reserve(context.Background(), product.ID, uuid.New(), 4)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if reservation.Status != enums.ReservationStatusActive {
		t.Fatalf("expected active reservation, got %s", reservation.Status)
	}
	if reservation.ExpiresAt.Before(time.Now().Add(23 * time.Hour)) {
		t.Fatalf("expected ~24h expiry, got %s", reservation.ExpiresAt)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.PhysicalStock != 10 || got.ReservedStock != 4 {
		t.Fatalf("unexpected counters: %+v", got)
	}
	if got.AvailableStock() != 6 {
		t.Fatalf("expected 6 available, got %d", got.AvailableStock())
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, 2)
	svc := newTestService(t, db, &stubOutbox{})

	_, err := svc.Reserve(context.Background(), product.ID, uuid.New(), 3)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.ReservedStock != 0 || got.Version != 1 {
		t.Fatalf("failed reserve must not mutate: %+v", got)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, 5)
	svc := newTestService(t, db, &stubOutbox{})
	ctx := context.Background()

	reservation, err := svc.Reserve(ctx, product.ID, uuid.New(), 2)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := svc.Release(ctx, reservation.ID, enums.ReleaseReasonCancelled); err != nil {
		t.Fatalf("first release: %v", err)
	}
	// Second release of a terminal reservation is a no-op, not an error.
	if err := svc.Release(ctx, reservation.ID, enums.ReleaseReasonCancelled); err != nil {
		t.Fatalf("second release: %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.PhysicalStock != 5 || got.ReservedStock != 0 {
		t.Fatalf("double release leaked stock: %+v", got)
	}
}

func TestReleaseFulfilledDeductsPhysical(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, 5)
	svc := newTestService(t, db, &stubOutbox{})
	ctx := context.Background()

	reservation, err := svc.Reserve(ctx, product.ID, uuid.New(), 2)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.Release(ctx, reservation.ID, enums.ReleaseReasonFulfilled); err != nil {
		t.Fatalf("release fulfilled: %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.PhysicalStock != 3 || got.ReservedStock != 0 {
		t.Fatalf("unexpected counters after fulfilment: %+v", got)
	}
}

func TestExpireDueReleasesPastHolds(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, 8)
	sink := &stubOutbox{}
	svc := newTestService(t, db, sink)
	ctx := context.Background()

	reservation, err := svc.Reserve(ctx, product.ID, uuid.New(), 3)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	// Backdate the expiry so the sweep picks it up.
	if err := db.Model(&models.StockReservation{}).
		Where("id = ?", reservation.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate reservation: %v", err)
	}

	released, err := svc.ExpireDue(ctx, 50)
	if err != nil {
		t.Fatalf("expire due: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 release, got %d", released)
	}

	var got models.StockReservation
	if err := db.First(&got, "id = ?", reservation.ID).Error; err != nil {
		t.Fatalf("reload reservation: %v", err)
	}
	if got.Status != enums.ReservationStatusExpired {
		t.Fatalf("expected expired status, got %s", got.Status)
	}

	var prod models.Product
	if err := db.First(&prod, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if prod.ReservedStock != 0 || prod.AvailableStock() != 8 {
		t.Fatalf("expired hold did not return stock: %+v", prod)
	}

	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventReservationReleased {
		t.Fatalf("expected one reservation_released event, got %+v", sink.events)
	}
}
