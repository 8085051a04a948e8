package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lunamercado/storefront-backend/pkg/db/models"
	"github.com/lunamercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/lunamercado/storefront-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.InventoryAuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, physical, reserved, reorder int) models.Product {
	t.Helper()
	product := models.Product{
		ID:            uuid.New(),
		SKU:           "SKU-" + uuid.NewString()[:8],
		Name:          "widget",
		PhysicalStock: physical,
		ReservedStock: reserved,
		ReorderPoint:  reorder,
		Version:       1,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestApplyDeltaDeduction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 10, 0, 2)
	ledger := New()

	err := db.Transaction(func(tx *gorm.DB) error {
		newVersion, err := ledger.ApplyDelta(ctx, tx, Delta{
			ProductID:       product.ID,
			Physical:        -3,
			ExpectedVersion: 1,
			Operation:       enums.AuditOperationOrderDeduction,
		})
		if err != nil {
			return err
		}
		if newVersion != 2 {
			t.Fatalf("expected version 2, got %d", newVersion)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.PhysicalStock != 7 || got.ReservedStock != 0 || got.Version != 2 {
		t.Fatalf("unexpected product state: %+v", got)
	}

	var entries []models.InventoryAuditLog
	if err := db.Find(&entries, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load audit log: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.PhysicalStockBefore != 10 || entry.PhysicalStockAfter != 7 {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
}

func TestApplyDeltaStaleVersion(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 5, 0, 0)
	ledger := New()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.ApplyDelta(ctx, tx, Delta{
			ProductID:       product.ID,
			Physical:        -1,
			ExpectedVersion: 7,
			Operation:       enums.AuditOperationOrderDeduction,
		})
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStaleVersion) {
		t.Fatalf("expected stale version error, got %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.PhysicalStock != 5 || got.Version != 1 {
		t.Fatalf("stale write must not mutate: %+v", got)
	}
}

func TestApplyDeltaInvariant(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := New()

	cases := []struct {
		name     string
		physical int
		reserved int
		delta    Delta
	}{
		{
			name:     "reserved above physical",
			physical: 3,
			reserved: 0,
			delta:    Delta{Reserved: 4, ExpectedVersion: 1, Operation: enums.AuditOperationReservationHold},
		},
		{
			name:     "physical below zero",
			physical: 2,
			reserved: 0,
			delta:    Delta{Physical: -3, ExpectedVersion: 1, Operation: enums.AuditOperationOrderDeduction},
		},
		{
			name:     "reserved below zero",
			physical: 2,
			reserved: 0,
			delta:    Delta{Reserved: -1, ExpectedVersion: 1, Operation: enums.AuditOperationReservationRelease},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			product := seedProduct(t, db, tc.physical, tc.reserved, 0)
			delta := tc.delta
			delta.ProductID = product.ID
			err := db.Transaction(func(tx *gorm.DB) error {
				_, err := ledger.ApplyDelta(ctx, tx, delta)
				return err
			})
			if !pkgerrors.HasCode(err, pkgerrors.CodeInvariant) {
				t.Fatalf("expected invariant error, got %v", err)
			}
		})
	}
}

func TestApplyDeltaUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := New()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.ApplyDelta(context.Background(), tx, Delta{
			ProductID:       uuid.New(),
			Physical:        -1,
			ExpectedVersion: 1,
			Operation:       enums.AuditOperationOrderDeduction,
		})
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
}

func TestGetAvailable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	product := seedProduct(t, db, 10, 4, 3)
	ledger := New()

	snap, err := ledger.GetAvailable(context.Background(), db, product.ID)
	if err != nil {
		t.Fatalf("get available: %v", err)
	}
	if snap.Available != 6 || snap.Version != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Status != enums.StockStatusReserved {
		t.Fatalf("expected reserved status, got %s", snap.Status)
	}
}
