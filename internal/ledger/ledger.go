package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lunamercado/storefront-backend/pkg/db/models"
	"github.com/lunamercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/lunamercado/storefront-backend/pkg/errors"
)

// Delta describes one atomic mutation of a product's stock counters.
type Delta struct {
	ProductID       uuid.UUID
	Physical        int
	Reserved        int
	ExpectedVersion int
	Operation       enums.AuditOperation
	OrderID         *uuid.UUID
	ActorID         *uuid.UUID
}

// Ledger is the single mutation path for product stock counters. Every
// successful ApplyDelta bumps the row version by exactly one and appends an
// audit row in the caller's transaction.
type Ledger struct {
	now func() time.Time
}

func New() *Ledger {
	return &Ledger{now: time.Now}
}

// Snapshot is a point-in-time read of a product's counters.
type Snapshot struct {
	ProductID    uuid.UUID
	Physical     int
	Reserved     int
	Available    int
	ReorderPoint int
	Version      int
	Status       enums.StockStatus
}

// GetAvailable reads the current availability and version for a product.
func (l *Ledger) GetAvailable(ctx context.Context, db *gorm.DB, productID uuid.UUID) (*Snapshot, error) {
	var product models.Product
	err := db.WithContext(ctx).
		Select("id", "physical_stock", "reserved_stock", "reorder_point", "version").
		First(&product, "id = ?", productID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product stock")
	}
	return &Snapshot{
		ProductID:    product.ID,
		Physical:     product.PhysicalStock,
		Reserved:     product.ReservedStock,
		Available:    product.AvailableStock(),
		ReorderPoint: product.ReorderPoint,
		Version:      product.Version,
		Status:       product.StockStatus(),
	}, nil
}

// ApplyDelta mutates the counters under optimistic locking. It fails with
// StaleVersion when ExpectedVersion no longer matches the row, and with
// InvariantViolation when the delta would leave reserved above physical or
// either counter negative. Returns the new row version.
func (l *Ledger) ApplyDelta(ctx context.Context, tx *gorm.DB, d Delta) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for ledger mutation")
	}
	if d.Physical == 0 && d.Reserved == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "delta must change at least one counter")
	}
	if !d.Operation.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown ledger operation")
	}

	var product models.Product
	err := tx.WithContext(ctx).First(&product, "id = ?", d.ProductID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found").
				WithDetails(map[string]any{"product_id": d.ProductID})
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product for delta")
	}

	if product.Version != d.ExpectedVersion {
		return 0, pkgerrors.New(pkgerrors.CodeStaleVersion, "product version changed").
			WithDetails(map[string]any{
				"product_id":       d.ProductID,
				"expected_version": d.ExpectedVersion,
				"current_version":  product.Version,
			})
	}

	newPhysical := product.PhysicalStock + d.Physical
	newReserved := product.ReservedStock + d.Reserved
	if newPhysical < 0 || newReserved < 0 || newReserved > newPhysical {
		return 0, pkgerrors.New(pkgerrors.CodeInvariant, "delta would violate stock invariant").
			WithDetails(map[string]any{
				"product_id":   d.ProductID,
				"physical":     newPhysical,
				"reserved":     newReserved,
				"delta_phys":   d.Physical,
				"delta_resrvd": d.Reserved,
			})
	}

	newVersion := product.Version + 1
	res := tx.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND version = ?", d.ProductID, d.ExpectedVersion).
		Updates(map[string]any{
			"physical_stock":    newPhysical,
			"reserved_stock":    newReserved,
			"version":           newVersion,
			"last_stock_update": l.nowUTC(),
		})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update product stock")
	}
	if res.RowsAffected == 0 {
		// Lost the race between the read above and the compare-and-swap.
		return 0, pkgerrors.New(pkgerrors.CodeStaleVersion, "product version changed").
			WithDetails(map[string]any{
				"product_id":       d.ProductID,
				"expected_version": d.ExpectedVersion,
			})
	}

	entry := models.InventoryAuditLog{
		ProductID:           d.ProductID,
		OperationType:       d.Operation,
		PhysicalStockBefore: product.PhysicalStock,
		PhysicalStockAfter:  newPhysical,
		ReservedStockBefore: product.ReservedStock,
		ReservedStockAfter:  newReserved,
		OrderID:             d.OrderID,
		UserID:              d.ActorID,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append audit log")
	}

	return newVersion, nil
}

func (l *Ledger) nowUTC() time.Time {
	if l.now != nil {
		return l.now().UTC()
	}
	return time.Now().UTC()
}
