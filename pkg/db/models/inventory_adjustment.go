package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/pkg/enums"
)

// InventoryAdjustment is a human-initiated stock correction that only touches
// the ledger once a reviewer approves it.
type InventoryAdjustment struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ProductID             uuid.UUID            `gorm:"column:product_id;type:uuid;not null;index"`
	AdjustmentType        enums.AdjustmentType `gorm:"column:adjustment_type;type:adjustment_type;not null"`
	ReasonCode            string               `gorm:"column:reason_code;not null"`
	QuantityAdjusted      int                  `gorm:"column:quantity_adjusted;not null"`
	PreviousPhysicalStock int                  `gorm:"column:previous_physical_stock;not null"`
	NewPhysicalStock      *int                 `gorm:"column:new_physical_stock"`
	ApprovalStatus        enums.ApprovalStatus `gorm:"column:approval_status;type:approval_status;not null;default:'pending'"`
	RequestedBy           uuid.UUID            `gorm:"column:requested_by;type:uuid;not null"`
	ApprovedBy            *uuid.UUID           `gorm:"column:approved_by;type:uuid"`
	Description           *string              `gorm:"column:description"`
	ReviewNotes           *string              `gorm:"column:review_notes"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	ApprovedAt            *time.Time           `gorm:"column:approved_at"`
}
