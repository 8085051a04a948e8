package inventory

import (
	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/pkg/enums"
)

type adjustmentRequest struct {
	ProductID   uuid.UUID            `json:"product_id" validate:"required"`
	Type        enums.AdjustmentType `json:"adjustment_type" validate:"required"`
	ReasonCode  string               `json:"reason_code" validate:"required"`
	Quantity    int                  `json:"quantity" validate:"required"`
	Description *string              `json:"description,omitempty"`
}

type adjustmentDecisionRequest struct {
	Decision    enums.ApprovalStatus `json:"decision" validate:"required"`
	ReviewNotes *string              `json:"review_notes,omitempty"`
}

type holdRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	OrderID   uuid.UUID `json:"order_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type releaseRequest struct {
	Reason enums.ReleaseReason `json:"reason" validate:"required"`
}
