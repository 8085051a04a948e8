package orders

import (
	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/pkg/enums"
	"github.com/lunamercado/storefront-backend/pkg/types"
)

type createLineItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	Items           []createLineItem `json:"items" validate:"required,min=1,dive"`
	GuestEmail      *string          `json:"guest_email,omitempty" validate:"omitempty,email"`
	GuestName       *string          `json:"guest_name,omitempty"`
	PaymentMethod   string           `json:"payment_method" validate:"required"`
	ShippingAddress *types.Address   `json:"shipping_address" validate:"required"`
	BillingAddress  *types.Address   `json:"billing_address,omitempty"`
}

type updateStatusRequest struct {
	Status         *enums.OrderStatus   `json:"status,omitempty"`
	PaymentStatus  *enums.PaymentStatus `json:"payment_status,omitempty"`
	TrackingNumber *string              `json:"tracking_number,omitempty"`
}
