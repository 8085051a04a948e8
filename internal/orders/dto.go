package orders

import (
	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/pkg/enums"
	"github.com/lunamercado/storefront-backend/pkg/types"
)

// LineItem is one (product, quantity) pair of a checkout cart.
type LineItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// CustomerInfo identifies the buyer. Authenticated checkouts set CustomerID;
// guest checkouts carry contact details instead.
type CustomerInfo struct {
	CustomerID *uuid.UUID
	GuestEmail *string
	GuestName  *string
}

// CreateOrderInput is the coordinator's contract for one checkout.
type CreateOrderInput struct {
	Customer        CustomerInfo
	ShippingAddress *types.Address
	BillingAddress  *types.Address
	PaymentMethod   string
	Items           []LineItem
}

// UpdateStatusInput carries the requested state changes. Nil fields mean
// "leave as is"; setting a field to its current value is a no-op.
type UpdateStatusInput struct {
	Status         *enums.OrderStatus
	PaymentStatus  *enums.PaymentStatus
	TrackingNumber *string
	ActorID        *uuid.UUID
}

// ShortfallItem describes one line the ledger could not cover.
type ShortfallItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// ListFilter narrows an order listing.
type ListFilter struct {
	CustomerID *uuid.UUID
	Status     *enums.OrderStatus
}
