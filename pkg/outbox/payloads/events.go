package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/pkg/enums"
)

// OrderCreated fires when a checkout commits.
type OrderCreated struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	Recipient   enums.RecipientType `json:"recipient"`
	CustomerID  *uuid.UUID          `json:"customer_id,omitempty"`
	GuestEmail  *string             `json:"guest_email,omitempty"`
	TotalCents  int                 `json:"total_cents"`
	ItemCount   int                 `json:"item_count"`
}

// OrderStateChanged fires once per real status/payment/tracking change.
// No-op updates never produce one.
type OrderStateChanged struct {
	OrderID               uuid.UUID           `json:"order_id"`
	OrderNumber           string              `json:"order_number"`
	Recipient             enums.RecipientType `json:"recipient"`
	PreviousStatus        enums.OrderStatus   `json:"previous_status"`
	NewStatus             enums.OrderStatus   `json:"new_status"`
	PreviousPaymentStatus enums.PaymentStatus `json:"previous_payment_status"`
	NewPaymentStatus      enums.PaymentStatus `json:"new_payment_status"`
	TrackingChanged       bool                `json:"tracking_changed"`
}

// OrderCancelled fires when an order is cancelled, after its reservations
// have been released. It carries the payment transition too, so a cancel
// that also fails the payment still reports both in one intent.
type OrderCancelled struct {
	OrderID               uuid.UUID           `json:"order_id"`
	OrderNumber           string              `json:"order_number"`
	ReleasedReservations  int                 `json:"released_reservations"`
	PreviousPaymentStatus enums.PaymentStatus `json:"previous_payment_status"`
	PaymentStatus         enums.PaymentStatus `json:"payment_status"`
	CancelledAt           time.Time           `json:"cancelled_at"`
}

// ReservationReleased fires from the sweep when a hold expires.
type ReservationReleased struct {
	ReservationID uuid.UUID               `json:"reservation_id"`
	ProductID     uuid.UUID               `json:"product_id"`
	OrderID       uuid.UUID               `json:"order_id"`
	Quantity      int                     `json:"quantity"`
	Reason        enums.ReservationStatus `json:"reason"`
	ReleasedAt    time.Time               `json:"released_at"`
}

// AdjustmentDecided fires when a reviewer approves or rejects an adjustment.
type AdjustmentDecided struct {
	AdjustmentID     uuid.UUID            `json:"adjustment_id"`
	ProductID        uuid.UUID            `json:"product_id"`
	ApprovalStatus   enums.ApprovalStatus `json:"approval_status"`
	QuantityAdjusted int                  `json:"quantity_adjusted"`
	NewPhysicalStock *int                 `json:"new_physical_stock,omitempty"`
	ApprovedBy       uuid.UUID            `json:"approved_by"`
}

// LowStock warns admins when a deduction crosses the reorder point.
type LowStock struct {
	ProductID      uuid.UUID         `json:"product_id"`
	SKU            string            `json:"sku"`
	AvailableStock int               `json:"available_stock"`
	ReorderPoint   int               `json:"reorder_point"`
	Status         enums.StockStatus `json:"status"`
}
