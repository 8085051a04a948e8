package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/pkg/enums"
	"github.com/lunamercado/storefront-backend/pkg/types"
)

// Order is the customer-facing order aggregate. Guest orders leave CustomerID
// nil and carry the guest's contact details instead.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string              `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	CustomerID      *uuid.UUID          `gorm:"column:customer_id;type:uuid;index"`
	GuestEmail      *string             `gorm:"column:guest_email"`
	GuestName       *string             `gorm:"column:guest_name"`
	Status          enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentMethod   string              `gorm:"column:payment_method;not null"`
	SubtotalCents   int                 `gorm:"column:subtotal_cents;not null"`
	TaxCents        int                 `gorm:"column:tax_cents;not null;default:0"`
	TotalCents      int                 `gorm:"column:total_cents;not null"`
	ShippingAddress *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress  *types.Address      `gorm:"column:billing_address;type:jsonb;serializer:json"`
	TrackingNumber  *string             `gorm:"column:tracking_number"`
	Version         int                 `gorm:"column:version;not null;default:1"`
	ShippedDate     *time.Time          `gorm:"column:shipped_date"`
	DeliveredDate   *time.Time          `gorm:"column:delivered_date"`
	CancelledAt     *time.Time          `gorm:"column:cancelled_at"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
