package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/pkg/enums"
)

// StockReservation is a time-bounded hold against a product's reserved counter.
type StockReservation struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	OrderID    uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	Quantity   int                     `gorm:"column:quantity;not null"`
	Status     enums.ReservationStatus `gorm:"column:status;type:reservation_status;not null;default:'active'"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt  time.Time               `gorm:"column:expires_at;not null;index"`
	ReleasedAt *time.Time              `gorm:"column:released_at"`
}
