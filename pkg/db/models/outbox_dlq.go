package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/pkg/enums"
)

// OutboxDLQ parks events that exhausted their publish attempts.
type OutboxDLQ struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	EventID     uuid.UUID             `gorm:"column:event_id;type:uuid;not null;index"`
	EventType   enums.OutboxEventType `gorm:"column:event_type;type:event_type;not null"`
	AggregateID uuid.UUID             `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload     json.RawMessage       `gorm:"column:payload;type:jsonb;not null"`
	Reason      string                `gorm:"column:reason;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
