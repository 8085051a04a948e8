package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateProduct     OutboxAggregateType = "product"
	AggregateReservation OutboxAggregateType = "reservation"
	AggregateAdjustment  OutboxAggregateType = "adjustment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateProduct,
	AggregateReservation,
	AggregateAdjustment,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order_created"
	EventOrderStateChanged   OutboxEventType = "order_state_changed"
	EventOrderCancelled      OutboxEventType = "order_cancelled"
	EventReservationReleased OutboxEventType = "reservation_released"
	EventAdjustmentDecided   OutboxEventType = "adjustment_decided"
	EventLowStock            OutboxEventType = "low_stock"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStateChanged,
	EventOrderCancelled,
	EventReservationReleased,
	EventAdjustmentDecided,
	EventLowStock,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// RecipientType selects the audience for a notification intent.
type RecipientType string

const (
	RecipientAdmin    RecipientType = "admin"
	RecipientCustomer RecipientType = "customer"
)

// IsValid reports whether the value is a known RecipientType.
func (r RecipientType) IsValid() bool {
	return r == RecipientAdmin || r == RecipientCustomer
}
