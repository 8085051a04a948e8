package enums

import "fmt"

// AuditOperation names the ledger mutation recorded in the audit log.
type AuditOperation string

const (
	AuditOperationOrderDeduction     AuditOperation = "order_deduction"
	AuditOperationReservationHold    AuditOperation = "reservation_hold"
	AuditOperationReservationRelease AuditOperation = "reservation_release"
	AuditOperationReservationFulfill AuditOperation = "reservation_fulfill"
	AuditOperationAdjustmentApproval AuditOperation = "adjustment_approval"
	AuditOperationOrderCancelRestock AuditOperation = "order_cancel_restock"
)

var validAuditOperations = []AuditOperation{
	AuditOperationOrderDeduction,
	AuditOperationReservationHold,
	AuditOperationReservationRelease,
	AuditOperationReservationFulfill,
	AuditOperationAdjustmentApproval,
	AuditOperationOrderCancelRestock,
}

// String implements fmt.Stringer.
func (a AuditOperation) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditOperation.
func (a AuditOperation) IsValid() bool {
	for _, candidate := range validAuditOperations {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditOperation converts raw input into an AuditOperation.
func ParseAuditOperation(value string) (AuditOperation, error) {
	for _, candidate := range validAuditOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit operation %q", value)
}
