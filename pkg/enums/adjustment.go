package enums

import "fmt"

// AdjustmentType categorizes a manual stock correction.
type AdjustmentType string

const (
	AdjustmentTypePhysicalCount        AdjustmentType = "physical_count"
	AdjustmentTypeDamageWriteoff       AdjustmentType = "damage_writeoff"
	AdjustmentTypeTheftLoss            AdjustmentType = "theft_loss"
	AdjustmentTypeCountingError        AdjustmentType = "counting_error"
	AdjustmentTypeManualCorrection     AdjustmentType = "manual_correction"
	AdjustmentTypeSupplierReturn       AdjustmentType = "supplier_return"
	AdjustmentTypeQualityControlReject AdjustmentType = "quality_control_reject"
)

var validAdjustmentTypes = []AdjustmentType{
	AdjustmentTypePhysicalCount,
	AdjustmentTypeDamageWriteoff,
	AdjustmentTypeTheftLoss,
	AdjustmentTypeCountingError,
	AdjustmentTypeManualCorrection,
	AdjustmentTypeSupplierReturn,
	AdjustmentTypeQualityControlReject,
}

// String implements fmt.Stringer.
func (a AdjustmentType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AdjustmentType.
func (a AdjustmentType) IsValid() bool {
	for _, candidate := range validAdjustmentTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAdjustmentType converts raw input into an AdjustmentType.
func ParseAdjustmentType(value string) (AdjustmentType, error) {
	for _, candidate := range validAdjustmentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid adjustment type %q", value)
}

// ApprovalStatus tracks the review state of an adjustment.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// String implements fmt.Stringer.
func (a ApprovalStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ApprovalStatus.
func (a ApprovalStatus) IsValid() bool {
	switch a {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
		return true
	default:
		return false
	}
}
