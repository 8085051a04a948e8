package enums

import "fmt"

// ReservationStatus tracks the lifecycle of a stock reservation.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusFulfilled ReservationStatus = "fulfilled"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusActive,
	ReservationStatusFulfilled,
	ReservationStatusCancelled,
	ReservationStatusExpired,
}

// String implements fmt.Stringer.
func (r ReservationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the reservation can no longer change.
func (r ReservationStatus) IsTerminal() bool {
	return r == ReservationStatusFulfilled || r == ReservationStatusCancelled || r == ReservationStatusExpired
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}

// ReleaseReason is the caller-declared reason for releasing a reservation.
type ReleaseReason string

const (
	ReleaseReasonCancelled ReleaseReason = "cancelled"
	ReleaseReasonExpired   ReleaseReason = "expired"
	ReleaseReasonFulfilled ReleaseReason = "fulfilled"
)

// IsValid reports whether the value is a known ReleaseReason.
func (r ReleaseReason) IsValid() bool {
	switch r {
	case ReleaseReasonCancelled, ReleaseReasonExpired, ReleaseReasonFulfilled:
		return true
	default:
		return false
	}
}

// Status maps a release reason to the reservation status it produces.
func (r ReleaseReason) Status() ReservationStatus {
	switch r {
	case ReleaseReasonExpired:
		return ReservationStatusExpired
	case ReleaseReasonFulfilled:
		return ReservationStatusFulfilled
	default:
		return ReservationStatusCancelled
	}
}
