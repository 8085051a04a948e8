package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lunamercado/storefront-backend/internal/ledger"
	"github.com/lunamercado/storefront-backend/pkg/db/models"
	"github.com/lunamercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/lunamercado/storefront-backend/pkg/errors"
	"github.com/lunamercado/storefront-backend/pkg/outbox"
	"github.com/lunamercado/storefront-backend/pkg/outbox/payloads"
)

// UpdateStatus drives the order status state machine. Only changes that
// differ from the stored values count: a repeat of the current status is a
// no-op that bumps nothing and emits nothing. Every real transition emits
// exactly one notification intent. Shipping converts the order's active
// holds into fulfilled deductions; cancelling releases them and restocks
// the units deducted at checkout.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": *input.Status})
	}
	if input.PaymentStatus != nil && !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").
			WithDetails(map[string]any{"payment_status": *input.PaymentStatus})
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		prevStatus := order.Status
		prevPayment := order.PaymentStatus

		statusChanged := input.Status != nil && *input.Status != order.Status
		paymentChanged := input.PaymentStatus != nil && *input.PaymentStatus != order.PaymentStatus
		trackingChanged := input.TrackingNumber != nil &&
			(order.TrackingNumber == nil || *order.TrackingNumber != *input.TrackingNumber)

		if !statusChanged && !paymentChanged && !trackingChanged {
			updated = order
			return nil
		}

		now := s.now().UTC()
		releasedReservations := 0

		if statusChanged {
			next := *input.Status
			if !order.Status.CanTransitionTo(next) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "illegal order status transition").
					WithDetails(map[string]any{
						"order_id": order.ID,
						"from":     order.Status,
						"to":       next,
					})
			}
			order.Status = next
			switch next {
			case enums.OrderStatusShipped:
				if order.ShippedDate == nil {
					order.ShippedDate = &now
				}
				if err := s.fulfilHolds(ctx, tx, order.ID); err != nil {
					return err
				}
			case enums.OrderStatusDelivered:
				if order.DeliveredDate == nil {
					order.DeliveredDate = &now
				}
			case enums.OrderStatusCancelled:
				order.CancelledAt = &now
				releasedReservations, err = s.releaseHoldsAndRestock(ctx, tx, order, input.ActorID)
				if err != nil {
					return err
				}
			}
		}

		if paymentChanged {
			next := *input.PaymentStatus
			if !order.PaymentStatus.CanTransitionTo(next) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "illegal payment status transition").
					WithDetails(map[string]any{
						"order_id": order.ID,
						"from":     order.PaymentStatus,
						"to":       next,
					})
			}
			order.PaymentStatus = next
		}

		if trackingChanged {
			order.TrackingNumber = input.TrackingNumber
		}

		ok, err := repo.SaveTransition(ctx, order, order.Version)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order transition")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeTransientConflict, "order changed concurrently, re-read and retry").
				WithDetails(map[string]any{"order_id": order.ID})
		}

		event := outbox.DomainEvent{
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Actor:         actorFor(input.ActorID),
		}
		if statusChanged && order.Status == enums.OrderStatusCancelled {
			event.EventType = enums.EventOrderCancelled
			event.Data = payloads.OrderCancelled{
				OrderID:               order.ID,
				OrderNumber:           order.OrderNumber,
				ReleasedReservations:  releasedReservations,
				PreviousPaymentStatus: prevPayment,
				PaymentStatus:         order.PaymentStatus,
				CancelledAt:           now,
			}
		} else {
			event.EventType = enums.EventOrderStateChanged
			event.Data = payloads.OrderStateChanged{
				OrderID:               order.ID,
				OrderNumber:           order.OrderNumber,
				Recipient:             enums.RecipientCustomer,
				PreviousStatus:        prevStatus,
				NewStatus:             order.Status,
				PreviousPaymentStatus: prevPayment,
				NewPaymentStatus:      order.PaymentStatus,
				TrackingChanged:       trackingChanged,
			}
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel is UpdateStatus sugar for the cancellation transition.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID) (*models.Order, error) {
	cancelled := enums.OrderStatusCancelled
	return s.UpdateStatus(ctx, orderID, UpdateStatusInput{
		Status:  &cancelled,
		ActorID: actorID,
	})
}

// fulfilHolds converts the order's active holds into fulfilled deductions
// when the order leaves the warehouse. Holds that already reached a terminal
// status are skipped.
func (s *service) fulfilHolds(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	active, err := s.reservationRepo.WithTx(tx).FindActiveByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order reservations")
	}
	for _, reservation := range active {
		if _, err := s.holds.ReleaseInTx(ctx, tx, reservation.ID, enums.ReleaseReasonFulfilled); err != nil {
			return err
		}
	}
	return nil
}

// releaseHoldsAndRestock returns a cancelled order's stock. Active holds go
// back to the sellable pool and the units deducted at checkout are restocked.
// The two are independent: an order can carry both a checkout deduction and
// an attached hold, and cancellation must undo each.
func (s *service) releaseHoldsAndRestock(ctx context.Context, tx *gorm.DB, order *models.Order, actorID *uuid.UUID) (int, error) {
	active, err := s.reservationRepo.WithTx(tx).FindActiveByOrder(ctx, order.ID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order reservations")
	}

	released := 0
	for _, reservation := range active {
		moved, err := s.holds.ReleaseInTx(ctx, tx, reservation.ID, enums.ReleaseReasonCancelled)
		if err != nil {
			return released, err
		}
		if moved {
			released++
		}
	}

	for _, item := range order.Items {
		snap, err := s.ledger.GetAvailable(ctx, tx, item.ProductID)
		if err != nil {
			return released, err
		}
		if _, err := s.ledger.ApplyDelta(ctx, tx, ledger.Delta{
			ProductID:       item.ProductID,
			Physical:        item.Quantity,
			ExpectedVersion: snap.Version,
			Operation:       enums.AuditOperationOrderCancelRestock,
			OrderID:         &order.ID,
			ActorID:         actorID,
		}); err != nil {
			return released, err
		}
	}
	return released, nil
}
