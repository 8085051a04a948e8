package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lunamercado/storefront-backend/internal/ledger"
	"github.com/lunamercado/storefront-backend/pkg/db/models"
	"github.com/lunamercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/lunamercado/storefront-backend/pkg/errors"
	"github.com/lunamercado/storefront-backend/pkg/outbox"
	"github.com/lunamercado/storefront-backend/pkg/outbox/payloads"
)

const DefaultTTL = 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	GetAvailable(ctx context.Context, db *gorm.DB, productID uuid.UUID) (*ledger.Snapshot, error)
	ApplyDelta(ctx context.Context, tx *gorm.DB, d ledger.Delta) (int, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages the reservation lifecycle: taking holds against available
// stock and releasing them back.
type Service interface {
	Reserve(ctx context.Context, productID, orderID uuid.UUID, quantity int) (*models.StockReservation, error)
	Release(ctx context.Context, reservationID uuid.UUID, reason enums.ReleaseReason) error
	ReleaseInTx(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID, reason enums.ReleaseReason) (bool, error)
	ExpireDue(ctx context.Context, batch int) (int, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger stockLedger
	outbox outboxPublisher
	ttl    time.Duration
	now    func() time.Time
}

// ServiceParams configure the reservation service.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Ledger stockLedger
	Outbox outboxPublisher
	TTL    time.Duration
}

// NewService builds a reservation service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reservations repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		ledger: params.Ledger,
		outbox: params.Outbox,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (s *service) Reserve(ctx context.Context, productID, orderID uuid.UUID, quantity int) (*models.StockReservation, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var reservation *models.StockReservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		snap, err := s.ledger.GetAvailable(ctx, tx, productID)
		if err != nil {
			return err
		}
		if snap.Available < quantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for reservation").
				WithDetails(map[string]any{
					"product_id": productID,
					"requested":  quantity,
					"available":  snap.Available,
				})
		}

		if _, err := s.ledger.ApplyDelta(ctx, tx, ledger.Delta{
			ProductID:       productID,
			Reserved:        quantity,
			ExpectedVersion: snap.Version,
			Operation:       enums.AuditOperationReservationHold,
			OrderID:         &orderID,
		}); err != nil {
			return err
		}

		now := s.now().UTC()
		reservation = &models.StockReservation{
			ProductID: productID,
			OrderID:   orderID,
			Quantity:  quantity,
			Status:    enums.ReservationStatusActive,
			ExpiresAt: now.Add(s.ttl),
		}
		if err := repo.Create(ctx, reservation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert reservation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *service) Release(ctx context.Context, reservationID uuid.UUID, reason enums.ReleaseReason) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.ReleaseInTx(ctx, tx, reservationID, reason)
		return err
	})
}

// ReleaseInTx releases a hold inside the caller's transaction. Releasing a
// reservation that already reached a terminal status is a no-op, not an
// error. Returns whether stock actually moved.
func (s *service) ReleaseInTx(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID, reason enums.ReleaseReason) (bool, error) {
	if !reason.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "release reason must be cancelled, expired or fulfilled")
	}
	repo := s.repo.WithTx(tx)

	reservation, err := repo.FindByID(ctx, reservationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	if reservation.Status.IsTerminal() {
		return false, nil
	}

	snap, err := s.ledger.GetAvailable(ctx, tx, reservation.ProductID)
	if err != nil {
		return false, err
	}

	delta := ledger.Delta{
		ProductID:       reservation.ProductID,
		Reserved:        -reservation.Quantity,
		ExpectedVersion: snap.Version,
		OrderID:         &reservation.OrderID,
		Operation:       enums.AuditOperationReservationRelease,
	}
	if reason == enums.ReleaseReasonFulfilled {
		// A fulfilled hold leaves the shelf: the reserved units become a
		// physical deduction instead of returning to the sellable pool.
		delta.Physical = -reservation.Quantity
		delta.Operation = enums.AuditOperationReservationFulfill
	}
	if _, err := s.ledger.ApplyDelta(ctx, tx, delta); err != nil {
		return false, err
	}

	now := s.now().UTC()
	status := reason.Status()
	if err := repo.MarkReleased(ctx, reservation.ID, status, now); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark reservation released")
	}

	if reason == enums.ReleaseReasonExpired {
		event := outbox.DomainEvent{
			EventType:     enums.EventReservationReleased,
			AggregateType: enums.AggregateReservation,
			AggregateID:   reservation.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.ReservationReleased{
				ReservationID: reservation.ID,
				ProductID:     reservation.ProductID,
				OrderID:       reservation.OrderID,
				Quantity:      reservation.Quantity,
				Reason:        status,
				ReleasedAt:    now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return false, err
		}
	}

	return true, nil
}

// ExpireDue releases every active reservation whose expiry has passed. Only
// the sweep calls this; request-path code never expires holds opportunistically.
func (s *service) ExpireDue(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	due, err := s.repo.FindExpiredActive(ctx, s.now().UTC(), batch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan expired reservations")
	}
	released := 0
	for _, reservation := range due {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			moved, err := s.ReleaseInTx(ctx, tx, reservation.ID, enums.ReleaseReasonExpired)
			if err != nil {
				return err
			}
			if moved {
				released++
			}
			return nil
		})
		if err != nil {
			return released, err
		}
	}
	return released, nil
}
