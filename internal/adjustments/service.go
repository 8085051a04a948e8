package adjustments

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

// RequestInput describes a manual stock correction awaiting review.
type RequestInput struct {
	ProductID   uuid.UUID
	Type        enums.AdjustmentType
	ReasonCode  string
	Quantity    int
	Description *string
	RequestedBy uuid.UUID
}

// Service runs the adjustment approval workflow. Requests never touch the
// ledger; only an approval does, and only once.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.InventoryAdjustment, error)
	Decide(ctx context.Context, adjustmentID uuid.UUID, decision enums.ApprovalStatus, approverID uuid.UUID, notes *string) (*models.InventoryAdjustment, error)
	Get(ctx context.Context, adjustmentID uuid.UUID) (*models.InventoryAdjustment, error)
	List(ctx context.Context, filter ListFilter) ([]models.InventoryAdjustment, int64, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger stockLedger
	outbox outboxPublisher
	now    func() time.Time
}

// ServiceParams configure the adjustment service.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Ledger stockLedger
	Outbox outboxPublisher
}

// NewService builds an adjustment service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("adjustments repository required")
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
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		ledger: params.Ledger,
		outbox: params.Outbox,
		now:    time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.InventoryAdjustment, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown adjustment type").
			WithDetails(map[string]any{"adjustment_type": input.Type})
	}
	if input.ReasonCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason code required")
	}
	if input.Quantity == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-zero")
	}
	if input.RequestedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester id required")
	}

	var adjustment *models.InventoryAdjustment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// Snapshot the physical stock the requester was looking at.
		// Approval later checks this snapshot against the live row.
		snap, err := s.ledger.GetAvailable(ctx, tx, input.ProductID)
		if err != nil {
			return err
		}

		adjustment = &models.InventoryAdjustment{
			ProductID:             input.ProductID,
			AdjustmentType:        input.Type,
			ReasonCode:            input.ReasonCode,
			QuantityAdjusted:      input.Quantity,
			PreviousPhysicalStock: snap.Physical,
			ApprovalStatus:        enums.ApprovalStatusPending,
			RequestedBy:           input.RequestedBy,
			Description:           input.Description,
		}
		if err := s.repo.WithTx(tx).Create(ctx, adjustment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert adjustment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjustment, nil
}

// Decide approves or rejects a pending adjustment. Rejection is a pure status
// flip. Approval applies the recorded quantity through the ledger in the same
// transaction, so an approval can never be half applied. A second decision on
// a decided adjustment fails.
func (s *service) Decide(ctx context.Context, adjustmentID uuid.UUID, decision enums.ApprovalStatus, approverID uuid.UUID, notes *string) (*models.InventoryAdjustment, error) {
	if decision != enums.ApprovalStatusApproved && decision != enums.ApprovalStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approved or rejected")
	}
	if approverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver id required")
	}

	var decided *models.InventoryAdjustment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		adjustment, err := repo.FindByID(ctx, adjustmentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "adjustment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load adjustment")
		}
		if adjustment.ApprovalStatus != enums.ApprovalStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "adjustment is not pending").
				WithDetails(map[string]any{
					"adjustment_id":   adjustment.ID,
					"approval_status": adjustment.ApprovalStatus,
				})
		}

		now := s.now().UTC()
		adjustment.ApprovalStatus = decision
		adjustment.ApprovedBy = &approverID
		adjustment.ApprovedAt = &now
		adjustment.ReviewNotes = notes

		if decision == enums.ApprovalStatusApproved {
			snap, err := s.ledger.GetAvailable(ctx, tx, adjustment.ProductID)
			if err != nil {
				return err
			}
			if snap.Physical != adjustment.PreviousPhysicalStock {
				return pkgerrors.New(pkgerrors.CodeStaleAdjustment, "stock changed since the adjustment was requested").
					WithDetails(map[string]any{
						"adjustment_id":    adjustment.ID,
						"product_id":       adjustment.ProductID,
						"recorded_stock":   adjustment.PreviousPhysicalStock,
						"current_stock":    snap.Physical,
						"quantity_pending": adjustment.QuantityAdjusted,
					})
			}
			if _, err := s.ledger.ApplyDelta(ctx, tx, ledger.Delta{
				ProductID:       adjustment.ProductID,
				Physical:        adjustment.QuantityAdjusted,
				ExpectedVersion: snap.Version,
				Operation:       enums.AuditOperationAdjustmentApproval,
				ActorID:         &approverID,
			}); err != nil {
				return err
			}
			newPhysical := adjustment.PreviousPhysicalStock + adjustment.QuantityAdjusted
			adjustment.NewPhysicalStock = &newPhysical
		}

		if err := repo.SaveDecision(ctx, adjustment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save adjustment decision")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventAdjustmentDecided,
			AggregateType: enums.AggregateAdjustment,
			AggregateID:   adjustment.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.AdjustmentDecided{
				AdjustmentID:     adjustment.ID,
				ProductID:        adjustment.ProductID,
				ApprovalStatus:   adjustment.ApprovalStatus,
				QuantityAdjusted: adjustment.QuantityAdjusted,
				NewPhysicalStock: adjustment.NewPhysicalStock,
				ApprovedBy:       approverID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		decided = adjustment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

func (s *service) Get(ctx context.Context, adjustmentID uuid.UUID) (*models.InventoryAdjustment, error) {
	adjustment, err := s.repo.FindByID(ctx, adjustmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "adjustment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load adjustment")
	}
	return adjustment, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.InventoryAdjustment, int64, error) {
	adjustments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list adjustments")
	}
	return adjustments, total, nil
}
