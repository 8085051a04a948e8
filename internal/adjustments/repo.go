package adjustments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lunamercado/storefront-backend/pkg/db/models"
	"github.com/lunamercado/storefront-backend/pkg/enums"
)

// ListFilter narrows an adjustment listing.
type ListFilter struct {
	ProductID *uuid.UUID
	Status    *enums.ApprovalStatus
	Limit     int
	Offset    int
}

// Repository persists inventory adjustments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, adjustment *models.InventoryAdjustment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryAdjustment, error)
	List(ctx context.Context, filter ListFilter) ([]models.InventoryAdjustment, int64, error)
	SaveDecision(ctx context.Context, adjustment *models.InventoryAdjustment) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an adjustments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, adjustment *models.InventoryAdjustment) error {
	return r.db.WithContext(ctx).Create(adjustment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryAdjustment, error) {
	var adjustment models.InventoryAdjustment
	err := r.db.WithContext(ctx).First(&adjustment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &adjustment, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.InventoryAdjustment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryAdjustment{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Status != nil {
		query = query.Where("approval_status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var adjustments []models.InventoryAdjustment
	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&adjustments).Error
	if err != nil {
		return nil, 0, err
	}
	return adjustments, total, nil
}

func (r *repository) SaveDecision(ctx context.Context, adjustment *models.InventoryAdjustment) error {
	return r.db.WithContext(ctx).Model(&models.InventoryAdjustment{}).
		Where("id = ?", adjustment.ID).
		Updates(map[string]any{
			"approval_status":    adjustment.ApprovalStatus,
			"new_physical_stock": adjustment.NewPhysicalStock,
			"approved_by":        adjustment.ApprovedBy,
			"approved_at":        adjustment.ApprovedAt,
			"review_notes":       adjustment.ReviewNotes,
		}).Error
}
