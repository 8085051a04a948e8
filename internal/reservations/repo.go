package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lunamercado/storefront-backend/pkg/db/models"
	"github.com/lunamercado/storefront-backend/pkg/enums"
)

// Repository persists stock reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reservation *models.StockReservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.StockReservation, error)
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error)
	FindExpiredActive(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error)
	MarkReleased(ctx context.Context, id uuid.UUID, status enums.ReservationStatus, releasedAt time.Time) error
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reservations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reservation *models.StockReservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StockReservation, error) {
	var reservation models.StockReservation
	err := r.db.WithContext(ctx).First(&reservation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error) {
	var reservations []models.StockReservation
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.ReservationStatusActive).
		Order("created_at ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *repository) FindExpiredActive(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error) {
	var reservations []models.StockReservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", enums.ReservationStatusActive, cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *repository) MarkReleased(ctx context.Context, id uuid.UUID, status enums.ReservationStatus, releasedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.StockReservation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"released_at": releasedAt,
		}).Error
}

// DeleteTerminalBefore prunes reservations that reached a terminal status
// before the cutoff. Audit history lives in the audit log, not here.
func (r *repository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status IN ? AND released_at < ?", []enums.ReservationStatus{
			enums.ReservationStatusFulfilled,
			enums.ReservationStatusCancelled,
			enums.ReservationStatusExpired,
		}, cutoff).
		Delete(&models.StockReservation{})
	return res.RowsAffected, res.Error
}
