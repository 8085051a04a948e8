package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lunamercado/storefront-backend/pkg/db/models"
	"github.com/lunamercado/storefront-backend/pkg/enums"
	"github.com/lunamercado/storefront-backend/pkg/pagination"
)

func seedOrder(t *testing.T, db *gorm.DB, customerID *uuid.UUID, number string, created time.Time, status enums.OrderStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		CustomerID:    customerID,
		Status:        status,
		PaymentStatus: enums.PaymentStatusPending,
		PaymentMethod: "card",
		SubtotalCents: 1000,
		TotalCents:    1000,
		Version:       1,
		CreatedAt:     created,
		UpdatedAt:     created,
		Items: []models.OrderItem{{
			ID:             uuid.New(),
			ProductID:      uuid.New(),
			Name:           "Test Item",
			Quantity:       1,
			UnitPriceCents: 1000,
			TotalCents:     1000,
		}},
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryList_keysetPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	customerID := uuid.New()
	now := time.Now().UTC()
	older := seedOrder(t, db, &customerID, "SO-20250901-AAAAAA", now.Add(-time.Hour), enums.OrderStatusPending)
	newer := seedOrder(t, db, &customerID, "SO-20250901-BBBBBB", now, enums.OrderStatusPending)

	page, err := repo.List(context.Background(), ListFilter{CustomerID: &customerID}, nil, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, newer.ID, page[0].ID)

	cursor := &pagination.Cursor{CreatedAt: page[0].CreatedAt, ID: page[0].ID}
	second, err := repo.List(context.Background(), ListFilter{CustomerID: &customerID}, cursor, 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, older.ID, second[0].ID)
}

func TestRepositoryList_statusFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	customerID := uuid.New()
	now := time.Now().UTC()
	seedOrder(t, db, &customerID, "SO-20250901-CCCCCC", now.Add(-time.Minute), enums.OrderStatusPending)
	shipped := seedOrder(t, db, &customerID, "SO-20250901-DDDDDD", now, enums.OrderStatusShipped)

	status := enums.OrderStatusShipped
	page, err := repo.List(context.Background(), ListFilter{Status: &status}, nil, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, shipped.ID, page[0].ID)
}

func TestRepositoryFindByNumberPreloadsItems(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	seeded := seedOrder(t, db, nil, "SO-20250901-EEEEEE", time.Now().UTC(), enums.OrderStatusPending)

	found, err := repo.FindByNumber(context.Background(), seeded.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Test Item", found.Items[0].Name)
}

func TestRepositorySaveTransition_versionConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, nil, "SO-20250901-FFFFFF", time.Now().UTC(), enums.OrderStatusPending)

	order.Status = enums.OrderStatusProcessing
	ok, err := repo.SaveTransition(context.Background(), order, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, order.Version)

	// Same expected version again: the row already moved on.
	stale, err := repo.SaveTransition(context.Background(), order, 1)
	require.NoError(t, err)
	assert.False(t, stale)

	var current models.Order
	require.NoError(t, db.First(&current, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusProcessing, current.Status)
	assert.Equal(t, 2, current.Version)
}
