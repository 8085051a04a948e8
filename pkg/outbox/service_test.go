package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lunamercado/storefront-backend/pkg/db/models"
	"github.com/lunamercado/storefront-backend/pkg/enums"
)

func newOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestEmitWritesEnvelopedRowInTx(t *testing.T) {
	db := newOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	orderID := uuid.New()
	actorID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: &actorID},
			Version:       1,
			Data:          map[string]string{"order_number": "SO-20250901-TESTAA"},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var row models.OutboxEvent
	if err := db.First(&row, "aggregate_id = ?", orderID).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.EventType != enums.EventOrderCreated {
		t.Fatalf("unexpected event type %s", row.EventType)
	}
	if row.PublishedAt != nil {
		t.Fatal("new event must start unpublished")
	}
	if row.AttemptCount != 0 {
		t.Fatalf("unexpected attempt count %d", row.AttemptCount)
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.EventID == "" {
		t.Fatal("envelope missing event id")
	}
	if envelope.Actor == nil || envelope.Actor.UserID == nil || *envelope.Actor.UserID != actorID {
		t.Fatal("actor not preserved in envelope")
	}
	var data map[string]string
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["order_number"] != "SO-20250901-TESTAA" {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestEmitRejectsMissingTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	if err := svc.Emit(context.Background(), nil, DomainEvent{}); err == nil {
		t.Fatal("expected error without transaction")
	}
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	db := newOutboxTestDB(t)
	repo := NewRepository(db)

	event := models.OutboxEvent{
		EventType:     enums.EventLowStock,
		AggregateType: enums.AggregateProduct,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	if err := repo.Insert(db, event); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var row models.OutboxEvent
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := repo.MarkFailedTx(db, row.ID, context.DeadlineExceeded); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := db.First(&row, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if row.AttemptCount != 1 {
		t.Fatalf("expected attempt count 1, got %d", row.AttemptCount)
	}
	if row.LastError == nil || *row.LastError == "" {
		t.Fatal("last error not recorded")
	}
}
