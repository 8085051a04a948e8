package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IDs are assigned application-side so the same models work against Postgres
// and the sqlite databases the tests run on.

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (p *Product) BeforeCreate(*gorm.DB) error             { ensureID(&p.ID); return nil }
func (r *StockReservation) BeforeCreate(*gorm.DB) error    { ensureID(&r.ID); return nil }
func (a *InventoryAdjustment) BeforeCreate(*gorm.DB) error { ensureID(&a.ID); return nil }
func (l *InventoryAuditLog) BeforeCreate(*gorm.DB) error   { ensureID(&l.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error               { ensureID(&o.ID); return nil }
func (i *OrderItem) BeforeCreate(*gorm.DB) error           { ensureID(&i.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error         { ensureID(&e.ID); return nil }
func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error           { ensureID(&d.ID); return nil }
