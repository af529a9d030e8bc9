package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Тип действия аудита.
type AuditAction string

const (
	AuditEventCreated              AuditAction = "event_created"
	AuditEventUpdated              AuditAction = "event_updated"
	AuditSlotCreated               AuditAction = "slot_created"
	AuditSlotCanceled              AuditAction = "slot_canceled"
	AuditBookingCreated            AuditAction = "booking_created"
	AuditBookingCanceled           AuditAction = "booking_canceled"
	AuditBookingCanceledByProvider AuditAction = "booking_canceled_by_provider"
)

type AuditTarget string

const (
	AuditTargetEvent   AuditTarget = "event"
	AuditTargetSlot    AuditTarget = "slot"
	AuditTargetBooking AuditTarget = "booking"
)

// audit_logs: журнал мутаций. Пишется в той же транзакции, что и сама мутация.
type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventID *uuid.UUID `gorm:"type:uuid;index"`

	Action     AuditAction  `gorm:"type:varchar(64);not null;index"`
	TargetType *AuditTarget `gorm:"type:varchar(16)"`
	TargetID   *uuid.UUID   `gorm:"type:uuid;index"`

	Meta datatypes.JSON

	CreatedAt time.Time `gorm:"not null;index"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
