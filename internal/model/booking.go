package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusBooked   BookingStatus = "booked"
	BookingStatusCanceled BookingStatus = "canceled"
)

// bookings. Частичный уникальный индекс по slot_id среди активных броней
// гарантирует не больше одной брони на слот.
type Booking struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	SlotID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uniq_bookings_active_slot,where:status = 'booked'"`

	AttendeeName    string  `gorm:"type:varchar(255);not null"`
	AttendeeContact *string `gorm:"type:varchar(255)"`

	Status      BookingStatus `gorm:"type:varchar(16);not null;default:'booked'"`
	CancelToken string        `gorm:"type:varchar(64);not null;uniqueIndex"`
	CanceledAt  *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Slot *Slot `gorm:"foreignKey:SlotID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
