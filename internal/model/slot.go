package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/slot-scheduler/internal/calendar"
)

// Статус слота.
type SlotStatus string

const (
	SlotStatusOpen     SlotStatus = "open"
	SlotStatusBooked   SlotStatus = "booked"
	SlotStatusCanceled SlotStatus = "canceled"
)

// Тип экзамена, который проводится в слоте.
type ExamType string

const (
	ExamTypeProvisional ExamType = "provisional"
	ExamTypeFinal       ExamType = "final"
)

func (t ExamType) Valid() bool {
	return t == ExamTypeProvisional || t == ExamTypeFinal
}

// Label: подпись для отображения (本検定 / 仮検定).
func (t ExamType) Label() string {
	if t == ExamTypeFinal {
		return "本検定"
	}
	return "仮検定"
}

// slots: предложенное провайдером часовое окно.
type Slot struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventID      uuid.UUID `gorm:"type:uuid;not null;index:idx_slots_event_start,priority:1"`
	ProviderName string    `gorm:"type:varchar(255);not null"`

	StartAt time.Time `gorm:"not null;index:idx_slots_event_start,priority:2"`
	EndAt   time.Time `gorm:"not null"`

	Status      SlotStatus `gorm:"type:varchar(16);not null;default:'open';index"`
	CancelToken string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	Note        *string    `gorm:"type:text"`
	ExamType    ExamType   `gorm:"type:varchar(16);not null;default:'provisional'"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Event    *Event    `gorm:"foreignKey:EventID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Bookings []Booking `gorm:"foreignKey:SlotID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (s *Slot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Slot) Range() calendar.TimeRange {
	return calendar.TimeRange{Start: s.StartAt, End: s.EndAt}
}
