package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/slot-scheduler/internal/calendar"
)

// Режим отображения доски.
type ViewMode string

const (
	ViewModeTable    ViewMode = "table"
	ViewModeCalendar ViewMode = "calendar"
)

func (m ViewMode) Valid() bool {
	return m == ViewModeTable || m == ViewModeCalendar
}

// events: доска записи. Не удаляется, только деактивируется.
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	PublicID  string `gorm:"type:varchar(32);not null;uniqueIndex"`
	EditToken string `gorm:"type:varchar(64);not null;uniqueIndex"`

	Title       string   `gorm:"type:varchar(255);not null"`
	Description *string  `gorm:"type:text"`
	ViewMode    ViewMode `gorm:"type:varchar(16);not null;default:'table'"`

	VisibleFrom time.Time `gorm:"not null"`
	VisibleTo   time.Time `gorm:"not null"`

	// Минимальный запас времени до начала слота для отмены, в часах (0–72).
	// Без default в теге: GORM пропускает нулевые значения при Create.
	CancelBeforeHours int  `gorm:"not null"`
	IsActive          bool `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Window: окно приёма слотов/броней.
func (e *Event) Window() calendar.Window {
	return calendar.Window{Active: e.IsActive, From: e.VisibleFrom, To: e.VisibleTo}
}
