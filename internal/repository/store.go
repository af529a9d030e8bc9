package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store собирает репозитории над одним *gorm.DB (или транзакцией).
type Store struct {
	db *gorm.DB

	Events   EventRepository
	Slots    SlotRepository
	Bookings BookingRepository
	Audit    AuditRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Events:   NewGormEventRepository(db),
		Slots:    NewGormSlotRepository(db),
		Bookings: NewGormBookingRepository(db),
		Audit:    NewGormAuditRepository(db),
	}
}

// Transaction выполняет fn в одной транзакции; любая ошибка из fn откатывает всё.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
