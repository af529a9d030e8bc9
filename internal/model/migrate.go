package model

import "gorm.io/gorm"

// AutoMigrate выполняет миграцию всех сущностей.
// Частичный уникальный индекс uniq_bookings_active_slot создаётся из тега Booking.SlotID.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Event{},
		&Slot{},
		&Booking{},
		&AuditLog{},
	)
}
