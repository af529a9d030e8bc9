package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/slot-scheduler/internal/model"
)

type BookingRepository interface {
	// Создать бронирование. Вторая активная бронь на слот отбивается
	// уникальным индексом (gorm.ErrDuplicatedKey).
	Create(ctx context.Context, booking *model.Booking) error
	// Получить бронирование по ID вместе со слотом и событием.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// Активные брони слота.
	ListActiveBySlot(ctx context.Context, slotID uuid.UUID) ([]model.Booking, error)
	// Есть ли у слота активная бронь.
	HasActiveForSlot(ctx context.Context, slotID uuid.UUID) (bool, error)
	// Отменить бронь, если она ещё активна и токен совпадает.
	CancelIfActive(ctx context.Context, id uuid.UUID, cancelToken string, at time.Time) (bool, error)
	// Отменить все активные брони слота (каскад при отмене слота).
	CancelActiveBySlot(ctx context.Context, slotID uuid.UUID, at time.Time) (int64, error)
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Omit("Slot").Create(booking).Error
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).Preload("Slot.Event").First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepository) ListActiveBySlot(ctx context.Context, slotID uuid.UUID) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("slot_id = ? AND status = ?", slotID, model.BookingStatusBooked).
		Order("created_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) HasActiveForSlot(ctx context.Context, slotID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("slot_id = ? AND status = ?", slotID, model.BookingStatusBooked).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormBookingRepository) CancelIfActive(
	ctx context.Context,
	id uuid.UUID,
	cancelToken string,
	at time.Time,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND cancel_token = ? AND status = ?", id, cancelToken, model.BookingStatusBooked).
		Updates(map[string]any{
			"status":      model.BookingStatusCanceled,
			"canceled_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormBookingRepository) CancelActiveBySlot(ctx context.Context, slotID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("slot_id = ? AND status = ?", slotID, model.BookingStatusBooked).
		Updates(map[string]any{
			"status":      model.BookingStatusCanceled,
			"canceled_at": at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
