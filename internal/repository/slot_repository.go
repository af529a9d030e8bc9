package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/slot-scheduler/internal/model"
)

type SlotRepository interface {
	// Создать слот.
	Create(ctx context.Context, slot *model.Slot) error
	// Создать несколько слотов одним батчем.
	CreateBatch(ctx context.Context, slots []model.Slot) error
	// Найти слот по ID вместе с событием.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	// Все слоты события по времени начала, с бронированиями.
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]model.Slot, error)
	// Неотменённые слоты провайдера внутри события.
	ListLiveByProvider(ctx context.Context, eventID uuid.UUID, providerName string) ([]model.Slot, error)
	// Условная смена статуса: применяется, только если текущий статус входит в from.
	// Возвращает false, если ни одна строка не подошла.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, to model.SlotStatus, from ...model.SlotStatus) (bool, error)
}

type GormSlotRepository struct {
	db *gorm.DB
}

func NewGormSlotRepository(db *gorm.DB) *GormSlotRepository {
	return &GormSlotRepository{db: db}
}

func (r *GormSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	return r.db.WithContext(ctx).Omit("Event", "Bookings").Create(slot).Error
}

func (r *GormSlotRepository) CreateBatch(ctx context.Context, slots []model.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Event", "Bookings").Create(&slots).Error
}

func (r *GormSlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	var slot model.Slot
	if err := r.db.WithContext(ctx).Preload("Event").First(&slot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *GormSlotRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]model.Slot, error) {
	var slots []model.Slot
	err := r.db.WithContext(ctx).
		Preload("Bookings", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("event_id = ?", eventID).
		Order("start_at ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *GormSlotRepository) ListLiveByProvider(ctx context.Context, eventID uuid.UUID, providerName string) ([]model.Slot, error) {
	var slots []model.Slot
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND provider_name = ?", eventID, providerName).
		Where("status <> ?", model.SlotStatusCanceled).
		Order("start_at ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *GormSlotRepository) CompareAndSetStatus(
	ctx context.Context,
	id uuid.UUID,
	to model.SlotStatus,
	from ...model.SlotStatus,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
