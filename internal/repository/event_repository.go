package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/slot-scheduler/internal/model"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	// Событие по публичному идентификатору; onlyActive отсекает деактивированные.
	GetByPublicID(ctx context.Context, publicID string, onlyActive bool) (*model.Event, error)
	// Частичное обновление по ID.
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *GormEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var e model.Event
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *GormEventRepository) GetByPublicID(ctx context.Context, publicID string, onlyActive bool) (*model.Event, error) {
	var e model.Event
	q := r.db.WithContext(ctx).Where("public_id = ?", publicID)
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *GormEventRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
