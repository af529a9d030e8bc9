package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/slot-scheduler/internal/model"
)

type AuditRepository interface {
	Record(ctx context.Context, entries ...*model.AuditLog) error
	// Окно записей по событию, новые первыми, и общее их число.
	ListByEvent(ctx context.Context, eventID uuid.UUID, offset, limit int) ([]model.AuditLog, int64, error)
}

type GormAuditRepository struct {
	db *gorm.DB
}

func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Record(ctx context.Context, entries ...*model.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

func (r *GormAuditRepository) ListByEvent(ctx context.Context, eventID uuid.UUID, offset, limit int) ([]model.AuditLog, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := r.db.WithContext(ctx).
		Model(&model.AuditLog{}).
		Where("event_id = ?", eventID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []model.AuditLog
	err := q.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
