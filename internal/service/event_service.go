package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Leganyst/slot-scheduler/internal/apperr"
	"github.com/Leganyst/slot-scheduler/internal/calendar"
	"github.com/Leganyst/slot-scheduler/internal/model"
	"github.com/Leganyst/slot-scheduler/internal/repository"
	"github.com/Leganyst/slot-scheduler/internal/token"
)

const DefaultCancelBeforeHours = 24

type CreateEventInput struct {
	Title             string
	Description       *string
	ViewMode          model.ViewMode
	VisibleFrom       time.Time
	VisibleTo         time.Time
	CancelBeforeHours *int
}

// UpdateEventInput: частичное обновление: nil-поля не трогаются.
type UpdateEventInput struct {
	Title             *string
	Description       *string
	ViewMode          *model.ViewMode
	VisibleFrom       *time.Time
	VisibleTo         *time.Time
	CancelBeforeHours *int
	IsActive          *bool
}

// EventBoard: событие вместе со слотами (и их бронированиями).
type EventBoard struct {
	Event *model.Event
	Slots []model.Slot
}

func validateWindow(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return apperr.New(apperr.CodeInvalidInput, "visibleFrom and visibleTo are required")
	}
	if to.Before(from) {
		return apperr.New(apperr.CodeInvalidInput, "visibleTo must not be before visibleFrom")
	}
	return nil
}

func validateCancelHours(h int) error {
	if h < calendar.MinCancelBeforeHours || h > calendar.MaxCancelBeforeHours {
		return apperr.New(apperr.CodeInvalidInput, fmt.Sprintf(
			"cancelBeforeHours must be between %d and %d", calendar.MinCancelBeforeHours, calendar.MaxCancelBeforeHours))
	}
	return nil
}

// CreateEvent создаёт доску и выдаёт publicId и editToken.
func (s *SchedulingService) CreateEvent(ctx context.Context, in CreateEventInput) (*model.Event, error) {
	title, err := requireName("title", in.Title)
	if err != nil {
		return nil, err
	}
	desc, err := optionalText("description", in.Description, 0)
	if err != nil {
		return nil, err
	}
	mode := in.ViewMode
	if mode == "" {
		mode = model.ViewModeTable
	}
	if !mode.Valid() {
		return nil, apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("unknown viewMode %q", mode))
	}
	if err := validateWindow(in.VisibleFrom, in.VisibleTo); err != nil {
		return nil, err
	}
	hours := DefaultCancelBeforeHours
	if in.CancelBeforeHours != nil {
		hours = *in.CancelBeforeHours
	}
	if err := validateCancelHours(hours); err != nil {
		return nil, err
	}

	publicID, err := s.newToken(token.PublicID)
	if err != nil {
		return nil, err
	}
	editToken, err := s.newToken(token.EditToken)
	if err != nil {
		return nil, err
	}

	ev := &model.Event{
		PublicID:          publicID,
		EditToken:         editToken,
		Title:             title,
		Description:       desc,
		ViewMode:          mode,
		VisibleFrom:       in.VisibleFrom.UTC(),
		VisibleTo:         in.VisibleTo.UTC(),
		CancelBeforeHours: hours,
		IsActive:          true,
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Events.Create(ctx, ev); err != nil {
			return mapStoreError("create event", err)
		}
		return tx.Audit.Record(ctx, auditEntry(ev.ID, model.AuditEventCreated, model.AuditTargetEvent, ev.ID, map[string]any{
			"title": ev.Title,
		}))
	})
	if err != nil {
		err = mapStoreError("create event", err)
		s.logError("CreateEvent", err)
		return nil, err
	}

	s.logger.Info("event created", "event_id", ev.ID, "public_id", ev.PublicID)
	return ev, nil
}

// GetPublicEvent: публичная доска: только активные события.
func (s *SchedulingService) GetPublicEvent(ctx context.Context, publicID string) (*EventBoard, error) {
	if err := checkTokenShape(token.PublicID, publicID); err != nil {
		return nil, err
	}
	return retryRead(ctx, func(ctx context.Context) (*EventBoard, error) {
		ev, err := s.store.Events.GetByPublicID(ctx, publicID, true)
		if err != nil {
			return nil, mapStoreError("get event", err)
		}
		return s.loadBoard(ctx, ev)
	})
}

// GetEventForEdit: доска для владельца; деактивированные тоже видны.
func (s *SchedulingService) GetEventForEdit(ctx context.Context, publicID, editToken string) (*EventBoard, error) {
	if err := checkTokenShape(token.PublicID, publicID); err != nil {
		return nil, err
	}
	if err := checkTokenShape(token.EditToken, editToken); err != nil {
		return nil, err
	}
	return retryRead(ctx, func(ctx context.Context) (*EventBoard, error) {
		ev, err := s.store.Events.GetByPublicID(ctx, publicID, false)
		if err != nil {
			return nil, mapStoreError("get event", err)
		}
		if !tokensEqual(editToken, ev.EditToken) {
			return nil, apperr.ErrInvalidToken
		}
		return s.loadBoard(ctx, ev)
	})
}

func (s *SchedulingService) loadBoard(ctx context.Context, ev *model.Event) (*EventBoard, error) {
	slots, err := s.store.Slots.ListByEvent(ctx, ev.ID)
	if err != nil {
		return nil, mapStoreError("list slots", err)
	}
	return &EventBoard{Event: ev, Slots: slots}, nil
}

// UpdateEvent применяет частичное обновление при совпадении editToken.
func (s *SchedulingService) UpdateEvent(ctx context.Context, publicID, editToken string, in UpdateEventInput) (*model.Event, error) {
	if err := checkTokenShape(token.PublicID, publicID); err != nil {
		return nil, err
	}
	if err := checkTokenShape(token.EditToken, editToken); err != nil {
		return nil, err
	}

	var updated *model.Event
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		ev, err := tx.Events.GetByPublicID(ctx, publicID, false)
		if err != nil {
			return mapStoreError("get event", err)
		}
		if !tokensEqual(editToken, ev.EditToken) {
			return apperr.ErrInvalidToken
		}

		updates, changed, err := buildEventUpdates(ev, in)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			updated = ev
			return nil
		}
		if err := tx.Events.Update(ctx, ev.ID, updates); err != nil {
			return mapStoreError("update event", err)
		}
		if err := tx.Audit.Record(ctx, auditEntry(ev.ID, model.AuditEventUpdated, model.AuditTargetEvent, ev.ID, map[string]any{
			"fields": changed,
		})); err != nil {
			return mapStoreError("record audit", err)
		}
		updated, err = tx.Events.GetByID(ctx, ev.ID)
		return mapStoreError("reload event", err)
	})
	if err != nil {
		s.logError("UpdateEvent", err, "public_id", publicID)
		return nil, err
	}
	return updated, nil
}

// buildEventUpdates валидирует вход против текущего состояния и собирает
// map для Updates (map, чтобы GORM не пропускал нулевые значения).
func buildEventUpdates(ev *model.Event, in UpdateEventInput) (map[string]any, []string, error) {
	updates := map[string]any{}
	var changed []string
	set := func(column, field string, v any) {
		updates[column] = v
		changed = append(changed, field)
	}

	if in.Title != nil {
		title, err := requireName("title", *in.Title)
		if err != nil {
			return nil, nil, err
		}
		set("title", "title", title)
	}
	if in.Description != nil {
		desc, err := optionalText("description", in.Description, 0)
		if err != nil {
			return nil, nil, err
		}
		set("description", "description", desc)
	}
	if in.ViewMode != nil {
		if !in.ViewMode.Valid() {
			return nil, nil, apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("unknown viewMode %q", *in.ViewMode))
		}
		set("view_mode", "viewMode", *in.ViewMode)
	}

	from, to := ev.VisibleFrom, ev.VisibleTo
	if in.VisibleFrom != nil {
		from = in.VisibleFrom.UTC()
	}
	if in.VisibleTo != nil {
		to = in.VisibleTo.UTC()
	}
	if in.VisibleFrom != nil || in.VisibleTo != nil {
		if err := validateWindow(from, to); err != nil {
			return nil, nil, err
		}
		if in.VisibleFrom != nil {
			set("visible_from", "visibleFrom", from)
		}
		if in.VisibleTo != nil {
			set("visible_to", "visibleTo", to)
		}
	}

	if in.CancelBeforeHours != nil {
		if err := validateCancelHours(*in.CancelBeforeHours); err != nil {
			return nil, nil, err
		}
		set("cancel_before_hours", "cancelBeforeHours", *in.CancelBeforeHours)
	}
	if in.IsActive != nil {
		set("is_active", "isActive", *in.IsActive)
	}
	return updates, changed, nil
}

// ListAudit: журнал изменений события для владельца, постранично.
func (s *SchedulingService) ListAudit(ctx context.Context, publicID, editToken string, page, pageSize int) (calendar.Page[model.AuditLog], error) {
	var none calendar.Page[model.AuditLog]
	if err := checkTokenShape(token.PublicID, publicID); err != nil {
		return none, err
	}
	if err := checkTokenShape(token.EditToken, editToken); err != nil {
		return none, err
	}
	page, pageSize, offset := calendar.PageBounds(page, pageSize)
	return retryRead(ctx, func(ctx context.Context) (calendar.Page[model.AuditLog], error) {
		ev, err := s.store.Events.GetByPublicID(ctx, publicID, false)
		if err != nil {
			return none, mapStoreError("get event", err)
		}
		if !tokensEqual(editToken, ev.EditToken) {
			return none, apperr.ErrInvalidToken
		}
		logs, total, err := s.store.Audit.ListByEvent(ctx, ev.ID, offset, pageSize)
		if err != nil {
			return none, mapStoreError("list audit", err)
		}
		return calendar.NewPage(logs, page, pageSize, int(total)), nil
	})
}
