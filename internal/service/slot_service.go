package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/slot-scheduler/internal/apperr"
	"github.com/Leganyst/slot-scheduler/internal/calendar"
	"github.com/Leganyst/slot-scheduler/internal/model"
	"github.com/Leganyst/slot-scheduler/internal/repository"
	"github.com/Leganyst/slot-scheduler/internal/token"
)

type CreateSlotInput struct {
	ProviderName string
	StartAt      time.Time
	Note         *string
	// Пустое значение означает provisional.
	ExamType model.ExamType
}

// CreateSlotsInput: диапазон [From, To), режется на часовые слоты.
type CreateSlotsInput struct {
	ProviderName string
	From         time.Time
	To           time.Time
	Note         *string
	ExamType     model.ExamType
}

// CreatedSlot: слот и пересечения с другими живыми слотами того же провайдера.
// Пересечения не блокируют создание.
type CreatedSlot struct {
	Slot     *model.Slot
	Overlaps []calendar.TimeRange
}

type CancelSlotResult struct {
	Slot             *model.Slot
	AffectedBookings []model.Booking
}

type SlotCancelPreview struct {
	Slot           *model.Slot
	ActiveBookings []model.Booking
	Deadline       time.Time
	CanCancel      bool
}

// acceptingEvent загружает событие и проверяет окно приёма.
func (s *SchedulingService) acceptingEvent(ctx context.Context, tx *repository.Store, publicID string) (*model.Event, error) {
	ev, err := tx.Events.GetByPublicID(ctx, publicID, false)
	if err != nil {
		return nil, mapStoreError("get event", err)
	}
	if !ev.Window().IsAcceptingActivity(s.now()) {
		return nil, apperr.ErrEventNotAcceptingSlots
	}
	return ev, nil
}

// examType: пустой тип становится provisional, неизвестный отклоняется.
func examType(t model.ExamType) (model.ExamType, error) {
	if t == "" {
		return model.ExamTypeProvisional, nil
	}
	if !t.Valid() {
		return "", apperr.New(apperr.CodeInvalidInput, "examType must be provisional or final")
	}
	return t, nil
}

func (s *SchedulingService) newSlot(eventID uuid.UUID, provider string, start time.Time, note *string, exam model.ExamType) (*model.Slot, error) {
	cancelToken, err := s.newToken(token.CancelToken)
	if err != nil {
		return nil, err
	}
	tr := calendar.SlotRange(start.UTC())
	return &model.Slot{
		EventID:      eventID,
		ProviderName: provider,
		StartAt:      tr.Start,
		EndAt:        tr.End,
		Status:       model.SlotStatusOpen,
		CancelToken:  cancelToken,
		Note:         note,
		ExamType:     exam,
	}, nil
}

// CreateSlot регистрирует часовой слот провайдера.
func (s *SchedulingService) CreateSlot(ctx context.Context, publicID string, in CreateSlotInput) (*CreatedSlot, error) {
	if err := checkTokenShape(token.PublicID, publicID); err != nil {
		return nil, err
	}
	provider, err := requireName("providerName", in.ProviderName)
	if err != nil {
		return nil, err
	}
	note, err := optionalText("note", in.Note, 0)
	if err != nil {
		return nil, err
	}
	exam, err := examType(in.ExamType)
	if err != nil {
		return nil, err
	}
	if in.StartAt.IsZero() {
		return nil, apperr.New(apperr.CodeInvalidTimestamp, "startAt is required")
	}

	var out CreatedSlot
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		ev, err := s.acceptingEvent(ctx, tx, publicID)
		if err != nil {
			return err
		}
		slot, err := s.newSlot(ev.ID, provider, in.StartAt, note, exam)
		if err != nil {
			return err
		}

		live, err := tx.Slots.ListLiveByProvider(ctx, ev.ID, provider)
		if err != nil {
			return mapStoreError("list provider slots", err)
		}
		_, out.Overlaps = calendar.HasOverlap(slot.Range(), slotRanges(live))

		if err := tx.Slots.Create(ctx, slot); err != nil {
			return mapStoreError("create slot", err)
		}
		if err := tx.Audit.Record(ctx, auditEntry(ev.ID, model.AuditSlotCreated, model.AuditTargetSlot, slot.ID, map[string]any{
			"providerName": provider,
			"startAt":      slot.StartAt,
			"examType":     exam,
		})); err != nil {
			return mapStoreError("record audit", err)
		}
		slot.Event = ev
		out.Slot = slot
		return nil
	})
	if err != nil {
		s.logError("CreateSlot", err, "public_id", publicID)
		return nil, err
	}
	return &out, nil
}

// CreateSlots режет диапазон на часовые слоты и создаёт их одной транзакцией.
func (s *SchedulingService) CreateSlots(ctx context.Context, publicID string, in CreateSlotsInput) ([]model.Slot, error) {
	if err := checkTokenShape(token.PublicID, publicID); err != nil {
		return nil, err
	}
	provider, err := requireName("providerName", in.ProviderName)
	if err != nil {
		return nil, err
	}
	note, err := optionalText("note", in.Note, 0)
	if err != nil {
		return nil, err
	}
	exam, err := examType(in.ExamType)
	if err != nil {
		return nil, err
	}
	if in.From.IsZero() || in.To.IsZero() || !in.To.After(in.From) {
		return nil, apperr.New(apperr.CodeInvalidTimestamp, "from must be before to")
	}
	tr, err := calendar.NormalizeTimeRange(in.From, in.To, time.UTC, 0)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidTimestamp, "normalize range", err)
	}
	ranges, err := calendar.SplitToTimeSlots(tr, calendar.SlotDuration)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, "split range", err)
	}
	if len(ranges) == 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "range is shorter than one slot")
	}
	if len(ranges) > MaxBulkSlots {
		return nil, apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("at most %d slots per request", MaxBulkSlots))
	}

	var created []model.Slot
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		ev, err := s.acceptingEvent(ctx, tx, publicID)
		if err != nil {
			return err
		}
		slots := make([]model.Slot, 0, len(ranges))
		entries := make([]*model.AuditLog, 0, len(ranges))
		for _, r := range ranges {
			slot, err := s.newSlot(ev.ID, provider, r.Start, note, exam)
			if err != nil {
				return err
			}
			slots = append(slots, *slot)
		}
		if err := tx.Slots.CreateBatch(ctx, slots); err != nil {
			return mapStoreError("create slots", err)
		}
		for i := range slots {
			entries = append(entries, auditEntry(ev.ID, model.AuditSlotCreated, model.AuditTargetSlot, slots[i].ID, map[string]any{
				"providerName": provider,
				"startAt":      slots[i].StartAt,
				"bulk":         true,
			}))
		}
		if err := tx.Audit.Record(ctx, entries...); err != nil {
			return mapStoreError("record audit", err)
		}
		created = slots
		return nil
	})
	if err != nil {
		s.logError("CreateSlots", err, "public_id", publicID)
		return nil, err
	}
	return created, nil
}

// CancelSlot отменяет слот провайдера. Активные брони слота отменяются
// в той же транзакции и возвращаются в AffectedBookings.
func (s *SchedulingService) CancelSlot(ctx context.Context, slotID, cancelToken string) (*CancelSlotResult, error) {
	id, err := parseID(slotID)
	if err != nil {
		return nil, err
	}
	if err := checkTokenShape(token.CancelToken, cancelToken); err != nil {
		return nil, err
	}

	var res CancelSlotResult
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		slot, err := tx.Slots.GetByID(ctx, id)
		if err != nil {
			return mapStoreError("get slot", err)
		}
		if !tokensEqual(cancelToken, slot.CancelToken) {
			return apperr.ErrInvalidToken
		}
		if slot.Status == model.SlotStatusCanceled {
			return apperr.Wrap(apperr.CodeNotFound, "slot is already canceled", nil)
		}
		now := s.now()
		if !calendar.CanCancel(slot.StartAt, slot.Event.CancelBeforeHours, now) {
			return apperr.ErrCancelDeadlinePassed
		}

		// Сначала слот: после CAS параллельная бронь не сможет перевести его в booked.
		ok, err := tx.Slots.CompareAndSetStatus(ctx, slot.ID, model.SlotStatusCanceled, model.SlotStatusOpen, model.SlotStatusBooked)
		if err != nil {
			return mapStoreError("cancel slot", err)
		}
		if !ok {
			return apperr.Wrap(apperr.CodeNotFound, "slot is already canceled", nil)
		}

		active, err := tx.Bookings.ListActiveBySlot(ctx, slot.ID)
		if err != nil {
			return mapStoreError("list bookings", err)
		}
		if len(active) > 0 {
			if _, err := tx.Bookings.CancelActiveBySlot(ctx, slot.ID, now); err != nil {
				return mapStoreError("cancel bookings", err)
			}
		}

		entries := []*model.AuditLog{
			auditEntry(slot.EventID, model.AuditSlotCanceled, model.AuditTargetSlot, slot.ID, map[string]any{
				"affectedBookings": len(active),
			}),
		}
		for i := range active {
			active[i].Status = model.BookingStatusCanceled
			at := now
			active[i].CanceledAt = &at
			entries = append(entries, auditEntry(slot.EventID, model.AuditBookingCanceledByProvider, model.AuditTargetBooking, active[i].ID, map[string]any{
				"slotId":       slot.ID,
				"attendeeName": active[i].AttendeeName,
			}))
		}
		if err := tx.Audit.Record(ctx, entries...); err != nil {
			return mapStoreError("record audit", err)
		}

		slot.Status = model.SlotStatusCanceled
		res.Slot = slot
		res.AffectedBookings = active
		return nil
	})
	if err != nil {
		s.logError("CancelSlot", err, "slot_id", id)
		return nil, err
	}

	if n := len(res.AffectedBookings); n > 0 {
		s.logger.Info("slot canceled with bookings", "slot_id", id, "affected_bookings", n)
	}
	return &res, nil
}

// PreviewSlotCancel: данные для страницы подтверждения отмены слота.
func (s *SchedulingService) PreviewSlotCancel(ctx context.Context, slotID, cancelToken string) (*SlotCancelPreview, error) {
	id, err := parseID(slotID)
	if err != nil {
		return nil, err
	}
	if err := checkTokenShape(token.CancelToken, cancelToken); err != nil {
		return nil, err
	}
	return retryRead(ctx, func(ctx context.Context) (*SlotCancelPreview, error) {
		slot, err := s.store.Slots.GetByID(ctx, id)
		if err != nil {
			return nil, mapStoreError("get slot", err)
		}
		if !tokensEqual(cancelToken, slot.CancelToken) {
			return nil, apperr.ErrInvalidToken
		}
		active, err := s.store.Bookings.ListActiveBySlot(ctx, slot.ID)
		if err != nil {
			return nil, mapStoreError("list bookings", err)
		}
		hours := slot.Event.CancelBeforeHours
		return &SlotCancelPreview{
			Slot:           slot,
			ActiveBookings: active,
			Deadline:       calendar.CancelDeadline(slot.StartAt, hours),
			CanCancel:      slot.Status != model.SlotStatusCanceled && calendar.CanCancel(slot.StartAt, hours, s.now()),
		}, nil
	})
}

func slotRanges(slots []model.Slot) []calendar.TimeRange {
	out := make([]calendar.TimeRange, 0, len(slots))
	for i := range slots {
		out = append(out, slots[i].Range())
	}
	return out
}
