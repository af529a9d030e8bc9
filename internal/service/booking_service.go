package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/slot-scheduler/internal/apperr"
	"github.com/Leganyst/slot-scheduler/internal/calendar"
	"github.com/Leganyst/slot-scheduler/internal/model"
	"github.com/Leganyst/slot-scheduler/internal/repository"
	"github.com/Leganyst/slot-scheduler/internal/token"
)

type CreateBookingInput struct {
	AttendeeName    string
	AttendeeContact *string
}

type BookingCancelPreview struct {
	Booking   *model.Booking
	Deadline  time.Time
	CanCancel bool
}

// CreateBooking бронирует открытый слот. Вставка брони и перевод слота
// open→booked выполняются в одной транзакции; проигравший в гонке получает
// SlotAlreadyBooked. Не повторяется автоматически.
func (s *SchedulingService) CreateBooking(ctx context.Context, slotID string, in CreateBookingInput) (*model.Booking, error) {
	id, err := parseID(slotID)
	if err != nil {
		return nil, err
	}
	name, err := requireName("attendeeName", in.AttendeeName)
	if err != nil {
		return nil, err
	}
	contact, err := optionalText("attendeeContact", in.AttendeeContact, maxContactLen)
	if err != nil {
		return nil, err
	}

	var booking *model.Booking
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		slot, err := tx.Slots.GetByID(ctx, id)
		if err != nil {
			return mapStoreError("get slot", err)
		}
		switch slot.Status {
		case model.SlotStatusCanceled:
			return apperr.ErrSlotCanceled
		case model.SlotStatusBooked:
			return apperr.ErrSlotAlreadyBooked
		}
		if !slot.Event.Window().IsAcceptingActivity(s.now()) {
			return apperr.ErrEventNotAcceptingSlots
		}

		cancelToken, err := s.newToken(token.CancelToken)
		if err != nil {
			return err
		}
		b := &model.Booking{
			SlotID:          slot.ID,
			AttendeeName:    name,
			AttendeeContact: contact,
			Status:          model.BookingStatusBooked,
			CancelToken:     cancelToken,
		}
		// Сырой ErrDuplicatedKey разбирается после отката.
		if err := tx.Bookings.Create(ctx, b); err != nil {
			return err
		}

		ok, err := tx.Slots.CompareAndSetStatus(ctx, slot.ID, model.SlotStatusBooked, model.SlotStatusOpen)
		if err != nil {
			return mapStoreError("book slot", err)
		}
		if !ok {
			// слот ушёл из open между чтением и CAS: отменён или занят
			current, err := tx.Slots.GetByID(ctx, slot.ID)
			if err != nil {
				return mapStoreError("reload slot", err)
			}
			if current.Status == model.SlotStatusCanceled {
				return apperr.ErrSlotCanceled
			}
			return apperr.ErrSlotAlreadyBooked
		}

		if err := tx.Audit.Record(ctx, auditEntry(slot.EventID, model.AuditBookingCreated, model.AuditTargetBooking, b.ID, map[string]any{
			"slotId":       slot.ID,
			"attendeeName": name,
		})); err != nil {
			return mapStoreError("record audit", err)
		}

		slot.Status = model.SlotStatusBooked
		b.Slot = slot
		booking = b
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = s.classifyDuplicateBooking(ctx, id, err)
	}
	if err != nil {
		err = mapStoreError("create booking", err)
		s.logError("CreateBooking", err, "slot_id", id)
		return nil, err
	}

	s.logger.Info("slot booked", "slot_id", id, "booking_id", booking.ID)
	return booking, nil
}

// classifyDuplicateBooking: нарушение уникальности при вставке брони: это либо
// чужая активная бронь (гонка), либо коллизия cancel-токена.
func (s *SchedulingService) classifyDuplicateBooking(ctx context.Context, slotID uuid.UUID, cause error) error {
	has, err := s.store.Bookings.HasActiveForSlot(ctx, slotID)
	if err != nil || has {
		return apperr.Wrap(apperr.CodeSlotAlreadyBooked, "slot is already booked", cause)
	}
	return apperr.Wrap(apperr.CodeConflict, "token collision, retry the request", cause)
}

// CancelBooking отменяет бронь и возвращает слот в open.
// Повторная отмена даёт NotFound и ничего не меняет.
func (s *SchedulingService) CancelBooking(ctx context.Context, bookingID, cancelToken string) (*model.Booking, error) {
	id, err := parseID(bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkTokenShape(token.CancelToken, cancelToken); err != nil {
		return nil, err
	}

	var canceled *model.Booking
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		b, err := tx.Bookings.GetByID(ctx, id)
		if err != nil {
			return mapStoreError("get booking", err)
		}
		if !tokensEqual(cancelToken, b.CancelToken) {
			return apperr.ErrInvalidToken
		}
		if b.Status != model.BookingStatusBooked {
			return apperr.Wrap(apperr.CodeNotFound, "booking is already canceled", nil)
		}
		now := s.now()
		if !calendar.CanCancel(b.Slot.StartAt, b.Slot.Event.CancelBeforeHours, now) {
			return apperr.ErrCancelDeadlinePassed
		}

		ok, err := tx.Bookings.CancelIfActive(ctx, b.ID, b.CancelToken, now)
		if err != nil {
			return mapStoreError("cancel booking", err)
		}
		if !ok {
			return apperr.Wrap(apperr.CodeNotFound, "booking is already canceled", nil)
		}
		// Отменённый провайдером слот остаётся canceled.
		if _, err := tx.Slots.CompareAndSetStatus(ctx, b.SlotID, model.SlotStatusOpen, model.SlotStatusBooked); err != nil {
			return mapStoreError("reopen slot", err)
		}
		if err := tx.Audit.Record(ctx, auditEntry(b.Slot.EventID, model.AuditBookingCanceled, model.AuditTargetBooking, b.ID, map[string]any{
			"slotId": b.SlotID,
		})); err != nil {
			return mapStoreError("record audit", err)
		}

		b.Status = model.BookingStatusCanceled
		b.CanceledAt = &now
		if b.Slot.Status == model.SlotStatusBooked {
			b.Slot.Status = model.SlotStatusOpen
		}
		canceled = b
		return nil
	})
	if err != nil {
		s.logError("CancelBooking", err, "booking_id", id)
		return nil, err
	}
	return canceled, nil
}

// PreviewBookingCancel: данные для страницы подтверждения отмены брони.
func (s *SchedulingService) PreviewBookingCancel(ctx context.Context, bookingID, cancelToken string) (*BookingCancelPreview, error) {
	id, err := parseID(bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkTokenShape(token.CancelToken, cancelToken); err != nil {
		return nil, err
	}
	return retryRead(ctx, func(ctx context.Context) (*BookingCancelPreview, error) {
		b, err := s.store.Bookings.GetByID(ctx, id)
		if err != nil {
			return nil, mapStoreError("get booking", err)
		}
		if !tokensEqual(cancelToken, b.CancelToken) {
			return nil, apperr.ErrInvalidToken
		}
		hours := b.Slot.Event.CancelBeforeHours
		return &BookingCancelPreview{
			Booking:   b,
			Deadline:  calendar.CancelDeadline(b.Slot.StartAt, hours),
			CanCancel: b.Status == model.BookingStatusBooked && calendar.CanCancel(b.Slot.StartAt, hours, s.now()),
		}, nil
	})
}
