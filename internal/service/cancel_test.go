package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Leganyst/slot-scheduler/internal/apperr"
	"github.com/Leganyst/slot-scheduler/internal/model"
	"github.com/Leganyst/slot-scheduler/internal/token"
)

func wrongToken(t *testing.T, kind token.Kind) string {
	t.Helper()
	s, err := token.Generate(kind)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return s
}

func TestCancelBooking_WrongTokenLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 24)
	slot := f.slot(t, ev, "Yamada", time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
	b := f.book(t, slot, "Suzuki")

	_, err := f.svc.CancelBooking(ctx, b.ID.String(), wrongToken(t, token.CancelToken))
	expectCode(t, err, apperr.ErrInvalidToken)
	if apperr.PublicCode(apperr.CodeOf(err)) != apperr.CodeNotFound {
		t.Fatalf("wrong token must look like not found, got %s", apperr.CodeOf(err))
	}

	_, err = f.svc.CancelBooking(ctx, b.ID.String(), "short")
	expectCode(t, err, apperr.ErrNotFound)

	// токен слота не подходит к брони
	_, err = f.svc.CancelBooking(ctx, b.ID.String(), slot.CancelToken)
	expectCode(t, err, apperr.ErrInvalidToken)

	if got := f.slotStatus(t, slot); got != model.SlotStatusBooked {
		t.Fatalf("slot status = %s", got)
	}
	if n := len(f.activeBookings(t, slot)); n != 1 {
		t.Fatalf("active bookings = %d", n)
	}
}

func TestCancelBooking_SecondCancelIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 24)
	slot := f.slot(t, ev, "Yamada", time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
	b := f.book(t, slot, "Suzuki")

	if _, err := f.svc.CancelBooking(ctx, b.ID.String(), b.CancelToken); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	next := f.book(t, slot, "Tanaka")

	_, err := f.svc.CancelBooking(ctx, b.ID.String(), b.CancelToken)
	expectCode(t, err, apperr.ErrNotFound)

	// повторная отмена старой брони не трогает новую
	if got := f.slotStatus(t, slot); got != model.SlotStatusBooked {
		t.Fatalf("slot status = %s", got)
	}
	active := f.activeBookings(t, slot)
	if len(active) != 1 || active[0].ID != next.ID {
		t.Fatalf("unexpected active bookings: %+v", active)
	}
}

func TestCancelBooking_DeadlineEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 24)
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	slot := f.slot(t, ev, "Yamada", start)
	b := f.book(t, slot, "Suzuki")

	preview, err := f.svc.PreviewBookingCancel(ctx, b.ID.String(), b.CancelToken)
	if err != nil {
		t.Fatalf("PreviewBookingCancel: %v", err)
	}
	if !preview.CanCancel || !preview.Deadline.Equal(start.Add(-24*time.Hour)) {
		t.Fatalf("unexpected preview: canCancel=%v deadline=%v", preview.CanCancel, preview.Deadline)
	}

	// ровно в дедлайн ещё можно, через секунду уже нет
	f.clock.Set(start.Add(-24*time.Hour + time.Second))
	_, err = f.svc.CancelBooking(ctx, b.ID.String(), b.CancelToken)
	expectCode(t, err, apperr.ErrCancelDeadlinePassed)

	preview, err = f.svc.PreviewBookingCancel(ctx, b.ID.String(), b.CancelToken)
	if err != nil {
		t.Fatalf("PreviewBookingCancel: %v", err)
	}
	if preview.CanCancel {
		t.Fatalf("preview must report deadline passed")
	}

	f.clock.Set(start.Add(-24 * time.Hour))
	if _, err := f.svc.CancelBooking(ctx, b.ID.String(), b.CancelToken); err != nil {
		t.Fatalf("cancel at deadline: %v", err)
	}
}

func TestCancelSlot_CascadesActiveBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 24)
	slot := f.slot(t, ev, "Yamada", time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
	b := f.book(t, slot, "Suzuki")

	preview, err := f.svc.PreviewSlotCancel(ctx, slot.ID.String(), slot.CancelToken)
	if err != nil {
		t.Fatalf("PreviewSlotCancel: %v", err)
	}
	if !preview.CanCancel || len(preview.ActiveBookings) != 1 {
		t.Fatalf("unexpected preview: %+v", preview)
	}

	res, err := f.svc.CancelSlot(ctx, slot.ID.String(), slot.CancelToken)
	if err != nil {
		t.Fatalf("CancelSlot: %v", err)
	}
	if res.Slot.Status != model.SlotStatusCanceled {
		t.Fatalf("slot status = %s", res.Slot.Status)
	}
	if len(res.AffectedBookings) != 1 || res.AffectedBookings[0].ID != b.ID {
		t.Fatalf("affected bookings = %+v", res.AffectedBookings)
	}
	if len(f.activeBookings(t, slot)) != 0 {
		t.Fatalf("booking must be canceled with its slot")
	}

	// брони больше нет, её токен ведёт в NotFound
	_, err = f.svc.CancelBooking(ctx, b.ID.String(), b.CancelToken)
	expectCode(t, err, apperr.ErrNotFound)

	_, err = f.svc.CancelSlot(ctx, slot.ID.String(), slot.CancelToken)
	expectCode(t, err, apperr.ErrNotFound)

	logs, err := f.svc.ListAudit(ctx, ev.PublicID, ev.EditToken, 1, 0)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	var byProvider int
	for _, l := range logs.Items {
		if l.Action == model.AuditBookingCanceledByProvider {
			byProvider++
			if l.TargetID == nil || *l.TargetID != b.ID {
				t.Fatalf("audit target = %v", l.TargetID)
			}
			if !strings.Contains(string(l.Meta), "Suzuki") {
				t.Fatalf("audit meta = %s", l.Meta)
			}
		}
	}
	if byProvider != 1 {
		t.Fatalf("booking_canceled_by_provider entries = %d", byProvider)
	}
}

func TestCancelSlot_TokenAndDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 48)
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	slot := f.slot(t, ev, "Yamada", start)

	_, err := f.svc.CancelSlot(ctx, slot.ID.String(), wrongToken(t, token.CancelToken))
	expectCode(t, err, apperr.ErrInvalidToken)

	_, err = f.svc.PreviewSlotCancel(ctx, slot.ID.String(), wrongToken(t, token.CancelToken))
	expectCode(t, err, apperr.ErrInvalidToken)

	f.clock.Set(start.Add(-47 * time.Hour))
	_, err = f.svc.CancelSlot(ctx, slot.ID.String(), slot.CancelToken)
	expectCode(t, err, apperr.ErrCancelDeadlinePassed)

	if got := f.slotStatus(t, slot); got != model.SlotStatusOpen {
		t.Fatalf("slot status = %s", got)
	}
}
