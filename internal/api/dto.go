package api

import (
	"time"

	"github.com/Leganyst/slot-scheduler/internal/calendar"
	"github.com/Leganyst/slot-scheduler/internal/model"
	"github.com/Leganyst/slot-scheduler/internal/service"
)

// --- запросы ---

type createEventRequest struct {
	Title             string  `json:"title"`
	Description       *string `json:"description"`
	ViewMode          string  `json:"viewMode"`
	VisibleFrom       string  `json:"visibleFrom"`
	VisibleTo         string  `json:"visibleTo"`
	CancelBeforeHours *int    `json:"cancelBeforeHours"`
}

type updateEventRequest struct {
	Title             *string `json:"title"`
	Description       *string `json:"description"`
	ViewMode          *string `json:"viewMode"`
	VisibleFrom       *string `json:"visibleFrom"`
	VisibleTo         *string `json:"visibleTo"`
	CancelBeforeHours *int    `json:"cancelBeforeHours"`
	IsActive          *bool   `json:"isActive"`
}

type createSlotRequest struct {
	ProviderName string  `json:"providerName"`
	StartAt      string  `json:"startAt"`
	Note         *string `json:"note"`
	ExamType     string  `json:"examType"`
}

type createSlotsRequest struct {
	ProviderName string  `json:"providerName"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	Note         *string `json:"note"`
	ExamType     string  `json:"examType"`
}

type createBookingRequest struct {
	AttendeeName    string  `json:"attendeeName"`
	AttendeeContact *string `json:"attendeeContact"`
}

// --- ответы ---
// Секретные токены уходят клиенту только в ответе на создание.

type EventDTO struct {
	PublicID          string    `json:"publicId"`
	Title             string    `json:"title"`
	Description       *string   `json:"description,omitempty"`
	ViewMode          string    `json:"viewMode"`
	VisibleFrom       time.Time `json:"visibleFrom"`
	VisibleTo         time.Time `json:"visibleTo"`
	VisibleFromText   string    `json:"visibleFromText"`
	VisibleToText     string    `json:"visibleToText"`
	CancelBeforeHours int       `json:"cancelBeforeHours"`
	IsActive          bool      `json:"isActive"`
	Accepting         bool      `json:"accepting"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	Slots             []SlotDTO `json:"slots,omitempty"`
}

type SlotDTO struct {
	ID            string      `json:"id"`
	ProviderName  string      `json:"providerName"`
	StartAt       time.Time   `json:"startAt"`
	EndAt         time.Time   `json:"endAt"`
	Display       string      `json:"display"`
	Status        string      `json:"status"`
	ExamType      string      `json:"examType"`
	ExamTypeLabel string      `json:"examTypeLabel"`
	Note          *string     `json:"note,omitempty"`
	Booking       *BookingDTO `json:"booking,omitempty"`
}

type BookingDTO struct {
	ID              string     `json:"id"`
	AttendeeName    string     `json:"attendeeName"`
	AttendeeContact *string    `json:"attendeeContact,omitempty"`
	Status          string     `json:"status"`
	CanceledAt      *time.Time `json:"canceledAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type CreatedEventDTO struct {
	Event     EventDTO `json:"event"`
	EditToken string   `json:"editToken"`
	PublicURL string   `json:"publicUrl"`
	EditURL   string   `json:"editUrl"`
}

type CreatedSlotDTO struct {
	Slot      SlotDTO  `json:"slot"`
	CancelURL string   `json:"cancelUrl"`
	Warnings  []string `json:"warnings"`
}

type CreatedBookingDTO struct {
	Booking   BookingDTO `json:"booking"`
	Slot      SlotDTO    `json:"slot"`
	CancelURL string     `json:"cancelUrl"`
}

type CancelPreviewDTO struct {
	Event     EventDTO     `json:"event"`
	Slot      SlotDTO      `json:"slot"`
	Booking   *BookingDTO  `json:"booking,omitempty"`
	Bookings  []BookingDTO `json:"activeBookings,omitempty"`
	Deadline  time.Time    `json:"deadline"`
	CanCancel bool         `json:"canCancel"`
}

type CancelSlotDTO struct {
	Slot             SlotDTO      `json:"slot"`
	AffectedBookings []BookingDTO `json:"affectedBookings"`
}

type AuditDTO struct {
	Action     string    `json:"action"`
	TargetType *string   `json:"targetType,omitempty"`
	TargetID   *string   `json:"targetId,omitempty"`
	Meta       any       `json:"meta,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// presenter переводит модели в DTO в зоне отображения.
type presenter struct {
	loc *time.Location
	now func() time.Time
}

func (p presenter) event(ev *model.Event) EventDTO {
	return EventDTO{
		PublicID:          ev.PublicID,
		Title:             ev.Title,
		Description:       ev.Description,
		ViewMode:          string(ev.ViewMode),
		VisibleFrom:       ev.VisibleFrom.UTC(),
		VisibleTo:         ev.VisibleTo.UTC(),
		VisibleFromText:   calendar.FormatDateTime(ev.VisibleFrom, p.loc),
		VisibleToText:     calendar.FormatDateTime(ev.VisibleTo, p.loc),
		CancelBeforeHours: ev.CancelBeforeHours,
		IsActive:          ev.IsActive,
		Accepting:         ev.Window().IsAcceptingActivity(p.now()),
		CreatedAt:         ev.CreatedAt.UTC(),
		UpdatedAt:         ev.UpdatedAt.UTC(),
	}
}

// board: публичная доска показывает только имя участника активной брони,
// доска владельца: ещё и контакт.
func (p presenter) board(b *service.EventBoard, owner bool) EventDTO {
	dto := p.event(b.Event)
	dto.Slots = make([]SlotDTO, 0, len(b.Slots))
	for i := range b.Slots {
		s := p.slot(&b.Slots[i])
		for j := range b.Slots[i].Bookings {
			bk := &b.Slots[i].Bookings[j]
			if bk.Status != model.BookingStatusBooked {
				continue
			}
			bd := p.booking(bk)
			if !owner {
				bd.AttendeeContact = nil
			}
			s.Booking = &bd
		}
		dto.Slots = append(dto.Slots, s)
	}
	return dto
}

func (p presenter) slot(s *model.Slot) SlotDTO {
	return SlotDTO{
		ID:            s.ID.String(),
		ProviderName:  s.ProviderName,
		StartAt:       s.StartAt.UTC(),
		EndAt:         s.EndAt.UTC(),
		Display:       calendar.FormatSlot(s.Range(), p.loc),
		Status:        string(s.Status),
		ExamType:      string(s.ExamType),
		ExamTypeLabel: s.ExamType.Label(),
		Note:          s.Note,
	}
}

func (p presenter) booking(b *model.Booking) BookingDTO {
	var canceledAt *time.Time
	if b.CanceledAt != nil {
		t := b.CanceledAt.UTC()
		canceledAt = &t
	}
	return BookingDTO{
		ID:              b.ID.String(),
		AttendeeName:    b.AttendeeName,
		AttendeeContact: b.AttendeeContact,
		Status:          string(b.Status),
		CanceledAt:      canceledAt,
		CreatedAt:       b.CreatedAt.UTC(),
	}
}

func (p presenter) bookings(in []model.Booking) []BookingDTO {
	out := make([]BookingDTO, 0, len(in))
	for i := range in {
		out = append(out, p.booking(&in[i]))
	}
	return out
}
