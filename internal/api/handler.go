package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Leganyst/slot-scheduler/internal/apperr"
	"github.com/Leganyst/slot-scheduler/internal/calendar"
	"github.com/Leganyst/slot-scheduler/internal/ics"
	"github.com/Leganyst/slot-scheduler/internal/model"
	"github.com/Leganyst/slot-scheduler/internal/service"
)

// Scheduler: то, что нужно HTTP-слою от сервиса.
type Scheduler interface {
	Now() time.Time

	CreateEvent(ctx context.Context, in service.CreateEventInput) (*model.Event, error)
	GetPublicEvent(ctx context.Context, publicID string) (*service.EventBoard, error)
	GetEventForEdit(ctx context.Context, publicID, editToken string) (*service.EventBoard, error)
	UpdateEvent(ctx context.Context, publicID, editToken string, in service.UpdateEventInput) (*model.Event, error)
	ListAudit(ctx context.Context, publicID, editToken string, page, pageSize int) (calendar.Page[model.AuditLog], error)

	CreateSlot(ctx context.Context, publicID string, in service.CreateSlotInput) (*service.CreatedSlot, error)
	CreateSlots(ctx context.Context, publicID string, in service.CreateSlotsInput) ([]model.Slot, error)
	CancelSlot(ctx context.Context, slotID, cancelToken string) (*service.CancelSlotResult, error)
	PreviewSlotCancel(ctx context.Context, slotID, cancelToken string) (*service.SlotCancelPreview, error)

	CreateBooking(ctx context.Context, slotID string, in service.CreateBookingInput) (*model.Booking, error)
	CancelBooking(ctx context.Context, bookingID, cancelToken string) (*model.Booking, error)
	PreviewBookingCancel(ctx context.Context, bookingID, cancelToken string) (*service.BookingCancelPreview, error)
}

type Handler struct {
	svc     Scheduler
	baseURL string
	loc     *time.Location
	present presenter
	logger  *slog.Logger
}

func NewHandler(svc Scheduler, baseURL string, loc *time.Location, logger *slog.Logger) *Handler {
	return &Handler{
		svc:     svc,
		baseURL: baseURL,
		loc:     loc,
		present: presenter{loc: loc, now: svc.Now},
		logger:  logger,
	}
}

func (h *Handler) publicURL(publicID string) string {
	return fmt.Sprintf("%s/events/%s", h.baseURL, url.PathEscape(publicID))
}

func (h *Handler) editURL(publicID, editToken string) string {
	return fmt.Sprintf("%s/events/%s/edit?token=%s", h.baseURL, url.PathEscape(publicID), url.QueryEscape(editToken))
}

func (h *Handler) cancelURL(kind, id, cancelToken string) string {
	return fmt.Sprintf("%s/cancel/%s/%s?token=%s", h.baseURL, kind, id, url.QueryEscape(cancelToken))
}

func (h *Handler) parseTime(field, raw string) (time.Time, error) {
	t, err := calendar.ParseTimestamp(raw, h.loc)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.CodeInvalidTimestamp, field+": invalid timestamp", err)
	}
	return t, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err)
	}
	return nil
}

// CreateEvent: POST /api/v1/events
func (h *Handler) CreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	from, err := h.parseTime("visibleFrom", req.VisibleFrom)
	if err != nil {
		return err
	}
	to, err := h.parseTime("visibleTo", req.VisibleTo)
	if err != nil {
		return err
	}

	ev, err := h.svc.CreateEvent(c.Request().Context(), service.CreateEventInput{
		Title:             req.Title,
		Description:       req.Description,
		ViewMode:          model.ViewMode(req.ViewMode),
		VisibleFrom:       from,
		VisibleTo:         to,
		CancelBeforeHours: req.CancelBeforeHours,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, CreatedEventDTO{
		Event:     h.present.event(ev),
		EditToken: ev.EditToken,
		PublicURL: h.publicURL(ev.PublicID),
		EditURL:   h.editURL(ev.PublicID, ev.EditToken),
	}, "event created")
}

// GetEvent: GET /api/v1/events/:publicId
func (h *Handler) GetEvent(c echo.Context) error {
	board, err := h.svc.GetPublicEvent(c.Request().Context(), c.Param("publicId"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, h.present.board(board, false), "ok")
}

// GetEventForEdit: GET /api/v1/events/:publicId/edit?token=
func (h *Handler) GetEventForEdit(c echo.Context) error {
	board, err := h.svc.GetEventForEdit(c.Request().Context(), c.Param("publicId"), c.QueryParam("token"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, h.present.board(board, true), "ok")
}

// UpdateEvent: PUT /api/v1/events/:publicId?token=
func (h *Handler) UpdateEvent(c echo.Context) error {
	var req updateEventRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	in := service.UpdateEventInput{
		Title:             req.Title,
		Description:       req.Description,
		CancelBeforeHours: req.CancelBeforeHours,
		IsActive:          req.IsActive,
	}
	if req.ViewMode != nil {
		mode := model.ViewMode(*req.ViewMode)
		in.ViewMode = &mode
	}
	if req.VisibleFrom != nil {
		t, err := h.parseTime("visibleFrom", *req.VisibleFrom)
		if err != nil {
			return err
		}
		in.VisibleFrom = &t
	}
	if req.VisibleTo != nil {
		t, err := h.parseTime("visibleTo", *req.VisibleTo)
		if err != nil {
			return err
		}
		in.VisibleTo = &t
	}

	ev, err := h.svc.UpdateEvent(c.Request().Context(), c.Param("publicId"), c.QueryParam("token"), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, h.present.event(ev), "event updated")
}

// ListAudit: GET /api/v1/events/:publicId/audit?token=&page=&pageSize=
func (h *Handler) ListAudit(c echo.Context) error {
	page, err := intQuery(c, "page")
	if err != nil {
		return err
	}
	pageSize, err := intQuery(c, "pageSize")
	if err != nil {
		return err
	}
	logs, err := h.svc.ListAudit(c.Request().Context(), c.Param("publicId"), c.QueryParam("token"), page, pageSize)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, calendar.MapPage(logs, auditDTO), "ok")
}

func auditDTO(l *model.AuditLog) AuditDTO {
	dto := AuditDTO{Action: string(l.Action), CreatedAt: l.CreatedAt.UTC()}
	if l.TargetType != nil {
		tt := string(*l.TargetType)
		dto.TargetType = &tt
	}
	if l.TargetID != nil {
		id := l.TargetID.String()
		dto.TargetID = &id
	}
	if len(l.Meta) > 0 {
		var meta any
		if err := json.Unmarshal(l.Meta, &meta); err == nil {
			dto.Meta = meta
		}
	}
	return dto
}

// intQuery: пустой параметр даёт 0, дальше PageBounds подставит дефолт.
func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.New(apperr.CodeInvalidInput, name+" must be an integer")
	}
	return n, nil
}

// CreateSlot: POST /api/v1/events/:publicId/slots
func (h *Handler) CreateSlot(c echo.Context) error {
	var req createSlotRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	start, err := h.parseTime("startAt", req.StartAt)
	if err != nil {
		return err
	}

	out, err := h.svc.CreateSlot(c.Request().Context(), c.Param("publicId"), service.CreateSlotInput{
		ProviderName: req.ProviderName,
		StartAt:      start,
		Note:         req.Note,
		ExamType:     model.ExamType(req.ExamType),
	})
	if err != nil {
		return err
	}

	warnings := make([]string, 0, len(out.Overlaps))
	for _, tr := range out.Overlaps {
		warnings = append(warnings, fmt.Sprintf("overlaps with another slot of %s at %s",
			out.Slot.ProviderName, calendar.FormatSlot(tr, h.loc)))
	}
	if len(warnings) > 0 {
		h.logger.Debug("API:CreateSlot:Overlap", "slot_id", out.Slot.ID, "overlaps", len(warnings))
	}

	return respond(c, http.StatusCreated, CreatedSlotDTO{
		Slot:      h.present.slot(out.Slot),
		CancelURL: h.cancelURL("slot", out.Slot.ID.String(), out.Slot.CancelToken),
		Warnings:  warnings,
	}, "slot created")
}

// CreateSlots: POST /api/v1/events/:publicId/slots/bulk
func (h *Handler) CreateSlots(c echo.Context) error {
	var req createSlotsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	from, err := h.parseTime("from", req.From)
	if err != nil {
		return err
	}
	to, err := h.parseTime("to", req.To)
	if err != nil {
		return err
	}

	slots, err := h.svc.CreateSlots(c.Request().Context(), c.Param("publicId"), service.CreateSlotsInput{
		ProviderName: req.ProviderName,
		From:         from,
		To:           to,
		Note:         req.Note,
		ExamType:     model.ExamType(req.ExamType),
	})
	if err != nil {
		return err
	}

	out := make([]CreatedSlotDTO, 0, len(slots))
	for i := range slots {
		out = append(out, CreatedSlotDTO{
			Slot:      h.present.slot(&slots[i]),
			CancelURL: h.cancelURL("slot", slots[i].ID.String(), slots[i].CancelToken),
			Warnings:  []string{},
		})
	}
	return respond(c, http.StatusCreated, out, fmt.Sprintf("%d slots created", len(out)))
}

// CreateBooking: POST /api/v1/slots/:slotId/bookings
func (h *Handler) CreateBooking(c echo.Context) error {
	var req createBookingRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	b, err := h.svc.CreateBooking(c.Request().Context(), c.Param("slotId"), service.CreateBookingInput{
		AttendeeName:    req.AttendeeName,
		AttendeeContact: req.AttendeeContact,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, CreatedBookingDTO{
		Booking:   h.present.booking(b),
		Slot:      h.present.slot(b.Slot),
		CancelURL: h.cancelURL("booking", b.ID.String(), b.CancelToken),
	}, "booking created")
}

// PreviewSlotCancel: GET /api/v1/cancel/slot/:slotId?token=
func (h *Handler) PreviewSlotCancel(c echo.Context) error {
	p, err := h.svc.PreviewSlotCancel(c.Request().Context(), c.Param("slotId"), c.QueryParam("token"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, CancelPreviewDTO{
		Event:     h.present.event(p.Slot.Event),
		Slot:      h.present.slot(p.Slot),
		Bookings:  h.present.bookings(p.ActiveBookings),
		Deadline:  p.Deadline.UTC(),
		CanCancel: p.CanCancel,
	}, "ok")
}

// CancelSlot: POST /api/v1/cancel/slot/:slotId?token=
func (h *Handler) CancelSlot(c echo.Context) error {
	res, err := h.svc.CancelSlot(c.Request().Context(), c.Param("slotId"), c.QueryParam("token"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, CancelSlotDTO{
		Slot:             h.present.slot(res.Slot),
		AffectedBookings: h.present.bookings(res.AffectedBookings),
	}, "slot canceled")
}

// PreviewBookingCancel: GET /api/v1/cancel/booking/:bookingId?token=
func (h *Handler) PreviewBookingCancel(c echo.Context) error {
	p, err := h.svc.PreviewBookingCancel(c.Request().Context(), c.Param("bookingId"), c.QueryParam("token"))
	if err != nil {
		return err
	}
	b := h.present.booking(p.Booking)
	return respond(c, http.StatusOK, CancelPreviewDTO{
		Event:     h.present.event(p.Booking.Slot.Event),
		Slot:      h.present.slot(p.Booking.Slot),
		Booking:   &b,
		Deadline:  p.Deadline.UTC(),
		CanCancel: p.CanCancel,
	}, "ok")
}

// CancelBooking: POST /api/v1/cancel/booking/:bookingId?token=
func (h *Handler) CancelBooking(c echo.Context) error {
	b, err := h.svc.CancelBooking(c.Request().Context(), c.Param("bookingId"), c.QueryParam("token"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, CreatedBookingDTO{
		Booking: h.present.booking(b),
		Slot:    h.present.slot(b.Slot),
	}, "booking canceled")
}

// ExportICS: GET /api/v1/events/:publicId/calendar.ics
func (h *Handler) ExportICS(c echo.Context) error {
	board, err := h.svc.GetPublicEvent(c.Request().Context(), c.Param("publicId"))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := ics.Encode(&buf, board.Event, board.Slots, h.svc.Now()); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "export calendar", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s.ics"`, board.Event.PublicID))
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

// Health: GET /healthz
func (h *Handler) Health(c echo.Context) error {
	return respond(c, http.StatusOK, map[string]string{"status": "ok"}, "ok")
}
