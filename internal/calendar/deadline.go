package calendar

import "time"

const (
	MinCancelBeforeHours = 0
	MaxCancelBeforeHours = 72
)

// CancelDeadline: последний момент, когда ещё можно отменить слот/бронь.
func CancelDeadline(startAt time.Time, cancelBeforeHours int) time.Time {
	return startAt.Add(-time.Duration(cancelBeforeHours) * time.Hour)
}

// CanCancel: (startAt - now) >= cancelBeforeHours часов.
func CanCancel(startAt time.Time, cancelBeforeHours int, now time.Time) bool {
	return !now.After(CancelDeadline(startAt, cancelBeforeHours))
}

// Window: окно приёма слотов и бронирований события.
type Window struct {
	Active bool
	From   time.Time
	To     time.Time
}

// IsAcceptingActivity: событие активно и now ∈ [From, To] (границы включены).
func (w Window) IsAcceptingActivity(now time.Time) bool {
	return w.Active && !now.Before(w.From) && !now.After(w.To)
}
