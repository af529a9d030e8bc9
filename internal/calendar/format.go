package calendar

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Leganyst/slot-scheduler/internal/apperr"
)

// DefaultTimeZone: зона отображения по умолчанию.
const DefaultTimeZone = "Asia/Tokyo"

const (
	layoutDateTime = "2006/01/02 15:04"
	layoutDate     = "2006/01/02"
	layoutTime     = "15:04"
)

// Форматы, которые принимает ParseTimestamp без явной зоны (datetime-local из форм).
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

var jaWeekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// LoadLocation: time.LoadLocation с дефолтом на DefaultTimeZone.
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}

// ParseTimestamp разбирает RFC3339 или datetime-local (в зоне loc).
// Результат всегда в UTC.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Wrap(apperr.CodeInvalidTimestamp, "timestamp is empty", nil)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Wrap(apperr.CodeInvalidTimestamp, fmt.Sprintf("cannot parse %q", s), nil)
}

func FormatDateTime(t time.Time, loc *time.Location) string {
	return inZone(t, loc).Format(layoutDateTime)
}

func FormatDate(t time.Time, loc *time.Location) string {
	return inZone(t, loc).Format(layoutDate)
}

func FormatTime(t time.Time, loc *time.Location) string {
	return inZone(t, loc).Format(layoutTime)
}

// FormatSlot: "2025/01/15(水) 19:00–20:00".
func FormatSlot(tr TimeRange, loc *time.Location) string {
	start := inZone(tr.Start, loc)
	end := inZone(tr.End, loc)
	return fmt.Sprintf("%s(%s) %s–%s",
		start.Format(layoutDate),
		jaWeekdays[start.Weekday()],
		start.Format(layoutTime),
		end.Format(layoutTime),
	)
}

func inZone(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}
