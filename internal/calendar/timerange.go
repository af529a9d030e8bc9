package calendar

import (
	"errors"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrSlotDuration     = errors.New("slot duration must be positive")
)

// SlotDuration: длительность одного слота. Фиксирована.
const SlotDuration = time.Hour

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// SlotRange возвращает интервал слота, начинающегося в start.
func SlotRange(start time.Time) TimeRange {
	return TimeRange{Start: start, End: AddOneHour(start)}
}

// AddOneHour: конец слота по его началу.
func AddOneHour(t time.Time) time.Time {
	return t.Add(SlotDuration)
}

// NormalizeTimeRange нормализует интервал:
//   - меняет местами границы, если они перепутаны;
//   - переводит в часовой пояс loc;
//   - при превышении maxDuration обрезает до start+maxDuration.
//
// Если maxDuration <= 0, ограничение не применяется.
func NormalizeTimeRange(start, end time.Time, loc *time.Location, maxDuration time.Duration) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, ErrInvalidTimeRange
	}

	if end.Before(start) {
		start, end = end, start
	}

	if loc != nil {
		start = start.In(loc)
		end = end.In(loc)
	}

	if maxDuration > 0 && end.Sub(start) > maxDuration {
		end = start.Add(maxDuration)
	}

	if !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}

	return TimeRange{Start: start, End: end}, nil
}

// SplitToTimeSlots разбивает интервал на слоты фиксированной длительности.
// Хвост короче slotDuration отбрасывается.
func SplitToTimeSlots(tr TimeRange, slotDuration time.Duration) ([]TimeRange, error) {
	if slotDuration <= 0 {
		return nil, ErrSlotDuration
	}
	if !tr.End.After(tr.Start) {
		return []TimeRange{}, nil
	}

	var slots []TimeRange
	for cur := tr.Start; !cur.Add(slotDuration).After(tr.End); cur = cur.Add(slotDuration) {
		slots = append(slots, TimeRange{Start: cur, End: cur.Add(slotDuration)})
	}
	return slots, nil
}

// HasOverlap проверяет, пересекается ли newRange с existing.
// Интервалы полуоткрытые: касание концами пересечением не считается.
func HasOverlap(newRange TimeRange, existing []TimeRange) (bool, []TimeRange) {
	var conflicts []TimeRange
	for _, tr := range existing {
		if newRange.Start.Before(tr.End) && tr.Start.Before(newRange.End) {
			conflicts = append(conflicts, tr)
		}
	}
	return len(conflicts) > 0, conflicts
}
