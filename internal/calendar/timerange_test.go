package calendar

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Leganyst/slot-scheduler/internal/apperr"
)

func mustTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func equalTimeRangeSlices(a, b []TimeRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			return false
		}
	}
	return true
}

//
// NormalizeTimeRange
//

func TestNormalizeTimeRange_SwappedBounds(t *testing.T) {
	start := mustTime(t, 2025, 1, 1, 12, 0)
	end := mustTime(t, 2025, 1, 1, 10, 0)

	tr, err := NormalizeTimeRange(start, end, time.UTC, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !tr.Start.Equal(end) || !tr.End.Equal(start) {
		t.Fatalf("expected Start=%v End=%v, got %v", end, start, tr)
	}
}

func TestNormalizeTimeRange_MaxDuration(t *testing.T) {
	start := mustTime(t, 2025, 1, 1, 10, 0)
	end := mustTime(t, 2025, 1, 1, 15, 0)

	tr, err := NormalizeTimeRange(start, end, time.UTC, 2*time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d := tr.End.Sub(tr.Start); d != 2*time.Hour {
		t.Fatalf("expected duration 2h, got %v", d)
	}
}

func TestNormalizeTimeRange_InvalidZero(t *testing.T) {
	if _, err := NormalizeTimeRange(time.Time{}, time.Time{}, time.UTC, 0); err == nil {
		t.Fatalf("expected error for zero times, got nil")
	}
}

func TestNormalizeTimeRange_Empty(t *testing.T) {
	ts := mustTime(t, 2025, 1, 1, 10, 0)
	if _, err := NormalizeTimeRange(ts, ts, time.UTC, 0); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

//
// SplitToTimeSlots
//

func TestSplitToTimeSlots_Hourly(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2025, 1, 15, 10, 0), End: mustTime(t, 2025, 1, 15, 13, 0)}

	slots, err := SplitToTimeSlots(tr, SlotDuration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []TimeRange{
		{Start: mustTime(t, 2025, 1, 15, 10, 0), End: mustTime(t, 2025, 1, 15, 11, 0)},
		{Start: mustTime(t, 2025, 1, 15, 11, 0), End: mustTime(t, 2025, 1, 15, 12, 0)},
		{Start: mustTime(t, 2025, 1, 15, 12, 0), End: mustTime(t, 2025, 1, 15, 13, 0)},
	}
	if !equalTimeRangeSlices(slots, expected) {
		t.Fatalf("expected %+v, got %+v", expected, slots)
	}
}

func TestSplitToTimeSlots_TailDropped(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2025, 1, 1, 10, 0), End: mustTime(t, 2025, 1, 1, 12, 30)}

	slots, err := SplitToTimeSlots(tr, SlotDuration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
}

func TestSplitToTimeSlots_InvalidDuration(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2025, 1, 1, 10, 0), End: mustTime(t, 2025, 1, 1, 11, 0)}
	if _, err := SplitToTimeSlots(tr, 0); !errors.Is(err, ErrSlotDuration) {
		t.Fatalf("expected ErrSlotDuration, got %v", err)
	}
}

//
// HasOverlap
//

func TestHasOverlap_TouchingIsNotOverlap(t *testing.T) {
	newRange := SlotRange(mustTime(t, 2025, 1, 1, 10, 0))
	existing := []TimeRange{SlotRange(mustTime(t, 2025, 1, 1, 11, 0))}

	if has, conflicts := HasOverlap(newRange, existing); has {
		t.Fatalf("expected no overlap, got conflicts: %+v", conflicts)
	}
}

func TestHasOverlap_OverlapFound(t *testing.T) {
	newRange := SlotRange(mustTime(t, 2025, 1, 1, 10, 30))
	existing := []TimeRange{
		SlotRange(mustTime(t, 2025, 1, 1, 9, 0)),
		SlotRange(mustTime(t, 2025, 1, 1, 11, 0)),
	}

	has, conflicts := HasOverlap(newRange, existing)
	if !has || len(conflicts) != 1 {
		t.Fatalf("expected exactly 1 conflict, got %v %+v", has, conflicts)
	}
}

//
// CanCancel / Window
//

func TestCanCancel(t *testing.T) {
	start := mustTime(t, 2025, 1, 15, 10, 0)

	if !CanCancel(start, 24, mustTime(t, 2025, 1, 14, 10, 0)) {
		t.Fatalf("exactly at the deadline cancellation must be allowed")
	}
	if CanCancel(start, 24, mustTime(t, 2025, 1, 14, 10, 1)) {
		t.Fatalf("after the deadline cancellation must be refused")
	}
	if !CanCancel(start, 0, start) {
		t.Fatalf("with zero lead time cancellation is allowed up to start")
	}
	if CanCancel(start, 0, start.Add(time.Second)) {
		t.Fatalf("after start cancellation must be refused")
	}
}

func TestWindow_IsAcceptingActivity(t *testing.T) {
	w := Window{
		Active: true,
		From:   mustTime(t, 2025, 1, 1, 0, 0),
		To:     mustTime(t, 2025, 2, 1, 0, 0),
	}

	if !w.IsAcceptingActivity(mustTime(t, 2025, 1, 10, 0, 0)) {
		t.Fatalf("inside the window must accept")
	}
	if !w.IsAcceptingActivity(w.From) || !w.IsAcceptingActivity(w.To) {
		t.Fatalf("window bounds are inclusive")
	}
	if w.IsAcceptingActivity(w.From.Add(-time.Second)) || w.IsAcceptingActivity(w.To.Add(time.Second)) {
		t.Fatalf("outside the window must refuse")
	}
	w.Active = false
	if w.IsAcceptingActivity(mustTime(t, 2025, 1, 10, 0, 0)) {
		t.Fatalf("inactive event must refuse")
	}
}

//
// ParseTimestamp / форматирование
//

func TestParseTimestamp(t *testing.T) {
	tokyo, err := LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	got, err := ParseTimestamp("2025-01-15T10:00:00Z", tokyo)
	if err != nil || !got.Equal(mustTime(t, 2025, 1, 15, 10, 0)) {
		t.Fatalf("RFC3339: got %v, %v", got, err)
	}

	got, err = ParseTimestamp("2025-01-15T19:00", tokyo)
	if err != nil || !got.Equal(mustTime(t, 2025, 1, 15, 10, 0)) {
		t.Fatalf("datetime-local in JST: got %v, %v", got, err)
	}

	for _, bad := range []string{"", "tomorrow", "2025-13-01T00:00"} {
		if _, err := ParseTimestamp(bad, tokyo); !errors.Is(err, apperr.ErrInvalidTimestamp) {
			t.Fatalf("ParseTimestamp(%q): expected InvalidTimestamp, got %v", bad, err)
		}
	}
}

func TestFormatSlot(t *testing.T) {
	tokyo, err := LoadLocation("")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	s := FormatSlot(SlotRange(mustTime(t, 2025, 1, 15, 10, 0)), tokyo)
	if s != "2025/01/15(水) 19:00–20:00" {
		t.Fatalf("unexpected format: %q", s)
	}
	if got := FormatDateTime(mustTime(t, 2025, 1, 15, 10, 0), tokyo); got != "2025/01/15 19:00" {
		t.Fatalf("unexpected FormatDateTime: %q", got)
	}
	if !strings.HasPrefix(FormatDate(mustTime(t, 2025, 1, 31, 20, 0), tokyo), "2025/02/01") {
		t.Fatalf("date must roll over in JST")
	}
}

//
// Paginate
//

func TestPaginate_Basic(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	page := Paginate(items, 1, 5)

	if len(page.Items) != 5 || page.HasPrev || !page.HasNext || page.Total != len(items) {
		t.Fatalf("unexpected first page: %+v", page)
	}
}

func TestPaginate_LastPage(t *testing.T) {
	page := Paginate([]int{1, 2, 3, 4, 5, 6}, 2, 4)
	if len(page.Items) != 2 || !page.HasPrev || page.HasNext {
		t.Fatalf("unexpected last page: %+v", page)
	}
}

func TestPaginate_Empty(t *testing.T) {
	var items []int
	page := Paginate(items, 1, 0)
	if len(page.Items) != 0 || page.HasNext || page.HasPrev || page.PageSize != DefaultPageSize {
		t.Fatalf("unexpected empty page: %+v", page)
	}
}

func TestNewPage_FromStoreWindow(t *testing.T) {
	// вторая страница по 2 из 5 записей
	page := NewPage([]string{"c", "d"}, 2, 2, 5)
	if !page.HasNext || !page.HasPrev || page.Total != 5 {
		t.Fatalf("unexpected middle page: %+v", page)
	}

	past := NewPage[string](nil, 4, 2, 5)
	if len(past.Items) != 0 || past.HasNext || past.Total != 5 {
		t.Fatalf("unexpected page past the end: %+v", past)
	}

	p, size, offset := PageBounds(0, MaxPageSize+1)
	if p != 1 || size != MaxPageSize || offset != 0 {
		t.Fatalf("PageBounds = %d %d %d", p, size, offset)
	}
}

func TestMapPage_KeepsMeta(t *testing.T) {
	page := MapPage(Paginate([]int{1, 2, 3}, 1, 2), func(v *int) string { return fmt.Sprint(*v * 10) })
	if len(page.Items) != 2 || page.Items[1] != "20" || !page.HasNext || page.Total != 3 {
		t.Fatalf("unexpected mapped page: %+v", page)
	}
}
