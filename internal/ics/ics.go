package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/Leganyst/slot-scheduler/internal/model"
)

const productID = "-//slot-scheduler//EN"

// Encode пишет VCALENDAR с живыми (не отменёнными) слотами события.
// Секреты и данные участников в выгрузку не попадают.
func Encode(w io.Writer, ev *model.Event, slots []model.Slot, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText("X-WR-CALNAME", ev.Title)

	for i := range slots {
		if slots[i].Status == model.SlotStatusCanceled {
			continue
		}
		cal.Children = append(cal.Children, toVEvent(ev, &slots[i], now))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode ics: %w", err)
	}
	return nil
}

func toVEvent(ev *model.Event, slot *model.Slot, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, slot.ID.String()+"@slot-scheduler")
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, slot.StartAt.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, slot.EndAt.UTC())
	ve.Props.SetText(ical.PropSummary, fmt.Sprintf("%s: %s (%s)", ev.Title, slot.ProviderName, slot.ExamType.Label()))

	status := "TENTATIVE"
	if slot.Status == model.SlotStatusBooked {
		status = "CONFIRMED"
	}
	ve.Props.SetText(ical.PropStatus, status)

	if slot.Note != nil && *slot.Note != "" {
		ve.Props.SetText(ical.PropDescription, *slot.Note)
	}
	return ve
}
