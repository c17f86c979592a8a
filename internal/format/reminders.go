package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hray3182/remindbot/internal/models"
)

const (
	UpcomingHeader = "Your upcoming reminders:"
	NoUpcoming     = "You have no upcoming reminders."
)

// Formatter renders due times at a fixed UTC offset.
type Formatter struct {
	loc *time.Location
}

func NewFormatter(offset time.Duration) *Formatter {
	return &Formatter{loc: time.FixedZone(zoneName(offset), int(offset/time.Second))}
}

// DueTime renders t like "Mon, Dec 2nd, 9:05".
func (f *Formatter) DueTime(t time.Time) string {
	t = t.In(f.loc)
	return fmt.Sprintf("%s, %s %s, %d:%02d",
		t.Format("Mon"), t.Format("Jan"), ordinal(t.Day()), t.Hour(), t.Minute())
}

// Upcoming renders one line per reminder, soonest first, under a header.
func (f *Formatter) Upcoming(reminders []*models.Reminder) string {
	if len(reminders) == 0 {
		return NoUpcoming
	}

	sorted := make([]*models.Reminder, len(reminders))
	copy(sorted, reminders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DueTime.Before(sorted[j].DueTime)
	})

	var sb strings.Builder
	sb.WriteString(UpcomingHeader)
	for _, r := range sorted {
		sb.WriteString("\n")
		sb.WriteString(f.DueTime(r.DueTime))
		sb.WriteString(": ")
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func ordinal(day int) string {
	suffix := "th"
	switch {
	case day%100 >= 11 && day%100 <= 13:
	case day%10 == 1:
		suffix = "st"
	case day%10 == 2:
		suffix = "nd"
	case day%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", day, suffix)
}

func zoneName(offset time.Duration) string {
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	return fmt.Sprintf("UTC%s%02d:%02d", sign, h, m)
}
