package agent

import (
	"fmt"
	"strings"
	"time"
)

// bookingLeadTime is the minimum gap between "now" and a bookable slot.
const bookingLeadTime = 10 * time.Minute

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// resolveBookingDate turns a spoken date into a calendar day in now's
// location. Accepts MM-DD-YYYY, YYYY-MM-DD, "today", "tomorrow", bare weekday
// names and "next <weekday>".
func resolveBookingDate(raw string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	loc := now.Location()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch s {
	case "today":
		return midnight, nil
	case "tomorrow":
		return midnight.AddDate(0, 0, 1), nil
	}

	if wd, ok := weekdays[strings.TrimSpace(strings.TrimPrefix(s, "next "))]; ok {
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		// "next sunday" on a Sunday means a week out; bare "sunday" means today.
		if ahead == 0 && strings.HasPrefix(s, "next ") {
			ahead = 7
		}
		return midnight.AddDate(0, 0, ahead), nil
	}

	for _, layout := range []string{"01-02-2006", "2006-01-02", "01/02/2006"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("agent: cannot parse date %q", raw)
}

// resolveBookingSlot combines a date expression and a clock time into one
// instant in now's location.
func resolveBookingSlot(dateRaw, timeRaw string, now time.Time) (time.Time, error) {
	day, err := resolveBookingDate(dateRaw, now)
	if err != nil {
		return time.Time{}, err
	}

	s := strings.ToUpper(strings.TrimSpace(timeRaw))
	for _, layout := range []string{"15:04", "3:04 PM", "3:04PM", "3 PM", "3PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
		}
	}
	return time.Time{}, fmt.Errorf("agent: cannot parse time %q", timeRaw)
}
