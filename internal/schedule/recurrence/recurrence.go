// Package recurrence computes when a recurring schedule fires next.
//
// All wall-clock math happens in the schedule's IANA timezone; results are
// UTC instants strictly after the reference time.
package recurrence

import (
	"fmt"
	"sort"
	"time"
	_ "time/tzdata" // zone database for hosts without /usr/share/zoneinfo

	"actionitems-backend/internal/schedule/domain"

	"github.com/jinzhu/now"
)

// Rule is the subset of a schedule that determines its next run.
type Rule struct {
	Frequency  domain.Frequency
	DayOfWeek  *int
	DayOfMonth *int
	SendTime   string
	Timezone   string
}

// RuleOf extracts the recurrence fields of a schedule.
func RuleOf(s *domain.ScheduledEmail) Rule {
	return Rule{
		Frequency:  s.Frequency,
		DayOfWeek:  s.DayOfWeek,
		DayOfMonth: s.DayOfMonth,
		SendTime:   s.SendTime,
		Timezone:   s.Timezone,
	}
}

// NextRun returns the first instant after ref at which rule fires.
func NextRun(rule Rule, ref time.Time) (time.Time, error) {
	hour, minute, err := ParseSendTime(rule.SendTime)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := LoadZone(rule.Timezone)
	if err != nil {
		return time.Time{}, err
	}

	local := ref.In(loc)
	elapsed := local.Hour() > hour || (local.Hour() == hour && local.Minute() >= minute)

	// Calendar dates are carried as midnight UTC so AddDate never meets a DST edge.
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	switch rule.Frequency {
	case domain.FrequencyDaily:
		if elapsed {
			date = date.AddDate(0, 0, 1)
		}

	case domain.FrequencyWeekly:
		if rule.DayOfWeek == nil {
			return time.Time{}, fmt.Errorf("%w: day_of_week is required for weekly schedules", domain.ErrInvalidScheduleConfig)
		}
		dow := *rule.DayOfWeek
		if dow < 0 || dow > 6 {
			return time.Time{}, fmt.Errorf("%w: day_of_week %d out of range 0-6", domain.ErrInvalidScheduleConfig, dow)
		}
		delta := (dow - int(local.Weekday()) + 7) % 7
		if delta == 0 && elapsed {
			delta = 7
		}
		date = date.AddDate(0, 0, delta)

	case domain.FrequencyMonthly:
		if rule.DayOfMonth == nil {
			return time.Time{}, fmt.Errorf("%w: day_of_month is required for monthly schedules", domain.ErrInvalidScheduleConfig)
		}
		dom := *rule.DayOfMonth
		if dom < 1 || dom > 31 {
			return time.Time{}, fmt.Errorf("%w: day_of_month %d out of range 1-31", domain.ErrInvalidScheduleConfig, dom)
		}
		target := min(dom, DaysIn(date.Year(), date.Month()))
		if local.Day() > target || (local.Day() == target && elapsed) {
			first := time.Date(date.Year(), date.Month()+1, 1, 0, 0, 0, 0, time.UTC)
			date = time.Date(first.Year(), first.Month(), min(dom, DaysIn(first.Year(), first.Month())), 0, 0, 0, 0, time.UTC)
		} else {
			date = time.Date(date.Year(), date.Month(), target, 0, 0, 0, 0, time.UTC)
		}

	default:
		return time.Time{}, fmt.Errorf("%w: unknown frequency %q", domain.ErrInvalidScheduleConfig, rule.Frequency)
	}

	wall := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC)
	return resolve(wall, loc, ref).UTC(), nil
}

// ParseSendTime parses a 24-hour "HH:MM" string.
func ParseSendTime(s string) (hour, minute int, err error) {
	if len(s) != 5 {
		return 0, 0, fmt.Errorf("%w: send_time %q must be HH:MM", domain.ErrInvalidScheduleConfig, s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: send_time %q must be HH:MM", domain.ErrInvalidScheduleConfig, s)
	}
	return t.Hour(), t.Minute(), nil
}

// LoadZone resolves an IANA timezone name. The empty name and "Local" are
// rejected because they do not name a zone.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: timezone %q is not an IANA zone", domain.ErrInvalidScheduleConfig, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", domain.ErrInvalidScheduleConfig, name)
	}
	return loc, nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return now.With(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)).EndOfMonth().Day()
}

// resolve maps a wall-clock time (carried in a UTC time value) to an instant
// in loc. A wall time that occurs twice resolves to the earliest occurrence
// after ref; a wall time skipped by a forward transition is shifted forward by
// the length of the gap.
func resolve(wall time.Time, loc *time.Location, ref time.Time) time.Time {
	_, before := wall.Add(-24 * time.Hour).In(loc).Zone()
	_, after := wall.Add(24 * time.Hour).In(loc).Zone()

	offsets := []int{before}
	if after != before {
		offsets = append(offsets, after)
	}

	var matches []time.Time
	for _, off := range offsets {
		t := wall.Add(-time.Duration(off) * time.Second)
		if sameWall(t.In(loc), wall) {
			matches = append(matches, t)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Before(matches[j]) })

	for _, t := range matches {
		if t.After(ref) {
			return t
		}
	}
	if len(matches) > 0 {
		return matches[0]
	}
	// Gap: interpret with the offset in force before the transition.
	return wall.Add(-time.Duration(before) * time.Second)
}

func sameWall(t, wall time.Time) bool {
	return t.Year() == wall.Year() && t.Month() == wall.Month() && t.Day() == wall.Day() &&
		t.Hour() == wall.Hour() && t.Minute() == wall.Minute()
}
