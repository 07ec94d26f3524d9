// Package slotcalc turns a weekly recurring slot schedule into absolute
// future timestamps. All functions are pure: "now" is an argument, never
// read from a clock, so results are fully deterministic.
package slotcalc

import (
	"sort"
	"time"

	"github.com/postloop/autopublisher/internal/domain"
)

// NextTimes returns up to n strictly increasing UTC timestamps, all strictly
// after now, at which the schedule's slots next occur. An empty slot set
// yields an empty result. Duplicate day/time pairs in the schedule collapse
// to a single instant.
//
// A slot whose local time equals now to the second counts as already past.
func NextTimes(schedule domain.Schedule, now time.Time, n int) ([]time.Time, error) {
	if n <= 0 || len(schedule.Slots) == 0 {
		return nil, nil
	}

	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return nil, domain.ErrInvalidTimezone
	}
	nowLocal := now.In(loc)
	slots := schedule.SortedSlots()

	result := make([]time.Time, 0, n)
	seen := make(map[int64]struct{}, n)

	// Walk forward one week per iteration; n*4 weeks is a safety bound
	// against schedules whose every candidate lands in the past.
	cursor := nowLocal
	for iter := 0; len(result) < n && iter < n*4; iter++ {
		for _, slot := range slots {
			hour, minute, err := slot.Clock()
			if err != nil {
				return nil, domain.ErrInvalidSlotTime
			}

			daysAhead := (slot.Day - weekday(cursor) + 7) % 7
			date := cursor.AddDate(0, 0, daysAhead)
			candidate := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)

			if !candidate.After(nowLocal) {
				continue
			}

			utc := candidate.UTC()
			if _, dup := seen[utc.Unix()]; dup {
				continue
			}
			seen[utc.Unix()] = struct{}{}
			result = append(result, utc)

			if len(result) >= n {
				break
			}
		}
		cursor = cursor.AddDate(0, 0, 7)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })
	return result, nil
}

// NextTime returns the single next slot instant after now, or nil when the
// schedule has no slots. Used for user-facing "next post at" displays.
func NextTime(schedule domain.Schedule, now time.Time) (*time.Time, error) {
	times, err := NextTimes(schedule, now, 1)
	if err != nil || len(times) == 0 {
		return nil, err
	}
	return &times[0], nil
}

// Matches reports whether now falls exactly on one of the schedule's slots,
// to the minute, in the schedule's timezone. This is the slot-fire test the
// scheduler loop runs every tick.
func Matches(schedule domain.Schedule, now time.Time) (bool, error) {
	if len(schedule.Slots) == 0 {
		return false, nil
	}
	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return false, domain.ErrInvalidTimezone
	}
	local := now.In(loc)
	day := weekday(local)
	hhmm := local.Format("15:04")

	for _, slot := range schedule.Slots {
		if slot.Day == day && slot.Time == hhmm {
			return true, nil
		}
	}
	return false, nil
}

// PostsPerWeek counts the schedule's slots, the sizing input for a generated
// content plan (one post per weekly slot, minimum 2).
func PostsPerWeek(schedule domain.Schedule) int {
	if len(schedule.Slots) == 0 {
		return 0
	}
	if len(schedule.Slots) < 2 {
		return 2
	}
	return len(schedule.Slots)
}

// weekday maps Go's Sunday-based weekday to the schedule convention
// (0 = Monday .. 6 = Sunday).
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
