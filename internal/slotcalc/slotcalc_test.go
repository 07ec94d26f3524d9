package slotcalc_test

import (
	"testing"
	"time"

	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/slotcalc"
)

// 2024-01-01 is a Monday, which maps to slot day 0.
var monday = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func utcSchedule(slots ...domain.WeeklySlot) domain.Schedule {
	return domain.Schedule{Timezone: "UTC", Slots: slots}
}

func TestNextTimes_OrderedAndFuture(t *testing.T) {
	schedule := utcSchedule(
		domain.WeeklySlot{Day: 0, Time: "10:00"},
		domain.WeeklySlot{Day: 2, Time: "18:00"},
	)

	got, err := slotcalc.NextTimes(schedule, monday, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d times, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("times[%d]: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestNextTimes_SlotAtNowIsExcluded(t *testing.T) {
	schedule := utcSchedule(domain.WeeklySlot{Day: 0, Time: "09:00"})

	got, err := slotcalc.NextTimes(schedule, monday, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 09:00 Monday is exactly now; the next occurrence is a week out.
	want := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	if len(got) != 1 || !got[0].Equal(want) {
		t.Fatalf("expected [%v], got %v", want, got)
	}
}

func TestNextTimes_DuplicateSlotsDeduplicated(t *testing.T) {
	schedule := utcSchedule(
		domain.WeeklySlot{Day: 0, Time: "10:00"},
		domain.WeeklySlot{Day: 0, Time: "10:00"},
		domain.WeeklySlot{Day: 4, Time: "12:30"},
	)

	got, err := slotcalc.NextTimes(schedule, monday, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[int64]bool{}
	for _, ts := range got {
		if seen[ts.Unix()] {
			t.Fatalf("duplicate instant %v in %v", ts, got)
		}
		seen[ts.Unix()] = true
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 distinct times, got %d", len(got))
	}
}

func TestNextTimes_StrictlyIncreasing(t *testing.T) {
	schedule := utcSchedule(
		domain.WeeklySlot{Day: 6, Time: "23:30"},
		domain.WeeklySlot{Day: 0, Time: "00:15"},
		domain.WeeklySlot{Day: 3, Time: "07:45"},
	)

	got, err := slotcalc.NextTimes(schedule, monday, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 9 {
		t.Fatalf("expected 9 times, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].After(got[i-1]) {
			t.Fatalf("times not strictly increasing at %d: %v then %v", i, got[i-1], got[i])
		}
	}
	for _, ts := range got {
		if !ts.After(monday) {
			t.Fatalf("time %v is not in the future of %v", ts, monday)
		}
	}
}

func TestNextTimes_EmptySchedule(t *testing.T) {
	got, err := slotcalc.NextTimes(utcSchedule(), monday, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no times for an empty schedule, got %v", got)
	}
}

func TestNextTimes_Timezone(t *testing.T) {
	schedule := domain.Schedule{
		Timezone: "Europe/Berlin",
		Slots:    []domain.WeeklySlot{{Day: 0, Time: "10:00"}},
	}

	// January: Berlin is UTC+1, so 10:00 local is 09:00 UTC.
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	got, err := slotcalc.NextTimes(schedule, now, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if len(got) != 1 || !got[0].Equal(want) {
		t.Fatalf("expected [%v], got %v", want, got)
	}
}

func TestNextTimes_InvalidTimezone(t *testing.T) {
	schedule := domain.Schedule{
		Timezone: "Mars/Olympus",
		Slots:    []domain.WeeklySlot{{Day: 0, Time: "10:00"}},
	}
	if _, err := slotcalc.NextTimes(schedule, monday, 1); err == nil {
		t.Fatal("expected an error for an unknown timezone")
	}
}

func TestNextTime(t *testing.T) {
	schedule := utcSchedule(domain.WeeklySlot{Day: 2, Time: "18:00"})

	got, err := slotcalc.NextTime(schedule, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got, err = slotcalc.NextTime(utcSchedule(), monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for an empty schedule, got %v", got)
	}
}

func TestMatches(t *testing.T) {
	schedule := utcSchedule(domain.WeeklySlot{Day: 0, Time: "09:00"})

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"exact minute", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), true},
		{"within the minute", time.Date(2024, 1, 1, 9, 0, 59, 0, time.UTC), true},
		{"one minute late", time.Date(2024, 1, 1, 9, 1, 0, 0, time.UTC), false},
		{"right time wrong day", time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := slotcalc.Matches(schedule, tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Matches(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestMatches_TimezoneBoundary(t *testing.T) {
	// 23:30 Sunday in Berlin during winter is 22:30 Sunday UTC; the slot
	// day must be evaluated in the schedule's timezone, not UTC.
	schedule := domain.Schedule{
		Timezone: "Europe/Berlin",
		Slots:    []domain.WeeklySlot{{Day: 0, Time: "00:30"}},
	}
	// Monday 00:30 Berlin == Sunday 23:30 UTC.
	now := time.Date(2023, 12, 31, 23, 30, 0, 0, time.UTC)
	got, err := slotcalc.Matches(schedule, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Fatal("expected a match on the local Monday 00:30 slot")
	}
}

func TestPostsPerWeek(t *testing.T) {
	tests := []struct {
		name  string
		slots int
		want  int
	}{
		{"no slots", 0, 0},
		{"one slot floors to two", 1, 2},
		{"two slots", 2, 2},
		{"five slots", 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := make([]domain.WeeklySlot, tt.slots)
			for i := range slots {
				slots[i] = domain.WeeklySlot{Day: i % 7, Time: "10:00"}
			}
			got := slotcalc.PostsPerWeek(utcSchedule(slots...))
			if got != tt.want {
				t.Fatalf("PostsPerWeek with %d slots = %d, want %d", tt.slots, got, tt.want)
			}
		})
	}
}
