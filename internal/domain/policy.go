package domain

import (
	"fmt"
	"sort"
	"time"
)

// Moderation decides whether a dispatched item is published immediately or
// held for human approval.
type Moderation string

const (
	ModerationReview Moderation = "review"
	ModerationAuto   Moderation = "auto"
)

func (m Moderation) IsValid() bool {
	return m == ModerationReview || m == ModerationAuto
}

// OnEmpty decides what the scheduler does when a slot fires and there is no
// ready item in the queue.
type OnEmpty string

const (
	OnEmptyPause        OnEmpty = "pause"
	OnEmptyAutoGenerate OnEmpty = "auto_generate"
)

func (o OnEmpty) IsValid() bool {
	return o == OnEmptyPause || o == OnEmptyAutoGenerate
}

// WeeklySlot is a recurring weekly dispatch instant. Day 0 is Monday,
// day 6 is Sunday. Time is "HH:MM" in the schedule's timezone.
type WeeklySlot struct {
	Day  int    `json:"day"`
	Time string `json:"time"`
}

func (s WeeklySlot) Validate() error {
	if s.Day < 0 || s.Day > 6 {
		return ErrInvalidSlotDay
	}
	if _, _, err := s.Clock(); err != nil {
		return ErrInvalidSlotTime
	}
	return nil
}

// Clock parses the slot's "HH:MM" time of day.
func (s WeeklySlot) Clock() (hour, minute int, err error) {
	if _, err := fmt.Sscanf(s.Time, "%02d:%02d", &hour, &minute); err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day out of range: %q", s.Time)
	}
	return hour, minute, nil
}

// Schedule is a tenant's weekly recurring slot set. Duplicate day/time pairs
// are allowed; the slot calculator deduplicates the resulting instants.
type Schedule struct {
	Timezone string       `json:"timezone"`
	Slots    []WeeklySlot `json:"slots"`
}

func (s *Schedule) Validate() error {
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return ErrInvalidTimezone
	}
	for _, slot := range s.Slots {
		if err := slot.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SortedSlots returns the slots ordered by (day, time), leaving the
// schedule itself untouched.
func (s *Schedule) SortedSlots() []WeeklySlot {
	sorted := make([]WeeklySlot, len(s.Slots))
	copy(sorted, s.Slots)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Day != sorted[j].Day {
			return sorted[i].Day < sorted[j].Day
		}
		return sorted[i].Time < sorted[j].Time
	})
	return sorted
}

// PublishPolicy is the per-tenant auto-publication configuration. One row
// per tenant.
type PublishPolicy struct {
	TenantID        string     `json:"tenant_id"`
	Active          bool       `json:"active"`
	Schedule        Schedule   `json:"schedule"`
	Moderation      Moderation `json:"moderation"`
	OnEmpty         OnEmpty    `json:"on_empty"`
	GenerateCovers  bool       `json:"generate_covers"`
	Generating      bool       `json:"generating"`
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UpsertPolicyRequest is the inbound payload for creating or replacing a
// tenant's policy. Zero-value Moderation/OnEmpty take the defaults that the
// original product ships with (review, pause).
type UpsertPolicyRequest struct {
	Active         *bool      `json:"active,omitempty"`
	Schedule       Schedule   `json:"schedule"`
	Moderation     Moderation `json:"moderation,omitempty"`
	OnEmpty        OnEmpty    `json:"on_empty,omitempty"`
	GenerateCovers *bool      `json:"generate_covers,omitempty"`
}

func (r *UpsertPolicyRequest) Validate() error {
	if err := r.Schedule.Validate(); err != nil {
		return err
	}
	if r.Moderation == "" {
		r.Moderation = ModerationReview
	}
	if !r.Moderation.IsValid() {
		return ErrInvalidModeration
	}
	if r.OnEmpty == "" {
		r.OnEmpty = OnEmptyPause
	}
	if !r.OnEmpty.IsValid() {
		return ErrInvalidOnEmpty
	}
	return nil
}

// ToggleField names a policy field flipped by the toggle operation.
type ToggleField string

const (
	ToggleModeration     ToggleField = "moderation"
	ToggleOnEmpty        ToggleField = "on_empty"
	ToggleGenerateCovers ToggleField = "generate_covers"
)

func (f ToggleField) IsValid() bool {
	switch f {
	case ToggleModeration, ToggleOnEmpty, ToggleGenerateCovers:
		return true
	}
	return false
}
