package models

import "time"

// Status is the auction lifecycle phase. The order of the constants is the
// only order status is ever allowed to move in.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusLive      Status = "LIVE"
	StatusEnded     Status = "ENDED"
	StatusClosed    Status = "CLOSED"
)

// Rank returns the position of s in the lifecycle, 0 for unknown values.
func (s Status) Rank() int {
	switch s {
	case StatusScheduled:
		return 1
	case StatusLive:
		return 2
	case StatusEnded:
		return 3
	case StatusClosed:
		return 4
	}
	return 0
}

func (s Status) Valid() bool { return s.Rank() > 0 }

// Schedule is the part of an auction the clock cares about.
type Schedule struct {
	GoLiveAt        time.Time
	DurationMinutes int
}

func (a *Auction) Schedule() Schedule {
	return Schedule{GoLiveAt: a.GoLiveAt, DurationMinutes: a.DurationMinutes}
}

func (s Schedule) EndsAt() time.Time {
	return s.GoLiveAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// DeriveStatus maps a schedule onto its clock phase. CLOSED is never
// returned; it is only reachable through a negotiation outcome.
func DeriveStatus(s Schedule, now time.Time) Status {
	if now.Before(s.GoLiveAt) {
		return StatusScheduled
	}
	if now.Before(s.EndsAt()) {
		return StatusLive
	}
	return StatusEnded
}

// MergeStatus returns the latest phase among the given values. Unknown or
// empty values are ignored, so a missing cache hint never wins.
func MergeStatus(statuses ...Status) Status {
	var out Status
	for _, s := range statuses {
		if s.Rank() > out.Rank() {
			out = s
		}
	}
	return out
}

// TimeLeft is the time until bidding closes, never negative.
func (s Schedule) TimeLeft(now time.Time) time.Duration {
	left := s.EndsAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
