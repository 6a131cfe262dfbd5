// ABOUTME: Opportunity status lifecycle and transition rules
// ABOUTME: Canonical status enum plus parsing of the legacy narrow status set
package models

import (
	"strings"

	"github.com/harperreed/introengine/apperr"
)

type Status string

const (
	StatusSuggested      Status = "suggested"
	StatusNew            Status = "new"
	StatusContacted      Status = "contacted"
	StatusIntroRequested Status = "intro_requested"
	StatusMeetingBooked  Status = "meeting_booked"
	StatusDemoScheduled  Status = "demo_scheduled"
	StatusWon            Status = "won"
	StatusLost           Status = "lost"
)

// pipeline position; won and lost share the last slot.
var statusRank = map[Status]int{
	StatusSuggested:      0,
	StatusNew:            1,
	StatusContacted:      2,
	StatusIntroRequested: 3,
	StatusMeetingBooked:  4,
	StatusDemoScheduled:  5,
	StatusWon:            6,
	StatusLost:           6,
}

// AllStatuses lists the canonical statuses in pipeline order.
func AllStatuses() []Status {
	return []Status{
		StatusSuggested, StatusNew, StatusContacted, StatusIntroRequested,
		StatusMeetingBooked, StatusDemoScheduled, StatusWon, StatusLost,
	}
}

// ParseStatus accepts canonical values and the legacy set
// (new, contacted, meeting_booked, closed). Legacy "closed" maps to won.
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "closed", "closed_won":
		return StatusWon, nil
	case "closed_lost":
		return StatusLost, nil
	}
	st := Status(v)
	if _, ok := statusRank[st]; !ok {
		return "", apperr.Validation("parse_status", "unknown status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports closed(won|lost).
func (s Status) IsTerminal() bool {
	return s == StatusWon || s == StatusLost
}

// IsActive reports a valid, non-terminal status.
func (s Status) IsActive() bool {
	return s.Valid() && !s.IsTerminal()
}

// CanTransitionTo validates a user-driven move. Re-applying the current
// status is allowed and is a no-op for callers.
func (s Status) CanTransitionTo(next Status) error {
	const op = "transition_status"
	if !next.Valid() {
		return apperr.Validation(op, "unknown status %q", next)
	}
	if s.IsTerminal() {
		return apperr.Validation(op, "opportunity is closed (%s); no further transitions", s)
	}
	if next == s {
		return nil
	}
	switch next {
	case StatusSuggested:
		return apperr.Validation(op, "status %q is assigned by inference only", next)
	case StatusLost:
		return nil
	case StatusWon:
		if s != StatusMeetingBooked && s != StatusDemoScheduled {
			return apperr.Validation(op, "cannot close as won from %q; book a meeting first", s)
		}
		return nil
	}
	if statusRank[next] < statusRank[s] {
		return apperr.Validation(op, "cannot move back from %q to %q", s, next)
	}
	return nil
}
