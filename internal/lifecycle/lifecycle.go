// Package lifecycle holds the pure match status and disclosure state machines.
// Nothing here persists; callers write the returned match with optimistic concurrency.
package lifecycle

import (
	"strings"
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/models"
)

type EventType string

const (
	EventView    EventType = "view"
	EventAccept  EventType = "accept"
	EventDecline EventType = "decline"
	EventExpire  EventType = "expire"
)

// Event is a lifecycle input. Reason is read only for decline.
type Event struct {
	Type   EventType `json:"type"`
	Reason string    `json:"reason,omitempty"`
}

func View() Event                 { return Event{Type: EventView} }
func Accept() Event               { return Event{Type: EventAccept} }
func Decline(reason string) Event { return Event{Type: EventDecline, Reason: reason} }
func Expire() Event               { return Event{Type: EventExpire} }

func (t EventType) Valid() bool {
	switch t {
	case EventView, EventAccept, EventDecline, EventExpire:
		return true
	}
	return false
}

// Transition applies ev to a copy of m. changed is false for idempotent no-ops
// (viewing a viewed match, expiring an expired one); the input is never modified.
func Transition(m *models.Match, ev Event, now time.Time) (next *models.Match, changed bool, err error) {
	if m == nil {
		return nil, false, errors.NewMissingRequiredDataError("match")
	}
	next = m.Clone()

	if ev.Type == EventExpire {
		return expire(next, now)
	}
	if !ev.Type.Valid() {
		return nil, false, errors.NewInvalidTransitionError(string(m.Status), string(ev.Type))
	}
	if m.Status.IsTerminal() {
		return nil, false, errors.NewInvalidTransitionError(string(m.Status), string(ev.Type))
	}
	// a user event racing the expiry timer loses
	if IsDue(m, now) {
		return nil, false, errors.NewInvalidTransitionError(string(m.Status)+" (past expiry)", string(ev.Type))
	}

	switch ev.Type {
	case EventView:
		if m.Status == models.StatusViewed {
			return next, false, nil
		}
		next.Status = models.StatusViewed
		next.ViewedAt = timePtr(now)
		return next, true, nil

	case EventAccept:
		if m.Status != models.StatusViewed {
			return nil, false, errors.NewInvalidTransitionError(string(m.Status), string(ev.Type))
		}
		next.Status = models.StatusAccepted
		next.RespondedAt = timePtr(now)
		gate, err := GateOf(next).Open()
		if err != nil {
			return nil, false, err
		}
		gate.ApplyTo(next)
		return next, true, nil

	case EventDecline:
		if m.Status != models.StatusViewed {
			return nil, false, errors.NewInvalidTransitionError(string(m.Status), string(ev.Type))
		}
		next.Status = models.StatusDeclined
		next.RespondedAt = timePtr(now)
		next.DeclineReason = strings.TrimSpace(ev.Reason)
		return next, true, nil
	}

	return nil, false, errors.NewInvalidTransitionError(string(m.Status), string(ev.Type))
}

func expire(next *models.Match, now time.Time) (*models.Match, bool, error) {
	switch next.Status {
	case models.StatusExpired:
		return next, false, nil
	case models.StatusAccepted, models.StatusDeclined:
		return nil, false, errors.NewInvalidTransitionError(string(next.Status), string(EventExpire))
	}
	if !IsDue(next, now) {
		return nil, false, errors.NewInvalidTransitionError(string(next.Status)+" (not yet due)", string(EventExpire))
	}
	next.Status = models.StatusExpired
	return next, true, nil
}

// IsDue reports whether a non-terminal match has reached its expiry time.
func IsDue(m *models.Match, now time.Time) bool {
	return !m.Status.IsTerminal() && !m.ExpiresAt.IsZero() && !now.Before(m.ExpiresAt)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
