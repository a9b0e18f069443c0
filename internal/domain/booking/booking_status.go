package booking

import (
	"fmt"

	"github.com/droppit-app/service-booking/internal/domain/user"
)

// Status represents the current state of a booking in its lifecycle.
type Status string

const (
	StatusBooked          Status = "booked"
	StatusCourierAssigned Status = "courier_assigned"
	StatusPickedUp        Status = "picked_up"
	StatusAtDropoff       Status = "at_dropoff"
	StatusCompleted       Status = "completed"
	StatusIssueHold       Status = "issue_hold"
	StatusCanceled        Status = "canceled"
)

// validTransitions defines the state machine for booking status transitions.
// Cancellation is only reachable before the courier has taken custody of the
// package; once picked up, the only way off the pipeline is issue_hold.
var validTransitions = map[Status][]Status{
	StatusBooked:          {StatusCourierAssigned, StatusCanceled},
	StatusCourierAssigned: {StatusPickedUp, StatusIssueHold, StatusCanceled},
	StatusPickedUp:        {StatusAtDropoff, StatusIssueHold},
	StatusAtDropoff:       {StatusCompleted, StatusIssueHold},
	StatusCompleted:       {},
	StatusIssueHold:       {StatusCourierAssigned, StatusPickedUp, StatusAtDropoff, StatusCanceled},
	StatusCanceled:        {},
}

// AllStatuses returns every recognized booking status.
func AllStatuses() []Status {
	return []Status{
		StatusBooked,
		StatusCourierAssigned,
		StatusPickedUp,
		StatusAtDropoff,
		StatusCompleted,
		StatusIssueHold,
		StatusCanceled,
	}
}

// IsValid returns true if the status is a recognized booking status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target
// is allowed by the state machine, ignoring the actor's role.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this
// status for non-admin actors.
func (s Status) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// CanBeCanceled returns true if the booking can be canceled from this status.
func (s Status) CanBeCanceled() bool {
	return s.CanTransitionTo(StatusCanceled)
}

// RequiresCourier returns true for statuses that only make sense with a
// courier on record. Only booked and canceled may hold a nil courier.
func (s Status) RequiresCourier() bool {
	return s != StatusBooked && s != StatusCanceled
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

// CanTransition decides whether a requested status change is legal for the
// acting role. Admins may force any transition, including into and out of
// terminal states. Re-saving the current status is always a legal no-op so
// that unrelated field updates don't trip the state machine. Everything else
// is answered by the transition table, with unknown statuses denied.
func CanTransition(current, next Status, role user.Role) bool {
	if role == user.RoleAdmin {
		return true
	}
	if current == next {
		return true
	}
	return current.CanTransitionTo(next)
}
