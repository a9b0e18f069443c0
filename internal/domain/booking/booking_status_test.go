package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droppit-app/service-booking/internal/domain/user"
)

func TestCanTransitionTo_Table(t *testing.T) {
	allowed := map[Status][]Status{
		StatusBooked:          {StatusCourierAssigned, StatusCanceled},
		StatusCourierAssigned: {StatusPickedUp, StatusIssueHold, StatusCanceled},
		StatusPickedUp:        {StatusAtDropoff, StatusIssueHold},
		StatusAtDropoff:       {StatusCompleted, StatusIssueHold},
		StatusCompleted:       {},
		StatusIssueHold:       {StatusCourierAssigned, StatusPickedUp, StatusAtDropoff, StatusCanceled},
		StatusCanceled:        {},
	}

	for _, current := range AllStatuses() {
		for _, next := range AllStatuses() {
			expected := false
			for _, a := range allowed[current] {
				if a == next {
					expected = true
					break
				}
			}
			assert.Equal(t, expected, current.CanTransitionTo(next),
				"transition %s -> %s", current, next)
		}
	}
}

func TestCanTransition_TotalOverAllTriples(t *testing.T) {
	roles := []user.Role{user.RoleCustomer, user.RoleCourier, user.RoleAdmin}

	// Every (current, next, role) triple has a deterministic answer.
	for _, current := range AllStatuses() {
		for _, next := range AllStatuses() {
			for _, role := range roles {
				first := CanTransition(current, next, role)
				second := CanTransition(current, next, role)
				assert.Equal(t, first, second,
					"CanTransition(%s, %s, %s) is not deterministic", current, next, role)
			}
		}
	}
}

func TestCanTransition_AdminOverride(t *testing.T) {
	for _, current := range AllStatuses() {
		for _, next := range AllStatuses() {
			assert.True(t, CanTransition(current, next, user.RoleAdmin),
				"admin should be allowed %s -> %s", current, next)
		}
	}
}

func TestCanTransition_SelfTransitionIsNoOp(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, CanTransition(s, s, user.RoleCustomer))
		assert.True(t, CanTransition(s, s, user.RoleCourier))
	}
}

func TestCanTransition_TerminalStatesHaveNoExit(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusCanceled} {
		for _, next := range AllStatuses() {
			if next == terminal {
				continue
			}
			assert.False(t, CanTransition(terminal, next, user.RoleCourier),
				"terminal %s should not reach %s", terminal, next)
		}
	}
}

func TestCanTransition_UnknownStatusDenied(t *testing.T) {
	unknown := Status("shipped")
	for _, next := range AllStatuses() {
		assert.False(t, CanTransition(unknown, next, user.RoleCourier))
	}
	// Admin override still applies even to unrecognized current states.
	assert.True(t, CanTransition(unknown, StatusBooked, user.RoleAdmin))
}

func TestCancellationAsymmetry(t *testing.T) {
	// Cancelable before custody.
	assert.True(t, StatusBooked.CanTransitionTo(StatusCanceled))
	assert.True(t, StatusCourierAssigned.CanTransitionTo(StatusCanceled))

	// Not cancelable once the package is in the courier's hands.
	assert.False(t, StatusPickedUp.CanTransitionTo(StatusCanceled))
	assert.False(t, StatusAtDropoff.CanTransitionTo(StatusCanceled))

	// issue_hold reopens the cancellation path.
	assert.True(t, StatusIssueHold.CanTransitionTo(StatusCanceled))
}

func TestIssueHoldRewind(t *testing.T) {
	// issue_hold can resume at any in-flight stage.
	assert.True(t, StatusIssueHold.CanTransitionTo(StatusCourierAssigned))
	assert.True(t, StatusIssueHold.CanTransitionTo(StatusPickedUp))
	assert.True(t, StatusIssueHold.CanTransitionTo(StatusAtDropoff))

	// But it cannot jump straight to completed.
	assert.False(t, StatusIssueHold.CanTransitionTo(StatusCompleted))
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
	for _, s := range []Status{StatusBooked, StatusCourierAssigned, StatusPickedUp, StatusAtDropoff, StatusIssueHold} {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func TestStatusRequiresCourier(t *testing.T) {
	assert.False(t, StatusBooked.RequiresCourier())
	assert.False(t, StatusCanceled.RequiresCourier())
	for _, s := range []Status{StatusCourierAssigned, StatusPickedUp, StatusAtDropoff, StatusIssueHold, StatusCompleted} {
		assert.True(t, s.RequiresCourier(), "%s should require a courier", s)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("picked_up")
	require.NoError(t, err)
	assert.Equal(t, StatusPickedUp, s)

	_, err = ParseStatus("shipped")
	assert.Error(t, err)
}
