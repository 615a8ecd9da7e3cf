package domain

import (
	"strings"

	"account-service/internal/errors"
)

type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusInactive  AccountStatus = "INACTIVE"
	StatusSuspended AccountStatus = "SUSPENDED"
	StatusFrozen    AccountStatus = "FROZEN"
	StatusClosed    AccountStatus = "CLOSED"
)

func ParseAccountStatus(s string) (AccountStatus, bool) {
	switch AccountStatus(strings.ToUpper(s)) {
	case StatusActive:
		return StatusActive, true
	case StatusInactive:
		return StatusInactive, true
	case StatusSuspended:
		return StatusSuspended, true
	case StatusFrozen:
		return StatusFrozen, true
	case StatusClosed:
		return StatusClosed, true
	}
	return "", false
}

// AllowsTransactions reports whether balance mutations are permitted.
func (s AccountStatus) AllowsTransactions() bool {
	return s == StatusActive
}

// CanBeReactivated reports whether the status has an edge back to ACTIVE.
func (s AccountStatus) CanBeReactivated() bool {
	return s == StatusInactive || s == StatusSuspended || s == StatusFrozen
}

// transitions is the full edge set; CLOSED has no outgoing edges.
var transitions = map[AccountStatus][]AccountStatus{
	StatusActive:    {StatusInactive, StatusSuspended, StatusFrozen, StatusClosed},
	StatusInactive:  {StatusActive, StatusClosed},
	StatusSuspended: {StatusActive, StatusClosed},
	StatusFrozen:    {StatusActive, StatusClosed},
	StatusClosed:    {},
}

// CanTransition validates a requested status change for the caller's role.
// A request outside the edge set fails with InvalidStatusTransition regardless
// of role; an edge that exists but is admin-only fails for customers with
// UnauthorizedStatusChange. Customers may only toggle ACTIVE <-> INACTIVE.
func CanTransition(current, next AccountStatus, role Role) error {
	allowed := false
	for _, s := range transitions[current] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.NewAppErrorf(errors.InvalidStatusTransition,
			"status transition from %s to %s is not allowed", current, next)
	}
	if role != RoleAdmin {
		customerEdge := (current == StatusActive && next == StatusInactive) ||
			(current == StatusInactive && next == StatusActive)
		if !customerEdge {
			return errors.NewAppErrorf(errors.UnauthorizedStatusChange,
				"customers cannot change account status from %s to %s", current, next)
		}
	}
	return nil
}
