package domain

import "strings"

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(s)) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Principal is the authenticated identity of one request. It travels in the
// request context and is never persisted or shared across requests.
type Principal struct {
	UserID   int64
	Role     Role
	Username string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Owns reports whether the principal is the customer a record belongs to.
// Ownership is always resolved against the stored customer id, never against
// identifiers supplied by the client.
func (p Principal) Owns(customerID int64) bool {
	return p.UserID == customerID
}
