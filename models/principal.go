package models

import "strconv"

// Principal is the resolved, trusted identity of the current request.
// It is built per request from the credential record and never persisted.
type Principal struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	Active   bool     `json:"active"`
}

// IsAdmin returns true if the principal has the ADMIN role
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Subject returns the token subject for this principal
func (p *Principal) Subject() string {
	return strconv.FormatInt(p.ID, 10)
}

// CanAccessUser reports whether the principal may act on the given user's
// resources: either it is that user or it is an admin.
func (p *Principal) CanAccessUser(userID int64) bool {
	if p == nil {
		return false
	}
	return p.ID == userID || p.IsAdmin()
}
