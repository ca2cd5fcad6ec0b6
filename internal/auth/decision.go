package auth

// Decision is the outcome of an authorization check
type Decision int

const (
	// Allow lets the request through
	Allow Decision = iota

	// DenyUnauthenticated means no (valid) identity was presented
	DenyUnauthenticated

	// DenyForbidden means the identity lacks the role or ownership required
	DenyForbidden
)

// String returns a stable name used in logs
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	default:
		return "unknown"
	}
}
