package auth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jntm/fundtheme/models"
)

// restMarker as the last segment of an owner pattern matches any remainder
const restMarker = "..."

// ownerPattern is a compiled owner-scoped path such as /api/v1/users/{id}
type ownerPattern struct {
	raw      string
	segments []string
	ownerAt  int
	rest     bool
}

func compileOwnerPattern(raw string) (ownerPattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return ownerPattern{}, fmt.Errorf("owner pattern %q must start with /", raw)
	}

	p := ownerPattern{raw: raw, ownerAt: -1}
	segments := splitPath(raw)
	for i, seg := range segments {
		switch {
		case seg == restMarker:
			if i != len(segments)-1 {
				return ownerPattern{}, fmt.Errorf("owner pattern %q: %s must be last", raw, restMarker)
			}
			p.rest = true
			segments = segments[:i]
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			if p.ownerAt >= 0 {
				return ownerPattern{}, fmt.Errorf("owner pattern %q has more than one placeholder", raw)
			}
			p.ownerAt = i
		}
	}
	if p.ownerAt < 0 {
		return ownerPattern{}, fmt.Errorf("owner pattern %q has no placeholder", raw)
	}
	p.segments = segments
	return p, nil
}

// match returns the raw owner segment when path matches the pattern
func (p ownerPattern) match(path []string) (string, bool) {
	if len(path) < len(p.segments) || (!p.rest && len(path) != len(p.segments)) {
		return "", false
	}
	for i, seg := range p.segments {
		if i == p.ownerAt {
			if path[i] == "" {
				return "", false
			}
			continue
		}
		if seg != path[i] {
			return "", false
		}
	}
	return path[p.ownerAt], true
}

// AccessPolicy decides whether a principal may access a path
type AccessPolicy struct {
	public []string
	admin  []string
	owners []ownerPattern
}

// NewAccessPolicy compiles rules into a policy
func NewAccessPolicy(rules Rules) (*AccessPolicy, error) {
	p := &AccessPolicy{
		public: cleanPrefixes(rules.Public),
		admin:  cleanPrefixes(rules.Admin),
	}
	for _, raw := range rules.Owner {
		pattern, err := compileOwnerPattern(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		p.owners = append(p.owners, pattern)
	}
	return p, nil
}

// IsPublic reports whether path needs no identity at all
func (p *AccessPolicy) IsPublic(path string) bool {
	return hasAnyPrefix(path, p.public)
}

// IsAdminPath reports whether path requires the ADMIN role
func (p *AccessPolicy) IsAdminPath(path string) bool {
	return hasAnyPrefix(path, p.admin)
}

// Decide applies the rule table to path for principal, which may be nil
func (p *AccessPolicy) Decide(path string, principal *models.Principal) Decision {
	if p.IsPublic(path) {
		return Allow
	}

	if principal == nil {
		return DenyUnauthenticated
	}

	if p.IsAdminPath(path) {
		if principal.IsAdmin() {
			return Allow
		}
		return DenyForbidden
	}

	segments := splitPath(path)
	for _, pattern := range p.owners {
		owner, ok := pattern.match(segments)
		if !ok {
			continue
		}
		if principal.IsAdmin() {
			return Allow
		}
		ownerID, err := strconv.ParseInt(owner, 10, 64)
		if err != nil || !principal.CanAccessUser(ownerID) {
			return DenyForbidden
		}
		return Allow
	}

	return Allow
}

// Rules returns the table the policy was built from, for logging and audits
func (p *AccessPolicy) Rules() Rules {
	r := Rules{
		Public: append([]string(nil), p.public...),
		Admin:  append([]string(nil), p.admin...),
	}
	for _, o := range p.owners {
		r.Owner = append(r.Owner, o.raw)
	}
	return r
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func cleanPrefixes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, prefix := range in {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			out = append(out, prefix)
		}
	}
	return out
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
