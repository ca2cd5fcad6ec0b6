// Package auth holds the authorization decision point of the fund-theme API.
//
// Every route is covered by one declarative rule table with three kinds of
// entries, evaluated in order, first match wins:
//   - public prefixes: no identity required
//   - admin prefixes: the ADMIN role is required
//   - everything else: an authenticated principal is required, and paths
//     matching an owner pattern additionally require the principal to be the
//     owner named in the path, or an admin
//
// Decisions are plain values; mapping them to HTTP statuses is left to the
// middleware.
package auth
