// Package auth is the authentication core of the hiring portal.
//
// Credentials:
//   - Users live in a bun backed store keyed by an immutable id. Emails are
//     normalized to lower case and unique. Passwords are stored as bcrypt
//     hashes with a work factor of PasswordHashCost.
//
// Sessions:
//   - A successful login yields a signed HS256 token valid for one hour. The
//     token carries the user id, email, role and organization. Validation
//     rejects anything issued more than the configured lifetime ago, whatever
//     the exp claim says. Logout puts the token id on a RevocationStore.
//   - Protect is the fiber middleware resolving the bearer token into an
//     Actor. HasRole admits an actor only if its role is listed; admin gets no
//     implicit pass.
//
// Tenancy:
//   - Admin and platform_* roles see every organization. client_* roles are
//     pinned to theirs by TenantScope, and out of scope targets read as not
//     found.
//
// Activity sinks:
//   - ActivitySink receives login, logout, denial and user lifecycle events.
//     Sinks run best-effort: errors are logged, never returned to the caller.
package auth
