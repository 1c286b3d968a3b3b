// Package feedora is the Feedora recipe-sharing backend.
//
// The binaries live under cmd:
//
//   - cmd/server: the JSON API
//   - cmd/feedora: the admin CLI (migrations, seeding, maintenance jobs)
//
// Domain packages are under internal. The interaction model (toggles,
// reaction counts, notification fan-out, comment pages) is in
// internal/social, internal/notifications and internal/comments.
package feedora
