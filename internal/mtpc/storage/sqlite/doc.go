// Package sqlite persists reconstruction runs in a SQLite database.
//
// Responsibilities: schema migrations (embedded), run bookkeeping, per-event
// hit and measurement rows, read-back queries, and the /debug admin routes.
// Key types: Store, Run, HitRow, RunWriter.
//
// Dependency rule: sqlite may import reco and hits; no mtpc package other
// than the CLI and display imports sqlite.
package sqlite
