// Package storage keeps the post history.
//
// Every published (or dry-run) post is appended once, after the publish call
// returns. The content generator reads the most recent texts back to avoid
// repeating itself, and a cron job prunes records past the retention window.
//
// Drivers:
//   - "file": append-only JSON Lines, rewritten atomically on prune
//   - "sqlite": modernc.org/sqlite in WAL mode
package storage
