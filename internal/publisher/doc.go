// Package publisher wraps a transport.Platform with class-aware retries and
// reply-chained thread publishing.
//
// Backoff per failed attempt (attempt counted from 0):
//
//   - rate limited: 60s * 2^attempt
//   - server error: 30s * 2^attempt
//   - anything unclassified: 10s * 2^attempt
//   - permission denied: no retry
//
// Rate-limited and server-error failures wait even after the final attempt;
// an unclassified failure on the final attempt returns at once.
package publisher
