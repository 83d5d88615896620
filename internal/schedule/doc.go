// Package schedule builds and consumes randomized daily posting schedules.
//
// # Generation
//
// Each account gets a fresh schedule once per local calendar date. The target
// count is the configured posts_per_day perturbed by ±1 and clamped to [3,5].
// Fire-times are drawn minute by minute from the core-hours window, with a
// random second, and every minute within min_interval of a picked one is
// removed from the pool. When the pool runs dry the schedule is simply shorter.
//
// # Firing
//
// The poll loop calls ShouldFireNow (or FireDue) every cycle. A pending
// fire-time fires when the current time is within the tolerance of it, and is
// removed on the same call, so a fire-time fires at most once. Fire-times that
// were never observed inside their window (process down, long stall) are
// dropped at the next regeneration; missed posts are not made up.
package schedule
