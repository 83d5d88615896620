package schedule

import "time"

// DefaultTolerance is the half-width of the firing window around a fire-time.
const DefaultTolerance = 120 * time.Second

// withinTolerance reports whether |now - at| <= tol.
func withinTolerance(now, at time.Time, tol time.Duration) bool {
	d := now.Sub(at)
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// sameDate reports whether a and b fall on the same calendar date in loc.
func sameDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// startOfDay returns local midnight of t's date in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// minuteOfDay returns the wall-clock minute index of t in loc.
func minuteOfDay(t time.Time, loc *time.Location) int {
	lt := t.In(loc)
	return lt.Hour()*60 + lt.Minute()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
