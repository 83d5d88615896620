package schedule

import (
	"math/rand"
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone %s unavailable: %v", name, err)
	}
	return loc
}

func baseConfig(loc *time.Location) Config {
	return Config{
		Location:      loc,
		PostsPerDay:   4,
		CoreStartHour: 9,
		CoreEndHour:   21,
		MinInterval:   90 * time.Minute,
	}
}

func TestGenerateBoundsAndSpacing(t *testing.T) {
	t.Parallel()
	loc := mustLoc(t, "Asia/Tokyo")
	today := time.Date(2025, 3, 14, 7, 0, 0, 0, loc)
	seen := map[int]bool{}

	for seed := int64(0); seed < 200; seed++ {
		s := New(WithRand(rand.New(rand.NewSource(seed))))
		cfg := baseConfig(loc)
		got, err := s.Generate("acct", cfg, today)
		if err != nil {
			t.Fatalf("seed %d: Generate error: %v", seed, err)
		}
		seen[len(got)] = true
		if len(got) < 3 || len(got) > 5 {
			t.Fatalf("seed %d: len = %d, want 3..5", seed, len(got))
		}
		for i, at := range got {
			if !sameDate(at, today, loc) {
				t.Fatalf("seed %d: %v not on %v", seed, at, today)
			}
			m := minuteOfDay(at, loc)
			if m < 9*60 || m >= 21*60 {
				t.Fatalf("seed %d: %v outside core hours", seed, at)
			}
			if i > 0 {
				if !got[i-1].Before(at) {
					t.Fatalf("seed %d: not ascending at %d: %v", seed, i, got)
				}
				if gap := at.Sub(got[i-1]); gap < cfg.MinInterval {
					t.Fatalf("seed %d: gap %v < %v", seed, gap, cfg.MinInterval)
				}
			}
		}
	}
	for _, n := range []int{3, 4, 5} {
		if !seen[n] {
			t.Fatalf("length %d never produced across seeds: %v", n, seen)
		}
	}
}

func TestGenerateClampsTarget(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	today := time.Date(2025, 1, 2, 0, 0, 0, 0, loc)
	tests := []struct {
		name     string
		perDay   int
		min, max int
	}{
		{name: "one", perDay: 1, min: 3, max: 3},
		{name: "eight", perDay: 8, min: 5, max: 5},
		{name: "three", perDay: 3, min: 3, max: 4},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for seed := int64(0); seed < 50; seed++ {
				s := New(WithRand(rand.New(rand.NewSource(seed))))
				cfg := Config{Location: loc, PostsPerDay: tt.perDay, CoreStartHour: 0, CoreEndHour: 24, MinInterval: 30 * time.Minute}
				got, err := s.Generate("a", cfg, today)
				if err != nil {
					t.Fatalf("Generate error: %v", err)
				}
				if len(got) < tt.min || len(got) > tt.max {
					t.Fatalf("seed %d: len = %d, want %d..%d", seed, len(got), tt.min, tt.max)
				}
			}
		})
	}
}

func TestGenerateExhaustedPool(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	// A one-hour window with a 2h spacing fits exactly one post.
	cfg := Config{Location: loc, PostsPerDay: 5, CoreStartHour: 10, CoreEndHour: 11, MinInterval: 2 * time.Hour}
	s := New(WithRand(rand.New(rand.NewSource(7))))
	got, err := s.Generate("a", cfg, time.Date(2025, 6, 1, 0, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestGenerateRejectsBadConfig(t *testing.T) {
	t.Parallel()
	s := New()
	if _, err := s.Generate("a", Config{PostsPerDay: 3, CoreStartHour: 9, CoreEndHour: 17}, time.Now()); err == nil {
		t.Fatal("expected error for nil location")
	}
	if _, err := s.Generate("a", Config{Location: time.UTC, PostsPerDay: 3, CoreStartHour: 17, CoreEndHour: 9}, time.Now()); err == nil {
		t.Fatal("expected error for inverted core hours")
	}
}

func TestGenerateReplacesPending(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	s := New(WithRand(rand.New(rand.NewSource(1))))
	cfg := baseConfig(loc)
	if _, err := s.Generate("a", cfg, time.Date(2025, 1, 1, 0, 0, 0, 0, loc)); err != nil {
		t.Fatal(err)
	}
	second, err := s.Generate("a", cfg, time.Date(2025, 1, 2, 0, 0, 0, 0, loc))
	if err != nil {
		t.Fatal(err)
	}
	pending := s.Pending("a")
	if len(pending) != len(second) {
		t.Fatalf("pending = %d, want %d", len(pending), len(second))
	}
	for _, at := range pending {
		if at.Day() != 2 {
			t.Fatalf("stale fire-time kept: %v", at)
		}
	}
}

// fixed builds a scheduler whose "acct" schedule is exactly times.
func fixed(now *time.Time, loc *time.Location, times ...time.Time) *Scheduler {
	s := New(WithClock(func() time.Time { return *now }))
	s.accounts["acct"] = &accountState{loc: loc, builtFor: startOfDay(times[0], loc), pending: times}
	return s
}

func TestShouldFireNowTolerance(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, loc)
	tests := []struct {
		name string
		now  time.Time
		tol  time.Duration
		want bool
	}{
		{name: "exact", now: at, tol: DefaultTolerance, want: true},
		{name: "90s late", now: at.Add(90 * time.Second), tol: DefaultTolerance, want: true},
		{name: "edge late", now: at.Add(120 * time.Second), tol: DefaultTolerance, want: true},
		{name: "past narrow window", now: at.Add(105 * time.Second), tol: 100 * time.Second, want: false},
		{name: "early", now: at.Add(-60 * time.Second), tol: DefaultTolerance, want: true},
		{name: "far", now: at.Add(-10 * time.Minute), tol: DefaultTolerance, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			now := tt.now
			s := fixed(&now, loc, at)
			if got := s.ShouldFireNow("acct", loc, tt.tol); got != tt.want {
				t.Fatalf("ShouldFireNow = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldFireNowConsumesOnce(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, loc)
	now := at
	s := fixed(&now, loc, at, at.Add(3*time.Hour))

	if !s.ShouldFireNow("acct", loc, DefaultTolerance) {
		t.Fatal("expected fire at 10:00")
	}
	now = at.Add(90 * time.Second)
	if s.ShouldFireNow("acct", loc, DefaultTolerance) {
		t.Fatal("fire-time fired twice")
	}
	if n := len(s.Pending("acct")); n != 1 {
		t.Fatalf("pending = %d, want 1", n)
	}
}

func TestShouldFireNowSingleConsumptionPerCall(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, loc)
	now := at.Add(30 * time.Second)
	// Two entries inside one window: each call consumes one.
	s := fixed(&now, loc, at, at.Add(time.Minute))

	got, ok := s.FireDue("acct", loc, DefaultTolerance)
	if !ok || !got.Equal(at) {
		t.Fatalf("FireDue = %v,%v; want %v,true", got, ok, at)
	}
	if n := len(s.Pending("acct")); n != 1 {
		t.Fatalf("pending = %d, want 1", n)
	}
	if !s.ShouldFireNow("acct", loc, DefaultTolerance) {
		t.Fatal("second entry should fire on next call")
	}
	if s.ShouldFireNow("acct", loc, DefaultTolerance) {
		t.Fatal("nothing left to fire")
	}
}

func TestShouldFireNowUnknownAccount(t *testing.T) {
	t.Parallel()
	s := New()
	if s.ShouldFireNow("nobody", time.UTC, DefaultTolerance) {
		t.Fatal("unknown account fired")
	}
	if _, ok := s.NextPostTime("nobody", time.UTC); ok {
		t.Fatal("unknown account has a next post")
	}
}

func TestNextPostTime(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	a := time.Date(2025, 1, 1, 10, 0, 0, 0, loc)
	b := time.Date(2025, 1, 1, 14, 0, 0, 0, loc)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, loc)
	s := fixed(&now, loc, a, b)

	got, ok := s.NextPostTime("acct", loc)
	if !ok || !got.Equal(b) {
		t.Fatalf("NextPostTime = %v,%v; want %v,true", got, ok, b)
	}
	now = b.Add(time.Second)
	if _, ok := s.NextPostTime("acct", loc); ok {
		t.Fatal("expected no next post after the last entry")
	}
}

func TestNeedsRegeneration(t *testing.T) {
	t.Parallel()
	loc := mustLoc(t, "America/New_York")
	s := New(WithRand(rand.New(rand.NewSource(3))))
	if !s.NeedsRegeneration("a", time.Now()) {
		t.Fatal("account without schedule must need regeneration")
	}
	built := time.Date(2025, 5, 10, 8, 0, 0, 0, loc)
	if _, err := s.Generate("a", baseConfig(loc), built); err != nil {
		t.Fatal(err)
	}
	if s.NeedsRegeneration("a", time.Date(2025, 5, 10, 23, 59, 0, 0, loc)) {
		t.Fatal("same local date must not regenerate")
	}
	// 03:30 UTC on the 11th is still the 10th in New York.
	if s.NeedsRegeneration("a", time.Date(2025, 5, 11, 3, 30, 0, 0, time.UTC)) {
		t.Fatal("date must be compared in the account timezone")
	}
	if !s.NeedsRegeneration("a", time.Date(2025, 5, 11, 0, 0, 1, 0, loc)) {
		t.Fatal("new local date must regenerate")
	}
}

func TestStatusAndForget(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	s := New(WithRand(rand.New(rand.NewSource(9))))
	got, err := s.Generate("a", baseConfig(loc), time.Date(2025, 2, 2, 0, 0, 0, 0, loc))
	if err != nil {
		t.Fatal(err)
	}
	st, ok := s.Status()["a"]
	if !ok {
		t.Fatal("status missing account")
	}
	if st.Pending != len(got) || !st.Next.Equal(got[0]) {
		t.Fatalf("status = %+v, want pending %d next %v", st, len(got), got[0])
	}
	s.Forget("a")
	if _, ok := s.Status()["a"]; ok {
		t.Fatal("account not forgotten")
	}
}
