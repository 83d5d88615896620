package schedule

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	logx "xposter/pkg/logx"
)

// Bounds applied to the randomized daily post count.
const (
	MinPostsPerDay = 3
	MaxPostsPerDay = 5
)

// Config is the per-account schedule input. The app layer maps
// config.ScheduleConfig into this struct.
type Config struct {
	Location    *time.Location
	PostsPerDay int
	// Core hours are local hours of day; CoreEndHour is exclusive.
	CoreStartHour int
	CoreEndHour   int
	MinInterval   time.Duration
}

// AccountStatus is a read-only view of one account's schedule.
type AccountStatus struct {
	Pending  int
	Next     time.Time // earliest pending fire-time (zero if none)
	BuiltFor time.Time // local midnight of the day the schedule was built for
}

type accountState struct {
	loc      *time.Location
	builtFor time.Time
	pending  []time.Time // ascending
}

// Scheduler owns the pending fire-times of every account.
//
// The poll loop is its only writer; the mutex keeps Status() safe for readers
// on other goroutines.
type Scheduler struct {
	mu       sync.Mutex
	rng      *rand.Rand
	now      func() time.Time
	log      logx.Logger
	accounts map[string]*accountState
}

type Option func(*Scheduler)

// WithRand injects the random source (for reproducible schedules in tests).
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithClock injects the wall clock used by polling and queries.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		log:      logx.Nop(),
		accounts: map[string]*accountState{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Generate builds a fresh schedule for the calendar date of today (in cfg.Location)
// and replaces whatever the account had pending.
//
// The result is ascending, inside core hours, and no two entries are closer
// than cfg.MinInterval. It may be shorter than the drawn target when the
// candidate pool runs out; that is not an error.
func (s *Scheduler) Generate(account string, cfg Config, today time.Time) ([]time.Time, error) {
	if cfg.Location == nil {
		return nil, errors.New("schedule: location is required")
	}
	if cfg.CoreStartHour < 0 || cfg.CoreEndHour > 24 || cfg.CoreStartHour >= cfg.CoreEndHour {
		return nil, errors.New("schedule: invalid core hours")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	day := startOfDay(today, cfg.Location)
	target := s.targetCount(cfg.PostsPerDay)
	times := s.pick(day, cfg, target)

	s.accounts[account] = &accountState{loc: cfg.Location, builtFor: day, pending: times}

	if s.log.Enabled(logx.LevelInfo) {
		clock := make([]string, len(times))
		for i, t := range times {
			clock[i] = t.Format("15:04:05")
		}
		fields := []logx.Field{
			logx.String("account", account),
			logx.String("date", day.Format(time.DateOnly)),
			logx.Int("target", target),
			logx.Int("count", len(times)),
			logx.Strs("times", clock),
		}
		if len(times) < target {
			s.log.Info("schedule generated (candidate pool exhausted)", fields...)
		} else {
			s.log.Info("schedule generated", fields...)
		}
	}
	return append([]time.Time(nil), times...), nil
}

// targetCount perturbs the configured count by ±1 and forces it into
// [MinPostsPerDay, MaxPostsPerDay].
func (s *Scheduler) targetCount(postsPerDay int) int {
	lo := clamp(postsPerDay-1, MinPostsPerDay, MaxPostsPerDay)
	hi := clamp(postsPerDay+1, MinPostsPerDay, MaxPostsPerDay)
	return lo + s.rng.Intn(hi-lo+1)
}

func (s *Scheduler) pick(day time.Time, cfg Config, target int) []time.Time {
	gap := int(math.Round(cfg.MinInterval.Minutes()))

	candidates := make([]int, 0, (cfg.CoreEndHour-cfg.CoreStartHour)*60)
	for m := cfg.CoreStartHour * 60; m < cfg.CoreEndHour*60; m++ {
		candidates = append(candidates, m)
	}

	y, mo, d := day.Date()
	out := make([]time.Time, 0, target)
	for len(out) < target && len(candidates) > 0 {
		m := candidates[s.rng.Intn(len(candidates))]
		sec := s.rng.Intn(60)
		out = append(out, time.Date(y, mo, d, m/60, m%60, sec, 0, cfg.Location))

		// Rebuild the pool without everything inside the spacing window (inclusive).
		kept := candidates[:0]
		for _, c := range candidates {
			if c-m > gap || m-c > gap {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// NeedsRegeneration reports whether the account has no schedule yet or its
// schedule was built for a different local date than now.
func (s *Scheduler) NeedsRegeneration(account string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.accounts[account]
	if st == nil {
		return true
	}
	return !sameDate(st.builtFor, now, st.loc)
}

// ShouldFireNow reports whether a pending fire-time of account lies within
// tolerance of the current time, consuming it if so.
func (s *Scheduler) ShouldFireNow(account string, loc *time.Location, tolerance time.Duration) bool {
	_, ok := s.FireDue(account, loc, tolerance)
	return ok
}

// FireDue is ShouldFireNow that also returns the consumed fire-time.
//
// At most one entry is consumed per call. A tolerance <= 0 means DefaultTolerance.
func (s *Scheduler) FireDue(account string, loc *time.Location, tolerance time.Duration) (time.Time, bool) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	now := s.now()
	if loc != nil {
		now = now.In(loc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.accounts[account]
	if st == nil {
		return time.Time{}, false
	}
	for i, at := range st.pending {
		if !withinTolerance(now, at, tolerance) {
			continue
		}
		rest := make([]time.Time, 0, len(st.pending)-1)
		rest = append(rest, st.pending[:i]...)
		rest = append(rest, st.pending[i+1:]...)
		st.pending = rest
		return at, true
	}
	return time.Time{}, false
}

// NextPostTime returns the first pending fire-time strictly after now.
func (s *Scheduler) NextPostTime(account string, loc *time.Location) (time.Time, bool) {
	now := s.now()
	if loc != nil {
		now = now.In(loc)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.accounts[account]
	if st == nil {
		return time.Time{}, false
	}
	for _, at := range st.pending {
		if at.After(now) {
			return at, true
		}
	}
	return time.Time{}, false
}

// Pending returns a copy of the account's pending fire-times.
func (s *Scheduler) Pending(account string) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.accounts[account]
	if st == nil {
		return nil
	}
	return append([]time.Time(nil), st.pending...)
}

// Status reports pending count and earliest pending fire-time per account.
func (s *Scheduler) Status() map[string]AccountStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]AccountStatus, len(s.accounts))
	for id, st := range s.accounts {
		as := AccountStatus{Pending: len(st.pending), BuiltFor: st.builtFor}
		if len(st.pending) > 0 {
			as.Next = st.pending[0]
		}
		out[id] = as
	}
	return out
}

// Forget drops an account's schedule (e.g. removed from config).
func (s *Scheduler) Forget(account string) {
	s.mu.Lock()
	delete(s.accounts, account)
	s.mu.Unlock()
}
