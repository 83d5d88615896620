package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "xposter/pkg/logx"
)

// Validate checks a decoded config. It is run on initial load and before a
// hot-reloaded config is committed, so a bad edit never replaces a good config.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if _, ok := logx.ParseLevel(cfg.Logging.Level); !ok {
		return fmt.Errorf("logging.level: invalid %q", cfg.Logging.Level)
	}
	if cfg.Logging.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("logging.telegram.enabled requires telegram.token")
	}
	if p := strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)); p != "" && p != "anthropic" {
		return fmt.Errorf("llm.provider: unsupported %q", cfg.LLM.Provider)
	}
	if cfg.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens must be >= 0")
	}

	for path, raw := range map[string]string{
		"llm.timeout":           cfg.LLM.Timeout,
		"runtime.poll_interval": cfg.Runtime.PollInterval,
		"runtime.tolerance":     cfg.Runtime.Tolerance,
		"runtime.thread_delay":  cfg.Runtime.ThreadDelay,
		"history.retention":     cfg.History.Retention,
		"history.busy_timeout":  cfg.History.BusyTimeout,
	} {
		if _, err := Duration(path, raw); err != nil {
			return err
		}
	}
	// An explicit zero tolerance would never match a poll; omit it for the default.
	if strings.TrimSpace(cfg.Runtime.Tolerance) != "" {
		if d, _ := Duration("runtime.tolerance", cfg.Runtime.Tolerance); d == 0 {
			return errors.New("runtime.tolerance must be > 0 (omit it for the 120s default)")
		}
	}
	if cfg.Runtime.MaxRetries < 0 {
		return errors.New("runtime.max_retries must be >= 0")
	}
	if cfg.Runtime.RequestRate < 0 {
		return errors.New("runtime.request_rate must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.History.Driver)) {
	case "", "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("history.driver: unknown %q", cfg.History.Driver)
	}
	if spec := strings.TrimSpace(cfg.History.PruneSchedule); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("history.prune_schedule: %w", err)
		}
	}

	if len(cfg.Accounts) == 0 {
		return errors.New("accounts: at least one account is required")
	}
	ids := make([]string, 0, len(cfg.Accounts))
	for id := range cfg.Accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return errors.New("accounts: empty account id")
		}
		acc := cfg.Accounts[id]
		if err := validateAccount(acc); err != nil {
			return fmt.Errorf("accounts.%s.%w", id, err)
		}
	}
	return nil
}

func validateAccount(acc AccountConfig) error {
	c := acc.Credentials
	if strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.APISecret) == "" ||
		strings.TrimSpace(c.AccessToken) == "" || strings.TrimSpace(c.AccessTokenSecret) == "" {
		return errors.New("credentials: api_key, api_secret, access_token and access_token_secret are required")
	}
	if err := ValidateSchedule(acc.Schedule); err != nil {
		return fmt.Errorf("schedule.%w", err)
	}

	ct := acc.Content
	if ct.MaxChars < 0 {
		return errors.New("content.max_chars must be >= 0")
	}
	if ct.ThreadProbability < 0 || ct.ThreadProbability > 1 {
		return errors.New("content.thread_probability must be within [0, 1]")
	}
	if ct.ThreadLength < 0 || ct.RecentContext < 0 {
		return errors.New("content.thread_length and content.recent_context must be >= 0")
	}
	if len(ct.Categories) > 0 {
		total := 0.0
		for i, cat := range ct.Categories {
			if strings.TrimSpace(cat.Name) == "" {
				return fmt.Errorf("content.categories[%d].name is required", i)
			}
			if cat.Weight < 0 {
				return fmt.Errorf("content.categories[%d].weight must be >= 0", i)
			}
			total += cat.Weight
		}
		if total <= 0 {
			return errors.New("content.categories: at least one weight must be > 0")
		}
	}
	return nil
}

// ValidateSchedule checks one account's schedule block.
func ValidateSchedule(s ScheduleConfig) error {
	if strings.TrimSpace(s.Timezone) == "" {
		return errors.New("timezone is required")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("timezone: invalid %q: %w", s.Timezone, err)
	}
	if s.PostsPerDay < 1 {
		return errors.New("posts_per_day must be >= 1")
	}
	if s.CoreHoursStart < 0 || s.CoreHoursEnd > 24 || s.CoreHoursStart >= s.CoreHoursEnd {
		return fmt.Errorf("core hours: need 0 <= core_hours_start < core_hours_end <= 24 (got %d..%d)", s.CoreHoursStart, s.CoreHoursEnd)
	}
	if s.MinIntervalHours < 0 {
		return errors.New("min_interval_hours must be >= 0")
	}
	return nil
}

// Duration parses the Go duration string at a config path. Empty means 0.
func Duration(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration (want e.g. \"30s\" or \"2h\")", path, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", path, raw)
	}
	return d, nil
}

// DurationOr is Duration with def standing in for an empty or zero value.
func DurationOr(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := Duration(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
