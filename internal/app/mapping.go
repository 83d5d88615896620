package app

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"xposter/internal/config"
	"xposter/internal/content"
	"xposter/internal/publisher"
	"xposter/internal/schedule"
	"xposter/internal/storage"
	"xposter/internal/transport"
	"xposter/internal/transport/x"
	logx "xposter/pkg/logx"
)

const (
	defaultPollInterval  = 30 * time.Second
	defaultRetention     = 90 * 24 * time.Hour
	defaultPruneSchedule = "@daily"
	defaultRequestRate   = 1.0
)

// settings are the runtime knobs resolved from config.Runtime.
type settings struct {
	PollInterval time.Duration
	Tolerance    time.Duration
	DryRun       bool
	MaxRetries   int
	ThreadDelay  time.Duration
	RequestRate  float64
}

func mapSettings(cfg *config.Config) (settings, error) {
	rt := cfg.Runtime
	poll, err := config.DurationOr("runtime.poll_interval", rt.PollInterval, defaultPollInterval)
	if err != nil {
		return settings{}, err
	}
	tol, err := config.DurationOr("runtime.tolerance", rt.Tolerance, schedule.DefaultTolerance)
	if err != nil {
		return settings{}, err
	}
	delay, err := config.DurationOr("runtime.thread_delay", rt.ThreadDelay, publisher.DefaultThreadDelay)
	if err != nil {
		return settings{}, err
	}
	retries := rt.MaxRetries
	if retries <= 0 {
		retries = publisher.DefaultMaxRetries
	}
	rate := rt.RequestRate
	if rate <= 0 {
		rate = defaultRequestRate
	}
	return settings{
		PollInterval: poll,
		Tolerance:    tol,
		DryRun:       rt.DryRun,
		MaxRetries:   retries,
		ThreadDelay:  delay,
		RequestRate:  rate,
	}, nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	lc := cfg.Logging
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
		Alert: logx.AlertConfig{
			Enabled:    lc.Telegram.Enabled,
			Target:     transport.AlertTarget{ChatID: lc.Telegram.ChatID, ThreadID: lc.Telegram.ThreadID},
			MinLevel:   lc.Telegram.MinLevel,
			RatePerSec: lc.Telegram.RatePerSec,
		},
	}
}

func mapScheduleConfig(sc config.ScheduleConfig) (schedule.Config, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(sc.Timezone))
	if err != nil {
		return schedule.Config{}, fmt.Errorf("schedule.timezone: invalid %q: %w", sc.Timezone, err)
	}
	return schedule.Config{
		Location:      loc,
		PostsPerDay:   sc.PostsPerDay,
		CoreStartHour: sc.CoreHoursStart,
		CoreEndHour:   sc.CoreHoursEnd,
		MinInterval:   time.Duration(math.Round(sc.MinIntervalHours * float64(time.Hour))),
	}, nil
}

// mapProfile falls back to a single catch-all category when none is configured.
func mapProfile(cc config.ContentConfig) content.Profile {
	p := content.Profile{
		Persona:           cc.Persona,
		Language:          cc.Language,
		MaxChars:          cc.MaxChars,
		ThreadProbability: cc.ThreadProbability,
		ThreadLength:      cc.ThreadLength,
		RecentContext:     cc.RecentContext,
	}
	for _, c := range cc.Categories {
		p.Categories = append(p.Categories, content.Category{Name: c.Name, Weight: c.Weight, Prompt: c.Prompt})
	}
	if len(p.Categories) == 0 {
		p.Categories = []content.Category{{Name: "general", Weight: 1}}
	}
	return p
}

func mapCredentials(c config.Credentials) x.Credentials {
	return x.Credentials{
		APIKey:            c.APIKey,
		APISecret:         c.APISecret,
		AccessToken:       c.AccessToken,
		AccessTokenSecret: c.AccessTokenSecret,
	}
}

func mapAnthropicConfig(cfg *config.Config) (content.AnthropicConfig, error) {
	timeout, err := config.DurationOr("llm.timeout", cfg.LLM.Timeout, 60*time.Second)
	if err != nil {
		return content.AnthropicConfig{}, err
	}
	return content.AnthropicConfig{
		APIKey:    cfg.LLM.APIKey,
		APIURL:    cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   timeout,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	hc := cfg.History
	driver := strings.ToLower(strings.TrimSpace(hc.Driver))
	if driver == "" {
		driver = "file"
	}
	path := strings.TrimSpace(hc.Path)
	if path == "" {
		path = filepath.Join("data", "history.jsonl")
		if driver != "file" {
			path = filepath.Join("data", "history.db")
		}
	}
	busy, err := config.DurationOr("history.busy_timeout", hc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
}

// mapRetention returns 0 when pruning is disabled ("0s"); an omitted value
// means the default retention.
func mapRetention(cfg *config.Config) (time.Duration, string, error) {
	spec := strings.TrimSpace(cfg.History.PruneSchedule)
	if spec == "" {
		spec = defaultPruneSchedule
	}
	raw := strings.TrimSpace(cfg.History.Retention)
	if raw == "" {
		return defaultRetention, spec, nil
	}
	d, err := config.Duration("history.retention", raw)
	return d, spec, err
}
