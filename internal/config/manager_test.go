package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
logging:
  level: info
  console: true
llm:
  model: claude-test
  api_key: ${XPOSTER_TEST_LLM_KEY}
runtime:
  poll_interval: 30s
  tolerance: 120s
accounts:
  acct_a:
    credentials:
      api_key: k
      api_secret: s
      access_token: t
      access_token_secret: ts
    schedule:
      timezone: Asia/Tokyo
      posts_per_day: 4
      core_hours_start: 8
      core_hours_end: 22
      min_interval_hours: 1.5
    content:
      persona: "indie dev"
      thread_probability: 0.2
      categories:
        - {name: tips, weight: 3, prompt: "share a tip"}
        - {name: news, weight: 1, prompt: "comment on news"}
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("XPOSTER_TEST_LLM_KEY", "secret-from-env")
	t.Setenv("DRY_RUN", "")
	t.Setenv("LOG_LEVEL", "")

	m := NewConfigManager(writeConfig(t, "accounts.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "secret-from-env" {
		t.Fatalf("APIKey = %q, want env expansion", cfg.LLM.APIKey)
	}
	acc, ok := cfg.Accounts["acct_a"]
	if !ok {
		t.Fatalf("acct_a missing: %+v", cfg.Accounts)
	}
	if acc.Schedule.MinIntervalHours != 1.5 || acc.Schedule.CoreHoursEnd != 22 {
		t.Fatalf("unexpected schedule: %+v", acc.Schedule)
	}
	if len(acc.Content.Categories) != 2 || acc.Content.Categories[0].Weight != 3 {
		t.Fatalf("unexpected categories: %+v", acc.Content.Categories)
	}
	if cfg.Runtime.DryRun {
		t.Fatal("dry run should default to false")
	}
	if m.Get() != cfg {
		t.Fatal("Load should commit the config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XPOSTER_TEST_LLM_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "fallback-key")
	t.Setenv("DRY_RUN", "TRUE")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Decode("accounts.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !cfg.Runtime.DryRun {
		t.Fatal("DRY_RUN=TRUE should enable dry run")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.LLM.APIKey != "fallback-key" {
		t.Fatalf("APIKey = %q, want ANTHROPIC_API_KEY fallback", cfg.LLM.APIKey)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name: "unknown field",
			mutate: func(s string) string {
				return strings.Replace(s, "  console: true", "  console: true\n  colour: red", 1)
			},
			wantErr: "unknown field",
		},
		{
			name:    "inverted core hours",
			mutate:  func(s string) string { return strings.Replace(s, "core_hours_end: 22", "core_hours_end: 6", 1) },
			wantErr: "core hours",
		},
		{
			name:    "bad timezone",
			mutate:  func(s string) string { return strings.Replace(s, "Asia/Tokyo", "Mars/Olympus", 1) },
			wantErr: "timezone",
		},
		{
			name: "missing credential",
			mutate: func(s string) string {
				return strings.Replace(s, "access_token_secret: ts", "access_token_secret: \"\"", 1)
			},
			wantErr: "credentials",
		},
		{
			name:    "bad duration",
			mutate:  func(s string) string { return strings.Replace(s, "tolerance: 120s", "tolerance: soon", 1) },
			wantErr: "runtime.tolerance",
		},
		{
			name:    "zero tolerance",
			mutate:  func(s string) string { return strings.Replace(s, "tolerance: 120s", "tolerance: 0s", 1) },
			wantErr: "runtime.tolerance must be > 0",
		},
		{
			name:    "negative poll interval",
			mutate:  func(s string) string { return strings.Replace(s, "poll_interval: 30s", "poll_interval: -5s", 1) },
			wantErr: "runtime.poll_interval: negative duration",
		},
		{
			name: "zero weights",
			mutate: func(s string) string {
				return strings.NewReplacer("weight: 3", "weight: 0", "weight: 1", "weight: 0").Replace(s)
			},
			wantErr: "at least one weight",
		},
		{
			name: "bad prune schedule",
			mutate: func(s string) string {
				return strings.Replace(s, "accounts:", "history:\n  prune_schedule: \"every tuesday\"\naccounts:", 1)
			},
			wantErr: "history.prune_schedule",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("accounts.yaml", []byte(tt.mutate(sampleYAML)))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	oldCfg, err := Decode("a.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	newCfg, err := Decode("a.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	sections, _, ac := SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) != 0 || !ac.Empty() {
		t.Fatalf("expected no changes, got %v %+v", sections, ac)
	}

	b := newCfg.Accounts["acct_a"]
	b.Schedule.PostsPerDay = 5
	newCfg.Accounts["acct_a"] = b
	newCfg.Accounts["acct_b"] = b
	newCfg.LLM.APIKey = "rotated"

	sections, _, ac = SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(sections, ",") != "accounts,llm" {
		t.Fatalf("sections = %v", sections)
	}
	if len(ac.Added) != 1 || ac.Added[0] != "acct_b" {
		t.Fatalf("Added = %v", ac.Added)
	}
	if len(ac.ScheduleChanged) != 1 || ac.ScheduleChanged[0] != "acct_a" {
		t.Fatalf("ScheduleChanged = %v", ac.ScheduleChanged)
	}
	if len(ac.Removed) != 0 {
		t.Fatalf("Removed = %v", ac.Removed)
	}
}

func TestWatchPublishesValidChanges(t *testing.T) {
	path := writeConfig(t, "accounts.yaml", sampleYAML)
	m := NewConfigManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	// An invalid edit is rejected and never published.
	if err := os.WriteFile(path, []byte(strings.Replace(sampleYAML, "posts_per_day: 4", "posts_per_day: 0", 1)), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case cfg := <-sub:
		t.Fatalf("invalid config published: %+v", cfg.Accounts)
	case <-time.After(600 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte(strings.Replace(sampleYAML, "posts_per_day: 4", "posts_per_day: 5", 1)), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case cfg := <-sub:
		if got := cfg.Accounts["acct_a"].Schedule.PostsPerDay; got != 5 {
			t.Fatalf("PostsPerDay = %d, want 5", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("config change not published")
	}
}

func TestDurationOr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: time.Minute},
		{raw: "0s", want: time.Minute},
		{raw: " 45s ", want: 45 * time.Second},
		{raw: "1h30m", want: 90 * time.Minute},
		{raw: "soon", wantErr: true},
		{raw: "-1s", wantErr: true},
	}
	for _, tt := range tests {
		got, err := DurationOr("runtime.thread_delay", tt.raw, time.Minute)
		if tt.wantErr {
			if err == nil || !strings.Contains(err.Error(), "runtime.thread_delay") {
				t.Fatalf("DurationOr(%q) err = %v, want error naming the path", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("DurationOr(%q) = %v, %v; want %v", tt.raw, got, err, tt.want)
		}
	}
}
