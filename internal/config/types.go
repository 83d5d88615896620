package config

// Config is the root of xposter's configuration file (YAML or JSON).
//
// Secrets may be written as ${ENV_VAR}; they are expanded from the process
// environment (after .env is loaded) before decoding.
type Config struct {
	Logging  LoggingConfig            `json:"logging"`
	Telegram TelegramConfig           `json:"telegram,omitempty"`
	LLM      LLMConfig                `json:"llm"`
	Runtime  RuntimeConfig            `json:"runtime,omitempty"`
	History  HistoryConfig            `json:"history,omitempty"`
	Accounts map[string]AccountConfig `json:"accounts"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram forwards WARN+ records to an operator chat.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// TelegramConfig holds the bot used for operator alerts (never logged).
type TelegramConfig struct {
	Token string `json:"token,omitempty"`
}

// LLMConfig selects the content-generation model.
//
// Defaults: provider "anthropic", base_url "https://api.anthropic.com",
// max_tokens 1024, timeout "60s". APIKey falls back to $ANTHROPIC_API_KEY.
type LLMConfig struct {
	Provider  string `json:"provider,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Timeout   string `json:"timeout,omitempty"`
}

// RuntimeConfig controls the poll loop and publish policy.
//
// All durations are Go duration strings (e.g. "30s", "2m").
//
// Defaults (when fields are omitted/zero):
//   - poll_interval: "30s"
//   - tolerance: "120s" (an explicit "0s" is rejected; a poll can never hit it exactly)
//   - max_retries: 3
//   - thread_delay: "2s"
//   - request_rate: 1 (requests per second per account)
type RuntimeConfig struct {
	PollInterval string  `json:"poll_interval,omitempty"`
	Tolerance    string  `json:"tolerance,omitempty"`
	DryRun       bool    `json:"dry_run,omitempty"`
	MaxRetries   int     `json:"max_retries,omitempty"`
	ThreadDelay  string  `json:"thread_delay,omitempty"`
	RequestRate  float64 `json:"request_rate,omitempty"`
}

// HistoryConfig controls the post history store.
//
// Example:
//
//	history: { driver: sqlite, path: ./data/history.db, retention: 2160h }
type HistoryConfig struct {
	Driver        string `json:"driver,omitempty"` // "file" (default) | "sqlite"
	Path          string `json:"path,omitempty"`
	Retention     string `json:"retention,omitempty"`      // "0s" disables pruning
	PruneSchedule string `json:"prune_schedule,omitempty"` // cron spec, default "@daily"
	BusyTimeout   string `json:"busy_timeout,omitempty"`   // sqlite only
}

type AccountConfig struct {
	Credentials Credentials    `json:"credentials"`
	Schedule    ScheduleConfig `json:"schedule"`
	Content     ContentConfig  `json:"content"`
}

// Credentials are OAuth 1.0a user-context keys. Never logged.
type Credentials struct {
	APIKey            string `json:"api_key"`
	APISecret         string `json:"api_secret"`
	AccessToken       string `json:"access_token"`
	AccessTokenSecret string `json:"access_token_secret"`
}

// ScheduleConfig drives daily fire-time generation for one account.
// Hours are local to Timezone; CoreHoursEnd is exclusive.
type ScheduleConfig struct {
	Timezone         string  `json:"timezone"`
	PostsPerDay      int     `json:"posts_per_day"`
	CoreHoursStart   int     `json:"core_hours_start"`
	CoreHoursEnd     int     `json:"core_hours_end"`
	MinIntervalHours float64 `json:"min_interval_hours"`
}

type ContentConfig struct {
	Persona           string     `json:"persona"`
	Language          string     `json:"language,omitempty"`
	MaxChars          int        `json:"max_chars,omitempty"`
	ThreadProbability float64    `json:"thread_probability,omitempty"`
	ThreadLength      int        `json:"thread_length,omitempty"`
	RecentContext     int        `json:"recent_context,omitempty"`
	Categories        []Category `json:"categories"`
}

type Category struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Prompt string  `json:"prompt"`
}
