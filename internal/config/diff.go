package config

import (
	"reflect"
	"sort"
	"strings"

	logx "xposter/pkg/logx"
)

// AccountChanges lists account ids affected by a config change, each sorted.
type AccountChanges struct {
	Added              []string
	Removed            []string
	ScheduleChanged    []string
	CredentialsChanged []string
	ContentChanged     []string
}

func (c AccountChanges) Empty() bool {
	return len(c.Added)+len(c.Removed)+len(c.ScheduleChanged)+len(c.CredentialsChanged)+len(c.ContentChanged) == 0
}

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) safe structured attrs for logging (never includes secrets like tokens or keys),
// and (3) the per-account changes the poll loop has to act on.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, AccountChanges) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}
	// Token content is never logged, only whether it is set.
	if strings.TrimSpace(oldCfg.Telegram.Token) != strings.TrimSpace(newCfg.Telegram.Token) {
		changed = append(changed, "telegram")
		attrs = append(attrs, logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""))
	}
	if !reflect.DeepEqual(oldCfg.LLM, newCfg.LLM) {
		changed = append(changed, "llm")
		attrs = append(attrs,
			logx.String("llm.model", newCfg.LLM.Model),
			logx.Bool("llm.api_key_set", strings.TrimSpace(newCfg.LLM.APIKey) != ""),
		)
	}
	if oldCfg.Runtime != newCfg.Runtime {
		changed = append(changed, "runtime")
		attrs = append(attrs,
			logx.String("runtime.poll_interval", newCfg.Runtime.PollInterval),
			logx.String("runtime.tolerance", newCfg.Runtime.Tolerance),
			logx.Bool("runtime.dry_run", newCfg.Runtime.DryRun),
			logx.Int("runtime.max_retries", newCfg.Runtime.MaxRetries),
		)
	}
	if oldCfg.History != newCfg.History {
		changed = append(changed, "history")
		attrs = append(attrs,
			logx.String("history.driver", newCfg.History.Driver),
			logx.String("history.retention", newCfg.History.Retention),
		)
	}

	ac := diffAccounts(oldCfg.Accounts, newCfg.Accounts)
	if !ac.Empty() {
		changed = append(changed, "accounts")
		attrs = append(attrs,
			logx.Int("accounts.count", len(newCfg.Accounts)),
			logx.Strs("accounts.added", ac.Added),
			logx.Strs("accounts.removed", ac.Removed),
			logx.Strs("accounts.schedule_changed", ac.ScheduleChanged),
		)
	}

	sort.Strings(changed)
	return changed, attrs, ac
}

func diffAccounts(oldM, newM map[string]AccountConfig) AccountChanges {
	var out AccountChanges
	for id, n := range newM {
		o, ok := oldM[id]
		if !ok {
			out.Added = append(out.Added, id)
			continue
		}
		if o.Schedule != n.Schedule {
			out.ScheduleChanged = append(out.ScheduleChanged, id)
		}
		if o.Credentials != n.Credentials {
			out.CredentialsChanged = append(out.CredentialsChanged, id)
		}
		if !reflect.DeepEqual(o.Content, n.Content) {
			out.ContentChanged = append(out.ContentChanged, id)
		}
	}
	for id := range oldM {
		if _, ok := newM[id]; !ok {
			out.Removed = append(out.Removed, id)
		}
	}
	sort.Strings(out.Added)
	sort.Strings(out.Removed)
	sort.Strings(out.ScheduleChanged)
	sort.Strings(out.CredentialsChanged)
	sort.Strings(out.ContentChanged)
	return out
}
