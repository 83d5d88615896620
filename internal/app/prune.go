package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"xposter/internal/config"
	logx "xposter/pkg/logx"
)

// startPruner schedules history pruning; a zero retention disables it.
func (a *App) startPruner(cfg *config.Config) error {
	retention, spec, err := mapRetention(cfg)
	if err != nil {
		return err
	}
	if retention <= 0 {
		a.log.Info("history pruning disabled")
		return nil
	}

	log := a.log.With(logx.String("comp", "prune"))
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(spec, func() { a.pruneHistory(retention) }); err != nil {
		return fmt.Errorf("history.prune_schedule: %w", err)
	}
	c.Start()
	a.cron = c
	log.Info("history pruning scheduled", logx.String("schedule", spec), logx.Duration("retention", retention))
	return nil
}

func (a *App) pruneHistory(retention time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	before := a.now().Add(-retention)
	n, err := a.store.Prune(ctx, before)
	if err != nil {
		a.log.Warn("history prune failed", logx.Err(err))
		return
	}
	if n > 0 {
		a.log.Info("history pruned", logx.Int("removed", n), logx.Time("before", before))
	}
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
