// Package app wires configuration, history, content generation and
// publishing into the poster process.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"xposter/internal/config"
	"xposter/internal/content"
	"xposter/internal/publisher"
	"xposter/internal/runtime/supervisor"
	"xposter/internal/runtime/systemd"
	"xposter/internal/schedule"
	"xposter/internal/storage"
	"xposter/internal/transport"
	"xposter/internal/transport/telegram"
	logx "xposter/pkg/logx"
)

// Options override what NewApp would otherwise build from config.
// Zero values mean production defaults.
type Options struct {
	// DryRun forces dry-run mode on top of config and $DRY_RUN.
	DryRun bool

	Platforms PlatformFactory
	Completer content.Completer
	Alerter   transport.Alerter
	Clock     func() time.Time
	Rand      *rand.Rand
	Sleep     publisher.SleepFunc
}

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	gen    *content.Generator
	genErr error // why gen is nil

	sched  *schedule.Scheduler
	notify *systemd.Notifier
	cron   *cron.Cron

	opts      Options
	platforms PlatformFactory
	now       func() time.Time

	// Owned by the poll loop once started.
	rt       settings
	applied  *config.Config
	accounts map[string]*account

	reloads chan *config.Config
}

func NewApp(cfgPath string, opts Options) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	alerter := opts.Alerter
	if alerter == nil && strings.TrimSpace(cfg.Telegram.Token) != "" {
		tg, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token})
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		alerter = tg
	}
	logSvc, log := logx.New(mapLogConfig(cfg), alerter)

	rt, err := mapSettings(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	if opts.DryRun {
		rt.DryRun = true
	}

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("history: %w", err)
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	platforms := opts.Platforms
	if platforms == nil {
		platforms = xPlatform
	}

	a := &App{
		cfgm:      cfgm,
		log:       log.With(logx.String("comp", "app")),
		logs:      logSvc,
		store:     store,
		opts:      opts,
		platforms: platforms,
		now:       now,
		rt:        rt,
		applied:   cfg,
		accounts:  make(map[string]*account, len(cfg.Accounts)),
		reloads:   make(chan *config.Config, 1),
		notify:    systemd.New(log.With(logx.String("comp", "systemd"))),
	}
	schedOpts := []schedule.Option{schedule.WithClock(now), schedule.WithLogger(log.With(logx.String("comp", "schedule")))}
	if opts.Rand != nil {
		schedOpts = append(schedOpts, schedule.WithRand(opts.Rand))
	}
	a.sched = schedule.New(schedOpts...)
	a.gen, a.genErr = a.buildGenerator(cfg)

	for id, ac := range cfg.Accounts {
		acc, err := a.buildAccount(id, ac)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.accounts[id] = acc
	}
	return a, nil
}

func (a *App) buildGenerator(cfg *config.Config) (*content.Generator, error) {
	completer := a.opts.Completer
	if completer == nil {
		ac, err := mapAnthropicConfig(cfg)
		if err != nil {
			return nil, err
		}
		anth, err := content.NewAnthropic(ac)
		if err != nil {
			return nil, fmt.Errorf("llm: %w", err)
		}
		completer = anth
	}
	genOpts := []content.Option{
		content.WithHistory(a.store),
		content.WithLogger(a.log.With(logx.String("comp", "content"))),
	}
	if a.opts.Rand != nil {
		genOpts = append(genOpts, content.WithRand(rand.New(rand.NewSource(a.opts.Rand.Int63()))))
	}
	return content.NewGenerator(completer, genOpts...), nil
}

// requireGenerator reports why content cannot be generated (missing LLM key or model).
func (a *App) requireGenerator() error {
	if a.gen == nil {
		if a.genErr != nil {
			return a.genErr
		}
		return errors.New("llm: not configured")
	}
	return nil
}

// DryRun reports whether posts are only logged and recorded, never published.
func (a *App) DryRun() bool { return a.rt.DryRun }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start runs scheduler mode: the poll loop, config hot reload and history pruning.
func (a *App) Start(ctx context.Context) error {
	if err := a.requireGenerator(); err != nil {
		return err
	}
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if err := a.startPruner(a.applied); err != nil {
		return err
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Logging applies immediately; everything else is handed to the loop.
				a.logs.Apply(mapLogConfig(newCfg))
				a.forwardReload(newCfg)
			}
		}
	})
	a.sup.GoRestart("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
	a.sup.Go("poster.loop", a.runLoop)

	a.notify.Ready(fmt.Sprintf("polling %d account(s)", len(a.accounts)))
	a.log.Info("app started",
		logx.Strs("accounts", a.accountIDs()),
		logx.Bool("dry_run", a.rt.DryRun),
		logx.Duration("poll_interval", a.rt.PollInterval),
		logx.Duration("tolerance", a.rt.Tolerance),
	)
	return nil
}

// forwardReload hands cfg to the loop; a pending older config is replaced.
func (a *App) forwardReload(cfg *config.Config) {
	for {
		select {
		case a.reloads <- cfg:
			return
		default:
		}
		select {
		case <-a.reloads:
		default:
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		a.Close()
		return nil
	}
	a.log.Info("stopping")
	a.notify.Stopping()
	a.sup.Cancel()

	// Helper: run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < max {
				max = rem
			}
		}
		if max <= 0 {
			a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
			return
		}
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("cron", 2*time.Second, func(c context.Context) error {
		if a.cron == nil {
			return nil
		}
		select {
		case <-a.cron.Stop().Done():
			return nil
		case <-c.Done():
			return c.Err()
		}
	})
	step("supervisor", 5*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", time.Second, func(c context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	_ = a.logs.Close()
	return nil
}

// Close releases resources for the one-shot modes (no Start).
func (a *App) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}

// sleep is the publisher's backoff wait. Long waits are cut into watchdog
// intervals so systemd keeps seeing the process alive.
func (a *App) sleep(ctx context.Context, d time.Duration) error {
	if a.opts.Sleep != nil {
		return a.opts.Sleep(ctx, d)
	}
	iv := a.notify.WatchdogInterval()
	if iv <= 0 {
		return publisher.Sleep(ctx, d)
	}
	for d > 0 {
		chunk := min(d, iv)
		if err := publisher.Sleep(ctx, chunk); err != nil {
			return err
		}
		d -= chunk
		a.notify.Watchdog(a.now())
	}
	return nil
}
