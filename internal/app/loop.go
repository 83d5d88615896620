package app

import (
	"context"
	"strings"
	"time"

	"xposter/internal/config"
	"xposter/internal/content"
	"xposter/internal/storage"
	"xposter/internal/transport"
	logx "xposter/pkg/logx"
)

// runLoop is the single goroutine that owns schedules. It polls every
// PollInterval and applies config reloads between cycles.
func (a *App) runLoop(ctx context.Context) error {
	a.cycle(ctx)

	tmr := time.NewTimer(a.rt.PollInterval)
	defer tmr.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-a.reloads:
			a.applyConfig(cfg)
		case <-tmr.C:
			a.cycle(ctx)
			tmr.Reset(a.rt.PollInterval)
		}
	}
}

// cycle regenerates stale schedules and fires due slots, account by account.
func (a *App) cycle(ctx context.Context) {
	a.notify.Watchdog(a.now())
	for _, id := range a.accountIDs() {
		if ctx.Err() != nil {
			return
		}
		acc := a.accounts[id]
		nowLocal := a.now().In(acc.loc)

		if a.sched.NeedsRegeneration(id, nowLocal) {
			if _, err := a.sched.Generate(id, acc.sched, nowLocal); err != nil {
				acc.log.Error("schedule generation failed", logx.Err(err))
				continue
			}
		}
		if at, ok := a.sched.FireDue(id, acc.loc, a.rt.Tolerance); ok {
			a.fire(ctx, acc, at)
		}
	}
}

// fire handles one consumed slot. The slot is never retried, whatever happens.
func (a *App) fire(ctx context.Context, acc *account, at time.Time) {
	log := acc.log.With(logx.String("slot", at.Format("15:04:05 MST")))
	log.Info("post slot reached")

	c, err := a.gen.Generate(ctx, acc.id, acc.profile)
	if err != nil {
		log.Error("content generation failed; slot skipped", logx.Err(err))
		return
	}

	if a.rt.DryRun {
		logContent(log, "[dry run]", c)
		threadLen := 0
		if c.IsThread {
			threadLen = len(c.ThreadTexts)
		}
		a.record(ctx, acc, c, storage.DryRunPostID, threadLen)
		return
	}

	msgs, err := a.publish(ctx, acc, c)
	if len(msgs) > 0 {
		threadLen := 0
		if c.IsThread {
			threadLen = len(msgs)
		}
		a.record(ctx, acc, c, msgs[0].ID, threadLen)
	}
	switch {
	case err != nil && len(msgs) > 0:
		log.Error("thread partially published",
			logx.String("post_id", msgs[0].ID),
			logx.Int("published", len(msgs)),
			logx.Int("total", len(c.ThreadTexts)),
			logx.String("class", transport.Class(err)),
			logx.Err(err),
		)
	case err != nil:
		log.Error("publish failed", logx.String("category", c.Category), logx.String("class", transport.Class(err)), logx.Err(err))
	default:
		log.Info("published", logx.String("post_id", msgs[0].ID), logx.String("category", c.Category), logx.Int("parts", len(msgs)))
	}
}

// publish sends c as a thread when it has thread parts, else as one post.
func (a *App) publish(ctx context.Context, acc *account, c content.Content) ([]transport.Message, error) {
	if c.IsThread && len(c.ThreadTexts) > 0 {
		return acc.pub.PublishThread(ctx, c.ThreadTexts)
	}
	msg, err := acc.pub.PublishOne(ctx, c.Text, "")
	if err != nil {
		return nil, err
	}
	return []transport.Message{msg}, nil
}

func (a *App) record(ctx context.Context, acc *account, c content.Content, postID string, threadLen int) {
	err := a.store.Append(ctx, storage.Record{
		At:        a.now(),
		Account:   acc.id,
		Text:      c.Text,
		PostID:    postID,
		Category:  c.Category,
		ThreadLen: threadLen,
	})
	if err != nil {
		acc.log.Error("history append failed", logx.String("post_id", postID), logx.Err(err))
	}
}

func logContent(log logx.Logger, prefix string, c content.Content) {
	log.Info(prefix+" generated", logx.String("category", c.Category), logx.Bool("thread", c.IsThread), logx.String("text", c.Text))
	if c.IsThread {
		for i, t := range c.ThreadTexts {
			log.Info(prefix+" thread part", logx.Int("part", i+1), logx.String("text", t))
		}
	}
}

// applyConfig runs on the loop goroutine; it is the only place accounts and
// schedules change after Start.
func (a *App) applyConfig(newCfg *config.Config) {
	sections, attrs, changes := config.SummarizeConfigChange(a.applied, newCfg)

	if rt, err := mapSettings(newCfg); err != nil {
		a.log.Warn("invalid runtime config; keeping previous", logx.Err(err))
	} else {
		if a.opts.DryRun {
			rt.DryRun = true
		}
		a.rt = rt
	}

	for _, id := range changes.Removed {
		delete(a.accounts, id)
		a.sched.Forget(id)
		a.log.Info("account removed", logx.String("account", id))
	}

	rebuild := map[string]bool{}
	for _, ids := range [][]string{changes.Added, changes.CredentialsChanged, changes.ScheduleChanged, changes.ContentChanged} {
		for _, id := range ids {
			rebuild[id] = true
		}
	}
	// Runtime knobs live inside each account's publisher.
	if contains(sections, "runtime") {
		for id := range newCfg.Accounts {
			rebuild[id] = true
		}
	}
	for id := range rebuild {
		acc, err := a.buildAccount(id, newCfg.Accounts[id])
		if err != nil {
			a.log.Warn("account config rejected; keeping previous", logx.String("account", id), logx.Err(err))
			continue
		}
		a.accounts[id] = acc
	}
	// A changed schedule block is rebuilt for today on the next cycle.
	for _, id := range changes.ScheduleChanged {
		a.sched.Forget(id)
	}

	if contains(sections, "llm") && a.opts.Completer == nil {
		gen, err := a.buildGenerator(newCfg)
		if err != nil {
			a.log.Warn("llm config rejected; keeping previous", logx.Err(err))
		} else {
			a.gen, a.genErr = gen, nil
		}
	}
	if contains(sections, "history") {
		a.log.Warn("history config changed; restart required for changes to take effect")
	}

	a.applied = newCfg
	if len(sections) > 0 {
		fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
		a.log.Info("config reloaded", fields...)
	} else {
		a.log.Info("config reloaded (no changes)")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
