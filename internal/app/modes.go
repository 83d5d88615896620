package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"xposter/internal/storage"
	logx "xposter/pkg/logx"
)

// RunOnce generates and publishes one post per account, in id order. In dry
// run it only logs; nothing is recorded.
func (a *App) RunOnce(ctx context.Context) error {
	if err := a.requireGenerator(); err != nil {
		return err
	}
	var errs []error
	for _, id := range a.accountIDs() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		acc := a.accounts[id]
		acc.log.Info("generating post")

		c, err := a.gen.Generate(ctx, id, acc.profile)
		if err != nil {
			acc.log.Error("content generation failed", logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if a.rt.DryRun {
			logContent(acc.log, "[dry run]", c)
			continue
		}

		msgs, err := a.publish(ctx, acc, c)
		if len(msgs) > 0 {
			threadLen := 0
			if c.IsThread {
				threadLen = len(msgs)
			}
			a.record(ctx, acc, c, msgs[0].ID, threadLen)
			acc.log.Info("published", logx.String("post_id", msgs[0].ID), logx.Int("parts", len(msgs)))
		}
		if err != nil {
			acc.log.Error("publish failed", logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// VerifyAll checks every account's credentials and reports whether all passed.
func (a *App) VerifyAll(ctx context.Context) bool {
	ok := true
	for _, id := range a.accountIDs() {
		if !a.accounts[id].pub.VerifyCredentials(ctx) {
			a.log.Error("credential check failed", logx.String("account", id))
			ok = false
		}
	}
	return ok
}

// PrintStatus writes the n most recent history records of every account.
func (a *App) PrintStatus(ctx context.Context, w io.Writer, n int) error {
	for _, id := range a.accountIDs() {
		recs, err := a.store.Recent(ctx, id, n)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		fmt.Fprintf(w, "\n--- %s (latest %d) ---\n", id, n)
		if len(recs) == 0 {
			fmt.Fprintln(w, "  (no history)")
			continue
		}
		for _, r := range recs {
			fmt.Fprintf(w, "  [%s] [%s] %s\n", r.At.Local().Format("2006-01-02 15:04"), r.Category, describePost(r))
			fmt.Fprintf(w, "    %s\n", preview(r.Text, 80))
		}
	}
	return nil
}

func describePost(r storage.Record) string {
	switch {
	case r.DryRun():
		return "dry run"
	case r.ThreadLen > 1:
		return fmt.Sprintf("%s (thread of %d)", r.PostID, r.ThreadLen)
	default:
		return r.PostID
	}
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
