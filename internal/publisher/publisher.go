package publisher

import (
	"context"
	"fmt"
	"time"

	"xposter/internal/transport"
	logx "xposter/pkg/logx"
)

const (
	DefaultMaxRetries  = 3
	DefaultThreadDelay = 2 * time.Second
)

// SleepFunc waits for d or until ctx is done, returning ctx.Err() in the latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Publisher publishes single messages and threads to one account.
type Publisher struct {
	platform    transport.Platform
	log         logx.Logger
	sleep       SleepFunc
	maxRetries  int
	threadDelay time.Duration
}

type Option func(*Publisher)

func WithLogger(log logx.Logger) Option {
	return func(p *Publisher) { p.log = log }
}

// WithSleep replaces the context-aware timer used for backoff and thread pacing.
func WithSleep(fn SleepFunc) Option {
	return func(p *Publisher) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// WithMaxRetries sets the total number of attempts per message (values < 1 mean 1).
func WithMaxRetries(n int) Option {
	return func(p *Publisher) { p.maxRetries = max(n, 1) }
}

func WithThreadDelay(d time.Duration) Option {
	return func(p *Publisher) {
		if d >= 0 {
			p.threadDelay = d
		}
	}
}

func New(platform transport.Platform, opts ...Option) *Publisher {
	p := &Publisher{
		platform:    platform,
		log:         logx.Nop(),
		sleep:       Sleep,
		maxRetries:  DefaultMaxRetries,
		threadDelay: DefaultThreadDelay,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}

// PublishOne posts text (as a reply when replyTo != "") with retries.
func (p *Publisher) PublishOne(ctx context.Context, text, replyTo string) (transport.Message, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		attempts = attempt + 1
		msg, err := p.platform.CreateMessage(ctx, text, replyTo)
		if err == nil {
			if attempt > 0 {
				p.log.Info("publish succeeded after retry", logx.String("id", msg.ID), logx.Int("attempts", attempts))
			}
			return msg, nil
		}
		lastErr = err

		delay, retry := backoff(err, attempt)
		if !retry {
			p.log.Error("publish rejected; not retrying", logx.String("class", transport.Class(err)), logx.Err(err))
			break
		}
		last := attempt+1 >= p.maxRetries
		// Only unclassified failures skip the wait after the final attempt.
		if last && transport.Class(err) == "unexpected" {
			break
		}
		p.log.Warn("publish failed; backing off",
			logx.String("class", transport.Class(err)),
			logx.Int("attempt", attempts),
			logx.Int("max_attempts", p.maxRetries),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if err := p.sleep(ctx, delay); err != nil {
			return transport.Message{}, fmt.Errorf("publish retry aborted: %w", err)
		}
	}
	return transport.Message{}, &Error{Attempts: attempts, Class: transport.Class(lastErr), Err: lastErr}
}

// PublishThread posts texts as a reply chain. On failure it returns the
// messages published so far together with the error.
func (p *Publisher) PublishThread(ctx context.Context, texts []string) ([]transport.Message, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([]transport.Message, 0, len(texts))
	replyTo := ""
	for i, text := range texts {
		if i > 0 {
			if err := p.sleep(ctx, p.threadDelay); err != nil {
				return out, fmt.Errorf("thread aborted before part %d/%d: %w", i+1, len(texts), err)
			}
		}
		msg, err := p.PublishOne(ctx, text, replyTo)
		if err != nil {
			p.log.Warn("thread stopped",
				logx.Int("part", i+1),
				logx.Int("total", len(texts)),
				logx.Int("published", len(out)),
			)
			return out, fmt.Errorf("thread part %d/%d: %w", i+1, len(texts), err)
		}
		out = append(out, msg)
		replyTo = msg.ID
	}
	return out, nil
}

// VerifyCredentials reports whether the platform accepts the account's credentials.
func (p *Publisher) VerifyCredentials(ctx context.Context) bool {
	id, err := p.platform.GetIdentity(ctx)
	if err != nil {
		p.log.Error("credential check failed", logx.String("class", transport.Class(err)), logx.Err(err))
		return false
	}
	if id.Username == "" {
		p.log.Error("credential check returned no username", logx.String("user_id", id.ID))
		return false
	}
	p.log.Info("credentials verified", logx.String("username", id.Username), logx.String("user_id", id.ID))
	return true
}
