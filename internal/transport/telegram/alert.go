// Package telegram sends operator alerts through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"xposter/internal/transport"
)

// MaxMessageLen is Telegram's per-message text limit (in characters).
const MaxMessageLen = 4096

type Config struct {
	Token   string
	APIURL  string        // defaults to Telegram's public API
	Timeout time.Duration // per request, default 10s
}

// Sender is a send-only bot: it never polls for updates.
type Sender struct {
	bot *tele.Bot
}

var _ transport.Alerter = (*Sender)(nil)

func New(cfg Config) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.APIURL,
		Client:  &http.Client{Timeout: timeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &Sender{bot: b}, nil
}

// SendAlert delivers text to the target chat, split into several messages if
// it exceeds MaxMessageLen.
func (s *Sender) SendAlert(ctx context.Context, to transport.AlertTarget, text string) error {
	chat := &tele.Chat{ID: to.ChatID}
	opt := &tele.SendOptions{
		DisableWebPagePreview: true,
		ThreadID:              to.ThreadID,
	}
	for _, part := range splitText(text, MaxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.bot.Send(chat, part, opt); err != nil {
			return err
		}
	}
	return nil
}

// splitText cuts s into chunks of at most limit runes, preferring to break
// after a newline in the second half of a chunk.
func splitText(s string, limit int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}

	var out []string
	runes := []rune(s)
	for len(runes) > 0 {
		if len(runes) <= limit {
			out = append(out, string(runes))
			break
		}
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunk := strings.TrimRight(string(runes[:cut]), "\n")
		if chunk != "" {
			out = append(out, chunk)
		}
		runes = runes[cut:]
	}
	return out
}
