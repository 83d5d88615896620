package transport

import "context"

// Message is a post accepted by the platform.
type Message struct {
	ID      string
	Text    string
	ReplyTo string // ID of the message this one replies to ("" for top-level posts)
}

// Identity is the authenticated account as reported by the platform.
type Identity struct {
	ID       string
	Name     string
	Username string
}

// Platform is the remote posting API.
//
// Implementations must return errors that match one of the failure classes
// (ErrRateLimited, ErrPermissionDenied, ErrServerError) via errors.Is when the
// remote reports one; anything else is treated as an unexpected failure.
type Platform interface {
	CreateMessage(ctx context.Context, text string, replyTo string) (Message, error)
	GetIdentity(ctx context.Context) (Identity, error)
}

// AlertTarget addresses an operator chat (Telegram: chat + forum topic).
type AlertTarget struct {
	ChatID   int64
	ThreadID int // forum topic thread id (0 if none)
}

// Alerter delivers short operator notifications.
type Alerter interface {
	SendAlert(ctx context.Context, to AlertTarget, text string) error
}
