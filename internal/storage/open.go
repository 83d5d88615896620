package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	logx "xposter/pkg/logx"
)

// Store is the history API used by the app and the content generator.
type Store interface {
	Append(ctx context.Context, r Record) error
	// Recent returns up to n records of account, newest first.
	Recent(ctx context.Context, account string, n int) ([]Record, error)
	// Prune deletes records older than before and reports how many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

// normalize fills the ID and timestamp of a record about to be appended.
func normalize(r Record) (Record, error) {
	if strings.TrimSpace(r.Account) == "" {
		return r, errors.New("record account is required")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	return r, nil
}
