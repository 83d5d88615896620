package storage

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// DryRunPostID is recorded instead of a platform ID when nothing was published.
const DryRunPostID = "dry-run"

// Config configures storage.
//
// Driver values:
//   - "file" (default)
//   - "sqlite"
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one history entry. Threads store the first post's ID and the
// number of parts actually published.
type Record struct {
	ID        string    `json:"id"`
	At        time.Time `json:"at"`
	Account   string    `json:"account"`
	Text      string    `json:"text"`
	PostID    string    `json:"post_id"`
	Category  string    `json:"category,omitempty"`
	ThreadLen int       `json:"thread_len,omitempty"`
}

// DryRun reports whether the record was produced without publishing.
func (r Record) DryRun() bool { return r.PostID == DryRunPostID }
