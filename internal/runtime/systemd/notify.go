// Package systemd reports service state to systemd over $NOTIFY_SOCKET.
//
// Every call is a no-op when the process is not started by systemd.
package systemd

import (
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "xposter/pkg/logx"
)

// Notifier sends sd_notify messages and throttles watchdog pings to half the
// configured WatchdogSec.
type Notifier struct {
	log logx.Logger

	// send is daemon.SdNotify; swapped in tests.
	send func(unsetEnv bool, state string) (bool, error)

	mu       sync.Mutex
	interval time.Duration // 0 when the watchdog is disabled
	lastPing time.Time
}

func New(log logx.Logger) *Notifier {
	n := &Notifier{log: log, send: daemon.SdNotify}
	if d, err := daemon.SdWatchdogEnabled(false); err == nil && d > 0 {
		n.interval = d / 2
	}
	return n
}

func (n *Notifier) Ready(status string) {
	n.notify(daemon.SdNotifyReady + "\nSTATUS=" + status)
}

func (n *Notifier) Stopping() {
	n.notify(daemon.SdNotifyStopping)
}

func (n *Notifier) Status(format string, args ...any) {
	n.notify("STATUS=" + fmt.Sprintf(format, args...))
}

// Watchdog pings systemd if the watchdog is enabled and the last ping is
// older than half the watchdog interval.
func (n *Notifier) Watchdog(now time.Time) {
	n.mu.Lock()
	if n.interval <= 0 || now.Sub(n.lastPing) < n.interval {
		n.mu.Unlock()
		return
	}
	n.lastPing = now
	n.mu.Unlock()
	n.notify(daemon.SdNotifyWatchdog)
}

// WatchdogInterval is the ping period (0 when disabled).
func (n *Notifier) WatchdogInterval() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.interval
}

func (n *Notifier) notify(state string) {
	if n == nil || n.send == nil {
		return
	}
	sent, err := n.send(false, state)
	if err != nil {
		n.log.Warn("sd_notify failed", logx.Err(err))
		return
	}
	if sent {
		n.log.Trace("sd_notify sent", logx.String("state", state))
	}
}
