package status

import (
	"context"
	"net"
	"time"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

// Checker probes a server's RCON port to determine if it is reachable.
// It only opens a TCP connection; it never authenticates.
type Checker struct {
	timeout time.Duration
	dialer  net.Dialer
}

func NewChecker(timeout time.Duration) *Checker {
	return &Checker{timeout: timeout}
}

// Reachable reports whether the target accepts TCP connections on its RCON port.
func (c *Checker) Reachable(ctx context.Context, target domain.TargetConfig) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", target.Addr())
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Check returns a human-readable status string
func (c *Checker) Check(ctx context.Context, target domain.TargetConfig) string {
	if !c.Reachable(ctx, target) {
		return "🔴 Offline"
	}
	return "🟢 Online"
}
