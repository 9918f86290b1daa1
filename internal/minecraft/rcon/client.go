package rcon

import (
	"context"
	"fmt"
	"sync"
	"time"

	gorcon "github.com/gorcon/rcon"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

// Client implements domain.Dialer using the gorcon library
type Client struct {
	connectTimeout time.Duration
	commandTimeout time.Duration
}

func NewClient(connectTimeout, commandTimeout time.Duration) *Client {
	return &Client{
		connectTimeout: connectTimeout,
		commandTimeout: commandTimeout,
	}
}

// Dial connects to the Minecraft RCON server and authenticates.
// The dial timeout never outlives the deadline carried by ctx.
func (c *Client) Dial(ctx context.Context, target domain.TargetConfig) (domain.Session, error) {
	dialTimeout := pick(target.ConnectTimeout, c.connectTimeout)
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < dialTimeout {
			dialTimeout = remaining
		}
	}
	if dialTimeout <= 0 {
		return nil, fmt.Errorf("RCON connect: %w", context.DeadlineExceeded)
	}

	conn, err := gorcon.Dial(target.Addr(), target.Password,
		gorcon.SetDialTimeout(dialTimeout),
		gorcon.SetDeadline(pick(target.CommandTimeout, c.commandTimeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("RCON connect: %w", err)
	}

	return &session{conn: conn}, nil
}

// session wraps a gorcon connection so Close may be called from both the
// command goroutine and an abandoning governor.
type session struct {
	conn      *gorcon.Conn
	closeOnce sync.Once
	closeErr  error
}

func (s *session) Execute(command string) (string, error) {
	resp, err := s.conn.Execute(command)
	if err != nil {
		return "", fmt.Errorf("RCON exec: %w", err)
	}
	return resp, nil
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func pick(override, fallback time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return fallback
}
