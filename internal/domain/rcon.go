package domain

import "context"

// Session is one authenticated RCON connection. It is used for a single
// command and then closed; Close is idempotent.
type Session interface {
	Execute(command string) (string, error)
	Close() error
}

// Dialer opens authenticated RCON sessions against a target server.
type Dialer interface {
	Dial(ctx context.Context, target TargetConfig) (Session, error)
}
