package rcon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultCommandTimeout = 5 * time.Second
)

// Governor runs one command per session under a single deadline covering
// connect, authenticate, send, receive and close.
//
// RCON I/O cannot be interrupted mid-flight, so a timeout stops waiting
// rather than cancelling: the exchange keeps running on its own goroutine
// and releases its socket when it finishes or errors. The caller gets a
// timeout result immediately and never sees the late response.
type Governor struct {
	dialer         domain.Dialer
	classifier     Classifier
	connectTimeout time.Duration
	commandTimeout time.Duration
	logger         *slog.Logger
}

// GovernorOption configures a Governor.
type GovernorOption func(*Governor)

func WithTimeouts(connect, command time.Duration) GovernorOption {
	return func(g *Governor) {
		if connect > 0 {
			g.connectTimeout = connect
		}
		if command > 0 {
			g.commandTimeout = command
		}
	}
}

func WithClassifier(c Classifier) GovernorOption {
	return func(g *Governor) {
		if c != nil {
			g.classifier = c
		}
	}
}

func WithLogger(logger *slog.Logger) GovernorOption {
	return func(g *Governor) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGovernor(dialer domain.Dialer, opts ...GovernorOption) *Governor {
	g := &Governor{
		dialer:         dialer,
		classifier:     NewMarkerClassifier(nil),
		connectTimeout: DefaultConnectTimeout,
		commandTimeout: DefaultCommandTimeout,
		logger:         slog.Default().With("component", "rcon"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Budget is the whole-operation deadline for a target.
func (g *Governor) Budget(target domain.TargetConfig) time.Duration {
	return pick(target.ConnectTimeout, g.connectTimeout) + pick(target.CommandTimeout, g.commandTimeout)
}

type exchangeResult struct {
	response string
	err      error
}

// Run executes command on target and returns a classified result. It never
// blocks longer than Budget(target).
func (g *Governor) Run(ctx context.Context, target domain.TargetConfig, command string, platform domain.Platform) domain.ExecutionResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.Budget(target))
	defer cancel()

	op := &inflight{}
	// Buffered so an abandoned exchange can always deliver and exit.
	done := make(chan exchangeResult, 1)
	go func() {
		done <- g.exchange(ctx, op, target, command)
	}()

	var result domain.ExecutionResult
	select {
	case ex := <-done:
		result = g.interpret(target, platform, ex)
	case <-ctx.Done():
		op.abandon()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result = domain.Failure(target.Name, domain.CategoryTimeout, "no response within "+g.Budget(target).String())
		} else {
			result = domain.Failure(target.Name, domain.CategoryUnknown, "canceled")
		}
		g.logger.Warn("rcon command abandoned",
			"server", target.Name, "reason", ctx.Err())
	}

	result.Duration = time.Since(start)
	return result
}

func (g *Governor) exchange(ctx context.Context, op *inflight, target domain.TargetConfig, command string) exchangeResult {
	sess, err := g.dialer.Dial(ctx, target)
	if err != nil {
		return exchangeResult{err: err}
	}
	defer func() {
		if err := sess.Close(); err != nil {
			g.logger.Debug("rcon close", "server", target.Name, "error", err)
		}
	}()

	if !op.attach(sess) {
		return exchangeResult{err: context.DeadlineExceeded}
	}

	resp, err := sess.Execute(command)
	return exchangeResult{response: resp, err: err}
}

func (g *Governor) interpret(target domain.TargetConfig, platform domain.Platform, ex exchangeResult) domain.ExecutionResult {
	if ex.err != nil {
		category, detail := ClassifyTransport(ex.err)
		g.logger.Info("rcon transport failure",
			"server", target.Name, "category", category, "error", ex.err)
		return domain.Failure(target.Name, category, detail)
	}

	classifier := g.classifier
	if len(target.FailureMarkers) > 0 {
		classifier = NewMarkerClassifier(target.FailureMarkers)
	}

	if message, failed := classifier.Classify(ex.response, platform); failed {
		g.logger.Info("rcon command rejected",
			"server", target.Name, "response", ex.response)
		res := domain.Failure(target.Name, domain.CategorySemanticFailure, message)
		res.Response = ex.response
		return res
	}

	return domain.ExecutionResult{
		Succeeded: true,
		Target:    target.Name,
		Response:  ex.response,
	}
}

// inflight hands the open session to whichever side gives up first.
type inflight struct {
	mu        sync.Mutex
	session   domain.Session
	abandoned bool
}

// attach records the session; false means the governor already gave up.
func (f *inflight) attach(s domain.Session) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.abandoned {
		return false
	}
	f.session = s
	return true
}

// abandon marks the exchange as timed out and closes its session without
// waiting for the close to finish.
func (f *inflight) abandon() {
	f.mu.Lock()
	f.abandoned = true
	s := f.session
	f.mu.Unlock()

	if s != nil {
		go s.Close() //nolint:errcheck
	}
}
