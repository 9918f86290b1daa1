// Package whitelist turns player-level whitelist actions into RCON commands
// and runs them against one or many servers.
package whitelist

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danyaalu/whitelist-bot/internal/domain"
	"github.com/danyaalu/whitelist-bot/internal/metrics"
)

// Runner executes one rendered command against a target. *rcon.Governor
// satisfies it.
type Runner interface {
	Run(ctx context.Context, target domain.TargetConfig, command string, platform domain.Platform) domain.ExecutionResult
}

// Orchestrator holds no per-call state and is safe for concurrent use.
type Orchestrator struct {
	runner          Runner
	metrics         *metrics.Metrics
	logger          *slog.Logger
	tracer          trace.Tracer
	kickAfterRemove bool
}

type Option func(*Orchestrator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithKickAfterRemove toggles the best-effort kick that follows a remove.
func WithKickAfterRemove(enabled bool) Option {
	return func(o *Orchestrator) { o.kickAfterRemove = enabled }
}

func NewOrchestrator(runner Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:          runner,
		logger:          slog.Default().With("component", "whitelist"),
		tracer:          otel.Tracer("github.com/danyaalu/whitelist-bot/internal/whitelist"),
		kickAfterRemove: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Perform runs req against target. Configuration problems are reported
// without touching the network. A remove that succeeds is followed by a kick
// whose outcome never changes the returned result.
func (o *Orchestrator) Perform(ctx context.Context, target domain.TargetConfig, req domain.ActionRequest) domain.ExecutionResult {
	ctx, span := o.tracer.Start(ctx, "whitelist."+req.Kind.String(), trace.WithAttributes(
		attribute.String("whitelist.server", target.Name),
		attribute.String("whitelist.platform", req.Platform.String()),
		attribute.String("whitelist.player", req.Identity),
	))
	defer span.End()

	res := o.execute(ctx, target, req)

	span.SetAttributes(attribute.String("whitelist.outcome", res.Category.String()))
	if !res.Succeeded {
		span.SetStatus(codes.Error, res.Detail)
	}

	if req.Kind == domain.ActionRemove && res.Succeeded && o.kickAfterRemove {
		o.kick(ctx, target, req)
	}
	return res
}

func (o *Orchestrator) execute(ctx context.Context, target domain.TargetConfig, req domain.ActionRequest) domain.ExecutionResult {
	command, err := Command(target, req)
	if err != nil {
		res := domain.Failure(target.Name, domain.CategoryConfiguration, err.Error())
		o.logger.Warn("whitelist command not rendered",
			"server", target.Name, "action", req.Kind, "platform", req.Platform, "error", err)
		o.metrics.ObserveCommand(req, res)
		return res
	}

	res := o.runner.Run(ctx, target, command, req.Platform)
	o.metrics.ObserveCommand(req, res)

	o.logger.Info("whitelist command",
		"server", target.Name,
		"action", req.Kind,
		"player", req.Identity,
		"outcome", res.Category,
		"duration", res.Duration,
	)
	return res
}

// kick disconnects a player whose access was just revoked. "No player was
// found" is the usual answer for offline players.
func (o *Orchestrator) kick(ctx context.Context, target domain.TargetConfig, removed domain.ActionRequest) {
	if _, ok := target.Template(domain.ActionKick, removed.Platform); !ok {
		o.logger.Debug("no kick template, skipping", "server", target.Name, "platform", removed.Platform)
		return
	}

	req := removed
	req.Kind = domain.ActionKick
	res := o.execute(ctx, target, req)
	if !res.Succeeded {
		o.metrics.KickFailed(target.Name)
		o.logger.Info("kick after remove failed",
			"server", target.Name, "player", req.Identity, "category", res.Category, "detail", res.Detail)
	}
}
