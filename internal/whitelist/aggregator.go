package whitelist

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

// Performer runs one action against one target. *Orchestrator satisfies it.
type Performer interface {
	Perform(ctx context.Context, target domain.TargetConfig, req domain.ActionRequest) domain.ExecutionResult
}

// Aggregator fans a request out over several servers.
type Aggregator struct {
	performer   Performer
	concurrency int
}

type AggregatorOption func(*Aggregator)

// WithConcurrency allows up to n targets in flight. Each target still gets
// its own deadline. n <= 1 keeps the sequential behaviour.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) { a.concurrency = n }
}

func NewAggregator(performer Performer, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{performer: performer, concurrency: 1}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PerformAll attempts req on every target and returns one result per
// target, in input order. Failures never stop the remaining targets.
func (a *Aggregator) PerformAll(ctx context.Context, targets []domain.TargetConfig, req domain.ActionRequest) domain.AggregateReport {
	results := make([]domain.ExecutionResult, len(targets))

	if a.concurrency <= 1 {
		for i, target := range targets {
			results[i] = a.performer.Perform(ctx, target, req)
		}
		return domain.AggregateReport{Results: results}
	}

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			results[i] = a.performer.Perform(ctx, target, req)
			return nil
		})
	}
	_ = g.Wait()

	return domain.AggregateReport{Results: results}
}
