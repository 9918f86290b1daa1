package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/danyaalu/whitelist-bot/internal/domain"
	"github.com/danyaalu/whitelist-bot/internal/metrics"
)

// Prober reports whether a target is reachable. *status.Checker satisfies it.
type Prober interface {
	Reachable(ctx context.Context, target domain.TargetConfig) bool
}

// Watcher probes every target on a cron schedule, keeps the target_up gauge
// current and logs when a server goes up or down.
type Watcher struct {
	prober  Prober
	targets []domain.TargetConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
	timeout time.Duration
	cron    *cron.Cron

	mu   sync.Mutex
	last map[string]bool
}

func NewWatcher(prober Prober, targets []domain.TargetConfig, m *metrics.Metrics, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default().With("component", "watcher")
	}
	return &Watcher{
		prober:  prober,
		targets: targets,
		metrics: m,
		logger:  logger,
		timeout: 30 * time.Second,
		cron:    cron.New(),
		last:    make(map[string]bool),
	}
}

// Start schedules probes with a cron spec such as "@every 1m".
func (w *Watcher) Start(spec string) error {
	if _, err := w.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		w.ProbeAll(ctx)
	}); err != nil {
		return err
	}
	w.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running probe to finish.
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
}

// ProbeAll checks every target once.
func (w *Watcher) ProbeAll(ctx context.Context) {
	for _, target := range w.targets {
		up := w.prober.Reachable(ctx, target)
		w.metrics.SetTargetUp(target.Name, up)

		w.mu.Lock()
		prev, seen := w.last[target.Name]
		w.last[target.Name] = up
		w.mu.Unlock()

		switch {
		case !seen:
			w.logger.Info("server probed", "server", target.Name, "up", up)
		case prev != up:
			w.logger.Warn("server reachability changed", "server", target.Name, "up", up)
		}
	}
}

// Up returns the last probe result for a server.
func (w *Watcher) Up(server string) (up, known bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	up, known = w.last[server]
	return up, known
}
