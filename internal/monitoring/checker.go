package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/config"
)

const (
	defaultCheckInterval = 5 * time.Minute
	// An alert type is not re-sent within the cooldown.
	defaultCooldown = time.Hour
)

// Checker periodically evaluates run health and posts alerts.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	interval  time.Duration
	lookback  int
	cooldown  time.Duration
	now       func() time.Time
	lastSent  map[AlertType]time.Time
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		interval:  config.Seconds(cfg.CheckIntervalSecs, defaultCheckInterval),
		lookback:  cfg.LookbackWindowHours,
		cooldown:  defaultCooldown,
		now:       time.Now,
		lastSent:  make(map[AlertType]time.Time),
	}
}

// Run checks once per interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("monitoring: checker started",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("monitoring: checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("monitoring: collect run metrics", zap.Error(err))
		return
	}

	due := c.due(c.alerter.Evaluate(snap))
	if len(due) == 0 {
		return
	}

	sent := c.alerter.SendAlerts(ctx, due)
	if sent == len(due) {
		now := c.now()
		for _, a := range due {
			c.lastSent[a.Type] = now
		}
	}
	log.Info("monitoring: alerts evaluated",
		zap.Int("pending", snap.Pending),
		zap.Float64("failure_rate", snap.FailureRate),
		zap.Int("alerts_due", len(due)),
		zap.Int("alerts_sent", sent),
	)
}

// due drops alerts whose type was sent within the cooldown.
func (c *Checker) due(alerts []Alert) []Alert {
	now := c.now()
	out := alerts[:0:0]
	for _, a := range alerts {
		if last, ok := c.lastSent[a.Type]; ok && now.Sub(last) < c.cooldown {
			continue
		}
		out = append(out, a)
	}
	return out
}
