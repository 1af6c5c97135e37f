package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/repository"
	"github.com/Peluchemoreno/esti-mate-billing/internal/metrics"
)

const purgeTimeout = time.Minute

// LedgerPurger drops processed-event ids whose retention window has passed.
type LedgerPurger struct {
	cron    *cron.Cron
	ledger  repository.EventLedgerRepository
	metrics metrics.BillingMetrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewLedgerPurger(schedule string, ledger repository.EventLedgerRepository, m metrics.BillingMetrics, logger *zap.Logger) (*LedgerPurger, error) {
	cl := cronLogger{logger: logger.Sugar()}
	p := &LedgerPurger{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ledger:  ledger,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}

	if _, err := p.cron.AddFunc(schedule, p.run); err != nil {
		return nil, fmt.Errorf("invalid ledger purge schedule %q: %w", schedule, err)
	}
	return p, nil
}

func (p *LedgerPurger) run() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()
	if _, err := p.RunOnce(ctx); err != nil {
		p.logger.Error("Ledger purge failed", zap.Error(err))
	}
}

// RunOnce purges expired entries now and reports how many were removed.
func (p *LedgerPurger) RunOnce(ctx context.Context) (int64, error) {
	n, err := p.ledger.PurgeExpired(ctx, p.now().UTC())
	if err != nil {
		return 0, err
	}
	p.metrics.AddLedgerPurged(n)
	if n > 0 {
		p.logger.Info("Purged expired ledger entries", zap.Int64("count", n))
	}
	return n, nil
}

func (p *LedgerPurger) Start() {
	p.cron.Start()
}

// Stop halts scheduling; the returned context is done once a running purge finishes.
func (p *LedgerPurger) Stop() context.Context {
	return p.cron.Stop()
}

type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
