package service

import (
	"context"
	"errors"
	"time"

	"tourhub/internal/logger"
)

const (
	reconcileBatch = 50
	// a refund marked owed this recently may still be in flight after its settlement
	refundRetryAfter = 2 * time.Minute
)

// RunReconciler retries stale PENDING payouts until ctx is cancelled.
func (s *PayoutService) RunReconciler(ctx context.Context) {
	runSweeper(ctx, "payout", s.cfg.ReconcileInterval, s.Reconcile)
}

// runSweeper calls pass every interval until ctx is cancelled.
func runSweeper(ctx context.Context, name string, interval time.Duration, pass func(context.Context) (int, error)) {
	if interval <= 0 {
		return
	}
	log := logger.For(name)
	log.WithField("interval", interval.String()).Info("sweeper started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			if n, err := pass(ctx); err != nil {
				log.WithError(err).Error("sweep failed")
			} else if n > 0 {
				log.WithField("rows", n).Info("sweep done")
			}
		}
	}
}

// Reconcile makes one pass over PENDING payouts older than the stale threshold. Each is
// re-sent under its original idempotency key; after MaxAttempts the payout fails and the
// balance is restored. Returns how many payouts were looked at.
func (s *PayoutService) Reconcile(ctx context.Context) (int, error) {
	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, "payout-reconcile", s.cfg.ReconcileInterval)
		if err != nil {
			logger.For("payout").WithError(err).Warn("reconcile lock unavailable")
		} else if !ok {
			return 0, nil
		} else {
			defer func() { _ = s.locker.Release(context.Background(), "payout-reconcile") }()
		}
	}
	stale, err := s.payouts.ListStalePending(time.Now().Add(-s.cfg.StaleAfter), reconcileBatch)
	if err != nil {
		return 0, err
	}
	for i := range stale {
		p := &stale[i]
		if ctx.Err() != nil {
			return i, ctx.Err()
		}
		if p.Attempts >= s.cfg.MaxAttempts {
			if err := s.finish(ctx, p, 0, nil, errors.New("transfer not confirmed after maximum attempts")); err != nil {
				return i, err
			}
			continue
		}
		res, terr := s.transfer(ctx, p)
		if terr != nil && p.Attempts < s.cfg.MaxAttempts {
			logger.For("payout").WithError(terr).WithField("payout_id", p.ID).Warn("payout retry failed")
			continue
		}
		if err := s.finish(ctx, p, 0, res, terr); err != nil {
			return i, err
		}
	}
	return len(stale), nil
}
