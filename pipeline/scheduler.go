// ABOUTME: Periodic re-evaluation of every account
// ABOUTME: Full runs on one interval, follow-up drafting on a slower one, accounts in parallel
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/logger"
	"golang.org/x/sync/errgroup"
)

type AccountLister interface {
	ListAccounts(ctx context.Context) ([]uuid.UUID, error)
}

type Scheduler struct {
	runner           *Runner
	accounts         AccountLister
	interval         time.Duration
	followUpInterval time.Duration
	parallelism      int
	log              *logger.Logger
}

func NewScheduler(runner *Runner, accounts AccountLister, interval, followUpInterval time.Duration, parallelism int, log *logger.Logger) *Scheduler {
	if parallelism < 1 {
		parallelism = 1
	}
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if followUpInterval <= 0 {
		followUpInterval = 24 * time.Hour
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		runner:           runner,
		accounts:         accounts,
		interval:         interval,
		followUpInterval: followUpInterval,
		parallelism:      parallelism,
		log:              log,
	}
}

// Run executes a full pass immediately, then on every tick until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started", "interval", s.interval, "followup_interval", s.followUpInterval)

	if err := s.RunOnce(ctx, true); err != nil {
		s.log.Warn("scheduled pass failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	followTicker := time.NewTicker(s.followUpInterval)
	defer followTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			if err := s.RunOnce(ctx, false); err != nil {
				s.log.Warn("scheduled pass failed", "error", err)
			}
		case <-followTicker.C:
			if err := s.runFollowUps(ctx); err != nil {
				s.log.Warn("follow-up pass failed", "error", err)
			}
		}
	}
}

// RunOnce runs every account once. Account failures are logged, not returned.
func (s *Scheduler) RunOnce(ctx context.Context, withFollowUps bool) error {
	return s.forEachAccount(ctx, func(ctx context.Context, userID uuid.UUID) {
		log := s.log.With("user_id", userID.String())
		_, err := s.runner.RunAccount(ctx, userID)
		switch {
		case err == nil:
		case errors.Is(err, ErrAccountBusy):
			log.Info("account skipped, already running")
			return
		case errors.Is(err, apperr.ErrNotFound):
			log.Debug("account skipped", "reason", err)
			return
		default:
			log.Error("account run failed", "error", err)
			return
		}
		if withFollowUps {
			if _, err := s.runner.RunFollowUps(ctx, userID); err != nil && !errors.Is(err, ErrAccountBusy) {
				log.Error("follow-up run failed", "error", err)
			}
		}
	})
}

func (s *Scheduler) runFollowUps(ctx context.Context) error {
	return s.forEachAccount(ctx, func(ctx context.Context, userID uuid.UUID) {
		if _, err := s.runner.RunFollowUps(ctx, userID); err != nil && !errors.Is(err, ErrAccountBusy) {
			s.log.Error("follow-up run failed", "user_id", userID.String(), "error", err)
		}
	})
}

func (s *Scheduler) forEachAccount(ctx context.Context, fn func(context.Context, uuid.UUID)) error {
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, userID := range accounts {
		userID := userID
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			fn(gctx, userID)
			return nil
		})
	}
	return g.Wait()
}
