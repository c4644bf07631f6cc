// Package jobs runs the engine's periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type NoShowSweeper interface {
	SweepNoShows(ctx context.Context) (int, error)
}

type DiscountExpirer interface {
	ExpireLapsed(ctx context.Context) (int64, error)
}

type Config struct {
	NoShowSpec         string
	DiscountExpirySpec string
	Location           *time.Location
}

// Scheduler owns the cron instance. Jobs never overlap with themselves; a run that is
// still going when the next tick fires is skipped.
type Scheduler struct {
	cron      *cron.Cron
	cfg       Config
	bookings  NoShowSweeper
	discounts DiscountExpirer
	log       *logrus.Logger

	noShowRuns   atomic.Int64
	discountRuns atomic.Int64
}

func NewScheduler(cfg Config, bookings NoShowSweeper, discounts DiscountExpirer, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger)),
	)
	return &Scheduler{cron: c, cfg: cfg, bookings: bookings, discounts: discounts, log: log}
}

// Start schedules the jobs with a non-empty spec and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.cfg.NoShowSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.NoShowSpec, s.noShowJob); err != nil {
			return fmt.Errorf("schedule no-show sweep: %w", err)
		}
		s.log.WithField("spec", s.cfg.NoShowSpec).Info("scheduled no-show sweep")
	}
	if s.cfg.DiscountExpirySpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.DiscountExpirySpec, s.discountJob); err != nil {
			return fmt.Errorf("schedule discount expiry: %w", err)
		}
		s.log.WithField("spec", s.cfg.DiscountExpirySpec).Info("scheduled discount expiry")
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) RunNoShowSweep(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.bookings.SweepNoShows(ctx)
	s.noShowRuns.Add(1)
	entry := s.log.WithFields(logrus.Fields{"job": "no_show_sweep", "duration": time.Since(start)})
	if err != nil {
		entry.WithError(err).Error("job failed")
		return n, err
	}
	entry.WithField("marked", n).Info("job finished")
	return n, nil
}

func (s *Scheduler) RunDiscountExpiry(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.discounts.ExpireLapsed(ctx)
	s.discountRuns.Add(1)
	entry := s.log.WithFields(logrus.Fields{"job": "discount_expiry", "duration": time.Since(start)})
	if err != nil {
		entry.WithError(err).Error("job failed")
		return n, err
	}
	entry.WithField("expired", n).Info("job finished")
	return n, nil
}

type Status struct {
	Jobs         int         `json:"jobs"`
	Next         []time.Time `json:"next"`
	NoShowRuns   int64       `json:"no_show_runs"`
	DiscountRuns int64       `json:"discount_runs"`
}

func (s *Scheduler) Status() Status {
	entries := s.cron.Entries()
	st := Status{
		Jobs:         len(entries),
		Next:         make([]time.Time, 0, len(entries)),
		NoShowRuns:   s.noShowRuns.Load(),
		DiscountRuns: s.discountRuns.Load(),
	}
	for _, e := range entries {
		st.Next = append(st.Next, e.Next)
	}
	return st
}

func (s *Scheduler) noShowJob() {
	_, _ = s.RunNoShowSweep(context.Background())
}

func (s *Scheduler) discountJob() {
	_, _ = s.RunDiscountExpiry(context.Background())
}
