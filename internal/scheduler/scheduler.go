// Package scheduler crawls the catalog once a day, whenever the newest snapshot is
// from an earlier day than today.
package scheduler

import (
	"context"
	"sync"
	"time"

	"partwatch/internal/components/assert"
	"partwatch/internal/components/chrono"
	"partwatch/internal/components/telemetry"
	"partwatch/internal/history"
)

const (
	report_tick   = "scheduler.tick"
	report_digest = "scheduler.digest"
)

// DEFAULT_SPEC checks at the start of every hour.
const DEFAULT_SPEC = "0 * * * *"

type Runner interface {
	RunOnce(ctx context.Context, timeout time.Duration) (bool, string)
}

type KeySource interface {
	SnapshotKeys(ctx context.Context) ([]time.Time, error)
}

type HistorySource interface {
	History(ctx context.Context) ([]history.DayChanges, error)
}

type Digester interface {
	Digest(ctx context.Context, capturedAt time.Time, days []history.DayChanges) error
}

type Scheduler struct {
	runner  Runner
	keys    KeySource
	timeout time.Duration

	history HistorySource
	digest  Digester

	time chrono.API
	tel  telemetry.API

	mu sync.Mutex
}

func New(runner Runner, keys KeySource, timeout time.Duration, time chrono.API, tel telemetry.API) *Scheduler {
	assert.NotNil(runner)
	assert.NotNil(keys)
	assert.NotNil(time)
	assert.NotNil(tel)

	return &Scheduler{
		runner:  runner,
		keys:    keys,
		timeout: timeout,
		time:    time,
		tel:     telemetry.NewScopedAPI("scheduler", tel),
	}
}

// WithDigest mails the newest changes after every successful scheduled run.
func (s *Scheduler) WithDigest(history HistorySource, digest Digester) *Scheduler {
	s.history = history
	s.digest = digest
	return s
}

// newest returns the key of the newest stored snapshot, false if nothing is stored.
func (s *Scheduler) newest(ctx context.Context) (time.Time, bool, error) {
	keys, err := s.keys.SnapshotKeys(ctx)
	if err != nil || len(keys) == 0 {
		return time.Time{}, false, err
	}
	return keys[0], true, nil
}

// Due reports whether there is no snapshot from today yet.
func (s *Scheduler) Due(ctx context.Context) (bool, error) {
	newest, stored, err := s.newest(ctx)
	if err != nil {
		return false, err
	}
	return s.due(newest, stored), nil
}

func (s *Scheduler) due(newest time.Time, stored bool) bool {
	if !stored {
		return true
	}
	today := chrono.StartOfDay(s.time.Now())
	return chrono.StartOfDay(newest.In(s.time.Location())).Before(today)
}

// Tick runs the pipeline if it is due and no other tick is running. It returns whether
// a run was started and whether it succeeded.
func (s *Scheduler) Tick(ctx context.Context) (ran, ok bool) {
	if !s.mu.TryLock() {
		s.tel.ReportDebug("skip tick, previous one still running")
		return false, false
	}
	defer s.mu.Unlock()

	before, stored, err := s.newest(ctx)
	if err != nil {
		s.tel.ReportBroken(report_tick, err)
		return false, false
	}
	if !s.due(before, stored) {
		s.tel.ReportDebug("snapshot of today exists, skip")
		return false, false
	}

	ok, log := s.runner.RunOnce(ctx, s.timeout)
	if !ok {
		s.tel.ReportWarning(report_tick, "scheduled run failed", log)
		return true, false
	}
	s.tel.ReportDebug("scheduled run finished")

	if s.digest != nil && s.history != nil {
		s.sendDigest(ctx, before)
	}
	return true, true
}

// sendDigest mails the changes of the snapshot the run stored, if it stored rows.
func (s *Scheduler) sendDigest(ctx context.Context, before time.Time) {
	after, ok, err := s.newest(ctx)
	if err != nil {
		s.tel.ReportBroken(report_digest, err)
		return
	}
	if !ok || !after.After(before) {
		s.tel.ReportDebug("run stored no rows, skip digest")
		return
	}

	days, err := s.history.History(ctx)
	if err != nil {
		s.tel.ReportBroken(report_digest, err)
		return
	}
	err = s.digest.Digest(ctx, after, days)
	if err != nil {
		s.tel.ReportWarning(report_digest, err)
	}
}

// Start registers Tick on cron, ctx bounds every tick.
func (s *Scheduler) Start(ctx context.Context, cron chrono.CronAPI, spec string) error {
	if spec == "" {
		spec = DEFAULT_SPEC
	}
	return cron.Cron(spec, func() {
		s.Tick(ctx)
	})
}
