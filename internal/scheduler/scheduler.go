// Package scheduler wires up the cron jobs that drive the service: the
// periodic alert cycle, the nightly stale-job cleanup and the weekly
// market report.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/model"
	"jobmate/jobalert-service/internal/pipeline"
)

// CycleLockKey is the Redis key guarding the alert cycle.
const CycleLockKey = "jobalert:cycle:lock"

// ErrCycleRunning is returned by RunNow when another cycle holds the lock,
// in this process or another replica.
var ErrCycleRunning = errors.New("an alert cycle is already running")

// Cycle runs one alert cycle.
type Cycle interface {
	RunCycle(ctx context.Context) (pipeline.CycleReport, error)
}

// JobMaintenance is the part of the job store used by cleanup and reports.
type JobMaintenance interface {
	ExpireStale(ctx context.Context, days int) (int64, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// Recipients lists profiles that receive the weekly report.
type Recipients interface {
	ListActive(ctx context.Context) ([]model.Profile, error)
}

// Reporter delivers a plain-text report to one profile.
type Reporter interface {
	SendReport(ctx context.Context, p *model.Profile, subject, body string) bool
}

// Options configures the schedules.
type Options struct {
	IntervalHours   int
	CleanupSpec     string // standard 5-field cron
	ReportSpec      string // standard 5-field cron
	LockTTL         time.Duration
	ExpireAfterDays int
	// BroadcastEmail receives the report when Recipients is nil.
	BroadcastEmail string
}

// Status is a snapshot for the status endpoints.
type Status struct {
	Running       bool                  `json:"is_running"`
	CycleActive   bool                  `json:"cycle_active"`
	LastRun       *time.Time            `json:"last_run_time"`
	LastReport    *pipeline.CycleReport `json:"last_report,omitempty"`
	LastError     string                `json:"last_error,omitempty"`
	RunCount      int                   `json:"run_count"`
	ScheduledJobs int                   `json:"scheduled_jobs"`
	NextRun       *time.Time            `json:"next_run"`
}

// Scheduler wraps robfig/cron and serialises alert cycles.
type Scheduler struct {
	cron       *cron.Cron
	cycle      Cycle
	jobs       JobMaintenance
	recipients Recipients
	reporter   Reporter
	lock       Locker
	opts       Options
	log        *logger.Logger
	now        func() time.Time

	cycleSpec string
	wg        sync.WaitGroup

	mu         sync.Mutex
	cycleEntry cron.EntryID
	started    bool
	active     bool
	lastRun    time.Time
	lastReport *pipeline.CycleReport
	lastErr    error
	runCount   int
}

// New creates a Scheduler. recipients may be nil when profiles are
// disabled; the report then goes to opts.BroadcastEmail.
func New(
	cycle Cycle,
	jobs JobMaintenance,
	recipients Recipients,
	reporter Reporter,
	lock Locker,
	opts Options,
	log *logger.Logger,
) *Scheduler {
	if opts.IntervalHours < 1 {
		opts.IntervalHours = 1
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	if opts.ExpireAfterDays <= 0 {
		opts.ExpireAfterDays = 30
	}
	log = log.With("component", "scheduler")
	cl := cronLogger{log}
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		cycle:      cycle,
		jobs:       jobs,
		recipients: recipients,
		reporter:   reporter,
		lock:       lock,
		opts:       opts,
		log:        log,
		now:        time.Now,
		cycleSpec:  fmt.Sprintf("@every %dh", opts.IntervalHours),
	}
}

// Start registers the jobs and starts the scheduler. It also runs one cycle
// immediately so alerts go out without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.cycleSpec, func() { s.scheduledCycle(ctx) })
	if err != nil {
		return fmt.Errorf("cron.AddFunc cycle: %w", err)
	}
	s.mu.Lock()
	s.cycleEntry = id
	s.mu.Unlock()
	if s.opts.CleanupSpec != "" {
		if _, err := s.cron.AddFunc(s.opts.CleanupSpec, func() { s.Cleanup(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc cleanup %q: %w", s.opts.CleanupSpec, err)
		}
	}
	if s.opts.ReportSpec != "" {
		if _, err := s.cron.AddFunc(s.opts.ReportSpec, func() { s.WeeklyReport(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc report %q: %w", s.opts.ReportSpec, err)
		}
	}

	s.cron.Start()
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	s.log.Info("cron started", "cycle", s.cycleSpec, "cleanup", s.opts.CleanupSpec, "report", s.opts.ReportSpec)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.scheduledCycle(ctx)
	}()
	return nil
}

// Stop halts the cron and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	s.log.Info("cron stopped")
}

// RunNow runs one cycle synchronously. It returns ErrCycleRunning when a
// cycle is already in progress anywhere.
func (s *Scheduler) RunNow(ctx context.Context) (pipeline.CycleReport, error) {
	return s.runCycle(ctx)
}

func (s *Scheduler) scheduledCycle(ctx context.Context) {
	if _, err := s.runCycle(ctx); err != nil {
		if errors.Is(err, ErrCycleRunning) {
			s.log.Info("cycle skipped, another run holds the lock")
			return
		}
		s.log.Error("scheduled cycle failed", "error", err)
	}
}

func (s *Scheduler) runCycle(ctx context.Context) (pipeline.CycleReport, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return pipeline.CycleReport{}, ErrCycleRunning
	}
	s.active = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	}()

	token, ok, err := s.lock.TryLock(ctx, CycleLockKey, s.opts.LockTTL)
	if err != nil {
		return pipeline.CycleReport{}, err
	}
	if !ok {
		return pipeline.CycleReport{}, ErrCycleRunning
	}
	defer func() {
		// The cycle context may already be cancelled on shutdown.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.lock.Unlock(releaseCtx, CycleLockKey, token); err != nil {
			s.log.Warn("cycle lock release failed", "error", err)
		}
	}()

	rep, err := s.cycle.RunCycle(ctx)

	s.mu.Lock()
	s.lastRun = s.now()
	s.lastReport = &rep
	s.lastErr = err
	if err == nil {
		s.runCount++
	}
	s.mu.Unlock()
	return rep, err
}

// Cleanup deactivates jobs not seen for ExpireAfterDays.
func (s *Scheduler) Cleanup(ctx context.Context) {
	n, err := s.jobs.ExpireStale(ctx, s.opts.ExpireAfterDays)
	if err != nil {
		s.log.Error("cleanup failed", "error", err)
		return
	}
	s.log.Info("cleanup complete", "expired", n, "older_than_days", s.opts.ExpireAfterDays)
}

// WeeklyReport sends job market statistics to every active profile with
// email notifications on, or to the broadcast recipient when profiles are
// disabled.
func (s *Scheduler) WeeklyReport(ctx context.Context) {
	stats, err := s.jobs.Stats(ctx)
	if err != nil {
		s.log.Error("weekly report: stats failed", "error", err)
		return
	}

	var recipients []model.Profile
	if s.recipients == nil {
		recipients = []model.Profile{pipeline.BroadcastProfile(s.opts.BroadcastEmail)}
	} else {
		profiles, err := s.recipients.ListActive(ctx)
		if err != nil {
			s.log.Error("weekly report: list profiles failed", "error", err)
			return
		}
		for _, p := range profiles {
			if p.EmailNotifications {
				recipients = append(recipients, p)
			}
		}
	}

	subject := "Weekly Job Market Report - " + s.now().Format("2006-01-02")
	body := FormatReport(stats)
	sent := 0
	for i := range recipients {
		if s.reporter.SendReport(ctx, &recipients[i], subject, body) {
			sent++
		}
	}
	s.log.Info("weekly report sent", "recipients", len(recipients), "delivered", sent)
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := Status{
		Running:     s.started,
		CycleActive: s.active,
		RunCount:    s.runCount,
		LastReport:  s.lastReport,
	}
	if !s.lastRun.IsZero() {
		t := s.lastRun
		st.LastRun = &t
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	entry := s.cycleEntry
	s.mu.Unlock()

	st.ScheduledJobs = len(s.cron.Entries())
	if next := s.cron.Entry(entry).Next; st.Running && !next.IsZero() {
		st.NextRun = &next
	}
	return st
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct{ log *logger.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
