// Package pipeline runs one alert cycle: collect postings from every
// scraper, filter and score them, store them, and notify each active
// profile about the jobs that are new and pass its gate.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"jobmate/jobalert-service/internal/events"
	"jobmate/jobalert-service/internal/gate"
	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/model"
	"jobmate/jobalert-service/internal/prefs"
	"jobmate/jobalert-service/internal/scraper"
)

// JobStore is the part of jobstore.Store the cycle writes to. Save is
// Upsert returning the stored row.
type JobStore interface {
	Save(ctx context.Context, raw model.RawJob) (model.Job, model.UpsertOutcome, error)
	SetMatchScore(ctx context.Context, url string, score float64) error
	ExpireStale(ctx context.Context, days int) (int64, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// ProfileSource lists the profiles that receive alerts.
type ProfileSource interface {
	ListActive(ctx context.Context) ([]model.Profile, error)
}

// Notifier delivers one batch of jobs to one profile.
type Notifier interface {
	Notify(ctx context.Context, p *model.Profile, jobs []model.Job) bool
}

// Options tune a Pipeline.
type Options struct {
	// Criteria are the static filter defaults from configuration.
	Criteria model.Criteria
	// UseProfiles gates each new job per active profile. When false every
	// new job goes to a single broadcast recipient without gating.
	UseProfiles bool
	// BroadcastEmail addresses the broadcast recipient.
	BroadcastEmail string
	// ExpireAfterDays deactivates jobs not seen for this long.
	ExpireAfterDays int
}

// CycleReport counts what one cycle did.
type CycleReport struct {
	ID            string        `json:"id"`
	Scraped       int           `json:"scraped"`
	ScraperErrors int           `json:"scraper_errors"`
	Filtered      int           `json:"filtered"`
	Inserted      int           `json:"inserted"`
	Refreshed     int           `json:"refreshed"`
	Unchanged     int           `json:"unchanged"`
	Failed        int           `json:"failed"`
	Notified      int           `json:"notified"`
	Expired       int64         `json:"expired"`
	Duration      time.Duration `json:"duration"`
}

// Pipeline wires the collaborators of a cycle. Build it with New.
type Pipeline struct {
	scrapers []scraper.Scraper
	jobs     JobStore
	profiles ProfileSource
	notifier Notifier
	events   events.Publisher
	opts     Options
	log      *logger.Logger
	now      func() time.Time
}

// New constructs a Pipeline. profiles may be nil when opts.UseProfiles is
// false; a nil publisher discards events.
func New(
	scrapers []scraper.Scraper,
	jobs JobStore,
	profiles ProfileSource,
	notifier Notifier,
	publisher events.Publisher,
	opts Options,
	log *logger.Logger,
) *Pipeline {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if opts.ExpireAfterDays <= 0 {
		opts.ExpireAfterDays = 30
	}
	return &Pipeline{
		scrapers: scrapers,
		jobs:     jobs,
		profiles: profiles,
		notifier: notifier,
		events:   publisher,
		opts:     opts,
		log:      log.With("component", "pipeline"),
		now:      time.Now,
	}
}

// RunCycle executes one cycle. Scraper, notifier and publisher failures
// and failed upserts are logged and skipped. A failure to list profiles,
// expire jobs or a cancelled context ends the cycle with an error; the
// report then holds what was done so far. Jobs inserted before a
// cancellation are still notified.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleReport, error) {
	start := p.now()
	rep := CycleReport{ID: uuid.NewString()}
	log := p.log.With("cycle_id", rep.ID)
	log.Info("cycle started", "scrapers", len(p.scrapers))

	err := p.run(ctx, log, &rep)
	rep.Duration = p.now().Sub(start)
	if err != nil {
		log.Error("cycle aborted", "error", err, "duration", rep.Duration)
		return rep, err
	}
	log.Info("cycle complete",
		"scraped", rep.Scraped,
		"filtered", rep.Filtered,
		"inserted", rep.Inserted,
		"refreshed", rep.Refreshed,
		"unchanged", rep.Unchanged,
		"failed", rep.Failed,
		"notified", rep.Notified,
		"expired", rep.Expired,
		"duration", rep.Duration,
	)
	return rep, nil
}

func (p *Pipeline) run(ctx context.Context, log *logger.Logger, rep *CycleReport) error {
	// ── 1. Collect ─────────────────────────────────────────
	raw := p.collect(ctx, log, rep)
	if err := ctx.Err(); err != nil {
		return err
	}

	// ── 2. Resolve criteria ────────────────────────────────
	var profiles []model.Profile
	criteria := p.opts.Criteria
	if p.opts.UseProfiles {
		var err error
		profiles, err = p.profiles.ListActive(ctx)
		if err != nil {
			return fmt.Errorf("list active profiles: %w", err)
		}
		criteria = prefs.AggregateDefaults(profiles, p.opts.Criteria)
	}

	// ── 3-4. Filter and score ──────────────────────────────
	candidates := make([]model.RawJob, 0, len(raw))
	for _, r := range raw {
		if !passesFilter(r, criteria) {
			continue
		}
		candidates = append(candidates, score(r, criteria))
	}
	rep.Filtered = len(candidates)
	log.Info("jobs filtered", "scraped", rep.Scraped, "kept", rep.Filtered)

	// ── 5. Store ───────────────────────────────────────────
	var fresh []model.Job
	for _, r := range candidates {
		if ctx.Err() != nil {
			break
		}
		job, outcome, err := p.jobs.Save(ctx, r)
		switch outcome {
		case model.OutcomeInserted:
			rep.Inserted++
			fresh = append(fresh, job)
		case model.OutcomeRefreshed:
			rep.Refreshed++
		case model.OutcomeUnchanged:
			rep.Unchanged++
		default:
			rep.Failed++
			log.Warn("job not stored", "url", r.URL, "error", err)
		}
	}

	// Stored jobs are never new again, so they are delivered and published
	// even once ctx is cancelled.
	deliver := context.WithoutCancel(ctx)

	// ── 6. Notify ──────────────────────────────────────────
	if len(fresh) > 0 {
		if p.opts.UseProfiles {
			p.notifyProfiles(deliver, log, profiles, fresh, rep)
		} else {
			p.notifyBroadcast(deliver, log, fresh, rep)
		}
	} else {
		log.Info("no new jobs this cycle")
	}

	// ── 7. Publish ─────────────────────────────────────────
	for _, j := range fresh {
		if err := p.events.PublishJobDiscovered(deliver, j); err != nil {
			log.Warn("publish job discovered failed", "url", j.URL, "error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if stats, err := p.jobs.Stats(ctx); err != nil {
		log.Warn("job stats unavailable", "error", err)
	} else {
		log.Info("job statistics", "active", stats.TotalActive, "recent", stats.RecentCount, "by_source", stats.BySource)
	}

	// ── 8. Expire ──────────────────────────────────────────
	expired, err := p.jobs.ExpireStale(ctx, p.opts.ExpireAfterDays)
	if err != nil {
		return fmt.Errorf("expire stale jobs: %w", err)
	}
	rep.Expired = expired
	return nil
}

// collect runs the scrapers one after another. A scraper that errors or
// panics is logged and skipped.
func (p *Pipeline) collect(ctx context.Context, log *logger.Logger, rep *CycleReport) []model.RawJob {
	var all []model.RawJob
	for _, s := range p.scrapers {
		if ctx.Err() != nil {
			break
		}
		jobs, err := safeScrape(ctx, s)
		if err != nil {
			rep.ScraperErrors++
			log.Error("scraper failed", "scraper", s.Name(), "error", err)
			continue
		}
		log.Info("scraper finished", "scraper", s.Name(), "jobs", len(jobs))
		all = append(all, jobs...)
	}
	rep.Scraped = len(all)
	return all
}

func safeScrape(ctx context.Context, s scraper.Scraper) (jobs []model.RawJob, err error) {
	defer func() {
		if r := recover(); r != nil {
			jobs, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Scrape(ctx)
}

func (p *Pipeline) notifyProfiles(ctx context.Context, log *logger.Logger, profiles []model.Profile, fresh []model.Job, rep *CycleReport) {
	if len(profiles) == 0 {
		log.Info("no active profiles to notify", "new_jobs", len(fresh))
		return
	}
	for i := range profiles {
		prof := &profiles[i]
		batch := gate.FilterForProfile(prof, fresh)
		log.Debug("profile gated", "email", prof.Email, "candidates", len(fresh), "accepted", len(batch))
		if len(batch) == 0 {
			continue
		}
		for _, j := range batch {
			if err := p.jobs.SetMatchScore(ctx, j.URL, j.MatchScore); err != nil {
				log.Warn("persist match score failed", "url", j.URL, "error", err)
			}
		}
		if p.notifier.Notify(ctx, prof, batch) {
			rep.Notified++
			log.Info("profile notified", "email", prof.Email, "jobs", len(batch))
		} else {
			log.Error("profile notification failed", "email", prof.Email, "jobs", len(batch))
		}
	}
}

func (p *Pipeline) notifyBroadcast(ctx context.Context, log *logger.Logger, fresh []model.Job, rep *CycleReport) {
	prof := BroadcastProfile(p.opts.BroadcastEmail)
	batch := append([]model.Job(nil), fresh...)
	sort.SliceStable(batch, func(a, b int) bool { return batch[a].MatchScore > batch[b].MatchScore })
	if p.notifier.Notify(ctx, &prof, batch) {
		rep.Notified++
		log.Info("broadcast sent", "jobs", len(batch))
	} else {
		log.Error("broadcast failed", "jobs", len(batch))
	}
}

// BroadcastProfile is the recipient used when user profiles are disabled:
// every channel on, no thresholds.
func BroadcastProfile(email string) model.Profile {
	p := model.NewProfile(email, "Job Alerts")
	p.SlackNotifications = true
	p.DiscordNotifications = true
	p.MinJobScore = 0
	p.MinMatchScore = 0
	return p
}
