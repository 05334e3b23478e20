// jobalert-service
//
// Scrapes job boards on a schedule, scores and stores postings, and alerts
// each user profile about new jobs that pass its thresholds over email,
// Slack, Discord and Telegram.
//
// Exposes a REST API (profiles, job queries, manual cycles) and a JobQuery
// gRPC service. Publishes EVENT_JOB_DISCOVERED to Redis for each new job.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"jobmate/jobalert-service/internal/config"
	"jobmate/jobalert-service/internal/db"
	"jobmate/jobalert-service/internal/events"
	"jobmate/jobalert-service/internal/grpcserver"
	"jobmate/jobalert-service/internal/httpapi"
	"jobmate/jobalert-service/internal/jobstore"
	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/notify"
	"jobmate/jobalert-service/internal/pipeline"
	"jobmate/jobalert-service/internal/profilestore"
	"jobmate/jobalert-service/internal/scheduler"
	"jobmate/jobalert-service/internal/scraper"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[jobalert-service] Config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[jobalert-service] Logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service stopped with error", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Info("connecting to PostgreSQL")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	log.Info("PostgreSQL connected, schema up to date")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Info("connecting to Redis")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	// ── Stores ───────────────────────────────────────────────────────────────
	jobs := jobstore.New(pool, log)

	// Interfaces stay nil when profiles are disabled.
	var (
		profileSource pipeline.ProfileSource
		recipients    scheduler.Recipients
		httpProfiles  httpapi.Profiles
		grpcProfiles  grpcserver.ProfileReader
	)
	if cfg.EnableUserProfiles {
		profiles := profilestore.New(pool, log).WithDefaults(cfg.ProfileDefaults())
		profileSource, recipients, httpProfiles, grpcProfiles = profiles, profiles, profiles, profiles
		if cfg.EmailRecipient != "" {
			if _, err := profiles.CreateDefault(ctx, cfg.EmailRecipient, ""); err != nil {
				log.Warn("default profile not seeded", "email", cfg.EmailRecipient, "error", err)
			}
		}
	}

	// ── Notifications ────────────────────────────────────────────────────────
	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}

	// ── Pipeline + scheduler ─────────────────────────────────────────────────
	pipe := pipeline.New(
		[]scraper.Scraper{scraper.NewAdzuna(cfg.Adzuna, cfg.Filter.Locations, log)},
		jobs,
		profileSource,
		notifier,
		events.NewRedis(rdb),
		pipeline.Options{
			Criteria:        cfg.Filter,
			UseProfiles:     cfg.EnableUserProfiles,
			BroadcastEmail:  cfg.EmailRecipient,
			ExpireAfterDays: jobstore.ExpireAfterDays,
		},
		log,
	)
	sched := scheduler.New(pipe, jobs, recipients, notifier, scheduler.NewRedisLock(rdb),
		scheduler.Options{
			IntervalHours:   cfg.ScrapeIntervalHours,
			CleanupSpec:     cfg.CleanupCron,
			ReportSpec:      cfg.ReportCron,
			LockTTL:         time.Duration(cfg.CycleLockTTLMinutes) * time.Minute,
			ExpireAfterDays: jobstore.ExpireAfterDays,
			BroadcastEmail:  cfg.EmailRecipient,
		},
		log,
	)

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	httpapi.NewHandler(jobs, httpProfiles, sched, version, log).
		WithProfileDefaults(cfg.ProfileDefaults()).
		RegisterRoutes(mux)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // POST /cycles runs a whole cycle
	}

	// ── gRPC server ──────────────────────────────────────────────────────────
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(log)))
	grpcserver.Register(grpcSrv, grpcserver.NewServer(jobs, grpcProfiles))
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	// ── Run until signalled ──────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP listening", "port", cfg.HTTPPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("gRPC listening", "port", cfg.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown error", "error", err)
		}
		grpcSrv.GracefulStop()
		return nil
	})
	return g.Wait()
}

// newNotifier builds the channel fan-out. With multi-channel off only email
// is used.
func newNotifier(cfg *config.Config, log *logger.Logger) (*notify.MultiChannel, error) {
	sendgrid, err := notify.NewSendGrid(cfg.SendGrid, log)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: %w", err)
	}
	channels := []notify.Channel{notify.NewEmail(sendgrid)}

	if cfg.EnableMultiChannel {
		tg, err := notify.NewTelegram(cfg.Telegram, "")
		if err != nil {
			return nil, err
		}
		channels = append(channels,
			notify.NewSlack(cfg.Slack.URL),
			notify.NewDiscord(cfg.Discord.URL),
			tg.AsChannel(),
		)
	}

	m := notify.NewMultiChannel(log, channels...)
	if len(m.Channels()) == 0 {
		log.Warn("no notification channel configured; alerts will only be stored")
	}
	log.Info("notification channels ready", "channels", m.Channels())
	return m, nil
}
