package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"image-verify/internal"
	"image-verify/internal/api"
	"image-verify/internal/logging"
	"image-verify/internal/recorder"
	"image-verify/internal/s3"
	"image-verify/internal/verify"
)

type Service struct {
	cfg internal.Config
	log *logging.Logger

	verifier   *verify.Verifier
	dispatcher *recorder.Dispatcher
	stats      *recorder.Stats
	sqlite     *recorder.SQLite
	alerts     alerter
	cron       *cron.Cron
	http       *http.Server
}

func (s *Service) Verifier() *verify.Verifier { return s.verifier }

func (s *Service) Stats() *recorder.Stats { return s.stats }

// Handler exposes the HTTP router, mainly for tests.
func (s *Service) Handler() http.Handler { return s.http.Handler }

// Run serves HTTP and the report cron until ctx is cancelled, then drains in-flight
// requests and recorder calls.
func (s *Service) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	s.cron.Start()
	go s.runMemoryWatcher(ctx, stop)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("http: listening on %s", s.cfg.ListenAddr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("http shutdown: %v", err)
	}

	ctxStop := s.cron.Stop()
	select {
	case <-ctxStop.Done():
	case <-time.After(10 * time.Second):
		s.log.Errorf("cron stop timeout")
	}

	s.dispatcher.Close()
	s.report()
	if s.sqlite != nil {
		if err := s.sqlite.Close(); err != nil {
			s.log.Errorf("sqlite close: %v", err)
		}
	}
	return runErr
}

// Build assembles the reference source, recorders, verifier, router and cron jobs from cfg.
// Optional sinks are enabled only when their settings are present.
func Build(ctx context.Context, cfg internal.Config, log *logging.Logger) (*Service, error) {
	var s3c s3.Client
	if cfg.S3Enabled() {
		c, err := s3.New(cfg)
		if err != nil {
			return nil, err
		}
		s3c = c
	}

	stats := recorder.NewStats(time.Now())
	sinks := recorder.Multi{stats}
	s := &Service{cfg: cfg, log: log, stats: stats}

	if s3c != nil {
		sinks = append(sinks, recorder.NewS3(s3c, cfg.VerificationsPrefix))
		log.Infof("recorder: s3 enabled (prefix %s)", cfg.VerificationsPrefix)
	}
	if cfg.VerificationsDB != "" {
		db, err := recorder.OpenSQLite(cfg.VerificationsDB)
		if err != nil {
			return nil, err
		}
		s.sqlite = db
		sinks = append(sinks, db)
		log.Infof("recorder: sqlite enabled (%s)", cfg.VerificationsDB)
	}
	if cfg.TelegramEnabled() {
		tg, err := recorder.NewTelegram(cfg.TelegramToken, cfg.NotifyChatID)
		if err != nil {
			// notifications are optional; keep serving without them
			log.Errorf("recorder: telegram disabled: %v", err)
		} else {
			sinks = append(sinks, tg)
			s.alerts = tg
			log.Infof("recorder: telegram enabled (chat %d)", cfg.NotifyChatID)
		}
	}
	if len(sinks) == 1 {
		log.Infof("recorder: no external sink configured - skipping verification logging")
	}

	ref := verify.NewReferenceSource(cfg, s3c)
	if _, err := ref.Load(ctx); err != nil {
		log.Errorf("reference image not available at startup (%s): %v", ref.Location(), err)
	} else {
		log.Infof("reference image: %s", ref.Location())
	}

	s.dispatcher = recorder.NewDispatcher(sinks, log, cfg.RecorderTimeout, cfg.RecorderWorkers, cfg.RecorderQueue)
	s.verifier = verify.NewVerifier(cfg, ref, s.dispatcher, log)
	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(s.verifier, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.ReportSchedule, s.report); err != nil {
		s.dispatcher.Close()
		if s.sqlite != nil {
			_ = s.sqlite.Close()
		}
		return nil, fmt.Errorf("report schedule %q: %w", cfg.ReportSchedule, err)
	}
	s.cron = c

	return s, nil
}
