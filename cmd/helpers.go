package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ziadkadry99/epub-reader/internal/config"
	"github.com/ziadkadry99/epub-reader/internal/engine"
	"github.com/ziadkadry99/epub-reader/internal/logbuf"
	"github.com/ziadkadry99/epub-reader/internal/progress"
	"github.com/ziadkadry99/epub-reader/internal/session"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `epub-reader init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newSession builds a session for the given document from the config.
// This is the shared version used by the read, watch, translate and
// serve commands.
func newSession(cfg *config.Config, docID, location string) (*session.Session, error) {
	client, err := engine.NewClient(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.ServerURL, err)
	}

	logs := logbuf.New(cfg.LogBufferSize)
	if verbose {
		logs.OnAppend(func(e logbuf.Entry) {
			log.Printf("[%s] %s: %s", e.Level, e.Category, e.Message)
		})
	}

	return session.New(client, docID, session.Config{
		SectionLimit:         cfg.SectionLimit,
		PollInterval:         time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		ReconnectBaseDelay:   time.Duration(cfg.ReconnectBaseDelayMS) * time.Millisecond,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		TargetLanguage:       cfg.TargetLanguage,
		InitialLocation:      location,
	}, logs), nil
}

// startSession runs the session loop in the background and waits for
// the initial document load before returning. The returned channel
// yields the loop's exit error.
func startSession(ctx context.Context, s *session.Session) (<-chan error, error) {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	ready := make(chan struct{})
	go func() {
		s.Render()
		close(ready)
	}()

	select {
	case err := <-errCh:
		return nil, err
	case <-ready:
		return errCh, nil
	}
}

// watchJob reports translation progress until the job reaches a
// terminal state or the context is cancelled.
func watchJob(ctx context.Context, s *session.Session, errCh <-chan error) error {
	reporter := progress.NewReporter()
	reporter.Start(s.Render().Job.TotalSections)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-ticker.C:
			snap := s.Render()
			reporter.Update(snap.Job)
			if !snap.Job.State.Terminal() {
				continue
			}
			reporter.Finish()
			if snap.Job.State == engine.JobFailed {
				return fmt.Errorf("translation failed: %s", snap.Error)
			}
			fmt.Printf("Translation complete. Download: %s\n", s.DownloadURL())
			return nil
		}
	}
}
