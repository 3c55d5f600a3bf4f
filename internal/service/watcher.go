package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/ardent-labs/sleuth/internal/model"
)

// ScanFunc produces one rendered export
type ScanFunc func(ctx context.Context) ([]byte, error)

type Watcher struct {
	scan      ScanFunc
	uploaders []model.Uploader
	oneshot   bool
	scheduler gocron.Scheduler
	start     chan struct{}
}

// NewWatcher returns a watcher for the service configuration. Timer mode
// requires a valid service.schedule; manual mode scans exactly once.
func NewWatcher(ctx context.Context, cfg model.Service, uploaders []model.Uploader, scan ScanFunc) (*Watcher, error) {
	w := &Watcher{
		scan:      scan,
		uploaders: uploaders,
		oneshot:   cfg.Mode != model.ServiceModeTimer,
		start:     make(chan struct{}, 1),
	}
	if !w.oneshot {
		scheduler, err := newScheduler(ctx, cfg.Schedule, w.Start)
		if err != nil {
			return nil, fmt.Errorf("timer mode failed: %w", err)
		}
		w.scheduler = scheduler
	}
	return w, nil
}

// WithUploaders replaces the uploaders of an initialized Watcher.
// This method exists for a unit testing only.
func (w *Watcher) WithUploaders(ctx context.Context, uploaders ...model.Uploader) *Watcher {
	w.closeUploaders(ctx)
	w.uploaders = uploaders
	return w
}

// Start asks for a new scan and returns immediately. A request made while
// another one is pending is dropped.
func (w *Watcher) Start() {
	select {
	case w.start <- struct{}{}:
	default:
	}
}

// Do runs the watcher event loop until ctx is cancelled. In oneshot mode a
// scan is triggered on entry and its error (scan or upload) is returned.
func (w *Watcher) Do(ctx context.Context) error {
	slog.DebugContext(ctx, "starting a watcher", "oneshot", w.oneshot)

	if w.scheduler != nil {
		w.scheduler.Start()
		defer func() {
			err := w.scheduler.Shutdown()
			if err != nil {
				slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
			}
		}()
	}
	defer w.closeUploaders(ctx)

	if w.oneshot {
		w.Start()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.start:
			err := w.once(ctx)
			if w.oneshot {
				return err
			}
			if err != nil {
				slog.ErrorContext(ctx, "scan failed", "error", err)
			}
		}
	}
}

func (w *Watcher) once(ctx context.Context) error {
	raw, err := w.scan(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	slog.DebugContext(ctx, "scan succeeded: uploading", "bytes", len(raw))
	return w.upload(ctx, raw)
}

func (w *Watcher) upload(ctx context.Context, raw []byte) error {
	var errs []error
	for _, u := range w.uploaders {
		if err := u.Upload(ctx, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *Watcher) closeUploaders(ctx context.Context) {
	for _, uploader := range w.uploaders {
		if closer, ok := uploader.(model.UploadCloser); ok {
			err := closer.Close()
			if err != nil {
				slog.ErrorContext(ctx, "closing uploader have failed", "error", err)
			}
		}
	}
}

func newScheduler(ctx context.Context, schedule string, startFunc func()) (gocron.Scheduler, error) {
	if schedule == "" {
		return nil, errors.New("service.schedule is empty")
	}
	interval, err := model.ParseCron(schedule)
	if err != nil {
		return nil, fmt.Errorf("parsing service.schedule: %w", err)
	}
	slog.DebugContext(ctx, "successfully parsed", "cron", schedule, "interval", interval.String())

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.CronJob(schedule, false),
		gocron.NewTask(startFunc),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return s, nil
}
