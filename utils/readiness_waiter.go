package utils

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultMaxPollAttempts = 30
)

// ReadinessWaiter polls uploaded files until the service reports them ACTIVE.
// Each file gets at most maxAttempts state checks and, if timeout is set, at
// most timeout of wall-clock time.
type ReadinessWaiter struct {
	service     InferenceService
	interval    time.Duration
	maxAttempts int
	timeout     time.Duration
	logger      *slog.Logger
}

func NewReadinessWaiter(service InferenceService, interval time.Duration, maxAttempts int, timeout time.Duration, logger *slog.Logger) *ReadinessWaiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPollAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadinessWaiter{
		service:     service,
		interval:    interval,
		maxAttempts: maxAttempts,
		timeout:     timeout,
		logger:      logger,
	}
}

func (w *ReadinessWaiter) WaitForActive(ctx context.Context, files []*RemoteFile) error {
	w.logger.Info("waiting for file processing", "files", len(files))
	for _, file := range files {
		if err := w.waitForFile(ctx, file.Name); err != nil {
			return err
		}
	}
	w.logger.Info("all files ready")
	return nil
}

func (w *ReadinessWaiter) waitForFile(ctx context.Context, name string) error {
	start := time.Now()
	pollCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		file, err := w.service.GetFile(pollCtx, name)
		if err != nil {
			if ctx.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
				return &TimeoutError{File: name, Attempts: attempt, Elapsed: time.Since(start)}
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &ProcessingError{File: name, Err: err}
		}

		switch file.State {
		case FileStateActive:
			return nil
		case FileStateProcessing:
		default:
			return &ProcessingError{File: name, State: file.State}
		}

		if attempt >= w.maxAttempts {
			return &TimeoutError{File: name, Attempts: attempt, Elapsed: time.Since(start)}
		}
		w.logger.Debug("file still processing", "file", name, "attempt", attempt)

		timer := time.NewTimer(w.interval)
		select {
		case <-pollCtx.Done():
			timer.Stop()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TimeoutError{File: name, Attempts: attempt, Elapsed: time.Since(start)}
		case <-timer.C:
		}
	}
}
