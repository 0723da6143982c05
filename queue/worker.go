// Package queue feeds analysis jobs from a Redis list through the pipeline.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/HugeFrog24/media-scorer/utils"
)

type Worker struct {
	Queue      Queue
	Analyzer   utils.Analyzer
	Variants   []utils.Variant
	JobTimeout time.Duration
	Semaphore  chan struct{}
	Logger     *slog.Logger
	Wg         sync.WaitGroup

	// retryDelay is how long to back off after a receive error.
	retryDelay time.Duration
}

func NewWorker(queue Queue, analyzer utils.Analyzer, variants []utils.Variant, maxConcurrency int, jobTimeout time.Duration, logger *slog.Logger) *Worker {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		Queue:      queue,
		Analyzer:   analyzer,
		Variants:   variants,
		JobTimeout: jobTimeout,
		Semaphore:  make(chan struct{}, maxConcurrency),
		Logger:     logger,
		retryDelay: time.Second,
	}
}

// Start consumes jobs until ctx is done, then waits for in-flight jobs.
func (w *Worker) Start(ctx context.Context) {
	w.Logger.Info("worker started, waiting for messages", "concurrency", cap(w.Semaphore))
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("worker stopping")
			w.Wg.Wait()
			return
		default:
		}

		messages, err := w.Queue.ReceiveMessages(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.Logger.Error("error receiving messages", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(w.retryDelay):
			}
			continue
		}

		w.dispatch(ctx, messages)
	}
}

// dispatch starts a goroutine per message as semaphore slots free up. When
// ctx ends first, the messages not yet started are requeued.
func (w *Worker) dispatch(ctx context.Context, messages []Message) {
	for i, msg := range messages {
		select {
		case w.Semaphore <- struct{}{}:
		case <-ctx.Done():
			w.requeue(messages[i:])
			return
		}
		w.Wg.Add(1)
		go func(msg Message) {
			defer w.Wg.Done()
			defer func() { <-w.Semaphore }()
			w.handleMessage(ctx, msg)
		}(msg)
	}
}

// requeue puts messages that were received but never started back at the
// head of the input queue, keeping their order.
func (w *Worker) requeue(messages []Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(messages) - 1; i >= 0; i-- {
		if err := w.Queue.Requeue(ctx, messages[i]); err != nil {
			w.Logger.Error("failed to requeue message on shutdown, job is lost", "error", err)
			continue
		}
		w.Logger.Warn("requeued message on shutdown")
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg Message) {
	var job Job
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		w.Logger.Error("error unmarshaling job", "error", err)
		return
	}

	logger := w.Logger.With("job_id", job.JobID, "variant", job.Variant)
	logger.Info("processing job")

	result := JobResult{
		JobID:    job.JobID,
		Variant:  job.Variant,
		Metadata: job.Metadata,
	}
	outcome, err := w.process(ctx, job)
	if err != nil {
		logger.Error("error processing job", "error", err)
		result.Error = err.Error()
	} else {
		result.Result = outcome
	}

	// Results are still delivered when shutdown cancelled the job.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := w.Queue.SendResult(sendCtx, result); err != nil {
		logger.Error("error sending result", "error", err)
		return
	}
	logger.Info("job completed", "failed", result.Error != "" || (outcome != nil && outcome.Failed()))
}

func (w *Worker) process(ctx context.Context, job Job) (*utils.Outcome, error) {
	variant, err := utils.FindVariant(w.Variants, job.Variant)
	if err != nil {
		return nil, err
	}
	if len(job.Media) == 0 {
		return nil, fmt.Errorf("job %s has no media", job.JobID)
	}

	mimeType := job.MIMEType
	if mimeType == "" {
		mimeType = utils.MIMETypeForFile(job.FileName)
	}

	if w.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.JobTimeout)
		defer cancel()
	}

	return w.Analyzer.Analyze(ctx, utils.MediaAsset{
		Name:     job.FileName,
		MIMEType: mimeType,
		Data:     job.Media,
	}, variant)
}
