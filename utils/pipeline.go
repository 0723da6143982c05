package utils

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Pipeline runs upload, readiness wait, inference and parsing for one media
// asset. It holds no per-request state and may be shared between goroutines.
type Pipeline struct {
	uploader  *MediaUploader
	waiter    *ReadinessWaiter
	invoker   *InferenceInvoker
	parser    *ResponseParser
	frames    FrameExtractor
	languages LanguageDetector
	logger    *slog.Logger
}

type PipelineOptions struct {
	TmpDir          string
	PollInterval    time.Duration
	MaxPollAttempts int
	PollTimeout     time.Duration

	// Optional enrichments; nil disables them.
	Frames    FrameExtractor
	Languages LanguageDetector

	Logger *slog.Logger
}

func NewPipeline(service InferenceService, opts PipelineOptions) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parser, err := NewResponseParser(logger)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		uploader:  NewMediaUploader(service, opts.TmpDir, logger),
		waiter:    NewReadinessWaiter(service, opts.PollInterval, opts.MaxPollAttempts, opts.PollTimeout, logger),
		invoker:   NewInferenceInvoker(service, logger),
		parser:    parser,
		frames:    opts.Frames,
		languages: opts.Languages,
		logger:    logger,
	}, nil
}

// Analyze returns an Outcome for every reply the model produced, including
// unparsable ones. An error means the request failed before a reply existed.
func (p *Pipeline) Analyze(ctx context.Context, asset MediaAsset, variant Variant) (*Outcome, error) {
	logger := p.logger.With("request_id", uuid.NewString(), "variant", variant.Name)
	start := time.Now()

	if !variant.Accepts(asset.MIMEType) {
		return nil, &UploadError{
			MIMEType: asset.MIMEType,
			Err:      fmt.Errorf("%s expects %s media", variant.Name, variant.Media),
		}
	}

	path, cleanup, err := p.uploader.Stage(asset)
	if err != nil {
		return nil, &UploadError{MIMEType: asset.MIMEType, Err: err}
	}
	defer cleanup()

	file, err := p.uploader.Submit(ctx, path, asset.MIMEType)
	if err != nil {
		logger.Error("upload failed", "error", err)
		return nil, err
	}
	files := []*RemoteFile{file}

	if variant.AwaitReady {
		if err := p.waiter.WaitForActive(ctx, files); err != nil {
			logger.Error("file not ready", "file", file.Name, "error", err)
			return nil, err
		}
	}

	reply, err := p.invoker.Invoke(ctx, files, variant)
	if err != nil {
		logger.Error("inference failed", "error", err)
		return nil, err
	}

	outcome := p.parser.Parse(reply, variant.Shape)
	outcome.Variant = variant.Name
	if !outcome.Failed() {
		p.enrich(ctx, logger, outcome, path)
	}

	logger.Info("analysis finished", "failed", outcome.Failed(), "elapsed", time.Since(start).Round(time.Millisecond))
	return outcome, nil
}

func (p *Pipeline) enrich(ctx context.Context, logger *slog.Logger, outcome *Outcome, stagedPath string) {
	if p.languages != nil {
		if language, ok := p.languages.DetectLanguage(outcomeText(outcome)); ok {
			outcome.Language = language
		}
	}

	if p.frames != nil && outcome.Scenes != nil && outcome.Scenes.BestScene != "" {
		still, err := p.frames.ExtractFrame(ctx, stagedPath, outcome.Scenes.BestScene)
		if err != nil {
			logger.Warn("could not extract best scene still", "timestamp", outcome.Scenes.BestScene, "error", err)
			return
		}
		outcome.BestSceneStill = still
	}
}
