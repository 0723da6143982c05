package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"

	"github.com/HugeFrog24/media-scorer/config"
	"github.com/HugeFrog24/media-scorer/inference"
	"github.com/HugeFrog24/media-scorer/queue"
	"github.com/HugeFrog24/media-scorer/utils"
	"github.com/HugeFrog24/media-scorer/web"
)

const usage = `Usage: media-scorer [-config FILE] [-debug] <command> [args]

Commands:
  serve                      run the web apps
  analyze -variant V FILE    analyze one file and print the result as JSON
  batch DIR OUT.xml          analyze every media file in DIR, resuming OUT.xml
  worker                     consume analysis jobs from redis
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	)
	slog.SetDefault(logger)

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using system environment variables")
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Only <tmp_dir>/media-scorer is emptied, at startup and at exit
	scratchDir, err := prepareScratchDir(cfg.TmpDir, logger)
	if err != nil {
		log.Fatalf("Failed to create scratch directory: %v", err)
	}
	defer cleanupTmpDir(scratchDir, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := inference.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create inference client: %v", err)
	}

	opts := utils.PipelineOptions{
		TmpDir:          scratchDir,
		PollInterval:    cfg.Poll.Interval,
		MaxPollAttempts: cfg.Poll.MaxAttempts,
		PollTimeout:     cfg.Poll.Timeout,
		Frames:          utils.FFmpegFrameExtractor{Binary: cfg.FFmpegPath},
		Logger:          logger,
	}
	if cfg.DetectLanguage {
		opts.Languages = utils.NewLinguaDetector()
	}
	pipeline, err := utils.NewPipeline(service, opts)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	variants := utils.DefaultVariants(cfg.GenerationConfig())

	command, args := flag.Arg(0), flag.Args()[1:]
	switch command {
	case "serve":
		err = serve(ctx, cfg, pipeline, variants, logger)
	case "analyze":
		err = analyze(ctx, args, pipeline, variants)
	case "batch":
		err = batch(ctx, args, pipeline, variants, logger)
	case "worker":
		err = work(ctx, cfg, pipeline, variants, logger)
	default:
		flag.Usage()
		err = fmt.Errorf("unknown command %q", command)
	}

	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		cleanupTmpDir(scratchDir, logger)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, analyzer utils.Analyzer, variants []utils.Variant, logger *slog.Logger) error {
	server, err := web.NewServer(analyzer, variants, cfg.MaxUploadBytes(), logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("received interrupt signal, shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func analyze(ctx context.Context, args []string, analyzer utils.Analyzer, variants []utils.Variant) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	variantName := fs.String("variant", utils.VariantTags, "tags, score or scenes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("analyze expects exactly one file")
	}
	path := fs.Arg(0)

	variant, err := utils.FindVariant(variants, *variantName)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	asset := utils.MediaAsset{
		Name:     filepath.Base(path),
		MIMEType: utils.MIMETypeForFile(path),
		Data:     data,
	}

	outcome, err := analyzer.Analyze(ctx, asset, variant)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(outcome); err != nil {
		return err
	}
	if outcome.Failed() {
		return errors.New(outcome.Error.Message)
	}
	return nil
}

func batch(ctx context.Context, args []string, analyzer utils.Analyzer, variants []utils.Variant, logger *slog.Logger) error {
	if len(args) != 2 {
		return fmt.Errorf("batch expects a directory and an output XML file")
	}

	results, err := utils.ProcessDirectory(ctx, args[0], args[1], variants, analyzer, logger)
	if err != nil {
		return err
	}
	logger.Info("batch finished", "files", len(results.Results), "output", args[1])
	return nil
}

func work(ctx context.Context, cfg *config.Config, analyzer utils.Analyzer, variants []utils.Variant, logger *slog.Logger) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	manager := queue.NewRedisManager(client, cfg.Redis.InputQueue, cfg.Redis.OutputQueue)
	if err := manager.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	worker := queue.NewWorker(manager, analyzer, variants, cfg.Redis.Concurrency, cfg.Redis.JobTimeout, logger)
	worker.Start(ctx)
	logger.Info("worker shut down gracefully")
	return nil
}

const scratchDirName = "media-scorer"

// prepareScratchDir creates <base>/media-scorer and empties it.
func prepareScratchDir(base string, logger *slog.Logger) (string, error) {
	dir := filepath.Join(base, scratchDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	cleanupTmpDir(dir, logger)
	return dir, nil
}

func cleanupTmpDir(tmpDir string, logger *slog.Logger) {
	files, err := os.ReadDir(tmpDir)
	if err != nil {
		logger.Warn("failed to read tmp directory", "dir", tmpDir, "error", err)
		return
	}

	for _, file := range files {
		if err := os.RemoveAll(filepath.Join(tmpDir, file.Name())); err != nil {
			logger.Warn("failed to remove file", "file", file.Name(), "error", err)
		}
	}
}
