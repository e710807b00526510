// clustractl runs a clustering analysis over a keyword CSV from the
// command line and writes the strategic brief to disk, without going
// through the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clustra-io/clustra/internal/config"
	"github.com/clustra-io/clustra/internal/domain"
	logpkg "github.com/clustra-io/clustra/internal/logger"
	"github.com/clustra-io/clustra/internal/metrics"
	"github.com/clustra-io/clustra/internal/repository/brief"
	"github.com/clustra-io/clustra/internal/repository/keywords"
	"github.com/clustra-io/clustra/internal/transport/gcnl"
	openaiEmb "github.com/clustra-io/clustra/internal/transport/openai"
	annotateuc "github.com/clustra-io/clustra/internal/usecase/annotate"
	clusteruc "github.com/clustra-io/clustra/internal/usecase/cluster"
	"github.com/clustra-io/clustra/internal/version"
)

func main() {
	input := flag.String("input", "", "keyword CSV to analyze (required)")
	output := flag.String("output", "brief.csv", "output path; .xlsx writes a workbook, anything else CSV")
	mode := flag.String("mode", "discover", `annotation mode: "discover", "populate", or "none"`)
	target := flag.String("target", "", "target category for populate mode")
	tightness := flag.Float64("tightness", 0, "cosine-distance merge cutoff override, (0,1)")
	minVolume := flag.Int64("min-volume", 0, "minimum search volume override")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("clustractl %s (%s)\n", version.Version, version.Commit)
		return
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: clustractl -input keywords.csv [-output brief.csv]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *input, *output, *mode, *target, *tightness, *minVolume, logger); err != nil {
		logger.Fatal("Analysis failed", zap.Error(err))
	}
}

func run(
	ctx context.Context, cfg config.Config,
	input, output, mode, target string,
	tightness float64, minVolume int64,
	logger *zap.Logger,
) error {
	f, err := os.Open(filepath.Clean(input))
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch mode {
	case "none", string(annotateuc.ModeDiscover), string(annotateuc.ModePopulate):
	default:
		return fmt.Errorf(`mode must be "discover", "populate", or "none": %w`, domain.ErrInvalidInput)
	}

	records, err := keywords.Load(f)
	if err != nil {
		return fmt.Errorf("load keywords: %w", err)
	}
	logger.Info("Keywords loaded", zap.String("input", input), zap.Int("count", len(records)))

	metrics.RegisterProviderMetrics()

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		MaxRetries: cfg.Embedding.MaxRetries,
		Logger:     logger,
	})

	opts := clusteruc.Options{
		Tightness:        cfg.Clustering.Tightness,
		MinVolume:        cfg.Clustering.MinVolume,
		BatchSize:        cfg.Embedding.BatchSize,
		PrimaryCount:     cfg.Clustering.PrimaryCount,
		SecondaryCount:   cfg.Clustering.SecondaryCount,
		OverlapTopN:      cfg.Clustering.OverlapTopN,
		OverlapThreshold: cfg.Clustering.OverlapThreshold,
	}
	if tightness > 0 {
		opts.Tightness = tightness
	}
	if minVolume > 0 {
		opts.MinVolume = minVolume
	}

	progress := func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rembedding batches %d/%d", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}

	analysis, err := clusteruc.New(embedder, logger).Run(ctx, records, opts, progress)
	if err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	logger.Info("Clustering completed",
		zap.String("run_id", analysis.RunID),
		zap.Int("clusters", len(analysis.Clusters)),
		zap.Int("cannibalization_pairs", len(analysis.Cannibalization)),
	)

	if mode != "none" {
		if err := annotate(ctx, cfg, analysis, mode, target, logger); err != nil {
			return err
		}
	}

	return writeBrief(output, analysis, logger)
}

func annotate(
	ctx context.Context, cfg config.Config,
	analysis *domain.Analysis, mode, target string,
	logger *zap.Logger,
) error {
	classifier, err := gcnl.NewClassifier(ctx, &gcnl.Config{
		CredentialsFile: cfg.Classifier.CredentialsFile,
		MinWords:        cfg.Classifier.MinWords,
		BreakerFailures: uint32(cfg.Classifier.BreakerFailures),
		BreakerReset:    time.Duration(cfg.Classifier.BreakerResetSec) * time.Second,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("create classifier: %w", err)
	}
	defer func() { _ = classifier.Close() }()

	limiter := rate.NewLimiter(rate.Every(time.Duration(cfg.Classifier.RateLimitMS)*time.Millisecond), 1)

	progress := func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rannotating clusters %d/%d", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}

	err = annotateuc.New(classifier, limiter, logger).Run(ctx, analysis, annotateuc.Options{
		Mode:           annotateuc.Mode(mode),
		TargetCategory: target,
		MaxTopEntities: cfg.Clustering.MaxTopEntities,
	}, progress)
	if err != nil {
		return fmt.Errorf("annotate: %w", err)
	}
	return nil
}

func writeBrief(output string, analysis *domain.Analysis, logger *zap.Logger) error {
	out, err := os.Create(filepath.Clean(output))
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() { _ = out.Close() }()

	if strings.EqualFold(filepath.Ext(output), ".xlsx") {
		err = brief.WriteXLSX(out, analysis)
	} else {
		err = brief.WriteCSV(out, analysis)
	}
	if err != nil {
		return fmt.Errorf("write brief: %w", err)
	}

	logger.Info("Brief written", zap.String("output", output))
	return nil
}
