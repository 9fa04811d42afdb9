package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/tweet-mapper-etl/internal/adapter/kafka"
	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/postfile"
	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/spreadsheet"
	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/twitter"
	"github.com/couchcryptid/tweet-mapper-etl/internal/config"
	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/observability"
	"github.com/couchcryptid/tweet-mapper-etl/internal/pipeline"
)

// runFlags override the matching environment settings when set.
type runFlags struct {
	account  string
	input    string
	output   string
	maxPosts int
}

func (f runFlags) apply(cfg *config.Config) {
	if f.account != "" {
		cfg.TwitterAccount = f.account
	}
	if f.output != "" {
		cfg.OutputFile = f.output
	}
	if f.maxPosts > 0 {
		cfg.MaxPosts = f.maxPosts
	}
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, geocode, and export a timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			flags.apply(cfg)

			logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
			metrics := observability.NewMetrics()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runPipeline(ctx, cfg, flags.input, logger, metrics, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flags.account, "account", "", "timeline account handle (overrides TWITTER_ACCOUNT)")
	cmd.Flags().StringVar(&flags.input, "input", "", "read posts from a JSON-lines file instead of the timeline API")
	cmd.Flags().StringVar(&flags.output, "output", "", "workbook file name (overrides OUTPUT_FILE)")
	cmd.Flags().IntVar(&flags.maxPosts, "max-posts", 0, "maximum posts to fetch (overrides MAX_POSTS)")
	return cmd
}

// runPipeline wires the collaborators for one run, executes it, and prints
// the summary to stdout. Nothing is printed when the run fails.
func runPipeline(ctx context.Context, cfg *config.Config, input string, logger *slog.Logger, metrics *observability.Metrics, stdout io.Writer) error {
	table, err := loadTable(cfg.AbbreviationsFile)
	if err != nil {
		return err
	}

	geocoder, err := buildGeocoder(cfg, metrics, logger)
	if err != nil {
		return err
	}

	var source pipeline.PostSource
	if input != "" {
		source = postfile.NewSource(input, cfg.MaxPosts, metrics, logger)
	} else {
		if err := cfg.ValidateTimeline(); err != nil {
			return err
		}
		source = twitter.NewClient(cfg.TwitterBearerToken, cfg.TwitterBaseURL, cfg.TwitterAccount,
			cfg.MaxPosts, cfg.GeocodeTimeout, metrics, logger)
	}

	exporter := spreadsheet.NewExporter(cfg.OutputDir, cfg.OutputFile, cfg.H3Resolution, logger)
	loaders := []pipeline.RecordLoader{exporter}

	if cfg.SinkEnabled() {
		writer := kafkaadapter.NewWriter(cfg, metrics, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
	}

	opts := pipeline.Options{Concurrency: cfg.Concurrency}
	if cfg.CheckpointPath != "" {
		store, err := sqlite.Open(ctx, cfg.CheckpointPath)
		if err != nil {
			return domain.NewCollaboratorError(domain.CollaboratorCheckpoint, err)
		}
		defer store.Close()
		opts.Checkpoint = store
	}

	bar := newProgressBar()
	if bar != nil {
		opts.OnRecord = func(domain.TweetRecord) { _ = bar.Add(1) }
	}

	p := pipeline.New(source, pipeline.NewTransformer(domain.NewExtractor(table), geocoder, cfg.GeocodeLocale, logger),
		loaders, logger, metrics, opts)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	summary, err := p.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		var ce *domain.CollaboratorError
		if errors.As(err, &ce) {
			logger.Error("pipeline failed", "collaborator", ce.Collaborator, "error", err)
		} else {
			logger.Error("pipeline failed", "error", err)
		}
		return err
	}

	fmt.Fprintln(stdout, summary.String())
	fmt.Fprintf(stdout, "Saved Excel file to %s\n", exporter.Path())
	return nil
}

// newProgressBar returns an indeterminate progress bar on an interactive
// stderr, nil otherwise.
func newProgressBar() *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Mapping posts"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
