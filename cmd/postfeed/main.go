package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/postfeed/pkg/client"
	"github.com/Sternrassler/postfeed/pkg/feed"
	"github.com/Sternrassler/postfeed/pkg/logging"
	"github.com/Sternrassler/postfeed/pkg/metrics"
	"github.com/Sternrassler/postfeed/pkg/pagination"
	"github.com/Sternrassler/postfeed/pkg/store"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// A missing .env is fine; the environment may be set by the scheduler.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	cfg, envErr := configFromEnv()

	rootCmd := &cobra.Command{
		Use:           "postfeed",
		Short:         "Render every post of a blog API as RSS items",
		Long:          "postfeed walks GET {base-url}/api/posts page by page until an empty page and prints one RSS <item> per post.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logging.Setup(logging.Config{
				Level:  level,
				Pretty: cfg.LogPretty,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			if err := cfg.validate(); err != nil {
				return err
			}

			err := run(cmd.Context(), cfg, stdout)

			if cfg.MetricsFile != "" {
				if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
					log.Warn().Err(werr).Str("path", cfg.MetricsFile).Msg("Failed to write metrics")
				}
			}
			return err
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "blog API base url (env BASE_URL)")
	flags.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "posts requested per page (env PAGE_SIZE)")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout, 0 disables (env HTTP_TIMEOUT)")
	flags.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header (env USER_AGENT)")
	flags.BoolVar(&cfg.Escape, "escape", false, "XML-escape post fields")
	flags.StringVar(&cfg.HeaderFile, "header", "", "file written before the items")
	flags.StringVar(&cfg.FooterFile, "footer", "", "file written after the items")
	flags.StringVarP(&cfg.OutputFile, "output", "o", "", "write the feed to a file instead of stdout")
	flags.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "publish the feed to this Redis (env REDIS_URL)")
	flags.StringVar(&cfg.RedisPrefix, "redis-prefix", cfg.RedisPrefix, "Redis key prefix (env REDIS_PREFIX)")
	flags.DurationVar(&cfg.FeedTTL, "feed-ttl", cfg.FeedTTL, "expiry of the published keys, 0 keeps them (env FEED_TTL)")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "write Prometheus metrics to this textfile (env METRICS_FILE)")

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn, error or disabled (env LOG_LEVEL)")
	persistent.BoolVar(&cfg.LogPretty, "log-pretty", cfg.LogPretty, "human-readable logs (env LOG_PRETTY)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "postfeed %s (commit: %s)\n", version, commit)
		},
	})

	return rootCmd
}

// reportError logs a fatal error. When the log level filters errors out the
// message still goes to w, so a failing run is never silent.
func reportError(w io.Writer, err error) {
	if zerolog.GlobalLevel() > zerolog.ErrorLevel {
		fmt.Fprintf(w, "postfeed: %v\n", err)
		return
	}
	log.Error().Err(err).Msg("postfeed failed")
}

// run performs one collection run and writes the feed.
func run(ctx context.Context, cfg config, stdout io.Writer) error {
	logger := logging.NewLogger("postfeed")

	// Read auxiliary files first so a typo fails before any request is made.
	header, err := readOptionalFile(cfg.HeaderFile)
	if err != nil {
		return err
	}
	footer, err := readOptionalFile(cfg.FooterFile)
	if err != nil {
		return err
	}

	httpClient, err := client.New(client.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("create http client: %w", err)
	}
	defer httpClient.Close()

	collector, err := pagination.NewCollector(httpClient, pagination.Config{
		BaseURL:  cfg.BaseURL,
		PageSize: cfg.PageSize,
	})
	if err != nil {
		return fmt.Errorf("create collector: %w", err)
	}

	startedAt := time.Now()
	posts, err := collector.CollectAll(ctx)
	if err != nil {
		return fmt.Errorf("collect posts: %w", err)
	}
	finishedAt := time.Now()

	items := feed.Render(cfg.BaseURL, posts, feed.Options{Escape: cfg.Escape})
	out := feed.Assemble(header, items, footer)

	if err := writeOutput(cfg.OutputFile, stdout, out); err != nil {
		return err
	}

	logger.Info().
		Int("posts", len(posts)).
		Int("bytes", len(out)).
		Str("output", outputName(cfg.OutputFile)).
		Msg("Feed written")

	if cfg.RedisURL == "" {
		return nil
	}

	opts, err := cfg.redisOptions()
	if err != nil {
		return err
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	publisher := store.NewPublisher(redisClient, cfg.RedisPrefix)
	err = publisher.Publish(ctx, store.Run{
		Summary: store.RunSummary{
			BaseURL:    cfg.BaseURL,
			Posts:      len(posts),
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
		},
		Feed: out,
		TTL:  cfg.FeedTTL,
	})
	if err != nil {
		return fmt.Errorf("publish feed: %w", err)
	}

	logger.Info().
		Str("key", publisher.Keys().Feed).
		Dur("ttl", cfg.FeedTTL).
		Msg("Feed published")

	return nil
}

func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func writeOutput(path string, stdout io.Writer, data string) error {
	if path == "" {
		if _, err := io.WriteString(stdout, data); err != nil {
			return fmt.Errorf("write feed: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	return nil
}

func outputName(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
