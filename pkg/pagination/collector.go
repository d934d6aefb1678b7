package pagination

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/postfeed/pkg/client"
	"github.com/Sternrassler/postfeed/pkg/post"
	"github.com/Sternrassler/postfeed/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for collection runs.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postfeed_pages_fetched_total",
		Help: "Total listing pages fetched successfully",
	})

	postsCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postfeed_posts_collected_total",
		Help: "Total posts collected across all pages",
	})

	collectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postfeed_collect_failures_total",
		Help: "Total aborted collection runs by reason",
	}, []string{"reason"})
)

const (
	// DefaultPageSize is the limit sent with every page request.
	DefaultPageSize = 12

	// PageDelay is the pause before every page request after the first.
	PageDelay = 1 * time.Second

	postsPath = "/api/posts"
)

// Executor sends a single HTTP request. *client.Client implements it.
type Executor interface {
	Execute(ctx context.Context, r client.Request) (*client.Response, error)
}

// Config holds collector configuration.
type Config struct {
	// BaseURL of the blog API, e.g. "https://blog.example.com".
	BaseURL string

	// PageSize is sent as the limit query parameter.
	PageSize int
}

// DefaultConfig returns the configuration used by the feed job.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:  baseURL,
		PageSize: DefaultPageSize,
	}
}

// Collector fetches every post from a paged listing.
type Collector struct {
	exec   Executor
	config Config
	logger zerolog.Logger

	// sleep waits between pages; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCollector creates a collector.
func NewCollector(exec Executor, cfg Config) (*Collector, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageSize < 0 {
		return nil, fmt.Errorf("page size must be > 0 (got %d)", cfg.PageSize)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Collector{
		exec:   exec,
		config: cfg,
		logger: log.With().Str("component", "collector").Logger(),
		sleep:  ratelimit.Sleep,
	}, nil
}

// CollectAll requests pages 1, 2, ... until one comes back empty and returns
// all posts in page order. Any failure aborts the run and discards the pages
// collected so far.
func (c *Collector) CollectAll(ctx context.Context) ([]post.Post, error) {
	start := time.Now()

	var accumulated []post.Post
	for page := 1; ; page++ {
		if page > 1 {
			if err := c.sleep(ctx, PageDelay); err != nil {
				collectFailuresTotal.WithLabelValues("canceled").Inc()
				return nil, fmt.Errorf("wait before page %d: %w", page, err)
			}
		}

		posts, err := c.FetchPage(ctx, page)
		if err != nil {
			collectFailuresTotal.WithLabelValues(failureReason(err)).Inc()
			c.logger.Error().
				Err(err).
				Int("page", page).
				Int("discarded_posts", len(accumulated)).
				Msg("Collection aborted")
			return nil, err
		}

		if len(posts) == 0 {
			c.logger.Info().
				Int("pages", page-1).
				Int("posts", len(accumulated)).
				Dur("duration", time.Since(start)).
				Msg("Collection complete")
			if accumulated == nil {
				accumulated = []post.Post{}
			}
			return accumulated, nil
		}

		accumulated = append(accumulated, posts...)
	}
}

// FetchPage requests a single page and decodes its posts.
// It never waits; pacing is the caller's job.
func (c *Collector) FetchPage(ctx context.Context, page int) ([]post.Post, error) {
	c.logger.Info().Int("page", page).Msg("Fetching posts page")

	resp, err := c.exec.Execute(ctx, c.pageRequest(page))
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}

	if !resp.IsOK() {
		return nil, &HTTPError{
			Page:   page,
			Status: resp.StatusCode,
			Body:   resp.Body,
		}
	}

	posts, err := decodePage(resp.Body)
	if err != nil {
		return nil, &DecodeError{
			Page: page,
			Body: resp.Body,
			Err:  err,
		}
	}

	pagesFetchedTotal.Inc()
	postsCollectedTotal.Add(float64(len(posts)))

	c.logger.Debug().
		Int("page", page).
		Int("posts", len(posts)).
		Bool("truncated", resp.Truncated).
		Msg("Page decoded")

	return posts, nil
}

// pageRequest builds GET {base}/api/posts?page={page}&limit={size}.
func (c *Collector) pageRequest(page int) client.Request {
	return client.Request{
		Method: http.MethodGet,
		URL:    c.config.BaseURL + postsPath,
		Params: client.Params{}.
			Add("page", strconv.Itoa(page)).
			Add("limit", strconv.Itoa(c.config.PageSize)),
	}
}

// decodePage requires the exact key "posts"; encoding/json would otherwise
// match struct fields case-insensitively.
func decodePage(body string) ([]post.Post, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, err
	}

	raw, ok := fields["posts"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, ErrMissingPosts
	}

	var posts []post.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func failureReason(err error) string {
	var httpErr *HTTPError
	var decodeErr *DecodeError
	var tErr *client.TransportError

	switch {
	case errors.As(err, &httpErr):
		return "http"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &tErr):
		if tErr.Class == client.ErrorClassCanceled {
			return "canceled"
		}
		return "transport"
	default:
		return "other"
	}
}
