package store

import "time"

// RunSummary describes a completed collection run.
type RunSummary struct {
	// BaseURL is the API the posts were collected from.
	BaseURL string `json:"base_url"`

	// Posts is the number of posts rendered into the feed.
	Posts int `json:"posts"`

	// StartedAt and FinishedAt bracket the collection run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// FeedBytes is the size of the published feed.
	FeedBytes int `json:"feed_bytes"`
}

// Duration returns how long the run took.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Run is a feed together with its summary, ready to publish.
type Run struct {
	Summary RunSummary
	Feed    string

	// TTL applied to both keys. Zero keeps them until the next run.
	TTL time.Duration
}
