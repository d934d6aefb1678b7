// Package testutil provides testing utilities for the posts feed client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/postfeed/pkg/post"
)

// PostsPath is the listing endpoint served by MockAPI.
const PostsPath = "/api/posts"

// MockPage defines the response for one page of the listing.
type MockPage struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// RecordedRequest is a request observed by the mock server.
type RecordedRequest struct {
	Path     string
	RawQuery string
	Header   http.Header
	At       time.Time
}

// MockAPI is a configurable paged posts API for testing.
type MockAPI struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[int]MockPage

	// Tracking
	requests []RecordedRequest
}

// NewMockAPI creates a new mock API server. Pages that were not configured
// answer with an empty posts array.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		pages: make(map[int]MockPage),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			At:       time.Now(),
		})
		mock.mu.Unlock()

		if r.URL.Path != PostsPath {
			http.NotFound(w, r)
			return
		}

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			http.Error(w, `{"error": "invalid page"}`, http.StatusBadRequest)
			return
		}

		mock.mu.RLock()
		resp, exists := mock.pages[page]
		mock.mu.RUnlock()

		if !exists {
			resp = NewPostsPage()
		}

		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}))

	return mock
}

// URL returns the mock server URL (the API base URL).
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears the recorded requests.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetPage configures the response for a page number.
func (m *MockAPI) SetPage(page int, resp MockPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = resp
}

// SetPosts configures consecutive pages starting at page 1, one slice per page.
func (m *MockAPI) SetPosts(pages ...[]post.Post) {
	for i, posts := range pages {
		m.SetPage(i+1, NewPostsPage(posts...))
	}
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Requests returns a copy of the recorded requests in arrival order.
func (m *MockAPI) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// NewPostsPage creates a 200 OK page holding the given posts.
func NewPostsPage(posts ...post.Post) MockPage {
	if posts == nil {
		posts = []post.Post{}
	}
	data, err := json.Marshal(map[string][]post.Post{"posts": posts})
	if err != nil {
		panic(fmt.Sprintf("marshal posts: %v", err))
	}
	return MockPage{
		StatusCode: http.StatusOK,
		Body:       string(data),
	}
}

// NewNotFoundPage creates a 404 Not Found page.
func NewNotFoundPage() MockPage {
	return MockPage{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "Not found"}`,
	}
}

// NewServerErrorPage creates a 500 Internal Server Error page.
func NewServerErrorPage() MockPage {
	return MockPage{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewRawPage creates a 200 OK page with an arbitrary body.
func NewRawPage(body string) MockPage {
	return MockPage{
		StatusCode: http.StatusOK,
		Body:       body,
	}
}

// SamplePost builds a post whose fields derive from id.
func SamplePost(id string) post.Post {
	return post.Post{
		Title:     "Post " + id,
		Brief:     "Brief of post " + id,
		Author:    post.Author{Name: "Author " + id},
		Slug:      "post-" + id,
		DateAdded: "2024-01-01T00:00:00.000Z",
	}
}

// SamplePosts builds n posts with ids prefix-1 .. prefix-n.
func SamplePosts(prefix string, n int) []post.Post {
	posts := make([]post.Post, 0, n)
	for i := 1; i <= n; i++ {
		posts = append(posts, SamplePost(fmt.Sprintf("%s-%d", prefix, i)))
	}
	return posts
}
