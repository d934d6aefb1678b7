package pagination

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/postfeed/internal/testutil"
	"github.com/Sternrassler/postfeed/pkg/client"
	"github.com/Sternrassler/postfeed/pkg/post"
)

// newTestCollector returns a collector against mock whose delays are recorded
// instead of slept.
func newTestCollector(t *testing.T, baseURL string, pageSize int) (*Collector, *[]time.Duration) {
	t.Helper()

	httpClient, err := client.New(client.DefaultConfig("postfeed-test/1.0"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { httpClient.Close() })

	c, err := NewCollector(httpClient, Config{BaseURL: baseURL, PageSize: pageSize})
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}

	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return c, &sleeps
}

func TestNewCollector_Validation(t *testing.T) {
	httpClient, err := client.New(client.DefaultConfig("TestApp/1.0.0"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	tests := []struct {
		name        string
		exec        Executor
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			exec:   httpClient,
			config: DefaultConfig("http://x"),
		},
		{
			name:        "nil executor",
			exec:        nil,
			config:      DefaultConfig("http://x"),
			expectError: true,
			errorMsg:    "executor is required",
		},
		{
			name:        "empty base url",
			exec:        httpClient,
			config:      Config{PageSize: 12},
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name:        "negative page size",
			exec:        httpClient,
			config:      Config{BaseURL: "http://x", PageSize: -1},
			expectError: true,
			errorMsg:    "page size must be > 0 (got -1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCollector(tt.exec, tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if c == nil {
				t.Error("Collector is nil")
			}
		})
	}
}

func TestNewCollector_Defaults(t *testing.T) {
	httpClient, _ := client.New(client.DefaultConfig("TestApp/1.0.0"))

	c, err := NewCollector(httpClient, Config{BaseURL: "http://x/"})
	if err != nil {
		t.Fatalf("NewCollector() failed: %v", err)
	}

	if c.config.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", c.config.PageSize, DefaultPageSize)
	}
	if c.config.BaseURL != "http://x" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", c.config.BaseURL)
	}
}

func TestCollectAll_ConcatenatesPagesInOrder(t *testing.T) {
	tests := []struct {
		name  string
		pages [][]post.Post
	}{
		{"single page", [][]post.Post{testutil.SamplePosts("a", 3)}},
		{"full pages", [][]post.Post{testutil.SamplePosts("a", 12), testutil.SamplePosts("b", 12)}},
		{"short last page", [][]post.Post{testutil.SamplePosts("a", 12), testutil.SamplePosts("b", 12), testutil.SamplePosts("c", 1)}},
		{"uneven pages", [][]post.Post{testutil.SamplePosts("a", 1), testutil.SamplePosts("b", 5), testutil.SamplePosts("c", 2), testutil.SamplePosts("d", 7)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			mock.SetPosts(tt.pages...)

			c, sleeps := newTestCollector(t, mock.URL(), 12)

			got, err := c.CollectAll(context.Background())
			if err != nil {
				t.Fatalf("CollectAll() failed: %v", err)
			}

			var want []post.Post
			for _, p := range tt.pages {
				want = append(want, p...)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("CollectAll() returned %d posts, want %d in page order", len(got), len(want))
			}

			n := len(tt.pages)
			if mock.GetRequestCount() != n+1 {
				t.Errorf("Request count = %d, want %d", mock.GetRequestCount(), n+1)
			}
			if len(*sleeps) != n {
				t.Errorf("Delays = %d, want %d", len(*sleeps), n)
			}
			for i, d := range *sleeps {
				if d != PageDelay {
					t.Errorf("Delay %d = %v, want %v", i, d, PageDelay)
				}
			}
		})
	}
}

func TestCollectAll_EmptyFirstPage(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	c, sleeps := newTestCollector(t, mock.URL(), 12)

	got, err := c.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("CollectAll() failed: %v", err)
	}

	if got == nil || len(got) != 0 {
		t.Errorf("CollectAll() = %v, want empty non-nil slice", got)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Request count = %d, want 1", mock.GetRequestCount())
	}
	if len(*sleeps) != 0 {
		t.Errorf("No delay expected before page 1, got %v", *sleeps)
	}
}

func TestCollectAll_HTTPErrorAbortsRun(t *testing.T) {
	for failingPage := 1; failingPage <= 3; failingPage++ {
		t.Run(fmt.Sprintf("page_%d", failingPage), func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			mock.SetPosts(testutil.SamplePosts("a", 2), testutil.SamplePosts("b", 2), testutil.SamplePosts("c", 2))
			mock.SetPage(failingPage, testutil.NewNotFoundPage())

			c, _ := newTestCollector(t, mock.URL(), 12)

			got, err := c.CollectAll(context.Background())
			if got != nil {
				t.Errorf("Expected no results, got %d posts", len(got))
			}

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("Expected *HTTPError, got %T: %v", err, err)
			}
			if httpErr.Status != http.StatusNotFound {
				t.Errorf("Status = %d, want 404", httpErr.Status)
			}
			if httpErr.Page != failingPage {
				t.Errorf("Page = %d, want %d", httpErr.Page, failingPage)
			}
			if httpErr.Body != `{"error": "Not found"}` {
				t.Errorf("Body = %q", httpErr.Body)
			}
			if mock.GetRequestCount() != failingPage {
				t.Errorf("Request count = %d, want %d", mock.GetRequestCount(), failingPage)
			}
		})
	}
}

func TestCollectAll_OnlyStatus200IsSuccess(t *testing.T) {
	statuses := []int{http.StatusCreated, http.StatusAccepted, http.StatusNoContent, http.StatusInternalServerError}

	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()

			page := testutil.NewPostsPage(testutil.SamplePost("x"))
			page.StatusCode = status
			if status == http.StatusNoContent {
				page.Body = ""
			}
			mock.SetPage(1, page)

			c, _ := newTestCollector(t, mock.URL(), 12)

			_, err := c.CollectAll(context.Background())

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("Expected *HTTPError for status %d, got %v", status, err)
			}
			if httpErr.Status != status {
				t.Errorf("Status = %d, want %d", httpErr.Status, status)
			}
		})
	}
}

func TestCollectAll_DecodeErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMissing bool
	}{
		{"missing posts field", `{"items": []}`, true},
		{"null posts", `{"posts": null}`, true},
		{"upper-case key", `{"POSTS": []}`, true},
		{"title-case key with posts", `{"Posts": [{"title": "a"}]}`, true},
		{"invalid json", `{"posts": [`, false},
		{"html instead of json", `<html>maintenance</html>`, false},
		{"posts not an array", `{"posts": {"title": "a"}}`, false},
		{"empty body", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			mock.SetPosts(testutil.SamplePosts("a", 2))
			mock.SetPage(2, testutil.NewRawPage(tt.body))

			c, _ := newTestCollector(t, mock.URL(), 12)

			got, err := c.CollectAll(context.Background())
			if got != nil {
				t.Errorf("Expected no results, got %d posts", len(got))
			}

			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("Expected *DecodeError, got %T: %v", err, err)
			}
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				t.Error("DecodeError must not match HTTPError")
			}
			if decodeErr.Page != 2 {
				t.Errorf("Page = %d, want 2", decodeErr.Page)
			}
			if decodeErr.Body != tt.body {
				t.Errorf("Body = %q, want %q", decodeErr.Body, tt.body)
			}
			if errors.Is(err, ErrMissingPosts) != tt.wantMissing {
				t.Errorf("errors.Is(err, ErrMissingPosts) = %v, want %v", !tt.wantMissing, tt.wantMissing)
			}
		})
	}
}

func TestCollectAll_EmptyPostsTerminates(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetPosts(testutil.SamplePosts("a", 1))
	mock.SetPage(2, testutil.NewRawPage(`{"posts": []}`))
	// Never reached.
	mock.SetPage(3, testutil.NewServerErrorPage())

	c, _ := newTestCollector(t, mock.URL(), 12)

	got, err := c.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("CollectAll() failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("Request count = %d, want 2", mock.GetRequestCount())
	}
}

func TestCollectAll_QueryString(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetPosts(testutil.SamplePosts("a", 1), testutil.SamplePosts("b", 1), testutil.SamplePosts("c", 1))

	c, _ := newTestCollector(t, mock.URL()+"/", 12)

	if _, err := c.CollectAll(context.Background()); err != nil {
		t.Fatalf("CollectAll() failed: %v", err)
	}

	requests := mock.Requests()
	if len(requests) != 4 {
		t.Fatalf("Request count = %d, want 4", len(requests))
	}

	for i, r := range requests {
		if r.Path != testutil.PostsPath {
			t.Errorf("request %d path = %q, want %q", i, r.Path, testutil.PostsPath)
		}
	}

	if requests[2].RawQuery != "page=3&limit=12" {
		t.Errorf("page 3 query = %q, want %q", requests[2].RawQuery, "page=3&limit=12")
	}
	if got := requests[0].Header.Get("User-Agent"); got != "postfeed-test/1.0" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestCollectAll_CustomPageSize(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	c, _ := newTestCollector(t, mock.URL(), 50)

	if _, err := c.CollectAll(context.Background()); err != nil {
		t.Fatalf("CollectAll() failed: %v", err)
	}
	if q := mock.Requests()[0].RawQuery; q != "page=1&limit=50" {
		t.Errorf("query = %q, want page=1&limit=50", q)
	}
}

func TestCollectAll_TransportError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c, _ := newTestCollector(t, "http://"+addr, 12)

	got, err := c.CollectAll(context.Background())
	if got != nil {
		t.Errorf("Expected no results, got %v", got)
	}

	var tErr *client.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("Expected *client.TransportError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "fetch page 1") {
		t.Errorf("error should name the page: %v", err)
	}
}

func TestCollectAll_CancelledDuringDelay(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetPosts(testutil.SamplePosts("a", 2))

	httpClient, _ := client.New(client.DefaultConfig("postfeed-test/1.0"))
	c, err := NewCollector(httpClient, DefaultConfig(mock.URL()))
	if err != nil {
		t.Fatalf("NewCollector() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	got, err := c.CollectAll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected no results, got %d posts", len(got))
	}
	if time.Since(start) >= PageDelay {
		t.Errorf("Cancellation should interrupt the page delay")
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Request count = %d, want 1", mock.GetRequestCount())
	}
}

func TestCollectAll_EndToEnd(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetPage(1, testutil.NewRawPage(`{"posts":[
		{"title":"a","brief":"ba","author":{"name":"x"},"slug":"a","dateAdded":"d1"},
		{"title":"b","brief":"bb","author":{"name":"y"},"slug":"b","dateAdded":"d2"}
	]}`))
	mock.SetPage(2, testutil.NewRawPage(`{"posts":[]}`))

	httpClient, _ := client.New(client.DefaultConfig("postfeed-test/1.0"))
	c, err := NewCollector(httpClient, DefaultConfig(mock.URL()))
	if err != nil {
		t.Fatalf("NewCollector() failed: %v", err)
	}

	got, err := c.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("CollectAll() failed: %v", err)
	}

	if len(got) != 2 || got[0].Title != "a" || got[1].Title != "b" {
		t.Fatalf("CollectAll() = %+v, want [a b]", got)
	}
	if got[1].Author.Name != "y" || got[1].Slug != "b" || got[1].DateAdded != "d2" {
		t.Errorf("second post decoded incorrectly: %+v", got[1])
	}

	requests := mock.Requests()
	if len(requests) != 2 {
		t.Fatalf("Request count = %d, want 2", len(requests))
	}
	if gap := requests[1].At.Sub(requests[0].At); gap < PageDelay {
		t.Errorf("Gap between requests = %v, want >= %v", gap, PageDelay)
	}
}

func TestFetchPage_NoDelay(t *testing.T) {
	exec := &fakeExecutor{responses: []*client.Response{
		{StatusCode: http.StatusOK, Body: `{"posts":[{"title":"only"}]}`},
	}}

	c, err := NewCollector(exec, DefaultConfig("http://x"))
	if err != nil {
		t.Fatalf("NewCollector() failed: %v", err)
	}
	c.sleep = func(context.Context, time.Duration) error {
		t.Error("FetchPage must not sleep")
		return nil
	}

	posts, err := c.FetchPage(context.Background(), 7)
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "only" {
		t.Errorf("FetchPage() = %+v", posts)
	}

	req := exec.requests[0]
	if req.Method != http.MethodGet {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if got := req.Params.AppendTo(req.URL); got != "http://x/api/posts?page=7&limit=12" {
		t.Errorf("URL = %q", got)
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&HTTPError{Status: 500}, "http"},
		{&DecodeError{Err: ErrMissingPosts}, "decode"},
		{&client.TransportError{Class: client.ErrorClassNetwork}, "transport"},
		{&client.TransportError{Class: client.ErrorClassCanceled}, "canceled"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		if got := failureReason(tt.err); got != tt.want {
			t.Errorf("failureReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// fakeExecutor replays canned responses and records requests.
type fakeExecutor struct {
	responses []*client.Response
	requests  []client.Request
}

func (f *fakeExecutor) Execute(ctx context.Context, r client.Request) (*client.Response, error) {
	f.requests = append(f.requests, r)
	if len(f.responses) == 0 {
		return &client.Response{StatusCode: http.StatusOK, Body: `{"posts":[]}`}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func TestFetchPage_ExactPostsKey(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantPosts   int
		wantMissing bool
	}{
		{name: "exact key", body: `{"posts": [{"title": "a"}]}`, wantPosts: 1},
		{name: "extra keys ignored", body: `{"total": 9, "posts": []}`, wantPosts: 0},
		{name: "title-case key", body: `{"Posts": [{"title": "a"}]}`, wantMissing: true},
		{name: "upper-case key", body: `{"POSTS": []}`, wantMissing: true},
		{name: "null top level", body: `null`, wantMissing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{responses: []*client.Response{
				{StatusCode: http.StatusOK, Body: tt.body},
			}}
			c, err := NewCollector(exec, DefaultConfig("http://x"))
			if err != nil {
				t.Fatalf("NewCollector() failed: %v", err)
			}

			posts, err := c.FetchPage(context.Background(), 1)
			if tt.wantMissing {
				if !errors.Is(err, ErrMissingPosts) {
					t.Fatalf("FetchPage() error = %v, want ErrMissingPosts", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FetchPage() failed: %v", err)
			}
			if len(posts) != tt.wantPosts {
				t.Errorf("len = %d, want %d", len(posts), tt.wantPosts)
			}
		})
	}
}

func TestFetchPage_MissingPostFieldsDecodeToZeroValues(t *testing.T) {
	exec := &fakeExecutor{responses: []*client.Response{
		{StatusCode: http.StatusOK, Body: `{"posts": [{"title": "bare"}]}`},
	}}
	c, err := NewCollector(exec, DefaultConfig("http://x"))
	if err != nil {
		t.Fatalf("NewCollector() failed: %v", err)
	}

	posts, err := c.FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}

	want := post.Post{Title: "bare"}
	if len(posts) != 1 || !reflect.DeepEqual(posts[0], want) {
		t.Errorf("FetchPage() = %+v, want [%+v]", posts, want)
	}
}
