// Package pagination walks a paged posts listing until it is exhausted.
//
// The upstream API exposes GET {base_url}/api/posts?page={n}&limit={m} and
// returns {"posts": [...]}. There is no total page count, so the collector
// requests pages 1, 2, 3, ... strictly in sequence and stops at the first
// page whose posts array is empty.
//
// Example usage:
//
//	httpClient, _ := client.New(client.DefaultConfig("postfeed/1.0"))
//	collector, _ := pagination.NewCollector(httpClient, pagination.DefaultConfig(baseURL))
//	posts, err := collector.CollectAll(ctx)
//
// The collector:
//   - Waits PageDelay (1s) before every page after the first
//   - Fails with *HTTPError on any status other than 200
//   - Fails with *DecodeError when the body is not JSON or lacks "posts"
//   - Passes *client.TransportError through unchanged
//   - Returns no partial results on failure
//
// A short final page (fewer than PageSize posts) does not stop the walk; one
// more request is made and the empty page that follows ends it.
package pagination
