// Package store publishes the output of a feed run to Redis.
//
// A downstream feed server reads the rendered items from Redis instead of
// invoking the batch job itself. Every successful run overwrites two keys:
//
//   - {prefix}:feed     - the rendered XML
//   - {prefix}:last_run - a JSON RunSummary (base URL, post count, timings)
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	publisher := store.NewPublisher(redisClient, "postfeed")
//
//	err := publisher.Publish(ctx, store.Run{
//		Summary: store.RunSummary{BaseURL: baseURL, Posts: len(posts)},
//		Feed:    xml,
//		TTL:     24 * time.Hour,
//	})
//
// Nothing written here is read back by the collector; every run fetches the
// upstream API from page 1.
//
// # Metrics
//
//   - postfeed_store_errors_total{operation} - Redis operation errors
//   - postfeed_store_feed_bytes - Size of the last published feed
package store
