package store

import "strings"

// DefaultPrefix namespaces all keys written by the publisher.
const DefaultPrefix = "postfeed"

// Keys holds the Redis key names for one prefix.
type Keys struct {
	Feed    string
	LastRun string
}

// KeysFor builds the key set for prefix. Surrounding colons are trimmed and
// an empty prefix falls back to DefaultPrefix.
//
// Example:
//
//	KeysFor("blog:") -> {Feed: "blog:feed", LastRun: "blog:last_run"}
func KeysFor(prefix string) Keys {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{
		Feed:    prefix + ":feed",
		LastRun: prefix + ":last_run",
	}
}
