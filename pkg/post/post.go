// Package post defines the blog post record returned by the upstream
// listing API and consumed by the feed formatter.
package post

import "strings"

// Author is the post author as returned by the API.
type Author struct {
	Name string `json:"name"`
}

// Post is a single entry of the `posts` array.
// Values are copied out of the decoded JSON and never mutated afterwards.
type Post struct {
	Title     string `json:"title"`
	Brief     string `json:"brief"`
	Author    Author `json:"author"`
	Slug      string `json:"slug"`
	DateAdded string `json:"dateAdded"`
}

// URL returns the public permalink of the post: {baseURL}/{slug}.
func (p Post) URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + p.Slug
}
