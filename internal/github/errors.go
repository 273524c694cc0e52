package github

import (
	"fmt"
	"strings"
)

// AuthError indicates the configured GITHUB_TOKEN was rejected.
// This is fatal for the whole run: every subsequent API call would fail
// the same way, so there is no unauthenticated fallback.
type AuthError struct{}

func (e *AuthError) Error() string {
	return "GitHub authentication failed\nHint: check your GITHUB_TOKEN; if invalid or expired, create a new one"
}

// RateLimitError indicates the unauthenticated API rate limit was hit.
type RateLimitError struct{}

func (e *RateLimitError) Error() string {
	return "GitHub API rate limit exceeded\nHint: set GITHUB_TOKEN to increase the limit"
}

// NotFoundError indicates a 404 from the API.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// TagNotFoundError indicates a pinned version tag does not exist for a
// repo. Available carries recent tags for a "did you mean" hint.
type TagNotFoundError struct {
	Repo      string
	Tag       string
	Available []string
}

func (e *TagNotFoundError) Error() string {
	tags := "(none)"
	if len(e.Available) > 0 {
		tags = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("version %q not found for %s\nHint: available tags: %s", e.Tag, e.Repo, tags)
}
