package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ZebulonRouseFrantzich/ghrel/internal/logging"
)

const (
	// DefaultAPIBase is the GitHub API endpoint. Override with GHREL_API_BASE
	// (used by tests and GitHub Enterprise setups).
	DefaultAPIBase = "https://api.github.com"
	// DefaultTimeout is the HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultAttempts is the total number of network attempts per request
	DefaultAttempts = 3
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "ghrel/1.0"
	// recentTagLimit caps how many tags are fetched for error hints
	recentTagLimit = 10
)

// Client talks to the GitHub releases API. It memoizes release lookups for
// the lifetime of the client, which ghrel scopes to a single command run.
type Client struct {
	client    *http.Client
	apiBase   string
	token     string
	userAgent string
	attempts  int
	progress  bool

	releases map[string]*Release
	tags     map[string][]string
}

// NewClient creates a release provider client. token may be empty for
// unauthenticated access (subject to GitHub's low anonymous rate limit).
func NewClient(token string) *Client {
	apiBase := DefaultAPIBase
	if base := strings.TrimSpace(os.Getenv("GHREL_API_BASE")); base != "" {
		apiBase = strings.TrimRight(base, "/")
	}

	return &Client{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		apiBase:   apiBase,
		token:     token,
		userAgent: DefaultUserAgent,
		attempts:  DefaultAttempts,
		releases:  make(map[string]*Release),
		tags:      make(map[string][]string),
	}
}

// SetProgress enables a download progress bar on stderr.
func (c *Client) SetProgress(enabled bool) {
	c.progress = enabled
}

// LatestRelease fetches the latest non-prerelease, non-draft release.
// The /releases/latest endpoint already excludes prereleases and drafts.
func (c *Client) LatestRelease(ctx context.Context, repo string) (*Release, error) {
	cacheKey := repo + "\x00latest"
	if cached, ok := c.releases[cacheKey]; ok {
		return cached, nil
	}

	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.apiBase, owner, name)
	release, err := c.fetchRelease(ctx, url)
	if err != nil {
		return nil, err
	}

	c.releases[cacheKey] = release
	return release, nil
}

// ReleaseByTag fetches the release with the given tag. When the tag does
// not exist, the returned TagNotFoundError lists recent tags as a hint.
func (c *Client) ReleaseByTag(ctx context.Context, repo, tag string) (*Release, error) {
	cacheKey := repo + "\x00" + tag
	if cached, ok := c.releases[cacheKey]; ok {
		return cached, nil
	}

	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.apiBase, owner, name, tag)
	release, err := c.fetchRelease(ctx, url)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			recent, tagsErr := c.RecentTags(ctx, repo)
			if tagsErr != nil {
				recent = nil
			}
			return nil, &TagNotFoundError{Repo: repo, Tag: tag, Available: recent}
		}
		return nil, err
	}

	c.releases[cacheKey] = release
	return release, nil
}

// RecentTags fetches recent release tags for a repo.
func (c *Client) RecentTags(ctx context.Context, repo string) ([]string, error) {
	if cached, ok := c.tags[repo]; ok {
		return cached, nil
	}

	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", c.apiBase, owner, name, recentTagLimit)
	body, err := c.requestJSON(ctx, url)
	if err != nil {
		return nil, err
	}

	var releases []struct {
		Tag string `json:"tag_name"`
	}
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, fmt.Errorf("invalid JSON response from GitHub: %w", err)
	}

	tags := make([]string, 0, len(releases))
	for _, r := range releases {
		if r.Tag != "" {
			tags = append(tags, r.Tag)
		}
	}

	c.tags[repo] = tags
	return tags, nil
}

// DownloadAsset downloads a release asset to destPath. Network failures are
// retried with exponential backoff (1s, 2s); HTTP error statuses are not,
// since they are deterministic. size is used to scale the progress bar and
// may be zero.
func (c *Client) DownloadAsset(ctx context.Context, url, destPath string, size int64) error {
	log := logging.GetLogger("github")

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			log.Debug().Str("url", url).Int("attempt", attempt).Dur("backoff", backoff).Msg("retrying download")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.downloadOnce(ctx, url, destPath, size)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("download failed after %d attempts: %w", c.attempts, lastErr)
}

// retryableError marks a download failure worth retrying (network-level
// failures, as opposed to deterministic HTTP statuses).
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

func (c *Client) downloadOnce(ctx context.Context, url, destPath string, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/octet-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &retryableError{err: err}
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, url, c.token != ""); err != nil {
		return err
	}

	tmpPath := destPath + ".partial"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}

	var dest io.Writer = out
	if c.progress {
		bar := progressbar.DefaultBytes(size, filepath.Base(destPath))
		dest = io.MultiWriter(out, bar)
	}

	if _, err := io.Copy(dest, resp.Body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return &retryableError{err: fmt.Errorf("read response body: %w", err)}
	}

	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close download file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize download file: %w", err)
	}

	return nil
}

// fetchRelease GETs and parses a single release object.
func (c *Client) fetchRelease(ctx context.Context, url string) (*Release, error) {
	body, err := c.requestJSON(ctx, url)
	if err != nil {
		return nil, err
	}

	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("invalid JSON response from GitHub: %w", err)
	}
	if release.Tag == "" {
		return nil, fmt.Errorf("release JSON missing tag_name (%s)", url)
	}

	return &release, nil
}

// requestJSON GETs a URL with retries and GitHub error mapping.
func (c *Client) requestJSON(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/vnd.github+json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err := statusError(resp.StatusCode, url, c.token != ""); err != nil {
			return nil, err
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("network error contacting GitHub: %w", lastErr)
}

// statusError maps HTTP statuses to the provider error taxonomy.
// 401/403 with a token means the token is bad; without one it means the
// anonymous rate limit was exhausted.
func statusError(status int, url string, hasToken bool) error {
	switch {
	case status == http.StatusNotFound:
		return &NotFoundError{URL: url}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if hasToken {
			return &AuthError{}
		}
		return &RateLimitError{}
	case status >= 400:
		return fmt.Errorf("GitHub API error (%d) for %s", status, url)
	}
	return nil
}

func splitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid repo %q: expected owner/repo", repo)
	}
	return owner, name, nil
}
