package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v59/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/tildaslashalef/repovault/internal/config"
	"github.com/tildaslashalef/repovault/internal/loggy"
)

// defaultAPIURL is the public GitHub API endpoint
const defaultAPIURL = "https://api.github.com"

// Client fetches repository trees and file contents from GitHub.
// All requests pass through a shared rate limiter so bursts of
// content fetches cannot exhaust the token's quota.
type Client struct {
	client  *github.Client
	http    *http.Client
	limiter *rate.Limiter
	config  *config.GitHubConfig
	logger  *loggy.Logger
}

// NewClient creates a GitHub API client from the given configuration
func NewClient(cfg *config.GitHubConfig, logger *loggy.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = timeout

	var client *github.Client
	if cfg.APIURL != "" && cfg.APIURL != defaultAPIURL {
		var err error
		client, err = github.NewEnterpriseClient(cfg.APIURL, cfg.APIURL, tc)
		if err != nil {
			// Fall back to the default client if the enterprise URL is unusable
			client = github.NewClient(tc)
		}
	} else {
		client = github.NewClient(tc)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.BurstLimit
	if burst <= 0 {
		burst = 10
	}

	return &Client{
		client:  client,
		http:    tc,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		config:  cfg,
		logger:  logger,
	}
}

// wait blocks until the rate limiter permits another request
func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &RemoteError{Op: "rate_limiter", Kind: KindNetwork, Message: "rate limiter wait aborted", Err: err}
	}
	return nil
}

// TestReachability probes the configured repository and reports whether
// it can be reached with the current token. It never returns an error;
// callers use it for preflight checks and status output.
func (c *Client) TestReachability(ctx context.Context) bool {
	if err := c.wait(ctx); err != nil {
		return false
	}
	_, _, err := c.client.Repositories.Get(ctx, c.config.Owner, c.config.Repo)
	if err != nil {
		c.logger.Debug("repository unreachable",
			"owner", c.config.Owner,
			"repo", c.config.Repo,
			"error", err)
		return false
	}
	return true
}

// QuotaStatus returns the current core API rate limit window.
// A zero-valued Quota is returned when the limit cannot be read.
func (c *Client) QuotaStatus(ctx context.Context) Quota {
	if err := c.wait(ctx); err != nil {
		return Quota{}
	}
	limits, _, err := c.client.RateLimit.Get(ctx)
	if err != nil || limits == nil || limits.Core == nil {
		c.logger.Debug("rate limit lookup failed", "error", err)
		return Quota{}
	}
	return Quota{
		Limit:     limits.Core.Limit,
		Remaining: limits.Core.Remaining,
		ResetAt:   limits.Core.Reset.Time,
	}
}

// ListFiles returns every blob in the configured branch's tree along
// with the root tree SHA identifying the listing. The boolean is true
// when the API truncated the tree, in which case the returned slice is
// incomplete and the caller should warn rather than treat missing
// entries as deletions.
func (c *Client) ListFiles(ctx context.Context) ([]RemoteFile, string, bool, error) {
	if err := c.wait(ctx); err != nil {
		return nil, "", false, err
	}

	tree, _, err := c.client.Git.GetTree(ctx, c.config.Owner, c.config.Repo, c.config.Branch, true)
	if err != nil {
		return nil, "", false, classify("list_files", err)
	}

	files := make([]RemoteFile, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		files = append(files, RemoteFile{
			Path: entry.GetPath(),
			SHA:  entry.GetSHA(),
			Size: int64(entry.GetSize()),
		})
	}

	truncated := tree.GetTruncated()
	if truncated {
		c.logger.Warn("repository tree listing truncated by the API",
			"entries", len(files),
			"owner", c.config.Owner,
			"repo", c.config.Repo)
	}

	return files, tree.GetSHA(), truncated, nil
}

// FetchFileBytes retrieves the content of a single file, working through
// three tiers: the Contents API, the raw content mirror, and finally the
// Git blob endpoint addressed by SHA. Each tier's failure falls through
// to the next; the returned error reflects the whole chain.
func (c *Client) FetchFileBytes(ctx context.Context, path, sha string) ([]byte, error) {
	var tierErrs []error

	data, err := c.fetchViaContents(ctx, path)
	if err == nil {
		return data, nil
	}
	tierErrs = append(tierErrs, err)
	c.logger.Debug("contents API fetch failed, trying raw mirror", "path", path, "error", err)

	data, err = c.fetchViaRaw(ctx, path)
	if err == nil {
		return data, nil
	}
	tierErrs = append(tierErrs, err)
	c.logger.Debug("raw mirror fetch failed, trying blob API", "path", path, "error", err)

	data, err = c.fetchViaBlob(ctx, sha)
	if err == nil {
		return data, nil
	}
	tierErrs = append(tierErrs, err)

	return nil, exhaustedError(path, tierErrs)
}

// exhaustedError builds the terminal error for a file whose every
// retrieval tier failed. When all tiers agree on a classification
// (e.g. the file is simply gone, or the token is bad) that kind is
// kept; mixed failures collapse to KindTooLarge since the chain
// exists to handle oversized files.
func exhaustedError(path string, tierErrs []error) error {
	kind := KindOf(tierErrs[0])
	for _, err := range tierErrs[1:] {
		if KindOf(err) != kind {
			kind = KindTooLarge
			break
		}
	}

	msgs := make([]string, 0, len(tierErrs))
	for i, err := range tierErrs {
		msgs = append(msgs, fmt.Sprintf("tier %d: %v", i+1, err))
	}

	return &RemoteError{
		Op:      "fetch_file",
		Kind:    kind,
		Message: fmt.Sprintf("all retrieval tiers failed for %q: %s", path, strings.Join(msgs, "; ")),
	}
}

// fetchViaContents retrieves file content through the Contents API.
// The API silently returns empty content for files over the size cap,
// which is treated as a tier failure rather than an empty file.
func (c *Client) fetchViaContents(ctx context.Context, path string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.RepositoryContentGetOptions{Ref: c.config.Branch}
	fc, _, _, err := c.client.Repositories.GetContents(ctx, c.config.Owner, c.config.Repo, path, opts)
	if err != nil {
		return nil, classify("contents_api", err)
	}
	if fc == nil {
		return nil, &RemoteError{Op: "contents_api", Kind: KindMalformed, Message: fmt.Sprintf("%q is not a file", path)}
	}

	var raw string
	if fc.Content != nil {
		raw = *fc.Content
	}

	var data []byte
	switch fc.GetEncoding() {
	case "", "base64":
		data, err = decodeBase64Content(raw)
		if err != nil {
			return nil, &RemoteError{Op: "contents_api", Kind: KindMalformed, Message: "content is not valid base64", Err: err}
		}
	case "none":
		// the API elides content for oversized files and marks the
		// encoding "none"
		data = nil
	default:
		return nil, &RemoteError{Op: "contents_api", Kind: KindMalformed, Message: fmt.Sprintf("unexpected content encoding %q", fc.GetEncoding())}
	}

	if len(data) == 0 && fc.GetSize() > 0 {
		return nil, &RemoteError{
			Op:      "contents_api",
			Kind:    KindTooLarge,
			Message: fmt.Sprintf("empty content for %d byte file, likely over the API size cap", fc.GetSize()),
		}
	}

	return data, nil
}

// fetchViaRaw retrieves file content from the raw content mirror
func (c *Client) fetchViaRaw(ctx context.Context, path string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	rawURL := fmt.Sprintf("%s/%s/%s/%s/%s",
		strings.TrimSuffix(c.config.RawURL, "/"),
		url.PathEscape(c.config.Owner),
		url.PathEscape(c.config.Repo),
		url.PathEscape(c.config.Branch),
		encodePath(path),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &RemoteError{Op: "raw_mirror", Kind: KindMalformed, Message: "building raw request", Err: err}
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "raw_mirror", Kind: KindNetwork, Message: "raw request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("raw_mirror", resp.StatusCode, "", nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Op: "raw_mirror", Kind: KindNetwork, Message: "reading raw response", Err: err}
	}
	if len(data) == 0 {
		return nil, &RemoteError{Op: "raw_mirror", Kind: KindMalformed, Message: "raw mirror returned empty body"}
	}

	return data, nil
}

// fetchViaBlob retrieves file content through the Git blob endpoint.
// It needs the blob SHA and fails fast without one.
func (c *Client) fetchViaBlob(ctx context.Context, sha string) ([]byte, error) {
	if sha == "" {
		return nil, &RemoteError{Op: "blob_api", Kind: KindNotFound, Message: "no blob SHA available"}
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	blob, _, err := c.client.Git.GetBlob(ctx, c.config.Owner, c.config.Repo, sha)
	if err != nil {
		return nil, classify("blob_api", err)
	}

	data, err := decodeBase64Content(blob.GetContent())
	if err != nil {
		return nil, &RemoteError{Op: "blob_api", Kind: KindMalformed, Message: "blob content is not valid base64", Err: err}
	}
	if len(data) == 0 && blob.GetSize() > 0 {
		return nil, &RemoteError{Op: "blob_api", Kind: KindMalformed, Message: "blob decoded to empty content"}
	}

	return data, nil
}

// decodeBase64Content decodes API content payloads, which arrive
// base64 encoded with embedded newlines
func decodeBase64Content(content string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, content)
	if cleaned == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(cleaned)
}

// encodePath percent-encodes each segment of a repository path while
// keeping the separators, so names with spaces or unicode survive
// the raw mirror URL
func encodePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
