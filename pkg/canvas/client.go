package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/canvas-assignment-manager/internal/models"
	appErrors "github.com/noah-isme/canvas-assignment-manager/pkg/errors"
)

// Transport modes.
const (
	ModeDirect = "direct"
	ModeRelay  = "relay"
)

// Relay header names, shared with the relay handler.
const (
	HeaderCanvasURL = "X-Canvas-Url"
	HeaderAPIKey    = "X-Api-Key"
)

const (
	apiVersionPrefix   = "/api/v1"
	defaultRelayPrefix = "/api/canvas"
	defaultPerPage     = 100
	defaultMaxPages    = 50
	maxErrorBody       = 64 << 10
)

// Observer receives timing for every upstream call.
type Observer interface {
	ObserveUpstreamRequest(label string, status int, duration time.Duration)
}

// Options tunes how the client reaches Canvas.
type Options struct {
	Mode        string
	RelayURL    string
	RelayPrefix string
	PerPage     int
	MaxPages    int
	Timeout     time.Duration
	HTTPClient  *http.Client
	Observer    Observer
}

// Client performs read-only, paginated Canvas API calls either directly or through the relay.
type Client struct {
	cfg  models.APIConfig
	opts Options
	http *http.Client
}

// NewClient builds a Client for the given credentials.
func NewClient(cfg models.APIConfig, opts Options) *Client {
	if opts.Mode != ModeDirect {
		opts.Mode = ModeRelay
	}
	if opts.RelayPrefix == "" {
		opts.RelayPrefix = defaultRelayPrefix
	}
	opts.RelayURL = strings.TrimRight(opts.RelayURL, "/")
	if opts.PerPage <= 0 {
		opts.PerPage = defaultPerPage
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, opts: opts, http: client}
}

// ListActiveCourses returns every course with an active enrollment.
func (c *Client) ListActiveCourses(ctx context.Context) ([]models.Course, error) {
	endpoint := fmt.Sprintf("/courses?enrollment_state=active&per_page=%d", c.opts.PerPage)
	return getAll[models.Course](ctx, c, "courses", endpoint)
}

// ListAssignments returns every assignment of a course ordered by due date.
func (c *Client) ListAssignments(ctx context.Context, courseID int64) ([]models.Assignment, error) {
	endpoint := fmt.Sprintf("/courses/%d/assignments?per_page=%d&order_by=due_at", courseID, c.opts.PerPage)
	return getAll[models.Assignment](ctx, c, "assignments", endpoint)
}

// Ping checks reachability: the relay health endpoint in relay mode, the token owner in direct mode.
func (c *Client) Ping(ctx context.Context) error {
	target := c.opts.RelayURL + c.opts.RelayPrefix + "/health"
	if c.opts.Mode == ModeDirect {
		target = c.cfg.BaseURL + apiVersionPrefix + "/users/self"
	}
	resp, err := c.do(ctx, "ping", target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return appErrors.NewUpstreamError(resp.StatusCode, "", "")
	}
	return nil
}

// getAll follows rel="next" links up to MaxPages. When the cap cuts the listing short the pages
// read so far are returned together with a *PageLimitError.
func getAll[T any](ctx context.Context, c *Client, label, endpoint string) ([]T, error) {
	var out []T
	next := endpoint
	for page := 0; next != ""; page++ {
		if page == c.opts.MaxPages {
			return out, &appErrors.PageLimitError{Resource: label, Pages: page}
		}
		resp, err := c.do(ctx, label, c.resolve(next))
		if err != nil {
			return nil, err
		}
		var batch []T
		err = decode(resp, &batch)
		link := resp.Header.Get("Link")
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		next = c.nextEndpoint(link)
	}
	return out, nil
}

func (c *Client) resolve(endpoint string) string {
	if c.opts.Mode == ModeDirect {
		return c.cfg.BaseURL + apiVersionPrefix + endpoint
	}
	return c.opts.RelayURL + c.opts.RelayPrefix + endpoint
}

func (c *Client) do(ctx context.Context, label, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &appErrors.TransportError{Op: "build request", URL: target, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.opts.Mode == ModeDirect {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	} else {
		req.Header.Set(HeaderCanvasURL, c.cfg.BaseURL)
		req.Header.Set(HeaderAPIKey, c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.opts.Observer != nil {
		c.opts.Observer.ObserveUpstreamRequest(label, status, time.Since(start))
	}
	if err != nil {
		return nil, &appErrors.TransportError{Op: http.MethodGet, URL: redact(target), Err: err}
	}
	return resp, nil
}

func decode(resp *http.Response, dest interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return appErrors.NewUpstreamError(resp.StatusCode, statusText(resp), strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode canvas response: %w", err)
	}
	return nil
}

// nextEndpoint converts the rel="next" link into an endpoint relative to /api/v1.
func (c *Client) nextEndpoint(linkHeader string) string {
	raw := parseNextLink(linkHeader)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := u.Path
	switch {
	case strings.Contains(path, apiVersionPrefix):
		path = path[strings.Index(path, apiVersionPrefix)+len(apiVersionPrefix):]
	case strings.HasPrefix(path, c.opts.RelayPrefix):
		path = strings.TrimPrefix(path, c.opts.RelayPrefix)
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}

func parseNextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if param == `rel="next"` || param == "rel=next" {
				return strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
			}
		}
	}
	return ""
}

func statusText(resp *http.Response) string {
	// resp.Status is "401 Unauthorized"
	if _, text, ok := strings.Cut(resp.Status, " "); ok {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	u.RawQuery = ""
	return u.String()
}
