package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrTimeout  = errors.New("openlibrary: request timed out")
	ErrNetwork  = errors.New("openlibrary: network error")
	ErrNotFound = errors.New("openlibrary: not found")
	ErrUpstream = errors.New("openlibrary: upstream error")
)

// StatusError is returned for any non-2xx response. It matches ErrNotFound
// for 404 and ErrUpstream for everything else.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openlibrary: unexpected status code: %d (%s)", e.StatusCode, e.URL)
}

func (e *StatusError) Is(target error) bool {
	if e.StatusCode == http.StatusNotFound {
		return target == ErrNotFound
	}
	return target == ErrUpstream
}

const (
	DefaultBaseURL       = "https://openlibrary.org"
	DefaultBookTimeout   = 10 * time.Second
	DefaultAuthorTimeout = 5 * time.Second
)

type Config struct {
	BaseURL       string
	UserAgent     string
	BookTimeout   time.Duration
	AuthorTimeout time.Duration
	// RPS caps outgoing requests per second; 0 disables the limit.
	RPS float64
}

type Client struct {
	httpClient    *http.Client
	userAgent     string
	baseURL       string
	limiter       *rate.Limiter
	bookTimeout   time.Duration
	authorTimeout time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.BookTimeout <= 0 {
		cfg.BookTimeout = DefaultBookTimeout
	}
	if cfg.AuthorTimeout <= 0 {
		cfg.AuthorTimeout = DefaultAuthorTimeout
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &Client{
		// Timeouts are applied per call through the request context.
		httpClient:    &http.Client{},
		userAgent:     cfg.UserAgent,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		limiter:       rate.NewLimiter(limit, 1),
		bookTimeout:   cfg.BookTimeout,
		authorTimeout: cfg.AuthorTimeout,
	}
}

// Edition matches isbn/{isbn}.json. Nil fields were absent from the payload.
type Edition struct {
	Title   *string     `json:"title"`
	Authors []AuthorRef `json:"authors"`
}

type AuthorRef struct {
	Key *string `json:"key"`
}

// AuthorDetails matches {author_key}.json.
type AuthorDetails struct {
	Name *string `json:"name"`
}

func (c *Client) GetEdition(ctx context.Context, isbn string) (*Edition, error) {
	u := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, url.PathEscape(isbn))

	var res Edition
	if err := c.get(ctx, u, c.bookTimeout, isSuccess, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetAuthor(ctx context.Context, authorKey string) (*AuthorDetails, error) {
	u := c.baseURL + authorPath(authorKey) + ".json"

	var res AuthorDetails
	if err := c.get(ctx, u, c.authorTimeout, isOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// authorPath accepts both "/authors/OL123A" and a bare "OL123A".
// Every segment is path-escaped.
func authorPath(key string) string {
	if !strings.HasPrefix(key, "/") {
		return "/authors/" + url.PathEscape(key)
	}
	segments := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "/" + strings.Join(segments, "/")
}

// Edition lookups accept any 2xx; author lookups only 200.
func isSuccess(status int) bool { return status >= 200 && status <= 299 }

func isOK(status int) bool { return status == http.StatusOK }

func (c *Client) get(ctx context.Context, url string, timeout time.Duration, accept func(int) bool, target any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if !accept(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: decode %s: %v", ErrUpstream, url, err)
	}
	return nil
}

func classify(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
