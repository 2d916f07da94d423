// Package ustvgo talks to the upstream schedule source. One JSON document
// per channel, keyed by the channel's upstream lookup key.
package ustvgo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkaindl/epggen/internal/cache"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/102.0.5005.63 Safari/537.36"

	// Upstream occasionally returns multi-megabyte blobs on errors; cap reads.
	maxPayloadSize = 8 * 1024 * 1024

	cacheTTL = 30 * time.Minute
)

// Program is one raw schedule record as the upstream returns it.
// Timestamps are unix seconds; the wall-clock string fields are redundant
// and ignored downstream.
type Program struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	StartTimestamp int64  `json:"start_timestamp"`
	EndTimestamp   int64  `json:"end_timestamp"`
	Image          string `json:"image"`
	Day            string `json:"day"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

// schedulePayload matches the upstream document: records grouped by day.
type schedulePayload struct {
	Items map[string][]Program `json:"items"`
}

// Client fetches per-channel schedule listings.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	cache   cache.Cache
	now     func() time.Time
}

// Options tunes the client. Zero values pick sane defaults.
type Options struct {
	Timeout       time.Duration // per-request deadline
	RatePerSecond int           // outbound request rate limit
	Cache         cache.Cache   // optional payload cache
	HTTPClient    *http.Client  // optional, for tests
	Now           func() time.Time
}

// New creates a schedule client for the given upstream base URL.
func New(base string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := opts.RatePerSecond
	if rps <= 0 {
		rps = 20
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		cache:   opts.Cache,
		now:     now,
	}
}

// scheduleURL builds the per-channel endpoint. The timestamp query parameter
// is a cache buster the upstream expects; it is excluded from the cache key.
func (c *Client) scheduleURL(lookupKey string) (requestURL, cacheKey string) {
	cacheKey = fmt.Sprintf("%s/epg/json/%s.json", c.base, url.PathEscape(lookupKey))
	requestURL = fmt.Sprintf("%s?_=%d", cacheKey, c.now().Unix())
	return requestURL, cacheKey
}

// Schedule fetches and decodes the raw listing for one channel. The returned
// records are flattened across days in stable day order; no further
// normalization happens here.
func (c *Client) Schedule(ctx context.Context, lookupKey string) ([]Program, error) {
	op := "schedule " + lookupKey

	requestURL, cacheKey := c.scheduleURL(lookupKey)
	if c.cache != nil {
		if body, ok := c.cache.Get(cacheKey); ok {
			return parseSchedule(op, body)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyTransport(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ustvgo: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.base+"/")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(op, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Sentinel: ErrUnexpectedStatus, Operation: op, Status: res.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPayloadSize))
	if err != nil {
		return nil, classifyTransport(op, err)
	}
	if len(body) == 0 {
		return nil, &UpstreamError{Sentinel: ErrEmptyResponse, Operation: op}
	}

	programs, err := parseSchedule(op, body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, body, cacheTTL)
	}
	return programs, nil
}

// parseSchedule decodes the grouped-by-day payload and flattens it.
// Day keys are iterated in sorted order so the result is deterministic.
func parseSchedule(op string, body []byte) ([]Program, error) {
	var payload schedulePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &UpstreamError{Sentinel: ErrBadPayload, Operation: op, Err: err}
	}

	days := make([]string, 0, len(payload.Items))
	for day := range payload.Items {
		days = append(days, day)
	}
	sort.Strings(days)

	var programs []Program
	for _, day := range days {
		programs = append(programs, payload.Items[day]...)
	}
	return programs, nil
}
