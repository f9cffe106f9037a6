package speedhive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dghubble/sling"
	"github.com/google/go-querystring/query"

	"github.com/pfrederiksen/speedhive-tools/internal/config"
	"github.com/pfrederiksen/speedhive-tools/internal/logger"
	"github.com/pfrederiksen/speedhive-tools/internal/metrics"
)

// maxBodySize bounds how much of a response is read.
const maxBodySize = 32 << 20

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GET %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// isRetryableStatus returns true for statuses worth another attempt.
func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client talks to the event results API.
type Client struct {
	base          *sling.Sling
	http          *http.Client
	pageSize      int
	sportCategory string
	retry         config.Retry
	metrics       *metrics.Metrics
	log           *logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithMetrics routes request metrics to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for retries and debug output.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New creates a client from the api and retry configuration sections.
func New(api config.API, retry config.Retry, opts ...Option) *Client {
	c := &Client{
		http:          newHTTPClient(api.Timeout),
		pageSize:      api.PageSize,
		sportCategory: api.SportCategory,
		retry:         retry,
		metrics:       metrics.Default,
		log:           logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pageSize <= 0 {
		c.pageSize = 25
	}
	if c.retry.MaxAttempts < 1 {
		c.retry.MaxAttempts = 1
	}

	base := sling.New().
		Client(c.http).
		Base(strings.TrimRight(api.BaseURL, "/")+"/").
		Set("Accept", "application/json")
	if api.UserAgent != "" {
		base = base.Set("User-Agent", api.UserAgent)
	}
	if api.Token != "" {
		base = base.Set("Authorization", "Bearer "+api.Token)
	}
	c.base = base

	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// PageSize returns the count used for paginated requests.
func (c *Client) PageSize() int {
	return c.pageSize
}

type pageParams struct {
	Count         int    `url:"count"`
	Offset        int    `url:"offset"`
	Sport         string `url:"sport,omitempty"`
	SportCategory string `url:"sportCategory,omitempty"`
}

type eventParams struct {
	Sessions bool `url:"sessions,omitempty"`
}

// GetOrganization fetches one organization.
func (c *Client) GetOrganization(ctx context.Context, orgID int64) (*Organization, error) {
	var org Organization
	if err := c.getJSON(ctx, "organization", "organizations/"+itoa(orgID), nil, &org); err != nil {
		return nil, fmt.Errorf("getting organization %d: %w", orgID, err)
	}
	return &org, nil
}

// ListOrganizationEvents fetches one page of an organization's events.
func (c *Client) ListOrganizationEvents(ctx context.Context, orgID int64, offset, count int) ([]Event, error) {
	params := &pageParams{Count: count, Offset: offset, SportCategory: c.sportCategory}
	body, err := c.get(ctx, "organization_events", "organizations/"+itoa(orgID)+"/events", params)
	if err != nil {
		return nil, fmt.Errorf("listing events for organization %d: %w", orgID, err)
	}
	events, err := decodeList[Event](body, "events", "items", "data")
	if err != nil {
		return nil, fmt.Errorf("parsing events for organization %d: %w", orgID, err)
	}
	return events, nil
}

// EachOrganizationEvent pages through all of an organization's events and
// calls fn for each. Paging stops at an empty or short page, when fn
// returns an error, or after max events when max is positive.
func (c *Client) EachOrganizationEvent(ctx context.Context, orgID int64, max int, fn func(Event) error) error {
	return c.paginate(ctx, max, func(offset, count int) ([]Event, error) {
		return c.ListOrganizationEvents(ctx, orgID, offset, count)
	}, fn)
}

// OrganizationEvents returns all of an organization's events, up to max
// when max is positive.
func (c *Client) OrganizationEvents(ctx context.Context, orgID int64, max int) ([]Event, error) {
	var events []Event
	err := c.EachOrganizationEvent(ctx, orgID, max, func(e Event) error {
		events = append(events, e)
		return nil
	})
	return events, err
}

// ListEvents fetches one page of public events across all organizations.
func (c *Client) ListEvents(ctx context.Context, offset, count int) ([]Event, error) {
	params := &pageParams{Count: count, Offset: offset, Sport: "All", SportCategory: c.sportCategory}
	body, err := c.get(ctx, "events", "events", params)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	events, err := decodeList[Event](body, "events", "items", "data")
	if err != nil {
		return nil, fmt.Errorf("parsing events: %w", err)
	}
	return events, nil
}

// FindOrganizations scans up to maxEvents public events for organizations
// whose name contains name, case-insensitively. Results are sorted by name.
func (c *Client) FindOrganizations(ctx context.Context, name string, maxEvents int) ([]Organization, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	found := make(map[int64]Organization)

	err := c.paginate(ctx, maxEvents, func(offset, count int) ([]Event, error) {
		return c.ListEvents(ctx, offset, count)
	}, func(e Event) error {
		if e.Organization == nil {
			return nil
		}
		org := *e.Organization
		id := org.ResolvedID()
		if id == 0 || !strings.Contains(strings.ToLower(org.Name), needle) {
			return nil
		}
		found[id] = org
		return nil
	})
	if err != nil {
		return nil, err
	}

	orgs := make([]Organization, 0, len(found))
	for _, org := range found {
		orgs = append(orgs, org)
	}
	sort.Slice(orgs, func(i, j int) bool {
		if orgs[i].Name != orgs[j].Name {
			return orgs[i].Name < orgs[j].Name
		}
		return orgs[i].ResolvedID() < orgs[j].ResolvedID()
	})
	return orgs, nil
}

// GetEvent fetches one event, optionally with its session tree.
func (c *Client) GetEvent(ctx context.Context, eventID int64, withSessions bool) (*Event, error) {
	var event Event
	params := &eventParams{Sessions: withSessions}
	if err := c.getJSON(ctx, "event", "events/"+itoa(eventID), params, &event); err != nil {
		return nil, fmt.Errorf("getting event %d: %w", eventID, err)
	}
	return &event, nil
}

// EventSessions returns every session of an event, including sessions
// nested in groups and subgroups.
func (c *Client) EventSessions(ctx context.Context, eventID int64) ([]Session, error) {
	event, err := c.GetEvent(ctx, eventID, true)
	if err != nil {
		return nil, err
	}
	return event.Sessions.All(), nil
}

// SessionAnnouncements returns the announcement rows of a session.
func (c *Client) SessionAnnouncements(ctx context.Context, sessionID int64) ([]Announcement, error) {
	body, err := c.get(ctx, "session_announcements", "sessions/"+itoa(sessionID)+"/announcements", nil)
	if err != nil {
		return nil, fmt.Errorf("getting announcements for session %d: %w", sessionID, err)
	}
	rows, err := decodeList[Announcement](body, "rows", "announcements", "items")
	if err != nil {
		return nil, fmt.Errorf("parsing announcements for session %d: %w", sessionID, err)
	}
	return rows, nil
}

// SessionLaps returns the laps driven by the competitor finishing in
// position within a session.
func (c *Client) SessionLaps(ctx context.Context, sessionID int64, position int) ([]LapRow, error) {
	path := "sessions/" + itoa(sessionID) + "/lapdata/" + strconv.Itoa(position) + "/laps"
	body, err := c.get(ctx, "session_laps", path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting laps for session %d position %d: %w", sessionID, position, err)
	}
	laps, err := decodeList[LapRow](body, "laps", "rows")
	if err != nil {
		return nil, fmt.Errorf("parsing laps for session %d: %w", sessionID, err)
	}
	return laps, nil
}

// SessionClassification returns the results table of a session.
func (c *Client) SessionClassification(ctx context.Context, sessionID int64) ([]ClassificationRow, error) {
	body, err := c.get(ctx, "session_classification", "sessions/"+itoa(sessionID)+"/classification", nil)
	if err != nil {
		return nil, fmt.Errorf("getting classification for session %d: %w", sessionID, err)
	}
	rows, err := decodeList[ClassificationRow](body, "rows", "classification")
	if err != nil {
		return nil, fmt.Errorf("parsing classification for session %d: %w", sessionID, err)
	}
	return rows, nil
}

// ServerTime returns the API server's clock as reported by /time.
func (c *Client) ServerTime(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "time", "time", nil)
	if err != nil {
		return "", fmt.Errorf("getting server time: %w", err)
	}
	var t FlexString
	if err := json.Unmarshal(body, &t); err != nil {
		return strings.TrimSpace(string(body)), nil
	}
	return string(t), nil
}

// paginate walks offset/count pages until a page is empty or short, or
// until max items were delivered when max is positive.
func (c *Client) paginate(ctx context.Context, max int, page func(offset, count int) ([]Event, error), fn func(Event) error) error {
	offset := 0
	delivered := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		events, err := page(offset, c.pageSize)
		if err != nil {
			return err
		}
		for _, e := range events {
			if err := fn(e); err != nil {
				return err
			}
			delivered++
			if max > 0 && delivered >= max {
				return nil
			}
		}
		if len(events) < c.pageSize {
			return nil
		}
		offset += c.pageSize
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, params interface{}, out interface{}) error {
	body, err := c.get(ctx, endpoint, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// get performs a GET with retries and returns the response body.
func (c *Client) get(ctx context.Context, endpoint, path string, params interface{}) ([]byte, error) {
	var rawQuery string
	if params != nil {
		values, err := query.Values(params)
		if err != nil {
			return nil, fmt.Errorf("encoding query: %w", err)
		}
		rawQuery = values.Encode()
	}
	c.log.Debug("API request", logger.Fields{"endpoint": endpoint, "path": path, "query": rawQuery})

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			c.metrics.ObserveRetry(endpoint)
		}

		req, err := c.base.New().Get(path).Request()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building request: %w", err))
		}
		req.URL.RawQuery = rawQuery
		req = req.WithContext(ctx)

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			c.metrics.ObserveRequest(endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("requesting %s: %w", req.URL, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		c.metrics.ObserveRequest(endpoint, resp.StatusCode, time.Since(start))
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body = data
			return nil
		}

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			URL:        req.URL.String(),
			Body:       truncate(strings.TrimSpace(string(data)), 300),
		}
		if isRetryableStatus(resp.StatusCode) {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	notify := func(err error, wait time.Duration) {
		c.log.Warn("Retrying API request", logger.Fields{
			"endpoint": endpoint,
			"attempt":  attempt,
			"wait":     wait.String(),
			"error":    err.Error(),
		})
	}

	if err := backoff.RetryNotify(op, c.newBackOff(ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.InitialDelay
	b.MaxInterval = c.retry.MaxDelay
	if c.retry.Multiplier >= 1 {
		b.Multiplier = c.retry.Multiplier
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retry.MaxAttempts-1)), ctx)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
