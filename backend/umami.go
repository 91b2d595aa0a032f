package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Metrics are always requested over an open-ended range so counts cover the
// whole lifetime of the website.
const (
	metricsStartAt = "0"
	metricsEndAt   = "9999999999999"
)

// Credentials are the analytics account used to obtain session tokens.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginUser is the account information returned alongside a login token.
type LoginUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	IsAdmin   bool      `json:"isAdmin"`
}

// LoginResponse is the body of a successful POST /api/auth/login.
type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// UmamiClient talks to an Umami analytics instance. It keeps no state between
// calls; the session token is owned by the caller.
type UmamiClient struct {
	baseURL string
	pool    *Pool
}

// Verify checks that token is still accepted and returns it unchanged.
// An empty token fails with ErrUnauthorized without contacting the backend,
// as does any non-2xx verification response.
func (c *UmamiClient) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	err := c.pool.doJSON(ctx, request{
		method: http.MethodGet,
		url:    c.baseURL + "/api/auth/verify",
		token:  token,
	}, nil)
	if err != nil {
		if status, ok := statusOf(err); ok {
			return "", fmt.Errorf("%w: verify returned %d", ErrUnauthorized, status)
		}
		return "", err
	}
	return token, nil
}

// Login exchanges credentials for a session token.
func (c *UmamiClient) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.pool.doJSON(ctx, request{
		method: http.MethodPost,
		url:    c.baseURL + "/api/auth/login",
		body:   creds,
	}, &resp); err != nil {
		return nil, fmt.Errorf("analytics login: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: login response carried no token", ErrDecode)
	}
	slog.Info("logged in to analytics", "username", resp.User.Username, "role", resp.User.Role)
	return &resp, nil
}

// metricRow is one path/count pair from the metrics endpoint. Depending on
// the Umami version a row is shaped {x, y} or {name, pageviews}.
type metricRow struct {
	X string
	Y count
}

func (r *metricRow) UnmarshalJSON(b []byte) error {
	var raw struct {
		X         *string `json:"x"`
		Name      *string `json:"name"`
		Y         *count  `json:"y"`
		Pageviews *count  `json:"pageviews"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch {
	case raw.X != nil:
		r.X = *raw.X
	case raw.Name != nil:
		r.X = *raw.Name
	default:
		return fmt.Errorf("metrics row %s has no path", string(b))
	}
	switch {
	case raw.Y != nil:
		r.Y = *raw.Y
	case raw.Pageviews != nil:
		r.Y = *raw.Pageviews
	default:
		return fmt.Errorf("metrics row %s has no count", string(b))
	}
	return nil
}

// count accepts a JSON number or a numeric string.
type count uint64

func (c *count) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid pageview count %s: %w", string(b), err)
	}
	*c = count(n)
	return nil
}

func (c *UmamiClient) metrics(ctx context.Context, token, websiteID string, filter url.Values) ([]metricRow, error) {
	q := url.Values{
		"type":    {"url"},
		"startAt": {metricsStartAt},
		"endAt":   {metricsEndAt},
	}
	for k, v := range filter {
		q[k] = v
	}
	var rows []metricRow
	err := c.pool.doJSON(ctx, request{
		method: http.MethodGet,
		url:    c.baseURL + "/api/websites/" + url.PathEscape(websiteID) + "/metrics",
		query:  q,
		token:  token,
	}, &rows)
	if err != nil {
		if status, ok := statusOf(err); ok && status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, err
	}
	return rows, nil
}

// PageviewsForPath returns the all-time pageview count for one URL path.
// ErrNotFound is returned when the backend has no rows for the path.
func (c *UmamiClient) PageviewsForPath(ctx context.Context, token, websiteID, path string) (uint64, error) {
	rows, err := c.metrics(ctx, token, websiteID, url.Values{"url": {path}})
	if err != nil {
		return 0, err
	}
	var (
		total uint64
		found bool
	)
	for _, r := range rows {
		if r.X == path {
			total += uint64(r.Y)
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: no pageviews recorded for %s", ErrNotFound, path)
	}
	return total, nil
}

// PageviewsForPrefix returns all-time pageview counts for every path under
// prefix. Paths the backend has never seen are simply absent from the map.
func (c *UmamiClient) PageviewsForPrefix(ctx context.Context, token, websiteID, prefix string) (map[string]uint64, error) {
	rows, err := c.metrics(ctx, token, websiteID, url.Values{"search": {prefix}})
	if err != nil {
		return nil, err
	}
	views := make(map[string]uint64, len(rows))
	for _, r := range rows {
		if !strings.HasPrefix(r.X, prefix) {
			continue
		}
		views[r.X] += uint64(r.Y)
	}
	return views, nil
}
