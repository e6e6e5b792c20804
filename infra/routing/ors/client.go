// Package ors implements routing.Provider on top of the openrouteservice
// directions API.
package ors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/kilianp07/evnav/core/logger"
	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/routing"
)

const (
	defaultBaseURL = "https://api.openrouteservice.org"
	defaultProfile = "driving-car"
	maxBodyBytes   = 8 << 20
)

// Options configures the Client.
type Options struct {
	BaseURL string
	APIKey  string
	Profile string
	Timeout time.Duration
	// RatePerMinute and RateBurst throttle outgoing requests.
	RatePerMinute int
	RateBurst     int
	// Auth, when set, authorizes requests to a self-hosted instance behind
	// an OAuth2 gateway. The API key is then optional.
	Auth Authorizer
}

// Authorizer decorates outgoing requests with credentials.
type Authorizer interface {
	SetAuthHeader(r *http.Request) error
}

// Client fetches driving routes from openrouteservice.
type Client struct {
	baseURL string
	apiKey  string
	profile string
	http    *http.Client
	limiter *rate.Limiter
	auth    Authorizer
	log     logger.Logger
}

var _ routing.Provider = (*Client)(nil)

// NewClient creates a Client. log may be nil.
func NewClient(opts Options, log logger.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Profile == "" {
		opts.Profile = defaultProfile
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RatePerMinute > 0 {
		limit = rate.Limit(float64(opts.RatePerMinute) / 60)
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		profile: opts.Profile,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(limit, opts.RateBurst),
		auth:    opts.Auth,
		log:     logger.OrNop(log),
	}
}

// Route requests directions from start to end. Every failure wraps
// routing.ErrProvider.
func (c *Client) Route(ctx context.Context, start, end model.Point) (model.Route, error) {
	if c.apiKey == "" && c.auth == nil {
		return model.Route{}, fmt.Errorf("%w: api key missing", routing.ErrProvider)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Route{}, fmt.Errorf("%w: %w", routing.ErrProvider, err)
	}

	q := url.Values{}
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	q.Set("start", coord(start))
	q.Set("end", coord(end))
	endpoint := fmt.Sprintf("%s/v2/directions/%s?%s", c.baseURL, url.PathEscape(c.profile), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Route{}, fmt.Errorf("%w: %w", routing.ErrProvider, err)
	}
	req.Header.Set("Accept", "application/json, application/geo+json")
	if c.auth != nil {
		if err := c.auth.SetAuthHeader(req); err != nil {
			return model.Route{}, fmt.Errorf("%w: %w", routing.ErrProvider, err)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return model.Route{}, fmt.Errorf("%w: %w", routing.ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.Route{}, fmt.Errorf("%w: read body: %w", routing.ErrProvider, err)
	}
	c.log.Debugf("directions %s answered %d in %s", c.profile, resp.StatusCode, time.Since(started))

	if resp.StatusCode != http.StatusOK {
		return model.Route{}, fmt.Errorf("%w: status %d: %s", routing.ErrProvider, resp.StatusCode, upstreamMessage(body))
	}
	r, err := Decode(body)
	if err != nil {
		return model.Route{}, fmt.Errorf("%w: %w", routing.ErrProvider, err)
	}
	return r, nil
}

func coord(p model.Point) string {
	return fmt.Sprintf("%g,%g", p.Lon(), p.Lat())
}

func upstreamMessage(body []byte) string {
	var e struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && len(e.Error) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(e.Error, &detail) == nil && detail.Message != "" {
			return detail.Message
		}
		var s string
		if json.Unmarshal(e.Error, &s) == nil {
			return s
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
