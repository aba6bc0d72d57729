// Package httpprovider implements provider.Provider against a real
// live-score HTTP endpoint, rate-limited per the teacher's EODHD/Navexa
// client pattern (internal/clients/eodhd, internal/clients/navexa).
package httpprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/primaltree/piratenation/internal/common"
	"github.com/primaltree/piratenation/internal/matchstate"
)

const (
	// DefaultTimeout bounds a single GetLiveScore round trip.
	DefaultTimeout = 10 * time.Second
	// DefaultRateLimit caps outbound requests per second per Client.
	DefaultRateLimit = 5
)

// liveScoreResponse mirrors the provider's wire shape. An HTTP 204 or an
// empty body means "no data" (spec §4.1): transient unavailability, not a
// terminal signal.
type liveScoreResponse struct {
	MatchID   string `json:"match_id"`
	Home      string `json:"home"`
	Away      string `json:"away"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	Status    string `json:"status"`
	Minute    int    `json:"minute"`
}

// Client is an HTTP-backed live-score provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *common.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRateLimit overrides the default requests-per-second cap.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout overrides the default per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// New creates an HTTP live-score provider against baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     common.NewSilentLogger(),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetLiveScore implements provider.Provider.
func (c *Client) GetLiveScore(ctx context.Context, matchID string) (*matchstate.MatchState, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("match_id", matchID)
	reqURL := fmt.Sprintf("%s/live-score?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("match_id", matchID).Str("url", reqURL).Msg("live-score request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("live-score provider returned status %d for match %s", resp.StatusCode, matchID)
	}

	var wire liveScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if wire.MatchID == "" {
		return nil, nil
	}

	return &matchstate.MatchState{
		MatchID:   wire.MatchID,
		Home:      wire.Home,
		Away:      wire.Away,
		HomeScore: wire.HomeScore,
		AwayScore: wire.AwayScore,
		Status:    matchstate.Status(wire.Status),
		Minute:    wire.Minute,
	}, nil
}
