package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the public card database endpoint.
const DefaultBaseURL = "https://db.ygoprodeck.com/api/v7/cardinfo.php"

// maxResponseBytes caps how much of a response body is decoded.
const maxResponseBytes = 8 << 20

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent" json:"user_agent"`
	Breaker   BreakerConfig `mapstructure:"breaker" yaml:"breaker" json:"breaker"`
}

// DefaultHTTPConfig returns the public endpoint with a 3 second timeout.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		BaseURL:   DefaultBaseURL,
		Timeout:   3 * time.Second,
		UserAgent: "cardscan",
		Breaker:   DefaultBreakerConfig(),
	}
}

// HTTPClient queries a cardinfo endpoint. Client errors (4xx) mean "no such
// card" and yield an empty result; server errors, transport failures and
// timeouts are returned as errors and trip the circuit breaker.
type HTTPClient struct {
	cfg     HTTPConfig
	client  *http.Client
	breaker *Breaker
}

// NewHTTPClient creates a client. A nil hc uses a fresh http.Client.
func NewHTTPClient(cfg HTTPConfig, hc *http.Client) *HTTPClient {
	def := DefaultHTTPConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if hc == nil {
		hc = &http.Client{}
	}
	b := NewBreaker(cfg.Breaker).WithHook(func(_, to BreakerState) {
		breakerState.Set(float64(to))
	})
	return &HTTPClient{cfg: cfg, client: hc, breaker: b}
}

// Breaker exposes the client's circuit breaker.
func (c *HTTPClient) Breaker() *Breaker { return c.breaker }

// Search queries the fuzzy-name endpoint.
func (c *HTTPClient) Search(ctx context.Context, query string) ([]Candidate, error) {
	return c.fetch(ctx, "fname", query)
}

// Lookup queries the exact-name endpoint.
func (c *HTTPClient) Lookup(ctx context.Context, name string) ([]Candidate, error) {
	return c.fetch(ctx, "name", name)
}

func (c *HTTPClient) fetch(ctx context.Context, param, value string) ([]Candidate, error) {
	if value == "" {
		return nil, nil
	}
	if err := c.breaker.Allow(); err != nil {
		requestsTotal.WithLabelValues(param, "rejected").Inc()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("misc", "yes")
	q.Set(param, value)
	endpoint := c.cfg.BaseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	requestDuration.WithLabelValues(param).Observe(time.Since(start).Seconds())
	if err != nil {
		c.breaker.Failure()
		requestsTotal.WithLabelValues(param, "error").Inc()
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		c.breaker.Failure()
		requestsTotal.WithLabelValues(param, "error").Inc()
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		c.breaker.Success()
		requestsTotal.WithLabelValues(param, "empty").Inc()
		slog.Debug("Catalog has no match", "param", param, "value", value, "status", resp.StatusCode)
		return nil, nil
	}

	var payload wireResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		c.breaker.Failure()
		requestsTotal.WithLabelValues(param, "error").Inc()
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	c.breaker.Success()

	cards := payload.toCandidates()
	outcome := "ok"
	if len(cards) == 0 {
		outcome = "empty"
	}
	requestsTotal.WithLabelValues(param, outcome).Inc()
	return cards, nil
}
