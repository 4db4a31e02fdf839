// Package polymarket fetches active markets from the Polymarket Gamma API.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rewired-gh/gapsentry/internal/models"
)

// Client provides access to the Polymarket Gamma API.
type Client struct {
	gammaAPIURL    string
	limit          int
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// gammaEvent represents an event from the Gamma API.
type gammaEvent struct {
	ID         string        `json:"id"`
	Slug       string        `json:"slug"`
	Title      string        `json:"title"`
	Category   string        `json:"category"`
	Active     bool          `json:"active"`
	Closed     bool          `json:"closed"`
	Volume24hr float64       `json:"volume24hr"`
	Markets    []gammaMarket `json:"markets"`
}

// gammaMarket represents one market inside a Gamma event.
type gammaMarket struct {
	ID             string  `json:"id"`
	Question       string  `json:"question"`
	Outcomes       string  `json:"outcomes"`      // JSON string: "[\"Yes\", \"No\"]"
	OutcomePrices  string  `json:"outcomePrices"` // JSON string: "[\"0.75\", \"0.25\"]"
	BestAsk        float64 `json:"bestAsk"`
	LastTradePrice float64 `json:"lastTradePrice"`
}

// NewClient creates a new Polymarket client.
func NewClient(gammaAPIURL string, limit int, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		gammaAPIURL: gammaAPIURL,
		limit:       limit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// FetchActiveMarkets retrieves active events ordered by 24h volume and
// converts them into the platform-neutral market form. Malformed records are
// skipped; already resolved markets still listed as active are dropped.
func (c *Client) FetchActiveMarkets(ctx context.Context) ([]models.Market, error) {
	u, err := url.Parse(c.gammaAPIURL + "/events")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("limit", fmt.Sprintf("%d", c.limit))
	q.Set("order", "volume24hr")
	q.Set("ascending", "false")
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, &models.FetchError{Source: "polymarket", Err: err}
	}
	defer resp.Body.Close()

	// Response is an array directly, not wrapped
	var events []gammaEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, &models.FetchError{Source: "polymarket", Err: fmt.Errorf("failed to decode events: %w", err)}
	}

	return convertEvents(events, time.Now().UTC()), nil
}

// doRequest performs an HTTP GET with linear-backoff retry.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
