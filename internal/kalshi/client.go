// Package kalshi fetches open markets from the Kalshi trade API.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rewired-gh/gapsentry/internal/models"
)

// Client provides access to the Kalshi trade API.
type Client struct {
	apiURL         string
	limit          int
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// marketsResponse is the envelope of the /markets endpoint.
type marketsResponse struct {
	Markets []kalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

// kalshiMarket represents one market record. Prices are quoted in cents.
type kalshiMarket struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	Category  string `json:"category"`
	Status    string `json:"status"`
	YesAsk    int    `json:"yes_ask"`
	LastPrice int    `json:"last_price"`
}

// NewClient creates a new Kalshi client.
func NewClient(apiURL string, limit int, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		apiURL: apiURL,
		limit:  limit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// FetchActiveMarkets retrieves open markets and converts them into the
// platform-neutral market form. Malformed records are skipped.
func (c *Client) FetchActiveMarkets(ctx context.Context) ([]models.Market, error) {
	u, err := url.Parse(c.apiURL + "/markets")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("status", "open")
	q.Set("limit", fmt.Sprintf("%d", c.limit))
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, &models.FetchError{Source: "kalshi", Err: err}
	}
	defer resp.Body.Close()

	var body marketsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &models.FetchError{Source: "kalshi", Err: fmt.Errorf("failed to decode markets: %w", err)}
	}

	return convertMarkets(body.Markets, time.Now().UTC()), nil
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
