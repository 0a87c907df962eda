// Package coingecko fetches token spot prices, the metric source for
// price alerts.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chainpulse/internal/config"
	"chainpulse/internal/metrics"
	"chainpulse/internal/ratelimit"
	"chainpulse/internal/upstream"
)

const apiName = "coingecko"

// Client handles communication with the CoinGecko simple-price API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewClient creates a CoinGecko client.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.CoingeckoBaseURL,
		httpClient: &http.Client{Timeout: cfg.ProviderTimeout},
		limiter:    ratelimit.New(cfg.CoingeckoRPS),
	}
}

// GetPriceUSD returns the current USD price for a CoinGecko token id
// (e.g. "ethereum"). Token ids are matched case-insensitively.
func (c *Client) GetPriceUSD(ctx context.Context, tokenID string) (float64, error) {
	prices, err := c.GetPricesUSD(ctx, []string{tokenID})
	if err != nil {
		return 0, err
	}

	price, ok := prices[strings.ToLower(tokenID)]
	if !ok {
		return 0, &upstream.NotFoundError{Identifier: tokenID}
	}
	return price, nil
}

// GetPricesUSD fetches USD prices for several token ids in one request,
// used by the scheduler to batch the distinct tokens of a tick.
func (c *Client) GetPricesUSD(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	ids := make([]string, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		ids = append(ids, strings.ToLower(strings.TrimSpace(id)))
	}

	u, err := url.Parse(c.baseURL + "/simple/price")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	u.RawQuery = q.Encode()

	start := time.Now()
	var callErr error
	defer func() {
		metrics.RecordProviderRequest(apiName, "/simple/price", time.Since(start), callErr)
	}()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		callErr = err
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		callErr = upstream.WrapTransport(apiName, err)
		return nil, callErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		callErr = &upstream.ProviderError{API: apiName, Status: resp.StatusCode, Message: string(body)}
		return nil, callErr
	}

	var decoded map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		callErr = err
		return nil, fmt.Errorf("decode response: %w", err)
	}

	prices := make(map[string]float64, len(decoded))
	for id, currencies := range decoded {
		prices[id] = currencies["usd"]
	}
	return prices, nil
}
