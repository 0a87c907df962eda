// Package nodit is the gateway to the Nodit Web3 Data API, the provider
// behind the dashboard's multi-chain queries.
package nodit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chainpulse/internal/chain"
	"chainpulse/internal/config"
	"chainpulse/internal/metrics"
	"chainpulse/internal/ratelimit"
	"chainpulse/internal/tokens"
	"chainpulse/internal/upstream"
)

const apiName = "nodit"

// Params carries the caller-supplied request parameters. Which fields are
// required depends on (method, chain); Call validates before any I/O.
type Params struct {
	AccountAddress  string
	TokenSymbol     string
	ContractAddress string
	TokenID         string
}

// Client builds and executes per-chain, per-method Nodit requests.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	resolver   *tokens.Resolver
	now        func() time.Time
}

// NewClient creates a Nodit client. The resolver is used to turn token
// symbols into contract addresses for price lookups.
func NewClient(cfg *config.Config, resolver *tokens.Resolver) *Client {
	return &Client{
		baseURL:    cfg.NoditBaseURL,
		apiKey:     cfg.NoditAPIKey,
		httpClient: &http.Client{Timeout: cfg.ProviderTimeout},
		limiter:    ratelimit.New(cfg.NoditRPS),
		resolver:   resolver,
		now:        time.Now,
	}
}

// Call validates the (method, chain, params) combination, builds the
// provider request, and returns the raw payload. It has no side effects
// beyond the outbound request.
func (c *Client) Call(ctx context.Context, method chain.Method, id chain.ID, params Params) (json.RawMessage, error) {
	endpoint, body, err := c.buildRequest(method, id, params)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	return c.post(ctx, endpoint, body)
}

func (c *Client) buildRequest(method chain.Method, id chain.ID, params Params) (string, map[string]interface{}, error) {
	if !id.Supports(method) {
		return "", nil, upstream.NewValidationError("method %s is not supported on chain %s", method, id)
	}

	if id.Family == chain.FamilyEthereum {
		return c.buildEthereumRequest(method, id, params)
	}

	// Remaining families expose a single generic transactions-by-account call.
	if params.AccountAddress == "" {
		return "", nil, upstream.NewValidationError("accountAddress is required for %s", method)
	}
	endpoint := fmt.Sprintf("%s/%s/blockchain/getTransactionsByAccount", id.Family, id.Network)
	body := map[string]interface{}{
		"accountAddress": params.AccountAddress,
	}
	return endpoint, body, nil
}

func (c *Client) buildEthereumRequest(method chain.Method, id chain.ID, params Params) (string, map[string]interface{}, error) {
	prefix := fmt.Sprintf("ethereum/%s", id.Network)
	now := c.now()

	switch method {
	case chain.MethodTokenTransfersByAccount:
		if params.AccountAddress == "" {
			return "", nil, upstream.NewValidationError("accountAddress is required for %s", method)
		}
		// Fixed 30-day lookback, computed at call time.
		return prefix + "/token/getTokenTransfersByAccount", map[string]interface{}{
			"accountAddress": params.AccountAddress,
			"fromDate":       now.Add(-30 * 24 * time.Hour).UTC().Format(time.RFC3339),
			"toDate":         now.UTC().Format(time.RFC3339),
		}, nil

	case chain.MethodTokenPricesByContracts:
		contract := params.ContractAddress
		if contract == "" {
			resolved, err := c.resolver.Resolve(params.TokenSymbol)
			if err != nil {
				return "", nil, err
			}
			contract = resolved
		}
		return prefix + "/token/getTokenPricesByContracts", map[string]interface{}{
			"contractAddresses": []string{contract},
		}, nil

	case chain.MethodNftMetadataByTokenIds:
		if params.ContractAddress == "" || params.TokenID == "" {
			return "", nil, upstream.NewValidationError("contractAddress and tokenId are required for %s", method)
		}
		return prefix + "/nft/getNftMetadataByTokenIds", map[string]interface{}{
			"tokens": []map[string]string{
				{"contractAddress": params.ContractAddress, "tokenId": params.TokenID},
			},
		}, nil

	case chain.MethodDailyTransactionsStats:
		// Prior-2-days through prior-1-day window; the provider only has
		// complete counts for fully elapsed days.
		return prefix + "/stats/getDailyTransactionsStats", map[string]interface{}{
			"startDate": now.Add(-48 * time.Hour).UTC().Format("2006-01-02"),
			"endDate":   now.Add(-24 * time.Hour).UTC().Format("2006-01-02"),
		}, nil

	default:
		return "", nil, upstream.NewValidationError("method %s is not supported on chain %s", method, id)
	}
}

func (c *Client) post(ctx context.Context, endpoint string, body map[string]interface{}) (json.RawMessage, error) {
	start := time.Now()
	var callErr error
	defer func() {
		metrics.RecordProviderRequest(apiName, endpoint, time.Since(start), callErr)
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		callErr = err
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		callErr = err
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		callErr = upstream.WrapTransport(apiName, err)
		return nil, callErr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		callErr = err
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		callErr = &upstream.ProviderError{
			API:     apiName,
			Status:  resp.StatusCode,
			Message: upstreamMessage(respBody),
		}
		return nil, callErr
	}

	return respBody, nil
}

// upstreamMessage pulls a human-readable error out of a provider error
// body, falling back to the raw body.
func upstreamMessage(body []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return string(body)
}
