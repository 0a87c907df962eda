// Package ethrpc reads the current Ethereum gas price over JSON-RPC, with
// an Etherscan gas-oracle fallback.
package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"chainpulse/internal/config"
	"chainpulse/internal/metrics"
	"chainpulse/internal/upstream"
)

const apiName = "ethrpc"

// Client fetches the network gas price in gwei.
type Client struct {
	rpcURL          string
	etherscanURL    string
	etherscanAPIKey string
	httpClient      *http.Client
}

// NewClient creates a gas price client.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		rpcURL:          cfg.EthRPCURL,
		etherscanURL:    cfg.EtherscanBaseURL,
		etherscanAPIKey: cfg.EtherscanAPIKey,
		httpClient:      &http.Client{Timeout: cfg.ProviderTimeout},
	}
}

// GasPriceGwei returns the current gas price. The JSON-RPC endpoint is
// preferred; if it is unset or fails, the Etherscan gas oracle is tried
// before giving up.
func (c *Client) GasPriceGwei(ctx context.Context) (float64, error) {
	if c.rpcURL != "" {
		gwei, err := c.gasPriceRPC(ctx)
		if err == nil {
			return gwei, nil
		}
	}

	if c.etherscanAPIKey != "" {
		return c.gasPriceEtherscan(ctx)
	}

	return 0, &upstream.ProviderError{API: apiName, Message: "no gas price source configured or reachable"}
}

func (c *Client) gasPriceRPC(ctx context.Context) (float64, error) {
	start := time.Now()
	var callErr error
	defer func() {
		metrics.RecordProviderRequest(apiName, "eth_gasPrice", time.Since(start), callErr)
	}()

	payload, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "eth_gasPrice",
		"params":  []interface{}{},
		"id":      1,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		callErr = err
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		callErr = upstream.WrapTransport(apiName, err)
		return 0, callErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		callErr = &upstream.ProviderError{API: apiName, Status: resp.StatusCode, Message: string(body)}
		return 0, callErr
	}

	var decoded struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		callErr = err
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		callErr = &upstream.ProviderError{API: apiName, Message: decoded.Error.Message}
		return 0, callErr
	}

	wei, err := strconv.ParseUint(hexTrim(decoded.Result), 16, 64)
	if err != nil {
		callErr = err
		return 0, fmt.Errorf("parse gas price %q: %w", decoded.Result, err)
	}

	return float64(wei) / 1e9, nil
}

func (c *Client) gasPriceEtherscan(ctx context.Context) (float64, error) {
	start := time.Now()
	var callErr error
	defer func() {
		metrics.RecordProviderRequest(apiName, "gasoracle", time.Since(start), callErr)
	}()

	u, err := url.Parse(c.etherscanURL)
	if err != nil {
		callErr = err
		return 0, fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	q.Set("module", "gastracker")
	q.Set("action", "gasoracle")
	q.Set("apikey", c.etherscanAPIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		callErr = err
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		callErr = upstream.WrapTransport(apiName, err)
		return 0, callErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		callErr = &upstream.ProviderError{API: apiName, Status: resp.StatusCode, Message: string(body)}
		return 0, callErr
	}

	var decoded struct {
		Result struct {
			ProposeGasPrice string `json:"ProposeGasPrice"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		callErr = err
		return 0, fmt.Errorf("decode response: %w", err)
	}

	gwei, err := strconv.ParseFloat(decoded.Result.ProposeGasPrice, 64)
	if err != nil {
		callErr = err
		return 0, fmt.Errorf("parse propose gas price %q: %w", decoded.Result.ProposeGasPrice, err)
	}
	return gwei, nil
}

func hexTrim(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
