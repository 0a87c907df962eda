// Package bitquery looks up recent large transfers for whale alerts via
// the Bitquery streaming GraphQL API.
package bitquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chainpulse/internal/chain"
	"chainpulse/internal/config"
	"chainpulse/internal/metrics"
	"chainpulse/internal/ratelimit"
	"chainpulse/internal/tokens"
	"chainpulse/internal/upstream"
)

const apiName = "bitquery"

// Transfer is one observed large transfer.
type Transfer struct {
	Timestamp string  `json:"timestamp"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Hash      string  `json:"hash"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// Client executes whale-transfer GraphQL queries.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	resolver   *tokens.Resolver
}

// NewClient creates a Bitquery client.
func NewClient(cfg *config.Config, resolver *tokens.Resolver) *Client {
	return &Client{
		baseURL:    cfg.BitqueryBaseURL,
		apiKey:     cfg.BitqueryAPIKey,
		httpClient: &http.Client{Timeout: cfg.ProviderTimeout},
		limiter:    ratelimit.New(cfg.BitqueryRPS),
		resolver:   resolver,
	}
}

// LargeTransfers returns up to ten recent transfers above threshold for
// (chain, token). Token "native" matches the chain's base currency.
// Families without Bitquery coverage yield an empty list, not an error.
func (c *Client) LargeTransfers(ctx context.Context, id chain.ID, token string, threshold float64) ([]Transfer, error) {
	var tokenAddress string
	switch token {
	case "":
		// Ethereum queries filter on the currency; with no token
		// there is nothing to match, same as an unresolvable symbol.
		if id.Family == chain.FamilyEthereum {
			return nil, nil
		}
	case "native":
		if id.Family == chain.FamilyEthereum {
			tokenAddress = "ETH"
		}
	default:
		resolved, err := c.resolver.Resolve(token)
		if err != nil {
			return nil, err
		}
		tokenAddress = resolved
	}

	query, variables := buildQuery(id.Family, tokenAddress, threshold)
	if query == "" {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	raw, err := c.post(ctx, query, variables)
	if err != nil {
		return nil, err
	}

	return parseTransfers(raw, id.Family)
}

func buildQuery(family chain.Family, tokenAddress string, threshold float64) (string, map[string]interface{}) {
	variables := map[string]interface{}{
		"network":   string(family),
		"threshold": threshold,
	}

	switch family {
	case chain.FamilyEthereum:
		variables["token"] = tokenAddress
		return `query ($network: EthereumNetwork!, $token: String, $threshold: Float!) {
  ethereum(network: $network) {
    transfers(
      currency: {is: $token}
      amount: {gt: $threshold}
      options: {desc: "block.timestamp.time", limit: 10}
    ) {
      block { timestamp { time(format: "%Y-%m-%d %H:%M:%S") } }
      sender { address }
      receiver { address }
      transaction { hash }
      amount
      currency { symbol }
    }
  }
}`, variables

	case chain.FamilyBitcoin:
		return `query ($network: BitcoinNetwork!, $threshold: Float!) {
  bitcoin(network: $network) {
    inputs(
      inputValue: {gt: $threshold}
      options: {desc: "timestamp", limit: 10}
    ) {
      timestamp { time(format: "%Y-%m-%d %H:%M:%S") }
      address: outputAddress { address }
      value
      transaction { hash }
    }
  }
}`, variables

	case chain.FamilyTron, chain.FamilyDogecoin:
		return fmt.Sprintf(`query ($network: %sNetwork!, $threshold: Float!) {
  %s(network: $network) {
    transfers(
      amount: {gt: $threshold}
      options: {desc: "block.timestamp.time", limit: 10}
    ) {
      block { timestamp { time(format: "%%Y-%%m-%%d %%H:%%M:%%S") } }
      sender { address }
      receiver { address }
      transaction { hash }
      amount
      currency { symbol }
    }
  }
}`, titleCase(string(family)), family), variables

	default:
		// XRPL has no Bitquery dataset.
		return "", nil
	}
}

func (c *Client) post(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	start := time.Now()
	var callErr error
	defer func() {
		metrics.RecordProviderRequest(apiName, "/eap", time.Since(start), callErr)
	}()

	payload, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		callErr = err
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(payload))
	if err != nil {
		callErr = err
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		callErr = upstream.WrapTransport(apiName, err)
		return nil, callErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		callErr = err
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		callErr = &upstream.ProviderError{API: apiName, Status: resp.StatusCode, Message: string(body)}
		return nil, callErr
	}

	return body, nil
}

func parseTransfers(raw json.RawMessage, family chain.Family) ([]Transfer, error) {
	if family == chain.FamilyBitcoin {
		var decoded struct {
			Data struct {
				Bitcoin struct {
					Inputs []struct {
						Timestamp   struct{ Time string }  `json:"timestamp"`
						Address     struct{ Address string } `json:"address"`
						Value       float64                `json:"value"`
						Transaction struct{ Hash string }  `json:"transaction"`
					} `json:"inputs"`
				} `json:"bitcoin"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}

		out := make([]Transfer, 0, len(decoded.Data.Bitcoin.Inputs))
		for _, input := range decoded.Data.Bitcoin.Inputs {
			out = append(out, Transfer{
				Timestamp: input.Timestamp.Time,
				From:      input.Address.Address,
				Hash:      input.Transaction.Hash,
				Amount:    input.Value,
				Currency:  "BTC",
			})
		}
		return out, nil
	}

	var decoded struct {
		Data map[string]struct {
			Transfers []struct {
				Block struct {
					Timestamp struct{ Time string } `json:"timestamp"`
				} `json:"block"`
				Sender      struct{ Address string } `json:"sender"`
				Receiver    struct{ Address string } `json:"receiver"`
				Transaction struct{ Hash string }    `json:"transaction"`
				Amount      float64                  `json:"amount"`
				Currency    struct{ Symbol string }  `json:"currency"`
			} `json:"transfers"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	dataset, ok := decoded.Data[string(family)]
	if !ok {
		return nil, nil
	}

	out := make([]Transfer, 0, len(dataset.Transfers))
	for _, t := range dataset.Transfers {
		out = append(out, Transfer{
			Timestamp: t.Block.Timestamp.Time,
			From:      t.Sender.Address,
			To:        t.Receiver.Address,
			Hash:      t.Transaction.Hash,
			Amount:    t.Amount,
			Currency:  t.Currency.Symbol,
		})
	}
	return out, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
