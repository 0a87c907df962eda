package bitquery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chainpulse/internal/chain"
	"chainpulse/internal/config"
	"chainpulse/internal/tokens"
	"chainpulse/internal/upstream"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{
		BitqueryBaseURL: baseURL,
		BitqueryAPIKey:  "test-key",
		BitqueryRPS:     1000,
		ProviderTimeout: 2 * time.Second,
	}
	return NewClient(cfg, tokens.NewResolver(nil))
}

func TestLargeTransfersEthereum(t *testing.T) {
	var gotAuth string
	var gotVariables map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Variables map[string]interface{} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotVariables = req.Variables

		w.Write([]byte(`{"data":{"ethereum":{"transfers":[
			{"block":{"timestamp":{"time":"2026-08-31 10:00:00"}},
			 "sender":{"address":"0xwhale"},
			 "receiver":{"address":"0xexchange"},
			 "transaction":{"hash":"0xdead"},
			 "amount":2500000,
			 "currency":{"symbol":"USDT"}}
		]}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	transfers, err := client.LargeTransfers(context.Background(),
		chain.ID{Family: chain.FamilyEthereum, Network: "mainnet"}, "usdt", 1_000_000)
	if err != nil {
		t.Fatal(err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header: got %q", gotAuth)
	}
	if gotVariables["token"] != tokens.DefaultTable["usdt"] {
		t.Errorf("token variable: got %v, want resolved contract", gotVariables["token"])
	}
	if gotVariables["threshold"] != float64(1_000_000) {
		t.Errorf("threshold variable: got %v", gotVariables["threshold"])
	}

	if len(transfers) != 1 {
		t.Fatalf("got %d transfers, want 1", len(transfers))
	}
	tr := transfers[0]
	if tr.From != "0xwhale" || tr.To != "0xexchange" || tr.Hash != "0xdead" {
		t.Errorf("unexpected transfer: %+v", tr)
	}
	if tr.Amount != 2500000 || tr.Currency != "USDT" {
		t.Errorf("unexpected amount/currency: %+v", tr)
	}
}

func TestLargeTransfersBitcoinInputsShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"bitcoin":{"inputs":[
			{"timestamp":{"time":"2026-08-31 11:00:00"},
			 "address":{"address":"bc1whale"},
			 "value":120.5,
			 "transaction":{"hash":"btchash"}}
		]}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	transfers, err := client.LargeTransfers(context.Background(),
		chain.ID{Family: chain.FamilyBitcoin, Network: "mainnet"}, "native", 100)
	if err != nil {
		t.Fatal(err)
	}

	if len(transfers) != 1 {
		t.Fatalf("got %d transfers, want 1", len(transfers))
	}
	tr := transfers[0]
	if tr.From != "bc1whale" || tr.Amount != 120.5 || tr.Currency != "BTC" {
		t.Errorf("unexpected transfer: %+v", tr)
	}
}

func TestLargeTransfersXRPLHasNoDataset(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	transfers, err := client.LargeTransfers(context.Background(),
		chain.ID{Family: chain.FamilyXRPL, Network: "mainnet"}, "native", 100)
	if err != nil {
		t.Fatal(err)
	}

	if transfers != nil {
		t.Errorf("expected empty result, got %+v", transfers)
	}
	if requests != 0 {
		t.Errorf("unsupported network must not hit the API, saw %d requests", requests)
	}
}

func TestLargeTransfersEmptyTokenSkipsEthereumQuery(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	transfers, err := client.LargeTransfers(context.Background(),
		chain.ID{Family: chain.FamilyEthereum, Network: "mainnet"}, "", 100)
	if err != nil {
		t.Fatal(err)
	}

	if transfers != nil {
		t.Errorf("expected empty result, got %+v", transfers)
	}
	if requests != 0 {
		t.Errorf("missing token must not emit a currency-less query, saw %d requests", requests)
	}
}

func TestLargeTransfersNativeTokenMatchesETH(t *testing.T) {
	var gotVariables map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]interface{} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotVariables = req.Variables
		w.Write([]byte(`{"data":{"ethereum":{"transfers":[]}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.LargeTransfers(context.Background(),
		chain.ID{Family: chain.FamilyEthereum, Network: "mainnet"}, "native", 100)
	if err != nil {
		t.Fatal(err)
	}

	if gotVariables["token"] != "ETH" {
		t.Errorf("native token variable: got %v, want ETH", gotVariables["token"])
	}
}

func TestLargeTransfersUnknownToken(t *testing.T) {
	client := newTestClient("http://unused.invalid")
	_, err := client.LargeTransfers(context.Background(),
		chain.ID{Family: chain.FamilyEthereum, Network: "mainnet"}, "zzz-not-a-token", 100)

	var notFound *upstream.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestLargeTransfersProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"unauthorized"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.LargeTransfers(context.Background(),
		chain.ID{Family: chain.FamilyTron, Network: "mainnet"}, "native", 100)

	var provider *upstream.ProviderError
	if !errors.As(err, &provider) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ethereum", "Ethereum"},
		{"bitcoin", "Bitcoin"},
		{"Tron", "Tron"},
		{"X", "X"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := titleCase(tt.in); got != tt.want {
			t.Errorf("titleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
