package nodit

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
		NoditBaseURL:    baseURL,
		NoditAPIKey:     "test-key",
		NoditRPS:        1000,
		ProviderTimeout: 2 * time.Second,
	}
	return NewClient(cfg, tokens.NewResolver(nil))
}

func TestCallValidationFailsBeforeNetwork(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	tests := []struct {
		name   string
		method chain.Method
		id     chain.ID
		params Params
	}{
		{
			name:   "unsupported method on chain",
			method: chain.MethodTokenPricesByContracts,
			id:     chain.ID{Family: chain.FamilyXRPL, Network: "mainnet"},
		},
		{
			name:   "missing account for transfers",
			method: chain.MethodTokenTransfersByAccount,
			id:     chain.ID{Family: chain.FamilyEthereum, Network: "mainnet"},
		},
		{
			name:   "missing account for generic transactions",
			method: chain.MethodTransactionsByAccount,
			id:     chain.ID{Family: chain.FamilyTron, Network: "mainnet"},
		},
		{
			name:   "nft without token id",
			method: chain.MethodNftMetadataByTokenIds,
			id:     chain.ID{Family: chain.FamilyEthereum, Network: "mainnet"},
			params: Params{ContractAddress: "0xcafe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Call(ctx, tt.method, tt.id, tt.params)
			var validation *upstream.ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	if requests != 0 {
		t.Errorf("validation failures must not reach the network, saw %d requests", requests)
	}
}

func TestCallBuildsEthereumTransferRequest(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-KEY")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }

	_, err := client.Call(context.Background(), chain.MethodTokenTransfersByAccount,
		chain.ID{Family: chain.FamilyEthereum, Network: "mainnet"}, Params{AccountAddress: "0xabc"})
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/ethereum/mainnet/token/getTokenTransfersByAccount" {
		t.Errorf("path: got %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header: got %q", gotKey)
	}
	if gotBody["accountAddress"] != "0xabc" {
		t.Errorf("account: got %v", gotBody["accountAddress"])
	}
	if gotBody["fromDate"] != "2026-08-01T12:00:00Z" {
		t.Errorf("fromDate: got %v, want 30-day lookback", gotBody["fromDate"])
	}
	if gotBody["toDate"] != "2026-08-31T12:00:00Z" {
		t.Errorf("toDate: got %v", gotBody["toDate"])
	}
}

func TestCallBuildsGenericTransactionsRequest(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Call(context.Background(), chain.MethodTransactionsByAccount,
		chain.ID{Family: chain.FamilyXRPL, Network: "mainnet"}, Params{AccountAddress: "rAccount"})
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/xrpl/mainnet/blockchain/getTransactionsByAccount" {
		t.Errorf("path: got %s", gotPath)
	}
}

func TestCallResolvesPriceSymbol(t *testing.T) {
	var gotBody struct {
		ContractAddresses []string `json:"contractAddresses"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Call(context.Background(), chain.MethodTokenPricesByContracts,
		chain.ID{Family: chain.FamilyEthereum, Network: "mainnet"}, Params{TokenSymbol: "dai"})
	if err != nil {
		t.Fatal(err)
	}

	if len(gotBody.ContractAddresses) != 1 || gotBody.ContractAddresses[0] != tokens.DefaultTable["dai"] {
		t.Errorf("contract addresses: got %v", gotBody.ContractAddresses)
	}
}

func TestCallUnknownSymbolIsNotFound(t *testing.T) {
	client := newTestClient("http://unused.invalid")
	_, err := client.Call(context.Background(), chain.MethodTokenPricesByContracts,
		chain.ID{Family: chain.FamilyEthereum, Network: "mainnet"}, Params{TokenSymbol: "zzz-not-real"})

	var notFound *upstream.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestCallSurfacesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Call(context.Background(), chain.MethodTransactionsByAccount,
		chain.ID{Family: chain.FamilyTron, Network: "mainnet"}, Params{AccountAddress: "Taddr"})

	var provider *upstream.ProviderError
	if !errors.As(err, &provider) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provider.Status != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", provider.Status)
	}
	if provider.Message != "invalid api key" {
		t.Errorf("message: got %q", provider.Message)
	}
}

func TestCallReturnsRawPayload(t *testing.T) {
	payload := `{"items":[{"value":"1"}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	raw, err := client.Call(context.Background(), chain.MethodTransactionsByAccount,
		chain.ID{Family: chain.FamilyBitcoin, Network: "mainnet"}, Params{AccountAddress: "bc1addr"})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != payload {
		t.Errorf("payload altered: %s", raw)
	}
}
