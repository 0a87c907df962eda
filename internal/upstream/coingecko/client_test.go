package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chainpulse/internal/config"
	"chainpulse/internal/upstream"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.Config{
		CoingeckoBaseURL: baseURL,
		CoingeckoRPS:     1000,
		ProviderTimeout:  2 * time.Second,
	})
}

func TestGetPricesUSD(t *testing.T) {
	var gotIDs string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		if r.URL.Query().Get("vs_currencies") != "usd" {
			t.Errorf("vs_currencies: got %s", r.URL.Query().Get("vs_currencies"))
		}
		w.Write([]byte(`{"ethereum":{"usd":3200.55},"bitcoin":{"usd":95000}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	prices, err := client.GetPricesUSD(context.Background(), []string{"Ethereum", " bitcoin "})
	if err != nil {
		t.Fatal(err)
	}

	if gotIDs != "ethereum,bitcoin" {
		t.Errorf("ids: got %q, want lowercased trimmed list", gotIDs)
	}
	if prices["ethereum"] != 3200.55 || prices["bitcoin"] != 95000 {
		t.Errorf("prices: got %v", prices)
	}
}

func TestGetPriceUSDUnknownID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetPriceUSD(context.Background(), "no-such-coin")

	var notFound *upstream.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestGetPricesUSDRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":{"error_code":429}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetPricesUSD(context.Background(), []string{"ethereum"})

	var provider *upstream.ProviderError
	if !errors.As(err, &provider) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provider.Status != http.StatusTooManyRequests {
		t.Errorf("status: got %d, want 429", provider.Status)
	}
}
