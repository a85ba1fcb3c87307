package quotes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/givefolio/givefolio-backend/pkg/config"
)

func TestGetQuoteFetchesAndCaches(t *testing.T) {
	const respBody = `{"symbol":"AAPL","price":"187.2500","as_of":"2026-08-01T14:30:00Z"}`

	var capturedURL string
	var capturedAuth string
	calls := 0

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		capturedURL = req.URL.String()
		capturedAuth = req.Header.Get("Authorization")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	cache := newFakeCache()
	client := newTestClient(t, rt, cache)

	quote, err := client.GetQuote(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if capturedURL != "http://quotes.test/v1/quotes/AAPL" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", capturedAuth)
	}
	if quote.Symbol != "AAPL" || quote.Price.String() != "187.25" {
		t.Fatalf("unexpected quote %+v", quote)
	}

	// Second call must come from cache without another round trip.
	cached, err := client.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("cached get quote: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", calls)
	}
	if !cached.Price.Equal(quote.Price) {
		t.Fatalf("cached price mismatch %s vs %s", cached.Price, quote.Price)
	}
}

func TestGetQuoteRetriesServerErrors(t *testing.T) {
	calls := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return &http.Response{
				StatusCode: http.StatusServiceUnavailable,
				Body:       io.NopCloser(strings.NewReader("upstream down")),
				Header:     http.Header{},
			}, nil
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"symbol":"VTI","price":"250.10"}`)),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(t, rt, nil)
	quote, err := client.GetQuote(context.Background(), "VTI")
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if quote.Price.String() != "250.1" {
		t.Fatalf("unexpected price %s", quote.Price)
	}
}

func TestGetQuoteDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("unknown symbol")),
			Header:     http.Header{},
		}, nil
	})

	client := newTestClient(t, rt, nil)
	if _, err := client.GetQuote(context.Background(), "NOPE"); err == nil {
		t.Fatalf("expected error for unknown symbol")
	}
	if calls != 1 {
		t.Fatalf("expected no retries on 404, got %d calls", calls)
	}
}

func TestGetQuoteValidatesSymbol(t *testing.T) {
	client := newTestClient(t, nil, nil)
	if _, err := client.GetQuote(context.Background(), "  "); err == nil {
		t.Fatalf("expected validation error for blank symbol")
	}
}

func newTestClient(t *testing.T, rt roundTripFunc, cache Cache) *Client {
	t.Helper()
	cfg := config.QuotesConfig{
		BaseURL:     "http://quotes.test/v1",
		APIKey:      "test-key",
		HTTPTimeout: 5 * time.Second,
		CacheTTL:    time.Minute,
		MaxRetries:  3,
	}
	opts := []Option{}
	if rt != nil {
		opts = append(opts, WithHTTPClient(&http.Client{Transport: rt}))
	}
	if cache != nil {
		opts = append(opts, WithCache(cache))
	}
	client, err := NewClient(cfg, nil, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type fakeCache struct {
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	return f.data[key], nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	// values arrive as pre-marshaled strings
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		f.data[key] = string(raw)
		return nil
	}
	f.data[key] = s
	return nil
}

func (f *fakeCache) QuoteKey(symbol string) string {
	return "gf:quote:" + symbol
}
