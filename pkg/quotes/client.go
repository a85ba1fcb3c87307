package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/givefolio/givefolio-backend/pkg/config"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
)

const (
	defaultBaseURL             = "https://api.quotefeed.io/v1"
	defaultCacheTTL            = time.Minute
	defaultMaxRetries          = 3
	initialBackoff             = 200 * time.Millisecond
	requestBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("quote feed api key is required")

// Quote is a point-in-time market price for one symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"as_of"`
}

// Provider fetches current market prices. The matcher and portfolio
// service depend on this interface rather than the concrete client.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// Cache is the subset of the redis client used for read-through caching.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	QuoteKey(symbol string) string
}

// Client wraps the upstream quote feed with retries and a redis cache.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      Cache
	cacheTTL   time.Duration
	maxRetries uint64
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCache enables read-through quote caching.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient builds the quote feed client from configuration.
func NewClient(cfg config.QuotesConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		cacheTTL:   cfg.CacheTTL,
		maxRetries: uint64(cfg.MaxRetries),
		logg:       logg,
	}
	if trimmed := strings.TrimSpace(cfg.BaseURL); trimmed != "" {
		client.baseURL = trimmed
	}
	if client.cacheTTL <= 0 {
		client.cacheTTL = defaultCacheTTL
	}
	if client.maxRetries == 0 {
		client.maxRetries = defaultMaxRetries
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return client, nil
}

// GetQuote returns the current price for a symbol, serving from cache
// when a fresh entry exists. Upstream failures are retried with
// exponential backoff before surfacing a dependency error.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quote client not configured")
	}
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "symbol is required")
	}

	if cached := c.fromCache(ctx, trimmed); cached != nil {
		return cached, nil
	}

	var quote *Quote
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(initialBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetched, fetchErr := c.fetch(ctx, trimmed)
		if fetchErr != nil {
			return fetchErr
		}
		quote = fetched
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "quote feed unavailable")
	}

	c.toCache(ctx, quote)
	return quote, nil
}

func (c *Client) fetch(ctx context.Context, symbol string) (*Quote, error) {
	endpoint := fmt.Sprintf("%s/quotes/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.RetryableError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		// Server-side failures and throttling are worth retrying, client
		// errors are not.
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, retry.RetryableError(statusErr)
		}
		return nil, statusErr
	}

	var payload struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
		AsOf   string `json:"as_of"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}

	price, err := decimal.NewFromString(payload.Price)
	if err != nil {
		return nil, fmt.Errorf("parse quote price %q: %w", payload.Price, err)
	}
	asOf := time.Now().UTC()
	if payload.AsOf != "" {
		if parsed, parseErr := time.Parse(time.RFC3339, payload.AsOf); parseErr == nil {
			asOf = parsed
		}
	}

	return &Quote{Symbol: symbol, Price: price, AsOf: asOf}, nil
}

func (c *Client) fromCache(ctx context.Context, symbol string) *Quote {
	if c.cache == nil {
		return nil
	}
	raw, err := c.cache.Get(ctx, c.cache.QuoteKey(symbol))
	if err != nil || raw == "" {
		return nil
	}
	var quote Quote
	if err := json.Unmarshal([]byte(raw), &quote); err != nil {
		return nil
	}
	return &quote
}

func (c *Client) toCache(ctx context.Context, quote *Quote) {
	if c.cache == nil || quote == nil {
		return
	}
	raw, err := json.Marshal(quote)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, c.cache.QuoteKey(quote.Symbol), string(raw), c.cacheTTL); err != nil && c.logg != nil {
		c.logg.Warn(ctx, "quote cache write failed")
	}
}
