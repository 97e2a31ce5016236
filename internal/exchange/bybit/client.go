package bybit

import (
	"context"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
)

// Client wraps the official Bybit API client for read-only market data.
// Only public endpoints are exposed; credentials are optional and no
// order or account endpoint is reachable through this type.
type Client struct {
	httpClient *bybit_api.Client
	testnet    bool
}

// Config holds the configuration for the Bybit client. Keys may be left
// empty since kline and ticker data are public.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// NewClient creates a Bybit market data client.
func NewClient(config Config) *Client {
	baseURL := bybit_api.MAINNET
	if config.Testnet {
		baseURL = bybit_api.TESTNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		testnet:    config.Testnet,
	}
}

// IsTestnet returns whether the client is configured for testnet.
func (c *Client) IsTestnet() bool {
	return c.testnet
}

const (
	retryAttempts = 3
	retryDelay    = time.Second
)

// withRetry runs fn up to retryAttempts times with exponential backoff.
// Non-retryable categorized errors abort immediately.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	delay := retryDelay
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var botErr *errors.BotError
		if errors.As(lastErr, &botErr) && !botErr.IsRetryable() {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}
