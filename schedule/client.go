// Package schedule fetches the league's teams and games from its public API
// and keeps the latest parsed snapshot in memory.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
)

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError is returned when an endpoint answers with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// ClientConfig configures the league API client.
type ClientConfig struct {
	TeamsURL   string
	GamesURL   string
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
}

// Client talks to the two league API endpoints.
type Client struct {
	httpClient *http.Client
	teamsURL   string
	gamesURL   string
	attempts   uint
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewClient creates a league API client. Zero config values fall back to a
// 10s timeout and 2 attempts.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		teamsURL:   cfg.TeamsURL,
		gamesURL:   cfg.GamesURL,
		attempts:   cfg.Attempts,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// Teams returns the raw elements of the teams endpoint array.
func (c *Client) Teams(ctx context.Context) ([]json.RawMessage, error) {
	return c.getArray(ctx, c.teamsURL)
}

// Games returns the raw elements of the games endpoint array.
func (c *Client) Games(ctx context.Context) ([]json.RawMessage, error) {
	return c.getArray(ctx, c.gamesURL)
}

// getArray decodes only the outer array so one malformed element does not
// fail the whole payload.
func (c *Client) getArray(ctx context.Context, url string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	var lastErr error
	err := retry.Do(
		func() error {
			body, err := c.get(ctx, url)
			if err != nil {
				lastErr = err
				if permanentStatus(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			items = nil
			if err := json.Unmarshal(body, &items); err != nil {
				lastErr = fmt.Errorf("decode %s: %w", url, err)
				return retry.Unrecoverable(lastErr)
			}
			return nil
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(4*c.retryDelay),
		retry.MaxJitter(c.retryDelay/2),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("Retrying league API request", zap.Uint("attempt", n), zap.String("url", url), zap.Error(err))
		}),
	)
	if err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return items, nil
}

// permanentStatus reports 4xx answers other than 429, which a retry will not fix.
func permanentStatus(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	code := statusErr.StatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: truncate(body, 200)}
	}
	return body, nil
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
