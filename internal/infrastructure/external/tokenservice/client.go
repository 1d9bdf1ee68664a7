// Package tokenservice implements the HTTP client for the reward-currency
// mint service. The ledger authorizes a mint; this service executes it
// against the token backend and is the single party holding mint keys.
package tokenservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/issuing"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
	"github.com/academy-hub/academy-ledger/pkg/circuitbreaker"
	"github.com/academy-hub/academy-ledger/pkg/logger"
	"github.com/academy-hub/academy-ledger/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the token service client.
type Config struct {
	// BaseURL is the token service base URL.
	BaseURL string

	// APIKey authenticates the ledger against the service.
	APIKey string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	Logger *logger.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrMintRejected is returned when the service refuses the mint.
	ErrMintRejected = errors.New("tokenservice: mint rejected")

	// ErrServiceUnavailable is returned on transport failures and 5xx.
	ErrServiceUnavailable = errors.New("tokenservice: unavailable")
)

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client implements issuing.RewardIssuer over HTTP. Transient failures are
// retried with backoff; a run of failures opens the circuit breaker so
// commands fail fast instead of stacking up on a dead service.
type Client struct {
	cfg     Config
	http    *http.Client
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

// NewClient creates a token service client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	log := cfg.Logger.With(logger.Component("tokenservice"))

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		retrier: retry.IssuerRetrier(),
		breaker: circuitbreaker.RewardIssuerBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		log: log,
	}
}

// mintRequest is the wire format of a mint call.
type mintRequest struct {
	Recipient string `json:"recipient"`
	Amount    uint32 `json:"amount"`
	Season    uint16 `json:"season"`
	Mint      string `json:"mint"`
}

// Mint issues amount units of the season currency to the recipient.
func (c *Client) Mint(ctx context.Context, recipient shared.LearnerID, amount uint32, auth issuing.MintAuthorization) error {
	body, err := json.Marshal(mintRequest{
		Recipient: recipient.String(),
		Amount:    amount,
		Season:    auth.Season,
		Mint:      auth.Mint.String(),
	})
	if err != nil {
		return fmt.Errorf("tokenservice: marshal mint request: %w", err)
	}

	start := time.Now()
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.post(ctx, "/v1/mint", body)
		})
	})
	if err != nil {
		c.log.Error("mint failed",
			logger.LearnerID(recipient.String()),
			logger.XPAmount(amount),
			logger.Season(auth.Season),
			logger.Err(err),
		)
		return err
	}

	c.log.Info("minted reward",
		logger.LearnerID(recipient.String()),
		logger.XPAmount(amount),
		logger.Season(auth.Season),
		logger.Latency(time.Since(start)),
	)
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("%w: %v", ErrServiceUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return retry.Retryable(fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode))
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return retry.Permanent(fmt.Errorf("%w: status %d: %s", ErrMintRejected, resp.StatusCode, detail))
	}
}
