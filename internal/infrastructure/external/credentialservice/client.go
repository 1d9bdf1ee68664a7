// Package credentialservice implements the HTTP client for the credential
// issuance service, which mints and upgrades non-transferable track
// credentials on the ledger's behalf.
package credentialservice

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
	"github.com/academy-hub/academy-ledger/pkg/circuitbreaker"
	"github.com/academy-hub/academy-ledger/pkg/logger"
	"github.com/academy-hub/academy-ledger/pkg/retry"
)

// Config contains configuration for the credential service client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *logger.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 15 * time.Second,
	}
}

var (
	// ErrIssuanceRejected is returned when the service refuses the request.
	ErrIssuanceRejected = errors.New("credentialservice: issuance rejected")

	// ErrServiceUnavailable is returned on transport failures and 5xx.
	ErrServiceUnavailable = errors.New("credentialservice: unavailable")
)

// Client implements issuing.CredentialIssuer over HTTP.
type Client struct {
	cfg     Config
	http    *http.Client
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

// NewClient creates a credential service client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	log := cfg.Logger.With(logger.Component("credentialservice"))

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		retrier: retry.IssuerRetrier(),
		breaker: circuitbreaker.CredentialIssuerBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		log: log,
	}
}

type issueRequest struct {
	Owner         string `json:"owner"`
	TrackID       uint16 `json:"track_id"`
	TrackLevel    uint8  `json:"track_level"`
	Name          string `json:"name"`
	MetadataURI   string `json:"metadata_uri"`
	ExistingAsset string `json:"existing_asset,omitempty"`
}

type issueResponse struct {
	AssetID string `json:"asset_id"`
	Created bool   `json:"created"`
}

// CreateOrUpdate creates the credential when existingAsset is empty and
// upgrades the level in place otherwise.
func (c *Client) CreateOrUpdate(ctx context.Context, spec issuing.CredentialSpec, existingAsset string) (issuing.CredentialResult, error) {
	body, err := json.Marshal(issueRequest{
		Owner:         spec.Owner.String(),
		TrackID:       spec.TrackID,
		TrackLevel:    uint8(spec.TrackLevel),
		Name:          spec.Name,
		MetadataURI:   spec.MetadataURI,
		ExistingAsset: existingAsset,
	})
	if err != nil {
		return issuing.CredentialResult{}, fmt.Errorf("credentialservice: marshal request: %w", err)
	}

	var out issueResponse
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.post(ctx, "/v1/credentials", body, &out)
		})
	})
	if err != nil {
		c.log.Error("credential issuance failed",
			logger.LearnerID(spec.Owner.String()),
			logger.String("track_id", fmt.Sprintf("%d", spec.TrackID)),
			logger.Err(err),
		)
		return issuing.CredentialResult{}, err
	}

	c.log.Info("credential issued",
		logger.LearnerID(spec.Owner.String()),
		logger.String("asset_id", out.AssetID),
		logger.Bool("created", out.Created),
	)
	return issuing.CredentialResult{AssetID: out.AssetID, Created: out.Created}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out *issueResponse) error {
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
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Permanent(fmt.Errorf("credentialservice: decode response: %w", err))
		}
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return retry.Retryable(fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode))
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return retry.Permanent(fmt.Errorf("%w: status %d: %s", ErrIssuanceRejected, resp.StatusCode, detail))
	}
}
