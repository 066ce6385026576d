package abisource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"abiFrame/internal/decode"
)

const (
	DefaultEtherscanURL = "https://api.etherscan.io/api"
	// free tier allows 5 calls per second
	DefaultEtherscanRPS = 5
)

// EtherscanConfig configures the Etherscan client.
type EtherscanConfig struct {
	BaseURL      string
	APIKey       string
	RPS          float64
	MaxRetries   uint
	RetryBackoff time.Duration
	Timeout      time.Duration
}

// Etherscan fetches verified contract ABIs from the Etherscan getabi endpoint.
type Etherscan struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	attempts   uint
	backoff    time.Duration
	logger     *zap.Logger
}

type etherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// transientError marks failures worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func NewEtherscan(cfg EtherscanConfig, logger *zap.Logger) *Etherscan {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultEtherscanURL
	}
	if cfg.RPS <= 0 {
		cfg.RPS = DefaultEtherscanRPS
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Etherscan{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		attempts:   cfg.MaxRetries + 1,
		backoff:    cfg.RetryBackoff,
		logger:     logger,
	}
}

// HTTPClient exposes the underlying client so tests can install transports.
func (e *Etherscan) HTTPClient() *http.Client {
	return e.httpClient
}

// FetchABI returns the raw ABI JSON text for address.
func (e *Etherscan) FetchABI(ctx context.Context, address string) (string, error) {
	var raw string
	err := retry.Do(
		func() error {
			var err error
			raw, err = e.fetchOnce(ctx, address)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(e.attempts),
		retry.Delay(e.backoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var transient *transientError
			return errors.As(err, &transient)
		}),
		retry.OnRetry(func(n uint, err error) {
			e.logger.Warn("etherscan request failed, retrying",
				zap.String("address", address),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return "", errors.Wrapf(err, "fetch abi for %s", address)
	}
	return raw, nil
}

// Resolve fetches and parses the ABI for address.
func (e *Etherscan) Resolve(ctx context.Context, address string) (*decode.Interface, error) {
	raw, err := e.FetchABI(ctx, address)
	if err != nil {
		return nil, err
	}
	iface, err := decode.ParseInterface(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse etherscan abi for %s", address)
	}
	return iface, nil
}

func (e *Etherscan) fetchOnce(ctx context.Context, address string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	q := req.URL.Query()
	q.Add("module", "contract")
	q.Add("action", "getabi")
	q.Add("address", address)
	if e.apiKey != "" {
		q.Add("apikey", e.apiKey)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("accept", "application/json")

	e.logger.Debug("Making Etherscan request", zap.String("address", address))

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", &transientError{errors.Wrap(err, "failed to make request")}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &transientError{errors.Wrap(err, "failed to read response body")}
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", &transientError{err}
		}
		return "", err
	}

	var parsed etherscanResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal response")
	}

	var result string
	if err := json.Unmarshal(parsed.Result, &result); err != nil {
		result = string(parsed.Result)
	}

	if parsed.Status != "1" {
		if isRateLimited(result) || isRateLimited(parsed.Message) {
			return "", &transientError{fmt.Errorf("rate limited: %s", result)}
		}
		e.logger.Warn("Failed to get contract abi",
			zap.String("address", address),
			zap.String("status", parsed.Status),
			zap.String("message", parsed.Message),
			zap.String("result", result),
		)
		return "", fmt.Errorf("%w: %s: %s", ErrNotFound, parsed.Message, result)
	}
	return result, nil
}

func isRateLimited(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "rate limit")
}
