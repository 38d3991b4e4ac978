package embedwallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"

	"github.com/layer-3/embedwallet/core"
	transport "github.com/layer-3/embedwallet/transport/http"
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("session service returned %d: %s", e.Status, e.Message)
}

// HTTPClient talks to walletd over HTTP
type HTTPClient struct {
	baseURL  string
	http     *http.Client
	attempts uint
}

// HTTPClientOption configures an HTTPClient
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(c *http.Client) HTTPClientOption {
	return func(h *HTTPClient) { h.http = c }
}

// WithAttempts sets how many times Challenge and Me are tried.
// Both are safe to repeat: a challenge is stateless until it is used.
func WithAttempts(n uint) HTTPClientOption {
	return func(h *HTTPClient) {
		if n > 0 {
			h.attempts = n
		}
	}
}

// NewHTTPClient creates a client for the service at baseURL
func NewHTTPClient(baseURL string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		attempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) Challenge(ctx context.Context, address string, chainID uint64) (Challenge, error) {
	var resp transport.ChallengeResponse
	err := c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodPost, "/auth/challenge", "", transport.ChallengeRequest{Address: address, ChainID: chainID}, &resp)
	})
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{Token: resp.Token, Nonce: resp.Nonce}, nil
}

func (c *HTTPClient) Login(ctx context.Context, challenge Challenge, proof core.VerificationResult) (Tokens, error) {
	var resp transport.TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", "", transport.LoginRequest{
		ChallengeToken: challenge.Token,
		Address:        proof.Address,
		ChainID:        proof.ChainID,
		Signature:      proof.Signature,
		Timestamp:      proof.Timestamp,
		Method:         proof.Method,
		Nonce:          proof.Nonce,
	}, &resp)
	if err != nil {
		return Tokens{}, err
	}
	return tokens(resp), nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refresh string) (Tokens, error) {
	var resp transport.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", transport.RefreshRequest{RefreshToken: refresh}, &resp); err != nil {
		return Tokens{}, err
	}
	return tokens(resp), nil
}

func (c *HTTPClient) Logout(ctx context.Context, refresh string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", "", transport.RefreshRequest{RefreshToken: refresh}, nil)
}

func (c *HTTPClient) Me(ctx context.Context, access string) (string, uint64, error) {
	var resp transport.MeResponse
	err := c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, "/api/me", access, nil, &resp)
	})
	if err != nil {
		return "", 0, err
	}
	return resp.Address, resp.ChainID, nil
}

func tokens(r transport.TokenResponse) Tokens {
	return Tokens{
		Access:    r.AccessToken,
		Refresh:   r.RefreshToken,
		ExpiresIn: time.Duration(r.ExpiresIn) * time.Second,
	}
}

// withRetry retries fn on transport errors and 5xx responses until ctx is done
func (c *HTTPClient) withRetry(ctx context.Context, fn func() error) error {
	var last error
	_ = retry.Retry(func(uint) error {
		if err := ctx.Err(); err != nil {
			if last == nil {
				last = err
			}
			return nil
		}
		last = fn()
		if ctx.Err() != nil {
			return nil
		}
		var se *StatusError
		if errors.As(last, &se) && se.Status < http.StatusInternalServerError {
			return nil
		}
		return last
	}, strategy.Limit(c.attempts), strategy.Backoff(backoff.BinaryExponential(50*time.Millisecond)))
	return last
}

func (c *HTTPClient) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e transport.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
